// Package mongodb provides MongoDB client implementation.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/unifiedui/entity-store/internal/core/docdb"
)

// DefaultConnectTimeout bounds the initial connect and ping.
const DefaultConnectTimeout = 10 * time.Second

// Client implements the docdb.Client interface for MongoDB.
type Client struct {
	client   *mongo.Client
	database *Database
}

// ClientConfig holds MongoDB connection configuration.
type ClientConfig struct {
	URI            string
	DatabaseName   string
	ConnectTimeout time.Duration
	// Logger receives topology lifecycle events. Defaults to the global logger.
	Logger *zerolog.Logger
}

// NewClient creates a new MongoDB client and verifies the connection.
func NewClient(ctx context.Context, config *ClientConfig) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.URI == "" {
		return nil, fmt.Errorf("mongodb URI is required")
	}
	if config.DatabaseName == "" {
		return nil, fmt.Errorf("database name is required")
	}

	logger := log.Logger
	if config.Logger != nil {
		logger = *config.Logger
	}

	timeout := config.ConnectTimeout
	if timeout == 0 {
		timeout = DefaultConnectTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(config.URI).
		SetConnectTimeout(timeout).
		SetServerMonitor(newServerMonitor(logger, config.DatabaseName))
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Connect is lazy; ping surfaces unreachable servers and bad credentials.
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Client{
		client:   client,
		database: NewDatabase(client.Database(config.DatabaseName)),
	}, nil
}

// Database returns the database interface.
func (c *Client) Database() docdb.Database {
	return c.database
}

// Ping verifies the connection to MongoDB.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongodb ping failed: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (c *Client) Close(ctx context.Context) error {
	if err := c.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from mongodb: %w", err)
	}
	return nil
}

// newServerMonitor logs topology lifecycle events. It has no behavioral effect.
func newServerMonitor(logger zerolog.Logger, dbName string) *event.ServerMonitor {
	info := func(name string) *zerolog.Event {
		return logger.Info().Str("db_name", dbName).Str("event_name", name)
	}

	return &event.ServerMonitor{
		ServerOpening: func(e *event.ServerOpeningEvent) {
			info("serverOpening").Str("address", string(e.Address)).Msg("topology event")
		},
		ServerClosed: func(e *event.ServerClosedEvent) {
			info("serverClosed").Str("address", string(e.Address)).Msg("topology event")
		},
		ServerDescriptionChanged: func(e *event.ServerDescriptionChangedEvent) {
			info("serverDescriptionChanged").
				Str("address", string(e.Address)).
				Str("previous_kind", e.PreviousDescription.Kind.String()).
				Str("new_kind", e.NewDescription.Kind.String()).
				Msg("topology event")
		},
		TopologyOpening: func(e *event.TopologyOpeningEvent) {
			info("topologyOpening").Str("topology_id", e.TopologyID.Hex()).Msg("topology event")
		},
		TopologyClosed: func(e *event.TopologyClosedEvent) {
			info("topologyClosed").Str("topology_id", e.TopologyID.Hex()).Msg("topology event")
		},
		TopologyDescriptionChanged: func(e *event.TopologyDescriptionChangedEvent) {
			info("topologyDescriptionChanged").
				Str("topology_id", e.TopologyID.Hex()).
				Str("new_kind", e.NewDescription.Kind.String()).
				Msg("topology event")
		},
		ServerHeartbeatFailed: func(e *event.ServerHeartbeatFailedEvent) {
			logger.Warn().
				Str("db_name", dbName).
				Str("event_name", "serverHeartbeatFailed").
				Str("connection_id", e.ConnectionID).
				Err(e.Failure).
				Msg("topology event")
		},
	}
}
