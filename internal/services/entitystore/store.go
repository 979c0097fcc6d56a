// Package entitystore persists generic entities in a document database,
// translating generic queries into native filters and find options.
package entitystore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/unifiedui/entity-store/internal/core/docdb"
	domainerrors "github.com/unifiedui/entity-store/internal/domain/errors"
	"github.com/unifiedui/entity-store/internal/domain/models"
)

const (
	// Name identifies the store in logs.
	Name = "mongo-store"

	// probeCollection is read by Native to verify connectivity.
	probeCollection = "entitystore"
)

// Service defines the entity persistence operations.
type Service interface {
	// Save inserts an entity without id, or upserts an entity with one.
	Save(ctx context.Context, ent *models.Entity) (*models.Entity, error)

	// Load returns the first entity matching the query, or nil.
	Load(ctx context.Context, canon models.Canon, q *Query) (*models.Entity, error)

	// List returns all entities matching the query in native cursor order.
	List(ctx context.Context, canon models.Canon, q *Query) ([]*models.Entity, error)

	// Remove deletes the first match (or every match when q.All is set).
	// The removed entity is returned when q.ShouldLoad().
	Remove(ctx context.Context, canon models.Canon, q *Query) (*models.Entity, error)

	// Ping checks the underlying connection.
	Ping(ctx context.Context) error

	// Close releases the connection.
	Close(ctx context.Context) error
}

// Dialer opens a client for a resolved connection config.
type Dialer func(ctx context.Context, conn *ConnectionConfig) (docdb.Client, error)

// Config holds the configuration for the store.
type Config struct {
	Descriptor Descriptor
	Dial       Dialer
	Logger     *zerolog.Logger
}

// Store implements Service over a docdb.Client.
type Store struct {
	conn   *ConnectionConfig
	dial   Dialer
	logger zerolog.Logger

	mu          sync.RWMutex
	client      docdb.Client
	collections *collectionCache
}

// New resolves the configuration and connects, unless connection is deferred.
// A failed connection yields a FATAL_CONNECTION domain error.
func New(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Descriptor == nil {
		return nil, fmt.Errorf("connection descriptor is required")
	}
	if cfg.Dial == nil {
		return nil, fmt.Errorf("dialer is required")
	}

	conn, err := cfg.Descriptor.Resolve()
	if err != nil {
		return nil, domainerrors.NewValidationError("invalid store configuration", err.Error())
	}

	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	s := &Store{
		conn:   conn,
		dial:   cfg.Dial,
		logger: logger.With().Str("store", Name).Logger(),
	}

	if !conn.Connect {
		s.logger.Info().Str("target", conn.Redacted()).Msg("store connection deferred")
		return s, nil
	}

	if err := s.Connect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Connect opens the connection. It is a no-op when already connected.
func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return nil
	}

	if err := s.conn.Validate(); err != nil {
		return domainerrors.NewValidationError("invalid store configuration", err.Error())
	}

	client, err := s.dial(ctx, s.conn)
	if err != nil {
		s.logger.Error().Err(err).Str("target", s.conn.Redacted()).Msg("failed to open store connection")
		return domainerrors.NewFatalConnectionError(s.conn.Redacted(), err)
	}

	s.client = client
	s.collections = newCollectionCache(client.Database())
	s.logger.Info().Str("db_name", s.conn.DatabaseName()).Msg("store connected")
	return nil
}

// Connected reports whether the store holds an open connection.
func (s *Store) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client != nil
}

// Save inserts the entity when it has no id and assigns the generated id;
// otherwise it upserts the entity's fields under its id.
func (s *Store) Save(ctx context.Context, ent *models.Entity) (*models.Entity, error) {
	if ent == nil {
		return nil, domainerrors.NewValidationError("invalid entity", "entity is required")
	}

	coll, err := s.collection("save", ent.Canon())
	if err != nil {
		return nil, err
	}

	if ent.ID != "" {
		filter := bson.M{"_id": MakeID(ent.ID)}
		fields := toDocument(ent, false)
		update := bson.M{"$set": fields}
		if len(fields) == 0 {
			update = bson.M{"$setOnInsert": bson.M{"_id": filter["_id"]}}
		}

		if _, err := coll.UpdateOne(ctx, filter, update, true); err != nil {
			return nil, s.fail("save/update", coll.Name(), err)
		}
		s.logger.Debug().Str("collection", coll.Name()).Str("id", ent.ID).Msg("save/update")
		return ent, nil
	}

	insertedID, err := coll.InsertOne(ctx, toDocument(ent, true))
	if err != nil {
		return nil, s.fail("save/insert", coll.Name(), err)
	}
	ent.ID = IDString(insertedID)

	s.logger.Debug().Str("collection", coll.Name()).Str("id", ent.ID).Msg("save/insert")
	return ent, nil
}

// Load returns the first entity matching the query. No match is not an
// error: the result is nil.
func (s *Store) Load(ctx context.Context, canon models.Canon, q *Query) (*models.Entity, error) {
	q, err := prepare(q)
	if err != nil {
		return nil, err
	}

	coll, err := s.collection("load", canon)
	if err != nil {
		return nil, err
	}

	var doc bson.M
	err = coll.FindOne(ctx, BuildFilter(q), BuildOptions(q)).Decode(&doc)
	if errors.Is(err, docdb.ErrNoDocuments) {
		s.logger.Debug().Str("collection", coll.Name()).Msg("load: no match")
		return nil, nil
	}
	if err != nil {
		return nil, s.fail("load", coll.Name(), err)
	}

	ent := fromDocument(canon, doc)
	s.logger.Debug().Str("collection", coll.Name()).Str("id", ent.ID).Msg("load")
	return ent, nil
}

// List returns every entity matching the query in cursor order. Documents
// that cannot be decoded are logged and skipped.
func (s *Store) List(ctx context.Context, canon models.Canon, q *Query) ([]*models.Entity, error) {
	q, err := prepare(q)
	if err != nil {
		return nil, err
	}

	coll, err := s.collection("list", canon)
	if err != nil {
		return nil, err
	}

	cursor, err := coll.Find(ctx, BuildFilter(q), BuildOptions(q))
	if err != nil {
		return nil, s.fail("list", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	list := make([]*models.Entity, 0)
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			s.logger.Warn().Err(err).Str("collection", coll.Name()).Msg("list: skipping unreadable document")
			continue
		}
		if doc == nil {
			continue
		}
		list = append(list, fromDocument(canon, doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, s.fail("list", coll.Name(), err)
	}

	s.logger.Debug().Str("collection", coll.Name()).Int("count", len(list)).Msg("list")
	return list, nil
}

// Remove deletes matching entities.
//
// With q.All every matching document is deleted and no entity is returned.
// Otherwise the first match (honoring sort and skip) is looked up and
// deleted by its id; it is returned when q.ShouldLoad(). No match returns
// nil without attempting a delete.
func (s *Store) Remove(ctx context.Context, canon models.Canon, q *Query) (*models.Entity, error) {
	q, err := prepare(q)
	if err != nil {
		return nil, err
	}

	coll, err := s.collection("remove", canon)
	if err != nil {
		return nil, err
	}

	filter := BuildFilter(q)

	if q.All {
		result, err := coll.DeleteMany(ctx, filter)
		if err != nil {
			return nil, s.fail("remove/all", coll.Name(), err)
		}
		s.logger.Debug().Str("collection", coll.Name()).Int64("deleted", result.DeletedCount).Msg("remove/all")
		return nil, nil
	}

	var doc bson.M
	err = coll.FindOne(ctx, filter, BuildOptions(q)).Decode(&doc)
	if errors.Is(err, docdb.ErrNoDocuments) {
		s.logger.Debug().Str("collection", coll.Name()).Msg("remove/one: no match")
		return nil, nil
	}
	if err != nil {
		return nil, s.fail("remove/one", coll.Name(), err)
	}

	// The deleted document is the one returned, not the earlier lookup.
	var deleted bson.M
	err = coll.FindOneAndDelete(ctx, bson.M{"_id": doc["_id"]}, nil).Decode(&deleted)
	if errors.Is(err, docdb.ErrNoDocuments) {
		// Deleted concurrently by another caller.
		s.logger.Debug().Str("collection", coll.Name()).Msg("remove/one: already removed")
		return nil, nil
	}
	if err != nil {
		return nil, s.fail("remove/one", coll.Name(), err)
	}

	removed := fromDocument(canon, deleted)
	s.logger.Debug().Str("collection", coll.Name()).Str("id", removed.ID).Msg("remove/one")

	if !q.ShouldLoad() {
		return nil, nil
	}
	return removed, nil
}

// Native returns the raw database handle after probing connectivity.
func (s *Store) Native(ctx context.Context) (docdb.Database, error) {
	db, err := s.database("native")
	if err != nil {
		return nil, err
	}

	err = db.Collection(probeCollection).FindOne(ctx, bson.M{}, nil).Err()
	if err != nil && !errors.Is(err, docdb.ErrNoDocuments) {
		return nil, s.fail("native", probeCollection, err)
	}
	return db, nil
}

// Ping checks the underlying connection.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()

	if client == nil {
		return domainerrors.NewNotConnectedError("ping")
	}
	return client.Ping(ctx)
}

// Close releases the connection. Closing an unconnected store succeeds.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}

	err := s.client.Close(ctx)
	s.client = nil
	s.collections = nil
	if err != nil {
		return s.fail("close", "", err)
	}
	s.logger.Info().Msg("store closed")
	return nil
}

func (s *Store) database(op string) (docdb.Database, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.client == nil {
		return nil, domainerrors.NewNotConnectedError(op)
	}
	return s.client.Database(), nil
}

func (s *Store) collection(op string, canon models.Canon) (docdb.Collection, error) {
	if canon.Name == "" {
		return nil, domainerrors.NewValidationError("invalid entity", "canon name is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.collections == nil {
		return nil, domainerrors.NewNotConnectedError(op)
	}
	return s.collections.resolve(canon), nil
}

// fail logs a failed native call and wraps it for the caller.
func (s *Store) fail(op, collection string, err error) error {
	s.logger.Error().Err(err).Str("op", op).Str("collection", collection).Msg("store operation failed")
	return domainerrors.NewStoreError(op, err)
}

func prepare(q *Query) (*Query, error) {
	if q == nil {
		return NewQuery(nil), nil
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}
