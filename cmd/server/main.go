// Package main is the entry point for the UnifiedUI Entity Store.
// @title UnifiedUI Entity Store API
// @version 1.0
// @description Document-database backed entity store with query translation and an optional encrypted read-through cache

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8085
// @BasePath /api/v1/entity-store
// @schemes http https
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	_ "github.com/unifiedui/entity-store/docs"
	"github.com/unifiedui/entity-store/internal/api/handlers"
	"github.com/unifiedui/entity-store/internal/api/middleware"
	"github.com/unifiedui/entity-store/internal/api/routes"
	"github.com/unifiedui/entity-store/internal/config"
	"github.com/unifiedui/entity-store/internal/core/cache"
	"github.com/unifiedui/entity-store/internal/core/docdb"
	"github.com/unifiedui/entity-store/internal/core/vault"
	domainerrors "github.com/unifiedui/entity-store/internal/domain/errors"
	rediscache "github.com/unifiedui/entity-store/internal/infrastructure/cache/redis"
	"github.com/unifiedui/entity-store/internal/infrastructure/docdb/mongodb"
	dotenvvault "github.com/unifiedui/entity-store/internal/infrastructure/vault/dotenv"
	"github.com/unifiedui/entity-store/internal/pkg/encryption"
	"github.com/unifiedui/entity-store/internal/services/entitycache"
	"github.com/unifiedui/entity-store/internal/services/entitystore"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	setupLogger(cfg.Log)

	ctx := context.Background()

	// Resolve secret references before anything connects
	vaultClient, err := createVault(cfg.Vault)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize vault")
	}
	defer vaultClient.Close()

	if err := cfg.ResolveSecrets(ctx, vaultClient); err != nil {
		log.Fatal().Err(err).Msg("failed to resolve secrets")
	}

	dial, err := createDialer(cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize store driver")
	}

	var store entitystore.Service
	baseStore, err := entitystore.New(ctx, &entitystore.Config{
		Descriptor: cfg.Store.Descriptor(),
		Dial:       dial,
	})
	if err != nil {
		if domainerrors.IsFatalConnection(err) {
			log.Fatal().Err(err).Msg("store connection failed")
		}
		log.Fatal().Err(err).Msg("failed to initialize store")
	}
	store = baseStore

	// Optional read-through cache in front of the store
	cacheClient, err := createCacheClient(ctx, cfg.Cache)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize cache client")
	}

	var cachePinger handlers.Pinger
	if cacheClient != nil {
		encryptor, err := encryption.New(cfg.Vault.EncryptionKey)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize encryptor")
		}
		if cfg.Vault.EncryptionKey == "" {
			log.Warn().Msg("SECRETS_ENCRYPTION_KEY not set, cached entities are stored unencrypted")
		}

		store, err = entitycache.New(&entitycache.Config{
			Next:        baseStore,
			CacheClient: cacheClient,
			Encryptor:   encryptor,
			TTL:         cfg.Cache.TTL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize entity cache")
		}
		cachePinger = cacheClient
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	router := gin.New()
	routes.SetupWithMiddleware(router, &routes.Config{
		HealthHandler:   handlers.NewHealthHandler(store, cachePinger),
		EntitiesHandler: handlers.NewEntitiesHandler(store),
		EnableDocs:      cfg.Server.GinMode != gin.ReleaseMode,
	}, middleware.NewLoggingMiddleware(), middleware.NewErrorMiddleware())

	srv := &http.Server{
		Addr:    cfg.Server.Address(),
		Handler: router,
	}

	go func() {
		log.Info().Str("address", cfg.Server.Address()).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	if err := store.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to close store")
	}
	if cacheClient != nil {
		if err := cacheClient.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close cache client")
		}
	}

	log.Info().Msg("server exited")
}

// setupLogger configures the global zerolog logger.
func setupLogger(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// createVault creates a secret resolver based on the configuration.
func createVault(cfg config.VaultConfig) (vault.Resolver, error) {
	switch vault.Type(cfg.Type) {
	case vault.TypeDotEnv:
		if cfg.EnvFile != "" {
			return dotenvvault.NewVault(cfg.EnvFile)
		}
		return dotenvvault.NewVault()
	default:
		return nil, fmt.Errorf("unsupported vault type: %s", cfg.Type)
	}
}

// createDialer returns the driver dialer for the configured store type.
func createDialer(cfg config.StoreConfig) (entitystore.Dialer, error) {
	switch docdb.Type(cfg.Type) {
	// Cosmos DB speaks the MongoDB wire protocol
	case docdb.TypeMongoDB, docdb.TypeCosmosDB:
		return func(ctx context.Context, conn *entitystore.ConnectionConfig) (docdb.Client, error) {
			uri, err := conn.URI()
			if err != nil {
				return nil, err
			}
			return mongodb.NewClient(ctx, &mongodb.ClientConfig{
				URI:            uri,
				DatabaseName:   conn.DatabaseName(),
				ConnectTimeout: cfg.ConnectTimeout,
			})
		}, nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
}

// createCacheClient creates a cache client, or nil when caching is disabled.
func createCacheClient(ctx context.Context, cfg config.CacheConfig) (cache.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	cacheType, err := cache.ParseType(cfg.Type)
	if err != nil {
		return nil, err
	}

	switch cacheType {
	case cache.TypeRedis:
		return rediscache.NewClient(ctx, rediscache.Config{
			Host:       cfg.Host,
			Port:       cfg.Port,
			Password:   cfg.Password,
			DB:         cfg.DB,
			DefaultTTL: cfg.TTL,
		})
	default:
		return nil, nil
	}
}
