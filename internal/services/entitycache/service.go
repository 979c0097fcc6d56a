// Package entitycache provides a read-through cache in front of the entity store.
package entitycache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/unifiedui/entity-store/internal/core/cache"
	"github.com/unifiedui/entity-store/internal/domain/models"
	"github.com/unifiedui/entity-store/internal/pkg/encryption"
	"github.com/unifiedui/entity-store/internal/services/entitystore"
)

// DefaultTTL is the default lifetime of a cached entity.
const DefaultTTL = 3 * time.Minute

// Config holds the configuration for the cached store.
type Config struct {
	Next        entitystore.Service
	CacheClient cache.Client
	Encryptor   encryption.Encryptor
	TTL         time.Duration
	Logger      *zerolog.Logger
}

// Store caches loads by exact id and invalidates on writes. Cache failures
// never fail an operation; the request falls through to the next store.
type Store struct {
	next        entitystore.Service
	cacheClient cache.Client
	encryptor   encryption.Encryptor
	ttl         time.Duration
	logger      zerolog.Logger

	// epoch counts invalidations. A miss only fills the cache when no
	// invalidation ran while the store was read.
	mu    sync.Mutex
	epoch uint64
}

var _ entitystore.Service = (*Store)(nil)

// New creates a cached store.
func New(cfg *Config) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Next == nil {
		return nil, fmt.Errorf("next store is required")
	}
	if cfg.CacheClient == nil {
		return nil, fmt.Errorf("cache client is required")
	}
	if cfg.Encryptor == nil {
		return nil, fmt.Errorf("encryptor is required")
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}

	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Store{
		next:        cfg.Next,
		cacheClient: cfg.CacheClient,
		encryptor:   cfg.Encryptor,
		ttl:         ttl,
		logger:      logger.With().Str("component", "entitycache").Logger(),
	}, nil
}

// Save writes through and drops the cached copy.
func (s *Store) Save(ctx context.Context, ent *models.Entity) (*models.Entity, error) {
	saved, err := s.next.Save(ctx, ent)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, BuildCacheKey(saved.Canon(), saved.ID))
	return saved, nil
}

// Load serves exact id lookups from the cache and fills it on a miss.
func (s *Store) Load(ctx context.Context, canon models.Canon, q *entitystore.Query) (*models.Entity, error) {
	id, ok := cacheableID(q)
	if !ok {
		return s.next.Load(ctx, canon, q)
	}

	key := BuildCacheKey(canon, id)
	if ent := s.get(ctx, canon, key); ent != nil {
		return ent, nil
	}

	epoch := s.currentEpoch()
	ent, err := s.next.Load(ctx, canon, q)
	if err != nil || ent == nil {
		return ent, err
	}
	s.fill(ctx, key, ent, epoch)
	return ent, nil
}

// List is never cached.
func (s *Store) List(ctx context.Context, canon models.Canon, q *entitystore.Query) ([]*models.Entity, error) {
	return s.next.List(ctx, canon, q)
}

// Remove deletes through and drops every cache entry that may be stale.
func (s *Store) Remove(ctx context.Context, canon models.Canon, q *entitystore.Query) (*models.Entity, error) {
	removed, err := s.next.Remove(ctx, canon, q)
	if err != nil {
		return nil, err
	}

	switch id, ok := cacheableID(q); {
	case q != nil && q.All:
		s.invalidatePattern(ctx, BuildCollectionPattern(canon))
	case ok:
		s.invalidate(ctx, BuildCacheKey(canon, id))
	case removed != nil:
		s.invalidate(ctx, BuildCacheKey(canon, removed.ID))
	default:
		// The removed id is unknown without load.
		s.invalidatePattern(ctx, BuildCollectionPattern(canon))
	}
	return removed, nil
}

// Ping checks the store and the cache.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.next.Ping(ctx); err != nil {
		return err
	}
	if err := s.cacheClient.Ping(ctx); err != nil {
		return fmt.Errorf("cache ping failed: %w", err)
	}
	return nil
}

// Close closes the next store. The cache client is owned by the caller.
func (s *Store) Close(ctx context.Context) error {
	return s.next.Close(ctx)
}

// BuildCacheKey generates the cache key for an entity.
func BuildCacheKey(canon models.Canon, id string) string {
	return fmt.Sprintf("entity:%s:%s", canon.CollectionID(), id)
}

// BuildCollectionPattern matches every cached entity of a collection.
func BuildCollectionPattern(canon models.Canon) string {
	return fmt.Sprintf("entity:%s:*", canon.CollectionID())
}

// cacheableID returns the id of a query that selects exactly one entity by id
// with no modifiers.
func cacheableID(q *entitystore.Query) (string, bool) {
	if q == nil || q.Native != nil || q.All || q.Sort != nil || q.Limit > 0 || q.Skip > 0 || len(q.Fields) > 0 {
		return "", false
	}
	if len(q.Filter) != 1 {
		return "", false
	}
	id, ok := q.Filter["id"].(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

func (s *Store) get(ctx context.Context, canon models.Canon, key string) *models.Entity {
	sealed, err := s.cacheClient.Get(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return nil
	}
	if sealed == nil {
		return nil
	}

	// Entries sealed under a rotated key or corrupted are dropped.
	raw, err := s.encryptor.Open(sealed)
	if err != nil {
		s.invalidate(ctx, key)
		return nil
	}

	var data bson.M
	if err := bson.Unmarshal(raw, &data); err != nil {
		s.invalidate(ctx, key)
		return nil
	}

	s.logger.Debug().Str("key", key).Msg("cache hit")
	return models.NewEntity(canon, data)
}

func (s *Store) currentEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// fill caches a loaded entity unless an invalidation happened since epoch.
// Writers on other processes are only bounded by the TTL.
func (s *Store) fill(ctx context.Context, key string, ent *models.Entity, epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		s.logger.Debug().Str("key", key).Msg("cache fill skipped after concurrent write")
		return
	}
	s.set(ctx, key, ent)
}

func (s *Store) set(ctx context.Context, key string, ent *models.Entity) {
	raw, err := bson.Marshal(ent.Data())
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("entity not cacheable")
		return
	}

	sealed, err := s.encryptor.Seal(raw)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to seal cache entry")
		return
	}

	if err := s.cacheClient.Set(ctx, key, sealed, s.ttl); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (s *Store) invalidate(ctx context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	if _, err := s.cacheClient.Delete(ctx, key); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache invalidation failed")
	}
}

func (s *Store) invalidatePattern(ctx context.Context, pattern string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	if _, err := s.cacheClient.DeletePattern(ctx, pattern); err != nil {
		s.logger.Warn().Err(err).Str("pattern", pattern).Msg("cache invalidation failed")
	}
}
