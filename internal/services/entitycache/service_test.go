package entitycache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/unifiedui/entity-store/internal/domain/models"
	rediscache "github.com/unifiedui/entity-store/internal/infrastructure/cache/redis"
	"github.com/unifiedui/entity-store/internal/mocks"
	"github.com/unifiedui/entity-store/internal/pkg/encryption"
	"github.com/unifiedui/entity-store/internal/services/entitycache"
	"github.com/unifiedui/entity-store/internal/services/entitystore"
)

var userCanon = models.Canon{Base: "sys", Name: "user"}

type fixture struct {
	mr    *miniredis.Miniredis
	next  *mocks.MockEntityStore
	store *entitycache.Store
}

func setup(t *testing.T) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := rediscache.NewClient(context.Background(), rediscache.Config{Host: mr.Host(), Port: mr.Port()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	key, err := encryption.GenerateKey()
	require.NoError(t, err)
	enc, err := encryption.NewAESEncryptor(key)
	require.NoError(t, err)

	next := &mocks.MockEntityStore{}
	logger := zerolog.Nop()
	store, err := entitycache.New(&entitycache.Config{
		Next:        next,
		CacheClient: client,
		Encryptor:   enc,
		TTL:         time.Minute,
		Logger:      &logger,
	})
	require.NoError(t, err)

	return &fixture{mr: mr, next: next, store: store}
}

func cachedKey(id string) string {
	return "entitystore:" + entitycache.BuildCacheKey(userCanon, id)
}

func TestNew_Validation(t *testing.T) {
	next := &mocks.MockEntityStore{}
	cacheClient := &mocks.MockCacheClient{}
	enc := &mocks.MockEncryptor{}

	tests := []struct {
		name   string
		cfg    *entitycache.Config
		errMsg string
	}{
		{"nil config", nil, "config is required"},
		{"no next", &entitycache.Config{CacheClient: cacheClient, Encryptor: enc}, "next store is required"},
		{"no cache", &entitycache.Config{Next: next, Encryptor: enc}, "cache client is required"},
		{"no encryptor", &entitycache.Config{Next: next, CacheClient: cacheClient}, "encryptor is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := entitycache.New(tt.cfg)

			assert.Nil(t, store)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestBuildCacheKey(t *testing.T) {
	assert.Equal(t, "entity:sys_user:42", entitycache.BuildCacheKey(userCanon, "42"))
	assert.Equal(t, "entity:widget:42", entitycache.BuildCacheKey(models.Canon{Name: "widget"}, "42"))
	assert.Equal(t, "entity:sys_user:*", entitycache.BuildCollectionPattern(userCanon))
}

func TestLoad_MissThenHit(t *testing.T) {
	// Arrange
	f := setup(t)
	ctx := context.Background()
	ent := models.NewEntity(userCanon, map[string]interface{}{"id": "u1", "name": "a", "age": int32(3)})
	f.next.On("Load", mock.Anything, userCanon, mock.Anything).Return(ent, nil).Once()

	// Act
	first, err := f.store.Load(ctx, userCanon, entitystore.ByID("u1"))
	require.NoError(t, err)
	second, err := f.store.Load(ctx, userCanon, entitystore.ByID("u1"))
	require.NoError(t, err)

	// Assert
	f.next.AssertNumberOfCalls(t, "Load", 1)
	assert.Equal(t, first.Data(), second.Data())
	assert.Equal(t, int32(3), second.Get("age"))
	assert.Equal(t, userCanon, second.Canon())
	assert.True(t, f.mr.Exists(cachedKey("u1")))
}

func TestLoad_CachedPayloadIsEncrypted(t *testing.T) {
	f := setup(t)
	ent := models.NewEntity(userCanon, map[string]interface{}{"id": "u1", "secret": "plain-text-value"})
	f.next.On("Load", mock.Anything, userCanon, mock.Anything).Return(ent, nil)

	_, err := f.store.Load(context.Background(), userCanon, entitystore.ByID("u1"))
	require.NoError(t, err)

	raw, err := f.mr.Get(cachedKey("u1"))
	require.NoError(t, err)
	assert.NotContains(t, raw, "plain-text-value")
}

func TestLoad_AbsentIsNotCached(t *testing.T) {
	f := setup(t)
	f.next.On("Load", mock.Anything, userCanon, mock.Anything).Return(nil, nil)

	ent, err := f.store.Load(context.Background(), userCanon, entitystore.ByID("missing"))

	assert.NoError(t, err)
	assert.Nil(t, ent)
	assert.Empty(t, f.mr.Keys())
}

func TestLoad_NonIDQueriesBypassCache(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ent := models.NewEntity(userCanon, map[string]interface{}{"id": "u1", "name": "a"})
	f.next.On("Load", mock.Anything, userCanon, mock.Anything).Return(ent, nil)

	queries := []*entitystore.Query{
		nil,
		entitystore.NewQuery(map[string]interface{}{"name": "a"}),
		entitystore.NewQuery(map[string]interface{}{"id": "u1", "name": "a"}),
		entitystore.ByID("u1").WithFields("name"),
		entitystore.ByID("u1").WithSort("name", 1),
		entitystore.ByID("u1").WithNative(map[string]interface{}{"_id": "u1"}, nil),
	}
	for _, q := range queries {
		_, err := f.store.Load(ctx, userCanon, q)
		require.NoError(t, err)
	}

	f.next.AssertNumberOfCalls(t, "Load", len(queries))
	assert.Empty(t, f.mr.Keys())
}

func TestLoad_CorruptEntryIsDropped(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.mr.Set(cachedKey("u1"), "garbage"))
	ent := models.NewEntity(userCanon, map[string]interface{}{"id": "u1", "name": "fresh"})
	f.next.On("Load", mock.Anything, userCanon, mock.Anything).Return(ent, nil)

	loaded, err := f.store.Load(context.Background(), userCanon, entitystore.ByID("u1"))

	require.NoError(t, err)
	assert.Equal(t, "fresh", loaded.Get("name"))
	f.next.AssertNumberOfCalls(t, "Load", 1)
}

func TestLoad_CacheFailureFallsThrough(t *testing.T) {
	// Arrange
	cacheClient := &mocks.MockCacheClient{}
	next := &mocks.MockEntityStore{}
	logger := zerolog.Nop()
	store, err := entitycache.New(&entitycache.Config{
		Next:        next,
		CacheClient: cacheClient,
		Encryptor:   encryption.NoOpEncryptor{},
		Logger:      &logger,
	})
	require.NoError(t, err)

	ent := models.NewEntity(userCanon, map[string]interface{}{"id": "u1"})
	cacheClient.On("Get", mock.Anything, "entity:sys_user:u1").Return(nil, errors.New("connection reset"))
	cacheClient.On("Set", mock.Anything, "entity:sys_user:u1", mock.Anything, entitycache.DefaultTTL).Return(errors.New("connection reset"))
	next.On("Load", mock.Anything, userCanon, mock.Anything).Return(ent, nil)

	// Act
	loaded, err := store.Load(context.Background(), userCanon, entitystore.ByID("u1"))

	// Assert
	require.NoError(t, err)
	assert.Same(t, ent, loaded)
	cacheClient.AssertExpectations(t)
}

func TestLoad_StoreErrorPropagates(t *testing.T) {
	f := setup(t)
	boom := errors.New("boom")
	f.next.On("Load", mock.Anything, userCanon, mock.Anything).Return(nil, boom)

	ent, err := f.store.Load(context.Background(), userCanon, entitystore.ByID("u1"))

	assert.Nil(t, ent)
	assert.ErrorIs(t, err, boom)
}

func TestLoad_ConcurrentSaveSkipsFill(t *testing.T) {
	// Arrange
	f := setup(t)
	ctx := context.Background()
	stale := models.NewEntity(userCanon, map[string]interface{}{"id": "u1", "name": "old"})
	fresh := models.NewEntity(userCanon, map[string]interface{}{"id": "u1", "name": "new"})

	f.next.On("Save", mock.Anything, fresh).Return(fresh, nil)
	// A save lands after the store was read but before the cache is filled.
	f.next.On("Load", mock.Anything, userCanon, mock.Anything).Run(func(args mock.Arguments) {
		_, err := f.store.Save(ctx, fresh)
		require.NoError(t, err)
	}).Return(stale, nil).Once()

	// Act
	loaded, err := f.store.Load(ctx, userCanon, entitystore.ByID("u1"))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "old", loaded.Get("name"))
	assert.False(t, f.mr.Exists(cachedKey("u1")))

	f.next.On("Load", mock.Anything, userCanon, mock.Anything).Return(fresh, nil).Once()
	reloaded, err := f.store.Load(ctx, userCanon, entitystore.ByID("u1"))
	require.NoError(t, err)
	assert.Equal(t, "new", reloaded.Get("name"))
	assert.True(t, f.mr.Exists(cachedKey("u1")))
	f.next.AssertNumberOfCalls(t, "Load", 2)
}

func TestSave_InvalidatesEntry(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.mr.Set(cachedKey("u1"), "stale"))
	ent := models.NewEntity(userCanon, map[string]interface{}{"id": "u1", "name": "b"})
	f.next.On("Save", mock.Anything, ent).Return(ent, nil)

	saved, err := f.store.Save(ctx, ent)

	require.NoError(t, err)
	assert.Same(t, ent, saved)
	assert.False(t, f.mr.Exists(cachedKey("u1")))
}

func TestSave_ErrorLeavesCacheUntouched(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.mr.Set(cachedKey("u1"), "kept"))
	ent := models.NewEntity(userCanon, map[string]interface{}{"id": "u1"})
	f.next.On("Save", mock.Anything, ent).Return(nil, errors.New("boom"))

	_, err := f.store.Save(context.Background(), ent)

	assert.Error(t, err)
	assert.True(t, f.mr.Exists(cachedKey("u1")))
}

func TestRemove_Invalidation(t *testing.T) {
	tests := []struct {
		name      string
		query     *entitystore.Query
		removed   *models.Entity
		remaining []string
	}{
		{
			name:      "by id",
			query:     entitystore.ByID("u1"),
			remaining: []string{cachedKey("u2")},
		},
		{
			name:      "by filter with load",
			query:     entitystore.NewQuery(map[string]interface{}{"name": "a"}),
			removed:   models.NewEntity(userCanon, map[string]interface{}{"id": "u2"}),
			remaining: []string{cachedKey("u1")},
		},
		{
			name:  "by filter without load",
			query: entitystore.NewQuery(map[string]interface{}{"name": "a"}).WithLoad(false),
		},
		{
			name:  "all",
			query: entitystore.NewQuery(nil).WithAll(true),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			require.NoError(t, f.mr.Set(cachedKey("u1"), "x"))
			require.NoError(t, f.mr.Set(cachedKey("u2"), "y"))
			require.NoError(t, f.mr.Set("entitystore:entity:sys_role:r1", "z"))

			if tt.removed != nil {
				f.next.On("Remove", mock.Anything, userCanon, tt.query).Return(tt.removed, nil)
			} else {
				f.next.On("Remove", mock.Anything, userCanon, tt.query).Return(nil, nil)
			}

			_, err := f.store.Remove(context.Background(), userCanon, tt.query)
			require.NoError(t, err)

			expected := append([]string{"entitystore:entity:sys_role:r1"}, tt.remaining...)
			assert.ElementsMatch(t, expected, f.mr.Keys())
		})
	}
}

func TestList_PassesThrough(t *testing.T) {
	f := setup(t)
	list := []*models.Entity{models.NewEntity(userCanon, map[string]interface{}{"id": "u1"})}
	f.next.On("List", mock.Anything, userCanon, mock.Anything).Return(list, nil)

	got, err := f.store.List(context.Background(), userCanon, nil)

	require.NoError(t, err)
	assert.Equal(t, list, got)
	assert.Empty(t, f.mr.Keys())
}

func TestPing(t *testing.T) {
	f := setup(t)
	f.next.On("Ping", mock.Anything).Return(nil)

	assert.NoError(t, f.store.Ping(context.Background()))

	f.mr.SetError("LOADING")
	assert.Error(t, f.store.Ping(context.Background()))
}

func TestClose_ClosesNextStore(t *testing.T) {
	f := setup(t)
	f.next.On("Close", mock.Anything).Return(nil)

	assert.NoError(t, f.store.Close(context.Background()))
	f.next.AssertCalled(t, "Close", mock.Anything)
}
