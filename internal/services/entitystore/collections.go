package entitystore

import (
	"sync"

	"github.com/unifiedui/entity-store/internal/core/docdb"
	"github.com/unifiedui/entity-store/internal/domain/models"
)

// collectionCache maps collection ids to open collection handles for the
// lifetime of a connection. Concurrent first lookups of the same id may both
// resolve; the last write wins and both handles are usable.
type collectionCache struct {
	mu    sync.RWMutex
	db    docdb.Database
	colls map[string]docdb.Collection
}

func newCollectionCache(db docdb.Database) *collectionCache {
	return &collectionCache{
		db:    db,
		colls: make(map[string]docdb.Collection),
	}
}

// resolve returns the cached collection for the canon, opening it on first use.
func (c *collectionCache) resolve(canon models.Canon) docdb.Collection {
	id := canon.CollectionID()

	c.mu.RLock()
	coll, ok := c.colls[id]
	c.mu.RUnlock()
	if ok {
		return coll
	}

	coll = c.db.Collection(id)

	c.mu.Lock()
	c.colls[id] = coll
	c.mu.Unlock()

	return coll
}

func (c *collectionCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.colls)
}
