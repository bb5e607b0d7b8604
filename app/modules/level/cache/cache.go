// Package cache holds the latest known level per (owner, group) in memory,
// lazily filled from the durable store and evicted when the owner leaves.
package cache

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	gocache "github.com/patrickmn/go-cache"

	sharedtypes "github.com/skybound-club/isle-level/app/shared/types"
)

// Loader is the slice of the persistence layer the cache needs.
type Loader interface {
	// LoadLevel fetches the durable level record; found is false when the
	// owner has no record in the group.
	LoadLevel(ctx context.Context, owner sharedtypes.OwnerID, group sharedtypes.GroupName) (level sharedtypes.Level, found bool, err error)

	// SaveLevel upserts the durable level record.
	SaveLevel(ctx context.Context, owner sharedtypes.OwnerID, group sharedtypes.GroupName, level sharedtypes.Level) error
}

type key struct {
	owner sharedtypes.OwnerID
	group sharedtypes.GroupName
}

// Cache is safe for concurrent use. The store serializes per-entry access
// internally; a lost race between two lazy loads of the same key is benign
// because both load the same durable value.
type Cache struct {
	store  *gocache.Cache
	loader Loader
	logger *slog.Logger

	mu    sync.Mutex
	dirty map[key]sharedtypes.Level
}

func New(loader Loader, logger *slog.Logger) *Cache {
	return &Cache{
		store:  gocache.New(gocache.NoExpiration, 0),
		loader: loader,
		logger: logger,
		dirty:  make(map[key]sharedtypes.Level),
	}
}

func storeKey(owner sharedtypes.OwnerID, group sharedtypes.GroupName) string {
	return owner.String() + "|" + string(group)
}

// Get returns the cached level, loading from the durable store on first
// access. A missing record is 0. Get never triggers a recalculation. A load
// failure is returned alongside the zero default; callers decide whether to
// surface it.
func (c *Cache) Get(ctx context.Context, owner sharedtypes.OwnerID, group sharedtypes.GroupName) (sharedtypes.Level, error) {
	k := storeKey(owner, group)
	if v, ok := c.store.Get(k); ok {
		return v.(sharedtypes.Level), nil
	}

	level, found, err := c.loader.LoadLevel(ctx, owner, group)
	if err != nil {
		return 0, err
	}
	if !found {
		level = 0
	}
	c.store.Set(k, level, gocache.NoExpiration)
	return level, nil
}

// Put overwrites the cached value and writes through to the durable store. A
// failed write is logged and queued for Flush; in-memory state stays
// authoritative and the caller is never blocked on persistence.
func (c *Cache) Put(ctx context.Context, owner sharedtypes.OwnerID, group sharedtypes.GroupName, level sharedtypes.Level) {
	c.store.Set(storeKey(owner, group), level, gocache.NoExpiration)

	if err := c.loader.SaveLevel(ctx, owner, group, level); err != nil {
		c.logger.Warn("level record flush failed, queued for retry",
			slog.String("owner_id", owner.String()),
			slog.String("group", string(group)),
			slog.Int64("level", int64(level)),
			slog.Any("error", err),
		)
		c.mu.Lock()
		c.dirty[key{owner: owner, group: group}] = level
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	delete(c.dirty, key{owner: owner, group: group})
	c.mu.Unlock()
}

// Flush retries every dirty record. Entries that fail again stay queued.
func (c *Cache) Flush(ctx context.Context) {
	c.mu.Lock()
	pending := make(map[key]sharedtypes.Level, len(c.dirty))
	for k, v := range c.dirty {
		pending[k] = v
	}
	c.mu.Unlock()

	for k, level := range pending {
		if err := c.loader.SaveLevel(ctx, k.owner, k.group, level); err != nil {
			c.logger.Warn("level record flush retry failed",
				slog.String("owner_id", k.owner.String()),
				slog.String("group", string(k.group)),
				slog.Any("error", err),
			)
			continue
		}
		c.mu.Lock()
		// Only clear if no newer value was queued meanwhile.
		if current, ok := c.dirty[k]; ok && current == level {
			delete(c.dirty, k)
		}
		c.mu.Unlock()
	}
}

// Evict drops the in-memory entries for every group the owner is cached in.
// Durable records are untouched; dirty entries stay queued so a pending write
// is not lost with the eviction.
func (c *Cache) Evict(owner sharedtypes.OwnerID) int {
	prefix := owner.String() + "|"
	evicted := 0
	for k := range c.store.Items() {
		if strings.HasPrefix(k, prefix) {
			c.store.Delete(k)
			evicted++
		}
	}
	return evicted
}
