// Package board maintains the per-group leaderboards: an unbounded backing
// list of every owner pushed through Update, and a bounded sorted top-ten
// snapshot view over it.
package board

import (
	"sort"
	"sync"

	sharedtypes "github.com/skybound-club/isle-level/app/shared/types"
)

// Size is the fixed bound of every snapshot.
const Size = 10

// group holds one territory group's entries, kept sorted by level descending.
// Ties keep the earliest-inserted entry: new owners are appended and every
// re-sort is stable, so equal levels never swap relative order. At this scale
// a full re-sort per update is the simplest correct strategy.
type group struct {
	entries []sharedtypes.BoardEntry
}

func (g *group) update(owner sharedtypes.OwnerID, level sharedtypes.Level) {
	replaced := false
	for i := range g.entries {
		if g.entries[i].OwnerID == owner {
			g.entries[i].Level = level
			replaced = true
			break
		}
	}
	if !replaced {
		g.entries = append(g.entries, sharedtypes.BoardEntry{OwnerID: owner, Level: level})
	}
	sort.SliceStable(g.entries, func(i, j int) bool {
		return g.entries[i].Level > g.entries[j].Level
	})
}

func (g *group) remove(owner sharedtypes.OwnerID) bool {
	for i := range g.entries {
		if g.entries[i].OwnerID == owner {
			g.entries = append(g.entries[:i], g.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Board holds the leaderboards for all groups. Writes take the exclusive
// lock; snapshots copy under the read lock so readers never observe a
// mid-update view.
type Board struct {
	mu     sync.RWMutex
	groups map[sharedtypes.GroupName]*group
}

func New() *Board {
	return &Board{groups: make(map[sharedtypes.GroupName]*group)}
}

// Update inserts or updates the owner's entry in the group's backing list.
func (b *Board) Update(groupName sharedtypes.GroupName, owner sharedtypes.OwnerID, level sharedtypes.Level) {
	b.mu.Lock()
	defer b.mu.Unlock()
	g, ok := b.groups[groupName]
	if !ok {
		g = &group{}
		b.groups[groupName] = g
	}
	g.update(owner, level)
}

// Remove deletes the owner's entry if present. Only entries previously pushed
// through Update can take the freed snapshot slot; nothing is backfilled from
// the durable dataset. After a restart the backing list is seeded from the
// persisted top-ten snapshot alone, so owners outside it stay absent until
// their next Update.
func (b *Board) Remove(groupName sharedtypes.GroupName, owner sharedtypes.OwnerID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	g, ok := b.groups[groupName]
	if !ok {
		return false
	}
	return g.remove(owner)
}

// Snapshot returns a copy of the group's top entries, at most Size of them,
// level descending. Empty for an unknown group.
func (b *Board) Snapshot(groupName sharedtypes.GroupName) []sharedtypes.BoardEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	g, ok := b.groups[groupName]
	if !ok {
		return nil
	}
	n := len(g.entries)
	if n > Size {
		n = Size
	}
	out := make([]sharedtypes.BoardEntry, n)
	copy(out, g.entries[:n])
	return out
}

// Load seeds a group from a persisted snapshot, replacing any current state.
func (b *Board) Load(groupName sharedtypes.GroupName, entries []sharedtypes.BoardEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	g := &group{}
	for _, e := range entries {
		g.update(e.OwnerID, e.Level)
	}
	b.groups[groupName] = g
}

// Groups lists the groups currently tracked.
func (b *Board) Groups() []sharedtypes.GroupName {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]sharedtypes.GroupName, 0, len(b.groups))
	for g := range b.groups {
		out = append(out, g)
	}
	return out
}
