// Package cache keeps a bounded, newest-first cache of deleted messages per guild.
package cache

import (
	"context"
	"errors"
	"modhelper/model"
	"modhelper/snapshot"
	"slices"
	"sync"
)

// ErrNotFound is returned when a restore targets an entry that is no longer cached.
var ErrNotFound = errors.New("cached message not found")

// CapacityFunc adapts a plain function to model.SettingsProvider.
type CapacityFunc func(guildID string) int

func (f CapacityFunc) CacheCapacity(guildID string) int { return f(guildID) }

// ReleaseFunc releases attachment files owned by an entry leaving the cache.
type ReleaseFunc func(files []string)

// ReplayFunc posts a cached entry back somewhere.
type ReplayFunc func(ctx context.Context, msg *model.CachedMessage) error

// Filter selects entries by author and channel. Empty lists match everything.
type Filter struct {
	Authors  []string
	Channels []string
}

func (f Filter) match(m *model.CachedMessage) bool {
	if len(f.Authors) > 0 && !slices.Contains(f.Authors, m.AuthorID) {
		return false
	}
	if len(f.Channels) > 0 && !slices.Contains(f.Channels, m.ChannelID) {
		return false
	}
	return true
}

type guildCache struct {
	mu      sync.Mutex
	entries []*model.CachedMessage
	// entries taken out by a restore whose replay has not finished yet
	restoring []*model.CachedMessage
}

// DeleteCache is the per-guild cache of deleted messages.
type DeleteCache struct {
	settings model.SettingsProvider
	release  ReleaseFunc

	mu     sync.Mutex
	guilds map[string]*guildCache
}

// New creates an empty cache.
func New(settings model.SettingsProvider, release ReleaseFunc) *DeleteCache {
	if release == nil {
		release = func([]string) {}
	}
	return &DeleteCache{
		settings: settings,
		release:  release,
		guilds:   make(map[string]*guildCache),
	}
}

func (c *DeleteCache) capacity(guildID string) int {
	return c.settings.CacheCapacity(guildID)
}

func (c *DeleteCache) guild(guildID string) *guildCache {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.guilds[guildID]
	if !ok {
		g = &guildCache{}
		c.guilds[guildID] = g
	}
	return g
}

// accepts must be called with g.mu held.
func (g *guildCache) accepts(capacity int, ts int64) bool {
	if capacity <= 0 {
		return false
	}
	if len(g.entries) < capacity {
		return true
	}
	return len(g.entries) > 0 && ts > g.entries[len(g.entries)-1].Time
}

// Accepts reports whether a message created at ts would be cached right now. Callers use it
// to avoid downloading attachments of a message that will be rejected.
func (c *DeleteCache) Accepts(guildID string, ts int64) bool {
	g := c.guild(guildID)
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.accepts(c.capacity(guildID), ts)
}

// Insert caches msg, taking ownership of its files. It returns false when the message is not
// cached, in which case its files have already been released.
func (c *DeleteCache) Insert(guildID string, msg *model.CachedMessage) bool {
	capacity := c.capacity(guildID)
	g := c.guild(guildID)

	g.mu.Lock()
	if !g.accepts(capacity, msg.Time) {
		g.mu.Unlock()
		c.release(msg.Files)
		return false
	}
	g.entries = append(g.entries, msg)
	sortNewestFirst(g.entries)
	evicted := g.evictLocked(capacity)
	g.mu.Unlock()

	c.releaseAll(evicted)
	return true
}

func sortNewestFirst(entries []*model.CachedMessage) {
	slices.SortStableFunc(entries, func(a, b *model.CachedMessage) int {
		switch {
		case a.Time > b.Time:
			return -1
		case a.Time < b.Time:
			return 1
		}
		return 0
	})
}

// evictLocked drops entries from the tail until the cache fits capacity.
func (g *guildCache) evictLocked(capacity int) []*model.CachedMessage {
	if capacity < 0 {
		capacity = 0
	}
	if len(g.entries) <= capacity {
		return nil
	}
	evicted := slices.Clone(g.entries[capacity:])
	clear(g.entries[capacity:])
	g.entries = g.entries[:capacity]
	return evicted
}

func (c *DeleteCache) releaseAll(entries []*model.CachedMessage) {
	for _, e := range entries {
		c.release(e.Files)
	}
}

// EvictIfOverCapacity trims a guild's cache to its current capacity and returns how many
// entries were evicted.
func (c *DeleteCache) EvictIfOverCapacity(guildID string) int {
	capacity := c.capacity(guildID)
	g := c.guild(guildID)
	g.mu.Lock()
	evicted := g.evictLocked(capacity)
	g.mu.Unlock()
	c.releaseAll(evicted)
	return len(evicted)
}

// List returns the guild's entries, newest first.
func (c *DeleteCache) List(guildID string) []*model.CachedMessage {
	g := c.guild(guildID)
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.entries)
}

// Len returns the number of entries cached for a guild.
func (c *DeleteCache) Len(guildID string) int {
	g := c.guild(guildID)
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// Select skips the first skip matches and returns up to take of the following ones, in cache
// order.
func (c *DeleteCache) Select(guildID string, f Filter, skip, take int) []*model.CachedMessage {
	g := c.guild(guildID)
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []*model.CachedMessage
	count := 0
	for _, m := range g.entries {
		if len(out) >= take {
			break
		}
		if !f.match(m) {
			continue
		}
		count++
		if count > skip {
			out = append(out, m)
		}
	}
	return out
}

// Restore replays entry and, once the replay succeeded, releases its files. The entry leaves
// the cache before the replay starts so that concurrent restores of the same entry replay it
// only once; the losers get ErrNotFound. A failed replay puts the entry back.
func (c *DeleteCache) Restore(ctx context.Context, guildID string, entry *model.CachedMessage, replay ReplayFunc) error {
	g := c.guild(guildID)
	g.mu.Lock()
	i := slices.Index(g.entries, entry)
	if i < 0 {
		g.mu.Unlock()
		return ErrNotFound
	}
	g.entries = slices.Delete(g.entries, i, i+1)
	g.restoring = append(g.restoring, entry)
	g.mu.Unlock()

	err := replay(ctx, entry)

	capacity := c.capacity(guildID)
	g.mu.Lock()
	if j := slices.Index(g.restoring, entry); j >= 0 {
		g.restoring = slices.Delete(g.restoring, j, j+1)
	}
	var evicted []*model.CachedMessage
	if err != nil {
		g.entries = append(g.entries, entry)
		sortNewestFirst(g.entries)
		evicted = g.evictLocked(capacity)
	}
	g.mu.Unlock()

	if err != nil {
		c.releaseAll(evicted)
		return err
	}
	c.release(entry.Files)
	return nil
}

// Snapshot copies every guild's entries for persistence.
func (c *DeleteCache) Snapshot() snapshot.Collection[model.CachedMessage] {
	c.mu.Lock()
	guilds := make(map[string]*guildCache, len(c.guilds))
	for id, g := range c.guilds {
		guilds[id] = g
	}
	c.mu.Unlock()

	out := make(snapshot.Collection[model.CachedMessage], len(guilds))
	for id, g := range guilds {
		g.mu.Lock()
		records := make([]model.CachedMessage, 0, len(g.entries))
		for _, e := range g.entries {
			records = append(records, *e)
		}
		g.mu.Unlock()
		out[id] = records
	}
	return out
}

// Load replaces the cache content with a persisted collection. Entries are re-sorted so a
// hand-edited snapshot still honours the newest-first order, and trimmed to the guild's current
// capacity.
func (c *DeleteCache) Load(coll snapshot.Collection[model.CachedMessage]) {
	for guildID, records := range coll {
		entries := make([]*model.CachedMessage, 0, len(records))
		for i := range records {
			m := records[i]
			entries = append(entries, &m)
		}
		sortNewestFirst(entries)

		capacity := c.capacity(guildID)
		g := c.guild(guildID)
		g.mu.Lock()
		g.entries = entries
		evicted := g.evictLocked(capacity)
		g.mu.Unlock()
		c.releaseAll(evicted)
	}
}

// Files returns every attachment path referenced by the cache, including entries that are
// being restored right now.
func (c *DeleteCache) Files() []string {
	c.mu.Lock()
	guilds := make([]*guildCache, 0, len(c.guilds))
	for _, g := range c.guilds {
		guilds = append(guilds, g)
	}
	c.mu.Unlock()

	var files []string
	for _, g := range guilds {
		g.mu.Lock()
		for _, e := range g.entries {
			files = append(files, e.Files...)
		}
		for _, e := range g.restoring {
			files = append(files, e.Files...)
		}
		g.mu.Unlock()
	}
	return files
}
