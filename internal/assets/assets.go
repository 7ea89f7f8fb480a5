// Package assets resolves runtime assets across several mounted GXPAK archives.
package assets

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mynameisGaku/GXLib-sub003/pkg/formats"
	"github.com/mynameisGaku/GXLib-sub003/pkg/gxpak"
)

// Options configures a Manager.
type Options struct {
	// CacheBytes bounds the decompressed payload cache. Zero disables caching.
	CacheBytes int
	// Logger receives mount and load events. Nil disables logging.
	Logger *zap.Logger
}

type mount struct {
	name    string
	archive *gxpak.Archive
}

// Manager handles asset loading from GXPAK archives.
// Archives are searched in reverse mount order (last mounted = highest priority).
type Manager struct {
	mounts []mount
	cache  *Cache
	log    *zap.Logger
	mu     sync.RWMutex
}

// NewManager creates a new asset manager.
func NewManager(opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{log: log}
	if opts.CacheBytes > 0 {
		m.cache = NewCache(opts.CacheBytes)
	}
	return m
}

// Mount opens the archive at path and adds it with the highest priority.
func (m *Manager) Mount(path string) error {
	archive, err := gxpak.Open(path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", path, err)
	}
	m.MountArchive(path, archive)
	return nil
}

// MountArchive adds an already opened archive with the highest priority.
// The manager closes it on Close.
func (m *Manager) MountArchive(name string, archive *gxpak.Archive) {
	m.mu.Lock()
	m.mounts = append(m.mounts, mount{name: name, archive: archive})
	m.mu.Unlock()

	// A new mount may shadow cached payloads.
	m.cache.Clear()

	m.log.Debug("mounted archive",
		zap.String("archive", name),
		zap.Uint32("entries", archive.Header().EntryCount))
}

// Mounts returns the mounted archive names, lowest priority first.
func (m *Manager) Mounts() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, len(m.mounts))
	for i, mt := range m.mounts {
		names[i] = mt.name
	}
	return names
}

// Resolve reports which mounted archive provides path and its entry.
func (m *Manager) Resolve(path string) (string, gxpak.Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.mounts) - 1; i >= 0; i-- {
		if e, ok := m.mounts[i].archive.Entry(path); ok {
			return m.mounts[i].name, e, true
		}
	}
	return "", gxpak.Entry{}, false
}

// Contains reports whether any mounted archive holds path.
func (m *Manager) Contains(path string) bool {
	_, _, ok := m.Resolve(path)
	return ok
}

// Load returns the decompressed payload of path from the highest-priority
// archive that holds it. The returned slice is owned by the caller.
func (m *Manager) Load(path string) ([]byte, error) {
	key, err := gxpak.NormalizePath(path)
	if err != nil {
		return nil, err
	}

	if data, ok := m.cache.Get(key); ok {
		return data, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.mounts) - 1; i >= 0; i-- {
		mt := m.mounts[i]
		e, ok := mt.archive.Entry(key)
		if !ok {
			continue
		}
		data, err := mt.archive.ReadEntry(e)
		if err != nil {
			return nil, fmt.Errorf("reading %s from %s: %w", key, mt.name, err)
		}
		m.log.Debug("loaded asset",
			zap.String("path", key),
			zap.String("archive", mt.name),
			zap.Int("size", len(data)))
		m.cache.Set(key, data)
		return data, nil
	}

	return nil, fmt.Errorf("%w: %s", gxpak.ErrEntryNotFound, key)
}

// LoadModel loads and parses a GXMD asset.
func (m *Manager) LoadModel(path string) (*formats.Model, error) {
	data, err := m.Load(path)
	if err != nil {
		return nil, err
	}
	model, err := formats.ParseGXMD(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return model, nil
}

// LoadAnimation loads and parses a GXAN asset.
func (m *Manager) LoadAnimation(path string) (*formats.Animation, error) {
	data, err := m.Load(path)
	if err != nil {
		return nil, err
	}
	anim, err := formats.ParseGXAN(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return anim, nil
}

// List returns every resolvable path across all mounts, sorted.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	var paths []string
	for _, mt := range m.mounts {
		for _, p := range mt.archive.List() {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				paths = append(paths, p)
			}
		}
	}
	sort.Strings(paths)
	return paths
}

// Close closes all archives.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	for _, mt := range m.mounts {
		err = multierr.Append(err, mt.archive.Close())
	}
	m.mounts = nil
	m.cache.Clear()
	return err
}

// Cache is a size-bounded in-memory cache of decompressed payloads.
// Entries are evicted oldest first. Get returns a copy, so callers may
// modify what they receive. A nil *Cache is a valid, disabled cache.
type Cache struct {
	data  map[string][]byte
	order []string
	size  int
	limit int
	mu    sync.Mutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a cache holding at most limit payload bytes.
func NewCache(limit int) *Cache {
	return &Cache{
		data:  make(map[string][]byte),
		limit: limit,
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	return append([]byte(nil), data...), true
}

// Set stores a copy of data. Payloads larger than the limit are not cached.
func (c *Cache) Set(key string, data []byte) {
	if c == nil || len(data) > c.limit {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.data[key]; ok {
		c.size -= len(old)
		c.remove(key)
	}
	for c.size+len(data) > c.limit && len(c.order) > 0 {
		oldest := c.order[0]
		c.size -= len(c.data[oldest])
		delete(c.data, oldest)
		c.order = c.order[1:]
	}
	c.data[key] = append([]byte(nil), data...)
	c.order = append(c.order, key)
	c.size += len(data)
}

func (c *Cache) remove(key string) {
	delete(c.data, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// Clear clears the cache.
func (c *Cache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.order = nil
	c.size = 0
	c.hits = 0
	c.misses = 0
}

// Len returns the number of cached entries and their total size in bytes.
func (c *Cache) Len() (entries, bytes int) {
	if c == nil {
		return 0, 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data), c.size
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	if c == nil {
		return 0, 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
