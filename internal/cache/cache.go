// Package cache keeps settled graph layouts on disk so that reopening the
// same dataset starts from the previous node positions instead of a fresh
// random seed.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-vl/orbit-frontend-sub000/pkg/graph"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/layout"
)

const indexVersion = "1"

// Cache stores layouts keyed by a fingerprint of the graph and the layout
// parameters.
type Cache struct {
	mu       sync.RWMutex
	dir      string
	index    *Index
	max      int
	maxAge   time.Duration
	strategy EvictionStrategy
	source   string
	stats    Stats
	logger   *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

// Index tracks all cached entries
type Index struct {
	Version string            `json:"version"`
	Entries map[string]*Entry `json:"entries"`
	Updated time.Time         `json:"updated"`
}

// Entry describes one cached layout
type Entry struct {
	Key         string    `json:"key"`
	Path        string    `json:"path"`
	Nodes       int       `json:"nodes"`
	Source      string    `json:"source,omitempty"`
	Created     time.Time `json:"created"`
	LastAccess  time.Time `json:"last_access"`
	AccessCount int       `json:"access_count"`
}

// Layout is the stored payload of an entry.
type Layout struct {
	Positions map[string][2]float64 `json:"positions"`
}

// Stats tracks cache performance
type Stats struct {
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	Evictions  int64 `json:"evictions"`
	EntryCount int   `json:"entry_count"`
}

// EvictionStrategy defines how entries are removed once the cache is full
type EvictionStrategy int

const (
	// LRU removes least recently used entries
	LRU EvictionStrategy = iota
	// LFU removes least frequently used entries
	LFU
	// FIFO removes oldest entries first
	FIFO
)

// Config holds cache configuration
type Config struct {
	Dir        string           // Cache directory (default: $HOME/.cache/orbit)
	MaxEntries int              // Maximum number of layouts kept (default: 32)
	MaxAge     time.Duration    // Maximum age of an entry (default: 30 days)
	Strategy   EvictionStrategy // Eviction strategy (default: LRU)
	// Source tags new entries, typically with the dataset path
	Source string
	Logger *zap.Logger
}

// DefaultConfig returns the default cache configuration
func DefaultConfig() Config {
	homeDir, _ := os.UserHomeDir()
	return Config{
		Dir:        filepath.Join(homeDir, ".cache", "orbit"),
		MaxEntries: 32,
		MaxAge:     30 * 24 * time.Hour,
		Strategy:   LRU,
	}
}

// New opens the cache in config.Dir, creating it if needed. A missing or
// corrupt index starts an empty cache.
func New(config Config) (*Cache, error) {
	defaults := DefaultConfig()
	if config.Dir == "" {
		config.Dir = defaults.Dir
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = defaults.MaxEntries
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Join(config.Dir, "layouts"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	c := &Cache{
		dir:      config.Dir,
		max:      config.MaxEntries,
		maxAge:   config.MaxAge,
		strategy: config.Strategy,
		source:   config.Source,
		logger:   config.Logger,
		stopCh:   make(chan struct{}),
		index:    newIndex(),
	}

	if err := c.loadIndex(); err != nil && !os.IsNotExist(err) {
		c.logger.Warn("layout cache index unreadable, starting fresh", zap.Error(err))
		c.index = newIndex()
	}
	c.stats.EntryCount = len(c.index.Entries)

	go c.cleanup()

	return c, nil
}

func newIndex() *Index {
	return &Index{
		Version: indexVersion,
		Entries: make(map[string]*Entry),
		Updated: time.Now(),
	}
}

// Key fingerprints a graph together with the parameters that shape its
// layout. Node order and link direction do not affect the key.
func Key(g *graph.Graph, p layout.Params) string {
	nodes := make([]string, 0, g.Len())
	for _, n := range g.Nodes() {
		nodes = append(nodes, fmt.Sprintf("%s/%d", n.ID, n.Tier))
	}
	sort.Strings(nodes)

	links := make([]string, 0, len(g.Links()))
	for _, l := range g.Links() {
		a, b := l.SourceID(), l.TargetID()
		if b < a {
			a, b = b, a
		}
		links = append(links, a+"|"+b)
	}
	sort.Strings(links)

	h := sha256.New()
	for _, n := range nodes {
		h.Write([]byte(n))
		h.Write([]byte{0})
	}
	h.Write([]byte{1})
	for _, l := range links {
		h.Write([]byte(l))
		h.Write([]byte{0})
	}
	shape, _ := json.Marshal(struct {
		Rings  graph.Rings
		Params layout.Params
	}{g.Rings(), p})
	h.Write(shape)
	return hex.EncodeToString(h.Sum(nil))
}

// Lookup returns the cached positions for g under p.
func (c *Cache) Lookup(g *graph.Graph, p layout.Params) (map[string][2]float64, bool) {
	l, ok := c.Get(Key(g, p))
	if !ok {
		return nil, false
	}
	return l.Positions, true
}

// Store saves the current positions for g under p.
func (c *Cache) Store(g *graph.Graph, p layout.Params, pos map[string][2]float64) error {
	return c.Put(Key(g, p), Layout{Positions: pos}, g.Len())
}

// Get retrieves a cached layout
func (c *Cache) Get(key string) (Layout, bool) {
	c.mu.RLock()
	entry, exists := c.index.Entries[key]
	c.mu.RUnlock()

	if !exists {
		c.recordMiss()
		return Layout{}, false
	}

	if c.isExpired(entry) {
		c.Delete(key)
		c.recordMiss()
		return Layout{}, false
	}

	data, err := os.ReadFile(entry.Path)
	if err != nil {
		c.Delete(key)
		c.recordMiss()
		return Layout{}, false
	}
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		c.logger.Warn("corrupt layout entry", zap.String("key", key), zap.Error(err))
		c.Delete(key)
		c.recordMiss()
		return Layout{}, false
	}

	c.mu.Lock()
	entry.LastAccess = time.Now()
	entry.AccessCount++
	c.stats.Hits++
	err = c.saveIndexNoLock()
	c.mu.Unlock()
	if err != nil {
		c.logger.Debug("save layout index", zap.Error(err))
	}

	return l, true
}

// Put stores a layout, evicting entries when the cache is full
func (c *Cache) Put(key string, l Layout, nodes int) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("failed to encode layout: %w", err)
	}

	path := filepath.Join(c.dir, "layouts", sanitizeKey(key)+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if old, ok := c.index.Entries[key]; ok {
		old.LastAccess = now
		old.Nodes = nodes
		return c.saveIndexNoLock()
	}
	c.evictLocked(1)
	c.index.Entries[key] = &Entry{
		Key:        key,
		Path:       path,
		Nodes:      nodes,
		Source:     c.source,
		Created:    now,
		LastAccess: now,
	}
	c.index.Updated = now
	c.stats.EntryCount = len(c.index.Entries)
	return c.saveIndexNoLock()
}

// Delete removes an entry from the cache
func (c *Cache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.index.Entries[key]
	if !ok {
		return nil
	}

	c.removeFile(entry.Path)
	delete(c.index.Entries, key)
	c.stats.EntryCount = len(c.index.Entries)
	c.index.Updated = time.Now()

	return c.saveIndexNoLock()
}

// InvalidateSource removes every entry tagged with source or a path under
// it, returning how many were removed.
func (c *Cache) InvalidateSource(source string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for key, entry := range c.index.Entries {
		if entry.Source != "" && (entry.Source == source || strings.HasPrefix(entry.Source, source)) {
			c.removeFile(entry.Path)
			delete(c.index.Entries, key)
			count++
		}
	}

	if count > 0 {
		c.stats.EntryCount = len(c.index.Entries)
		c.index.Updated = time.Now()
		if err := c.saveIndexNoLock(); err != nil {
			c.logger.Debug("save layout index", zap.Error(err))
		}
	}
	return count
}

// Clear removes all cached entries
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	layoutsDir := filepath.Join(c.dir, "layouts")
	if err := os.RemoveAll(layoutsDir); err != nil {
		return fmt.Errorf("failed to clear layouts: %w", err)
	}
	if err := os.MkdirAll(layoutsDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	c.index = newIndex()
	c.stats = Stats{}

	return c.saveIndexNoLock()
}

// GetStats returns cache statistics
func (c *Cache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// Close stops the cleanup goroutine and saves the index
func (c *Cache) Close() error {
	c.stopOnce.Do(func() { close(c.stopCh) })

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.saveIndexNoLock()
}

func (c *Cache) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(c.dir, "index.json"))
	if err != nil {
		return err
	}

	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return err
	}
	if index.Version != indexVersion {
		return fmt.Errorf("index version %q, want %q", index.Version, indexVersion)
	}
	if index.Entries == nil {
		index.Entries = make(map[string]*Entry)
	}
	c.index = &index
	return nil
}

// saveIndexNoLock saves the index without acquiring a lock.
// Caller must hold at least a read lock.
func (c *Cache) saveIndexNoLock() error {
	data, err := json.MarshalIndent(c.index, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, "index.json"), data, 0644)
}

func (c *Cache) isExpired(entry *Entry) bool {
	// If maxAge is 0 or negative, entries never expire
	if c.maxAge <= 0 {
		return false
	}
	return time.Since(entry.Created) > c.maxAge
}

// evictLocked makes room for n new entries. Caller holds the write lock.
func (c *Cache) evictLocked(n int) {
	for len(c.index.Entries)+n > c.max && len(c.index.Entries) > 0 {
		var evictKey string
		var evictEntry *Entry

		switch c.strategy {
		case LFU:
			for key, entry := range c.index.Entries {
				if evictEntry == nil || entry.AccessCount < evictEntry.AccessCount ||
					(entry.AccessCount == evictEntry.AccessCount && key < evictKey) {
					evictKey, evictEntry = key, entry
				}
			}
		case FIFO:
			for key, entry := range c.index.Entries {
				if evictEntry == nil || entry.Created.Before(evictEntry.Created) {
					evictKey, evictEntry = key, entry
				}
			}
		default:
			for key, entry := range c.index.Entries {
				if evictEntry == nil || entry.LastAccess.Before(evictEntry.LastAccess) {
					evictKey, evictEntry = key, entry
				}
			}
		}

		c.removeFile(evictEntry.Path)
		delete(c.index.Entries, evictKey)
		c.stats.Evictions++
	}
	c.stats.EntryCount = len(c.index.Entries)
}

func (c *Cache) cleanup() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			for key, entry := range c.index.Entries {
				if c.isExpired(entry) {
					c.removeFile(entry.Path)
					delete(c.index.Entries, key)
				}
			}
			c.stats.EntryCount = len(c.index.Entries)
			c.index.Updated = time.Now()
			if err := c.saveIndexNoLock(); err != nil {
				c.logger.Debug("save layout index", zap.Error(err))
			}
			c.mu.Unlock()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Cache) removeFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		c.logger.Warn("failed to remove cache file", zap.String("path", path), zap.Error(err))
	}
}

func (c *Cache) recordMiss() {
	c.mu.Lock()
	c.stats.Misses++
	c.mu.Unlock()
}

func sanitizeKey(key string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		" ", "_",
	)
	sanitized := replacer.Replace(key)
	if len(sanitized) > 100 {
		sanitized = sanitized[:100]
	}
	return sanitized
}
