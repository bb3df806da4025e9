package cache

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/minio/highwayhash"

	"tableforge/app/interfaces"
)

// Cache keeps analyzed record sets in memory so re-queueing an unchanged
// source file skips the full read-and-infer pass. Entries are keyed on the
// file identity (path, mtime, size) and evicted least-recently-used once the
// byte budget is exceeded.

// DefaultMaxSize is the default cache budget in bytes
const DefaultMaxSize = 100 * 1024 * 1024

// hashKey is the fixed HighwayHash key; cache keys only need to be stable
// within one process, not secret.
var hashKey = []byte("tableforge.recordset.cache.v1..0")

// Entry holds the analysis result for one source file
type Entry struct {
	RecordSets []*interfaces.SourceRecordSet
	ModTime    time.Time
	FileSize   int64
	Size       int64 // estimated memory footprint in bytes
}

// Cache is an LRU cache of analysis results
type Cache struct {
	mu          sync.Mutex
	storage     map[string]*Entry
	lru         *evictionList
	maxSize     int64
	currentSize int64

	hits   int64
	misses int64
}

// NewCache creates a cache with the given byte budget
func NewCache(maxSize int64) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Cache{
		storage: make(map[string]*Entry),
		lru:     newEvictionList(),
		maxSize: maxSize,
	}
}

// Key derives the cache key for a file from its path, modification time and
// size. Any change to the file changes the key, so stale entries are never
// returned, only orphaned and eventually evicted.
func Key(filePath string) (string, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", filePath, err)
	}

	buf := make([]byte, 0, len(filePath)+16)
	buf = append(buf, filePath...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(info.ModTime().UnixNano()))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(info.Size()))

	sum := highwayhash.Sum64(buf, hashKey)
	var out [8]byte
	binary.LittleEndian.PutUint64(out[:], sum)
	return hex.EncodeToString(out[:]), nil
}

// Get retrieves the record sets cached under key, marking the entry as
// recently used
func (c *Cache) Get(key string) ([]*interfaces.SourceRecordSet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.storage[key]
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	atomic.AddInt64(&c.hits, 1)
	c.lru.Touch(key)
	return entry.RecordSets, true
}

// Put stores the record sets for a file under key, evicting oldest entries
// until the budget holds. Entries larger than the whole budget are not
// cached.
func (c *Cache) Put(key string, recordSets []*interfaces.SourceRecordSet, modTime time.Time, fileSize int64) {
	entry := &Entry{
		RecordSets: recordSets,
		ModTime:    modTime,
		FileSize:   fileSize,
		Size:       estimateSize(recordSets),
	}
	if entry.Size > c.maxSize {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.storage[key]; ok {
		c.currentSize -= old.Size
	}
	c.storage[key] = entry
	c.currentSize += entry.Size
	c.lru.Touch(key)

	for c.currentSize > c.maxSize {
		oldest := c.lru.Oldest()
		if oldest == "" {
			break
		}
		if victim, ok := c.storage[oldest]; ok {
			c.currentSize -= victim.Size
			delete(c.storage, oldest)
		}
	}
}

// Invalidate drops the entry for key if present
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.storage[key]; ok {
		c.currentSize -= entry.Size
		delete(c.storage, key)
		c.lru.Remove(key)
	}
}

// Clear drops every entry
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.storage = make(map[string]*Entry)
	c.lru = newEvictionList()
	c.currentSize = 0
}

// Stats reports hit/miss counters and current usage
func (c *Cache) Stats() (hits, misses int64, entries int, bytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses), len(c.storage), c.currentSize
}

// estimateSize approximates the memory footprint of cached record sets.
// Cell payloads dominate, so strings are counted by length and everything
// else by a flat per-cell overhead.
func estimateSize(recordSets []*interfaces.SourceRecordSet) int64 {
	var size int64
	for _, rs := range recordSets {
		size += 256 // struct overhead and identifiers
		for _, col := range rs.Schema {
			size += int64(len(col.Name)) + 48
		}
		for _, row := range rs.Rows {
			size += 48
			for _, cell := range row.Cells {
				size += 24
				if s, ok := cell.(string); ok {
					size += int64(len(s))
				}
			}
		}
	}
	return size
}
