package source

import (
	"container/list"
	"context"
	"strings"
	"sync"

	"github.com/hyperjump/hikari/internal/models"
)

// CachedFieldReader is an LRU cache of stored field instances keyed by document and field.
// Cached slices are shared between callers and must not be modified.
type CachedFieldReader struct {
	reader   FieldReader
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key    string
	fields []models.StoredField
}

// NewCachedFieldReader wraps reader with a cache holding up to capacity entries.
func NewCachedFieldReader(reader FieldReader, capacity int) *CachedFieldReader {
	return &CachedFieldReader{
		reader:   reader,
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

func cacheKey(docID, field string) string {
	return docID + "\x00" + field
}

// StoredFields returns cached instances or loads and caches them.
// Errors are not cached.
func (c *CachedFieldReader) StoredFields(ctx context.Context, docID, field string) ([]models.StoredField, error) {
	key := cacheKey(docID, field)
	if fields, ok := c.get(key); ok {
		return fields, nil
	}
	fields, err := c.reader.StoredFields(ctx, docID, field)
	if err != nil {
		return nil, err
	}
	c.set(key, fields)
	return fields, nil
}

func (c *CachedFieldReader) get(key string) ([]models.StoredField, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).fields, true
	}
	return nil, false
}

func (c *CachedFieldReader) set(key string, fields []models.StoredField) {
	if c.capacity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).fields = fields
		return
	}
	elem := c.lru.PushFront(&cacheEntry{key: key, fields: fields})
	c.cache[key] = elem

	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Invalidate drops every cached field of docID.
func (c *CachedFieldReader) Invalidate(docID string) {
	prefix := docID + "\x00"
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, elem := range c.cache {
		if strings.HasPrefix(key, prefix) {
			c.lru.Remove(elem)
			delete(c.cache, key)
		}
	}
}

// Len returns the number of cached entries.
func (c *CachedFieldReader) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
