package chart

import (
	"sync"
	"time"

	"github.com/golang/freetype/truetype"

	"price-drop-tracker/internal/types"
)

type cacheItem struct {
	data       []byte
	expiration time.Time
}

// Cache keeps rendered charts for a short time, keyed by snapshot id
type Cache struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]*cacheItem
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl, now: time.Now, items: make(map[string]*cacheItem)}
}

func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, found := c.items[key]; found && c.now().Before(item.expiration) {
		return item.data, true
	}
	return nil, false
}

func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, item := range c.items {
		if !c.now().Before(item.expiration) {
			delete(c.items, k)
		}
	}
	c.items[key] = &cacheItem{data: data, expiration: c.now().Add(c.ttl)}
}

// Renderer renders status charts once per snapshot
type Renderer struct {
	font  *truetype.Font
	cache *Cache
}

func NewRenderer(font *truetype.Font, ttl time.Duration) *Renderer {
	return &Renderer{font: font, cache: NewCache(ttl)}
}

func (r *Renderer) Render(snapshot *types.Snapshot) ([]byte, error) {
	if snapshot != nil && snapshot.ID != "" {
		if data, found := r.cache.Get(snapshot.ID); found {
			return data, nil
		}
	}

	data, err := RenderStatus(snapshot, r.font)
	if err != nil {
		return nil, err
	}
	if snapshot.ID != "" {
		r.cache.Set(snapshot.ID, data)
	}
	return data, nil
}
