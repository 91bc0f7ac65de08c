package core

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// pageCache keeps recently fetched GET responses, a nil *pageCache is a
// valid cache that never hits.
type pageCache struct {
	lru *expirable.LRU[string, Page]
}

func newPageCache(size int, ttl time.Duration) *pageCache {
	if size <= 0 {
		return nil
	}
	return &pageCache{lru: expirable.NewLRU[string, Page](size, nil, ttl)}
}

func (c *pageCache) get(key string) (Page, bool) {
	if c == nil {
		return Page{}, false
	}
	return c.lru.Get(key)
}

func (c *pageCache) add(key string, page Page) {
	if c == nil {
		return
	}
	c.lru.Add(key, page)
}

func (c *pageCache) purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}
