package cache

import (
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultSuggestTTL keeps autocomplete answers briefly so newly ingested
// developers show up soon.
const DefaultSuggestTTL = time.Minute

// SuggestCache memoizes autocomplete answers by normalized prefix and limit.
// A nil *SuggestCache never hits.
type SuggestCache struct {
	lru *expirable.LRU[string, []string]
}

// NewSuggestCache returns nil when size <= 0.
func NewSuggestCache(size int, ttl time.Duration) *SuggestCache {
	if size <= 0 {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultSuggestTTL
	}
	return &SuggestCache{lru: expirable.NewLRU[string, []string](size, nil, ttl)}
}

func suggestKey(prefix string, limit int) string {
	return strconv.Itoa(limit) + ":" + strings.ToLower(prefix)
}

func (c *SuggestCache) Get(prefix string, limit int) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(suggestKey(prefix, limit))
}

func (c *SuggestCache) Add(prefix string, limit int, names []string) {
	if c == nil {
		return
	}
	c.lru.Add(suggestKey(prefix, limit), names)
}

func (c *SuggestCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
