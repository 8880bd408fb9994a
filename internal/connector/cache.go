package connector

import (
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Key identifies a config. Two configs with the same key talk to the same
// source with the same credentials and limits.
func (c ConnectorConfig) Key() string {
	var b strings.Builder
	for _, s := range []string{c.Provider, c.Endpoint, c.Site, c.APIKey,
		strconv.Itoa(c.PageSize), strconv.FormatFloat(c.RateLimit, 'g', -1, 64)} {
		b.WriteString(strconv.Quote(s))
	}
	keys := make([]string, 0, len(c.Extra))
	for k := range c.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(strconv.Quote(k) + "=" + strconv.Quote(c.Extra[k]))
	}
	return b.String()
}

// Cache holds one value per distinct config, so state built from a config,
// such as a client and its rate limiter, is shared by every call made with
// it. The zero value is ready to use and safe for concurrent use.
type Cache[T any] struct {
	mu sync.Mutex
	m  map[string]T
}

// Get returns the value cached for cfg, calling build on first use. A
// failed build is not cached.
func (c *Cache[T]) Get(cfg ConnectorConfig, build func(ConnectorConfig) (T, error)) (T, error) {
	key := cfg.Key()
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.m[key]; ok {
		return v, nil
	}
	v, err := build(cfg)
	if err != nil {
		return v, err
	}
	if c.m == nil {
		c.m = make(map[string]T)
	}
	c.m[key] = v
	return v, nil
}
