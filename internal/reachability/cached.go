package reachability

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedChecker remembers answers from the wrapped checker for ttl
type CachedChecker struct {
	next  Checker
	cache *gocache.Cache
}

// NewCachedChecker wraps next with a ttl cache; ttl <= 0 disables caching
func NewCachedChecker(next Checker, ttl time.Duration) Checker {
	if ttl <= 0 {
		return next
	}
	return &CachedChecker{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (c *CachedChecker) IsReachable(ctx context.Context, rawURL string) bool {
	if v, ok := c.cache.Get(rawURL); ok {
		return v.(bool)
	}

	ok := c.next.IsReachable(ctx, rawURL)
	// a cancelled caller says nothing about the destination
	if ctx.Err() == nil {
		c.cache.SetDefault(rawURL, ok)
	}
	return ok
}
