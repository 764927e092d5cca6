package provider

import (
	"context"
	"errors"
	"sync"
	"time"

	"momopay/internal/logger"
	"momopay/internal/repositories/cache"

	"golang.org/x/sync/singleflight"
)

// TokenSource exchanges credentials for a bearer token.
type TokenSource func(ctx context.Context) (value string, expiresIn time.Duration, err error)

type cachedToken struct {
	Value string `json:"value"`
	// UsableUntil is the provider expiry minus the safety margin.
	UsableUntil time.Time `json:"usable_until"`
}

// TokenCache serves bearer tokens from a process-local tier, then the
// shared store, then a fresh exchange. Concurrent misses share one fetch.
type TokenCache struct {
	key    string
	store  cache.Store
	fetch  TokenSource
	margin time.Duration
	now    func() time.Time

	mu    sync.Mutex
	local cachedToken
	group singleflight.Group
}

func NewTokenCache(key string, store cache.Store, margin time.Duration, fetch TokenSource) *TokenCache {
	if fetch == nil {
		panic("token source is required")
	}
	return &TokenCache{
		key:    key,
		store:  store,
		fetch:  fetch,
		margin: margin,
		now:    time.Now,
	}
}

// Token returns a bearer token that stays valid for at least the margin.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	if v, ok := c.fromLocal(); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(c.key, func() (interface{}, error) {
		if v, ok := c.fromLocal(); ok {
			return v, nil
		}
		if tok, ok := c.fromShared(ctx); ok {
			c.setLocal(tok)
			return tok.Value, nil
		}
		return c.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the token from both tiers, e.g. after a 401.
func (c *TokenCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	c.local = cachedToken{}
	c.mu.Unlock()
	if c.store == nil {
		return nil
	}
	return c.store.Delete(ctx, c.key)
}

func (c *TokenCache) refresh(ctx context.Context) (string, error) {
	value, expiresIn, err := c.fetch(ctx)
	if err != nil {
		return "", err
	}
	if value == "" {
		return "", errors.New("token exchange returned an empty token")
	}

	ttl := expiresIn - c.margin
	if ttl <= 0 {
		// Too short-lived to share; use it once.
		return value, nil
	}

	tok := cachedToken{Value: value, UsableUntil: c.now().Add(ttl)}
	c.setLocal(tok)
	if c.store != nil {
		if err := cache.SetJSON(ctx, c.store, c.key, tok, ttl); err != nil {
			logger.Warnf("failed to share token %s: %v", c.key, err)
		}
	}
	return value, nil
}

func (c *TokenCache) fromLocal() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.local.Value != "" && c.now().Before(c.local.UsableUntil) {
		return c.local.Value, true
	}
	return "", false
}

func (c *TokenCache) fromShared(ctx context.Context) (cachedToken, bool) {
	if c.store == nil {
		return cachedToken{}, false
	}
	var tok cachedToken
	found, err := cache.GetJSON(ctx, c.store, c.key, &tok)
	if err != nil {
		logger.Warnf("shared token lookup %s failed: %v", c.key, err)
		return cachedToken{}, false
	}
	if !found || tok.Value == "" || !c.now().Before(tok.UsableUntil) {
		return cachedToken{}, false
	}
	return tok, true
}

func (c *TokenCache) setLocal(tok cachedToken) {
	c.mu.Lock()
	c.local = tok
	c.mu.Unlock()
}
