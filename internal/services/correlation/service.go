// Package correlation remembers, per collection reference, which wallet a
// later settlement credits and who paid.
package correlation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"momopay/internal/repositories/cache"
)

// DefaultTTL bounds how long a collection can take to settle and still be credited.
const DefaultTTL = 24 * time.Hour

var ErrNotFound = errors.New("correlation not found")

// Correlation ties a collection reference to the phones involved.
type Correlation struct {
	// CreditPhone owns the wallet credited on settlement.
	CreditPhone string `json:"credit_phone"`
	// PayerPhone receives the voucher.
	PayerPhone string `json:"payer_phone"`
	Provider   string `json:"provider,omitempty"`
}

type Cache struct {
	store cache.Store
	ttl   time.Duration
}

func NewCache(store cache.Store, ttl time.Duration) *Cache {
	if store == nil {
		panic("store is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: store, ttl: ttl}
}

// Key returns transaction:<reference>:phone.
func Key(reference string) string {
	return cache.GenerateKey("transaction", reference, "phone")
}

// New builds a correlation; the payer is credited when no counterpart is given.
func New(payer, counterpart, provider string) Correlation {
	credit := counterpart
	if credit == "" {
		credit = payer
	}
	return Correlation{CreditPhone: credit, PayerPhone: payer, Provider: provider}
}

func (c *Cache) Put(ctx context.Context, reference string, corr Correlation) error {
	if reference == "" {
		return fmt.Errorf("correlation: empty reference")
	}
	return cache.SetJSON(ctx, c.store, Key(reference), corr, c.ttl)
}

func (c *Cache) Lookup(ctx context.Context, reference string) (*Correlation, error) {
	var corr Correlation
	found, err := cache.GetJSON(ctx, c.store, Key(reference), &corr)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return &corr, nil
}
