// Package voucher issues time-bound access vouchers for eligible payments
// and hands the issued code from the settlement flow to the waiting
// collection request.
package voucher

import (
	"context"
	"errors"
	"sync"
	"time"

	"momopay/internal/repositories/cache"
)

const pendingSentinel = "pending"

const (
	DefaultWait         = 60 * time.Second
	DefaultPollInterval = 2 * time.Second
	DefaultDeliveredTTL = 30 * time.Second
)

// HandoffConfig bounds the consumer wait and the producer write.
type HandoffConfig struct {
	Wait         time.Duration
	PollInterval time.Duration
	DeliveredTTL time.Duration
}

// Handoff is a reference-scoped single-slot channel in the shared store.
// The shared store carries the value across processes; the local signal
// only shortens the wait when producer and consumer share a process.
type Handoff struct {
	store cache.Store
	cfg   HandoffConfig

	mu      sync.Mutex
	waiters map[string]*waiter
}

type waiter struct {
	ch   chan struct{}
	refs int
}

func NewHandoff(store cache.Store, cfg HandoffConfig) *Handoff {
	if store == nil {
		panic("store is required")
	}
	if cfg.Wait <= 0 {
		cfg.Wait = DefaultWait
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.DeliveredTTL <= 0 {
		cfg.DeliveredTTL = DefaultDeliveredTTL
	}
	return &Handoff{
		store:   store,
		cfg:     cfg,
		waiters: make(map[string]*waiter),
	}
}

// SlotKey returns voucher:slot:<reference>.
func SlotKey(reference string) string {
	return cache.GenerateKey("voucher", "slot", reference)
}

// Open resets the slot before the provider is called so a stale code can
// never be read by this request.
func (h *Handoff) Open(ctx context.Context, reference string) error {
	return h.store.SetWithTTL(ctx, SlotKey(reference), pendingSentinel, h.cfg.Wait+h.cfg.DeliveredTTL)
}

// Deliver publishes code for reference.
func (h *Handoff) Deliver(ctx context.Context, reference, code string) error {
	if code == "" {
		return errors.New("voucher: empty code")
	}
	if err := h.store.SetWithTTL(ctx, SlotKey(reference), code, h.cfg.DeliveredTTL); err != nil {
		return err
	}

	h.mu.Lock()
	if w, ok := h.waiters[reference]; ok {
		close(w.ch)
		delete(h.waiters, reference)
	}
	h.mu.Unlock()
	return nil
}

// Wait polls the slot until a code arrives or the configured wait elapses.
// A timeout returns ok=false and no error; only ctx cancellation errors.
func (h *Handoff) Wait(ctx context.Context, reference string) (code string, ok bool, err error) {
	return h.WaitFor(ctx, reference, h.cfg.Wait)
}

func (h *Handoff) WaitFor(ctx context.Context, reference string, maxWait time.Duration) (string, bool, error) {
	w := h.subscribe(reference)
	defer h.unsubscribe(reference, w)
	signal := (<-chan struct{})(w.ch)

	timer := time.NewTimer(maxWait)
	defer timer.Stop()
	ticker := time.NewTicker(h.cfg.PollInterval)
	defer ticker.Stop()

	for {
		code, ok, err := h.take(ctx, reference)
		if err != nil {
			return "", false, err
		}
		if ok {
			return code, true, nil
		}

		select {
		case <-ctx.Done():
			return "", false, ctx.Err()
		case <-timer.C:
			return "", false, nil
		case <-ticker.C:
		case <-signal:
			signal = nil
		}
	}
}

// take reads the slot and resets it when it holds a code.
func (h *Handoff) take(ctx context.Context, reference string) (string, bool, error) {
	val, err := h.store.Get(ctx, SlotKey(reference))
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return "", false, nil
		}
		return "", false, err
	}
	if val == pendingSentinel || val == "" {
		return "", false, nil
	}
	if err := h.store.Delete(ctx, SlotKey(reference)); err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (h *Handoff) subscribe(reference string) *waiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	w, ok := h.waiters[reference]
	if !ok {
		w = &waiter{ch: make(chan struct{})}
		h.waiters[reference] = w
	}
	w.refs++
	return w
}

func (h *Handoff) unsubscribe(reference string, w *waiter) {
	h.mu.Lock()
	defer h.mu.Unlock()

	w.refs--
	if w.refs <= 0 && h.waiters[reference] == w {
		delete(h.waiters, reference)
	}
}
