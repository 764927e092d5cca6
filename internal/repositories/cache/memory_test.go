package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, s.SetWithTTL(ctx, "k", "v", 0))
	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	require.NoError(t, s.Delete(ctx, "k", "other"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := NewMemoryStore().WithClock(clock.Now)

	require.NoError(t, s.SetWithTTL(ctx, "token", "abc", 10*time.Second))
	clock.Advance(9 * time.Second)
	v, err := s.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "abc", v)

	clock.Advance(time.Second)
	_, err = s.Get(ctx, "token")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryStore_SetNX(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := NewMemoryStore().WithClock(clock.Now)

	ok, err := s.SetNX(ctx, "marker", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SetNX(ctx, "marker", "1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	clock.Advance(time.Minute)
	ok, err = s.SetNX(ctx, "marker", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired marker can be claimed again")
}

func TestMemoryStore_SetNXConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := s.SetNX(ctx, "race", "x", time.Minute); ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	type payload struct {
		Phone string `json:"phone"`
	}

	found, err := GetJSON(ctx, s, "p", &payload{})
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetJSON(ctx, s, "p", payload{Phone: "256700000001"}, time.Minute))

	var out payload
	found, err = GetJSON(ctx, s, "p", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "256700000001", out.Phone)

	require.NoError(t, s.SetWithTTL(ctx, "bad", "{not json", 0))
	_, err = GetJSON(ctx, s, "bad", &out)
	assert.Error(t, err)
}

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, "transaction:ref-1:phone", GenerateKey("transaction", "ref-1", "phone"))
}
