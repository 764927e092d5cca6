package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGateway struct {
	name  string
	err   error
	calls int
}

func (s *stubGateway) Name() string { return s.name }

func (s *stubGateway) Collect(ctx context.Context, req CollectRequest) (*Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &Result{Provider: s.name, Reference: req.Reference, Status: StatusPending}, nil
}

func (s *stubGateway) Disburse(ctx context.Context, req DisburseRequest) (*Result, error) {
	return nil, errors.New("not supported")
}

func (s *stubGateway) CheckStatus(ctx context.Context, id string) (*Result, error) {
	return &Result{Provider: s.name, Reference: id, Status: StatusPending}, nil
}

func collectReq() CollectRequest {
	return CollectRequest{Phone: "256700000001", Amount: decimal.NewFromInt(1000), Reference: "ref"}
}

func TestFallback_PrimarySucceeds(t *testing.T) {
	primary := &stubGateway{name: "airtel"}
	secondary := &stubGateway{name: "mtn"}

	res, err := NewFallback(primary, secondary).Collect(context.Background(), collectReq())
	require.NoError(t, err)
	assert.Equal(t, "airtel", res.Provider)
	assert.Zero(t, secondary.calls)
}

func TestFallback_SecondaryTriedOnce(t *testing.T) {
	primary := &stubGateway{name: "airtel", err: &ProviderError{Provider: "airtel", Operation: "collect", StatusCode: 500}}
	secondary := &stubGateway{name: "mtn"}

	res, err := NewFallback(primary, secondary).Collect(context.Background(), collectReq())
	require.NoError(t, err)
	assert.Equal(t, "mtn", res.Provider)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestFallback_BothFail(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")
	primary := &stubGateway{name: "airtel", err: first}
	secondary := &stubGateway{name: "mtn", err: second}

	_, err := NewFallback(primary, secondary).Collect(context.Background(), collectReq())
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
	assert.Equal(t, 1, secondary.calls)
}

func TestFallback_CancelledContextSkipsSecondary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	primary := &stubGateway{name: "airtel", err: context.Canceled}
	secondary := &stubGateway{name: "mtn"}

	_, err := NewFallback(primary, secondary).Collect(ctx, collectReq())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, secondary.calls)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(&stubGateway{name: "airtel"}, &stubGateway{name: "iotec"})

	g, err := r.Get("AIRTEL")
	require.NoError(t, err)
	assert.Equal(t, "airtel", g.Name())

	_, err = r.Get("mpesa")
	assert.ErrorIs(t, err, ErrUnknownProvider)
	assert.Equal(t, []string{"airtel", "iotec"}, r.Names())
}
