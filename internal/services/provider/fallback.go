package provider

import (
	"context"
	"fmt"

	"momopay/internal/logger"

	"github.com/sirupsen/logrus"
)

// Fallback initiates a collection on the primary gateway and, when that
// fails, exactly once on the secondary.
type Fallback struct {
	primary   Gateway
	secondary Gateway
}

func NewFallback(primary, secondary Gateway) *Fallback {
	if primary == nil {
		panic("primary gateway is required")
	}
	return &Fallback{primary: primary, secondary: secondary}
}

// Collect returns the first successful initiation. When both gateways fail
// the returned error carries both causes.
func (f *Fallback) Collect(ctx context.Context, req CollectRequest) (*Result, error) {
	res, err := f.primary.Collect(ctx, req)
	if err == nil {
		return res, nil
	}
	if f.secondary == nil || ctx.Err() != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"reference": req.Reference,
		"primary":   f.primary.Name(),
		"secondary": f.secondary.Name(),
		"error":     err.Error(),
	}).Warn("primary provider failed, falling back")

	res, fallbackErr := f.secondary.Collect(ctx, req)
	if fallbackErr != nil {
		return nil, fmt.Errorf("%s: %w; %s: %w", f.primary.Name(), err, f.secondary.Name(), fallbackErr)
	}
	return res, nil
}
