package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"momopay/internal/config"
	"momopay/internal/logger"
	"momopay/internal/repositories"
	"momopay/internal/repositories/cache"
	"momopay/internal/services/correlation"

	"github.com/shopspring/decimal"
)

// gateway holds what every provider implementation shares.
type gateway struct {
	cfg  config.ProviderConfig
	deps Deps
	http *httpClient
}

func newGateway(cfg config.ProviderConfig, deps Deps) gateway {
	deps = deps.withDefaults(cfg.Timeout)
	return gateway{
		cfg:  cfg,
		deps: deps,
		http: newHTTPClient(cfg.Name, cfg.BaseURL, deps.HTTPClient),
	}
}

func (g *gateway) Name() string {
	return g.cfg.Name
}

func (g *gateway) currency(requested string) string {
	if requested != "" {
		return requested
	}
	return g.cfg.Currency
}

// requireWallet resolves the payout destination before any network call.
func (g *gateway) requireWallet(ctx context.Context, phone string) error {
	if g.deps.Wallets == nil {
		return nil
	}
	if _, err := g.deps.Wallets.GetByPhone(ctx, phone); err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return fmt.Errorf("%w: %s", ErrWalletNotFound, phone)
		}
		return err
	}
	return nil
}

// recordCorrelation runs after the provider accepted the collection. A cache
// failure is logged; the payment is already in flight.
func (g *gateway) recordCorrelation(ctx context.Context, req CollectRequest) {
	if g.deps.Correlations == nil {
		return
	}
	corr := correlation.New(req.Phone, req.CounterpartPhone, g.cfg.Name)
	if err := g.deps.Correlations.Put(ctx, req.Reference, corr); err != nil {
		logger.Errorf("failed to record correlation for %s: %v", req.Reference, err)
	}
}

func (g *gateway) cacheStatus(ctx context.Context, id string, res *Result) {
	if g.deps.Store == nil {
		return
	}
	if err := cache.SetJSON(ctx, g.deps.Store, StatusKey(g.cfg.Name, id), res, g.deps.StatusTTL); err != nil {
		logger.Warnf("failed to cache %s status for %s: %v", g.cfg.Name, id, err)
	}
}

// rejectedToken drops the cached token when the provider answered 401, so
// the next call exchanges fresh credentials. err is returned unchanged.
func (g *gateway) rejectedToken(ctx context.Context, tokens *TokenCache, err error) error {
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.StatusCode != http.StatusUnauthorized {
		return err
	}
	if ierr := tokens.Invalidate(ctx); ierr != nil {
		logger.Warnf("failed to invalidate %s token: %v", g.cfg.Name, ierr)
	}
	return err
}

// amount renders a decimal as a JSON number without float rounding.
func amount(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func bearer(token string) string {
	return "Bearer " + token
}
