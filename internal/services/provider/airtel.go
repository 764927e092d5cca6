package provider

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"momopay/internal/config"
)

const AirtelTokenKey = "airtel_access_token"

type Airtel struct {
	gateway
	tokens *TokenCache
}

func NewAirtel(cfg config.ProviderConfig, deps Deps) *Airtel {
	if cfg.Name == "" {
		cfg.Name = "airtel"
	}
	a := &Airtel{gateway: newGateway(cfg, deps)}
	a.tokens = NewTokenCache(AirtelTokenKey, a.deps.Store, cfg.TokenMargin, a.fetchToken)
	return a
}

func (a *Airtel) fetchToken(ctx context.Context) (string, time.Duration, error) {
	form := url.Values{}
	form.Set("client_id", a.cfg.ClientID)
	form.Set("client_secret", a.cfg.ClientSecret)
	form.Set("grant_type", "client_credentials")

	var resp tokenResponse
	if err := a.http.do(ctx, "token", http.MethodPost, "/auth/oauth2/token", nil, form, &resp); err != nil {
		return "", 0, err
	}
	return resp.AccessToken, resp.lifetime(), nil
}

func (a *Airtel) headers(ctx context.Context) (map[string]string, error) {
	token, err := a.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"Authorization": bearer(token),
		"X-Country":     a.cfg.Country,
		"X-Currency":    a.cfg.Currency,
	}, nil
}

type airtelStatusBody struct {
	Data struct {
		Transaction struct {
			ID      string `json:"id"`
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"transaction"`
	} `json:"data"`
	Status struct {
		Code       string `json:"code"`
		Message    string `json:"message"`
		Success    bool   `json:"success"`
		ResultCode string `json:"result_code"`
	} `json:"status"`
}

func (a *Airtel) Collect(ctx context.Context, req CollectRequest) (*Result, error) {
	headers, err := a.headers(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"reference": req.Reference,
		"subscriber": map[string]string{
			"country":  a.cfg.Country,
			"currency": a.currency(req.Currency),
			"msisdn":   req.Phone,
		},
		"transaction": map[string]interface{}{
			"amount":   amount(req.Amount),
			"country":  a.cfg.Country,
			"currency": a.currency(req.Currency),
			"id":       req.Reference,
		},
	}

	var body airtelStatusBody
	if err := a.http.do(ctx, "collect", http.MethodPost, "/merchant/v1/payments/", headers, payload, &body); err != nil {
		return nil, a.rejectedToken(ctx, a.tokens, err)
	}
	a.recordCorrelation(ctx, req)

	res := &Result{
		Provider:   a.Name(),
		Reference:  req.Reference,
		ProviderID: body.Data.Transaction.ID,
		Status:     StatusPending,
		RawStatus:  body.Data.Transaction.Status,
		Message:    body.Status.Message,
	}
	logResult("collect", res)
	return res, nil
}

func (a *Airtel) Disburse(ctx context.Context, req DisburseRequest) (*Result, error) {
	if err := a.requireWallet(ctx, req.Phone); err != nil {
		return nil, err
	}
	headers, err := a.headers(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"payee": map[string]string{
			"msisdn": req.Phone,
		},
		"reference": req.Reference,
		"transaction": map[string]interface{}{
			"amount": amount(req.Amount),
			"id":     req.Reference,
		},
	}

	var body airtelStatusBody
	if err := a.http.do(ctx, "disburse", http.MethodPost, "/standard/v1/disbursements/", headers, payload, &body); err != nil {
		return nil, a.rejectedToken(ctx, a.tokens, err)
	}

	res := &Result{
		Provider:   a.Name(),
		Reference:  req.Reference,
		ProviderID: body.Data.Transaction.ID,
		Status:     Normalize(a.Name(), body.Data.Transaction.Status),
		RawStatus:  body.Data.Transaction.Status,
		Message:    body.Status.Message,
	}
	logResult("disburse", res)
	return res, nil
}

func (a *Airtel) CheckStatus(ctx context.Context, id string) (*Result, error) {
	headers, err := a.headers(ctx)
	if err != nil {
		return nil, err
	}

	var body airtelStatusBody
	if err := a.http.do(ctx, "status", http.MethodGet, "/standard/v1/payments/"+url.PathEscape(id), headers, nil, &body); err != nil {
		return nil, a.rejectedToken(ctx, a.tokens, err)
	}

	res := &Result{
		Provider:   a.Name(),
		Reference:  id,
		ProviderID: body.Data.Transaction.ID,
		Status:     Normalize(a.Name(), body.Data.Transaction.Status),
		RawStatus:  body.Data.Transaction.Status,
		Message:    body.Data.Transaction.Message,
	}
	a.cacheStatus(ctx, id, res)
	return res, nil
}
