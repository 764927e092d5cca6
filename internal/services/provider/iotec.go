package provider

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"momopay/internal/config"
)

const IotecTokenKey = "iotec_access_token"

// Iotec settles payouts asynchronously; outcomes arrive on the
// disbursement webhook.
type Iotec struct {
	gateway
	tokens *TokenCache
}

func NewIotec(cfg config.ProviderConfig, deps Deps) *Iotec {
	if cfg.Name == "" {
		cfg.Name = "iotec"
	}
	i := &Iotec{gateway: newGateway(cfg, deps)}
	i.tokens = NewTokenCache(IotecTokenKey, i.deps.Store, cfg.TokenMargin, i.fetchToken)
	return i
}

func (i *Iotec) fetchToken(ctx context.Context) (string, time.Duration, error) {
	form := url.Values{}
	form.Set("client_id", i.cfg.ClientID)
	form.Set("client_secret", i.cfg.ClientSecret)
	form.Set("grant_type", "client_credentials")

	target := i.cfg.TokenURL
	if target == "" {
		target = "/connect/token"
	}
	var resp tokenResponse
	if err := i.http.do(ctx, "token", http.MethodPost, target, nil, form, &resp); err != nil {
		return "", 0, err
	}
	return resp.AccessToken, resp.lifetime(), nil
}

func (i *Iotec) headers(ctx context.Context) (map[string]string, error) {
	token, err := i.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{"Authorization": bearer(token)}, nil
}

type iotecTransaction struct {
	ID            string `json:"id"`
	ExternalID    string `json:"externalId"`
	Status        string `json:"status"`
	StatusMessage string `json:"statusMessage"`
}

func (i *Iotec) result(reference string, body iotecTransaction) *Result {
	if body.ExternalID != "" {
		reference = body.ExternalID
	}
	return &Result{
		Provider:   i.Name(),
		Reference:  reference,
		ProviderID: body.ID,
		Status:     Normalize(i.Name(), body.Status),
		RawStatus:  body.Status,
		Message:    body.StatusMessage,
	}
}

func (i *Iotec) Collect(ctx context.Context, req CollectRequest) (*Result, error) {
	headers, err := i.headers(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"category":                   "MobileMoney",
		"currency":                   i.currency(req.Currency),
		"walletId":                   i.cfg.WalletID,
		"externalId":                 req.Reference,
		"payer":                      req.Phone,
		"amount":                     amount(req.Amount),
		"payerNote":                  req.Note,
		"payeeNote":                  req.Note,
		"transactionChargesCategory": "ChargeWallet",
	}

	var body iotecTransaction
	if err := i.http.do(ctx, "collect", http.MethodPost, "/collections/collect", headers, payload, &body); err != nil {
		return nil, i.rejectedToken(ctx, i.tokens, err)
	}
	i.recordCorrelation(ctx, req)

	res := i.result(req.Reference, body)
	// Initiation never settles a collection.
	res.Status = StatusPending
	logResult("collect", res)
	return res, nil
}

func (i *Iotec) Disburse(ctx context.Context, req DisburseRequest) (*Result, error) {
	if err := i.requireWallet(ctx, req.Phone); err != nil {
		return nil, err
	}
	headers, err := i.headers(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"category":   "MobileMoney",
		"currency":   i.currency(req.Currency),
		"walletId":   i.cfg.WalletID,
		"externalId": req.Reference,
		"payee":      req.Phone,
		"amount":     amount(req.Amount),
		"payerNote":  req.Note,
		"payeeNote":  req.Note,
	}

	var body iotecTransaction
	if err := i.http.do(ctx, "disburse", http.MethodPost, "/disbursements/disburse", headers, payload, &body); err != nil {
		return nil, i.rejectedToken(ctx, i.tokens, err)
	}

	res := i.result(req.Reference, body)
	logResult("disburse", res)
	return res, nil
}

// CheckStatus looks the id up as a collection first, then as a payout.
func (i *Iotec) CheckStatus(ctx context.Context, id string) (*Result, error) {
	headers, err := i.headers(ctx)
	if err != nil {
		return nil, err
	}

	var body iotecTransaction
	err = i.http.do(ctx, "status", http.MethodGet, "/collections/status/"+url.PathEscape(id), headers, nil, &body)
	var perr *ProviderError
	if errors.As(err, &perr) && perr.StatusCode == http.StatusNotFound {
		body = iotecTransaction{}
		err = i.http.do(ctx, "status", http.MethodGet, "/disbursements/status/"+url.PathEscape(id), headers, nil, &body)
	}
	if err != nil {
		return nil, i.rejectedToken(ctx, i.tokens, err)
	}

	res := i.result(id, body)
	i.cacheStatus(ctx, id, res)
	return res, nil
}
