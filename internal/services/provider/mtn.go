package provider

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"time"

	"momopay/internal/config"

	"github.com/google/uuid"
)

const (
	MTNCollectionTokenKey   = "mtn_collection_access_token"
	MTNDisbursementTokenKey = "mtn_disbursement_access_token"
)

// MTN keeps one token per product; collection and disbursement are
// separately provisioned on the MoMo API.
type MTN struct {
	gateway
	collectionTokens   *TokenCache
	disbursementTokens *TokenCache
}

func NewMTN(cfg config.ProviderConfig, deps Deps) *MTN {
	if cfg.Name == "" {
		cfg.Name = "mtn"
	}
	m := &MTN{gateway: newGateway(cfg, deps)}
	m.collectionTokens = NewTokenCache(MTNCollectionTokenKey, m.deps.Store, cfg.TokenMargin, m.tokenSource("collection"))
	m.disbursementTokens = NewTokenCache(MTNDisbursementTokenKey, m.deps.Store, cfg.TokenMargin, m.tokenSource("disbursement"))
	return m
}

func (m *MTN) tokenSource(product string) TokenSource {
	return func(ctx context.Context) (string, time.Duration, error) {
		creds := base64.StdEncoding.EncodeToString([]byte(m.cfg.ClientID + ":" + m.cfg.ClientSecret))
		headers := map[string]string{
			"Authorization":             "Basic " + creds,
			"Ocp-Apim-Subscription-Key": m.cfg.SubscriptionKey,
		}
		var resp tokenResponse
		if err := m.http.do(ctx, product+" token", http.MethodPost, "/"+product+"/token/", headers, nil, &resp); err != nil {
			return "", 0, err
		}
		return resp.AccessToken, resp.lifetime(), nil
	}
}

func (m *MTN) headers(ctx context.Context, tokens *TokenCache, referenceID string) (map[string]string, error) {
	token, err := tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	h := map[string]string{
		"Authorization":             bearer(token),
		"Ocp-Apim-Subscription-Key": m.cfg.SubscriptionKey,
		"X-Target-Environment":      m.cfg.TargetEnvironment,
	}
	if referenceID != "" {
		h["X-Reference-Id"] = referenceID
	}
	return h, nil
}

// ReferenceID returns the UUID MTN tracks a request under. Non-UUID
// references map deterministically so status checks can find them again.
func ReferenceID(reference string) string {
	if id, err := uuid.Parse(reference); err == nil {
		return id.String()
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(reference)).String()
}

type mtnParty struct {
	PartyIDType string `json:"partyIdType"`
	PartyID     string `json:"partyId"`
}

func (m *MTN) Collect(ctx context.Context, req CollectRequest) (*Result, error) {
	refID := ReferenceID(req.Reference)
	headers, err := m.headers(ctx, m.collectionTokens, refID)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"amount":       amount(req.Amount),
		"currency":     m.currency(req.Currency),
		"externalId":   req.Reference,
		"payer":        mtnParty{PartyIDType: "MSISDN", PartyID: req.Phone},
		"payerMessage": req.Note,
		"payeeNote":    req.Note,
	}
	// requesttopay answers 202 with an empty body.
	if err := m.http.do(ctx, "collect", http.MethodPost, "/collection/v1_0/requesttopay", headers, payload, nil); err != nil {
		return nil, m.rejectedToken(ctx, m.collectionTokens, err)
	}
	m.recordCorrelation(ctx, req)

	res := &Result{
		Provider:   m.Name(),
		Reference:  req.Reference,
		ProviderID: refID,
		Status:     StatusPending,
		RawStatus:  "PENDING",
	}
	logResult("collect", res)
	return res, nil
}

func (m *MTN) Disburse(ctx context.Context, req DisburseRequest) (*Result, error) {
	if err := m.requireWallet(ctx, req.Phone); err != nil {
		return nil, err
	}
	refID := ReferenceID(req.Reference)
	headers, err := m.headers(ctx, m.disbursementTokens, refID)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"amount":       amount(req.Amount),
		"currency":     m.currency(req.Currency),
		"externalId":   req.Reference,
		"payee":        mtnParty{PartyIDType: "MSISDN", PartyID: req.Phone},
		"payerMessage": req.Note,
		"payeeNote":    req.Note,
	}
	if err := m.http.do(ctx, "disburse", http.MethodPost, "/disbursement/v1_0/transfer", headers, payload, nil); err != nil {
		return nil, m.rejectedToken(ctx, m.disbursementTokens, err)
	}

	res := &Result{
		Provider:   m.Name(),
		Reference:  req.Reference,
		ProviderID: refID,
		Status:     StatusPending,
		RawStatus:  "PENDING",
	}
	logResult("disburse", res)
	return res, nil
}

type mtnStatusBody struct {
	FinancialTransactionID string `json:"financialTransactionId"`
	ExternalID             string `json:"externalId"`
	Status                 string `json:"status"`
	Reason                 string `json:"reason"`
}

// CheckStatus accepts either the MTN reference id or our own reference.
func (m *MTN) CheckStatus(ctx context.Context, id string) (*Result, error) {
	refID := ReferenceID(id)
	headers, err := m.headers(ctx, m.collectionTokens, "")
	if err != nil {
		return nil, err
	}

	var body mtnStatusBody
	if err := m.http.do(ctx, "status", http.MethodGet, "/collection/v1_0/requesttopay/"+url.PathEscape(refID), headers, nil, &body); err != nil {
		return nil, m.rejectedToken(ctx, m.collectionTokens, err)
	}

	reference := body.ExternalID
	if reference == "" {
		reference = id
	}
	res := &Result{
		Provider:   m.Name(),
		Reference:  reference,
		ProviderID: refID,
		Status:     Normalize(m.Name(), body.Status),
		RawStatus:  body.Status,
		Message:    body.Reason,
	}
	m.cacheStatus(ctx, id, res)
	return res, nil
}
