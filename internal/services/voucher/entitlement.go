package voucher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "momopay/internal/errors"

	"github.com/shopspring/decimal"
)

var ErrAmountNotEligible = apperrors.ErrAmountNotEligible

const day = 24 * time.Hour

// plans maps an eligible amount to the validity of the voucher it buys.
var plans = map[int64]time.Duration{
	1000:  1 * day,
	2500:  3 * day,
	5000:  7 * day,
	9000:  14 * day,
	18000: 30 * day,
	20000: 30 * day,
}

// DurationFor returns the validity bought by amount.
func DurationFor(amount decimal.Decimal) (time.Duration, error) {
	if !amount.Equal(amount.Truncate(0)) {
		return 0, ErrAmountNotEligible
	}
	d, ok := plans[amount.IntPart()]
	if !ok {
		return 0, ErrAmountNotEligible
	}
	return d, nil
}

// Issuer creates an access voucher valid for the given duration.
type Issuer interface {
	Issue(ctx context.Context, phone string, validity time.Duration) (string, error)
}

// HTTPIssuer calls the voucher server's generate endpoint.
type HTTPIssuer struct {
	baseURL string
	client  *http.Client
}

func NewHTTPIssuer(baseURL string, client *http.Client) *HTTPIssuer {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPIssuer{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type generateRequest struct {
	ExpiryTime int64 `json:"expiryTime"`
}

type generateResponse struct {
	Code string `json:"code"`
	Data struct {
		Code string `json:"code"`
	} `json:"data"`
}

func (i *HTTPIssuer) Issue(ctx context.Context, phone string, validity time.Duration) (string, error) {
	body, err := json.Marshal(generateRequest{ExpiryTime: int64(validity / time.Second)})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.baseURL+"/session/generate-voucher", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("voucher server unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("voucher server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("invalid voucher server response: %w", err)
	}
	code := out.Data.Code
	if code == "" {
		code = out.Code
	}
	if code == "" {
		return "", fmt.Errorf("voucher server returned no code for %s", phone)
	}
	return code, nil
}
