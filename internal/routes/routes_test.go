package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"momopay/internal/handlers"
	"momopay/internal/middleware"
	"momopay/internal/models"
	"momopay/internal/services/collection"
	"momopay/internal/services/provider"
	"momopay/internal/services/webhook"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCollections struct{}

func (stubCollections) Collect(ctx context.Context, req collection.Request) (*collection.Result, error) {
	return &collection.Result{Reference: "ref", Status: collection.StatusPending}, nil
}

type stubWebhooks struct{ webhook.Service }

func (stubWebhooks) HandleAirtelCollection(ctx context.Context, raw []byte, signature string) (*webhook.Outcome, error) {
	return &webhook.Outcome{Reference: "ref"}, nil
}

type noGateways struct{}

func (noGateways) Get(name string) (provider.Gateway, error) {
	return nil, provider.ErrUnknownProvider
}

func newTestApp(t *testing.T, cfg AppConfig) (*middleware.AuthMiddleware, func(req *http.Request) int) {
	t.Helper()
	auth := middleware.NewAuthMiddleware("secret")
	app := NewApp(cfg)
	SetupRoutes(app, Handlers{
		Auth:        auth,
		Payments:    handlers.NewPaymentHandler(stubCollections{}, noGateways{}, "iotec", "UGX"),
		Webhooks:    handlers.NewWebhookHandler(stubWebhooks{}),
		Withdrawals: handlers.NewWithdrawalHandler(nil),
		Admin:       handlers.NewAdminHandler(handlers.AdminDeps{}, "platform", time.Minute),
		Health:      handlers.NewHealthHandler(nil),
	}, cfg)
	return auth, func(req *http.Request) int {
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp.StatusCode
	}
}

func TestRoutes_Access(t *testing.T) {
	auth, call := newTestApp(t, AppConfig{AllowOrigins: "*"})
	userToken, err := auth.Issue(models.UserClaims{UserID: "u-1", Role: models.RoleUser}, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, call(httptest.NewRequest("GET", "/health", nil)))
	assert.Equal(t, http.StatusOK, call(httptest.NewRequest("POST", "/webhooks/airtel", strings.NewReader(`{}`))))
	assert.Equal(t, http.StatusUnauthorized, call(httptest.NewRequest("GET", "/api/withdrawals", nil)))
	assert.Equal(t, http.StatusUnauthorized, call(httptest.NewRequest("POST", "/api/payments/disburse", nil)))

	req := httptest.NewRequest("GET", "/api/admin/revenue", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	assert.Equal(t, http.StatusForbidden, call(req))

	assert.Equal(t, http.StatusNotFound, call(httptest.NewRequest("GET", "/nowhere", nil)))
}

func TestRoutes_CollectRateLimited(t *testing.T) {
	_, call := newTestApp(t, AppConfig{AllowOrigins: "*", CollectLimit: 2})
	body := `{"phone":"256700000009","amount":5000}`

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/api/payments/collect", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		codes = append(codes, call(req))
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
