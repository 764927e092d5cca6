package voucher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationFor(t *testing.T) {
	tests := []struct {
		amount string
		want   time.Duration
		err    bool
	}{
		{"1000", 24 * time.Hour, false},
		{"2500", 3 * 24 * time.Hour, false},
		{"5000", 7 * 24 * time.Hour, false},
		{"9000", 14 * 24 * time.Hour, false},
		{"18000", 30 * 24 * time.Hour, false},
		{"20000", 30 * 24 * time.Hour, false},
		{"3000", 0, true},
		{"1000.50", 0, true},
		{"0", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			got, err := DurationFor(decimal.RequireFromString(tt.amount))
			if tt.err {
				assert.ErrorIs(t, err, ErrAmountNotEligible)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHTTPIssuer_Issue(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/session/generate-voucher", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":200,"data":{"code":"VCH-777"}}`))
	}))
	defer srv.Close()

	issuer := NewHTTPIssuer(srv.URL+"/", srv.Client())
	code, err := issuer.Issue(context.Background(), "256700000001", 7*24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, "VCH-777", code)
	assert.Equal(t, int64(7*86400), got.ExpiryTime, "expiry is sent in seconds")
}

func TestHTTPIssuer_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"down"}`},
		{"no code", http.StatusOK, `{"data":{}}`},
		{"garbage", http.StatusOK, `<html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHTTPIssuer(srv.URL, srv.Client()).Issue(context.Background(), "1", time.Hour)
			assert.Error(t, err)
		})
	}
}
