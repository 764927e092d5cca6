package withdrawal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"momopay/internal/models"
	"momopay/internal/repositories"
	"momopay/internal/services/ledger"
	"momopay/internal/services/provider"
	"momopay/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDisburser struct {
	mu       sync.Mutex
	result   *provider.Result
	err      error
	requests []provider.DisburseRequest
	delay    time.Duration
	// callback runs before the provider answers, like an early webhook.
	callback func(req provider.DisburseRequest)
}

func (f *fakeDisburser) Name() string { return "iotec" }

func (f *fakeDisburser) Disburse(ctx context.Context, req provider.DisburseRequest) (*provider.Result, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.callback != nil {
		f.callback(req)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	res := *f.result
	res.Reference = req.Reference
	return &res, nil
}

type fixture struct {
	svc      Service
	payout   *fakeDisburser
	ledger   ledger.Service
	wallets  repositories.WalletRepository
	revenue  repositories.RevenueRepository
	platform *models.Wallet
	user     *models.Wallet
}

func newFixture(t *testing.T, funded int64) *fixture {
	t.Helper()
	ctx := context.Background()
	db := testutil.NewTestDB(t, repositories.Models()...)

	wallets := repositories.NewWalletRepository(db)
	ledgerSvc := ledger.NewService(repositories.NewLedgerRepository(db))
	revenue := repositories.NewRevenueRepository(db)

	platform := &models.Wallet{UserID: "platform", Phone: "platform", AllowOverdraft: true}
	require.NoError(t, wallets.Create(ctx, platform))
	user := &models.Wallet{UserID: "user-1", Phone: "256700000001"}
	require.NoError(t, wallets.Create(ctx, user))
	if funded > 0 {
		_, err := ledgerSvc.Transfer(ctx, ledger.TransferRequest{
			From: platform.ID, To: user.ID, Amount: decimal.NewFromInt(funded), Reference: "fund",
		})
		require.NoError(t, err)
	}

	payout := &fakeDisburser{result: &provider.Result{Provider: "iotec", ProviderID: "io-1", Status: provider.StatusSuccess, RawStatus: "Success"}}
	svc := NewService(repositories.NewWithdrawalRepository(db), wallets, ledgerSvc, revenue, payout, Config{
		Charge:           decimal.NewFromInt(1000),
		Minimum:          decimal.NewFromInt(10000),
		PlatformWalletID: platform.ID,
		Currency:         "UGX",
	})

	return &fixture{svc: svc, payout: payout, ledger: ledgerSvc, wallets: wallets, revenue: revenue, platform: platform, user: user}
}

func (f *fixture) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	w, err := f.wallets.GetByID(context.Background(), f.user.ID)
	require.NoError(t, err)
	return w.Balance
}

func (f *fixture) request(t *testing.T, amount int64) (*models.Withdrawal, error) {
	t.Helper()
	return f.svc.Request(context.Background(), Request{UserID: "user-1", Amount: decimal.NewFromInt(amount), Destination: "256700000001"})
}

func TestRequest_SuccessfulPayoutIsPaid(t *testing.T) {
	f := newFixture(t, 50000)

	w, err := f.request(t, 20000)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalPaid, w.Status)
	assert.True(t, w.NetAmount.Equal(decimal.NewFromInt(19000)))
	assert.Equal(t, "io-1", w.ProviderReference)

	require.Len(t, f.payout.requests, 1)
	assert.True(t, f.payout.requests[0].Amount.Equal(decimal.NewFromInt(19000)), "net amount is paid out")
	assert.Equal(t, w.Reference(), f.payout.requests[0].Reference)

	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(30000)), "full amount is debited")

	rev, err := f.revenue.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, rev.CurrentRevenue.Equal(decimal.NewFromInt(1000)))
}

func TestRequest_PendingPayoutIsApprovedThenPaid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 50000)
	f.payout.result = &provider.Result{ProviderID: "io-2", Status: provider.StatusPending, RawStatus: "Pending"}

	w, err := f.request(t, 20000)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalApproved, w.Status)
	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(30000)))

	paid, err := f.svc.ApplyProviderStatus(ctx, w.Reference(), models.WithdrawalPaid, "")
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalPaid, paid.Status)
	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(30000)), "no second debit")

	rev, err := f.revenue.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev.TotalTransactions)

	// Redelivery of the same outcome is a no-op.
	again, err := f.svc.ApplyProviderStatus(ctx, w.Reference(), models.WithdrawalPaid, "")
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalPaid, again.Status)

	_, err = f.svc.ApplyProviderStatus(ctx, w.Reference(), models.WithdrawalRejected, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRequest_ConcurrentRequestsCannotSpendSameBalance(t *testing.T) {
	f := newFixture(t, 20000)
	f.payout.delay = 100 * time.Millisecond

	type outcome struct {
		w   *models.Withdrawal
		err error
	}
	results := make(chan outcome, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, err := f.svc.Request(context.Background(), Request{UserID: "user-1", Amount: decimal.NewFromInt(20000), Destination: "256700000001"})
			results <- outcome{w, err}
		}()
	}
	wg.Wait()
	close(results)

	paid, refused := 0, 0
	for r := range results {
		switch {
		case r.err == nil:
			assert.Equal(t, models.WithdrawalPaid, r.w.Status)
			paid++
		case errors.Is(r.err, ErrInsufficientFunds):
			refused++
		default:
			t.Fatalf("unexpected error: %v", r.err)
		}
	}
	assert.Equal(t, 1, paid)
	assert.Equal(t, 1, refused)
	assert.Len(t, f.payout.requests, 1, "only one payout leaves")
	assert.True(t, f.balance(t).IsZero())
}

func TestRequest_HeldWithdrawalReducesAvailableBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 30000)

	var second error
	f.payout.callback = func(req provider.DisburseRequest) {
		if second == nil {
			_, second = f.svc.Request(ctx, Request{UserID: "user-1", Amount: decimal.NewFromInt(20000), Destination: "256700000001"})
		}
	}

	w, err := f.request(t, 20000)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalPaid, w.Status)
	assert.ErrorIs(t, second, ErrInsufficientFunds)
	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(10000)))
}

func TestRequest_EarlyCallbackKeepsWithdrawalPaid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 50000)
	f.payout.callback = func(req provider.DisburseRequest) {
		_, err := f.svc.ApplyProviderStatus(ctx, req.Reference, models.WithdrawalPaid, "io-early")
		require.NoError(t, err)
	}

	w, err := f.request(t, 20000)
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, models.WithdrawalPaid, w.Status)
	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(30000)), "debited once")

	rev, err := f.revenue.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev.TotalTransactions)
}

func TestApplyProviderStatus_ApprovedToRejectedRefunds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 50000)
	f.payout.result = &provider.Result{Status: provider.StatusPending}

	w, err := f.request(t, 20000)
	require.NoError(t, err)
	require.Equal(t, models.WithdrawalApproved, w.Status)

	rejected, err := f.svc.ApplyProviderStatus(ctx, w.Reference(), models.WithdrawalRejected, "io-9")
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalRejected, rejected.Status)
	assert.Equal(t, "io-9", rejected.ProviderReference)
	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(50000)), "debit is refunded")

	entries, err := f.ledger.Entries(ctx, ledger.ReversalPrefix+w.Reference())
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	rev, err := f.revenue.Get(ctx)
	require.NoError(t, err)
	assert.True(t, rev.CurrentRevenue.IsZero())
}

func TestRequest_ProviderFailureRejectsWithoutDebit(t *testing.T) {
	tests := []struct {
		name   string
		result *provider.Result
		err    error
	}{
		{"provider error", nil, &provider.ProviderError{Provider: "iotec", Operation: "disburse", StatusCode: 503}},
		{"failed status", &provider.Result{Status: provider.StatusFailed, RawStatus: "Failed", Message: "declined"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 50000)
			f.payout.result = tt.result
			f.payout.err = tt.err

			w, err := f.request(t, 20000)
			require.NoError(t, err)
			assert.Equal(t, models.WithdrawalRejected, w.Status)
			assert.NotEmpty(t, w.FailureReason)
			assert.True(t, f.balance(t).Equal(decimal.NewFromInt(50000)))

			stored, err := f.svc.Get(context.Background(), w.ID)
			require.NoError(t, err)
			assert.Equal(t, models.WithdrawalRejected, stored.Status)
		})
	}
}

func TestRequest_ChargeExceedsAmountIsRejected(t *testing.T) {
	f := newFixture(t, 50000)
	f.svc.(*service).cfg.Minimum = decimal.Zero

	w, err := f.request(t, 1000)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalRejected, w.Status)
	assert.Empty(t, f.payout.requests)
}

func TestRequest_Validation(t *testing.T) {
	f := newFixture(t, 15000)

	_, err := f.request(t, 5000)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.request(t, 20000)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = f.request(t, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.svc.Request(context.Background(), Request{UserID: "nobody", Amount: decimal.NewFromInt(20000), Destination: "1"})
	assert.ErrorIs(t, err, ErrWalletNotFound)

	assert.Empty(t, f.payout.requests)

	list, err := f.svc.ListByUser(context.Background(), "user-1", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestApplyProviderStatus_UnknownWithdrawal(t *testing.T) {
	f := newFixture(t, 0)
	_, err := f.svc.ApplyProviderStatus(context.Background(), "withdrawal-missing", models.WithdrawalPaid, "")
	assert.True(t, errors.Is(err, ErrWithdrawalNotFound))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(models.WithdrawalRequested, models.WithdrawalPaid))
	assert.True(t, CanTransition(models.WithdrawalApproved, models.WithdrawalRejected))
	assert.False(t, CanTransition(models.WithdrawalPaid, models.WithdrawalRejected))
	assert.False(t, CanTransition(models.WithdrawalRejected, models.WithdrawalApproved))
	assert.False(t, CanTransition(models.WithdrawalApproved, models.WithdrawalRequested))
}

func TestStatusFromProvider(t *testing.T) {
	assert.Equal(t, models.WithdrawalPaid, StatusFromProvider("successful"))
	assert.Equal(t, models.WithdrawalPaid, StatusFromProvider("COMPLETED"))
	assert.Equal(t, models.WithdrawalRejected, StatusFromProvider("Failed"))
	assert.Equal(t, models.WithdrawalApproved, StatusFromProvider("PROCESSING"))
	assert.Equal(t, models.WithdrawalRequested, StatusFromProvider("weird"))
}
