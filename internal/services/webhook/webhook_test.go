package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "momopay/internal/errors"
	"momopay/internal/models"
	"momopay/internal/repositories"
	"momopay/internal/repositories/cache"
	"momopay/internal/services/correlation"
	"momopay/internal/services/ledger"
	"momopay/internal/services/provider"
	"momopay/internal/services/voucher"
	"momopay/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	airtelSecret = "airtel-secret"
	iotecSecret  = "iotec-secret"
	payer        = "256700000009"
	reseller     = "256700000001"
)

type fakeIssuer struct {
	mu    sync.Mutex
	err   error
	calls []issued
}

type issued struct {
	phone    string
	validity time.Duration
}

func (f *fakeIssuer) Issue(ctx context.Context, phone string, validity time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.calls = append(f.calls, issued{phone: phone, validity: validity})
	return "CODE" + string(rune('0'+len(f.calls))), nil
}

type fakeWithdrawals struct {
	applied []models.WithdrawalStatus
	err     error
}

func (f *fakeWithdrawals) ApplyProviderStatus(ctx context.Context, reference string, status models.WithdrawalStatus, providerRef string) (*models.Withdrawal, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.applied = append(f.applied, status)
	return &models.Withdrawal{ID: reference, Status: status}, nil
}

type fakeGateways struct {
	result *provider.Result
}

func (f *fakeGateways) Get(name string) (provider.Gateway, error) {
	return &statusGateway{name: name, result: f.result}, nil
}

type statusGateway struct {
	name   string
	result *provider.Result
}

func (g *statusGateway) Name() string { return g.name }
func (g *statusGateway) Collect(ctx context.Context, req provider.CollectRequest) (*provider.Result, error) {
	return nil, errors.New("unused")
}
func (g *statusGateway) Disburse(ctx context.Context, req provider.DisburseRequest) (*provider.Result, error) {
	return nil, errors.New("unused")
}
func (g *statusGateway) CheckStatus(ctx context.Context, id string) (*provider.Result, error) {
	return g.result, nil
}

type fixture struct {
	svc          *service
	transactions repositories.TransactionRepository
	logs         repositories.WebhookLogRepository
	wallets      repositories.WalletRepository
	ledger       ledger.Service
	correlations *correlation.Cache
	handoff      *voucher.Handoff
	issuer       *fakeIssuer
	withdrawals  *fakeWithdrawals
	gateways     *fakeGateways
	store        *cache.MemoryStore
	reseller     *models.Wallet
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := testutil.NewTestDB(t, repositories.Models()...)
	store := cache.NewMemoryStore()

	wallets := repositories.NewWalletRepository(db)
	platform := &models.Wallet{UserID: "platform", Phone: "platform", AllowOverdraft: true}
	require.NoError(t, wallets.Create(ctx, platform))
	resellerWallet := &models.Wallet{UserID: "reseller", Phone: reseller}
	require.NoError(t, wallets.Create(ctx, resellerWallet))

	f := &fixture{
		transactions: repositories.NewTransactionRepository(db),
		logs:         repositories.NewWebhookLogRepository(db),
		wallets:      wallets,
		ledger:       ledger.NewService(repositories.NewLedgerRepository(db)),
		correlations: correlation.NewCache(store, time.Hour),
		handoff:      voucher.NewHandoff(store, voucher.HandoffConfig{Wait: time.Second, PollInterval: 10 * time.Millisecond}),
		issuer:       &fakeIssuer{},
		withdrawals:  &fakeWithdrawals{},
		gateways:     &fakeGateways{},
		store:        store,
		reseller:     resellerWallet,
	}
	f.svc = NewService(Deps{
		Transactions: f.transactions,
		Logs:         f.logs,
		Wallets:      wallets,
		Ledger:       f.ledger,
		Correlations: f.correlations,
		Issuer:       f.issuer,
		Slots:        f.handoff,
		Store:        store,
		Withdrawals:  f.withdrawals,
		Gateways:     f.gateways,
	}, Config{
		PlatformWalletID:   platform.ID,
		AirtelSecret:       airtelSecret,
		IotecSecret:        iotecSecret,
		DisbursementSecret: iotecSecret,
		Currency:           "UGX",
	}).(*service)
	return f
}

func (f *fixture) correlate(t *testing.T, ref string) {
	t.Helper()
	require.NoError(t, f.correlations.Put(context.Background(), ref, correlation.New(payer, reseller, "airtel")))
}

func (f *fixture) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	w, err := f.wallets.GetByID(context.Background(), f.reseller.ID)
	require.NoError(t, err)
	return w.Balance
}

func airtelBody(t *testing.T, ref, status string, amount int64) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"transaction": map[string]interface{}{"id": ref, "status": status},
		"phone":       payer,
		"amount":      amount,
	})
	require.NoError(t, err)
	return raw
}

func TestAirtel_InvalidSignatureChangesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	raw := airtelBody(t, "ref-1", "TS", 5000)

	for _, sig := range []string{"", "deadbeef", Sign("wrong-secret", raw)} {
		_, err := f.svc.HandleAirtelCollection(ctx, raw, sig)
		assert.ErrorIs(t, err, apperrors.ErrSignatureInvalid)
	}

	_, err := f.transactions.GetByReference(ctx, "ref-1")
	assert.ErrorIs(t, err, repositories.ErrTransactionNotFound)
	logs, err := f.logs.List(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestAirtel_SuccessCreditsIssuesAndHandsOff(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.correlate(t, "ref-1")
	require.NoError(t, f.handoff.Open(ctx, "ref-1"))

	raw := airtelBody(t, "ref-1", "TS", 5000)
	out, err := f.svc.HandleAirtelCollection(ctx, raw, Sign(airtelSecret, raw))
	require.NoError(t, err)
	assert.True(t, out.Processed)
	assert.Equal(t, "CODE1", out.Code)

	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(5000)), "reseller wallet credited")

	require.Len(t, f.issuer.calls, 1)
	assert.Equal(t, payer, f.issuer.calls[0].phone, "voucher goes to the payer")
	assert.Equal(t, 7*24*time.Hour, f.issuer.calls[0].validity)

	code, ok, err := f.handoff.Wait(ctx, "ref-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "CODE1", code)

	tx, err := f.transactions.GetByReference(ctx, "ref-1")
	require.NoError(t, err)
	assert.True(t, tx.Processed())
	assert.Equal(t, models.PaymentSuccess, tx.NormalizedStatus)
	assert.Equal(t, "TS", tx.Status)

	logs, err := f.logs.List(ctx, "airtel", 10, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Processed)
}

func TestAirtel_DuplicateDeliveryDoesNotRepeatSideEffects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.correlate(t, "ref-dup")
	raw := airtelBody(t, "ref-dup", "TS", 5000)

	_, err := f.svc.HandleAirtelCollection(ctx, raw, Sign(airtelSecret, raw))
	require.NoError(t, err)
	out, err := f.svc.HandleAirtelCollection(ctx, raw, Sign(airtelSecret, raw))
	require.NoError(t, err)
	assert.False(t, out.Processed)

	assert.Len(t, f.issuer.calls, 1)
	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(5000)))
	entries, err := f.ledger.Entries(ctx, "ref-dup")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestAirtel_ConcurrentDeliveriesCreditOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.correlate(t, "ref-race")
	raw := airtelBody(t, "ref-race", "TS", 2500)
	sig := Sign(airtelSecret, raw)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.HandleAirtelCollection(ctx, raw, sig)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(2500)))
	assert.Len(t, f.issuer.calls, 1)
}

func TestAirtel_StopsWithoutSideEffects(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T, f *fixture)
		status string
	}{
		{"no correlation", func(t *testing.T, f *fixture) {}, "TS"},
		{"no wallet for credited phone", func(t *testing.T, f *fixture) {
			require.NoError(t, f.correlations.Put(context.Background(), "ref", correlation.New(payer, "256711111111", "airtel")))
		}, "TS"},
		{"failed payment", func(t *testing.T, f *fixture) { f.correlate(t, "ref") }, "TF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			tt.setup(t, f)

			raw := airtelBody(t, "ref", tt.status, 5000)
			out, err := f.svc.HandleAirtelCollection(ctx, raw, Sign(airtelSecret, raw))
			require.NoError(t, err)
			assert.False(t, out.Processed)

			tx, err := f.transactions.GetByReference(ctx, "ref")
			require.NoError(t, err, "payment is recorded regardless")
			assert.False(t, tx.Processed())

			assert.True(t, f.balance(t).IsZero())
			assert.Empty(t, f.issuer.calls)
		})
	}
}

func TestAirtel_IneligibleAmountCreditsWithoutVoucher(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.correlate(t, "ref-odd")

	raw := airtelBody(t, "ref-odd", "TS", 3000)
	out, err := f.svc.HandleAirtelCollection(ctx, raw, Sign(airtelSecret, raw))
	require.NoError(t, err)
	assert.False(t, out.Processed)
	assert.Equal(t, "amount not eligible for a voucher", out.Reason)

	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(3000)))
	assert.Empty(t, f.issuer.calls)

	tx, err := f.transactions.GetByReference(ctx, "ref-odd")
	require.NoError(t, err)
	assert.True(t, tx.Processed())
}

func TestAirtel_InvalidPayload(t *testing.T) {
	f := newFixture(t)
	raw := []byte(`{"transaction":{"status":"TS"},"amount":5000}`)
	_, err := f.svc.HandleAirtelCollection(context.Background(), raw, Sign(airtelSecret, raw))
	assert.ErrorIs(t, err, apperrors.ErrInvalidPayload)
}

func TestIotec_PrefixedSignatureAndPayeeNote(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	raw, err := json.Marshal(map[string]interface{}{
		"id":         "io-1",
		"externalId": "ref-io",
		"status":     "Success",
		"amount":     1000,
		"payer":      payer,
		"payeeNote":  reseller,
	})
	require.NoError(t, err)

	out, err := f.svc.HandleIotecCollection(ctx, raw, SignaturePrefix+Sign(iotecSecret, raw))
	require.NoError(t, err)
	assert.True(t, out.Processed)
	assert.Equal(t, "ref-io", out.Reference)
	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, 24*time.Hour, f.issuer.calls[0].validity)
}

func disbursementBody(t *testing.T, id, status string) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"id":    id,
		"event": "disbursement.completed",
		"data": map[string]interface{}{
			"transactionId": "io-" + id,
			"status":        status,
			"amount":        19000,
			"phone":         reseller,
			"reference":     "withdrawal-" + id,
		},
	})
	require.NoError(t, err)
	return raw
}

func TestDisbursement_AppliesStatusAndRejectsReplay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	raw := disbursementBody(t, "w1", "SUCCESSFUL")
	sig := SignaturePrefix + Sign(iotecSecret, raw)

	out, err := f.svc.HandleDisbursement(ctx, raw, sig)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalPaid, out.Status)
	assert.Equal(t, []models.WithdrawalStatus{models.WithdrawalPaid}, f.withdrawals.applied)

	_, err = f.svc.HandleDisbursement(ctx, raw, sig)
	assert.ErrorIs(t, err, apperrors.ErrReplayDetected)
	assert.Len(t, f.withdrawals.applied, 1)

	tx, err := f.transactions.GetByReference(ctx, "withdrawal-w1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, tx.NormalizedStatus)
}

func TestDisbursement_ForgedDeliveryDoesNotBurnEventID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	raw := disbursementBody(t, "w2", "FAILED")

	_, err := f.svc.HandleDisbursement(ctx, raw, "sha256=00")
	assert.ErrorIs(t, err, apperrors.ErrSignatureInvalid)

	out, err := f.svc.HandleDisbursement(ctx, raw, SignaturePrefix+Sign(iotecSecret, raw))
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalRejected, out.Status)
}

func TestDisbursement_StatusProgressionWithoutEventID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	body := func(status string) []byte {
		raw, err := json.Marshal(map[string]interface{}{
			"event": "disbursement.completed",
			"data": map[string]interface{}{
				"transactionId": "io-w4",
				"status":        status,
				"reference":     "withdrawal-w4",
			},
		})
		require.NoError(t, err)
		return raw
	}

	pending := body("PENDING")
	_, err := f.svc.HandleDisbursement(ctx, pending, SignaturePrefix+Sign(iotecSecret, pending))
	require.NoError(t, err)

	paid := body("SUCCESSFUL")
	out, err := f.svc.HandleDisbursement(ctx, paid, SignaturePrefix+Sign(iotecSecret, paid))
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalPaid, out.Status)
	assert.Equal(t, []models.WithdrawalStatus{models.WithdrawalApproved, models.WithdrawalPaid}, f.withdrawals.applied)

	_, err = f.svc.HandleDisbursement(ctx, paid, SignaturePrefix+Sign(iotecSecret, paid))
	assert.ErrorIs(t, err, apperrors.ErrReplayDetected)
}

func TestDisbursement_UnknownStatusLeavesWithdrawal(t *testing.T) {
	f := newFixture(t)
	raw := disbursementBody(t, "w3", "QUEUED")

	out, err := f.svc.HandleDisbursement(context.Background(), raw, SignaturePrefix+Sign(iotecSecret, raw))
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalRequested, out.Status)
	assert.Empty(t, f.withdrawals.applied)
}

func TestReconcile_ResumesAfterIssuerFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.correlate(t, "ref-r")
	f.issuer.err = errors.New("voucher server down")

	raw := airtelBody(t, "ref-r", "TS", 5000)
	_, err := f.svc.HandleAirtelCollection(ctx, raw, Sign(airtelSecret, raw))
	require.Error(t, err)
	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(5000)), "credit survives the failed issue")

	f.issuer.err = nil
	f.svc.now = func() time.Time { return time.Now().Add(time.Hour) }

	report, err := f.svc.Reconcile(ctx, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Resumed)
	assert.Len(t, f.issuer.calls, 1)
	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(5000)), "no second credit")

	tx, err := f.transactions.GetByReference(ctx, "ref-r")
	require.NoError(t, err)
	assert.True(t, tx.Processed())
	assert.Equal(t, "CODE1", tx.VoucherCode)
}

func TestReconcile_RefreshesStalePending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.correlate(t, "ref-p")
	require.NoError(t, f.transactions.CreateIfAbsent(ctx, &models.Transaction{
		Reference:        "ref-p",
		Provider:         "airtel",
		Phone:            payer,
		CounterpartPhone: reseller,
		Amount:           decimal.NewFromInt(9000),
		Status:           "TIP",
		NormalizedStatus: models.PaymentPending,
		PaymentMethod:    models.CollectionMethod("airtel"),
	}))
	f.gateways.result = &provider.Result{Provider: "airtel", Reference: "ref-p", Status: provider.StatusSuccess, RawStatus: "TS"}
	f.svc.now = func() time.Time { return time.Now().Add(time.Hour) }

	report, err := f.svc.Reconcile(ctx, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Refreshed)

	tx, err := f.transactions.GetByReference(ctx, "ref-p")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, tx.NormalizedStatus)
	assert.True(t, tx.Processed())
	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(9000)))
	assert.Equal(t, 14*24*time.Hour, f.issuer.calls[0].validity)
}

func TestVerifySignature(t *testing.T) {
	raw := []byte(`{"a":1}`)
	sig := Sign("s", raw)

	assert.NoError(t, VerifySignature("s", raw, sig, ""))
	assert.NoError(t, VerifySignature("s", raw, "sha256="+sig, SignaturePrefix))
	assert.NoError(t, VerifySignature("s", raw, sig, SignaturePrefix), "prefix is optional")
	assert.ErrorIs(t, VerifySignature("", raw, sig, ""), apperrors.ErrSignatureInvalid)
	assert.ErrorIs(t, VerifySignature("s", []byte(`{"a":2}`), sig, ""), apperrors.ErrSignatureInvalid)
	assert.ErrorIs(t, VerifySignature("s", raw, "not-hex", ""), apperrors.ErrSignatureInvalid)
}
