package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"momopay/internal/models"
	"momopay/internal/repositories"
	"momopay/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc      Service
	wallets  repositories.WalletRepository
	platform *models.Wallet
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t, repositories.Models()...)
	wallets := repositories.NewWalletRepository(db)

	platform := &models.Wallet{UserID: "platform", Phone: "platform", AllowOverdraft: true}
	require.NoError(t, wallets.Create(context.Background(), platform))

	return &fixture{
		svc:      NewService(repositories.NewLedgerRepository(db)),
		wallets:  wallets,
		platform: platform,
	}
}

func (f *fixture) wallet(t *testing.T, phone string, funded int64) *models.Wallet {
	t.Helper()
	ctx := context.Background()
	w := &models.Wallet{UserID: "user-" + phone, Phone: phone}
	require.NoError(t, f.wallets.Create(ctx, w))
	if funded > 0 {
		_, err := f.svc.Transfer(ctx, TransferRequest{
			From:      f.platform.ID,
			To:        w.ID,
			Amount:    decimal.NewFromInt(funded),
			Reference: "seed-" + phone,
		})
		require.NoError(t, err)
	}
	return w
}

func (f *fixture) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	w, err := f.wallets.GetByID(context.Background(), id)
	require.NoError(t, err)
	return w.Balance
}

func TestTransfer_PostsBalancedPair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reseller := f.wallet(t, "256700000001", 0)

	posting, err := f.svc.Transfer(ctx, TransferRequest{
		From:      f.platform.ID,
		To:        reseller.ID,
		Amount:    decimal.NewFromInt(5000),
		Reference: "ref-1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.Debit, posting.Debit.Direction)
	assert.Equal(t, models.Credit, posting.Credit.Direction)

	entries, err := f.svc.Entries(ctx, "ref-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Signed())
	}
	assert.True(t, sum.IsZero(), "entries under one reference net to zero")

	assert.True(t, f.balance(t, reseller.ID).Equal(decimal.NewFromInt(5000)))
	assert.True(t, f.balance(t, f.platform.ID).Equal(decimal.NewFromInt(-5000)))
}

func TestTransfer_SameReferenceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reseller := f.wallet(t, "256700000001", 0)

	req := TransferRequest{From: f.platform.ID, To: reseller.ID, Amount: decimal.NewFromInt(5000), Reference: "ref-dup"}
	_, err := f.svc.Transfer(ctx, req)
	require.NoError(t, err)

	_, err = f.svc.Transfer(ctx, req)
	assert.ErrorIs(t, err, ErrAlreadyPosted)

	entries, err := f.svc.Entries(ctx, "ref-dup")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.True(t, f.balance(t, reseller.ID).Equal(decimal.NewFromInt(5000)))
}

func TestTransfer_ConcurrentSameReferencePostsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reseller := f.wallet(t, "256700000001", 0)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Transfer(ctx, TransferRequest{
				From: f.platform.ID, To: reseller.ID, Amount: decimal.NewFromInt(1000), Reference: "ref-race",
			})
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrAlreadyPosted)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.True(t, f.balance(t, reseller.ID).Equal(decimal.NewFromInt(1000)))
}

func TestTransfer_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.wallet(t, "256700000002", 5000)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Transfer(ctx, TransferRequest{
				From: user.ID, To: f.platform.ID, Amount: decimal.NewFromInt(1000), Reference: fmt.Sprintf("debit-%d", i),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	ok, insufficient := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientFunds):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 5, ok)
	assert.Equal(t, 5, insufficient)
	assert.True(t, f.balance(t, user.ID).IsZero())
}

func TestTransfer_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.wallet(t, "256700000003", 100)
	frozen := f.wallet(t, "256700000004", 0)
	require.NoError(t, f.wallets.SetFrozen(ctx, frozen.ID, true))

	tests := []struct {
		name string
		req  TransferRequest
		want error
	}{
		{"zero amount", TransferRequest{From: user.ID, To: f.platform.ID, Amount: decimal.Zero, Reference: "a"}, ErrInvalidAmount},
		{"same wallet", TransferRequest{From: user.ID, To: user.ID, Amount: decimal.NewFromInt(1), Reference: "b"}, ErrSameWallet},
		{"insufficient", TransferRequest{From: user.ID, To: f.platform.ID, Amount: decimal.NewFromInt(101), Reference: "c"}, ErrInsufficientFunds},
		{"frozen", TransferRequest{From: f.platform.ID, To: frozen.ID, Amount: decimal.NewFromInt(1), Reference: "d"}, ErrWalletFrozen},
		{"missing wallet", TransferRequest{From: f.platform.ID, To: "missing", Amount: decimal.NewFromInt(1), Reference: "e"}, ErrWalletNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Transfer(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)

			entries, err := f.svc.Entries(ctx, tt.req.Reference)
			require.NoError(t, err)
			assert.Empty(t, entries, "failed transfer writes nothing")
		})
	}
	assert.True(t, f.balance(t, user.ID).Equal(decimal.NewFromInt(100)))
}

func TestReverse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.wallet(t, "256700000005", 20000)

	_, err := f.svc.Transfer(ctx, TransferRequest{From: user.ID, To: f.platform.ID, Amount: decimal.NewFromInt(20000), Reference: "withdrawal-1"})
	require.NoError(t, err)
	assert.True(t, f.balance(t, user.ID).IsZero())

	posting, err := f.svc.Reverse(ctx, "withdrawal-1")
	require.NoError(t, err)
	assert.Equal(t, "reversal:withdrawal-1", posting.Reference)
	assert.True(t, f.balance(t, user.ID).Equal(decimal.NewFromInt(20000)))

	_, err = f.svc.Reverse(ctx, "withdrawal-1")
	assert.ErrorIs(t, err, ErrAlreadyPosted)

	_, err = f.svc.Reverse(ctx, "never-posted")
	assert.ErrorIs(t, err, ErrNotPosted)
}

func TestPostEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.wallet(t, "256700000006", 0)

	_, err := f.svc.PostEntry(ctx, user.ID, decimal.NewFromInt(700), models.Credit, "adj-1")
	require.NoError(t, err)
	assert.True(t, f.balance(t, user.ID).Equal(decimal.NewFromInt(700)))

	_, err = f.svc.PostEntry(ctx, user.ID, decimal.NewFromInt(700), models.Credit, "adj-1")
	assert.ErrorIs(t, err, ErrAlreadyPosted)

	_, err = f.svc.PostEntry(ctx, user.ID, decimal.NewFromInt(701), models.Debit, "adj-2")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	history, err := f.svc.History(ctx, user.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
