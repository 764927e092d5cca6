package ledger

import (
	"context"

	"momopay/internal/models"

	"github.com/shopspring/decimal"
)

// ReversalPrefix marks the reference of a compensating transfer.
const ReversalPrefix = "reversal:"

// Service posts balanced, idempotent movements between wallets.
type Service interface {
	// Transfer debits From and credits To under one reference, atomically.
	Transfer(ctx context.Context, req TransferRequest) (*Posting, error)
	// PostEntry applies a single-sided entry to one wallet.
	PostEntry(ctx context.Context, walletID string, amount decimal.Decimal, direction models.EntryDirection, reference string) (*models.LedgerEntry, error)
	// Reverse posts the mirror of reference under ReversalPrefix+reference.
	Reverse(ctx context.Context, reference string) (*Posting, error)
	Entries(ctx context.Context, reference string) ([]models.LedgerEntry, error)
	History(ctx context.Context, walletID string, limit, offset int) ([]models.LedgerEntry, error)
}

type TransferRequest struct {
	From      string
	To        string
	Amount    decimal.Decimal
	Reference string
}

// Posting is the pair of entries written by a transfer.
type Posting struct {
	Reference string
	Debit     models.LedgerEntry
	Credit    models.LedgerEntry
}
