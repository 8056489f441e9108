package repositories

import (
	"context"
	"errors"
	"time"

	"casita/internal/models"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
)

// PayoutFields carries the processor's normalized dispatch result for
// writing back onto a transaction.
type PayoutFields struct {
	PayoutID      string
	PayoutBatchID string
	PayoutStatus  string
}

// LedgerRepository is the single source of truth for transactions and
// wallet balances. Balance mutation happens only here, as a conditional
// update executed by the database, never as a read-then-write pair.
type LedgerRepository interface {
	// CreateTransaction assigns an id, forces status to pending and
	// persists the record before any external call is made.
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	// GetTransactionByProcessorRef finds the transaction recorded for an
	// external payment reference, for idempotent capture.
	GetTransactionByProcessorRef(ctx context.Context, ref string) (*models.Transaction, error)

	// MarkCompleted and MarkFailed move a transaction out of pending
	// exactly once. Calling either again is a no-op that returns the
	// state set by the first call, so retries are harmless.
	MarkCompleted(ctx context.Context, id string, payout PayoutFields) (*models.Transaction, error)
	MarkFailed(ctx context.Context, id string, payoutErr string) (*models.Transaction, error)

	// ClaimPayout atomically claims a transaction for payout processing.
	// It succeeds only while the payout seal (PayoutID) is empty and no
	// other worker holds the claim; the second of two concurrent
	// deliveries gets false.
	ClaimPayout(ctx context.Context, id string) (bool, error)
	SetPayoutResult(ctx context.Context, id string, payout PayoutFields) error
	SetPayoutFailure(ctx context.Context, id string, payoutErr string) error

	// ApplyWithdrawalDeduction debits the wallet for a settled withdrawal
	// and records that the debit ran, in one database transaction. It
	// returns false when the deduction was already applied, so retries
	// and the crash-recovery sweep cannot debit twice.
	ApplyWithdrawalDeduction(ctx context.Context, id string) (bool, error)

	CreateWallet(ctx context.Context, userID uint, currency string) (*models.Wallet, error)
	GetWalletByUserID(ctx context.Context, userID uint) (*models.Wallet, error)

	// AddToBalance applies delta atomically and fails with
	// ErrInsufficientFunds if the result would be negative.
	AddToBalance(ctx context.Context, userID uint, delta int64) (*models.Wallet, error)

	ListTransactionsByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, error)

	// Sweep queries.
	ListUnpaidEligible(ctx context.Context, limit int) ([]models.Transaction, error)
	ListUndeductedWithdrawals(ctx context.Context, limit int) ([]models.Transaction, error)
	// ListStalePendingWithdrawals finds withdrawals whose dispatch outcome
	// is unknown (still pending, no payout seal, older than the cutoff);
	// re-dispatching them with the original idempotency key is safe.
	ListStalePendingWithdrawals(ctx context.Context, olderThan time.Time, limit int) ([]models.Transaction, error)
	// ListUnsettledDispatchedWithdrawals finds withdrawals the processor
	// accepted but has not settled; the sweep polls their batch status.
	ListUnsettledDispatchedWithdrawals(ctx context.Context, limit int) ([]models.Transaction, error)
	ListFailedPayouts(ctx context.Context, limit, offset int) ([]models.Transaction, error)
}
