package withdrawal

import "context"

// Service orchestrates withdrawals: it resolves the payout destination,
// records the ledger transaction, dispatches through the processor with
// the transaction id as the idempotency key, and deducts the wallet only
// after the processor has accepted the payout.
type Service interface {
	// Withdraw runs the full flow. A transport failure with an unknown
	// outcome leaves the transaction pending with no payout seal; the
	// sweep retries it later with the same key.
	Withdraw(ctx context.Context, req Request) (*Result, error)

	// Resume re-dispatches a pending withdrawal whose earlier dispatch
	// outcome is unknown. The original transaction id is reused as the
	// idempotency key, so the processor deduplicates against any payout
	// it already accepted.
	Resume(ctx context.Context, transactionID string) (*Result, error)

	// SyncStatus polls the processor for a dispatched withdrawal that has
	// not settled yet and applies the final state.
	SyncStatus(ctx context.Context, transactionID string) (*Result, error)

	// ApplyDeduction applies the wallet debit for a completed withdrawal
	// that has not had its balance applied, after a crash between
	// settlement and deduction. Idempotent.
	ApplyDeduction(ctx context.Context, transactionID string) error
}
