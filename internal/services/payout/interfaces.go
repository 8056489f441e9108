package payout

import (
	"context"

	"casita/internal/paypal"
)

// ProcessorClient is the slice of the payment-processor API the dispatcher
// consumes. *paypal.Client satisfies it.
type ProcessorClient interface {
	CreatePayout(ctx context.Context, receiver, value, currency, note, senderItemID string) (*paypal.BatchResult, error)
	GetPayoutStatus(ctx context.Context, batchID string) (*paypal.BatchResult, error)
}

// Service dispatches payouts to the external processor and normalizes its
// responses.
type Service interface {
	// Dispatch issues a payout using req.IdempotencyKey as the
	// processor's item-level dedupe key. A retried call for a key the
	// processor already accepted returns the original batch rather than
	// paying twice.
	Dispatch(ctx context.Context, req DispatchRequest) (*DispatchResult, error)

	// QueryStatus polls the processor for the settlement state of a
	// previously dispatched batch.
	QueryStatus(ctx context.Context, batchID string) (string, error)
}
