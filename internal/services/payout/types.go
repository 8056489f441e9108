package payout

// DispatchRequest describes a single payout.
type DispatchRequest struct {
	DestinationEmail string
	Amount           int64 // minor units
	Currency         string
	Description      string
	// IdempotencyKey is the transaction id. It is the single most
	// important field here: the processor collapses duplicate dispatches
	// for the same key into one payout.
	IdempotencyKey string
}

// DispatchResult is the normalized processor response.
type DispatchResult struct {
	PayoutID string
	BatchID  string
	// Status is a ledger payout status: completed when the processor
	// settled synchronously, pending when it accepted the batch for
	// asynchronous processing.
	Status string
}
