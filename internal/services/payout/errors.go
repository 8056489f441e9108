package payout

import "errors"

var (
	// ErrInvalidDispatch covers a missing destination, non-positive
	// amount or empty idempotency key. Nothing was sent.
	ErrInvalidDispatch = errors.New("invalid dispatch request")

	// ErrPayoutFailed means the processor rejected or errored the payout.
	// The processor's message is attached; no caller state was mutated.
	ErrPayoutFailed = errors.New("payout failed")

	// ErrTokenExpired means the processor reported a dead credential.
	ErrTokenExpired = errors.New("processor token expired")

	// ErrOutcomeUnknown means the call timed out or the transport failed
	// after the request may have been accepted. It must not be treated
	// as a definite failure: the safe retry re-dispatches with the same
	// idempotency key.
	ErrOutcomeUnknown = errors.New("payout outcome unknown")
)
