package paypal

import (
	"errors"
	"fmt"
)

var (
	// ErrTokenExpired means the processor rejected the credential; the
	// caller must invalidate cached tokens and force a re-link.
	ErrTokenExpired = errors.New("processor credential expired or invalid")
)

// APIError is a non-2xx response from the processor with its message
// preserved for the ledger record.
type APIError struct {
	StatusCode int
	Name       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("paypal: %s (%d): %s", e.Name, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("paypal: status %d: %s", e.StatusCode, e.Message)
}

// CredentialRejected reports whether the error names a dead token rather
// than a payout problem.
func (e *APIError) CredentialRejected() bool {
	return e.Name == ErrNameInvalidToken || e.Name == ErrNameAuthFailure
}
