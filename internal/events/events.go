// Package events carries transaction change notifications between the
// ledger and the auto-payout reconciler. Delivery is at-least-once; every
// consumer must tolerate duplicates.
package events

import (
	"context"
	"time"
)

const TransactionsTopic = "casita.transactions.created"

// TransactionCreated is emitted after a transaction row is durably
// persisted.
type TransactionCreated struct {
	TransactionID string    `json:"transaction_id"`
	UserID        uint      `json:"user_id"`
	Type          string    `json:"type"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// Publisher publishes ledger change events.
type Publisher interface {
	PublishTransactionCreated(ctx context.Context, evt TransactionCreated) error
	Close() error
}

// NoopPublisher discards events; used in tests and when the broker is not
// configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishTransactionCreated(context.Context, TransactionCreated) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }
