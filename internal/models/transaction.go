package models

import (
	"time"
)

// Transaction types
const (
	TransactionTypeDeposit    = "deposit"
	TransactionTypeWithdrawal = "withdrawal"
	TransactionTypePayment    = "payment"
	TransactionTypeReward     = "reward"
	TransactionTypeRefund     = "refund"
)

// Transaction lifecycle statuses. A transaction is created pending and
// leaves pending exactly once; it never reverts.
const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

// Processor-reported payout states, tracked separately from Status.
const (
	PayoutStatusPending    = "pending"
	PayoutStatusProcessing = "processing" // local claim held while a dispatch is in flight
	PayoutStatusCompleted  = "completed"
	PayoutStatusFailed     = "failed"
)

// Transaction is the ledger record. The ID is generated at creation and
// doubles as the processor idempotency key, so a non-empty PayoutID is a
// permanent seal: nothing may dispatch a second payout for the same record.
type Transaction struct {
	ID          string `gorm:"primaryKey;size:36"`
	UserID      uint   `gorm:"not null;index"`
	Type        string `gorm:"not null;index"`
	Amount      int64  `gorm:"not null"` // minor units, always > 0
	Currency    string `gorm:"size:3;default:'USD'"`
	Description string
	Status      string `gorm:"not null;default:'pending';index"`

	// Payout fields, written once by the dispatcher paths.
	PayoutStatus  string `gorm:"index"`
	PayoutID      string `gorm:"index"`
	PayoutBatchID string
	PayoutError   string

	// BalanceApplied marks that the wallet debit for a completed withdrawal
	// has been executed, so the sweep can finish a run that crashed between
	// marking the transaction completed and deducting the balance.
	BalanceApplied bool `gorm:"default:false"`

	BookingID *uint `gorm:"index"` // set for host-earnings transactions
	Metadata  JSON  `gorm:"type:jsonb"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
