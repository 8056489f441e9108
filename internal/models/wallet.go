package models

import (
	"time"
)

// Wallet holds a user's balance in integer minor units. The balance is
// never negative and is mutated only through the ledger repository's
// conditional update, never by read-then-write from application memory.
type Wallet struct {
	ID        uint   `gorm:"primarykey"`
	UserID    uint   `gorm:"uniqueIndex;not null"`
	Balance   int64  `gorm:"not null;default:0"` // minor units
	Currency  string `gorm:"size:3;default:'USD'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
