package wallet

import (
	"context"
	"time"

	"casita/internal/models"
)

// Config holds configuration for wallet operations.
type Config struct {
	DefaultCurrency string
	// MaxCreditAmount caps a single credit, in minor units. Zero means
	// no cap.
	MaxCreditAmount int64
}

// CreditRequest describes a single wallet credit backed by a ledger
// transaction.
type CreditRequest struct {
	UserID      uint
	Amount      int64 // minor units, must be positive
	Type        string
	Description string
	BookingID   *uint
	Metadata    map[string]interface{}
}

// Balance is a wallet balance read, formatted for display.
type Balance struct {
	UserID   uint   `json:"user_id"`
	Amount   int64  `json:"amount"`
	Display  string `json:"display"`
	Currency string `json:"currency"`
}

// Entry is a transaction history row with display formatting applied.
type Entry struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Amount       int64     `json:"amount"`
	Display      string    `json:"display"`
	Currency     string    `json:"currency"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	PayoutStatus string    `json:"payout_status,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// MetricsCollector defines the interface for collecting wallet metrics.
type MetricsCollector interface {
	RecordOperationDuration(operation string, duration time.Duration)
	RecordOperationResult(operation, result string)
	RecordCacheHit(key string)
	RecordCacheMiss(key string)
	RecordBalanceChange(userID uint, delta int64)
}

// Cache defines the caching operations the service needs. The redis cache
// service satisfies it.
type Cache interface {
	GetWallet(ctx context.Context, userID uint) (*models.Wallet, error)
	CacheWallet(ctx context.Context, wallet *models.Wallet) error
	InvalidateWallet(ctx context.Context, userID uint) error
}
