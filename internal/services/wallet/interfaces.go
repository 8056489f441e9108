package wallet

import (
	"context"

	"casita/internal/models"
)

// Service defines the main wallet service interface
type Service interface {
	// Core wallet operations
	GetWallet(ctx context.Context, userID uint) (*models.Wallet, error)
	EnsureWallet(ctx context.Context, userID uint, currency string) (*models.Wallet, error)

	// Balance operations
	GetBalance(ctx context.Context, userID uint) (*Balance, error)

	// Ledger-backed mutations
	Credit(ctx context.Context, req CreditRequest) (*models.Transaction, error)
	Debit(ctx context.Context, userID uint, amount int64) (*models.Wallet, error)

	// History
	History(ctx context.Context, userID uint, limit, offset int) ([]Entry, error)
}
