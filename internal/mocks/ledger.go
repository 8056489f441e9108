// Package mocks provides shared testify mocks for repository interfaces.
package mocks

import (
	"context"
	"time"

	"casita/internal/models"
	"casita/internal/repositories"

	"github.com/stretchr/testify/mock"
)

type LedgerRepository struct {
	mock.Mock
}

func (m *LedgerRepository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *LedgerRepository) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *LedgerRepository) GetTransactionByProcessorRef(ctx context.Context, ref string) (*models.Transaction, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *LedgerRepository) MarkCompleted(ctx context.Context, id string, payout repositories.PayoutFields) (*models.Transaction, error) {
	args := m.Called(ctx, id, payout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *LedgerRepository) MarkFailed(ctx context.Context, id string, payoutErr string) (*models.Transaction, error) {
	args := m.Called(ctx, id, payoutErr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *LedgerRepository) ClaimPayout(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *LedgerRepository) SetPayoutResult(ctx context.Context, id string, payout repositories.PayoutFields) error {
	return m.Called(ctx, id, payout).Error(0)
}

func (m *LedgerRepository) SetPayoutFailure(ctx context.Context, id string, payoutErr string) error {
	return m.Called(ctx, id, payoutErr).Error(0)
}

func (m *LedgerRepository) ApplyWithdrawalDeduction(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *LedgerRepository) CreateWallet(ctx context.Context, userID uint, currency string) (*models.Wallet, error) {
	args := m.Called(ctx, userID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *LedgerRepository) GetWalletByUserID(ctx context.Context, userID uint) (*models.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *LedgerRepository) AddToBalance(ctx context.Context, userID uint, delta int64) (*models.Wallet, error) {
	args := m.Called(ctx, userID, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *LedgerRepository) ListTransactionsByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Transaction), args.Error(1)
}

func (m *LedgerRepository) ListUnpaidEligible(ctx context.Context, limit int) ([]models.Transaction, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Transaction), args.Error(1)
}

func (m *LedgerRepository) ListUndeductedWithdrawals(ctx context.Context, limit int) ([]models.Transaction, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Transaction), args.Error(1)
}

func (m *LedgerRepository) ListStalePendingWithdrawals(ctx context.Context, olderThan time.Time, limit int) ([]models.Transaction, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Transaction), args.Error(1)
}

func (m *LedgerRepository) ListUnsettledDispatchedWithdrawals(ctx context.Context, limit int) ([]models.Transaction, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Transaction), args.Error(1)
}

func (m *LedgerRepository) ListFailedPayouts(ctx context.Context, limit, offset int) ([]models.Transaction, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Transaction), args.Error(1)
}
