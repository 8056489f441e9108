package withdrawal

import (
	"context"
	"fmt"
	"testing"

	"casita/internal/mocks"
	"casita/internal/models"
	"casita/internal/repositories"
	"casita/internal/services/identity"
	"casita/internal/services/payout"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockPayouts struct {
	mock.Mock
}

func (m *MockPayouts) Dispatch(ctx context.Context, req payout.DispatchRequest) (*payout.DispatchResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payout.DispatchResult), args.Error(1)
}

func (m *MockPayouts) QueryStatus(ctx context.Context, batchID string) (string, error) {
	args := m.Called(ctx, batchID)
	return args.String(0), args.Error(1)
}

type MockIdentities struct {
	mock.Mock
}

func (m *MockIdentities) Link(ctx context.Context, userID uint, role, authCode, redirectURI string) (*models.LinkedIdentity, error) {
	args := m.Called(ctx, userID, role, authCode, redirectURI)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LinkedIdentity), args.Error(1)
}

func (m *MockIdentities) Get(ctx context.Context, userID uint, role string) (*models.LinkedIdentity, error) {
	args := m.Called(ctx, userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LinkedIdentity), args.Error(1)
}

func (m *MockIdentities) Unlink(ctx context.Context, userID uint, role string) error {
	return m.Called(ctx, userID, role).Error(0)
}

func (m *MockIdentities) ResolveEmail(ctx context.Context, userID uint, role string) (string, error) {
	args := m.Called(ctx, userID, role)
	return args.String(0), args.Error(1)
}

func (m *MockIdentities) InvalidateTokens(ctx context.Context, userID uint, role string) error {
	return m.Called(ctx, userID, role).Error(0)
}

func setupLinkedHost(identities *MockIdentities) {
	identities.On("ResolveEmail", mock.Anything, uint(7), models.RoleHost).
		Return("host@example.com", nil)
}

func TestWithdraw(t *testing.T) {
	t.Run("successful withdrawal deducts after dispatch", func(t *testing.T) {
		ledger := new(mocks.LedgerRepository)
		payouts := new(MockPayouts)
		identities := new(MockIdentities)
		setupLinkedHost(identities)

		ledger.On("GetWalletByUserID", mock.Anything, uint(7)).
			Return(&models.Wallet{UserID: 7, Balance: 10000, Currency: "USD"}, nil)
		ledger.On("CreateTransaction", mock.Anything, mock.MatchedBy(func(tx *models.Transaction) bool {
			return tx.UserID == 7 && tx.Type == models.TransactionTypeWithdrawal && tx.Amount == 5000
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*models.Transaction).ID = "tx-1"
		}).Return(nil)
		payouts.On("Dispatch", mock.Anything, mock.MatchedBy(func(req payout.DispatchRequest) bool {
			return req.DestinationEmail == "host@example.com" &&
				req.Amount == 5000 && req.IdempotencyKey == "tx-1"
		})).Return(&payout.DispatchResult{
			PayoutID: "P1", BatchID: "B1", Status: models.PayoutStatusCompleted,
		}, nil)
		ledger.On("MarkCompleted", mock.Anything, "tx-1", repositories.PayoutFields{
			PayoutID: "P1", PayoutBatchID: "B1", PayoutStatus: models.PayoutStatusCompleted,
		}).Return(&models.Transaction{
			ID: "tx-1", UserID: 7, Amount: 5000, Currency: "USD",
			Status: models.TransactionStatusCompleted, PayoutStatus: models.PayoutStatusCompleted,
			PayoutID: "P1",
		}, nil)
		ledger.On("ApplyWithdrawalDeduction", mock.Anything, "tx-1").Return(true, nil)

		s := NewService(ledger, payouts, identities)
		res, err := s.Withdraw(context.Background(), Request{UserID: 7, Amount: "50.00"})

		assert.NoError(t, err)
		assert.Equal(t, models.TransactionStatusCompleted, res.Status)
		assert.Equal(t, "P1", res.PayoutID)
		assert.Equal(t, "50.00", res.Display)
		ledger.AssertExpectations(t)
		payouts.AssertExpectations(t)
	})

	t.Run("dispatch failure leaves the balance untouched", func(t *testing.T) {
		ledger := new(mocks.LedgerRepository)
		payouts := new(MockPayouts)
		identities := new(MockIdentities)
		setupLinkedHost(identities)

		ledger.On("GetWalletByUserID", mock.Anything, uint(7)).
			Return(&models.Wallet{UserID: 7, Balance: 10000, Currency: "USD"}, nil)
		ledger.On("CreateTransaction", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				args.Get(1).(*models.Transaction).ID = "tx-2"
			}).Return(nil)
		payouts.On("Dispatch", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: receiver not registered", payout.ErrPayoutFailed))
		ledger.On("MarkFailed", mock.Anything, "tx-2", mock.Anything).
			Return(&models.Transaction{ID: "tx-2", Status: models.TransactionStatusFailed}, nil)

		s := NewService(ledger, payouts, identities)
		_, err := s.Withdraw(context.Background(), Request{UserID: 7, Amount: "50.00"})

		assert.ErrorIs(t, err, payout.ErrPayoutFailed)
		ledger.AssertNotCalled(t, "ApplyWithdrawalDeduction", mock.Anything, mock.Anything)
		ledger.AssertNotCalled(t, "AddToBalance", mock.Anything, mock.Anything, mock.Anything)
		ledger.AssertExpectations(t)
	})

	t.Run("unknown outcome leaves the withdrawal pending", func(t *testing.T) {
		ledger := new(mocks.LedgerRepository)
		payouts := new(MockPayouts)
		identities := new(MockIdentities)
		setupLinkedHost(identities)

		ledger.On("GetWalletByUserID", mock.Anything, uint(7)).
			Return(&models.Wallet{UserID: 7, Balance: 10000, Currency: "USD"}, nil)
		ledger.On("CreateTransaction", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				tx := args.Get(1).(*models.Transaction)
				tx.ID = "tx-3"
				tx.Status = models.TransactionStatusPending
				tx.PayoutStatus = models.PayoutStatusPending
			}).Return(nil)
		payouts.On("Dispatch", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: i/o timeout", payout.ErrOutcomeUnknown))

		s := NewService(ledger, payouts, identities)
		res, err := s.Withdraw(context.Background(), Request{UserID: 7, Amount: "50.00"})

		assert.NoError(t, err)
		assert.Equal(t, models.TransactionStatusPending, res.Status)
		assert.Empty(t, res.PayoutID)
		ledger.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
		ledger.AssertNotCalled(t, "ApplyWithdrawalDeduction", mock.Anything, mock.Anything)
	})

	t.Run("insufficient balance records nothing", func(t *testing.T) {
		ledger := new(mocks.LedgerRepository)
		payouts := new(MockPayouts)
		identities := new(MockIdentities)
		setupLinkedHost(identities)

		ledger.On("GetWalletByUserID", mock.Anything, uint(7)).
			Return(&models.Wallet{UserID: 7, Balance: 1000, Currency: "USD"}, nil)

		s := NewService(ledger, payouts, identities)
		_, err := s.Withdraw(context.Background(), Request{UserID: 7, Amount: "50.00"})

		assert.ErrorIs(t, err, ErrInsufficientBalance)
		ledger.AssertNotCalled(t, "CreateTransaction", mock.Anything, mock.Anything)
		payouts.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	})

	t.Run("unlinked user cannot withdraw", func(t *testing.T) {
		ledger := new(mocks.LedgerRepository)
		identities := new(MockIdentities)
		identities.On("ResolveEmail", mock.Anything, uint(7), models.RoleHost).
			Return("", identity.ErrNotLinked)

		s := NewService(ledger, new(MockPayouts), identities)
		_, err := s.Withdraw(context.Background(), Request{UserID: 7, Amount: "50.00"})

		assert.ErrorIs(t, err, ErrNoLinkedIdentity)
		ledger.AssertNotCalled(t, "CreateTransaction", mock.Anything, mock.Anything)
	})

	t.Run("malformed amounts are rejected", func(t *testing.T) {
		s := NewService(new(mocks.LedgerRepository), new(MockPayouts), new(MockIdentities))
		for _, amount := range []string{"", "0", "-50.00", "12.345", "abc"} {
			_, err := s.Withdraw(context.Background(), Request{UserID: 7, Amount: amount})
			assert.ErrorIs(t, err, ErrInvalidAmount, "amount %q", amount)
		}
	})

	t.Run("unauthenticated caller", func(t *testing.T) {
		s := NewService(new(mocks.LedgerRepository), new(MockPayouts), new(MockIdentities))
		_, err := s.Withdraw(context.Background(), Request{Amount: "50.00"})
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestResume(t *testing.T) {
	t.Run("re-dispatches with the original transaction id", func(t *testing.T) {
		ledger := new(mocks.LedgerRepository)
		payouts := new(MockPayouts)

		ledger.On("GetTransaction", mock.Anything, "tx-9").
			Return(&models.Transaction{
				ID: "tx-9", UserID: 7, Type: models.TransactionTypeWithdrawal,
				Amount: 5000, Currency: "USD", Status: models.TransactionStatusPending,
				Metadata: models.NewJSON(map[string]interface{}{
					"role": models.RoleHost, "destination": "host@example.com",
				}),
			}, nil).Once()
		payouts.On("Dispatch", mock.Anything, mock.MatchedBy(func(req payout.DispatchRequest) bool {
			return req.IdempotencyKey == "tx-9" && req.DestinationEmail == "host@example.com"
		})).Return(&payout.DispatchResult{
			PayoutID: "P9", BatchID: "B9", Status: models.PayoutStatusCompleted,
		}, nil)
		ledger.On("MarkCompleted", mock.Anything, "tx-9", mock.Anything).
			Return(&models.Transaction{
				ID: "tx-9", UserID: 7, Amount: 5000,
				Status: models.TransactionStatusCompleted, PayoutID: "P9",
			}, nil)
		ledger.On("ApplyWithdrawalDeduction", mock.Anything, "tx-9").Return(true, nil)

		s := NewService(ledger, payouts, new(MockIdentities))
		res, err := s.Resume(context.Background(), "tx-9")

		assert.NoError(t, err)
		assert.Equal(t, "P9", res.PayoutID)
		payouts.AssertExpectations(t)
	})

	t.Run("sealed withdrawal is not re-dispatched", func(t *testing.T) {
		ledger := new(mocks.LedgerRepository)
		ledger.On("GetTransaction", mock.Anything, "tx-10").
			Return(&models.Transaction{
				ID: "tx-10", Type: models.TransactionTypeWithdrawal,
				Status: models.TransactionStatusPending, PayoutID: "P10",
			}, nil)

		s := NewService(ledger, new(MockPayouts), new(MockIdentities))
		_, err := s.Resume(context.Background(), "tx-10")
		assert.ErrorIs(t, err, ErrAlreadySettled)
	})
}

func TestSyncStatus(t *testing.T) {
	t.Run("settles an accepted withdrawal", func(t *testing.T) {
		ledger := new(mocks.LedgerRepository)
		payouts := new(MockPayouts)

		ledger.On("GetTransaction", mock.Anything, "tx-11").
			Return(&models.Transaction{
				ID: "tx-11", UserID: 7, Type: models.TransactionTypeWithdrawal,
				Amount: 5000, Status: models.TransactionStatusPending,
				PayoutID: "P11", PayoutBatchID: "B11",
				PayoutStatus: models.PayoutStatusPending, BalanceApplied: true,
			}, nil)
		payouts.On("QueryStatus", mock.Anything, "B11").
			Return(models.PayoutStatusCompleted, nil)
		ledger.On("MarkCompleted", mock.Anything, "tx-11", mock.Anything).
			Return(&models.Transaction{
				ID: "tx-11", Status: models.TransactionStatusCompleted, PayoutID: "P11",
			}, nil)

		s := NewService(ledger, payouts, new(MockIdentities))
		res, err := s.SyncStatus(context.Background(), "tx-11")

		assert.NoError(t, err)
		assert.Equal(t, models.TransactionStatusCompleted, res.Status)
	})

	t.Run("denied settlement refunds the debit", func(t *testing.T) {
		ledger := new(mocks.LedgerRepository)
		payouts := new(MockPayouts)

		ledger.On("GetTransaction", mock.Anything, "tx-12").
			Return(&models.Transaction{
				ID: "tx-12", UserID: 7, Type: models.TransactionTypeWithdrawal,
				Amount: 5000, Status: models.TransactionStatusPending,
				PayoutID: "P12", PayoutBatchID: "B12", BalanceApplied: true,
			}, nil)
		payouts.On("QueryStatus", mock.Anything, "B12").
			Return(models.PayoutStatusFailed, nil)
		ledger.On("MarkFailed", mock.Anything, "tx-12", mock.Anything).
			Return(&models.Transaction{ID: "tx-12", Status: models.TransactionStatusFailed}, nil)
		ledger.On("AddToBalance", mock.Anything, uint(7), int64(5000)).
			Return(&models.Wallet{UserID: 7, Balance: 10000}, nil)

		s := NewService(ledger, payouts, new(MockIdentities))
		res, err := s.SyncStatus(context.Background(), "tx-12")

		assert.NoError(t, err)
		assert.Equal(t, models.TransactionStatusFailed, res.Status)
		ledger.AssertExpectations(t)
	})
}
