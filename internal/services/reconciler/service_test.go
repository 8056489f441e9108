package reconciler

import (
	"context"
	"errors"
	"testing"
	"time"

	"casita/internal/events"
	"casita/internal/mocks"
	"casita/internal/models"
	"casita/internal/repositories"
	"casita/internal/services/identity"
	"casita/internal/services/payout"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockSettings struct {
	mock.Mock
}

func (m *MockSettings) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockSettings) Set(ctx context.Context, key, value string) error {
	return m.Called(ctx, key, value).Error(0)
}

func (m *MockSettings) ResolvePayoutRecipient(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

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

func bookingID(id uint) *uint { return &id }

// hostEarningTx is a settled booking earning awaiting payout to the host.
func hostEarningTx(id string) *models.Transaction {
	return &models.Transaction{
		ID:           id,
		UserID:       7,
		Type:         models.TransactionTypeDeposit,
		Amount:       5000,
		Currency:     "USD",
		Status:       models.TransactionStatusCompleted,
		PayoutStatus: models.PayoutStatusPending,
		BookingID:    bookingID(42),
	}
}

// subscriptionTx is a settled subscription payment owed to the platform.
func subscriptionTx(id string) *models.Transaction {
	return &models.Transaction{
		ID:           id,
		UserID:       9,
		Type:         models.TransactionTypePayment,
		Amount:       1500,
		Currency:     "USD",
		Description:  "Monthly host subscription",
		Status:       models.TransactionStatusCompleted,
		PayoutStatus: models.PayoutStatusPending,
	}
}

func newTestService(ledger *mocks.LedgerRepository, settings *MockSettings, payouts *MockPayouts, identities *MockIdentities) *Service {
	return NewService(ledger, settings, payouts, identities, nil, Config{})
}

func TestHandleTransactionCreated(t *testing.T) {
	t.Run("host earning is paid to the host identity", func(t *testing.T) {
		ledger := new(mocks.LedgerRepository)
		settings := new(MockSettings)
		payouts := new(MockPayouts)
		identities := new(MockIdentities)

		ledger.On("GetTransaction", mock.Anything, "tx-1").Return(hostEarningTx("tx-1"), nil)
		identities.On("ResolveEmail", mock.Anything, uint(7), models.RoleHost).
			Return("host@example.com", nil)
		ledger.On("ClaimPayout", mock.Anything, "tx-1").Return(true, nil)
		payouts.On("Dispatch", mock.Anything, mock.MatchedBy(func(req payout.DispatchRequest) bool {
			return req.DestinationEmail == "host@example.com" &&
				req.Amount == 5000 && req.IdempotencyKey == "tx-1"
		})).Return(&payout.DispatchResult{
			PayoutID: "P1", BatchID: "B1", Status: models.PayoutStatusCompleted,
		}, nil)
		ledger.On("SetPayoutResult", mock.Anything, "tx-1", repositories.PayoutFields{
			PayoutID: "P1", PayoutBatchID: "B1", PayoutStatus: models.PayoutStatusCompleted,
		}).Return(nil)

		s := newTestService(ledger, settings, payouts, identities)
		err := s.HandleTransactionCreated(context.Background(), events.TransactionCreated{TransactionID: "tx-1"})

		assert.NoError(t, err)
		ledger.AssertExpectations(t)
		payouts.AssertExpectations(t)
		settings.AssertNotCalled(t, "ResolvePayoutRecipient", mock.Anything)
	})

	t.Run("subscription payment is paid to the platform recipient", func(t *testing.T) {
		ledger := new(mocks.LedgerRepository)
		settings := new(MockSettings)
		payouts := new(MockPayouts)
		identities := new(MockIdentities)

		ledger.On("GetTransaction", mock.Anything, "tx-6").Return(subscriptionTx("tx-6"), nil)
		settings.On("ResolvePayoutRecipient", mock.Anything).Return("owner@example.com", nil)
		ledger.On("ClaimPayout", mock.Anything, "tx-6").Return(true, nil)
		payouts.On("Dispatch", mock.Anything, mock.MatchedBy(func(req payout.DispatchRequest) bool {
			return req.DestinationEmail == "owner@example.com" && req.IdempotencyKey == "tx-6"
		})).Return(&payout.DispatchResult{
			PayoutID: "P6", BatchID: "B6", Status: models.PayoutStatusCompleted,
		}, nil)
		ledger.On("SetPayoutResult", mock.Anything, "tx-6", mock.Anything).Return(nil)

		s := newTestService(ledger, settings, payouts, identities)
		assert.NoError(t, s.HandleTransactionCreated(context.Background(), events.TransactionCreated{TransactionID: "tx-6"}))
		payouts.AssertExpectations(t)
		identities.AssertNotCalled(t, "ResolveEmail", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("duplicate delivery dispatches only once", func(t *testing.T) {
		ledger := new(mocks.LedgerRepository)
		settings := new(MockSettings)
		payouts := new(MockPayouts)
		identities := new(MockIdentities)

		ledger.On("GetTransaction", mock.Anything, "tx-2").Return(hostEarningTx("tx-2"), nil)
		identities.On("ResolveEmail", mock.Anything, uint(7), models.RoleHost).
			Return("host@example.com", nil)
		// Second delivery loses the claim race.
		ledger.On("ClaimPayout", mock.Anything, "tx-2").Return(true, nil).Once()
		ledger.On("ClaimPayout", mock.Anything, "tx-2").Return(false, nil).Once()
		payouts.On("Dispatch", mock.Anything, mock.Anything).
			Return(&payout.DispatchResult{PayoutID: "P2", BatchID: "B2", Status: models.PayoutStatusCompleted}, nil).
			Once()
		ledger.On("SetPayoutResult", mock.Anything, "tx-2", mock.Anything).Return(nil)

		s := newTestService(ledger, settings, payouts, identities)
		evt := events.TransactionCreated{TransactionID: "tx-2"}
		assert.NoError(t, s.HandleTransactionCreated(context.Background(), evt))
		assert.NoError(t, s.HandleTransactionCreated(context.Background(), evt))

		payouts.AssertNumberOfCalls(t, "Dispatch", 1)
	})

	t.Run("unlinked host defers without claiming", func(t *testing.T) {
		ledger := new(mocks.LedgerRepository)
		settings := new(MockSettings)
		payouts := new(MockPayouts)
		identities := new(MockIdentities)

		ledger.On("GetTransaction", mock.Anything, "tx-3").Return(hostEarningTx("tx-3"), nil)
		identities.On("ResolveEmail", mock.Anything, uint(7), models.RoleHost).
			Return("", identity.ErrNotLinked)

		s := newTestService(ledger, settings, payouts, identities)
		assert.NoError(t, s.HandleTransactionCreated(context.Background(), events.TransactionCreated{TransactionID: "tx-3"}))

		ledger.AssertNotCalled(t, "ClaimPayout", mock.Anything, mock.Anything)
		payouts.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	})

	t.Run("no platform recipient configured defers without claiming", func(t *testing.T) {
		ledger := new(mocks.LedgerRepository)
		settings := new(MockSettings)
		payouts := new(MockPayouts)
		identities := new(MockIdentities)

		ledger.On("GetTransaction", mock.Anything, "tx-7").Return(subscriptionTx("tx-7"), nil)
		settings.On("ResolvePayoutRecipient", mock.Anything).
			Return("", repositories.ErrPayoutRecipientNotConfigured)

		s := newTestService(ledger, settings, payouts, identities)
		assert.NoError(t, s.HandleTransactionCreated(context.Background(), events.TransactionCreated{TransactionID: "tx-7"}))

		ledger.AssertNotCalled(t, "ClaimPayout", mock.Anything, mock.Anything)
		payouts.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	})

	t.Run("dispatch failure is recorded and absorbed", func(t *testing.T) {
		ledger := new(mocks.LedgerRepository)
		settings := new(MockSettings)
		payouts := new(MockPayouts)
		identities := new(MockIdentities)

		ledger.On("GetTransaction", mock.Anything, "tx-4").Return(hostEarningTx("tx-4"), nil)
		identities.On("ResolveEmail", mock.Anything, uint(7), models.RoleHost).
			Return("host@example.com", nil)
		ledger.On("ClaimPayout", mock.Anything, "tx-4").Return(true, nil)
		payouts.On("Dispatch", mock.Anything, mock.Anything).
			Return(nil, errors.New("processor rejected"))
		ledger.On("SetPayoutFailure", mock.Anything, "tx-4", mock.Anything).Return(nil)

		s := newTestService(ledger, settings, payouts, identities)
		assert.NoError(t, s.HandleTransactionCreated(context.Background(), events.TransactionCreated{TransactionID: "tx-4"}))
		ledger.AssertExpectations(t)
	})

	t.Run("ineligible transactions are skipped", func(t *testing.T) {
		for name, tx := range map[string]*models.Transaction{
			"still pending":            {ID: "a", Type: models.TransactionTypeDeposit, Status: models.TransactionStatusPending, PayoutStatus: models.PayoutStatusPending, BookingID: bookingID(1)},
			"deposit without booking":  {ID: "b", Type: models.TransactionTypeDeposit, Status: models.TransactionStatusCompleted, PayoutStatus: models.PayoutStatusPending},
			"reward":                   {ID: "c", Type: models.TransactionTypeReward, Status: models.TransactionStatusCompleted, PayoutStatus: models.PayoutStatusPending},
			"withdrawal":               {ID: "d", Type: models.TransactionTypeWithdrawal, Status: models.TransactionStatusCompleted, PayoutStatus: models.PayoutStatusPending},
			"non-subscription payment": {ID: "e", Type: models.TransactionTypePayment, Status: models.TransactionStatusCompleted, PayoutStatus: models.PayoutStatusPending, Description: "booking fee"},
			"already sealed":           {ID: "f", Type: models.TransactionTypeDeposit, Status: models.TransactionStatusCompleted, PayoutStatus: models.PayoutStatusCompleted, BookingID: bookingID(1), PayoutID: "P"},
		} {
			t.Run(name, func(t *testing.T) {
				ledger := new(mocks.LedgerRepository)
				payouts := new(MockPayouts)
				ledger.On("GetTransaction", mock.Anything, tx.ID).Return(tx, nil)

				s := newTestService(ledger, new(MockSettings), payouts, new(MockIdentities))
				assert.NoError(t, s.HandleTransactionCreated(context.Background(), events.TransactionCreated{TransactionID: tx.ID}))
				payouts.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("failed payout waits for manual remediation", func(t *testing.T) {
		ledger := new(mocks.LedgerRepository)
		payouts := new(MockPayouts)
		identities := new(MockIdentities)

		failed := hostEarningTx("tx-8")
		failed.PayoutStatus = models.PayoutStatusFailed
		ledger.On("GetTransaction", mock.Anything, "tx-8").Return(failed, nil)

		s := newTestService(ledger, new(MockSettings), payouts, identities)
		evt := events.TransactionCreated{TransactionID: "tx-8"}
		assert.NoError(t, s.HandleTransactionCreated(context.Background(), evt))
		// Re-delivered events must not re-dispatch a failed payout.
		assert.NoError(t, s.HandleTransactionCreated(context.Background(), evt))

		identities.AssertNotCalled(t, "ResolveEmail", mock.Anything, mock.Anything, mock.Anything)
		ledger.AssertNotCalled(t, "ClaimPayout", mock.Anything, mock.Anything)
		payouts.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	})

	t.Run("missing transaction is ignored", func(t *testing.T) {
		ledger := new(mocks.LedgerRepository)
		ledger.On("GetTransaction", mock.Anything, "gone").
			Return(nil, repositories.ErrTransactionNotFound)

		s := newTestService(ledger, new(MockSettings), new(MockPayouts), new(MockIdentities))
		assert.NoError(t, s.HandleTransactionCreated(context.Background(), events.TransactionCreated{TransactionID: "gone"}))
	})
}

func TestSweep(t *testing.T) {
	t.Run("re-dispatches a stuck processing claim", func(t *testing.T) {
		ledger := new(mocks.LedgerRepository)
		settings := new(MockSettings)
		payouts := new(MockPayouts)
		identities := new(MockIdentities)

		stuck := hostEarningTx("tx-5")
		stuck.PayoutStatus = models.PayoutStatusProcessing
		ledger.On("ListUnpaidEligible", mock.Anything, 100).
			Return([]models.Transaction{*stuck}, nil)
		identities.On("ResolveEmail", mock.Anything, uint(7), models.RoleHost).
			Return("host@example.com", nil)
		payouts.On("Dispatch", mock.Anything, mock.MatchedBy(func(req payout.DispatchRequest) bool {
			return req.IdempotencyKey == "tx-5"
		})).Return(&payout.DispatchResult{PayoutID: "P5", BatchID: "B5", Status: models.PayoutStatusCompleted}, nil)
		ledger.On("SetPayoutResult", mock.Anything, "tx-5", mock.Anything).Return(nil)

		s := newTestService(ledger, settings, payouts, identities)
		stats, err := s.Sweep(context.Background())

		assert.NoError(t, err)
		assert.Equal(t, 1, stats.EarningsPaid)
		// No claim needed; the processing row is a crashed claim.
		ledger.AssertNotCalled(t, "ClaimPayout", mock.Anything, mock.Anything)
	})

	t.Run("empty sweep does nothing", func(t *testing.T) {
		ledger := new(mocks.LedgerRepository)
		ledger.On("ListUnpaidEligible", mock.Anything, 100).
			Return([]models.Transaction{}, nil)

		s := newTestService(ledger, new(MockSettings), new(MockPayouts), new(MockIdentities))
		stats, err := s.Sweep(context.Background())

		assert.NoError(t, err)
		assert.Equal(t, SweepStats{}, stats)
	})
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval)
	assert.Equal(t, 10*time.Minute, cfg.StaleAfter)
	assert.Equal(t, 100, cfg.BatchSize)
}
