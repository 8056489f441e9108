package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"casita/internal/models"
	"casita/internal/observability"
	"casita/internal/repositories"
	"casita/internal/services/identity"
	"casita/internal/services/money"
	"casita/internal/services/payout"
)

type service struct {
	ledger     repositories.LedgerRepository
	payouts    payout.Service
	identities identity.Service
}

func NewService(ledger repositories.LedgerRepository, payouts payout.Service, identities identity.Service) Service {
	if ledger == nil || payouts == nil || identities == nil {
		panic("ledger, payout and identity services are required")
	}
	return &service{
		ledger:     ledger,
		payouts:    payouts,
		identities: identities,
	}
}

func (s *service) Withdraw(ctx context.Context, req Request) (*Result, error) {
	if req.UserID == 0 {
		return nil, ErrUnauthenticated
	}
	amount, err := money.ToMinorUnits(req.Amount)
	if err != nil || amount == 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, req.Amount)
	}
	role := req.Role
	if role == "" {
		role = models.RoleHost
	}

	email, err := s.identities.ResolveEmail(ctx, req.UserID, role)
	if err != nil {
		if errors.Is(err, identity.ErrNotLinked) || errors.Is(err, identity.ErrNoEmail) {
			return nil, ErrNoLinkedIdentity
		}
		return nil, fmt.Errorf("resolving payout destination: %w", err)
	}

	// The balance is checked before any record is written so an obviously
	// unfunded request leaves no trace. The conditional debit after
	// dispatch still guards against concurrent spends in the gap.
	wallet, err := s.ledger.GetWalletByUserID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrInsufficientBalance
		}
		return nil, err
	}
	if wallet.Balance < amount {
		return nil, ErrInsufficientBalance
	}

	description := req.Description
	if description == "" {
		description = "Wallet withdrawal"
	}
	tx := &models.Transaction{
		UserID:      req.UserID,
		Type:        models.TransactionTypeWithdrawal,
		Amount:      amount,
		Currency:    wallet.Currency,
		Description: description,
		Metadata: models.NewJSON(map[string]interface{}{
			"role":        role,
			"destination": email,
		}),
	}
	if err := s.ledger.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("recording withdrawal: %w", err)
	}

	return s.dispatch(ctx, tx, email)
}

func (s *service) Resume(ctx context.Context, transactionID string) (*Result, error) {
	tx, err := s.ledger.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.Type != models.TransactionTypeWithdrawal {
		return nil, ErrNotWithdrawal
	}
	if tx.Status != models.TransactionStatusPending || tx.PayoutID != "" {
		return nil, ErrAlreadySettled
	}

	email := metadataString(tx, "destination")
	if email == "" {
		role := metadataString(tx, "role")
		if role == "" {
			role = models.RoleHost
		}
		email, err = s.identities.ResolveEmail(ctx, tx.UserID, role)
		if err != nil {
			if errors.Is(err, identity.ErrNotLinked) || errors.Is(err, identity.ErrNoEmail) {
				return nil, ErrNoLinkedIdentity
			}
			return nil, fmt.Errorf("resolving payout destination: %w", err)
		}
	}
	return s.dispatch(ctx, tx, email)
}

func (s *service) SyncStatus(ctx context.Context, transactionID string) (*Result, error) {
	tx, err := s.ledger.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.Type != models.TransactionTypeWithdrawal {
		return nil, ErrNotWithdrawal
	}
	if tx.Status != models.TransactionStatusPending || tx.PayoutBatchID == "" {
		return result(tx), nil
	}

	status, err := s.payouts.QueryStatus(ctx, tx.PayoutBatchID)
	if err != nil {
		return nil, fmt.Errorf("querying payout status: %w", err)
	}

	switch status {
	case models.PayoutStatusCompleted:
		updated, err := s.ledger.MarkCompleted(ctx, tx.ID, repositories.PayoutFields{
			PayoutID:      tx.PayoutID,
			PayoutBatchID: tx.PayoutBatchID,
			PayoutStatus:  models.PayoutStatusCompleted,
		})
		if err != nil {
			return nil, err
		}
		return result(updated), nil

	case models.PayoutStatusFailed:
		updated, err := s.ledger.MarkFailed(ctx, tx.ID, "payout denied by processor")
		if err != nil {
			return nil, err
		}
		// The wallet was debited when the processor accepted the
		// dispatch; a later denial returns the money.
		if tx.BalanceApplied {
			if _, err := s.ledger.AddToBalance(ctx, tx.UserID, tx.Amount); err != nil {
				slog.Error("refund after denied payout failed",
					"transaction_id", tx.ID, "error", err)
			}
		}
		return result(updated), nil
	}

	return result(tx), nil
}

func (s *service) ApplyDeduction(ctx context.Context, transactionID string) error {
	applied, err := s.ledger.ApplyWithdrawalDeduction(ctx, transactionID)
	if err != nil {
		return err
	}
	if applied {
		slog.Info("applied recovered withdrawal deduction", "transaction_id", transactionID)
	}
	return nil
}

// dispatch sends the payout using the transaction id as the idempotency
// key and applies the outcome. Only three outcomes exist: accepted (debit
// the wallet), rejected (fail the transaction, wallet untouched), unknown
// (leave everything pending for the sweep).
func (s *service) dispatch(ctx context.Context, tx *models.Transaction, email string) (*Result, error) {
	res, err := s.payouts.Dispatch(ctx, payout.DispatchRequest{
		DestinationEmail: email,
		Amount:           tx.Amount,
		Currency:         tx.Currency,
		Description:      tx.Description,
		IdempotencyKey:   tx.ID,
	})
	if err != nil {
		if errors.Is(err, payout.ErrOutcomeUnknown) {
			observability.PayoutDispatches.WithLabelValues("withdrawal", "unknown").Inc()
			slog.Warn("withdrawal dispatch outcome unknown, leaving pending",
				"transaction_id", tx.ID, "error", err)
			return result(tx), nil
		}
		observability.PayoutDispatches.WithLabelValues("withdrawal", "failure").Inc()
		if _, ferr := s.ledger.MarkFailed(ctx, tx.ID, err.Error()); ferr != nil {
			slog.Error("marking withdrawal failed", "transaction_id", tx.ID, "error", ferr)
		}
		return nil, fmt.Errorf("withdrawal dispatch: %w", err)
	}

	fields := repositories.PayoutFields{
		PayoutID:      res.PayoutID,
		PayoutBatchID: res.BatchID,
		PayoutStatus:  res.Status,
	}
	var updated *models.Transaction
	if res.Status == models.PayoutStatusCompleted {
		updated, err = s.ledger.MarkCompleted(ctx, tx.ID, fields)
	} else {
		// Accepted but not settled. Seal the payout id now; settlement
		// arrives via SyncStatus.
		if err = s.ledger.SetPayoutResult(ctx, tx.ID, fields); err == nil {
			updated, err = s.ledger.GetTransaction(ctx, tx.ID)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("recording payout result: %w", err)
	}
	observability.PayoutDispatches.WithLabelValues("withdrawal", "success").Inc()

	// The processor has accepted the payout; the money has left.
	if _, err := s.ledger.ApplyWithdrawalDeduction(ctx, updated.ID); err != nil {
		// The withdrawal itself succeeded. The sweep retries the debit.
		slog.Error("withdrawal deduction failed, sweep will retry",
			"transaction_id", updated.ID, "error", err)
	}
	return result(updated), nil
}

func result(tx *models.Transaction) *Result {
	return &Result{
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		Amount:        tx.Amount,
		Display:       money.ToDisplay(tx.Amount),
		Currency:      tx.Currency,
		Status:        tx.Status,
		PayoutStatus:  tx.PayoutStatus,
		PayoutID:      tx.PayoutID,
	}
}

func metadataString(tx *models.Transaction, key string) string {
	if tx.Metadata == nil {
		return ""
	}
	if v, ok := tx.Metadata[key].(string); ok {
		return v
	}
	return ""
}
