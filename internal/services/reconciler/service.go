package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"casita/internal/events"
	"casita/internal/models"
	"casita/internal/observability"
	"casita/internal/repositories"
	"casita/internal/services/identity"
	"casita/internal/services/payout"
	"casita/internal/services/withdrawal"
)

// Service forwards eligible platform earnings to the configured payout
// recipient and repairs interrupted flows through a periodic sweep. It
// never mutates wallet balances; it only reads the ledger and writes
// payout state.
type Service struct {
	ledger      repositories.LedgerRepository
	settings    repositories.SettingsRepository
	payouts     payout.Service
	identities  identity.Service
	withdrawals withdrawal.Service
	cfg         Config
}

func NewService(
	ledger repositories.LedgerRepository,
	settings repositories.SettingsRepository,
	payouts payout.Service,
	identities identity.Service,
	withdrawals withdrawal.Service,
	cfg Config,
) *Service {
	if ledger == nil || settings == nil || payouts == nil || identities == nil {
		panic("ledger, settings, payout and identity services are required")
	}
	cfg.applyDefaults()
	return &Service{
		ledger:      ledger,
		settings:    settings,
		payouts:     payouts,
		identities:  identities,
		withdrawals: withdrawals,
		cfg:         cfg,
	}
}

// HandleTransactionCreated is the broker consumer handler. Errors are
// absorbed here: a payout problem must never surface as a transaction
// problem, and the sweep retries anything left behind.
func (s *Service) HandleTransactionCreated(ctx context.Context, evt events.TransactionCreated) error {
	tx, err := s.ledger.GetTransaction(ctx, evt.TransactionID)
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return nil
		}
		slog.Error("reconciler could not load transaction",
			"transaction_id", evt.TransactionID, "error", err)
		return nil
	}

	outcome := s.process(ctx, tx)
	observability.ReconcilerEvents.WithLabelValues(string(outcome)).Inc()
	if outcome == OutcomeFailed {
		slog.Warn("automatic payout failed", "transaction_id", tx.ID)
	}
	return nil
}

// eligible reports whether a transaction qualifies for an automatic
// payout: a settled host earning tied to a booking, or a settled
// subscription payment owed to the platform.
func eligible(tx *models.Transaction) bool {
	if tx.Status != models.TransactionStatusCompleted {
		return false
	}
	if tx.PayoutID != "" {
		return false
	}
	// Only unsealed rows still awaiting dispatch qualify. A failed
	// payout stays failed until an admin re-dispatches it by hand.
	if tx.PayoutStatus != models.PayoutStatusPending && tx.PayoutStatus != models.PayoutStatusProcessing {
		return false
	}
	switch tx.Type {
	case models.TransactionTypePayment:
		return isSubscriptionPayment(tx)
	case models.TransactionTypeDeposit:
		return tx.BookingID != nil
	}
	return false
}

func isSubscriptionPayment(tx *models.Transaction) bool {
	return strings.Contains(strings.ToLower(tx.Description), "subscription")
}

// process runs the claim-dispatch-seal flow for one transaction. The
// reclaim flag is set on the sweep path, where a row stuck in processing
// is a crashed claim rather than a live competitor.
func (s *Service) process(ctx context.Context, tx *models.Transaction) Outcome {
	return s.processWith(ctx, tx, false)
}

// resolveRecipient picks the destination for an eligible transaction: a
// host earning goes to the host's linked payout identity, a subscription
// payment goes to the platform recipient. A missing destination defers the
// payout without claiming, so a later link or setting picks it up.
func (s *Service) resolveRecipient(ctx context.Context, tx *models.Transaction) (string, Outcome) {
	if tx.Type == models.TransactionTypeDeposit {
		email, err := s.identities.ResolveEmail(ctx, tx.UserID, models.RoleHost)
		if err != nil {
			if errors.Is(err, identity.ErrNotLinked) || errors.Is(err, identity.ErrNoEmail) {
				slog.Warn("host earning payout deferred, no linked payout identity",
					"transaction_id", tx.ID, "user_id", tx.UserID)
				return "", OutcomeDeferred
			}
			slog.Error("resolving host payout identity",
				"transaction_id", tx.ID, "user_id", tx.UserID, "error", err)
			return "", OutcomeFailed
		}
		return email, ""
	}

	email, err := s.settings.ResolvePayoutRecipient(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrPayoutRecipientNotConfigured) {
			slog.Warn("subscription payout deferred, no recipient configured",
				"transaction_id", tx.ID)
			return "", OutcomeDeferred
		}
		slog.Error("resolving payout recipient", "error", err)
		return "", OutcomeFailed
	}
	return email, ""
}

func (s *Service) processWith(ctx context.Context, tx *models.Transaction, reclaim bool) Outcome {
	if !eligible(tx) {
		return OutcomeSkipped
	}

	recipient, outcome := s.resolveRecipient(ctx, tx)
	if outcome != "" {
		return outcome
	}

	if tx.PayoutStatus == models.PayoutStatusProcessing && !reclaim {
		return OutcomeDuplicate
	}
	if tx.PayoutStatus == models.PayoutStatusPending {
		claimed, err := s.ledger.ClaimPayout(ctx, tx.ID)
		if err != nil {
			slog.Error("claiming payout", "transaction_id", tx.ID, "error", err)
			return OutcomeFailed
		}
		if !claimed {
			return OutcomeDuplicate
		}
	}

	res, err := s.payouts.Dispatch(ctx, payout.DispatchRequest{
		DestinationEmail: recipient,
		Amount:           tx.Amount,
		Currency:         tx.Currency,
		Description:      fmt.Sprintf("Automatic payout for transaction %s", tx.ID),
		IdempotencyKey:   tx.ID,
	})
	if err != nil {
		if errors.Is(err, payout.ErrOutcomeUnknown) {
			// The claim stays in processing; the sweep re-dispatches
			// with the same key and the processor deduplicates.
			observability.PayoutDispatches.WithLabelValues("reconciler", "unknown").Inc()
			return OutcomeUnknown
		}
		observability.PayoutDispatches.WithLabelValues("reconciler", "failure").Inc()
		if serr := s.ledger.SetPayoutFailure(ctx, tx.ID, err.Error()); serr != nil {
			slog.Error("recording payout failure", "transaction_id", tx.ID, "error", serr)
		}
		return OutcomeFailed
	}

	if err := s.ledger.SetPayoutResult(ctx, tx.ID, repositories.PayoutFields{
		PayoutID:      res.PayoutID,
		PayoutBatchID: res.BatchID,
		PayoutStatus:  res.Status,
	}); err != nil {
		// The payout went out but the seal write failed. The sweep will
		// retry the dispatch and the processor's dedupe returns the
		// original batch, so the seal heals without paying twice.
		slog.Error("sealing payout result", "transaction_id", tx.ID, "error", err)
		return OutcomeUnknown
	}
	observability.PayoutDispatches.WithLabelValues("reconciler", "success").Inc()
	slog.Info("automatic payout dispatched",
		"transaction_id", tx.ID, "payout_id", res.PayoutID, "recipient", recipient)
	return OutcomePaid
}

// Sweep repairs everything the event path may have dropped: unpaid
// eligible earnings, withdrawals whose debit never ran, and withdrawals
// whose dispatch outcome is unknown.
func (s *Service) Sweep(ctx context.Context) (SweepStats, error) {
	var stats SweepStats

	unpaid, err := s.ledger.ListUnpaidEligible(ctx, s.cfg.BatchSize)
	if err != nil {
		return stats, fmt.Errorf("listing unpaid earnings: %w", err)
	}
	for i := range unpaid {
		switch s.processWith(ctx, &unpaid[i], true) {
		case OutcomePaid:
			stats.EarningsPaid++
		case OutcomeFailed:
			stats.EarningsFailed++
		}
	}

	if s.withdrawals != nil {
		undeducted, err := s.ledger.ListUndeductedWithdrawals(ctx, s.cfg.BatchSize)
		if err != nil {
			return stats, fmt.Errorf("listing undeducted withdrawals: %w", err)
		}
		for _, tx := range undeducted {
			if err := s.withdrawals.ApplyDeduction(ctx, tx.ID); err != nil {
				slog.Error("sweep deduction failed", "transaction_id", tx.ID, "error", err)
				continue
			}
			stats.DeductionsApplied++
		}

		cutoff := time.Now().Add(-s.cfg.StaleAfter)
		stale, err := s.ledger.ListStalePendingWithdrawals(ctx, cutoff, s.cfg.BatchSize)
		if err != nil {
			return stats, fmt.Errorf("listing stale withdrawals: %w", err)
		}
		for _, tx := range stale {
			if _, err := s.withdrawals.Resume(ctx, tx.ID); err != nil {
				if errors.Is(err, withdrawal.ErrAlreadySettled) {
					continue
				}
				slog.Error("sweep resume failed", "transaction_id", tx.ID, "error", err)
				continue
			}
			stats.WithdrawalsResumed++
		}

		unsettled, err := s.ledger.ListUnsettledDispatchedWithdrawals(ctx, s.cfg.BatchSize)
		if err != nil {
			return stats, fmt.Errorf("listing unsettled withdrawals: %w", err)
		}
		for _, tx := range unsettled {
			res, err := s.withdrawals.SyncStatus(ctx, tx.ID)
			if err != nil {
				slog.Error("sweep status sync failed", "transaction_id", tx.ID, "error", err)
				continue
			}
			if res.Status != models.TransactionStatusPending {
				stats.WithdrawalsSettled++
			}
		}
	}

	return stats, nil
}

// Run executes Sweep on a fixed interval until the context is canceled.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	slog.Info("reconciler sweep started", "interval", s.cfg.SweepInterval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("reconciler sweep stopped")
			return
		case <-ticker.C:
			stats, err := s.Sweep(ctx)
			if err != nil {
				slog.Error("reconciler sweep failed", "error", err)
				continue
			}
			if stats != (SweepStats{}) {
				slog.Info("reconciler sweep repaired state",
					"earnings_paid", stats.EarningsPaid,
					"earnings_failed", stats.EarningsFailed,
					"deductions_applied", stats.DeductionsApplied,
					"withdrawals_resumed", stats.WithdrawalsResumed)
			}
		}
	}
}
