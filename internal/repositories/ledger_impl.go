package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"casita/internal/events"
	"casita/internal/models"
	"casita/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ledgerRepository struct {
	db     *gorm.DB
	events events.Publisher
}

// NewLedgerRepository builds the ledger store. The publisher receives a
// change notification after every durable transaction create; pass
// events.NoopPublisher when no broker is configured.
func NewLedgerRepository(db *gorm.DB, publisher events.Publisher) LedgerRepository {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &ledgerRepository{db: db, events: publisher}
}

func (r *ledgerRepository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx.Amount <= 0 {
		return fmt.Errorf("transaction amount must be positive, got %d", tx.Amount)
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	tx.Status = models.TransactionStatusPending
	if tx.PayoutStatus == "" {
		tx.PayoutStatus = models.PayoutStatusPending
	}

	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	// The row is durable; notify the reconciler. Publish failure is not a
	// create failure: the periodic sweep covers lost notifications.
	if err := r.events.PublishTransactionCreated(ctx, events.TransactionCreated{
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		Type:          tx.Type,
		Status:        tx.Status,
		CreatedAt:     tx.CreatedAt,
	}); err != nil {
		slog.Error("transaction created but event publish failed", "transaction_id", tx.ID, "error", err)
	}
	return nil
}

func (r *ledgerRepository) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.WithContext(ctx).First(&tx, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &tx, nil
}

func (r *ledgerRepository) GetTransactionByProcessorRef(ctx context.Context, ref string) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.WithContext(ctx).
		Where("metadata->>'payment_intent' = ?", ref).
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction by processor ref: %w", err)
	}
	return &tx, nil
}

// MarkCompleted transitions pending -> completed. The WHERE clause makes
// the transition single-use; a second call finds zero rows and returns the
// already-settled record.
func (r *ledgerRepository) MarkCompleted(ctx context.Context, id string, payout PayoutFields) (*models.Transaction, error) {
	updates := map[string]interface{}{
		"status": models.TransactionStatusCompleted,
	}
	// An empty PayoutFields leaves the payout columns alone so a credited
	// earning keeps its pending payout status for the reconciler.
	if payout.PayoutStatus != "" {
		updates["payout_status"] = payout.PayoutStatus
	}
	if payout.PayoutID != "" {
		updates["payout_id"] = payout.PayoutID
		updates["payout_batch_id"] = payout.PayoutBatchID
	}
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.TransactionStatusPending).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to mark transaction completed: %w", res.Error)
	}
	return r.GetTransaction(ctx, id)
}

func (r *ledgerRepository) MarkFailed(ctx context.Context, id string, payoutErr string) (*models.Transaction, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.TransactionStatusPending).
		Updates(map[string]interface{}{
			"status":        models.TransactionStatusFailed,
			"payout_status": models.PayoutStatusFailed,
			"payout_error":  payoutErr,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to mark transaction failed: %w", res.Error)
	}
	return r.GetTransaction(ctx, id)
}

// ClaimPayout is the secondary defense against duplicate event delivery
// (the primary one is the processor-side idempotency key). Only one worker
// can move payout_status from pending to processing while the seal is
// still empty.
func (r *ledgerRepository) ClaimPayout(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND (payout_id = '' OR payout_id IS NULL) AND payout_status = ?",
			id, models.PayoutStatusPending).
		Update("payout_status", models.PayoutStatusProcessing)
	if res.Error != nil {
		return false, fmt.Errorf("failed to claim payout: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *ledgerRepository) SetPayoutResult(ctx context.Context, id string, payout PayoutFields) error {
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"payout_status":   payout.PayoutStatus,
			"payout_id":       payout.PayoutID,
			"payout_batch_id": payout.PayoutBatchID,
			"payout_error":    "",
		})
	if res.Error != nil {
		return fmt.Errorf("failed to set payout result: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (r *ledgerRepository) SetPayoutFailure(ctx context.Context, id string, payoutErr string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"payout_status": models.PayoutStatusFailed,
			"payout_error":  payoutErr,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to set payout failure: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// ApplyWithdrawalDeduction flips balance_applied and debits the wallet in
// one database transaction. The flag update is the claim: zero rows means
// another worker (or an earlier run) already applied this deduction.
func (r *ledgerRepository) ApplyWithdrawalDeduction(ctx context.Context, id string) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		var tx models.Transaction
		if err := dbtx.First(&tx, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTransactionNotFound
			}
			return err
		}
		if tx.Type != models.TransactionTypeWithdrawal {
			return fmt.Errorf("transaction %s is not a withdrawal", id)
		}

		claim := dbtx.Model(&models.Transaction{}).
			Where("id = ? AND balance_applied = ?", id, false).
			Update("balance_applied", true)
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return nil
		}

		debit := dbtx.Model(&models.Wallet{}).
			Where("user_id = ? AND balance - ? >= 0", tx.UserID, tx.Amount).
			Update("balance", gorm.Expr("balance - ?", tx.Amount))
		if debit.Error != nil {
			return debit.Error
		}
		if debit.RowsAffected == 0 {
			return ErrInsufficientFunds
		}
		applied = true
		return nil
	})
	if err != nil {
		observability.BalanceMutations.WithLabelValues("error").Inc()
		return false, fmt.Errorf("failed to apply withdrawal deduction: %w", err)
	}
	if applied {
		observability.BalanceMutations.WithLabelValues("ok").Inc()
	}
	return applied, nil
}

func (r *ledgerRepository) CreateWallet(ctx context.Context, userID uint, currency string) (*models.Wallet, error) {
	wallet := &models.Wallet{UserID: userID, Balance: 0, Currency: currency}
	if err := r.db.WithContext(ctx).Create(wallet).Error; err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	return wallet, nil
}

func (r *ledgerRepository) GetWalletByUserID(ctx context.Context, userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

// AddToBalance is the only balance mutation in the system. The guard in
// the WHERE clause keeps the balance non-negative under concurrent
// withdrawals from the same user; the database serializes the updates.
func (r *ledgerRepository) AddToBalance(ctx context.Context, userID uint, delta int64) (*models.Wallet, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("user_id = ? AND balance + ? >= 0", userID, delta).
		Update("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		observability.BalanceMutations.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to mutate balance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetWalletByUserID(ctx, userID); err != nil {
			observability.BalanceMutations.WithLabelValues("error").Inc()
			return nil, err
		}
		observability.BalanceMutations.WithLabelValues("insufficient").Inc()
		return nil, ErrInsufficientFunds
	}
	observability.BalanceMutations.WithLabelValues("ok").Inc()
	return r.GetWalletByUserID(ctx, userID)
}

func (r *ledgerRepository) ListTransactionsByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

// ListUnpaidEligible returns completed transactions still awaiting a
// payout seal. Rows stuck in processing are included: a crash between
// claim and dispatch leaves them there, and re-dispatching with the same
// idempotency key is safe.
func (r *ledgerRepository) ListUnpaidEligible(ctx context.Context, limit int) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("status = ? AND (payout_id = '' OR payout_id IS NULL) AND payout_status IN ?",
			models.TransactionStatusCompleted,
			[]string{models.PayoutStatusPending, models.PayoutStatusProcessing}).
		Where("(type = ? AND booking_id IS NOT NULL) OR (type = ? AND description ILIKE ?)",
			models.TransactionTypeDeposit,
			models.TransactionTypePayment, "%subscription%").
		Order("created_at ASC").
		Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unpaid transactions: %w", err)
	}
	return txs, nil
}

// ListUndeductedWithdrawals finds dispatched withdrawals whose wallet
// debit never ran (crash between sealing the payout and the balance
// mutation). Failed rows are excluded; their money never moved.
func (r *ledgerRepository) ListUndeductedWithdrawals(ctx context.Context, limit int) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("type = ? AND status <> ? AND balance_applied = ? AND payout_id <> ''",
			models.TransactionTypeWithdrawal, models.TransactionStatusFailed, false).
		Order("created_at ASC").
		Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list undeducted withdrawals: %w", err)
	}
	return txs, nil
}

func (r *ledgerRepository) ListStalePendingWithdrawals(ctx context.Context, olderThan time.Time, limit int) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("type = ? AND status = ? AND (payout_id = '' OR payout_id IS NULL) AND created_at < ?",
			models.TransactionTypeWithdrawal, models.TransactionStatusPending, olderThan).
		Order("created_at ASC").
		Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stale pending withdrawals: %w", err)
	}
	return txs, nil
}

func (r *ledgerRepository) ListUnsettledDispatchedWithdrawals(ctx context.Context, limit int) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("type = ? AND status = ? AND payout_batch_id <> ''",
			models.TransactionTypeWithdrawal, models.TransactionStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unsettled withdrawals: %w", err)
	}
	return txs, nil
}

func (r *ledgerRepository) ListFailedPayouts(ctx context.Context, limit, offset int) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("payout_status = ?", models.PayoutStatusFailed).
		Order("updated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list failed payouts: %w", err)
	}
	return txs, nil
}
