package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"casita/internal/models"
	"casita/internal/repositories"
	"casita/internal/services/money"
)

type service struct {
	ledger  repositories.LedgerRepository
	cache   Cache
	config  Config
	metrics MetricsCollector
}

// NewService creates a new wallet service
func NewService(ledger repositories.LedgerRepository, cache Cache, config Config, metrics MetricsCollector) Service {
	if ledger == nil {
		panic("ledger repository is required")
	}
	if config.DefaultCurrency == "" {
		config.DefaultCurrency = "USD"
	}

	// Metrics is optional, create no-op collector if nil
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}

	return &service{
		ledger:  ledger,
		cache:   cache,
		config:  config,
		metrics: metrics,
	}
}

func (s *service) GetWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	if s.cache != nil {
		if w, err := s.cache.GetWallet(ctx, userID); err == nil {
			s.metrics.RecordCacheHit("wallet")
			return w, nil
		}
		s.metrics.RecordCacheMiss("wallet")
	}

	w, err := s.ledger.GetWalletByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	if s.cache != nil {
		s.cache.CacheWallet(ctx, w)
	}
	return w, nil
}

func (s *service) EnsureWallet(ctx context.Context, userID uint, currency string) (*models.Wallet, error) {
	if currency == "" {
		currency = s.config.DefaultCurrency
	}
	if w, err := s.GetWallet(ctx, userID); err == nil {
		return w, nil
	} else if !errors.Is(err, ErrWalletNotFound) {
		return nil, err
	}

	w, err := s.ledger.CreateWallet(ctx, userID, currency)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	if s.cache != nil {
		s.cache.CacheWallet(ctx, w)
	}
	return w, nil
}

func (s *service) GetBalance(ctx context.Context, userID uint) (*Balance, error) {
	w, err := s.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Balance{
		UserID:   w.UserID,
		Amount:   w.Balance,
		Display:  money.ToDisplay(w.Balance),
		Currency: w.Currency,
	}, nil
}

// Credit records a ledger transaction for the amount and applies it to the
// balance. The transaction is created first so a crash between the two
// writes leaves a pending record rather than untracked money.
func (s *service) Credit(ctx context.Context, req CreditRequest) (*models.Transaction, error) {
	start := time.Now()
	defer func() { s.metrics.RecordOperationDuration("credit", time.Since(start)) }()

	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if s.config.MaxCreditAmount > 0 && req.Amount > s.config.MaxCreditAmount {
		return nil, fmt.Errorf("%w: exceeds maximum of %s", ErrInvalidAmount, money.ToDisplay(s.config.MaxCreditAmount))
	}
	if req.Type == "" {
		req.Type = models.TransactionTypeDeposit
	}

	w, err := s.EnsureWallet(ctx, req.UserID, "")
	if err != nil {
		return nil, err
	}

	tx := &models.Transaction{
		UserID:      req.UserID,
		Type:        req.Type,
		Amount:      req.Amount,
		Currency:    w.Currency,
		Description: req.Description,
		BookingID:   req.BookingID,
	}
	if req.Metadata != nil {
		tx.Metadata = models.NewJSON(req.Metadata)
	}
	if err := s.ledger.CreateTransaction(ctx, tx); err != nil {
		s.metrics.RecordOperationResult("credit", "error")
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	if _, err := s.ledger.AddToBalance(ctx, req.UserID, req.Amount); err != nil {
		s.metrics.RecordOperationResult("credit", "error")
		if _, ferr := s.ledger.MarkFailed(ctx, tx.ID, ""); ferr != nil {
			return nil, fmt.Errorf("failed to apply credit (and to mark transaction failed: %v): %w", ferr, err)
		}
		return nil, fmt.Errorf("failed to apply credit: %w", err)
	}

	completed, err := s.ledger.MarkCompleted(ctx, tx.ID, repositories.PayoutFields{})
	if err != nil {
		return nil, fmt.Errorf("failed to complete transaction: %w", err)
	}

	if s.cache != nil {
		s.cache.InvalidateWallet(ctx, req.UserID)
	}
	s.metrics.RecordOperationResult("credit", "success")
	s.metrics.RecordBalanceChange(req.UserID, req.Amount)
	return completed, nil
}

// Debit removes amount from the balance. Callers own the surrounding
// transaction record; this only moves money and refreshes the cache.
func (s *service) Debit(ctx context.Context, userID uint, amount int64) (*models.Wallet, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	w, err := s.ledger.AddToBalance(ctx, userID, -amount)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrInsufficientFunds):
			return nil, ErrInsufficientBalance
		case errors.Is(err, repositories.ErrWalletNotFound):
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to apply debit: %w", err)
	}

	if s.cache != nil {
		s.cache.InvalidateWallet(ctx, userID)
	}
	s.metrics.RecordBalanceChange(userID, -amount)
	return w, nil
}

func (s *service) History(ctx context.Context, userID uint, limit, offset int) ([]Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	txs, err := s.ledger.ListTransactionsByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	entries := make([]Entry, 0, len(txs))
	for _, tx := range txs {
		entries = append(entries, Entry{
			ID:           tx.ID,
			Type:         tx.Type,
			Amount:       tx.Amount,
			Display:      money.ToDisplay(tx.Amount),
			Currency:     tx.Currency,
			Description:  tx.Description,
			Status:       tx.Status,
			PayoutStatus: tx.PayoutStatus,
			CreatedAt:    tx.CreatedAt,
		})
	}
	return entries, nil
}
