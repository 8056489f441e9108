package payout

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"casita/internal/models"
	"casita/internal/observability"
	"casita/internal/paypal"
	"casita/internal/services/money"
)

type service struct {
	client   ProcessorClient
	currency string
}

// NewService creates the payout dispatcher. defaultCurrency is used when a
// request does not name one.
func NewService(client ProcessorClient, defaultCurrency string) Service {
	if client == nil {
		panic("processor client is required")
	}
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	return &service{client: client, currency: defaultCurrency}
}

func (s *service) Dispatch(ctx context.Context, req DispatchRequest) (*DispatchResult, error) {
	if req.DestinationEmail == "" {
		return nil, fmt.Errorf("%w: destination email is empty", ErrInvalidDispatch)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidDispatch)
	}
	if req.IdempotencyKey == "" {
		return nil, fmt.Errorf("%w: idempotency key is empty", ErrInvalidDispatch)
	}
	currency := req.Currency
	if currency == "" {
		currency = s.currency
	}

	start := time.Now()
	batch, err := s.client.CreatePayout(ctx,
		req.DestinationEmail,
		money.ToDisplay(req.Amount),
		currency,
		req.Description,
		req.IdempotencyKey,
	)
	observability.PayoutDuration.WithLabelValues("dispatch").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, normalizeError(err)
	}

	status, ok := normalizeStatus(batch.Status)
	if !ok {
		return nil, fmt.Errorf("%w: processor returned batch status %s", ErrPayoutFailed, batch.Status)
	}

	payoutID := batch.ItemID
	if payoutID == "" {
		payoutID = batch.BatchID
	}
	return &DispatchResult{
		PayoutID: payoutID,
		BatchID:  batch.BatchID,
		Status:   status,
	}, nil
}

func (s *service) QueryStatus(ctx context.Context, batchID string) (string, error) {
	if batchID == "" {
		return "", fmt.Errorf("%w: batch id is empty", ErrInvalidDispatch)
	}
	batch, err := s.client.GetPayoutStatus(ctx, batchID)
	if err != nil {
		return "", normalizeError(err)
	}
	if status, ok := normalizeStatus(batch.Status); ok {
		return status, nil
	}
	return models.PayoutStatusFailed, nil
}

// normalizeStatus maps the processor's batch status onto ledger payout
// statuses. Denied and unknown statuses are not ok.
func normalizeStatus(batchStatus string) (string, bool) {
	switch batchStatus {
	case paypal.BatchStatusSuccess:
		return models.PayoutStatusCompleted, true
	case paypal.BatchStatusPending, paypal.BatchStatusProcessing:
		return models.PayoutStatusPending, true
	default:
		return "", false
	}
}

func normalizeError(err error) error {
	if errors.Is(err, paypal.ErrTokenExpired) {
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	}
	if isUnknownOutcome(err) {
		return fmt.Errorf("%w: %v", ErrOutcomeUnknown, err)
	}
	var apiErr *paypal.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s", ErrPayoutFailed, apiErr.Message)
	}
	return fmt.Errorf("%w: %v", ErrPayoutFailed, err)
}

// isUnknownOutcome reports whether the transport failed in a way where the
// processor may have already accepted the request.
func isUnknownOutcome(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
