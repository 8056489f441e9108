// Package deposit captures settled card payments into host wallets. The
// card charge itself runs client-side through Stripe; this service only
// verifies the payment intent and records the money.
package deposit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"casita/internal/models"
	"casita/internal/repositories"
	"casita/internal/services/wallet"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/paymentintent"
)

var (
	ErrInvalidCapture    = errors.New("invalid capture request")
	ErrPaymentNotFound   = errors.New("payment intent not found")
	ErrPaymentNotSettled = errors.New("payment intent has not succeeded")
)

// CaptureRequest identifies a settled Stripe payment to credit.
type CaptureRequest struct {
	HostUserID      uint
	BookingID       uint
	PaymentIntentID string
	Description     string
}

// Service verifies card payments against Stripe and credits the host
// wallet exactly once per payment intent.
type Service interface {
	Capture(ctx context.Context, req CaptureRequest) (*models.Transaction, error)
}

// IntentClient is the slice of the Stripe API this service consumes.
type IntentClient interface {
	Get(id string) (*stripe.PaymentIntent, error)
}

// StripeIntents calls the live Stripe API. stripe.Key must be set before
// first use.
type StripeIntents struct{}

func (StripeIntents) Get(id string) (*stripe.PaymentIntent, error) {
	return paymentintent.Get(id, nil)
}

type service struct {
	ledger  repositories.LedgerRepository
	wallets wallet.Service
	intents IntentClient
}

func NewService(ledger repositories.LedgerRepository, wallets wallet.Service, intents IntentClient) Service {
	if ledger == nil || wallets == nil {
		panic("ledger and wallet services are required")
	}
	if intents == nil {
		intents = StripeIntents{}
	}
	return &service{ledger: ledger, wallets: wallets, intents: intents}
}

func (s *service) Capture(ctx context.Context, req CaptureRequest) (*models.Transaction, error) {
	if req.HostUserID == 0 || req.PaymentIntentID == "" {
		return nil, ErrInvalidCapture
	}

	// A replayed capture returns the original record.
	if existing, err := s.ledger.GetTransactionByProcessorRef(ctx, req.PaymentIntentID); err == nil {
		return existing, nil
	} else if !errors.Is(err, repositories.ErrTransactionNotFound) {
		return nil, err
	}

	intent, err := s.intents.Get(req.PaymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentNotFound, err)
	}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, fmt.Errorf("%w: status %s", ErrPaymentNotSettled, intent.Status)
	}
	if intent.Amount <= 0 {
		return nil, fmt.Errorf("%w: non-positive amount", ErrInvalidCapture)
	}

	description := req.Description
	if description == "" {
		description = "Booking deposit"
	}
	metadata := map[string]interface{}{
		"payment_intent": req.PaymentIntentID,
		"card_currency":  strings.ToUpper(string(intent.Currency)),
	}
	var bookingID *uint
	if req.BookingID != 0 {
		bookingID = &req.BookingID
	}

	tx, err := s.wallets.Credit(ctx, wallet.CreditRequest{
		UserID:      req.HostUserID,
		Amount:      intent.Amount,
		Type:        models.TransactionTypeDeposit,
		Description: description,
		BookingID:   bookingID,
		Metadata:    metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("crediting captured payment: %w", err)
	}

	slog.Info("captured card payment",
		"payment_intent", req.PaymentIntentID,
		"transaction_id", tx.ID,
		"host_user_id", req.HostUserID)
	return tx, nil
}
