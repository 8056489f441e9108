package wallet

import "errors"

// Service errors
var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidCurrency     = errors.New("invalid currency")
	ErrInsufficientBalance = errors.New("insufficient balance")
)
