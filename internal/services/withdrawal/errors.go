package withdrawal

import "errors"

// Service errors
var (
	ErrUnauthenticated     = errors.New("caller is not authenticated")
	ErrNoLinkedIdentity    = errors.New("no linked payout identity")
	ErrInvalidAmount       = errors.New("invalid withdrawal amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotWithdrawal       = errors.New("transaction is not a withdrawal")
	ErrAlreadySettled      = errors.New("withdrawal already settled")
)
