package identity

import "errors"

var (
	ErrInvalidRole     = errors.New("role cannot hold a linked identity")
	ErrInvalidAuthCode = errors.New("authorization code rejected")
	ErrNotLinked       = errors.New("no linked identity")
	ErrNoEmail         = errors.New("processor returned no payout email")
)
