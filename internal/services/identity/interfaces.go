package identity

import (
	"context"

	"casita/internal/models"
	"casita/internal/paypal"
)

// ProcessorClient is the slice of the payment-processor API the linker
// consumes. *paypal.Client satisfies it.
type ProcessorClient interface {
	ExchangeAuthCode(ctx context.Context, code, redirectURI string) (*paypal.Tokens, error)
	GetUserInfo(ctx context.Context, accessToken string) (*paypal.UserInfo, error)
}

// Service links users to their external payout identity and keeps the
// stored destination email current.
type Service interface {
	// Link exchanges an authorization code for tokens, resolves the
	// processor-side email, and stores the identity for (userID, role).
	// Re-linking replaces the previous identity.
	Link(ctx context.Context, userID uint, role, authCode, redirectURI string) (*models.LinkedIdentity, error)

	// Get returns the linked identity, or ErrNotLinked.
	Get(ctx context.Context, userID uint, role string) (*models.LinkedIdentity, error)

	// Unlink removes the identity. Removing an absent identity is a no-op.
	Unlink(ctx context.Context, userID uint, role string) error

	// ResolveEmail returns the payout destination email for (userID, role),
	// refreshing it from the processor when the stored identity still
	// carries a usable token. The refreshed value is persisted best-effort.
	ResolveEmail(ctx context.Context, userID uint, role string) (string, error)

	// InvalidateTokens drops the stored tokens after the processor reported
	// an authorization failure. The identity stays linked by email.
	InvalidateTokens(ctx context.Context, userID uint, role string) error
}
