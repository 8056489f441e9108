package repositories

import (
	"context"
	"errors"

	"casita/internal/models"
)

var ErrIdentityNotFound = errors.New("linked identity not found")

// IdentityRepository manages a user's linked external payout identity,
// one per role.
type IdentityRepository interface {
	Get(ctx context.Context, userID uint, role string) (*models.LinkedIdentity, error)
	// Upsert creates or replaces the identity for (userID, role).
	Upsert(ctx context.Context, identity *models.LinkedIdentity) error
	Delete(ctx context.Context, userID uint, role string) error
	// ClearTokens drops the cached access token and expiry, leaving the
	// identity in an email-only state. Verified is left untouched.
	ClearTokens(ctx context.Context, userID uint, role string) error
	// UpdateEmail backfills the destination email recovered from the
	// processor's identity endpoint.
	UpdateEmail(ctx context.Context, userID uint, role string, email string) error
}
