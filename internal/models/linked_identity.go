package models

import (
	"time"
)

// LinkedIdentity is a user's external payout destination, one per role.
// Tokens are advisory: the processor re-validates them on use, and they are
// cleared when the processor reports an authorization failure, leaving the
// identity in an email-only state. Verified never reverts to false once a
// link or payout has succeeded through it; only unlinking (deletion) does.
type LinkedIdentity struct {
	ID             uint   `gorm:"primarykey"`
	UserID         uint   `gorm:"not null;uniqueIndex:idx_identity_user_role"`
	Role           string `gorm:"size:16;not null;uniqueIndex:idx_identity_user_role"`
	Email          string `gorm:"not null"`
	Verified       bool   `gorm:"default:false"`
	AccessToken    string
	RefreshToken   string
	TokenExpiresAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TokenCapable reports whether the identity still carries a usable access
// token. Expiry here is advisory only; the processor has the final word.
func (li *LinkedIdentity) TokenCapable() bool {
	if li.AccessToken == "" {
		return false
	}
	if li.TokenExpiresAt != nil && time.Now().After(*li.TokenExpiresAt) {
		return false
	}
	return true
}
