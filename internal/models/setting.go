package models

import (
	"time"
)

// Well-known setting keys.
const (
	SettingPayoutRecipientEmail = "payout_recipient_email"
)

// PlatformSetting is a key/value record for operational configuration that
// lives in the database, such as the platform payout destination.
type PlatformSetting struct {
	ID        uint   `gorm:"primarykey"`
	Key       string `gorm:"uniqueIndex;size:64;not null"`
	Value     string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
