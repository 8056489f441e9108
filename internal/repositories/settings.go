package repositories

import (
	"context"
	"errors"
	"fmt"
	"log"

	"casita/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSettingNotFound = errors.New("setting not found")
	// ErrPayoutRecipientNotConfigured means neither the payout setting nor
	// an admin fallback could resolve a platform payout destination.
	ErrPayoutRecipientNotConfigured = errors.New("platform payout recipient not configured")
)

// SettingsRepository stores platform-level key/value settings, most
// importantly the platform payout destination.
type SettingsRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// ResolvePayoutRecipient returns the platform payout destination
	// email. It prefers the explicit setting; the query for an admin user
	// is a migration fallback only.
	ResolvePayoutRecipient(ctx context.Context) (string, error)
}

type settingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(ctx context.Context, key string) (string, error) {
	var setting models.PlatformSetting
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrSettingNotFound
		}
		return "", fmt.Errorf("failed to get setting: %w", err)
	}
	return setting.Value, nil
}

func (r *settingsRepository) Set(ctx context.Context, key, value string) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&models.PlatformSetting{Key: key, Value: value}).Error
	if err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}

func (r *settingsRepository) ResolvePayoutRecipient(ctx context.Context) (string, error) {
	email, err := r.Get(ctx, models.SettingPayoutRecipientEmail)
	if err == nil && email != "" {
		return email, nil
	}
	if err != nil && !errors.Is(err, ErrSettingNotFound) {
		return "", err
	}

	// Migration fallback: older deployments identified the recipient by
	// the first admin account's linked identity.
	var identity models.LinkedIdentity
	err = r.db.WithContext(ctx).
		Joins("JOIN users ON users.id = linked_identities.user_id AND users.role = ?", models.RoleAdmin).
		Where("linked_identities.verified = ?", true).
		Order("linked_identities.created_at ASC").
		First(&identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrPayoutRecipientNotConfigured
		}
		return "", fmt.Errorf("failed to resolve payout recipient: %w", err)
	}
	log.Printf("payout recipient resolved via admin fallback; set %s to make it explicit",
		models.SettingPayoutRecipientEmail)
	return identity.Email, nil
}
