package repositories

import (
	"context"
	"errors"
	"fmt"
	"log"

	"casita/internal/models"
	"casita/internal/repositories/cache"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type identityRepository struct {
	db    *gorm.DB
	cache *cache.CacheService
}

func NewIdentityRepository(db *gorm.DB, cacheService *cache.CacheService) IdentityRepository {
	return &identityRepository{db: db, cache: cacheService}
}

func (r *identityRepository) Get(ctx context.Context, userID uint, role string) (*models.LinkedIdentity, error) {
	if r.cache != nil {
		if identity, err := r.cache.GetIdentity(ctx, userID, role); err == nil {
			return identity, nil
		}
	}

	var identity models.LinkedIdentity
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND role = ?", userID, role).
		First(&identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to get linked identity: %w", err)
	}

	if r.cache != nil {
		if err := r.cache.CacheIdentity(ctx, &identity); err != nil {
			log.Printf("Failed to cache identity for user %d: %v", userID, err)
		}
	}
	return &identity, nil
}

func (r *identityRepository) Upsert(ctx context.Context, identity *models.LinkedIdentity) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "role"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email", "verified", "access_token", "refresh_token", "token_expires_at", "updated_at",
		}),
	}).Create(identity).Error
	if err != nil {
		return fmt.Errorf("failed to upsert linked identity: %w", err)
	}
	r.invalidate(ctx, identity.UserID, identity.Role)
	return nil
}

func (r *identityRepository) Delete(ctx context.Context, userID uint, role string) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND role = ?", userID, role).
		Delete(&models.LinkedIdentity{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete linked identity: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrIdentityNotFound
	}
	r.invalidate(ctx, userID, role)
	return nil
}

func (r *identityRepository) ClearTokens(ctx context.Context, userID uint, role string) error {
	res := r.db.WithContext(ctx).
		Model(&models.LinkedIdentity{}).
		Where("user_id = ? AND role = ?", userID, role).
		Updates(map[string]interface{}{
			"access_token":     "",
			"token_expires_at": nil,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to clear identity tokens: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrIdentityNotFound
	}
	r.invalidate(ctx, userID, role)
	return nil
}

func (r *identityRepository) UpdateEmail(ctx context.Context, userID uint, role string, email string) error {
	res := r.db.WithContext(ctx).
		Model(&models.LinkedIdentity{}).
		Where("user_id = ? AND role = ?", userID, role).
		Update("email", email)
	if res.Error != nil {
		return fmt.Errorf("failed to update identity email: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrIdentityNotFound
	}
	r.invalidate(ctx, userID, role)
	return nil
}

func (r *identityRepository) invalidate(ctx context.Context, userID uint, role string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.InvalidateIdentity(ctx, userID, role); err != nil {
		log.Printf("Failed to invalidate identity cache for user %d: %v", userID, err)
	}
}
