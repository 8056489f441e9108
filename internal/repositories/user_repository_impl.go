package repositories

import (
	"context"
	"errors"
	"log"
	"strings"

	"casita/internal/models"
	"casita/internal/repositories/cache"

	"gorm.io/gorm"
)

type userRepository struct {
	db    *gorm.DB
	cache *cache.CacheService
}

// NewUserRepository creates a new instance of UserRepository
func NewUserRepository(db *gorm.DB, cacheService *cache.CacheService) UserRepository {
	return &userRepository{db: db, cache: cacheService}
}

func (r *userRepository) Create(user *models.User) error {
	if err := r.db.Create(user).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "unique") {
			return ErrEmailTaken
		}
		return ErrDatabaseOperation
	}
	return nil
}

func (r *userRepository) GetByID(id uint) (*models.User, error) {
	if r.cache != nil {
		key := r.cache.GenerateKey("user", "id", id)
		if user, err := r.cache.GetUser(context.Background(), key); err == nil {
			return user, nil
		}
	}

	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, ErrDatabaseOperation
	}

	if r.cache != nil {
		if err := r.cache.CacheUser(context.Background(), &user); err != nil {
			log.Printf("Failed to cache user %d: %v", user.ID, err)
		}
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, ErrDatabaseOperation
	}
	return &user, nil
}

func (r *userRepository) Update(user *models.User) error {
	if err := r.db.Save(user).Error; err != nil {
		return ErrDatabaseOperation
	}
	if r.cache != nil {
		if err := r.cache.InvalidateUser(context.Background(), user.ID); err != nil {
			log.Printf("Failed to invalidate user cache for %d: %v", user.ID, err)
		}
	}
	return nil
}

func (r *userRepository) IncrementTokenVersion(userID uint) error {
	res := r.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("token_version", gorm.Expr("token_version + 1"))
	if res.Error != nil {
		return ErrDatabaseOperation
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	if r.cache != nil {
		if err := r.cache.InvalidateUser(context.Background(), userID); err != nil {
			log.Printf("Failed to invalidate user cache for %d: %v", userID, err)
		}
	}
	return nil
}

func (r *userRepository) List(offset, limit int) ([]*models.User, int64, error) {
	var users []*models.User
	var total int64
	if err := r.db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, ErrDatabaseOperation
	}
	if err := r.db.Order("id ASC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, ErrDatabaseOperation
	}
	return users, total, nil
}
