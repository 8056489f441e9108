package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"casita/internal/models"

	"github.com/redis/go-redis/v9"
)

type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

// Base operations
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

func (s *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// Key generation
func (s *CacheService) GenerateKey(entityType, keyType string, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entityType, keyType, value)
}

// User caching
func (s *CacheService) CacheUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("cannot cache nil user")
	}
	return s.Set(ctx, s.GenerateKey("user", "id", user.ID), user)
}

func (s *CacheService) GetUser(ctx context.Context, key string) (*models.User, error) {
	var user models.User
	found, err := s.Get(ctx, key, &user)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.New("user not found in cache")
	}
	return &user, nil
}

func (s *CacheService) InvalidateUser(ctx context.Context, userID uint) error {
	return s.Delete(ctx, s.GenerateKey("user", "id", userID))
}

// Wallet caching
func (s *CacheService) CacheWallet(ctx context.Context, wallet *models.Wallet) error {
	if wallet == nil {
		return errors.New("cannot cache nil wallet")
	}
	return s.Set(ctx, s.GenerateKey("wallet", "user", wallet.UserID), wallet)
}

func (s *CacheService) GetWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	found, err := s.Get(ctx, s.GenerateKey("wallet", "user", userID), &wallet)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.New("wallet not found in cache")
	}
	return &wallet, nil
}

func (s *CacheService) InvalidateWallet(ctx context.Context, userID uint) error {
	return s.Delete(ctx, s.GenerateKey("wallet", "user", userID))
}

// Linked identity caching. Tokens stored here are advisory only; the
// processor re-validates them on every use.
func identityKey(userID uint, role string) string {
	return fmt.Sprintf("identity:%d:%s", userID, role)
}

func (s *CacheService) CacheIdentity(ctx context.Context, identity *models.LinkedIdentity) error {
	if identity == nil {
		return errors.New("cannot cache nil identity")
	}
	return s.Set(ctx, identityKey(identity.UserID, identity.Role), identity)
}

func (s *CacheService) GetIdentity(ctx context.Context, userID uint, role string) (*models.LinkedIdentity, error) {
	var identity models.LinkedIdentity
	found, err := s.Get(ctx, identityKey(userID, role), &identity)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.New("identity not found in cache")
	}
	return &identity, nil
}

func (s *CacheService) InvalidateIdentity(ctx context.Context, userID uint, role string) error {
	return s.Delete(ctx, identityKey(userID, role))
}

// Health and lifecycle
func (s *CacheService) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

func (s *CacheService) FlushAll(ctx context.Context) error {
	return s.client.FlushAll(ctx).Err()
}

func (s *CacheService) Close() error {
	return s.client.Close()
}
