package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"casita/internal/models"
	"casita/internal/paypal"
	"casita/internal/repositories"
)

type service struct {
	client ProcessorClient
	repo   repositories.IdentityRepository
}

func NewService(client ProcessorClient, repo repositories.IdentityRepository) Service {
	if client == nil || repo == nil {
		panic("processor client and identity repository are required")
	}
	return &service{client: client, repo: repo}
}

func (s *service) Link(ctx context.Context, userID uint, role, authCode, redirectURI string) (*models.LinkedIdentity, error) {
	if role != models.RoleHost && role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}
	if authCode == "" {
		return nil, fmt.Errorf("%w: empty code", ErrInvalidAuthCode)
	}

	tokens, err := s.client.ExchangeAuthCode(ctx, authCode, redirectURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAuthCode, err)
	}

	info, err := s.client.GetUserInfo(ctx, tokens.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("fetching processor identity: %w", err)
	}
	if info.Email == "" {
		return nil, ErrNoEmail
	}

	li := &models.LinkedIdentity{
		UserID:       userID,
		Role:         role,
		Email:        info.Email,
		Verified:     true,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}
	if tokens.ExpiresAt > 0 {
		exp := time.Unix(tokens.ExpiresAt, 0)
		li.TokenExpiresAt = &exp
	}
	if err := s.repo.Upsert(ctx, li); err != nil {
		return nil, fmt.Errorf("storing linked identity: %w", err)
	}
	slog.Info("linked payout identity", "user_id", userID, "role", role)
	return li, nil
}

func (s *service) Get(ctx context.Context, userID uint, role string) (*models.LinkedIdentity, error) {
	li, err := s.repo.Get(ctx, userID, role)
	if err != nil {
		if errors.Is(err, repositories.ErrIdentityNotFound) {
			return nil, ErrNotLinked
		}
		return nil, err
	}
	return li, nil
}

func (s *service) Unlink(ctx context.Context, userID uint, role string) error {
	err := s.repo.Delete(ctx, userID, role)
	if err != nil && !errors.Is(err, repositories.ErrIdentityNotFound) {
		return err
	}
	return nil
}

func (s *service) ResolveEmail(ctx context.Context, userID uint, role string) (string, error) {
	li, err := s.Get(ctx, userID, role)
	if err != nil {
		return "", err
	}
	// An unverified identity is not a payout destination.
	if !li.Verified {
		return "", ErrNotLinked
	}

	// The stored email is authoritative unless we can cheaply confirm a
	// fresher one with a still-valid token. Refresh failures never block
	// a payout that has a stored destination.
	if li.TokenCapable() {
		if info, err := s.client.GetUserInfo(ctx, li.AccessToken); err == nil {
			if info.Email != "" && info.Email != li.Email {
				if uerr := s.repo.UpdateEmail(ctx, userID, role, info.Email); uerr != nil {
					slog.Warn("persisting refreshed payout email failed", "user_id", userID, "error", uerr)
				}
				return info.Email, nil
			}
		} else {
			slog.Debug("payout email refresh failed, using stored email", "user_id", userID, "error", err)
			if errors.Is(err, paypal.ErrTokenExpired) {
				if ierr := s.InvalidateTokens(ctx, userID, role); ierr != nil {
					slog.Warn("clearing expired payout tokens failed", "user_id", userID, "error", ierr)
				}
			}
		}
	}

	if li.Email == "" {
		return "", ErrNoEmail
	}
	return li.Email, nil
}

func (s *service) InvalidateTokens(ctx context.Context, userID uint, role string) error {
	if err := s.repo.ClearTokens(ctx, userID, role); err != nil {
		if errors.Is(err, repositories.ErrIdentityNotFound) {
			return nil
		}
		return err
	}
	slog.Info("cleared payout identity tokens", "user_id", userID, "role", role)
	return nil
}
