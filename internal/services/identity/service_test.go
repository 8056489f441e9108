package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"casita/internal/models"
	"casita/internal/paypal"
	"casita/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) ExchangeAuthCode(ctx context.Context, code, redirectURI string) (*paypal.Tokens, error) {
	args := m.Called(ctx, code, redirectURI)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paypal.Tokens), args.Error(1)
}

func (m *MockProcessor) GetUserInfo(ctx context.Context, accessToken string) (*paypal.UserInfo, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paypal.UserInfo), args.Error(1)
}

type MockIdentityRepo struct {
	mock.Mock
}

func (m *MockIdentityRepo) Get(ctx context.Context, userID uint, role string) (*models.LinkedIdentity, error) {
	args := m.Called(ctx, userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LinkedIdentity), args.Error(1)
}

func (m *MockIdentityRepo) Upsert(ctx context.Context, identity *models.LinkedIdentity) error {
	return m.Called(ctx, identity).Error(0)
}

func (m *MockIdentityRepo) Delete(ctx context.Context, userID uint, role string) error {
	return m.Called(ctx, userID, role).Error(0)
}

func (m *MockIdentityRepo) ClearTokens(ctx context.Context, userID uint, role string) error {
	return m.Called(ctx, userID, role).Error(0)
}

func (m *MockIdentityRepo) UpdateEmail(ctx context.Context, userID uint, role string, email string) error {
	return m.Called(ctx, userID, role, email).Error(0)
}

func TestLink(t *testing.T) {
	t.Run("successful link stores a verified identity", func(t *testing.T) {
		processor := new(MockProcessor)
		repo := new(MockIdentityRepo)
		processor.On("ExchangeAuthCode", mock.Anything, "code-1", "https://app/callback").
			Return(&paypal.Tokens{AccessToken: "at", RefreshToken: "rt", ExpiresAt: time.Now().Add(time.Hour).Unix()}, nil)
		processor.On("GetUserInfo", mock.Anything, "at").
			Return(&paypal.UserInfo{Email: "host@example.com", Verified: true}, nil)
		repo.On("Upsert", mock.Anything, mock.MatchedBy(func(li *models.LinkedIdentity) bool {
			return li.UserID == 7 && li.Role == models.RoleHost &&
				li.Email == "host@example.com" && li.Verified &&
				li.AccessToken == "at" && li.TokenExpiresAt != nil
		})).Return(nil)

		s := NewService(processor, repo)
		li, err := s.Link(context.Background(), 7, models.RoleHost, "code-1", "https://app/callback")

		assert.NoError(t, err)
		assert.Equal(t, "host@example.com", li.Email)
		processor.AssertExpectations(t)
		repo.AssertExpectations(t)
	})

	t.Run("guest role cannot link", func(t *testing.T) {
		s := NewService(new(MockProcessor), new(MockIdentityRepo))
		_, err := s.Link(context.Background(), 7, models.RoleGuest, "code-1", "")
		assert.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("rejected code maps to invalid auth code", func(t *testing.T) {
		processor := new(MockProcessor)
		processor.On("ExchangeAuthCode", mock.Anything, "bad", "").
			Return(nil, errors.New("auth code exchange failed"))

		s := NewService(processor, new(MockIdentityRepo))
		_, err := s.Link(context.Background(), 7, models.RoleHost, "bad", "")
		assert.ErrorIs(t, err, ErrInvalidAuthCode)
	})

	t.Run("identity without email is rejected", func(t *testing.T) {
		processor := new(MockProcessor)
		processor.On("ExchangeAuthCode", mock.Anything, "code-1", "").
			Return(&paypal.Tokens{AccessToken: "at"}, nil)
		processor.On("GetUserInfo", mock.Anything, "at").
			Return(&paypal.UserInfo{}, nil)

		s := NewService(processor, new(MockIdentityRepo))
		_, err := s.Link(context.Background(), 7, models.RoleHost, "code-1", "")
		assert.ErrorIs(t, err, ErrNoEmail)
	})
}

func TestResolveEmail(t *testing.T) {
	t.Run("stored email when no usable token", func(t *testing.T) {
		processor := new(MockProcessor)
		repo := new(MockIdentityRepo)
		repo.On("Get", mock.Anything, uint(7), models.RoleHost).
			Return(&models.LinkedIdentity{UserID: 7, Role: models.RoleHost, Email: "host@example.com", Verified: true}, nil)

		s := NewService(processor, repo)
		email, err := s.ResolveEmail(context.Background(), 7, models.RoleHost)

		assert.NoError(t, err)
		assert.Equal(t, "host@example.com", email)
		processor.AssertNotCalled(t, "GetUserInfo", mock.Anything, mock.Anything)
	})

	t.Run("fresh token backfills a changed email", func(t *testing.T) {
		processor := new(MockProcessor)
		repo := new(MockIdentityRepo)
		exp := time.Now().Add(time.Hour)
		repo.On("Get", mock.Anything, uint(7), models.RoleHost).
			Return(&models.LinkedIdentity{
				UserID: 7, Role: models.RoleHost, Verified: true,
				Email: "old@example.com", AccessToken: "at", TokenExpiresAt: &exp,
			}, nil)
		processor.On("GetUserInfo", mock.Anything, "at").
			Return(&paypal.UserInfo{Email: "new@example.com"}, nil)
		repo.On("UpdateEmail", mock.Anything, uint(7), models.RoleHost, "new@example.com").
			Return(nil)

		s := NewService(processor, repo)
		email, err := s.ResolveEmail(context.Background(), 7, models.RoleHost)

		assert.NoError(t, err)
		assert.Equal(t, "new@example.com", email)
		repo.AssertExpectations(t)
	})

	t.Run("refresh failure falls back to stored email", func(t *testing.T) {
		processor := new(MockProcessor)
		repo := new(MockIdentityRepo)
		exp := time.Now().Add(time.Hour)
		repo.On("Get", mock.Anything, uint(7), models.RoleHost).
			Return(&models.LinkedIdentity{
				UserID: 7, Role: models.RoleHost, Verified: true,
				Email: "host@example.com", AccessToken: "at", TokenExpiresAt: &exp,
			}, nil)
		processor.On("GetUserInfo", mock.Anything, "at").
			Return(nil, errors.New("userinfo unavailable"))

		s := NewService(processor, repo)
		email, err := s.ResolveEmail(context.Background(), 7, models.RoleHost)

		assert.NoError(t, err)
		assert.Equal(t, "host@example.com", email)
		repo.AssertNotCalled(t, "ClearTokens", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("expired token is cleared, stored email still resolves", func(t *testing.T) {
		processor := new(MockProcessor)
		repo := new(MockIdentityRepo)
		exp := time.Now().Add(time.Hour)
		repo.On("Get", mock.Anything, uint(7), models.RoleHost).
			Return(&models.LinkedIdentity{
				UserID: 7, Role: models.RoleHost, Verified: true,
				Email: "host@example.com", AccessToken: "at", TokenExpiresAt: &exp,
			}, nil)
		processor.On("GetUserInfo", mock.Anything, "at").
			Return(nil, paypal.ErrTokenExpired)
		repo.On("ClearTokens", mock.Anything, uint(7), models.RoleHost).Return(nil)

		s := NewService(processor, repo)
		email, err := s.ResolveEmail(context.Background(), 7, models.RoleHost)

		assert.NoError(t, err)
		assert.Equal(t, "host@example.com", email)
		repo.AssertCalled(t, "ClearTokens", mock.Anything, uint(7), models.RoleHost)
	})

	t.Run("unverified identity is not a payout destination", func(t *testing.T) {
		processor := new(MockProcessor)
		repo := new(MockIdentityRepo)
		repo.On("Get", mock.Anything, uint(7), models.RoleHost).
			Return(&models.LinkedIdentity{UserID: 7, Role: models.RoleHost, Email: "host@example.com"}, nil)

		s := NewService(processor, repo)
		_, err := s.ResolveEmail(context.Background(), 7, models.RoleHost)

		assert.ErrorIs(t, err, ErrNotLinked)
		processor.AssertNotCalled(t, "GetUserInfo", mock.Anything, mock.Anything)
	})

	t.Run("unlinked user", func(t *testing.T) {
		repo := new(MockIdentityRepo)
		repo.On("Get", mock.Anything, uint(9), models.RoleHost).
			Return(nil, repositories.ErrIdentityNotFound)

		s := NewService(new(MockProcessor), repo)
		_, err := s.ResolveEmail(context.Background(), 9, models.RoleHost)
		assert.ErrorIs(t, err, ErrNotLinked)
	})
}

func TestUnlink(t *testing.T) {
	repo := new(MockIdentityRepo)
	repo.On("Delete", mock.Anything, uint(7), models.RoleHost).
		Return(repositories.ErrIdentityNotFound)

	s := NewService(new(MockProcessor), repo)
	err := s.Unlink(context.Background(), 7, models.RoleHost)
	assert.NoError(t, err)
}

func TestInvalidateTokens(t *testing.T) {
	repo := new(MockIdentityRepo)
	repo.On("ClearTokens", mock.Anything, uint(7), models.RoleHost).Return(nil)

	s := NewService(new(MockProcessor), repo)
	assert.NoError(t, s.InvalidateTokens(context.Background(), 7, models.RoleHost))
	repo.AssertExpectations(t)
}
