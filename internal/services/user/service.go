package user

import (
	"context"
	"errors"

	"casita/internal/models"
	"casita/internal/repositories"
	"casita/internal/services/wallet"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken   = errors.New("user with this email already exists")
	ErrInvalidInput = errors.New("invalid registration input")
)

type Service interface {
	GetByID(id uint) (*models.User, error)
	Register(ctx context.Context, input *models.RegisterInput) (*models.User, error)
	Update(user *models.User) error
	List(page, limit int) ([]*models.User, int64, error)
}

type service struct {
	repo    repositories.UserRepository
	wallets wallet.Service
}

func NewService(repo repositories.UserRepository, wallets wallet.Service) Service {
	return &service{
		repo:    repo,
		wallets: wallets,
	}
}

func (s *service) GetByID(id uint) (*models.User, error) {
	return s.repo.GetByID(id)
}

// Register creates the account and its wallet. Every account gets a wallet
// up front so ledger writes never race wallet creation.
func (s *service) Register(ctx context.Context, input *models.RegisterInput) (*models.User, error) {
	if input.Email == "" || input.Password == "" {
		return nil, ErrInvalidInput
	}
	role := input.Role
	switch role {
	case "":
		role = models.RoleGuest
	case models.RoleGuest, models.RoleHost:
	default:
		// Admin accounts are created by the seed tool, never via the API.
		return nil, ErrInvalidInput
	}

	if existing, _ := s.repo.GetByEmail(input.Email); existing != nil {
		return nil, ErrEmailTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	user := &models.User{
		Name:     input.Name,
		Email:    input.Email,
		Password: string(hashedPassword),
		Role:     role,
		Status:   "active",
	}
	if err := s.repo.Create(user); err != nil {
		return nil, err
	}

	if w, err := s.wallets.EnsureWallet(ctx, user.ID, ""); err == nil {
		user.WalletID = &w.ID
		if err := s.repo.Update(user); err != nil {
			return nil, err
		}
	} else {
		return nil, err
	}

	return user, nil
}

func (s *service) Update(user *models.User) error {
	return s.repo.Update(user)
}

func (s *service) List(page, limit int) ([]*models.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.repo.List((page-1)*limit, limit)
}
