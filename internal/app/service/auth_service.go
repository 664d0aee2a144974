package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/townmarket/townmarket-backend/internal/app/model"
	"github.com/townmarket/townmarket-backend/internal/app/repository"
	"github.com/townmarket/townmarket-backend/pkg/logger"
	"github.com/townmarket/townmarket-backend/pkg/util"
	"gorm.io/gorm"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// TokenRevoker remembers logged-out tokens until they expire.
type TokenRevoker interface {
	Revoke(ctx context.Context, token string, expiry time.Duration) error
}

type AuthService interface {
	Login(email, password string) (*model.User, string, error)
	Logout(ctx context.Context, token string) error
	GetUserByID(id uint) (*model.User, error)
}

type authService struct {
	userRepo     repository.UserRepository
	revoker      TokenRevoker
	jwtSecret    string
	accessExpiry time.Duration
}

// NewAuthService builds the session service. revoker may be nil when no
// blacklist store is configured; logout then only clears the client cookie.
func NewAuthService(
	userRepo repository.UserRepository,
	revoker TokenRevoker,
	jwtSecret string,
	accessExpiry time.Duration,
) AuthService {
	return &authService{
		userRepo:     userRepo,
		revoker:      revoker,
		jwtSecret:    jwtSecret,
		accessExpiry: accessExpiry,
	}
}

func (s *authService) Login(email, password string) (*model.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	logger.Info("Login attempt", map[string]interface{}{
		"email": email,
	})

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Login failed: user not found", map[string]interface{}{
				"email": email,
			})
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", persistenceError(err)
	}

	if !util.VerifyPassword(user.PasswordHash, password) {
		logger.Warn("Login failed: invalid password", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, "", ErrInvalidCredentials
	}

	token, err := util.GenerateToken(user.ID, user.Email, string(user.Role), s.jwtSecret, s.accessExpiry)
	if err != nil {
		logger.Error("Failed to generate session token", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, "", err
	}

	logger.Info("User logged in", map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	})
	return user, token, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	claims, err := util.ValidateToken(token, s.jwtSecret)
	if err != nil {
		// Expired or forged tokens are already unusable
		return nil
	}
	if s.revoker == nil {
		return nil
	}

	if err := s.revoker.Revoke(ctx, token, claims.RemainingLifetime()); err != nil {
		return err
	}

	logger.Info("User logged out", map[string]interface{}{
		"user_id": claims.UserID,
	})
	return nil
}

func (s *authService) GetUserByID(id uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, persistenceError(err)
	}
	return user, nil
}
