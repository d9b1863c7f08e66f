package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nearify/nearify-backend/config"
	"github.com/nearify/nearify-backend/internal/app/model"
	"github.com/nearify/nearify-backend/internal/app/repository"
	"github.com/nearify/nearify-backend/pkg/logger"
	"github.com/nearify/nearify-backend/pkg/redis"
	"github.com/nearify/nearify-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid email/username or password")
	ErrEmailTaken         = errors.New("this email is already registered")
	ErrUsernameTaken      = errors.New("this username is already taken")
)

type RegisterInput struct {
	Email    string
	Username string
	Password string
}

type AuthService interface {
	Register(input RegisterInput) (*model.User, *util.TokenPair, error)
	Login(identifier, password string) (*model.User, *util.TokenPair, error)
	Logout(ctx context.Context, token string) error
	GetUser(id uint) (*model.User, error)
}

type authService struct {
	userRepo repository.UserRepository
	jwtCfg   config.JWTConfig
	useRedis bool
}

func NewAuthService(userRepo repository.UserRepository, jwtCfg config.JWTConfig, useRedis bool) AuthService {
	return &authService{
		userRepo: userRepo,
		jwtCfg:   jwtCfg,
		useRedis: useRedis,
	}
}

func (s *authService) Register(input RegisterInput) (*model.User, *util.TokenPair, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	username := strings.TrimSpace(input.Username)

	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return nil, nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	if _, err := s.userRepo.FindByIdentifier(username); err == nil {
		return nil, nil, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	hash, err := util.HashPassword(input.Password)
	if err != nil {
		return nil, nil, err
	}

	user := &model.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         model.RoleUser,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, nil, err
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("User registered", map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
	})
	return user, tokens, nil
}

// Login accepts either the email address or the username.
func (s *authService) Login(identifier, password string) (*model.User, *util.TokenPair, error) {
	identifier = strings.TrimSpace(identifier)

	user, err := s.userRepo.FindByIdentifier(identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if !util.VerifyPassword(user.PasswordHash, password) {
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("User logged in", map[string]interface{}{
		"user_id": user.ID,
	})
	return user, tokens, nil
}

// Logout revokes the presented access token by blacklisting it for the
// remainder of its lifetime. Without Redis logout is a client-side no-op.
func (s *authService) Logout(ctx context.Context, token string) error {
	if !s.useRedis {
		return nil
	}

	claims, err := util.ValidateToken(token, s.jwtCfg.Secret)
	if err != nil {
		// An invalid or expired token needs no revocation.
		return nil
	}

	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining <= 0 {
		return nil
	}
	return redis.BlacklistToken(ctx, token, remaining)
}

func (s *authService) GetUser(id uint) (*model.User, error) {
	return s.userRepo.FindByID(id)
}

func (s *authService) issueTokens(user *model.User) (*util.TokenPair, error) {
	return util.GenerateTokenPair(
		user.ID,
		user.Email,
		string(user.Role),
		s.jwtCfg.Secret,
		s.jwtCfg.AccessTokenExpiry,
		s.jwtCfg.RefreshTokenExpiry,
	)
}
