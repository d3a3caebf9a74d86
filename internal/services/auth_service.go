package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/scholaris/school-service/internal/events"
	"github.com/scholaris/school-service/internal/models"
	"github.com/scholaris/school-service/internal/repositories"
	"github.com/scholaris/school-service/internal/validator"
)

// AuthConfig carries the signing secret and token lifetimes.
type AuthConfig struct {
	JWTSecret     string
	JWTTTL        time.Duration
	ResetTokenTTL time.Duration
}

// Claims is the JWT payload issued on login.
type Claims struct {
	UserID uint            `json:"user_id"`
	Role   models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

type authService struct {
	repo           repositories.Repository
	logger         *slog.Logger
	validator      *validator.BusinessValidator
	tokenStore     ResetTokenStore
	eventPublisher events.EventPublisher
	config         AuthConfig
}

func NewAuthService(repo repositories.Repository, logger *slog.Logger, validator *validator.BusinessValidator, tokenStore ResetTokenStore, eventPublisher events.EventPublisher, config AuthConfig) AuthService {
	return &authService{
		repo:           repo,
		logger:         logger,
		validator:      validator,
		tokenStore:     tokenStore,
		eventPublisher: eventPublisher,
		config:         config,
	}
}

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	if verrs := s.validator.Validate(req); verrs.HasErrors() {
		return nil, verrs
	}

	user, err := s.repo.User().GetByUsername(ctx, nil, req.Username)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			// Same error as a wrong password, so usernames cannot be probed.
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !checkPassword(user.PasswordHash, req.Password) {
		s.logger.Warn("Failed login attempt", "username", req.Username)
		return nil, ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(s.config.JWTTTL)
	claims := &Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	s.logger.Info("User logged in", "user_id", user.ID, "role", user.Role)

	return &LoginResponse{
		Token:     signed,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

// RequestPasswordReset issues a single-use token for the account behind the
// email. An unknown email is a silent success so addresses cannot be probed.
func (s *authService) RequestPasswordReset(ctx context.Context, req *PasswordResetRequest) error {
	if verrs := s.validator.Validate(req); verrs.HasErrors() {
		return verrs
	}

	user, err := s.repo.User().GetByEmail(ctx, nil, req.Email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			s.logger.Info("Password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	token := uuid.New().String()
	if err := s.tokenStore.Store(ctx, token, user.ID, s.config.ResetTokenTTL); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	if s.eventPublisher != nil {
		event := &events.Event{
			Type: events.EventPasswordResetRequested,
			Data: map[string]interface{}{
				"user_id": user.ID,
				"email":   user.Email,
				"token":   token,
			},
		}
		if err := s.eventPublisher.Publish(ctx, events.TopicAuth, event); err != nil {
			s.logger.Error("Failed to publish reset event", "user_id", user.ID, "error", err)
		}
	}

	s.logger.Info("Password reset token issued", "user_id", user.ID)
	return nil
}

func (s *authService) ConfirmPasswordReset(ctx context.Context, req *PasswordResetConfirmRequest) error {
	if verrs := s.validator.Validate(req); verrs.HasErrors() {
		return verrs
	}

	userID, err := s.tokenStore.Consume(ctx, req.Token)
	if err != nil {
		return err
	}

	user, err := s.repo.User().GetByID(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash

	if err := s.repo.User().Update(ctx, nil, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.Info("Password reset completed", "user_id", user.ID)
	return nil
}

// ===== PASSWORD HELPERS =====

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ParseToken validates a signed JWT and returns its claims. Used by the HTTP
// auth middleware.
func ParseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
