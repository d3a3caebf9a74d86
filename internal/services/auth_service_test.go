package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/scholaris/school-service/internal/events"
	"github.com/scholaris/school-service/internal/models"
	"github.com/scholaris/school-service/internal/validator"
)

// memoryTokenStore is an in-memory ResetTokenStore for tests.
type memoryTokenStore struct {
	tokens map[string]uint
}

func newMemoryTokenStore() *memoryTokenStore {
	return &memoryTokenStore{tokens: make(map[string]uint)}
}

func (s *memoryTokenStore) Store(ctx context.Context, token string, userID uint, ttl time.Duration) error {
	s.tokens[token] = userID
	return nil
}

func (s *memoryTokenStore) Consume(ctx context.Context, token string) (uint, error) {
	userID, ok := s.tokens[token]
	if !ok {
		return 0, ErrInvalidResetToken
	}
	delete(s.tokens, token)
	return userID, nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:     "test-secret",
		JWTTTL:        time.Hour,
		ResetTokenTTL: 15 * time.Minute,
	}
}

func seedLoginUser(fx *schoolFixture, username, password string) *models.User {
	hash, _ := hashPassword(password)
	return fx.repo.addUser(&models.User{
		Username:     username,
		Email:        username + "@school.test",
		FirstName:    "Lia",
		PasswordHash: hash,
		Role:         models.RoleStudent,
	})
}

func TestAuthService_Login(t *testing.T) {
	fx := seedSchool()
	store := newMemoryTokenStore()
	svc := NewAuthService(fx.repo, testLogger(), validator.New(), store, nil, testAuthConfig())
	ctx := context.Background()

	user := seedLoginUser(fx, "lia", "opensesame")

	resp, err := svc.Login(ctx, &LoginRequest{Username: "lia", Password: "opensesame"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("empty token")
	}
	if resp.User.ID != user.ID {
		t.Errorf("user id = %d, want %d", resp.User.ID, user.ID)
	}

	claims, err := ParseToken(resp.Token, "test-secret")
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != models.RoleStudent {
		t.Errorf("claims = %+v", claims)
	}
}

func TestAuthService_Login_BadCredentials(t *testing.T) {
	fx := seedSchool()
	svc := NewAuthService(fx.repo, testLogger(), validator.New(), newMemoryTokenStore(), nil, testAuthConfig())
	ctx := context.Background()

	seedLoginUser(fx, "lia", "opensesame")

	// Wrong password and unknown username surface the same error.
	if _, err := svc.Login(ctx, &LoginRequest{Username: "lia", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: %v", err)
	}
	if _, err := svc.Login(ctx, &LoginRequest{Username: "ghost", Password: "opensesame"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: %v", err)
	}
}

func TestAuthService_ParseToken_RejectsWrongSecret(t *testing.T) {
	fx := seedSchool()
	svc := NewAuthService(fx.repo, testLogger(), validator.New(), newMemoryTokenStore(), nil, testAuthConfig())

	seedLoginUser(fx, "lia", "opensesame")
	resp, err := svc.Login(context.Background(), &LoginRequest{Username: "lia", Password: "opensesame"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, err := ParseToken(resp.Token, "other-secret"); err == nil {
		t.Fatal("token verified with wrong secret")
	}
}

func TestAuthService_PasswordReset_RoundTrip(t *testing.T) {
	fx := seedSchool()
	store := newMemoryTokenStore()
	publisher := events.NewMockEventPublisher(testLogger())
	svc := NewAuthService(fx.repo, testLogger(), validator.New(), store, publisher, testAuthConfig())
	ctx := context.Background()

	user := seedLoginUser(fx, "lia", "oldpassword")

	if err := svc.RequestPasswordReset(ctx, &PasswordResetRequest{Email: user.Email}); err != nil {
		t.Fatalf("request reset: %v", err)
	}

	published := publisher.GetPublishedEvents()
	if len(published) != 1 || published[0].Type != events.EventPasswordResetRequested {
		t.Fatalf("expected one reset event, got %d", len(published))
	}
	token, _ := published[0].Data.(map[string]interface{})["token"].(string)
	if token == "" {
		t.Fatal("reset event carries no token")
	}

	if err := svc.ConfirmPasswordReset(ctx, &PasswordResetConfirmRequest{
		Token:       token,
		NewPassword: "brandnewpass",
	}); err != nil {
		t.Fatalf("confirm reset: %v", err)
	}

	// Old password out, new password in.
	if _, err := svc.Login(ctx, &LoginRequest{Username: "lia", Password: "oldpassword"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password still works: %v", err)
	}
	if _, err := svc.Login(ctx, &LoginRequest{Username: "lia", Password: "brandnewpass"}); err != nil {
		t.Errorf("new password rejected: %v", err)
	}

	// Token is single use.
	err := svc.ConfirmPasswordReset(ctx, &PasswordResetConfirmRequest{Token: token, NewPassword: "anotherpass1"})
	if !errors.Is(err, ErrInvalidResetToken) {
		t.Errorf("expected ErrInvalidResetToken on reuse, got %v", err)
	}
}

func TestAuthService_PasswordReset_UnknownEmailSilent(t *testing.T) {
	fx := seedSchool()
	store := newMemoryTokenStore()
	svc := NewAuthService(fx.repo, testLogger(), validator.New(), store, nil, testAuthConfig())

	if err := svc.RequestPasswordReset(context.Background(), &PasswordResetRequest{Email: "nobody@school.test"}); err != nil {
		t.Fatalf("unknown email should not error: %v", err)
	}
	if len(store.tokens) != 0 {
		t.Error("no token should be issued for unknown email")
	}
}
