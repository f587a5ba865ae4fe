package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/causerie-chat/server/internal/store"
	"github.com/causerie-chat/server/internal/store/sqlite"
)

func newTestAuthService(t *testing.T) *Service {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	jwtConfig := &JWTConfig{
		Secret: []byte("test-secret-change-me"),
		Issuer: "test",
		TTL:    24 * time.Hour,
	}

	return NewService(st, jwtConfig)
}

func TestRegister_RejectsInvalidUsername(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "ab", "ab@example.com", "password123"); !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("expected ErrInvalidUsername, got %v", err)
	}

	// Should be validated after trimming whitespace.
	if _, err := svc.Register(ctx, " ab ", "ab@example.com", "password123"); !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("expected ErrInvalidUsername, got %v", err)
	}
}

func TestRegister_RejectsInvalidEmail(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "not-an-email", "password123"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
}

func TestRegister_RejectsInvalidPassword(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "alice@example.com", "12345"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestRegister_TrimsAndNormalizes(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, " alice ", " Alice@Example.COM ", "password123")
	if err != nil {
		t.Fatalf("expected registration success, got %v", err)
	}
	if user.Username != "alice" {
		t.Fatalf("expected trimmed username, got %q", user.Username)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("expected lowercased email, got %q", user.Email)
	}
	if user.Role != store.RoleUser {
		t.Fatalf("expected default role user, got %q", user.Role)
	}

	// Should collide because the stored identifiers are normalized.
	if _, err := svc.Register(ctx, "alice", "other@example.com", "password123"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if _, err := svc.Register(ctx, "alice2", "alice@example.com", "password123"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestLogin_ReturnsVerifiableToken(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("expected registration success, got %v", err)
	}

	token, loggedIn, err := svc.Login(ctx, "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("expected login success, got %v", err)
	}
	if token == "" {
		t.Fatalf("expected non-empty token")
	}
	if loggedIn.ID != user.ID {
		t.Fatalf("expected user %d, got %d", user.ID, loggedIn.ID)
	}

	claims, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("expected claims for user %d, got %d", user.ID, claims.UserID)
	}
	if claims.Role != store.RoleUser {
		t.Fatalf("expected role user in claims, got %q", claims.Role)
	}
}

func TestLogin_RejectsWrongPassword(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "alice@example.com", "password123"); err != nil {
		t.Fatalf("expected registration success, got %v", err)
	}

	if _, _, err := svc.Login(ctx, "alice@example.com", "wrongpass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestVerifyToken_RejectsForgedToken(t *testing.T) {
	svc := newTestAuthService(t)

	otherCfg := &JWTConfig{Secret: []byte("other-secret"), Issuer: "test", TTL: time.Hour}
	forged, err := GenerateToken(otherCfg, 1, store.RoleUser)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	if _, err := svc.VerifyToken(forged); err == nil {
		t.Fatal("expected verification failure for wrong secret")
	}
}
