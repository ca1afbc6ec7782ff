package auth

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"todochat/internal/config"
	"todochat/internal/storage"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "unit-test-secret"

func TestSignupLoginRoundTrip(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc := NewService(db, testSecret, time.Hour)
	ctx := context.Background()

	token, user, err := svc.Signup(ctx, "Alice", "alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Signup error: %v", err)
	}
	if token == "" || user.ID <= 0 {
		t.Fatalf("expected token and user id, got %q / %d", token, user.ID)
	}
	if user.PasswordHash == "hunter2" {
		t.Fatalf("password stored in plaintext")
	}

	userID, err := svc.ParseToken(token)
	if err != nil || userID != user.ID {
		t.Fatalf("ParseToken failed: id=%d err=%v", userID, err)
	}

	loginToken, loginUser, err := svc.Login(ctx, "alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if loginToken == "" || loginUser.ID != user.ID {
		t.Fatalf("unexpected login result: %q / %d", loginToken, loginUser.ID)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc := NewService(db, testSecret, time.Hour)
	ctx := context.Background()

	if _, _, err := svc.Signup(ctx, "Bob", "bob@example.com", "pw1"); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	if _, _, err := svc.Signup(ctx, "Bobby", "bob@example.com", "pw2"); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc := NewService(db, testSecret, time.Hour)
	ctx := context.Background()

	if _, _, err := svc.Signup(ctx, "Carol", "carol@example.com", "correct"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	// Wrong password and unknown email must produce the same error.
	_, _, wrongPW := svc.Login(ctx, "carol@example.com", "incorrect")
	if !errors.Is(wrongPW, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", wrongPW)
	}
	_, _, unknown := svc.Login(ctx, "nobody@example.com", "correct")
	if !errors.Is(unknown, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", unknown)
	}
	if wrongPW.Error() != unknown.Error() {
		t.Fatalf("error shapes differ: %q vs %q", wrongPW, unknown)
	}
}

func TestTokenCarriesFutureExpiry(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc := NewService(db, testSecret, 30*time.Minute)

	token, err := svc.IssueToken(42)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	var claims jwt.RegisteredClaims
	if _, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return []byte(testSecret), nil
	}); err != nil {
		t.Fatalf("parse claims: %v", err)
	}
	if claims.Subject != strconv.FormatInt(42, 10) {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		t.Fatalf("missing exp or iat claim")
	}
	if !claims.ExpiresAt.After(claims.IssuedAt.Time) {
		t.Fatalf("token expired at issuance: iat=%v exp=%v", claims.IssuedAt, claims.ExpiresAt)
	}
}

func TestParseExpiredToken(t *testing.T) {
	svc := NewService(nil, testSecret, time.Hour)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "7",
		IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	signed, err := expired.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := svc.ParseToken(signed); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	issuer := NewService(nil, "other-secret", time.Hour)
	token, err := issuer.IssueToken(1)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	svc := NewService(nil, testSecret, time.Hour)
	if _, err := svc.ParseToken(token); err == nil {
		t.Fatalf("expected signature error")
	}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := &config.Config{
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {DSN: filepath.Join(t.TempDir(), "test.db")},
		},
	}
	db, err := storage.Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	return db
}
