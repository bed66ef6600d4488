package auth

import (
	"testing"
	"time"

	"experta/internal/domain"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("motdepasse123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "motdepasse123" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !CheckPassword("motdepasse123", hash) {
		t.Fatal("correct password rejected")
	}
	if CheckPassword("autremotdepasse", hash) {
		t.Fatal("wrong password accepted")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("court"); err == nil {
		t.Fatal("short password accepted")
	}
	if err := ValidatePassword("assezlong"); err != nil {
		t.Fatalf("valid password rejected: %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	ti := NewTokenIssuer("test-secret")
	user := domain.User{ID: 42, Email: "jean@example.com", Role: domain.RoleAMO}
	token, err := ti.Issue(user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := ti.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "jean@example.com" || claims.Role != domain.RoleAMO {
		t.Fatalf("claims mismatch: %+v", claims)
	}
	if claims.ExpiresAt == nil {
		t.Fatal("missing expiry")
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl < 23*time.Hour || ttl > 24*time.Hour {
		t.Fatalf("unexpected ttl %v", ttl)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := NewTokenIssuer("secret-a").Issue(domain.User{ID: 1, Role: domain.RoleClient})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := NewTokenIssuer("secret-b").Verify(token); err != ErrInvalidToken {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestTokenExpired(t *testing.T) {
	ti := &TokenIssuer{secret: []byte("test-secret"), ttl: -time.Minute}
	token, err := ti.Issue(domain.User{ID: 1, Role: domain.RoleClient})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := NewTokenIssuer("test-secret").Verify(token); err != ErrInvalidToken {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestTokenGarbage(t *testing.T) {
	if _, err := NewTokenIssuer("test-secret").Verify("pas.un.jwt"); err != ErrInvalidToken {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestTokenUnknownRole(t *testing.T) {
	ti := NewTokenIssuer("test-secret")
	token, err := ti.Issue(domain.User{ID: 1, Role: domain.Role("banane")})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := ti.Verify(token); err != ErrInvalidToken {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestTokenLegacyRoleSpelling(t *testing.T) {
	ti := NewTokenIssuer("test-secret")
	token, err := ti.Issue(domain.User{ID: 7, Role: domain.Role("AMO")})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := ti.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Role != domain.RoleAMO {
		t.Fatalf("legacy spelling not normalized: %q", claims.Role)
	}
}
