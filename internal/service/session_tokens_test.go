package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSessionTokens_IssueParse(t *testing.T) {
	svc := NewSessionTokens("secret", time.Hour)
	now := time.Now().UTC()

	token, err := svc.Issue("user@example.com", now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := svc.Parse(token, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Email != "user@example.com" || claims.ID == "" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestSessionTokens_DistinctTokensAtSameInstant(t *testing.T) {
	svc := NewSessionTokens("secret", time.Hour)
	now := time.Now().UTC()

	t1, err := svc.Issue("user@example.com", now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	t2, err := svc.Issue("user@example.com", now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if t1 == t2 {
		t.Fatalf("expected distinct tokens for the same instant")
	}
}

func TestSessionTokens_Expired(t *testing.T) {
	svc := NewSessionTokens("secret", time.Hour)
	now := time.Now().UTC()
	token, err := svc.Issue("user@example.com", now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Parse(token, now.Add(2*time.Hour)); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestSessionTokens_RejectsForeignSignature(t *testing.T) {
	now := time.Now().UTC()
	token, err := NewSessionTokens("other", time.Hour).Issue("user@example.com", now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewSessionTokens("secret", time.Hour).Parse(token, now); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid, got %v", err)
	}
}

func TestSessionTokens_RejectsWrongIssuer(t *testing.T) {
	svc := NewSessionTokens("secret", time.Hour)
	now := time.Now().UTC()
	claims := SessionClaims{
		Email: "user@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "sid",
			Issuer:    "other-issuer",
			Subject:   "user@example.com",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := svc.Parse(signed, now); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid for wrong issuer, got %v", err)
	}
}

func TestSessionTokens_RejectsEmptySecretAndLegacyBase64(t *testing.T) {
	if _, err := NewSessionTokens("", time.Hour).Issue("user@example.com", time.Now()); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid on empty secret, got %v", err)
	}
	// base64("user@example.com:1700000000000")
	legacy := "dXNlckBleGFtcGxlLmNvbToxNzAwMDAwMDAwMDAw"
	if _, err := NewSessionTokens("secret", time.Hour).Parse(legacy, time.Now()); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected forged token to be rejected, got %v", err)
	}
}
