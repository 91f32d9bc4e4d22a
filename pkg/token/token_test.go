package token

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "unit-test-secret"

func TestIssueThenParse(t *testing.T) {
	id := Identity{
		UserID:    "user-1",
		Name:      "Jane Doe",
		Email:     "jane@example.com",
		Role:      "admin",
		TwoFactor: true,
	}
	raw, err := Issue(id, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := Parse(raw, testSecret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != id.UserID {
		t.Errorf("user id = %q, want %q", claims.UserID, id.UserID)
	}
	if claims.Email != id.Email {
		t.Errorf("email = %q, want %q", claims.Email, id.Email)
	}
	if claims.Role != "admin" {
		t.Errorf("role = %q, want admin", claims.Role)
	}
	if !claims.TwoFactor {
		t.Error("expected two factor flag to survive the round trip")
	}
}

func TestParseExpired(t *testing.T) {
	raw, err := Issue(Identity{UserID: "user-1"}, testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := Parse(raw, testSecret); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestParseWrongSecret(t *testing.T) {
	raw, err := Issue(Identity{UserID: "user-1"}, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := Parse(raw, "some-other-secret"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestParseGarbage(t *testing.T) {
	if _, err := Parse("not.a.token", testSecret); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}
