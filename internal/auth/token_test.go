package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/lumen-app/lumen/internal/shared"
)

func TestJWTIssueAndVerify(t *testing.T) {
	t.Parallel()

	codec := NewJWTCodec("super-secret", time.Hour)
	userID := "64f1a2b3c4d5e6f708192a3b"

	token, err := codec.Issue(userID)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	got, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if got != userID {
		t.Fatalf("user id mismatch: got %q want %q", got, userID)
	}
}

func TestJWTVerifyExpired(t *testing.T) {
	t.Parallel()

	codec := NewJWTCodec("secret", -1*time.Second)

	token, err := codec.Issue("u1")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = codec.Verify(token)
	if !errors.Is(err, shared.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestJWTVerifyWrongSecret(t *testing.T) {
	t.Parallel()

	token, err := NewJWTCodec("right-secret", time.Hour).Issue("u2")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = NewJWTCodec("wrong-secret", time.Hour).Verify(token)
	if !errors.Is(err, shared.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestJWTVerifyMalformed(t *testing.T) {
	t.Parallel()

	codec := NewJWTCodec("k", time.Hour)
	if _, err := codec.Verify("not.a.jwt"); !errors.Is(err, shared.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for malformed token, got %v", err)
	}
	if _, err := codec.Verify(""); !errors.Is(err, shared.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for empty token, got %v", err)
	}
}
