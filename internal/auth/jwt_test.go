package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestNewVerifier_EmptySecretDisablesAuth(t *testing.T) {
	if v := NewVerifier(""); v != nil {
		t.Fatal("expected nil verifier for empty secret")
	}
}

func TestIssueAndParse(t *testing.T) {
	v := NewVerifier("s3cret")

	token, err := v.Issue("alice", time.Hour)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	subject, err := v.Parse(token)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if subject != "alice" {
		t.Errorf("subject = %q, want alice", subject)
	}
}

func TestIssue_RejectsBadInput(t *testing.T) {
	v := NewVerifier("s3cret")

	if _, err := v.Issue(" ", time.Hour); err == nil {
		t.Error("expected error for empty subject")
	}
	if _, err := v.Issue("alice", 0); err == nil {
		t.Error("expected error for zero ttl")
	}
}

func TestParse_Rejects(t *testing.T) {
	v := NewVerifier("s3cret")
	other := NewVerifier("different")

	expired := NewVerifier("s3cret")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, err := expired.Issue("alice", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	forged, err := other.Issue("alice", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "expired", token: expiredToken},
		{name: "wrong secret", token: forged},
		{name: "alg none", token: none},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Parse(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}
