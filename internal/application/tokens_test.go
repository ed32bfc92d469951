package application

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestNewTokenIssuer_RequiresSecret(t *testing.T) {
	t.Parallel()

	if _, err := NewTokenIssuer("", "", 0, nil); err == nil {
		t.Fatalf("expected error for empty secret")
	}
	issuer, err := NewTokenIssuer("secret", "", 0, nil)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	if issuer.ttl != 24*time.Hour {
		t.Fatalf("expected default ttl of 24h, got %v", issuer.ttl)
	}
}

func TestTokenIssuer_IssueAndParse(t *testing.T) {
	t.Parallel()

	clock := testNow
	issuer, err := NewTokenIssuer("secret", "flexspace", time.Hour, func() time.Time { return clock })
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	user := User{ID: "u-1", Email: "u1@example.com", Role: RoleManager}

	token, expiresAt, err := issuer.Issue(user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !expiresAt.Equal(testNow.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", expiresAt)
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "u-1" || claims.Email != "u1@example.com" || claims.Role != RoleManager {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestTokenIssuer_ParseRejections(t *testing.T) {
	t.Parallel()

	now := testNow
	issuer, err := NewTokenIssuer("secret", "flexspace", time.Hour, func() time.Time { return now })
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	user := User{ID: "u-1", Email: "u1@example.com", Role: RoleEmployee}
	valid, _, err := issuer.Issue(user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	later, err := NewTokenIssuer("secret", "flexspace", time.Hour, func() time.Time { return now.Add(2 * time.Hour) })
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	otherSecret, err := NewTokenIssuer("other", "flexspace", time.Hour, func() time.Time { return now })
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	otherIssuer, err := NewTokenIssuer("secret", "someone-else", time.Hour, func() time.Time { return now })
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1", Issuer: "flexspace"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	cases := []struct {
		name   string
		parser *TokenIssuer
		token  string
	}{
		{name: "expired", parser: later, token: valid},
		{name: "wrong secret", parser: otherSecret, token: valid},
		{name: "wrong issuer", parser: otherIssuer, token: valid},
		{name: "alg none", parser: issuer, token: noneToken},
		{name: "garbage", parser: issuer, token: "a.b.c"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := tc.parser.Parse(tc.token); !errors.Is(err, ErrUnauthenticated) {
				t.Fatalf("expected ErrUnauthenticated, got %v", err)
			}
		})
	}
}
