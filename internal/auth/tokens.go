package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/toko-storefront/internal/common"
)

// RoleAdmin grants access to back-office endpoints.
const RoleAdmin = "admin"

const rolesClaim = "roles"

// Claims is the identity carried by an access token.
type Claims struct {
	Subject string
	Roles   []string
}

// Tokens signs and verifies HS256 access tokens. Issuing exists for tooling
// and tests; end-user login lives outside this service.
type Tokens struct {
	secret    []byte
	validator TokenValidator
	now       func() time.Time
}

// NewTokens constructs a Tokens helper for the shared secret.
func NewTokens(secret, issuer, audience string) (*Tokens, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: secret is required")
	}
	return &Tokens{
		secret: []byte(secret),
		validator: TokenValidator{
			Issuer:    issuer,
			Audience:  audience,
			ClockSkew: 30 * time.Second,
			Algorithm: jwa.HS256,
		},
		now: time.Now,
	}, nil
}

// WithNow overrides the clock, used by tests.
func (t *Tokens) WithNow(now func() time.Time) {
	if now != nil {
		t.now = now
	}
}

// Issue mints a signed token for subject carrying roles.
func (t *Tokens) Issue(subject string, roles []string, ttl time.Duration) (string, error) {
	now := t.now()
	builder := jwt.NewBuilder().
		Subject(subject).
		IssuedAt(now).
		NotBefore(now).
		Expiration(now.Add(ttl)).
		Claim(rolesClaim, roles)
	if t.validator.Issuer != "" {
		builder = builder.Issuer(t.validator.Issuer)
	}
	if t.validator.Audience != "" {
		builder = builder.Audience([]string{t.validator.Audience})
	}
	tok, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("auth: build token: %w", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, t.secret))
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return string(signed), nil
}

// Parse verifies the signature and registered claims of token.
func (t *Tokens) Parse(token string) (Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Claims{}, common.NewAppError("UNAUTHORIZED", "missing token", http.StatusUnauthorized, nil)
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(jwa.HS256, t.secret), jwt.WithValidate(false))
	if err != nil {
		return Claims{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if err := t.validator.Validate(parsed, jwa.HS256, t.now()); err != nil {
		return Claims{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if parsed.Subject() == "" {
		return Claims{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, errors.New("auth: token missing subject"))
	}
	return Claims{Subject: parsed.Subject(), Roles: rolesFrom(parsed)}, nil
}

func rolesFrom(tok jwt.Token) []string {
	raw, ok := tok.Get(rolesClaim)
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
