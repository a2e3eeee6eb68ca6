// Package auth resolves the caller's identity from a Supabase access token.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. The browser signs in with Supabase Auth and receives an access token (a JWT)
//  2. Every API call sends it as "Authorization: Bearer <token>"
//  3. RequireAuth extracts the token and hands it to a Verifier
//  4. The Verifier checks it locally (HS256 with the project's JWT secret) or, failing
//     that, asks Supabase's /auth/v1/user endpoint who the token belongs to
//  5. The verified user is stored in the request context for the handlers
//
// We never issue tokens to real clients ourselves. TokenService can mint tokens with the
// same shape as Supabase's, which is what the tests and local development use.
//
// SUPABASE JWT SHAPE:
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<user uuid>","aud":"authenticated","role":"authenticated",
//	            "email":"...","exp":1234567890}
//	- Signature: HMAC-SHA256(header+"."+payload, projectJWTSecret)
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/pet-namer/internal/model"
)

// Audience is the "aud" claim Supabase puts on tokens of signed-in users.
const Audience = "authenticated"

// Verifier turns a raw bearer token into a verified user.
//
// Implementations must honour ctx cancellation: Resolver bounds every call with a
// timeout and treats an expired context as an authentication failure.
type Verifier interface {
	Verify(ctx context.Context, token string) (*model.User, error)
}

// TokenService verifies (and, for tests, mints) Supabase-style access tokens.
//
// It holds the HMAC secret from the Supabase dashboard (Settings → API → JWT Secret).
// The same secret signs and verifies, so keep it out of the client bundle.
type TokenService struct {
	secret []byte
}

var _ Verifier = (*TokenService)(nil)

// NewTokenService creates a TokenService with the given secret.
// Supabase project secrets are at least 32 characters; we accept 16 for local setups.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// Claims is the subset of the Supabase payload we read. "sub" and "aud" live in
// the embedded RegisteredClaims.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Generate mints a one-hour token for userID, matching Supabase's default lifetime.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, time.Hour)
}

// GenerateWithDuration mints a token that expires after d. A negative d produces an
// already-expired token.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	now := time.Now()

	c := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		},
		Role: Audience,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a token and returns its claims.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid and the algorithm is HS256 (no "none", no RS/HS confusion)
//   - "exp" is present and in the future
//   - "aud" contains "authenticated" (rejects anon and service_role keys)
//
// On top of that we require a non-empty "sub": it becomes the owner of every saved name.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired: %w", jwt.ErrTokenExpired)
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, errors.New("auth: token has no subject")
	}

	return c, nil
}

// Verify implements Verifier. Local verification needs no network, so ctx is only
// checked up front.
func (s *TokenService) Verify(ctx context.Context, token string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}

	c, err := s.Validate(token)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:    c.Subject,
		Email: c.Email,
		Role:  c.Role,
	}
	if len(c.Audience) > 0 {
		user.Audience = c.Audience[0]
	}
	return user, nil
}
