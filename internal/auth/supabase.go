package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/sakif/pet-namer/internal/model"
)

// ErrProviderUnavailable means the identity provider could not give an answer
// (network error, 5xx, unreadable body). The request is still rejected with 401.
var ErrProviderUnavailable = errors.New("auth: identity provider unavailable")

// supabaseUser is the portion of the /auth/v1/user response we care about.
// Supabase returns a much larger object (metadata, identities, timestamps).
type supabaseUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Aud   string `json:"aud"`
}

// SupabaseVerifier checks tokens against a Supabase project.
//
// VERIFICATION ORDER:
//  1. If a JWT secret is configured, verify locally (no network round trip).
//     An expired token stops here; asking Supabase would give the same answer.
//  2. Otherwise (or when local verification fails for another reason, e.g. the
//     project moved to asymmetric signing keys) call GET {url}/auth/v1/user with the
//     token as the bearer credential and the anon key in the "apikey" header.
//
// The bearer header is attached by golang.org/x/oauth2: a StaticTokenSource wraps the
// caller's access token and oauth2.NewClient returns an *http.Client that adds
// "Authorization: Bearer <token>" to every request it sends.
type SupabaseVerifier struct {
	baseURL string
	anonKey string
	local   *TokenService
	client  *http.Client
}

var _ Verifier = (*SupabaseVerifier)(nil)

// NewSupabaseVerifier builds a verifier. local may be nil; baseURL may be empty when
// local is set. At least one of the two is required.
func NewSupabaseVerifier(baseURL, anonKey string, local *TokenService) (*SupabaseVerifier, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" && local == nil {
		return nil, errors.New("auth: a Supabase URL or JWT secret is required")
	}
	return &SupabaseVerifier{
		baseURL: baseURL,
		anonKey: anonKey,
		local:   local,
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// WithHTTPClient swaps the base HTTP client (tests point it at httptest servers).
func (v *SupabaseVerifier) WithHTTPClient(c *http.Client) *SupabaseVerifier {
	v.client = c
	return v
}

func (v *SupabaseVerifier) Verify(ctx context.Context, token string) (*model.User, error) {
	if v.local != nil {
		user, err := v.local.Verify(ctx, token)
		if err == nil {
			return user, nil
		}
		if v.baseURL == "" || errors.Is(err, jwt.ErrTokenExpired) || ctx.Err() != nil {
			return nil, err
		}
	}
	return v.fetchUser(ctx, token)
}

// fetchUser asks Supabase who the token belongs to.
func (v *SupabaseVerifier) fetchUser(ctx context.Context, token string) (*model.User, error) {
	// oauth2.NewClient reads its base transport from the context.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, v.client)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building user request: %w", err)
	}
	if v.anonKey != "" {
		req.Header.Set("apikey", v.anonKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("auth: token rejected by identity provider (status %d)", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var su supabaseUser
	if err := json.NewDecoder(resp.Body).Decode(&su); err != nil {
		return nil, fmt.Errorf("%w: decoding user: %w", ErrProviderUnavailable, err)
	}
	if su.ID == "" {
		return nil, errors.New("auth: identity provider returned a user without an id")
	}

	return &model.User{
		ID:       su.ID,
		Email:    su.Email,
		Role:     su.Role,
		Audience: su.Aud,
	}, nil
}
