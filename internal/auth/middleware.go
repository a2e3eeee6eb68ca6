package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/pet-namer/internal/apperror"
	"github.com/sakif/pet-namer/internal/metrics"
	"github.com/sakif/pet-namer/internal/model"
	"github.com/sakif/pet-namer/internal/telemetry"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. A plain string key could be read or
// shadowed by any package that knows the string. Only THIS package can create a key
// of type contextKey, so only this package can read or write the user.
type contextKey string

const userKey contextKey = "user"

var (
	// ErrNoToken means the Authorization header is absent or empty.
	ErrNoToken = errors.New("no bearer token in authorization header")
	// ErrMalformedHeader means the header is present but isn't "Bearer <token>".
	ErrMalformedHeader = errors.New("authorization header is not a bearer credential")
)

// BearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively; the token itself must be non-empty.
func BearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", apperror.Unauthenticated("auth", ErrNoToken)
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", apperror.Unauthenticated("auth", ErrMalformedHeader)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperror.Unauthenticated("auth", ErrNoToken)
	}
	return token, nil
}

// Resolver turns an incoming request into a verified user.
type Resolver struct {
	verifier Verifier
	timeout  time.Duration
}

// NewResolver bounds every verification by timeout. A non-positive timeout
// falls back to five seconds.
func NewResolver(v Verifier, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Resolver{verifier: v, timeout: timeout}
}

// Resolve never retries. Every failure, including a verifier timeout, comes back
// as an apperror.ErrUnauthenticated.
func (rv *Resolver) Resolve(r *http.Request) (*model.User, error) {
	token, err := BearerToken(r)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(r.Context(), rv.timeout)
	defer cancel()

	user, err := rv.verifier.Verify(ctx, token)
	if err != nil {
		return nil, apperror.Unauthenticated("auth: verifying token", err)
	}
	if user == nil || user.ID == "" {
		return nil, apperror.Unauthenticated("auth: verified identity has no id", nil)
	}
	return user, nil
}

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It resolves the bearer token, stores the user in the request context and calls the
// next handler. On failure it reports the error, counts it, and answers
// 401 {"error":"Authentication failed"} with an X-Error-Reference header. The
// reason for the failure never reaches the client.
func RequireAuth(resolver *Resolver, reporter telemetry.Reporter, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolver.Resolve(r)
			if err != nil {
				reason := FailureReason(err)
				m.AuthFailure(reason)

				ref := reporter.Report(r.Context(), err,
					slog.String(telemetry.AttrRoute, r.URL.Path),
					slog.String("reason", reason),
				)
				writeUnauthorized(w, ref)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext retrieves the authenticated user from the request context.
// Returns (nil, false) if RequireAuth did not run for this request.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok && user != nil && user.ID != ""
}

// FailureReason maps an authentication error to a short metric label.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrNoToken):
		return "missing_token"
	case errors.Is(err, ErrMalformedHeader):
		return "malformed_header"
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrProviderUnavailable):
		return "provider_unavailable"
	default:
		return "invalid_token"
	}
}

func writeUnauthorized(w http.ResponseWriter, ref string) {
	w.Header().Set("Content-Type", "application/json")
	if ref != "" {
		w.Header().Set("X-Error-Reference", ref)
	}
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": "Authentication failed"}); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}
