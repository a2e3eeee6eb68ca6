package middleware

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/goccy/go-json"

	"github.com/sakif/pet-namer/internal/apperror"
)

// AllowMethods rejects any request whose method is not in methods.
//
// It runs before authentication, so a wrong method answers 405 even without a token:
//
//	405 Allow: GET
//	{"error":"Method POST Not Allowed"}
//
// A rejected method is a client mistake, not a server failure, so nothing is reported
// to the error tracker. The request logger still records it.
func AllowMethods(methods ...string) func(http.Handler) http.Handler {
	allowed := strings.Join(methods, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(methods, r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			appErr := apperror.MethodNotAllowed(r.Method, methods...)
			w.Header().Set("Allow", allowed)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusMethodNotAllowed)
			if err := json.NewEncoder(w).Encode(map[string]string{"error": appErr.Message}); err != nil {
				slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
			}
		})
	}
}
