package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

type subjectKey struct{}

// AdminVerifier resolves an admin subject from a bearer token. Token
// validation itself (Microsoft identity or otherwise) lives behind this
// interface; the transport only enforces its outcome.
type AdminVerifier interface {
	VerifyAdmin(ctx context.Context, token string) (string, error)
}

// SubjectFromContext returns the verified admin subject, if present.
func SubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectKey{}).(string)
	return subject, ok
}

// AdminOnly enforces bearer token authentication on admin routes.
func AdminOnly(verifier AdminVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				writeError(w, http.StatusUnauthorized, "Unauthorized. Please sign in.")
				return
			}

			subject, err := verifier.VerifyAdmin(r.Context(), token)
			if err != nil || subject == "" {
				writeError(w, http.StatusUnauthorized, "Unauthorized. Please sign in.")
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey{}, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
