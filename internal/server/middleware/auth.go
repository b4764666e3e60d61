package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/reservadesk/reservadesk/internal/service"
)

type contextKeyAuth string

const (
	// AuthPrincipalKey is the context key for the authenticated principal.
	AuthPrincipalKey contextKeyAuth = "auth_principal"
)

// Principal is the identity carried by a verified session token.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// TokenVerifier checks a bearer token. *service.AuthService implements it.
type TokenVerifier interface {
	VerifyToken(token string) (*service.Claims, error)
}

// Authenticate validates the "Authorization: Bearer <token>" header and
// attaches the Principal to the request context. A missing or malformed
// header and any verification error end the request with 401 before the
// body is read.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeUnauthorized(w)
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				writeUnauthorized(w)
				return
			}

			principal := &Principal{UserID: claims.UserID, IsAdmin: claims.IsAdmin}
			if slot, ok := r.Context().Value(principalSlotKey).(*principalSlot); ok {
				slot.p = principal
			}
			ctx := context.WithValue(r.Context(), AuthPrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects principals without the admin flag. It must be used
// after Authenticate in the middleware chain.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())
			if principal == nil || !principal.IsAdmin {
				writeUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetPrincipal extracts the authenticated principal from the context.
// Returns nil if no principal is present (i.e., unauthenticated request).
func GetPrincipal(ctx context.Context) *Principal {
	if p, ok := ctx.Value(AuthPrincipalKey).(*Principal); ok {
		return p
	}
	return nil
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	// Written by hand to avoid an import cycle with the handler package.
	w.Write([]byte(`{"error":"Unauthorized"}` + "\n"))
}
