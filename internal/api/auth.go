package api

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const roleAdmin = "ADMIN"

type authClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// RequireAdmin enforces an HMAC-signed bearer token carrying
// role=ADMIN. The engine trusts the role claim; issuing tokens is the
// upstream auth service's job.
func RequireAdmin(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				writeError(w, http.StatusUnauthorized, "auth_disabled", "admin auth is not configured")
				return
			}

			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "missing_token", "missing bearer token")
				return
			}

			claims := authClaims{}
			token, err := jwt.ParseWithClaims(strings.TrimPrefix(auth, "Bearer "), &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				writeError(w, http.StatusUnauthorized, "invalid_token", "invalid or expired token")
				return
			}

			if claims.Role != roleAdmin {
				writeError(w, http.StatusForbidden, "forbidden", "admin role required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
