package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type TokenClaims struct {
	UserID    string `json:"uid"`
	Email     string `json:"email"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// RequireAuth verifies the Bearer token and injects the identity as
// X-User-Id for downstream handlers. Requests without a valid access
// token are rejected.
func RequireAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := parseBearer(r, secret)
			if !ok {
				writeUnauthorized(w)
				return
			}
			r.Header.Set("X-User-Id", claims.UserID)
			r.Header.Set("X-User-Email", claims.Email)
			next.ServeHTTP(w, r)
		})
	}
}

// OptionalAuth injects the identity when a valid token is present and
// otherwise lets the request through anonymously. Either way the client
// cannot smuggle its own X-User-Id.
func OptionalAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Header.Del("X-User-Id")
			r.Header.Del("X-User-Email")
			if claims, ok := parseBearer(r, secret); ok {
				r.Header.Set("X-User-Id", claims.UserID)
				r.Header.Set("X-User-Email", claims.Email)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func parseBearer(r *http.Request, secret []byte) (*TokenClaims, bool) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return nil, false
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, false
	}

	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid || claims.TokenType != "access" || claims.UserID == "" {
		return nil, false
	}
	return claims, true
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"severity": "error",
		"error":    "invalid or missing token",
	})
}
