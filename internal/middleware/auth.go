package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avdeenkov/cardbank/internal/config"
	"github.com/avdeenkov/cardbank/internal/models"
)

type contextKey string

const identityKey contextKey = "identity"

// AuthMiddleware validates the bearer token and stores the caller's Identity
// in the request context. Every engine operation receives that Identity
// explicitly; nothing downstream re-reads the token.
func AuthMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(header, "Bearer ")

			identity, err := ParseToken(tokenString, cfg.JWTSecret)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ParseToken verifies an HS256 token and extracts the Identity from its
// sub and role claims.
func ParseToken(tokenString, secret string) (models.Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return models.Identity{}, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return models.Identity{}, fmt.Errorf("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return models.Identity{}, fmt.Errorf("missing subject claim: %w", err)
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return models.Identity{}, fmt.Errorf("invalid subject claim: %w", err)
	}

	role, _ := claims["role"].(string)
	if role == "" {
		role = string(models.RoleUser)
	}

	return models.Identity{UserID: userID, Role: models.Role(role)}, nil
}

// IdentityFromContext returns the Identity stored by AuthMiddleware.
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(models.Identity)
	return identity, ok
}
