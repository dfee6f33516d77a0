// Package middleware provides the HTTP middleware chain: authentication,
// CORS, and per-principal rate limiting.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ticware/opscore/internal/app/domain/user"
	apperrors "github.com/ticware/opscore/internal/errors"
	"github.com/ticware/opscore/pkg/logger"
)

type contextKey string

const principalKey contextKey = "principal"

// Claims carries the identity fields embedded in access tokens.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates bearer tokens and places the resulting principal
// in the request context.
type AuthMiddleware struct {
	secret    []byte
	log       *logger.Logger
	skipPaths map[string]bool
}

// NewAuthMiddleware creates an authentication middleware. Requests to any
// path in skipPaths pass through unauthenticated.
func NewAuthMiddleware(secret []byte, log *logger.Logger, skipPaths []string) *AuthMiddleware {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	skip := make(map[string]bool)
	for _, path := range skipPaths {
		skip[path] = true
	}
	return &AuthMiddleware{secret: secret, log: log, skipPaths: skip}
}

// Handler returns the middleware handler.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.respondError(w, r, apperrors.Unauthorized("missing Authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.respondError(w, r, apperrors.Unauthorized("invalid Authorization header format"))
			return
		}

		claims, err := m.validateToken(parts[1])
		if err != nil {
			m.log.WithError(err).WithField("path", r.URL.Path).Warn("Token validation failed")
			m.respondError(w, r, err)
			return
		}

		principal := user.Principal{
			ID:          claims.UserID,
			Email:       claims.Email,
			DisplayName: claims.Name,
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

func (m *AuthMiddleware) validateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.Unauthorized("unexpected signing method").WithDetails("alg", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, apperrors.Unauthorized("invalid token")
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperrors.Unauthorized("invalid token")
	}
	if claims.UserID == "" && claims.Email == "" {
		return nil, apperrors.Unauthorized("token carries no identity")
	}
	return claims, nil
}

func (m *AuthMiddleware) respondError(w http.ResponseWriter, r *http.Request, err error) {
	serviceErr := apperrors.GetServiceError(err)
	if serviceErr == nil {
		serviceErr = apperrors.Internal("authentication failed", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(serviceErr.HTTPStatus)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    serviceErr.Code,
			"message": serviceErr.Message,
		},
	})
}

// IssueToken signs an access token for the principal using the middleware's
// secret. Used by the login handler and by tests.
func (m *AuthMiddleware) IssueToken(principal user.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: principal.ID,
		Email:  principal.Email,
		Name:   principal.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// WithPrincipal returns a context carrying the principal.
func WithPrincipal(ctx context.Context, principal user.Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// PrincipalFrom extracts the authenticated principal from the context. The
// second return is false when the request was not authenticated.
func PrincipalFrom(ctx context.Context) (user.Principal, bool) {
	principal, ok := ctx.Value(principalKey).(user.Principal)
	return principal, ok
}
