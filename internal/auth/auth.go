// Package auth resolves the user of a request. Sign-in happens at a hosted
// provider; this package only verifies the HS256 access tokens it issues and
// reads the user id from the "sub" claim.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// ValidateToken checks signature and expiry and returns the subject.
func (v *Verifier) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return "", errors.Join(ErrInvalidToken, errors.New("'sub' claim missing or not a string"))
	}
	return sub, nil
}

// GenerateToken issues a token for userID. Used by tests and local tooling.
func (v *Verifier) GenerateToken(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

type contextKey struct{}

func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

func UserFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}

// Middleware puts the request's user id in the context. A request without a
// token runs as defaultUserID when one is configured; a token that is
// present but invalid is always rejected. A nil verifier means every request
// is the default user.
func Middleware(v *Verifier, defaultUserID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := resolve(v, defaultUserID, r)
			if err != nil {
				slog.WarnContext(r.Context(), "Authentication failed", "path", r.URL.Path, "error", err)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID)))
		})
	}
}

func resolve(v *Verifier, defaultUserID string, r *http.Request) (string, error) {
	if v == nil {
		if defaultUserID == "" {
			return "", ErrMissingToken
		}
		return defaultUserID, nil
	}

	token := bearerToken(r)
	if token == "" {
		if defaultUserID != "" {
			return defaultUserID, nil
		}
		return "", ErrMissingToken
	}
	return v.ValidateToken(token)
}

// bearerToken reads the Authorization header, falling back to the
// access_token cookie set by the hosted sign-in page.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie("access_token"); err == nil {
		return c.Value
	}
	return ""
}
