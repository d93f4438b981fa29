package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestValidateToken(t *testing.T) {
	v := NewVerifier(secret)

	good, err := v.GenerateToken("user-1", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	expired, _ := v.GenerateToken("user-1", -time.Hour)
	forged, _ := NewVerifier("another-secret-another-secret-xx").GenerateToken("user-1", time.Hour)
	noSub, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
	}).SignedString([]byte(secret))
	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "user-1", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))

	tests := []struct {
		name    string
		token   string
		want    string
		wantErr bool
	}{
		{"valid", good, "user-1", false},
		{"expired", expired, "", true},
		{"wrong signature", forged, "", true},
		{"missing sub", noSub, "", true},
		{"missing exp", noExp, "", true},
		{"other algorithm", hs512, "", true},
		{"garbage", "not-a-token", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.ValidateToken(tt.token)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidToken) {
					t.Fatalf("got %v, want ErrInvalidToken", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("got %q %v", got, err)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	v := NewVerifier(secret)
	token, _ := v.GenerateToken("user-9", time.Hour)

	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := UserFromContext(r.Context())
		w.Write([]byte(id))
	})

	tests := []struct {
		name       string
		verifier   *Verifier
		defaultID  string
		setup      func(r *http.Request)
		wantStatus int
		wantUser   string
	}{
		{"bearer header", v, "", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, 200, "user-9"},
		{"cookie", v, "", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "access_token", Value: token}) }, 200, "user-9"},
		{"no token with default", v, "local", func(r *http.Request) {}, 200, "local"},
		{"no token without default", v, "", func(r *http.Request) {}, 401, ""},
		{"bad token with default", v, "local", func(r *http.Request) { r.Header.Set("Authorization", "Bearer junk") }, 401, ""},
		{"no verifier", nil, "local", func(r *http.Request) { r.Header.Set("Authorization", "Bearer junk") }, 200, "local"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			Middleware(tt.verifier, tt.defaultID)(echo).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == 200 && rec.Body.String() != tt.wantUser {
				t.Fatalf("user %q, want %q", rec.Body.String(), tt.wantUser)
			}
		})
	}
}
