package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
)

const secret = "test-secret"

func sign(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestAuthenticate(t *testing.T) {
	am := NewAuthMiddleware(secret)
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"admin", "Bearer " + sign(t, secret, jwt.MapClaims{"user_id": "u1", "role": RoleAdmin, "exp": exp}), nil},
		{"owner without prefix", sign(t, secret, jwt.MapClaims{"user_id": "u1", "role": RoleOwner}), nil},
		{"empty", "Bearer ", ErrEmptyToken},
		{"wrong key", sign(t, "other", jwt.MapClaims{"user_id": "u1", "role": RoleAdmin}), ErrInvalidToken},
		{"expired", sign(t, secret, jwt.MapClaims{"user_id": "u1", "role": RoleAdmin, "exp": time.Now().Add(-time.Minute).Unix()}), ErrInvalidToken},
		{"no user", sign(t, secret, jwt.MapClaims{"role": RoleAdmin}), ErrInvalidToken},
		{"passenger", sign(t, secret, jwt.MapClaims{"user_id": "u1", "role": "PASSENGER"}), ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := am.Authenticate(tt.token)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if id.UserID != "u1" {
					t.Errorf("user = %q", id.UserID)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	am := NewAuthMiddleware(secret)
	var gotUser string
	h := am.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = r.Header.Get("X-UserId")
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "Bearer garbage", http.StatusUnauthorized},
		{"driver", "Bearer " + sign(t, secret, jwt.MapClaims{"user_id": "d1", "role": "DRIVER"}), http.StatusForbidden},
		{"owner", "Bearer " + sign(t, secret, jwt.MapClaims{"user_id": "o1", "role": RoleOwner}), http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/vehicles", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.code {
				t.Errorf("status = %d, want %d", rec.Code, tt.code)
			}
		})
	}
	if gotUser != "o1" {
		t.Errorf("X-UserId = %q, want o1", gotUser)
	}
}
