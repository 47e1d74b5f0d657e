package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ride-sim/internal/emulator/adapters/driver/myhttp/handlers"

	"github.com/golang-jwt/jwt"
)

const (
	RoleAdmin = "ADMIN"
	RoleOwner = "OWNER"
)

var (
	ErrEmptyToken   = errors.New("empty JWT-Token")
	ErrInvalidToken = errors.New("invalid JWT-Token")
	ErrForbidden    = errors.New("only admins and owners allowed to use this service")
)

// Identity is what a control token says about its bearer.
type Identity struct {
	UserID string
	Role   string
}

type AuthMiddleware struct {
	accessSecret string
}

func NewAuthMiddleware(accessSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		accessSecret: accessSecret,
	}
}

// Authenticate validates a token, with or without the "Bearer " prefix, and
// checks that its role may drive the fleet.
func (am *AuthMiddleware) Authenticate(tokenString string) (Identity, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	if tokenString == "" {
		return Identity{}, ErrEmptyToken
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(am.accessSecret), nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok {
		return Identity{}, fmt.Errorf("%w: user_id not found in token", ErrInvalidToken)
	}
	role, ok := claims["role"].(string)
	if !ok {
		return Identity{}, fmt.Errorf("%w: role not found in token", ErrInvalidToken)
	}
	if role != RoleAdmin && role != RoleOwner {
		return Identity{}, ErrForbidden
	}
	return Identity{UserID: userID, Role: role}, nil
}

func (am *AuthMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.Header.Get("Authorization")
		if tokenString == "" {
			handlers.JsonError(w, http.StatusUnauthorized, ErrEmptyToken)
			return
		}

		id, err := am.Authenticate(tokenString)
		if err != nil {
			code := http.StatusUnauthorized
			if errors.Is(err, ErrForbidden) {
				code = http.StatusForbidden
			}
			handlers.JsonError(w, code, err)
			return
		}

		r.Header.Set("X-UserId", id.UserID)
		r.Header.Set("X-Role", id.Role)

		next.ServeHTTP(w, r)
	})
}
