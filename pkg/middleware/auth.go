package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/chris/escrow-contracts/pkg/contract"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type identityKey struct{}

// RoleAdmin is the role claim value that grants admin transitions.
const RoleAdmin = "admin"

// ErrInvalidToken is returned for bearer tokens that fail to parse or verify.
var ErrInvalidToken = errors.New("invalid bearer token")

// Claims are the JWT claims the API reads.
type Claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Authenticate resolves the caller from an optional "Authorization: Bearer"
// HS256 token. Requests without a token proceed as anonymous; requests with a
// bad token are rejected with 401.
func Authenticate(secret []byte, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), contract.Actor{})))
				return
			}

			actor, err := ParseToken(secret, strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
			if err != nil {
				logger.Debug("rejecting bearer token", zap.Error(err))
				http.Error(w, "Invalid bearer token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		}
		return http.HandlerFunc(fn)
	}
}

// ParseToken verifies an HS256 token and returns the actor it names.
func ParseToken(secret []byte, tokenString string) (contract.Actor, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return contract.Actor{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	userID := claims.UserID
	if userID == 0 && claims.Subject != "" {
		userID, err = strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			return contract.Actor{}, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
		}
	}
	if userID <= 0 {
		return contract.Actor{}, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}

	return contract.Actor{Identity: contract.User(userID), Admin: claims.Role == RoleAdmin}, nil
}

// IssueToken signs an HS256 token for userID. Used by tests and local tooling.
func IssueToken(secret []byte, userID int64, role string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: userID, Role: role})
	return token.SignedString(secret)
}

// WithActor stores the caller on ctx.
func WithActor(ctx context.Context, a contract.Actor) context.Context {
	return context.WithValue(ctx, identityKey{}, a)
}

// ActorFrom returns the caller stored on ctx, anonymous if none.
func ActorFrom(ctx context.Context) contract.Actor {
	a, _ := ctx.Value(identityKey{}).(contract.Actor)
	return a
}

func identityFrom(ctx context.Context) (contract.Identity, bool) {
	a, ok := ctx.Value(identityKey{}).(contract.Actor)
	return a.Identity, ok
}
