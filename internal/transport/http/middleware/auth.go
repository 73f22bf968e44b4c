package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

// UserIDKey carries the authenticated user's id through the request
// context. Handlers read it back with GetUserID.
const UserIDKey contextKey = "user_id"

// Auth verifies the bearer token and stores its subject in the request
// context as the caller's user id. Only HS256 signatures are accepted;
// a token minted under any other method fails verification regardless
// of its claims.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	secret := []byte(jwtSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || tokenStr == "" {
				writeEnvelopeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid token")
				return
			}

			userID, err := subjectUserID(tokenStr, secret)
			if err != nil {
				writeEnvelopeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// subjectUserID parses and verifies an HS256 token and returns its
// subject claim as a user id.
func subjectUserID(tokenStr string, secret []byte) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return uuid.Nil, err
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(sub)
}

// GetUserID returns the user id stored by Auth. It is only meaningful
// on requests that passed through the middleware; anywhere else it
// returns the zero id.
func GetUserID(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(UserIDKey).(uuid.UUID)
	return id
}

// writeEnvelopeError mirrors the handlers' error envelope, so a
// middleware rejection looks the same on the wire as a handler one.
func writeEnvelopeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
