package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/maffers001/property/internal/engine"
)

type callerKey struct{}

// parseBearerToken extracts and validates the JWT bearer token from the
// request, returning its claims. Token issuance lives in the auth
// collaborator; only HS256 verification happens here.
func parseBearerToken(r *http.Request, secret []byte) (jwt.MapClaims, error) {
	tokenString := r.Header.Get("Authorization")
	if tokenString == "" {
		return nil, fmt.Errorf("missing token")
	}
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("invalid signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// authMiddleware rejects unauthenticated requests and places the caller
// identity into the request context.
func authMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := parseBearerToken(r, secret)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			subject, _ := claims["sub"].(string)
			if subject == "" {
				subject, _ = claims["username"].(string)
			}
			if subject == "" {
				http.Error(w, "token has no subject", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), callerKey{}, engine.Caller{Subject: subject})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// callerFrom returns the authenticated caller stored by authMiddleware.
func callerFrom(r *http.Request) engine.Caller {
	caller, _ := r.Context().Value(callerKey{}).(engine.Caller)
	return caller
}
