// Package auth verifies the bearer tokens that gate relay connections.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoToken       = errors.New("no authentication token provided")
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidClaims = errors.New("invalid token claims")
)

// Identity is the verified principal behind a connection.
type Identity struct {
	UserID    string
	SessionID string
}

// TokenVerifier validates a bearer token and returns the identity it
// asserts. Satisfied by Verifier; handlers take the interface so tests
// can substitute a stub.
type TokenVerifier interface {
	Verify(tokenString string) (*Identity, error)
}

// Verifier validates HS256 JWTs issued by the application backend.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier with the shared signing secret.
func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret}
}

// Verify parses and validates a JWT and extracts the user and session
// identity. Any failure is fatal for the connection attempt; the caller
// rejects the handshake and the client must reconnect with a fresh token.
func (v *Verifier) Verify(tokenString string) (*Identity, error) {
	if tokenString == "" {
		return nil, ErrNoToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}

	// jwt.Parse already rejects expired tokens; a token without any
	// expiration is rejected here.
	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, fmt.Errorf("%w: token missing expiration", ErrInvalidClaims)
	}
	if time.Unix(int64(exp), 0).Before(time.Now()) {
		return nil, fmt.Errorf("%w: token expired", ErrInvalidToken)
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, fmt.Errorf("%w: missing user_id", ErrInvalidClaims)
	}

	sessionID, ok := claims["session_id"].(string)
	if !ok || sessionID == "" {
		return nil, fmt.Errorf("%w: missing session_id", ErrInvalidClaims)
	}

	return &Identity{UserID: userID, SessionID: sessionID}, nil
}

// BearerToken extracts the bearer token from an upgrade or API request.
// Checks the "token" query parameter first, then the Authorization
// header ("Bearer <token>" or the raw token).
func BearerToken(r *http.Request) string {
	tokenString := r.URL.Query().Get("token")

	if auth := r.Header.Get("Authorization"); auth != "" {
		if strings.HasPrefix(auth, "Bearer ") {
			tokenString = strings.TrimPrefix(auth, "Bearer ")
		} else {
			tokenString = auth
		}
	}

	return tokenString
}
