package middleware

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

type contextKey string

const ClaimsContextKey = contextKey("claims")

const capabilitySubject = "excalidraw-bridge"

// Capability is the token handed to the UI window at startup. Only requests
// carrying it may reach the bridge; it is valid for the lifetime of the host.
type Capability struct {
	secret []byte
	id     string
	token  string
}

func NewCapability() (*Capability, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate capability secret: %w", err)
	}
	return newCapability(secret)
}

func newCapability(secret []byte) (*Capability, error) {
	c := &Capability{secret: secret, id: ulid.Make().String()}

	claims := jwt.RegisteredClaims{
		ID:       c.id,
		Subject:  capabilitySubject,
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return nil, fmt.Errorf("sign capability token: %w", err)
	}
	c.token = token
	return c, nil
}

func (c *Capability) Token() string {
	return c.token
}

// Verify checks that tokenString was minted by this capability.
func (c *Capability) Verify(tokenString string) (*jwt.RegisteredClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.ID != c.id || claims.Subject != capabilitySubject {
		return nil, fmt.Errorf("token was not issued for this bridge")
	}
	return claims, nil
}

// Require rejects requests without a valid capability token. The token is
// read from a Bearer Authorization header, or from the token query parameter
// for clients that cannot set headers (Socket.IO handshakes).
func (c *Capability) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := extractToken(r)
		if err != nil {
			unauthorized(w, r, err.Error())
			return
		}

		claims, err := c.Verify(tokenString)
		if err != nil {
			logrus.WithError(err).WithField("path", r.URL.Path).Warn("Rejected bridge request with invalid token")
			unauthorized(w, r, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if token := r.URL.Query().Get("token"); token != "" {
			return token, nil
		}
		return "", fmt.Errorf("Authorization header is required")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", fmt.Errorf("Authorization header format must be Bearer {token}")
	}
	return parts[1], nil
}

func unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, map[string]any{"success": false, "error": message})
}
