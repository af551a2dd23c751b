package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the monitoring identity embedded in an API token.
type Claims struct {
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Validate implements jwt.ClaimsValidator. Beyond signature and
// expiry, a token must name a tenant and carry a known role.
func (c *Claims) Validate() error {
	if c.TenantID == "" {
		return errors.New("token missing tenant_id")
	}
	if _, ok := NormalizeRole(c.Role); !ok {
		return fmt.Errorf("unknown role %q", c.Role)
	}
	return nil
}

// ParseJWT validates a token against the shared secret and returns
// its claims. Tokens without an expiry are rejected.
func ParseJWT(tokenString string, secret []byte) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("auth: empty token")
	}
	if len(secret) == 0 {
		return nil, errors.New("auth: empty secret")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("auth: invalid token")
	}
	return claims, nil
}
