package token

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

var (
	// ErrExpired indicates the token's expiry instant has passed.
	ErrExpired = errors.New("token: expired")
	// ErrInvalidSignature indicates the token failed integrity checks or is malformed.
	ErrInvalidSignature = errors.New("token: invalid signature")
)

// Claims defines the session token payload. These are the only fields
// collaborators may rely on when reading a session.
type Claims struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TwoFactor bool   `json:"two_factor"`
	jwtlib.RegisteredClaims
}

// Identity captures the claim fields carried by every session token.
type Identity struct {
	UserID    string
	Name      string
	Email     string
	Role      string
	TwoFactor bool
}

// Issue signs a session token for the identity with the provided secret and ttl.
func Issue(id Identity, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    id.UserID,
		Name:      id.Name,
		Email:     id.Email,
		Role:      id.Role,
		TwoFactor: id.TwoFactor,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    "tracking-system",
			Subject:   id.UserID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return tok.SignedString([]byte(secret))
}

// Parse validates signature and expiry together and extracts claims.
func Parse(raw string, secret string) (*Claims, error) {
	parsed, err := jwtlib.ParseWithClaims(raw, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}))
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalidSignature
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidSignature
	}
	return claims, nil
}
