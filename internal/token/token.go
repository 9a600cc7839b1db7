package token

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidKey   = errors.New("invalid API key")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is carried by the short-lived upload tokens the proxy hands out.
// A token is a capability to upload, not an identity.
type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

type Service struct {
	apiKey []byte
	secret []byte
	ttl    time.Duration
}

func NewService(apiKey, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{
		apiKey: []byte(apiKey),
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue exchanges the configured client API key for a signed upload token.
func (s *Service) Issue(apiKey string) (string, int64, error) {
	if subtle.ConstantTimeCompare(s.apiKey, []byte(apiKey)) != 1 {
		return "", 0, ErrInvalidKey
	}

	expiresAt := time.Now().Add(s.ttl)
	claims := Claims{
		Scope: "upload",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", 0, err
	}

	return tokenString, expiresAt.Unix(), nil
}

// Validate parses and verifies an upload token.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}
