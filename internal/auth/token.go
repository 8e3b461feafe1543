package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// serviceTokenTTL is the validity window for inter-service credentials.
// Short-lived by contract: tokens are minted per call, not cached.
const serviceTokenTTL = time.Hour

type serviceClaims struct {
	Service string `json:"service"`
	Type    string `json:"type"`
	jwt.RegisteredClaims
}

// NewServiceToken issues a signed service-identity token for internal
// service-to-service calls. Distinct from end-user tokens, which are
// resolved by the external auth collaborator.
func NewServiceToken(service, secret string) (string, error) {
	now := time.Now()
	claims := serviceClaims{
		Service: service,
		Type:    "service",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(serviceTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// VerifyServiceToken validates a service token and returns the calling
// service's name.
func VerifyServiceToken(tokenString, secret string) (string, error) {
	claims := &serviceClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Type != "service" || claims.Service == "" {
		return "", fmt.Errorf("not a valid service token")
	}
	return claims.Service, nil
}
