package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wondertwin-ai/app-otp/internal/models"
)

// CredentialService issues and parses the signed credentials returned after a
// successful verification.
type CredentialService struct {
	secret []byte
	ttl    time.Duration
}

// NewCredentialService creates a credential service signing with the given secret
func NewCredentialService(secret string, ttl time.Duration) *CredentialService {
	return &CredentialService{secret: []byte(secret), ttl: ttl}
}

// Issue returns a signed credential for the identity
func (s *CredentialService) Issue(identity *models.Identity) (string, error) {
	now := time.Now()
	claims := models.CredentialClaims{
		PhoneNumber: identity.PhoneNumber,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    "app-otp",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign credential: %w", err)
	}
	return signed, nil
}

// Parse validates a credential and returns its claims
func (s *CredentialService) Parse(credential string) (*models.CredentialClaims, error) {
	claims := &models.CredentialClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid credential: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid credential")
	}
	return claims, nil
}
