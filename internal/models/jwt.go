package models

import "github.com/golang-jwt/jwt/v5"

// CredentialClaims are the JWT claims carried by an issued sign-in credential
type CredentialClaims struct {
	PhoneNumber string `json:"phone_number"`
	jwt.RegisteredClaims
}
