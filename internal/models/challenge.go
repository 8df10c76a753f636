package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Challenge represents one pending OTP verification for a phone number.
// The plaintext code is never stored; only its digest is kept.
type Challenge struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PhoneNumber string             `bson:"phone_number" json:"phone_number"`
	CodeHash    string             `bson:"code_hash" json:"-"`
	Attempts    int                `bson:"attempts" json:"attempts"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	ExpiresAt   time.Time          `bson:"expires_at" json:"expires_at"`
}

// Expired reports whether the challenge is past its TTL at the given instant.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Locked reports whether the challenge has consumed all allowed attempts.
func (c *Challenge) Locked(maxAttempts int) bool {
	return c.Attempts >= maxAttempts
}
