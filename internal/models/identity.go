package models

import "time"

// Identity is the durable user record keyed by phone number. It is created
// lazily on the first successful verification of a previously-unseen phone.
type Identity struct {
	ID          string    `bson:"id" json:"id"`
	PhoneNumber string    `bson:"phone_number" json:"phone_number"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}
