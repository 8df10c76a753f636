package services

import (
	"context"
	"fmt"

	"github.com/wondertwin-ai/app-otp/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ChallengeStore is the persistence contract for OTP challenges, keyed by
// phone number with at most one record per phone.
type ChallengeStore interface {
	// Get returns the current challenge for the phone, or nil when absent.
	// Expiry is not evaluated here; callers decide what an expired
	// challenge means for their operation.
	Get(ctx context.Context, phoneNumber string) (*models.Challenge, error)
	// Put upserts the challenge, replacing any prior record for the phone.
	Put(ctx context.Context, challenge *models.Challenge) error
	// IncrementAttempts atomically increments the attempt counter and
	// returns the new count.
	IncrementAttempts(ctx context.Context, phoneNumber string) (int, error)
	// Delete removes the challenge for the phone. Deleting an absent
	// challenge is not an error.
	Delete(ctx context.Context, phoneNumber string) error
}

// MongoChallengeStore implements ChallengeStore on a MongoDB collection with
// a unique phone_number index and a TTL index on expires_at.
type MongoChallengeStore struct {
	collection *mongo.Collection
}

// NewMongoChallengeStore creates a challenge store backed by the given collection
func NewMongoChallengeStore(collection *mongo.Collection) *MongoChallengeStore {
	return &MongoChallengeStore{collection: collection}
}

func (s *MongoChallengeStore) Get(ctx context.Context, phoneNumber string) (*models.Challenge, error) {
	var challenge models.Challenge
	err := s.collection.FindOne(ctx, bson.M{"phone_number": phoneNumber}).Decode(&challenge)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read challenge: %w", err)
	}
	return &challenge, nil
}

func (s *MongoChallengeStore) Put(ctx context.Context, challenge *models.Challenge) error {
	update := bson.M{
		"$set": bson.M{
			"code_hash":  challenge.CodeHash,
			"attempts":   challenge.Attempts,
			"created_at": challenge.CreatedAt,
			"expires_at": challenge.ExpiresAt,
		},
		"$setOnInsert": bson.M{
			"phone_number": challenge.PhoneNumber,
		},
	}

	_, err := s.collection.UpdateOne(
		ctx,
		bson.M{"phone_number": challenge.PhoneNumber},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

func (s *MongoChallengeStore) IncrementAttempts(ctx context.Context, phoneNumber string) (int, error) {
	var challenge models.Challenge
	err := s.collection.FindOneAndUpdate(
		ctx,
		bson.M{"phone_number": phoneNumber},
		bson.M{"$inc": bson.M{"attempts": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&challenge)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to increment attempts: %w", err)
	}
	return challenge.Attempts, nil
}

func (s *MongoChallengeStore) Delete(ctx context.Context, phoneNumber string) error {
	_, err := s.collection.DeleteOne(ctx, bson.M{"phone_number": phoneNumber})
	if err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return nil
}
