package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/wondertwin-ai/app-otp/internal/logging"
	"github.com/wondertwin-ai/app-otp/internal/models"
	"github.com/wondertwin-ai/app-otp/internal/observability"
	"github.com/wondertwin-ai/app-otp/internal/redisclient"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ErrIdentityExists signals that an identity for the phone was created
// concurrently. IdentityStore implementations map their backend's duplicate
// detection onto it.
var ErrIdentityExists = errors.New("identity already exists")

// IdentityStore is the persistence contract for identities keyed by phone number.
type IdentityStore interface {
	// FindByPhone returns the identity for the phone, or nil when absent.
	FindByPhone(ctx context.Context, phoneNumber string) (*models.Identity, error)
	// Insert stores a new identity. Returns ErrIdentityExists when the
	// phone already has one.
	Insert(ctx context.Context, identity *models.Identity) error
}

// MongoIdentityStore implements IdentityStore on a MongoDB collection with a
// unique phone_number index.
type MongoIdentityStore struct {
	collection *mongo.Collection
}

// NewMongoIdentityStore creates an identity store backed by the given collection
func NewMongoIdentityStore(collection *mongo.Collection) *MongoIdentityStore {
	return &MongoIdentityStore{collection: collection}
}

func (s *MongoIdentityStore) FindByPhone(ctx context.Context, phoneNumber string) (*models.Identity, error) {
	var identity models.Identity
	err := s.collection.FindOne(ctx, bson.M{"phone_number": phoneNumber}).Decode(&identity)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read identity: %w", err)
	}
	return &identity, nil
}

func (s *MongoIdentityStore) Insert(ctx context.Context, identity *models.Identity) error {
	_, err := s.collection.InsertOne(ctx, identity)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrIdentityExists
		}
		return fmt.Errorf("failed to insert identity: %w", err)
	}
	return nil
}

// IdentityService resolves phone numbers to identities, creating them on
// first sight, with a Redis read-through cache in front of the store.
type IdentityService struct {
	store    IdentityStore
	cache    *redisclient.Client
	cacheTTL time.Duration
	logger   *logging.SafeLogger
}

// NewIdentityService creates an IdentityService. Cache may be nil, which
// disables caching.
func NewIdentityService(store IdentityStore, cache *redisclient.Client, cacheTTL time.Duration, logger *logging.SafeLogger) *IdentityService {
	return &IdentityService{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Resolve returns the identity for the phone, creating one when none exists.
// The second return value reports whether the identity was created by this
// call.
func (s *IdentityService) Resolve(ctx context.Context, phoneNumber string) (*models.Identity, bool, error) {
	logger := s.logger.With(zap.String("phone", observability.MaskPhone(phoneNumber)))

	if cached := s.cacheGet(ctx, phoneNumber); cached != nil {
		observability.CacheHits.WithLabelValues("identity").Inc()
		return cached, false, nil
	}

	existing, err := s.store.FindByPhone(ctx, phoneNumber)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		s.cacheSet(ctx, existing)
		return existing, false, nil
	}

	identity := &models.Identity{
		ID:          uuid.NewString(),
		PhoneNumber: phoneNumber,
		CreatedAt:   time.Now(),
	}
	err = s.store.Insert(ctx, identity)
	if err != nil {
		if errors.Is(err, ErrIdentityExists) {
			// Lost the race to a concurrent verification; the winner's
			// record is the one to return.
			winner, findErr := s.store.FindByPhone(ctx, phoneNumber)
			if findErr != nil {
				return nil, false, findErr
			}
			if winner == nil {
				return nil, false, fmt.Errorf("identity vanished after duplicate insert")
			}
			s.cacheSet(ctx, winner)
			return winner, false, nil
		}
		return nil, false, err
	}

	logger.Info("identity created", zap.String("identity_id", identity.ID))
	observability.IdentitiesCreated.Inc()
	s.cacheSet(ctx, identity)
	return identity, true, nil
}

func identityCacheKey(phoneNumber string) string {
	return "identity:phone:" + phoneNumber
}

func (s *IdentityService) cacheGet(ctx context.Context, phoneNumber string) *models.Identity {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.Get(ctx, identityCacheKey(phoneNumber)).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("identity cache read failed", zap.Error(err))
		}
		return nil
	}
	var identity models.Identity
	if err := json.Unmarshal([]byte(data), &identity); err != nil {
		s.logger.Warn("identity cache entry corrupt, ignoring", zap.Error(err))
		return nil
	}
	return &identity
}

func (s *IdentityService) cacheSet(ctx context.Context, identity *models.Identity) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(identity)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, identityCacheKey(identity.PhoneNumber), data, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("identity cache write failed", zap.Error(err))
	}
}
