package config

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wondertwin-ai/app-otp/internal/logging"
	"github.com/wondertwin-ai/app-otp/internal/redisclient"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.uber.org/zap"
)

var (
	// MongoDB client
	MongoDB *mongo.Database
	// Redis client
	Redis *redisclient.Client
)

// InitMongoDB initializes the MongoDB connection
func InitMongoDB() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Client().
		ApplyURI(AppConfig.MongoURI).
		SetMonitor(otelmongo.NewMonitor()).
		SetMaxPoolSize(100).
		SetMinPoolSize(10).
		SetMaxConnIdleTime(5 * time.Minute).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		log.Fatal(err)
	}

	err = client.Ping(ctx, readpref.Primary())
	if err != nil {
		log.Fatal(err)
	}

	MongoDB = client.Database(AppConfig.MongoDatabase)

	if err := EnsureIndexes(context.Background()); err != nil {
		logging.Logger.Error("failed to ensure indexes on startup", zap.Error(err))
	}

	logging.Logger.Info("Connected to MongoDB",
		zap.String("uri", maskMongoURI(AppConfig.MongoURI)),
		zap.String("database", AppConfig.MongoDatabase),
	)
}

// InitRedis initializes the Redis connection
func InitRedis() {
	redisClient := redis.NewClient(&redis.Options{
		Addr:         AppConfig.RedisURI,
		Password:     AppConfig.RedisPassword,
		DB:           AppConfig.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	Redis = redisclient.NewClient(redisClient)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := Redis.Ping(ctx).Err(); err != nil {
		logging.Logger.Error("failed to connect to Redis",
			zap.String("uri", AppConfig.RedisURI),
			zap.Error(err))
		return
	}

	logging.Logger.Info("connected to Redis",
		zap.String("uri", AppConfig.RedisURI))
}

// maskMongoURI masks sensitive information in MongoDB URI
func maskMongoURI(uri string) string {
	if idx := strings.LastIndex(uri, "@"); idx >= 0 {
		return "mongodb://****:****@" + uri[idx+1:]
	}
	return uri
}

// EnsureIndexes creates required indexes if they don't exist
func EnsureIndexes(ctx context.Context) error {
	logger := zap.L().Named("database")
	logger.Info("ensuring required indexes exist")

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := ensureChallengeIndexes(ctx, logger); err != nil {
		return err
	}

	if err := ensureIdentityIndexes(ctx, logger); err != nil {
		return err
	}

	logger.Info("all required indexes verified")
	return nil
}

// ensureChallengeIndexes creates the required indexes for the challenge collection:
// a unique index on phone_number (one live challenge per phone) and a TTL index
// on expires_at so abandoned challenges are cleaned up automatically.
func ensureChallengeIndexes(ctx context.Context, logger *zap.Logger) error {
	collection := MongoDB.Collection(AppConfig.ChallengeCollection)

	existing, err := listIndexNames(ctx, collection)
	if err != nil {
		logger.Error("failed to list indexes", zap.Error(err))
		return err
	}

	indexesToCreate := []mongo.IndexModel{}

	if !existing["phone_number_1"] {
		indexesToCreate = append(indexesToCreate, mongo.IndexModel{
			Keys: bson.D{{Key: "phone_number", Value: 1}},
			Options: options.Index().
				SetName("phone_number_1").
				SetUnique(true),
		})
	}

	if !existing["expires_at_1"] {
		indexesToCreate = append(indexesToCreate, mongo.IndexModel{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().
				SetName("expires_at_1").
				SetExpireAfterSeconds(0),
		})
	}

	return createIndexes(ctx, logger, collection, AppConfig.ChallengeCollection, indexesToCreate)
}

// ensureIdentityIndexes creates the unique phone_number index for identities.
// The uniqueness constraint is what makes lazy identity creation idempotent
// under concurrent retries.
func ensureIdentityIndexes(ctx context.Context, logger *zap.Logger) error {
	collection := MongoDB.Collection(AppConfig.IdentityCollection)

	existing, err := listIndexNames(ctx, collection)
	if err != nil {
		logger.Error("failed to list indexes", zap.Error(err))
		return err
	}

	indexesToCreate := []mongo.IndexModel{}

	if !existing["phone_number_1"] {
		indexesToCreate = append(indexesToCreate, mongo.IndexModel{
			Keys: bson.D{{Key: "phone_number", Value: 1}},
			Options: options.Index().
				SetName("phone_number_1").
				SetUnique(true),
		})
	}

	if !existing["created_at_1"] {
		indexesToCreate = append(indexesToCreate, mongo.IndexModel{
			Keys: bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().
				SetName("created_at_1"),
		})
	}

	return createIndexes(ctx, logger, collection, AppConfig.IdentityCollection, indexesToCreate)
}

func listIndexNames(ctx context.Context, collection *mongo.Collection) (map[string]bool, error) {
	cursor, err := collection.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	existing := make(map[string]bool)
	for cursor.Next(ctx) {
		var index bson.M
		if err := cursor.Decode(&index); err != nil {
			continue
		}
		if name, ok := index["name"].(string); ok {
			existing[name] = true
		}
	}
	return existing, nil
}

func createIndexes(ctx context.Context, logger *zap.Logger, collection *mongo.Collection, name string, models []mongo.IndexModel) error {
	for _, indexModel := range models {
		_, err := collection.Indexes().CreateOne(ctx, indexModel)
		if err != nil {
			// Another instance may have created it concurrently
			if mongo.IsDuplicateKeyError(err) {
				logger.Info("index already exists (created by another instance)",
					zap.String("collection", name))
				continue
			}
			logger.Error("failed to create index",
				zap.String("collection", name),
				zap.Error(err))
			return err
		}
	}

	if len(models) > 0 {
		logger.Info("created collection indexes",
			zap.String("collection", name),
			zap.Int("count", len(models)))
	} else {
		logger.Debug("collection indexes already exist",
			zap.String("collection", name))
	}

	return nil
}
