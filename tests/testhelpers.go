package tests

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/wondertwin-ai/app-otp/internal/config"
	"github.com/wondertwin-ai/app-otp/internal/redisclient"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TestContainers holds references to test containers
type TestContainers struct {
	MongoContainer *mongodb.MongoDBContainer
	RedisContainer *redis.RedisContainer
	MongoDB        *mongo.Database
	Redis          *redisclient.Client
	Cleanup        func()
}

// SetupTestContainers starts MongoDB and Redis containers and points the
// global config at them
func SetupTestContainers(t *testing.T) *TestContainers {
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx,
		"mongo:7.0",
		mongodb.WithUsername("root"),
		mongodb.WithPassword("password"),
	)
	require.NoError(t, err, "Failed to start MongoDB container")

	redisContainer, err := redis.Run(ctx,
		"redis:7-alpine",
	)
	require.NoError(t, err, "Failed to start Redis container")

	mongoURI, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err, "Failed to get MongoDB connection string")

	redisURI, err := redisContainer.ConnectionString(ctx)
	require.NoError(t, err, "Failed to get Redis connection string")

	clientOptions := options.Client().ApplyURI(mongoURI)
	mongoClient, err := mongo.Connect(ctx, clientOptions)
	require.NoError(t, err, "Failed to connect to MongoDB")

	err = mongoClient.Ping(ctx, nil)
	require.NoError(t, err, "Failed to ping MongoDB")

	database := mongoClient.Database("otp_test")

	redisOpts, err := goredis.ParseURL(redisURI)
	require.NoError(t, err, "Failed to parse Redis connection string")
	redisClient := redisclient.NewClient(goredis.NewClient(redisOpts))

	if config.AppConfig == nil {
		config.AppConfig = &config.Config{}
	}

	config.AppConfig.MongoURI = mongoURI
	config.AppConfig.MongoDatabase = "otp_test"
	config.AppConfig.RedisURI = redisOpts.Addr
	config.AppConfig.ChallengeCollection = "otp_challenges"
	config.AppConfig.IdentityCollection = "identities"
	config.AppConfig.OTPCodeTTL = 5 * time.Minute
	config.AppConfig.OTPCodeLength = 6
	config.AppConfig.OTPMaxAttempts = 5
	config.AppConfig.OTPCodePepper = "test-pepper"
	config.AppConfig.SMSProvider = config.SMSProviderConsole
	config.AppConfig.SMSSendsPerMinute = 60
	config.AppConfig.SMSDailyLimit = 10
	config.AppConfig.JWTSecret = "test-secret"
	config.AppConfig.JWTTTL = 24 * time.Hour

	config.MongoDB = database
	config.Redis = redisClient

	require.NoError(t, config.EnsureIndexes(ctx), "Failed to ensure indexes")

	cleanup := func() {
		if mongoClient != nil {
			mongoClient.Disconnect(context.Background())
		}
		if mongoContainer != nil {
			mongoContainer.Terminate(ctx)
		}
		if redisContainer != nil {
			redisContainer.Terminate(ctx)
		}
	}

	return &TestContainers{
		MongoContainer: mongoContainer,
		RedisContainer: redisContainer,
		MongoDB:        database,
		Redis:          redisClient,
		Cleanup:        cleanup,
	}
}
