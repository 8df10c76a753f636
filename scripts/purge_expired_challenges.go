package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/wondertwin-ai/app-otp/internal/config"
	"github.com/wondertwin-ai/app-otp/internal/logging"
	"go.mongodb.org/mongo-driver/bson"
)

// Purges expired OTP challenges left behind by deployments that ran before
// the expires_at TTL index existed. On current deployments MongoDB reaps
// these automatically and the script finds nothing to do.
func main() {
	fmt.Println("🧹 Purging expired OTP challenges...")

	if err := logging.InitLogger(); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize MongoDB
	config.InitMongoDB()
	if config.MongoDB == nil {
		log.Fatal("Failed to initialize MongoDB")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	collection := config.MongoDB.Collection(config.AppConfig.ChallengeCollection)

	now := time.Now()
	expired, err := collection.CountDocuments(ctx, bson.M{"expires_at": bson.M{"$lt": now}})
	if err != nil {
		log.Fatalf("Failed to count expired challenges: %v", err)
	}

	if expired == 0 {
		fmt.Println("✅ No expired challenges found, nothing to do")
		return
	}

	result, err := collection.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": now}})
	if err != nil {
		log.Fatalf("Failed to delete expired challenges: %v", err)
	}

	fmt.Printf("✅ Deleted %d expired challenges\n", result.DeletedCount)
}
