package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/fulfillment/cmd/utils/internal/seeding"
	"github.com/aquamarinepk/aqm"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const addressSeedID = "demo_addresses_v1"

// SeedDemo loads demo customers' addresses into the user database so orders
// placed without an address resolve a default one.
func SeedDemo(ctx context.Context, config *aqm.Config, logger aqm.Logger) error {
	logger.Info("Starting demo seeding process...")

	client, err := connect(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	if err := seedAddressDemo(ctx, client.Database(Databases["user"]), logger); err != nil {
		return fmt.Errorf("seed address demo: %w", err)
	}
	return nil
}

func seedAddressDemo(ctx context.Context, db *mongo.Database, logger aqm.Logger) error {
	seedsCollection := db.Collection("_seeds")
	count, err := seedsCollection.CountDocuments(ctx, bson.M{"_id": addressSeedID})
	if err != nil {
		return fmt.Errorf("check seed status: %w", err)
	}

	if count > 0 {
		logger.Info("Address demo seeds already applied, skipping")
		return nil
	}

	n, err := seeding.SeedAddresses(ctx, db)
	if err != nil {
		return fmt.Errorf("seed addresses: %w", err)
	}

	_, err = seedsCollection.InsertOne(ctx, bson.M{
		"_id":         addressSeedID,
		"description": "Create demo customers with one default delivery address each",
		"applied_at":  bson.M{"$currentDate": bson.M{"$type": "timestamp"}},
	})
	if err != nil {
		logger.Infof("⚠️  Failed to mark seed as applied: %v", err)
	}

	logger.Info("Address demo seeds applied successfully", "addresses", n)
	return nil
}
