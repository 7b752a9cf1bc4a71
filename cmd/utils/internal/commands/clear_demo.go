package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/fulfillment/cmd/utils/internal/seeding"
	"github.com/aquamarinepk/aqm"
	"go.mongodb.org/mongo-driver/bson"
)

// ClearDemo removes demo addresses and their seed tracker.
func ClearDemo(ctx context.Context, config *aqm.Config, logger aqm.Logger) error {
	logger.Info("Starting demo data cleanup...")

	client, err := connect(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	db := client.Database(Databases["user"])

	result, err := db.Collection("addresses").DeleteMany(ctx, bson.M{"user_id": bson.M{"$in": seeding.DemoCustomers}})
	if err != nil {
		return fmt.Errorf("delete demo addresses: %w", err)
	}
	logger.Info("Deleted demo addresses", "count", result.DeletedCount)

	trackerResult, err := db.Collection("_seeds").DeleteOne(ctx, bson.M{"_id": addressSeedID})
	if err != nil {
		return fmt.Errorf("delete address seed tracker: %w", err)
	}
	logger.Info("Cleared address seed tracker", "deleted", trackerResult.DeletedCount)

	return nil
}
