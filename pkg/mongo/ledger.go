package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/fulfillment/pkg/saga"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type processedEvent struct {
	ID          string    `bson:"_id"`
	Consumer    string    `bson:"consumer"`
	ProcessedAt time.Time `bson:"processed_at"`
}

// Ledger stores processed event IDs as document keys, so the _id uniqueness
// makes MarkProcessed an atomic insert-if-absent.
type Ledger struct {
	collection *mongo.Collection
	consumer   string
}

func NewLedger(db *mongo.Database, consumer string) *Ledger {
	return &Ledger{
		collection: db.Collection("processed_events"),
		consumer:   consumer,
	}
}

func (l *Ledger) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, nil
	}
	n, err := l.collection.CountDocuments(ctx, bson.M{"_id": eventID}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("cannot check processed event: %w", err)
	}
	return n > 0, nil
}

func (l *Ledger) MarkProcessed(ctx context.Context, eventID string) error {
	if eventID == "" {
		return nil
	}
	_, err := l.collection.InsertOne(ctx, processedEvent{
		ID:          eventID,
		Consumer:    l.consumer,
		ProcessedAt: time.Now().UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return saga.ErrAlreadyProcessed
	}
	if err != nil {
		return fmt.Errorf("cannot record processed event: %w", err)
	}
	return nil
}

// Prune deletes records processed before cutoff. Only prune past the bus
// retention window; an event redelivered after its record is gone is applied
// again.
func (l *Ledger) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := l.collection.DeleteMany(ctx, bson.M{"processed_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("cannot prune processed events: %w", err)
	}
	return res.DeletedCount, nil
}
