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

const outboxCounterID = "outbox"

type Outbox struct {
	collection *mongo.Collection
	counters   *mongo.Collection
}

func NewOutbox(db *mongo.Database) *Outbox {
	return &Outbox{
		collection: db.Collection("outbox"),
		counters:   db.Collection("counters"),
	}
}

func (o *Outbox) Start(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "seq", Value: 1}},
	}
	if _, err := o.collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("cannot create outbox index: %w", err)
	}

	_, err := o.counters.UpdateByID(ctx, outboxCounterID,
		bson.M{"$setOnInsert": bson.M{"seq": int64(0)}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("cannot create outbox counter: %w", err)
	}
	return nil
}

// nextSeq increments the outbox counter in the caller's transaction.
// Concurrent units of work conflict on the counter document, so the loser
// retries and sequences follow commit order.
func (o *Outbox) nextSeq(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := o.counters.FindOneAndUpdate(ctx, bson.M{"_id": outboxCounterID}, bson.M{"$inc": bson.M{"seq": int64(1)}}, opts).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("cannot allocate outbox sequence: %w", err)
	}
	return counter.Seq, nil
}

func (o *Outbox) Enqueue(ctx context.Context, msg *saga.OutboxMessage) error {
	if msg == nil {
		return fmt.Errorf("outbox message is nil")
	}
	seq, err := o.nextSeq(ctx)
	if err != nil {
		return err
	}
	msg.Sequence = seq
	if _, err := o.collection.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("cannot insert outbox message: %w", err)
	}
	return nil
}

func (o *Outbox) Pending(ctx context.Context, limit int) ([]*saga.OutboxMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := o.collection.Find(ctx, bson.M{"status": saga.OutboxPending}, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list pending outbox messages: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*saga.OutboxMessage
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode outbox messages: %w", err)
	}
	return result, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	_, err := o.collection.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"status": saga.OutboxSent, "sent_at": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("cannot mark outbox message sent: %w", err)
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, reason string) error {
	_, err := o.collection.UpdateByID(ctx, id, bson.M{
		"$inc": bson.M{"attempts": 1},
		"$set": bson.M{"last_error": reason},
	})
	if err != nil {
		return fmt.Errorf("cannot record outbox failure: %w", err)
	}
	return nil
}

func (o *Outbox) MarkParked(ctx context.Context, id string, reason string) error {
	_, err := o.collection.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"status": saga.OutboxParked, "last_error": reason},
	})
	if err != nil {
		return fmt.Errorf("cannot park outbox message: %w", err)
	}
	return nil
}

type OutboxStats struct {
	Pending       int64
	Sent          int64
	Failing       int64
	Parked        int64
	OldestPending *time.Time
	LastError     string
}

// Stats summarizes the outbox for operators.
func (o *Outbox) Stats(ctx context.Context) (OutboxStats, error) {
	var stats OutboxStats
	var err error

	if stats.Pending, err = o.collection.CountDocuments(ctx, bson.M{"status": saga.OutboxPending}); err != nil {
		return stats, fmt.Errorf("cannot count pending outbox messages: %w", err)
	}
	if stats.Sent, err = o.collection.CountDocuments(ctx, bson.M{"status": saga.OutboxSent}); err != nil {
		return stats, fmt.Errorf("cannot count sent outbox messages: %w", err)
	}
	failing := bson.M{"status": saga.OutboxPending, "attempts": bson.M{"$gt": 0}}
	if stats.Failing, err = o.collection.CountDocuments(ctx, failing); err != nil {
		return stats, fmt.Errorf("cannot count failing outbox messages: %w", err)
	}
	if stats.Parked, err = o.collection.CountDocuments(ctx, bson.M{"status": saga.OutboxParked}); err != nil {
		return stats, fmt.Errorf("cannot count parked outbox messages: %w", err)
	}

	pending, err := o.Pending(ctx, 1)
	if err != nil {
		return stats, err
	}
	if len(pending) > 0 {
		oldest := pending[0].CreatedAt
		stats.OldestPending = &oldest
		stats.LastError = pending[0].LastError
	}
	return stats, nil
}
