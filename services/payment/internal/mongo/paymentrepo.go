package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/appetiteclub/fulfillment/pkg/saga"
	"github.com/appetiteclub/fulfillment/services/payment/internal/payment"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PaymentRepo struct {
	collection *mongo.Collection
}

func NewPaymentRepo(db *mongo.Database) *PaymentRepo {
	return &PaymentRepo{
		collection: db.Collection("payments"),
	}
}

// Start creates the unique indexes that back one payment per order and one
// payment per provider intent.
func (r *PaymentRepo) Start(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "order_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "intent_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("cannot create payments indexes: %w", err)
	}
	return nil
}

func (r *PaymentRepo) Create(ctx context.Context, p *payment.Payment) error {
	if p == nil {
		return fmt.Errorf("payment is nil")
	}

	_, err := r.collection.InsertOne(ctx, p)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: order %s intent %s", saga.ErrDuplicateResource, p.OrderID, p.IntentID)
	}
	if err != nil {
		return fmt.Errorf("cannot create payment: %w", err)
	}
	return nil
}

func (r *PaymentRepo) Get(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *PaymentRepo) FindByOrderID(ctx context.Context, orderID string) (*payment.Payment, error) {
	return r.findOne(ctx, bson.M{"order_id": orderID})
}

func (r *PaymentRepo) FindByIntentID(ctx context.Context, intentID string) (*payment.Payment, error) {
	return r.findOne(ctx, bson.M{"intent_id": intentID})
}

func (r *PaymentRepo) findOne(ctx context.Context, filter bson.M) (*payment.Payment, error) {
	var p payment.Payment
	err := r.collection.FindOne(ctx, filter).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get payment: %w", err)
	}
	return &p, nil
}

func (r *PaymentRepo) Update(ctx context.Context, p *payment.Payment) error {
	if p == nil {
		return fmt.Errorf("payment is nil")
	}

	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return fmt.Errorf("cannot update payment: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("payment %s not found", p.ID)
	}
	return nil
}
