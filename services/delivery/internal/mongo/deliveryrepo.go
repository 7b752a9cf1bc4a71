package mongo

import (
	"context"
	"fmt"

	"github.com/appetiteclub/fulfillment/pkg/saga"
	"github.com/appetiteclub/fulfillment/services/delivery/internal/delivery"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DeliveryRepo struct {
	collection *mongo.Collection
}

func NewDeliveryRepo(db *mongo.Database) *DeliveryRepo {
	return &DeliveryRepo{
		collection: db.Collection("deliveries"),
	}
}

// Start creates the unique order_id index that backs one delivery per order.
func (r *DeliveryRepo) Start(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "order_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "courier_job_id", Value: 1}},
			Options: options.Index().SetPartialFilterExpression(bson.M{
				"courier_job_id": bson.M{"$exists": true},
			}),
		},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("cannot create deliveries indexes: %w", err)
	}
	return nil
}

func (r *DeliveryRepo) Create(ctx context.Context, d *delivery.Delivery) error {
	if d == nil {
		return fmt.Errorf("delivery is nil")
	}

	_, err := r.collection.InsertOne(ctx, d)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: order %s", saga.ErrDuplicateResource, d.OrderID)
	}
	if err != nil {
		return fmt.Errorf("cannot create delivery: %w", err)
	}
	return nil
}

func (r *DeliveryRepo) Get(ctx context.Context, id uuid.UUID) (*delivery.Delivery, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *DeliveryRepo) FindByOrderID(ctx context.Context, orderID string) (*delivery.Delivery, error) {
	return r.findOne(ctx, bson.M{"order_id": orderID})
}

func (r *DeliveryRepo) FindByJobID(ctx context.Context, jobID string) (*delivery.Delivery, error) {
	return r.findOne(ctx, bson.M{"courier_job_id": jobID})
}

func (r *DeliveryRepo) findOne(ctx context.Context, filter bson.M) (*delivery.Delivery, error) {
	var d delivery.Delivery
	err := r.collection.FindOne(ctx, filter).Decode(&d)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get delivery: %w", err)
	}
	return &d, nil
}

func (r *DeliveryRepo) Update(ctx context.Context, d *delivery.Delivery) error {
	if d == nil {
		return fmt.Errorf("delivery is nil")
	}

	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": d.ID}, d)
	if err != nil {
		return fmt.Errorf("cannot update delivery: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("delivery %s not found", d.ID)
	}
	return nil
}
