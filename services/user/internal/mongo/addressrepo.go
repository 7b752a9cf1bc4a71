package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/appetiteclub/fulfillment/pkg/saga"
	"github.com/appetiteclub/fulfillment/services/user/internal/user"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AddressRepo struct {
	collection *mongo.Collection
}

func NewAddressRepo(db *mongo.Database) *AddressRepo {
	return &AddressRepo{
		collection: db.Collection("addresses"),
	}
}

// Start creates the partial unique index that allows one default address
// per user.
func (r *AddressRepo) Start(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().
				SetName("one_default_per_user").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"is_default": true}),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}},
		},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("cannot create addresses indexes: %w", err)
	}
	return nil
}

func (r *AddressRepo) Create(ctx context.Context, a *user.Address) error {
	if a == nil {
		return fmt.Errorf("address is nil")
	}

	_, err := r.collection.InsertOne(ctx, a)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: default address for user %s", saga.ErrDuplicateResource, a.UserID)
	}
	if err != nil {
		return fmt.Errorf("cannot create address: %w", err)
	}
	return nil
}

func (r *AddressRepo) Get(ctx context.Context, id uuid.UUID) (*user.Address, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *AddressRepo) FindDefault(ctx context.Context, userID string) (*user.Address, error) {
	return r.findOne(ctx, bson.M{"user_id": userID, "is_default": true})
}

func (r *AddressRepo) findOne(ctx context.Context, filter bson.M) (*user.Address, error) {
	var a user.Address
	err := r.collection.FindOne(ctx, filter).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot get address: %w", err)
	}
	return &a, nil
}

func (r *AddressRepo) ListByUser(ctx context.Context, userID string) ([]*user.Address, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list addresses: %w", err)
	}
	defer cursor.Close(ctx)

	addresses := []*user.Address{}
	for cursor.Next(ctx) {
		var a user.Address
		if err := cursor.Decode(&a); err != nil {
			return nil, fmt.Errorf("cannot decode address: %w", err)
		}
		addresses = append(addresses, &a)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cannot iterate addresses: %w", err)
	}
	return addresses, nil
}

func (r *AddressRepo) ClearDefaults(ctx context.Context, userID string, keep uuid.UUID) error {
	filter := bson.M{
		"user_id":    userID,
		"is_default": true,
		"_id":        bson.M{"$ne": keep},
	}
	update := bson.M{"$set": bson.M{"is_default": false}}
	if _, err := r.collection.UpdateMany(ctx, filter, update); err != nil {
		return fmt.Errorf("cannot clear default addresses: %w", err)
	}
	return nil
}

func (r *AddressRepo) Update(ctx context.Context, a *user.Address) error {
	if a == nil {
		return fmt.Errorf("address is nil")
	}

	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": a.ID}, a)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: default address for user %s", saga.ErrDuplicateResource, a.UserID)
	}
	if err != nil {
		return fmt.Errorf("cannot update address: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("address %s not found", a.ID)
	}
	return nil
}
