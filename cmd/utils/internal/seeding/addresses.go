package seeding

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// DemoCustomers are the user IDs the demo seed owns.
var DemoCustomers = []string{"demo-customer-1", "demo-customer-2", "demo-customer-3"}

type demoAddress struct {
	customer   string
	label      string
	street     string
	city       string
	postalCode string
	isDefault  bool
}

var demoAddresses = []demoAddress{
	{"demo-customer-1", "Home", "742 Evergreen Terrace", "Springfield", "49007", true},
	{"demo-customer-1", "Work", "100 Industrial Way", "Springfield", "49008", false},
	{"demo-customer-2", "Home", "221B Baker Street", "London", "NW1 6XE", true},
	{"demo-customer-3", "Flat", "12 Rue de Rivoli", "Paris", "75004", true},
	{"demo-customer-3", "Parents", "8 Avenue Foch", "Lyon", "69006", false},
}

// SeedAddresses inserts the demo addresses with exactly one default per
// customer and returns how many were written.
func SeedAddresses(ctx context.Context, db *mongo.Database) (int, error) {
	collection := db.Collection("addresses")
	now := time.Now().UTC()

	docs := make([]interface{}, 0, len(demoAddresses))
	for i, a := range demoAddresses {
		created := now.Add(time.Duration(i-len(demoAddresses)) * time.Minute)
		docs = append(docs, bson.M{
			"_id":         uuid.New(),
			"user_id":     a.customer,
			"label":       a.label,
			"street":      a.street,
			"city":        a.city,
			"postal_code": a.postalCode,
			"is_default":  a.isDefault,
			"created_at":  created,
			"updated_at":  created,
		})
	}

	res, err := collection.InsertMany(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("cannot insert demo addresses: %w", err)
	}
	return len(res.InsertedIDs), nil
}
