package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/fulfillment/pkg"
	"github.com/aquamarinepk/aqm"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BaseRepo owns the Mongo connection shared by a service's repositories.
type BaseRepo struct {
	client    *mongo.Client
	db        *mongo.Database
	logger    aqm.Logger
	config    *aqm.Config
	defaultDB string
}

func NewBaseRepo(config *aqm.Config, defaultDB string, logger aqm.Logger) *BaseRepo {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &BaseRepo{
		logger:    logger,
		config:    config,
		defaultDB: defaultDB,
	}
}

func (r *BaseRepo) Start(ctx context.Context) error {
	connString := pkg.StringOr(r.config, "db.mongo.url", "mongodb://localhost:27017")
	dbName := pkg.StringOr(r.config, "db.mongo.name", r.defaultDB)

	clientOptions := options.Client().ApplyURI(connString).
		SetRegistry(Registry()).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("cannot connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	r.client = client
	r.db = client.Database(dbName)

	r.logger.Infof("Connected to MongoDB: %s, database: %s", connString, dbName)
	return nil
}

func (r *BaseRepo) Stop(ctx context.Context) error {
	if r.client != nil {
		if err := r.client.Disconnect(ctx); err != nil {
			return fmt.Errorf("cannot disconnect from MongoDB: %w", err)
		}
		r.logger.Info("Disconnected from MongoDB")
	}
	return nil
}

func (r *BaseRepo) GetDatabase() *mongo.Database {
	return r.db
}

func (r *BaseRepo) GetClient() *mongo.Client {
	return r.client
}
