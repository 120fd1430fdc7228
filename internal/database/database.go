package database

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/smartdoorlock/core/internal/config"
	"github.com/smartdoorlock/core/internal/modules/device"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const connectTimeout = 10 * time.Second

// Connect opens the device record store selected by cfg.Driver and verifies
// the backend is reachable.
func Connect(ctx context.Context, cfg config.StoreConfig, log *zap.Logger) (device.Store, error) {
	switch cfg.Driver {
	case config.StoreMongo:
		return connectMongo(ctx, cfg.Mongo, log)
	case config.StoreFirestore:
		return connectFirestore(ctx, cfg.Firestore, log)
	case config.StoreMemory:
		log.Warn("using in-memory device store, records are lost on restart")
		return device.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func connectMongo(ctx context.Context, cfg config.MongoConfig, log *zap.Logger) (device.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connection failed: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping failed: %w", err)
	}
	log.Info("mongo connected", zap.String("database", cfg.Database), zap.String("collection", cfg.Collection))
	return device.NewMongoStore(client, cfg.Database, cfg.Collection), nil
}

func connectFirestore(ctx context.Context, cfg config.FirestoreConfig, log *zap.Logger) (device.Store, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore connection failed: %w", err)
	}
	log.Info("firestore connected", zap.String("project", cfg.ProjectID), zap.String("collection", cfg.Collection))
	return device.NewFirestoreStore(client, cfg.Collection), nil
}
