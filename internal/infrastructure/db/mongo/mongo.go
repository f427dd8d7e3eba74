package mongo

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultTimeout = 10 * time.Second

// Config captures the minimal settings required to establish a MongoDB connection.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Connect establishes a MongoDB client, verifies connectivity with a ping, and
// returns both the client and the selected database. A default timeout is
// applied when none is provided.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(cfg.Database)
	return client, db, nil
}

// objectID parses a hex id. Malformed ids are reported as ok=false so callers
// can map them to their not-found error.
func objectID(hex string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}

// containsPattern builds a case-insensitive substring match with the
// fragment treated literally.
func containsPattern(fragment string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(fragment), "$options": "i"}
}

type regionDoc struct {
	Timezone string `bson:"timezone"`
	Currency string `bson:"currency"`
	Country  string `bson:"country"`
}

// EnsureIndexes creates the indexes of every collection owned by this package.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if err := NewUserRepository(db).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}
	if err := NewClientRepository(db).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("clients indexes: %w", err)
	}
	if err := NewNotificationRepository(db).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("notifications indexes: %w", err)
	}
	return nil
}
