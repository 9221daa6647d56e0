package database

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/mflix-go/webserver/internal/common"
	"github.com/mflix-go/webserver/internal/log"
)

// Collection names shared by the repositories.
const (
	UsersCollection    = "users"
	SessionsCollection = "sessions"
)

// Connect creates a MongoDB client and pings the primary until it answers or timeout elapses.
func Connect(ctx context.Context, uri string, wc *writeconcern.WriteConcern, timeout time.Duration, logger *log.Logger) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(timeout).
		SetWriteConcern(wc)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create MongoDB client: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for {
		err = client.Ping(ctx, readpref.Primary())
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("failed to reach MongoDB: %w", err)
		}
		logger.Infof("MongoDB not reachable yet (%v), retrying", err)
		select {
		case <-ctx.Done():
			_ = client.Disconnect(context.Background())
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}

	logger.Info("Connected to MongoDB")
	return client, nil
}

// ParseWriteConcern turns a configuration string into a write concern.
// Accepted values: "majority", "journaled", "0" (unacknowledged) or a positive replica count. Surrounding blanks and
// case are ignored. With "0" the server never acknowledges a write, so every repository write returns
// common.ErrUnacknowledged.
func ParseWriteConcern(value string) (*writeconcern.WriteConcern, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "", "majority":
		return writeconcern.Majority(), nil
	case "journaled":
		return writeconcern.Journaled(), nil
	case "0":
		return writeconcern.Unacknowledged(), nil
	}

	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%w: write concern %q", common.ErrInvalidInput, value)
	}
	return &writeconcern.WriteConcern{W: n}, nil
}

// EnsureIndexes creates the indexes the repositories depend on. It is safe to call on every start.
//
//   - users.email unique: one account per email.
//   - sessions.jwt unique: at most one session per token.
//   - sessions.user_id: session lookups and cascading deletes by user.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetName("email_unique").SetUnique(true),
	})
	if err != nil {
		return WrapWriteError("create users indexes", err)
	}

	_, err = db.Collection(SessionsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "jwt", Value: 1}},
			Options: options.Index().SetName("jwt_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("user_id"),
		},
	})
	if err != nil {
		return WrapWriteError("create sessions indexes", err)
	}
	return nil
}
