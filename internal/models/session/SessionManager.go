// This file contains the SessionManager implementation, which is responsible for interacting with the MongoDB sessions
// collection. Sessions are created on login, read on every authenticated request and removed on logout or when the
// owning user is deleted. At most one session exists per token: creation is an upsert keyed on the token, backed by
// the unique jwt index (see database.EnsureIndexes).

package session

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/mflix-go/webserver/internal/common"
	"github.com/mflix-go/webserver/internal/database"
	"github.com/mflix-go/webserver/internal/log"
)

var (
	// ErrSessionNotFound is returned when a user has no session, or the stored session carries no token.
	ErrSessionNotFound = fmt.Errorf("session %w", common.ErrNotFound)
)

type SessionManager struct {
	collection *mongo.Collection
	logger     *log.Logger
}

// NewSessionManager creates a new SessionManager over db.sessions. A nil write concern keeps the client default.
func NewSessionManager(db *mongo.Database, wc *writeconcern.WriteConcern, logger *log.Logger) *SessionManager {
	opts := options.Collection()
	if wc != nil {
		opts.SetWriteConcern(wc)
	}
	return &SessionManager{
		collection: db.Collection(database.SessionsCollection, opts),
		logger:     logger,
	}
}

// CreateUserSession stores a session for userID and jwt. If a session with this jwt already exists nothing is
// written and nil is returned.
func (sm *SessionManager) CreateUserSession(ctx context.Context, userID, jwt string) error {
	if userID == "" || jwt == "" {
		return fmt.Errorf("create session: %w: user id and token are required", common.ErrInvalidInput)
	}

	_, err := sm.collection.UpdateOne(
		ctx,
		bson.M{"jwt": jwt},
		bson.M{"$setOnInsert": bson.M{"user_id": userID}},
		options.Update().SetUpsert(true),
	)
	// Two upserts racing on the same token: the loser hits the unique index, the session exists.
	if mongo.IsDuplicateKeyError(err) {
		sm.logger.Debugw("Session already exists", "user_id", userID)
		return nil
	}
	if err != nil {
		sm.logger.Errorw("Failed to create session", "user_id", userID, "error", err)
		return database.WrapWriteError("create session", err)
	}
	return nil
}

// GetUserSession returns the most recent session of userID. Two logins racing past each other's cleanup can leave
// two sessions; ordering by _id makes the later login the live one.
// Returns ErrSessionNotFound if there is none or if the stored session has no token.
func (sm *SessionManager) GetUserSession(ctx context.Context, userID string) (*Session, error) {
	var session Session
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})
	err := sm.collection.FindOne(ctx, bson.M{"user_id": userID}, opts).Decode(&session)
	if err != nil {
		return nil, database.WrapReadError("get session", err, ErrSessionNotFound)
	}
	if session.JWT == "" {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

// DeleteUserSessions removes every session of userID and reports how many were removed.
// Removing zero sessions is not an error.
func (sm *SessionManager) DeleteUserSessions(ctx context.Context, userID string) (int64, error) {
	result, err := sm.collection.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		sm.logger.Errorw("Failed to delete sessions", "user_id", userID, "error", err)
		return 0, database.WrapWriteError("delete sessions", err)
	}
	return result.DeletedCount, nil
}
