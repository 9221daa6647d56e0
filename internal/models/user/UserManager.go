// This file contains the UserManager implementation, which is responsible for interacting with the MongoDB users collection.
// The UserManager struct contains a pointer to the users collection, the session store used for cascading deletes and a
// logger. Users are addressed by email. The only mutable field after registration is the preferences map.

package user

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/multierr"

	"github.com/mflix-go/webserver/internal/common"
	"github.com/mflix-go/webserver/internal/database"
	"github.com/mflix-go/webserver/internal/log"
)

var (
	// ErrUserNotFound is returned when no user has the requested email.
	ErrUserNotFound = fmt.Errorf("user %w", common.ErrNotFound)
	// ErrEmailTaken is returned when a user with the same email already exists.
	ErrEmailTaken = fmt.Errorf("email is already registered: %w", common.ErrDuplicateKey)
)

// SessionDeleter removes every session of a user. Implemented by session.SessionManager.
type SessionDeleter interface {
	DeleteUserSessions(ctx context.Context, userID string) (int64, error)
}

type UserManager struct {
	collection *mongo.Collection
	sessions   SessionDeleter
	logger     *log.Logger
}

// NewUserManager creates a new instance of UserManager over db.users. Sessions of deleted users are removed through
// sessions. A nil write concern keeps the client default.
func NewUserManager(db *mongo.Database, wc *writeconcern.WriteConcern, sessions SessionDeleter, logger *log.Logger) *UserManager {
	opts := options.Collection()
	if wc != nil {
		opts.SetWriteConcern(wc)
	}
	return &UserManager{
		collection: db.Collection(database.UsersCollection, opts),
		sessions:   sessions,
		logger:     logger,
	}
}

// AddUser inserts user. The password must already be hashed (see User.SetPassword).
// Returns ErrEmailTaken if the email is registered, or an error wrapping common.ErrOperation on any other failure.
func (um *UserManager) AddUser(ctx context.Context, user *User) error {
	if user == nil || user.Email == "" {
		return fmt.Errorf("add user: %w: email is required", common.ErrInvalidInput)
	}

	result, err := um.collection.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		um.logger.Infow("Rejected duplicate user", "email", user.Email)
		return ErrEmailTaken
	}
	if err != nil {
		um.logger.Errorw("Failed to insert user", "email", user.Email, "error", err)
		return database.WrapWriteError("add user", err)
	}

	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		user.ID = id
	}
	return nil
}

// GetUser retrieves the user with the given email. Returns ErrUserNotFound if there is none.
func (um *UserManager) GetUser(ctx context.Context, email string) (*User, error) {
	var user User
	err := um.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		return nil, database.WrapReadError("get user", err, ErrUserNotFound)
	}
	return &user, nil
}

// UpdateUserPreferences merges prefs into the stored preferences of the user and writes the merged map back.
// Keys in prefs overwrite stored keys, other stored keys are kept. Values are stored in their string form.
// An empty prefs, an invalid key or a nil value is rejected with common.ErrInvalidInput before storage is touched.
func (um *UserManager) UpdateUserPreferences(ctx context.Context, email string, prefs map[string]any) error {
	updates, err := stringifyPreferences(prefs)
	if err != nil {
		return fmt.Errorf("update preferences: %w", err)
	}

	user, err := um.GetUser(ctx, email)
	if err != nil {
		return err
	}

	merged := mergePreferences(user.Preferences, updates)
	result, err := um.collection.UpdateOne(
		ctx,
		bson.M{"email": email},
		bson.M{"$set": bson.M{"preferences": merged}},
	)
	if err != nil {
		um.logger.Errorw("Failed to update preferences", "email", email, "error", err)
		return database.WrapWriteError("update preferences", err)
	}
	if result.MatchedCount == 0 {
		// deleted between the read and the write
		return ErrUserNotFound
	}
	return nil
}

// DeleteUser removes the user with the given email and then, whatever the outcome, all of the user's sessions.
// The returned error combines both failures; nil means both deletes were acknowledged. Deleting an unknown email
// is not an error.
func (um *UserManager) DeleteUser(ctx context.Context, email string) error {
	var userErr error
	result, err := um.collection.DeleteOne(ctx, bson.M{"email": email})
	if err != nil {
		um.logger.Errorw("Failed to delete user", "email", email, "error", err)
		userErr = database.WrapWriteError("delete user", err)
	} else if result.DeletedCount == 0 {
		um.logger.Infow("No user to delete", "email", email)
	}

	removed, sessErr := um.sessions.DeleteUserSessions(ctx, email)
	if sessErr != nil {
		sessErr = fmt.Errorf("delete user sessions: %w", sessErr)
	} else {
		um.logger.Debugw("Deleted user sessions", "email", email, "count", removed)
	}

	return multierr.Append(userErr, sessErr)
}
