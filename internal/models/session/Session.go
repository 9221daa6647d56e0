package session

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session binds a JWT to the user it was issued for.
type Session struct {
	ID     primitive.ObjectID `bson:"_id,omitempty"`
	UserID string             `bson:"user_id"`
	JWT    string             `bson:"jwt"`
}
