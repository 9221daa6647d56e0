package database

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mflix-go/webserver/internal/common"
)

// WrapWriteError classifies a driver error returned by a write. The driver error stays in the chain.
func WrapWriteError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrUnacknowledgedWrite):
		return fmt.Errorf("%s: %w", op, common.ErrUnacknowledged)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w: %w", op, common.ErrDuplicateKey, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, common.ErrOperation, err)
	}
}

// WrapReadError classifies a driver error returned by a lookup. A missing document becomes notFound,
// which callers build by wrapping common.ErrNotFound.
func WrapReadError(op string, err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return notFound
	default:
		return fmt.Errorf("%s: %w: %w", op, common.ErrOperation, err)
	}
}
