package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mflix-go/webserver/internal/common"
)

var errThingNotFound = fmt.Errorf("thing %w", common.ErrNotFound)

func TestWrapWriteError(t *testing.T) {
	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error"}}}

	tests := []struct {
		name    string
		err     error
		want    error
		notWant error
	}{
		{"duplicate key", dup, common.ErrDuplicateKey, common.ErrOperation},
		{"unacknowledged", mongo.ErrUnacknowledgedWrite, common.ErrUnacknowledged, common.ErrDuplicateKey},
		{"timeout", context.DeadlineExceeded, common.ErrOperation, common.ErrDuplicateKey},
		{"other write error", mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 121}}}, common.ErrOperation, common.ErrDuplicateKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WrapWriteError("insert", tt.err)
			require.ErrorIs(t, got, tt.want)
			require.False(t, errors.Is(got, tt.notWant))
		})
	}

	require.NoError(t, WrapWriteError("insert", nil))
}

func TestWrapWriteError_KeepsDriverError(t *testing.T) {
	got := WrapWriteError("delete", context.Canceled)
	require.ErrorIs(t, got, context.Canceled)
	require.ErrorIs(t, got, common.ErrOperation)
	require.Contains(t, got.Error(), "delete")
}

func TestWrapReadError(t *testing.T) {
	require.NoError(t, WrapReadError("find", nil, errThingNotFound))

	got := WrapReadError("find", mongo.ErrNoDocuments, errThingNotFound)
	require.ErrorIs(t, got, common.ErrNotFound)
	require.False(t, errors.Is(got, common.ErrOperation))

	got = WrapReadError("find", errors.New("connection reset"), errThingNotFound)
	require.ErrorIs(t, got, common.ErrOperation)
	require.False(t, errors.Is(got, common.ErrNotFound))
}

func TestUnacknowledgedIsOperationError(t *testing.T) {
	require.ErrorIs(t, common.ErrUnacknowledged, common.ErrOperation)
}
