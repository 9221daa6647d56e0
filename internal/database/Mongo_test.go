package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/mflix-go/webserver/internal/common"
)

func TestParseWriteConcern(t *testing.T) {
	tests := []struct {
		in           string
		acknowledged bool
		w            interface{}
	}{
		{"", true, "majority"},
		{"majority", true, "majority"},
		{"MAJORITY", true, "majority"},
		{"0", false, 0},
		{"1", true, 1},
		{"3", true, 3},
		{" 2 ", true, 2},
		{" majority\n", true, "majority"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			wc, err := ParseWriteConcern(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.acknowledged, wc.Acknowledged())
			require.Equal(t, tt.w, wc.W)
		})
	}

	wc, err := ParseWriteConcern(" Journaled ")
	require.NoError(t, err)
	require.NotNil(t, wc.Journal)
	require.True(t, *wc.Journal)
}

func TestParseWriteConcern_Invalid(t *testing.T) {
	for _, in := range []string{"all", "-1", "1.5"} {
		_, err := ParseWriteConcern(in)
		require.ErrorIs(t, err, common.ErrInvalidInput, in)
	}
}

func TestEnsureIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("creates both collections' indexes", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(), mtest.CreateSuccessResponse())
		require.NoError(mt, EnsureIndexes(context.Background(), mt.DB))
	})

	mt.Run("duplicate values block the unique index", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    11000,
			Name:    "DuplicateKey",
			Message: "E11000 duplicate key error collection: users index: email_unique",
		}))
		err := EnsureIndexes(context.Background(), mt.DB)
		require.ErrorIs(mt, err, common.ErrDuplicateKey)
	})
}
