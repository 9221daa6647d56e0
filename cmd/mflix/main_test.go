package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mflix-go/webserver/internal/config"
)

func TestRootCmd_ErrorsAreLeftToMain(t *testing.T) {
	t.Setenv("MONGO_URI", "")
	t.Setenv("JWT_SECRET_KEY", "")
	require.NoError(t, os.Unsetenv("MONGO_URI"))
	require.NoError(t, os.Unsetenv("JWT_SECRET_KEY"))

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--env", filepath.Join(t.TempDir(), "missing.env"), "ensure-indexes"})

	err := cmd.ExecuteContext(context.Background())
	require.ErrorIs(t, err, config.ErrMissingValue)
	require.Empty(t, stderr.String())
	require.Empty(t, stdout.String())
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()

	names := []string{}
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	require.ElementsMatch(t, []string{"serve", "ensure-indexes"}, names)
	require.Equal(t, "secrets/.env", cmd.PersistentFlags().Lookup("env").DefValue)
}
