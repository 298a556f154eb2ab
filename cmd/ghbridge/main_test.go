package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	for _, path := range [][]string{{"relay"}, {"bot"}, {"migrate", "up"}, {"migrate", "down"}} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestMigrate_RequiresURL(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("DATABASE_URL", "")

	root := newRootCmd()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"migrate", "up"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database url is required")
}

func TestRelay_ValidatesConfig(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	for _, key := range []string{"GITHUB_OAUTH_CLIENT_ID", "GITHUB_OAUTH_CLIENT_SECRET", "OAUTH_REDIRECT_URI", "OAUTH_SERVICE_SECRET", "TELEGRAM_BOT_TOKEN"} {
		t.Setenv(key, "")
	}

	root := newRootCmd()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"relay"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "github.client_id is required")
}
