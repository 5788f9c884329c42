package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lixenwraith/auth"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := stdout
	stdout = buf
	t.Cleanup(func() { stdout = prev })
	return buf
}

func TestDatabaseCommands(t *testing.T) {
	out := capture(t)
	dbArgs := []string{"-db-driver", "sqlite3", "-storage-path", filepath.Join(t.TempDir(), "cli.db")}

	require.NoError(t, Run(append([]string{"init"}, dbArgs...)))
	require.Contains(t, out.String(), "Database initialized at:")

	out.Reset()
	require.NoError(t, Run(append([]string{"counts"}, dbArgs...)))
	require.Contains(t, out.String(), "scoreboard")
	require.Contains(t, out.String(), "pitcher_info")

	out.Reset()
	require.NoError(t, Run(append([]string{"schedule"}, append(dbArgs, "-year", "2025")...)))
	require.Contains(t, out.String(), "No schedule found")

	out.Reset()
	require.NoError(t, Run(append([]string{"matches"}, append(dbArgs, "-date", "2025-09")...)))
	require.Contains(t, out.String(), "No matches found")

	require.Error(t, Run(append([]string{"matches"}, dbArgs...)))
	require.Error(t, Run(append([]string{"schedule"}, dbArgs...)))

	out.Reset()
	require.NoError(t, Run(append([]string{"delete"}, dbArgs...)))
	require.Contains(t, out.String(), "Database deleted:")
}

func TestAdminKey(t *testing.T) {
	out := capture(t)

	require.Error(t, Run([]string{"admin-key"}))
	require.ErrorContains(t, Run([]string{"admin-key", "-key", "short"}), "at least")

	require.NoError(t, Run([]string{"admin-key", "-key", "ingest-key-2025"}))
	hash := strings.TrimSpace(out.String())
	require.NoError(t, auth.VerifyPassword("ingest-key-2025", hash))

	out.Reset()
	require.NoError(t, Run([]string{"admin-key", "-key", "ingest-key-2025", "-verify", hash}))
	require.Contains(t, out.String(), "Key matches hash")

	require.Error(t, Run([]string{"admin-key", "-key", "another-key-2025", "-verify", hash}))
}

func TestDispatch(t *testing.T) {
	out := capture(t)
	dbArgs := []string{"-storage-path", filepath.Join(t.TempDir(), "shell.db")}

	require.True(t, dispatch("exit", dbArgs))
	require.False(t, dispatch("   ", dbArgs))

	require.False(t, dispatch("help", dbArgs))
	require.Contains(t, out.String(), "Commands:")

	out.Reset()
	require.False(t, dispatch("init", dbArgs))
	require.Contains(t, out.String(), "Database initialized at:")

	// admin-key takes no database flags
	out.Reset()
	require.False(t, dispatch("admin-key -key shell-admin-key", dbArgs))
	require.NotContains(t, out.String(), "Error:")

	out.Reset()
	require.False(t, dispatch("bogus", dbArgs))
	require.Contains(t, out.String(), "unknown subcommand: bogus")
}

func TestUnknownSubcommand(t *testing.T) {
	require.Error(t, Run(nil))
	require.Error(t, Run([]string{"migrate"}))
}
