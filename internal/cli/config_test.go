package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quilt.yaml")
	writeFile(t, path, "database: ./alice.db\nuser: alice@demo\nuser_name: Alice\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "./alice.db", cfg.Database)
	assert.Equal(t, "alice@demo", cfg.User)
	assert.Equal(t, "Alice", cfg.UserName)
}

func TestLoadConfigRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quilt.yaml")
	writeFile(t, path, "database: ./alice.db\ndatabse: typo\n")

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestApplyConfigFlagsWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quilt.yaml")
	writeFile(t, path, "database: ./config.db\nuser: config@demo\n")

	opts := &RootOptions{Config: path, Database: "./flag.db"}
	require.NoError(t, applyConfig(opts))

	assert.Equal(t, "./flag.db", opts.Database, "explicit flags beat config values")
	assert.Equal(t, "config@demo", opts.User, "unset options fill from config")
}
