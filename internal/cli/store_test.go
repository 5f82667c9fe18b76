package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vhmesh/internal/seal"
	"github.com/roach88/vhmesh/internal/storage"
)

const storeConfig = `env: test
storage:
  root_secret: cli-secret
  root_salt: cli-salt
  key_iterations: 1000
`

func storeArgs(t *testing.T) (configPath, dbPath string) {
	t.Helper()
	return writeFile(t, "vhmesh.yaml", storeConfig), filepath.Join(t.TempDir(), "replica.db")
}

func TestStore_PutGetKeys(t *testing.T) {
	cfg, db := storeArgs(t)
	payload := writeFile(t, "story.yaml", "storyId: story-1\nsources: [a, b]\n")

	out, err := runCLI(t, "--config", cfg, "store", "--db", db, "put", "vh/news/stories/story-1", payload)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Stored vh/news/stories/story-1")

	_, err = runCLI(t, "--config", cfg, "store", "--db", db, "put", "vh/local/draft", "--value", `"plain text"`)
	require.NoError(t, err)

	out, err = runCLI(t, "--config", cfg, "--format", "json", "store", "--db", db, "get", "vh/news/stories/story-1")
	require.NoError(t, err)
	var resp struct {
		Status string         `json:"status"`
		Data   StoreGetResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, map[string]any{"storyId": "story-1", "sources": []any{"a", "b"}}, resp.Data.Value)
	assert.NotZero(t, resp.Data.UpdatedAt)

	out, err = runCLI(t, "--config", cfg, "store", "--db", db, "get", "vh/local/draft")
	require.NoError(t, err)
	assert.Equal(t, "plain text\n", out)

	out, err = runCLI(t, "--config", cfg, "store", "--db", db, "keys")
	require.NoError(t, err)
	assert.Equal(t, "vh/local/draft\nvh/news/stories/story-1\n", out)
}

func TestStore_EncryptedWithConfiguredKey(t *testing.T) {
	cfg, db := storeArgs(t)
	_, err := runCLI(t, "--config", cfg, "store", "--db", db, "put", "k", "--value", `{"n":1}`)
	require.NoError(t, err)

	ctx := context.Background()
	right, err := storage.OpenSQLite(db, seal.NewKeySourceWithIterations("cli-secret", "cli-salt", 1000), nil, nil)
	require.NoError(t, err)
	rec, err := right.Read(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, map[string]any{"n": float64(1)}, rec.Value)
	require.NoError(t, right.Close())

	wrong, err := storage.OpenSQLite(db, seal.NewKeySourceWithIterations("other-secret", "cli-salt", 1000), nil, nil)
	require.NoError(t, err)
	defer wrong.Close()
	_, err = wrong.Read(ctx, "k")
	assert.Error(t, err)
}

func TestStore_GetMissing(t *testing.T) {
	cfg, db := storeArgs(t)

	out, err := runCLI(t, "--config", cfg, "store", "--db", db, "get", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)

	out, err = runCLI(t, "--config", cfg, "--format", "json", "store", "--db", db, "keys")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":{"keys":[]}}`, out)
}

func TestStore_CommandErrors(t *testing.T) {
	cfg, db := storeArgs(t)

	tests := []struct {
		name     string
		args     []string
		wantCode string
	}{
		{"no_payload", []string{"--config", cfg, "store", "--db", db, "put", "k"}, ErrCodeBadArgument},
		{"both_payloads", []string{"--config", cfg, "store", "--db", db, "put", "k", cfg, "--value", "1"}, ErrCodeBadArgument},
		{"bad_inline", []string{"--config", cfg, "store", "--db", db, "put", "k", "--value", "{"}, ErrCodeParseFailed},
		{"missing_config", []string{"--config", "/nonexistent/vhmesh.yaml", "store", "--db", db, "keys"}, ErrCodeLoadFailed},
		{"bad_db", []string{"--config", cfg, "store", "--db", filepath.Join(t.TempDir(), "missing", "dir", "x.db"), "keys"}, ErrCodeLoadFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.wantCode)
		})
	}
}
