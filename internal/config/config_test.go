package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8004", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Neo4j.Enabled)
	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4j.URI)
	assert.False(t, cfg.Snapshot.Enabled)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Server.Addr, cfg.Server.Addr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
log:
  level: debug
  format: console
neo4j:
  enabled: false
  uri: bolt://graph.internal:7687
  user: svc
  password: hunter2
snapshot:
  enabled: true
  endpoint: minio.internal:9000
  bucket: schema-snapshots
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.False(t, cfg.Neo4j.Enabled)
	assert.Equal(t, "bolt://graph.internal:7687", cfg.Neo4j.URI)
	assert.Equal(t, "hunter2", cfg.Neo4j.Password)
	assert.True(t, cfg.Snapshot.Enabled)
	assert.Equal(t, "minio.internal:9000", cfg.Snapshot.Endpoint)
	assert.Equal(t, "schema-snapshots", cfg.Snapshot.Bucket)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not: a: mapping"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
neo4j:
  enabled: true
  uri: bolt://from-file:7687
`), 0o600))

	t.Setenv("SCHEMAGRAPH_ADDR", ":7777")
	t.Setenv("SCHEMAGRAPH_LOG_LEVEL", "warn")
	t.Setenv("NEO4J_ENABLED", "false")
	t.Setenv("NEO4J_URI", "bolt://from-env:7687")
	t.Setenv("SNAPSHOT_ENABLED", "true")
	t.Setenv("SNAPSHOT_BUCKET", "env-bucket")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7777", cfg.Server.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.False(t, cfg.Neo4j.Enabled)
	assert.Equal(t, "bolt://from-env:7687", cfg.Neo4j.URI)
	assert.True(t, cfg.Snapshot.Enabled)
	assert.Equal(t, "env-bucket", cfg.Snapshot.Bucket)
}

func TestEnvIgnoresInvalidBool(t *testing.T) {
	t.Setenv("NEO4J_ENABLED", "maybe")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Neo4j.Enabled, "unparseable bool keeps the default")
}
