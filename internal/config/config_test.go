package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orbiterrors "github.com/noah-vl/orbit-frontend-sub000/pkg/errors"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_DefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "synthetic", cfg.Data.Source)
	assert.Equal(t, "local", cfg.Search.Backend)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 1200*time.Millisecond, cfg.Camera.AutoFitDelay())
	assert.Equal(t, 50*time.Millisecond, cfg.Server.FrameInterval())
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "orbit.yaml", `
env: production
data:
  source: file
  path: graph.yaml
  team: t1
search:
  backend: http
  endpoint: http://search.local/query
  timeoutMS: 800
rings:
  hub: 100
  category: 200
  leaf: 300
camera:
  width: 1280
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "graph.yaml", cfg.Data.Path)
	assert.Equal(t, "t1", cfg.Data.TeamID)
	assert.Equal(t, 800*time.Millisecond, cfg.Search.Timeout())
	assert.Equal(t, 300.0, cfg.Rings.Leaf)
	assert.Equal(t, 1280.0, cfg.Camera.Width)
	// untouched sections fall back to defaults
	assert.Equal(t, 640.0, cfg.Camera.Height)
	assert.Equal(t, 0.3, cfg.Layout.VelocityDecay)
	assert.Equal(t, "orbit.search", cfg.Search.Subject)
}

func TestLoad_TOML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "orbit.toml", `
[data]
source = "neo4j"
neo4j_uri = "bolt://graph:7687"

[search]
backend = "nats"
nats_url = "nats://bus:4222"

[layout.link]
hub_category = 120
category_leaf = 180
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "neo4j", cfg.Data.Source)
	assert.Equal(t, "bolt://graph:7687", cfg.Data.Neo4jURI)
	assert.Equal(t, "nats://bus:4222", cfg.Search.NATSURL)
	assert.Equal(t, 120.0, cfg.Layout.Link.HubCategory)
	assert.Equal(t, 180.0, cfg.Layout.Link.CategoryLeaf)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "ORBIT_TEAM=from-dotenv\n")
	t.Setenv("ORBIT_DATA_SOURCE", "http")
	t.Setenv("ORBIT_DATA_ENDPOINT", "http://graph.local/kg")
	t.Setenv("ORBIT_CREDENTIAL", "secret")
	t.Setenv("ORBIT_ADDR", ":9999")
	t.Cleanup(func() { os.Unsetenv("ORBIT_TEAM") })

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "http", cfg.Data.Source)
	assert.Equal(t, "http://graph.local/kg", cfg.Data.Endpoint)
	assert.Equal(t, "secret", cfg.Data.Credential)
	assert.Equal(t, "from-dotenv", cfg.Data.TeamID)
	assert.Equal(t, ":9999", cfg.Server.Addr)
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "orbit.yaml", "data: [unterminated")

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"defaults", func(*Config) {}, ""},
		{"rings out of order", func(c *Config) { c.Rings.Category = c.Rings.Leaf + 1 }, "rings"},
		{"link distances out of order", func(c *Config) { c.Layout.Link.HubCategory = 500 }, "layout.link"},
		{"file without path", func(c *Config) { c.Data.Source = "file" }, "data.path"},
		{"unknown source", func(c *Config) { c.Data.Source = "ftp" }, "data.source"},
		{"http search without endpoint", func(c *Config) { c.Search.Backend = "http" }, "search.endpoint"},
		{"zoom bounds", func(c *Config) { c.Camera.MinZoom, c.Camera.MaxZoom = 3, 2 }, "camera"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, orbiterrors.IsErrorType(err, orbiterrors.ErrorTypeConfig))
			var cerr *orbiterrors.ErrConfigValidationFailed
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"orbit.yaml", "orbit.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			cfg := DefaultConfig()
			cfg.Data.TeamID = "t9"
			cfg.Data.Credential = "never-written"
			cfg.Rings.Leaf = 500

			require.NoError(t, Save(cfg, path))

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.NotContains(t, string(data), "never-written")

			loaded, err := LoadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "t9", loaded.Data.TeamID)
			assert.Equal(t, 500.0, loaded.Rings.Leaf)
			assert.Empty(t, loaded.Data.Credential)
		})
	}
}

func TestCameraOptions(t *testing.T) {
	c := CameraConfig{Width: 800, FitDurationMS: 250, InspectZoom: 3}
	opts := c.Options()
	assert.Equal(t, 800.0, opts.Width)
	assert.Equal(t, 250*time.Millisecond, opts.FitDuration)
	assert.Equal(t, 3.0, opts.InspectZoom)
	assert.Zero(t, opts.ZoomDuration)
}
