package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"-q"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRender_WritesSVG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.svg")

	out, err := execute(t, "--config", dir, "render", "-o", path, "--seed", "3", "--width", "640", "--height", "480")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")
	assert.Contains(t, string(data), `width="640"`)
}

func TestRender_Stdout(t *testing.T) {
	out, err := execute(t, "--config", t.TempDir(), "render", "-o", "-", "--query", "infrastructure")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "<?xml") || strings.Contains(out, "<svg"))
	assert.NotContains(t, out, "wrote")
}

func TestRender_StoresLayoutInCache(t *testing.T) {
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "cache")
	cfg := "cache:\n  enabled: true\n  dir: " + cacheDir + "\n  maxEntries: 4\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orbit.yaml"), []byte(cfg), 0644))

	_, err := execute(t, "--config", dir, "render", "-o", filepath.Join(dir, "a.svg"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(cacheDir, "index.json"))
	assert.NoError(t, err, "settled layout should be cached")
}

func TestRender_MissingFileFails(t *testing.T) {
	dir := t.TempDir()
	cfg := "data:\n  source: file\n  path: " + filepath.Join(dir, "missing.json") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orbit.yaml"), []byte(cfg), 0644))

	_, err := execute(t, "--config", dir, "render", "-o", filepath.Join(dir, "a.svg"))
	assert.Error(t, err)
}

func TestStats_JSON(t *testing.T) {
	out, err := execute(t, "--config", t.TempDir(), "stats", "--json", "--top", "3")
	require.NoError(t, err)

	var st graphStats
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, "synthetic", st.Source)
	assert.Greater(t, st.Nodes, 20)
	assert.Greater(t, st.Tiers["hub"], 0)
	assert.Len(t, st.Top, 3)
	assert.GreaterOrEqual(t, st.Top[0].Degree, st.Top[2].Degree)
}

func TestStats_FileDataset(t *testing.T) {
	dir := t.TempDir()
	data := `{
  "nodes": [
    {"id": "h", "group": 0, "title": "Hub"},
    {"id": "c", "group": 1, "title": "Cat"},
    {"id": "l", "group": 2, "title": "Leaf", "articleId": "a1"},
    {"id": "orphan", "group": 2}
  ],
  "links": [
    {"source": "h", "target": "c"},
    {"source": "c", "target": "l"},
    {"source": "c", "target": "c"}
  ]
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "graph.json"), []byte(data), 0644))
	cfg := "data:\n  source: file\n  path: " + filepath.Join(dir, "graph.json") + "\n  includeSynthetic: false\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orbit.yaml"), []byte(cfg), 0644))

	out, err := execute(t, "--config", dir, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "orbit graph (file)")
	assert.Contains(t, out, "dropped links")
	assert.Contains(t, out, "best connected")
}

func TestInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orbit.yaml"), []byte("search:\n  backend: carrier-pigeon\n"), 0644))

	_, err := execute(t, "--config", dir, "stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}
