package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/spacetraveling"
)

func parse(t *testing.T, args ...string) (*cli, string) {
	t.Helper()
	var c cli
	parser, err := kong.New(&c, kongOptions...)
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)
	return &c, kctx.Command()
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func TestPathsCommand(t *testing.T) {
	dir := t.TempDir()
	content := filepath.Join(dir, "content")
	writeFile(t, filepath.Join(content, "posts", "a.md"), "---\ntitle: A\nbanner: /images/a.jpg\ndate: 2021-04-19\n---\nBody.\n")
	writeFile(t, filepath.Join(content, "posts", "b.md"), "---\ntitle: B\nbanner: /images/b.jpg\ndate: 2021-03-15\n---\nBody.\n")
	writeFile(t, filepath.Join(content, "posts", "bad.md"), "---\ntitle: Bad\ndate: 19/04/2021\n---\nBody.\n")
	config := filepath.Join(dir, "spacetraveling.yaml")
	writeFile(t, config, "source: files\ncontent_dir: "+content+"\n")
	t.Setenv("SPACETRAVELING_SOURCE", "files")
	t.Setenv("SPACETRAVELING_CONTENT_DIR", content)
	t.Setenv("SPACETRAVELING_PATHS_PAGE_SIZE", "0")

	c, command := parse(t, "--config", config, "--env-file", filepath.Join(dir, "missing.env"), "paths")
	require.Equal(t, "paths", command)

	var out bytes.Buffer
	require.NoError(t, c.run(t.Context(), command, zerolog.Nop(), &out))
	assert.Contains(t, out.String(), `"slug": "a"`)
	assert.Contains(t, out.String(), `"fallback": true`)

	var paths spacetraveling.Paths
	require.NoError(t, json.Unmarshal(out.Bytes(), &paths))
	assert.Equal(t, []string{"a", "b"}, paths.Slugs())
	assert.True(t, paths.Fallback)
}

func TestPathsCommandRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "spacetraveling.yaml")
	writeFile(t, config, "fallback: sometimes\n")
	t.Setenv("SPACETRAVELING_FALLBACK", "")

	c, command := parse(t, "--config", config, "--env-file", filepath.Join(dir, "missing.env"), "paths")
	var out bytes.Buffer
	err := c.run(t.Context(), command, zerolog.Nop(), &out)
	assert.ErrorContains(t, err, "unknown fallback mode")
	assert.Empty(t, out.String())
}

func TestVersionCommand(t *testing.T) {
	c, command := parse(t, "version")
	var out bytes.Buffer
	require.NoError(t, c.run(t.Context(), command, zerolog.Nop(), &out))
	assert.Equal(t, "spacetraveling dev\n", out.String())
}
