package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, fileName), []byte(content), 0o644))
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	f, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, File{}, f)
}

func TestLoadFindsFileInCurrentDirectory(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, `
token: "@"
tab_indent: 4
caches:
  local:
    driver: sqlite
    dsn: ./manifest.sqlite
`)
	f, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "@", f.Token)
	assert.Equal(t, 4, f.TabIndent)

	target, ok := f.Cache("local")
	require.True(t, ok)
	assert.Equal(t, "sqlite", target.Driver)
	assert.Equal(t, "./manifest.sqlite", target.DSN)
}

func TestLoadWalksUpward(t *testing.T) {
	root := t.TempDir()
	writeYAML(t, root, `token: "%"`)

	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	f, err := Load(nested)
	require.NoError(t, err)
	assert.Equal(t, "%", f.Token)
}

func TestCacheUnknownName(t *testing.T) {
	f := File{Caches: map[string]CacheTarget{"local": {Driver: "sqlite"}}}

	_, ok := f.Cache("missing")
	assert.False(t, ok)

	_, ok = f.Cache("")
	assert.False(t, ok)
}
