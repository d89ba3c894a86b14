package driver

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunHeaderPerFile(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "a.c", "@ int x;\n")

	opts := Options{Mode: ModeHeaderPerFile, Token: "@", TabIndent: 4}
	require.NoError(t, Run(context.Background(), []string{src}, opts))

	out, err := os.ReadFile(filepath.Join(dir, "a.h"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "int x;\n")
}

func TestRunHeaderPerFileWithGuards(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "a.c", "@ int x;\n")

	opts := Options{Mode: ModeHeaderPerFile, Token: "@", TabIndent: 4, IncludeGuards: true}
	require.NoError(t, Run(context.Background(), []string{src}, opts))

	out, err := os.ReadFile(filepath.Join(dir, "a.h"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "#ifndef IHEADERS_GUARD_")
	assert.Contains(t, string(out), "#endif")
}

func TestRunHeaderPerFileRespectsHeaderDirAndRootDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src", "nested"), 0o755))
	src := writeSource(t, filepath.Join(dir, "src", "nested"), "a.c", "@ int x;\n")

	opts := Options{
		Mode:      ModeHeaderPerFile,
		Token:     "@",
		TabIndent: 4,
		RootDir:   filepath.Join(dir, "src"),
		HeaderDir: filepath.Join(dir, "gen"),
	}
	require.NoError(t, Run(context.Background(), []string{src}, opts))

	_, err := os.Stat(filepath.Join(dir, "gen", "nested", "a.h"))
	require.NoError(t, err)
}

func TestRunStripInPlace(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "a.c", "int a;\n@ { int c; }\nint e;\n")

	opts := Options{Mode: ModeStrip, Token: "@", TabIndent: 4}
	require.NoError(t, Run(context.Background(), []string{src}, opts))

	out, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "@")
}

func TestRunMergedOutput(t *testing.T) {
	dir := t.TempDir()
	a := writeSource(t, dir, "a.c", "@ int a;\n")
	b := writeSource(t, dir, "b.c", "@ int b;\n")

	merged := filepath.Join(dir, "merged.h")
	opts := Options{Mode: ModeHeaderMerged, Token: "@", TabIndent: 4, SingleOutput: merged}
	require.NoError(t, Run(context.Background(), []string{a, b}, opts))

	out, err := os.ReadFile(merged)
	require.NoError(t, err)
	assert.Contains(t, string(out), "int a;\n")
	assert.Contains(t, string(out), "int b;\n")
}

func TestRunStdout(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "a.c", "@ int a;\n")

	var buf bytes.Buffer
	opts := Options{Mode: ModeStdout, Token: "@", TabIndent: 4, Stdout: &buf}
	require.NoError(t, Run(context.Background(), []string{src}, opts))

	assert.Contains(t, buf.String(), "int a;\n")
}

func TestRunAggregatesFailures(t *testing.T) {
	dir := t.TempDir()
	good := writeSource(t, dir, "good.c", "@ int a;\n")
	bad := writeSource(t, dir, "bad.c", "@;\n")

	opts := Options{Mode: ModeHeaderPerFile, Token: "@", TabIndent: 4}
	err := Run(context.Background(), []string{good, bad}, opts)
	require.Error(t, err)

	var multi *MultiError
	require.ErrorAs(t, err, &multi)
	assert.Len(t, multi.Errors, 1)

	_, statErr := os.Stat(filepath.Join(dir, "good.h"))
	assert.NoError(t, statErr)
}

func TestDestHeaderPathNoHeaderDir(t *testing.T) {
	p, err := destHeaderPath("/src/a.c", Options{})
	require.NoError(t, err)
	assert.Equal(t, "/src/a.h", p)
}
