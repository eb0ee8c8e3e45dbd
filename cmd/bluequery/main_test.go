package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registryYAML = `
key_param: data
page_param: page
parameters:
  - name: page
    allows_multiple_values: false
    is_storable: false
  - name: tag
    max_size: 10
  - name: data
    allows_multiple_values: false
    is_storable: false
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("BLUEQUERY_STORAGE_DIR", filepath.Join(dir, "keys"))
	t.Setenv("BLUEQUERY_ENCODE_URLS", "false")
	reg := filepath.Join(dir, "params.yaml")
	require.NoError(t, os.WriteFile(reg, []byte(registryYAML), 0o644))

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--registry", reg}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestNormalize(t *testing.T) {
	out, err := run(t, "normalize", "tag=b&page=gene&tag=a&junk")
	require.NoError(t, err)
	assert.Equal(t, "page=gene&tag=b&tag=a\n", out)
}

func TestNormalizeRejects(t *testing.T) {
	_, err := run(t, "normalize", "tag=abcdefghijk")
	assert.ErrorContains(t, err, "tag: value too long")
}

func TestGet(t *testing.T) {
	out, err := run(t, "get", "tag=b&tag=a", "tag")
	require.NoError(t, err)
	assert.Equal(t, "b\na\n", out)

	_, err = run(t, "get", "tag=b", "nope")
	assert.ErrorContains(t, err, "unknown parameter")
}

func TestKey(t *testing.T) {
	out, err := run(t, "key", "tag=a&page=gene")
	require.NoError(t, err)
	assert.Len(t, strings.TrimSpace(out), 40)
}

func TestURL(t *testing.T) {
	t.Setenv("BLUEQUERY_URL_MAX_LENGTH", "10")
	out, err := run(t, "url", "page=gene&tag=aaaaaaaaaa")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "page=gene&data="), out)
}

func TestMissingRegistry(t *testing.T) {
	chdir(t, t.TempDir())
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"normalize", "a=b"})
	assert.ErrorContains(t, cmd.Execute(), "no parameter catalog")
}
