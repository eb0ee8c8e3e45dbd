package bluequery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryDefaults(t *testing.T) {
	reg, err := NewRegistry(RegistrySpec{
		Parameters: []DefinitionSpec{
			{Name: "action"},
			{Name: "page", MaxSize: ptr(0), AllowsMultipleValues: ptr(false)},
		},
		ActionParam: "action",
	})
	require.NoError(t, err)

	action := def(t, reg, "action")
	assert.True(t, action.AllowsMultipleValues)
	assert.True(t, action.IsStorable)
	assert.Equal(t, DefaultMaxSize, action.MaxSize)
	assert.Nil(t, action.Format)
	assert.Same(t, action, reg.Action())

	page := def(t, reg, "page")
	assert.Equal(t, 0, page.MaxSize)
	assert.False(t, page.AllowsMultipleValues)

	names := []string{}
	for _, d := range reg.List() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"action", "page"}, names)
	assert.Nil(t, reg.Key())
	assert.Nil(t, reg.Page())
	assert.True(t, reg.StorableNames().Contains("action", "page"))

	// callers get a copy
	reg.StorableNames().Remove("page")
	assert.True(t, reg.StorableNames().Contains("page"))
}

func TestNewRegistryErrors(t *testing.T) {
	_, err := NewRegistry(RegistrySpec{
		Parameters: []DefinitionSpec{
			{Name: ""},
			{Name: "a"},
			{Name: "a"},
			{Name: "b", MaxSize: ptr(-1)},
			{Name: "c", Format: "("},
			{Name: "k"},
		},
		PageParam: "missing",
		KeyParam:  "k",
	})
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "parameter[0]: name is required")
	assert.Contains(t, msg, `parameter "a": declared more than once`)
	assert.Contains(t, msg, `parameter "b": max_size must not be negative`)
	assert.Contains(t, msg, `parameter "c": format`)
	assert.Contains(t, msg, `page_param "missing" is not a declared parameter`)
	assert.Contains(t, msg, `key_param "k" must not be storable`)

	assert.Panics(t, func() {
		MustRegistry(RegistrySpec{Parameters: []DefinitionSpec{{Name: "a"}, {Name: "a"}}})
	})
}

const yamlRegistry = `
key_param: data
action_param: action
page_param: page
display_type_param: display_type
parameters:
  - name: page
    allows_multiple_values: false
    is_storable: false
  - name: action
    allows_multiple_values: false
    is_storable: false
  - name: display_type
    allows_multiple_values: false
    is_storable: false
  - name: email
    allows_multiple_values: false
    format: '[\w\._-]+@[\w\._-]+\.[a-zA-Z][a-zA-Z][a-zA-Z]?$'
  - name: chosen_data_type
  - name: data
    allows_multiple_values: false
    is_storable: false
    max_size: 0
`

const tomlRegistry = `
key_param = "data"
page_param = "page"

[[parameters]]
name = "page"
allows_multiple_values = false
is_storable = false

[[parameters]]
name = "tag"
max_size = 10

[[parameters]]
name = "data"
allows_multiple_values = false
is_storable = false
`

func TestLoadRegistryFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "params.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlRegistry), 0o644))
	reg, err := LoadRegistryFile(yamlPath)
	require.NoError(t, err)
	assert.Len(t, reg.List(), 6)
	assert.Equal(t, "data", reg.Key().Name)
	assert.Equal(t, 0, reg.Key().MaxSize)
	assert.Equal(t, "display_type", reg.DisplayType().Name)
	email := def(t, reg, "email")
	require.NotNil(t, email.Format)
	assert.True(t, email.Format.MatchString("a@b.org"))
	assert.True(t, email.IsStorable)

	tomlPath := filepath.Join(dir, "params.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(tomlRegistry), 0o644))
	reg, err = LoadRegistryFile(tomlPath)
	require.NoError(t, err)
	assert.Equal(t, 10, def(t, reg, "tag").MaxSize)
	assert.Equal(t, "page", reg.Page().Name)

	_, err = LoadRegistryFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	jsonPath := filepath.Join(dir, "params.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte("{}"), 0o644))
	_, err = LoadRegistryFile(jsonPath)
	assert.ErrorContains(t, err, "unsupported registry format")
}
