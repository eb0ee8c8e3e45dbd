package bluequery

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistry(RegistrySpec{
		Parameters: []DefinitionSpec{
			{Name: "page", AllowsMultipleValues: ptr(false), IsStorable: ptr(false), MaxSize: ptr(0)},
			{Name: "action", AllowsMultipleValues: ptr(false), IsStorable: ptr(false)},
			{Name: "display_type", AllowsMultipleValues: ptr(false), IsStorable: ptr(false)},
			{Name: "tag", AllowsMultipleValues: ptr(true), IsStorable: ptr(true), MaxSize: ptr(10)},
			{Name: "email", AllowsMultipleValues: ptr(false), IsStorable: ptr(true),
				Format: `[\w\._-]+@[\w\._-]+\.[a-zA-Z][a-zA-Z][a-zA-Z]?$`},
			{Name: "data", AllowsMultipleValues: ptr(false), IsStorable: ptr(false)},
		},
		KeyParam:         "data",
		ActionParam:      "action",
		PageParam:        "page",
		DisplayTypeParam: "display_type",
	})
	require.NoError(t, err)
	return reg
}

func def(t *testing.T, reg *Registry, name string) *Definition {
	t.Helper()
	d, ok := reg.Lookup(name)
	require.True(t, ok, "no definition %q", name)
	return d
}

// memKeyStore is an in-memory KeyStore.
type memKeyStore struct {
	queries map[string]string
	saves   int
}

func newMemKeyStore() *memKeyStore {
	return &memKeyStore{queries: map[string]string{}}
}

func (m *memKeyStore) Save(_ context.Context, key, query string) error {
	m.saves++
	m.queries[key] = query
	return nil
}

func (m *memKeyStore) Load(_ context.Context, key string) (string, error) {
	q, ok := m.queries[key]
	if !ok {
		return "", errors.Errorf("no query for %s", key)
	}
	return q, nil
}
