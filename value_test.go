package bluequery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValue(t *testing.T) {
	var absent Value
	assert.True(t, absent.IsAbsent())
	assert.Nil(t, absent.Strings())
	_, ok := absent.First()
	assert.False(t, ok)

	s := ScalarValue("a")
	v, ok := s.Scalar()
	assert.True(t, ok)
	assert.Equal(t, "a", v)
	assert.Equal(t, 1, s.Len())

	l := ListValue("a", "b")
	_, ok = l.Scalar()
	assert.False(t, ok)
	first, _ := l.First()
	assert.Equal(t, "a", first)

	assert.False(t, s.Equal(ListValue("a")))
	assert.True(t, l.Equal(ListValue("a", "b")))
	assert.False(t, l.Equal(ListValue("b", "a")))

	assert.Equal(t, Scalar, valueOf([]string{"x"}).Shape())
	assert.Equal(t, List, valueOf([]string{"x", "y"}).Shape())
	assert.True(t, valueOf(nil).IsAbsent())

	// Strings hands out a copy
	got := l.Strings()
	got[0] = "z"
	assert.Equal(t, []string{"a", "b"}, l.Strings())
}
