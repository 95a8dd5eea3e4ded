package resultfmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFormatterDefaultsToTable(t *testing.T) {
	f, err := NewFormatter("")
	require.NoError(t, err)
	_, ok := f.(tableFormatter)
	assert.True(t, ok)
}

func TestNewFormatterTableUppercase(t *testing.T) {
	f, err := NewFormatter("TABLE")
	require.NoError(t, err)
	_, ok := f.(tableFormatter)
	assert.True(t, ok)
}

func TestNewFormatterJSON(t *testing.T) {
	f, err := NewFormatter("json")
	require.NoError(t, err)
	_, ok := f.(jsonFormatter)
	assert.True(t, ok)
}

func TestNewFormatterCSV(t *testing.T) {
	f, err := NewFormatter("csv")
	require.NoError(t, err)
	_, ok := f.(csvFormatter)
	assert.True(t, ok)
}

func TestNewFormatterWithWhitespace(t *testing.T) {
	f, err := NewFormatter("  json  ")
	require.NoError(t, err)
	_, ok := f.(jsonFormatter)
	assert.True(t, ok)
}

func TestNewFormatterInvalidFormat(t *testing.T) {
	f, err := NewFormatter("xml")
	assert.Error(t, err)
	assert.Nil(t, f)
}
