package resultfmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pieczasz/dbms/internal/engine"
)

func TestJSONFormatterRendersColumnsAndRows(t *testing.T) {
	out, err := jsonFormatter{}.Format(&engine.Result{
		Columns: []string{"id"},
		Rows:    [][]string{{"1"}},
	})
	require.NoError(t, err)
	assert.Contains(t, out, `"columns"`)
	assert.Contains(t, out, `"id"`)
}

func TestCSVFormatterRendersRows(t *testing.T) {
	out, err := csvFormatter{}.Format(&engine.Result{
		Columns: []string{"id", "name"},
		Rows:    [][]string{{"1", "alice"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,alice\n", out)
}

func TestCSVFormatterEmptyOnStatusOnlyResult(t *testing.T) {
	out, err := csvFormatter{}.Format(&engine.Result{Message: "ok"})
	require.NoError(t, err)
	assert.Empty(t, out)
}
