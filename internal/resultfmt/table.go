package resultfmt

import (
	"strings"
	"text/tabwriter"

	"github.com/pieczasz/dbms/internal/engine"
)

type tableFormatter struct{}

// Format renders a Result as an aligned, tab-separated table. A statement
// with no columns (DDL/DML) renders its status message instead.
func (tableFormatter) Format(res *engine.Result) (string, error) {
	if res == nil {
		return "", nil
	}
	if len(res.Columns) == 0 {
		return res.Message + "\n", nil
	}

	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 2, 4, 2, ' ', 0)
	_, _ = w.Write([]byte(strings.Join(res.Columns, "\t") + "\n"))
	for _, row := range res.Rows {
		_, _ = w.Write([]byte(strings.Join(row, "\t") + "\n"))
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	if len(res.Rows) == 0 {
		sb.WriteString("(0 rows)\n")
	}
	return sb.String(), nil
}
