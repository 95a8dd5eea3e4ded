package resultfmt

import (
	"encoding/csv"
	"strings"

	"github.com/pieczasz/dbms/internal/engine"
)

type csvFormatter struct{}

func (csvFormatter) Format(res *engine.Result) (string, error) {
	if res == nil || len(res.Columns) == 0 {
		return "", nil
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(res.Columns); err != nil {
		return "", err
	}
	for _, row := range res.Rows {
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}
