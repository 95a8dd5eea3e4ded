package resultfmt

import (
	"encoding/json"

	"github.com/pieczasz/dbms/internal/engine"
)

type jsonFormatter struct{}

type resultPayload struct {
	Columns []string   `json:"columns,omitempty"`
	Rows    [][]string `json:"rows,omitempty"`
	Message string     `json:"message,omitempty"`
}

func (jsonFormatter) Format(res *engine.Result) (string, error) {
	payload := resultPayload{}
	if res != nil {
		payload.Columns = res.Columns
		payload.Rows = res.Rows
		payload.Message = res.Message
	}
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}
