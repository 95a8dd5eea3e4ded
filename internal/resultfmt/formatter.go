// Package resultfmt renders an engine.Result as text for a CLI consumer. It
// is extendable and for now provides three formats: a fixed-width table,
// JSON, and CSV.
package resultfmt

import (
	"fmt"
	"strings"

	"github.com/pieczasz/dbms/internal/engine"
)

// Format is an enum type representing the available output formats.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
)

// Formatter renders a statement's Result as a string.
type Formatter interface {
	Format(*engine.Result) (string, error)
}

// NewFormatter creates a new Formatter based on the given name. If no format
// is specified, defaults to the table format.
func NewFormatter(name string) (Formatter, error) {
	format := Format(strings.ToLower(strings.TrimSpace(name)))
	switch format {
	case "", FormatTable:
		return tableFormatter{}, nil
	case FormatJSON:
		return jsonFormatter{}, nil
	case FormatCSV:
		return csvFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s; use 'table', 'json', or 'csv'", name)
	}
}
