// Package catalog is the persistent table/column/foreign-key/index/
// record-count metadata service described in spec.md §3 ("Ownership") and
// §6 ("Catalog persisted state layout"). The catalog is the single source
// of truth for table metadata; storage and the executor consult it but
// never duplicate it.
package catalog

import (
	"fmt"
	"os"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/pieczasz/dbms/internal/dbmserr"
	"github.com/pieczasz/dbms/internal/value"
)

// ColumnType names one of the two scalar types a column holds.
type ColumnType int

const (
	IntColumn ColumnType = iota
	StrColumn
)

// ValueKind reports the value.Kind a column of this type produces.
func (t ColumnType) ValueKind() value.Kind {
	if t == StrColumn {
		return value.Str
	}
	return value.Int
}

// ColumnMeta is one column's persisted definition.
type ColumnMeta struct {
	Name         string
	Type         ColumnType
	IsPrimaryKey bool
	IsAutoIncr   bool
	IsNotNull    bool
}

// ForeignKeyRef is the persisted target of one foreign key.
type ForeignKeyRef struct {
	Table  string
	Column string
}

// TableMeta is one table's full persisted metadata.
type TableMeta struct {
	Name        string
	Columns     []ColumnMeta
	PrimaryKey  string // empty when the table has no primary key
	ForeignKeys map[string]ForeignKeyRef
	Indexes     map[string]bool // column name -> has index
	RecordCount int
}

// FindColumn returns the column named name, or nil.
func (t *TableMeta) FindColumn(name string) *ColumnMeta {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// Catalog holds every table's metadata and persists it to a TOML document.
type Catalog struct {
	mu     sync.RWMutex
	tables map[string]*TableMeta
}

// New creates an empty, in-memory catalog.
func New() *Catalog {
	return &Catalog{tables: make(map[string]*TableMeta)}
}

// GetTable returns the metadata for name, or (nil, false) if it does not
// exist.
func (c *Catalog) GetTable(name string) (*TableMeta, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[name]
	return t, ok
}

// ListTables returns every table name, in no particular order.
func (c *Catalog) ListTables() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	return names
}

// CreateTable registers a new table. Callers (the validator) are expected to
// have already enforced DDL invariants (spec.md §4.3, point 3); CreateTable
// itself only guards against re-registering an existing name, against a
// foreign key naming a table that does not exist, and against a foreign key
// that does not reference the target table's primary key.
func (c *Catalog) CreateTable(name string, columns []ColumnMeta, fks map[string]ForeignKeyRef) (*TableMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tables[name]; exists {
		return nil, dbmserr.NewSchemaError("table %q already exists", name)
	}

	for col, ref := range fks {
		target, ok := c.tables[ref.Table]
		if !ok {
			return nil, dbmserr.NewSchemaError("foreign key %q references nonexistent table %q", col, ref.Table)
		}
		if target.PrimaryKey != ref.Column {
			return nil, dbmserr.NewSchemaError("foreign key %q must reference the primary key of %q", col, ref.Table)
		}
	}

	meta := &TableMeta{
		Name:        name,
		Columns:     columns,
		ForeignKeys: fks,
		Indexes:     make(map[string]bool),
	}
	for _, col := range columns {
		if col.IsPrimaryKey {
			meta.PrimaryKey = col.Name
			meta.Indexes[col.Name] = true
		}
	}
	c.tables[name] = meta
	return meta, nil
}

// DropTable removes a table's metadata. Refused if any other table has a
// foreign key referencing it (spec.md §4.5, "DROP TABLE").
func (c *Catalog) DropTable(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tables[name]; !ok {
		return dbmserr.NewSchemaError("table %q does not exist", name)
	}
	for other, meta := range c.tables {
		if other == name {
			continue
		}
		for _, ref := range meta.ForeignKeys {
			if ref.Table == name {
				return dbmserr.NewSchemaError("cannot drop table %q: referenced by %q", name, other)
			}
		}
	}
	delete(c.tables, name)
	return nil
}

// CreateIndex marks column as indexed on table.
func (c *Catalog) CreateIndex(table, column string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	meta, ok := c.tables[table]
	if !ok {
		return dbmserr.NewSchemaError("table %q does not exist", table)
	}
	if meta.FindColumn(column) == nil {
		return dbmserr.NewIndexError(table, column, "no such column")
	}
	if meta.Indexes[column] {
		return dbmserr.NewIndexError(table, column, "index already exists")
	}
	meta.Indexes[column] = true
	return nil
}

// DropIndex removes the index on table.column. Refused for the primary-key
// column (spec.md §4.5).
func (c *Catalog) DropIndex(table, column string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	meta, ok := c.tables[table]
	if !ok {
		return dbmserr.NewSchemaError("table %q does not exist", table)
	}
	if !meta.Indexes[column] {
		return dbmserr.NewIndexError(table, column, "no index exists")
	}
	if meta.PrimaryKey == column {
		return dbmserr.NewIndexError(table, column, "cannot drop the primary-key index")
	}
	delete(meta.Indexes, column)
	return nil
}

// SetRecordCount overwrites table's persisted record count, e.g. after an
// INSERT, DELETE, or vacuum pass.
func (c *Catalog) SetRecordCount(table string, n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	meta, ok := c.tables[table]
	if !ok {
		return dbmserr.NewSchemaError("table %q does not exist", table)
	}
	meta.RecordCount = n
	return nil
}

// ---- Persistence (spec.md §6, "Catalog persisted state layout") ----

type tableDoc struct {
	RecordCount int `toml:"record_count"`
}

type columnDoc struct {
	Name         string `toml:"name"`
	Type         string `toml:"type"`
	IsPrimaryKey bool   `toml:"is_primary_key"`
	IsAutoIncr   bool   `toml:"is_auto_increment"`
	IsNotNull    bool   `toml:"is_not_null"`
}

type foreignKeyDoc struct {
	Table  string `toml:"table"`
	Column string `toml:"column"`
}

// catalogDoc is the five-mapping document spec.md §6 requires: tables,
// columns, indexes, primary_keys, foreign_keys.
type catalogDoc struct {
	Tables      map[string]tableDoc                 `toml:"tables"`
	Columns     map[string][]columnDoc              `toml:"columns"`
	Indexes     map[string][]string                 `toml:"indexes"`
	PrimaryKeys map[string]string                   `toml:"primary_keys"`
	ForeignKeys map[string]map[string]foreignKeyDoc `toml:"foreign_keys"`
}

func columnTypeTag(t ColumnType) string {
	if t == StrColumn {
		return "Str"
	}
	return "Int"
}

func columnTypeFromTag(tag string) (ColumnType, error) {
	switch tag {
	case "Int":
		return IntColumn, nil
	case "Str":
		return StrColumn, nil
	default:
		return 0, dbmserr.NewStorageError("", "unrecognized column type tag %q", tag)
	}
}

// Save writes the catalog to path as TOML, grounded in the teacher's
// internal/parser/toml encode/decode style (BurntSushi/toml).
func (c *Catalog) Save(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	doc := catalogDoc{
		Tables:      make(map[string]tableDoc, len(c.tables)),
		Columns:     make(map[string][]columnDoc, len(c.tables)),
		Indexes:     make(map[string][]string, len(c.tables)),
		PrimaryKeys: make(map[string]string, len(c.tables)),
		ForeignKeys: make(map[string]map[string]foreignKeyDoc, len(c.tables)),
	}

	for name, meta := range c.tables {
		doc.Tables[name] = tableDoc{RecordCount: meta.RecordCount}

		cols := make([]columnDoc, 0, len(meta.Columns))
		for _, col := range meta.Columns {
			cols = append(cols, columnDoc{
				Name:         col.Name,
				Type:         columnTypeTag(col.Type),
				IsPrimaryKey: col.IsPrimaryKey,
				IsAutoIncr:   col.IsAutoIncr,
				IsNotNull:    col.IsNotNull,
			})
		}
		doc.Columns[name] = cols

		idxs := make([]string, 0, len(meta.Indexes))
		for col := range meta.Indexes {
			idxs = append(idxs, col)
		}
		doc.Indexes[name] = idxs

		if meta.PrimaryKey != "" {
			doc.PrimaryKeys[name] = meta.PrimaryKey
		}

		if len(meta.ForeignKeys) > 0 {
			fks := make(map[string]foreignKeyDoc, len(meta.ForeignKeys))
			for col, ref := range meta.ForeignKeys {
				fks[col] = foreignKeyDoc{Table: ref.Table, Column: ref.Column}
			}
			doc.ForeignKeys[name] = fks
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("catalog: create %q: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(doc); err != nil {
		return fmt.Errorf("catalog: encode %q: %w", path, err)
	}
	return nil
}

// Load reads a catalog previously written by Save.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %q: %w", path, err)
	}
	defer f.Close()

	var doc catalogDoc
	if _, err := toml.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("catalog: decode %q: %w", path, err)
	}

	c := New()
	for name, td := range doc.Tables {
		meta := &TableMeta{
			Name:        name,
			RecordCount: td.RecordCount,
			PrimaryKey:  doc.PrimaryKeys[name],
			ForeignKeys: make(map[string]ForeignKeyRef),
			Indexes:     make(map[string]bool),
		}

		for _, cd := range doc.Columns[name] {
			typ, err := columnTypeFromTag(cd.Type)
			if err != nil {
				return nil, err
			}
			meta.Columns = append(meta.Columns, ColumnMeta{
				Name:         cd.Name,
				Type:         typ,
				IsPrimaryKey: cd.IsPrimaryKey,
				IsAutoIncr:   cd.IsAutoIncr,
				IsNotNull:    cd.IsNotNull,
			})
		}

		for _, col := range doc.Indexes[name] {
			meta.Indexes[col] = true
		}

		for col, fk := range doc.ForeignKeys[name] {
			meta.ForeignKeys[col] = ForeignKeyRef{Table: fk.Table, Column: fk.Column}
		}

		c.tables[name] = meta
	}
	return c, nil
}
