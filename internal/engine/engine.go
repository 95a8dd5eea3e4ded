// Package engine is the single-threaded, synchronous executor described in
// spec.md §4.5: it dispatches on statement kind, drives DDL through the
// catalog and storage managers, enforces INSERT/UPDATE/DELETE constraints,
// and runs a validated, optimized SELECT to a {columns, rows} result.
package engine

import (
	"fmt"
	"io"
	"os"

	"github.com/pieczasz/dbms/internal/ast"
	"github.com/pieczasz/dbms/internal/catalog"
	"github.com/pieczasz/dbms/internal/dbmserr"
	"github.com/pieczasz/dbms/internal/optimizer"
	"github.com/pieczasz/dbms/internal/storage"
	"github.com/pieczasz/dbms/internal/validator"
)

// Options configures an Engine's ambient behavior.
type Options struct {
	Out io.Writer // progress/trace output; defaults to io.Discard
	In  io.Reader // reserved for future interactive confirmation prompts
}

// Engine owns a catalog and a storage manager and executes statements
// against them.
type Engine struct {
	cat   *catalog.Catalog
	store *storage.Manager
	vtor  *validator.Validator
	out   io.Writer
	in    io.Reader
}

// New creates an Engine over cat and store.
func New(cat *catalog.Catalog, store *storage.Manager, opts Options) *Engine {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	in := opts.In
	if in == nil {
		in = os.Stdin
	}
	return &Engine{cat: cat, store: store, vtor: validator.New(cat), out: out, in: in}
}

func (e *Engine) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(e.out, format, args...)
}

func (e *Engine) println(args ...any) {
	_, _ = fmt.Fprintln(e.out, args...)
}

// Result is the shape every statement produces: a SELECT's rows and column
// labels, or a status line for everything else (spec.md §4.5, step 9).
type Result struct {
	Columns []string
	Rows    [][]string
	Message string
}

// Execute validates stmt against the catalog, then runs it.
func (e *Engine) Execute(stmt ast.Statement) (*Result, error) {
	switch s := stmt.(type) {
	case *ast.CreateTableStmt:
		return e.execCreateTable(s)
	case *ast.DropTableStmt:
		return e.execDropTable(s)
	case *ast.CreateIndexStmt:
		return e.execCreateIndex(s)
	case *ast.DropIndexStmt:
		return e.execDropIndex(s)
	case *ast.InsertStmt:
		return e.execInsert(s)
	case *ast.UpdateStmt:
		return e.execUpdate(s)
	case *ast.DeleteStmt:
		return e.execDelete(s)
	case *ast.SelectStmt:
		return e.execSelect(s)
	case *ast.ShowTablesStmt:
		return e.execShowTables()
	case *ast.DescribeStmt:
		return e.execDescribe(s)
	default:
		return nil, dbmserr.NewExecutionError("unsupported statement kind")
	}
}

// ---- DDL ----

func (e *Engine) execCreateTable(s *ast.CreateTableStmt) (*Result, error) {
	if _, err := e.vtor.Validate(s); err != nil {
		return nil, err
	}

	columns := make([]catalog.ColumnMeta, 0, len(s.Columns))
	for _, col := range s.Columns {
		typ := catalog.IntColumn
		if col.Type == ast.StrType {
			typ = catalog.StrColumn
		}
		columns = append(columns, catalog.ColumnMeta{
			Name: col.Name, Type: typ,
			IsPrimaryKey: col.IsPrimaryKey, IsAutoIncr: col.IsAutoIncr, IsNotNull: col.IsNotNull,
		})
	}
	fks := make(map[string]catalog.ForeignKeyRef, len(s.ForeignKeys))
	for _, fk := range s.ForeignKeys {
		fks[fk.Column] = catalog.ForeignKeyRef{Table: fk.RefTable, Column: fk.RefColumn}
	}

	meta, err := e.cat.CreateTable(s.Name, columns, fks)
	if err != nil {
		return nil, err
	}
	table := e.store.CreateTable(s.Name)
	if meta.PrimaryKey != "" {
		table.EnsureIndex(meta.PrimaryKey)
	}

	e.printf("table %q created\n", s.Name)
	return &Result{Message: fmt.Sprintf("table %q created", s.Name)}, nil
}

func (e *Engine) execDropTable(s *ast.DropTableStmt) (*Result, error) {
	if _, err := e.vtor.Validate(s); err != nil {
		return nil, err
	}
	if err := e.cat.DropTable(s.Name); err != nil {
		return nil, err
	}
	e.store.DropTable(s.Name)
	e.printf("table %q dropped\n", s.Name)
	return &Result{Message: fmt.Sprintf("table %q dropped", s.Name)}, nil
}

func (e *Engine) execCreateIndex(s *ast.CreateIndexStmt) (*Result, error) {
	if _, err := e.vtor.Validate(s); err != nil {
		return nil, err
	}
	if err := e.cat.CreateIndex(s.Table, s.Column); err != nil {
		return nil, err
	}
	table := e.store.Table(s.Table)
	table.EnsureIndex(s.Column)
	table.BackfillIndex(s.Column)
	e.printf("index on %s(%s) created\n", s.Table, s.Column)
	return &Result{Message: fmt.Sprintf("index on %s(%s) created", s.Table, s.Column)}, nil
}

func (e *Engine) execDropIndex(s *ast.DropIndexStmt) (*Result, error) {
	if _, err := e.vtor.Validate(s); err != nil {
		return nil, err
	}
	if err := e.cat.DropIndex(s.Table, s.Column); err != nil {
		return nil, err
	}
	e.store.Table(s.Table).DropIndex(s.Column)
	e.printf("index on %s(%s) dropped\n", s.Table, s.Column)
	return &Result{Message: fmt.Sprintf("index on %s(%s) dropped", s.Table, s.Column)}, nil
}

// ---- utility statements ----

func (e *Engine) execShowTables() (*Result, error) {
	names := e.cat.ListTables()
	rows := make([][]string, 0, len(names))
	for _, n := range names {
		rows = append(rows, []string{n})
	}
	return &Result{Columns: []string{"table_name"}, Rows: rows}, nil
}

func (e *Engine) execDescribe(s *ast.DescribeStmt) (*Result, error) {
	meta, ok := e.cat.GetTable(s.Table)
	if !ok {
		return nil, dbmserr.NewSchemaError("table %q does not exist", s.Table)
	}
	rows := make([][]string, 0, len(meta.Columns))
	for _, col := range meta.Columns {
		typ := "INTEGER"
		if col.Type == catalog.StrColumn {
			typ = "STRING"
		}
		primaryKey := yesNo(col.Name == meta.PrimaryKey)
		indexed := yesNo(meta.Indexes[col.Name])
		foreignKey := "No"
		references := ""
		if ref, ok := meta.ForeignKeys[col.Name]; ok {
			foreignKey = "Yes"
			references = ref.Table + "." + ref.Column
		}
		autoIncrement := yesNo(col.IsAutoIncr)
		rows = append(rows, []string{col.Name, typ, primaryKey, indexed, foreignKey, references, autoIncrement})
	}
	columns := []string{"column_name", "type", "primary_key", "indexed", "foreign_key", "references", "auto_increment"}
	return &Result{Columns: columns, Rows: rows}, nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// planStats adapts this Engine's catalog/storage into optimizer.Stats.
func (e *Engine) planStats() optimizer.Stats {
	return optimizer.StatsOf{Catalog: e.cat, Storage: e.store}
}
