package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pieczasz/dbms/internal/ast"
	"github.com/pieczasz/dbms/internal/catalog"
	"github.com/pieczasz/dbms/internal/parser"
	"github.com/pieczasz/dbms/internal/storage"
)

// newSchoolEngine returns an Engine with an empty students/enrollments
// schema already declared through the statement path, mirroring how a real
// client would set the schema up.
func newSchoolEngine(t *testing.T) *Engine {
	t.Helper()
	cat := catalog.New()
	store := storage.NewManager()
	e := New(cat, store, Options{})

	mustExec(t, e, `CREATE TABLE students (
		id INTEGER PRIMARY KEY AUTO_INCREMENT,
		name STRING,
		age INTEGER
	)`)
	mustExec(t, e, `CREATE TABLE enrollments (
		id INTEGER PRIMARY KEY AUTO_INCREMENT,
		sid INTEGER,
		cid INTEGER,
		FOREIGN KEY (sid) REFERENCES students(id)
	)`)
	return e
}

func mustExec(t *testing.T, e *Engine, sql string) *Result {
	t.Helper()
	stmt, err := parser.Parse(sql)
	require.NoError(t, err)
	res, err := e.Execute(stmt)
	require.NoError(t, err)
	return res
}

func execErr(t *testing.T, e *Engine, sql string) error {
	t.Helper()
	stmt, err := parser.Parse(sql)
	require.NoError(t, err)
	_, err = e.Execute(stmt)
	return err
}

func parseStmt(t *testing.T, sql string) ast.Statement {
	t.Helper()
	stmt, err := parser.Parse(sql)
	require.NoError(t, err)
	return stmt
}
