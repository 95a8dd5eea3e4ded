package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pieczasz/dbms/internal/catalog"
	"github.com/pieczasz/dbms/internal/parser"
)

func schoolCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c := catalog.New()

	_, err := c.CreateTable("students", []catalog.ColumnMeta{
		{Name: "id", Type: catalog.IntColumn, IsPrimaryKey: true, IsAutoIncr: true},
		{Name: "name", Type: catalog.StrColumn},
		{Name: "age", Type: catalog.IntColumn},
	}, nil)
	require.NoError(t, err)

	_, err = c.CreateTable("courses", []catalog.ColumnMeta{
		{Name: "id", Type: catalog.IntColumn, IsPrimaryKey: true, IsAutoIncr: true},
		{Name: "title", Type: catalog.StrColumn},
		{Name: "credits", Type: catalog.IntColumn},
	}, nil)
	require.NoError(t, err)

	_, err = c.CreateTable("enrollments", []catalog.ColumnMeta{
		{Name: "id", Type: catalog.IntColumn, IsPrimaryKey: true, IsAutoIncr: true},
		{Name: "sid", Type: catalog.IntColumn},
		{Name: "cid", Type: catalog.IntColumn},
	}, map[string]catalog.ForeignKeyRef{
		"sid": {Table: "students", Column: "id"},
		"cid": {Table: "courses", Column: "id"},
	})
	require.NoError(t, err)

	return c
}

func TestValidateCreateTable(t *testing.T) {
	for _, tc := range []struct {
		name            string
		sql             string
		wantErrContains string
	}{
		{
			name: "valid table",
			sql:  "CREATE TABLE things (id INTEGER PRIMARY KEY AUTO_INCREMENT, label STRING)",
		},
		{
			name:            "duplicate column name",
			sql:             "CREATE TABLE things (id INTEGER, id STRING)",
			wantErrContains: "duplicate column name",
		},
		{
			name:            "auto increment on non-primary-key column",
			sql:             "CREATE TABLE things (id INTEGER PRIMARY KEY, label STRING AUTO_INCREMENT)",
			wantErrContains: "AUTO_INCREMENT",
		},
		{
			name:            "auto increment on string primary key",
			sql:             "CREATE TABLE things (id STRING PRIMARY KEY AUTO_INCREMENT)",
			wantErrContains: "AUTO_INCREMENT",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := catalog.New()
			v := New(c)
			stmt, err := parser.Parse(tc.sql)
			require.NoError(t, err)

			_, err = v.Validate(stmt)
			if tc.wantErrContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErrContains)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateCreateTableRejectsDuplicateTableName(t *testing.T) {
	c := schoolCatalog(t)
	v := New(c)
	stmt, err := parser.Parse("CREATE TABLE students (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)

	_, err = v.Validate(stmt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestValidateForeignKeyMustReferenceAnExistingPrimaryKey(t *testing.T) {
	c := schoolCatalog(t)
	v := New(c)

	stmt, err := parser.Parse(
		"CREATE TABLE grades (id INTEGER PRIMARY KEY, sid INTEGER, FOREIGN KEY (sid) REFERENCES ghosts(id))")
	require.NoError(t, err)
	_, err = v.Validate(stmt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")

	stmt, err = parser.Parse(
		"CREATE TABLE grades (id INTEGER PRIMARY KEY, sid INTEGER, FOREIGN KEY (sid) REFERENCES students(name))")
	require.NoError(t, err)
	_, err = v.Validate(stmt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary key")
}

func TestValidateDropTable(t *testing.T) {
	c := schoolCatalog(t)
	v := New(c)

	stmt, err := parser.Parse("DROP TABLE students")
	require.NoError(t, err)
	_, err = v.Validate(stmt)
	require.NoError(t, err)

	stmt, err = parser.Parse("DROP TABLE ghost")
	require.NoError(t, err)
	_, err = v.Validate(stmt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestValidateCreateAndDropIndex(t *testing.T) {
	c := schoolCatalog(t)
	v := New(c)

	stmt, err := parser.Parse("CREATE INDEX ON students (name)")
	require.NoError(t, err)
	_, err = v.Validate(stmt)
	assert.NoError(t, err)

	stmt, err = parser.Parse("CREATE INDEX ON students (ghost_column)")
	require.NoError(t, err)
	_, err = v.Validate(stmt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such column")

	stmt, err = parser.Parse("DROP INDEX ON students (id)")
	require.NoError(t, err)
	_, err = v.Validate(stmt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary-key index")
}

func TestValidateInsertPositionalAndExplicit(t *testing.T) {
	c := schoolCatalog(t)
	v := New(c)

	stmt, err := parser.Parse("INSERT INTO students VALUES (1, 'John Doe', 20)")
	require.NoError(t, err)
	_, err = v.Validate(stmt)
	assert.NoError(t, err)

	stmt, err = parser.Parse("INSERT INTO students (name, id, age) VALUES ('Jane', 2, 19)")
	require.NoError(t, err)
	_, err = v.Validate(stmt)
	assert.NoError(t, err)
}

func TestValidateInsertRejectsTypeMismatch(t *testing.T) {
	c := schoolCatalog(t)
	v := New(c)

	stmt, err := parser.Parse("INSERT INTO students VALUES ('not an int', 'John Doe', 20)")
	require.NoError(t, err)
	_, err = v.Validate(stmt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected an INTEGER literal")
}

func TestValidateInsertRejectsUnknownColumn(t *testing.T) {
	c := schoolCatalog(t)
	v := New(c)

	stmt, err := parser.Parse("INSERT INTO students (ghost) VALUES (1)")
	require.NoError(t, err)
	_, err = v.Validate(stmt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such column")
}

func TestValidateInsertRejectsWrongArity(t *testing.T) {
	c := schoolCatalog(t)
	v := New(c)

	stmt, err := parser.Parse("INSERT INTO students VALUES (1, 'John Doe')")
	require.NoError(t, err)
	_, err = v.Validate(stmt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "value count")
}

func TestValidateUpdateAndDelete(t *testing.T) {
	c := schoolCatalog(t)
	v := New(c)

	stmt, err := parser.Parse("UPDATE students SET age = 21 WHERE id = 1")
	require.NoError(t, err)
	_, err = v.Validate(stmt)
	assert.NoError(t, err)

	stmt, err = parser.Parse("UPDATE students SET ghost = 1 WHERE id = 1")
	require.NoError(t, err)
	_, err = v.Validate(stmt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such column")

	stmt, err = parser.Parse("DELETE FROM students WHERE ghost = 1")
	require.NoError(t, err)
	_, err = v.Validate(stmt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such column")
}

func TestValidateSelectBindsAliasesAndResolvesJoinColumns(t *testing.T) {
	c := schoolCatalog(t)
	v := New(c)

	stmt, err := parser.Parse(
		`SELECT s.name, c.title FROM students s
		 JOIN enrollments e ON s.id = e.sid
		 JOIN courses c ON c.id = e.cid
		 WHERE c.credits > 3`)
	require.NoError(t, err)

	bound, err := v.Validate(stmt)
	require.NoError(t, err)
	require.NotNil(t, bound)
	assert.Len(t, bound.Aliases, 3)
	assert.Equal(t, []string{"s", "e", "c"}, bound.Order)
}

func TestValidateSelectRejectsDuplicateAlias(t *testing.T) {
	c := schoolCatalog(t)
	v := New(c)

	stmt, err := parser.Parse("SELECT * FROM students s JOIN courses s ON s.id = s.id")
	require.NoError(t, err)

	_, err = v.Validate(stmt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate table alias")
}

func TestValidateSelectRejectsUnknownAliasInJoin(t *testing.T) {
	c := schoolCatalog(t)
	v := New(c)

	stmt, err := parser.Parse("SELECT * FROM students s JOIN courses c ON s.id = x.id")
	require.NoError(t, err)

	_, err = v.Validate(stmt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such table alias")
}

func TestValidateSelectRejectsAmbiguousUnqualifiedColumn(t *testing.T) {
	c := schoolCatalog(t)
	v := New(c)

	stmt, err := parser.Parse("SELECT id FROM students s JOIN enrollments e ON s.id = e.sid")
	require.NoError(t, err)

	_, err = v.Validate(stmt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")
}

func TestValidateSelectResolvesUnambiguousUnqualifiedColumn(t *testing.T) {
	c := schoolCatalog(t)
	v := New(c)

	stmt, err := parser.Parse("SELECT name FROM students s JOIN enrollments e ON s.id = e.sid")
	require.NoError(t, err)

	_, err = v.Validate(stmt)
	assert.NoError(t, err)
}

func TestValidateSelectRejectsUnknownColumnEverywhere(t *testing.T) {
	c := schoolCatalog(t)
	v := New(c)

	stmt, err := parser.Parse("SELECT ghost FROM students")
	require.NoError(t, err)

	_, err = v.Validate(stmt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such column")
}

func TestValidateSelectDerivedTableBindsOutputColumns(t *testing.T) {
	c := schoolCatalog(t)
	v := New(c)

	stmt, err := parser.Parse(
		"SELECT d.total FROM (SELECT COUNT(*) AS total FROM students) d")
	require.NoError(t, err)

	bound, err := v.Validate(stmt)
	require.NoError(t, err)
	binding, ok := bound.Aliases["d"]
	require.True(t, ok)
	assert.Equal(t, []string{"total"}, binding.DerivedCols)
}

func TestValidateSelectInSubqueryValidatesInnerQuery(t *testing.T) {
	c := schoolCatalog(t)
	v := New(c)

	stmt, err := parser.Parse(
		"SELECT name FROM students WHERE id IN (SELECT sid FROM enrollments WHERE ghost = 1)")
	require.NoError(t, err)

	_, err = v.Validate(stmt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such column")
}

func TestValidateShowTablesAndDescribeAreAlwaysValid(t *testing.T) {
	c := schoolCatalog(t)
	v := New(c)

	stmt, err := parser.Parse("SHOW TABLES")
	require.NoError(t, err)
	_, err = v.Validate(stmt)
	assert.NoError(t, err)

	stmt, err = parser.Parse("DESCRIBE students")
	require.NoError(t, err)
	_, err = v.Validate(stmt)
	assert.NoError(t, err)
}
