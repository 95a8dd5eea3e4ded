package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pieczasz/dbms/internal/ast"
)

func TestParseCreateTable(t *testing.T) {
	t.Run("columns with constraints", func(t *testing.T) {
		stmt, err := Parse(`CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTO_INCREMENT,
			name STRING NOT NULL,
			age INTEGER
		)`)
		require.NoError(t, err)
		ct, ok := stmt.(*ast.CreateTableStmt)
		require.True(t, ok)
		assert.Equal(t, "users", ct.Name)
		require.Len(t, ct.Columns, 3)
		assert.Equal(t, "id", ct.Columns[0].Name)
		assert.True(t, ct.Columns[0].IsPrimaryKey)
		assert.True(t, ct.Columns[0].IsAutoIncr)
		assert.True(t, ct.Columns[1].IsNotNull)
		assert.Equal(t, ast.StrType, ct.Columns[1].Type)
	})

	t.Run("standalone foreign key", func(t *testing.T) {
		stmt, err := Parse(`CREATE TABLE orders (
			id INTEGER PRIMARY KEY,
			user_id INTEGER,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`)
		require.NoError(t, err)
		ct, ok := stmt.(*ast.CreateTableStmt)
		require.True(t, ok)
		require.Len(t, ct.ForeignKeys, 1)
		assert.Equal(t, "user_id", ct.ForeignKeys[0].Column)
		assert.Equal(t, "users", ct.ForeignKeys[0].RefTable)
		assert.Equal(t, "id", ct.ForeignKeys[0].RefColumn)
	})

	t.Run("column named foreign is not mistaken for the FK keyword", func(t *testing.T) {
		stmt, err := Parse(`CREATE TABLE t (
			id INTEGER PRIMARY KEY,
			foreign STRING
		)`)
		require.NoError(t, err)
		ct, ok := stmt.(*ast.CreateTableStmt)
		require.True(t, ok)
		require.Len(t, ct.Columns, 2)
		assert.Equal(t, "foreign", ct.Columns[1].Name)
		assert.Empty(t, ct.ForeignKeys)
	})

	t.Run("column named count is not mistaken for the aggregate", func(t *testing.T) {
		stmt, err := Parse(`CREATE TABLE t (id INTEGER PRIMARY KEY, count INTEGER)`)
		require.NoError(t, err)
		ct, ok := stmt.(*ast.CreateTableStmt)
		require.True(t, ok)
		assert.Equal(t, "count", ct.Columns[1].Name)
	})
}

func TestParseDropStatements(t *testing.T) {
	t.Run("drop table", func(t *testing.T) {
		stmt, err := Parse(`DROP TABLE users`)
		require.NoError(t, err)
		dt, ok := stmt.(*ast.DropTableStmt)
		require.True(t, ok)
		assert.Equal(t, "users", dt.Name)
	})

	t.Run("drop index", func(t *testing.T) {
		stmt, err := Parse(`DROP INDEX ON users (email)`)
		require.NoError(t, err)
		di, ok := stmt.(*ast.DropIndexStmt)
		require.True(t, ok)
		assert.Equal(t, "users", di.Table)
		assert.Equal(t, "email", di.Column)
	})
}

func TestParseCreateIndex(t *testing.T) {
	stmt, err := Parse(`CREATE INDEX ON users (email)`)
	require.NoError(t, err)
	ci, ok := stmt.(*ast.CreateIndexStmt)
	require.True(t, ok)
	assert.Equal(t, "users", ci.Table)
	assert.Equal(t, "email", ci.Column)
}

func TestParseInsert(t *testing.T) {
	t.Run("positional form", func(t *testing.T) {
		stmt, err := Parse(`INSERT INTO users VALUES (1, 'alice')`)
		require.NoError(t, err)
		ins, ok := stmt.(*ast.InsertStmt)
		require.True(t, ok)
		assert.Empty(t, ins.Columns)
		require.Len(t, ins.Values, 2)
		assert.Equal(t, int64(1), ins.Values[0].(*ast.IntLit).Value)
		assert.Equal(t, "alice", ins.Values[1].(*ast.StrLit).Value)
	})

	t.Run("explicit column form", func(t *testing.T) {
		stmt, err := Parse(`INSERT INTO users (id, name) VALUES (1, 'alice')`)
		require.NoError(t, err)
		ins, ok := stmt.(*ast.InsertStmt)
		require.True(t, ok)
		assert.Equal(t, []string{"id", "name"}, ins.Columns)
	})
}

func TestParseUpdateAndDelete(t *testing.T) {
	t.Run("update with where", func(t *testing.T) {
		stmt, err := Parse(`UPDATE users SET name = 'bob', age = 30 WHERE id = 1`)
		require.NoError(t, err)
		upd, ok := stmt.(*ast.UpdateStmt)
		require.True(t, ok)
		require.Len(t, upd.Set, 2)
		assert.Equal(t, "name", upd.Set[0].Column)
		require.NotNil(t, upd.Where)
	})

	t.Run("delete without where", func(t *testing.T) {
		stmt, err := Parse(`DELETE FROM users`)
		require.NoError(t, err)
		del, ok := stmt.(*ast.DeleteStmt)
		require.True(t, ok)
		assert.Nil(t, del.Where)
	})
}

func TestParseSelectBasic(t *testing.T) {
	stmt, err := Parse(`SELECT * FROM users WHERE age > 18 LIMIT 10 OFFSET 5`)
	require.NoError(t, err)
	sel, ok := stmt.(*ast.SelectStmt)
	require.True(t, ok)
	_, isAll := sel.Projection.(*ast.AllColumns)
	assert.True(t, isAll)
	require.NotNil(t, sel.Limit)
	assert.Equal(t, 10, *sel.Limit)
	require.NotNil(t, sel.Offset)
	assert.Equal(t, 5, *sel.Offset)
}

func TestParseSelectProjectionsAndAggregates(t *testing.T) {
	stmt, err := Parse(`SELECT u.name AS username, COUNT(*) AS total FROM users u GROUP BY name HAVING COUNT(*) > 1`)
	require.NoError(t, err)
	sel, ok := stmt.(*ast.SelectStmt)
	require.True(t, ok)
	list, ok := sel.Projection.(*ast.ColumnList)
	require.True(t, ok)
	require.Len(t, list.Items, 2)

	ref, ok := list.Items[0].(*ast.ColumnRef)
	require.True(t, ok)
	assert.Equal(t, "u", ref.Qualifier)
	assert.Equal(t, "username", ref.OutputName())

	agg, ok := list.Items[1].(*ast.AggregateItem)
	require.True(t, ok)
	assert.Equal(t, ast.AggCount, agg.Func)
	assert.True(t, agg.IsStar)
	assert.Equal(t, "total", agg.OutputName())

	assert.Equal(t, []string{"name"}, sel.GroupBy)
	require.NotNil(t, sel.Having)
}

func TestParseSelectJoinRequiresQualifiedEquality(t *testing.T) {
	t.Run("valid join", func(t *testing.T) {
		stmt, err := Parse(`SELECT * FROM orders o JOIN users u ON o.user_id = u.id`)
		require.NoError(t, err)
		sel := stmt.(*ast.SelectStmt)
		require.Len(t, sel.Joins, 1)
		assert.Equal(t, "o", sel.Joins[0].On.LeftTable)
		assert.Equal(t, "user_id", sel.Joins[0].On.LeftColumn)
		assert.Equal(t, "u", sel.Joins[0].On.RightTable)
		assert.Equal(t, "id", sel.Joins[0].On.RightColumn)
	})

	t.Run("unqualified join column is rejected", func(t *testing.T) {
		_, err := Parse(`SELECT * FROM orders o JOIN users u ON user_id = u.id`)
		assert.Error(t, err)
	})
}

func TestParseSelectDerivedTable(t *testing.T) {
	stmt, err := Parse(`SELECT * FROM (SELECT id FROM users) AS sub`)
	require.NoError(t, err)
	sel := stmt.(*ast.SelectStmt)
	derived, ok := sel.From.(*ast.DerivedTable)
	require.True(t, ok)
	assert.Equal(t, "sub", derived.Alias)
}

func TestParseSelectDerivedTableRequiresAlias(t *testing.T) {
	_, err := Parse(`SELECT * FROM (SELECT id FROM users)`)
	assert.Error(t, err)
}

func TestParseSelectInSubquery(t *testing.T) {
	stmt, err := Parse(`SELECT * FROM users WHERE id IN (SELECT user_id FROM orders)`)
	require.NoError(t, err)
	sel := stmt.(*ast.SelectStmt)
	in, ok := sel.Where.(*ast.InSubquery)
	require.True(t, ok)
	assert.NotNil(t, in.Sub)
}

func TestParseSelectOrderByPrecedenceAndLike(t *testing.T) {
	stmt, err := Parse(`SELECT * FROM users WHERE name LIKE 'a%' AND age > 18 OR age < 5 ORDER BY name DESC, id ASC`)
	require.NoError(t, err)
	sel := stmt.(*ast.SelectStmt)

	or, ok := sel.Where.(*ast.Or)
	require.True(t, ok, "top-level condition should be an OR, since OR binds loosest")
	_, leftIsAnd := or.Left.(*ast.And)
	assert.True(t, leftIsAnd)

	require.Len(t, sel.OrderBy, 2)
	assert.True(t, sel.OrderBy[0].Desc)
	assert.False(t, sel.OrderBy[1].Desc)
}

func TestParseShowTablesAndDescribe(t *testing.T) {
	stmt, err := Parse(`SHOW TABLES`)
	require.NoError(t, err)
	_, ok := stmt.(*ast.ShowTablesStmt)
	assert.True(t, ok)

	stmt, err = Parse(`DESCRIBE users`)
	require.NoError(t, err)
	desc, ok := stmt.(*ast.DescribeStmt)
	require.True(t, ok)
	assert.Equal(t, "users", desc.Table)
}

func TestParseTrailingSemicolonIsStripped(t *testing.T) {
	_, err := Parse(`SELECT * FROM users;`)
	assert.NoError(t, err)
}

func TestParseRejectsMalformedInput(t *testing.T) {
	_, err := Parse(`SELECT FROM`)
	assert.Error(t, err)
}
