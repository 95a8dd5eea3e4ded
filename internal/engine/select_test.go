package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStudentsAndEnrollments(t *testing.T, e *Engine) {
	t.Helper()
	mustExec(t, e, `INSERT INTO students (id, name, age) VALUES (1, 'alice', 20)`)
	mustExec(t, e, `INSERT INTO students (id, name, age) VALUES (2, 'bob', 22)`)
	mustExec(t, e, `INSERT INTO students (id, name, age) VALUES (3, 'cara', 22)`)
	mustExec(t, e, `INSERT INTO enrollments (id, sid, cid) VALUES (1, 1, 100)`)
	mustExec(t, e, `INSERT INTO enrollments (id, sid, cid) VALUES (2, 1, 200)`)
	mustExec(t, e, `INSERT INTO enrollments (id, sid, cid) VALUES (3, 2, 100)`)
}

func TestSelectJoinsAcrossTables(t *testing.T) {
	e := newSchoolEngine(t)
	seedStudentsAndEnrollments(t, e)

	res := mustExec(t, e, `SELECT s.name FROM students s JOIN enrollments en ON s.id = en.sid WHERE en.cid = 100 ORDER BY s.name ASC`)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "alice", res.Rows[0][0])
	assert.Equal(t, "bob", res.Rows[1][0])
}

func TestSelectGroupByWithCountAndHaving(t *testing.T) {
	e := newSchoolEngine(t)
	seedStudentsAndEnrollments(t, e)

	res := mustExec(t, e, `SELECT sid, COUNT(*) AS total FROM enrollments GROUP BY sid HAVING COUNT(*) > 1`)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "1", res.Rows[0][0])
	assert.Equal(t, "2", res.Rows[0][1])
}

func TestSelectWhereLikePattern(t *testing.T) {
	e := newSchoolEngine(t)
	seedStudentsAndEnrollments(t, e)

	res := mustExec(t, e, `SELECT name FROM students WHERE name LIKE 'a%'`)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "alice", res.Rows[0][0])
}

func TestSelectOrderByDescThenAsc(t *testing.T) {
	e := newSchoolEngine(t)
	seedStudentsAndEnrollments(t, e)

	res := mustExec(t, e, `SELECT name FROM students ORDER BY age DESC, name ASC`)
	require.Len(t, res.Rows, 3)
	assert.Equal(t, "bob", res.Rows[0][0])
	assert.Equal(t, "cara", res.Rows[1][0])
	assert.Equal(t, "alice", res.Rows[2][0])
}

// B2: LIMIT 0 returns no rows.
func TestSelectLimitZeroReturnsNoRows(t *testing.T) {
	e := newSchoolEngine(t)
	seedStudentsAndEnrollments(t, e)

	res := mustExec(t, e, `SELECT name FROM students LIMIT 0`)
	assert.Empty(t, res.Rows)
}

// B3: OFFSET past the end of the result set returns no rows, not an error.
func TestSelectOffsetBeyondResultSetReturnsNoRows(t *testing.T) {
	e := newSchoolEngine(t)
	seedStudentsAndEnrollments(t, e)

	res := mustExec(t, e, `SELECT name FROM students LIMIT 10 OFFSET 100`)
	assert.Empty(t, res.Rows)
}

// B4: COUNT(*) on an empty table returns a single row with 0, not zero rows.
func TestSelectCountStarOnEmptyTable(t *testing.T) {
	e := newSchoolEngine(t)
	res := mustExec(t, e, `SELECT COUNT(*) AS total FROM students`)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "0", res.Rows[0][0])
}

// B5: AVG/SUM over a column with no live rows to aggregate yields NULL.
func TestSelectSumAndAvgOverEmptyTableYieldNull(t *testing.T) {
	e := newSchoolEngine(t)
	res := mustExec(t, e, `SELECT SUM(age) AS total, AVG(age) AS average FROM students`)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "NULL", res.Rows[0][0])
	assert.Equal(t, "NULL", res.Rows[0][1])
}

func TestSelectAvgRoundsToNearestInteger(t *testing.T) {
	e := newSchoolEngine(t)
	mustExec(t, e, `INSERT INTO students (id, name, age) VALUES (1, 'a', 1)`)
	mustExec(t, e, `INSERT INTO students (id, name, age) VALUES (2, 'b', 2)`)

	res := mustExec(t, e, `SELECT AVG(age) AS average FROM students`)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "2", res.Rows[0][0])
}

// B6: a comparison against an absent value is false, not an error.
func TestSelectComparisonAgainstAbsentIsFalse(t *testing.T) {
	e := newSchoolEngine(t)
	mustExec(t, e, `INSERT INTO students (id, name) VALUES (1, 'noage')`)

	res := mustExec(t, e, `SELECT name FROM students WHERE age = 20`)
	assert.Empty(t, res.Rows)

	res = mustExec(t, e, `SELECT name FROM students WHERE age != 20`)
	assert.Empty(t, res.Rows, "absent compared with != is also false, never true")
}

func TestSelectInSubquery(t *testing.T) {
	e := newSchoolEngine(t)
	seedStudentsAndEnrollments(t, e)

	res := mustExec(t, e, `SELECT name FROM students WHERE id IN (SELECT sid FROM enrollments WHERE cid = 100) ORDER BY name ASC`)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "alice", res.Rows[0][0])
	assert.Equal(t, "bob", res.Rows[1][0])
}

func TestSelectFromDerivedTable(t *testing.T) {
	e := newSchoolEngine(t)
	seedStudentsAndEnrollments(t, e)

	res := mustExec(t, e, `SELECT name FROM (SELECT name FROM students WHERE age = 22) AS adults ORDER BY name ASC`)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "bob", res.Rows[0][0])
	assert.Equal(t, "cara", res.Rows[1][0])
}

func TestSelectStarOnSingleTableUsesBareColumnNames(t *testing.T) {
	e := newSchoolEngine(t)
	mustExec(t, e, `INSERT INTO students (id, name, age) VALUES (1, 'alice', 20)`)

	res := mustExec(t, e, `SELECT * FROM students`)
	assert.Equal(t, []string{"id", "name", "age"}, res.Columns)
}

func TestShowTablesAndDescribe(t *testing.T) {
	e := newSchoolEngine(t)

	res := mustExec(t, e, `SHOW TABLES`)
	assert.ElementsMatch(t, []string{"students", "enrollments"}, flattenFirstColumn(res))

	res = mustExec(t, e, `DESCRIBE students`)
	require.Len(t, res.Rows, 3)
}

func flattenFirstColumn(res *Result) []string {
	out := make([]string, 0, len(res.Rows))
	for _, r := range res.Rows {
		out = append(out, r[0])
	}
	return out
}
