package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAutoAssignsPrimaryKeyStartingAtOne(t *testing.T) {
	e := newSchoolEngine(t)
	res := mustExec(t, e, `INSERT INTO students (name, age) VALUES ('alice', 20)`)
	assert.Equal(t, "1 row inserted", res.Message)

	res = mustExec(t, e, `SELECT id FROM students WHERE name = 'alice'`)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "1", res.Rows[0][0])
}

func TestInsertAutoAssignsNextPrimaryKeyEvenWithoutAutoIncrementDeclared(t *testing.T) {
	e := newSchoolEngine(t)
	mustExec(t, e, `CREATE TABLE plain (id INTEGER PRIMARY KEY, name STRING)`)
	mustExec(t, e, `INSERT INTO plain (name) VALUES ('x')`)
	mustExec(t, e, `INSERT INTO plain (name) VALUES ('y')`)

	res := mustExec(t, e, `SELECT id FROM plain ORDER BY id ASC`)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "1", res.Rows[0][0])
	assert.Equal(t, "2", res.Rows[1][0])
}

func TestInsertRejectsDuplicatePrimaryKey(t *testing.T) {
	e := newSchoolEngine(t)
	mustExec(t, e, `INSERT INTO students (id, name, age) VALUES (1, 'alice', 20)`)
	err := execErr(t, e, `INSERT INTO students (id, name, age) VALUES (1, 'bob', 21)`)
	assert.Error(t, err)
}

func TestInsertRejectsUnknownForeignKeyTarget(t *testing.T) {
	e := newSchoolEngine(t)
	err := execErr(t, e, `INSERT INTO enrollments (id, sid, cid) VALUES (1, 999, 1)`)
	assert.Error(t, err)
}

func TestUpdateRevalidatesPrimaryKeyOnlyWhenTouched(t *testing.T) {
	e := newSchoolEngine(t)
	mustExec(t, e, `INSERT INTO students (id, name, age) VALUES (1, 'alice', 20)`)
	mustExec(t, e, `INSERT INTO students (id, name, age) VALUES (2, 'bob', 21)`)

	// PK not in the SET list: no uniqueness recheck, the update succeeds
	res := mustExec(t, e, `UPDATE students SET age = 30 WHERE id = 1`)
	assert.Equal(t, "1 row(s) updated", res.Message)

	err := execErr(t, e, `UPDATE students SET id = 2 WHERE id = 1`)
	assert.Error(t, err, "moving id 1 onto the existing id 2 must be rejected")
}

func TestDeleteAbortsWhenRowIsReferencedByForeignKey(t *testing.T) {
	e := newSchoolEngine(t)
	mustExec(t, e, `INSERT INTO students (id, name, age) VALUES (1, 'alice', 20)`)
	mustExec(t, e, `INSERT INTO enrollments (id, sid, cid) VALUES (1, 1, 1)`)

	err := execErr(t, e, `DELETE FROM students WHERE id = 1`)
	assert.Error(t, err)

	res := mustExec(t, e, `SELECT id FROM students`)
	assert.Len(t, res.Rows, 1, "no partial delete should have happened")
}

func TestDeleteRemovesUnreferencedRow(t *testing.T) {
	e := newSchoolEngine(t)
	mustExec(t, e, `INSERT INTO students (id, name, age) VALUES (1, 'alice', 20)`)
	res := mustExec(t, e, `DELETE FROM students WHERE id = 1`)
	assert.Equal(t, "1 row(s) deleted", res.Message)

	res = mustExec(t, e, `SELECT id FROM students`)
	assert.Empty(t, res.Rows)
}
