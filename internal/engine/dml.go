package engine

import (
	"fmt"

	"github.com/pieczasz/dbms/internal/ast"
	"github.com/pieczasz/dbms/internal/catalog"
	"github.com/pieczasz/dbms/internal/dbmserr"
	"github.com/pieczasz/dbms/internal/storage"
	"github.com/pieczasz/dbms/internal/value"
)

// ---- INSERT ----

func (e *Engine) execInsert(s *ast.InsertStmt) (*Result, error) {
	if _, err := e.vtor.Validate(s); err != nil {
		return nil, err
	}
	meta, _ := e.cat.GetTable(s.Table)
	table := e.store.Table(s.Table)

	values := make(map[string]value.Value, len(meta.Columns))
	if len(s.Columns) > 0 {
		for i, name := range s.Columns {
			values[name] = exprToValue(s.Values[i])
		}
	} else {
		for i, col := range meta.Columns {
			values[col.Name] = exprToValue(s.Values[i])
		}
	}

	if meta.PrimaryKey != "" {
		pkCol := meta.FindColumn(meta.PrimaryKey)
		if pkCol.Type == catalog.IntColumn {
			v, present := values[meta.PrimaryKey]
			if !present || v.IsAbsent() || v.Int() == 0 {
				values[meta.PrimaryKey] = value.OfInt(nextPrimaryKey(table, meta.PrimaryKey))
			}
		}
		if pkExists(table, meta.PrimaryKey, values[meta.PrimaryKey]) {
			return nil, dbmserr.NewExecutionError("duplicate primary key %s on table %q", values[meta.PrimaryKey], s.Table)
		}
	}

	for col, ref := range meta.ForeignKeys {
		v, ok := values[col]
		if !ok || v.IsAbsent() {
			continue
		}
		if !fkTargetExists(e.store, v, ref) {
			return nil, dbmserr.NewExecutionError("foreign key %s=%s has no matching %s.%s", col, v, ref.Table, ref.Column)
		}
	}

	slot := table.Insert(values)
	_ = e.cat.SetRecordCount(s.Table, table.LiveCount())
	e.printf("inserted 1 row into %q (id=%d)\n", s.Table, slot)
	return &Result{Message: "1 row inserted"}, nil
}

// nextPrimaryKey implements spec.md §4.5's "assigns max(existing_pk) + 1
// (starting at 1 for empty tables)".
func nextPrimaryKey(table *storage.Table, pkColumn string) int64 {
	var max int64
	for _, rec := range table.Scan() {
		if v := rec.Get(pkColumn); v.Kind() == value.Int && v.Int() > max {
			max = v.Int()
		}
	}
	return max + 1
}

func pkExists(table *storage.Table, pkColumn string, v value.Value) bool {
	return pkExistsExcluding(table, pkColumn, v, -1)
}

func pkExistsExcluding(table *storage.Table, pkColumn string, v value.Value, excludeSlot int) bool {
	if idx, ok := table.Index(pkColumn); ok {
		for _, slot := range idx.Lookup(v) {
			if slot != excludeSlot {
				return true
			}
		}
		return false
	}
	for _, rec := range table.Scan() {
		if rec.SlotID != excludeSlot && rec.Get(pkColumn).Equal(v) {
			return true
		}
	}
	return false
}

func fkTargetExists(store *storage.Manager, v value.Value, ref catalog.ForeignKeyRef) bool {
	target := store.Table(ref.Table)
	if idx, ok := target.Index(ref.Column); ok {
		return len(idx.Lookup(v)) > 0
	}
	for _, rec := range target.Scan() {
		if rec.Get(ref.Column).Equal(v) {
			return true
		}
	}
	return false
}

// ---- UPDATE ----

func (e *Engine) execUpdate(s *ast.UpdateStmt) (*Result, error) {
	if _, err := e.vtor.Validate(s); err != nil {
		return nil, err
	}
	meta, _ := e.cat.GetTable(s.Table)
	table := e.store.Table(s.Table)

	matches := matchingRecords(table, s.Where)
	for _, rec := range matches {
		working := cloneValues(rec.Values)
		for _, set := range s.Set {
			working[set.Column] = exprToValue(set.Value)
		}

		if meta.PrimaryKey != "" {
			if _, touched := setTouches(s.Set, meta.PrimaryKey); touched {
				newPK := working[meta.PrimaryKey]
				if pkExistsExcluding(table, meta.PrimaryKey, newPK, rec.SlotID) {
					return nil, dbmserr.NewExecutionError("duplicate primary key %s on table %q", newPK, s.Table)
				}
			}
		}
		for col, ref := range meta.ForeignKeys {
			if _, touched := setTouches(s.Set, col); touched {
				v := working[col]
				if !v.IsAbsent() && !fkTargetExists(e.store, v, ref) {
					return nil, dbmserr.NewExecutionError("foreign key %s=%s has no matching %s.%s", col, v, ref.Table, ref.Column)
				}
			}
		}
		if err := table.Update(rec.SlotID, working); err != nil {
			return nil, err
		}
	}

	_ = e.cat.SetRecordCount(s.Table, table.LiveCount())
	msg := fmt.Sprintf("%d row(s) updated", len(matches))
	e.println(msg)
	return &Result{Message: msg}, nil
}

func setTouches(set []ast.SetClause, column string) (ast.Expr, bool) {
	for _, s := range set {
		if s.Column == column {
			return s.Value, true
		}
	}
	return nil, false
}

func cloneValues(src map[string]value.Value) map[string]value.Value {
	dst := make(map[string]value.Value, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// ---- DELETE ----

func (e *Engine) execDelete(s *ast.DeleteStmt) (*Result, error) {
	if _, err := e.vtor.Validate(s); err != nil {
		return nil, err
	}
	meta, _ := e.cat.GetTable(s.Table)
	table := e.store.Table(s.Table)
	matches := matchingRecords(table, s.Where)

	if meta.PrimaryKey != "" {
		for _, rec := range matches {
			pkVal := rec.Get(meta.PrimaryKey)
			if referencedElsewhere(e.cat, e.store, s.Table, meta.PrimaryKey, pkVal) {
				return nil, dbmserr.NewExecutionError("cannot delete from %q: row is referenced by a foreign key", s.Table)
			}
		}
	}

	for _, rec := range matches {
		if err := table.Delete(rec.SlotID); err != nil {
			return nil, err
		}
	}
	_ = e.cat.SetRecordCount(s.Table, table.LiveCount())
	msg := fmt.Sprintf("%d row(s) deleted", len(matches))
	e.println(msg)
	return &Result{Message: msg}, nil
}

func referencedElsewhere(cat *catalog.Catalog, store *storage.Manager, table, pkColumn string, v value.Value) bool {
	for _, name := range cat.ListTables() {
		meta, ok := cat.GetTable(name)
		if !ok {
			continue
		}
		for col, ref := range meta.ForeignKeys {
			if ref.Table == table && ref.Column == pkColumn {
				if fkTargetExists(store, v, catalog.ForeignKeyRef{Table: name, Column: col}) {
					return true
				}
			}
		}
	}
	return false
}

// matchingRecords evaluates a single-table WHERE clause against every live
// record, used by UPDATE and DELETE (which, unlike SELECT, have no alias
// map to resolve against).
func matchingRecords(table *storage.Table, where ast.Condition) []*storage.Record {
	var out []*storage.Record
	for _, rec := range table.Scan() {
		if matchSingleTable(where, rec) {
			out = append(out, rec)
		}
	}
	return out
}

func matchSingleTable(cond ast.Condition, rec *storage.Record) bool {
	switch c := cond.(type) {
	case nil:
		return true
	case *ast.And:
		return matchSingleTable(c.Left, rec) && matchSingleTable(c.Right, rec)
	case *ast.Or:
		return matchSingleTable(c.Left, rec) || matchSingleTable(c.Right, rec)
	case *ast.Comparison:
		return compareValues(c.Op, evalSingleTableExpr(c.Left, rec), evalSingleTableExpr(c.Right, rec))
	default:
		return false
	}
}

func evalSingleTableExpr(expr ast.Expr, rec *storage.Record) value.Value {
	if col, ok := expr.(*ast.ColumnExpr); ok {
		return rec.Get(col.Name)
	}
	return exprToValue(expr)
}
