// Package validator checks a parsed Statement against the Catalog and
// produces a bound representation carrying resolved table/column bindings,
// per spec.md §4.3. It never touches storage; only catalog metadata.
package validator

import (
	"fmt"

	"github.com/pieczasz/dbms/internal/ast"
	"github.com/pieczasz/dbms/internal/catalog"
	"github.com/pieczasz/dbms/internal/dbmserr"
)

// Validator binds and checks statements against a fixed Catalog snapshot.
type Validator struct {
	cat *catalog.Catalog
}

// New creates a Validator over cat.
func New(cat *catalog.Catalog) *Validator {
	return &Validator{cat: cat}
}

// AliasBinding is what one FROM/JOIN alias resolves to: either a catalog
// table, or a derived SELECT with its own projected column names.
type AliasBinding struct {
	Alias         string
	Table         *catalog.TableMeta // nil when Derived is set
	Derived       *ast.SelectStmt
	DerivedCols   []string // output column names, when Derived is set
}

// BoundSelect is a Select statement with its alias map resolved; the
// optimizer and executor both consume this rather than re-walking the AST.
type BoundSelect struct {
	Stmt    *ast.SelectStmt
	Aliases map[string]*AliasBinding
	Order   []string // aliases in FROM-then-JOIN order
}

// Validate dispatches on stmt's concrete type. For a SelectStmt it returns
// a non-nil *BoundSelect; for every other statement kind it returns nil.
func (v *Validator) Validate(stmt ast.Statement) (*BoundSelect, error) {
	switch s := stmt.(type) {
	case *ast.CreateTableStmt:
		return nil, v.validateCreateTable(s)
	case *ast.DropTableStmt:
		return nil, v.validateDropTable(s)
	case *ast.CreateIndexStmt:
		return nil, v.validateCreateIndex(s)
	case *ast.DropIndexStmt:
		return nil, v.validateDropIndex(s)
	case *ast.InsertStmt:
		return nil, v.validateInsert(s)
	case *ast.UpdateStmt:
		return nil, v.validateUpdate(s)
	case *ast.DeleteStmt:
		return nil, v.validateDelete(s)
	case *ast.SelectStmt:
		return v.validateSelect(s)
	case *ast.ShowTablesStmt, *ast.DescribeStmt:
		return nil, nil
	default:
		return nil, dbmserr.NewValidationError("statement", "", "unrecognized statement kind")
	}
}

// ---- DDL ----

func (v *Validator) validateCreateTable(s *ast.CreateTableStmt) error {
	if _, exists := v.cat.GetTable(s.Name); exists {
		return dbmserr.NewValidationError("table", s.Name, "table already exists")
	}
	if len(s.Columns) == 0 {
		return dbmserr.NewValidationError("table", s.Name, "table must declare at least one column")
	}

	seen := make(map[string]bool, len(s.Columns))
	pkCount := 0
	for _, col := range s.Columns {
		if seen[col.Name] {
			return dbmserr.NewValidationError("column", col.Name, "duplicate column name")
		}
		seen[col.Name] = true
		if col.IsPrimaryKey {
			pkCount++
		}
		if col.IsAutoIncr && (!col.IsPrimaryKey || col.Type != ast.IntType) {
			return dbmserr.NewValidationError("column", col.Name, "AUTO_INCREMENT column must be an INTEGER primary key")
		}
	}
	if pkCount > 1 {
		return dbmserr.NewValidationError("table", s.Name, "at most one column may be the primary key")
	}

	for _, fk := range s.ForeignKeys {
		if !seen[fk.Column] {
			return dbmserr.NewValidationError("foreign key", fk.Column, "references a column not declared on this table")
		}
		target, ok := v.cat.GetTable(fk.RefTable)
		if !ok {
			return dbmserr.NewValidationError("foreign key", fk.Column, fmt.Sprintf("referenced table %q does not exist", fk.RefTable))
		}
		if target.PrimaryKey != fk.RefColumn {
			return dbmserr.NewValidationError("foreign key", fk.Column,
				fmt.Sprintf("referenced column %q is not the primary key of %q", fk.RefColumn, fk.RefTable))
		}
	}
	return nil
}

func (v *Validator) validateDropTable(s *ast.DropTableStmt) error {
	if _, ok := v.cat.GetTable(s.Name); !ok {
		return dbmserr.NewValidationError("table", s.Name, "table does not exist")
	}
	return nil
}

func (v *Validator) validateCreateIndex(s *ast.CreateIndexStmt) error {
	table, ok := v.cat.GetTable(s.Table)
	if !ok {
		return dbmserr.NewValidationError("table", s.Table, "table does not exist")
	}
	if table.FindColumn(s.Column) == nil {
		return dbmserr.NewValidationError("column", s.Column, "no such column")
	}
	if table.Indexes[s.Column] {
		return dbmserr.NewValidationError("index", s.Column, "index already exists")
	}
	return nil
}

func (v *Validator) validateDropIndex(s *ast.DropIndexStmt) error {
	table, ok := v.cat.GetTable(s.Table)
	if !ok {
		return dbmserr.NewValidationError("table", s.Table, "table does not exist")
	}
	if !table.Indexes[s.Column] {
		return dbmserr.NewValidationError("index", s.Column, "no such index")
	}
	if table.PrimaryKey == s.Column {
		return dbmserr.NewValidationError("index", s.Column, "cannot drop the primary-key index")
	}
	return nil
}

// ---- DML ----

func (v *Validator) validateInsert(s *ast.InsertStmt) error {
	table, ok := v.cat.GetTable(s.Table)
	if !ok {
		return dbmserr.NewValidationError("table", s.Table, "table does not exist")
	}

	var targetCols []catalog.ColumnMeta
	if len(s.Columns) > 0 {
		if len(s.Columns) != len(s.Values) {
			return dbmserr.NewValidationError("insert", s.Table, "column list and value list differ in length")
		}
		for _, name := range s.Columns {
			col := table.FindColumn(name)
			if col == nil {
				return dbmserr.NewValidationError("column", name, "no such column")
			}
			targetCols = append(targetCols, *col)
		}
	} else {
		if len(s.Values) != len(table.Columns) {
			return dbmserr.NewValidationError("insert", s.Table, "value count does not match the table's column count")
		}
		targetCols = table.Columns
	}

	for i, col := range targetCols {
		if err := checkLiteralType(col, s.Values[i]); err != nil {
			return err
		}
	}
	return nil
}

func checkLiteralType(col catalog.ColumnMeta, expr ast.Expr) error {
	switch expr.(type) {
	case *ast.IntLit:
		if col.Type != catalog.IntColumn {
			return dbmserr.NewValidationError("column", col.Name, "expected a STRING literal, found INTEGER")
		}
	case *ast.StrLit:
		if col.Type != catalog.StrColumn {
			return dbmserr.NewValidationError("column", col.Name, "expected an INTEGER literal, found STRING")
		}
	default:
		return dbmserr.NewValidationError("column", col.Name, "expected a literal value")
	}
	return nil
}

func (v *Validator) validateUpdate(s *ast.UpdateStmt) error {
	table, ok := v.cat.GetTable(s.Table)
	if !ok {
		return dbmserr.NewValidationError("table", s.Table, "table does not exist")
	}
	for _, set := range s.Set {
		col := table.FindColumn(set.Column)
		if col == nil {
			return dbmserr.NewValidationError("column", set.Column, "no such column")
		}
		if err := checkLiteralType(*col, set.Value); err != nil {
			return err
		}
	}
	if s.Where != nil {
		names := map[string]*catalog.TableMeta{s.Table: table}
		if err := checkConditionColumns(s.Where, names, s.Table); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) validateDelete(s *ast.DeleteStmt) error {
	table, ok := v.cat.GetTable(s.Table)
	if !ok {
		return dbmserr.NewValidationError("table", s.Table, "table does not exist")
	}
	if s.Where != nil {
		names := map[string]*catalog.TableMeta{s.Table: table}
		if err := checkConditionColumns(s.Where, names, s.Table); err != nil {
			return err
		}
	}
	return nil
}

// ---- SELECT ----

func (v *Validator) validateSelect(s *ast.SelectStmt) (*BoundSelect, error) {
	bound := &BoundSelect{Stmt: s, Aliases: make(map[string]*AliasBinding)}

	if err := v.bindTableRef(s.From, bound); err != nil {
		return nil, err
	}
	for _, j := range s.Joins {
		if err := v.bindTableRef(j.Table, bound); err != nil {
			return nil, err
		}
		if err := v.checkEqCondAliases(j.On, bound); err != nil {
			return nil, err
		}
	}

	if s.Where != nil {
		if err := v.checkConditionAliases(s.Where, bound); err != nil {
			return nil, err
		}
	}
	if s.Having != nil {
		if err := v.checkConditionAliases(s.Having, bound); err != nil {
			return nil, err
		}
	}
	if err := v.checkProjection(s.Projection, bound); err != nil {
		return nil, err
	}

	return bound, nil
}

func (v *Validator) bindTableRef(ref ast.TableRef, bound *BoundSelect) error {
	alias := ref.RefAlias()
	if _, dup := bound.Aliases[alias]; dup {
		return dbmserr.NewValidationError("alias", alias, "duplicate table alias")
	}

	switch t := ref.(type) {
	case *ast.NamedTable:
		table, ok := v.cat.GetTable(t.Name)
		if !ok {
			return dbmserr.NewValidationError("table", t.Name, "table does not exist")
		}
		bound.Aliases[alias] = &AliasBinding{Alias: alias, Table: table}
	case *ast.DerivedTable:
		inner, err := v.validateSelect(t.Select)
		if err != nil {
			return err
		}
		bound.Aliases[alias] = &AliasBinding{Alias: alias, Derived: t.Select, DerivedCols: projectionOutputNames(inner.Stmt.Projection)}
	default:
		return dbmserr.NewValidationError("table", alias, "unrecognized table reference")
	}
	bound.Order = append(bound.Order, alias)
	return nil
}

func projectionOutputNames(proj ast.Projection) []string {
	list, ok := proj.(*ast.ColumnList)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		names = append(names, item.OutputName())
	}
	return names
}

// resolveColumn checks that qualifier.name (qualifier may be empty) names a
// real column, resolving ambiguity across every bound alias when qualifier
// is empty.
func (v *Validator) resolveColumn(qualifier, name string, bound *BoundSelect) error {
	if qualifier != "" {
		binding, ok := bound.Aliases[qualifier]
		if !ok {
			return dbmserr.NewValidationError("alias", qualifier, "no such table alias in this query")
		}
		if !aliasHasColumn(binding, name) {
			return dbmserr.NewValidationError("column", qualifier+"."+name, "no such column")
		}
		return nil
	}

	matches := 0
	for _, binding := range bound.Aliases {
		if aliasHasColumn(binding, name) {
			matches++
		}
	}
	switch matches {
	case 0:
		return dbmserr.NewValidationError("column", name, "no such column in any table in this query")
	case 1:
		return nil
	default:
		return dbmserr.NewValidationError("column", name, "ambiguous unqualified column reference")
	}
}

// ResolveAlias returns the alias owning a column reference, given its
// (possibly empty) qualifier. Used by the optimizer and executor to locate
// the concrete alias behind an unqualified reference that Validate has
// already proven unambiguous.
func ResolveAlias(bound *BoundSelect, qualifier, name string) string {
	if qualifier != "" {
		return qualifier
	}
	for alias, binding := range bound.Aliases {
		if aliasHasColumn(binding, name) {
			return alias
		}
	}
	return ""
}

func aliasHasColumn(b *AliasBinding, name string) bool {
	if b.Table != nil {
		return b.Table.FindColumn(name) != nil
	}
	for _, col := range b.DerivedCols {
		if col == name {
			return true
		}
	}
	return false
}

func (v *Validator) checkEqCondAliases(eq ast.EqCond, bound *BoundSelect) error {
	if err := v.resolveColumn(eq.LeftTable, eq.LeftColumn, bound); err != nil {
		return err
	}
	return v.resolveColumn(eq.RightTable, eq.RightColumn, bound)
}

func (v *Validator) checkConditionAliases(cond ast.Condition, bound *BoundSelect) error {
	switch c := cond.(type) {
	case *ast.And:
		if err := v.checkConditionAliases(c.Left, bound); err != nil {
			return err
		}
		return v.checkConditionAliases(c.Right, bound)
	case *ast.Or:
		if err := v.checkConditionAliases(c.Left, bound); err != nil {
			return err
		}
		return v.checkConditionAliases(c.Right, bound)
	case *ast.Comparison:
		if err := v.checkExprAliases(c.Left, bound); err != nil {
			return err
		}
		return v.checkExprAliases(c.Right, bound)
	case *ast.InSubquery:
		if err := v.checkExprAliases(c.Left, bound); err != nil {
			return err
		}
		_, err := v.validateSelect(c.Sub)
		return err
	default:
		return nil
	}
}

func (v *Validator) checkExprAliases(expr ast.Expr, bound *BoundSelect) error {
	switch e := expr.(type) {
	case *ast.ColumnExpr:
		return v.resolveColumn(e.Qualifier, e.Name, bound)
	case *ast.AggregateExpr:
		if e.IsStar || e.Arg == "" {
			return nil
		}
		return v.resolveColumn("", e.Arg, bound)
	default:
		return nil
	}
}

func (v *Validator) checkProjection(proj ast.Projection, bound *BoundSelect) error {
	list, ok := proj.(*ast.ColumnList)
	if !ok {
		return nil
	}
	for _, item := range list.Items {
		switch it := item.(type) {
		case *ast.ColumnRef:
			if err := v.resolveColumn(it.Qualifier, it.Name, bound); err != nil {
				return err
			}
		case *ast.AggregateItem:
			if it.IsStar || it.Arg == "" {
				continue
			}
			if err := v.resolveColumn("", it.Arg, bound); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkConditionColumns verifies every column reference in cond names a
// real column of table (used by UPDATE/DELETE's single-table WHERE, which
// has no alias map to resolve against).
func checkConditionColumns(cond ast.Condition, tables map[string]*catalog.TableMeta, table string) error {
	switch c := cond.(type) {
	case *ast.And:
		if err := checkConditionColumns(c.Left, tables, table); err != nil {
			return err
		}
		return checkConditionColumns(c.Right, tables, table)
	case *ast.Or:
		if err := checkConditionColumns(c.Left, tables, table); err != nil {
			return err
		}
		return checkConditionColumns(c.Right, tables, table)
	case *ast.Comparison:
		if err := checkExprColumn(c.Left, tables[table]); err != nil {
			return err
		}
		return checkExprColumn(c.Right, tables[table])
	default:
		return nil
	}
}

func checkExprColumn(expr ast.Expr, table *catalog.TableMeta) error {
	ref, ok := expr.(*ast.ColumnExpr)
	if !ok {
		return nil
	}
	if table.FindColumn(ref.Name) == nil {
		return dbmserr.NewValidationError("column", ref.Name, "no such column")
	}
	return nil
}
