// Package ast defines the tagged tree produced by internal/parser: the
// Statement, Projection, TableRef, Condition, and Expr node families from
// spec.md §3 ("AST"). Statement, clause and expression nodes carry a source
// Position for diagnostics; SetClause and OrderItem do not.
package ast

import "github.com/pieczasz/dbms/internal/token"

// Statement is implemented by every top-level statement node.
type Statement interface {
	stmtNode()
}

// ScalarType names one of the two scalar types in the data model.
type ScalarType int

const (
	IntType ScalarType = iota
	StrType
)

func (t ScalarType) String() string {
	if t == StrType {
		return "STRING"
	}
	return "INTEGER"
}

// ColumnDef is one column declaration inside a CREATE TABLE column list.
type ColumnDef struct {
	Pos          token.Position
	Name         string
	Type         ScalarType
	IsPrimaryKey bool
	IsAutoIncr   bool
	IsNotNull    bool
}

// ForeignKeyDef is a standalone "FOREIGN KEY (col) REFERENCES table(col)"
// entry in a column list.
type ForeignKeyDef struct {
	Pos       token.Position
	Column    string
	RefTable  string
	RefColumn string
}

// CreateTableStmt is "CREATE TABLE name (col_def_list)".
type CreateTableStmt struct {
	Pos         token.Position
	Name        string
	Columns     []*ColumnDef
	ForeignKeys []*ForeignKeyDef
}

func (*CreateTableStmt) stmtNode() {}

// DropTableStmt is "DROP TABLE name".
type DropTableStmt struct {
	Pos  token.Position
	Name string
}

func (*DropTableStmt) stmtNode() {}

// CreateIndexStmt is "CREATE INDEX ON name (col)".
type CreateIndexStmt struct {
	Pos    token.Position
	Table  string
	Column string
}

func (*CreateIndexStmt) stmtNode() {}

// DropIndexStmt is "DROP INDEX ON name (col)".
type DropIndexStmt struct {
	Pos    token.Position
	Table  string
	Column string
}

func (*DropIndexStmt) stmtNode() {}

// ShowTablesStmt is "SHOW TABLES".
type ShowTablesStmt struct{ Pos token.Position }

func (*ShowTablesStmt) stmtNode() {}

// DescribeStmt is "DESCRIBE name".
type DescribeStmt struct {
	Pos   token.Position
	Table string
}

func (*DescribeStmt) stmtNode() {}

// InsertStmt is "INSERT INTO name [(col_list)] VALUES (expr_list)".
type InsertStmt struct {
	Pos     token.Position
	Table   string
	Columns []string // nil means full-row positional form
	Values  []Expr
}

func (*InsertStmt) stmtNode() {}

// SetClause is one "col = expr" entry in an UPDATE's SET list.
type SetClause struct {
	Column string
	Value  Expr
}

// UpdateStmt is "UPDATE name SET set_list [WHERE cond]".
type UpdateStmt struct {
	Pos   token.Position
	Table string
	Set   []SetClause
	Where Condition // nil means no WHERE clause
}

func (*UpdateStmt) stmtNode() {}

// DeleteStmt is "DELETE FROM name [WHERE cond]".
type DeleteStmt struct {
	Pos   token.Position
	Table string
	Where Condition
}

func (*DeleteStmt) stmtNode() {}

// AggFunc names one of the five supported aggregate functions.
type AggFunc int

const (
	AggCount AggFunc = iota
	AggSum
	AggAvg
	AggMin
	AggMax
)

func (f AggFunc) String() string {
	switch f {
	case AggSum:
		return "SUM"
	case AggAvg:
		return "AVG"
	case AggMin:
		return "MIN"
	case AggMax:
		return "MAX"
	default:
		return "COUNT"
	}
}

// Projection is implemented by the SELECT list's two forms: "*" or an
// explicit column/aggregate list.
type Projection interface {
	projNode()
}

// AllColumns is the "*" projection.
type AllColumns struct{ Pos token.Position }

func (*AllColumns) projNode() {}

// ColumnItem is implemented by each entry of an explicit select list.
type ColumnItem interface {
	columnItemNode()
	OutputName() string
}

// ColumnRef is a "qualifier.name [AS alias]" select-list entry.
type ColumnRef struct {
	Pos       token.Position
	Qualifier string // empty when unqualified
	Name      string
	Alias     string
}

func (*ColumnRef) columnItemNode() {}

// OutputName reports the column label used in the result set: the alias
// when present, otherwise the bare column name.
func (c *ColumnRef) OutputName() string {
	if c.Alias != "" {
		return c.Alias
	}
	return c.Name
}

// AggregateItem is a "FUNC(arg) [AS alias]" select-list entry.
type AggregateItem struct {
	Pos    token.Position
	Func   AggFunc
	Arg    string // column name, or "" when IsStar
	IsStar bool
	Alias  string
}

func (*AggregateItem) columnItemNode() {}

// OutputName reports the column label used in the result set.
func (a *AggregateItem) OutputName() string {
	if a.Alias != "" {
		return a.Alias
	}
	if a.IsStar {
		return a.Func.String() + "(*)"
	}
	return a.Func.String() + "(" + a.Arg + ")"
}

// ColumnList is the explicit-list form of Projection.
type ColumnList struct {
	Pos   token.Position
	Items []ColumnItem
}

func (*ColumnList) projNode() {}

// TableRef is implemented by the two forms a FROM/JOIN operand can take.
type TableRef interface {
	tableRefNode()
	RefAlias() string
}

// NamedTable is "name [[AS] alias]".
type NamedTable struct {
	Pos   token.Position
	Name  string
	Alias string // equals Name when unaliased
}

func (*NamedTable) tableRefNode() {}

// RefAlias returns the alias this table is known by in the statement.
func (n *NamedTable) RefAlias() string { return n.Alias }

// DerivedTable is "(select) [AS] alias".
type DerivedTable struct {
	Pos    token.Position
	Select *SelectStmt
	Alias  string
}

func (*DerivedTable) tableRefNode() {}

// RefAlias returns the alias this derived table is known by.
func (d *DerivedTable) RefAlias() string { return d.Alias }

// EqCond is the restricted "ident.ident = ident.ident" join condition
// required by the grammar (spec.md §4.2).
type EqCond struct {
	Pos                                            token.Position
	LeftTable, LeftColumn, RightTable, RightColumn string
}

// JoinClause is one "JOIN table_ref ON eq_cond" entry.
type JoinClause struct {
	Pos   token.Position
	Table TableRef
	On    EqCond
}

// OrderItem is one entry of an ORDER BY list.
type OrderItem struct {
	Qualifier string
	Column    string
	Desc      bool
}

// SelectStmt is the full SELECT grammar of spec.md §4.2.
type SelectStmt struct {
	Pos        token.Position
	Projection Projection
	From       TableRef
	Joins      []*JoinClause
	Where      Condition
	GroupBy    []string
	Having     Condition
	OrderBy    []OrderItem
	Limit      *int
	Offset     *int
}

func (*SelectStmt) stmtNode() {}

// Condition is implemented by every node of a WHERE/HAVING boolean tree.
type Condition interface {
	condNode()
}

// CompareOp names a comparison operator.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNeq
	OpLt
	OpGt
	OpLe
	OpGe
	OpLike
)

// Comparison is "expr op expr" or "expr LIKE expr".
type Comparison struct {
	Pos   token.Position
	Left  Expr
	Op    CompareOp
	Right Expr
}

func (*Comparison) condNode() {}

// And is a conjunction of two conditions.
type And struct {
	Pos         token.Position
	Left, Right Condition
}

func (*And) condNode() {}

// Or is a disjunction of two conditions.
type Or struct {
	Pos         token.Position
	Left, Right Condition
}

func (*Or) condNode() {}

// InSubquery is "expr IN (select)".
type InSubquery struct {
	Pos    token.Position
	Left   Expr
	Sub    *SelectStmt
	Negate bool
}

func (*InSubquery) condNode() {}

// Expr is implemented by every scalar-valued AST node.
type Expr interface {
	exprNode()
}

// ColumnExpr references a (possibly qualified) column.
type ColumnExpr struct {
	Pos       token.Position
	Qualifier string
	Name      string
}

func (*ColumnExpr) exprNode() {}

// IntLit is an integer literal.
type IntLit struct {
	Pos   token.Position
	Value int64
}

func (*IntLit) exprNode() {}

// StrLit is a string literal.
type StrLit struct {
	Pos   token.Position
	Value string
}

func (*StrLit) exprNode() {}

// AggregateExpr is an aggregate function call used as a value expression
// (e.g. inside HAVING).
type AggregateExpr struct {
	Pos    token.Position
	Func   AggFunc
	Arg    string
	IsStar bool
}

func (*AggregateExpr) exprNode() {}
