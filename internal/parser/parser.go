// Package parser implements a hand-written recursive-descent parser over
// the token stream produced by internal/lexer, building the AST described
// in spec.md §3 and §4.2. Operator precedence is OR < AND < comparison;
// parenthesized conditions always group.
package parser

import (
	"strconv"
	"strings"

	"github.com/pieczasz/dbms/internal/ast"
	"github.com/pieczasz/dbms/internal/dbmserr"
	"github.com/pieczasz/dbms/internal/lexer"
	"github.com/pieczasz/dbms/internal/token"
)

// Parser consumes one statement's worth of tokens from a Lexer.
type Parser struct {
	lex  *lexer.Lexer
	cur  token.Token
	peek token.Token
}

// Parse strips a trailing ";" and parses sql as a single Statement.
func Parse(sql string) (ast.Statement, error) {
	sql = strings.TrimSpace(sql)
	sql = strings.TrimSuffix(strings.TrimRight(sql, " \t\n\r"), ";")

	p := &Parser{lex: lexer.New(sql)}
	if err := p.next(); err != nil {
		return nil, err
	}
	if err := p.next(); err != nil {
		return nil, err
	}

	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if p.cur.Kind != token.EOF {
		return nil, p.errf("unexpected trailing input")
	}
	return stmt, nil
}

func (p *Parser) next() error {
	p.cur = p.peek
	tok, err := p.lex.NextToken()
	if err != nil {
		return err
	}
	p.peek = tok
	return nil
}

func (p *Parser) errf(message string) error {
	return dbmserr.NewParseError(p.cur.Pos.Line, p.cur.Pos.Col, p.cur.Literal, message)
}

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	if p.cur.Kind != k {
		return token.Token{}, p.errf("expected " + k.String())
	}
	tok := p.cur
	if err := p.next(); err != nil {
		return token.Token{}, err
	}
	return tok, nil
}

func (p *Parser) isKeywordText(s string) bool {
	return strings.EqualFold(p.cur.Literal, s)
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	switch p.cur.Kind {
	case token.CREATE:
		return p.parseCreate()
	case token.DROP:
		return p.parseDrop()
	case token.INSERT:
		return p.parseInsert()
	case token.UPDATE:
		return p.parseUpdate()
	case token.DELETE:
		return p.parseDelete()
	case token.SELECT:
		return p.parseSelect()
	case token.SHOW:
		return p.parseShowTables()
	case token.DESCRIBE:
		return p.parseDescribe()
	default:
		return nil, p.errf("unknown statement")
	}
}

// ---- DDL ----

func (p *Parser) parseCreate() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advanceKeyword(token.CREATE); err != nil {
		return nil, err
	}
	switch p.cur.Kind {
	case token.TABLE:
		return p.parseCreateTable(pos)
	case token.INDEX:
		return p.parseCreateIndex(pos)
	default:
		return nil, p.errf("expected TABLE or INDEX")
	}
}

func (p *Parser) advanceKeyword(k token.Kind) error {
	if p.cur.Kind != k {
		return p.errf("expected " + k.String())
	}
	return p.next()
}

func (p *Parser) parseCreateTable(pos token.Position) (ast.Statement, error) {
	if err := p.advanceKeyword(token.TABLE); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	p.lex.EnterColumnDefs()
	// The first entry was scanned as lookahead before column-definition mode
	// was on, so demote it here the way the lexer demotes later entries.
	if token.IsKeyword(p.cur.Kind) {
		p.cur.Kind = token.IDENT
	}

	stmt := &ast.CreateTableStmt{Pos: pos, Name: nameTok.Literal}

	for {
		if p.isKeywordText("foreign") && p.peek.Kind == token.KEY {
			fk, err := p.parseForeignKeyDef()
			if err != nil {
				return nil, err
			}
			stmt.ForeignKeys = append(stmt.ForeignKeys, fk)
		} else {
			col, err := p.parseColumnDef()
			if err != nil {
				return nil, err
			}
			stmt.Columns = append(stmt.Columns, col)
		}

		if p.cur.Kind == token.COMMA {
			if err := p.next(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}

	p.lex.ExitColumnDefs()
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseColumnDef() (*ast.ColumnDef, error) {
	pos := p.cur.Pos
	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	col := &ast.ColumnDef{Pos: pos, Name: nameTok.Literal}

	switch p.cur.Kind {
	case token.INTEGER:
		col.Type = ast.IntType
	case token.STRINGKW:
		col.Type = ast.StrType
	default:
		return nil, p.errf("expected INTEGER or STRING")
	}
	if err := p.next(); err != nil {
		return nil, err
	}

	for {
		switch p.cur.Kind {
		case token.PRIMARY:
			if err := p.next(); err != nil {
				return nil, err
			}
			if err := p.advanceKeyword(token.KEY); err != nil {
				return nil, err
			}
			col.IsPrimaryKey = true
		case token.AUTO_INCREMENT:
			if err := p.next(); err != nil {
				return nil, err
			}
			col.IsAutoIncr = true
		case token.NOT:
			if err := p.next(); err != nil {
				return nil, err
			}
			if err := p.advanceKeyword(token.NULL); err != nil {
				return nil, err
			}
			col.IsNotNull = true
		default:
			return col, nil
		}
	}
}

func (p *Parser) parseForeignKeyDef() (*ast.ForeignKeyDef, error) {
	pos := p.cur.Pos
	if err := p.next(); err != nil { // consume demoted "FOREIGN" ident
		return nil, err
	}
	if err := p.advanceKeyword(token.KEY); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	colTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	if err := p.advanceKeyword(token.REFERENCES); err != nil {
		return nil, err
	}
	refTableTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	refColTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return &ast.ForeignKeyDef{
		Pos: pos, Column: colTok.Literal, RefTable: refTableTok.Literal, RefColumn: refColTok.Literal,
	}, nil
}

func (p *Parser) parseDrop() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advanceKeyword(token.DROP); err != nil {
		return nil, err
	}
	switch p.cur.Kind {
	case token.TABLE:
		if err := p.next(); err != nil {
			return nil, err
		}
		nameTok, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		return &ast.DropTableStmt{Pos: pos, Name: nameTok.Literal}, nil
	case token.INDEX:
		if err := p.next(); err != nil {
			return nil, err
		}
		if err := p.advanceKeyword(token.ON); err != nil {
			return nil, err
		}
		tableTok, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.LPAREN); err != nil {
			return nil, err
		}
		colTok, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return &ast.DropIndexStmt{Pos: pos, Table: tableTok.Literal, Column: colTok.Literal}, nil
	default:
		return nil, p.errf("expected TABLE or INDEX")
	}
}

func (p *Parser) parseCreateIndex(pos token.Position) (ast.Statement, error) {
	if err := p.advanceKeyword(token.INDEX); err != nil {
		return nil, err
	}
	if err := p.advanceKeyword(token.ON); err != nil {
		return nil, err
	}
	tableTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	colTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return &ast.CreateIndexStmt{Pos: pos, Table: tableTok.Literal, Column: colTok.Literal}, nil
}

// ---- Utility statements ----

func (p *Parser) parseShowTables() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advanceKeyword(token.SHOW); err != nil {
		return nil, err
	}
	if err := p.advanceKeyword(token.TABLES); err != nil {
		return nil, err
	}
	return &ast.ShowTablesStmt{Pos: pos}, nil
}

func (p *Parser) parseDescribe() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advanceKeyword(token.DESCRIBE); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	return &ast.DescribeStmt{Pos: pos, Table: nameTok.Literal}, nil
}

// ---- DML ----

func (p *Parser) parseInsert() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advanceKeyword(token.INSERT); err != nil {
		return nil, err
	}
	if err := p.advanceKeyword(token.INTO); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	stmt := &ast.InsertStmt{Pos: pos, Table: nameTok.Literal}

	if p.cur.Kind == token.LPAREN {
		if err := p.next(); err != nil {
			return nil, err
		}
		for {
			colTok, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			stmt.Columns = append(stmt.Columns, colTok.Literal)
			if p.cur.Kind == token.COMMA {
				if err := p.next(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
	}

	if err := p.advanceKeyword(token.VALUES); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	for {
		val, err := p.parseLiteralExpr()
		if err != nil {
			return nil, err
		}
		stmt.Values = append(stmt.Values, val)
		if p.cur.Kind == token.COMMA {
			if err := p.next(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseLiteralExpr() (ast.Expr, error) {
	pos := p.cur.Pos
	switch p.cur.Kind {
	case token.INT:
		lit := p.cur.Literal
		if err := p.next(); err != nil {
			return nil, err
		}
		v, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			return nil, dbmserr.NewParseError(pos.Line, pos.Col, lit, "invalid integer literal")
		}
		return &ast.IntLit{Pos: pos, Value: v}, nil
	case token.STRING:
		lit := p.cur.Literal
		if err := p.next(); err != nil {
			return nil, err
		}
		return &ast.StrLit{Pos: pos, Value: lit}, nil
	default:
		return nil, p.errf("expected a literal value")
	}
}

func (p *Parser) parseUpdate() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advanceKeyword(token.UPDATE); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if err := p.advanceKeyword(token.SET); err != nil {
		return nil, err
	}
	stmt := &ast.UpdateStmt{Pos: pos, Table: nameTok.Literal}
	for {
		colTok, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.EQ); err != nil {
			return nil, err
		}
		val, err := p.parseLiteralExpr()
		if err != nil {
			return nil, err
		}
		stmt.Set = append(stmt.Set, ast.SetClause{Column: colTok.Literal, Value: val})
		if p.cur.Kind == token.COMMA {
			if err := p.next(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if p.cur.Kind == token.WHERE {
		if err := p.next(); err != nil {
			return nil, err
		}
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		stmt.Where = cond
	}
	return stmt, nil
}

func (p *Parser) parseDelete() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advanceKeyword(token.DELETE); err != nil {
		return nil, err
	}
	if err := p.advanceKeyword(token.FROM); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	stmt := &ast.DeleteStmt{Pos: pos, Table: nameTok.Literal}
	if p.cur.Kind == token.WHERE {
		if err := p.next(); err != nil {
			return nil, err
		}
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		stmt.Where = cond
	}
	return stmt, nil
}

// ---- SELECT ----

func (p *Parser) parseSelect() (*ast.SelectStmt, error) {
	pos := p.cur.Pos
	if err := p.advanceKeyword(token.SELECT); err != nil {
		return nil, err
	}
	proj, err := p.parseProjection()
	if err != nil {
		return nil, err
	}
	if err := p.advanceKeyword(token.FROM); err != nil {
		return nil, err
	}
	from, err := p.parseTableRef()
	if err != nil {
		return nil, err
	}

	stmt := &ast.SelectStmt{Pos: pos, Projection: proj, From: from}

	for p.cur.Kind == token.JOIN {
		join, err := p.parseJoinClause()
		if err != nil {
			return nil, err
		}
		stmt.Joins = append(stmt.Joins, join)
	}

	if p.cur.Kind == token.WHERE {
		if err := p.next(); err != nil {
			return nil, err
		}
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		stmt.Where = cond
	}

	if p.cur.Kind == token.GROUP {
		if err := p.next(); err != nil {
			return nil, err
		}
		if err := p.advanceKeyword(token.BY); err != nil {
			return nil, err
		}
		cols, err := p.parseIdentList()
		if err != nil {
			return nil, err
		}
		stmt.GroupBy = cols
	}

	if p.cur.Kind == token.HAVING {
		if err := p.next(); err != nil {
			return nil, err
		}
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		stmt.Having = cond
	}

	if p.cur.Kind == token.ORDER {
		if err := p.next(); err != nil {
			return nil, err
		}
		if err := p.advanceKeyword(token.BY); err != nil {
			return nil, err
		}
		items, err := p.parseOrderList()
		if err != nil {
			return nil, err
		}
		stmt.OrderBy = items
	}

	if p.cur.Kind == token.LIMIT {
		if err := p.next(); err != nil {
			return nil, err
		}
		n, err := p.expect(token.INT)
		if err != nil {
			return nil, err
		}
		v, _ := strconv.Atoi(n.Literal)
		stmt.Limit = &v

		if p.cur.Kind == token.OFFSET {
			if err := p.next(); err != nil {
				return nil, err
			}
			m, err := p.expect(token.INT)
			if err != nil {
				return nil, err
			}
			ov, _ := strconv.Atoi(m.Literal)
			stmt.Offset = &ov
		}
	}

	return stmt, nil
}

func (p *Parser) parseIdentList() ([]string, error) {
	var out []string
	for {
		tok, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		out = append(out, tok.Literal)
		if p.cur.Kind == token.COMMA {
			if err := p.next(); err != nil {
				return nil, err
			}
			continue
		}
		return out, nil
	}
}

func (p *Parser) parseOrderList() ([]ast.OrderItem, error) {
	var out []ast.OrderItem
	for {
		qual, name, err := p.parseQualifiedIdent()
		if err != nil {
			return nil, err
		}
		item := ast.OrderItem{Qualifier: qual, Column: name}
		switch p.cur.Kind {
		case token.ASC:
			if err := p.next(); err != nil {
				return nil, err
			}
		case token.DESC:
			item.Desc = true
			if err := p.next(); err != nil {
				return nil, err
			}
		}
		out = append(out, item)
		if p.cur.Kind == token.COMMA {
			if err := p.next(); err != nil {
				return nil, err
			}
			continue
		}
		return out, nil
	}
}

func (p *Parser) parseQualifiedIdent() (qualifier, name string, err error) {
	first, err := p.expect(token.IDENT)
	if err != nil {
		return "", "", err
	}
	if p.cur.Kind == token.DOT {
		if err := p.next(); err != nil {
			return "", "", err
		}
		second, err := p.expect(token.IDENT)
		if err != nil {
			return "", "", err
		}
		return first.Literal, second.Literal, nil
	}
	return "", first.Literal, nil
}

func (p *Parser) parseProjection() (ast.Projection, error) {
	pos := p.cur.Pos
	if p.cur.Kind == token.STAR {
		if err := p.next(); err != nil {
			return nil, err
		}
		return &ast.AllColumns{Pos: pos}, nil
	}

	list := &ast.ColumnList{Pos: pos}
	for {
		item, err := p.parseColumnItem()
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, item)
		if p.cur.Kind == token.COMMA {
			if err := p.next(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return list, nil
}

var aggKinds = map[token.Kind]ast.AggFunc{
	token.COUNT: ast.AggCount,
	token.SUM:   ast.AggSum,
	token.AVG:   ast.AggAvg,
	token.MIN:   ast.AggMin,
	token.MAX:   ast.AggMax,
}

func (p *Parser) parseColumnItem() (ast.ColumnItem, error) {
	pos := p.cur.Pos
	if fn, ok := aggKinds[p.cur.Kind]; ok {
		if err := p.next(); err != nil {
			return nil, err
		}
		if _, err := p.expect(token.LPAREN); err != nil {
			return nil, err
		}
		item := &ast.AggregateItem{Pos: pos, Func: fn}
		if p.cur.Kind == token.STAR {
			item.IsStar = true
			if err := p.next(); err != nil {
				return nil, err
			}
		} else {
			argTok, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			item.Arg = argTok.Literal
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		alias, err := p.parseOptionalAlias()
		if err != nil {
			return nil, err
		}
		item.Alias = alias
		return item, nil
	}

	qual, name, err := p.parseQualifiedIdent()
	if err != nil {
		return nil, err
	}
	ref := &ast.ColumnRef{Pos: pos, Qualifier: qual, Name: name}
	alias, err := p.parseOptionalAlias()
	if err != nil {
		return nil, err
	}
	ref.Alias = alias
	return ref, nil
}

// parseOptionalAlias consumes "[AS] alias" if present.
func (p *Parser) parseOptionalAlias() (string, error) {
	if p.cur.Kind == token.AS {
		if err := p.next(); err != nil {
			return "", err
		}
		tok, err := p.expect(token.IDENT)
		if err != nil {
			return "", err
		}
		return tok.Literal, nil
	}
	if p.cur.Kind == token.IDENT {
		tok := p.cur
		if err := p.next(); err != nil {
			return "", err
		}
		return tok.Literal, nil
	}
	return "", nil
}

func (p *Parser) parseTableRef() (ast.TableRef, error) {
	pos := p.cur.Pos
	if p.cur.Kind == token.LPAREN {
		if err := p.next(); err != nil {
			return nil, err
		}
		sub, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		alias, err := p.parseOptionalAlias()
		if err != nil {
			return nil, err
		}
		if alias == "" {
			return nil, p.errf("derived table requires an alias")
		}
		return &ast.DerivedTable{Pos: pos, Select: sub, Alias: alias}, nil
	}

	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	alias, err := p.parseOptionalAlias()
	if err != nil {
		return nil, err
	}
	if alias == "" {
		alias = nameTok.Literal
	}
	return &ast.NamedTable{Pos: pos, Name: nameTok.Literal, Alias: alias}, nil
}

func (p *Parser) parseJoinClause() (*ast.JoinClause, error) {
	pos := p.cur.Pos
	if err := p.advanceKeyword(token.JOIN); err != nil {
		return nil, err
	}
	tableRef, err := p.parseTableRef()
	if err != nil {
		return nil, err
	}
	if err := p.advanceKeyword(token.ON); err != nil {
		return nil, err
	}
	eq, err := p.parseEqCond()
	if err != nil {
		return nil, err
	}
	return &ast.JoinClause{Pos: pos, Table: tableRef, On: eq}, nil
}

// parseEqCond parses exactly "ident.ident = ident.ident" (spec.md §4.2).
func (p *Parser) parseEqCond() (ast.EqCond, error) {
	pos := p.cur.Pos
	lt, lc, err := p.parseQualifiedIdent()
	if err != nil {
		return ast.EqCond{}, err
	}
	if lt == "" {
		return ast.EqCond{}, p.errf("join condition requires qualified columns (alias.column)")
	}
	if _, err := p.expect(token.EQ); err != nil {
		return ast.EqCond{}, err
	}
	rt, rc, err := p.parseQualifiedIdent()
	if err != nil {
		return ast.EqCond{}, err
	}
	if rt == "" {
		return ast.EqCond{}, p.errf("join condition requires qualified columns (alias.column)")
	}
	return ast.EqCond{Pos: pos, LeftTable: lt, LeftColumn: lc, RightTable: rt, RightColumn: rc}, nil
}

// ---- Condition grammar: OR < AND < comparison ----

func (p *Parser) parseCondition() (ast.Condition, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (ast.Condition, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == token.OR {
		pos := p.cur.Pos
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.Or{Pos: pos, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Condition, error) {
	left, err := p.parseConditionAtom()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == token.AND {
		pos := p.cur.Pos
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parseConditionAtom()
		if err != nil {
			return nil, err
		}
		left = &ast.And{Pos: pos, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseConditionAtom() (ast.Condition, error) {
	if p.cur.Kind == token.LPAREN {
		if err := p.next(); err != nil {
			return nil, err
		}
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return cond, nil
	}

	left, err := p.parseScalarExpr()
	if err != nil {
		return nil, err
	}
	pos := p.cur.Pos

	if p.cur.Kind == token.IN {
		if err := p.next(); err != nil {
			return nil, err
		}
		if _, err := p.expect(token.LPAREN); err != nil {
			return nil, err
		}
		sub, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return &ast.InSubquery{Pos: pos, Left: left, Sub: sub}, nil
	}

	if p.cur.Kind == token.LIKE {
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parseScalarExpr()
		if err != nil {
			return nil, err
		}
		return &ast.Comparison{Pos: pos, Left: left, Op: ast.OpLike, Right: right}, nil
	}

	op, err := p.parseCompareOp()
	if err != nil {
		return nil, err
	}
	right, err := p.parseScalarExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Comparison{Pos: pos, Left: left, Op: op, Right: right}, nil
}

func (p *Parser) parseCompareOp() (ast.CompareOp, error) {
	kind := p.cur.Kind
	var op ast.CompareOp
	switch kind {
	case token.EQ:
		op = ast.OpEq
	case token.NEQ:
		op = ast.OpNeq
	case token.LT:
		op = ast.OpLt
	case token.GT:
		op = ast.OpGt
	case token.LE:
		op = ast.OpLe
	case token.GE:
		op = ast.OpGe
	default:
		return 0, p.errf("expected a comparison operator")
	}
	if err := p.next(); err != nil {
		return 0, err
	}
	return op, nil
}

func (p *Parser) parseScalarExpr() (ast.Expr, error) {
	pos := p.cur.Pos
	if fn, ok := aggKinds[p.cur.Kind]; ok {
		if err := p.next(); err != nil {
			return nil, err
		}
		if _, err := p.expect(token.LPAREN); err != nil {
			return nil, err
		}
		expr := &ast.AggregateExpr{Pos: pos, Func: fn}
		if p.cur.Kind == token.STAR {
			expr.IsStar = true
			if err := p.next(); err != nil {
				return nil, err
			}
		} else {
			argTok, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			expr.Arg = argTok.Literal
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return expr, nil
	}

	switch p.cur.Kind {
	case token.INT, token.STRING:
		return p.parseLiteralExpr()
	case token.IDENT:
		qual, name, err := p.parseQualifiedIdent()
		if err != nil {
			return nil, err
		}
		return &ast.ColumnExpr{Pos: pos, Qualifier: qual, Name: name}, nil
	default:
		return nil, p.errf("expected an expression")
	}
}
