// Package lexer turns a SQL source string into a stream of tokens for
// internal/parser. It implements the contextual keyword-demotion rule
// described in spec.md §4.1: inside a CREATE TABLE column-definition list,
// an identifier immediately following "(" or "," is never classified as a
// reserved word, so a column can be named e.g. "count" without colliding
// with the COUNT aggregate.
package lexer

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pieczasz/dbms/internal/dbmserr"
	"github.com/pieczasz/dbms/internal/token"
)

// upper folds ASCII identifiers to upper-case for keyword lookup. Reserved
// words are ASCII, so a simple cases.Upper caser (rather than hand-rolled
// byte math) keeps the fold consistent with how the rest of the pack
// normalizes SQL text (freeeve-machparse and ValkDB-postgresparser both
// carry golang.org/x/text for this purpose).
var upper = cases.Upper(language.Und)

// Lexer is a single-pass, backtrack-free tokenizer over a SQL statement.
type Lexer struct {
	src  string
	off  int
	line int
	col  int

	inColumnDefs bool
	demoteNext   bool
}

// New creates a Lexer over src. Trailing ";" stripping happens in the parser,
// per spec.md §4.2 ("Trailing ; is stripped before parsing").
func New(src string) *Lexer {
	return &Lexer{src: src, line: 1, col: 1}
}

// EnterColumnDefs switches on column-definition mode; called by the parser
// immediately after it consumes the "(" that opens a CREATE TABLE column
// list.
func (l *Lexer) EnterColumnDefs() { l.inColumnDefs = true }

// ExitColumnDefs switches column-definition mode back off; called by the
// parser immediately before it consumes the matching ")".
func (l *Lexer) ExitColumnDefs() { l.inColumnDefs = false; l.demoteNext = false }

func (l *Lexer) peekByte() byte {
	if l.off >= len(l.src) {
		return 0
	}
	return l.src[l.off]
}

func (l *Lexer) peekByteAt(n int) byte {
	if l.off+n >= len(l.src) {
		return 0
	}
	return l.src[l.off+n]
}

func (l *Lexer) advance() byte {
	ch := l.src[l.off]
	l.off++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

func (l *Lexer) skipWhitespace() {
	for l.off < len(l.src) {
		switch l.peekByte() {
		case ' ', '\t', '\r', '\n':
			l.advance()
		default:
			return
		}
	}
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentCont(ch byte) bool { return isIdentStart(ch) || isDigit(ch) }

func (l *Lexer) pos() token.Position {
	return token.Position{Line: l.line, Col: l.col, Offset: l.off}
}

// NextToken scans and returns the next token, or a *dbmserr.LexError if the
// next byte does not begin any recognized token.
func (l *Lexer) NextToken() (token.Token, error) {
	l.skipWhitespace()

	pos := l.pos()
	if l.off >= len(l.src) {
		return token.Token{Kind: token.EOF, Pos: pos}, nil
	}

	ch := l.peekByte()

	switch {
	case isDigit(ch):
		return l.scanInt(pos), nil
	case ch == '\'' || ch == '"':
		return l.scanString(pos)
	case isIdentStart(ch):
		return l.scanIdentOrKeyword(pos), nil
	}

	l.demoteNext = false

	switch ch {
	case ',':
		l.advance()
		if l.inColumnDefs {
			l.demoteNext = true
		}
		return token.Token{Kind: token.COMMA, Literal: ",", Pos: pos}, nil
	case ';':
		l.advance()
		return token.Token{Kind: token.SEMICOLON, Literal: ";", Pos: pos}, nil
	case '(':
		l.advance()
		if l.inColumnDefs {
			l.demoteNext = true
		}
		return token.Token{Kind: token.LPAREN, Literal: "(", Pos: pos}, nil
	case ')':
		l.advance()
		return token.Token{Kind: token.RPAREN, Literal: ")", Pos: pos}, nil
	case '.':
		l.advance()
		return token.Token{Kind: token.DOT, Literal: ".", Pos: pos}, nil
	case '*':
		l.advance()
		return token.Token{Kind: token.STAR, Literal: "*", Pos: pos}, nil
	case '=':
		l.advance()
		return token.Token{Kind: token.EQ, Literal: "=", Pos: pos}, nil
	case '!':
		l.advance()
		if l.peekByte() == '=' {
			l.advance()
			return token.Token{Kind: token.NEQ, Literal: "!=", Pos: pos}, nil
		}
		return token.Token{}, dbmserr.NewLexError(pos.Line, pos.Col, ch)
	case '<':
		l.advance()
		switch l.peekByte() {
		case '=':
			l.advance()
			return token.Token{Kind: token.LE, Literal: "<=", Pos: pos}, nil
		case '>':
			l.advance()
			return token.Token{Kind: token.NEQ, Literal: "<>", Pos: pos}, nil
		}
		return token.Token{Kind: token.LT, Literal: "<", Pos: pos}, nil
	case '>':
		l.advance()
		if l.peekByte() == '=' {
			l.advance()
			return token.Token{Kind: token.GE, Literal: ">=", Pos: pos}, nil
		}
		return token.Token{Kind: token.GT, Literal: ">", Pos: pos}, nil
	}

	l.advance()
	return token.Token{}, dbmserr.NewLexError(pos.Line, pos.Col, ch)
}

func (l *Lexer) scanInt(pos token.Position) token.Token {
	start := l.off
	for l.off < len(l.src) && isDigit(l.peekByte()) {
		l.advance()
	}
	return token.Token{Kind: token.INT, Literal: l.src[start:l.off], Pos: pos}
}

// scanString preserves the inner bytes verbatim; the quote character used is
// not semantic (spec.md §4.1). No escape processing beyond the closing
// quote is performed, matching the corpus's string literals.
func (l *Lexer) scanString(pos token.Position) (token.Token, error) {
	quote := l.advance()
	start := l.off
	for {
		if l.off >= len(l.src) {
			return token.Token{}, dbmserr.NewLexError(pos.Line, pos.Col, quote)
		}
		if l.peekByte() == quote {
			lit := l.src[start:l.off]
			l.advance()
			return token.Token{Kind: token.STRING, Literal: lit, Pos: pos}, nil
		}
		l.advance()
	}
}

func (l *Lexer) scanIdentOrKeyword(pos token.Position) token.Token {
	start := l.off
	for l.off < len(l.src) && isIdentCont(l.peekByte()) {
		l.advance()
	}
	lit := l.src[start:l.off]

	demoted := l.demoteNext
	l.demoteNext = false

	if demoted {
		return token.Token{Kind: token.IDENT, Literal: lit, Pos: pos}
	}
	if kind, ok := token.Keywords[upper.String(lit)]; ok {
		return token.Token{Kind: kind, Literal: lit, Pos: pos}
	}
	return token.Token{Kind: token.IDENT, Literal: lit, Pos: pos}
}
