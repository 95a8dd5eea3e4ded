// Package token defines the lexical token kinds produced by internal/lexer
// and consumed by internal/parser.
package token

// Kind identifies the lexical class of a Token.
type Kind int

const (
	EOF Kind = iota
	ILLEGAL

	IDENT  // column_name, table_name, alias
	INT    // 123
	STRING // 'hello' or "hello"

	// Punctuation
	COMMA     // ,
	SEMICOLON // ;
	LPAREN    // (
	RPAREN    // )
	DOT       // .
	STAR      // *

	// Comparison operators
	EQ  // =
	NEQ // != or <>
	LT  // <
	GT  // >
	LE  // <=
	GE  // >=

	keywordsBegin
	SELECT
	FROM
	WHERE
	CREATE
	TABLE
	DROP
	INDEX
	ON
	INSERT
	INTO
	VALUES
	DELETE
	UPDATE
	SET
	ORDER
	BY
	HAVING
	JOIN
	ASC
	DESC
	AND
	OR
	INTEGER
	STRINGKW
	PRIMARY
	KEY
	FOREIGN
	REFERENCES
	SHOW
	TABLES
	DESCRIBE
	AS
	IN
	LIMIT
	OFFSET
	GROUP
	AUTO_INCREMENT
	COUNT
	AVG
	SUM
	MAX
	MIN
	LIKE
	NOT
	NULL
	keywordsEnd
)

// Keywords maps the upper-cased spelling of every reserved word (§6) to its
// token kind. The lexer is case-insensitive; it upper-cases an identifier
// candidate before looking it up here.
var Keywords = map[string]Kind{
	"SELECT":         SELECT,
	"FROM":           FROM,
	"WHERE":          WHERE,
	"CREATE":         CREATE,
	"TABLE":          TABLE,
	"DROP":           DROP,
	"INDEX":          INDEX,
	"ON":             ON,
	"INSERT":         INSERT,
	"INTO":           INTO,
	"VALUES":         VALUES,
	"DELETE":         DELETE,
	"UPDATE":         UPDATE,
	"SET":            SET,
	"ORDER":          ORDER,
	"BY":             BY,
	"HAVING":         HAVING,
	"JOIN":           JOIN,
	"ASC":            ASC,
	"DESC":           DESC,
	"AND":            AND,
	"OR":             OR,
	"INTEGER":        INTEGER,
	"STRING":         STRINGKW,
	"PRIMARY":        PRIMARY,
	"KEY":            KEY,
	"FOREIGN":        FOREIGN,
	"REFERENCES":     REFERENCES,
	"SHOW":           SHOW,
	"TABLES":         TABLES,
	"DESCRIBE":       DESCRIBE,
	"AS":             AS,
	"IN":             IN,
	"LIMIT":          LIMIT,
	"OFFSET":         OFFSET,
	"GROUP":          GROUP,
	"AUTO_INCREMENT": AUTO_INCREMENT,
	"COUNT":          COUNT,
	"AVG":            AVG,
	"SUM":            SUM,
	"MAX":            MAX,
	"MIN":            MIN,
	"LIKE":           LIKE,
	"NOT":            NOT,
	"NULL":           NULL,
}

// IsKeyword reports whether k is one of the reserved words in §6, as opposed
// to a literal, punctuation mark, or identifier.
func IsKeyword(k Kind) bool { return k > keywordsBegin && k < keywordsEnd }

// Position is a 1-based line/column/byte-offset location used for
// diagnostics; it is not part of the surface contract, only implementation
// bookkeeping (spec.md §3, "AST" note).
type Position struct {
	Line, Col, Offset int
}

// Token is one classified lexical unit.
type Token struct {
	Kind    Kind
	Literal string
	Pos     Position
}

var kindNames = map[Kind]string{
	EOF: "EOF", ILLEGAL: "ILLEGAL", IDENT: "IDENT", INT: "INT", STRING: "STRING",
	COMMA: ",", SEMICOLON: ";", LPAREN: "(", RPAREN: ")", DOT: ".", STAR: "*",
	EQ: "=", NEQ: "!=", LT: "<", GT: ">", LE: "<=", GE: ">=",
}

func init() {
	for word, kind := range Keywords {
		kindNames[kind] = word
	}
}

// String renders a human-readable name for k, used in diagnostics.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}
