package engine

import (
	"regexp"
	"strings"

	"github.com/pieczasz/dbms/internal/ast"
	"github.com/pieczasz/dbms/internal/value"
)

// exprToValue converts a literal AST expression to its value. The validator
// guarantees every value-producing Expr reaching this point is a literal.
func exprToValue(expr ast.Expr) value.Value {
	switch e := expr.(type) {
	case *ast.IntLit:
		return value.OfInt(e.Value)
	case *ast.StrLit:
		return value.OfStr(e.Value)
	default:
		return value.Nil
	}
}

// compareValues implements the comparison table of spec.md §8's B6: any
// comparison against an absent value is false, never an error.
func compareValues(op ast.CompareOp, l, r value.Value) bool {
	if l.IsAbsent() || r.IsAbsent() {
		return false
	}
	switch op {
	case ast.OpEq:
		return l.Equal(r)
	case ast.OpNeq:
		return !l.Equal(r)
	case ast.OpLt:
		return l.Less(r)
	case ast.OpLe:
		return l.Less(r) || l.Equal(r)
	case ast.OpGt:
		return r.Less(l)
	case ast.OpGe:
		return r.Less(l) || l.Equal(r)
	case ast.OpLike:
		return likeMatch(l, r)
	default:
		return false
	}
}

func likeMatch(l, r value.Value) bool {
	if l.Kind() != value.Str || r.Kind() != value.Str {
		return false
	}
	// QuoteMeta leaves % and _ unescaped, so they can be swapped directly.
	pattern := regexp.QuoteMeta(r.Str())
	pattern = strings.ReplaceAll(pattern, "%", ".*")
	pattern = strings.ReplaceAll(pattern, "_", ".")
	pattern = "^" + pattern + "$"
	matched, err := regexp.MatchString(pattern, l.Str())
	return err == nil && matched
}
