package engine

import (
	"fmt"
	"math"
	"sync"

	"github.com/pieczasz/dbms/internal/ast"
	"github.com/pieczasz/dbms/internal/value"
)

// aggregateFunc reduces one group's already-collected present values down to
// a single scalar. present is the count of non-absent values seen for the
// aggregate's argument column; nums holds only the Int-kind ones, since SUM/
// AVG/MIN/MAX are only meaningful over integers in this data model.
type aggregateFunc func(nums []int64, present int) value.Value

var (
	aggregateMu       sync.RWMutex
	aggregateRegistry = make(map[ast.AggFunc]aggregateFunc)
)

// registerAggregate installs fn as the implementation of name, overwriting
// any previous registration. Mirrors the dialect package's RegisterDialect.
func registerAggregate(name ast.AggFunc, fn aggregateFunc) {
	aggregateMu.Lock()
	defer aggregateMu.Unlock()
	aggregateRegistry[name] = fn
}

// lookupAggregate returns the registered implementation of name.
func lookupAggregate(name ast.AggFunc) (aggregateFunc, error) {
	aggregateMu.RLock()
	defer aggregateMu.RUnlock()
	fn, ok := aggregateRegistry[name]
	if !ok {
		return nil, fmt.Errorf("engine: unknown aggregate function %q", name)
	}
	return fn, nil
}

func init() {
	registerAggregate(ast.AggCount, func(_ []int64, present int) value.Value {
		return value.OfInt(int64(present))
	})
	registerAggregate(ast.AggSum, func(nums []int64, present int) value.Value {
		if present == 0 {
			return value.Nil
		}
		return value.OfInt(sumInts(nums))
	})
	registerAggregate(ast.AggAvg, func(nums []int64, present int) value.Value {
		if present == 0 {
			return value.Nil
		}
		// The original rounds the average (round(avg, 2)) rather than
		// truncating; this engine's integer-only value model rounds to the
		// nearest whole number instead of keeping two decimal places.
		avg := math.Round(float64(sumInts(nums)) / float64(present))
		return value.OfInt(int64(avg))
	})
	registerAggregate(ast.AggMin, func(nums []int64, present int) value.Value {
		if len(nums) == 0 {
			return value.Nil
		}
		return value.OfInt(minInt(nums))
	})
	registerAggregate(ast.AggMax, func(nums []int64, present int) value.Value {
		if len(nums) == 0 {
			return value.Nil
		}
		return value.OfInt(maxInt(nums))
	})
}
