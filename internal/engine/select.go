package engine

import (
	"sort"
	"strings"

	"github.com/pieczasz/dbms/internal/ast"
	"github.com/pieczasz/dbms/internal/optimizer"
	"github.com/pieczasz/dbms/internal/validator"
	"github.com/pieczasz/dbms/internal/value"
)

// row is a single intermediate tuple. Before projection its keys are
// "alias.column"; aggregateGroup also uses this shape for its computed
// aggregate values, keyed by aggKey. Projection adds the statement's output
// column names onto a copy rather than discarding the alias-qualified keys,
// so ORDER BY can still resolve a column that was not itself projected.
type row map[string]value.Value

func (e *Engine) execSelect(stmt *ast.SelectStmt) (*Result, error) {
	bound, err := e.vtor.Validate(stmt)
	if err != nil {
		return nil, err
	}
	cols, rows, err := e.runSelect(bound)
	if err != nil {
		return nil, err
	}
	return formatResult(cols, rows), nil
}

// runSelect executes the nine-step pipeline of spec.md §4.5 ("SELECT
// execution order") and returns typed rows keyed by output column name,
// reused both for a top-level SELECT and for a derived table/subquery.
func (e *Engine) runSelect(bound *validator.BoundSelect) ([]string, []row, error) {
	cache, err := e.buildSubqueryCache(bound)
	if err != nil {
		return nil, nil, err
	}

	plan := optimizer.Plan(bound, e.planStats())

	scans := make(map[string][]row, len(bound.Order))
	for _, alias := range bound.Order {
		rows, err := e.scanAlias(bound, alias, plan.ScanPredicates[alias], cache)
		if err != nil {
			return nil, nil, err
		}
		scans[alias] = rows
	}

	current := scans[bound.Order[0]]
	for _, step := range plan.Joins {
		current = executeJoin(current, scans[step.Alias], step.Alias, step.Strategy)
	}

	if plan.Remainder != nil {
		current = filterRows(current, func(r row) bool {
			return e.evalConditionRow(plan.Remainder, r, bound, cache)
		})
	}

	aggregated := current
	if len(bound.Stmt.GroupBy) > 0 || projectionHasAggregate(bound.Stmt.Projection) {
		aggregated = e.groupRows(current, bound)
		if plan.Having != nil {
			aggregated = filterRows(aggregated, func(r row) bool {
				return e.evalConditionRow(plan.Having, r, bound, cache)
			})
		}
	}

	cols, projected := e.project(aggregated, bound)
	orderRows(projected, bound.Stmt.OrderBy, bound)
	projected = applyOffsetLimit(projected, bound.Stmt.Offset, bound.Stmt.Limit)

	return cols, projected, nil
}

func filterRows(rows []row, keep func(row) bool) []row {
	out := make([]row, 0, len(rows))
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// ---- scan ----

func (e *Engine) scanAlias(bound *validator.BoundSelect, alias string, predicate ast.Condition, cache subqueryCache) ([]row, error) {
	binding := bound.Aliases[alias]

	var base []row
	if binding.Table != nil {
		for _, rec := range e.store.Table(binding.Table.Name).Scan() {
			r := make(row, len(rec.Values))
			for col, v := range rec.Values {
				r[alias+"."+col] = v
			}
			base = append(base, r)
		}
	} else {
		innerBound, err := e.vtor.Validate(binding.Derived)
		if err != nil {
			return nil, err
		}
		cols, innerRows, err := e.runSelect(innerBound)
		if err != nil {
			return nil, err
		}
		for _, ir := range innerRows {
			r := make(row, len(cols))
			for _, c := range cols {
				r[alias+"."+c] = ir[c]
			}
			base = append(base, r)
		}
	}

	return filterRows(base, func(r row) bool {
		return e.evalConditionRow(predicate, r, bound, cache)
	}), nil
}

// ---- expression/condition evaluation ----

func aggKey(fn ast.AggFunc, arg string, isStar bool) string {
	if isStar {
		return fn.String() + "(*)"
	}
	return fn.String() + "(" + arg + ")"
}

func evalRowExpr(expr ast.Expr, r row, bound *validator.BoundSelect) value.Value {
	switch e := expr.(type) {
	case *ast.IntLit:
		return value.OfInt(e.Value)
	case *ast.StrLit:
		return value.OfStr(e.Value)
	case *ast.ColumnExpr:
		alias := validator.ResolveAlias(bound, e.Qualifier, e.Name)
		if v, ok := r[alias+"."+e.Name]; ok {
			return v
		}
		return r[e.Name]
	case *ast.AggregateExpr:
		return r[aggKey(e.Func, e.Arg, e.IsStar)]
	default:
		return value.Nil
	}
}

// subqueryCache holds each IN-subquery's result set, computed once up front
// since spec.md §4.2 restricts this grammar to an uncorrelated "expr IN
// (select)" (the subquery never references the outer row).
type subqueryCache map[*ast.InSubquery]map[value.Value]bool

func (e *Engine) buildSubqueryCache(bound *validator.BoundSelect) (subqueryCache, error) {
	cache := make(subqueryCache)
	if err := e.collectSubqueries(bound.Stmt.Where, cache); err != nil {
		return nil, err
	}
	if err := e.collectSubqueries(bound.Stmt.Having, cache); err != nil {
		return nil, err
	}
	return cache, nil
}

func (e *Engine) collectSubqueries(cond ast.Condition, cache subqueryCache) error {
	switch c := cond.(type) {
	case *ast.And:
		if err := e.collectSubqueries(c.Left, cache); err != nil {
			return err
		}
		return e.collectSubqueries(c.Right, cache)
	case *ast.Or:
		if err := e.collectSubqueries(c.Left, cache); err != nil {
			return err
		}
		return e.collectSubqueries(c.Right, cache)
	case *ast.InSubquery:
		innerBound, err := e.vtor.Validate(c.Sub)
		if err != nil {
			return err
		}
		cols, rows, err := e.runSelect(innerBound)
		if err != nil {
			return err
		}
		set := make(map[value.Value]bool, len(rows))
		if len(cols) > 0 {
			for _, r := range rows {
				set[r[cols[0]]] = true
			}
		}
		cache[c] = set
		return nil
	default:
		return nil
	}
}

func (e *Engine) evalConditionRow(cond ast.Condition, r row, bound *validator.BoundSelect, cache subqueryCache) bool {
	switch c := cond.(type) {
	case nil:
		return true
	case *ast.And:
		return e.evalConditionRow(c.Left, r, bound, cache) && e.evalConditionRow(c.Right, r, bound, cache)
	case *ast.Or:
		return e.evalConditionRow(c.Left, r, bound, cache) || e.evalConditionRow(c.Right, r, bound, cache)
	case *ast.Comparison:
		return compareValues(c.Op, evalRowExpr(c.Left, r, bound), evalRowExpr(c.Right, r, bound))
	case *ast.InSubquery:
		v := evalRowExpr(c.Left, r, bound)
		found := cache[c][v]
		if c.Negate {
			return !found
		}
		return found
	default:
		return false
	}
}

// ---- grouping/aggregation ----

type aggSpec struct {
	Func   ast.AggFunc
	Arg    string
	IsStar bool
}

func projectionHasAggregate(proj ast.Projection) bool {
	list, ok := proj.(*ast.ColumnList)
	if !ok {
		return false
	}
	for _, item := range list.Items {
		if _, ok := item.(*ast.AggregateItem); ok {
			return true
		}
	}
	return false
}

func collectAggregates(stmt *ast.SelectStmt) []aggSpec {
	var specs []aggSpec
	if list, ok := stmt.Projection.(*ast.ColumnList); ok {
		for _, item := range list.Items {
			if a, ok := item.(*ast.AggregateItem); ok {
				specs = append(specs, aggSpec{Func: a.Func, Arg: a.Arg, IsStar: a.IsStar})
			}
		}
	}
	collectHavingAggregates(stmt.Having, &specs)
	return specs
}

func collectHavingAggregates(cond ast.Condition, specs *[]aggSpec) {
	switch c := cond.(type) {
	case *ast.And:
		collectHavingAggregates(c.Left, specs)
		collectHavingAggregates(c.Right, specs)
	case *ast.Or:
		collectHavingAggregates(c.Left, specs)
		collectHavingAggregates(c.Right, specs)
	case *ast.Comparison:
		collectExprAggregates(c.Left, specs)
		collectExprAggregates(c.Right, specs)
	}
}

func collectExprAggregates(expr ast.Expr, specs *[]aggSpec) {
	if a, ok := expr.(*ast.AggregateExpr); ok {
		*specs = append(*specs, aggSpec{Func: a.Func, Arg: a.Arg, IsStar: a.IsStar})
	}
}

// groupRows buckets rows by GroupBy (or treats the whole input as one group
// when an aggregate appears with no GROUP BY) and reduces each bucket to a
// single row carrying the group-by values plus every aggregate's result.
func (e *Engine) groupRows(rows []row, bound *validator.BoundSelect) []row {
	groupKeys := bound.Stmt.GroupBy
	if len(groupKeys) == 0 {
		return []row{e.aggregateGroup(rows, bound, nil)}
	}

	var order []string
	buckets := make(map[string][]row)
	keyOf := func(r row) string {
		parts := make([]string, len(groupKeys))
		for i, name := range groupKeys {
			alias := validator.ResolveAlias(bound, "", name)
			parts[i] = r[alias+"."+name].String()
		}
		return strings.Join(parts, "\x1f")
	}
	for _, r := range rows {
		k := keyOf(r)
		if _, ok := buckets[k]; !ok {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], r)
	}

	out := make([]row, 0, len(order))
	for _, k := range order {
		out = append(out, e.aggregateGroup(buckets[k], bound, groupKeys))
	}
	return out
}

func (e *Engine) aggregateGroup(group []row, bound *validator.BoundSelect, groupKeys []string) row {
	out := make(row)
	if len(group) > 0 {
		for _, name := range groupKeys {
			alias := validator.ResolveAlias(bound, "", name)
			out[alias+"."+name] = group[0][alias+"."+name]
		}
	}
	for _, spec := range collectAggregates(bound.Stmt) {
		out[aggKey(spec.Func, spec.Arg, spec.IsStar)] = computeAggregate(spec, group, bound)
	}
	return out
}

// computeAggregate implements COUNT/SUM/AVG/MIN/MAX over the Int/Str value
// model; AVG rounds to the nearest integer since there is no floating-point
// scalar type (spec.md §9's two-type data model).
func computeAggregate(spec aggSpec, group []row, bound *validator.BoundSelect) value.Value {
	if spec.IsStar {
		return value.OfInt(int64(len(group)))
	}
	alias := validator.ResolveAlias(bound, "", spec.Arg)

	var nums []int64
	present := 0
	for _, r := range group {
		v := r[alias+"."+spec.Arg]
		if v.IsAbsent() {
			continue
		}
		present++
		if v.Kind() == value.Int {
			nums = append(nums, v.Int())
		}
	}

	fn, err := lookupAggregate(spec.Func)
	if err != nil {
		return value.Nil
	}
	return fn(nums, present)
}

func sumInts(nums []int64) int64 {
	var sum int64
	for _, n := range nums {
		sum += n
	}
	return sum
}

func minInt(nums []int64) int64 {
	m := nums[0]
	for _, n := range nums[1:] {
		if n < m {
			m = n
		}
	}
	return m
}

func maxInt(nums []int64) int64 {
	m := nums[0]
	for _, n := range nums[1:] {
		if n > m {
			m = n
		}
	}
	return m
}

// ---- projection ----

// project adds each output column under its label onto a copy of the input
// row, preserving the original alias-qualified keys so a later ORDER BY can
// still resolve a column that was not selected.
func (e *Engine) project(rows []row, bound *validator.BoundSelect) ([]string, []row) {
	switch proj := bound.Stmt.Projection.(type) {
	case *ast.AllColumns:
		return e.projectAll(rows, bound)
	case *ast.ColumnList:
		return e.projectList(rows, proj, bound)
	default:
		return nil, nil
	}
}

func (e *Engine) projectAll(rows []row, bound *validator.BoundSelect) ([]string, []row) {
	type colSpec struct{ alias, name, header string }
	var specs []colSpec
	var cols []string
	multi := len(bound.Order) > 1

	for _, alias := range bound.Order {
		binding := bound.Aliases[alias]
		var names []string
		if binding.Table != nil {
			for _, c := range binding.Table.Columns {
				names = append(names, c.Name)
			}
		} else {
			names = binding.DerivedCols
		}
		for _, n := range names {
			header := n
			if multi {
				header = alias + "." + n
			}
			specs = append(specs, colSpec{alias, n, header})
			cols = append(cols, header)
		}
	}

	out := make([]row, 0, len(rows))
	for _, r := range rows {
		outRow := copyRow(r)
		for _, sp := range specs {
			outRow[sp.header] = r[sp.alias+"."+sp.name]
		}
		out = append(out, outRow)
	}
	return cols, out
}

func (e *Engine) projectList(rows []row, proj *ast.ColumnList, bound *validator.BoundSelect) ([]string, []row) {
	cols := make([]string, 0, len(proj.Items))
	for _, item := range proj.Items {
		cols = append(cols, item.OutputName())
	}

	out := make([]row, 0, len(rows))
	for _, r := range rows {
		outRow := copyRow(r)
		for _, item := range proj.Items {
			switch it := item.(type) {
			case *ast.ColumnRef:
				alias := validator.ResolveAlias(bound, it.Qualifier, it.Name)
				outRow[it.OutputName()] = r[alias+"."+it.Name]
			case *ast.AggregateItem:
				outRow[it.OutputName()] = r[aggKey(it.Func, it.Arg, it.IsStar)]
			}
		}
		out = append(out, outRow)
	}
	return cols, out
}

func copyRow(r row) row {
	out := make(row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ---- ORDER BY / OFFSET / LIMIT ----

func orderRows(rows []row, items []ast.OrderItem, bound *validator.BoundSelect) {
	if len(items) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, item := range items {
			a := resolveOrderValue(rows[i], item, bound)
			b := resolveOrderValue(rows[j], item, bound)
			if a.Equal(b) {
				continue
			}
			if item.Desc {
				return b.Less(a)
			}
			return a.Less(b)
		}
		return false
	})
}

func resolveOrderValue(r row, item ast.OrderItem, bound *validator.BoundSelect) value.Value {
	if item.Qualifier != "" {
		if v, ok := r[item.Qualifier+"."+item.Column]; ok {
			return v
		}
	}
	if v, ok := r[item.Column]; ok {
		return v
	}
	alias := validator.ResolveAlias(bound, "", item.Column)
	return r[alias+"."+item.Column]
}

func applyOffsetLimit(rows []row, offset, limit *int) []row {
	if offset != nil {
		o := *offset
		if o < 0 {
			o = 0
		}
		if o >= len(rows) {
			return nil
		}
		rows = rows[o:]
	}
	if limit != nil {
		l := *limit
		if l < 0 {
			l = 0
		}
		if l < len(rows) {
			rows = rows[:l]
		}
	}
	return rows
}

// ---- result formatting (spec.md §4.5, step 9) ----

func formatResult(cols []string, rows []row) *Result {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		line := make([]string, len(cols))
		for i, c := range cols {
			line[i] = r[c].String()
		}
		out = append(out, line)
	}
	return &Result{Columns: cols, Rows: out}
}
