// Package optimizer turns a validated SELECT into a PlanTree: it estimates
// predicate selectivity, reorders AND chains by ascending selectivity,
// pushes single-alias predicates down to their base-table scan, and picks a
// physical strategy for every join edge, per spec.md §4.4. The executor
// trusts these decisions and never reconsiders them.
package optimizer

import (
	"fmt"

	"github.com/k0kubun/pp/v3"

	"github.com/pieczasz/dbms/internal/ast"
	"github.com/pieczasz/dbms/internal/catalog"
	"github.com/pieczasz/dbms/internal/storage"
	"github.com/pieczasz/dbms/internal/validator"
)

// largeRelationThreshold is the row count above which two unindexed
// relations are joined by sort-merge rather than nested-loop (spec.md §4.4,
// rule 4's "large inputs" is left to the implementation to calibrate).
const largeRelationThreshold = 1000

// hashJoinThreshold is the combined cardinality above which a join edge
// always uses hash-join, per spec.md §4.4 rule 1.
const hashJoinThreshold = 10_000_000

// derivedTableCardinality is the row-count estimate used for a derived
// table, whose true size is unknown until it actually runs.
const derivedTableCardinality = 100

// Stats answers the cardinality/index questions the selectivity table and
// join-strategy decision tree need. Implemented by StatsOf.
type Stats interface {
	RecordCount(table string) int
	HasIndex(table, column string) bool
	UniqueKeyCount(table, column string) int
}

// StatsOf adapts a Catalog and a storage Manager into Stats.
type StatsOf struct {
	Catalog *catalog.Catalog
	Storage *storage.Manager
}

func (s StatsOf) RecordCount(table string) int {
	meta, ok := s.Catalog.GetTable(table)
	if !ok {
		return 0
	}
	return meta.RecordCount
}

func (s StatsOf) HasIndex(table, column string) bool {
	meta, ok := s.Catalog.GetTable(table)
	return ok && meta.Indexes[column]
}

func (s StatsOf) UniqueKeyCount(table, column string) int {
	idx, ok := s.Storage.Table(table).Index(column)
	if !ok {
		return 0
	}
	return idx.UniqueKeyCount()
}

// JoinStrategy is the chosen physical operator for one join edge.
type JoinStrategy struct {
	Method                   string // "hash-join", "index-nested-loop", "sort-merge", "nested-loop"
	Outer, Inner             string
	OuterColumn, InnerColumn string
	Swapped                  bool
	BuildSide                string // hash-join only; empty otherwise
}

// JoinStep is one entry of the plan's join sequence, in declared order.
type JoinStep struct {
	Alias    string // the alias introduced by this join (the Joins[i] table)
	On       ast.EqCond
	Strategy JoinStrategy
}

// PlanLine is one row of the informational execution_plan summary.
type PlanLine struct {
	Operator string
	Detail   string
	EstRows  int
}

// PlanTree is a validated Select annotated with optimizer decisions.
type PlanTree struct {
	Bound          *validator.BoundSelect
	ScanPredicates map[string]ast.Condition // alias -> pushed-down, reordered predicate
	Joins          []JoinStep
	Remainder      ast.Condition // cross-alias predicate applied after all joins
	Having         ast.Condition // reordered, unchanged in shape
	Summary        []PlanLine
}

type planner struct {
	bound *validator.BoundSelect
	stats Stats
}

// Plan builds a PlanTree for bound. stats supplies cardinalities and index
// presence; pass optimizer.StatsOf{Catalog: c, Storage: m}.
func Plan(bound *validator.BoundSelect, stats Stats) *PlanTree {
	p := &planner{bound: bound, stats: stats}

	perAlias, remainder := p.splitWhere(bound.Stmt.Where)
	for alias, cond := range perAlias {
		perAlias[alias] = p.reorder(cond)
	}
	remainder = p.reorder(remainder)

	joins, summary := p.planJoins(perAlias)

	plan := &PlanTree{
		Bound:          bound,
		ScanPredicates: perAlias,
		Joins:          joins,
		Remainder:      remainder,
		Having:         p.reorder(bound.Stmt.Having),
		Summary:        summary,
	}
	plan.Summary = append(plan.Summary, p.tailSummary(remainder, bound.Stmt.Having)...)
	return plan
}

// ---- selectivity (spec.md §4.4's table) ----

func (p *planner) selectivity(cond ast.Condition) float64 {
	switch c := cond.(type) {
	case nil:
		return 1.0
	case *ast.Comparison:
		return p.leafSelectivity(c)
	case *ast.And:
		return p.selectivity(c.Left) * p.selectivity(c.Right)
	case *ast.Or:
		a, b := p.selectivity(c.Left), p.selectivity(c.Right)
		return a + b - a*b
	default:
		return 0.5
	}
}

func (p *planner) leafSelectivity(cmp *ast.Comparison) float64 {
	col, alias, ok := p.columnOperand(cmp)
	if !ok {
		return 0.5
	}
	binding := p.bound.Aliases[alias]
	if binding == nil || binding.Table == nil {
		return 0.5
	}
	indexed := binding.Table.Indexes[col]
	unique := 0
	if indexed {
		unique = p.stats.UniqueKeyCount(binding.Table.Name, col)
	}

	switch cmp.Op {
	case ast.OpEq:
		if indexed && unique > 0 {
			return 1.0 / float64(unique)
		}
		return 0.1
	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		if indexed {
			return 0.5
		}
		return 0.3
	case ast.OpNeq:
		if indexed && unique > 0 {
			return 1.0 - 1.0/float64(unique)
		}
		return 0.9
	default: // OpLike and anything else: "complex / unknown"
		return 0.5
	}
}

// columnOperand returns the (column, alias) pair a comparison's column side
// names, preferring the left operand, along with whether one side is a bare
// column reference at all (a column-to-column comparison is "complex").
func (p *planner) columnOperand(cmp *ast.Comparison) (column, alias string, ok bool) {
	leftCol, leftIsCol := cmp.Left.(*ast.ColumnExpr)
	_, rightIsCol := cmp.Right.(*ast.ColumnExpr)
	if leftIsCol && !rightIsCol {
		return leftCol.Name, p.resolveAlias(leftCol), true
	}
	if rightCol, isCol := cmp.Right.(*ast.ColumnExpr); isCol && !leftIsCol {
		return rightCol.Name, p.resolveAlias(rightCol), true
	}
	return "", "", false
}

func (p *planner) resolveAlias(col *ast.ColumnExpr) string {
	return validator.ResolveAlias(p.bound, col.Qualifier, col.Name)
}

// ---- AND-chain reordering ----

func (p *planner) reorder(cond ast.Condition) ast.Condition {
	switch c := cond.(type) {
	case nil:
		return nil
	case *ast.And:
		leaves := flattenAnd(c)
		for i, leaf := range leaves {
			leaves[i] = p.reorder(leaf)
		}
		sortBySelectivity(leaves, p.selectivity)
		return rebuildAnd(leaves)
	case *ast.Or:
		return &ast.Or{Pos: c.Pos, Left: p.reorder(c.Left), Right: p.reorder(c.Right)}
	default:
		return cond
	}
}

func flattenAnd(cond ast.Condition) []ast.Condition {
	and, ok := cond.(*ast.And)
	if !ok {
		return []ast.Condition{cond}
	}
	return append(flattenAnd(and.Left), flattenAnd(and.Right)...)
}

func rebuildAnd(leaves []ast.Condition) ast.Condition {
	if len(leaves) == 0 {
		return nil
	}
	result := leaves[0]
	for _, leaf := range leaves[1:] {
		result = &ast.And{Left: result, Right: leaf}
	}
	return result
}

func sortBySelectivity(leaves []ast.Condition, selectivity func(ast.Condition) float64) {
	for i := 1; i < len(leaves); i++ {
		for j := i; j > 0 && selectivity(leaves[j]) < selectivity(leaves[j-1]); j-- {
			leaves[j], leaves[j-1] = leaves[j-1], leaves[j]
		}
	}
}

// ---- predicate push-down ----

func (p *planner) splitWhere(where ast.Condition) (perAlias map[string]ast.Condition, remainder ast.Condition) {
	perAlias = make(map[string]ast.Condition)
	var remainderLeaves []ast.Condition

	for _, leaf := range flattenAnd(where) {
		if leaf == nil {
			continue
		}
		aliases := p.aliasesOf(leaf)
		if len(aliases) == 1 {
			var only string
			for a := range aliases {
				only = a
			}
			if existing, ok := perAlias[only]; ok {
				perAlias[only] = &ast.And{Left: existing, Right: leaf}
			} else {
				perAlias[only] = leaf
			}
		} else {
			remainderLeaves = append(remainderLeaves, leaf)
		}
	}
	return perAlias, rebuildAnd(remainderLeaves)
}

func (p *planner) aliasesOf(cond ast.Condition) map[string]bool {
	out := make(map[string]bool)
	p.collectAliases(cond, out)
	return out
}

func (p *planner) collectAliases(cond ast.Condition, out map[string]bool) {
	switch c := cond.(type) {
	case *ast.And:
		p.collectAliases(c.Left, out)
		p.collectAliases(c.Right, out)
	case *ast.Or:
		p.collectAliases(c.Left, out)
		p.collectAliases(c.Right, out)
	case *ast.Comparison:
		p.collectExprAliases(c.Left, out)
		p.collectExprAliases(c.Right, out)
	case *ast.InSubquery:
		p.collectExprAliases(c.Left, out)
		out["__subquery__"] = true // forces this leaf into the post-join remainder
	}
}

func (p *planner) collectExprAliases(expr ast.Expr, out map[string]bool) {
	if col, ok := expr.(*ast.ColumnExpr); ok {
		if alias := p.resolveAlias(col); alias != "" {
			out[alias] = true
		}
	}
}

// ---- join strategy selection (spec.md §4.4, "Join strategy selection") ----

func (p *planner) planJoins(perAlias map[string]ast.Condition) ([]JoinStep, []PlanLine) {
	firstAlias := p.bound.Order[0]
	runningCard := p.estimateBaseCardinality(firstAlias, perAlias[firstAlias])

	var steps []JoinStep
	var summary []PlanLine
	summary = append(summary, PlanLine{
		Operator: "scan", Detail: firstAlias, EstRows: runningCard,
	})

	for _, j := range p.bound.Stmt.Joins {
		innerAlias := j.Table.RefAlias()
		innerCard := p.estimateBaseCardinality(innerAlias, perAlias[innerAlias])
		summary = append(summary, PlanLine{Operator: "scan", Detail: innerAlias, EstRows: innerCard})

		outerAlias, outerCol, innerCol := resolveJoinSides(j.On, innerAlias)
		outerIndexed := p.columnIndexed(outerAlias, outerCol)
		innerIndexed := p.columnIndexed(innerAlias, innerCol)

		strategy := chooseStrategy(runningCard, innerCard, outerAlias, innerAlias, outerCol, innerCol, outerIndexed, innerIndexed)
		steps = append(steps, JoinStep{Alias: innerAlias, On: j.On, Strategy: strategy})

		runningCard = estimateJoinOutputCard(runningCard, innerCard)
		summary = append(summary, PlanLine{
			Operator: strategy.Method,
			Detail:   fmt.Sprintf("%s.%s = %s.%s", strategy.Outer, strategy.OuterColumn, strategy.Inner, strategy.InnerColumn),
			EstRows:  runningCard,
		})
	}
	return steps, summary
}

func (p *planner) estimateBaseCardinality(alias string, pushed ast.Condition) int {
	binding := p.bound.Aliases[alias]
	base := derivedTableCardinality
	if binding != nil && binding.Table != nil {
		base = p.stats.RecordCount(binding.Table.Name)
	}
	est := int(float64(base) * p.selectivity(pushed))
	if est < 1 {
		est = 1
	}
	return est
}

func (p *planner) columnIndexed(alias, column string) bool {
	binding := p.bound.Aliases[alias]
	if binding == nil || binding.Table == nil || column == "" {
		return false
	}
	return p.stats.HasIndex(binding.Table.Name, column)
}

// resolveJoinSides picks out which side of the eq_cond names the inner
// alias (the table this join introduces) and returns the other side as
// outer.
func resolveJoinSides(eq ast.EqCond, innerAlias string) (outerAlias, outerColumn, innerColumn string) {
	if eq.LeftTable == innerAlias {
		return eq.RightTable, eq.RightColumn, eq.LeftColumn
	}
	return eq.LeftTable, eq.LeftColumn, eq.RightColumn
}

// strategyCtx is the cardinality/index evidence a strategySelector inspects
// to decide whether its join algorithm applies to one join edge.
type strategyCtx struct {
	l, r                       int
	outerAlias, innerAlias     string
	outerColumn, innerColumn   string
	outerIndexed, innerIndexed bool
}

// strategySelector reports the strategy it would pick for ctx, and whether
// it applies at all; chooseStrategy tries selectors in registration order
// and takes the first match.
type strategySelector func(ctx strategyCtx) (JoinStrategy, bool)

var strategySelectors []strategySelector

// registerStrategySelector appends fn to the ordered pipeline chooseStrategy
// consults. Mirrors the dialect package's RegisterDialect, adapted to an
// ordered slice since strategy choice is priority-based rather than a single
// keyed lookup.
func registerStrategySelector(fn strategySelector) {
	strategySelectors = append(strategySelectors, fn)
}

func init() {
	registerStrategySelector(hashJoinSelector)
	registerStrategySelector(indexNestedLoopSelector)
	registerStrategySelector(sortMergeSelector)
}

func baseStrategy(ctx strategyCtx) JoinStrategy {
	return JoinStrategy{Outer: ctx.outerAlias, Inner: ctx.innerAlias, OuterColumn: ctx.outerColumn, InnerColumn: ctx.innerColumn}
}

// hashJoinSelector fires once the combined cardinality makes even an
// indexed nested loop too expensive, building the hash table over whichever
// side is smaller.
func hashJoinSelector(ctx strategyCtx) (JoinStrategy, bool) {
	if float64(ctx.l)*float64(ctx.r) <= hashJoinThreshold {
		return JoinStrategy{}, false
	}
	s := baseStrategy(ctx)
	s.Method = "hash-join"
	if ctx.l <= ctx.r {
		s.BuildSide = ctx.outerAlias
	} else {
		s.BuildSide = ctx.innerAlias
	}
	return s, true
}

// indexNestedLoopSelector fires when the side that is at least as large as
// the other has an index on its join column; the smaller side becomes the
// outer and probes that index (swapping outer/inner when needed).
func indexNestedLoopSelector(ctx strategyCtx) (JoinStrategy, bool) {
	if ctx.innerIndexed && ctx.l <= ctx.r {
		s := baseStrategy(ctx)
		s.Method = "index-nested-loop"
		return s, true
	}
	if ctx.outerIndexed && ctx.r < ctx.l {
		s := baseStrategy(ctx)
		s.Method = "index-nested-loop"
		s.Outer, s.Inner = ctx.innerAlias, ctx.outerAlias
		s.OuterColumn, s.InnerColumn = ctx.innerColumn, ctx.outerColumn
		s.Swapped = true
		return s, true
	}
	return JoinStrategy{}, false
}

// sortMergeSelector fires when no earlier selector applied and both sides
// exceed largeRelationThreshold, so a sorted merge beats a nested loop.
func sortMergeSelector(ctx strategyCtx) (JoinStrategy, bool) {
	if ctx.l > largeRelationThreshold && ctx.r > largeRelationThreshold {
		s := baseStrategy(ctx)
		s.Method = "sort-merge"
		return s, true
	}
	return JoinStrategy{}, false
}

// chooseStrategy picks the physical join algorithm for one join edge by
// consulting the registered selector pipeline, falling back to a plain
// nested loop when none of them apply.
func chooseStrategy(l, r int, outerAlias, innerAlias, outerColumn, innerColumn string, outerIndexed, innerIndexed bool) JoinStrategy {
	ctx := strategyCtx{
		l: l, r: r,
		outerAlias: outerAlias, innerAlias: innerAlias,
		outerColumn: outerColumn, innerColumn: innerColumn,
		outerIndexed: outerIndexed, innerIndexed: innerIndexed,
	}
	for _, sel := range strategySelectors {
		if s, ok := sel(ctx); ok {
			return s
		}
	}
	s := baseStrategy(ctx)
	s.Method = "nested-loop"
	return s
}

func estimateJoinOutputCard(l, r int) int {
	if l > r {
		return l
	}
	return r
}

func (p *planner) tailSummary(remainder, having ast.Condition) []PlanLine {
	var lines []PlanLine
	if remainder != nil {
		lines = append(lines, PlanLine{Operator: "filter", Detail: "post-join remainder"})
	}
	if having != nil {
		lines = append(lines, PlanLine{Operator: "having", Detail: "post-aggregation filter"})
	}
	return lines
}

// Explain renders the execution_plan summary as a human-readable string,
// using k0kubun/pp so operator/detail/row-estimate structs print with their
// field names rather than as an opaque %+v dump.
func (plan *PlanTree) Explain() string {
	pp.Default.SetColoringEnabled(false)
	return pp.Sprint(plan.Summary)
}
