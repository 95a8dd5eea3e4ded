package engine

import (
	"sort"

	"github.com/pieczasz/dbms/internal/optimizer"
	"github.com/pieczasz/dbms/internal/value"
)

// executeJoin applies one join step chosen by the optimizer. current holds
// every row accumulated from the join sequence so far; newRows holds the
// newly scanned alias's rows. The executor trusts strategy.Method and does
// not reconsider it (spec.md §4.4).
func executeJoin(current, newRows []row, newAlias string, strategy optimizer.JoinStrategy) []row {
	var outerSet, innerSet []row
	if strategy.Outer == newAlias {
		outerSet, innerSet = newRows, current
	} else {
		outerSet, innerSet = current, newRows
	}

	switch strategy.Method {
	case "hash-join":
		return hashJoin(outerSet, innerSet, strategy)
	case "index-nested-loop":
		return indexNestedLoopJoin(outerSet, innerSet, strategy)
	case "sort-merge":
		return sortMergeJoin(outerSet, innerSet, strategy)
	default:
		return nestedLoopJoin(outerSet, innerSet, strategy)
	}
}

func mergeRows(a, b row) row {
	out := make(row, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func outerKey(s optimizer.JoinStrategy) string { return s.Outer + "." + s.OuterColumn }
func innerKey(s optimizer.JoinStrategy) string { return s.Inner + "." + s.InnerColumn }

func nestedLoopJoin(outerSet, innerSet []row, s optimizer.JoinStrategy) []row {
	ok, ik := outerKey(s), innerKey(s)
	var out []row
	for _, o := range outerSet {
		ov := o[ok]
		if ov.IsAbsent() {
			continue
		}
		for _, i := range innerSet {
			iv := i[ik]
			if !iv.IsAbsent() && ov.Equal(iv) {
				out = append(out, mergeRows(o, i))
			}
		}
	}
	return out
}

// indexNestedLoopJoin builds a lookup table over the inner side, simulating
// the index the optimizer observed when it picked this strategy, then probes
// it once per outer row.
func indexNestedLoopJoin(outerSet, innerSet []row, s optimizer.JoinStrategy) []row {
	ok, ik := outerKey(s), innerKey(s)
	index := make(map[value.Value][]row, len(innerSet))
	for _, i := range innerSet {
		v := i[ik]
		if v.IsAbsent() {
			continue
		}
		index[v] = append(index[v], i)
	}

	var out []row
	for _, o := range outerSet {
		v := o[ok]
		if v.IsAbsent() {
			continue
		}
		for _, i := range index[v] {
			out = append(out, mergeRows(o, i))
		}
	}
	return out
}

// hashJoin builds its hash table over strategy.BuildSide (the smaller input,
// per spec.md §4.4 rule 1) and probes with the other side.
func hashJoin(outerSet, innerSet []row, s optimizer.JoinStrategy) []row {
	ok, ik := outerKey(s), innerKey(s)
	buildOuter := s.BuildSide == s.Outer

	buildSet, probeSet := innerSet, outerSet
	buildKey, probeKey := ik, ok
	if buildOuter {
		buildSet, probeSet = outerSet, innerSet
		buildKey, probeKey = ok, ik
	}

	table := make(map[value.Value][]row, len(buildSet))
	for _, r := range buildSet {
		v := r[buildKey]
		if v.IsAbsent() {
			continue
		}
		table[v] = append(table[v], r)
	}

	var out []row
	for _, p := range probeSet {
		v := p[probeKey]
		if v.IsAbsent() {
			continue
		}
		for _, b := range table[v] {
			if buildOuter {
				out = append(out, mergeRows(b, p))
			} else {
				out = append(out, mergeRows(p, b))
			}
		}
	}
	return out
}

// sortMergeJoin sorts both sides by their join key and merges them in one
// pass, expanding equal-key runs on both sides into their cross product.
func sortMergeJoin(outerSet, innerSet []row, s optimizer.JoinStrategy) []row {
	ok, ik := outerKey(s), innerKey(s)

	o := append([]row(nil), outerSet...)
	i := append([]row(nil), innerSet...)
	sort.SliceStable(o, func(a, b int) bool { return o[a][ok].Less(o[b][ok]) })
	sort.SliceStable(i, func(a, b int) bool { return i[a][ik].Less(i[b][ik]) })

	var out []row
	oi, ii := 0, 0
	for oi < len(o) && ii < len(i) {
		ov, iv := o[oi][ok], i[ii][ik]
		if ov.IsAbsent() {
			oi++
			continue
		}
		if iv.IsAbsent() {
			ii++
			continue
		}
		if ov.Less(iv) {
			oi++
			continue
		}
		if iv.Less(ov) {
			ii++
			continue
		}
		oEnd := oi
		for oEnd < len(o) && o[oEnd][ok].Equal(ov) {
			oEnd++
		}
		iEnd := ii
		for iEnd < len(i) && i[iEnd][ik].Equal(ov) {
			iEnd++
		}
		for a := oi; a < oEnd; a++ {
			for b := ii; b < iEnd; b++ {
				out = append(out, mergeRows(o[a], i[b]))
			}
		}
		oi, ii = oEnd, iEnd
	}
	return out
}
