package rowexec

import (
	"context"

	"github.com/qiulin/qwery/ast"
	"github.com/qiulin/qwery/qerrors"
	"github.com/qiulin/qwery/runtime"
	"github.com/qiulin/qwery/value"
)

// aggState accumulates one AggregateCall's running value across a group,
// keyed by the *ast.AggregateCall pointer, so every occurrence of a call in
// a projection list (even a textual repeat of the same call) has its own
// accumulator (spec.md §4.6: "each aggregate expression maintains its own
// running state").
// VARIANCE uses Welford's online algorithm so it needs only one pass over
// the group.
type aggState struct {
	call *ast.AggregateCall

	count int64
	sum   float64
	min   value.Value
	max   value.Value
	seen  map[string]bool // DISTINCT dedup, by value.HashKey()

	mean float64 // Welford running mean, for VARIANCE
	m2   float64 // Welford running sum of squares of differences from mean
}

func newAggState(call *ast.AggregateCall) *aggState {
	s := &aggState{call: call}
	if call.Distinct {
		s.seen = map[string]bool{}
	}
	return s
}

// collectAggregates walks expr and appends every distinct *ast.AggregateCall
// node found, in encounter order. Used to discover the set of accumulators
// a GROUP BY (or whole-result, if no GROUP BY but an aggregate is present)
// needs to maintain.
func collectAggregates(expr ast.Expr, out *[]*ast.AggregateCall) {
	switch e := expr.(type) {
	case *ast.AggregateCall:
		*out = append(*out, e)
		if e.Arg != nil {
			collectAggregates(e.Arg, out)
		}
	case *ast.Arithmetic:
		collectAggregates(e.Left, out)
		collectAggregates(e.Right, out)
	case *ast.Negate:
		collectAggregates(e.Operand, out)
	case *ast.Cast:
		collectAggregates(e.Operand, out)
	case *ast.Case:
		for _, w := range e.Whens {
			collectAggregatesCond(w.When, out)
			collectAggregates(w.Then, out)
		}
		if e.Else != nil {
			collectAggregates(e.Else, out)
		}
	case *ast.FunctionCall:
		for _, a := range e.Args {
			collectAggregates(a, out)
		}
	}
}

func collectAggregatesCond(cond ast.Cond, out *[]*ast.AggregateCall) {
	switch c := cond.(type) {
	case *ast.BoolCond:
		collectAggregatesCond(c.Left, out)
		collectAggregatesCond(c.Right, out)
	case *ast.NotCond:
		collectAggregatesCond(c.Operand, out)
	case *ast.Compare:
		collectAggregates(c.Left, out)
		collectAggregates(c.Right, out)
	case *ast.LikeCond:
		collectAggregates(c.Operand, out)
		collectAggregates(c.Pattern, out)
	case *ast.NullCond:
		collectAggregates(c.Operand, out)
	}
}

// collectFieldRefs walks expr and appends every *ast.FieldRef found,
// stopping at AggregateCall boundaries: a field inside an aggregate's
// argument is consumed by that aggregate's accumulate, not evaluated
// against the group's representative row, so it isn't one of the "bare
// column" references GROUP BY validation cares about. Mirrors
// collectAggregates' traversal shape.
func collectFieldRefs(expr ast.Expr, out *[]*ast.FieldRef) {
	switch e := expr.(type) {
	case *ast.FieldRef:
		*out = append(*out, e)
	case *ast.AggregateCall:
		// intentionally not recursing into e.Arg
	case *ast.Arithmetic:
		collectFieldRefs(e.Left, out)
		collectFieldRefs(e.Right, out)
	case *ast.Negate:
		collectFieldRefs(e.Operand, out)
	case *ast.Cast:
		collectFieldRefs(e.Operand, out)
	case *ast.Case:
		for _, w := range e.Whens {
			collectFieldRefsCond(w.When, out)
			collectFieldRefs(w.Then, out)
		}
		if e.Else != nil {
			collectFieldRefs(e.Else, out)
		}
	case *ast.FunctionCall:
		for _, a := range e.Args {
			collectFieldRefs(a, out)
		}
	}
}

func collectFieldRefsCond(cond ast.Cond, out *[]*ast.FieldRef) {
	switch c := cond.(type) {
	case *ast.BoolCond:
		collectFieldRefsCond(c.Left, out)
		collectFieldRefsCond(c.Right, out)
	case *ast.NotCond:
		collectFieldRefsCond(c.Operand, out)
	case *ast.Compare:
		collectFieldRefs(c.Left, out)
		collectFieldRefs(c.Right, out)
	case *ast.LikeCond:
		collectFieldRefs(c.Operand, out)
		collectFieldRefs(c.Pattern, out)
	case *ast.NullCond:
		collectFieldRefs(c.Operand, out)
	}
}

// projectionHasAggregate reports whether any projected expression contains
// an aggregate call, which is what decides the streaming-vs-grouping fork
// in the Select operator (spec.md §4.6).
func projectionHasAggregate(projections []ast.AliasedExpr) bool {
	var found []*ast.AggregateCall
	for _, p := range projections {
		collectAggregates(p.Expr, &found)
		if len(found) > 0 {
			return true
		}
	}
	return false
}

// accumulate feeds one row's value for s.call into s, evaluating s.call's
// Arg (or treating COUNT(*) as "one" regardless of Arg) against scope's
// current row.
func (s *aggState) accumulate(ctx context.Context, env *Env, scope *runtime.Scope) error {
	if s.call.Star {
		s.count++
		return nil
	}
	v, err := EvalExpr(ctx, env, scope, s.call.Arg)
	if err != nil {
		return err
	}
	if v.IsNull() {
		// NULL is excluded from every aggregate except COUNT(*), matching
		// standard SQL aggregate-over-NULL semantics.
		return nil
	}
	if s.seen != nil {
		key := v.HashKey()
		if s.seen[key] {
			return nil
		}
		s.seen[key] = true
	}

	s.count++
	if f, ok := asFloat(v); ok {
		s.sum += f
		delta := f - s.mean
		s.mean += delta / float64(s.count)
		delta2 := f - s.mean
		s.m2 += delta * delta2
	}
	if s.min.IsNull() || less(v, s.min) {
		s.min = v
	}
	if s.max.IsNull() || less(s.max, v) {
		s.max = v
	}
	return nil
}

func less(a, b value.Value) bool {
	cmp, ok := orderCompare(a, b)
	return ok && cmp < 0
}

// finalize computes the aggregate's result from its accumulated state,
// per the per-function result type in spec.md §3's AggregateCall variant
// list (Count/Sum/Avg/Min/Max/Variance).
func (s *aggState) finalize() (value.Value, error) {
	switch s.call.Name {
	case "COUNT":
		return value.NewInt64(s.count), nil
	case "SUM":
		if s.count == 0 {
			return value.Null, nil
		}
		return value.NewFloat64(s.sum), nil
	case "AVG":
		if s.count == 0 {
			return value.Null, nil
		}
		return value.NewFloat64(s.sum / float64(s.count)), nil
	case "MIN":
		return s.min, nil
	case "MAX":
		return s.max, nil
	case "VARIANCE":
		if s.count < 2 {
			return value.NewFloat64(0), nil
		}
		return value.NewFloat64(s.m2 / float64(s.count-1)), nil
	default:
		return value.Null, qerrors.Semantic(qerrors.PhaseCompile, "unknown aggregate function %q", s.call.Name)
	}
}
