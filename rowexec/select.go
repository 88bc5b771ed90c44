package rowexec

import (
	"context"
	"io"
	"sort"
	"strings"

	"github.com/qiulin/qwery/ast"
	"github.com/qiulin/qwery/device"
	"github.com/qiulin/qwery/qerrors"
	"github.com/qiulin/qwery/runtime"
	"github.com/qiulin/qwery/value"
)

// rowSource is the minimal pull iterator CompileSelect's pipeline stages
// are built from: a device.InputDevice adapted to runtime.Row, or a
// nested runtime.ResultSet (subquery/view), share this one shape so
// neither compiles against the other directly.
type rowSource interface {
	Next(ctx context.Context) (runtime.Row, error)
	Close(ctx context.Context) error
}

// openRowSource resolves a SelectStmt's FROM expression (DataResource,
// Subquery, ViewRef, or nil-for-no-FROM) to a rowSource, per spec.md
// §4.6 step 1 ("open the source").
func openRowSource(ctx context.Context, env *Env, scope *runtime.Scope, source ast.Expr, hints ast.Hints) (rowSource, error) {
	switch src := source.(type) {
	case nil:
		return &oneShotRowSource{}, nil
	case *ast.DataResource:
		effective := src.Hints.Merge(hints)
		in, err := env.Registry.OpenInput(ctx, src.Path, effective)
		if err != nil {
			return nil, err
		}
		return &deviceSource{in: in}, nil
	case *ast.Subquery:
		exec, err := CompileSelect(env, src.Select)
		if err != nil {
			return nil, err
		}
		rs, err := exec.Execute(ctx, scope.Child())
		if err != nil {
			return nil, err
		}
		return &resultSetSource{rs: rs}, nil
	case *ast.ViewRef:
		view, err := scope.LookupView(src.Name)
		if err != nil {
			return nil, err
		}
		exec, err := CompileSelect(env, view)
		if err != nil {
			return nil, err
		}
		rs, err := exec.Execute(ctx, scope.Child())
		if err != nil {
			return nil, err
		}
		return &resultSetSource{rs: rs}, nil
	default:
		return nil, qerrors.Semantic(qerrors.PhaseCompile, "unsupported FROM source %T", source)
	}
}

// oneShotRowSource yields a single empty Row then EOF, for `SELECT <expr>`
// with no FROM clause (spec.md §8 scenario 4: `SELECT @x AS v`).
type oneShotRowSource struct{ done bool }

func (s *oneShotRowSource) Next(ctx context.Context) (runtime.Row, error) {
	if s.done {
		return runtime.Row{}, io.EOF
	}
	s.done = true
	return runtime.Row{}, nil
}
func (s *oneShotRowSource) Close(ctx context.Context) error { return nil }

// deviceSource adapts a device.InputDevice to rowSource.
type deviceSource struct {
	in device.InputDevice
}

func (d *deviceSource) Next(ctx context.Context) (runtime.Row, error) {
	rec, err := d.in.Read(ctx)
	if err != nil {
		return runtime.Row{}, err
	}
	return recordToRow(rec), nil
}
func (d *deviceSource) Close(ctx context.Context) error { return d.in.Close(ctx) }

// resultSetSource adapts a runtime.ResultSet (from a nested Select) to
// rowSource.
type resultSetSource struct{ rs runtime.ResultSet }

func (r *resultSetSource) Next(ctx context.Context) (runtime.Row, error) { return r.rs.Next(ctx) }
func (r *resultSetSource) Close(ctx context.Context) error               { return r.rs.Close(ctx) }

// selectExecutable compiles one SELECT (spec.md §4.6). It is a
// runtime.Executable: Execute performs the full pipeline (open source,
// filter, project/aggregate, distinct, sort, limit) and, when the
// statement carries INTO/OVERWRITE, writes the result to the resolved
// target before returning an exhausted ResultSet.
type selectExecutable struct {
	env  *Env
	stmt *ast.SelectStmt
}

// CompileSelect lowers a parsed SELECT into a runtime.Executable.
func CompileSelect(env *Env, stmt *ast.SelectStmt) (runtime.Executable, error) {
	return &selectExecutable{env: env, stmt: stmt}, nil
}

func (e *selectExecutable) Execute(ctx context.Context, scope *runtime.Scope) (runtime.ResultSet, error) {
	rows, err := e.run(ctx, scope)
	if err != nil {
		return nil, err
	}

	if e.stmt.IntoMode == ast.IntoNone {
		return runtime.NewSliceResultSet(rows), nil
	}

	names := projectionNames(e.stmt.Projections)
	target := &ast.DataResource{Path: e.stmt.Target, Hints: e.stmt.TargetHints}
	out, err := openTargetDevice(ctx, e.env, target, e.stmt.IntoMode == ast.IntoInto)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := out.Write(ctx, rowToRecord(row.Project(names))); err != nil {
			out.Close(ctx)
			return nil, err
		}
	}
	if err := out.Close(ctx); err != nil {
		return nil, err
	}
	return runtime.EmptyResultSet{}, nil
}

// run executes the full read/filter/project/aggregate/distinct/sort/limit
// pipeline and materializes its output rows.
func (e *selectExecutable) run(ctx context.Context, scope *runtime.Scope) ([]runtime.Row, error) {
	src, err := openRowSource(ctx, e.env, scope, e.stmt.Source, e.stmt.SourceHints)
	if err != nil {
		return nil, err
	}
	defer src.Close(ctx)

	var rows []runtime.Row
	if len(e.stmt.GroupBy) > 0 || projectionHasAggregate(e.stmt.Projections) {
		rows, err = e.runGrouped(ctx, scope, src)
	} else {
		rows, err = e.runStreaming(ctx, scope, src)
	}
	if err != nil {
		return nil, err
	}

	if e.stmt.Distinct {
		rows = dedupRows(rows)
	}
	if len(e.stmt.OrderBy) > 0 {
		rows = sortRows(rows, e.stmt.OrderBy)
	}
	rows = applyLimit(ctx, e.env, scope, rows, e.stmt.Top, e.stmt.Limit)
	return rows, nil
}

// runStreaming handles the no-aggregation case: each matching row is
// filtered and projected independently (spec.md §4.6 steps 1-2).
func (e *selectExecutable) runStreaming(ctx context.Context, scope *runtime.Scope, src rowSource) ([]runtime.Row, error) {
	var out []runtime.Row
	for {
		row, err := src.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rowScope := scope.WithRow(row)
		if e.stmt.Where != nil {
			ok, err := EvalCond(ctx, e.env, rowScope, e.stmt.Where)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		projected, err := projectRow(ctx, e.env, rowScope, e.stmt.Projections, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, projected)
	}
	return out, nil
}

// groupAccumulator tracks one GROUP BY key's aggregate accumulators and a
// representative row (the first row seen for that key) used to evaluate
// non-aggregate projected fields, which must be functionally dependent on
// the grouping key (spec.md §4.6 step 3).
type groupAccumulator struct {
	keyRow runtime.Row
	aggs   map[*ast.AggregateCall]*aggState
}

// runGrouped handles GROUP BY and whole-result aggregation (no GROUP BY
// but an aggregate projection), materializing one accumulator per
// distinct group key (spec.md §4.6 step 3).
func (e *selectExecutable) runGrouped(ctx context.Context, scope *runtime.Scope, src rowSource) ([]runtime.Row, error) {
	var calls []*ast.AggregateCall
	for _, p := range e.stmt.Projections {
		collectAggregates(p.Expr, &calls)
	}

	groups := map[string]*groupAccumulator{}
	var order []string

	for {
		row, err := src.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rowScope := scope.WithRow(row)
		if e.stmt.Where != nil {
			ok, err := EvalCond(ctx, e.env, rowScope, e.stmt.Where)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}

		key, keyRow, err := groupKey(ctx, e.env, rowScope, row, e.stmt.GroupBy)
		if err != nil {
			return nil, err
		}
		g, ok := groups[key]
		if !ok {
			g = &groupAccumulator{keyRow: keyRow, aggs: map[*ast.AggregateCall]*aggState{}}
			for _, c := range calls {
				g.aggs[c] = newAggState(c)
			}
			groups[key] = g
			order = append(order, key)
		}
		for _, c := range calls {
			if err := g.aggs[c].accumulate(ctx, e.env, rowScope); err != nil {
				return nil, err
			}
		}
	}

	if len(order) == 0 && len(e.stmt.GroupBy) == 0 {
		// A whole-result aggregate over zero input rows still yields one
		// row (e.g. `SELECT COUNT(*) FROM empty` is 0, not no rows).
		g := &groupAccumulator{aggs: map[*ast.AggregateCall]*aggState{}}
		for _, c := range calls {
			g.aggs[c] = newAggState(c)
		}
		groups[""] = g
		order = append(order, "")
	}

	groupNames := groupByNames(e.stmt.GroupBy)
	var out []runtime.Row
	for _, key := range order {
		g := groups[key]
		values := make(map[*ast.AggregateCall]value.Value, len(calls))
		for _, c := range calls {
			v, err := g.aggs[c].finalize()
			if err != nil {
				return nil, err
			}
			values[c] = v
		}
		groupScope := scope.WithRow(g.keyRow)
		aggCtx := withAggValues(ctx, values)
		projected, err := projectRow(aggCtx, e.env, groupScope, e.stmt.Projections, groupNames)
		if err != nil {
			return nil, err
		}
		out = append(out, projected)
	}
	return out, nil
}

func groupByNames(fields []ast.Field) map[string]bool {
	names := make(map[string]bool, len(fields))
	for _, f := range fields {
		names[f.Name] = true
	}
	return names
}

// groupKey evaluates the GROUP BY expressions against row and returns a
// stable hash-map key plus a representative row carrying the key values
// under their field names (for projecting non-aggregate grouped columns).
func groupKey(ctx context.Context, env *Env, rowScope *runtime.Scope, row runtime.Row, groupBy []ast.Field) (string, runtime.Row, error) {
	if len(groupBy) == 0 {
		return "", row, nil
	}
	keyRow := runtime.Row{}
	var sb strings.Builder
	for _, f := range groupBy {
		v, ok := row.Get(f.Name)
		if !ok {
			return "", runtime.Row{}, qerrors.Semantic(qerrors.PhaseEval, "unknown GROUP BY column %q", f.Name)
		}
		keyRow = keyRow.With(f.Name, v)
		sb.WriteString(v.HashKey())
		sb.WriteByte('\x1f')
	}
	return sb.String(), keyRow, nil
}

// projectRow evaluates the SELECT's projection list against rowScope's
// current row, expanding `*` to every column. groupedNames, when non-nil,
// is the set of GROUP BY field names; a bare FieldRef projected outside
// that set (and outside an aggregate) is a semantic error (spec.md §4.6
// step 3: "non-aggregate projected fields must appear in the GROUP BY
// set").
func projectRow(ctx context.Context, env *Env, rowScope *runtime.Scope, projections []ast.AliasedExpr, groupedNames map[string]bool) (runtime.Row, error) {
	out := runtime.Row{}
	for _, p := range projections {
		if _, ok := p.Expr.(*ast.StarExpr); ok {
			row, _ := rowScope.CurrentRow()
			for i := 0; i < row.Len(); i++ {
				out = out.With(row.NameAt(i), row.At(i))
			}
			continue
		}
		if groupedNames != nil {
			var refs []*ast.FieldRef
			collectFieldRefs(p.Expr, &refs)
			for _, fr := range refs {
				if !groupedNames[fr.Name] {
					return runtime.Row{}, qerrors.Semantic(qerrors.PhaseEval,
						"column %q must appear in GROUP BY or be used in an aggregate", fr.Name)
				}
			}
		}
		v, err := EvalExpr(ctx, env, rowScope, p.Expr)
		if err != nil {
			return runtime.Row{}, err
		}
		out = out.With(projectionAlias(p), v)
	}
	return out, nil
}

func projectionAlias(p ast.AliasedExpr) string {
	if p.Alias != "" {
		return p.Alias
	}
	if fr, ok := p.Expr.(*ast.FieldRef); ok {
		return fr.Name
	}
	if ag, ok := p.Expr.(*ast.AggregateCall); ok {
		return ag.Name
	}
	if fc, ok := p.Expr.(*ast.FunctionCall); ok {
		return fc.Name
	}
	return ""
}

func projectionNames(projections []ast.AliasedExpr) []string {
	names := make([]string, 0, len(projections))
	for _, p := range projections {
		if _, ok := p.Expr.(*ast.StarExpr); ok {
			continue
		}
		names = append(names, projectionAlias(p))
	}
	return names
}

// dedupRows implements whole-row SELECT DISTINCT (SPEC_FULL.md §12's
// supplemented feature), hashing each row's column values in order.
func dedupRows(rows []runtime.Row) []runtime.Row {
	seen := map[string]bool{}
	var out []runtime.Row
	for _, r := range rows {
		var sb strings.Builder
		for i := 0; i < r.Len(); i++ {
			sb.WriteString(r.At(i).HashKey())
			sb.WriteByte('\x1f')
		}
		key := sb.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

// sortRows implements ORDER BY: a stable sort by each key's
// (column, ascending) pair in sequence, ties broken by subsequent keys
// then by original position (spec.md §4.6 step 4, §8 invariant 7).
func sortRows(rows []runtime.Row, orderBy []ast.OrderedColumn) []runtime.Row {
	out := append([]runtime.Row(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		for _, col := range orderBy {
			vi, _ := out[i].Get(col.Name)
			vj, _ := out[j].Get(col.Name)
			cmp, ok := orderCompare(vi, vj)
			if !ok || cmp == 0 {
				continue
			}
			if col.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return false
	})
	return out
}

// applyLimit implements LIMIT/TOP (spec.md §4.6 step 5): `TOP N` and
// `LIMIT N` are unified into one cap, applied after DISTINCT/ORDER BY.
// When no ORDER BY is present this is a no-op ordering-wise, so "apply
// after sort" and "apply before sort" coincide — see DESIGN.md for the
// Open Question this resolves ("top-N before sort" vs "sort then limit").
func applyLimit(ctx context.Context, env *Env, scope *runtime.Scope, rows []runtime.Row, top, limit ast.Expr) []runtime.Row {
	n := -1
	if top != nil {
		if v, err := EvalExpr(ctx, env, scope, top); err == nil {
			if f, ok := asFloat(v); ok {
				n = int(f)
			}
		}
	}
	if limit != nil {
		if v, err := EvalExpr(ctx, env, scope, limit); err == nil {
			if f, ok := asFloat(v); ok {
				n = int(f)
			}
		}
	}
	if n < 0 || n >= len(rows) {
		return rows
	}
	return rows[:n]
}
