package rowexec

import (
	"context"
	"testing"

	"github.com/qiulin/qwery/ast"
	"github.com/qiulin/qwery/runtime"
	"github.com/qiulin/qwery/value"
)

func fieldRef(name string) *ast.FieldRef { return &ast.FieldRef{Name: name} }

func nullLit() *ast.Literal { return &ast.Literal{Kind: ast.LitNull} }

func scopeWithRow(names []string, values []value.Value) *runtime.Scope {
	return runtime.NewRootScope().WithRow(runtime.NewRow(names, values))
}

func TestEvalCondNullComparisonIsUnknown(t *testing.T) {
	scope := scopeWithRow([]string{"a"}, []value.Value{value.Null})
	cond := &ast.Compare{Op: ast.CmpEq, Left: fieldRef("a"), Right: nullLit()}

	ok, err := EvalCond(context.Background(), &Env{}, scope, cond)
	if err != nil {
		t.Fatalf("EvalCond: %v", err)
	}
	if ok {
		t.Errorf("comparing against NULL should collapse 'unknown' to false for WHERE inclusion, got true")
	}
}

func TestEvalCondAndShortCircuitsOnFalse(t *testing.T) {
	scope := scopeWithRow([]string{"a"}, []value.Value{value.NewInt64(1)})
	left := &ast.Compare{Op: ast.CmpEq, Left: fieldRef("a"), Right: &ast.Literal{Kind: ast.LitInt, Text: "2"}}
	// right side references a column that doesn't exist, which would
	// error if evaluated; AND's false-dominance must skip it.
	right := &ast.Compare{Op: ast.CmpEq, Left: fieldRef("missing"), Right: &ast.Literal{Kind: ast.LitInt, Text: "1"}}
	cond := &ast.BoolCond{Op: ast.OpAnd, Left: left, Right: right}

	ok, err := EvalCond(context.Background(), &Env{}, scope, cond)
	if err != nil {
		t.Fatalf("EvalCond: %v", err)
	}
	if ok {
		t.Errorf("expected false")
	}
}

func TestEvalCondOrShortCircuitsOnTrue(t *testing.T) {
	scope := scopeWithRow([]string{"a"}, []value.Value{value.NewInt64(1)})
	left := &ast.Compare{Op: ast.CmpEq, Left: fieldRef("a"), Right: &ast.Literal{Kind: ast.LitInt, Text: "1"}}
	right := &ast.Compare{Op: ast.CmpEq, Left: fieldRef("missing"), Right: &ast.Literal{Kind: ast.LitInt, Text: "1"}}
	cond := &ast.BoolCond{Op: ast.OpOr, Left: left, Right: right}

	ok, err := EvalCond(context.Background(), &Env{}, scope, cond)
	if err != nil {
		t.Fatalf("EvalCond: %v", err)
	}
	if !ok {
		t.Errorf("expected true")
	}
}

func TestEvalCondNotOnNullStaysUnknown(t *testing.T) {
	scope := scopeWithRow([]string{"a"}, []value.Value{value.Null})
	cond := &ast.NotCond{Operand: &ast.Compare{Op: ast.CmpEq, Left: fieldRef("a"), Right: nullLit()}}

	ok, err := EvalCond(context.Background(), &Env{}, scope, cond)
	if err != nil {
		t.Fatalf("EvalCond: %v", err)
	}
	if ok {
		t.Errorf("NOT of an unknown comparison is still unknown, which WHERE collapses to false, got true")
	}
}

func TestEvalCondIsNull(t *testing.T) {
	scope := scopeWithRow([]string{"a"}, []value.Value{value.Null})
	cond := &ast.NullCond{Operand: fieldRef("a")}

	ok, err := EvalCond(context.Background(), &Env{}, scope, cond)
	if err != nil {
		t.Fatalf("EvalCond: %v", err)
	}
	if !ok {
		t.Errorf("expected 'a IS NULL' to be true")
	}
}

func row(cols ...value.Value) runtime.Row {
	names := make([]string, len(cols))
	for i := range cols {
		names[i] = "c"
	}
	return runtime.NewRow(names, cols)
}

func TestDedupRowsWholeRow(t *testing.T) {
	rows := []runtime.Row{
		runtime.NewRow([]string{"a", "b"}, []value.Value{value.NewString("x"), value.NewInt64(1)}),
		runtime.NewRow([]string{"a", "b"}, []value.Value{value.NewString("x"), value.NewInt64(1)}),
		runtime.NewRow([]string{"a", "b"}, []value.Value{value.NewString("y"), value.NewInt64(1)}),
	}
	out := dedupRows(rows)
	if len(out) != 2 {
		t.Fatalf("expected 2 distinct rows, got %d", len(out))
	}
}

func TestSortRowsMultiKey(t *testing.T) {
	mk := func(a string, b int64) runtime.Row {
		return runtime.NewRow([]string{"a", "b"}, []value.Value{value.NewString(a), value.NewInt64(b)})
	}
	rows := []runtime.Row{
		mk("x", 2),
		mk("x", 1),
		mk("y", 0),
	}
	out := sortRows(rows, []ast.OrderedColumn{{Name: "a", Ascending: true}, {Name: "b", Ascending: true}})
	if len(out) != 3 {
		t.Fatalf("expected 3 rows")
	}
	aVal, _ := out[0].Get("a")
	bVal, _ := out[0].Get("b")
	if aVal.String() != "x" || bVal.Int64() != 1 {
		t.Errorf("expected first row (x,1), got (%s,%d)", aVal.String(), bVal.Int64())
	}
	aVal2, _ := out[1].Get("a")
	bVal2, _ := out[1].Get("b")
	if aVal2.String() != "x" || bVal2.Int64() != 2 {
		t.Errorf("expected second row (x,2), got (%s,%d)", aVal2.String(), bVal2.Int64())
	}
}

func TestApplyLimitUnifiesTopAndLimit(t *testing.T) {
	rows := []runtime.Row{row(value.NewInt64(1)), row(value.NewInt64(2)), row(value.NewInt64(3))}
	scope := runtime.NewRootScope()
	ctx := context.Background()

	out := applyLimit(ctx, &Env{}, scope, rows, &ast.Literal{Kind: ast.LitInt, Text: "2"}, nil)
	if len(out) != 2 {
		t.Fatalf("TOP 2: expected 2 rows, got %d", len(out))
	}

	out2 := applyLimit(ctx, &Env{}, scope, rows, nil, &ast.Literal{Kind: ast.LitInt, Text: "1"})
	if len(out2) != 1 {
		t.Fatalf("LIMIT 1: expected 1 row, got %d", len(out2))
	}

	out3 := applyLimit(ctx, &Env{}, scope, rows, nil, nil)
	if len(out3) != 3 {
		t.Fatalf("no TOP/LIMIT: expected all 3 rows, got %d", len(out3))
	}
}

func TestAggregateCountStarIncludesNull(t *testing.T) {
	call := &ast.AggregateCall{Name: "COUNT", Star: true}
	s := newAggState(call)

	scope := runtime.NewRootScope()
	for _, v := range []value.Value{value.NewInt64(1), value.NewInt64(2), value.Null, value.NewInt64(4)} {
		row := runtime.NewRow([]string{"x"}, []value.Value{v})
		if err := s.accumulate(context.Background(), &Env{}, scope.WithRow(row)); err != nil {
			t.Fatalf("accumulate: %v", err)
		}
	}
	result, err := s.finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if result.Int64() != 4 {
		t.Errorf("COUNT(*) should count all 4 rows including NULL, got %d", result.Int64())
	}
}
