package rowexec

import (
	"context"
	"testing"

	"github.com/qiulin/qwery/ast"
	"github.com/qiulin/qwery/runtime"
	"github.com/qiulin/qwery/value"
)

func TestProjectRowRejectsNonGroupedFieldNestedInExpr(t *testing.T) {
	row := runtime.NewRow([]string{"Sector", "Name"}, []value.Value{value.NewString("Tech"), value.NewString("ibm")})
	scope := runtime.NewRootScope().WithRow(row)
	groupedNames := map[string]bool{"Sector": true}

	// UPPER(Name) with no GROUP BY on Name and no aggregate wrapping it:
	// Name is nested inside a FunctionCall, not a bare top-level FieldRef,
	// but it's still an ungrouped, non-aggregated column reference.
	projections := []ast.AliasedExpr{
		{Expr: &ast.FunctionCall{Name: "UPPER", Args: []ast.Expr{fieldRef("Name")}}},
	}

	_, err := projectRow(context.Background(), &Env{}, scope, projections, groupedNames)
	if err == nil {
		t.Fatalf("expected a semantic error for a non-grouped column nested inside UPPER(...)")
	}
}

func TestProjectRowAllowsFieldInsideAggregateArg(t *testing.T) {
	row := runtime.NewRow([]string{"Sector", "Price"}, []value.Value{value.NewString("Tech"), value.NewInt64(5)})
	scope := runtime.NewRootScope().WithRow(row)
	groupedNames := map[string]bool{"Sector": true}

	values := map[*ast.AggregateCall]value.Value{}
	call := &ast.AggregateCall{Name: "SUM", Arg: fieldRef("Price")}
	values[call] = value.NewInt64(5)
	ctx := withAggValues(context.Background(), values)

	projections := []ast.AliasedExpr{
		{Expr: &ast.FieldRef{Name: "Sector"}},
		{Alias: "total", Expr: call},
	}

	out, err := projectRow(ctx, &Env{}, scope, projections, groupedNames)
	if err != nil {
		t.Fatalf("expected no error for a grouped field plus an aggregate over an ungrouped column, got %v", err)
	}
	if out.Len() != 2 {
		t.Fatalf("expected 2 projected columns, got %d", out.Len())
	}
}

func TestProjectRowAllowsNestedGroupedField(t *testing.T) {
	row := runtime.NewRow([]string{"Sector"}, []value.Value{value.NewString("tech")})
	scope := runtime.NewRootScope().WithRow(row)
	groupedNames := map[string]bool{"Sector": true}

	projections := []ast.AliasedExpr{
		{Expr: &ast.FunctionCall{Name: "UPPER", Args: []ast.Expr{fieldRef("Sector")}}},
	}

	_, err := projectRow(context.Background(), &Env{}, scope, projections, groupedNames)
	if err != nil {
		t.Errorf("expected no error when the nested field is itself in the GROUP BY set, got %v", err)
	}
}
