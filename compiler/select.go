package compiler

import (
	"strconv"
	"strings"

	"github.com/qiulin/qwery/ast"
	"github.com/qiulin/qwery/lexer"
	"github.com/qiulin/qwery/qerrors"
	"github.com/qiulin/qwery/template"
	"github.com/qiulin/qwery/token"
)

// parseSelectStmt implements the SELECT template from spec.md §4.5. It is
// registered with both exprparser and template as the injected
// SELECT-statement parser (see dispatch.go's init), so it is also what
// runs for `(SELECT ...)` subqueries and the `%S:` tag.
func parseSelectStmt(ts *lexer.TokenStream) (*ast.SelectStmt, error) {
	start, err := ts.ExpectType(token.SELECT)
	if err != nil {
		return nil, err
	}
	distinct := false
	if _, ok := ts.NextIf("DISTINCT"); ok {
		distinct = true
	}

	params, err := template.Parse(selectSteps, ts)
	if err != nil {
		return nil, err
	}

	fields, ok := params.Expressions["fields"]
	if !ok {
		return nil, qerrors.Syntax(start.Pos, "SELECT: no projection list")
	}

	stmt := &ast.SelectStmt{
		StartPos:    start.Pos,
		EndPos:      ts.Peek().Pos,
		Distinct:    distinct,
		Projections: fields,
		Where:       params.Conditions["cond"],
		GroupBy:     params.Fields["groupBy"],
		OrderBy:     params.OrderedFields["orderBy"],
	}

	if n, ok := params.Numerics["top"]; ok {
		stmt.Top = numericLiteral(n)
	}
	if n, ok := params.Numerics["limit"]; ok {
		stmt.Limit = numericLiteral(n)
	}
	if src, ok := params.Sources["source"]; ok {
		stmt.Source = src
		stmt.SourceHints = params.Hints["sourceHints"]
	}
	if mode, ok := params.Atoms["mode"]; ok {
		if strings.EqualFold(mode, "INTO") {
			stmt.IntoMode = ast.IntoInto
		} else {
			stmt.IntoMode = ast.IntoOverwrite
		}
		stmt.Target = params.Atoms["target"]
		stmt.TargetHints = params.Hints["targetHints"]
	}
	return stmt, nil
}

// numericLiteral wraps a parsed %n: value back into an ast.Expr, since
// ast.SelectStmt.Top/Limit are evaluated like any other scalar expression
// at execute time (spec.md §4.6).
func numericLiteral(n float64) ast.Expr {
	if n == float64(int64(n)) {
		return &ast.Literal{Kind: ast.LitInt, Text: strconv.FormatInt(int64(n), 10)}
	}
	return &ast.Literal{Kind: ast.LitFloat, Text: strconv.FormatFloat(n, 'g', -1, 64)}
}
