package compiler

import (
	"strings"

	"github.com/qiulin/qwery/ast"
	"github.com/qiulin/qwery/lexer"
	"github.com/qiulin/qwery/template"
)

// parseInsertStmt implements the two INSERT shapes from spec.md §4.5:
// `INSERT ... ( fields ) {{ VALUES (...) }}` (repeated) and
// `INSERT ... ( fields ) select-or-subquery`. Both share the same
// `INSERT mode target hints ( fields )` prefix, so the VALUES form is
// tried first and its mark is rewound to the select form on failure or
// on a zero-match repeat (ambiguous with "no VALUES clause at all").
func parseInsertStmt(ts *lexer.TokenStream) (*ast.InsertStmt, error) {
	mark := ts.Mark()
	params, err := template.Parse(insertValuesSteps, ts)
	if err == nil && len(params.RepeatedSets["values"]) > 0 {
		ts.Commit()
		return buildInsertValues(params)
	}
	ts.Reset()

	params, err = template.Parse(insertSelectSteps, ts)
	if err != nil {
		return nil, err
	}
	return buildInsertSelect(params)
}

func insertPrefix(params *template.TemplateParams) (overwrite bool, target string, hints ast.Hints, fields []string) {
	overwrite = strings.EqualFold(params.Atoms["mode"], "OVERWRITE")
	target = params.Atoms["target"]
	hints = params.Hints["hints"]
	for _, f := range params.Fields["fields"] {
		fields = append(fields, f.Name)
	}
	return
}

func buildInsertValues(params *template.TemplateParams) (*ast.InsertStmt, error) {
	overwrite, target, hints, fields := insertPrefix(params)
	stmt := &ast.InsertStmt{Overwrite: overwrite, Target: target, Hints: hints, Fields: fields}
	for _, set := range params.RepeatedSets["values"] {
		var tuple []ast.Expr
		for _, aliased := range set.Expressions["values"] {
			tuple = append(tuple, aliased.Expr)
		}
		stmt.Values = append(stmt.Values, tuple)
	}
	return stmt, nil
}

func buildInsertSelect(params *template.TemplateParams) (*ast.InsertStmt, error) {
	overwrite, target, hints, fields := insertPrefix(params)
	stmt := &ast.InsertStmt{Overwrite: overwrite, Target: target, Hints: hints, Fields: fields}
	stmt.Select = params.Selects["select"]
	return stmt, nil
}
