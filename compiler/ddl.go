package compiler

import (
	"strings"

	"github.com/qiulin/qwery/ast"
	"github.com/qiulin/qwery/lexer"
	"github.com/qiulin/qwery/qerrors"
	"github.com/qiulin/qwery/template"
)

// parseDescribeStmt implements `DESCRIBE source [LIMIT n]` (spec.md
// §4.5). DESCRIBE has no reserved-word token of its own; the leading
// literal is matched by value inside the compiled pattern.
func parseDescribeStmt(ts *lexer.TokenStream) (*ast.DescribeStmt, error) {
	start := ts.Peek().Pos
	params, err := template.Parse(describeSteps, ts)
	if err != nil {
		return nil, err
	}
	stmt := &ast.DescribeStmt{StartPos: start, EndPos: ts.Peek().Pos, Source: params.Sources["source"]}
	if n, ok := params.Numerics["limit"]; ok {
		stmt.Limit = numericLiteral(n)
	}
	return stmt, nil
}

// parseDeclareStmt implements `DECLARE @var TYPE`.
func parseDeclareStmt(ts *lexer.TokenStream) (*ast.DeclareStmt, error) {
	start := ts.Peek().Pos
	params, err := template.Parse(declareSteps, ts)
	if err != nil {
		return nil, err
	}
	typ, err := castTypeFromAtom(params.Atoms["type"])
	if err != nil {
		return nil, qerrors.Syntax(start, "%s", err.Error())
	}
	return &ast.DeclareStmt{
		StartPos: start,
		EndPos:   ts.Peek().Pos,
		Name:     params.Variables["name"].Name,
		Type:     typ,
	}, nil
}

// parseAssignStmt implements `SET @var = expr | SELECT ...`.
func parseAssignStmt(ts *lexer.TokenStream) (*ast.AssignStmt, error) {
	start := ts.Peek().Pos
	params, err := template.Parse(assignSteps, ts)
	if err != nil {
		return nil, err
	}
	return &ast.AssignStmt{
		StartPos: start,
		EndPos:   ts.Peek().Pos,
		Name:     params.Variables["name"].Name,
		Expr:     params.Assignables["expression"],
	}, nil
}

// parseShowStmt implements `SHOW VIEWS|CONNECTIONS|VARIABLES`, a fixed
// whitelist per spec.md §9 — any other identifier is a SyntaxError, not
// a silently-ignored no-op.
func parseShowStmt(ts *lexer.TokenStream) (*ast.ShowStmt, error) {
	start := ts.Peek().Pos
	params, err := template.Parse(showSteps, ts)
	if err != nil {
		return nil, err
	}
	entity, err := showEntityFromAtom(params.Atoms["entityType"])
	if err != nil {
		return nil, qerrors.Syntax(start, "%s", err.Error())
	}
	return &ast.ShowStmt{StartPos: start, EndPos: ts.Peek().Pos, Entity: entity}, nil
}

// parseViewStmt implements `CREATE VIEW name AS select-or-subquery`.
func parseViewStmt(ts *lexer.TokenStream) (*ast.ViewStmt, error) {
	start := ts.Peek().Pos
	params, err := template.Parse(viewSteps, ts)
	if err != nil {
		return nil, err
	}
	return &ast.ViewStmt{
		StartPos: start,
		EndPos:   ts.Peek().Pos,
		Name:     params.Atoms["name"],
		Query:    params.Selects["query"],
	}, nil
}

// parseConnectStmt implements `CONNECT TO service [WITH hints] AS name`.
func parseConnectStmt(ts *lexer.TokenStream) (*ast.ConnectStmt, error) {
	start := ts.Peek().Pos
	params, err := template.Parse(connectSteps, ts)
	if err != nil {
		return nil, err
	}
	return &ast.ConnectStmt{
		StartPos: start,
		EndPos:   ts.Peek().Pos,
		Service:  params.Atoms["service"],
		Hints:    params.Hints["hints"],
		Name:     params.Atoms["name"],
	}, nil
}

// parseDisconnectStmt implements `DISCONNECT FROM handle`.
func parseDisconnectStmt(ts *lexer.TokenStream) (*ast.DisconnectStmt, error) {
	start := ts.Peek().Pos
	params, err := template.Parse(disconnSteps, ts)
	if err != nil {
		return nil, err
	}
	return &ast.DisconnectStmt{
		StartPos: start,
		EndPos:   ts.Peek().Pos,
		Handle:   params.Atoms["handle"],
	}, nil
}

func castTypeFromAtom(s string) (ast.CastType, error) {
	switch strings.ToUpper(s) {
	case "BOOLEAN":
		return ast.CastBoolean, nil
	case "INTEGER":
		return ast.CastInteger, nil
	case "LONG":
		return ast.CastLong, nil
	case "DOUBLE":
		return ast.CastDouble, nil
	case "STRING":
		return ast.CastString, nil
	case "DATE":
		return ast.CastDate, nil
	case "BINARY":
		return ast.CastBinary, nil
	}
	return 0, qerrors.Semantic(qerrors.PhaseCompile, "unknown type %q, expected one of BOOLEAN, INTEGER, LONG, DOUBLE, STRING, DATE, BINARY", s)
}

func showEntityFromAtom(s string) (ast.ShowEntity, error) {
	switch strings.ToUpper(s) {
	case "VIEWS":
		return ast.ShowViews, nil
	case "CONNECTIONS":
		return ast.ShowConnections, nil
	case "VARIABLES":
		return ast.ShowVariables, nil
	}
	return 0, qerrors.Semantic(qerrors.PhaseCompile, "unknown SHOW entity %q, expected VIEWS, CONNECTIONS, or VARIABLES", s)
}
