// Package exprparser implements the recursive-descent Expression &
// Condition parser from spec.md §4.4, built on lexer.TokenStream. The
// precedence ladder (low to high) is: OR; AND; NOT; comparison; additive;
// multiplicative; unary; primary.
package exprparser

import (
	"strconv"
	"strings"

	"github.com/qiulin/qwery/ast"
	"github.com/qiulin/qwery/lexer"
	"github.com/qiulin/qwery/qerrors"
	"github.com/qiulin/qwery/token"
)

// SelectParser is implemented by the compiler package's statement parser
// so exprparser can parse a scalar subquery (`(SELECT ...)`) without
// importing compiler, which would create an import cycle (compiler
// depends on exprparser, not the reverse). It is injected once at
// startup via SetSelectParser.
type SelectParser func(ts *lexer.TokenStream) (*ast.SelectStmt, error)

var parseSelect SelectParser

// SetSelectParser wires the statement-level SELECT parser in. Called once
// from the compiler package's init.
func SetSelectParser(p SelectParser) { parseSelect = p }

// ParseCondition parses a full boolean condition (the %c: tag).
func ParseCondition(ts *lexer.TokenStream) (ast.Cond, error) {
	return parseOr(ts)
}

// ParseExpr parses a general scalar expression (the %e:/%q: tags).
func ParseExpr(ts *lexer.TokenStream) (ast.Expr, error) {
	return parseAdditive(ts)
}

func parseOr(ts *lexer.TokenStream) (ast.Cond, error) {
	start := ts.Peek().Pos
	left, err := parseAnd(ts)
	if err != nil {
		return nil, err
	}
	for ts.Is("OR") {
		ts.Next()
		right, err := parseAnd(ts)
		if err != nil {
			return nil, err
		}
		left = &ast.BoolCond{StartPos: start, EndPos: ts.Peek().Pos, Op: ast.OpOr, Left: left, Right: right}
	}
	return left, nil
}

func parseAnd(ts *lexer.TokenStream) (ast.Cond, error) {
	start := ts.Peek().Pos
	left, err := parseNot(ts)
	if err != nil {
		return nil, err
	}
	for ts.Is("AND") {
		ts.Next()
		right, err := parseNot(ts)
		if err != nil {
			return nil, err
		}
		left = &ast.BoolCond{StartPos: start, EndPos: ts.Peek().Pos, Op: ast.OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func parseNot(ts *lexer.TokenStream) (ast.Cond, error) {
	if ts.Is("NOT") {
		start := ts.Next().Pos
		operand, err := parseNot(ts)
		if err != nil {
			return nil, err
		}
		return &ast.NotCond{StartPos: start, EndPos: ts.Peek().Pos, Operand: operand}, nil
	}
	return parseComparison(ts)
}

func parseComparison(ts *lexer.TokenStream) (ast.Cond, error) {
	start := ts.Peek().Pos
	left, err := parseAdditive(ts)
	if err != nil {
		return nil, err
	}

	notPos := -1
	if ts.Is("NOT") {
		notPos = ts.Mark()
		ts.Next()
	}

	switch {
	case ts.Is("LIKE"):
		ts.Next()
		right, err := parseAdditive(ts)
		if err != nil {
			return nil, err
		}
		if notPos >= 0 {
			ts.Commit()
		}
		return &ast.LikeCond{StartPos: start, EndPos: ts.Peek().Pos, Not: notPos >= 0, Operand: left, Pattern: right}, nil
	case ts.Is("RLIKE"):
		ts.Next()
		right, err := parseAdditive(ts)
		if err != nil {
			return nil, err
		}
		if notPos >= 0 {
			ts.Commit()
		}
		return &ast.LikeCond{StartPos: start, EndPos: ts.Peek().Pos, Regex: true, Not: notPos >= 0, Operand: left, Pattern: right}, nil
	}

	if notPos >= 0 {
		// the NOT did not introduce LIKE/RLIKE; put it back and let the
		// caller's parseNot handle a leading NOT instead.
		ts.Reset()
	}

	if ts.Is("IS") {
		ts.Next()
		not := false
		if ts.Is("NOT") {
			ts.Next()
			not = true
		}
		if _, err := ts.Expect("NULL"); err != nil {
			return nil, err
		}
		return &ast.NullCond{StartPos: start, EndPos: ts.Peek().Pos, Not: not, Operand: left}, nil
	}

	op, ok := matchCmpOp(ts)
	if !ok {
		cur := ts.Peek()
		return nil, qerrors.Syntax(cur.Pos, "expected comparison operator, got %q", cur.Value)
	}
	right, err := parseAdditive(ts)
	if err != nil {
		return nil, err
	}
	return &ast.Compare{StartPos: start, EndPos: ts.Peek().Pos, Op: op, Left: left, Right: right}, nil
}

func matchCmpOp(ts *lexer.TokenStream) (ast.CmpOp, bool) {
	cur := ts.Peek()
	switch cur.Type {
	case token.EQ:
		ts.Next()
		return ast.CmpEq, true
	case token.NEQ:
		ts.Next()
		return ast.CmpNe, true
	case token.LT:
		ts.Next()
		return ast.CmpLt, true
	case token.LTE:
		ts.Next()
		return ast.CmpLe, true
	case token.GT:
		ts.Next()
		return ast.CmpGt, true
	case token.GTE:
		ts.Next()
		return ast.CmpGe, true
	}
	return 0, false
}

func parseAdditive(ts *lexer.TokenStream) (ast.Expr, error) {
	start := ts.Peek().Pos
	left, err := parseMultiplicative(ts)
	if err != nil {
		return nil, err
	}
	for {
		var op ast.ArithOp
		switch ts.Peek().Type {
		case token.PLUS:
			op = ast.ArithAdd
		case token.MINUS:
			op = ast.ArithSub
		case token.CONCAT:
			op = ast.ArithConcat
		default:
			return left, nil
		}
		ts.Next()
		right, err := parseMultiplicative(ts)
		if err != nil {
			return nil, err
		}
		left = &ast.Arithmetic{StartPos: start, EndPos: ts.Peek().Pos, Op: op, Left: left, Right: right}
	}
}

func parseMultiplicative(ts *lexer.TokenStream) (ast.Expr, error) {
	start := ts.Peek().Pos
	left, err := parseUnary(ts)
	if err != nil {
		return nil, err
	}
	for {
		var op ast.ArithOp
		switch ts.Peek().Type {
		case token.ASTERISK:
			op = ast.ArithMul
		case token.SLASH:
			op = ast.ArithDiv
		case token.PERCENT:
			op = ast.ArithMod
		default:
			return left, nil
		}
		ts.Next()
		right, err := parseUnary(ts)
		if err != nil {
			return nil, err
		}
		left = &ast.Arithmetic{StartPos: start, EndPos: ts.Peek().Pos, Op: op, Left: left, Right: right}
	}
}

func parseUnary(ts *lexer.TokenStream) (ast.Expr, error) {
	if ts.Peek().Type == token.MINUS {
		start := ts.Next().Pos
		operand, err := parseUnary(ts)
		if err != nil {
			return nil, err
		}
		return &ast.Negate{StartPos: start, EndPos: ts.Peek().Pos, Operand: operand}, nil
	}
	return parsePrimary(ts)
}

func parsePrimary(ts *lexer.TokenStream) (ast.Expr, error) {
	cur := ts.Peek()
	switch cur.Type {
	case token.INT:
		ts.Next()
		return &ast.Literal{StartPos: cur.Pos, EndPos: ts.Peek().Pos, Kind: ast.LitInt, Text: cur.Value}, nil
	case token.FLOAT:
		ts.Next()
		return &ast.Literal{StartPos: cur.Pos, EndPos: ts.Peek().Pos, Kind: ast.LitFloat, Text: cur.Value}, nil
	case token.STRING:
		ts.Next()
		return &ast.Literal{StartPos: cur.Pos, EndPos: ts.Peek().Pos, Kind: ast.LitString, Text: cur.Value}, nil
	case token.NULL:
		ts.Next()
		return &ast.Literal{StartPos: cur.Pos, EndPos: ts.Peek().Pos, Kind: ast.LitNull}, nil
	case token.TRUE:
		ts.Next()
		return &ast.Literal{StartPos: cur.Pos, EndPos: ts.Peek().Pos, Kind: ast.LitBool, Text: "true"}, nil
	case token.FALSE:
		ts.Next()
		return &ast.Literal{StartPos: cur.Pos, EndPos: ts.Peek().Pos, Kind: ast.LitBool, Text: "false"}, nil
	case token.ASTERISK:
		ts.Next()
		return &ast.StarExpr{StartPos: cur.Pos, EndPos: ts.Peek().Pos}, nil
	case token.AT:
		ts.Next()
		name, err := ts.ExpectType(token.IDENT)
		if err != nil {
			return nil, err
		}
		return &ast.VariableRef{StartPos: cur.Pos, EndPos: ts.Peek().Pos, Name: name.Value}, nil
	case token.CASE:
		return parseCase(ts)
	case token.CAST:
		return parseCast(ts)
	case token.LPAREN:
		return parseParenOrSubquery(ts)
	}

	if cur.Type == token.IDENT || cur.Type.IsKeyword() {
		return parseIdentLike(ts)
	}

	return nil, qerrors.Syntax(cur.Pos, "unexpected token %q in expression", cur.Value)
}

func parseIdentLike(ts *lexer.TokenStream) (ast.Expr, error) {
	first := ts.Next()

	// qualified field: ident.ident
	if ts.Peek().Type == token.DOT {
		ts.Next()
		second, err := ts.ExpectType(token.IDENT)
		if err != nil {
			return nil, err
		}
		return &ast.FieldRef{StartPos: first.Pos, EndPos: ts.Peek().Pos, Table: first.Value, Name: second.Value}, nil
	}

	// function / aggregate call: ident ( args )
	if ts.Peek().Type == token.LPAREN {
		ts.Next()
		if token.IsAggregateName(first.Value) {
			return parseAggregateArgs(ts, first)
		}
		var args []ast.Expr
		if ts.Peek().Type != token.RPAREN {
			for {
				arg, err := ParseExpr(ts)
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if _, ok := ts.NextIf(","); !ok {
					break
				}
			}
		}
		end, err := ts.Expect(")")
		if err != nil {
			return nil, err
		}
		return &ast.FunctionCall{StartPos: first.Pos, EndPos: end.Pos, Name: first.Value, Args: args}, nil
	}

	return &ast.FieldRef{StartPos: first.Pos, EndPos: ts.Peek().Pos, Name: first.Value}, nil
}

func parseAggregateArgs(ts *lexer.TokenStream, name token.Item) (ast.Expr, error) {
	distinct := false
	if ts.Is("DISTINCT") {
		ts.Next()
		distinct = true
	}
	if ts.Peek().Type == token.ASTERISK {
		ts.Next()
		end, err := ts.Expect(")")
		if err != nil {
			return nil, err
		}
		return &ast.AggregateCall{StartPos: name.Pos, EndPos: end.Pos, Name: strings.ToUpper(name.Value), Star: true, Distinct: distinct}, nil
	}
	arg, err := ParseExpr(ts)
	if err != nil {
		return nil, err
	}
	end, err := ts.Expect(")")
	if err != nil {
		return nil, err
	}
	return &ast.AggregateCall{StartPos: name.Pos, EndPos: end.Pos, Name: strings.ToUpper(name.Value), Arg: arg, Distinct: distinct}, nil
}

func parseCase(ts *lexer.TokenStream) (ast.Expr, error) {
	start, err := ts.ExpectType(token.CASE)
	if err != nil {
		return nil, err
	}
	var whens []ast.WhenClause
	for ts.Is("WHEN") {
		ts.Next()
		cond, err := ParseCondition(ts)
		if err != nil {
			return nil, err
		}
		if _, err := ts.Expect("THEN"); err != nil {
			return nil, err
		}
		then, err := ParseExpr(ts)
		if err != nil {
			return nil, err
		}
		whens = append(whens, ast.WhenClause{When: cond, Then: then})
	}
	var elseExpr ast.Expr
	if ts.Is("ELSE") {
		ts.Next()
		elseExpr, err = ParseExpr(ts)
		if err != nil {
			return nil, err
		}
	}
	end, err := ts.Expect("END")
	if err != nil {
		return nil, err
	}
	return &ast.Case{StartPos: start.Pos, EndPos: end.Pos, Whens: whens, Else: elseExpr}, nil
}

func parseCast(ts *lexer.TokenStream) (ast.Expr, error) {
	start, err := ts.ExpectType(token.CAST)
	if err != nil {
		return nil, err
	}
	if _, err := ts.Expect("("); err != nil {
		return nil, err
	}
	operand, err := ParseExpr(ts)
	if err != nil {
		return nil, err
	}
	if _, err := ts.Expect("AS"); err != nil {
		return nil, err
	}
	typ, err := parseCastType(ts)
	if err != nil {
		return nil, err
	}
	end, err := ts.Expect(")")
	if err != nil {
		return nil, err
	}
	return &ast.Cast{StartPos: start.Pos, EndPos: end.Pos, Operand: operand, Type: typ}, nil
}

func parseCastType(ts *lexer.TokenStream) (ast.CastType, error) {
	cur := ts.Next()
	switch strings.ToUpper(cur.Value) {
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
	default:
		return 0, qerrors.Syntax(cur.Pos, "unknown CAST/DECLARE type %q", cur.Value)
	}
}

func parseParenOrSubquery(ts *lexer.TokenStream) (ast.Expr, error) {
	start := ts.Peek().Pos
	if ts.PeekAt(1).Type == token.SELECT {
		ts.Next() // (
		if parseSelect == nil {
			return nil, qerrors.Syntax(start, "subquery support not wired (no SELECT parser registered)")
		}
		sel, err := parseSelect(ts)
		if err != nil {
			return nil, err
		}
		end, err := ts.Expect(")")
		if err != nil {
			return nil, err
		}
		return &ast.Subquery{StartPos: start, EndPos: end.Pos, Select: sel}, nil
	}
	ts.Next() // (
	inner, err := ParseExpr(ts)
	if err != nil {
		return nil, err
	}
	if _, err := ts.Expect(")"); err != nil {
		return nil, err
	}
	return inner, nil
}

// ParseNumber parses an integer/float literal token's text (used outside
// expression context by the %n: tag).
func ParseNumber(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
