package compiler

import (
	"strings"

	"github.com/qiulin/qwery/ast"
	"github.com/qiulin/qwery/exprparser"
	"github.com/qiulin/qwery/lexer"
	"github.com/qiulin/qwery/qerrors"
	"github.com/qiulin/qwery/template"
	"github.com/qiulin/qwery/token"
)

func init() {
	// Break the template/exprparser <-> compiler import cycle described in
	// both packages' SetSelectParser doc comments: compiler is the only
	// package that knows how to parse a full SELECT, so it registers
	// itself as the callback both lower packages invoke for `(SELECT ...)`
	// subqueries and `%S:` tags.
	exprparser.SetSelectParser(parseSelectStmt)
	template.SetSelectParser(parseSelectStmt)
}

// ParseStatement parses exactly one statement from ts, dispatching on the
// leading token (spec.md §4.5's statement shapes). DESCRIBE has no
// reserved-word token of its own (it lexes as a plain IDENT), so it is
// recognised by value rather than by token.Token kind.
func ParseStatement(ts *lexer.TokenStream) (ast.Statement, error) {
	cur := ts.Peek()
	switch cur.Type {
	case token.SELECT:
		return parseSelectStmt(ts)
	case token.INSERT:
		return parseInsertStmt(ts)
	case token.DECLARE:
		return parseDeclareStmt(ts)
	case token.SET:
		return parseAssignStmt(ts)
	case token.SHOW:
		return parseShowStmt(ts)
	case token.CREATE:
		return parseViewStmt(ts)
	case token.CONNECT:
		return parseConnectStmt(ts)
	case token.DISCONNECT:
		return parseDisconnectStmt(ts)
	}
	if cur.Type == token.IDENT && strings.EqualFold(cur.Value, "DESCRIBE") {
		return parseDescribeStmt(ts)
	}
	return nil, qerrors.Syntax(cur.Pos, "unexpected token %q: not the start of any known statement", cur.Value)
}

// ParseAll parses src as a `;`-separated sequence of statements (spec.md
// §8 scenario 4: "DECLARE @x DOUBLE; SET @x = 2 * 3 + 1; SELECT @x AS v").
// A trailing `;` is allowed; blank statements between two `;` are
// skipped.
func ParseAll(src string) ([]ast.Statement, error) {
	ts := lexer.NewTokenStream(src)
	var stmts []ast.Statement
	for {
		for ts.Is(";") {
			ts.Next()
		}
		if ts.AtEOF() {
			break
		}
		stmt, err := ParseStatement(ts)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		if !ts.Is(";") && !ts.AtEOF() {
			cur := ts.Peek()
			return nil, qerrors.Syntax(cur.Pos, "expected ';' or end of input, got %q", cur.Value)
		}
	}
	return stmts, nil
}
