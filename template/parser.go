package template

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/qiulin/qwery/ast"
	"github.com/qiulin/qwery/exprparser"
	"github.com/qiulin/qwery/lexer"
	"github.com/qiulin/qwery/qerrors"
	"github.com/qiulin/qwery/token"
)

func regexpCompile(src string) (*regexp.Regexp, error) { return regexp.Compile(src) }

// Parse walks a compiled []Step against ts, producing a TemplateParams.
// Steps outside any optional group are required: a failure there is a
// real SyntaxError and propagates immediately (spec.md §4.2). Steps
// forming a `?TAG +?TAG ...` run are tried together as one group: one
// Mark is taken at the group's start, and a failure on any tag in the
// group rewinds the whole group rather than leaving it partially
// consumed.
func Parse(steps []Step, ts *lexer.TokenStream) (*TemplateParams, error) {
	out := New()
	i := 0
	for i < len(steps) {
		step := steps[i]
		if !step.Optional {
			params, err := parseTag(step.Tag, ts)
			if err != nil {
				return nil, err
			}
			if err := out.Merge(params); err != nil {
				return nil, err
			}
			i++
			continue
		}

		// collect this optional step plus every immediately following
		// +?TAG continuation into one group.
		group := []Step{step}
		j := i + 1
		for j < len(steps) && steps[j].Continuation {
			group = append(group, steps[j])
			j++
		}

		mark := ts.Mark()
		groupParams := New()
		ok := true
		for _, gs := range group {
			params, err := parseTag(gs.Tag, ts)
			if err != nil {
				ok = false
				break
			}
			if err := groupParams.Merge(params); err != nil {
				return nil, err
			}
		}
		if ok {
			ts.Commit()
			if err := out.Merge(groupParams); err != nil {
				return nil, err
			}
		} else {
			ts.Reset()
		}
		i = j
	}
	return out, nil
}

// parseTag dispatches on tag kind, consuming tokens from ts and returning
// a single-key TemplateParams holding whatever it parsed.
func parseTag(tag Tag, ts *lexer.TokenStream) (*TemplateParams, error) {
	switch tag.kind {
	case tagLiteral:
		if _, err := ts.Expect(tag.literal); err != nil {
			return nil, err
		}
		return New(), nil

	case tagAtom:
		return parseAtomTag(tag, ts)

	case tagNumeric:
		return parseNumericTag(tag, ts)

	case tagVariable:
		return parseVariableTag(tag, ts)

	case tagCondition:
		cond, err := exprparser.ParseCondition(ts)
		if err != nil {
			return nil, err
		}
		p := New()
		p.Conditions[tag.name] = cond
		return p, nil

	case tagAssignable, tagExprOrSub:
		expr, err := parseExprOrSubquery(ts)
		if err != nil {
			return nil, err
		}
		p := New()
		p.Assignables[tag.name] = expr
		return p, nil

	case tagExprList:
		return parseExprListTag(tag, ts)

	case tagFieldList:
		return parseFieldListTag(tag, ts)

	case tagOrderedList:
		return parseOrderedListTag(tag, ts)

	case tagQuotedOrSub:
		return parseQuotedOrSubTag(tag, ts)

	case tagSubqueryOrSelect:
		return parseSubqueryOrSelectTag(tag, ts)

	case tagHints:
		hints, err := ParseHints(ts)
		if err != nil {
			return nil, err
		}
		p := New()
		p.Hints[tag.name] = hints
		return p, nil

	case tagChooser:
		return parseChooserTag(tag, ts)

	case tagRegex:
		// No concrete template in spec.md §4.5 uses %r; kept minimal:
		// matches the raw remainder of the current token's text against
		// the tag's regex and consumes one token on match.
		return parseRegexTag(tag, ts)

	case tagRepeat:
		return parseRepeatTag(tag, ts)
	}
	return nil, qerrors.Syntax(ts.Peek().Pos, "template: unknown tag kind")
}

func parseAtomTag(tag Tag, ts *lexer.TokenStream) (*TemplateParams, error) {
	cur := ts.Peek()
	var text string
	switch {
	case cur.Type == token.IDENT, cur.Type == token.STRING, cur.Type.IsKeyword():
		text = cur.Value
		ts.Next()
	default:
		return nil, qerrors.Syntax(cur.Pos, "expected atom (identifier or literal) for %%a:%s, got %q", tag.name, cur.Value)
	}
	p := New()
	p.Atoms[tag.name] = text
	return p, nil
}

func parseNumericTag(tag Tag, ts *lexer.TokenStream) (*TemplateParams, error) {
	cur := ts.Peek()
	if cur.Type != token.INT && cur.Type != token.FLOAT {
		return nil, qerrors.Syntax(cur.Pos, "expected number for %%n:%s, got %q", tag.name, cur.Value)
	}
	ts.Next()
	n, err := strconv.ParseFloat(cur.Value, 64)
	if err != nil {
		return nil, qerrors.Syntax(cur.Pos, "malformed number %q", cur.Value)
	}
	p := New()
	p.Numerics[tag.name] = n
	return p, nil
}

func parseVariableTag(tag Tag, ts *lexer.TokenStream) (*TemplateParams, error) {
	at := ts.Peek()
	if at.Type != token.AT {
		return nil, qerrors.Syntax(at.Pos, "expected @variable for %%v:%s, got %q", tag.name, at.Value)
	}
	ts.Next()
	name, err := ts.ExpectType(token.IDENT)
	if err != nil {
		return nil, err
	}
	p := New()
	p.Variables[tag.name] = VarRef{Name: name.Value, Pos: at.Pos}
	return p, nil
}

// parseExprOrSubquery parses either a general scalar expression or a
// parenthesised subquery (the %q:/%e: shared shape).
func parseExprOrSubquery(ts *lexer.TokenStream) (ast.Expr, error) {
	return exprparser.ParseExpr(ts)
}

func parseExprListTag(tag Tag, ts *lexer.TokenStream) (*TemplateParams, error) {
	var list []ast.AliasedExpr
	for {
		expr, err := exprparser.ParseExpr(ts)
		if err != nil {
			return nil, err
		}
		alias := ""
		if ts.Is("AS") {
			ts.Next()
			name, err := ts.ExpectType(token.IDENT)
			if err != nil {
				return nil, err
			}
			alias = name.Value
		}
		list = append(list, ast.AliasedExpr{Expr: expr, Alias: alias})
		if _, ok := ts.NextIf(","); !ok {
			break
		}
	}
	p := New()
	p.Expressions[tag.name] = list
	return p, nil
}

func parseFieldListTag(tag Tag, ts *lexer.TokenStream) (*TemplateParams, error) {
	var fields []ast.Field
	for {
		name, err := ts.ExpectType(token.IDENT)
		if err != nil {
			return nil, err
		}
		f := ast.Field{Name: name.Value}
		if ts.Peek().Type == token.DOT {
			ts.Next()
			col, err := ts.ExpectType(token.IDENT)
			if err != nil {
				return nil, err
			}
			f = ast.Field{Table: name.Value, Name: col.Value}
		}
		fields = append(fields, f)
		if _, ok := ts.NextIf(","); !ok {
			break
		}
	}
	p := New()
	p.Fields[tag.name] = fields
	return p, nil
}

func parseOrderedListTag(tag Tag, ts *lexer.TokenStream) (*TemplateParams, error) {
	var cols []ast.OrderedColumn
	for {
		name, err := ts.ExpectType(token.IDENT)
		if err != nil {
			return nil, err
		}
		asc := true
		if ts.Is("DESC") {
			ts.Next()
			asc = false
		} else if ts.Is("ASC") {
			ts.Next()
		}
		cols = append(cols, ast.OrderedColumn{Name: name.Value, Ascending: asc})
		if _, ok := ts.NextIf(","); !ok {
			break
		}
	}
	p := New()
	p.OrderedFields[tag.name] = cols
	return p, nil
}

// parseQuotedOrSubTag is the %s: tag: a quoted-literal source path, a
// parenthesised subquery, or a bare identifier naming a registered view.
func parseQuotedOrSubTag(tag Tag, ts *lexer.TokenStream) (*TemplateParams, error) {
	cur := ts.Peek()
	p := New()
	if cur.Type == token.STRING {
		ts.Next()
		p.Sources[tag.name] = &ast.DataResource{StartPos: cur.Pos, EndPos: ts.Peek().Pos, Path: cur.Value}
		return p, nil
	}
	if cur.Type == token.LPAREN {
		expr, err := exprparser.ParseExpr(ts)
		if err != nil {
			return nil, err
		}
		p.Sources[tag.name] = expr
		return p, nil
	}
	if cur.Type == token.IDENT {
		ts.Next()
		p.Sources[tag.name] = &ast.ViewRef{StartPos: cur.Pos, EndPos: ts.Peek().Pos, Name: cur.Value}
		return p, nil
	}
	return nil, qerrors.Syntax(cur.Pos, "expected quoted source, subquery, or view name for %%s:%s, got %q", tag.name, cur.Value)
}

// parseSubqueryOrSelectTag is the %S: tag: a parenthesised subquery, or a
// bare SELECT statement (used by CREATE VIEW ... AS).
func parseSubqueryOrSelectTag(tag Tag, ts *lexer.TokenStream) (*TemplateParams, error) {
	p := New()
	if ts.Peek().Type == token.LPAREN && ts.PeekAt(1).Type == token.SELECT {
		ts.Next()
		sel, err := parseSelectFn(ts)
		if err != nil {
			return nil, err
		}
		if _, err := ts.Expect(")"); err != nil {
			return nil, err
		}
		p.Selects[tag.name] = sel
		return p, nil
	}
	sel, err := parseSelectFn(ts)
	if err != nil {
		return nil, err
	}
	p.Selects[tag.name] = sel
	return p, nil
}

// parseSelectFn is injected by the compiler package (which owns the
// top-level statement templates) to avoid an import cycle: template
// cannot import compiler, since compiler builds on template.
type SelectFn func(ts *lexer.TokenStream) (*ast.SelectStmt, error)

var parseSelectFn SelectFn

// SetSelectParser wires in the SELECT-statement parser. Called once from
// the compiler package's init.
func SetSelectParser(fn SelectFn) { parseSelectFn = fn }

func parseChooserTag(tag Tag, ts *lexer.TokenStream) (*TemplateParams, error) {
	cur := ts.Peek()
	for _, opt := range tag.chooserOptions {
		if strings.EqualFold(cur.Value, opt) {
			ts.Next()
			p := New()
			p.Atoms[tag.name] = strings.ToUpper(opt)
			return p, nil
		}
	}
	return nil, qerrors.Syntax(cur.Pos, "expected one of %v for chooser %s, got %q", tag.chooserOptions, tag.name, cur.Value)
}

func parseRegexTag(tag Tag, ts *lexer.TokenStream) (*TemplateParams, error) {
	cur := ts.Peek()
	re, err := regexpCompile(tag.regexSrc)
	if err != nil {
		return nil, qerrors.Syntax(cur.Pos, "bad regex tag pattern: %v", err)
	}
	if !re.MatchString(cur.Value) {
		return nil, qerrors.Syntax(cur.Pos, "token %q does not match pattern /%s/", cur.Value, tag.regexSrc)
	}
	ts.Next()
	p := New()
	p.Atoms[tag.name] = cur.Value
	return p, nil
}

func parseRepeatTag(tag Tag, ts *lexer.TokenStream) (*TemplateParams, error) {
	var sets []*TemplateParams
	for {
		before := ts.Mark()
		iter, err := Parse(tag.repeatBody, ts)
		if err != nil {
			ts.Reset()
			break
		}
		after := ts.Mark()
		ts.Commit() // drop the "after" mark, keep progress
		ts.Commit() // drop the "before" mark
		if after == before {
			// no forward progress: stop rather than loop forever.
			break
		}
		sets = append(sets, iter)
	}
	p := New()
	p.RepeatedSets[tag.name] = sets
	return p, nil
}
