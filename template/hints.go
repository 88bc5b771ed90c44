package template

import (
	"strings"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/qiulin/qwery/ast"
	"github.com/qiulin/qwery/lexer"
	"github.com/qiulin/qwery/qerrors"
	"github.com/qiulin/qwery/token"
)

// ParseHints parses zero or more `WITH ...` clauses (spec.md §4.3) and
// folds them into one ast.Hints via successive right-wins Merge calls.
// Absence of any WITH clause yields the empty Hints. An unrecognised
// clause inside the loop is a SyntaxError, not a silent stop.
func ParseHints(ts *lexer.TokenStream) (ast.Hints, error) {
	var hints ast.Hints
	for ts.Is("WITH") {
		mark := ts.Mark()
		ts.Next() // WITH
		clause, err := parseOneHintClause(ts)
		if err != nil {
			ts.Reset()
			return ast.Hints{}, err
		}
		ts.Commit()
		hints = hints.Merge(clause)
	}
	return hints, nil
}

func parseOneHintClause(ts *lexer.TokenStream) (ast.Hints, error) {
	switch {
	case ts.Is("AVRO"):
		ts.Next()
		schema, err := expectAtomText(ts)
		if err != nil {
			return ast.Hints{}, err
		}
		return ast.Hints{AvroSchema: &schema}, nil

	case ts.Is("GZIP"):
		ts.Next()
		if _, err := ts.Expect("COMPRESSION"); err != nil {
			return ast.Hints{}, err
		}
		t := true
		return ast.Hints{Gzip: &t}, nil

	case ts.Is("DELIMITER"):
		ts.Next()
		delim, err := expectAtomText(ts)
		if err != nil {
			return ast.Hints{}, err
		}
		return ast.Hints{Delimiter: &delim}, nil

	case ts.Is("CSV"), ts.Is("JSON"), ts.Is("PSV"), ts.Is("TSV"):
		format := strings.ToUpper(ts.Next().Value)
		if _, err := ts.Expect("FORMAT"); err != nil {
			return ast.Hints{}, err
		}
		return ast.Hints{}.UsingFormat(format), nil

	case ts.Is("COLUMN"):
		ts.Next()
		if _, err := ts.Expect("HEADERS"); err != nil {
			return ast.Hints{}, err
		}
		t := true
		return ast.Hints{Headers: &t}, nil

	case ts.Is("PROPERTIES"):
		ts.Next()
		path, err := expectAtomText(ts)
		if err != nil {
			return ast.Hints{}, err
		}
		props, err := loadProperties(path)
		if err != nil {
			return ast.Hints{}, err
		}
		return ast.Hints{Properties: props}, nil

	case ts.Is("QUOTED"):
		ts.Next()
		switch {
		case ts.Is("NUMBERS"):
			ts.Next()
			t := true
			return ast.Hints{QuotedNumbers: &t}, nil
		case ts.Is("TEXT"):
			ts.Next()
			t := true
			return ast.Hints{QuotedText: &t}, nil
		default:
			cur := ts.Peek()
			return ast.Hints{}, qerrors.Syntax(cur.Pos, "expected NUMBERS or TEXT after WITH QUOTED, got %q", cur.Value)
		}

	default:
		cur := ts.Peek()
		return ast.Hints{}, qerrors.Syntax(cur.Pos, "unrecognised WITH clause starting at %q", cur.Value)
	}
}

// expectAtomText consumes an identifier or quoted-string token and
// returns its text, matching the %a: atom shape used throughout the WITH
// grammar (spec.md §4.3).
func expectAtomText(ts *lexer.TokenStream) (string, error) {
	cur := ts.Peek()
	if cur.Type != token.IDENT && cur.Type != token.STRING && !cur.Type.IsKeyword() {
		return "", qerrors.Syntax(cur.Pos, "expected identifier or quoted literal, got %q", cur.Value)
	}
	ts.Next()
	return cur.Value, nil
}

// loadProperties reads a key=value properties file via koanf, grounded on
// the pack's dotenv-provider usage for WITH PROPERTIES file hints.
func loadProperties(path string) (map[string]string, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), dotenv.Parser()); err != nil {
		return nil, qerrors.Resource(qerrors.PhaseOpen, err, "loading properties file %q", path)
	}
	out := make(map[string]string, len(k.Keys()))
	for _, key := range k.Keys() {
		out[key] = k.String(key)
	}
	return out, nil
}
