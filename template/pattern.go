package template

import (
	"fmt"
	"strings"
)

// tagKind identifies which §4.2 tag a Tag value represents.
type tagKind int

const (
	tagLiteral tagKind = iota
	tagAtom
	tagNumeric
	tagVariable
	tagCondition
	tagAssignable
	tagExprList
	tagFieldList
	tagOrderedList
	tagExprOrSub
	tagQuotedOrSub
	tagSubqueryOrSelect
	tagHints
	tagChooser
	tagRegex
	tagRepeat
)

// Tag is one pre-parsed grammar element. Patterns are parsed into a
// []Step once via Compile and reused across every Parse call (Design
// Notes §9: "templates as data").
type Tag struct {
	kind           tagKind
	name           string // the NAME after the tag's ':', or the option name for %C
	literal        string // literal keyword/symbol text for tagLiteral
	chooserOptions []string
	regexSrc       string
	repeatBody     []Step // pre-compiled body of a {{NAME ...}} block
}

// Step is one position in a compiled pattern: a Tag plus its
// optional/continuation role.
type Step struct {
	Tag          Tag
	Optional     bool // this step begins a `?TAG` optional group
	Continuation bool // this step is a `+?TAG` continuing the prior group
}

// Compile pre-parses a pattern string (spec.md §4.2) into a []Step.
// Compile is called once per statement shape at registration time; Parse
// never re-splits the string.
func Compile(pattern string) ([]Step, error) {
	toks, err := tokenizePattern(pattern)
	if err != nil {
		return nil, err
	}
	steps := make([]Step, 0, len(toks))
	for _, t := range toks {
		step, err := compileToken(t)
		if err != nil {
			return nil, fmt.Errorf("template: bad pattern token %q: %w", t, err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// tokenizePattern splits a pattern string on whitespace, except that a
// `{{ ... }}` repetition block (which may itself contain whitespace) and
// a `` %r`...` `` regex tag (whose pattern may contain whitespace) are
// each kept as a single token.
func tokenizePattern(pattern string) ([]string, error) {
	var out []string
	i := 0
	n := len(pattern)
	for i < n {
		for i < n && isSpace(pattern[i]) {
			i++
		}
		if i >= n {
			break
		}
		switch {
		case strings.HasPrefix(pattern[i:], "{{"):
			depth := 0
			j := i
			for j < n {
				if strings.HasPrefix(pattern[j:], "{{") {
					depth++
					j += 2
					continue
				}
				if strings.HasPrefix(pattern[j:], "}}") {
					depth--
					j += 2
					if depth == 0 {
						break
					}
					continue
				}
				j++
			}
			if depth != 0 {
				return nil, fmt.Errorf("template: unterminated {{ }} in pattern at offset %d", i)
			}
			out = append(out, pattern[i:j])
			i = j
		case strings.HasPrefix(pattern[i:], "%r"):
			j := i + 2
			if j >= n || pattern[j] != '`' {
				return nil, fmt.Errorf("template: malformed %%r tag at offset %d", i)
			}
			j++
			start := j
			for j < n && pattern[j] != '`' {
				j++
			}
			if j >= n {
				return nil, fmt.Errorf("template: unterminated %%r regex at offset %d", i)
			}
			out = append(out, "%r`"+pattern[start:j]+"`")
			i = j + 1
		default:
			j := i
			for j < n && !isSpace(pattern[j]) {
				j++
			}
			out = append(out, pattern[i:j])
			i = j
		}
	}
	return out, nil
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

func compileToken(t string) (Step, error) {
	switch {
	case strings.HasPrefix(t, "+?"):
		tag, err := compileTagContent(t[2:])
		if err != nil {
			return Step{}, err
		}
		return Step{Tag: tag, Continuation: true}, nil
	case strings.HasPrefix(t, "?"):
		tag, err := compileTagContent(t[1:])
		if err != nil {
			return Step{}, err
		}
		return Step{Tag: tag, Optional: true}, nil
	default:
		tag, err := compileTagContent(t)
		if err != nil {
			return Step{}, err
		}
		return Step{Tag: tag}, nil
	}
}

func compileTagContent(t string) (Tag, error) {
	switch {
	case strings.HasPrefix(t, "{{"):
		return compileRepeat(t)
	case strings.HasPrefix(t, "%a:"):
		return Tag{kind: tagAtom, name: t[3:]}, nil
	case strings.HasPrefix(t, "%n:"):
		return Tag{kind: tagNumeric, name: t[3:]}, nil
	case strings.HasPrefix(t, "%v:"):
		return Tag{kind: tagVariable, name: t[3:]}, nil
	case strings.HasPrefix(t, "%c:"):
		return Tag{kind: tagCondition, name: t[3:]}, nil
	case strings.HasPrefix(t, "%e:"):
		return Tag{kind: tagAssignable, name: t[3:]}, nil
	case strings.HasPrefix(t, "%E:"):
		return Tag{kind: tagExprList, name: t[3:]}, nil
	case strings.HasPrefix(t, "%F:"):
		return Tag{kind: tagFieldList, name: t[3:]}, nil
	case strings.HasPrefix(t, "%o:"):
		return Tag{kind: tagOrderedList, name: t[3:]}, nil
	case strings.HasPrefix(t, "%q:"):
		return Tag{kind: tagExprOrSub, name: t[3:]}, nil
	case strings.HasPrefix(t, "%s:"):
		return Tag{kind: tagQuotedOrSub, name: t[3:]}, nil
	case strings.HasPrefix(t, "%S:"):
		return Tag{kind: tagSubqueryOrSelect, name: t[3:]}, nil
	case strings.HasPrefix(t, "%w:"):
		return Tag{kind: tagHints, name: t[3:]}, nil
	case strings.HasPrefix(t, "%C("):
		return compileChooser(t)
	case strings.HasPrefix(t, "%r`"):
		inner := strings.TrimSuffix(strings.TrimPrefix(t, "%r`"), "`")
		return Tag{kind: tagRegex, regexSrc: inner}, nil
	default:
		return Tag{kind: tagLiteral, literal: t}, nil
	}
}

func compileChooser(t string) (Tag, error) {
	if !strings.HasSuffix(t, ")") {
		return Tag{}, fmt.Errorf("malformed %%C chooser %q", t)
	}
	inner := t[len("%C(") : len(t)-1]
	parts := strings.Split(inner, ",")
	if len(parts) < 2 {
		return Tag{}, fmt.Errorf("%%C chooser needs a name and at least one option: %q", t)
	}
	return Tag{kind: tagChooser, name: parts[0], chooserOptions: parts[1:]}, nil
}

func compileRepeat(t string) (Tag, error) {
	if !strings.HasPrefix(t, "{{") || !strings.HasSuffix(t, "}}") {
		return Tag{}, fmt.Errorf("malformed {{ }} block %q", t)
	}
	inner := strings.TrimSpace(t[2 : len(t)-2])
	sp := strings.IndexAny(inner, " \t\n\r")
	var name, body string
	if sp < 0 {
		name, body = inner, ""
	} else {
		name, body = inner[:sp], inner[sp+1:]
	}
	steps, err := Compile(body)
	if err != nil {
		return Tag{}, err
	}
	return Tag{kind: tagRepeat, name: name, repeatBody: steps}, nil
}
