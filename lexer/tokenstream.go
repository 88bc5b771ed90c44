package lexer

import (
	"strings"

	"github.com/qiulin/qwery/qerrors"
	"github.com/qiulin/qwery/token"
)

// TokenStream is a cursor over a Lexer's tokens with a LIFO mark/reset
// stack (spec.md §3, §4.1). The template parser's `?TAG`/`+?TAG` optional
// tags rely on Mark/Reset to undo partial consumption on failure.
type TokenStream struct {
	lex   *Lexer
	buf   []token.Item // tokens already scanned, in order
	pos   int          // index into buf of the "current" unconsumed token
	marks []int        // saved pos values, LIFO
}

// NewTokenStream builds a TokenStream over src.
func NewTokenStream(src string) *TokenStream {
	ts := &TokenStream{lex: New(src)}
	ts.fill(1)
	return ts
}

// fill ensures at least n tokens are buffered from pos onward.
func (ts *TokenStream) fill(n int) {
	for len(ts.buf)-ts.pos < n {
		ts.buf = append(ts.buf, ts.lex.Next())
		if ts.buf[len(ts.buf)-1].Type == token.EOF {
			// keep returning EOF without re-scanning past end of input
			if len(ts.buf)-ts.pos >= n {
				return
			}
			ts.buf = append(ts.buf, ts.buf[len(ts.buf)-1])
		}
	}
}

// Peek returns the current (not-yet-consumed) token without advancing.
func (ts *TokenStream) Peek() token.Item {
	ts.fill(1)
	return ts.buf[ts.pos]
}

// PeekAt returns the token n positions ahead of current (0 = Peek()).
func (ts *TokenStream) PeekAt(n int) token.Item {
	ts.fill(n + 1)
	return ts.buf[ts.pos+n]
}

// Next consumes and returns the current token.
func (ts *TokenStream) Next() token.Item {
	item := ts.Peek()
	ts.pos++
	return item
}

// Is reports whether the current token's text equals s, case-insensitive
// for keywords/identifiers and exact for quoted string literals.
func (ts *TokenStream) Is(s string) bool {
	cur := ts.Peek()
	if cur.Type == token.STRING {
		return cur.Value == s
	}
	return strings.EqualFold(cur.Value, s)
}

// IsType reports whether the current token has kind t.
func (ts *TokenStream) IsType(t token.Token) bool {
	return ts.Peek().Type == t
}

// NextIf consumes and returns (item, true) iff the current token's text
// equals s (see Is); otherwise leaves the stream untouched.
func (ts *TokenStream) NextIf(s string) (token.Item, bool) {
	if ts.Is(s) {
		return ts.Next(), true
	}
	return token.Item{}, false
}

// Expect consumes the current token if it matches s, else returns a
// SyntaxError.
func (ts *TokenStream) Expect(s string) (token.Item, error) {
	if item, ok := ts.NextIf(s); ok {
		return item, nil
	}
	cur := ts.Peek()
	return token.Item{}, qerrors.Syntax(cur.Pos, "expected %q, got %q", s, cur.Value)
}

// ExpectType consumes the current token if its kind is t, else returns a
// SyntaxError.
func (ts *TokenStream) ExpectType(t token.Token) (token.Item, error) {
	cur := ts.Peek()
	if cur.Type == t {
		return ts.Next(), nil
	}
	return token.Item{}, qerrors.Syntax(cur.Pos, "expected %s, got %q", t, cur.Value)
}

// AtEOF reports whether the stream is exhausted.
func (ts *TokenStream) AtEOF() bool { return ts.Peek().Type == token.EOF }

// Mark pushes the current position onto the mark stack and returns it.
func (ts *TokenStream) Mark() int {
	ts.marks = append(ts.marks, ts.pos)
	return ts.pos
}

// Reset pops the most recent mark and rewinds the stream to it. Panics if
// the mark stack is empty, matching the "LIFO" invariant in spec.md §3:
// every Mark must be paired with exactly one Reset or Commit.
func (ts *TokenStream) Reset() {
	n := len(ts.marks) - 1
	ts.pos = ts.marks[n]
	ts.marks = ts.marks[:n]
}

// Commit pops the most recent mark without rewinding, keeping whatever
// progress was made since it was taken.
func (ts *TokenStream) Commit() {
	ts.marks = ts.marks[:len(ts.marks)-1]
}
