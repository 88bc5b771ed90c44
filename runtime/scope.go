package runtime

import (
	"sort"
	"strings"

	"github.com/qiulin/qwery/ast"
	"github.com/qiulin/qwery/qerrors"
	"github.com/qiulin/qwery/value"
)

// Variable is a DECLAREd @name binding: a fixed type plus current value.
type Variable struct {
	Name  string
	Type  ast.CastType
	Value value.Value
}

// Connection is a named, open external service handle registered by
// CONNECT TO ... AS name.
type Connection struct {
	Name    string
	Service string
	Hints   ast.Hints
}

// Scope is the lexical environment a statement executes in: a
// parent-chained set of variables, views, and connections, plus
// accumulated non-fatal warnings (spec.md §3, §9 supplemented feature).
// A child Scope is opened per nested source (e.g. a subquery or a view
// body) and records the row currently being evaluated by its parent
// SELECT so correlated field references resolve outward.
type Scope struct {
	parent *Scope

	variables   map[string]*Variable
	views       map[string]*ast.SelectStmt
	connections map[string]*Connection
	warnings    *[]string // shared with the root Scope

	// row is the row of the enclosing SELECT, if this Scope was opened to
	// evaluate an expression against one (WHERE/projection/subquery).
	row    Row
	hasRow bool
}

// NewRootScope creates a top-level Scope with no parent.
func NewRootScope() *Scope {
	warnings := make([]string, 0)
	return &Scope{
		variables:   map[string]*Variable{},
		views:       map[string]*ast.SelectStmt{},
		connections: map[string]*Connection{},
		warnings:    &warnings,
	}
}

// Child opens a nested Scope sharing the root's warning log.
func (s *Scope) Child() *Scope {
	return &Scope{
		parent:      s,
		variables:   map[string]*Variable{},
		views:       map[string]*ast.SelectStmt{},
		connections: map[string]*Connection{},
		warnings:    s.warnings,
	}
}

// WithRow returns a child Scope recording row as the current row of the
// enclosing SELECT, per spec.md §4.6 ("open source -> child Scope
// recording current row").
func (s *Scope) WithRow(row Row) *Scope {
	c := s.Child()
	c.row = row
	c.hasRow = true
	return c
}

// CurrentRow returns the row recorded by the nearest enclosing WithRow
// Scope, searching outward through parents.
func (s *Scope) CurrentRow() (Row, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if sc.hasRow {
			return sc.row, true
		}
	}
	return Row{}, false
}

// Warn appends a non-fatal diagnostic to the shared warning log.
func (s *Scope) Warn(msg string) { *s.warnings = append(*s.warnings, msg) }

// Warnings returns every warning accumulated so far, in order.
func (s *Scope) Warnings() []string { return append([]string(nil), (*s.warnings)...) }

// Declare introduces a new variable in this Scope, initialised to NULL.
func (s *Scope) Declare(name string, typ ast.CastType) {
	s.variables[name] = &Variable{Name: name, Type: typ, Value: value.Null}
}

// SetVariable assigns v to an already-declared variable, searching
// outward through parents. Returns a SemanticError, with a did-you-mean
// suggestion, if name was never declared.
func (s *Scope) SetVariable(name string, v value.Value) error {
	for sc := s; sc != nil; sc = sc.parent {
		if variable, ok := sc.variables[name]; ok {
			variable.Value = v
			return nil
		}
	}
	return qerrors.Semantic(qerrors.PhaseEval, "undeclared variable @%s%s", name, s.suggestVariable(name))
}

// LookupVariable resolves a variable by name, searching outward.
func (s *Scope) LookupVariable(name string) (*Variable, error) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.variables[name]; ok {
			return v, nil
		}
	}
	return nil, qerrors.Semantic(qerrors.PhaseEval, "undeclared variable @%s%s", name, s.suggestVariable(name))
}

// AllVariables lists every variable visible from this Scope (for SHOW
// VARIABLES), nearest-scope first, de-duplicated by name.
func (s *Scope) AllVariables() []*Variable {
	seen := map[string]bool{}
	var out []*Variable
	for sc := s; sc != nil; sc = sc.parent {
		names := make([]string, 0, len(sc.variables))
		for n := range sc.variables {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			if seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, sc.variables[n])
		}
	}
	return out
}

// RegisterView records a CREATE VIEW definition.
func (s *Scope) RegisterView(name string, query *ast.SelectStmt) {
	s.views[strings.ToLower(name)] = query
}

// LookupView resolves a view by name, searching outward.
func (s *Scope) LookupView(name string) (*ast.SelectStmt, error) {
	key := strings.ToLower(name)
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.views[key]; ok {
			return v, nil
		}
	}
	return nil, qerrors.Semantic(qerrors.PhaseCompile, "unknown view %q%s", name, s.suggestView(name))
}

// AllViewNames lists every view name visible from this Scope.
func (s *Scope) AllViewNames() []string {
	seen := map[string]bool{}
	var out []string
	for sc := s; sc != nil; sc = sc.parent {
		for n := range sc.views {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	sort.Strings(out)
	return out
}

// RegisterConnection records a CONNECT TO ... AS name handle.
func (s *Scope) RegisterConnection(c *Connection) {
	s.connections[strings.ToLower(c.Name)] = c
}

// LookupConnection resolves a connection handle by name.
func (s *Scope) LookupConnection(name string) (*Connection, error) {
	key := strings.ToLower(name)
	for sc := s; sc != nil; sc = sc.parent {
		if c, ok := sc.connections[key]; ok {
			return c, nil
		}
	}
	return nil, qerrors.Semantic(qerrors.PhaseCompile, "unknown connection %q%s", name, s.suggestConnection(name))
}

// Disconnect removes a connection handle, searching outward for the
// Scope that owns it.
func (s *Scope) Disconnect(name string) error {
	key := strings.ToLower(name)
	for sc := s; sc != nil; sc = sc.parent {
		if _, ok := sc.connections[key]; ok {
			delete(sc.connections, key)
			return nil
		}
	}
	return qerrors.Semantic(qerrors.PhaseCompile, "unknown connection %q%s", name, s.suggestConnection(name))
}

// AllConnections lists every connection visible from this Scope.
func (s *Scope) AllConnections() []*Connection {
	seen := map[string]bool{}
	var out []*Connection
	for sc := s; sc != nil; sc = sc.parent {
		names := make([]string, 0, len(sc.connections))
		for n := range sc.connections {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				out = append(out, sc.connections[n])
			}
		}
	}
	return out
}

func (s *Scope) suggestVariable(name string) string {
	names := make([]string, 0)
	for _, v := range s.AllVariables() {
		names = append(names, v.Name)
	}
	return suggestion(name, names)
}

func (s *Scope) suggestView(name string) string {
	return suggestion(name, s.AllViewNames())
}

func (s *Scope) suggestConnection(name string) string {
	names := make([]string, 0)
	for _, c := range s.AllConnections() {
		names = append(names, c.Name)
	}
	return suggestion(name, names)
}

// suggestion returns a " (did you mean X?)" hint for the closest
// candidate to name by edit distance, or "" if none is close enough.
func suggestion(name string, candidates []string) string {
	best := ""
	bestDist := -1
	for _, c := range candidates {
		d := editDistance(strings.ToLower(name), strings.ToLower(c))
		if bestDist < 0 || d < bestDist {
			bestDist = d
			best = c
		}
	}
	if best == "" || bestDist > 2 {
		return ""
	}
	return " (did you mean " + best + "?)"
}

func editDistance(a, b string) int {
	la, lb := len(a), len(b)
	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		cur[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := cur[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			cur[j] = m
		}
		prev, cur = cur, prev
	}
	return prev[lb]
}
