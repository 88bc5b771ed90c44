// Package runtime implements the pull-based execution model from spec.md
// §4.1/§5: Scope, Executable, and ResultSet, plus the Row value rows flow
// through.
package runtime

import "github.com/qiulin/qwery/value"

// Row is an ordered sequence of named columns. Lookups return the last
// matching column when a name repeats, per spec.md §3's "later column
// wins".
type Row struct {
	names  []string
	values []value.Value
}

// NewRow builds a Row from parallel name/value slices of equal length.
func NewRow(names []string, values []value.Value) Row {
	return Row{names: append([]string(nil), names...), values: append([]value.Value(nil), values...)}
}

// Len returns the number of columns.
func (r Row) Len() int { return len(r.names) }

// Names returns the column names in order.
func (r Row) Names() []string { return r.names }

// At returns the i-th column's value.
func (r Row) At(i int) value.Value { return r.values[i] }

// NameAt returns the i-th column's name.
func (r Row) NameAt(i int) string { return r.names[i] }

// Get looks a column up by name, returning the last match (later column
// wins) and whether it was found.
func (r Row) Get(name string) (value.Value, bool) {
	found := false
	var v value.Value
	for i, n := range r.names {
		if n == name {
			v = r.values[i]
			found = true
		}
	}
	return v, found
}

// With returns a new Row with an additional (name, value) column
// appended. Row is immutable from the caller's perspective.
func (r Row) With(name string, v value.Value) Row {
	names := append(append([]string(nil), r.names...), name)
	values := append(append([]value.Value(nil), r.values...), v)
	return Row{names: names, values: values}
}

// Project returns a new Row containing only the named columns, in the
// given order. Missing names yield value.Null.
func (r Row) Project(names []string) Row {
	values := make([]value.Value, len(names))
	for i, n := range names {
		if v, ok := r.Get(n); ok {
			values[i] = v
		} else {
			values[i] = value.Null
		}
	}
	return Row{names: append([]string(nil), names...), values: values}
}
