// Package device implements the I/O layer from spec.md §4.9: concrete
// InputDevice/OutputDevice adapters over delimited text, JSON, Avro,
// gzip-wrapped streams, JDBC-style SQL databases, S3 objects, and Kafka
// topics. Devices work in terms of Record, a lightweight ordered
// key/value list, rather than runtime.Row, so this package stays below
// runtime in the dependency graph (runtime never imports device; rowexec
// sits above both and converts between the two).
package device

import (
	"context"

	"github.com/qiulin/qwery/ast"
	"github.com/qiulin/qwery/value"
)

// Field is one named value within a Record.
type Field struct {
	Name  string
	Value value.Value
}

// Record is an ordered row of fields as read from, or written to, a
// device. Later fields with the same name win on lookup, mirroring
// runtime.Row.
type Record []Field

// Get returns the last field named name, if present.
func (r Record) Get(name string) (value.Value, bool) {
	found := false
	var v value.Value
	for _, f := range r {
		if f.Name == name {
			v = f.Value
			found = true
		}
	}
	return v, found
}

// Names returns the field names in order.
func (r Record) Names() []string {
	out := make([]string, len(r))
	for i, f := range r {
		out[i] = f.Name
	}
	return out
}

// InputDevice reads Records until exhaustion. Read returns io.EOF once
// exhausted; Close must be safe to call after an error or after EOF, and
// idempotent.
type InputDevice interface {
	Read(ctx context.Context) (Record, error)
	Close(ctx context.Context) error
}

// OutputDevice writes Records, optionally appending to existing data per
// Hints.Append. Close flushes and releases any underlying resource.
type OutputDevice interface {
	Write(ctx context.Context, rec Record) error
	Close(ctx context.Context) error
}

// Factory recognises source/target strings it can open, per the
// DataResource.Path + Hints shape from spec.md §4.9. A registry tries
// factories in order and uses the first match (spec.md §9).
type Factory interface {
	// Name identifies the factory for diagnostics.
	Name() string
	// CanOpen reports whether this factory claims path given hints.
	CanOpen(path string, hints ast.Hints) bool
	// OpenInput opens path for reading.
	OpenInput(ctx context.Context, path string, hints ast.Hints) (InputDevice, error)
	// OpenOutput opens path for writing. append selects append-vs-overwrite
	// semantics where the underlying medium distinguishes them.
	OpenOutput(ctx context.Context, path string, hints ast.Hints, append bool) (OutputDevice, error)
}
