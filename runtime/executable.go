package runtime

import (
	"context"
	"io"
)

// ResultSet is a lazy, single-pass row stream (spec.md §3). Next returns
// io.EOF once exhausted. Close must be called exactly once, including
// after an error from Next, and releases any underlying device; calling
// it more than once is a no-op.
type ResultSet interface {
	Next(ctx context.Context) (Row, error)
	Close(ctx context.Context) error
}

// Executable is anything compiled from a statement that can be run
// against a Scope to produce a ResultSet (spec.md §3: "execute(scope) ->
// ResultSet").
type Executable interface {
	Execute(ctx context.Context, scope *Scope) (ResultSet, error)
}

// EmptyResultSet is a ResultSet with no rows, used by statements that
// produce no row stream of their own (DECLARE, SET, CREATE VIEW, CONNECT,
// DISCONNECT).
type EmptyResultSet struct{}

func (EmptyResultSet) Next(ctx context.Context) (Row, error) { return Row{}, io.EOF }
func (EmptyResultSet) Close(ctx context.Context) error        { return nil }

// SliceResultSet serves rows from a pre-materialised slice (used by SHOW
// and DESCRIBE, whose output is small and computed eagerly).
type SliceResultSet struct {
	rows []Row
	pos  int
}

// NewSliceResultSet wraps rows as a ResultSet.
func NewSliceResultSet(rows []Row) *SliceResultSet { return &SliceResultSet{rows: rows} }

func (s *SliceResultSet) Next(ctx context.Context) (Row, error) {
	if s.pos >= len(s.rows) {
		return Row{}, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

func (s *SliceResultSet) Close(ctx context.Context) error { return nil }
