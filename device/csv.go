package device

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/qiulin/qwery/ast"
	"github.com/qiulin/qwery/qerrors"
	"github.com/qiulin/qwery/value"
)

// DelimitedFactory handles CSV/TSV/PSV local files (spec.md §4.9), the
// default device when nothing more specific claims the path. It is the
// only I/O concern built on the standard library rather than a
// third-party dependency: the example pack carries no CSV/TSV parsing
// library anywhere, so encoding/csv is the idiomatic choice here.
type DelimitedFactory struct{}

func (DelimitedFactory) Name() string { return "delimited" }

func (DelimitedFactory) CanOpen(path string, hints ast.Hints) bool {
	if hints.IsJSON != nil && *hints.IsJSON {
		return false
	}
	if hints.AvroSchema != nil {
		return false
	}
	if strings.Contains(path, "://") || strings.HasPrefix(path, "jdbc:") {
		return false
	}
	return true
}

func delimiterFor(hints ast.Hints, path string) rune {
	if hints.Delimiter != nil && len(*hints.Delimiter) > 0 {
		return rune((*hints.Delimiter)[0])
	}
	lower := strings.ToLower(strings.TrimSuffix(path, ".gz"))
	switch {
	case strings.HasSuffix(lower, ".tsv"):
		return '\t'
	case strings.HasSuffix(lower, ".psv"):
		return '|'
	default:
		return ','
	}
}

func headersEnabled(hints ast.Hints) bool {
	return hints.Headers == nil || *hints.Headers
}

type delimitedInput struct {
	closer  io.Closer
	reader  *csv.Reader
	columns []string
	synth   bool
}

func (DelimitedFactory) OpenInput(ctx context.Context, path string, hints ast.Hints) (InputDevice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, qerrors.Resource(qerrors.PhaseOpen, err, "opening %q", path)
	}
	var rc io.ReadCloser = f
	if usesGzip(path, hints) {
		rc, err = newGzipReader(f)
		if err != nil {
			return nil, qerrors.Resource(qerrors.PhaseOpen, err, "gzip-decoding %q", path)
		}
	}
	r := csv.NewReader(rc)
	r.Comma = delimiterFor(hints, path)
	r.FieldsPerRecord = -1
	in := &delimitedInput{closer: rc, reader: r}

	if headersEnabled(hints) {
		header, err := r.Read()
		if err != nil {
			rc.Close()
			return nil, qerrors.Resource(qerrors.PhaseOpen, err, "reading header row of %q", path)
		}
		in.columns = header
	} else {
		in.synth = true
	}
	return in, nil
}

func (in *delimitedInput) Read(ctx context.Context) (Record, error) {
	row, err := in.reader.Read()
	if err != nil {
		return nil, err
	}
	if in.synth && in.columns == nil {
		in.columns = make([]string, len(row))
		for i := range row {
			in.columns[i] = "col" + strconv.Itoa(i)
		}
	}
	rec := make(Record, len(row))
	for i, cell := range row {
		name := fmt.Sprintf("col%d", i)
		if i < len(in.columns) {
			name = in.columns[i]
		}
		rec[i] = Field{Name: name, Value: value.NewString(cell)}
	}
	return rec, nil
}

func (in *delimitedInput) Close(ctx context.Context) error { return in.closer.Close() }

type delimitedOutput struct {
	closer    io.Closer
	writer    *csv.Writer
	wroteHead bool
	quoted    bool
}

func (DelimitedFactory) OpenOutput(ctx context.Context, path string, hints ast.Hints, appendMode bool) (OutputDevice, error) {
	flags := os.O_WRONLY | os.O_CREATE
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, qerrors.Resource(qerrors.PhaseOpen, err, "opening %q for write", path)
	}
	var wc io.WriteCloser = f
	if usesGzip(path, hints) {
		wc = newGzipWriter(f)
	}
	w := csv.NewWriter(wc)
	w.Comma = delimiterFor(hints, path)
	quoted := hints.QuotedText != nil && *hints.QuotedText
	return &delimitedOutput{closer: wc, writer: w, quoted: quoted, wroteHead: appendMode}, nil
}

func (out *delimitedOutput) Write(ctx context.Context, rec Record) error {
	if !out.wroteHead {
		if err := out.writer.Write(rec.Names()); err != nil {
			return qerrors.Io(qerrors.PhaseWrite, err, "writing header row")
		}
		out.wroteHead = true
	}
	cells := make([]string, len(rec))
	for i, f := range rec {
		cells[i] = f.Value.Display()
	}
	if err := out.writer.Write(cells); err != nil {
		return qerrors.Io(qerrors.PhaseWrite, err, "writing row")
	}
	return nil
}

func (out *delimitedOutput) Close(ctx context.Context) error {
	out.writer.Flush()
	if err := out.writer.Error(); err != nil {
		out.closer.Close()
		return qerrors.Io(qerrors.PhaseClose, err, "flushing delimited output")
	}
	return out.closer.Close()
}
