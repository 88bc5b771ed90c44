package device

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/qiulin/qwery/ast"
	"github.com/qiulin/qwery/qerrors"
	"github.com/qiulin/qwery/value"
)

// JSONFactory handles the JSON source/sink from spec.md §4.9: each
// top-level JSON value is one record; an object becomes one row, an
// array unfolds into multiple rows (one per element), a scalar becomes a
// single synthetic-name row. `jsonPath` navigates into the document
// first via gjson before unfolding.
type JSONFactory struct {
	// Log receives the one-per-statement warning about heterogeneous
	// array shapes (spec.md §9's open question, resolved in DESIGN.md).
	// Defaults to logrus.StandardLogger() when nil.
	Log *logrus.Logger
}

func (f JSONFactory) logger() *logrus.Logger {
	if f.Log != nil {
		return f.Log
	}
	return logrus.StandardLogger()
}

func (JSONFactory) Name() string { return "json" }

func (JSONFactory) CanOpen(path string, hints ast.Hints) bool {
	if hints.IsJSON != nil && *hints.IsJSON {
		return true
	}
	if hints.AvroSchema != nil {
		return false
	}
	if strings.Contains(path, "://") {
		return false
	}
	lower := strings.ToLower(strings.TrimSuffix(path, ".gz"))
	return strings.HasSuffix(lower, ".json")
}

type jsonInput struct {
	closer io.Closer
	rows   []Record
	pos    int
}

func (f JSONFactory) OpenInput(ctx context.Context, path string, hints ast.Hints) (InputDevice, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, qerrors.Resource(qerrors.PhaseOpen, err, "opening %q", path)
	}
	var rc io.ReadCloser = file
	if usesGzip(path, hints) {
		rc, err = newGzipReader(file)
		if err != nil {
			return nil, qerrors.Resource(qerrors.PhaseOpen, err, "gzip-decoding %q", path)
		}
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, qerrors.Resource(qerrors.PhaseOpen, err, "reading %q", path)
	}

	doc := string(raw)
	if hints.JSONPath != nil && *hints.JSONPath != "" {
		result := gjson.Get(doc, *hints.JSONPath)
		if !result.Exists() {
			return nil, qerrors.Resource(qerrors.PhaseOpen, nil, "jsonPath %q not found in %q", *hints.JSONPath, path)
		}
		doc = result.Raw
	}

	rows, err := f.unfold(doc)
	if err != nil {
		return nil, qerrors.Resource(qerrors.PhaseOpen, err, "decoding JSON in %q", path)
	}
	return &jsonInput{closer: noopCloser{}, rows: rows}, nil
}

// unfold applies the object/array/scalar rules from spec.md §4.9.
func (f JSONFactory) unfold(doc string) ([]Record, error) {
	trimmed := strings.TrimSpace(doc)
	if trimmed == "" {
		return nil, nil
	}
	var generic any
	if err := json.Unmarshal([]byte(trimmed), &generic); err != nil {
		return nil, err
	}

	switch v := generic.(type) {
	case map[string]any:
		return []Record{recordFromObject(v)}, nil
	case []any:
		return f.unfoldArray(v), nil
	default:
		return []Record{{{Name: "value", Value: value.FromGo(v)}}}, nil
	}
}

// unfoldArray expands a JSON array into one row per element, warning
// once (not per row) the first time an element's shape doesn't match a
// uniform object (spec.md §9's decided semantics).
func (f JSONFactory) unfoldArray(arr []any) []Record {
	rows := make([]Record, 0, len(arr))
	warned := false
	for i, elem := range arr {
		switch e := elem.(type) {
		case map[string]any:
			rows = append(rows, recordFromObject(e))
		default:
			if !warned {
				f.logger().Warnf("json source: array element %d is not an object; synthesising a %q column for heterogeneous elements", i, "value")
				warned = true
			}
			rows = append(rows, Record{{Name: "value", Value: value.FromGo(e)}})
		}
	}
	return rows
}

func recordFromObject(m map[string]any) Record {
	rec := make(Record, 0, len(m))
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// encoding/json doesn't preserve key order past map[string]any; a
	// stable column order matters for DESCRIBE/CSV-mirroring consumers,
	// so fields are emitted sorted by name.
	sort.Strings(keys)
	for _, k := range keys {
		rec = append(rec, Field{Name: k, Value: value.FromGo(m[k])})
	}
	return rec
}

func (in *jsonInput) Read(ctx context.Context) (Record, error) {
	if in.pos >= len(in.rows) {
		return nil, io.EOF
	}
	rec := in.rows[in.pos]
	in.pos++
	return rec, nil
}

func (in *jsonInput) Close(ctx context.Context) error { return in.closer.Close() }

type noopCloser struct{}

func (noopCloser) Close() error { return nil }

type jsonOutput struct {
	w       *bufio.Writer
	closer  io.Closer
	wrote   bool
	objects []map[string]any
}

func (JSONFactory) OpenOutput(ctx context.Context, path string, hints ast.Hints, appendMode bool) (OutputDevice, error) {
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
	return &jsonOutput{closer: wc, w: bufio.NewWriter(wc)}, nil
}

func (out *jsonOutput) Write(ctx context.Context, rec Record) error {
	obj := make(map[string]any, len(rec))
	for _, fld := range rec {
		obj[fld.Name] = displayGo(fld.Value)
	}
	out.objects = append(out.objects, obj)
	return nil
}

func displayGo(v value.Value) any {
	switch v.Kind() {
	case value.KNull:
		return nil
	case value.KBool:
		return v.Bool()
	case value.KInt64:
		return v.Int64()
	case value.KFloat64:
		return v.Float64()
	default:
		return v.Display()
	}
}

func (out *jsonOutput) Close(ctx context.Context) error {
	enc := json.NewEncoder(out.w)
	if err := enc.Encode(out.objects); err != nil {
		out.closer.Close()
		return qerrors.Io(qerrors.PhaseWrite, err, "encoding JSON output")
	}
	if err := out.w.Flush(); err != nil {
		out.closer.Close()
		return qerrors.Io(qerrors.PhaseClose, err, "flushing JSON output")
	}
	return out.closer.Close()
}
