package device

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/qiulin/qwery/ast"
	"github.com/qiulin/qwery/value"
)

func writeAll(t *testing.T, out OutputDevice, records []Record) {
	t.Helper()
	ctx := context.Background()
	for _, rec := range records {
		if err := out.Write(ctx, rec); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := out.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func readAll(t *testing.T, in InputDevice) []Record {
	t.Helper()
	ctx := context.Background()
	defer in.Close(ctx)
	var out []Record
	for {
		rec, err := in.Read(ctx)
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		out = append(out, rec)
	}
}

func TestDelimitedCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	f := DelimitedFactory{}

	records := []Record{
		{{Name: "Symbol", Value: value.NewString("GE")}, {Name: "Price", Value: value.NewFloat64(12.5)}},
		{{Name: "Symbol", Value: value.NewString("IBM")}, {Name: "Price", Value: value.NewFloat64(130)}},
	}

	out, err := f.OpenOutput(context.Background(), path, ast.Hints{}, false)
	if err != nil {
		t.Fatalf("OpenOutput: %v", err)
	}
	writeAll(t, out, records)

	in, err := f.OpenInput(context.Background(), path, ast.Hints{})
	if err != nil {
		t.Fatalf("OpenInput: %v", err)
	}
	got := readAll(t, in)
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	v, ok := got[0].Get("Symbol")
	if !ok || v.String() != "GE" {
		t.Errorf("expected first record Symbol=GE, got %#v", got[0])
	}
}

func TestDelimitedCSVAppendMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	f := DelimitedFactory{}
	rec := Record{{Name: "a", Value: value.NewInt64(1)}}

	out1, err := f.OpenOutput(context.Background(), path, ast.Hints{}, false)
	if err != nil {
		t.Fatalf("OpenOutput: %v", err)
	}
	writeAll(t, out1, []Record{rec})

	out2, err := f.OpenOutput(context.Background(), path, ast.Hints{}, true)
	if err != nil {
		t.Fatalf("OpenOutput (append): %v", err)
	}
	writeAll(t, out2, []Record{rec})

	in, err := f.OpenInput(context.Background(), path, ast.Hints{})
	if err != nil {
		t.Fatalf("OpenInput: %v", err)
	}
	got := readAll(t, in)
	if len(got) != 2 {
		t.Fatalf("expected 2 rows after append (no duplicated header), got %d", len(got))
	}
}

func TestDelimitedGzipTransparent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv.gz")
	f := DelimitedFactory{}
	records := []Record{{{Name: "a", Value: value.NewString("x")}}}

	out, err := f.OpenOutput(context.Background(), path, ast.Hints{}, false)
	if err != nil {
		t.Fatalf("OpenOutput: %v", err)
	}
	writeAll(t, out, records)

	in, err := f.OpenInput(context.Background(), path, ast.Hints{})
	if err != nil {
		t.Fatalf("OpenInput: %v", err)
	}
	got := readAll(t, in)
	if len(got) != 1 {
		t.Fatalf("expected 1 record read back through gzip transparently, got %d", len(got))
	}
	v, ok := got[0].Get("a")
	if !ok || v.String() != "x" {
		t.Errorf("expected a=x, got %#v", got[0])
	}
}

func TestDelimitedCanOpenRejectsSchemesAndJSON(t *testing.T) {
	f := DelimitedFactory{}
	if f.CanOpen("jdbc:mysql://localhost/db", ast.Hints{}) {
		t.Errorf("should not claim a jdbc: scheme path")
	}
	if f.CanOpen("s3://bucket/key", ast.Hints{}) {
		t.Errorf("should not claim a scheme-qualified path")
	}
	isJSON := true
	if f.CanOpen("./data.txt", ast.Hints{IsJSON: &isJSON}) {
		t.Errorf("should not claim a path explicitly hinted as JSON")
	}
	if !f.CanOpen("./data.csv", ast.Hints{}) {
		t.Errorf("should claim a plain local path")
	}
}
