package device

import (
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/qiulin/qwery/ast"
)

// usesGzip reports whether path/hints imply a gzip-wrapped stream
// (spec.md §4.9: "transparent wrapper when hints.gzip=true OR path ends
// .gz").
func usesGzip(path string, hints ast.Hints) bool {
	if hints.Gzip != nil && *hints.Gzip {
		return true
	}
	return strings.HasSuffix(strings.ToLower(path), ".gz")
}

// gzipReader wraps r in a transparent gzip decompressor, closing both
// the gzip reader and the underlying stream on Close.
type gzipReader struct {
	gz   *gzip.Reader
	base io.ReadCloser
}

func newGzipReader(base io.ReadCloser) (*gzipReader, error) {
	gz, err := gzip.NewReader(base)
	if err != nil {
		base.Close()
		return nil, err
	}
	return &gzipReader{gz: gz, base: base}, nil
}

func (g *gzipReader) Read(p []byte) (int, error) { return g.gz.Read(p) }

func (g *gzipReader) Close() error {
	g.gz.Close()
	return g.base.Close()
}

// gzipWriter wraps w in a transparent gzip compressor, flushing and
// closing both the gzip writer and the underlying stream on Close.
type gzipWriter struct {
	gz   *gzip.Writer
	base io.WriteCloser
}

func newGzipWriter(base io.WriteCloser) *gzipWriter {
	return &gzipWriter{gz: gzip.NewWriter(base), base: base}
}

func (g *gzipWriter) Write(p []byte) (int, error) { return g.gz.Write(p) }

func (g *gzipWriter) Close() error {
	if err := g.gz.Close(); err != nil {
		g.base.Close()
		return err
	}
	return g.base.Close()
}
