package device

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/hamba/avro/v2/ocf"

	"github.com/qiulin/qwery/ast"
	"github.com/qiulin/qwery/qerrors"
)

// AvroFactory handles the Avro object container format (spec.md §4.9):
// the container carries its own schema, so reads never need a `avro`
// hint; writes require one via WITH AVRO so the encoder knows the
// target schema.
type AvroFactory struct{}

func (AvroFactory) Name() string { return "avro" }

func (AvroFactory) CanOpen(path string, hints ast.Hints) bool {
	if hints.AvroSchema != nil {
		return true
	}
	lower := strings.ToLower(strings.TrimSuffix(path, ".gz"))
	return strings.HasSuffix(lower, ".avro")
}

type avroInput struct {
	closer  io.Closer
	decoder *ocf.Decoder
}

func (AvroFactory) OpenInput(ctx context.Context, path string, hints ast.Hints) (InputDevice, error) {
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

	dec, err := ocf.NewDecoder(rc)
	if err != nil {
		rc.Close()
		return nil, qerrors.Resource(qerrors.PhaseOpen, err, "opening avro container %q", path)
	}
	return &avroInput{closer: rc, decoder: dec}, nil
}

func (in *avroInput) Read(ctx context.Context) (Record, error) {
	if !in.decoder.HasNext() {
		if err := in.decoder.Error(); err != nil {
			return nil, qerrors.Io(qerrors.PhaseRead, err, "reading avro record")
		}
		return nil, io.EOF
	}
	var rec map[string]any
	if err := in.decoder.Decode(&rec); err != nil {
		return nil, qerrors.Io(qerrors.PhaseRead, err, "decoding avro record")
	}
	return recordFromObject(rec), nil
}

func (in *avroInput) Close(ctx context.Context) error { return in.closer.Close() }

type avroOutput struct {
	closer  io.Closer
	encoder *ocf.Encoder
}

func (AvroFactory) OpenOutput(ctx context.Context, path string, hints ast.Hints, appendMode bool) (OutputDevice, error) {
	if hints.AvroSchema == nil {
		return nil, qerrors.Resource(qerrors.PhaseOpen, nil, "WITH AVRO schema is required to write %q", path)
	}
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
	enc, err := ocf.NewEncoder(*hints.AvroSchema, wc)
	if err != nil {
		wc.Close()
		return nil, qerrors.Resource(qerrors.PhaseOpen, err, "parsing avro schema for %q", path)
	}
	return &avroOutput{closer: wc, encoder: enc}, nil
}

func (out *avroOutput) Write(ctx context.Context, rec Record) error {
	obj := make(map[string]any, len(rec))
	for _, f := range rec {
		obj[f.Name] = displayGo(f.Value)
	}
	if err := out.encoder.Encode(obj); err != nil {
		return qerrors.Io(qerrors.PhaseWrite, err, "encoding avro record")
	}
	return nil
}

func (out *avroOutput) Close(ctx context.Context) error {
	if err := out.encoder.Close(); err != nil {
		out.closer.Close()
		return qerrors.Io(qerrors.PhaseClose, err, "closing avro container")
	}
	return out.closer.Close()
}
