package device

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/qiulin/qwery/ast"
	"github.com/qiulin/qwery/qerrors"
)

// Registry is the ordered DeviceFactory list from spec.md §4.5/§9: an
// ordered `(path, hints) -> Option<Device>` list, first match wins.
// Registration is process-wide; mutation after Freeze is forbidden,
// matching the "Registration is process-wide but mutation is forbidden
// after startup" design note.
type Registry struct {
	factories []Factory
	frozen    bool
	log       *logrus.Logger
}

// NewRegistry returns an empty Registry. Register factories with
// Register, then call Freeze once at startup.
func NewRegistry(log *logrus.Logger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Registry{log: log}
}

// Register appends f to the ordered factory list. Panics if called after
// Freeze, since the registry is process-wide and immutable once the
// engine starts executing queries.
func (r *Registry) Register(f Factory) {
	if r.frozen {
		panic("device: Register called on a frozen Registry")
	}
	r.factories = append(r.factories, f)
}

// Freeze locks the registry against further Register calls.
func (r *Registry) Freeze() *Registry {
	r.frozen = true
	return r
}

// resolve returns the first factory claiming path, or a ResourceError if
// none does (spec.md §4.5: "factories may refuse, and the compiler tries
// the next factory... failing all, compilation fails").
func (r *Registry) resolve(path string, hints ast.Hints) (Factory, error) {
	for _, f := range r.factories {
		if f.CanOpen(path, hints) {
			return f, nil
		}
	}
	return nil, qerrors.Resource(qerrors.PhaseCompile, nil, "no device factory claims %q", path)
}

// OpenInput resolves path to a factory and opens it for reading.
func (r *Registry) OpenInput(ctx context.Context, path string, hints ast.Hints) (InputDevice, error) {
	f, err := r.resolve(path, hints)
	if err != nil {
		return nil, err
	}
	r.log.WithFields(logrus.Fields{"factory": f.Name(), "path": redactPath(path)}).Info("opening input device")
	return f.OpenInput(ctx, path, hints)
}

// OpenOutput resolves path to a factory and opens it for writing.
func (r *Registry) OpenOutput(ctx context.Context, path string, hints ast.Hints, appendMode bool) (OutputDevice, error) {
	f, err := r.resolve(path, hints)
	if err != nil {
		return nil, err
	}
	r.log.WithFields(logrus.Fields{"factory": f.Name(), "path": redactPath(path), "append": appendMode}).Info("opening output device")
	return f.OpenOutput(ctx, path, hints, appendMode)
}

// redactPath replaces everything after the first `?` in a path (a query
// string, where connection strings often carry a password) with a
// placeholder before the path reaches a log line (no row data is ever
// logged, per SPEC_FULL.md §10.2). Credentials elsewhere in the path,
// such as `user:password@host`, are left in place.
func redactPath(path string) string {
	if i := strings.IndexAny(path, "?"); i >= 0 {
		return path[:i] + "?<redacted>"
	}
	return path
}
