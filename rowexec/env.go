// Package rowexec implements the Compiler/Binder and Operators components
// from spec.md §4.5-4.8: it lowers ast.Statement values into
// runtime.Executable trees (resolving DataResource sources/sinks through a
// device.Registry) and supplies the WHERE/GROUP BY/ORDER BY/LIMIT/DISTINCT
// row operators that drive them.
package rowexec

import "github.com/qiulin/qwery/device"

// Env is the binding-time environment every Compile* constructor closes
// over: the device registry used to resolve DataResource paths to
// concrete Input/OutputDevices (spec.md §4.5).
type Env struct {
	Registry *device.Registry
}
