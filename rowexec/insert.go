package rowexec

import (
	"context"
	"io"

	"github.com/qiulin/qwery/ast"
	"github.com/qiulin/qwery/device"
	"github.com/qiulin/qwery/runtime"
)

// openTargetDevice resolves target through the registry, shared by
// INSERT and SELECT ... INTO/OVERWRITE (spec.md §4.5's "If mode is
// present the whole query is wrapped as Insert{...}").
func openTargetDevice(ctx context.Context, env *Env, target *ast.DataResource, appendMode bool) (device.OutputDevice, error) {
	return env.Registry.OpenOutput(ctx, target.Path, target.Hints, appendMode)
}

// insertExecutable implements INSERT INTO|OVERWRITE (spec.md §4.7):
// resolve the target, open it, pull rows from either a VALUES list or a
// nested SELECT, project/reorder to the declared field list, and write.
type insertExecutable struct {
	env  *Env
	stmt *ast.InsertStmt
}

// CompileInsert lowers a parsed INSERT into a runtime.Executable.
func CompileInsert(env *Env, stmt *ast.InsertStmt) (runtime.Executable, error) {
	return &insertExecutable{env: env, stmt: stmt}, nil
}

func (e *insertExecutable) Execute(ctx context.Context, scope *runtime.Scope) (runtime.ResultSet, error) {
	target := &ast.DataResource{Path: e.stmt.Target, Hints: e.stmt.Hints}
	out, err := openTargetDevice(ctx, e.env, target, !e.stmt.Overwrite)
	if err != nil {
		return nil, err
	}

	if err := e.writeRows(ctx, scope, out); err != nil {
		out.Close(ctx)
		return nil, err
	}
	if err := out.Close(ctx); err != nil {
		return nil, err
	}
	return runtime.EmptyResultSet{}, nil
}

func (e *insertExecutable) writeRows(ctx context.Context, scope *runtime.Scope, out device.OutputDevice) error {
	if e.stmt.Select != nil {
		exec, err := CompileSelect(e.env, e.stmt.Select)
		if err != nil {
			return err
		}
		rs, err := exec.Execute(ctx, scope.Child())
		if err != nil {
			return err
		}
		defer rs.Close(ctx)
		for {
			row, err := rs.Next(ctx)
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			if err := out.Write(ctx, rowToRecord(row.Project(e.stmt.Fields))); err != nil {
				return err
			}
		}
	}

	for _, tuple := range e.stmt.Values {
		row := runtime.Row{}
		rowScope := scope.Child()
		for i, expr := range tuple {
			if i >= len(e.stmt.Fields) {
				break
			}
			v, err := EvalExpr(ctx, e.env, rowScope, expr)
			if err != nil {
				return err
			}
			row = row.With(e.stmt.Fields[i], v)
		}
		if err := out.Write(ctx, rowToRecord(row)); err != nil {
			return err
		}
	}
	return nil
}
