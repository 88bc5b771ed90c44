package rowexec

import (
	"context"
	"io"

	"github.com/qiulin/qwery/ast"
	"github.com/qiulin/qwery/runtime"
	"github.com/qiulin/qwery/value"
)

// describeExecutable implements DESCRIBE (spec.md §4.8): pull one row from
// the source and emit one (Column, Type, Sample) row per column, capped
// at LIMIT columns if given.
type describeExecutable struct {
	env  *Env
	stmt *ast.DescribeStmt
}

// CompileDescribe lowers a parsed DESCRIBE into a runtime.Executable.
func CompileDescribe(env *Env, stmt *ast.DescribeStmt) (runtime.Executable, error) {
	return &describeExecutable{env: env, stmt: stmt}, nil
}

func (e *describeExecutable) Execute(ctx context.Context, scope *runtime.Scope) (runtime.ResultSet, error) {
	src, err := openRowSource(ctx, e.env, scope, e.stmt.Source, ast.Hints{})
	if err != nil {
		return nil, err
	}
	defer src.Close(ctx)

	row, err := src.Next(ctx)
	if err == io.EOF {
		return runtime.NewSliceResultSet(nil), nil
	}
	if err != nil {
		return nil, err
	}

	limit := row.Len()
	if e.stmt.Limit != nil {
		v, err := EvalExpr(ctx, e.env, scope, e.stmt.Limit)
		if err != nil {
			return nil, err
		}
		if f, ok := asFloat(v); ok && int(f) < limit {
			limit = int(f)
		}
	}

	names := []string{"Column", "Type", "Sample"}
	rows := make([]runtime.Row, 0, limit)
	for i := 0; i < limit; i++ {
		col := row.NameAt(i)
		val := row.At(i)
		rows = append(rows, runtime.NewRow(names, []value.Value{
			value.NewString(col),
			value.NewString(val.TypeName()),
			value.NewString(val.Display()),
		}))
	}
	return runtime.NewSliceResultSet(rows), nil
}
