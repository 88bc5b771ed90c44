package rowexec

import (
	"context"

	"github.com/qiulin/qwery/ast"
	"github.com/qiulin/qwery/qerrors"
	"github.com/qiulin/qwery/runtime"
	"github.com/qiulin/qwery/value"
)

// declareExecutable implements `DECLARE @var TYPE` (spec.md §6): a
// side-effect-only statement against Scope.
type declareExecutable struct {
	stmt *ast.DeclareStmt
}

func CompileDeclare(stmt *ast.DeclareStmt) runtime.Executable { return &declareExecutable{stmt: stmt} }

func (e *declareExecutable) Execute(ctx context.Context, scope *runtime.Scope) (runtime.ResultSet, error) {
	scope.Declare(e.stmt.Name, e.stmt.Type)
	return runtime.EmptyResultSet{}, nil
}

// assignExecutable implements `SET @var = expr | SELECT ...` (spec.md
// §6). When Expr is a *ast.SelectStmt (used as a scalar-context Expr per
// ast.SelectStmt.exprNode), the select's first row/first column is taken,
// mirroring evalScalarSubquery's "no rows -> NULL" convention.
type assignExecutable struct {
	env  *Env
	stmt *ast.AssignStmt
}

func CompileAssign(env *Env, stmt *ast.AssignStmt) runtime.Executable {
	return &assignExecutable{env: env, stmt: stmt}
}

func (e *assignExecutable) Execute(ctx context.Context, scope *runtime.Scope) (runtime.ResultSet, error) {
	var result value.Value
	var err error
	if sel, ok := e.stmt.Expr.(*ast.SelectStmt); ok {
		result, err = evalScalarSubquery(ctx, e.env, scope, &ast.Subquery{Select: sel})
	} else {
		result, err = EvalExpr(ctx, e.env, scope, e.stmt.Expr)
	}
	if err != nil {
		return nil, err
	}
	if err := scope.SetVariable(e.stmt.Name, result); err != nil {
		return nil, err
	}
	return runtime.EmptyResultSet{}, nil
}

// showExecutable implements `SHOW VIEWS|CONNECTIONS|VARIABLES` (spec.md
// §6, §9's locked-down whitelist).
type showExecutable struct {
	stmt *ast.ShowStmt
}

func CompileShow(stmt *ast.ShowStmt) runtime.Executable { return &showExecutable{stmt: stmt} }

func (e *showExecutable) Execute(ctx context.Context, scope *runtime.Scope) (runtime.ResultSet, error) {
	switch e.stmt.Entity {
	case ast.ShowViews:
		names := []string{"Name"}
		var rows []runtime.Row
		for _, v := range scope.AllViewNames() {
			rows = append(rows, runtime.NewRow(names, []value.Value{value.NewString(v)}))
		}
		return runtime.NewSliceResultSet(rows), nil
	case ast.ShowConnections:
		names := []string{"Name", "Service"}
		var rows []runtime.Row
		for _, c := range scope.AllConnections() {
			rows = append(rows, runtime.NewRow(names, []value.Value{value.NewString(c.Name), value.NewString(c.Service)}))
		}
		return runtime.NewSliceResultSet(rows), nil
	case ast.ShowVariables:
		names := []string{"Name", "Value"}
		var rows []runtime.Row
		for _, v := range scope.AllVariables() {
			rows = append(rows, runtime.NewRow(names, []value.Value{value.NewString(v.Name), value.NewString(v.Value.Display())}))
		}
		return runtime.NewSliceResultSet(rows), nil
	default:
		return nil, qerrors.Semantic(qerrors.PhaseCompile, "unknown SHOW entity type")
	}
}

// viewExecutable implements `CREATE VIEW name AS select-or-subquery`
// (spec.md §6): registers the query into Scope without executing it.
type viewExecutable struct {
	stmt *ast.ViewStmt
}

func CompileView(stmt *ast.ViewStmt) runtime.Executable { return &viewExecutable{stmt: stmt} }

func (e *viewExecutable) Execute(ctx context.Context, scope *runtime.Scope) (runtime.ResultSet, error) {
	scope.RegisterView(e.stmt.Name, e.stmt.Query)
	return runtime.EmptyResultSet{}, nil
}

// connectExecutable implements `CONNECT TO service WITH hints AS name`
// (spec.md §6): registers a named connection handle in Scope. Opening an
// actual external session is the concern of whichever device factory
// later resolves a path against this handle's service/hints; CONNECT
// itself only records the handle.
type connectExecutable struct {
	stmt *ast.ConnectStmt
}

func CompileConnect(stmt *ast.ConnectStmt) runtime.Executable { return &connectExecutable{stmt: stmt} }

func (e *connectExecutable) Execute(ctx context.Context, scope *runtime.Scope) (runtime.ResultSet, error) {
	scope.RegisterConnection(&runtime.Connection{Name: e.stmt.Name, Service: e.stmt.Service, Hints: e.stmt.Hints})
	return runtime.EmptyResultSet{}, nil
}

// disconnectExecutable implements `DISCONNECT FROM handle` (spec.md §6).
type disconnectExecutable struct {
	stmt *ast.DisconnectStmt
}

func CompileDisconnect(stmt *ast.DisconnectStmt) runtime.Executable {
	return &disconnectExecutable{stmt: stmt}
}

func (e *disconnectExecutable) Execute(ctx context.Context, scope *runtime.Scope) (runtime.ResultSet, error) {
	if err := scope.Disconnect(e.stmt.Handle); err != nil {
		return nil, err
	}
	return runtime.EmptyResultSet{}, nil
}
