package compiler

import (
	"github.com/qiulin/qwery/ast"
	"github.com/qiulin/qwery/qerrors"
	"github.com/qiulin/qwery/rowexec"
	"github.com/qiulin/qwery/runtime"
)

// Compile lowers a parsed ast.Statement into a runtime.Executable,
// dispatching to the matching rowexec.Compile* constructor (spec.md
// §4.5's "Compiler/Binder": device resolution happens here, not during
// parsing).
func Compile(env *rowexec.Env, stmt ast.Statement) (runtime.Executable, error) {
	switch s := stmt.(type) {
	case *ast.SelectStmt:
		return rowexec.CompileSelect(env, s)
	case *ast.InsertStmt:
		return rowexec.CompileInsert(env, s)
	case *ast.DescribeStmt:
		return rowexec.CompileDescribe(env, s)
	case *ast.DeclareStmt:
		return rowexec.CompileDeclare(s), nil
	case *ast.AssignStmt:
		return rowexec.CompileAssign(env, s), nil
	case *ast.ShowStmt:
		return rowexec.CompileShow(s), nil
	case *ast.ViewStmt:
		return rowexec.CompileView(s), nil
	case *ast.ConnectStmt:
		return rowexec.CompileConnect(s), nil
	case *ast.DisconnectStmt:
		return rowexec.CompileDisconnect(s), nil
	}
	return nil, qerrors.Semantic(qerrors.PhaseCompile, "unsupported statement type %T", stmt)
}
