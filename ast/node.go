// Package ast defines Qwery's abstract syntax tree: statements,
// expressions, conditions, and the small value types (Field,
// OrderedColumn, Hints, DataResource) from spec.md §3.
package ast

import "github.com/qiulin/qwery/token"

// Node is the base interface implemented by every AST type.
type Node interface {
	Pos() token.Pos
	End() token.Pos
}

// Statement is implemented by the nine statement shapes in spec.md §6.
type Statement interface {
	Node
	statementNode()
}

// Expr is the Expression sum type from spec.md §3: Literal, FieldRef,
// FunctionCall, Arithmetic, Cast, Case, AggregateCall, VariableRef.
type Expr interface {
	Node
	exprNode()
}

// Cond is the Condition sum type from spec.md §3: And, Or, Not, Eq, Ne,
// Lt, Le, Gt, Ge, Like, RLike, IsNull, IsNotNull.
type Cond interface {
	Node
	condNode()
}
