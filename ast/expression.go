package ast

import "github.com/qiulin/qwery/token"

// Literal is a constant scalar value appearing directly in source text.
type Literal struct {
	StartPos token.Pos
	EndPos   token.Pos
	Kind     LiteralKind
	Text     string // original lexeme, for numeric/string reconstruction
}

// LiteralKind distinguishes the surface syntax of a Literal.
type LiteralKind int

const (
	LitNull LiteralKind = iota
	LitInt
	LitFloat
	LitString
	LitBool
)

func (*Literal) exprNode()        {}
func (l *Literal) Pos() token.Pos { return l.StartPos }
func (l *Literal) End() token.Pos { return l.EndPos }

// FieldRef is a (possibly table-qualified) column reference.
type FieldRef struct {
	StartPos token.Pos
	EndPos   token.Pos
	Table    string // optional qualifier, empty if unqualified
	Name     string
}

func (*FieldRef) exprNode()        {}
func (f *FieldRef) Pos() token.Pos { return f.StartPos }
func (f *FieldRef) End() token.Pos { return f.EndPos }

// VariableRef is an `@name` reference, resolved against Scope at eval
// time.
type VariableRef struct {
	StartPos token.Pos
	EndPos   token.Pos
	Name     string
}

func (*VariableRef) exprNode()        {}
func (v *VariableRef) Pos() token.Pos { return v.StartPos }
func (v *VariableRef) End() token.Pos { return v.EndPos }

// FunctionCall is a scalar function invocation: ident ( args ).
type FunctionCall struct {
	StartPos token.Pos
	EndPos   token.Pos
	Name     string
	Args     []Expr
}

func (*FunctionCall) exprNode()        {}
func (f *FunctionCall) Pos() token.Pos { return f.StartPos }
func (f *FunctionCall) End() token.Pos { return f.EndPos }

// AggregateCall is a built-in aggregate (COUNT/SUM/AVG/MIN/MAX/VARIANCE),
// recognised by the fixed name set in token.IsAggregateName. Arg is nil
// for `COUNT(*)`.
type AggregateCall struct {
	StartPos token.Pos
	EndPos   token.Pos
	Name     string // canonical uppercase name
	Arg      Expr   // nil for COUNT(*)
	Star     bool   // true for COUNT(*)
	Distinct bool
}

func (*AggregateCall) exprNode()        {}
func (a *AggregateCall) Pos() token.Pos { return a.StartPos }
func (a *AggregateCall) End() token.Pos { return a.EndPos }

// ArithOp enumerates the binary arithmetic/concat operators.
type ArithOp int

const (
	ArithAdd ArithOp = iota
	ArithSub
	ArithMul
	ArithDiv
	ArithMod
	ArithConcat
)

// Arithmetic is a binary arithmetic expression, e.g. `2 * 3 + 1`.
type Arithmetic struct {
	StartPos token.Pos
	EndPos   token.Pos
	Op       ArithOp
	Left     Expr
	Right    Expr
}

func (*Arithmetic) exprNode()        {}
func (a *Arithmetic) Pos() token.Pos { return a.StartPos }
func (a *Arithmetic) End() token.Pos { return a.EndPos }

// Negate is unary minus.
type Negate struct {
	StartPos token.Pos
	EndPos   token.Pos
	Operand  Expr
}

func (*Negate) exprNode()        {}
func (n *Negate) Pos() token.Pos { return n.StartPos }
func (n *Negate) End() token.Pos { return n.EndPos }

// CastType is the fixed set of DECLARE/CAST target types (spec.md §6).
type CastType int

const (
	CastBoolean CastType = iota
	CastInteger
	CastLong
	CastDouble
	CastString
	CastDate
	CastBinary
)

// Cast is `CAST(expr AS type)`.
type Cast struct {
	StartPos token.Pos
	EndPos   token.Pos
	Operand  Expr
	Type     CastType
}

func (*Cast) exprNode()        {}
func (c *Cast) Pos() token.Pos { return c.StartPos }
func (c *Cast) End() token.Pos { return c.EndPos }

// WhenClause is one `WHEN cond THEN expr` arm of a Case.
type WhenClause struct {
	When Cond
	Then Expr
}

// Case is `CASE WHEN … THEN … [ELSE …] END`.
type Case struct {
	StartPos token.Pos
	EndPos   token.Pos
	Whens    []WhenClause
	Else     Expr // nil if no ELSE
}

func (*Case) exprNode()        {}
func (c *Case) Pos() token.Pos { return c.StartPos }
func (c *Case) End() token.Pos { return c.EndPos }

// Subquery is a parenthesised SELECT used as a scalar expression.
type Subquery struct {
	StartPos token.Pos
	EndPos   token.Pos
	Select   *SelectStmt
}

func (*Subquery) exprNode()        {}
func (s *Subquery) Pos() token.Pos { return s.StartPos }
func (s *Subquery) End() token.Pos { return s.EndPos }

// StarExpr represents `*` in a projection list; only legal there
// (spec.md §4.4).
type StarExpr struct {
	StartPos token.Pos
	EndPos   token.Pos
}

func (*StarExpr) exprNode()        {}
func (s *StarExpr) Pos() token.Pos { return s.StartPos }
func (s *StarExpr) End() token.Pos { return s.EndPos }

// ViewRef is a bare identifier used as a FROM/INSERT source, resolved at
// execute time against Scope's registered views (spec.md §9's view map).
// The %s:/%S: template tags accept an unquoted identifier here in
// addition to a quoted DataResource path or a parenthesised subquery, so
// `SELECT * FROM my_view` works without quoting the view name like a
// file path.
type ViewRef struct {
	StartPos token.Pos
	EndPos   token.Pos
	Name     string
}

func (*ViewRef) exprNode()        {}
func (v *ViewRef) Pos() token.Pos { return v.StartPos }
func (v *ViewRef) End() token.Pos { return v.EndPos }
