package ast

import "github.com/qiulin/qwery/token"

// The Condition sum type (spec.md §3/§4.4), evaluated to three-valued
// logic (true/false/unknown-on-NULL) by the runtime rather than folded
// into Expr as the teacher's BinaryExpr/LikeExpr/IsExpr did — the spec
// treats conditions and expressions as distinct evaluated types.

// BoolOp is AND/OR combining two sub-conditions.
type BoolOp int

const (
	OpAnd BoolOp = iota
	OpOr
)

// BoolCond is `left AND right` / `left OR right`.
type BoolCond struct {
	StartPos token.Pos
	EndPos   token.Pos
	Op       BoolOp
	Left     Cond
	Right    Cond
}

func (*BoolCond) condNode()        {}
func (b *BoolCond) Pos() token.Pos { return b.StartPos }
func (b *BoolCond) End() token.Pos { return b.EndPos }

// NotCond is `NOT cond`.
type NotCond struct {
	StartPos token.Pos
	EndPos   token.Pos
	Operand  Cond
}

func (*NotCond) condNode()        {}
func (n *NotCond) Pos() token.Pos { return n.StartPos }
func (n *NotCond) End() token.Pos { return n.EndPos }

// CmpOp enumerates the comparison operators.
type CmpOp int

const (
	CmpEq CmpOp = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
)

// Compare is a binary comparison between two expressions.
type Compare struct {
	StartPos token.Pos
	EndPos   token.Pos
	Op       CmpOp
	Left     Expr
	Right    Expr
}

func (*Compare) condNode()        {}
func (c *Compare) Pos() token.Pos { return c.StartPos }
func (c *Compare) End() token.Pos { return c.EndPos }

// LikeCond is `expr [NOT] LIKE pattern` or `expr [NOT] RLIKE pattern`.
type LikeCond struct {
	StartPos token.Pos
	EndPos   token.Pos
	Regex    bool // true for RLIKE
	Not      bool
	Operand  Expr
	Pattern  Expr
}

func (*LikeCond) condNode()        {}
func (l *LikeCond) Pos() token.Pos { return l.StartPos }
func (l *LikeCond) End() token.Pos { return l.EndPos }

// NullCond is `expr IS [NOT] NULL`.
type NullCond struct {
	StartPos token.Pos
	EndPos   token.Pos
	Not      bool
	Operand  Expr
}

func (*NullCond) condNode()        {}
func (n *NullCond) Pos() token.Pos { return n.StartPos }
func (n *NullCond) End() token.Pos { return n.EndPos }
