package ast

import "github.com/qiulin/qwery/token"

// SelectStmt is `SELECT [TOP n] projections [INTO|OVERWRITE target]
// [FROM source] [WHERE] [GROUP BY] [ORDER BY] [LIMIT]` (spec.md §6).
type SelectStmt struct {
	StartPos token.Pos
	EndPos   token.Pos

	Distinct    bool
	Top         Expr // TOP n, nil if absent
	Projections []AliasedExpr

	IntoMode    IntoMode // IntoNone, IntoInto, IntoOverwrite
	Target      string
	TargetHints Hints

	Source      Expr // DataResource literal/subquery/variable, nil if no FROM
	SourceHints Hints

	Where   Cond // nil if absent
	GroupBy []Field
	OrderBy []OrderedColumn
	Limit   Expr // nil if absent
}

func (*SelectStmt) statementNode()   {}
func (*SelectStmt) exprNode()        {} // usable as a scalar subquery operand
func (s *SelectStmt) Pos() token.Pos { return s.StartPos }
func (s *SelectStmt) End() token.Pos { return s.EndPos }

// IntoMode distinguishes `INTO` (append) from `OVERWRITE`.
type IntoMode int

const (
	IntoNone IntoMode = iota
	IntoInto
	IntoOverwrite
)

// AliasedExpr is one projected expression with an optional alias.
type AliasedExpr struct {
	Expr  Expr
	Alias string // empty if none given
}

// InsertStmt is `INSERT INTO|OVERWRITE target [WITH hints] (fields)
// select-or-values` (spec.md §6).
type InsertStmt struct {
	StartPos token.Pos
	EndPos   token.Pos

	Overwrite bool
	Target    string
	Hints     Hints
	Fields    []string

	Values [][]Expr   // set when the statement uses VALUES (...)
	Select *SelectStmt // set when the statement is INSERT ... SELECT
}

func (*InsertStmt) statementNode()   {}
func (i *InsertStmt) Pos() token.Pos { return i.StartPos }
func (i *InsertStmt) End() token.Pos { return i.EndPos }

// DescribeStmt is `DESCRIBE source [LIMIT n]`.
type DescribeStmt struct {
	StartPos token.Pos
	EndPos   token.Pos
	Source   Expr
	Limit    Expr // nil if absent
}

func (*DescribeStmt) statementNode()   {}
func (d *DescribeStmt) Pos() token.Pos { return d.StartPos }
func (d *DescribeStmt) End() token.Pos { return d.EndPos }

// DeclareStmt is `DECLARE @var TYPE`.
type DeclareStmt struct {
	StartPos token.Pos
	EndPos   token.Pos
	Name     string
	Type     CastType
}

func (*DeclareStmt) statementNode()   {}
func (d *DeclareStmt) Pos() token.Pos { return d.StartPos }
func (d *DeclareStmt) End() token.Pos { return d.EndPos }

// AssignStmt is `SET @var = expr | SELECT …`.
type AssignStmt struct {
	StartPos token.Pos
	EndPos   token.Pos
	Name     string
	Expr     Expr // either a general expression or a *SelectStmt (as Expr)
}

func (*AssignStmt) statementNode()   {}
func (a *AssignStmt) Pos() token.Pos { return a.StartPos }
func (a *AssignStmt) End() token.Pos { return a.EndPos }

// ShowEntity is the fixed SHOW whitelist (spec.md §9's locked-down list).
type ShowEntity int

const (
	ShowViews ShowEntity = iota
	ShowConnections
	ShowVariables
)

// ShowStmt is `SHOW VIEWS|CONNECTIONS|VARIABLES`.
type ShowStmt struct {
	StartPos token.Pos
	EndPos   token.Pos
	Entity   ShowEntity
}

func (*ShowStmt) statementNode()   {}
func (s *ShowStmt) Pos() token.Pos { return s.StartPos }
func (s *ShowStmt) End() token.Pos { return s.EndPos }

// ViewStmt is `CREATE VIEW name AS select-or-subquery`.
type ViewStmt struct {
	StartPos token.Pos
	EndPos   token.Pos
	Name     string
	Query    *SelectStmt
}

func (*ViewStmt) statementNode()   {}
func (v *ViewStmt) Pos() token.Pos { return v.StartPos }
func (v *ViewStmt) End() token.Pos { return v.EndPos }

// ConnectStmt is `CONNECT TO service [WITH hints] AS name`.
type ConnectStmt struct {
	StartPos token.Pos
	EndPos   token.Pos
	Service  string
	Hints    Hints
	Name     string
}

func (*ConnectStmt) statementNode()   {}
func (c *ConnectStmt) Pos() token.Pos { return c.StartPos }
func (c *ConnectStmt) End() token.Pos { return c.EndPos }

// DisconnectStmt is `DISCONNECT FROM handle`.
type DisconnectStmt struct {
	StartPos token.Pos
	EndPos   token.Pos
	Handle   string
}

func (*DisconnectStmt) statementNode()   {}
func (d *DisconnectStmt) Pos() token.Pos { return d.StartPos }
func (d *DisconnectStmt) End() token.Pos { return d.EndPos }
