// Package template implements the template-driven parser from spec.md
// §4.2/§4.3: a small interpreter over a pre-parsed pattern (never
// re-split per call, per Design Notes §9) that extracts a typed
// TemplateParams bag from a token stream.
package template

import (
	"fmt"

	"github.com/qiulin/qwery/ast"
	"github.com/qiulin/qwery/token"
)

// VarRef is a parsed `@name` occurrence recorded by a %v tag.
type VarRef struct {
	Name string
	Pos  token.Pos
}

// TemplateParams is the monoidal, key-disjoint parameter bag described in
// spec.md §3. Each map is keyed by the tag's NAME; merging two
// TemplateParams is a key-disjoint union — a repeated key across two
// merged bags is a parser bug, not a legal overwrite.
//
// The spec's table lists a "sources:str→Executable" field; that type
// lives in the runtime package which sits above ast/template in the
// dependency graph, so at parse time a source is kept as the ast.Expr
// that names it (DataResource literal, Subquery, or VariableRef) and the
// compiler resolves it to an Executable during compilation (spec.md
// §4.5's "resolved to a concrete Input/Output Device at execute time").
type TemplateParams struct {
	Atoms         map[string]string
	Numerics      map[string]float64
	Fields        map[string][]ast.Field
	Expressions   map[string][]ast.AliasedExpr
	Conditions    map[string]ast.Cond
	OrderedFields map[string][]ast.OrderedColumn
	Sources       map[string]ast.Expr
	Variables     map[string]VarRef
	Hints         map[string]ast.Hints
	RepeatedSets  map[string][]*TemplateParams
	Assignables   map[string]ast.Expr
	Selects       map[string]*ast.SelectStmt
}

// New returns an empty TemplateParams ready to accumulate merges.
func New() *TemplateParams {
	return &TemplateParams{
		Atoms:         map[string]string{},
		Numerics:      map[string]float64{},
		Fields:        map[string][]ast.Field{},
		Expressions:   map[string][]ast.AliasedExpr{},
		Conditions:    map[string]ast.Cond{},
		OrderedFields: map[string][]ast.OrderedColumn{},
		Sources:       map[string]ast.Expr{},
		Variables:     map[string]VarRef{},
		Hints:         map[string]ast.Hints{},
		RepeatedSets:  map[string][]*TemplateParams{},
		Assignables:   map[string]ast.Expr{},
		Selects:       map[string]*ast.SelectStmt{},
	}
}

// Merge folds other into p as a key-disjoint union. A key present in both
// is a programmer error in the pattern/grammar, per spec.md §3.
func (p *TemplateParams) Merge(other *TemplateParams) error {
	if other == nil {
		return nil
	}
	for k, v := range other.Atoms {
		if _, dup := p.Atoms[k]; dup {
			return fmt.Errorf("template: duplicate atom key %q", k)
		}
		p.Atoms[k] = v
	}
	for k, v := range other.Numerics {
		if _, dup := p.Numerics[k]; dup {
			return fmt.Errorf("template: duplicate numeric key %q", k)
		}
		p.Numerics[k] = v
	}
	for k, v := range other.Fields {
		if _, dup := p.Fields[k]; dup {
			return fmt.Errorf("template: duplicate field-list key %q", k)
		}
		p.Fields[k] = v
	}
	for k, v := range other.Expressions {
		if _, dup := p.Expressions[k]; dup {
			return fmt.Errorf("template: duplicate expression-list key %q", k)
		}
		p.Expressions[k] = v
	}
	for k, v := range other.Conditions {
		if _, dup := p.Conditions[k]; dup {
			return fmt.Errorf("template: duplicate condition key %q", k)
		}
		p.Conditions[k] = v
	}
	for k, v := range other.OrderedFields {
		if _, dup := p.OrderedFields[k]; dup {
			return fmt.Errorf("template: duplicate ordered-column key %q", k)
		}
		p.OrderedFields[k] = v
	}
	for k, v := range other.Sources {
		if _, dup := p.Sources[k]; dup {
			return fmt.Errorf("template: duplicate source key %q", k)
		}
		p.Sources[k] = v
	}
	for k, v := range other.Variables {
		if _, dup := p.Variables[k]; dup {
			return fmt.Errorf("template: duplicate variable key %q", k)
		}
		p.Variables[k] = v
	}
	for k, v := range other.Hints {
		if _, dup := p.Hints[k]; dup {
			return fmt.Errorf("template: duplicate hints key %q", k)
		}
		p.Hints[k] = v
	}
	for k, v := range other.RepeatedSets {
		if _, dup := p.RepeatedSets[k]; dup {
			return fmt.Errorf("template: duplicate repeated-set key %q", k)
		}
		p.RepeatedSets[k] = v
	}
	for k, v := range other.Assignables {
		if _, dup := p.Assignables[k]; dup {
			return fmt.Errorf("template: duplicate assignable key %q", k)
		}
		p.Assignables[k] = v
	}
	for k, v := range other.Selects {
		if _, dup := p.Selects[k]; dup {
			return fmt.Errorf("template: duplicate select key %q", k)
		}
		p.Selects[k] = v
	}
	return nil
}
