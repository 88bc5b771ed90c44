package ast

import "github.com/qiulin/qwery/token"

// Field is a column reference with an optional alias (spec.md §3).
// `*` is a legal Name meaning "all columns".
type Field struct {
	Table string
	Name  string
	Alias string
}

// OrderedColumn is a sort key: a column name plus direction. Ascending
// defaults to true when no direction keyword is present (spec.md §3).
type OrderedColumn struct {
	Name      string
	Ascending bool
}

// Hints bundles the format/IO configuration attached to a DataResource
// (spec.md §3, §4.3). The zero value is the empty Hints: "empty iff all
// fields unset" (spec.md §8 invariant 3), so every field here is a
// pointer/typed-optional rather than a bare bool/string with an ambiguous
// zero value.
type Hints struct {
	Append        *bool
	Delimiter     *string
	Headers       *bool
	Gzip          *bool
	QuotedNumbers *bool
	QuotedText    *bool
	IsJSON        *bool
	AvroSchema    *string
	Properties    map[string]string
	JSONPath      *string
}

// Empty reports whether every field of h is unset, per invariant 3 in
// spec.md §8.
func (h Hints) Empty() bool {
	return h.Append == nil && h.Delimiter == nil && h.Headers == nil &&
		h.Gzip == nil && h.QuotedNumbers == nil && h.QuotedText == nil &&
		h.IsJSON == nil && h.AvroSchema == nil && len(h.Properties) == 0 &&
		h.JSONPath == nil
}

// Merge combines h with override using "right wins when set" field-wise
// merge, per spec.md §9.
func (h Hints) Merge(override Hints) Hints {
	out := h
	if override.Append != nil {
		out.Append = override.Append
	}
	if override.Delimiter != nil {
		out.Delimiter = override.Delimiter
	}
	if override.Headers != nil {
		out.Headers = override.Headers
	}
	if override.Gzip != nil {
		out.Gzip = override.Gzip
	}
	if override.QuotedNumbers != nil {
		out.QuotedNumbers = override.QuotedNumbers
	}
	if override.QuotedText != nil {
		out.QuotedText = override.QuotedText
	}
	if override.IsJSON != nil {
		out.IsJSON = override.IsJSON
	}
	if override.AvroSchema != nil {
		out.AvroSchema = override.AvroSchema
	}
	if len(override.Properties) > 0 {
		merged := make(map[string]string, len(h.Properties)+len(override.Properties))
		for k, v := range h.Properties {
			merged[k] = v
		}
		for k, v := range override.Properties {
			merged[k] = v
		}
		out.Properties = merged
	}
	if override.JSONPath != nil {
		out.JSONPath = override.JSONPath
	}
	return out
}

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

// UsingFormat applies the named format preset (CSV/TSV/PSV/JSON),
// expanding to the field values given in spec.md §4.3. Idempotent:
// applying twice in a row yields the same Hints as applying once, since
// it always assigns the same literal values rather than toggling.
func (h Hints) UsingFormat(format string) Hints {
	out := h
	switch format {
	case "CSV":
		out.Delimiter = strPtr(",")
		out.Headers = boolPtr(true)
		out.QuotedText = boolPtr(true)
		out.QuotedNumbers = boolPtr(false)
	case "TSV":
		out.Delimiter = strPtr("\t")
		out.Headers = boolPtr(true)
		out.QuotedText = boolPtr(true)
		out.QuotedNumbers = boolPtr(false)
	case "PSV":
		out.Delimiter = strPtr("|")
		out.Headers = boolPtr(true)
		out.QuotedText = boolPtr(true)
		out.QuotedNumbers = boolPtr(false)
	case "JSON":
		out.IsJSON = boolPtr(true)
	}
	return out
}

// DataResource is a symbolic source/sink: a path/URI plus hints,
// resolved to a concrete device at execute time (spec.md §3).
type DataResource struct {
	StartPos token.Pos
	EndPos   token.Pos
	Path     string
	Hints    Hints
}

func (*DataResource) exprNode()        {}
func (d *DataResource) Pos() token.Pos { return d.StartPos }
func (d *DataResource) End() token.Pos { return d.EndPos }
