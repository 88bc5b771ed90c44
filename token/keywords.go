package token

import "strings"

var keywords = map[string]Token{
	"select":      SELECT,
	"from":        FROM,
	"where":       WHERE,
	"and":         AND,
	"or":          OR,
	"not":         NOT,
	"like":        LIKE,
	"rlike":       RLIKE,
	"is":          IS,
	"null":        NULL,
	"true":        TRUE,
	"false":       FALSE,
	"as":          AS,
	"distinct":    DISTINCT,
	"top":         TOP,
	"into":        INTO,
	"overwrite":   OVERWRITE,
	"group":       GROUP,
	"by":          BY,
	"order":       ORDER,
	"asc":         ASC,
	"desc":        DESC,
	"limit":       LIMIT,
	"insert":      INSERT,
	"values":      VALUES,
	"declare":     DECLARE,
	"set":         SET,
	"show":        SHOW,
	"create":      CREATE,
	"view":        VIEW,
	"connect":     CONNECT,
	"to":          TO,
	"disconnect":  DISCONNECT,
	"with":        WITH,
	"case":        CASE,
	"when":        WHEN,
	"then":        THEN,
	"else":        ELSE,
	"end":         END,
	"cast":        CAST,
	"count":       COUNT,
	"sum":         SUM,
	"avg":         AVG,
	"min":         MIN,
	"max":         MAX,
	"variance":    VARIANCE,
	"views":       VIEWS,
	"connections": CONNECTIONS,
	"variables":   VARIABLES,
	"avro":        AVRO,
	"compression": COMPRESSION,
	"gzip":        GZIP,
	"delimiter":   DELIMITER,
	"format":      FORMAT,
	"csv":         CSV,
	"json":        JSON,
	"psv":         PSV,
	"tsv":         TSV,
	"column":      COLUMN,
	"headers":     HEADERS,
	"properties":  PROPERTIES,
	"quoted":      QUOTED,
	"numbers":     NUMBERS,
	"text":        TEXT,
	"boolean":     BOOLEAN,
	"integer":     INTEGER,
	"long":        LONGTYPE,
	"double":      DOUBLE,
	"string":      STRINGTYPE,
	"date":        DATE,
	"binary":      BINARY,
}

// aggregateNames is the fixed set recognised as aggregate function calls
// per spec.md §4.4 ("Aggregate function names are recognised by a fixed
// set").
var aggregateNames = map[string]bool{
	"count":    true,
	"sum":      true,
	"avg":      true,
	"min":      true,
	"max":      true,
	"variance": true,
}

// LookupIdent returns the keyword token for ident (case-insensitively) or
// IDENT if ident is not a reserved word.
func LookupIdent(ident string) Token {
	if tok, ok := keywords[strings.ToLower(ident)]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword reports whether ident names a reserved word.
func IsKeyword(ident string) bool {
	_, ok := keywords[strings.ToLower(ident)]
	return ok
}

// IsAggregateName reports whether ident names a built-in aggregate
// function, case-insensitively.
func IsAggregateName(ident string) bool {
	return aggregateNames[strings.ToLower(ident)]
}
