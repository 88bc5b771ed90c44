// Package qwery is a template-driven SQL-dialect execution engine for
// ad-hoc ETL: read from CSV/TSV/PSV/JSON/Avro files, JDBC databases, S3
// objects, or Kafka topics, and write to the same set, using a small SQL
// dialect (SELECT/INSERT/DESCRIBE/DECLARE/SET/SHOW/CREATE VIEW/CONNECT/
// DISCONNECT — see spec.md) instead of hand-written Go per pipeline.
//
// Basic usage:
//
//	eng := qwery.New(qwery.Config{})
//	rs, err := eng.RunOne(context.Background(), `SELECT Symbol, Name FROM './companylist.csv' WHERE Sector='Technology'`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rs.Close(context.Background())
package qwery

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/qiulin/qwery/ast"
	"github.com/qiulin/qwery/compiler"
	"github.com/qiulin/qwery/device"
	"github.com/qiulin/qwery/qerrors"
	"github.com/qiulin/qwery/rowexec"
	"github.com/qiulin/qwery/runtime"
)

// Statement, Expr, and Node are convenience aliases for the ast package's
// sum-type roots, mirroring the teacher's own top-level re-export style.
type (
	Statement = ast.Statement
	Expr      = ast.Expr
	Node      = ast.Node
)

// Config configures a new Engine. The zero value is usable: a default
// logger and the full built-in device-factory set. The engine never
// reads environment variables or flags itself (spec.md §6); callers
// that want CLI/env-driven configuration build their own Config and
// pass it in.
type Config struct {
	// Log receives structured Info/Warn/Debug output from device opens
	// and statement dispatch (spec.md §10.2). Defaults to
	// logrus.StandardLogger() when nil.
	Log *logrus.Logger

	// ExtraFactories are appended after the built-in set. Lookup is
	// first-match-wins, so an extra factory only receives paths that no
	// built-in factory claims; it cannot shadow a built-in one.
	ExtraFactories []device.Factory
}

// Engine is a bound, ready-to-run instance: a frozen device Registry plus
// a root Scope shared across statements run through it (so `DECLARE`/
// `SET`/`CREATE VIEW`/`CONNECT` in one statement are visible to the
// next — spec.md §6's session semantics).
type Engine struct {
	env   *rowexec.Env
	scope *runtime.Scope
}

// New builds an Engine from cfg.
func New(cfg Config) *Engine {
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	reg := NewRegistryWithDefaults(log)
	for _, f := range cfg.ExtraFactories {
		reg.Register(f)
	}
	reg.Freeze()
	return &Engine{
		env:   &rowexec.Env{Registry: reg},
		scope: runtime.NewRootScope(),
	}
}

// NewRegistryWithDefaults builds the built-in device.Registry (spec.md
// §11's domain stack): scheme-addressed sources (JDBC/S3/Kafka) first,
// then the local-file formats (Avro/JSON/delimited). The order decides
// which factory gets a path several CanOpen checks accept: the delimited
// factory accepts any local path without an Avro or JSON hint (`.json`
// and `.avro` files included), and the Avro and JSON factories accept a
// scheme-addressed path when their hint is set. The registry is returned
// unfrozen so callers may Register more factories before freezing it
// themselves.
func NewRegistryWithDefaults(log *logrus.Logger) *device.Registry {
	reg := device.NewRegistry(log)
	reg.Register(device.JDBCFactory{})
	reg.Register(device.S3Factory{})
	reg.Register(device.KafkaFactory{})
	reg.Register(device.AvroFactory{})
	reg.Register(device.JSONFactory{Log: log})
	reg.Register(device.DelimitedFactory{})
	return reg
}

// Parse parses a single statement.
func Parse(sql string) (ast.Statement, error) {
	stmts, err := compiler.ParseAll(sql)
	if err != nil {
		return nil, err
	}
	if len(stmts) != 1 {
		return nil, qerrors.Semantic(qerrors.PhaseParse, "Parse: expected exactly one statement, got %d", len(stmts))
	}
	return stmts[0], nil
}

// ParseAll parses a `;`-separated sequence of statements (spec.md §8
// scenario 4).
func ParseAll(sql string) ([]ast.Statement, error) {
	return compiler.ParseAll(sql)
}

// RunOne parses and executes a single statement against the Engine's
// session scope.
func (e *Engine) RunOne(ctx context.Context, sql string) (runtime.ResultSet, error) {
	stmt, err := Parse(sql)
	if err != nil {
		return nil, err
	}
	return e.Exec(ctx, stmt)
}

// Run parses sql as one or more `;`-separated statements and executes
// them in order against the Engine's session scope, returning the last
// statement's ResultSet (spec.md §8 scenario 4: intermediate DECLARE/SET
// statements produce an empty result but still mutate session state that
// later statements observe).
func (e *Engine) Run(ctx context.Context, sql string) (runtime.ResultSet, error) {
	stmts, err := ParseAll(sql)
	if err != nil {
		return nil, err
	}
	var last runtime.ResultSet = runtime.EmptyResultSet{}
	for _, stmt := range stmts {
		last, err = e.Exec(ctx, stmt)
		if err != nil {
			return nil, err
		}
	}
	return last, nil
}

// Exec compiles and executes an already-parsed statement.
func (e *Engine) Exec(ctx context.Context, stmt ast.Statement) (runtime.ResultSet, error) {
	exec, err := compiler.Compile(e.env, stmt)
	if err != nil {
		return nil, err
	}
	return exec.Execute(ctx, e.scope)
}

// Warnings returns the session's accumulated non-fatal warnings (spec.md
// §12's session-warnings feature): the messages added with Scope.Warn.
// The JSON source's heterogeneous-array notice is logged through the
// device logger and does not appear here.
func (e *Engine) Warnings() []string {
	return e.scope.Warnings()
}
