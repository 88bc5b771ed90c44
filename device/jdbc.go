package device

import (
	"context"
	"database/sql"
	"io"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/qiulin/qwery/ast"
	"github.com/qiulin/qwery/qerrors"
	"github.com/qiulin/qwery/value"
)

// JDBCFactory handles `mysql://`, `postgres://` and `sqlite://` sources
// (spec.md §4.9's JDBC-style device): path is `scheme://dsn`, and the
// query text comes from the `query` entry of WITH PROPERTIES, matching
// how connection parameters in general are threaded through Hints.
type JDBCFactory struct{}

func (JDBCFactory) Name() string { return "jdbc" }

var jdbcDrivers = map[string]string{
	"mysql":    "mysql",
	"postgres": "pgx",
	"sqlite":   "sqlite",
}

func jdbcScheme(path string) (string, bool) {
	i := strings.Index(path, "://")
	if i < 0 {
		return "", false
	}
	scheme := path[:i]
	_, ok := jdbcDrivers[scheme]
	return scheme, ok
}

func (JDBCFactory) CanOpen(path string, hints ast.Hints) bool {
	_, ok := jdbcScheme(path)
	return ok
}

func jdbcOpen(path string) (*sql.DB, error) {
	scheme, ok := jdbcScheme(path)
	if !ok {
		return nil, qerrors.Resource(qerrors.PhaseOpen, nil, "unrecognised JDBC scheme in %q", path)
	}
	dsn := strings.TrimPrefix(path, scheme+"://")
	db, err := sql.Open(jdbcDrivers[scheme], dsn)
	if err != nil {
		return nil, qerrors.Resource(qerrors.PhaseOpen, err, "opening JDBC connection %q", path)
	}
	return db, nil
}

type jdbcInput struct {
	db   *sql.DB
	rows *sql.Rows
	cols []string
}

func (JDBCFactory) OpenInput(ctx context.Context, path string, hints ast.Hints) (InputDevice, error) {
	query := hints.Properties["query"]
	if query == "" {
		return nil, qerrors.Resource(qerrors.PhaseOpen, nil, "JDBC source %q requires a `query` property", path)
	}
	db, err := jdbcOpen(path)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		db.Close()
		return nil, qerrors.Resource(qerrors.PhaseOpen, err, "running JDBC query against %q", path)
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		db.Close()
		return nil, qerrors.Resource(qerrors.PhaseOpen, err, "reading JDBC result columns for %q", path)
	}
	return &jdbcInput{db: db, rows: rows, cols: cols}, nil
}

func (in *jdbcInput) Read(ctx context.Context) (Record, error) {
	if !in.rows.Next() {
		if err := in.rows.Err(); err != nil {
			return nil, qerrors.Io(qerrors.PhaseRead, err, "scanning JDBC row")
		}
		return nil, io.EOF
	}
	vals := make([]any, len(in.cols))
	ptrs := make([]any, len(in.cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := in.rows.Scan(ptrs...); err != nil {
		return nil, qerrors.Io(qerrors.PhaseRead, err, "scanning JDBC row")
	}
	rec := make(Record, len(in.cols))
	for i, c := range in.cols {
		rec[i] = Field{Name: c, Value: value.FromGo(vals[i])}
	}
	return rec, nil
}

func (in *jdbcInput) Close(ctx context.Context) error {
	in.rows.Close()
	return in.db.Close()
}

type jdbcOutput struct {
	db    *sql.DB
	table string
}

// OpenOutput takes the target table name from the `table` entry of WITH
// PROPERTIES (path is only the `scheme://dsn`); INSERT statements
// are built column-by-column from each Record's own field names since
// INSERT target columns vary per statement (spec.md §6's INSERT grammar
// does not fix a schema ahead of time).
func (JDBCFactory) OpenOutput(ctx context.Context, path string, hints ast.Hints, appendMode bool) (OutputDevice, error) {
	table := hints.Properties["table"]
	if table == "" {
		return nil, qerrors.Resource(qerrors.PhaseOpen, nil, "JDBC target %q requires a `table` property", path)
	}
	db, err := jdbcOpen(path)
	if err != nil {
		return nil, err
	}
	if !appendMode {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			db.Close()
			return nil, qerrors.Io(qerrors.PhaseWrite, err, "clearing JDBC table %q before overwrite", table)
		}
	}
	return &jdbcOutput{db: db, table: table}, nil
}

func (out *jdbcOutput) Write(ctx context.Context, rec Record) error {
	if len(rec) == 0 {
		return nil
	}
	cols := make([]string, len(rec))
	placeholders := make([]string, len(rec))
	args := make([]any, len(rec))
	for i, f := range rec {
		cols[i] = f.Name
		placeholders[i] = "?"
		args[i] = displayGo(f.Value)
	}
	query := "INSERT INTO " + out.table + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(placeholders, ", ") + ")"
	if _, err := out.db.ExecContext(ctx, query, args...); err != nil {
		return qerrors.Io(qerrors.PhaseWrite, err, "inserting into JDBC table %q", out.table)
	}
	return nil
}

func (out *jdbcOutput) Close(ctx context.Context) error {
	return out.db.Close()
}
