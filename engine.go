package bsqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

// engine is the narrow surface this package consumes from the underlying
// database binding: prepare, one-shot exec, close. Everything else (query
// planning, storage, WAL) stays behind it.
type engine interface {
	Prepare(query string) (engineStmt, error)
	Exec(query string) error
	Close() error
}

// engineStmt is one prepared-statement primitive. Named parameters in the
// bound set must carry their placeholder prefix; the implementation adapts
// them to whatever its driver wants. Finalize releases the statement and
// whatever lock it holds.
type engineStmt interface {
	All(params boundParams) ([]Row, error)
	Get(params boundParams) (Row, error)
	Run(params boundParams) (RunResult, error)
	// Columns returns the result column names of the last All/Get call.
	Columns() []string
	Finalize() error
}

// memoryPath is the sentinel for an in-memory database.
const memoryPath = ":memory:"

const openPingTimeout = 5 * time.Second

// sqlEngine implements engine over database/sql with the modernc.org/sqlite
// driver. The pool is pinned to a single connection: the wrapper manages one
// logical connection, and BEGIN/COMMIT issued through Exec must observe the
// same session as every other call.
type sqlEngine struct {
	db *sql.DB
}

// openEngine opens the default SQLite engine for path with the given options.
func openEngine(path string, opts Options) (engine, error) {
	if opts.FileMustExist && path != memoryPath {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("bsqlite: open %s: %w", path, err)
		}
	}

	db, err := sql.Open("sqlite", buildDSN(path, opts))
	if err != nil {
		return nil, fmt.Errorf("bsqlite: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// sql.Open is lazy; ping now so open failures (missing file in read-only
	// mode, permissions, corruption) surface at construction time.
	ctx, cancel := context.WithTimeout(context.Background(), openPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bsqlite: open %s: %w", path, err)
	}

	return &sqlEngine{db: db}, nil
}

// buildDSN maps the open options to SQLite URI access modes: ro for
// read-only, rw (open without create) when the file must exist, and the
// driver default (rwc) otherwise. The driver only forwards query parameters
// to SQLite for file: URIs, so a mode parameter forces that form.
func buildDSN(path string, opts Options) string {
	if path == memoryPath {
		return path
	}
	switch {
	case opts.ReadOnly:
		return "file:" + path + "?mode=ro"
	case opts.FileMustExist:
		return "file:" + path + "?mode=rw"
	default:
		return path
	}
}

func (e *sqlEngine) Prepare(query string) (engineStmt, error) {
	st, err := e.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	return &sqlStmt{st: st}, nil
}

func (e *sqlEngine) Exec(query string) error {
	// Argument-free exec: the driver runs every semicolon-separated
	// statement in the string.
	_, err := e.db.Exec(query)
	return err
}

func (e *sqlEngine) Close() error {
	return e.db.Close()
}

// sqlStmt adapts one *sql.Stmt to the engineStmt contract.
type sqlStmt struct {
	st   *sql.Stmt
	cols []string
}

func (s *sqlStmt) All(params boundParams) ([]Row, error) {
	rows, err := s.st.Query(driverArgs(params)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	s.cols = cols

	out := make([]Row, 0, 8)
	for rows.Next() {
		row, err := scanRow(rows, cols)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *sqlStmt) Get(params boundParams) (Row, error) {
	rows, err := s.st.Query(driverArgs(params)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	s.cols = cols

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanRow(rows, cols)
}

func (s *sqlStmt) Run(params boundParams) (RunResult, error) {
	res, err := s.st.Exec(driverArgs(params)...)
	if err != nil {
		return RunResult{}, err
	}
	changes, err := res.RowsAffected()
	if err != nil {
		return RunResult{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return RunResult{}, err
	}
	return RunResult{Changes: changes, LastInsertRowid: id}, nil
}

func (s *sqlStmt) Columns() []string {
	return s.cols
}

func (s *sqlStmt) Finalize() error {
	return s.st.Close()
}

// driverArgs converts a normalized parameter set into database/sql call
// arguments. The engine contract carries named keys with their prefix;
// sql.Named wants them bare, so the prefix byte is dropped here.
func driverArgs(p boundParams) []any {
	switch p.kind {
	case bindNone:
		return nil
	case bindSingle:
		// A single slice argument is a positional list in disguise.
		if vs, ok := p.single.([]any); ok {
			return vs
		}
		return []any{p.single}
	case bindList:
		return p.list
	case bindNamed:
		args := make([]any, 0, len(p.named))
		for k, v := range p.named {
			name := k
			if name != "" && isPlaceholderPrefix(name[0]) {
				name = name[1:]
			}
			args = append(args, sql.Named(name, v))
		}
		return args
	default:
		return nil
	}
}

// scanRow scans the current row of rows into a fresh Row. Values come back
// from the driver as int64, float64, string, []byte or nil; byte slices are
// copied since the driver may reuse their backing array on the next row.
func scanRow(rows *sql.Rows, cols []string) (Row, error) {
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	row := make(Row, len(cols))
	for i, col := range cols {
		v := vals[i]
		if b, ok := v.([]byte); ok {
			v = append([]byte(nil), b...)
		}
		row[col] = v
	}
	return row, nil
}
