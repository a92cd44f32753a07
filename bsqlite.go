package bsqlite

import (
	"errors"
	"os"
	"strings"
)

// Row is a single result row, keyed by column name.
type Row = map[string]any

// RunResult reports the outcome of one mutating execution.
type RunResult struct {
	Changes         int64
	LastInsertRowid int64
}

// Options configures Open. The zero value opens read-write and creates the
// file when missing.
type Options struct {
	// ReadOnly opens the database in read-only mode.
	ReadOnly bool
	// FileMustExist makes Open fail instead of creating a missing file.
	FileMustExist bool
}

var (
	ErrClosed = errors.New("bsqlite: database is closed")
)

// DB is a single logical connection to one database file (or an in-memory
// database). It is not a pool: statements, transactions and PRAGMAs all run
// against the same underlying session.
type DB struct {
	engine engine
	path   string
	closed bool
}

// Open opens the database at path. Use ":memory:" for an in-memory
// database. Optionally provide an Options; unspecified fields fall back to
// read-write-create.
func Open(path string, opts ...Options) (*DB, error) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	eng, err := openEngine(path, o)
	if err != nil {
		return nil, err
	}
	return &DB{engine: eng, path: path}, nil
}

// Prepare compiles sql into a Stmt. The engine primitive used for
// compilation is finalized immediately so no lock is held between calls;
// the Stmt re-acquires one per execution. Malformed SQL fails here.
func (c *DB) Prepare(sql string) (*Stmt, error) {
	if c.closed {
		return nil, ErrClosed
	}
	ps, err := c.engine.Prepare(sql)
	if err != nil {
		return nil, err
	}
	release(ps)
	return &Stmt{db: c, sql: sql, prefix: detectPrefix(sql)}, nil
}

// Exec runs one or more semicolon-separated statements with no parameters
// and no result. Intended for schema setup and batches.
func (c *DB) Exec(sql string) error {
	if c.closed {
		return ErrClosed
	}
	return c.engine.Exec(sql)
}

// Pragma runs a PRAGMA statement and returns its result rows. The PRAGMA
// keyword may be omitted from text. PRAGMAs that are purely side-effecting
// and produce no result set yield an empty slice, not an error.
func (c *DB) Pragma(text string) ([]Row, error) {
	rows, _, err := c.pragmaRows(text)
	return rows, err
}

// PragmaValue runs a PRAGMA statement and returns the first column of its
// first result row, or nil when the PRAGMA produces no rows.
func (c *DB) PragmaValue(text string) (any, error) {
	rows, cols, err := c.pragmaRows(text)
	if err != nil || len(rows) == 0 || len(cols) == 0 {
		return nil, err
	}
	return rows[0][cols[0]], nil
}

// pragmaRows prepares and executes a PRAGMA, returning rows plus the result
// column order (maps do not keep it). Prepare errors propagate; execution
// errors are treated as "no result set", since some PRAGMAs only have side
// effects.
func (c *DB) pragmaRows(text string) ([]Row, []string, error) {
	if c.closed {
		return nil, nil, ErrClosed
	}
	q := strings.TrimSpace(text)
	if len(q) < 6 || !strings.EqualFold(q[:6], "pragma") {
		q = "PRAGMA " + q
	}
	ps, err := c.engine.Prepare(q)
	if err != nil {
		return nil, nil, err
	}
	defer release(ps)

	rows, err := ps.All(boundParams{kind: bindNone})
	if err != nil {
		return []Row{}, nil, nil
	}
	return rows, ps.Columns(), nil
}

// Transaction wraps fn in begin/commit/rollback and returns the wrapped
// function. Invoking it issues BEGIN, runs fn, and COMMITs when fn returns
// nil; when fn returns an error the transaction is rolled back and that
// original error comes back unchanged, so callers can still match on it.
// Arguments and results travel through fn's closure.
//
// Transactions do not nest: invoking a wrapped function inside another one
// fails with the engine's begin-while-in-transaction error.
func (c *DB) Transaction(fn func() error) func() error {
	return func() error {
		if c.closed {
			return ErrClosed
		}
		if err := c.engine.Exec("BEGIN"); err != nil {
			return err
		}
		if err := fn(); err != nil {
			// Rollback failure discarded: the caller gets fn's error.
			_ = c.engine.Exec("ROLLBACK")
			return err
		}
		return c.engine.Exec("COMMIT")
	}
}

// Close closes the underlying connection and removes the <path>.lock
// artifact directory the binding's locking scheme can leave behind (a stale
// one makes the next open of the same path fail as "locked"). Close is
// idempotent; repeated calls are no-ops.
func (c *DB) Close() {
	if c.closed {
		return
	}
	c.closed = true
	// A close error ("already closed" included) has no recovery path.
	_ = c.engine.Close()
	if c.path != memoryPath {
		// Removal failure surfaces on the next open attempt instead.
		_ = os.RemoveAll(c.path + ".lock")
	}
}
