package bsqlite

// Stmt is a prepared statement handle. It keeps the original SQL text and
// its detected placeholder prefix, not a live engine primitive: the binding
// holds the database file lock for as long as a prepared statement exists,
// so every All/Get/Run acquires a fresh primitive and finalizes it before
// returning. A Stmt is therefore cheap to keep around and never blocks other
// statements on the same connection between calls.
//
// A Stmt holds a non-owning reference to the DB that prepared it; the DB
// must outlive all statements derived from it.
type Stmt struct {
	db     *DB
	sql    string
	prefix byte
}

// All executes the statement and returns every matching row, in result
// order. No matching rows yields an empty slice, not an error.
func (s *Stmt) All(args ...any) ([]Row, error) {
	ps, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release(ps)
	return ps.All(normalizeParams(s.prefix, args))
}

// Get executes the statement and returns the first matching row, or a nil
// Row when nothing matches.
func (s *Stmt) Get(args ...any) (Row, error) {
	ps, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release(ps)
	return ps.Get(normalizeParams(s.prefix, args))
}

// Run executes a mutating statement and reports the number of affected rows
// and the rowid of the last inserted row.
func (s *Stmt) Run(args ...any) (RunResult, error) {
	ps, err := s.acquire()
	if err != nil {
		return RunResult{}, err
	}
	defer release(ps)
	return ps.Run(normalizeParams(s.prefix, args))
}

// acquire obtains a fresh prepared primitive from the parent connection.
func (s *Stmt) acquire() (engineStmt, error) {
	if s.db.closed {
		return nil, ErrClosed
	}
	return s.db.engine.Prepare(s.sql)
}

// release finalizes ps on every exit path of a call, success or failure.
// A finalize error is deliberately discarded: there is no recovery action,
// and surfacing it would mask the primary result of the call.
func release(ps engineStmt) {
	_ = ps.Finalize()
}
