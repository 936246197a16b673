// Package testutil provides a stub database for postgres document store tests.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

var stubSeq atomic.Uint64

// StubConn records statements and keeps documents in memory, keyed by
// collection then id.
type StubConn struct {
	mu        sync.Mutex
	Execs     []string
	Docs      map[string]map[string][]byte
	FailPing  bool
	FailExec  bool
	FailQuery bool
	RowsErr   error
}

// NewStubDB registers a sql.DB backed by an in-memory stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Docs: make(map[string]map[string][]byte)}
	name := fmt.Sprintf("stubpg%d", stubSeq.Add(1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) {
	return d.conn, nil
}

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) { return stubTx{}, nil }

// Ping implements driver.Pinger.
func (c *StubConn) Ping(context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	upper := strings.ToUpper(strings.TrimSpace(query))
	switch {
	case strings.HasPrefix(upper, "INSERT INTO DOCUMENTS"):
		if len(args) < 3 {
			return nil, fmt.Errorf("insert expects collection, id, payload")
		}
		coll, id := asString(args[0].Value), asString(args[1].Value)
		if c.Docs[coll] == nil {
			c.Docs[coll] = make(map[string][]byte)
		}
		c.Docs[coll][id] = asBytes(args[2].Value)
	case strings.HasPrefix(upper, "DELETE FROM DOCUMENTS"):
		if len(args) < 2 {
			return nil, fmt.Errorf("delete expects collection, id")
		}
		delete(c.Docs[asString(args[0].Value)], asString(args[1].Value))
	}
	return driver.RowsAffected(1), nil
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailQuery {
		return nil, fmt.Errorf("query fail")
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("query expects a collection argument")
	}
	coll := c.Docs[asString(args[0].Value)]
	lower := strings.ToLower(query)
	if strings.Contains(lower, "and id = $2") {
		rows := &stubRows{cols: []string{"payload"}, err: c.RowsErr}
		if payload, ok := coll[asString(args[1].Value)]; ok {
			rows.rows = append(rows.rows, []driver.Value{payload})
		}
		return rows, nil
	}
	ids := make([]string, 0, len(coll))
	for id := range coll {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	rows := &stubRows{cols: []string{"id", "payload"}, err: c.RowsErr}
	for _, id := range ids {
		rows.rows = append(rows.rows, []driver.Value{id, coll[id]})
	}
	return rows, nil
}

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
	err  error
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

func asString(v driver.Value) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func asBytes(v driver.Value) []byte {
	switch t := v.(type) {
	case []byte:
		out := make([]byte, len(t))
		copy(out, t)
		return out
	case string:
		return []byte(t)
	default:
		return []byte(fmt.Sprint(t))
	}
}
