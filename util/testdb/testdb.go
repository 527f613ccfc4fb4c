// Package testdb provides a *sql.DB backed by a no-op driver so service
// tests can exercise the BeginTx/Commit choreography against mocked
// repositories without a running database. Any attempt to prepare or execute
// SQL through it fails, which is exactly what the tests want: all data access
// must go through the mocked repository, the transaction handle is only
// passed along.
package testdb

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
)

var registerOnce sync.Once

// New returns a database whose transactions begin and commit successfully
// but cannot run statements.
func New() *sql.DB {
	registerOnce.Do(func() {
		sql.Register("stubtx", stubDriver{})
	})
	db, err := sql.Open("stubtx", "")
	if err != nil {
		panic(err)
	}
	return db
}

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) { return &stubConn{}, nil }

type stubConn struct{}

func (*stubConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("testdb: statements are not supported")
}
func (*stubConn) Close() error              { return nil }
func (*stubConn) Begin() (driver.Tx, error) { return stubTx{}, nil }

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }
