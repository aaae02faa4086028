// Copyright 2020 The grand-mother Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fakedb provides an in-memory database/sql driver serving
// canned rows, for tests.
package fakedb // import "github.com/grand-mother/c-grand-to-hdf5/internal/fakedb"

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"sync"
)

var query struct {
	mu   sync.Mutex
	rows Rows
	args []driver.Value
	sql  string
}

// Run runs f while the driver serves rows to every query.
func Run(ctx context.Context, rows Rows, f func(ctx context.Context) error) error {
	query.mu.Lock()
	defer query.mu.Unlock()
	query.rows = rows
	query.args = nil
	query.sql = ""

	return f(ctx)
}

// Last returns the last query executed through the driver, with its
// arguments. Last must be called from within Run.
func Last() (string, []driver.Value) {
	return query.sql, query.args
}

func init() {
	sql.Register("fakedb", &Driver{})
}

// Driver is the fakedb database driver.
type Driver struct{}

func (drv *Driver) Open(name string) (driver.Conn, error) {
	return &conn{}, nil
}

type conn struct{}

func (c *conn) Prepare(sql string) (driver.Stmt, error) {
	return &stmt{sql: sql}, nil
}

func (c *conn) Close() error { return nil }

func (c *conn) Begin() (driver.Tx, error) {
	panic("fakedb: transactions not implemented")
}

type stmt struct {
	sql string
}

func (st *stmt) Close() error  { return nil }
func (st *stmt) NumInput() int { return -1 }

func (st *stmt) Exec(args []driver.Value) (driver.Result, error) {
	panic("fakedb: exec not implemented")
}

func (st *stmt) Query(args []driver.Value) (driver.Rows, error) {
	query.sql = st.sql
	query.args = args
	return &query.rows, nil
}

// Rows are the canned rows served by the driver.
type Rows struct {
	Names  []string
	Values [][]driver.Value
}

func (rows *Rows) Columns() []string { return rows.Names }
func (rows *Rows) Close() error      { return nil }

func (rows *Rows) Next(dest []driver.Value) error {
	if len(rows.Values) == 0 {
		return io.EOF
	}
	copy(dest, rows.Values[0])
	rows.Values = rows.Values[1:]
	return nil
}

var (
	_ driver.Driver = (*Driver)(nil)
	_ driver.Conn   = (*conn)(nil)
	_ driver.Stmt   = (*stmt)(nil)
	_ driver.Rows   = (*Rows)(nil)
)
