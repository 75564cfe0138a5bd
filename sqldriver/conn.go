// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqldriver

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"math/big"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/david-engelmann/turbodbc"
)

var (
	ErrTXAlreadyStarted = errors.New("already in a transaction")
	ErrTXCompleted      = errors.New("transaction already completed")
)

// Conn is a database/sql connection backed by one turbodbc Connection.
type Conn struct {
	c   *turbodbc.Connection
	tx  *Tx
	bad atomic.Bool
}

// Connection returns the underlying turbodbc connection, for use with
// sql.Conn.Raw.
func (c *Conn) Connection() *turbodbc.Connection { return c.c }

// wrapError marks the connection bad when the driver reports a lost
// connection, so database/sql discards it.
func (c *Conn) wrapError(err error) error {
	if err != nil && turbodbc.IsConnectionLost(err) {
		c.bad.Store(true)
		return driver.ErrBadConn
	}
	return err
}

// implement driver.Conn
func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

// implement driver.ConnPrepareContext
func (c *Conn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	if c.bad.Load() {
		return nil, driver.ErrBadConn
	}
	return &Stmt{c: c, query: query}, nil
}

// implement driver.Conn
func (c *Conn) Close() error {
	if c.tx != nil {
		c.tx.Rollback()
	}
	return c.c.Close()
}

// implement driver.Conn
func (c *Conn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// implement driver.ConnBeginTx
func (c *Conn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if c.bad.Load() {
		return nil, driver.ErrBadConn
	}
	if c.tx != nil {
		return nil, ErrTXAlreadyStarted
	}
	if sql.IsolationLevel(opts.Isolation) != sql.LevelDefault {
		return nil, errors.New("turbodbc: only the default isolation level is supported")
	}
	if opts.ReadOnly {
		return nil, errors.New("turbodbc: read-only transactions are not supported")
	}
	if err := c.c.SetAutocommit(false); err != nil {
		return nil, c.wrapError(err)
	}
	c.tx = &Tx{c: c}
	return c.tx, nil
}

// implement driver.ExecerContext
func (c *Conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	s := &Stmt{c: c, query: query}
	return s.ExecContext(ctx, args)
}

// implement driver.QueryerContext
func (c *Conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	s := &Stmt{c: c, query: query}
	return s.QueryContext(ctx, args)
}

// implement driver.NamedValueChecker
func (c *Conn) CheckNamedValue(nv *driver.NamedValue) error {
	if nv.Name != "" {
		return errors.New("sql: driver does not support the use of Named Parameters")
	}
	switch v := nv.Value.(type) {
	case uuid.UUID, *big.Rat:
		return nil
	case big.Rat:
		nv.Value = &v
		return nil
	}
	var err error
	nv.Value, err = driver.DefaultParameterConverter.ConvertValue(nv.Value)
	return err
}

// implement driver.SessionResetter
func (c *Conn) ResetSession(ctx context.Context) error {
	if c.bad.Load() {
		return driver.ErrBadConn
	}
	return nil
}

// implement driver.Validator
func (c *Conn) IsValid() bool {
	return !c.bad.Load() && !c.c.Closed()
}

// implement driver.Pinger
func (c *Conn) Ping(ctx context.Context) error {
	if c.bad.Load() || c.c.Closed() {
		return driver.ErrBadConn
	}
	cur, err := c.c.Cursor()
	if err != nil {
		return c.wrapError(err)
	}
	defer cur.Close()
	if err := cur.ExecuteContext(ctx, "SELECT 1"); err != nil {
		return c.wrapError(err)
	}
	return nil
}
