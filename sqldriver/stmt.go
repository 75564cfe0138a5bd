// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqldriver

import (
	"context"
	"database/sql/driver"
	"errors"

	"github.com/david-engelmann/turbodbc"
)

// Stmt runs its query on a fresh cursor for every execution, so Rows of
// an earlier execution stay readable.
type Stmt struct {
	c      *Conn
	query  string
	closed bool
}

// implement driver.Stmt
func (s *Stmt) NumInput() int {
	return -1
}

// implement driver.Stmt
func (s *Stmt) Close() error {
	if s.closed {
		return errors.New("Stmt is already closed")
	}
	s.closed = true
	return nil
}

// implement driver.Stmt
func (s *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.ExecContext(context.Background(), valuesToNamed(args))
}

// implement driver.Stmt
func (s *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.QueryContext(context.Background(), valuesToNamed(args))
}

// execute runs the statement on a new cursor. The caller owns the cursor.
func (s *Stmt) execute(ctx context.Context, args []driver.NamedValue) (*turbodbc.Cursor, error) {
	if s.closed {
		return nil, errors.New("Stmt is closed")
	}
	if s.c.bad.Load() {
		return nil, driver.ErrBadConn
	}
	cur, err := s.c.c.Cursor()
	if err != nil {
		return nil, s.c.wrapError(err)
	}
	values := make([]interface{}, len(args))
	for i, a := range args {
		if a.Name != "" {
			cur.Close()
			return nil, errors.New("sql: driver does not support the use of Named Parameters")
		}
		values[i] = a.Value
	}
	if err := cur.ExecuteContext(ctx, s.query, values...); err != nil {
		cur.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, s.c.wrapError(err)
	}
	return cur, nil
}

// implement driver.StmtExecContext
func (s *Stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	cur, err := s.execute(ctx, args)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	var sumRowCount int64
	for {
		n := cur.RowCount()
		if n < 0 || sumRowCount < 0 {
			sumRowCount = -1
		} else {
			sumRowCount += n
		}
		more, err := cur.NextSet()
		if err != nil {
			return nil, s.c.wrapError(err)
		}
		if !more {
			break
		}
	}
	return &Result{rowCount: sumRowCount}, nil
}

// implement driver.StmtQueryContext
func (s *Stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	cur, err := s.execute(ctx, args)
	if err != nil {
		return nil, err
	}
	r := &Rows{c: s.c, cur: cur}
	if err := r.skipCounts(); err != nil {
		cur.Close()
		return nil, err
	}
	return r, nil
}

func valuesToNamed(args []driver.Value) []driver.NamedValue {
	named := make([]driver.NamedValue, len(args))
	for i, v := range args {
		named[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return named
}
