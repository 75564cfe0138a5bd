// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqldriver

type Tx struct {
	c *Conn
}

// implement driver.Tx
func (tx *Tx) Commit() error {
	return tx.end(tx.c.c.Commit)
}

// implement driver.Tx
func (tx *Tx) Rollback() error {
	return tx.end(tx.c.c.Rollback)
}

// end completes the transaction and turns autocommit back on.
func (tx *Tx) end(complete func() error) error {
	if tx.c.tx != tx {
		return ErrTXCompleted
	}
	tx.c.tx = nil
	if err := complete(); err != nil {
		tx.c.bad.Store(true)
		return tx.c.wrapError(err)
	}
	if err := tx.c.c.SetAutocommit(true); err != nil {
		tx.c.bad.Store(true)
		return tx.c.wrapError(err)
	}
	return nil
}
