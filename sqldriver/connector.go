// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqldriver

import (
	"context"
	"database/sql/driver"

	"github.com/david-engelmann/turbodbc"
)

type connector struct {
	d       *Driver
	env     *turbodbc.Environment
	connStr string
	opts    []turbodbc.Option
}

// implement driver.Connector
func (c *connector) Connect(ctx context.Context) (driver.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	env := c.env
	if env == nil {
		var err error
		if env, err = turbodbc.DefaultEnvironment(); err != nil {
			return nil, err
		}
	}
	opts := append(append([]turbodbc.Option(nil), c.opts...), turbodbc.WithAutocommit(true))
	tc, err := env.Connect(c.connStr, opts...)
	if err != nil {
		return nil, err
	}
	return &Conn{c: tc}, nil
}

// implement driver.Connector
func (c *connector) Driver() driver.Driver {
	return c.d
}
