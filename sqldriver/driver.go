// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sqldriver registers turbodbc with database/sql under the
// name "turbodbc".
//
// The data source name is a complete ODBC connection string. Statements
// are executed through turbodbc cursors, so result rows arrive in
// column-wise batches while database/sql reads them one at a time.
package sqldriver

import (
	"context"
	"database/sql"
	"database/sql/driver"

	"github.com/david-engelmann/turbodbc"
)

// DriverName is the name the driver is registered under.
const DriverName = "turbodbc"

var drv Driver

// Driver opens connections through the default turbodbc environment,
// which loads the system driver manager on first use.
type Driver struct{}

func init() {
	sql.Register(DriverName, &drv)
}

// implement driver.Driver
func (d *Driver) Open(dsn string) (driver.Conn, error) {
	c, err := d.OpenConnector(dsn)
	if err != nil {
		return nil, err
	}
	return c.Connect(context.Background())
}

// implement driver.DriverContext
func (d *Driver) OpenConnector(dsn string) (driver.Connector, error) {
	return &connector{d: d, connStr: dsn}, nil
}

// NewConnector returns a connector opening connections on env with
// opts. Autocommit is turned on unless a transaction is running.
func NewConnector(env *turbodbc.Environment, connStr string, opts ...turbodbc.Option) driver.Connector {
	return &connector{d: &drv, env: env, connStr: connStr, opts: opts}
}
