// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package turbodbc

import (
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/david-engelmann/turbodbc/api"
)

// Capabilities are what the driver reports about itself at connect time.
type Capabilities struct {
	DBMSName   string
	DBMSVer    string
	DriverName string
	// MultipleResultSets is true when a statement may produce more
	// than one result set.
	MultipleResultSets bool
	// ParamArrayRowCounts is SQL_PARC_BATCH when the driver reports one
	// row count per parameter set, SQL_PARC_NO_BATCH for one total,
	// or 0 when unknown.
	ParamArrayRowCounts uint32
	// GetDataExtensions is the SQL_GETDATA_EXTENSIONS bitmask.
	GetDataExtensions uint32
}

// canRefetchBound reports whether SQLGetData works on bound columns
// of a block cursor, which growing truncated values relies on.
func (c Capabilities) canRefetchBound() bool {
	const need = api.SQL_GD_BLOCK | api.SQL_GD_BOUND
	return c.GetDataExtensions&need == need
}

// Connection owns one native connection handle and creates Cursors.
type Connection struct {
	env    *Environment
	native api.Native
	h      *handle
	opts   Options
	log    *zap.Logger
	caps   Capabilities

	autocommit bool

	mu      sync.Mutex
	closed  bool
	cursors map[*Cursor]struct{}
}

// Connect opens a connection with a complete ODBC connection string.
// Credentials from WithCredentials are appended as UID and PWD.
func (e *Environment) Connect(connStr string, opts ...Option) (*Connection, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	if e.h.released() {
		return nil, newStateError("connect", "environment is closed")
	}
	h, err := allocHandle(e.native, &e.Stats, api.SQL_HANDLE_DBC, e.h, ErrConnection)
	if err != nil {
		return nil, err
	}
	if ret := e.native.DriverConnect(h.h, withCredentials(connStr, o.User, o.Password)); IsError(ret) {
		defer h.release()
		return nil, h.error("SQLDriverConnect", ErrConnection)
	}
	c := &Connection{
		env:     e,
		native:  e.native,
		h:       h,
		opts:    o,
		log:     o.Logger,
		cursors: make(map[*Cursor]struct{}),
	}
	if err := c.SetAutocommit(o.Autocommit); err != nil {
		c.native.Disconnect(h.h)
		h.release()
		return nil, err
	}
	c.caps = c.queryCapabilities()
	e.track(c)
	c.log.Debug("connected",
		zap.String("dbms", c.caps.DBMSName),
		zap.String("driver", c.caps.DriverName),
		zap.Bool("autocommit", c.autocommit))
	return c, nil
}

func withCredentials(connStr, user, password string) string {
	if user == "" && password == "" {
		return connStr
	}
	s := connStr
	if s != "" && !strings.HasSuffix(s, ";") {
		s += ";"
	}
	if user != "" {
		s += "UID=" + quoteAttr(user) + ";"
	}
	if password != "" {
		s += "PWD=" + quoteAttr(password) + ";"
	}
	return s
}

// quoteAttr braces values containing characters that end an attribute.
func quoteAttr(v string) string {
	if !strings.ContainsAny(v, ";{}=") {
		return v
	}
	return "{" + strings.ReplaceAll(v, "}", "}}") + "}"
}

// queryCapabilities fills what the driver answers; unknown items stay zero.
func (c *Connection) queryCapabilities() Capabilities {
	var caps Capabilities
	if s, ret := c.native.GetInfoString(c.h.h, api.SQL_DBMS_NAME); !IsError(ret) {
		caps.DBMSName = s
	}
	if s, ret := c.native.GetInfoString(c.h.h, api.SQL_DBMS_VER); !IsError(ret) {
		caps.DBMSVer = s
	}
	if s, ret := c.native.GetInfoString(c.h.h, api.SQL_DRIVER_NAME); !IsError(ret) {
		caps.DriverName = s
	}
	if s, ret := c.native.GetInfoString(c.h.h, api.SQL_MULT_RESULT_SETS); !IsError(ret) {
		caps.MultipleResultSets = s == "Y"
	}
	if v, ret := c.native.GetInfoUint(c.h.h, api.SQL_PARAM_ARRAY_ROW_COUNTS); !IsError(ret) {
		caps.ParamArrayRowCounts = v
	}
	if v, ret := c.native.GetInfoUint(c.h.h, api.SQL_GETDATA_EXTENSIONS); !IsError(ret) {
		caps.GetDataExtensions = v
	}
	return caps
}

func (c *Connection) Capabilities() Capabilities { return c.caps }

// Options returns the options the connection was opened with.
func (c *Connection) Options() Options { return c.opts }

func (c *Connection) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Cursor creates a cursor with its own statement handle.
func (c *Connection) Cursor() (*Cursor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, newStateError("cursor", "connection is closed")
	}
	h, err := allocHandle(c.native, &c.env.Stats, api.SQL_HANDLE_STMT, c.h, ErrExecution)
	if err != nil {
		return nil, err
	}
	if c.opts.QueryTimeout > 0 {
		secs := uintptr((c.opts.QueryTimeout + 999999999) / 1000000000)
		if ret := c.native.SetStmtAttr(h.h, api.SQL_ATTR_QUERY_TIMEOUT, secs); IsError(ret) {
			// drivers without timeouts report HYC00; the statement is still usable
			c.log.Warn("query timeout not supported", zap.Error(h.error("SQLSetStmtAttr", ErrExecution)))
		}
	}
	cur := newCursor(c, h)
	c.cursors[cur] = struct{}{}
	return cur, nil
}

func (c *Connection) forget(cur *Cursor) {
	c.mu.Lock()
	delete(c.cursors, cur)
	c.mu.Unlock()
}

func (c *Connection) checkOpen(op string) error {
	if c.Closed() {
		return newStateError(op, "connection is closed")
	}
	return nil
}

func (c *Connection) endTran(op string, completion api.SQLSMALLINT) error {
	if err := c.checkOpen(op); err != nil {
		return err
	}
	if ret := c.native.EndTran(api.SQL_HANDLE_DBC, c.h.h, completion); IsError(ret) {
		return c.h.error("SQLEndTran", ErrExecution)
	}
	return nil
}

func (c *Connection) Commit() error {
	return c.endTran("commit", api.SQL_COMMIT)
}

func (c *Connection) Rollback() error {
	return c.endTran("rollback", api.SQL_ROLLBACK)
}

// SetAutocommit switches autocommit mode on the native connection.
func (c *Connection) SetAutocommit(on bool) error {
	if err := c.checkOpen("autocommit"); err != nil {
		return err
	}
	v := uintptr(api.SQL_AUTOCOMMIT_OFF)
	if on {
		v = api.SQL_AUTOCOMMIT_ON
	}
	if ret := c.native.SetConnectAttr(c.h.h, api.SQL_ATTR_AUTOCOMMIT, v); IsError(ret) {
		return c.h.error("SQLSetConnectAttr", ErrConnection)
	}
	c.autocommit = on
	return nil
}

func (c *Connection) Autocommit() bool { return c.autocommit }

// Close closes the connection's cursors, rolls back any open
// transaction and disconnects. Calling it again has no effect.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	cursors := make([]*Cursor, 0, len(c.cursors))
	for cur := range c.cursors {
		cursors = append(cursors, cur)
	}
	c.mu.Unlock()

	var err error
	for _, cur := range cursors {
		err = multierr.Append(err, cur.Close())
	}
	if !c.autocommit {
		if ret := c.native.EndTran(api.SQL_HANDLE_DBC, c.h.h, api.SQL_ROLLBACK); IsError(ret) {
			c.log.Warn("rollback on close failed", zap.Error(c.h.error("SQLEndTran", ErrExecution)))
		}
	}

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	if ret := c.native.Disconnect(c.h.h); IsError(ret) {
		err = multierr.Append(err, c.h.error("SQLDisconnect", ErrConnection))
	}
	err = multierr.Append(err, c.h.release())
	c.env.untrack(c)
	c.log.Debug("disconnected")
	return err
}
