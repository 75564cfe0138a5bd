// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package turbodbc executes SQL through ODBC and moves results and
// batched parameters through column-wise buffers, one round trip per
// batch of rows instead of one per value.
//
// An Environment owns the process-wide ODBC environment handle and
// creates Connections. A Connection creates Cursors, which execute
// statements, fetch RowBatches and advance through multiple result sets.
// None of these types are safe for concurrent use, except that Close may
// be called from another goroutine to abort an in-flight statement.
package turbodbc

import (
	"sync"

	"go.uber.org/multierr"

	"github.com/david-engelmann/turbodbc/api"
)

// Environment owns one ODBC environment handle.
type Environment struct {
	Stats
	native api.Native
	h      *handle

	mu    sync.Mutex
	conns map[*Connection]struct{}
}

// NewEnvironment allocates an ODBC 3 environment on native.
func NewEnvironment(native api.Native) (*Environment, error) {
	e := &Environment{native: native, conns: make(map[*Connection]struct{})}
	h, err := allocHandle(native, &e.Stats, api.SQL_HANDLE_ENV, nil, ErrConnection)
	if err != nil {
		return nil, err
	}
	// will use ODBC v3
	if ret := native.SetEnvAttr(h.h, api.SQL_ATTR_ODBC_VERSION, api.SQL_OV_ODBC3); IsError(ret) {
		defer h.release()
		return nil, h.error("SQLSetEnvAttr", ErrConnection)
	}
	e.h = h
	return e, nil
}

var (
	defaultEnvOnce sync.Once
	defaultEnv     *Environment
	defaultEnvErr  error
)

// DefaultEnvironment loads the system driver manager and allocates the
// shared environment on first use.
func DefaultEnvironment() (*Environment, error) {
	defaultEnvOnce.Do(func() {
		lib, err := api.Default()
		if err != nil {
			defaultEnvErr = &Error{APIName: "load", Kind: ErrConnection, Msg: err.Error()}
			return
		}
		defaultEnv, defaultEnvErr = NewEnvironment(lib)
	})
	return defaultEnv, defaultEnvErr
}

// Connect opens a connection through the default environment.
func Connect(connStr string, opts ...Option) (*Connection, error) {
	e, err := DefaultEnvironment()
	if err != nil {
		return nil, err
	}
	return e.Connect(connStr, opts...)
}

// Native returns the call layer the environment was created with.
func (e *Environment) Native() api.Native { return e.native }

func (e *Environment) track(c *Connection) {
	e.mu.Lock()
	e.conns[c] = struct{}{}
	e.mu.Unlock()
}

func (e *Environment) untrack(c *Connection) {
	e.mu.Lock()
	delete(e.conns, c)
	e.mu.Unlock()
}

type DSN struct {
	Name        string
	Description string
}

// DataSources lists the data sources configured in the driver manager.
func (e *Environment) DataSources() ([]DSN, error) {
	if e.h.released() {
		return nil, newStateError("SQLDataSources", "environment is closed")
	}
	var dsns []DSN
	dir := api.SQL_FETCH_FIRST
	for {
		name, desc, ret := e.native.DataSources(e.h.h, dir)
		if ret == api.SQL_NO_DATA {
			return dsns, nil
		}
		if IsError(ret) {
			return nil, e.h.error("SQLDataSources", ErrConnection)
		}
		dsns = append(dsns, DSN{Name: name, Description: desc})
		dir = api.SQL_FETCH_NEXT
	}
}

// Close closes all connections still open and frees the environment.
// Calling it again has no effect.
func (e *Environment) Close() error {
	e.mu.Lock()
	conns := make([]*Connection, 0, len(e.conns))
	for c := range e.conns {
		conns = append(conns, c)
	}
	e.mu.Unlock()
	var err error
	for _, c := range conns {
		err = multierr.Append(err, c.Close())
	}
	return multierr.Append(err, e.h.release())
}
