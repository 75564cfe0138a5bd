// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package turbodbc

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/david-engelmann/turbodbc/api"
	"github.com/david-engelmann/turbodbc/internal/odbctest"
)

// fakeConnect opens a connection on a fresh in-memory backend. The
// environment is closed when the test ends.
func fakeConnect(t *testing.T, opts ...Option) (*odbctest.Backend, *Connection) {
	t.Helper()
	b := odbctest.New()
	env, err := NewEnvironment(b)
	require.NoError(t, err)
	t.Cleanup(func() { env.Close() })
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	c, err := env.Connect("DSN=fake", opts...)
	require.NoError(t, err)
	return b, c
}

func fakeCursor(t *testing.T, opts ...Option) (*odbctest.Backend, *Cursor) {
	t.Helper()
	b, c := fakeConnect(t, opts...)
	cur, err := c.Cursor()
	require.NoError(t, err)
	return b, cur
}

func fetchAll(t *testing.T, cur *Cursor) [][]interface{} {
	t.Helper()
	rows, err := cur.FetchAll()
	require.NoError(t, err)
	return rows
}

// singleInt is a one column BIGINT result set.
func singleInt(name string, values ...int64) odbctest.Result {
	rows := make([][]interface{}, len(values))
	for i, v := range values {
		rows[i] = []interface{}{v}
	}
	return odbctest.Set([]odbctest.Column{odbctest.BigInt(name)}, rows...)
}

func openStatements(b *odbctest.Backend) int {
	return b.OpenHandles(api.SQL_HANDLE_STMT)
}
