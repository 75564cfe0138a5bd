// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package turbodbc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david-engelmann/turbodbc/api"
	"github.com/david-engelmann/turbodbc/internal/odbctest"
)

func TestConnectCapabilities(t *testing.T) {
	b, c := fakeConnect(t)
	caps := c.Capabilities()
	assert.Equal(t, "odbctest", caps.DBMSName)
	assert.Equal(t, "1.0", caps.DBMSVer)
	assert.Equal(t, "libodbctest.so", caps.DriverName)
	assert.True(t, caps.MultipleResultSets)
	assert.Equal(t, uint32(api.SQL_PARC_NO_BATCH), caps.ParamArrayRowCounts)
	assert.True(t, caps.canRefetchBound())
	assert.Equal(t, []string{"DSN=fake"}, b.ConnStrings)
	assert.Equal(t, []bool{false}, b.Autocommit)
	assert.False(t, c.Autocommit())
}

func TestConnectUnknownInfo(t *testing.T) {
	b := odbctest.New()
	delete(b.Info, api.SQL_GETDATA_EXTENSIONS)
	delete(b.Info, api.SQL_DBMS_NAME)
	env, err := NewEnvironment(b)
	require.NoError(t, err)
	defer env.Close()
	c, err := env.Connect("DSN=fake")
	require.NoError(t, err)
	assert.Empty(t, c.Capabilities().DBMSName)
	assert.False(t, c.Capabilities().canRefetchBound())
}

func TestConnectCredentials(t *testing.T) {
	tests := []struct {
		connStr, user, password string
		want                    string
	}{
		{"DSN=x", "", "", "DSN=x"},
		{"DSN=x", "sa", "pw", "DSN=x;UID=sa;PWD=pw;"},
		{"DSN=x;", "sa", "p;w", "DSN=x;UID=sa;PWD={p;w};"},
		{"DSN=x", "sa", "a}b", "DSN=x;UID=sa;PWD={a}}b};"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, withCredentials(tt.connStr, tt.user, tt.password))
	}
}

func TestConnectFailure(t *testing.T) {
	b := odbctest.New()
	b.FailOn("SQLDriverConnect", odbctest.Failure{State: "08001", Message: "Unable to connect"})
	env, err := NewEnvironment(b)
	require.NoError(t, err)
	defer env.Close()
	_, err = env.Connect("DSN=down")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.True(t, IsConnectionLost(err))
	assert.Zero(t, b.OpenHandles(api.SQL_HANDLE_DBC))
	assert.Zero(t, env.Snapshot().Connections)
}

func TestConnectionTransactions(t *testing.T) {
	b, c := fakeConnect(t)
	require.NoError(t, c.Commit())
	require.NoError(t, c.Rollback())
	assert.Equal(t, []api.SQLSMALLINT{api.SQL_COMMIT, api.SQL_ROLLBACK}, b.Transactions)

	require.NoError(t, c.SetAutocommit(true))
	assert.True(t, c.Autocommit())
	assert.Equal(t, []bool{false, true}, b.Autocommit)
}

func TestConnectionCloseRollsBack(t *testing.T) {
	b, c := fakeConnect(t)
	cur, err := c.Cursor()
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.Equal(t, []api.SQLSMALLINT{api.SQL_ROLLBACK}, b.Transactions)
	assert.Equal(t, Closed, cur.State())
	assert.Zero(t, openStatements(b))
	assert.True(t, c.Closed())

	require.NoError(t, c.Close())
	assert.Equal(t, 1, b.CallCount("SQLDisconnect"))

	_, err = c.Cursor()
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorIs(t, c.Commit(), ErrInvalidState)
}

func TestConnectionCloseAutocommit(t *testing.T) {
	b, c := fakeConnect(t, WithAutocommit(true))
	require.NoError(t, c.Close())
	assert.Empty(t, b.Transactions)
}

func TestCursorOnClosedConnection(t *testing.T) {
	b, c := fakeConnect(t)
	b.On("SELECT 1", singleInt("a", 1))
	cur, err := c.Cursor()
	require.NoError(t, err)
	require.NoError(t, cur.Execute("SELECT 1"))
	require.NoError(t, c.Close())
	err = cur.Execute("SELECT 1")
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = cur.Fetch(0)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestQueryTimeout(t *testing.T) {
	b, c := fakeConnect(t, WithQueryTimeout(1500*time.Millisecond))
	_, err := c.Cursor()
	require.NoError(t, err)
	v, ok := b.StmtAttr(api.SQL_ATTR_QUERY_TIMEOUT)
	require.True(t, ok)
	assert.Equal(t, uintptr(2), v)
}

func TestQueryTimeoutUnsupported(t *testing.T) {
	b, c := fakeConnect(t, WithQueryTimeout(time.Second))
	b.FailOn("SQLSetStmtAttr", odbctest.Failure{State: "HYC00", Message: "Optional feature not implemented"})
	cur, err := c.Cursor()
	require.NoError(t, err)
	assert.Equal(t, Unexecuted, cur.State())
}
