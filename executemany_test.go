// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package turbodbc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david-engelmann/turbodbc/api"
	"github.com/david-engelmann/turbodbc/internal/odbctest"
)

const insertQuery = "INSERT INTO t (a, b) VALUES (?, ?)"

// countRows reports one affected row per parameter set as a single total.
func countRows(_ string, params [][]interface{}) ([]odbctest.Result, error) {
	return []odbctest.Result{odbctest.Count(int64(len(params)))}, nil
}

// countPerSet reports one row count result per parameter set.
func countPerSet(_ string, params [][]interface{}) ([]odbctest.Result, error) {
	rs := make([]odbctest.Result, len(params))
	for i := range rs {
		rs[i] = odbctest.Count(1)
	}
	return rs, nil
}

func TestExecuteMany(t *testing.T) {
	b, cur := fakeCursor(t)
	b.Handle(insertQuery, countRows)
	batch := NewParameterBatch(
		NewParameterColumn(KindInt64, 1, 2, nil),
		NewParameterColumn(KindVariableString, "one", nil, "three"),
	)
	require.NoError(t, cur.ExecuteMany(insertQuery, batch))
	assert.Equal(t, NoResultSet, cur.State())
	assert.Equal(t, int64(3), cur.RowCount())
	assert.Equal(t, 1, b.CallCount("SQLExecute"))

	ex := b.Executions()
	require.Len(t, ex, 1)
	assert.Equal(t, [][]interface{}{
		{int64(1), "one"},
		{int64(2), nil},
		{nil, "three"},
	}, ex[0].Rows)
	v, ok := b.StmtAttr(api.SQL_ATTR_PARAMSET_SIZE)
	require.True(t, ok)
	assert.Equal(t, uintptr(3), v)
}

func TestExecuteManyChunks(t *testing.T) {
	b, cur := fakeCursor(t, WithParameterSetsToBuffer(2))
	b.Handle(insertQuery, countRows)
	rows := make([][]interface{}, 5)
	for i := range rows {
		rows[i] = []interface{}{i, "x"}
	}
	require.NoError(t, cur.ExecuteMany(insertQuery, ParameterRows(rows...)))
	assert.Equal(t, int64(5), cur.RowCount())
	assert.Equal(t, 1, b.CallCount("SQLPrepare"))
	ex := b.Executions()
	require.Len(t, ex, 3)
	var got []interface{}
	for i, want := range []int{2, 2, 1} {
		require.Len(t, ex[i].Rows, want)
		for _, r := range ex[i].Rows {
			got = append(got, r[0])
		}
	}
	assert.Equal(t, []interface{}{int64(0), int64(1), int64(2), int64(3), int64(4)}, got)
}

func TestExecuteManyBatchedRowCounts(t *testing.T) {
	b := odbctest.New()
	b.Info[api.SQL_PARAM_ARRAY_ROW_COUNTS] = uint32(api.SQL_PARC_BATCH)
	env, err := NewEnvironment(b)
	require.NoError(t, err)
	defer env.Close()
	c, err := env.Connect("DSN=fake")
	require.NoError(t, err)
	cur, err := c.Cursor()
	require.NoError(t, err)

	b.Handle(insertQuery, countPerSet)
	require.NoError(t, cur.ExecuteMany(insertQuery, ParameterRows(
		[]interface{}{1, "a"}, []interface{}{2, "b"}, []interface{}{3, "c"},
	)))
	assert.Equal(t, int64(3), cur.RowCount())
	assert.Equal(t, 2, b.CallCount("SQLMoreResults"))
}

func TestExecuteManyUnknownRowCount(t *testing.T) {
	b, cur := fakeCursor(t, WithParameterSetsToBuffer(1))
	b.Handle(insertQuery, func(string, [][]interface{}) ([]odbctest.Result, error) {
		return []odbctest.Result{odbctest.Count(-1)}, nil
	})
	require.NoError(t, cur.ExecuteMany(insertQuery, ParameterRows(
		[]interface{}{1, "a"}, []interface{}{2, "b"},
	)))
	assert.Equal(t, int64(-1), cur.RowCount())
	assert.Equal(t, NoResultSet, cur.State())
}

func TestExecuteManyMalformed(t *testing.T) {
	tests := []struct {
		name  string
		batch *ParameterBatch
		kind  error
	}{
		{"uneven columns", NewParameterBatch(
			NewParameterColumn(KindInt64, 1, 2),
			NewParameterColumn(KindVariableString, "a"),
		), ErrMalformedParameterBatch},
		{"uneven rows", ParameterRows([]interface{}{1, "a"}, []interface{}{2}), ErrMalformedParameterBatch},
		{"type mismatch", ParameterRows([]interface{}{1}, []interface{}{"a"}), ErrTypeMismatch},
		{"unsupported", ParameterRows([]interface{}{map[string]int{}}), ErrUnsupportedType},
		{"unknown kind", NewParameterBatch(NewParameterColumn(Kind(99), nil, nil)), ErrUnsupportedType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, cur := fakeCursor(t)
			b.Handle(insertQuery, countRows)
			err := cur.ExecuteMany(insertQuery, tt.batch)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, Unexecuted, cur.State())
			assert.Zero(t, b.CallCount("SQLPrepare"))
			assert.Zero(t, b.CallCount("SQLExecute"))
			assert.Zero(t, b.CallCount("SQLBindParameter"))
		})
	}
}

func TestExecuteManyKeepsPreviousResultOnMalformedBatch(t *testing.T) {
	b, cur := fakeCursor(t)
	b.On("SELECT a FROM t", singleInt("a", 1))
	require.NoError(t, cur.Execute("SELECT a FROM t"))
	err := cur.ExecuteMany(insertQuery, ParameterRows([]interface{}{1}, []interface{}{1, 2}))
	require.ErrorIs(t, err, ErrMalformedParameterBatch)
	assert.Equal(t, HasResultSet, cur.State())
	assert.Equal(t, [][]interface{}{{int64(1)}}, fetchAll(t, cur))
}

func TestExecuteManyEmpty(t *testing.T) {
	b, cur := fakeCursor(t)
	batch := NewParameterBatch(NewParameterColumn(KindInt64), NewParameterColumn(KindVariableString))
	require.NoError(t, cur.ExecuteMany(insertQuery, batch))
	assert.Equal(t, NoResultSet, cur.State())
	assert.Equal(t, int64(0), cur.RowCount())
	assert.Zero(t, b.CallCount("SQLExecute"))
	assert.Zero(t, b.CallCount("SQLExecDirect"))
}

func TestExecuteManyFailure(t *testing.T) {
	b, cur := fakeCursor(t, WithParameterSetsToBuffer(1))
	calls := 0
	b.Handle(insertQuery, func(_ string, params [][]interface{}) ([]odbctest.Result, error) {
		calls++
		if calls == 2 {
			return nil, odbctest.Failure{State: "23000", NativeError: 2627, Message: "Violation of PRIMARY KEY constraint"}
		}
		return countRows("", params)
	})
	err := cur.ExecuteMany(insertQuery, ParameterRows(
		[]interface{}{1, "a"}, []interface{}{1, "b"}, []interface{}{3, "c"},
	))
	require.ErrorIs(t, err, ErrExecution)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "23000", e.SQLState())
	assert.Equal(t, 2627, e.Diag[0].NativeError)
	assert.Equal(t, 2, b.CallCount("SQLExecute"))
	assert.Equal(t, Unexecuted, cur.State())
}
