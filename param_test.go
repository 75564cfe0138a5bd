// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package turbodbc

import (
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david-engelmann/turbodbc/api"
)

func TestParameterRows(t *testing.T) {
	b := ParameterRows([]interface{}{1, "a"}, []interface{}{2, nil}, []interface{}{nil, "c"})
	require.NoError(t, b.validate())
	assert.Equal(t, 2, b.NumParameters())
	assert.Equal(t, 3, b.Len())

	bad := ParameterRows([]interface{}{1, "a"}, []interface{}{2})
	assert.ErrorIs(t, bad.validate(), ErrMalformedParameterBatch)

	uneven := NewParameterBatch(
		NewParameterColumn(KindInt64, 1, 2, 3),
		NewParameterColumn(KindVariableString, "a", "b"),
	)
	assert.ErrorIs(t, uneven.validate(), ErrMalformedParameterBatch)

	assert.Zero(t, ParameterRows().Len())
}

func TestConvertParameters(t *testing.T) {
	ts := time.Date(2020, time.January, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name    string
		column  ParameterColumn
		kind    Kind
		sqlType api.SQLSMALLINT
		size    api.SQLULEN
		digits  api.SQLSMALLINT
	}{
		{"ints", NewParameterColumn(0, 1, int32(2), uint8(3)), KindInt64, api.SQL_BIGINT, 0, 0},
		{"floats", NewParameterColumn(0, 1.5, float32(2)), KindDouble, api.SQL_DOUBLE, 0, 0},
		{"ints as doubles", NewParameterColumn(KindDouble, 1, 2.5), KindDouble, api.SQL_DOUBLE, 0, 0},
		{"bools", NewParameterColumn(0, true, nil, false), KindBoolean, api.SQL_BIT, 0, 0},
		{"strings", NewParameterColumn(0, "a", "hello", nil), KindVariableString, api.SQL_VARCHAR, 5, 0},
		{"bytes", NewParameterColumn(0, []byte{1, 2, 3}), KindBytes, api.SQL_VARBINARY, 3, 0},
		{"timestamps", NewParameterColumn(0, ts), KindTimestamp, api.SQL_TYPE_TIMESTAMP, 26, 6},
		{"dates", NewParameterColumn(KindDate, ts), KindDate, api.SQL_TYPE_DATE, 10, 0},
		{"decimals", NewParameterColumn(0, big.NewRat(12345, 100), big.NewRat(-1, 1000)), KindDecimal, api.SQL_NUMERIC, 6, 3},
		{"decimal strings", NewParameterColumn(KindDecimal, "1.5", 7), KindDecimal, api.SQL_NUMERIC, 2, 1},
		{"guids", NewParameterColumn(0, uuid.New()), KindGUID, api.SQL_GUID, 16, 0},
		{"all null", NewParameterColumn(0, nil, nil), KindVariableString, api.SQL_VARCHAR, 1, 0},
	}
	o := DefaultOptions()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := convertParameters(NewParameterBatch(tt.column), &o)
			require.NoError(t, err)
			p := params[0]
			assert.Equal(t, tt.kind, p.typ.Kind)
			assert.Equal(t, tt.sqlType, p.sqlType)
			assert.Equal(t, tt.size, p.size)
			assert.Equal(t, tt.digits, p.digits)
		})
	}
}

func TestConvertParametersUnicode(t *testing.T) {
	o := DefaultOptions()
	o.PreferUnicode = true
	params, err := convertParameters(ParameterRows([]interface{}{"😀x"}), &o)
	require.NoError(t, err)
	assert.Equal(t, api.SQL_WVARCHAR, params[0].sqlType)
	// the emoji needs a surrogate pair
	assert.Equal(t, api.SQLULEN(3), params[0].size)
	assert.True(t, params[0].typ.Unicode)
}

func TestConvertParametersErrors(t *testing.T) {
	o := DefaultOptions()
	tests := []struct {
		name  string
		batch *ParameterBatch
		kind  error
	}{
		{"unsupported", ParameterRows([]interface{}{struct{}{}}), ErrUnsupportedType},
		{"channel", ParameterRows([]interface{}{make(chan int)}), ErrUnsupportedType},
		{"mixed", ParameterRows([]interface{}{1}, []interface{}{"two"}), ErrTypeMismatch},
		{"declared", NewParameterBatch(NewParameterColumn(KindInt64, 1, 2.5)), ErrTypeMismatch},
		{"bad decimal", NewParameterBatch(NewParameterColumn(KindDecimal, "x1")), ErrTypeMismatch},
		{"overflow", ParameterRows([]interface{}{uint64(1 << 63)}), ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := convertParameters(tt.batch, &o)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestFillParameters(t *testing.T) {
	o := DefaultOptions()
	params, err := convertParameters(ParameterRows(
		[]interface{}{1, "x"},
		[]interface{}{2, nil},
		[]interface{}{3, "zz"},
	), &o)
	require.NoError(t, err)
	pb := fillParameters(params, 1, 3)
	defer pb.release()
	require.Len(t, pb.buffers, 2)
	ints, strs := pb.buffers[0], pb.buffers[1]
	assert.Equal(t, []int64{2, 3}, ints.Int64Values())
	assert.True(t, strs.IsNull(0))
	assert.Equal(t, "zz", strs.String(1))
}

func TestDecimalScale(t *testing.T) {
	assert.Equal(t, 0, decimalScale(big.NewRat(5, 1)))
	assert.Equal(t, 2, decimalScale(big.NewRat(1, 4)))
	assert.Equal(t, maxParameterScale, decimalScale(big.NewRat(1, 3)))
}
