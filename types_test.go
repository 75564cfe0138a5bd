// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package turbodbc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david-engelmann/turbodbc/api"
)

func TestResolveColumnType(t *testing.T) {
	tests := []struct {
		name    string
		sqlType api.SQLSMALLINT
		size    uint64
		digits  int
		opts    func(*Options)
		want    ColumnType
	}{
		{name: "bit", sqlType: api.SQL_BIT, size: 1, want: ColumnType{Kind: KindBoolean}},
		{name: "integer", sqlType: api.SQL_INTEGER, size: 10, want: ColumnType{Kind: KindInt64}},
		{name: "bigint", sqlType: api.SQL_BIGINT, size: 19, want: ColumnType{Kind: KindInt64}},
		{name: "real", sqlType: api.SQL_REAL, size: 7, want: ColumnType{Kind: KindDouble}},
		{name: "numeric(18,0)", sqlType: api.SQL_NUMERIC, size: 18,
			want: ColumnType{Kind: KindInt64, Precision: 18}},
		{name: "numeric(19,0)", sqlType: api.SQL_NUMERIC, size: 19,
			want: ColumnType{Kind: KindDecimal, Precision: 19}},
		{name: "decimal(10,2)", sqlType: api.SQL_DECIMAL, size: 10, digits: 2,
			want: ColumnType{Kind: KindDecimal, Precision: 10, Scale: 2}},
		{name: "approximate decimal", sqlType: api.SQL_DECIMAL, size: 10, digits: 2,
			opts: func(o *Options) { o.Decimals = DecimalApproximate },
			want: ColumnType{Kind: KindDecimal, Precision: 10, Scale: 2, Approximate: true}},
		{name: "char(5)", sqlType: api.SQL_CHAR, size: 5, want: ColumnType{Kind: KindFixedString, Width: 5}},
		{name: "varchar(20)", sqlType: api.SQL_VARCHAR, size: 20,
			want: ColumnType{Kind: KindVariableString, Width: 20}},
		{name: "varchar(max)", sqlType: api.SQL_VARCHAR, size: 0,
			want: ColumnType{Kind: KindVariableString, Width: DefaultVarcharMaxCharacterLimit}},
		{name: "text", sqlType: api.SQL_LONGVARCHAR, size: 2147483647,
			want: ColumnType{Kind: KindVariableString, Width: DefaultVarcharMaxCharacterLimit}},
		{name: "limited varchar", sqlType: api.SQL_VARCHAR, size: 500,
			opts: func(o *Options) { o.VarcharMaxCharacterLimit = 100; o.LimitVarcharResultsToMax = true },
			want: ColumnType{Kind: KindVariableString, Width: 100}},
		{name: "unlimited varchar", sqlType: api.SQL_VARCHAR, size: 500,
			opts: func(o *Options) { o.VarcharMaxCharacterLimit = 100 },
			want: ColumnType{Kind: KindVariableString, Width: 500}},
		{name: "nvarchar(10)", sqlType: api.SQL_WVARCHAR, size: 10,
			want: ColumnType{Kind: KindVariableString, Width: 10, Unicode: true}},
		{name: "nchar as char", sqlType: api.SQL_WCHAR, size: 10,
			opts: func(o *Options) { o.FetchWcharAsChar = true },
			want: ColumnType{Kind: KindFixedString, Width: 10}},
		{name: "prefer unicode", sqlType: api.SQL_VARCHAR, size: 10,
			opts: func(o *Options) { o.PreferUnicode = true },
			want: ColumnType{Kind: KindVariableString, Width: 10, Unicode: true}},
		{name: "extra capacity", sqlType: api.SQL_VARCHAR, size: 10,
			opts: func(o *Options) { o.ForceExtraCapacityForUnicode = true },
			want: ColumnType{Kind: KindVariableString, Width: 40}},
		{name: "xml", sqlType: api.SQL_SS_XML, size: 0,
			want: ColumnType{Kind: KindVariableString, Width: DefaultVarcharMaxCharacterLimit, Unicode: true}},
		{name: "varbinary(16)", sqlType: api.SQL_VARBINARY, size: 16, want: ColumnType{Kind: KindBytes, Width: 16}},
		{name: "date", sqlType: api.SQL_TYPE_DATE, size: 10, want: ColumnType{Kind: KindDate}},
		{name: "time2", sqlType: api.SQL_SS_TIME2, size: 16, digits: 7, want: ColumnType{Kind: KindTime}},
		{name: "timestamp", sqlType: api.SQL_TYPE_TIMESTAMP, size: 26, digits: 6,
			want: ColumnType{Kind: KindTimestamp, Scale: 6}},
		{name: "guid", sqlType: api.SQL_GUID, size: 36, want: ColumnType{Kind: KindGUID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			if tt.opts != nil {
				tt.opts(&o)
			}
			got, err := resolveColumnType(tt.sqlType, tt.size, tt.digits, &o)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveColumnTypeUnsupported(t *testing.T) {
	o := DefaultOptions()
	for _, sqlType := range []api.SQLSMALLINT{api.SQL_UNKNOWN_TYPE, -150 /* sql_variant */, -370 /* geometry */} {
		_, err := resolveColumnType(sqlType, 0, 0, &o)
		assert.Error(t, err, "type %d", sqlType)
	}
}

func TestColumnTypeLayout(t *testing.T) {
	tests := []struct {
		typ   ColumnType
		ctype api.SQLSMALLINT
		size  int
	}{
		{ColumnType{Kind: KindInt64}, api.SQL_C_SBIGINT, 8},
		{ColumnType{Kind: KindDouble}, api.SQL_C_DOUBLE, 8},
		{ColumnType{Kind: KindBoolean}, api.SQL_C_BIT, 1},
		{ColumnType{Kind: KindVariableString, Width: 10}, api.SQL_C_CHAR, 11},
		{ColumnType{Kind: KindFixedString, Width: 10, Unicode: true}, api.SQL_C_WCHAR, 22},
		{ColumnType{Kind: KindBytes, Width: 16}, api.SQL_C_BINARY, 16},
		{ColumnType{Kind: KindDate}, api.SQL_C_TYPE_DATE, 6},
		{ColumnType{Kind: KindTime}, api.SQL_C_TYPE_TIME, 6},
		{ColumnType{Kind: KindTimestamp}, api.SQL_C_TYPE_TIMESTAMP, 16},
		{ColumnType{Kind: KindDecimal, Precision: 10, Scale: 2}, api.SQL_C_CHAR, 14},
		{ColumnType{Kind: KindDecimal, Precision: 10, Scale: 2, Approximate: true}, api.SQL_C_DOUBLE, 8},
		{ColumnType{Kind: KindDecimal}, api.SQL_C_CHAR, maxDecimalPrecision + 4},
		{ColumnType{Kind: KindGUID}, api.SQL_C_GUID, 16},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			assert.Equal(t, tt.ctype, tt.typ.cType())
			assert.Equal(t, tt.size, tt.typ.elementSize())
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "Int64", KindInt64.String())
	assert.Equal(t, "GUID", KindGUID.String())
	assert.Equal(t, "Kind(0)", Kind(0).String())
	assert.Equal(t, "VariableString(20)", ColumnType{Kind: KindVariableString, Width: 20}.String())
}
