// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package odbctest

import (
	"fmt"

	"github.com/david-engelmann/turbodbc/api"
)

// Column is the metadata SQLDescribeCol reports for one column.
type Column struct {
	Name     string
	Type     api.SQLSMALLINT
	Size     uint64
	Digits   int16
	Nullable bool
}

func BigInt(name string) Column {
	return Column{Name: name, Type: api.SQL_BIGINT, Size: 19, Nullable: true}
}

func Integer(name string) Column {
	return Column{Name: name, Type: api.SQL_INTEGER, Size: 10, Nullable: true}
}

func Double(name string) Column {
	return Column{Name: name, Type: api.SQL_DOUBLE, Size: 15, Nullable: true}
}

func Bit(name string) Column {
	return Column{Name: name, Type: api.SQL_BIT, Size: 1, Nullable: true}
}

func Varchar(name string, size uint64) Column {
	return Column{Name: name, Type: api.SQL_VARCHAR, Size: size, Nullable: true}
}

func WVarchar(name string, size uint64) Column {
	return Column{Name: name, Type: api.SQL_WVARCHAR, Size: size, Nullable: true}
}

func Char(name string, size uint64) Column {
	return Column{Name: name, Type: api.SQL_CHAR, Size: size, Nullable: true}
}

func VarBinary(name string, size uint64) Column {
	return Column{Name: name, Type: api.SQL_VARBINARY, Size: size, Nullable: true}
}

func Decimal(name string, precision uint64, scale int16) Column {
	return Column{Name: name, Type: api.SQL_DECIMAL, Size: precision, Digits: scale, Nullable: true}
}

func Date(name string) Column {
	return Column{Name: name, Type: api.SQL_TYPE_DATE, Size: 10, Nullable: true}
}

func Time(name string) Column {
	return Column{Name: name, Type: api.SQL_TYPE_TIME, Size: 8, Nullable: true}
}

func Timestamp(name string) Column {
	return Column{Name: name, Type: api.SQL_TYPE_TIMESTAMP, Size: 26, Digits: 6, Nullable: true}
}

func GUID(name string) Column {
	return Column{Name: name, Type: api.SQL_GUID, Size: 36, Nullable: true}
}

// Result is one result of an execution: a result set when Columns is
// non-nil, otherwise only a row count.
type Result struct {
	Columns  []Column
	Rows     [][]interface{}
	RowCount int64
}

// Set returns a result set. Row values are Go values: int64, float64,
// bool, string, []byte, time.Time, uuid.UUID, or nil for NULL.
// Decimals are given as strings.
func Set(cols []Column, rows ...[]interface{}) Result {
	if cols == nil {
		cols = []Column{}
	}
	return Result{Columns: cols, Rows: rows, RowCount: -1}
}

// Count returns a result that only carries a row count.
func Count(n int64) Result {
	return Result{RowCount: n}
}

// Handler produces the results of executing query with params, one
// slice of values per parameter set.
type Handler func(query string, params [][]interface{}) ([]Result, error)

// Results returns a Handler that always yields rs.
func Results(rs ...Result) Handler {
	return func(string, [][]interface{}) ([]Result, error) {
		return rs, nil
	}
}

// Failure is a diagnostic record a call fails with.
type Failure struct {
	State       string
	NativeError int32
	Message     string
}

func (f Failure) Error() string {
	return fmt.Sprintf("[%s] %s", f.State, f.Message)
}

func (f Failure) diag() api.DiagRec {
	return api.DiagRec{State: f.State, NativeError: api.SQLINTEGER(f.NativeError), Message: f.Message}
}
