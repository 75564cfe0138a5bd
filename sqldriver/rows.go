// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqldriver

import (
	"database/sql"
	"database/sql/driver"
	"io"
	"math"
	"math/big"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/david-engelmann/turbodbc"
	"github.com/david-engelmann/turbodbc/api"
)

// Rows reads a cursor's current result set batch by batch.
type Rows struct {
	c     *Conn
	cur   *turbodbc.Cursor
	batch *turbodbc.RowBatch
	pos   int
}

// skipCounts advances past results that only carry a row count.
func (r *Rows) skipCounts() error {
	for r.cur.State() == turbodbc.NoResultSet {
		if _, err := r.cur.NextSet(); err != nil {
			return r.c.wrapError(err)
		}
	}
	return nil
}

func (r *Rows) columns() []turbodbc.ColumnDescription {
	d := r.cur.Description()
	if d == nil {
		return nil
	}
	return d.Columns()
}

// implement driver.Rows
func (r *Rows) Columns() []string {
	d := r.cur.Description()
	if d == nil {
		return []string{}
	}
	return d.Names()
}

// implement driver.Rows
func (r *Rows) Next(dest []driver.Value) error {
	if r.cur.State() != turbodbc.HasResultSet {
		return io.EOF
	}
	if r.batch == nil || r.pos >= r.batch.Len() {
		b, err := r.cur.Fetch(0)
		if err != nil {
			return r.c.wrapError(err)
		}
		r.batch, r.pos = b, 0
		if b.Len() == 0 {
			return io.EOF
		}
	}
	for i := range dest {
		dest[i] = toDriverValue(r.batch.Column(i), r.pos)
	}
	r.pos++
	return nil
}

// toDriverValue converts row i of b to a type database/sql accepts.
func toDriverValue(b *turbodbc.ColumnBuffer, i int) driver.Value {
	v := b.Value(i)
	switch x := v.(type) {
	case *big.Rat:
		return x.FloatString(b.Type().Scale)
	case uuid.UUID:
		return x.String()
	}
	return v
}

// implement driver.Rows
func (r *Rows) Close() error {
	return r.cur.Close()
}

// implement driver.RowsNextResultSet
func (r *Rows) HasNextResultSet() bool {
	if !r.c.c.Capabilities().MultipleResultSets {
		return false
	}
	s := r.cur.State()
	return s == turbodbc.HasResultSet || s == turbodbc.NoResultSet
}

// implement driver.RowsNextResultSet
func (r *Rows) NextResultSet() error {
	r.batch, r.pos = nil, 0
	more, err := r.cur.NextSet()
	if err != nil {
		return r.c.wrapError(err)
	}
	if !more {
		return io.EOF
	}
	if err := r.skipCounts(); err != nil {
		return err
	}
	if r.cur.State() != turbodbc.HasResultSet {
		return io.EOF
	}
	return nil
}

// ColumnTypeDatabaseTypeName returns the native SQL type name.
func (r *Rows) ColumnTypeDatabaseTypeName(index int) string {
	return sqlTypeName(r.columns()[index].SQLType)
}

func sqlTypeName(t api.SQLSMALLINT) string {
	switch t {
	case api.SQL_CHAR:
		return "CHAR"
	case api.SQL_VARCHAR:
		return "VARCHAR"
	case api.SQL_LONGVARCHAR:
		return "LONGVARCHAR"
	case api.SQL_WCHAR:
		return "WCHAR"
	case api.SQL_WVARCHAR:
		return "WVARCHAR"
	case api.SQL_WLONGVARCHAR:
		return "WLONGVARCHAR"
	case api.SQL_NUMERIC:
		return "NUMERIC"
	case api.SQL_DECIMAL:
		return "DECIMAL"
	case api.SQL_TINYINT:
		return "TINYINT"
	case api.SQL_SMALLINT:
		return "SMALLINT"
	case api.SQL_INTEGER:
		return "INTEGER"
	case api.SQL_BIGINT:
		return "BIGINT"
	case api.SQL_REAL:
		return "REAL"
	case api.SQL_FLOAT:
		return "FLOAT"
	case api.SQL_DOUBLE:
		return "DOUBLE"
	case api.SQL_BIT:
		return "BIT"
	case api.SQL_BOOLEAN:
		return "BOOLEAN"
	case api.SQL_BINARY:
		return "BINARY"
	case api.SQL_VARBINARY:
		return "VARBINARY"
	case api.SQL_LONGVARBINARY:
		return "LONGVARBINARY"
	case api.SQL_TYPE_DATE, api.SQL_DATE:
		return "DATE"
	case api.SQL_TYPE_TIME, api.SQL_TIME, api.SQL_SS_TIME2:
		return "TIME"
	case api.SQL_TYPE_TIMESTAMP, api.SQL_TIMESTAMP:
		return "TIMESTAMP"
	case api.SQL_GUID:
		return "GUID"
	case api.SQL_SS_XML:
		return "XML"
	}
	return ""
}

var (
	scanTypeInt64   = reflect.TypeOf(int64(0))
	scanTypeFloat64 = reflect.TypeOf(float64(0))
	scanTypeBool    = reflect.TypeOf(false)
	scanTypeString  = reflect.TypeOf("")
	scanTypeBytes   = reflect.TypeOf([]byte(nil))
	scanTypeTime    = reflect.TypeOf(time.Time{})
	scanTypeNull    = map[reflect.Type]reflect.Type{
		scanTypeInt64:   reflect.TypeOf(sql.NullInt64{}),
		scanTypeFloat64: reflect.TypeOf(sql.NullFloat64{}),
		scanTypeBool:    reflect.TypeOf(sql.NullBool{}),
		scanTypeString:  reflect.TypeOf(sql.NullString{}),
		scanTypeTime:    reflect.TypeOf(sql.NullTime{}),
	}
)

// implement driver.RowsColumnTypeScanType
func (r *Rows) ColumnTypeScanType(index int) reflect.Type {
	c := r.columns()[index]
	var t reflect.Type
	switch c.Type.Kind {
	case turbodbc.KindInt64:
		t = scanTypeInt64
	case turbodbc.KindDouble:
		t = scanTypeFloat64
	case turbodbc.KindBoolean:
		t = scanTypeBool
	case turbodbc.KindBytes:
		return scanTypeBytes
	case turbodbc.KindDate, turbodbc.KindTime, turbodbc.KindTimestamp:
		t = scanTypeTime
	case turbodbc.KindDecimal:
		if c.Type.Approximate {
			t = scanTypeFloat64
		} else {
			t = scanTypeString
		}
	default:
		t = scanTypeString
	}
	if c.Nullable {
		return scanTypeNull[t]
	}
	return t
}

// implement driver.RowsColumnTypeNullable
func (r *Rows) ColumnTypeNullable(index int) (nullable, ok bool) {
	return r.columns()[index].Nullable, true
}

// implement driver.RowsColumnTypeLength
func (r *Rows) ColumnTypeLength(index int) (length int64, ok bool) {
	c := r.columns()[index]
	switch c.Type.Kind {
	case turbodbc.KindFixedString, turbodbc.KindVariableString, turbodbc.KindBytes:
		if c.Size == 0 || c.Size > math.MaxInt64 {
			return math.MaxInt64, true
		}
		return int64(c.Size), true
	}
	return 0, false
}

// implement driver.RowsColumnTypePrecisionScale
func (r *Rows) ColumnTypePrecisionScale(index int) (precision, scale int64, ok bool) {
	c := r.columns()[index]
	if c.Type.Kind == turbodbc.KindDecimal || c.SQLType == api.SQL_NUMERIC || c.SQLType == api.SQL_DECIMAL {
		return int64(c.Precision), int64(c.Scale), true
	}
	return 0, 0, false
}
