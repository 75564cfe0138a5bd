// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package turbodbc

import (
	"fmt"

	"github.com/david-engelmann/turbodbc/api"
)

// Kind is the in-memory representation chosen for a column or parameter.
type Kind int

const (
	KindInt64 Kind = iota + 1
	KindDouble
	KindBoolean
	KindFixedString
	KindVariableString
	KindBytes
	KindDate
	KindTime
	KindTimestamp
	KindDecimal
	KindGUID
)

var kindNames = [...]string{
	KindInt64:          "Int64",
	KindDouble:         "Double",
	KindBoolean:        "Boolean",
	KindFixedString:    "FixedString",
	KindVariableString: "VariableString",
	KindBytes:          "Bytes",
	KindDate:           "Date",
	KindTime:           "Time",
	KindTimestamp:      "Timestamp",
	KindDecimal:        "Decimal",
	KindGUID:           "GUID",
}

func (k Kind) String() string {
	if k > 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) isString() bool {
	return k == KindFixedString || k == KindVariableString
}

func (k Kind) isVariableLength() bool {
	return k.isString() || k == KindBytes
}

// ColumnType is a resolved representation together with its buffer
// layout. It is decided once per column when a result set is described.
type ColumnType struct {
	Kind Kind
	// Width is the element capacity in characters for strings and in
	// bytes for Bytes. It is zero for fixed size kinds.
	Width     int
	Precision int
	Scale     int
	// Unicode strings are transferred as SQLWCHAR.
	Unicode bool
	// Approximate decimals are transferred as doubles.
	Approximate bool
}

func (t ColumnType) String() string {
	switch t.Kind {
	case KindFixedString, KindVariableString, KindBytes:
		return fmt.Sprintf("%s(%d)", t.Kind, t.Width)
	case KindDecimal:
		if t.Approximate {
			return fmt.Sprintf("Decimal(%d, %d)~", t.Precision, t.Scale)
		}
		return fmt.Sprintf("Decimal(%d, %d)", t.Precision, t.Scale)
	}
	return t.Kind.String()
}

func (t ColumnType) charSize() int {
	if t.Unicode {
		return 2
	}
	return 1
}

// cType is the C type the column is bound with.
func (t ColumnType) cType() api.SQLSMALLINT {
	switch t.Kind {
	case KindInt64:
		return api.SQL_C_SBIGINT
	case KindDouble:
		return api.SQL_C_DOUBLE
	case KindBoolean:
		return api.SQL_C_BIT
	case KindFixedString, KindVariableString:
		if t.Unicode {
			return api.SQL_C_WCHAR
		}
		return api.SQL_C_CHAR
	case KindBytes:
		return api.SQL_C_BINARY
	case KindDate:
		return api.SQL_C_TYPE_DATE
	case KindTime:
		return api.SQL_C_TYPE_TIME
	case KindTimestamp:
		return api.SQL_C_TYPE_TIMESTAMP
	case KindDecimal:
		if t.Approximate {
			return api.SQL_C_DOUBLE
		}
		return api.SQL_C_CHAR
	case KindGUID:
		return api.SQL_C_GUID
	}
	panic(fmt.Sprintf("turbodbc: no C type for %v", t.Kind))
}

// elementSize is the number of bytes one row occupies in a buffer.
func (t ColumnType) elementSize() int {
	switch t.Kind {
	case KindInt64, KindDouble:
		return 8
	case KindBoolean:
		return 1
	case KindFixedString, KindVariableString:
		return (t.Width + 1) * t.charSize()
	case KindBytes:
		if t.Width < 1 {
			return 1
		}
		return t.Width
	case KindDate:
		return api.DateStructSize
	case KindTime:
		return api.TimeStructSize
	case KindTimestamp:
		return api.TimestampStructSize
	case KindDecimal:
		if t.Approximate {
			return 8
		}
		p := t.Precision
		if p <= 0 {
			p = maxDecimalPrecision
		}
		// sign, leading zero, decimal point and NUL
		return p + 4
	case KindGUID:
		return api.GUIDStructSize
	}
	panic(fmt.Sprintf("turbodbc: no element size for %v", t.Kind))
}

// maxInt64Precision is the largest scale 0 precision stored as Int64.
const maxInt64Precision = 18

// maxDecimalPrecision sizes decimal buffers of unknown precision.
const maxDecimalPrecision = 38

// hugeColumnSize marks sizes drivers report for unbounded columns.
const hugeColumnSize = 1 << 30

// resolveColumnType maps native column metadata to a ColumnType.
func resolveColumnType(sqlType api.SQLSMALLINT, size uint64, digits int, o *Options) (ColumnType, error) {
	switch sqlType {
	case api.SQL_BIT, api.SQL_BOOLEAN:
		return ColumnType{Kind: KindBoolean}, nil
	case api.SQL_TINYINT, api.SQL_SMALLINT, api.SQL_INTEGER, api.SQL_BIGINT:
		return ColumnType{Kind: KindInt64}, nil
	case api.SQL_REAL, api.SQL_FLOAT, api.SQL_DOUBLE:
		return ColumnType{Kind: KindDouble}, nil
	case api.SQL_NUMERIC, api.SQL_DECIMAL:
		p := int(size)
		if digits == 0 && p > 0 && p <= maxInt64Precision {
			return ColumnType{Kind: KindInt64, Precision: p}, nil
		}
		return ColumnType{
			Kind:        KindDecimal,
			Precision:   p,
			Scale:       digits,
			Approximate: o.Decimals == DecimalApproximate,
		}, nil
	case api.SQL_CHAR:
		return stringType(KindFixedString, size, false, o), nil
	case api.SQL_VARCHAR, api.SQL_LONGVARCHAR:
		return stringType(KindVariableString, size, false, o), nil
	case api.SQL_WCHAR:
		return stringType(KindFixedString, size, true, o), nil
	case api.SQL_WVARCHAR, api.SQL_WLONGVARCHAR, api.SQL_SS_XML:
		return stringType(KindVariableString, size, true, o), nil
	case api.SQL_BINARY, api.SQL_VARBINARY, api.SQL_LONGVARBINARY:
		return ColumnType{Kind: KindBytes, Width: columnWidth(size, o)}, nil
	case api.SQL_TYPE_DATE, api.SQL_DATE:
		return ColumnType{Kind: KindDate}, nil
	case api.SQL_TYPE_TIME, api.SQL_TIME, api.SQL_SS_TIME2:
		return ColumnType{Kind: KindTime}, nil
	case api.SQL_TYPE_TIMESTAMP, api.SQL_TIMESTAMP:
		return ColumnType{Kind: KindTimestamp, Scale: digits}, nil
	case api.SQL_GUID:
		return ColumnType{Kind: KindGUID}, nil
	}
	return ColumnType{}, fmt.Errorf("native SQL type %d has no representation", sqlType)
}

func columnWidth(size uint64, o *Options) int {
	limit := o.VarcharMaxCharacterLimit
	if size == 0 || size >= hugeColumnSize {
		return limit
	}
	if o.LimitVarcharResultsToMax && size > uint64(limit) {
		return limit
	}
	return int(size)
}

func stringType(k Kind, size uint64, wide bool, o *Options) ColumnType {
	t := ColumnType{Kind: k, Width: columnWidth(size, o)}
	switch {
	case wide && !o.FetchWcharAsChar:
		t.Unicode = true
	case o.PreferUnicode:
		t.Unicode = true
	case o.ForceExtraCapacityForUnicode:
		// narrow buffers may carry multi-byte UTF-8
		t.Width *= 4
	}
	return t
}
