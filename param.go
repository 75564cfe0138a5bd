// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package turbodbc

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"runtime"
	"time"
	"unsafe"

	"github.com/google/uuid"

	"github.com/david-engelmann/turbodbc/api"
)

// maxParameterScale bounds the digits sent for decimals with a
// non-terminating expansion.
const maxParameterScale = 18

// ParameterColumn holds the values of one parameter position across all
// rows of a batched execution.
type ParameterColumn struct {
	kind   Kind
	values []interface{}
}

// NewParameterColumn declares a parameter position of the given kind.
// A zero kind is inferred from the first non-nil value. nil values
// are sent as NULL.
func NewParameterColumn(kind Kind, values ...interface{}) ParameterColumn {
	return ParameterColumn{kind: kind, values: values}
}

func (c ParameterColumn) Kind() Kind { return c.kind }

func (c ParameterColumn) Len() int { return len(c.values) }

// ParameterBatch is the column-wise set of parameter values for one
// batched execution. It is only read by the cursor.
type ParameterBatch struct {
	columns []ParameterColumn
	// rowErr records a row whose width differs from the first row.
	rowErr error
}

// NewParameterBatch builds a batch from per-position columns.
func NewParameterBatch(columns ...ParameterColumn) *ParameterBatch {
	return &ParameterBatch{columns: columns}
}

// ParameterRows builds a batch from rows of values, one value per
// parameter position. Kinds are inferred per position.
func ParameterRows(rows ...[]interface{}) *ParameterBatch {
	b := &ParameterBatch{}
	if len(rows) == 0 {
		return b
	}
	width := len(rows[0])
	b.columns = make([]ParameterColumn, width)
	for j := range b.columns {
		b.columns[j].values = make([]interface{}, 0, len(rows))
	}
	for i, row := range rows {
		if len(row) != width {
			b.rowErr = newKindError("executemany", ErrMalformedParameterBatch,
				"row %d has %d values, row 0 has %d", i, len(row), width)
			continue
		}
		for j, v := range row {
			b.columns[j].values = append(b.columns[j].values, v)
		}
	}
	return b
}

// NumParameters returns the number of parameter positions.
func (b *ParameterBatch) NumParameters() int { return len(b.columns) }

// Len returns the number of parameter rows.
func (b *ParameterBatch) Len() int {
	if len(b.columns) == 0 {
		return 0
	}
	return len(b.columns[0].values)
}

// validate checks that every position has the same number of rows.
func (b *ParameterBatch) validate() error {
	if b.rowErr != nil {
		return b.rowErr
	}
	for j, c := range b.columns {
		if len(c.values) != b.Len() {
			return newKindError("executemany", ErrMalformedParameterBatch,
				"parameter %d has %d rows, parameter 1 has %d", j+1, len(c.values), b.Len())
		}
	}
	return nil
}

// boundParameter is a parameter position converted to a single kind,
// ready to be copied into native buffers chunk by chunk.
type boundParameter struct {
	typ     ColumnType
	sqlType api.SQLSMALLINT
	size    api.SQLULEN
	digits  api.SQLSMALLINT
	values  []interface{}
}

// convertParameters normalizes all values of b. Every type error is
// found here, before any native call.
func convertParameters(b *ParameterBatch, o *Options) ([]*boundParameter, error) {
	params := make([]*boundParameter, len(b.columns))
	for j, c := range b.columns {
		p, err := convertColumn(j, c, o)
		if err != nil {
			return nil, err
		}
		params[j] = p
	}
	return params, nil
}

func convertColumn(j int, c ParameterColumn, o *Options) (*boundParameter, error) {
	kind := c.kind
	if kind < 0 || kind > KindGUID {
		return nil, newKindError("executemany", ErrUnsupportedType,
			"parameter %d: unknown kind %v", j+1, kind)
	}
	if kind == 0 {
		for i, v := range c.values {
			if v == nil {
				continue
			}
			k, ok := inferKind(v)
			if !ok {
				return nil, newKindError("executemany", ErrUnsupportedType,
					"parameter %d row %d: no representation for %T", j+1, i, v)
			}
			kind = k
			break
		}
	}
	p := &boundParameter{values: make([]interface{}, len(c.values))}
	if kind == 0 {
		// all NULL
		p.typ = ColumnType{Kind: KindVariableString, Width: 1}
		p.sqlType, p.size = api.SQL_VARCHAR, 1
		return p, nil
	}
	width, intDigits, scale := 0, 1, 0
	for i, v := range c.values {
		if v == nil {
			continue
		}
		nv, err := convertValue(kind, v)
		if err != nil {
			return nil, newKindError("executemany", ErrTypeMismatch,
				"parameter %d row %d: %v", j+1, i, err)
		}
		p.values[i] = nv
		switch x := nv.(type) {
		case string:
			n := len(x)
			if o.PreferUnicode {
				w, _ := api.EncodeWide(x)
				n = len(w) / 2
			}
			width = max(width, n)
		case []byte:
			width = max(width, len(x))
		case *big.Rat:
			s := decimalScale(x)
			scale = max(scale, s)
			whole := new(big.Int).Quo(x.Num(), x.Denom())
			intDigits = max(intDigits, len(whole.Abs(whole).Text(10)))
		}
	}
	width = max(width, 1)
	p.typ = ColumnType{Kind: kind}
	switch kind {
	case KindInt64:
		p.sqlType = api.SQL_BIGINT
	case KindDouble:
		p.sqlType = api.SQL_DOUBLE
	case KindBoolean:
		p.sqlType = api.SQL_BIT
	case KindFixedString, KindVariableString:
		p.typ.Width = width
		p.typ.Unicode = o.PreferUnicode
		p.sqlType = api.SQL_VARCHAR
		if p.typ.Unicode {
			p.sqlType = api.SQL_WVARCHAR
		}
		p.size = api.SQLULEN(width)
	case KindBytes:
		p.typ.Width = width
		p.sqlType, p.size = api.SQL_VARBINARY, api.SQLULEN(width)
	case KindDate:
		p.sqlType, p.size = api.SQL_TYPE_DATE, 10
	case KindTime:
		p.sqlType, p.size = api.SQL_TYPE_TIME, 8
	case KindTimestamp:
		p.sqlType, p.size, p.digits = api.SQL_TYPE_TIMESTAMP, 26, 6
	case KindDecimal:
		p.typ.Precision = intDigits + scale
		p.typ.Scale = scale
		p.sqlType = api.SQL_NUMERIC
		p.size, p.digits = api.SQLULEN(p.typ.Precision), api.SQLSMALLINT(scale)
	case KindGUID:
		p.sqlType, p.size = api.SQL_GUID, 16
	}
	return p, nil
}

func decimalScale(r *big.Rat) int {
	n, exact := r.FloatPrec()
	if !exact || n > maxParameterScale {
		return maxParameterScale
	}
	return n
}

func inferKind(v interface{}) (Kind, bool) {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindInt64, true
	case float32, float64:
		return KindDouble, true
	case bool:
		return KindBoolean, true
	case string:
		return KindVariableString, true
	case []byte:
		return KindBytes, true
	case time.Time:
		return KindTimestamp, true
	case *big.Rat, big.Rat:
		return KindDecimal, true
	case uuid.UUID:
		return KindGUID, true
	}
	return 0, false
}

func toInt64(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), uint64(x) <= math.MaxInt64
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), x <= math.MaxInt64
	}
	return 0, false
}

// convertValue converts v to the canonical Go type of kind.
func convertValue(kind Kind, v interface{}) (interface{}, error) {
	mismatch := func() error {
		return fmt.Errorf("%T cannot be sent as %v", v, kind)
	}
	switch kind {
	case KindInt64:
		if n, ok := toInt64(v); ok {
			return n, nil
		}
	case KindDouble:
		switch x := v.(type) {
		case float64:
			return x, nil
		case float32:
			return float64(x), nil
		}
		if n, ok := toInt64(v); ok {
			return float64(n), nil
		}
	case KindBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case KindFixedString, KindVariableString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case KindBytes:
		if b, ok := v.([]byte); ok {
			return b, nil
		}
	case KindDate, KindTime, KindTimestamp:
		if t, ok := v.(time.Time); ok {
			return t, nil
		}
	case KindDecimal:
		switch x := v.(type) {
		case *big.Rat:
			if x == nil {
				return nil, mismatch()
			}
			return x, nil
		case big.Rat:
			return &x, nil
		case string:
			r, ok := new(big.Rat).SetString(x)
			if !ok {
				return nil, fmt.Errorf("%q is not a decimal number", x)
			}
			return r, nil
		case float64:
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return nil, fmt.Errorf("%v is not a decimal number", x)
			}
			return new(big.Rat).SetFloat64(x), nil
		}
		if n, ok := toInt64(v); ok {
			return new(big.Rat).SetInt64(n), nil
		}
	case KindGUID:
		switch x := v.(type) {
		case uuid.UUID:
			return x, nil
		case [16]byte:
			return uuid.UUID(x), nil
		case string:
			u, err := uuid.Parse(x)
			if err != nil {
				return nil, err
			}
			return u, nil
		}
	default:
		return nil, fmt.Errorf("unknown parameter kind %v", kind)
	}
	return nil, mismatch()
}

// parameterBuffers holds one chunk of a batch in native layout.
type parameterBuffers struct {
	buffers   []*ColumnBuffer
	processed *api.SQLULEN
	pinner    runtime.Pinner
}

// fillParameters copies rows [lo, hi) of params into native buffers.
func fillParameters(params []*boundParameter, lo, hi int) *parameterBuffers {
	pb := &parameterBuffers{
		buffers:   make([]*ColumnBuffer, len(params)),
		processed: new(api.SQLULEN),
	}
	pb.pinner.Pin(pb.processed)
	n := hi - lo
	for j, p := range params {
		b := newColumnBuffer(p.typ, n)
		b.rows = n
		for i := 0; i < n; i++ {
			writeParameter(b, i, p.values[lo+i], p.typ)
		}
		if len(b.data) > 0 {
			pb.pinner.Pin(&b.data[0])
		}
		pb.pinner.Pin(&b.ind[0])
		pb.buffers[j] = b
	}
	return pb
}

func writeParameter(b *ColumnBuffer, i int, v interface{}, typ ColumnType) {
	if v == nil {
		b.ind[i] = api.SQL_NULL_DATA
		return
	}
	s := b.data[i*b.elemSize : (i+1)*b.elemSize]
	b.ind[i] = api.SQLLEN(b.elemSize)
	switch x := v.(type) {
	case int64:
		binary.NativeEndian.PutUint64(s, uint64(x))
	case float64:
		binary.NativeEndian.PutUint64(s, math.Float64bits(x))
	case bool:
		if x {
			s[0] = 1
		}
	case string:
		if typ.Unicode {
			w, _ := api.EncodeWide(x)
			copy(s, w)
			b.ind[i] = api.SQLLEN(len(w))
		} else {
			copy(s, x)
			b.ind[i] = api.SQLLEN(len(x))
		}
	case []byte:
		copy(s, x)
		b.ind[i] = api.SQLLEN(len(x))
	case time.Time:
		switch typ.Kind {
		case KindDate:
			putDate(s, x)
		case KindTime:
			putTime(s, x)
		default:
			putTimestamp(s, x)
		}
	case *big.Rat:
		text := x.FloatString(typ.Scale)
		copy(s, text)
		b.ind[i] = api.SQLLEN(len(text))
	case uuid.UUID:
		encodeGUID(s, x)
	}
}

func (pb *parameterBuffers) bind(stmt *handle, params []*boundParameter) error {
	for j, p := range params {
		b := pb.buffers[j]
		ret := stmt.native.BindParameter(stmt.h, api.SQLUSMALLINT(j+1), b.ctype, p.sqlType,
			p.size, p.digits, b.data, api.SQLLEN(b.elemSize), b.ind)
		if IsError(ret) {
			return stmt.error("SQLBindParameter", ErrExecution)
		}
	}
	n := 0
	if len(pb.buffers) > 0 {
		n = pb.buffers[0].rows
	}
	if ret := stmt.native.SetStmtAttr(stmt.h, api.SQL_ATTR_PARAM_BIND_TYPE, api.SQL_PARAM_BIND_BY_COLUMN); IsError(ret) {
		return stmt.error("SQLSetStmtAttr", ErrExecution)
	}
	if ret := stmt.native.SetStmtAttr(stmt.h, api.SQL_ATTR_PARAMSET_SIZE, uintptr(n)); IsError(ret) {
		return stmt.error("SQLSetStmtAttr", ErrExecution)
	}
	if ret := stmt.native.SetStmtAttrPtr(stmt.h, api.SQL_ATTR_PARAMS_PROCESSED_PTR, unsafe.Pointer(pb.processed)); IsError(ret) {
		return stmt.error("SQLSetStmtAttr", ErrExecution)
	}
	return nil
}

func (pb *parameterBuffers) release() {
	pb.pinner.Unpin()
}
