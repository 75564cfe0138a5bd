// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package turbodbc

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"time"
	"unsafe"

	"github.com/google/uuid"

	"github.com/david-engelmann/turbodbc/api"
)

// ColumnBuffer is one column's storage for up to Cap rows: contiguous
// value slots plus a length/NULL indicator per row. Readers must check
// IsNull before trusting a value slot.
type ColumnBuffer struct {
	typ       ColumnType
	ctype     api.SQLSMALLINT
	elemSize  int
	capacity  int
	rows      int
	data      []byte
	ind       []api.SQLLEN
	truncated []bool
	// overflow holds complete values refetched under TruncationGrow,
	// keyed by row.
	overflow map[int][]byte
}

func newColumnBuffer(typ ColumnType, capacity int) *ColumnBuffer {
	b := &ColumnBuffer{
		typ:      typ,
		ctype:    typ.cType(),
		elemSize: typ.elementSize(),
		capacity: capacity,
		ind:      make([]api.SQLLEN, capacity),
	}
	b.data = alignedBytes(b.elemSize * capacity)
	if typ.Kind.isVariableLength() {
		b.truncated = make([]bool, capacity)
	}
	return b
}

// alignedBytes returns n zeroed bytes starting on an 8 byte boundary,
// so integer and double slots can be viewed in place.
func alignedBytes(n int) []byte {
	if n == 0 {
		return nil
	}
	words := make([]uint64, (n+7)/8)
	return unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), n)
}

func (b *ColumnBuffer) Type() ColumnType { return b.typ }

// Len returns the number of valid rows in the current batch.
func (b *ColumnBuffer) Len() int { return b.rows }

// Cap returns the row capacity.
func (b *ColumnBuffer) Cap() int { return b.capacity }

func (b *ColumnBuffer) slot(i int) []byte {
	if i < 0 || i >= b.rows {
		panic(fmt.Sprintf("turbodbc: row %d out of range [0, %d)", i, b.rows))
	}
	return b.data[i*b.elemSize : (i+1)*b.elemSize]
}

func (b *ColumnBuffer) IsNull(i int) bool {
	b.slot(i)
	return b.ind[i] == api.SQL_NULL_DATA
}

// Truncated reports whether row i holds only a prefix of its value.
func (b *ColumnBuffer) Truncated(i int) bool {
	b.slot(i)
	return b.truncated != nil && b.truncated[i]
}

func (b *ColumnBuffer) mustKind(method string, kinds ...Kind) {
	for _, k := range kinds {
		if b.typ.Kind == k {
			return
		}
	}
	panic(fmt.Sprintf("turbodbc: %s called on %v column", method, b.typ))
}

// Int64 returns row i of an Int64 column.
func (b *ColumnBuffer) Int64(i int) int64 {
	b.mustKind("Int64", KindInt64)
	return int64(binary.NativeEndian.Uint64(b.slot(i)))
}

// Float64 returns row i of a Double or approximate Decimal column.
func (b *ColumnBuffer) Float64(i int) float64 {
	if b.typ.Kind == KindDecimal && b.typ.Approximate {
		return math.Float64frombits(binary.NativeEndian.Uint64(b.slot(i)))
	}
	b.mustKind("Float64", KindDouble)
	return math.Float64frombits(binary.NativeEndian.Uint64(b.slot(i)))
}

func (b *ColumnBuffer) Bool(i int) bool {
	b.mustKind("Bool", KindBoolean)
	return b.slot(i)[0] != 0
}

// raw returns the value bytes of a variable length row, excluding any
// terminator, and preferring a refetched complete value.
func (b *ColumnBuffer) raw(i int) []byte {
	s := b.slot(i)
	if v, ok := b.overflow[i]; ok {
		return v
	}
	n := int(b.ind[i])
	limit := len(s)
	if b.typ.Kind.isString() {
		limit -= b.typ.charSize()
	}
	if n < 0 || n > limit {
		// SQL_NO_TOTAL or truncated
		n = limit
	}
	return s[:n]
}

// String returns row i of a string column.
func (b *ColumnBuffer) String(i int) string {
	if b.typ.Kind == KindDecimal && !b.typ.Approximate {
		return decimalText(b.slot(i), b.ind[i])
	}
	b.mustKind("String", KindFixedString, KindVariableString)
	v := b.raw(i)
	if !b.typ.Unicode {
		return string(v)
	}
	s, err := api.DecodeWide(v)
	if err != nil {
		return string(v)
	}
	return s
}

// Bytes returns row i of a Bytes column. The slice aliases the buffer
// and is only valid until the next fetch.
func (b *ColumnBuffer) Bytes(i int) []byte {
	b.mustKind("Bytes", KindBytes)
	return b.raw(i)
}

// Time returns row i of a Date, Time or Timestamp column in UTC. Time
// values are placed on 0001-01-01.
func (b *ColumnBuffer) Time(i int) time.Time {
	b.mustKind("Time", KindDate, KindTime, KindTimestamp)
	s := b.slot(i)
	u16 := func(off int) int { return int(binary.NativeEndian.Uint16(s[off:])) }
	switch b.typ.Kind {
	case KindDate:
		return time.Date(int(int16(u16(0))), time.Month(u16(2)), u16(4), 0, 0, 0, 0, time.UTC)
	case KindTime:
		return time.Date(1, time.January, 1, u16(0), u16(2), u16(4), 0, time.UTC)
	}
	frac := int(binary.NativeEndian.Uint32(s[12:]))
	return time.Date(int(int16(u16(0))), time.Month(u16(2)), u16(4),
		u16(6), u16(8), u16(10), frac, time.UTC)
}

// Decimal returns row i of a Decimal column as an exact rational.
func (b *ColumnBuffer) Decimal(i int) *big.Rat {
	b.mustKind("Decimal", KindDecimal, KindInt64)
	if b.typ.Kind == KindInt64 {
		return new(big.Rat).SetInt64(b.Int64(i))
	}
	if b.typ.Approximate {
		r := new(big.Rat)
		r.SetFloat64(b.Float64(i))
		return r
	}
	r, ok := new(big.Rat).SetString(decimalText(b.slot(i), b.ind[i]))
	if !ok {
		return nil
	}
	return r
}

func decimalText(s []byte, ind api.SQLLEN) string {
	n := int(ind)
	if n < 0 || n >= len(s) {
		n = len(s) - 1
	}
	for j := 0; j < n; j++ {
		if s[j] == 0 {
			n = j
			break
		}
	}
	return string(s[:n])
}

func (b *ColumnBuffer) UUID(i int) uuid.UUID {
	b.mustKind("UUID", KindGUID)
	return decodeGUID(b.slot(i))
}

// Value returns row i as a Go value, or nil for NULL: int64, float64,
// bool, string, []byte (copied), time.Time, *big.Rat (exact decimals)
// or uuid.UUID.
func (b *ColumnBuffer) Value(i int) interface{} {
	if b.IsNull(i) {
		return nil
	}
	switch b.typ.Kind {
	case KindInt64:
		return b.Int64(i)
	case KindDouble:
		return b.Float64(i)
	case KindBoolean:
		return b.Bool(i)
	case KindFixedString, KindVariableString:
		return b.String(i)
	case KindBytes:
		return append([]byte(nil), b.Bytes(i)...)
	case KindDate, KindTime, KindTimestamp:
		return b.Time(i)
	case KindDecimal:
		if b.typ.Approximate {
			return b.Float64(i)
		}
		return b.Decimal(i)
	case KindGUID:
		return b.UUID(i)
	}
	return nil
}

// Int64Values views the valid rows of an Int64 column without copying.
func (b *ColumnBuffer) Int64Values() []int64 {
	b.mustKind("Int64Values", KindInt64)
	if b.rows == 0 {
		return nil
	}
	return unsafe.Slice((*int64)(unsafe.Pointer(&b.data[0])), b.rows)
}

// Float64Values views the valid rows of a Double column without copying.
func (b *ColumnBuffer) Float64Values() []float64 {
	b.mustKind("Float64Values", KindDouble)
	if b.rows == 0 {
		return nil
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(&b.data[0])), b.rows)
}

// reset prepares the buffer for the next fetch.
func (b *ColumnBuffer) reset() {
	b.rows = 0
	b.overflow = nil
	for i := range b.truncated {
		b.truncated[i] = false
	}
}

// truncatedAt reports whether the driver wrote only part of row i.
func (b *ColumnBuffer) truncatedAt(i int) bool {
	if !b.typ.Kind.isVariableLength() {
		return false
	}
	n := b.ind[i]
	if n == api.SQL_NULL_DATA {
		return false
	}
	limit := b.elemSize
	if b.typ.Kind.isString() {
		limit -= b.typ.charSize()
	}
	return n == api.SQL_NO_TOTAL || int(n) > limit
}

func encodeGUID(dst []byte, u uuid.UUID) {
	binary.NativeEndian.PutUint32(dst[0:], binary.BigEndian.Uint32(u[0:4]))
	binary.NativeEndian.PutUint16(dst[4:], binary.BigEndian.Uint16(u[4:6]))
	binary.NativeEndian.PutUint16(dst[6:], binary.BigEndian.Uint16(u[6:8]))
	copy(dst[8:16], u[8:16])
}

func decodeGUID(src []byte) uuid.UUID {
	var u uuid.UUID
	binary.BigEndian.PutUint32(u[0:], binary.NativeEndian.Uint32(src[0:4]))
	binary.BigEndian.PutUint16(u[4:], binary.NativeEndian.Uint16(src[4:6]))
	binary.BigEndian.PutUint16(u[6:], binary.NativeEndian.Uint16(src[6:8]))
	copy(u[8:], src[8:16])
	return u
}

func putDate(dst []byte, t time.Time) {
	binary.NativeEndian.PutUint16(dst[0:], uint16(int16(t.Year())))
	binary.NativeEndian.PutUint16(dst[2:], uint16(t.Month()))
	binary.NativeEndian.PutUint16(dst[4:], uint16(t.Day()))
}

func putTime(dst []byte, t time.Time) {
	binary.NativeEndian.PutUint16(dst[0:], uint16(t.Hour()))
	binary.NativeEndian.PutUint16(dst[2:], uint16(t.Minute()))
	binary.NativeEndian.PutUint16(dst[4:], uint16(t.Second()))
}

// putTimestamp writes t with microsecond precision.
func putTimestamp(dst []byte, t time.Time) {
	putDate(dst, t)
	putTime(dst[6:], t)
	binary.NativeEndian.PutUint32(dst[12:], uint32(t.Nanosecond()/1000*1000))
}
