// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package odbctest

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/david-engelmann/turbodbc/api"
)

// encode converts v to the C representation ctype. It also returns
// the size of the terminator the driver appends.
func encode(ctype api.SQLSMALLINT, v interface{}) ([]byte, int) {
	switch ctype {
	case api.SQL_C_SBIGINT:
		b := make([]byte, 8)
		binary.NativeEndian.PutUint64(b, uint64(toInt64(v)))
		return b, 0
	case api.SQL_C_DOUBLE:
		b := make([]byte, 8)
		binary.NativeEndian.PutUint64(b, math.Float64bits(toFloat64(v)))
		return b, 0
	case api.SQL_C_BIT:
		if x, _ := v.(bool); x {
			return []byte{1}, 0
		}
		return []byte{0}, 0
	case api.SQL_C_CHAR:
		return []byte(toString(v)), 1
	case api.SQL_C_WCHAR:
		w, err := api.EncodeWide(toString(v))
		if err != nil {
			panic(err)
		}
		return w, 2
	case api.SQL_C_BINARY:
		switch x := v.(type) {
		case []byte:
			return x, 0
		case string:
			return []byte(x), 0
		}
	case api.SQL_C_TYPE_DATE:
		b := make([]byte, api.DateStructSize)
		putDate(b, v.(time.Time))
		return b, 0
	case api.SQL_C_TYPE_TIME:
		b := make([]byte, api.TimeStructSize)
		putTime(b, v.(time.Time))
		return b, 0
	case api.SQL_C_TYPE_TIMESTAMP:
		t := v.(time.Time)
		b := make([]byte, api.TimestampStructSize)
		putDate(b, t)
		putTime(b[6:], t)
		binary.NativeEndian.PutUint32(b[12:], uint32(t.Nanosecond()))
		return b, 0
	case api.SQL_C_GUID:
		u, ok := v.(uuid.UUID)
		if !ok {
			u = uuid.MustParse(toString(v))
		}
		b := make([]byte, api.GUIDStructSize)
		binary.NativeEndian.PutUint32(b[0:], binary.BigEndian.Uint32(u[0:4]))
		binary.NativeEndian.PutUint16(b[4:], binary.BigEndian.Uint16(u[4:6]))
		binary.NativeEndian.PutUint16(b[6:], binary.BigEndian.Uint16(u[6:8]))
		copy(b[8:], u[8:])
		return b, 0
	}
	panic(fmt.Sprintf("odbctest: cannot encode %T as C type %d", v, ctype))
}

// writeValue stores v in row i of a bound column and reports whether
// it had to be truncated.
func writeValue(cb colBinding, i int, v interface{}) bool {
	if v == nil {
		cb.ind[i] = api.SQL_NULL_DATA
		return false
	}
	slot := cb.buf[i*cb.elemLen : (i+1)*cb.elemLen]
	b, nul := encode(cb.ctype, v)
	clear(slot)
	cb.ind[i] = api.SQLLEN(len(b))
	if len(b)+nul <= len(slot) {
		copy(slot, b)
		return false
	}
	n := len(slot) - nul
	if nul == 2 {
		n &^= 1
	}
	copy(slot, b[:n])
	return true
}

// decode converts a bound parameter back to a Go value. Character data
// comes back as string, including decimals.
func decode(ctype api.SQLSMALLINT, b []byte, n int) interface{} {
	switch ctype {
	case api.SQL_C_SBIGINT:
		return int64(binary.NativeEndian.Uint64(b))
	case api.SQL_C_DOUBLE:
		return math.Float64frombits(binary.NativeEndian.Uint64(b))
	case api.SQL_C_BIT:
		return b[0] != 0
	case api.SQL_C_CHAR:
		return string(b[:n])
	case api.SQL_C_WCHAR:
		s, err := api.DecodeWide(b[:n])
		if err != nil {
			panic(err)
		}
		return s
	case api.SQL_C_BINARY:
		return append([]byte(nil), b[:n]...)
	case api.SQL_C_TYPE_DATE:
		return time.Date(int(int16(u16(b, 0))), time.Month(u16(b, 2)), u16(b, 4), 0, 0, 0, 0, time.UTC)
	case api.SQL_C_TYPE_TIME:
		return time.Date(1, time.January, 1, u16(b, 0), u16(b, 2), u16(b, 4), 0, time.UTC)
	case api.SQL_C_TYPE_TIMESTAMP:
		return time.Date(int(int16(u16(b, 0))), time.Month(u16(b, 2)), u16(b, 4),
			u16(b, 6), u16(b, 8), u16(b, 10), int(binary.NativeEndian.Uint32(b[12:])), time.UTC)
	case api.SQL_C_GUID:
		var u uuid.UUID
		binary.BigEndian.PutUint32(u[0:], binary.NativeEndian.Uint32(b[0:4]))
		binary.BigEndian.PutUint16(u[4:], binary.NativeEndian.Uint16(b[4:6]))
		binary.BigEndian.PutUint16(u[6:], binary.NativeEndian.Uint16(b[6:8]))
		copy(u[8:], b[8:16])
		return u
	}
	panic(fmt.Sprintf("odbctest: cannot decode C type %d", ctype))
}

func u16(b []byte, off int) int {
	return int(binary.NativeEndian.Uint16(b[off:]))
}

func putDate(b []byte, t time.Time) {
	binary.NativeEndian.PutUint16(b[0:], uint16(int16(t.Year())))
	binary.NativeEndian.PutUint16(b[2:], uint16(t.Month()))
	binary.NativeEndian.PutUint16(b[4:], uint16(t.Day()))
}

func putTime(b []byte, t time.Time) {
	binary.NativeEndian.PutUint16(b[0:], uint16(t.Hour()))
	binary.NativeEndian.PutUint16(b[2:], uint16(t.Minute()))
	binary.NativeEndian.PutUint16(b[4:], uint16(t.Second()))
}

func toInt64(v interface{}) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			panic(err)
		}
		return n
	}
	panic(fmt.Sprintf("odbctest: %T is not an integer", v))
}

func toFloat64(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int64, int, int32:
		return float64(toInt64(x))
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			panic(err)
		}
		return f
	}
	panic(fmt.Sprintf("odbctest: %T is not a number", v))
}

func toString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
