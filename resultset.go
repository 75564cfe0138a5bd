// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package turbodbc

import (
	"runtime"
	"unsafe"

	"go.uber.org/zap"

	"github.com/david-engelmann/turbodbc/api"
)

// ColumnDescription is the native metadata of one result column and the
// representation chosen for it.
type ColumnDescription struct {
	Name      string
	SQLType   api.SQLSMALLINT
	Size      uint64
	Precision int
	Scale     int
	Nullable  bool
	Type      ColumnType
}

// ResultSetDescriptor describes the columns of the current result set,
// in result set order. It does not change once built.
type ResultSetDescriptor struct {
	columns []ColumnDescription
}

func (d *ResultSetDescriptor) Len() int { return len(d.columns) }

func (d *ResultSetDescriptor) Column(i int) ColumnDescription { return d.columns[i] }

// Columns returns a copy of all column descriptions.
func (d *ResultSetDescriptor) Columns() []ColumnDescription {
	return append([]ColumnDescription(nil), d.columns...)
}

func (d *ResultSetDescriptor) Names() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// describeResultSet builds a descriptor from the statement's column
// metadata. Columns without a representation fail the whole result set.
func describeResultSet(stmt *handle, count int, o *Options) (*ResultSetDescriptor, error) {
	d := &ResultSetDescriptor{columns: make([]ColumnDescription, count)}
	for i := 0; i < count; i++ {
		ci, ret := stmt.native.DescribeCol(stmt.h, api.SQLUSMALLINT(i+1))
		if IsError(ret) {
			return nil, stmt.error("SQLDescribeCol", ErrExecution)
		}
		typ, err := resolveColumnType(ci.DataType, uint64(ci.Size), int(ci.DecimalDigits), o)
		if err != nil {
			return nil, newKindError("SQLDescribeCol", ErrUnsupportedType, "column %d (%q): %v", i+1, ci.Name, err)
		}
		d.columns[i] = ColumnDescription{
			Name:      ci.Name,
			SQLType:   ci.DataType,
			Size:      uint64(ci.Size),
			Precision: int(ci.Size),
			Scale:     int(ci.DecimalDigits),
			Nullable:  ci.Nullable != api.SQL_NO_NULLS,
			Type:      typ,
		}
	}
	return d, nil
}

// batchCapacity picks the row count per fetch for d.
func batchCapacity(d *ResultSetDescriptor, batchSize int, megabytes float64) int {
	if megabytes <= 0 {
		return batchSize
	}
	width := 0
	for _, c := range d.columns {
		width += c.Type.elementSize() + int(unsafe.Sizeof(api.SQLLEN(0)))
	}
	if width == 0 {
		return batchSize
	}
	rows := int(megabytes * (1 << 20) / float64(width))
	if rows < 1 {
		rows = 1
	}
	return rows
}

// resultSet owns the column buffers bound to a statement for the
// lifetime of one result set.
type resultSet struct {
	stmt      *handle
	desc      *ResultSetDescriptor
	buffers   []*ColumnBuffer
	capacity  int
	arraySize int
	fetched   *api.SQLULEN
	pinner    runtime.Pinner
	done      bool

	policy   TruncationPolicy
	canGrow  bool
	warnedNo bool
	log      *zap.Logger
}

func newResultSet(stmt *handle, desc *ResultSetDescriptor, capacity int, o *Options, canGrow bool) (*resultSet, error) {
	rs := &resultSet{
		stmt:     stmt,
		desc:     desc,
		capacity: capacity,
		fetched:  new(api.SQLULEN),
		policy:   o.Truncation,
		canGrow:  canGrow,
		log:      o.Logger,
	}
	rs.pinner.Pin(rs.fetched)
	if err := rs.bind(); err != nil {
		rs.release()
		return nil, err
	}
	return rs, nil
}

func (rs *resultSet) bind() error {
	s := rs.stmt
	if ret := s.native.SetStmtAttr(s.h, api.SQL_ATTR_ROW_BIND_TYPE, api.SQL_BIND_BY_COLUMN); IsError(ret) {
		return s.error("SQLSetStmtAttr", ErrExecution)
	}
	if ret := s.native.SetStmtAttr(s.h, api.SQL_ATTR_ROW_ARRAY_SIZE, uintptr(rs.capacity)); IsError(ret) {
		return s.error("SQLSetStmtAttr", ErrExecution)
	}
	rs.arraySize = rs.capacity
	if ret := s.native.SetStmtAttrPtr(s.h, api.SQL_ATTR_ROWS_FETCHED_PTR, unsafe.Pointer(rs.fetched)); IsError(ret) {
		return s.error("SQLSetStmtAttr", ErrExecution)
	}
	rs.buffers = make([]*ColumnBuffer, rs.desc.Len())
	for i, c := range rs.desc.columns {
		b := newColumnBuffer(c.Type, rs.capacity)
		if err := rs.bindColumn(i, b); err != nil {
			return err
		}
	}
	return nil
}

func (rs *resultSet) bindColumn(i int, b *ColumnBuffer) error {
	if len(b.data) > 0 {
		rs.pinner.Pin(&b.data[0])
	}
	rs.pinner.Pin(&b.ind[0])
	s := rs.stmt
	ret := s.native.BindCol(s.h, api.SQLUSMALLINT(i+1), b.ctype, b.data, api.SQLLEN(b.elemSize), b.ind)
	if IsError(ret) {
		return s.error("SQLBindCol", ErrExecution)
	}
	rs.buffers[i] = b
	return nil
}

// fetch fills the buffers with up to min(maxRows, capacity) rows.
func (rs *resultSet) fetch(maxRows int) (*RowBatch, error) {
	for _, b := range rs.buffers {
		b.reset()
	}
	if rs.done {
		return rs.batch(), nil
	}
	n := rs.capacity
	if maxRows > 0 && maxRows < n {
		n = maxRows
	}
	s := rs.stmt
	if n != rs.arraySize {
		if ret := s.native.SetStmtAttr(s.h, api.SQL_ATTR_ROW_ARRAY_SIZE, uintptr(n)); IsError(ret) {
			return nil, s.error("SQLSetStmtAttr", ErrExecution)
		}
		rs.arraySize = n
	}
	*rs.fetched = 0
	ret := s.native.Fetch(s.h)
	if ret == api.SQL_NO_DATA {
		rs.done = true
		return rs.batch(), nil
	}
	if IsError(ret) {
		return nil, s.error("SQLFetch", ErrExecution)
	}
	rows := int(*rs.fetched)
	if rows > n {
		rows = n
	}
	for _, b := range rs.buffers {
		b.rows = rows
	}
	widen, err := rs.checkTruncation(rows)
	if err != nil {
		return nil, err
	}
	batch := rs.batch()
	for col, width := range widen {
		if err := rs.widen(col, width); err != nil {
			return nil, err
		}
	}
	return batch, nil
}

func (rs *resultSet) batch() *RowBatch {
	cols := append([]*ColumnBuffer(nil), rs.buffers...)
	rows := 0
	if len(cols) > 0 {
		rows = cols[0].rows
	}
	return &RowBatch{desc: rs.desc, columns: cols, rows: rows}
}

// checkTruncation applies the truncation policy to every variable
// length value the driver could not fit. It returns, per column, the
// element width needed to hold the longest value seen when growing.
func (rs *resultSet) checkTruncation(rows int) (map[int]int, error) {
	var widen map[int]int
	for col, b := range rs.buffers {
		if !b.typ.Kind.isVariableLength() {
			continue
		}
		flagged := 0
		for i := 0; i < rows; i++ {
			if !b.truncatedAt(i) {
				continue
			}
			switch {
			case rs.policy == TruncationFail:
				return nil, newKindError("SQLFetch", ErrTruncation,
					"column %d (%q) row %d exceeds %v", col+1, rs.desc.columns[col].Name, i, b.typ)
			case rs.policy == TruncationGrow && rs.canGrow:
				v, err := rs.refetch(col, i, b)
				if err != nil {
					return nil, err
				}
				if b.overflow == nil {
					b.overflow = make(map[int][]byte)
				}
				b.overflow[i] = v
				width := len(v) / b.typ.charSize()
				if widen == nil {
					widen = make(map[int]int)
				}
				if width > widen[col] {
					widen[col] = width
				}
			default:
				if rs.policy == TruncationGrow && !rs.warnedNo {
					rs.warnedNo = true
					rs.log.Warn("driver cannot refetch bound values, flagging truncation instead",
						zap.String("column", rs.desc.columns[col].Name))
				}
				b.truncated[i] = true
				flagged++
			}
		}
		if flagged > 0 {
			rs.log.Warn("values truncated",
				zap.String("column", rs.desc.columns[col].Name),
				zap.Int("rows", flagged),
				zap.Stringer("type", b.typ))
		}
	}
	return widen, nil
}

// refetch reads the complete value of row i with SQLSetPos and SQLGetData.
func (rs *resultSet) refetch(col, i int, b *ColumnBuffer) ([]byte, error) {
	s := rs.stmt
	if ret := s.native.SetPos(s.h, api.SQLULEN(i+1), api.SQL_POSITION, api.SQL_LOCK_NO_CHANGE); IsError(ret) {
		return nil, s.error("SQLSetPos", ErrExecution)
	}
	nul := 0
	if b.typ.Kind.isString() {
		nul = b.typ.charSize()
	}
	size := 2 * b.elemSize
	if n := b.ind[i]; n > 0 {
		size = int(n) + nul
	}
	var total []byte
	buf := make([]byte, size)
	for {
		n, ret := s.native.GetData(s.h, api.SQLUSMALLINT(col+1), b.ctype, buf)
		if ret == api.SQL_NO_DATA {
			return total, nil
		}
		if IsError(ret) {
			return nil, s.error("SQLGetData", ErrExecution)
		}
		if n == api.SQL_NULL_DATA {
			return nil, nil
		}
		if n != api.SQL_NO_TOTAL && int(n)+nul <= len(buf) {
			return append(total, buf[:n]...), nil
		}
		got := len(buf) - nul
		total = append(total, buf[:got]...)
		if n != api.SQL_NO_TOTAL {
			// the driver reports what is left
			if rest := int(n) - got + nul; rest > len(buf) {
				buf = make([]byte, rest)
			}
		}
	}
}

// widen rebinds column col with room for width characters. The old
// buffer stays valid for the batch already handed out.
func (rs *resultSet) widen(col, width int) error {
	old := rs.buffers[col]
	if width <= old.typ.Width {
		return nil
	}
	typ := old.typ
	typ.Width = width
	rs.log.Debug("growing column buffer",
		zap.String("column", rs.desc.columns[col].Name),
		zap.Int("from", old.typ.Width), zap.Int("to", width))
	return rs.bindColumn(col, newColumnBuffer(typ, rs.capacity))
}

// release unbinds the buffers and lets them be collected.
func (rs *resultSet) release() {
	s := rs.stmt
	if !s.released() {
		s.native.FreeStmt(s.h, api.SQL_UNBIND)
	}
	rs.pinner.Unpin()
	rs.buffers = nil
}
