// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package turbodbc

// RowBatch is the result of one fetch: a view over the cursor's column
// buffers and the number of rows the fetch produced. It is only valid
// until the next Fetch, NextSet, Execute or Close on the cursor.
type RowBatch struct {
	desc    *ResultSetDescriptor
	columns []*ColumnBuffer
	rows    int
}

// Len returns the number of rows. It is zero only at the end of the
// result set.
func (b *RowBatch) Len() int { return b.rows }

func (b *RowBatch) NumColumns() int { return len(b.columns) }

func (b *RowBatch) Column(i int) *ColumnBuffer { return b.columns[i] }

func (b *RowBatch) Descriptor() *ResultSetDescriptor { return b.desc }

// Row returns row i as Go values; see ColumnBuffer.Value.
func (b *RowBatch) Row(i int) []interface{} {
	row := make([]interface{}, len(b.columns))
	for j, c := range b.columns {
		row[j] = c.Value(i)
	}
	return row
}

// Rows copies every row of the batch out of the buffers.
func (b *RowBatch) Rows() [][]interface{} {
	rows := make([][]interface{}, b.rows)
	for i := range rows {
		rows[i] = b.Row(i)
	}
	return rows
}
