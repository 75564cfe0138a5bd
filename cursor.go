// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package turbodbc

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/david-engelmann/turbodbc/api"
)

// State is the execution state of a Cursor.
type State int

const (
	// Unexecuted: nothing executed yet, or the last execute or nextset failed.
	Unexecuted State = iota
	Executing
	HasResultSet
	// NoResultSet: the current result only carries a row count.
	NoResultSet
	// Exhausted: NextSet reported that no further result follows.
	Exhausted
	Closed
)

var stateNames = [...]string{
	Unexecuted:   "Unexecuted",
	Executing:    "Executing",
	HasResultSet: "HasResultSet",
	NoResultSet:  "NoResultSet",
	Exhausted:    "Exhausted",
	Closed:       "Closed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Cursor executes statements on one statement handle and exposes their
// results batch by batch.
type Cursor struct {
	conn *Connection
	stmt *handle
	opts Options
	log  *zap.Logger

	state     State
	rs        *resultSet
	rowCount  int64
	batchSize int

	// rows buffered for FetchOne and FetchMany
	pending *RowBatch
	pos     int

	inFlight atomic.Bool
	running  sync.WaitGroup
	closeMu  sync.Mutex
}

func newCursor(c *Connection, h *handle) *Cursor {
	return &Cursor{
		conn:      c,
		stmt:      h,
		opts:      c.opts,
		log:       c.log,
		rowCount:  -1,
		batchSize: c.opts.BatchSize,
	}
}

func (c *Cursor) State() State { return c.state }

// RowCount returns the affected or selected row count of the most recent
// operation, or -1 when the driver does not know it.
func (c *Cursor) RowCount() int64 { return c.rowCount }

// Description returns the current result set's descriptor, or nil when
// there is no result set.
func (c *Cursor) Description() *ResultSetDescriptor {
	if c.rs == nil {
		return nil
	}
	return c.rs.desc
}

func (c *Cursor) BatchSize() int { return c.batchSize }

// SetBatchSize sets the row capacity of buffers for result sets
// described from now on.
func (c *Cursor) SetBatchSize(rows int) error {
	if rows < 1 {
		return newKindError("batch size", ErrInvalidState, "batch size must be positive, got %d", rows)
	}
	c.batchSize = rows
	return nil
}

// begin registers a native operation unless the cursor is closed.
// Close waits for registered operations before freeing the handle.
func (c *Cursor) begin(op string) error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if err := c.checkUsable(op); err != nil {
		return err
	}
	c.running.Add(1)
	return nil
}

func (c *Cursor) checkUsable(op string) error {
	if c.state == Closed {
		return newStateError(op, "cursor is closed")
	}
	if c.conn.Closed() {
		return newStateError(op, "connection is closed")
	}
	return nil
}

// Execute runs query once. args, if any, are bound as one parameter row.
func (c *Cursor) Execute(query string, args ...interface{}) error {
	return c.ExecuteContext(context.Background(), query, args...)
}

// ExecuteContext is Execute with cancellation: when ctx is done while
// the statement runs, the statement is cancelled and ctx.Err returned.
func (c *Cursor) ExecuteContext(ctx context.Context, query string, args ...interface{}) error {
	var batch *ParameterBatch
	if len(args) > 0 {
		batch = ParameterRows(args)
	}
	return c.execute(ctx, query, batch)
}

// ExecuteMany runs query once for every row of batch in as few round
// trips as the options allow.
func (c *Cursor) ExecuteMany(query string, batch *ParameterBatch) error {
	return c.ExecuteManyContext(context.Background(), query, batch)
}

func (c *Cursor) ExecuteManyContext(ctx context.Context, query string, batch *ParameterBatch) error {
	if batch == nil {
		batch = &ParameterBatch{}
	}
	return c.execute(ctx, query, batch)
}

func (c *Cursor) execute(ctx context.Context, query string, batch *ParameterBatch) error {
	if err := c.begin("execute"); err != nil {
		return err
	}
	defer c.running.Done()
	var params []*boundParameter
	if batch != nil {
		if err := batch.validate(); err != nil {
			return err
		}
		var err error
		if params, err = convertParameters(batch, &c.opts); err != nil {
			return err
		}
	}
	c.discard(true)
	c.state = Executing
	c.rowCount = -1
	c.log.Debug("execute", zap.String("query", query), zap.Int("parameter_sets", batchLen(batch)))

	executed, err := c.run(ctx, query, batch, params)
	if err == nil {
		if executed {
			err = c.describe()
		} else {
			c.rowCount = 0
			c.state = NoResultSet
		}
	}
	if err != nil {
		c.discard(true)
		c.state = Unexecuted
		return err
	}
	return nil
}

func batchLen(b *ParameterBatch) int {
	if b == nil {
		return 0
	}
	return b.Len()
}

// run executes query. It reports false when the batch has no rows and
// nothing was sent.
func (c *Cursor) run(ctx context.Context, query string, batch *ParameterBatch, params []*boundParameter) (bool, error) {
	s := c.stmt
	if batch != nil && batch.NumParameters() > 0 && batch.Len() == 0 {
		return false, nil
	}
	if len(params) == 0 {
		err := c.call(ctx, "SQLExecDirect", func() api.SQLRETURN {
			return s.native.ExecDirect(s.h, query)
		})
		return err == nil, err
	}
	if ret := s.native.Prepare(s.h, query); IsError(ret) {
		return false, s.error("SQLPrepare", ErrExecution)
	}
	rows := batch.Len()
	chunk := c.opts.ParameterSetsToBuffer
	var total int64
	for lo := 0; lo < rows; lo += chunk {
		hi := min(lo+chunk, rows)
		n, err := c.executeChunk(ctx, params, lo, hi, hi == rows)
		if err != nil {
			return false, err
		}
		if n < 0 || total < 0 {
			total = -1
		} else {
			total += n
		}
	}
	c.rowCount = total
	return true, nil
}

// executeChunk executes parameter rows [lo, hi). Results of all but the
// last chunk are closed once their row counts are read.
func (c *Cursor) executeChunk(ctx context.Context, params []*boundParameter, lo, hi int, last bool) (int64, error) {
	s := c.stmt
	pb := fillParameters(params, lo, hi)
	defer pb.release()
	if err := pb.bind(s, params); err != nil {
		return 0, err
	}
	defer s.native.FreeStmt(s.h, api.SQL_RESET_PARAMS)
	if err := c.call(ctx, "SQLExecute", func() api.SQLRETURN {
		return s.native.Execute(s.h)
	}); err != nil {
		return 0, err
	}
	c.log.Debug("parameter sets processed", zap.Uint64("rows", uint64(*pb.processed)))
	n, err := c.affectedRows(hi - lo)
	if err != nil {
		return 0, err
	}
	if !last {
		s.native.FreeStmt(s.h, api.SQL_CLOSE)
	}
	return n, nil
}

// affectedRows reads the row count of a batched execution. Drivers that
// count per parameter set report the remaining counts as further results.
func (c *Cursor) affectedRows(sets int) (int64, error) {
	s := c.stmt
	n, ret := s.native.RowCount(s.h)
	if IsError(ret) {
		return 0, s.error("SQLRowCount", ErrExecution)
	}
	total := int64(n)
	if sets < 2 || c.conn.caps.ParamArrayRowCounts != api.SQL_PARC_BATCH {
		return total, nil
	}
	if cols, ret := s.native.NumResultCols(s.h); IsError(ret) || cols > 0 {
		return total, nil
	}
	for i := 1; i < sets; i++ {
		ret := s.native.MoreResults(s.h)
		if ret == api.SQL_NO_DATA {
			break
		}
		if IsError(ret) {
			return 0, s.error("SQLMoreResults", ErrExecution)
		}
		n, ret := s.native.RowCount(s.h)
		if IsError(ret) {
			return 0, s.error("SQLRowCount", ErrExecution)
		}
		if total < 0 || n < 0 {
			total = -1
		} else {
			total += int64(n)
		}
	}
	return total, nil
}

// call runs one blocking native call, cancelling it if ctx is done.
func (c *Cursor) call(ctx context.Context, apiName string, f func() api.SQLRETURN) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.inFlight.Store(true)
	defer c.inFlight.Store(false)
	var ret api.SQLRETURN
	if ctx.Done() == nil {
		ret = f()
	} else {
		done := make(chan api.SQLRETURN, 1)
		go func() { done <- f() }()
		select {
		case ret = <-done:
		case <-ctx.Done():
			c.stmt.native.Cancel(c.stmt.h)
			<-done
			return ctx.Err()
		}
	}
	switch {
	case ret == api.SQL_NO_DATA:
		// searched update or delete that touched no rows
		return nil
	case ret == api.SQL_NEED_DATA:
		return newKindError(apiName, ErrExecution, "data-at-execution parameters are not supported")
	case IsError(ret):
		return c.stmt.error(apiName, ErrExecution)
	}
	return nil
}

// describe inspects the current result and moves to HasResultSet or
// NoResultSet.
func (c *Cursor) describe() error {
	s := c.stmt
	cols, ret := s.native.NumResultCols(s.h)
	if IsError(ret) {
		return s.error("SQLNumResultCols", ErrExecution)
	}
	if cols == 0 {
		if c.rowCount < 0 || c.state != Executing {
			n, ret := s.native.RowCount(s.h)
			if IsError(ret) {
				return s.error("SQLRowCount", ErrExecution)
			}
			c.rowCount = int64(n)
		}
		c.state = NoResultSet
		return nil
	}
	desc, err := describeResultSet(s, int(cols), &c.opts)
	if err != nil {
		return err
	}
	capacity := batchCapacity(desc, c.batchSize, c.opts.ReadBufferMegabytes)
	rs, err := newResultSet(s, desc, capacity, &c.opts, c.conn.caps.canRefetchBound())
	if err != nil {
		return err
	}
	c.rs = rs
	if n, ret := s.native.RowCount(s.h); !IsError(ret) {
		c.rowCount = int64(n)
	}
	c.state = HasResultSet
	c.log.Debug("result set", zap.Int("columns", desc.Len()), zap.Int("batch_rows", capacity))
	return nil
}

// discard releases the current result set. With closeCursor the
// statement's pending results are dropped as well.
func (c *Cursor) discard(closeCursor bool) {
	c.pending, c.pos = nil, 0
	if c.rs != nil {
		c.rs.release()
		c.rs = nil
	}
	if closeCursor && !c.stmt.released() {
		c.stmt.native.FreeStmt(c.stmt.h, api.SQL_CLOSE)
	}
}

func (c *Cursor) requireResultSet(op string) error {
	if err := c.checkUsable(op); err != nil {
		return err
	}
	switch c.state {
	case HasResultSet:
		return nil
	case NoResultSet:
		return newStateError(op, "statement produced no result set")
	case Exhausted:
		return newStateError(op, "no further result sets")
	}
	return newStateError(op, "no statement executed")
}

// Fetch performs one bulk fetch and returns up to min(maxRows, batch
// capacity) rows; maxRows <= 0 means the capacity. An empty batch marks
// the end of the result set. Rows buffered by FetchOne or FetchMany are
// dropped.
func (c *Cursor) Fetch(maxRows int) (*RowBatch, error) {
	if err := c.begin("fetch"); err != nil {
		return nil, err
	}
	defer c.running.Done()
	if err := c.requireResultSet("fetch"); err != nil {
		return nil, err
	}
	c.pending, c.pos = nil, 0
	return c.rs.fetch(maxRows)
}

// FetchOne returns the next row, or nil at the end of the result set.
func (c *Cursor) FetchOne() ([]interface{}, error) {
	if err := c.begin("fetchone"); err != nil {
		return nil, err
	}
	defer c.running.Done()
	if err := c.requireResultSet("fetchone"); err != nil {
		return nil, err
	}
	if c.pending == nil || c.pos >= c.pending.Len() {
		b, err := c.rs.fetch(0)
		if err != nil {
			return nil, err
		}
		c.pending, c.pos = b, 0
		if b.Len() == 0 {
			return nil, nil
		}
	}
	row := c.pending.Row(c.pos)
	c.pos++
	return row, nil
}

// FetchMany returns up to n rows; fewer only at the end of the result set.
func (c *Cursor) FetchMany(n int) ([][]interface{}, error) {
	rows := make([][]interface{}, 0, n)
	for len(rows) < n {
		row, err := c.FetchOne()
		if err != nil {
			return nil, err
		}
		if row == nil {
			break
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FetchAll returns all remaining rows of the current result set.
func (c *Cursor) FetchAll() ([][]interface{}, error) {
	var rows [][]interface{}
	for {
		row, err := c.FetchOne()
		if err != nil {
			return nil, err
		}
		if row == nil {
			return rows, nil
		}
		rows = append(rows, row)
	}
}

// NextSet advances to the next result of the last execution. It returns
// false, without error, when no further result follows; the cursor is
// then Exhausted.
func (c *Cursor) NextSet() (bool, error) {
	if err := c.begin("nextset"); err != nil {
		return false, err
	}
	defer c.running.Done()
	switch c.state {
	case Exhausted:
		return false, nil
	case HasResultSet, NoResultSet:
	default:
		return false, newStateError("nextset", "no statement executed")
	}

	s := c.stmt
	ret := s.native.MoreResults(s.h)
	if ret != api.SQL_NO_DATA && IsError(ret) {
		err := s.error("SQLMoreResults", ErrExecution)
		c.discard(true)
		c.state = Unexecuted
		return false, err
	}
	c.discard(false)
	if ret == api.SQL_NO_DATA {
		c.state = Exhausted
		c.log.Debug("no further result sets")
		return false, nil
	}
	c.rowCount = -1
	if err := c.describe(); err != nil {
		c.discard(true)
		c.state = Unexecuted
		return false, err
	}
	return true, nil
}

// Close releases the statement handle. If a statement is executing in
// another goroutine it is cancelled first. Calling Close again has no
// effect.
func (c *Cursor) Close() error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.inFlight.Load() {
		c.stmt.native.Cancel(c.stmt.h)
	}
	c.running.Wait()
	if c.state == Closed {
		return nil
	}
	c.discard(true)
	c.state = Closed
	c.conn.forget(c)
	return c.stmt.release()
}
