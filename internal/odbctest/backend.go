// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package odbctest provides an in-memory api.Native driver with
// scripted results, for testing code that runs on top of ODBC.
package odbctest

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"unsafe"

	"github.com/david-engelmann/turbodbc/api"
)

type colBinding struct {
	ctype   api.SQLSMALLINT
	buf     []byte
	elemLen int
	ind     []api.SQLLEN
}

type paramBinding struct {
	ctype   api.SQLSMALLINT
	sqlType api.SQLSMALLINT
	size    api.SQLULEN
	digits  api.SQLSMALLINT
	buf     []byte
	elemLen int
	ind     []api.SQLLEN
}

// Param is a bound parameter as the backend saw it at execution.
type Param struct {
	CType   api.SQLSMALLINT
	SQLType api.SQLSMALLINT
	Size    api.SQLULEN
	Digits  api.SQLSMALLINT
}

type object struct {
	typ    api.SQLSMALLINT
	parent api.SQLHANDLE
	diag   []api.DiagRec

	// connection
	connected bool

	// statement
	query       string
	attrs       map[api.SQLINTEGER]uintptr
	cols        map[api.SQLUSMALLINT]colBinding
	params      map[api.SQLUSMALLINT]paramBinding
	rowsFetched *api.SQLULEN
	processed   *api.SQLULEN
	results     []Result
	cur         int
	next        int
	batchStart  int
	pos         int
	getOffset   map[api.SQLUSMALLINT]int
	getDone     map[api.SQLUSMALLINT]bool
	cancel      chan struct{}

	// environment
	dsn int
}

// DSN is a data source listed by SQLDataSources.
type DSN struct {
	Name        string
	Description string
}

// Backend implements api.Native in memory.
type Backend struct {
	mu       sync.Mutex
	next     api.SQLHANDLE
	objects  map[api.SQLHANDLE]*object
	handlers map[string]Handler
	failures map[string]Failure
	hang     map[string]bool
	started  chan string
	calls    []string
	executed []Execution

	// Fallback handles statements without a registered handler.
	Fallback Handler
	// Info answers SQLGetInfo: string or uint32 values.
	Info         map[api.SQLUSMALLINT]interface{}
	DSNs         []DSN
	ConnStrings  []string
	Autocommit   []bool
	Transactions []api.SQLSMALLINT
}

// Execution records one SQLExecute or SQLExecDirect.
type Execution struct {
	Query  string
	Params []Param
	Rows   [][]interface{}
}

func New() *Backend {
	return &Backend{
		next:     0x1000,
		objects:  make(map[api.SQLHANDLE]*object),
		handlers: make(map[string]Handler),
		failures: make(map[string]Failure),
		hang:     make(map[string]bool),
		started:  make(chan string, 16),
		Info: map[api.SQLUSMALLINT]interface{}{
			api.SQL_DBMS_NAME:              "odbctest",
			api.SQL_DBMS_VER:               "1.0",
			api.SQL_DRIVER_NAME:            "libodbctest.so",
			api.SQL_MULT_RESULT_SETS:       "Y",
			api.SQL_PARAM_ARRAY_ROW_COUNTS: uint32(api.SQL_PARC_NO_BATCH),
			api.SQL_GETDATA_EXTENSIONS: uint32(api.SQL_GD_ANY_COLUMN | api.SQL_GD_ANY_ORDER |
				api.SQL_GD_BLOCK | api.SQL_GD_BOUND),
		},
	}
}

var _ api.Native = (*Backend)(nil)

// Handle registers the results of query.
func (b *Backend) Handle(query string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[query] = h
}

// On registers fixed results for query.
func (b *Backend) On(query string, rs ...Result) {
	b.Handle(query, Results(rs...))
}

// FailOn makes every later call of apiName fail with f.
func (b *Backend) FailOn(apiName string, f Failure) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[apiName] = f
}

func (b *Backend) ClearFailures() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = make(map[string]Failure)
}

// Hang makes executions of query block until cancelled.
func (b *Backend) Hang(query string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hang[query] = true
}

// Started delivers the query of every execution that hangs.
func (b *Backend) Started() <-chan string { return b.started }

// Calls returns the names of all native calls so far.
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *Backend) CallCount(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c == name {
			n++
		}
	}
	return n
}

// Executions returns all executions with their decoded parameters.
func (b *Backend) Executions() []Execution {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Execution(nil), b.executed...)
}

// OpenHandles counts live handles of type typ.
func (b *Backend) OpenHandles(typ api.SQLSMALLINT) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, o := range b.objects {
		if o.typ == typ {
			n++
		}
	}
	return n
}

// enter records a call and clears the handle's diagnostics. It returns
// the configured failure, if any.
func (b *Backend) enter(name string, o *object) (Failure, bool) {
	b.calls = append(b.calls, name)
	if o != nil {
		o.diag = nil
	}
	f, ok := b.failures[name]
	if ok && o != nil {
		o.diag = []api.DiagRec{f.diag()}
	}
	return f, ok
}

func (b *Backend) fail(o *object, state, msg string) api.SQLRETURN {
	o.diag = append(o.diag, api.DiagRec{State: state, Message: msg})
	return api.SQL_ERROR
}

func (b *Backend) lookup(h api.SQLHANDLE, typ api.SQLSMALLINT) *object {
	o, ok := b.objects[h]
	if !ok || o.typ != typ {
		return nil
	}
	return o
}

func (b *Backend) AllocHandle(typ api.SQLSMALLINT, input api.SQLHANDLE) (api.SQLHANDLE, api.SQLRETURN) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var parent *object
	if typ != api.SQL_HANDLE_ENV {
		parent = b.objects[input]
		if parent == nil {
			return 0, api.SQL_INVALID_HANDLE
		}
	}
	if _, failed := b.enter("SQLAllocHandle", parent); failed {
		return 0, api.SQL_ERROR
	}
	b.next++
	h := b.next
	b.objects[h] = &object{
		typ:       typ,
		parent:    input,
		attrs:     make(map[api.SQLINTEGER]uintptr),
		cols:      make(map[api.SQLUSMALLINT]colBinding),
		params:    make(map[api.SQLUSMALLINT]paramBinding),
		getOffset: make(map[api.SQLUSMALLINT]int),
		getDone:   make(map[api.SQLUSMALLINT]bool),
	}
	return h, api.SQL_SUCCESS
}

func (b *Backend) FreeHandle(typ api.SQLSMALLINT, h api.SQLHANDLE) api.SQLRETURN {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.lookup(h, typ)
	if o == nil {
		return api.SQL_INVALID_HANDLE
	}
	if _, failed := b.enter("SQLFreeHandle", o); failed {
		return api.SQL_ERROR
	}
	delete(b.objects, h)
	return api.SQL_SUCCESS
}

func (b *Backend) SetEnvAttr(env api.SQLHENV, attr api.SQLINTEGER, value uintptr) api.SQLRETURN {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.lookup(env, api.SQL_HANDLE_ENV)
	if o == nil {
		return api.SQL_INVALID_HANDLE
	}
	if _, failed := b.enter("SQLSetEnvAttr", o); failed {
		return api.SQL_ERROR
	}
	o.attrs[attr] = value
	return api.SQL_SUCCESS
}

func (b *Backend) DataSources(env api.SQLHENV, direction api.SQLUSMALLINT) (string, string, api.SQLRETURN) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.lookup(env, api.SQL_HANDLE_ENV)
	if o == nil {
		return "", "", api.SQL_INVALID_HANDLE
	}
	if _, failed := b.enter("SQLDataSources", o); failed {
		return "", "", api.SQL_ERROR
	}
	if direction == api.SQL_FETCH_FIRST {
		o.dsn = 0
	}
	if o.dsn >= len(b.DSNs) {
		return "", "", api.SQL_NO_DATA
	}
	d := b.DSNs[o.dsn]
	o.dsn++
	return d.Name, d.Description, api.SQL_SUCCESS
}

func (b *Backend) DriverConnect(dbc api.SQLHDBC, connStr string) api.SQLRETURN {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.lookup(dbc, api.SQL_HANDLE_DBC)
	if o == nil {
		return api.SQL_INVALID_HANDLE
	}
	if _, failed := b.enter("SQLDriverConnect", o); failed {
		return api.SQL_ERROR
	}
	b.ConnStrings = append(b.ConnStrings, connStr)
	o.connected = true
	return api.SQL_SUCCESS
}

func (b *Backend) Disconnect(dbc api.SQLHDBC) api.SQLRETURN {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.lookup(dbc, api.SQL_HANDLE_DBC)
	if o == nil {
		return api.SQL_INVALID_HANDLE
	}
	if _, failed := b.enter("SQLDisconnect", o); failed {
		return api.SQL_ERROR
	}
	if !o.connected {
		return b.fail(o, "08003", "connection not open")
	}
	o.connected = false
	return api.SQL_SUCCESS
}

func (b *Backend) SetConnectAttr(dbc api.SQLHDBC, attr api.SQLINTEGER, value uintptr) api.SQLRETURN {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.lookup(dbc, api.SQL_HANDLE_DBC)
	if o == nil {
		return api.SQL_INVALID_HANDLE
	}
	if _, failed := b.enter("SQLSetConnectAttr", o); failed {
		return api.SQL_ERROR
	}
	o.attrs[attr] = value
	if attr == api.SQL_ATTR_AUTOCOMMIT {
		b.Autocommit = append(b.Autocommit, value == api.SQL_AUTOCOMMIT_ON)
	}
	return api.SQL_SUCCESS
}

func (b *Backend) GetInfoString(dbc api.SQLHDBC, infoType api.SQLUSMALLINT) (string, api.SQLRETURN) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.lookup(dbc, api.SQL_HANDLE_DBC)
	if o == nil {
		return "", api.SQL_INVALID_HANDLE
	}
	b.enter("SQLGetInfo", o)
	s, ok := b.Info[infoType].(string)
	if !ok {
		return "", b.fail(o, "HY096", "information type out of range")
	}
	return s, api.SQL_SUCCESS
}

func (b *Backend) GetInfoUint(dbc api.SQLHDBC, infoType api.SQLUSMALLINT) (uint32, api.SQLRETURN) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.lookup(dbc, api.SQL_HANDLE_DBC)
	if o == nil {
		return 0, api.SQL_INVALID_HANDLE
	}
	b.enter("SQLGetInfo", o)
	v, ok := b.Info[infoType].(uint32)
	if !ok {
		return 0, b.fail(o, "HY096", "information type out of range")
	}
	return v, api.SQL_SUCCESS
}

func (b *Backend) EndTran(typ api.SQLSMALLINT, h api.SQLHANDLE, completion api.SQLSMALLINT) api.SQLRETURN {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.lookup(h, typ)
	if o == nil {
		return api.SQL_INVALID_HANDLE
	}
	if _, failed := b.enter("SQLEndTran", o); failed {
		return api.SQL_ERROR
	}
	b.Transactions = append(b.Transactions, completion)
	return api.SQL_SUCCESS
}

func (b *Backend) stmt(h api.SQLHSTMT) *object {
	return b.lookup(h, api.SQL_HANDLE_STMT)
}

func (b *Backend) ExecDirect(h api.SQLHSTMT, text string) api.SQLRETURN {
	b.mu.Lock()
	o := b.stmt(h)
	if o == nil {
		b.mu.Unlock()
		return api.SQL_INVALID_HANDLE
	}
	if _, failed := b.enter("SQLExecDirect", o); failed {
		b.mu.Unlock()
		return api.SQL_ERROR
	}
	o.query = text
	return b.execute(o, false)
}

func (b *Backend) Prepare(h api.SQLHSTMT, text string) api.SQLRETURN {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.stmt(h)
	if o == nil {
		return api.SQL_INVALID_HANDLE
	}
	if _, failed := b.enter("SQLPrepare", o); failed {
		return api.SQL_ERROR
	}
	o.query = text
	return api.SQL_SUCCESS
}

func (b *Backend) Execute(h api.SQLHSTMT) api.SQLRETURN {
	b.mu.Lock()
	o := b.stmt(h)
	if o == nil {
		b.mu.Unlock()
		return api.SQL_INVALID_HANDLE
	}
	if _, failed := b.enter("SQLExecute", o); failed {
		b.mu.Unlock()
		return api.SQL_ERROR
	}
	return b.execute(o, true)
}

// execute runs o.query with b.mu held and releases it.
func (b *Backend) execute(o *object, withParams bool) api.SQLRETURN {
	var (
		params []Param
		rows   [][]interface{}
	)
	if withParams {
		params, rows = o.decodeParams()
	}
	b.executed = append(b.executed, Execution{Query: o.query, Params: params, Rows: rows})
	o.results, o.cur, o.next = nil, 0, 0
	if b.hang[o.query] {
		cancel := make(chan struct{})
		o.cancel = cancel
		b.mu.Unlock()
		select {
		case b.started <- o.query:
		default:
		}
		<-cancel
		b.mu.Lock()
		defer b.mu.Unlock()
		o.cancel = nil
		return b.fail(o, "HY008", "Operation canceled")
	}
	h := b.handlers[o.query]
	if h == nil {
		h = b.Fallback
	}
	b.mu.Unlock()
	var (
		rs  []Result
		err error
	)
	if h == nil {
		err = Failure{State: "42S02", Message: "no handler for " + o.query}
	} else {
		rs, err = h(o.query, rows)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		var f Failure
		if !errors.As(err, &f) {
			f = Failure{State: "HY000", Message: err.Error()}
		}
		o.diag = append(o.diag, f.diag())
		return api.SQL_ERROR
	}
	if len(rs) == 0 {
		rs = []Result{Count(0)}
	}
	o.results = rs
	if o.processed != nil {
		*o.processed = api.SQLULEN(len(rows))
	}
	return api.SQL_SUCCESS
}

func (o *object) decodeParams() ([]Param, [][]interface{}) {
	if len(o.params) == 0 {
		return nil, nil
	}
	nums := make([]int, 0, len(o.params))
	for n := range o.params {
		nums = append(nums, int(n))
	}
	sort.Ints(nums)
	sets := 1
	if v, ok := o.attrs[api.SQL_ATTR_PARAMSET_SIZE]; ok {
		sets = int(v)
	}
	params := make([]Param, len(nums))
	for j, n := range nums {
		p := o.params[api.SQLUSMALLINT(n)]
		params[j] = Param{CType: p.ctype, SQLType: p.sqlType, Size: p.size, Digits: p.digits}
	}
	rows := make([][]interface{}, sets)
	for i := range rows {
		rows[i] = make([]interface{}, len(nums))
		for j, n := range nums {
			p := o.params[api.SQLUSMALLINT(n)]
			if p.ind[i] == api.SQL_NULL_DATA {
				continue
			}
			slot := p.buf[i*p.elemLen : (i+1)*p.elemLen]
			rows[i][j] = decode(p.ctype, slot, int(p.ind[i]))
		}
	}
	return params, rows
}

func (b *Backend) NumParams(h api.SQLHSTMT) (api.SQLSMALLINT, api.SQLRETURN) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.stmt(h)
	if o == nil {
		return 0, api.SQL_INVALID_HANDLE
	}
	b.enter("SQLNumParams", o)
	return api.SQLSMALLINT(strings.Count(o.query, "?")), api.SQL_SUCCESS
}

func (o *object) current() *Result {
	if o.cur >= len(o.results) {
		return nil
	}
	return &o.results[o.cur]
}

func (b *Backend) NumResultCols(h api.SQLHSTMT) (api.SQLSMALLINT, api.SQLRETURN) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.stmt(h)
	if o == nil {
		return 0, api.SQL_INVALID_HANDLE
	}
	if _, failed := b.enter("SQLNumResultCols", o); failed {
		return 0, api.SQL_ERROR
	}
	r := o.current()
	if r == nil {
		return 0, api.SQL_SUCCESS
	}
	return api.SQLSMALLINT(len(r.Columns)), api.SQL_SUCCESS
}

func (b *Backend) DescribeCol(h api.SQLHSTMT, col api.SQLUSMALLINT) (api.ColumnInfo, api.SQLRETURN) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.stmt(h)
	if o == nil {
		return api.ColumnInfo{}, api.SQL_INVALID_HANDLE
	}
	if _, failed := b.enter("SQLDescribeCol", o); failed {
		return api.ColumnInfo{}, api.SQL_ERROR
	}
	r := o.current()
	if r == nil || int(col) < 1 || int(col) > len(r.Columns) {
		return api.ColumnInfo{}, b.fail(o, "07009", "invalid descriptor index")
	}
	c := r.Columns[col-1]
	nullable := api.SQL_NO_NULLS
	if c.Nullable {
		nullable = api.SQL_NULLABLE
	}
	return api.ColumnInfo{
		Name:          c.Name,
		DataType:      c.Type,
		Size:          api.SQLULEN(c.Size),
		DecimalDigits: api.SQLSMALLINT(c.Digits),
		Nullable:      nullable,
	}, api.SQL_SUCCESS
}

func (b *Backend) BindCol(h api.SQLHSTMT, col api.SQLUSMALLINT, ctype api.SQLSMALLINT, buf []byte, elemLen api.SQLLEN, ind []api.SQLLEN) api.SQLRETURN {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.stmt(h)
	if o == nil {
		return api.SQL_INVALID_HANDLE
	}
	if _, failed := b.enter("SQLBindCol", o); failed {
		return api.SQL_ERROR
	}
	o.cols[col] = colBinding{ctype: ctype, buf: buf, elemLen: int(elemLen), ind: ind}
	return api.SQL_SUCCESS
}

func (b *Backend) BindParameter(h api.SQLHSTMT, num api.SQLUSMALLINT, ctype, sqltype api.SQLSMALLINT, size api.SQLULEN, digits api.SQLSMALLINT, buf []byte, elemLen api.SQLLEN, ind []api.SQLLEN) api.SQLRETURN {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.stmt(h)
	if o == nil {
		return api.SQL_INVALID_HANDLE
	}
	if _, failed := b.enter("SQLBindParameter", o); failed {
		return api.SQL_ERROR
	}
	o.params[num] = paramBinding{ctype: ctype, sqlType: sqltype, size: size, digits: digits,
		buf: buf, elemLen: int(elemLen), ind: ind}
	return api.SQL_SUCCESS
}

func (b *Backend) SetStmtAttr(h api.SQLHSTMT, attr api.SQLINTEGER, value uintptr) api.SQLRETURN {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.stmt(h)
	if o == nil {
		return api.SQL_INVALID_HANDLE
	}
	if _, failed := b.enter("SQLSetStmtAttr", o); failed {
		return api.SQL_ERROR
	}
	o.attrs[attr] = value
	return api.SQL_SUCCESS
}

func (b *Backend) SetStmtAttrPtr(h api.SQLHSTMT, attr api.SQLINTEGER, p unsafe.Pointer) api.SQLRETURN {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.stmt(h)
	if o == nil {
		return api.SQL_INVALID_HANDLE
	}
	if _, failed := b.enter("SQLSetStmtAttr", o); failed {
		return api.SQL_ERROR
	}
	switch attr {
	case api.SQL_ATTR_ROWS_FETCHED_PTR:
		o.rowsFetched = (*api.SQLULEN)(p)
	case api.SQL_ATTR_PARAMS_PROCESSED_PTR:
		o.processed = (*api.SQLULEN)(p)
	default:
		return b.fail(o, "HY092", "invalid attribute")
	}
	return api.SQL_SUCCESS
}

// StmtAttr returns the last value set for attr on any statement.
func (b *Backend) StmtAttr(attr api.SQLINTEGER) (uintptr, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, o := range b.objects {
		if o.typ != api.SQL_HANDLE_STMT {
			continue
		}
		if v, ok := o.attrs[attr]; ok {
			return v, true
		}
	}
	return 0, false
}

func (b *Backend) Fetch(h api.SQLHSTMT) api.SQLRETURN {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.stmt(h)
	if o == nil {
		return api.SQL_INVALID_HANDLE
	}
	if _, failed := b.enter("SQLFetch", o); failed {
		return api.SQL_ERROR
	}
	r := o.current()
	if r == nil || r.Columns == nil {
		return b.fail(o, "24000", "invalid cursor state")
	}
	size := 1
	if v, ok := o.attrs[api.SQL_ATTR_ROW_ARRAY_SIZE]; ok {
		size = int(v)
	}
	remaining := len(r.Rows) - o.next
	if remaining <= 0 {
		if o.rowsFetched != nil {
			*o.rowsFetched = 0
		}
		return api.SQL_NO_DATA
	}
	n := min(size, remaining)
	o.batchStart = o.next
	o.pos = 0
	truncated := false
	for i := 0; i < n; i++ {
		row := r.Rows[o.next+i]
		for col, cb := range o.cols {
			if int(col) > len(row) {
				continue
			}
			if writeValue(cb, i, row[col-1]) {
				truncated = true
			}
		}
	}
	o.next += n
	if o.rowsFetched != nil {
		*o.rowsFetched = api.SQLULEN(n)
	}
	if truncated {
		o.diag = append(o.diag, api.DiagRec{State: "01004", Message: "String data, right truncated"})
		return api.SQL_SUCCESS_WITH_INFO
	}
	return api.SQL_SUCCESS
}

func (b *Backend) SetPos(h api.SQLHSTMT, row api.SQLULEN, op, lock api.SQLUSMALLINT) api.SQLRETURN {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.stmt(h)
	if o == nil {
		return api.SQL_INVALID_HANDLE
	}
	if _, failed := b.enter("SQLSetPos", o); failed {
		return api.SQL_ERROR
	}
	if row < 1 || int(row) > o.next-o.batchStart {
		return b.fail(o, "HY107", "row value out of range")
	}
	o.pos = int(row) - 1
	o.getOffset = make(map[api.SQLUSMALLINT]int)
	o.getDone = make(map[api.SQLUSMALLINT]bool)
	return api.SQL_SUCCESS
}

func (b *Backend) GetData(h api.SQLHSTMT, col api.SQLUSMALLINT, ctype api.SQLSMALLINT, buf []byte) (api.SQLLEN, api.SQLRETURN) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.stmt(h)
	if o == nil {
		return 0, api.SQL_INVALID_HANDLE
	}
	if _, failed := b.enter("SQLGetData", o); failed {
		return 0, api.SQL_ERROR
	}
	r := o.current()
	if r == nil || o.batchStart+o.pos >= len(r.Rows) {
		return 0, b.fail(o, "24000", "invalid cursor state")
	}
	if o.getDone[col] {
		return 0, api.SQL_NO_DATA
	}
	v := r.Rows[o.batchStart+o.pos][col-1]
	if v == nil {
		o.getDone[col] = true
		return api.SQL_NULL_DATA, api.SQL_SUCCESS
	}
	full, nul := encode(ctype, v)
	rest := full[o.getOffset[col]:]
	if len(rest)+nul <= len(buf) {
		copy(buf, rest)
		clear(buf[len(rest) : len(rest)+nul])
		o.getDone[col] = true
		return api.SQLLEN(len(rest)), api.SQL_SUCCESS
	}
	n := len(buf) - nul
	if nul == 2 {
		n &^= 1
	}
	copy(buf, rest[:n])
	clear(buf[n : n+nul])
	o.getOffset[col] += n
	o.diag = append(o.diag, api.DiagRec{State: "01004", Message: "String data, right truncated"})
	return api.SQLLEN(len(rest)), api.SQL_SUCCESS_WITH_INFO
}

func (b *Backend) RowCount(h api.SQLHSTMT) (api.SQLLEN, api.SQLRETURN) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.stmt(h)
	if o == nil {
		return 0, api.SQL_INVALID_HANDLE
	}
	if _, failed := b.enter("SQLRowCount", o); failed {
		return 0, api.SQL_ERROR
	}
	r := o.current()
	if r == nil {
		return -1, api.SQL_SUCCESS
	}
	return api.SQLLEN(r.RowCount), api.SQL_SUCCESS
}

func (b *Backend) MoreResults(h api.SQLHSTMT) api.SQLRETURN {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.stmt(h)
	if o == nil {
		return api.SQL_INVALID_HANDLE
	}
	if _, failed := b.enter("SQLMoreResults", o); failed {
		return api.SQL_ERROR
	}
	if o.cur+1 >= len(o.results) {
		o.results, o.cur, o.next = nil, 0, 0
		return api.SQL_NO_DATA
	}
	o.cur++
	o.next, o.batchStart, o.pos = 0, 0, 0
	return api.SQL_SUCCESS
}

func (b *Backend) FreeStmt(h api.SQLHSTMT, option api.SQLUSMALLINT) api.SQLRETURN {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.stmt(h)
	if o == nil {
		return api.SQL_INVALID_HANDLE
	}
	if _, failed := b.enter("SQLFreeStmt", o); failed {
		return api.SQL_ERROR
	}
	switch option {
	case api.SQL_CLOSE:
		o.results, o.cur, o.next = nil, 0, 0
	case api.SQL_UNBIND:
		o.cols = make(map[api.SQLUSMALLINT]colBinding)
		o.rowsFetched = nil
	case api.SQL_RESET_PARAMS:
		o.params = make(map[api.SQLUSMALLINT]paramBinding)
		o.processed = nil
	}
	return api.SQL_SUCCESS
}

func (b *Backend) Cancel(h api.SQLHSTMT) api.SQLRETURN {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.stmt(h)
	if o == nil {
		return api.SQL_INVALID_HANDLE
	}
	b.calls = append(b.calls, "SQLCancel")
	if o.cancel != nil {
		close(o.cancel)
		o.cancel = nil
	}
	return api.SQL_SUCCESS
}

func (b *Backend) GetDiagRec(typ api.SQLSMALLINT, h api.SQLHANDLE, rec api.SQLSMALLINT) (api.DiagRec, api.SQLRETURN) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.lookup(h, typ)
	if o == nil {
		return api.DiagRec{}, api.SQL_INVALID_HANDLE
	}
	if rec < 1 || int(rec) > len(o.diag) {
		return api.DiagRec{}, api.SQL_NO_DATA
	}
	return o.diag[rec-1], api.SQL_SUCCESS
}
