// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// LibraryPathEnv overrides the driver manager library location.
const LibraryPathEnv = "TURBODBC_LIBRARY_PATH"

// Library is the Native implementation backed by the system driver
// manager (unixODBC, iODBC or odbc32.dll), loaded at runtime.
type Library struct {
	Path string

	sqlAllocHandle    func(handleType SQLSMALLINT, input SQLHANDLE, output *SQLHANDLE) SQLRETURN
	sqlFreeHandle     func(handleType SQLSMALLINT, h SQLHANDLE) SQLRETURN
	sqlSetEnvAttr     func(env SQLHENV, attr SQLINTEGER, value uintptr, length SQLINTEGER) SQLRETURN
	sqlDataSources    func(env SQLHENV, direction SQLUSMALLINT, name *byte, nameMax SQLSMALLINT, nameLen *SQLSMALLINT, desc *byte, descMax SQLSMALLINT, descLen *SQLSMALLINT) SQLRETURN
	sqlDriverConnect  func(dbc SQLHDBC, hwnd uintptr, in *byte, inLen SQLSMALLINT, out *byte, outMax SQLSMALLINT, outLen *SQLSMALLINT, completion SQLUSMALLINT) SQLRETURN
	sqlDisconnect     func(dbc SQLHDBC) SQLRETURN
	sqlSetConnectAttr func(dbc SQLHDBC, attr SQLINTEGER, value uintptr, length SQLINTEGER) SQLRETURN
	sqlGetInfo        func(dbc SQLHDBC, infoType SQLUSMALLINT, value *byte, max SQLSMALLINT, length *SQLSMALLINT) SQLRETURN
	sqlEndTran        func(handleType SQLSMALLINT, h SQLHANDLE, completion SQLSMALLINT) SQLRETURN
	sqlExecDirect     func(stmt SQLHSTMT, text *byte, length SQLINTEGER) SQLRETURN
	sqlPrepare        func(stmt SQLHSTMT, text *byte, length SQLINTEGER) SQLRETURN
	sqlExecute        func(stmt SQLHSTMT) SQLRETURN
	sqlNumParams      func(stmt SQLHSTMT, count *SQLSMALLINT) SQLRETURN
	sqlNumResultCols  func(stmt SQLHSTMT, count *SQLSMALLINT) SQLRETURN
	sqlDescribeCol    func(stmt SQLHSTMT, col SQLUSMALLINT, name *byte, nameMax SQLSMALLINT, nameLen *SQLSMALLINT, dataType *SQLSMALLINT, size *SQLULEN, digits *SQLSMALLINT, nullable *SQLSMALLINT) SQLRETURN
	sqlBindCol        func(stmt SQLHSTMT, col SQLUSMALLINT, ctype SQLSMALLINT, value unsafe.Pointer, length SQLLEN, ind unsafe.Pointer) SQLRETURN
	sqlBindParameter  func(stmt SQLHSTMT, num SQLUSMALLINT, io SQLSMALLINT, ctype SQLSMALLINT, sqltype SQLSMALLINT, size SQLULEN, digits SQLSMALLINT, value unsafe.Pointer, length SQLLEN, ind unsafe.Pointer) SQLRETURN
	sqlSetStmtAttr    func(stmt SQLHSTMT, attr SQLINTEGER, value uintptr, length SQLINTEGER) SQLRETURN
	sqlSetStmtAttrPtr func(stmt SQLHSTMT, attr SQLINTEGER, value unsafe.Pointer, length SQLINTEGER) SQLRETURN
	sqlFetch          func(stmt SQLHSTMT) SQLRETURN
	sqlSetPos         func(stmt SQLHSTMT, row SQLULEN, op SQLUSMALLINT, lock SQLUSMALLINT) SQLRETURN
	sqlGetData        func(stmt SQLHSTMT, col SQLUSMALLINT, ctype SQLSMALLINT, value *byte, length SQLLEN, ind *SQLLEN) SQLRETURN
	sqlRowCount       func(stmt SQLHSTMT, count *SQLLEN) SQLRETURN
	sqlMoreResults    func(stmt SQLHSTMT) SQLRETURN
	sqlFreeStmt       func(stmt SQLHSTMT, option SQLUSMALLINT) SQLRETURN
	sqlCancel         func(stmt SQLHSTMT) SQLRETURN
	sqlGetDiagRec     func(handleType SQLSMALLINT, h SQLHANDLE, rec SQLSMALLINT, state *byte, native *SQLINTEGER, msg *byte, msgMax SQLSMALLINT, msgLen *SQLSMALLINT) SQLRETURN
}

var (
	defaultOnce sync.Once
	defaultLib  *Library
	defaultErr  error
)

// Default loads the driver manager once per process and returns it.
func Default() (*Library, error) {
	defaultOnce.Do(func() {
		defaultLib, defaultErr = Load(libraryPath())
	})
	return defaultLib, defaultErr
}

func libraryPath() string {
	if p := os.Getenv(LibraryPathEnv); p != "" {
		return p
	}
	switch runtime.GOOS {
	case "windows":
		return "odbc32.dll"
	case "darwin":
		for _, p := range []string{
			"/opt/homebrew/lib/libodbc.2.dylib",
			"/usr/local/lib/libodbc.2.dylib",
		} {
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
		return "libodbc.2.dylib"
	default:
		return "libodbc.so.2"
	}
}

// Load opens the driver manager at path and resolves every entry point.
func Load(path string) (*Library, error) {
	h, err := openLibrary(path)
	if err != nil {
		return nil, fmt.Errorf("odbc: loading %q: %w (set %s to override)", path, err, LibraryPathEnv)
	}
	l := &Library{Path: path}
	purego.RegisterLibFunc(&l.sqlAllocHandle, h, "SQLAllocHandle")
	purego.RegisterLibFunc(&l.sqlFreeHandle, h, "SQLFreeHandle")
	purego.RegisterLibFunc(&l.sqlSetEnvAttr, h, "SQLSetEnvAttr")
	purego.RegisterLibFunc(&l.sqlDataSources, h, "SQLDataSourcesW")
	purego.RegisterLibFunc(&l.sqlDriverConnect, h, "SQLDriverConnectW")
	purego.RegisterLibFunc(&l.sqlDisconnect, h, "SQLDisconnect")
	purego.RegisterLibFunc(&l.sqlSetConnectAttr, h, "SQLSetConnectAttrW")
	purego.RegisterLibFunc(&l.sqlGetInfo, h, "SQLGetInfoW")
	purego.RegisterLibFunc(&l.sqlEndTran, h, "SQLEndTran")
	purego.RegisterLibFunc(&l.sqlExecDirect, h, "SQLExecDirectW")
	purego.RegisterLibFunc(&l.sqlPrepare, h, "SQLPrepareW")
	purego.RegisterLibFunc(&l.sqlExecute, h, "SQLExecute")
	purego.RegisterLibFunc(&l.sqlNumParams, h, "SQLNumParams")
	purego.RegisterLibFunc(&l.sqlNumResultCols, h, "SQLNumResultCols")
	purego.RegisterLibFunc(&l.sqlDescribeCol, h, "SQLDescribeColW")
	purego.RegisterLibFunc(&l.sqlBindCol, h, "SQLBindCol")
	purego.RegisterLibFunc(&l.sqlBindParameter, h, "SQLBindParameter")
	purego.RegisterLibFunc(&l.sqlSetStmtAttr, h, "SQLSetStmtAttrW")
	purego.RegisterLibFunc(&l.sqlSetStmtAttrPtr, h, "SQLSetStmtAttrW")
	purego.RegisterLibFunc(&l.sqlFetch, h, "SQLFetch")
	purego.RegisterLibFunc(&l.sqlSetPos, h, "SQLSetPos")
	purego.RegisterLibFunc(&l.sqlGetData, h, "SQLGetData")
	purego.RegisterLibFunc(&l.sqlRowCount, h, "SQLRowCount")
	purego.RegisterLibFunc(&l.sqlMoreResults, h, "SQLMoreResults")
	purego.RegisterLibFunc(&l.sqlFreeStmt, h, "SQLFreeStmt")
	purego.RegisterLibFunc(&l.sqlCancel, h, "SQLCancel")
	purego.RegisterLibFunc(&l.sqlGetDiagRec, h, "SQLGetDiagRecW")
	return l, nil
}

func (l *Library) AllocHandle(handleType SQLSMALLINT, input SQLHANDLE) (SQLHANDLE, SQLRETURN) {
	var out SQLHANDLE
	ret := l.sqlAllocHandle(handleType, input, &out)
	return out, ret
}

func (l *Library) FreeHandle(handleType SQLSMALLINT, h SQLHANDLE) SQLRETURN {
	return l.sqlFreeHandle(handleType, h)
}

func (l *Library) SetEnvAttr(env SQLHENV, attr SQLINTEGER, value uintptr) SQLRETURN {
	return l.sqlSetEnvAttr(env, attr, value, 0)
}

func (l *Library) DataSources(env SQLHENV, direction SQLUSMALLINT) (string, string, SQLRETURN) {
	var name, desc [1024]byte
	var nameLen, descLen SQLSMALLINT
	ret := l.sqlDataSources(env, direction, &name[0], SQLSMALLINT(len(name)/2), &nameLen,
		&desc[0], SQLSMALLINT(len(desc)/2), &descLen)
	if !Succeeded(ret) {
		return "", "", ret
	}
	n, _ := DecodeWide(name[:])
	d, _ := DecodeWide(desc[:])
	return n, d, ret
}

func (l *Library) DriverConnect(dbc SQLHDBC, connStr string) SQLRETURN {
	b, err := EncodeWideZ(connStr)
	if err != nil {
		return SQL_ERROR
	}
	var outLen SQLSMALLINT
	ret := l.sqlDriverConnect(dbc, 0, &b[0], SQLSMALLINT(SQL_NTS), nil, 0, &outLen, SQL_DRIVER_NOPROMPT)
	runtime.KeepAlive(b)
	return ret
}

func (l *Library) Disconnect(dbc SQLHDBC) SQLRETURN {
	return l.sqlDisconnect(dbc)
}

func (l *Library) SetConnectAttr(dbc SQLHDBC, attr SQLINTEGER, value uintptr) SQLRETURN {
	return l.sqlSetConnectAttr(dbc, attr, value, 0)
}

func (l *Library) GetInfoString(dbc SQLHDBC, infoType SQLUSMALLINT) (string, SQLRETURN) {
	var buf [512]byte
	var n SQLSMALLINT
	ret := l.sqlGetInfo(dbc, infoType, &buf[0], SQLSMALLINT(len(buf)), &n)
	if !Succeeded(ret) {
		return "", ret
	}
	if int(n) < len(buf) {
		s, _ := DecodeWide(buf[:n])
		return s, ret
	}
	s, _ := DecodeWide(buf[:])
	return s, ret
}

func (l *Library) GetInfoUint(dbc SQLHDBC, infoType SQLUSMALLINT) (uint32, SQLRETURN) {
	var v uint32
	var n SQLSMALLINT
	ret := l.sqlGetInfo(dbc, infoType, (*byte)(unsafe.Pointer(&v)), 4, &n)
	return v, ret
}

func (l *Library) EndTran(handleType SQLSMALLINT, h SQLHANDLE, completion SQLSMALLINT) SQLRETURN {
	return l.sqlEndTran(handleType, h, completion)
}

func (l *Library) ExecDirect(stmt SQLHSTMT, text string) SQLRETURN {
	b, err := EncodeWideZ(text)
	if err != nil {
		return SQL_ERROR
	}
	ret := l.sqlExecDirect(stmt, &b[0], SQL_NTS)
	runtime.KeepAlive(b)
	return ret
}

func (l *Library) Prepare(stmt SQLHSTMT, text string) SQLRETURN {
	b, err := EncodeWideZ(text)
	if err != nil {
		return SQL_ERROR
	}
	ret := l.sqlPrepare(stmt, &b[0], SQL_NTS)
	runtime.KeepAlive(b)
	return ret
}

func (l *Library) Execute(stmt SQLHSTMT) SQLRETURN {
	return l.sqlExecute(stmt)
}

func (l *Library) NumParams(stmt SQLHSTMT) (SQLSMALLINT, SQLRETURN) {
	var n SQLSMALLINT
	ret := l.sqlNumParams(stmt, &n)
	return n, ret
}

func (l *Library) NumResultCols(stmt SQLHSTMT) (SQLSMALLINT, SQLRETURN) {
	var n SQLSMALLINT
	ret := l.sqlNumResultCols(stmt, &n)
	return n, ret
}

func (l *Library) DescribeCol(stmt SQLHSTMT, col SQLUSMALLINT) (ColumnInfo, SQLRETURN) {
	var (
		name    [512]byte
		nameLen SQLSMALLINT
		ci      ColumnInfo
	)
	ret := l.sqlDescribeCol(stmt, col, &name[0], SQLSMALLINT(len(name)/2), &nameLen,
		&ci.DataType, &ci.Size, &ci.DecimalDigits, &ci.Nullable)
	if !Succeeded(ret) {
		return ci, ret
	}
	ci.Name, _ = DecodeWide(name[:])
	return ci, ret
}

func (l *Library) BindCol(stmt SQLHSTMT, col SQLUSMALLINT, ctype SQLSMALLINT, buf []byte, elemLen SQLLEN, ind []SQLLEN) SQLRETURN {
	return l.sqlBindCol(stmt, col, ctype, bufferPointer(buf), elemLen, indicatorPointer(ind))
}

func (l *Library) BindParameter(stmt SQLHSTMT, num SQLUSMALLINT, ctype, sqltype SQLSMALLINT, size SQLULEN, digits SQLSMALLINT, buf []byte, elemLen SQLLEN, ind []SQLLEN) SQLRETURN {
	return l.sqlBindParameter(stmt, num, SQL_PARAM_INPUT, ctype, sqltype, size, digits,
		bufferPointer(buf), elemLen, indicatorPointer(ind))
}

func (l *Library) SetStmtAttr(stmt SQLHSTMT, attr SQLINTEGER, value uintptr) SQLRETURN {
	return l.sqlSetStmtAttr(stmt, attr, value, 0)
}

func (l *Library) SetStmtAttrPtr(stmt SQLHSTMT, attr SQLINTEGER, p unsafe.Pointer) SQLRETURN {
	return l.sqlSetStmtAttrPtr(stmt, attr, p, 0)
}

func (l *Library) Fetch(stmt SQLHSTMT) SQLRETURN {
	return l.sqlFetch(stmt)
}

func (l *Library) SetPos(stmt SQLHSTMT, row SQLULEN, op, lock SQLUSMALLINT) SQLRETURN {
	return l.sqlSetPos(stmt, row, op, lock)
}

func (l *Library) GetData(stmt SQLHSTMT, col SQLUSMALLINT, ctype SQLSMALLINT, buf []byte) (SQLLEN, SQLRETURN) {
	var ind SQLLEN
	var p *byte
	if len(buf) > 0 {
		p = &buf[0]
	}
	ret := l.sqlGetData(stmt, col, ctype, p, SQLLEN(len(buf)), &ind)
	return ind, ret
}

func (l *Library) RowCount(stmt SQLHSTMT) (SQLLEN, SQLRETURN) {
	var n SQLLEN
	ret := l.sqlRowCount(stmt, &n)
	return n, ret
}

func (l *Library) MoreResults(stmt SQLHSTMT) SQLRETURN {
	return l.sqlMoreResults(stmt)
}

func (l *Library) FreeStmt(stmt SQLHSTMT, option SQLUSMALLINT) SQLRETURN {
	return l.sqlFreeStmt(stmt, option)
}

func (l *Library) Cancel(stmt SQLHSTMT) SQLRETURN {
	return l.sqlCancel(stmt)
}

func (l *Library) GetDiagRec(handleType SQLSMALLINT, h SQLHANDLE, rec SQLSMALLINT) (DiagRec, SQLRETURN) {
	var (
		state  [(SQL_SQLSTATE_SIZE + 1) * 2]byte
		msg    [SQL_MAX_MESSAGE_LENGTH * 2]byte
		native SQLINTEGER
		n      SQLSMALLINT
	)
	ret := l.sqlGetDiagRec(handleType, h, rec, &state[0], &native, &msg[0], SQL_MAX_MESSAGE_LENGTH, &n)
	if !Succeeded(ret) {
		return DiagRec{}, ret
	}
	s, _ := DecodeWide(state[:])
	m, _ := DecodeWide(msg[:])
	return DiagRec{State: s, NativeError: native, Message: m}, ret
}

func bufferPointer(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Pointer(&b[0])
}

func indicatorPointer(ind []SQLLEN) unsafe.Pointer {
	if len(ind) == 0 {
		return nil
	}
	return unsafe.Pointer(&ind[0])
}

var _ Native = (*Library)(nil)
