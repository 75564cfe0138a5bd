// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package api holds the ODBC types, constants and native entry points
// used by the turbodbc engine.
package api

import "unsafe"

type (
	SQLHANDLE uintptr
	SQLHENV   = SQLHANDLE
	SQLHDBC   = SQLHANDLE
	SQLHSTMT  = SQLHANDLE

	SQLSMALLINT  int16
	SQLUSMALLINT uint16
	SQLINTEGER   int32
	SQLUINTEGER  uint32
	SQLLEN       int64
	SQLULEN      uint64
	SQLRETURN    int16
	SQLWCHAR     uint16
)

type (
	SQL_DATE_STRUCT struct {
		Year  SQLSMALLINT
		Month SQLUSMALLINT
		Day   SQLUSMALLINT
	}

	SQL_TIME_STRUCT struct {
		Hour   SQLUSMALLINT
		Minute SQLUSMALLINT
		Second SQLUSMALLINT
	}

	SQL_TIMESTAMP_STRUCT struct {
		Year     SQLSMALLINT
		Month    SQLUSMALLINT
		Day      SQLUSMALLINT
		Hour     SQLUSMALLINT
		Minute   SQLUSMALLINT
		Second   SQLUSMALLINT
		Fraction SQLUINTEGER // nanoseconds
	}

	SQLGUID struct {
		Data1 uint32
		Data2 uint16
		Data3 uint16
		Data4 [8]byte
	}
)

// Sizes of the C structs above as the driver lays them out.
const (
	DateStructSize      = 6
	TimeStructSize      = 6
	TimestampStructSize = 16
	GUIDStructSize      = 16
)

const (
	SQL_HANDLE_ENV  SQLSMALLINT = 1
	SQL_HANDLE_DBC  SQLSMALLINT = 2
	SQL_HANDLE_STMT SQLSMALLINT = 3

	SQL_NULL_HANDLE SQLHANDLE = 0
)

const (
	SQL_SUCCESS           SQLRETURN = 0
	SQL_SUCCESS_WITH_INFO SQLRETURN = 1
	SQL_STILL_EXECUTING   SQLRETURN = 2
	SQL_NEED_DATA         SQLRETURN = 99
	SQL_NO_DATA           SQLRETURN = 100
	SQL_ERROR             SQLRETURN = -1
	SQL_INVALID_HANDLE    SQLRETURN = -2
)

const (
	SQL_NTS          SQLINTEGER = -3
	SQL_NULL_DATA    SQLLEN     = -1
	SQL_DATA_AT_EXEC SQLLEN     = -2
	SQL_NO_TOTAL     SQLLEN     = -4

	SQL_MAX_MESSAGE_LENGTH = 512
	SQL_SQLSTATE_SIZE      = 5
)

const (
	SQL_ATTR_ODBC_VERSION SQLINTEGER = 200
	SQL_OV_ODBC3                     = 3

	SQL_FETCH_NEXT  SQLUSMALLINT = 1
	SQL_FETCH_FIRST SQLUSMALLINT = 2

	SQL_DRIVER_NOPROMPT SQLUSMALLINT = 0
)

// Connection attributes.
const (
	SQL_ATTR_AUTOCOMMIT    SQLINTEGER = 102
	SQL_ATTR_LOGIN_TIMEOUT SQLINTEGER = 103

	SQL_AUTOCOMMIT_OFF = 0
	SQL_AUTOCOMMIT_ON  = 1
)

// Statement attributes.
const (
	SQL_ATTR_QUERY_TIMEOUT        SQLINTEGER = 0
	SQL_ATTR_PARAM_BIND_TYPE      SQLINTEGER = 18
	SQL_ATTR_PARAMS_PROCESSED_PTR SQLINTEGER = 21
	SQL_ATTR_PARAMSET_SIZE        SQLINTEGER = 22
	SQL_ATTR_ROW_BIND_TYPE        SQLINTEGER = 5
	SQL_ATTR_ROWS_FETCHED_PTR     SQLINTEGER = 26
	SQL_ATTR_ROW_ARRAY_SIZE       SQLINTEGER = 27
	SQL_ATTR_PARAM_STATUS_PTR     SQLINTEGER = 20
	SQL_PARAM_BIND_BY_COLUMN                 = 0
	SQL_BIND_BY_COLUMN                       = 0
)

const (
	SQL_CLOSE        SQLUSMALLINT = 0
	SQL_UNBIND       SQLUSMALLINT = 2
	SQL_RESET_PARAMS SQLUSMALLINT = 3

	SQL_COMMIT   SQLSMALLINT = 0
	SQL_ROLLBACK SQLSMALLINT = 1

	SQL_POSITION       SQLUSMALLINT = 0
	SQL_LOCK_NO_CHANGE SQLUSMALLINT = 0

	SQL_PARAM_INPUT SQLSMALLINT = 1

	SQL_NO_NULLS         SQLSMALLINT = 0
	SQL_NULLABLE         SQLSMALLINT = 1
	SQL_NULLABLE_UNKNOWN SQLSMALLINT = 2
)

// SQLGetInfo types and bitmasks.
const (
	SQL_DRIVER_NAME            SQLUSMALLINT = 6
	SQL_DBMS_NAME              SQLUSMALLINT = 17
	SQL_DBMS_VER               SQLUSMALLINT = 18
	SQL_MULT_RESULT_SETS       SQLUSMALLINT = 36
	SQL_GETDATA_EXTENSIONS     SQLUSMALLINT = 81
	SQL_PARAM_ARRAY_ROW_COUNTS SQLUSMALLINT = 153

	SQL_GD_ANY_COLUMN = 1
	SQL_GD_ANY_ORDER  = 2
	SQL_GD_BLOCK      = 4
	SQL_GD_BOUND      = 8

	SQL_PARC_BATCH    = 1
	SQL_PARC_NO_BATCH = 2
)

// SQL data types.
const (
	SQL_UNKNOWN_TYPE   SQLSMALLINT = 0
	SQL_CHAR           SQLSMALLINT = 1
	SQL_NUMERIC        SQLSMALLINT = 2
	SQL_DECIMAL        SQLSMALLINT = 3
	SQL_INTEGER        SQLSMALLINT = 4
	SQL_SMALLINT       SQLSMALLINT = 5
	SQL_FLOAT          SQLSMALLINT = 6
	SQL_REAL           SQLSMALLINT = 7
	SQL_DOUBLE         SQLSMALLINT = 8
	SQL_DATE           SQLSMALLINT = 9
	SQL_TIME           SQLSMALLINT = 10
	SQL_TIMESTAMP      SQLSMALLINT = 11
	SQL_VARCHAR        SQLSMALLINT = 12
	SQL_BOOLEAN        SQLSMALLINT = 16
	SQL_TYPE_DATE      SQLSMALLINT = 91
	SQL_TYPE_TIME      SQLSMALLINT = 92
	SQL_TYPE_TIMESTAMP SQLSMALLINT = 93
	SQL_LONGVARCHAR    SQLSMALLINT = -1
	SQL_BINARY         SQLSMALLINT = -2
	SQL_VARBINARY      SQLSMALLINT = -3
	SQL_LONGVARBINARY  SQLSMALLINT = -4
	SQL_BIGINT         SQLSMALLINT = -5
	SQL_TINYINT        SQLSMALLINT = -6
	SQL_BIT            SQLSMALLINT = -7
	SQL_WCHAR          SQLSMALLINT = -8
	SQL_WVARCHAR       SQLSMALLINT = -9
	SQL_WLONGVARCHAR   SQLSMALLINT = -10
	SQL_GUID           SQLSMALLINT = -11

	// Microsoft SQL Server specific types.
	SQL_SS_XML   SQLSMALLINT = -152
	SQL_SS_TIME2 SQLSMALLINT = -154
)

// C data types.
const (
	SQL_C_CHAR           = SQL_CHAR
	SQL_C_WCHAR          = SQL_WCHAR
	SQL_C_DOUBLE         = SQL_DOUBLE
	SQL_C_BIT            = SQL_BIT
	SQL_C_BINARY         = SQL_BINARY
	SQL_C_SBIGINT        = SQL_BIGINT - 20
	SQL_C_TYPE_DATE      = SQL_TYPE_DATE
	SQL_C_TYPE_TIME      = SQL_TYPE_TIME
	SQL_C_TYPE_TIMESTAMP = SQL_TYPE_TIMESTAMP
	SQL_C_GUID           = SQL_GUID
)

// ColumnInfo is what SQLDescribeCol reports for one result column.
type ColumnInfo struct {
	Name          string
	DataType      SQLSMALLINT
	Size          SQLULEN
	DecimalDigits SQLSMALLINT
	Nullable      SQLSMALLINT
}

// DiagRec is one SQLGetDiagRec record.
type DiagRec struct {
	State       string
	NativeError SQLINTEGER
	Message     string
}

// Native is the set of ODBC calls the engine issues. Buffers handed to
// BindCol, BindParameter and SetStmtAttrPtr are retained by the
// implementation until the statement is unbound, reset or freed; the
// caller keeps them alive and pinned for that long.
type Native interface {
	AllocHandle(handleType SQLSMALLINT, input SQLHANDLE) (SQLHANDLE, SQLRETURN)
	FreeHandle(handleType SQLSMALLINT, h SQLHANDLE) SQLRETURN
	SetEnvAttr(env SQLHENV, attr SQLINTEGER, value uintptr) SQLRETURN
	DataSources(env SQLHENV, direction SQLUSMALLINT) (name, description string, ret SQLRETURN)

	DriverConnect(dbc SQLHDBC, connStr string) SQLRETURN
	Disconnect(dbc SQLHDBC) SQLRETURN
	SetConnectAttr(dbc SQLHDBC, attr SQLINTEGER, value uintptr) SQLRETURN
	GetInfoString(dbc SQLHDBC, infoType SQLUSMALLINT) (string, SQLRETURN)
	GetInfoUint(dbc SQLHDBC, infoType SQLUSMALLINT) (uint32, SQLRETURN)
	EndTran(handleType SQLSMALLINT, h SQLHANDLE, completion SQLSMALLINT) SQLRETURN

	ExecDirect(stmt SQLHSTMT, text string) SQLRETURN
	Prepare(stmt SQLHSTMT, text string) SQLRETURN
	Execute(stmt SQLHSTMT) SQLRETURN
	NumParams(stmt SQLHSTMT) (SQLSMALLINT, SQLRETURN)
	NumResultCols(stmt SQLHSTMT) (SQLSMALLINT, SQLRETURN)
	DescribeCol(stmt SQLHSTMT, col SQLUSMALLINT) (ColumnInfo, SQLRETURN)
	BindCol(stmt SQLHSTMT, col SQLUSMALLINT, ctype SQLSMALLINT, buf []byte, elemLen SQLLEN, ind []SQLLEN) SQLRETURN
	BindParameter(stmt SQLHSTMT, num SQLUSMALLINT, ctype, sqltype SQLSMALLINT, size SQLULEN, digits SQLSMALLINT, buf []byte, elemLen SQLLEN, ind []SQLLEN) SQLRETURN
	SetStmtAttr(stmt SQLHSTMT, attr SQLINTEGER, value uintptr) SQLRETURN
	SetStmtAttrPtr(stmt SQLHSTMT, attr SQLINTEGER, p unsafe.Pointer) SQLRETURN
	Fetch(stmt SQLHSTMT) SQLRETURN
	SetPos(stmt SQLHSTMT, row SQLULEN, op, lock SQLUSMALLINT) SQLRETURN
	GetData(stmt SQLHSTMT, col SQLUSMALLINT, ctype SQLSMALLINT, buf []byte) (SQLLEN, SQLRETURN)
	RowCount(stmt SQLHSTMT) (SQLLEN, SQLRETURN)
	MoreResults(stmt SQLHSTMT) SQLRETURN
	FreeStmt(stmt SQLHSTMT, option SQLUSMALLINT) SQLRETURN
	Cancel(stmt SQLHSTMT) SQLRETURN

	GetDiagRec(handleType SQLSMALLINT, h SQLHANDLE, rec SQLSMALLINT) (DiagRec, SQLRETURN)
}

// Succeeded reports whether ret is SQL_SUCCESS or SQL_SUCCESS_WITH_INFO.
func Succeeded(ret SQLRETURN) bool {
	return ret == SQL_SUCCESS || ret == SQL_SUCCESS_WITH_INFO
}
