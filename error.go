// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package turbodbc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/david-engelmann/turbodbc/api"
)

// Error kinds. Every *Error unwraps to exactly one of these, so callers
// can classify failures with errors.Is.
var (
	ErrConnection              = errors.New("connection error")
	ErrExecution               = errors.New("execution error")
	ErrInvalidState            = errors.New("invalid state")
	ErrUnsupportedType         = errors.New("unsupported type")
	ErrTypeMismatch            = errors.New("type mismatch")
	ErrMalformedParameterBatch = errors.New("malformed parameter batch")
	ErrTruncation              = errors.New("truncation")
)

// IsError reports whether ret is a native failure.
func IsError(ret api.SQLRETURN) bool {
	return !api.Succeeded(ret)
}

type DiagRecord struct {
	State       string
	NativeError int
	Message     string
}

func (r *DiagRecord) String() string {
	return fmt.Sprintf("{%s} %s", r.State, r.Message)
}

// Error is returned by every engine operation that fails.
type Error struct {
	APIName string
	Kind    error
	Msg     string
	Diag    []DiagRecord
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("turbodbc: ")
	b.WriteString(e.APIName)
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	for i := range e.Diag {
		b.WriteString("\n")
		b.WriteString(e.Diag[i].String())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// SQLState returns the state of the first diagnostic record, or "".
func (e *Error) SQLState() string {
	if len(e.Diag) == 0 {
		return ""
	}
	return e.Diag[0].State
}

func newStateError(op, format string, args ...interface{}) error {
	return &Error{APIName: op, Kind: ErrInvalidState, Msg: fmt.Sprintf(format, args...)}
}

func newKindError(op string, kind error, format string, args ...interface{}) error {
	return &Error{APIName: op, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// newError collects all diagnostic records attached to h after a
// failed call to apiName.
func newError(native api.Native, apiName string, kind error, ht api.SQLSMALLINT, h api.SQLHANDLE) error {
	err := &Error{APIName: apiName, Kind: kind}
	err.Diag = diagRecords(native, ht, h)
	return err
}

func diagRecords(native api.Native, ht api.SQLSMALLINT, h api.SQLHANDLE) []DiagRecord {
	var recs []DiagRecord
	for i := 1; ; i++ {
		r, ret := native.GetDiagRec(ht, h, api.SQLSMALLINT(i))
		if ret == api.SQL_NO_DATA || IsError(ret) {
			break
		}
		recs = append(recs, DiagRecord{
			State:       r.State,
			NativeError: int(r.NativeError),
			Message:     r.Message,
		})
	}
	return recs
}

// IsConnectionLost reports whether err carries a connection exception
// (SQLSTATE class 08).
func IsConnectionLost(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	for _, r := range e.Diag {
		if strings.HasPrefix(r.State, "08") {
			return true
		}
	}
	return false
}
