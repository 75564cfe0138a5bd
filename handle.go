// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package turbodbc

import (
	"fmt"

	"github.com/david-engelmann/turbodbc/api"
)

// handle owns one native handle. release is safe to call more than
// once; only the first call frees the handle.
type handle struct {
	native api.Native
	stats  *Stats
	typ    api.SQLSMALLINT
	h      api.SQLHANDLE
}

func allocHandle(native api.Native, stats *Stats, typ api.SQLSMALLINT, parent *handle, kind error) (*handle, error) {
	in, inType := api.SQL_NULL_HANDLE, api.SQLSMALLINT(0)
	if parent != nil {
		in, inType = parent.h, parent.typ
	}
	out, ret := native.AllocHandle(typ, in)
	if IsError(ret) {
		if parent == nil {
			return nil, &Error{APIName: "SQLAllocHandle", Kind: kind, Msg: fmt.Sprintf("ret=%d", ret)}
		}
		return nil, newError(native, "SQLAllocHandle", kind, inType, in)
	}
	stats.updateHandleCount(typ, 1)
	return &handle{native: native, stats: stats, typ: typ, h: out}, nil
}

func (h *handle) error(apiName string, kind error) error {
	return newError(h.native, apiName, kind, h.typ, h.h)
}

func (h *handle) released() bool {
	return h == nil || h.h == api.SQL_NULL_HANDLE
}

func (h *handle) release() error {
	if h.released() {
		return nil
	}
	v := h.h
	ret := h.native.FreeHandle(h.typ, v)
	if ret == api.SQL_INVALID_HANDLE {
		return fmt.Errorf("SQLFreeHandle(%d, %d) returns SQL_INVALID_HANDLE", h.typ, v)
	}
	if IsError(ret) {
		return h.error("SQLFreeHandle", ErrInvalidState)
	}
	h.h = api.SQL_NULL_HANDLE
	h.stats.updateHandleCount(h.typ, -1)
	return nil
}
