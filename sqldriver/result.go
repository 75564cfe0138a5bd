// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqldriver

import (
	"errors"
)

type Result struct {
	rowCount int64
}

func (r *Result) LastInsertId() (int64, error) {
	return 0, errors.New("turbodbc: LastInsertId is not supported by ODBC")
}

// RowsAffected returns the summed row counts of all results, or -1 when
// the driver did not report them.
func (r *Result) RowsAffected() (int64, error) {
	return r.rowCount, nil
}
