// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package turbodbc

import (
	"fmt"
	"sync"

	"github.com/david-engelmann/turbodbc/api"
)

// HandleCounts is a point in time view of native handle usage.
type HandleCounts struct {
	Environments int
	Connections  int
	Statements   int
	// PeakStatements is the largest number of statement handles that
	// were open at the same time.
	PeakStatements int
	// Allocated counts every handle allocated so far, including freed ones.
	Allocated int
}

// Stats tracks the native handles allocated through an Environment.
type Stats struct {
	mu     sync.Mutex
	counts HandleCounts
}

func (s *Stats) updateHandleCount(handleType api.SQLSMALLINT, change int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.counts
	switch handleType {
	case api.SQL_HANDLE_ENV:
		c.Environments += change
	case api.SQL_HANDLE_DBC:
		c.Connections += change
	case api.SQL_HANDLE_STMT:
		c.Statements += change
		c.PeakStatements = max(c.PeakStatements, c.Statements)
	default:
		panic(fmt.Errorf("unexpected handle type %d", handleType))
	}
	if change > 0 {
		c.Allocated += change
	}
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() HandleCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts
}
