// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWideRoundTrip(t *testing.T) {
	for _, s := range []string{"", "a", "SELECT 42", "grüße", "日本語", "𝄞 clef"} {
		b, err := EncodeWide(s)
		require.NoError(t, err)
		assert.Equal(t, 0, len(b)%2, s)
		got, err := DecodeWide(b)
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestDecodeWideStopsAtNUL(t *testing.T) {
	b, err := EncodeWideZ("abc")
	require.NoError(t, err)
	b = append(b, 'x', 0)
	s, err := DecodeWide(b)
	require.NoError(t, err)
	assert.Equal(t, "abc", s)
}

func TestSucceeded(t *testing.T) {
	var tests = []struct {
		ret SQLRETURN
		ok  bool
	}{
		{SQL_SUCCESS, true},
		{SQL_SUCCESS_WITH_INFO, true},
		{SQL_NO_DATA, false},
		{SQL_ERROR, false},
		{SQL_INVALID_HANDLE, false},
	}
	for _, test := range tests {
		assert.Equal(t, test.ok, Succeeded(test.ret), "ret=%d", test.ret)
	}
}
