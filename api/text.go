// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api

import (
	"golang.org/x/text/encoding/unicode"
)

var wide = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// EncodeWide returns the SQLWCHAR encoding of s without a terminator.
func EncodeWide(s string) ([]byte, error) {
	return wide.NewEncoder().Bytes([]byte(s))
}

// EncodeWideZ returns the SQLWCHAR encoding of s with a terminating NUL.
func EncodeWideZ(s string) ([]byte, error) {
	b, err := EncodeWide(s)
	if err != nil {
		return nil, err
	}
	return append(b, 0, 0), nil
}

// DecodeWide returns the UTF-8 form of the SQLWCHAR sequence b,
// stopping at the first NUL.
func DecodeWide(b []byte) (string, error) {
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			b = b[:i]
			break
		}
	}
	if len(b)%2 != 0 {
		b = b[:len(b)-1]
	}
	s, err := wide.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(s), nil
}
