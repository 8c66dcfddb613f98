// {{{ Copyright (c) tracekit contributors 2026
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE. }}}

package main

import (
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clltk/tracekit/definition"
)

func TestParseSourceKind(t *testing.T) {
	cases := []struct {
		in   string
		want definition.SourceKind
	}{
		{"userspace", definition.Userspace},
		{"", definition.Userspace},
		{"kernel", definition.Kernel},
		{"tty", definition.TTY},
	}
	for _, tc := range cases {
		got, err := parseSourceKind(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestParseSourceKindRejectsUnknown(t *testing.T) {
	_, err := parseSourceKind("bogus")
	assert.Error(t, err)
}

func TestMinTracebufferCapacityRejectsBelowMinimum(t *testing.T) {
	tooSmall := 1 * datasize.KB
	assert.Less(t, tooSmall, minTracebufferCapacity)

	fine := 64 * datasize.KB
	assert.GreaterOrEqual(t, fine, minTracebufferCapacity)
}

// vim: foldmethod=marker
