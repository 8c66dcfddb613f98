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

package crc8

import "testing"

func TestSumEmpty(t *testing.T) {
	if got := Sum(nil); got != 0 {
		t.Fatalf("Sum(nil) = %#x, want 0", got)
	}
}

func TestUpdateMatchesSumOfConcatenation(t *testing.T) {
	a := []byte("tracebuffer")
	b := []byte("-header")

	whole := Sum(append(append([]byte{}, a...), b...))

	split := Update(Update(0, a), b)

	if whole != split {
		t.Fatalf("split update = %#x, whole sum = %#x", split, whole)
	}
}

func TestSingleBitFlipChangesChecksum(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	want := Sum(data)

	for i := range data {
		flipped := append([]byte{}, data...)
		flipped[i] ^= 0x01
		if got := Sum(flipped); got == want {
			t.Fatalf("flipping bit in byte %d did not change CRC: still %#x", i, got)
		}
	}
}

// vim: foldmethod=marker
