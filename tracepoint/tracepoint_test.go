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

package tracepoint

import (
	"os"
	"testing"

	"github.com/clltk/tracekit/argcodec"
	"github.com/clltk/tracekit/ringbuffer"
)

func newTestRing(t *testing.T, bodyBytes int) *ringbuffer.Ring {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "ring-*.bin")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	total := ringbuffer.HeaderSize + bodyBytes
	if err := f.Truncate(int64(total)); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	region := make([]byte, total)
	r, err := ringbuffer.Init(f, 0, region)
	if err != nil {
		t.Fatalf("ringbuffer.Init: %v", err)
	}
	return r
}

func TestEmitAppendsOneEntry(t *testing.T) {
	r := newTestRing(t, 4096)

	args := []argcodec.Arg{{Type: argcodec.TypeU32, U64: 42}}
	if err := Emit(nil, r, StaticOffsetMin+1, args); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	out := make([]byte, 256)
	n, err := r.Out(out)
	if err != nil {
		t.Fatalf("Out: %v", err)
	}
	if n != headSize+4 {
		t.Fatalf("entry size = %d, want %d", n, headSize+4)
	}
}

func TestEmitDropsNonStaticOffset(t *testing.T) {
	r := newTestRing(t, 4096)
	err := Emit(nil, r, OffsetDynamic, nil)
	if err == nil {
		t.Fatalf("expected a recoverable error for a non-static offset")
	}
	if !r.IsEmpty() {
		t.Fatalf("ring should remain empty after a dropped entry")
	}
}

func TestEmitDumpLaysOutSizePrefixThenBytes(t *testing.T) {
	r := newTestRing(t, 4096)
	data := []byte{1, 2, 3, 4, 5}
	if err := EmitDump(nil, r, StaticOffsetMin, data); err != nil {
		t.Fatalf("EmitDump: %v", err)
	}

	out := make([]byte, 256)
	n, err := r.Out(out)
	if err != nil {
		t.Fatalf("Out: %v", err)
	}
	if n != headSize+4+len(data) {
		t.Fatalf("entry size = %d, want %d", n, headSize+4+len(data))
	}
}

func TestEmitDynamicEntryCarriesFileLineMessage(t *testing.T) {
	r := newTestRing(t, 4096)
	if err := EmitDynamic(nil, r, "main.go", 17, "hello world"); err != nil {
		t.Fatalf("EmitDynamic: %v", err)
	}

	out := make([]byte, 256)
	n, err := r.Out(out)
	if err != nil {
		t.Fatalf("Out: %v", err)
	}
	wantLen := headSize + len("main.go") + 1 + 4 + len("hello world") + 1
	if n != wantLen {
		t.Fatalf("entry size = %d, want %d", n, wantLen)
	}

	offset := uint64(out[0]) | uint64(out[1])<<8 | uint64(out[2])<<16
	if offset != OffsetDynamic {
		t.Fatalf("offset = 0x%x, want OffsetDynamic", offset)
	}
}

// vim: foldmethod=marker
