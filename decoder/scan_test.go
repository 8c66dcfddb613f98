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

package decoder

import (
	"testing"

	"github.com/clltk/tracekit/argcodec"
	"github.com/clltk/tracekit/tracepoint"
)

func TestScanVisitsEveryEntryAndAppliesFilter(t *testing.T) {
	buf := newTestBuffer(t)
	meta := buildMetaEntry(KindPrintf, 1, []byte{argcodec.TypeU32}, "a.c", "n=%u")
	offset, err := buf.Stack.Add(meta)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := tracepoint.Emit(nil, buf.Ring, offset, []argcodec.Arg{{Type: argcodec.TypeU32, U64: uint64(i)}}); err != nil {
			t.Fatalf("Emit: %v", err)
		}
	}

	var all []*Record
	Scan(buf, Filter{}, func(r *Record) bool {
		all = append(all, r)
		return true
	})
	if len(all) != 3 {
		t.Fatalf("got %d records, want 3", len(all))
	}

	var filtered []*Record
	Scan(buf, Filter{Match: func(r *Record) bool { return len(r.Args) == 1 && r.Args[0].U64 == 1 }}, func(r *Record) bool {
		filtered = append(filtered, r)
		return true
	})
	if len(filtered) != 1 {
		t.Fatalf("got %d filtered records, want 1", len(filtered))
	}
}

func TestScanStopsEarlyWhenCallbackReturnsFalse(t *testing.T) {
	buf := newTestBuffer(t)
	meta := buildMetaEntry(KindPrintf, 1, nil, "a.c", "hit")
	offset, err := buf.Stack.Add(meta)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := tracepoint.Emit(nil, buf.Ring, offset, nil); err != nil {
			t.Fatalf("Emit: %v", err)
		}
	}

	count := 0
	Scan(buf, Filter{}, func(r *Record) bool {
		count++
		return false
	})
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

// vim: foldmethod=marker
