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

import "testing"

func TestOrderedBufferReleasesInTimestampOrder(t *testing.T) {
	ob := NewOrderedBuffer(10)
	ob.Push(&Record{TimestampNS: 30})
	ob.Push(&Record{TimestampNS: 10})
	ob.Push(&Record{TimestampNS: 20})

	ob.UpdateWatermark(25)
	ready := ob.PopAllReady()
	if len(ready) != 2 {
		t.Fatalf("got %d ready records, want 2", len(ready))
	}
	if ready[0].TimestampNS != 10 || ready[1].TimestampNS != 20 {
		t.Fatalf("order = %d, %d", ready[0].TimestampNS, ready[1].TimestampNS)
	}

	if _, ok := ob.Pop(); ok {
		t.Fatalf("record at ts=30 should not be ready yet")
	}

	ob.UpdateWatermark(100)
	r, ok := ob.Pop()
	if !ok || r.TimestampNS != 30 {
		t.Fatalf("Pop() = %+v, %v", r, ok)
	}
}

func TestOrderedBufferDropsWhenFull(t *testing.T) {
	ob := NewOrderedBuffer(2)
	ob.Push(&Record{TimestampNS: 1})
	ob.Push(&Record{TimestampNS: 2})
	ob.Push(&Record{TimestampNS: 3})

	stats := ob.Stats()
	if stats.Dropped != 1 {
		t.Fatalf("Dropped = %d, want 1", stats.Dropped)
	}
	if stats.CurrentSize != 2 {
		t.Fatalf("CurrentSize = %d, want 2", stats.CurrentSize)
	}
	if stats.HighWaterMark != 2 {
		t.Fatalf("HighWaterMark = %d, want 2", stats.HighWaterMark)
	}
}

func TestOrderedBufferFinishDrainsEverything(t *testing.T) {
	ob := NewOrderedBuffer(10)
	ob.Push(&Record{TimestampNS: 5})
	ob.Push(&Record{TimestampNS: 1})

	all := ob.Finish()
	if len(all) != 2 || all[0].TimestampNS != 1 || all[1].TimestampNS != 5 {
		t.Fatalf("Finish() = %+v", all)
	}
	if ob.Len() != 0 {
		t.Fatalf("buffer not empty after Finish")
	}
}

// vim: foldmethod=marker
