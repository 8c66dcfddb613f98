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

import "container/heap"

// OrderedBuffer implements the live ordered buffer: a bounded min-heap
// keyed by TimestampNS that lets a consumer reading
// from several tracebuffer files concurrently release entries in
// timestamp order despite arriving out of order across sources.
//
// Entries only become eligible for Pop once the buffer's watermark — the
// minimum "as of" timestamp across every known source — has advanced
// past them, so a source that is merely slow to produce can't cause an
// out-of-order release from a faster one.
type OrderedBuffer struct {
	h         recordHeap
	watermark uint64
	capacity  int

	pushed, popped, dropped uint64
	highWaterMark           int
}

// NewOrderedBuffer returns an OrderedBuffer that holds at most capacity
// records before Push starts evicting the earliest-timestamped record to
// make room for each new arrival — capacity bounds memory, not
// correctness, since a full buffer just means some source is running
// further ahead than the others.
func NewOrderedBuffer(capacity int) *OrderedBuffer {
	b := &OrderedBuffer{capacity: capacity}
	heap.Init(&b.h)
	return b
}

// Push adds r to the buffer. If the buffer is already at capacity, the
// earliest-timestamped record is evicted first and counted in Dropped;
// with a capacity of 0 every arrival is dropped.
func (b *OrderedBuffer) Push(r *Record) {
	if len(b.h) >= b.capacity {
		b.dropped++
		if len(b.h) == 0 {
			return
		}
		heap.Pop(&b.h)
	}
	heap.Push(&b.h, r)
	b.pushed++
	if len(b.h) > b.highWaterMark {
		b.highWaterMark = len(b.h)
	}
}

// UpdateWatermark advances the release watermark. Sources report their
// own "no entry will ever arrive with a lower timestamp than this"
// bound (typically the timestamp of the last entry they read, or the
// poll time if idle); the buffer's watermark is the minimum such bound
// across every currently known source, which callers (Live) maintain by
// calling this with the min directly.
func (b *OrderedBuffer) UpdateWatermark(ts uint64) {
	if ts > b.watermark {
		b.watermark = ts
	}
}

// Pop removes and returns the earliest record once its timestamp is at
// or below the watermark. It returns (nil, false) otherwise.
func (b *OrderedBuffer) Pop() (*Record, bool) {
	if len(b.h) == 0 {
		return nil, false
	}
	if b.h[0].TimestampNS > b.watermark {
		return nil, false
	}
	r := heap.Pop(&b.h).(*Record)
	b.popped++
	return r, true
}

// PopAllReady drains every record currently eligible for release, in
// timestamp order.
func (b *OrderedBuffer) PopAllReady() []*Record {
	var out []*Record
	for {
		r, ok := b.Pop()
		if !ok {
			return out
		}
		out = append(out, r)
	}
}

// Finish drains the buffer unconditionally, ignoring the watermark — the
// behavior a shutdown path needs so buffered records are not silently
// lost.
func (b *OrderedBuffer) Finish() []*Record {
	out := make([]*Record, 0, len(b.h))
	for len(b.h) > 0 {
		out = append(out, heap.Pop(&b.h).(*Record))
	}
	b.popped += uint64(len(out))
	return out
}

// Len returns the number of records currently buffered.
func (b *OrderedBuffer) Len() int { return len(b.h) }

// Stats is a snapshot of the buffer's lifetime counters.
type Stats struct {
	Pushed, Popped, Dropped uint64
	CurrentSize             int
	HighWaterMark           int
}

// Stats returns the buffer's current counters.
func (b *OrderedBuffer) Stats() Stats {
	return Stats{
		Pushed:        b.pushed,
		Popped:        b.popped,
		Dropped:       b.dropped,
		CurrentSize:   len(b.h),
		HighWaterMark: b.highWaterMark,
	}
}

// recordHeap is a container/heap.Interface ordered by TimestampNS.
type recordHeap []*Record

func (h recordHeap) Len() int            { return len(h) }
func (h recordHeap) Less(i, j int) bool  { return h[i].TimestampNS < h[j].TimestampNS }
func (h recordHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }

func (h *recordHeap) Push(x interface{}) {
	*h = append(*h, x.(*Record))
}

func (h *recordHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// vim: foldmethod=marker
