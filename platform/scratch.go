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

package platform

import "sync"

// ScratchThreshold is the entry size, in bytes, at or below which Stage
// uses a pooled buffer instead of a fresh heap allocation, keeping
// fixed-width tracepoints off the allocator entirely. Entries above this
// size go straight to the heap.
const ScratchThreshold = 1024

var scratchPool = sync.Pool{
	New: func() any {
		buf := make([]byte, ScratchThreshold)
		return &buf
	},
}

// Scratch is a reusable staging buffer for a single tracepoint's
// serialized entry. Release returns it to the pool; entries that
// outgrew the pooled size are simply discarded on Release.
type Scratch struct {
	buf    []byte
	pooled bool
}

// Stage returns a Scratch sized to hold n bytes. Buffers at or below
// ScratchThreshold come from a process-wide pool; larger ones are
// allocated fresh and not pooled, since returning an oversized buffer to
// the pool would bloat every future small allocation.
func Stage(n int) *Scratch {
	if n <= ScratchThreshold {
		p := scratchPool.Get().(*[]byte)
		return &Scratch{buf: (*p)[:n], pooled: true}
	}
	return &Scratch{buf: make([]byte, n)}
}

// Bytes returns the staging buffer.
func (s *Scratch) Bytes() []byte { return s.buf }

// Release returns the buffer to the pool, if it came from one.
func (s *Scratch) Release() {
	if s.pooled {
		buf := s.buf[:cap(s.buf)]
		scratchPool.Put(&buf)
	}
	s.buf = nil
}

// vim: foldmethod=marker
