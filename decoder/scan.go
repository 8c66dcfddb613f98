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
	"github.com/clltk/tracekit/tracebuffer"
)

// Filter narrows which records Scan/Live emit. A nil predicate field
// matches everything.
type Filter struct {
	// Since and Until bound TimestampNS inclusively; zero means
	// unbounded on that side.
	Since, Until uint64
	// Match, when non-nil, is given the fully decoded record and decides
	// whether to keep it — the general escape hatch backing the CLI's
	// per-entry filters (--pid/--tid/--msg/--file and their regex forms).
	Match func(*Record) bool
}

func (f Filter) keep(r *Record) bool {
	if f.Since != 0 && r.TimestampNS < f.Since {
		return false
	}
	if f.Until != 0 && r.TimestampNS > f.Until {
		return false
	}
	if f.Match != nil && !f.Match(r) {
		return false
	}
	return true
}

// Scan decodes every entry currently in buf's ring, top to bottom, with
// no watermark and no polling — the one-shot path a "decode" command
// uses against a static (already-stopped, or snapshotted) tracebuffer
// file. It calls fn with each record in ring order; fn returning false
// stops the scan early.
func Scan(buf *tracebuffer.Buffer, filter Filter, fn func(*Record) bool) {
	buf.Ring.Walk(func(body []byte) bool {
		r, err := Decode(buf.Name, body, buf.Stack)
		if err != nil {
			// A single malformed entry does not abort the scan; skip it
			// and keep going, matching the ring's own "skip and resync"
			// recovery stance on corrupt frames.
			return true
		}
		if !filter.keep(r) {
			return true
		}
		return fn(r)
	})
}

// vim: foldmethod=marker
