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

import "testing"

func TestPageSizePositiveAndStable(t *testing.T) {
	a := PageSize()
	b := PageSize()
	if a <= 0 {
		t.Fatalf("PageSize() = %d, want > 0", a)
	}
	if a != b {
		t.Fatalf("PageSize() not stable across calls: %d != %d", a, b)
	}
}

func TestPidStableAcrossCalls(t *testing.T) {
	a := Pid()
	b := Pid()
	if a != b {
		t.Fatalf("Pid() not stable: %d != %d", a, b)
	}
	if a == 0 {
		t.Fatalf("Pid() = 0, want nonzero")
	}
}

func TestResetAfterForkRereadsIdentity(t *testing.T) {
	before := Pid()
	ResetAfterFork()
	after := Pid()
	// Same process in the test binary, so the value is identical, but
	// the point is that the cache was actually invalidated and re-read
	// rather than panicking or deadlocking on the reset Once.
	if before != after {
		t.Fatalf("pid changed unexpectedly across ResetAfterFork in the same process: %d != %d", before, after)
	}
}

func TestTimestampNSMonotonicallyIncreasesInPractice(t *testing.T) {
	a := TimestampNS()
	b := TimestampNS()
	if b < a {
		t.Fatalf("TimestampNS() went backwards: %d then %d", a, b)
	}
}

func TestCopyFlushCopiesBytes(t *testing.T) {
	src := []byte("tracepoint-payload")
	dst := make([]byte, len(src))
	n := CopyFlush(dst, src)
	if n != len(src) {
		t.Fatalf("CopyFlush returned %d, want %d", n, len(src))
	}
	if string(dst) != string(src) {
		t.Fatalf("CopyFlush produced %q, want %q", dst, src)
	}
}

// vim: foldmethod=marker
