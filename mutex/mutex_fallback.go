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

//go:build !linux

package mutex

import (
	"os"

	"golang.org/x/sys/unix"
)

// flockLocker is the non-Linux fallback: a whole-file flock(2). It is
// coarser than the Linux OFD-lock path (every mutex in the file
// contends on the same lock rather than just its own byte range) but
// still gives automatic release on process death, which is the
// property the owner-death recovery protocol depends on. Documented as
// best-effort.
type flockLocker struct {
	fd int
}

func newLocker(file *os.File, offset int64) locker {
	return &flockLocker{fd: int(file.Fd())}
}

func (l *flockLocker) tryAcquire() (bool, error) {
	err := unix.Flock(l.fd, unix.LOCK_EX|unix.LOCK_NB)
	if err == nil {
		return true, nil
	}
	if err == unix.EWOULDBLOCK {
		return false, nil
	}
	return false, err
}

func (l *flockLocker) release() error {
	return unix.Flock(l.fd, unix.LOCK_UN)
}

// vim: foldmethod=marker
