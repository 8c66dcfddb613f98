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

//go:build linux

package mutex

import (
	"os"

	"golang.org/x/sys/unix"
)

// ofdLocker implements locker using Linux open-file-description
// byte-range locks. Unlike classic fcntl(F_SETLK) record locks, OFD
// locks are scoped to the open file description rather than the
// process, so two handles opened by the same process correctly
// contend with each other instead of silently merging — the property
// that makes them usable as a real mutex instead of just a
// crash-detection mechanism.
type ofdLocker struct {
	fd     int
	offset int64
}

func newLocker(file *os.File, offset int64) locker {
	return &ofdLocker{fd: int(file.Fd()), offset: offset}
}

func (l *ofdLocker) flock(typ int16) (bool, error) {
	fl := unix.Flock_t{
		Type:   typ,
		Whence: 0, // SEEK_SET
		Start:  l.offset,
		Len:    Size,
	}
	err := unix.FcntlFlock(uintptr(l.fd), unix.F_OFD_SETLK, &fl)
	if err == nil {
		return true, nil
	}
	if err == unix.EAGAIN || err == unix.EACCES {
		return false, nil
	}
	return false, err
}

func (l *ofdLocker) tryAcquire() (bool, error) {
	return l.flock(unix.F_WRLCK)
}

func (l *ofdLocker) release() error {
	_, err := l.flock(unix.F_UNLCK)
	return err
}

// vim: foldmethod=marker
