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

// Package mutex implements the robust, shared, error-checking,
// time-bounded mutex to guard the ring buffer and
// unique-stack sections of a tracebuffer file.
//
// Go has no public pthread_mutex_t-with-PTHREAD_MUTEX_ROBUST equivalent,
// so this is built on Linux open-file-description byte-range locks
// (F_OFD_SETLK/F_OFD_SETLKW) instead: the kernel releases an OFD lock
// automatically when the owning process exits, which is the same signal
// a robust pthread mutex gives on owner death. A "dirty flag" in the
// mutex's own header turns that release into an explicit Recovered
// result. See mutex_fallback.go for the non-Linux fallback.
package mutex

import (
	"encoding/binary"
	"os"
	"sync/atomic"
	"time"

	"github.com/clltk/tracekit/errs"
	"github.com/clltk/tracekit/platform"
)

// Size is the on-disk footprint of a Mutex, matching RingHead/StackHead
// laying their embedded mutex out as a fixed 64-byte field.
const Size = 64

// hardCap bounds every acquisition attempt regardless of the timeout a
// caller asks for, by design.
const hardCap = 2 * time.Second

const (
	offDirty = 0 // 1 byte: 0 clean, nonzero = still held / died while held
	offPid   = 4 // 4 bytes: little-endian owner pid
	offGen   = 8 // 8 bytes: little-endian generation counter
)

// Result is the outcome of a TryLock attempt.
type Result int

const (
	// Locked means the mutex was free and is now held by the caller.
	Locked Result = iota
	// Recovered means the previous holder died while holding the
	// mutex; the caller now owns it but must treat the protected state
	// as potentially torn.
	Recovered
	// Timeout means the mutex could not be acquired before the bound
	// elapsed.
	Timeout
	// Deadlocked means this same Mutex handle, in this process, is
	// already held — diagnosed rather than actually deadlocked.
	Deadlocked
	// ErrorResult means an unexpected OS-level failure occurred; the
	// accompanying error describes it.
	ErrorResult
)

func (r Result) String() string {
	switch r {
	case Locked:
		return "locked"
	case Recovered:
		return "recovered"
	case Timeout:
		return "timeout"
	case Deadlocked:
		return "deadlocked"
	case ErrorResult:
		return "error"
	default:
		return "unknown"
	}
}

// locker is the OS-specific half: acquire/release a byte range in file
// at offset, for Size bytes. Implemented by mutex_linux.go (OFD locks)
// and mutex_fallback.go (whole-file flock, best effort).
type locker interface {
	tryAcquire() (bool, error)
	release() error
}

// Mutex is a handle onto a 64-byte shared-memory mutex region embedded
// in a tracebuffer's ring or stack section.
type Mutex struct {
	region []byte // the Size-byte header view, backed by the mmap
	lock   locker
	held   atomic.Bool
	log    errs.Logger
}

// newMutex wraps an existing locker and region without touching the header
// bytes — used by both Init (after zeroing) and Open (on an existing
// file) so the locking machinery is identical either way.
func newMutex(region []byte, lock locker) *Mutex {
	return &Mutex{region: region[:Size:Size], lock: lock}
}

// SetLogger attaches a logger used for recoverable-error messages
// (unlock-of-unheld-mutex). Safe to call at any time; nil is valid and
// means "don't log".
func (m *Mutex) SetLogger(log errs.Logger) {
	if m == nil {
		return
	}
	m.log = log
}

// Init initializes a freshly mapped mutex region and returns a handle
// to it. Must run exactly once, before any Open of the same region,
// while the caller still holds exclusive access to the file (i.e.
// before it is published under its final name). offset is this mutex's
// absolute byte offset within file, used to scope the OFD byte-range
// lock to exactly this mutex.
func Init(file *os.File, offset int64, region []byte) *Mutex {
	m := newMutex(region, newLocker(file, offset))
	clear(m.region[:Size])
	return m
}

// Open wraps an existing, already-initialized mutex region.
func Open(file *os.File, offset int64, region []byte) *Mutex {
	return newMutex(region, newLocker(file, offset))
}

// TryLock attempts to acquire the mutex within min(timeout, 2s). See
// Result for the possible outcomes.
func (m *Mutex) TryLock(timeout time.Duration) (Result, error) {
	if m == nil {
		return ErrorResult, errs.Unrecoverable(nil, "try_lock on nil mutex")
	}
	if !m.held.CompareAndSwap(false, true) {
		return Deadlocked, nil
	}

	if timeout > hardCap || timeout <= 0 {
		timeout = hardCap
	}
	deadline := time.Now().Add(timeout)
	backoff := time.Millisecond

	for {
		ok, err := m.lock.tryAcquire()
		if err != nil {
			m.held.Store(false)
			return ErrorResult, err
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			m.held.Store(false)
			return Timeout, nil
		}
		time.Sleep(backoff)
		if backoff < 20*time.Millisecond {
			backoff *= 2
		}
	}

	wasDirty := m.region[offDirty] != 0
	m.region[offDirty] = 1
	binary.LittleEndian.PutUint32(m.region[offPid:offPid+4], platform.Pid())
	gen := binary.LittleEndian.Uint64(m.region[offGen:offGen+8]) + 1
	binary.LittleEndian.PutUint64(m.region[offGen:offGen+8], gen)

	if wasDirty {
		return Recovered, nil
	}
	return Locked, nil
}

// Unlock releases the mutex. Unlocking a mutex not held by this handle
// is a recoverable error (logged, not fatal); unlocking through a nil
// Mutex pointer is unrecoverable, by design.
func (m *Mutex) Unlock() error {
	if m == nil {
		return errs.Unrecoverable(nil, "unlock of nil mutex")
	}
	if !m.held.CompareAndSwap(true, false) {
		return errs.Recoverable(m.log, "unlock of mutex not held by this handle")
	}
	m.region[offDirty] = 0
	return m.lock.release()
}

// Generation returns the header's generation counter, incremented on
// every successful acquisition. Exposed for tests and diagnostics.
func (m *Mutex) Generation() uint64 {
	return binary.LittleEndian.Uint64(m.region[offGen : offGen+8])
}

// vim: foldmethod=marker
