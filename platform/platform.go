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

// Package platform collects the handful of OS-dependent primitives the
// rest of tracekit is built on: page size, timestamps, cached process
// and thread identity, a page-aligned copy with cache flush, and a
// process-scoped scratch-buffer pool standing in for the reference
// implementation's stack allocation.
//
// Any syscall failure while filling these caches is unrecoverable:
// tracing must never silently run with a stale or zero pid/tid, so the
// first failure aborts the process rather than limping on.
package platform

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/clltk/tracekit/errs"
)

var (
	pageSize     int
	pageSizeOnce sync.Once

	cachedPid atomic.Int64
	pidOnce   sync.Once
)

// PageSize returns the OS page size, cached after the first call.
func PageSize() int {
	pageSizeOnce.Do(func() {
		pageSize = unix.Getpagesize()
		if pageSize <= 0 {
			errs.Unrecoverable(nil, "getpagesize returned %d", pageSize)
		}
	})
	return pageSize
}

// Pid returns the current process id, cached after the first call.
//
// Go's M:N goroutine scheduler gives goroutines no stable affinity to an
// OS thread, so unlike the reference implementation's per-thread tid
// cache, Tid below is not cached here: caching a value that silently
// goes stale whenever the runtime moves the goroutine would be worse
// than the syscall it's meant to avoid. Pid has no such problem since it
// cannot change without a fork, which this process model does not use.
func Pid() uint32 {
	pidOnce.Do(func() {
		cachedPid.Store(int64(unix.Getpid()))
	})
	return uint32(cachedPid.Load())
}

// Tid returns the calling OS thread's id. Call ResetAfterFork in a
// freshly forked child (e.g. one produced through a raw
// syscall.ForkExec-style primitive rather than os/exec) before the next
// tracepoint fires, so Pid is re-read under the child's own identity.
func Tid() uint32 {
	return uint32(unix.Gettid())
}

// ResetAfterFork invalidates the pid cache. The reference implementation
// installs this as a pthread_atfork child hook; Go has no equivalent
// hook point, so callers that manage raw forks must invoke this
// themselves in the child before tracing again.
func ResetAfterFork() {
	pidOnce = sync.Once{}
}

// TimestampNS returns the current UTC time in nanoseconds, the unit
// every on-disk trace entry timestamp uses.
func TimestampNS() uint64 {
	return uint64(time.Now().UnixNano())
}

// vim: foldmethod=marker
