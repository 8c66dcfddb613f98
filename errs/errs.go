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

// Package errs implements the two error classes tracekit distinguishes
// throughout the tracing substrate: recoverable errors, which are logged
// and let the caller continue, and unrecoverable errors, which are
// logged and terminate the process via an overridable callback.
//
// Tracing must never silently corrupt shared state, so anything that
// would leave a tracebuffer file or its in-process caches in an
// inconsistent state is unrecoverable; anything that only costs a
// dropped trace entry is recoverable.
package errs

import (
	"fmt"
	"os"
)

// Logger is the minimal structured-logging surface errs needs. It is
// satisfied by *zap.SugaredLogger without importing zap here.
type Logger interface {
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

// Abort terminates the process on an unrecoverable error. Tests
// override this to observe unrecoverable paths without killing the
// test binary.
var Abort = func(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "tracekit: unrecoverable: "+format+"\n", args...)
	os.Exit(1)
}

// RecoverableError is returned by operations that dropped work (a
// tracepoint, a ring-buffer write) but left the tracing substrate
// consistent.
type RecoverableError struct {
	msg string
}

func (e *RecoverableError) Error() string { return e.msg }

// Recoverable logs the formatted message as a warning (when log is
// non-nil) and returns a *RecoverableError describing it. Callers drop
// whatever they were doing and continue.
func Recoverable(log Logger, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if log != nil {
		log.Warnf("%s", msg)
	}
	return &RecoverableError{msg: msg}
}

// Unrecoverable logs the formatted message as an error and then calls
// Abort. Abort is expected not to return in production; in tests it may,
// in which case Unrecoverable still returns a descriptive error so
// defer/cleanup code that runs before the (test-only) return sees a
// sane value.
func Unrecoverable(log Logger, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if log != nil {
		log.Errorf("%s", msg)
	}
	Abort("%s", msg)
	return &UnrecoverableError{msg: msg}
}

// UnrecoverableError describes the condition that triggered Abort.
type UnrecoverableError struct {
	msg string
}

func (e *UnrecoverableError) Error() string { return e.msg }

// vim: foldmethod=marker
