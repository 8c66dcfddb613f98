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

package errs

import (
	"errors"
	"testing"
)

type fakeLogger struct {
	warnings []string
	errors   []string
}

func (f *fakeLogger) Warnf(template string, args ...interface{}) {
	f.warnings = append(f.warnings, template)
}

func (f *fakeLogger) Errorf(template string, args ...interface{}) {
	f.errors = append(f.errors, template)
}

func TestRecoverableLogsAndReturnsError(t *testing.T) {
	log := &fakeLogger{}
	err := Recoverable(log, "ring buffer mutex timeout on %s", "trace.clltk_trace")

	var re *RecoverableError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RecoverableError, got %T", err)
	}
	if len(log.warnings) != 1 {
		t.Fatalf("expected one warning logged, got %d", len(log.warnings))
	}
}

func TestUnrecoverableCallsAbort(t *testing.T) {
	orig := Abort
	defer func() { Abort = orig }()

	var aborted bool
	var abortMsg string
	Abort = func(format string, args ...interface{}) {
		aborted = true
		abortMsg = format
	}

	log := &fakeLogger{}
	err := Unrecoverable(log, "short pwrite on %s", "stack section")

	if !aborted {
		t.Fatalf("expected Abort to be called")
	}
	if abortMsg == "" {
		t.Fatalf("expected abort message to be recorded")
	}
	var ue *UnrecoverableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnrecoverableError, got %T", err)
	}
	if len(log.errors) != 1 {
		t.Fatalf("expected one error logged, got %d", len(log.errors))
	}
}

// vim: foldmethod=marker
