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

package mutex

import (
	"os"
	"testing"
	"time"

	"github.com/clltk/tracekit/errs"
)

func tempRegionFile(t *testing.T) *os.File {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "mutex-*.bin")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	if err := f.Truncate(Size); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestInitThenLockIsLocked(t *testing.T) {
	f := tempRegionFile(t)
	region := make([]byte, Size)
	m := Init(f, 0, region)

	res, err := m.TryLock(100 * time.Millisecond)
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	if res != Locked {
		t.Fatalf("res = %v, want Locked", res)
	}
	if err := m.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
}

func TestDoubleLockByHandleIsDeadlocked(t *testing.T) {
	f := tempRegionFile(t)
	region := make([]byte, Size)
	m := Init(f, 0, region)

	res, err := m.TryLock(100 * time.Millisecond)
	if err != nil || res != Locked {
		t.Fatalf("first TryLock: res=%v err=%v", res, err)
	}

	res, err = m.TryLock(50 * time.Millisecond)
	if err != nil {
		t.Fatalf("second TryLock: %v", err)
	}
	if res != Deadlocked {
		t.Fatalf("res = %v, want Deadlocked", res)
	}

	if err := m.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
}

func TestUnlockWithoutHoldingIsRecoverable(t *testing.T) {
	f := tempRegionFile(t)
	region := make([]byte, Size)
	m := Init(f, 0, region)

	err := m.Unlock()
	if err == nil {
		t.Fatalf("expected a recoverable error unlocking an unheld mutex")
	}
}

func TestUnlockNilMutexIsUnrecoverable(t *testing.T) {
	orig := abortOverride(t)
	defer orig()

	var m *Mutex
	_ = m.Unlock()
}

func TestRecoveredAfterSimulatedOwnerDeath(t *testing.T) {
	f := tempRegionFile(t)
	region := make([]byte, Size)
	m := Init(f, 0, region)

	res, err := m.TryLock(100 * time.Millisecond)
	if err != nil || res != Locked {
		t.Fatalf("first TryLock: res=%v err=%v", res, err)
	}

	// Simulate the holder dying mid-section: the OFD lock is released
	// when its file descriptor is closed (standing in for process
	// death), but the dirty flag in the header is never cleared because
	// Unlock never ran.
	f2, err := os.OpenFile(f.Name(), os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer f2.Close()
	f.Close()

	m2 := newMutex(region, newLocker(f2, 0))
	res, err = m2.TryLock(200 * time.Millisecond)
	if err != nil {
		t.Fatalf("TryLock after simulated death: %v", err)
	}
	if res != Recovered {
		t.Fatalf("res = %v, want Recovered", res)
	}
}

func TestGenerationIncrementsPerAcquisition(t *testing.T) {
	f := tempRegionFile(t)
	region := make([]byte, Size)
	m := Init(f, 0, region)

	before := m.Generation()
	for i := 0; i < 3; i++ {
		if res, err := m.TryLock(100 * time.Millisecond); err != nil || res != Locked {
			t.Fatalf("TryLock iteration %d: res=%v err=%v", i, res, err)
		}
		if err := m.Unlock(); err != nil {
			t.Fatalf("Unlock iteration %d: %v", i, err)
		}
	}
	after := m.Generation()
	if after != before+3 {
		t.Fatalf("Generation() = %d, want %d", after, before+3)
	}
}

// abortOverride swaps in a no-op Abort for the duration of the test so
// Unrecoverable paths can be exercised without killing the test binary.
func abortOverride(t *testing.T) func() {
	t.Helper()
	orig := errs.Abort
	var aborted bool
	errs.Abort = func(format string, args ...interface{}) { aborted = true }
	return func() {
		errs.Abort = orig
		if !aborted {
			t.Fatalf("expected Abort to be called")
		}
	}
}

// vim: foldmethod=marker
