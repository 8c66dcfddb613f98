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

// Package filemanager resolves the tracing root, creates tracebuffer
// files atomically (temp-create, populate, linkat-publish), and keeps a
// process-local, reference-counted table of open mappings so that
// repeated opens of the same tracebuffer name share one mmap.
//
// The create-then-publish protocol mirrors a New/Open/Close lifecycle
// for a single file, generalized to the multi-section layout a
// tracebuffer needs and to the EEXIST race that arises once more than
// one producer process can race to create the same tracebuffer.
package filemanager

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/clltk/tracekit/errs"
	"github.com/clltk/tracekit/platform"
)

const (
	// TraceExt is the on-disk extension for userspace tracebuffer files.
	TraceExt = ".clltk_trace"
	// KernelTraceExt is the on-disk extension for kernel tracebuffer
	// files.
	KernelTraceExt = ".clltk_ktrace"
	// tracingPathEnv is consulted when no explicit root was set.
	tracingPathEnv = "CLLTK_TRACING_PATH"
)

var (
	explicitRoot   string
	explicitRootMu sync.Mutex
)

// SetTracingPath records the producer's explicit tracing root, taking
// priority over CLLTK_TRACING_PATH and the working directory.
func SetTracingPath(p string) {
	explicitRootMu.Lock()
	defer explicitRootMu.Unlock()
	explicitRoot = p
}

// ResolveRoot applies the precedence explicit API call
// first, then CLLTK_TRACING_PATH, then the current working directory.
func ResolveRoot() (string, error) {
	explicitRootMu.Lock()
	root := explicitRoot
	explicitRootMu.Unlock()
	if root != "" {
		return root, nil
	}
	if v := os.Getenv(tracingPathEnv); v != "" {
		return v, nil
	}
	return os.Getwd()
}

// Handle is a process-local, reference-counted mapping onto a
// tracebuffer file.
type Handle struct {
	Name   string
	Path   string
	Region []byte
	file   *os.File
	refs   int
}

// File returns the handle's underlying *os.File, needed by callers that
// construct OFD-lock-backed mutexes bound to this file descriptor.
func (h *Handle) File() *os.File { return h.file }

// Manager owns the handle table for one tracing root.
type Manager struct {
	root string
	log  errs.Logger

	mu      sync.Mutex
	handles map[string]*Handle
}

// NewManager resolves the tracing root and returns a Manager bound to
// it.
func NewManager(log errs.Logger) (*Manager, error) {
	root, err := ResolveRoot()
	if err != nil {
		return nil, fmt.Errorf("filemanager: resolve tracing root: %w", err)
	}
	return &Manager{root: root, log: log, handles: make(map[string]*Handle)}, nil
}

// Root returns the resolved tracing root directory.
func (m *Manager) Root() string { return m.root }

func (m *Manager) pathFor(name string) string {
	return filepath.Join(m.root, name+TraceExt)
}

// Open returns a handle onto an existing tracebuffer file, incrementing
// its reference count if this process already holds one.
func (m *Manager) Open(name string, size int64) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.handles[name]; ok {
		h.refs++
		return h, nil
	}

	path := m.pathFor(name)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	region, err := mmapFile(f, size)
	if err != nil {
		f.Close()
		return nil, err
	}
	h := &Handle{Name: name, Path: path, Region: region, file: f, refs: 1}
	m.handles[name] = h
	return h, nil
}

// StatSize returns the on-disk size of the named tracebuffer file,
// for callers (a discovery-driven consumer that doesn't know a
// tracebuffer's ring capacity ahead of time) that need to Open it
// without first computing its layout.
func (m *Manager) StatSize(name string) (int64, error) {
	fi, err := os.Stat(m.pathFor(name))
	if err != nil {
		return 0, fmt.Errorf("filemanager: stat %q: %w", name, err)
	}
	return fi.Size(), nil
}

// Create runs the atomic create protocol it follows:
//
//  1. build a unique temp name <name>~<ns-timestamp>.clltk_trace
//  2. open O_RDWR|O_CREAT|O_EXCL|O_SYNC, extend to size, mmap
//  3. let populate fill in every section
//  4. linkat(temp, final); EEXIST means another creator won
//  5. otherwise unlink the temp name and keep its mapping, which now
//     backs the final name (the same inode)
func (m *Manager) Create(name string, size int64, populate func(file *os.File, region []byte) error) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.handles[name]; ok {
		h.refs++
		return h, nil
	}

	final := m.pathFor(name)
	tempPath := filepath.Join(m.root, fmt.Sprintf("%s~%x%s", name, platform.TimestampNS(), TraceExt))

	tf, err := os.OpenFile(tempPath, os.O_RDWR|os.O_CREATE|os.O_EXCL|unix.O_SYNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("filemanager: create temp: %w", err)
	}
	if err := extendFile(tf, size); err != nil {
		tf.Close()
		os.Remove(tempPath)
		return nil, err
	}

	region, err := mmapFile(tf, size)
	if err != nil {
		tf.Close()
		os.Remove(tempPath)
		return nil, err
	}

	if err := populate(tf, region); err != nil {
		unix.Munmap(region)
		tf.Close()
		os.Remove(tempPath)
		return nil, err
	}

	if err := unix.Linkat(unix.AT_FDCWD, tempPath, unix.AT_FDCWD, final, 0); err != nil {
		if err == unix.EEXIST {
			// Another creator won the race; discard ours and open theirs.
			unix.Munmap(region)
			tf.Close()
			os.Remove(tempPath)
			return m.openLocked(name, size)
		}
		unix.Munmap(region)
		tf.Close()
		os.Remove(tempPath)
		return nil, fmt.Errorf("filemanager: link temp to final: %w", err)
	}
	os.Remove(tempPath)

	h := &Handle{Name: name, Path: final, Region: region, file: tf, refs: 1}
	m.handles[name] = h
	return h, nil
}

func (m *Manager) openLocked(name string, size int64) (*Handle, error) {
	path := m.pathFor(name)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	region, err := mmapFile(f, size)
	if err != nil {
		f.Close()
		return nil, err
	}
	h := &Handle{Name: name, Path: path, Region: region, file: f, refs: 1}
	m.handles[name] = h
	return h, nil
}

// Close decrements the handle's reference count, unmapping and closing
// the underlying file once it reaches zero.
func (m *Manager) Close(h *Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h.refs--
	if h.refs > 0 {
		return nil
	}
	delete(m.handles, h.Name)
	if err := unix.Munmap(h.Region); err != nil {
		return err
	}
	return h.file.Close()
}

func extendFile(f *os.File, size int64) error {
	if size <= 0 {
		return fmt.Errorf("filemanager: invalid tracebuffer size %d", size)
	}
	if _, err := f.WriteAt([]byte{0}, size-1); err != nil {
		return fmt.Errorf("filemanager: extend to size: %w", err)
	}
	return nil
}

func mmapFile(f *os.File, size int64) ([]byte, error) {
	region, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("filemanager: mmap: %w", err)
	}
	return region, nil
}

// ListSources returns the tracebuffer names (without extension) present
// under root, covering both userspace and kernel trace files — the
// discovery step a multi-source consumer (live, snapshot) needs before
// it can open anything by name.
func ListSources(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("filemanager: list sources: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		switch {
		case strings.HasSuffix(n, TraceExt) && !strings.Contains(n, "~"):
			names = append(names, strings.TrimSuffix(n, TraceExt))
		case strings.HasSuffix(n, KernelTraceExt) && !strings.Contains(n, "~"):
			names = append(names, strings.TrimSuffix(n, KernelTraceExt))
		}
	}
	return names, nil
}

// Pwrite writes the entirety of data at offset off, aborting the process
// on a short write: a torn write to a shared tracebuffer file is not a
// condition any caller can recover from.
func Pwrite(log errs.Logger, f *os.File, data []byte, off int64) error {
	n, err := f.WriteAt(data, off)
	if err != nil {
		return errs.Unrecoverable(log, "filemanager: pwrite at %d: %v", off, err)
	}
	if n != len(data) {
		return errs.Unrecoverable(log, "filemanager: short write at %d: %d of %d bytes", off, n, len(data))
	}
	return nil
}

// Pread reads len(dst) bytes at offset off, aborting the process on a
// short read.
func Pread(log errs.Logger, f *os.File, dst []byte, off int64) error {
	n, err := f.ReadAt(dst, off)
	if err != nil {
		return errs.Unrecoverable(log, "filemanager: pread at %d: %v", off, err)
	}
	if n != len(dst) {
		return errs.Unrecoverable(log, "filemanager: short read at %d: %d of %d bytes", off, n, len(dst))
	}
	return nil
}

// vim: foldmethod=marker
