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

// Package tracekit is the producer-facing entry point: a small,
// idiomatic wrapper around filemanager/tracebuffer/uniquestack/
// tracepoint for applications that want to trace into a tracebuffer
// file without touching those packages directly.
//
// There is no build-time macro layer generating call sites here
// (out of scope, per tracepoint's own doc comment); instead a CallSite
// is a small value an application declares once per call site — often
// as a package-level var, the same role a macro expansion's static slot
// plays — and reuses on every call. The first call through a given
// CallSite resolves and caches its in_file_offset; every later call
// reuses the cached value, mirroring the "per-site atomic u64,
// CAS'd once" resolution rule.
package tracekit

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/clltk/tracekit/argcodec"
	"github.com/clltk/tracekit/definition"
	"github.com/clltk/tracekit/errs"
	"github.com/clltk/tracekit/filemanager"
	"github.com/clltk/tracekit/mutex"
	"github.com/clltk/tracekit/tracebuffer"
	"github.com/clltk/tracekit/tracepoint"
)

// Re-export the SourceKind values callers need to pick when creating a
// Source, so application code never has to import definition directly.
const (
	Userspace = definition.Userspace
	Kernel    = definition.Kernel
	TTY       = definition.TTY
)

// SetTracingPath records the tracing root every Tracer in this process
// resolves against, taking priority over CLLTK_TRACING_PATH and the
// working directory.
func SetTracingPath(path string) { filemanager.SetTracingPath(path) }

// Tracer owns the process-local handle table for one tracing root. One
// Tracer is normally enough per process; Source values for different
// tracebuffer files share it.
type Tracer struct {
	mgr *filemanager.Manager
	log errs.Logger
}

// NewTracer resolves the tracing root and returns a Tracer bound to it.
// log may be nil, in which case recoverable/unrecoverable conditions are
// still handled but never logged.
func NewTracer(log errs.Logger) (*Tracer, error) {
	mgr, err := filemanager.NewManager(log)
	if err != nil {
		return nil, err
	}
	return &Tracer{mgr: mgr, log: log}, nil
}

// Create makes a new tracebuffer file named name with the given ring
// capacity (bytes) and source kind, or opens the existing one if a
// concurrent creator already won the race.
func (t *Tracer) Create(name string, capacity uint64, kind definition.SourceKind) (*Source, error) {
	buf, err := tracebuffer.Create(t.mgr, t.log, name, capacity, kind)
	if err != nil {
		return nil, err
	}
	return &Source{tracer: t, buf: buf}, nil
}

// Open opens an existing tracebuffer file by name, discovering its size
// automatically.
func (t *Tracer) Open(name string) (*Source, error) {
	buf, err := tracebuffer.OpenAuto(t.mgr, t.log, name)
	if err != nil {
		return nil, err
	}
	return &Source{tracer: t, buf: buf}, nil
}

// Source is one open tracebuffer file: the destination of every Printf,
// Dump, and Dynamicf call an application makes.
type Source struct {
	tracer *Tracer
	buf    *tracebuffer.Buffer
}

// Name returns the tracebuffer's on-disk name.
func (s *Source) Name() string { return s.buf.Name }

// Close releases this process's reference to the underlying tracebuffer
// file.
func (s *Source) Close() error { return s.buf.Close(s.tracer.mgr) }

// MetaEntry kinds, mirroring decoder.KindPrintf/decoder.KindDump — kept
// as a local copy rather than an import, since a metadata blob's byte
// layout is the wire contract between this package and decoder, not a
// type either package needs to share at the Go level.
const (
	kindPrintf = 1
	kindDump   = 2
)

// CallSite is a once-per-call-site tracing descriptor: the format
// string (or dump label), source location, and argument types are fixed
// at construction; the resolved in_file_offset is computed once, on the
// first call through a given Source, and cached for every call after.
//
// A CallSite is safe to declare as a package-level var and share across
// goroutines; resolving it concurrently against the same Source is safe
// — every resolver computes the same content-addressed offset, so a
// lost compare-and-swap race is harmless.
type CallSite struct {
	kind     byte
	file     string
	line     uint32
	format   string
	argTypes []byte

	offset atomic.Uint64 // 0 == tracepoint.OffsetUnset == "not yet resolved"
}

// NewCallSite declares a printf-style call site: format is the printf
// template, argTypes is the argcodec type byte for each argument Printf
// will later be called with, in order.
func NewCallSite(file string, line uint32, format string, argTypes ...byte) *CallSite {
	return &CallSite{kind: kindPrintf, file: file, line: line, format: format, argTypes: argTypes}
}

// NewDumpSite declares a raw-byte-dump call site: label is a
// human-readable name shown in place of a format string.
func NewDumpSite(file string, line uint32, label string) *CallSite {
	return &CallSite{kind: kindDump, file: file, line: line, format: label}
}

// resolve returns cs's in_file_offset within s's unique stack,
// registering the call site's metadata on first use.
func (cs *CallSite) resolve(s *Source) (uint64, error) {
	if off := cs.offset.Load(); off != 0 {
		return off, nil
	}

	blob := buildMetaBlob(cs.kind, cs.line, cs.argTypes, cs.file, cs.format)

	res, err := s.buf.Stack.Mutex.TryLock(tracepoint.LockTimeout)
	if err != nil {
		return 0, errs.Recoverable(s.tracer.log, "tracekit: stack mutex acquisition error: %v", err)
	}
	switch res {
	case mutex.Locked, mutex.Recovered:
		defer s.buf.Stack.Mutex.Unlock()
	case mutex.Timeout:
		return 0, errs.Recoverable(s.tracer.log, "tracekit: stack mutex acquisition timed out, dropping entry")
	default:
		return 0, errs.Recoverable(s.tracer.log, "tracekit: stack mutex result %v, dropping entry", res)
	}

	off, err := s.buf.Stack.Add(blob)
	if err != nil {
		return 0, errs.Recoverable(s.tracer.log, "tracekit: registering call site: %v", err)
	}
	cs.offset.CompareAndSwap(0, off)
	return off, nil
}

// buildMetaBlob packs one MetaEntry the way decoder.ParseMetaEntry
// expects it: magic '{' + size(4) + kind(1) + line(4) + arg_count(1) +
// arg_types + NUL + file + NUL + format/label + NUL.
func buildMetaBlob(kind byte, line uint32, argTypes []byte, file, str string) []byte {
	size := 11 + len(argTypes) + 1 + len(file) + 1 + len(str) + 1
	b := make([]byte, 0, size)
	b = append(b, '{')
	var sizeBuf [4]byte
	binary.LittleEndian.PutUint32(sizeBuf[:], uint32(size))
	b = append(b, sizeBuf[:]...)
	b = append(b, kind)
	var lineBuf [4]byte
	binary.LittleEndian.PutUint32(lineBuf[:], line)
	b = append(b, lineBuf[:]...)
	b = append(b, byte(len(argTypes)))
	b = append(b, argTypes...)
	b = append(b, 0)
	b = append(b, []byte(file)...)
	b = append(b, 0)
	b = append(b, []byte(str)...)
	b = append(b, 0)
	return b
}

// Printf traces one printf-style entry through cs, which must have been
// built with NewCallSite. The number and order of args must match
// cs's declared argTypes.
func (s *Source) Printf(cs *CallSite, args ...argcodec.Arg) error {
	if cs.kind != kindPrintf {
		return fmt.Errorf("tracekit: Printf called on a non-printf call site")
	}
	offset, err := cs.resolve(s)
	if err != nil {
		return err
	}
	return tracepoint.Emit(s.tracer.log, s.buf.Ring, offset, args)
}

// Dump traces a raw byte payload through cs, which must have been built
// with NewDumpSite.
func (s *Source) Dump(cs *CallSite, data []byte) error {
	if cs.kind != kindDump {
		return fmt.Errorf("tracekit: Dump called on a non-dump call site")
	}
	offset, err := cs.resolve(s)
	if err != nil {
		return err
	}
	return tracepoint.EmitDump(s.tracer.log, s.buf.Ring, offset, data)
}

// Dynamicf traces a fully runtime-determined message: no call site is
// registered in the unique stack, and file/line/message are carried
// inline in the ring entry instead. Use this sparingly — every call
// pays for file, line, and message bytes in the ring entry itself,
// unlike Printf/Dump's constant per-entry metadata cost.
func (s *Source) Dynamicf(file string, line uint32, format string, args ...any) error {
	return tracepoint.EmitDynamic(s.tracer.log, s.buf.Ring, file, line, fmt.Sprintf(format, args...))
}

// EnsureDynamicSource opens name if it already exists, or creates it
// with tracepoint.DynamicDefaultCapacity otherwise — the lazy,
// open-on-first-use path a runtime-named tracepoint needs since it
// cannot assume its tracebuffer was created ahead of time.
func (t *Tracer) EnsureDynamicSource(name string) (*Source, error) {
	buf, err := tracepoint.EnsureDynamicBuffer(t.mgr, t.log, name)
	if err != nil {
		return nil, err
	}
	return &Source{tracer: t, buf: buf}, nil
}

// vim: foldmethod=marker
