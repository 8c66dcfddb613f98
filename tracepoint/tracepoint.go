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

// Package tracepoint implements the producer-side fast path: build a
// TraceEntryHead, size and serialize the argument payload into scratch
// storage, then append it to a ring buffer under its mutex with a
// bounded acquisition timeout.
//
// There is no build-time macro layer here that resolves in_file_offset
// per call site; callers pass an already-resolved offset and are
// responsible for that offset being static for a given call site.
package tracepoint

import (
	"time"

	"github.com/clltk/tracekit/argcodec"
	"github.com/clltk/tracekit/definition"
	"github.com/clltk/tracekit/errs"
	"github.com/clltk/tracekit/filemanager"
	"github.com/clltk/tracekit/mutex"
	"github.com/clltk/tracekit/platform"
	"github.com/clltk/tracekit/ringbuffer"
	"github.com/clltk/tracekit/tracebuffer"
)

// Reserved in_file_offset sentinels. Every real static offset is
// file-absolute (uniquestack.Stack.Add returns the section's own file
// offset plus its in-section body offset, not a section-relative
// value), and every tracebuffer's stack section starts well past byte
// 0xFF once its preceding header/definition/ring sections are laid out
// — so the low byte range below StaticOffsetMin is safe to reserve for
// sentinels without ever colliding with a real entry.
const (
	OffsetUnset   uint64 = 0x00
	OffsetDynamic uint64 = 0x01
	OffsetInvalid uint64 = 0xFF
	// StaticOffsetMin is the lowest in_file_offset value that can be a
	// real static unique-stack offset.
	StaticOffsetMin uint64 = 0x100
)

// LockTimeout is the hard cap on ring-buffer mutex acquisition: entries
// are dropped rather than blocking tracing indefinitely.
const LockTimeout = 2 * time.Second

// DynamicDefaultCapacity is the ring capacity used when a dynamic
// (runtime-named) tracepoint auto-creates its tracebuffer on first use.
const DynamicDefaultCapacity uint64 = 10 * 1024

// headSize is the fixed TraceEntryHead prefix: 48-bit offset (6 bytes)
// + pid(4) + tid(4) + timestamp_ns(8).
const headSize = 6 + 4 + 4 + 8

// HeadSize is headSize, exported for decoders parsing a raw ring entry
// back into its TraceEntryHead and argument payload.
const HeadSize = headSize

// ParseHead decodes the fixed TraceEntryHead prefix of a raw ring entry.
func ParseHead(entry []byte) (offset uint64, pid, tid uint32, timestampNS uint64, ok bool) {
	if len(entry) < headSize {
		return 0, 0, 0, 0, false
	}
	offset = uint64(entry[0]) | uint64(entry[1])<<8 | uint64(entry[2])<<16 |
		uint64(entry[3])<<24 | uint64(entry[4])<<32 | uint64(entry[5])<<40
	pid = getU32(entry[6:])
	tid = getU32(entry[10:])
	timestampNS = getU64(entry[14:])
	return offset, pid, tid, timestampNS, true
}

func getU32(src []byte) uint32 {
	return uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16 | uint32(src[3])<<24
}

func getU64(src []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(src[i]) << (8 * i)
	}
	return v
}

func writeHead(dst []byte, offset uint64, pid, tid uint32, timestampNS uint64) {
	dst[0] = byte(offset)
	dst[1] = byte(offset >> 8)
	dst[2] = byte(offset >> 16)
	dst[3] = byte(offset >> 24)
	dst[4] = byte(offset >> 32)
	dst[5] = byte(offset >> 40)
	putU32(dst[6:], pid)
	putU32(dst[10:], tid)
	putU64(dst[14:], timestampNS)
}

func putU32(dst []byte, v uint32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 24)
}

func putU64(dst []byte, v uint64) {
	for i := 0; i < 8; i++ {
		dst[i] = byte(v >> (8 * i))
	}
}

// Emit runs the static tracepoint fast path: validate offset, build the
// head, size and serialize args, acquire the ring mutex (bounded), and
// append. A dropped entry (timeout, oversized payload, non-static
// offset) is a recoverable error, never a panic.
func Emit(log errs.Logger, ring *ringbuffer.Ring, offset uint64, args []argcodec.Arg) error {
	if offset < StaticOffsetMin {
		return errs.Recoverable(log, "tracepoint: in_file_offset 0x%x is not static, dropping entry", offset)
	}

	total := headSize + argcodec.Size(args)
	if total >= argcodec.MaxEntrySize {
		return errs.Recoverable(log, "tracepoint: entry size %d exceeds ring entry limit, dropping", total)
	}

	scratch := platform.Stage(total)
	defer scratch.Release()
	buf := scratch.Bytes()[:total]

	writeHead(buf, offset, platform.Pid(), platform.Tid(), platform.TimestampNS())
	if _, err := argcodec.Serialize(buf[headSize:], args); err != nil {
		return errs.Recoverable(log, "tracepoint: serialize failed: %v", err)
	}

	return appendToRing(log, ring, buf)
}

// EmitDump runs the dump tracepoint fast path: the payload is a raw
// byte dump, laid out as {u32 size; raw bytes}, with no sizing pass.
func EmitDump(log errs.Logger, ring *ringbuffer.Ring, offset uint64, data []byte) error {
	if offset < StaticOffsetMin {
		return errs.Recoverable(log, "tracepoint: in_file_offset 0x%x is not static, dropping dump entry", offset)
	}

	total := headSize + 4 + len(data)
	if total >= argcodec.MaxEntrySize {
		return errs.Recoverable(log, "tracepoint: dump entry size %d exceeds ring entry limit, dropping", total)
	}

	scratch := platform.Stage(total)
	defer scratch.Release()
	buf := scratch.Bytes()[:total]

	writeHead(buf, offset, platform.Pid(), platform.Tid(), platform.TimestampNS())
	putU32(buf[headSize:], uint32(len(data)))
	copy(buf[headSize+4:], data)

	return appendToRing(log, ring, buf)
}

// EmitDynamic runs the dynamic (runtime-named) tracepoint fast path: the
// call site is not known until runtime, so in_file_offset is the
// OffsetDynamic sentinel and the entry body carries the source location
// and a fully formatted message inline instead of referencing the
// unique stack.
func EmitDynamic(log errs.Logger, ring *ringbuffer.Ring, file string, line uint32, message string) error {
	bodyLen := len(file) + 1 + 4 + len(message) + 1
	total := headSize + bodyLen
	if total >= argcodec.MaxEntrySize {
		return errs.Recoverable(log, "tracepoint: dynamic entry size %d exceeds ring entry limit, dropping", total)
	}

	scratch := platform.Stage(total)
	defer scratch.Release()
	buf := scratch.Bytes()[:total]

	writeHead(buf, OffsetDynamic, platform.Pid(), platform.Tid(), platform.TimestampNS())
	off := headSize
	copy(buf[off:], file)
	off += len(file)
	buf[off] = 0
	off++
	putU32(buf[off:], line)
	off += 4
	copy(buf[off:], message)
	off += len(message)
	buf[off] = 0

	return appendToRing(log, ring, buf)
}

// EnsureDynamicBuffer opens the named tracebuffer, creating it with
// DynamicDefaultCapacity if it does not yet exist — the "opened on
// demand" behavior dynamic tracepoints need.
func EnsureDynamicBuffer(mgr *filemanager.Manager, log errs.Logger, name string) (*tracebuffer.Buffer, error) {
	buf, err := tracebuffer.OpenAuto(mgr, log, name)
	if err == nil {
		return buf, nil
	}
	return tracebuffer.Create(mgr, log, name, DynamicDefaultCapacity, definition.Userspace)
}

func appendToRing(log errs.Logger, ring *ringbuffer.Ring, buf []byte) error {
	res, err := ring.Mutex.TryLock(LockTimeout)
	if err != nil {
		return errs.Recoverable(log, "tracepoint: mutex acquisition error: %v", err)
	}
	switch res {
	case mutex.Locked, mutex.Recovered:
		defer ring.Mutex.Unlock()
		if _, err := ring.In(buf); err != nil {
			return errs.Recoverable(log, "tracepoint: ring.In failed: %v", err)
		}
		return nil
	case mutex.Timeout:
		return errs.Recoverable(log, "tracepoint: ring mutex acquisition timed out, dropping entry")
	default:
		return errs.Recoverable(log, "tracepoint: ring mutex result %v, dropping entry", res)
	}
}

// vim: foldmethod=marker
