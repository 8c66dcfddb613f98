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

// Package tracebuffer assembles the four fixed sections of a trace file
// — file header, definition, ring buffer, unique stack — into a single
// mmap'd file, and validates that file's header (magic, version, CRC8)
// on every open.
//
// The single-section layout-arithmetic approach generalizes here to a
// four-section file: the offset-computation shape survives, the
// section set does not.
package tracebuffer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/clltk/tracekit/definition"
	"github.com/clltk/tracekit/errs"
	"github.com/clltk/tracekit/filemanager"
	"github.com/clltk/tracekit/internal/crc8"
	"github.com/clltk/tracekit/ringbuffer"
	"github.com/clltk/tracekit/uniquestack"
)

// headerMagic is the exact 16-byte ASCII magic pins down:
// "?#$~tracebuffer\0".
var headerMagic = [16]byte{
	'?', '#', '$', '~', 't', 'r', 'a', 'c', 'e', 'b', 'u', 'f', 'f', 'e', 'r', 0,
}

// Version is the current on-disk format version written by Create.
const Version uint64 = 1

// VersionMask controls which version bits are significant when checking
// compatibility on Open; all bits for now, since there is only one
// format revision.
const VersionMask uint64 = ^uint64(0)

// HeaderSize is the fixed 56-byte file header.
const HeaderSize = 56

const (
	offMagic       = 0
	offVersion     = 16
	offDefSection  = 24
	offRBSection   = 32
	offStackSec    = 40
	offReserved    = 48
	offHeaderCRC8  = 55
	headerCRCBytes = 55
)

var (
	// ErrBadMagic is returned by Open when the file does not begin with
	// the tracebuffer magic.
	ErrBadMagic = errors.New("tracebuffer: bad magic")
	// ErrBadVersion is returned by Open when the stored version is not
	// compatible under VersionMask.
	ErrBadVersion = errors.New("tracebuffer: incompatible version")
	// ErrBadHeaderCRC is returned by Open when the header's CRC8 fails.
	ErrBadHeaderCRC = errors.New("tracebuffer: header CRC8 mismatch")
)

// alignUp8 rounds n up to the next multiple of 8.
func alignUp8(n int) int {
	return (n + 7) &^ 7
}

// layout is the fully computed set of section offsets and the total file
// size for a given name and requested ring capacity, per the section layout.
type layout struct {
	defOff    int
	defSize   int
	rbOff     int
	rbSize    int
	stackOff  int
	stackSize int
	fileSize  int64
}

func computeLayout(name string, requestedCapacity uint64) layout {
	var l layout
	l.defOff = HeaderSize
	l.defSize = definition.CalculateSize(len(name))
	l.rbOff = alignUp8(l.defOff + l.defSize)
	l.rbSize = ringbuffer.HeaderSize + int(requestedCapacity) + 1
	l.stackOff = alignUp8(l.rbOff + l.rbSize)
	l.stackSize = uniquestack.HeaderSize
	l.fileSize = int64(l.stackOff + l.stackSize)
	return l
}

// Buffer is an open tracebuffer file: its header, definition, ring
// buffer, and unique stack, all views onto one mmap'd region.
type Buffer struct {
	Name    string
	handle  *filemanager.Handle
	log     errs.Logger
	Ring    *ringbuffer.Ring
	Stack   *uniquestack.Stack
	defBody []byte
}

// Create builds and publishes a new tracebuffer file named name with
// the given ring capacity and source kind, or returns the existing one
// if a concurrent creator won the race.
func Create(mgr *filemanager.Manager, log errs.Logger, name string, requestedCapacity uint64, kind definition.SourceKind) (*Buffer, error) {
	l := computeLayout(name, requestedCapacity)

	h, err := mgr.Create(name, l.fileSize, func(file *os.File, region []byte) error {
		writeHeader(region, l)
		if !definition.Init(region[l.defOff:l.defOff+l.defSize], name, kind) {
			return fmt.Errorf("tracebuffer: definition.Init failed for %q", name)
		}
		if _, err := ringbuffer.Init(file, int64(l.rbOff), region[l.rbOff:l.rbOff+l.rbSize]); err != nil {
			return err
		}
		if _, err := uniquestack.Init(file, int64(l.stackOff), region[l.stackOff:l.stackOff+l.stackSize]); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wrap(h, log)
}

// Open opens an existing tracebuffer file by name, validating its
// header. A header mismatch is an unrecoverable misconfiguration per
// the section layout.
func Open(mgr *filemanager.Manager, log errs.Logger, name string, size int64) (*Buffer, error) {
	h, err := mgr.Open(name, size)
	if err != nil {
		return nil, err
	}
	if err := validateHeader(h.Region); err != nil {
		errs.Unrecoverable(log, "tracebuffer: %q failed header validation: %v", name, err)
		return nil, err
	}
	return wrap(h, log)
}

// OpenAuto opens an existing tracebuffer file by name without requiring
// the caller to already know its size — it stats the file first, which
// is what a discovery-driven consumer (one that found name via
// filemanager.ListSources rather than having created it itself) needs.
func OpenAuto(mgr *filemanager.Manager, log errs.Logger, name string) (*Buffer, error) {
	size, err := mgr.StatSize(name)
	if err != nil {
		return nil, err
	}
	return Open(mgr, log, name, size)
}

func wrap(h *filemanager.Handle, log errs.Logger) (*Buffer, error) {
	region := h.Region
	defOff := int(binary.LittleEndian.Uint64(region[offDefSection:]))
	rbOff := int(binary.LittleEndian.Uint64(region[offRBSection:]))
	stackOff := int(binary.LittleEndian.Uint64(region[offStackSec:]))

	defSize := 8 + int(definition.BodySize(region[defOff:]))

	rb, err := ringbuffer.Open(h.File(), int64(rbOff), region[rbOff:stackOff])
	if err != nil {
		return nil, err
	}
	st, err := uniquestack.Open(h.File(), int64(stackOff), region[stackOff:])
	if err != nil {
		return nil, err
	}

	return &Buffer{
		Name:    h.Name,
		handle:  h,
		log:     log,
		Ring:    rb,
		Stack:   st,
		defBody: region[defOff : defOff+defSize],
	}, nil
}

// Close releases the underlying file-manager handle.
func (b *Buffer) Close(mgr *filemanager.Manager) error {
	return mgr.Close(b.handle)
}

// DefinitionName returns the tracebuffer's stored name.
func (b *Buffer) DefinitionName() string { return definition.GetName(b.defBody) }

// SourceKind returns the tracebuffer's stored source kind.
func (b *Buffer) SourceKind() definition.SourceKind { return definition.GetSourceType(b.defBody) }

func writeHeader(region []byte, l layout) {
	copy(region[offMagic:offMagic+16], headerMagic[:])
	binary.LittleEndian.PutUint64(region[offVersion:], Version)
	binary.LittleEndian.PutUint64(region[offDefSection:], uint64(l.defOff))
	binary.LittleEndian.PutUint64(region[offRBSection:], uint64(l.rbOff))
	binary.LittleEndian.PutUint64(region[offStackSec:], uint64(l.stackOff))
	for i := offReserved; i < offHeaderCRC8; i++ {
		region[i] = 0
	}
	region[offHeaderCRC8] = crc8.Sum(region[:headerCRCBytes])
}

func validateHeader(region []byte) error {
	if len(region) < HeaderSize {
		return ErrBadMagic
	}
	if string(region[offMagic:offMagic+16]) != string(headerMagic[:]) {
		return ErrBadMagic
	}
	version := binary.LittleEndian.Uint64(region[offVersion:])
	if version&VersionMask != Version&VersionMask {
		return ErrBadVersion
	}
	gotCRC := region[offHeaderCRC8]
	wantCRC := crc8.Sum(region[:headerCRCBytes])
	if gotCRC != wantCRC {
		return ErrBadHeaderCRC
	}
	return nil
}

// vim: foldmethod=marker
