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

// Package uniquestack implements the content-addressed, append-only
// metadata dictionary: a StackHead followed by a sequence of
// md5-deduplicated StackEntry blobs. A trace entry never
// carries its own format string and argument-type list; it carries a
// file offset into this stack, resolved once per call site and cached
// by the caller.
//
// The layout mirrors ringbuffer.Ring closely on purpose: both sections
// are a mutex-guarded header living at the front of an mmap'd region,
// resolved via the same file-offset-is-the-handle convention.
package uniquestack

import (
	"crypto/md5"
	"encoding/binary"
	"errors"
	"os"

	"github.com/clltk/tracekit/internal/crc8"
	"github.com/clltk/tracekit/mutex"
)

// stackVersion is the only StackHead version this package writes or
// accepts.
const stackVersion = 1

const (
	offVersion  = 0
	offMutex    = 8
	offReserved = 8 + mutex.Size
	offBodySize = offReserved + 8
)

// HeaderSize is the size, in bytes, of a StackHead before its body:
// version + mutex + reserved + body_size.
const HeaderSize = 8 + mutex.Size + 8 + 8

// entryOverhead is md5(16) + reserved(8) + body_size(8) + crc8(1).
const entryOverhead = 16 + 8 + 8 + 1

// ErrTooSmall is returned by Init when the region cannot hold a bare
// StackHead.
var ErrTooSmall = errors.New("uniquestack: region too small for a StackHead")

// ErrCorrupt is returned when a scan encounters a StackEntry whose CRC8
// fails to validate.
var ErrCorrupt = errors.New("uniquestack: corrupt StackEntry")

// Stack is a handle onto a StackHead-plus-body section of a tracebuffer
// file. base is that section's own offset within the file, so every
// offset the package hands back across its API (Add's return value,
// Scan's callback argument) or accepts (ReadAt) is file-absolute — the
// same convention a TraceEntry's in_file_offset uses — rather than
// relative to the section.
type Stack struct {
	region []byte
	body   []byte
	Mutex  *mutex.Mutex
	base   uint64
}

// Init lays out a fresh StackHead (including its mutex) over region,
// which begins at fileOffset bytes into the tracebuffer file.
func Init(file *os.File, fileOffset int64, region []byte) (*Stack, error) {
	if len(region) < HeaderSize {
		return nil, ErrTooSmall
	}
	s := &Stack{region: region, body: region[HeaderSize:], base: uint64(fileOffset)}
	s.Mutex = mutex.Init(file, fileOffset+8, region[offMutex:offMutex+mutex.Size])
	binary.LittleEndian.PutUint64(s.region[offVersion:], stackVersion)
	s.setBodySize(0)
	return s, nil
}

// Open wraps an existing, already-initialized StackHead region starting
// at fileOffset bytes into the tracebuffer file. A nil region yields a
// nil *Stack, matching ringbuffer.Open's convention for "no stack here."
func Open(file *os.File, fileOffset int64, region []byte) (*Stack, error) {
	if region == nil {
		return nil, nil
	}
	if len(region) < HeaderSize {
		return nil, ErrTooSmall
	}
	s := &Stack{region: region, body: region[HeaderSize:], base: uint64(fileOffset)}
	s.Mutex = mutex.Open(file, fileOffset+8, region[offMutex:offMutex+mutex.Size])
	return s, nil
}

// Version returns the StackHead's stored version.
func (s *Stack) Version() uint64 {
	return binary.LittleEndian.Uint64(s.region[offVersion:])
}

func (s *Stack) BodySize() uint64 {
	return binary.LittleEndian.Uint64(s.region[offBodySize:])
}

func (s *Stack) setBodySize(v uint64) {
	binary.LittleEndian.PutUint64(s.region[offBodySize:], v)
}

// contentHash computes md5(size || blob), the dedup key for appended
// entries.
func contentHash(size uint64, blob []byte) [16]byte {
	h := md5.New()
	var sizeBuf [8]byte
	binary.LittleEndian.PutUint64(sizeBuf[:], size)
	h.Write(sizeBuf[:])
	h.Write(blob)
	var out [16]byte
	copy(out[:], h.Sum(nil))
	return out
}

// entryAt parses the StackEntry header at body offset off, validating
// its CRC8. The returned bodyOff is the body's offset within s.body.
func (s *Stack) entryAt(off uint64) (md5sum [16]byte, bodySize uint64, bodyOff uint64, ok bool) {
	if off+entryOverhead > uint64(len(s.body)) {
		return md5sum, 0, 0, false
	}
	head := s.body[off : off+entryOverhead]
	copy(md5sum[:], head[0:16])
	bodySize = binary.LittleEndian.Uint64(head[24:32])
	gotCRC := head[32]
	wantCRC := crc8.Sum(head[:32])
	if gotCRC != wantCRC {
		return md5sum, 0, 0, false
	}
	bodyOff = off + entryOverhead
	if bodyOff+bodySize > uint64(len(s.body)) {
		return md5sum, 0, 0, false
	}
	return md5sum, bodySize, bodyOff, true
}

// Add appends blob as a new StackEntry, deduplicating against every
// existing entry by content hash. The return value is the file-absolute
// offset of the matched or newly written entry's body — the exact value
// a TraceEntry's in_file_offset must carry.
//
// Add does not itself acquire s.Mutex; callers serialize concurrent
// appends by holding it across the call, matching ringbuffer's
// "operations are called with the section mutex held" convention.
func (s *Stack) Add(blob []byte) (uint64, error) {
	target := contentHash(uint64(len(blob)), blob)

	bodySize := s.BodySize()
	var cursor uint64
	for cursor < bodySize {
		md5sum, entryBodySize, bodyOff, ok := s.entryAt(cursor)
		if !ok {
			return 0, ErrCorrupt
		}
		if md5sum == target {
			return s.base + uint64(HeaderSize) + bodyOff, nil
		}
		cursor = bodyOff + entryBodySize
	}

	// Miss: append a new entry.
	newOff := bodySize
	need := entryOverhead + uint64(len(blob))
	if newOff+need > uint64(len(s.body)) {
		return 0, errors.New("uniquestack: section full")
	}

	head := make([]byte, entryOverhead)
	copy(head[0:16], target[:])
	binary.LittleEndian.PutUint64(head[24:32], uint64(len(blob)))
	head[32] = crc8.Sum(head[:32])

	copy(s.body[newOff:], head)
	bodyOff := newOff + entryOverhead
	copy(s.body[bodyOff:], blob)

	s.setBodySize(newOff + need)
	return s.base + uint64(HeaderSize) + bodyOff, nil
}

// ReadAt returns the metadata blob whose body starts at the given
// file-absolute offset (as returned by Add, or read straight out of a
// TraceEntry's in_file_offset).
func (s *Stack) ReadAt(off uint64) ([]byte, error) {
	if off < s.base+uint64(HeaderSize) {
		return nil, errors.New("uniquestack: offset before stack body")
	}
	bodyOff := off - s.base - uint64(HeaderSize)
	entryOff := bodyOff - entryOverhead
	_, bodySize, gotBodyOff, ok := s.entryAt(entryOff)
	if !ok || gotBodyOff != bodyOff {
		return nil, ErrCorrupt
	}
	return s.body[bodyOff : bodyOff+bodySize], nil
}

// Scan walks every StackEntry in file order, reconciling body_size with
// what the linear scan actually finds — the owner-death recovery rule:
// body_size grows to match whatever valid data the scan turns up. It
// calls fn with each entry's body and its file-absolute offset; fn
// returning false stops the scan early.
func (s *Stack) Scan(fn func(off uint64, blob []byte) bool) {
	var cursor uint64
	var lastGood uint64
	for {
		md5sum, bodySize, bodyOff, ok := s.entryAt(cursor)
		// Zeroed, never-written space passes the header CRC8 (the CRC8
		// of all-zero bytes is zero), so an entry only counts once its
		// md5 also matches its body.
		if !ok || contentHash(bodySize, s.body[bodyOff:bodyOff+bodySize]) != md5sum {
			break
		}
		lastGood = bodyOff + bodySize
		if !fn(s.base+uint64(HeaderSize)+bodyOff, s.body[bodyOff:bodyOff+bodySize]) {
			return
		}
		cursor = lastGood
	}
	if lastGood > s.BodySize() {
		s.setBodySize(lastGood)
	}
}

// vim: foldmethod=marker
