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

// Package ringbuffer implements a variable-length, framed, drop-oldest
// ring buffer: a RingHead (embedded mutex, cursors, counters) followed
// by a body of self-describing RingEntry frames.
//
// The overall shape — a mmap'd []byte view wrapped by head/tail
// cursors guarded by a mutex, with an eviction loop that advances the
// read cursor to make room — is a familiar one; what's particular here
// is the framing (self-describing, CRC-checked entries instead of a
// bare length-prefixed record) and the recovery behavior a
// self-describing frame makes possible.
package ringbuffer

import (
	"encoding/binary"
	"errors"
	"os"

	"github.com/clltk/tracekit/internal/crc8"
	"github.com/clltk/tracekit/mutex"
)

// entryMagic marks the start of a RingEntry.
const entryMagic = '~'

// frameOverhead is magic(1) + body_size(2) + head_crc(1) + body_crc(1).
const frameOverhead = 5

// HeaderSize is the size, in bytes, of a RingHead before its body:
// the embedded mutex plus five u64 fields plus reserved padding.
const HeaderSize = mutex.Size + 5*8 + 40

const (
	offBodySize  = mutex.Size + 0
	offWrapped   = mutex.Size + 8
	offDropped   = mutex.Size + 16
	offNextFree  = mutex.Size + 24
	offLastValid = mutex.Size + 32
)

// ErrTooSmall is returned by Init when the region cannot hold even the
// header plus the one mandatory guard byte.
var ErrTooSmall = errors.New("ringbuffer: region too small for a RingHead")

// ErrEntryTooLarge is returned by In when a payload can never fit the
// ring regardless of eviction.
var ErrEntryTooLarge = errors.New("ringbuffer: entry larger than ring capacity")

// ErrDestTooSmall is returned by Out when the destination buffer cannot
// hold the next entry; the read cursor is left unmodified so a retry
// with a larger buffer succeeds.
var ErrDestTooSmall = errors.New("ringbuffer: destination buffer smaller than next entry")

// Ring is a handle onto a RingHead-plus-body section of a tracebuffer
// file.
type Ring struct {
	region []byte // header + body, in file order
	body   []byte // region[HeaderSize:]
	Mutex  *mutex.Mutex
}

// Init lays out a fresh RingHead (including its mutex) over region,
// whose length determines the ring's body size:
// body_size = len(region) - HeaderSize - 1 (one guard byte).
func Init(file *os.File, fileOffset int64, region []byte) (*Ring, error) {
	if len(region) <= HeaderSize+1 {
		return nil, ErrTooSmall
	}
	r := &Ring{region: region, body: region[HeaderSize:]}
	r.Mutex = mutex.Init(file, fileOffset, region[:mutex.Size])
	r.setBodySize(uint64(len(r.body) - 1))
	r.setWrapped(0)
	r.setDropped(0)
	r.setNextFree(0)
	r.setLastValid(0)
	return r, nil
}

// Open wraps an existing, already-initialized RingHead region. A nil
// region is not an error — it means "no ring here" — and yields a nil
// *Ring.
func Open(file *os.File, fileOffset int64, region []byte) (*Ring, error) {
	if region == nil {
		return nil, nil
	}
	if len(region) <= HeaderSize+1 {
		return nil, ErrTooSmall
	}
	r := &Ring{region: region, body: region[HeaderSize:]}
	r.Mutex = mutex.Open(file, fileOffset, region[:mutex.Size])
	return r, nil
}

func (r *Ring) u64(off int) uint64        { return binary.LittleEndian.Uint64(r.region[off : off+8]) }
func (r *Ring) setU64(off int, v uint64)  { binary.LittleEndian.PutUint64(r.region[off:off+8], v) }

func (r *Ring) bodySize() uint64        { return r.u64(offBodySize) }
func (r *Ring) setBodySize(v uint64)    { r.setU64(offBodySize, v) }
func (r *Ring) nextFree() uint64        { return r.u64(offNextFree) }
func (r *Ring) setNextFree(v uint64)    { r.setU64(offNextFree, v) }
func (r *Ring) lastValid() uint64       { return r.u64(offLastValid) }
func (r *Ring) setLastValid(v uint64)   { r.setU64(offLastValid, v) }

// Wrapped returns the number of times the write cursor has wrapped
// past the end of the body.
func (r *Ring) Wrapped() uint64 { return r.u64(offWrapped) }
func (r *Ring) setWrapped(v uint64) { r.setU64(offWrapped, v) }
func (r *Ring) addWrapped(n uint64) {
	r.setWrapped(saturatingAdd(r.Wrapped(), n))
}

// Dropped returns the number of whole entries dropped to make room for
// newer ones.
func (r *Ring) Dropped() uint64 { return r.u64(offDropped) }
func (r *Ring) setDropped(v uint64) { r.setU64(offDropped, v) }
func (r *Ring) addDropped(n uint64) {
	r.setDropped(saturatingAdd(r.Dropped(), n))
}

func saturatingAdd(a, b uint64) uint64 {
	sum := a + b
	if sum < a {
		return ^uint64(0)
	}
	return sum
}

// Capacity returns the body size in bytes.
func (r *Ring) Capacity() uint64 { return r.bodySize() }

// Occupied returns the number of bytes currently holding framed
// entries.
func (r *Ring) Occupied() uint64 {
	nf, lv := r.nextFree(), r.lastValid()
	if nf >= lv {
		return nf - lv
	}
	return r.physSize() - lv + nf
}

// Available returns the complement of Occupied, so Occupied()+
// Available() == Capacity() always holds (testable property 2).
func (r *Ring) Available() uint64 {
	return r.bodySize() - r.Occupied()
}

// IsEmpty reports whether the ring holds no entries.
func (r *Ring) IsEmpty() bool { return r.nextFree() == r.lastValid() }

// IsFull reports whether a write of even a single byte would require
// eviction.
func (r *Ring) IsFull() bool {
	return (r.nextFree()+1)%r.physSize() == r.lastValid()
}

// physSize is the size of the physical body in the mod arithmetic used
// by cursors: bodySize usable bytes plus the one guard byte that keeps
// next_free from ever wrapping back onto last_valid while the ring is
// genuinely full. Capacity() and bodySize() stay at the usable size;
// only cursor indexing uses physSize.
func (r *Ring) physSize() uint64 { return r.bodySize() + 1 }

func (r *Ring) mod(v uint64) uint64 { return v % r.physSize() }

// ringRead copies n bytes starting at logical offset off (mod
// physSize) out of the body, handling wraparound. physSize, not
// bodySize, is the split point: the body array itself is physSize
// bytes long (bodySize usable plus the one guard byte).
func (r *Ring) ringRead(off, n uint64) []byte {
	size := r.physSize()
	off = r.mod(off)
	out := make([]byte, n)
	if off+n <= size {
		copy(out, r.body[off:off+n])
		return out
	}
	first := size - off
	copy(out, r.body[off:size])
	copy(out[first:], r.body[:n-first])
	return out
}

// ringWrite writes data starting at logical offset off (mod
// physSize), handling wraparound.
func (r *Ring) ringWrite(off uint64, data []byte) {
	size := r.physSize()
	off = r.mod(off)
	n := uint64(len(data))
	if off+n <= size {
		copy(r.body[off:off+n], data)
		return
	}
	first := size - off
	copy(r.body[off:size], data[:first])
	copy(r.body[:n-first], data[first:])
}

func (r *Ring) byteAt(off uint64) byte { return r.body[r.mod(off)] }

func (r *Ring) setByteAt(off uint64, b byte) { r.body[r.mod(off)] = b }

// frame describes a successfully validated RingEntry at a given
// cursor.
type frame struct {
	cursor   uint64
	bodySize uint16
	total    uint64 // frameOverhead + int(bodySize)
}

// validateAt checks whether a valid RingEntry begins at cursor:
// magic, head CRC, and body CRC must all check out.
func (r *Ring) validateAt(cursor uint64) (frame, bool) {
	if r.byteAt(cursor) != entryMagic {
		return frame{}, false
	}
	head := r.ringRead(cursor, 4) // magic + body_size(2) + head_crc(1)
	wantHeadCRC := crc8.Sum(head[:3])
	if head[3] != wantHeadCRC {
		return frame{}, false
	}
	bsize := binary.LittleEndian.Uint16(head[1:3])
	total := frameOverhead + uint64(bsize)
	if total > r.bodySize() {
		return frame{}, false
	}
	body := r.ringRead(cursor+4, uint64(bsize))
	wantBodyCRC := crc8.Sum(body)
	gotBodyCRC := r.byteAt(cursor + 4 + uint64(bsize))
	if gotBodyCRC != wantBodyCRC {
		return frame{}, false
	}
	return frame{cursor: cursor, bodySize: bsize, total: total}, true
}

// frameLenUnchecked reads just the length prefix of the frame at
// cursor, trusting it without CRC validation — used only to walk
// entries this process itself wrote (eviction bookkeeping and Clear),
// never on data that might be torn.
func (r *Ring) frameLenUnchecked(cursor uint64) uint64 {
	bsize := binary.LittleEndian.Uint16(r.ringRead(cursor+1, 2))
	return frameOverhead + uint64(bsize)
}

// In appends payload as one framed entry, evicting the oldest entries
// as needed to make room. Returns len(payload) on success. An empty or
// nil payload is a no-op returning (0, nil). A payload that can never
// fit the ring (even empty) returns ErrEntryTooLarge.
func (r *Ring) In(payload []byte) (int, error) {
	n := uint64(len(payload))
	if n == 0 {
		return 0, nil
	}
	total := n + frameOverhead
	if total > r.bodySize() {
		return 0, ErrEntryTooLarge
	}

	var evicted uint64
	// Bounded defensively: a well-formed chain frees at least
	// frameOverhead bytes per step, so this always terminates well
	// before bodySize iterations; the cap only guards against treating
	// a corrupted (un-CRC-checked) chain as if it were trustworthy.
	for i, iterCap := uint64(0), r.bodySize()+1; r.Available() < total && i < iterCap; i++ {
		flen := r.frameLenUnchecked(r.lastValid())
		if flen == 0 {
			flen = 1
		}
		r.setLastValid(r.mod(r.lastValid() + flen))
		evicted++
	}
	if evicted > 0 {
		r.addDropped(evicted)
	}

	start := r.nextFree()
	bodyStart := start + 4
	bodyCRCPos := bodyStart + n
	end := start + total

	r.ringWrite(bodyStart, payload)
	r.setByteAt(bodyCRCPos, crc8.Sum(payload))

	head := make([]byte, 4)
	head[0] = entryMagic
	binary.LittleEndian.PutUint16(head[1:3], uint16(n))
	head[3] = crc8.Sum(head[:3])
	r.ringWrite(start, head)

	if r.mod(start)+total > r.physSize() {
		r.addWrapped(1)
	}
	r.setNextFree(r.mod(end))

	return int(n), nil
}

// Out reads the next entry into dst, which must be large enough to
// hold it. If the ring holds no valid entries it returns (0, nil).
//
// Before returning a valid entry, Out validates magic/head-CRC/body-CRC
// at the read cursor; on failure it advances the cursor one byte at a
// time, revalidating, until it either finds a fully valid frame or
// reaches the write cursor. This is the torn-write recovery path: it
// runs unconditionally, which is also what makes it sufficient recovery
// after a mutex TryLock reports Recovered — the ring's own
// cursors are never trusted blindly, only a validated magic+CRC chain
// is.
func (r *Ring) Out(dst []byte) (int, error) {
	cursor := r.lastValid()
	limit := r.nextFree()

	for cursor != limit {
		f, ok := r.validateAt(cursor)
		if !ok {
			cursor = r.mod(cursor + 1)
			continue
		}
		if uint64(len(dst)) < uint64(f.bodySize) {
			return 0, ErrDestTooSmall
		}
		body := r.ringRead(f.cursor+4, uint64(f.bodySize))
		copy(dst, body)
		r.setLastValid(r.mod(f.cursor + f.total))
		return int(f.bodySize), nil
	}

	r.setLastValid(limit)
	return 0, nil
}

// Walk visits every currently valid entry from oldest to newest without
// consuming them, stopping early if fn returns false. It is the
// non-destructive counterpart to Out, for callers (a one-shot decode
// scan) that need to read a ring's contents repeatedly or without
// disturbing last_valid.
func (r *Ring) Walk(fn func(body []byte) bool) {
	cursor := r.lastValid()
	limit := r.nextFree()
	for i, iterCap := uint64(0), r.bodySize()+1; cursor != limit && i < iterCap; i++ {
		f, ok := r.validateAt(cursor)
		if !ok {
			cursor = r.mod(cursor + 1)
			continue
		}
		body := r.ringRead(f.cursor+4, uint64(f.bodySize))
		if !fn(body) {
			return
		}
		cursor = r.mod(f.cursor + f.total)
	}
}

// Clear discards all entries without reading them. wrapped and
// next_free are unchanged; dropped accumulates the number of entries
// discarded.
func (r *Ring) Clear() {
	var cleared uint64
	cursor := r.lastValid()
	limit := r.nextFree()
	for i, iterCap := uint64(0), r.bodySize()+1; cursor != limit && i < iterCap; i++ {
		flen := r.frameLenUnchecked(cursor)
		if flen == 0 {
			flen = 1
		}
		cursor = r.mod(cursor + flen)
		cleared++
	}
	r.setLastValid(limit)
	if cleared > 0 {
		r.addDropped(cleared)
	}
}

// vim: foldmethod=marker
