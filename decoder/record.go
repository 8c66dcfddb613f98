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

// Package decoder implements the consumer side of the tracing
// substrate: decoding a raw ring entry plus its unique-stack metadata
// into a Record, the live ordered buffer that
// reconciles entries arriving out of order across many tracebuffer
// files, and human-readable/NDJSON formatting.
package decoder

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/clltk/tracekit/argcodec"
	"github.com/clltk/tracekit/tracepoint"
	"github.com/clltk/tracekit/uniquestack"
)

// MetaEntry kinds.
const (
	KindPrintf = 1
	KindDump   = 2
)

// metaMagic marks the start of a MetaEntry within a metadata blob.
const metaMagic = '{'

// MetaEntry is one decoded call-site metadata record from the unique
// stack: the compile-time-known half of a trace entry (source location,
// format string or dump label, argument types).
type MetaEntry struct {
	Kind      byte
	Line      uint32
	ArgCount  byte
	ArgTypes  []byte // arg_count bytes, NUL stripped
	File      string
	FormatStr string // format string (printf) or label (dump)
	Size      int    // total size of this MetaEntry within the blob
}

// ErrTruncatedMeta is returned when a metadata blob is shorter than its
// own embedded fields claim.
var ErrTruncatedMeta = errors.New("decoder: truncated MetaEntry")

// ParseMetaEntry parses the first MetaEntry at the start of blob.
// Callers needing every entry in a multi-entry blob re-slice past
// Size and call again.
func ParseMetaEntry(blob []byte) (*MetaEntry, error) {
	if len(blob) < 11 || blob[0] != metaMagic {
		return nil, ErrTruncatedMeta
	}
	size := binary.LittleEndian.Uint32(blob[1:5])
	if int(size) > len(blob) || size < 11 {
		return nil, ErrTruncatedMeta
	}
	kind := blob[5]
	line := binary.LittleEndian.Uint32(blob[6:10])
	argCount := blob[10]

	off := 11
	if off+int(argCount)+1 > len(blob) {
		return nil, ErrTruncatedMeta
	}
	argTypes := append([]byte(nil), blob[off:off+int(argCount)]...)
	off += int(argCount) + 1 // +1 for the arg_types NUL

	file, n, err := readCString(blob[off:])
	if err != nil {
		return nil, err
	}
	off += n

	str, n, err := readCString(blob[off:])
	if err != nil {
		return nil, err
	}
	off += n

	return &MetaEntry{
		Kind:      kind,
		Line:      line,
		ArgCount:  argCount,
		ArgTypes:  argTypes,
		File:      file,
		FormatStr: str,
		Size:      int(size),
	}, nil
}

func readCString(b []byte) (string, int, error) {
	for i, c := range b {
		if c == 0 {
			return string(b[:i]), i + 1, nil
		}
	}
	return "", 0, ErrTruncatedMeta
}

// Record is one fully decoded trace entry: the TraceEntryHead plus
// either a resolved static call site (Meta, Args) or an inline dynamic
// entry (File/Line/Message set directly).
type Record struct {
	Source      string // the tracebuffer name this entry came from
	PID, TID    uint32
	TimestampNS uint64
	InFileOffset uint64

	Meta *MetaEntry
	Args []argcodec.Arg

	File    string
	Line    uint32
	Message string

	DumpBytes []byte
}

// Decode turns one raw ring entry (as returned by ringbuffer.Ring.Out)
// into a Record, resolving its metadata through stack when the entry is
// static.
func Decode(source string, entry []byte, stack *uniquestack.Stack) (*Record, error) {
	offset, pid, tid, ts, ok := tracepoint.ParseHead(entry)
	if !ok {
		return nil, errors.New("decoder: truncated TraceEntryHead")
	}
	payload := entry[tracepoint.HeadSize:]

	r := &Record{Source: source, PID: pid, TID: tid, TimestampNS: ts, InFileOffset: offset}

	switch offset {
	case tracepoint.OffsetDynamic:
		file, n, err := readCString(payload)
		if err != nil {
			return nil, err
		}
		payload = payload[n:]
		if len(payload) < 4 {
			return nil, ErrTruncatedMeta
		}
		line := binary.LittleEndian.Uint32(payload[:4])
		payload = payload[4:]
		msg, _, err := readCString(payload)
		if err != nil {
			return nil, err
		}
		r.File, r.Line, r.Message = file, line, msg
		return r, nil

	case tracepoint.OffsetUnset, tracepoint.OffsetInvalid:
		return nil, fmt.Errorf("decoder: entry carries sentinel in_file_offset 0x%x", offset)
	}

	blob, err := stack.ReadAt(offset)
	if err != nil {
		return nil, fmt.Errorf("decoder: resolving in_file_offset 0x%x: %w", offset, err)
	}
	meta, err := ParseMetaEntry(blob)
	if err != nil {
		return nil, err
	}
	r.Meta = meta
	r.File = meta.File
	r.Line = meta.Line

	switch meta.Kind {
	case KindDump:
		if len(payload) < 4 {
			return nil, ErrTruncatedMeta
		}
		n := binary.LittleEndian.Uint32(payload[:4])
		payload = payload[4:]
		if uint32(len(payload)) < n {
			return nil, ErrTruncatedMeta
		}
		r.DumpBytes = append([]byte(nil), payload[:n]...)
		r.Message = meta.FormatStr
	default:
		args, err := argcodec.Deserialize(payload, meta.ArgTypes)
		if err != nil {
			return nil, err
		}
		r.Args = args
	}
	return r, nil
}

// vim: foldmethod=marker
