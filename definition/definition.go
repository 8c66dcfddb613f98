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

// Package definition implements the tracebuffer definition-section
// codec: a body_size-prefixed name string followed by an optional
// extended block (source kind, version, CRC8) that a legacy reader
// without the extension simply does not find.
package definition

import (
	"encoding/binary"

	"github.com/clltk/tracekit/internal/crc8"
)

// SourceKind classifies where a tracebuffer's entries originate.
type SourceKind uint8

const (
	Unknown SourceKind = iota
	Userspace
	Kernel
	TTY
)

// extMagic marks the presence of the extended block; its absence (or a
// failing CRC) means the section is a legacy V1 definition.
var extMagic = [8]byte{'C', 'L', 'L', 'T', 'K', '_', 'E', 'X'}

const extVersion = 2

// extBlockSize is magic(8) + version(1) + source(1) + reserved(5) + crc8(1).
const extBlockSize = 16

// CalculateSize returns the total definition-section body size for a
// name of the given length: the body_size field itself, the
// NUL-terminated name, and the extended block.
func CalculateSize(nameLen int) int {
	return 8 + (nameLen + 1) + extBlockSize
}

// Init writes a fresh definition section into dst, which must be at
// least CalculateSize(len(name)) bytes. It reports false on a nil dst,
// empty name, or undersized dst.
func Init(dst []byte, name string, sourceKind SourceKind) bool {
	if len(dst) == 0 || len(name) == 0 {
		return false
	}
	need := CalculateSize(len(name))
	if len(dst) < need {
		return false
	}

	bodySize := uint64(need - 8)
	binary.LittleEndian.PutUint64(dst[0:8], bodySize)

	nameOff := 8
	copy(dst[nameOff:], name)
	dst[nameOff+len(name)] = 0

	extOff := nameOff + len(name) + 1
	ext := dst[extOff : extOff+extBlockSize]
	copy(ext[0:8], extMagic[:])
	ext[8] = extVersion
	ext[9] = byte(sourceKind)
	for i := 10; i < 15; i++ {
		ext[i] = 0
	}
	ext[15] = crc8.Sum(ext[:15])
	return true
}

// BodySize reads the section's body_size prefix — the definition
// section's total size is 8 (this field) + BodySize(dst).
func BodySize(dst []byte) uint64 {
	if len(dst) < 8 {
		return 0
	}
	return binary.LittleEndian.Uint64(dst[0:8])
}

// GetName returns the NUL-terminated name stored at the start of the
// body, without its terminator.
func GetName(dst []byte) string {
	if len(dst) < 9 {
		return ""
	}
	body := dst[8:]
	for i, b := range body {
		if b == 0 {
			return string(body[:i])
		}
	}
	return string(body)
}

func extendedBlock(dst []byte) ([]byte, bool) {
	body := dst[8:]
	nameEnd := -1
	for i, b := range body {
		if b == 0 {
			nameEnd = i + 1
			break
		}
	}
	if nameEnd < 0 {
		return nil, false
	}
	if len(body) < nameEnd+extBlockSize {
		return nil, false
	}
	ext := body[nameEnd : nameEnd+extBlockSize]
	if string(ext[0:8]) != string(extMagic[:]) {
		return nil, false
	}
	return ext, true
}

// GetSourceType returns the stored source kind, or Unknown for a legacy
// definition or an out-of-range code.
func GetSourceType(dst []byte) SourceKind {
	ext, ok := extendedBlock(dst)
	if !ok {
		return Unknown
	}
	kind := SourceKind(ext[9])
	if kind > TTY {
		return Unknown
	}
	return kind
}

// ValidateCRC reports true for a legacy definition (no extended block)
// and for an extended definition whose CRC8 checks out; false only when
// an extended block is present but corrupt.
func ValidateCRC(dst []byte) bool {
	ext, ok := extendedBlock(dst)
	if !ok {
		return true
	}
	return ext[15] == crc8.Sum(ext[:15])
}

// vim: foldmethod=marker
