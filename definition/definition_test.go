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

package definition

import (
	"encoding/binary"
	"testing"

	"github.com/clltk/tracekit/internal/crc8"
)

func TestInitThenReadBack(t *testing.T) {
	name := "my.trace.unit"
	dst := make([]byte, CalculateSize(len(name)))

	if !Init(dst, name, Userspace) {
		t.Fatalf("Init returned false")
	}
	if got := GetName(dst); got != name {
		t.Fatalf("GetName() = %q, want %q", got, name)
	}
	if got := GetSourceType(dst); got != Userspace {
		t.Fatalf("GetSourceType() = %v, want Userspace", got)
	}
	if !ValidateCRC(dst) {
		t.Fatalf("ValidateCRC() = false, want true")
	}
	if BodySize(dst) != uint64(len(dst)-8) {
		t.Fatalf("BodySize() = %d, want %d", BodySize(dst), len(dst)-8)
	}
}

func TestInitRejectsEmptyNameOrDst(t *testing.T) {
	if Init(nil, "x", Userspace) {
		t.Fatalf("Init(nil dst) should fail")
	}
	dst := make([]byte, CalculateSize(1))
	if Init(dst, "", Userspace) {
		t.Fatalf("Init(empty name) should fail")
	}
}

func TestLegacyDefinitionHasNoExtendedBlock(t *testing.T) {
	name := "legacy-unit"
	dst := make([]byte, 8+len(name)+1)
	binary.LittleEndian.PutUint64(dst[0:8], uint64(len(name)+1))
	copy(dst[8:], name)
	dst[8+len(name)] = 0

	if got := GetName(dst); got != name {
		t.Fatalf("GetName() = %q, want %q", got, name)
	}
	if got := GetSourceType(dst); got != Unknown {
		t.Fatalf("GetSourceType() = %v, want Unknown for legacy section", got)
	}
	if !ValidateCRC(dst) {
		t.Fatalf("ValidateCRC() = false, want true for legacy section")
	}
}

func TestValidateCRCDetectsCorruption(t *testing.T) {
	name := "unit"
	dst := make([]byte, CalculateSize(len(name)))
	Init(dst, name, Kernel)

	dst[len(dst)-1] ^= 0xFF // corrupt the extended block's crc8 byte

	if ValidateCRC(dst) {
		t.Fatalf("ValidateCRC() = true, want false after corrupting crc8")
	}
}

func TestGetSourceTypeOutOfRangeIsUnknown(t *testing.T) {
	name := "unit"
	dst := make([]byte, CalculateSize(len(name)))
	Init(dst, name, TTY)

	ext, ok := extendedBlock(dst)
	if !ok {
		t.Fatalf("expected an extended block")
	}
	ext[9] = 200 // out of range source kind
	ext[15] = crc8.Sum(ext[:15])

	if got := GetSourceType(dst); got != Unknown {
		t.Fatalf("GetSourceType() = %v, want Unknown for out-of-range code", got)
	}
}

// vim: foldmethod=marker
