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

package argcodec

import (
	"bytes"
	"math"
	"testing"
)

func TestSerializeThenDeserializeRoundTrip(t *testing.T) {
	args := []Arg{
		{Type: TypeU8, U64: 0xAB},
		{Type: TypeI16, U64: 0xFFFB}, // int16(-5) as raw 16-bit two's complement
		{Type: TypeU32, U64: 123456},
		{Type: TypeU64, U64: 0xdeadbeefcafef00d},
		{Type: TypeU128, Hi: 1, Lo: 2},
		{Type: TypeF32, F32: 3.5},
		{Type: TypeF64, F64: 2.71828},
		{Type: TypePointer, U64: 0x7fffdeadbeef},
		{Type: TypeString, Str: "hello"},
		{Type: TypeDump, Buf: []byte{1, 2, 3, 4}},
	}

	size := Size(args)
	dst := make([]byte, size)
	n, err := Serialize(dst, args)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if n != size {
		t.Fatalf("Serialize wrote %d bytes, want %d", n, size)
	}

	argTypes := make([]byte, len(args))
	for i, a := range args {
		argTypes[i] = a.Type
	}

	got, err := Deserialize(dst, argTypes)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if len(got) != len(args) {
		t.Fatalf("got %d args, want %d", len(got), len(args))
	}
	if got[0].U64 != 0xAB {
		t.Fatalf("arg0 = %v", got[0])
	}
	if got[4].Hi != 1 || got[4].Lo != 2 {
		t.Fatalf("u128 arg = %+v", got[4])
	}
	if got[5].F32 != 3.5 {
		t.Fatalf("f32 arg = %v", got[5].F32)
	}
	if math.Abs(got[6].F64-2.71828) > 1e-9 {
		t.Fatalf("f64 arg = %v", got[6].F64)
	}
	if got[8].Str != "hello" {
		t.Fatalf("string arg = %q", got[8].Str)
	}
	if !bytes.Equal(got[9].Buf, []byte{1, 2, 3, 4}) {
		t.Fatalf("dump arg = %v", got[9].Buf)
	}
}

func TestUnknownTypeContributesZeroBytes(t *testing.T) {
	args := []Arg{{Type: TypeUnknown}, {Type: TypeU8, U64: 7}}
	if Size(args) != 1 {
		t.Fatalf("Size() = %d, want 1", Size(args))
	}
	dst := make([]byte, 1)
	n, err := Serialize(dst, args)
	if err != nil || n != 1 || dst[0] != 7 {
		t.Fatalf("Serialize: n=%d err=%v dst=%v", n, err, dst)
	}
}

func TestStringLengthCountsNULTerminator(t *testing.T) {
	args := []Arg{{Type: TypeString, Str: "ab"}}
	if Size(args) != 4+3 {
		t.Fatalf("Size() = %d, want %d", Size(args), 4+3)
	}
}

func TestDisambiguateTypesRewritesPercentPToPointer(t *testing.T) {
	argTypes := []byte{TypeString, TypeU32}
	out := DisambiguateTypes("ptr=%p count=%u", argTypes)
	if out[0] != TypePointer {
		t.Fatalf("out[0] = %q, want TypePointer", out[0])
	}
	if out[1] != TypeU32 {
		t.Fatalf("out[1] should be untouched: %q", out[1])
	}
	if argTypes[0] != TypeString {
		t.Fatalf("DisambiguateTypes must not mutate its input slice")
	}
}

func TestDisambiguateTypesLeavesRealStringsAlone(t *testing.T) {
	argTypes := []byte{TypeString}
	out := DisambiguateTypes("name=%s", argTypes)
	if out[0] != TypeString {
		t.Fatalf("out[0] = %q, want TypeString unchanged", out[0])
	}
}

func TestSerializeRejectsOversizedPayload(t *testing.T) {
	args := []Arg{{Type: TypeDump, Buf: make([]byte, MaxEntrySize)}}
	_, err := Serialize(make([]byte, Size(args)), args)
	if err != ErrTooLarge {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
}

// vim: foldmethod=marker
