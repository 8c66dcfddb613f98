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

// Package argcodec implements a two-pass, type-tagged argument
// serialization format: a sizing pass that computes the packed width of
// an argument list, and a serialization pass that writes it
// little-endian with no padding.
//
// A C varargs producer would read promoted values (u8/i8/u16/i16/float
// promoted to u32/double) off a va_list and narrow them on store. Go
// has no varargs promotion: callers already hand argcodec explicitly
// typed values, so that narrowing step has no Go-side analogue and is
// not modeled here — only the on-disk width and byte layout it produces
// are preserved.
package argcodec

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
)

// Type byte codes used on the wire.
const (
	TypeUnknown = '?'
	TypeU8      = 'c'
	TypeI8      = 'C'
	TypeU16     = 'w'
	TypeI16     = 'W'
	TypeU32     = 'i'
	TypeI32     = 'I'
	TypeU64     = 'l'
	TypeI64     = 'L'
	TypeU128    = 'q'
	TypeI128    = 'Q'
	TypeF32     = 'f'
	TypeF64     = 'd'
	TypeString  = 's'
	TypePointer = 'p'
	TypeDump    = 'x'
)

// Arg is one argument to be serialized. Exactly one of the value fields
// is meaningful, selected by Type.
type Arg struct {
	Type byte

	U64 uint64  // c/C/w/W/i/I/l/L/p: value, sign bits preserved as-is
	Hi  uint64  // q/Q: high 64 bits
	Lo  uint64  // q/Q: low 64 bits
	F32 float32 // f
	F64 float64 // d
	Str string  // s: NUL is appended automatically, counted in length
	Buf []byte  // x: raw dump bytes, length is NOT NUL-terminated
}

// ErrTooLarge is returned when a computed size does not fit the ring
// entry's u16 body_size field.
var ErrTooLarge = errors.New("argcodec: serialized size exceeds ring entry limit")

// MaxEntrySize is the largest body_size a RingEntry can hold.
const MaxEntrySize = 1<<16 - 1

// Size returns the number of bytes Serialize would write for args.
func Size(args []Arg) int {
	total := 0
	for _, a := range args {
		total += argSize(a)
	}
	return total
}

func argSize(a Arg) int {
	switch a.Type {
	case TypeU8, TypeI8:
		return 1
	case TypeU16, TypeI16:
		return 2
	case TypeU32, TypeI32:
		return 4
	case TypeU64, TypeI64:
		return 8
	case TypeU128, TypeI128:
		return 16
	case TypeF32:
		return 4
	case TypeF64:
		return 8
	case TypePointer:
		return 8
	case TypeString:
		return 4 + len(a.Str) + 1
	case TypeDump:
		return 4 + len(a.Buf)
	default:
		// Unknown type codes contribute zero bytes and are a silent skip.
		return 0
	}
}

// Serialize writes args into dst in declaration order, little-endian,
// with no padding, returning the number of bytes written. dst must be at
// least Size(args) bytes.
func Serialize(dst []byte, args []Arg) (int, error) {
	need := Size(args)
	if need > MaxEntrySize {
		return 0, ErrTooLarge
	}
	if len(dst) < need {
		return 0, errors.New("argcodec: destination too small")
	}
	off := 0
	for _, a := range args {
		switch a.Type {
		case TypeU8, TypeI8:
			dst[off] = byte(a.U64)
			off++
		case TypeU16, TypeI16:
			binary.LittleEndian.PutUint16(dst[off:], uint16(a.U64))
			off += 2
		case TypeU32, TypeI32:
			binary.LittleEndian.PutUint32(dst[off:], uint32(a.U64))
			off += 4
		case TypeU64, TypeI64:
			binary.LittleEndian.PutUint64(dst[off:], a.U64)
			off += 8
		case TypeU128, TypeI128:
			binary.LittleEndian.PutUint64(dst[off:], a.Lo)
			binary.LittleEndian.PutUint64(dst[off+8:], a.Hi)
			off += 16
		case TypeF32:
			binary.LittleEndian.PutUint32(dst[off:], math.Float32bits(a.F32))
			off += 4
		case TypeF64:
			binary.LittleEndian.PutUint64(dst[off:], math.Float64bits(a.F64))
			off += 8
		case TypePointer:
			binary.LittleEndian.PutUint64(dst[off:], a.U64)
			off += 8
		case TypeString:
			n := uint32(len(a.Str) + 1)
			binary.LittleEndian.PutUint32(dst[off:], n)
			off += 4
			copy(dst[off:], a.Str)
			off += len(a.Str)
			dst[off] = 0
			off++
		case TypeDump:
			n := uint32(len(a.Buf))
			binary.LittleEndian.PutUint32(dst[off:], n)
			off += 4
			copy(dst[off:], a.Buf)
			off += len(a.Buf)
		default:
			// Silent skip, contributes no bytes.
		}
	}
	return off, nil
}

// Deserialize parses a packed argument payload back into Args given the
// type array that produced it — the decoder's mirror of Serialize.
func Deserialize(src []byte, argTypes []byte) ([]Arg, error) {
	args := make([]Arg, 0, len(argTypes))
	off := 0
	for _, t := range argTypes {
		a := Arg{Type: t}
		switch t {
		case TypeU8, TypeI8:
			if off+1 > len(src) {
				return nil, errors.New("argcodec: truncated payload")
			}
			a.U64 = uint64(src[off])
			off++
		case TypeU16, TypeI16:
			if off+2 > len(src) {
				return nil, errors.New("argcodec: truncated payload")
			}
			a.U64 = uint64(binary.LittleEndian.Uint16(src[off:]))
			off += 2
		case TypeU32, TypeI32:
			if off+4 > len(src) {
				return nil, errors.New("argcodec: truncated payload")
			}
			a.U64 = uint64(binary.LittleEndian.Uint32(src[off:]))
			off += 4
		case TypeU64, TypeI64:
			if off+8 > len(src) {
				return nil, errors.New("argcodec: truncated payload")
			}
			a.U64 = binary.LittleEndian.Uint64(src[off:])
			off += 8
		case TypeU128, TypeI128:
			if off+16 > len(src) {
				return nil, errors.New("argcodec: truncated payload")
			}
			a.Lo = binary.LittleEndian.Uint64(src[off:])
			a.Hi = binary.LittleEndian.Uint64(src[off+8:])
			off += 16
		case TypeF32:
			if off+4 > len(src) {
				return nil, errors.New("argcodec: truncated payload")
			}
			a.F32 = math.Float32frombits(binary.LittleEndian.Uint32(src[off:]))
			off += 4
		case TypeF64:
			if off+8 > len(src) {
				return nil, errors.New("argcodec: truncated payload")
			}
			a.F64 = math.Float64frombits(binary.LittleEndian.Uint64(src[off:]))
			off += 8
		case TypePointer:
			if off+8 > len(src) {
				return nil, errors.New("argcodec: truncated payload")
			}
			a.U64 = binary.LittleEndian.Uint64(src[off:])
			off += 8
		case TypeString:
			if off+4 > len(src) {
				return nil, errors.New("argcodec: truncated payload")
			}
			n := int(binary.LittleEndian.Uint32(src[off:]))
			off += 4
			if n < 1 || off+n > len(src) {
				return nil, errors.New("argcodec: truncated string payload")
			}
			a.Str = string(src[off : off+n-1]) // drop the trailing NUL
			off += n
		case TypeDump:
			if off+4 > len(src) {
				return nil, errors.New("argcodec: truncated payload")
			}
			n := int(binary.LittleEndian.Uint32(src[off:]))
			off += 4
			if off+n > len(src) {
				return nil, errors.New("argcodec: truncated dump payload")
			}
			a.Buf = append([]byte(nil), src[off:off+n]...)
			off += n
		default:
			// Unknown type contributes zero bytes; decoders surface "?".
		}
		args = append(args, a)
	}
	return args, nil
}

// DisambiguateTypes walks format positionally against argTypes and
// changes any 's' entry whose matching conversion specifier in format is
// "%p" to 'p' — the first-time check, needed
// because a macro layer emitting a pointer through a %p specifier cannot
// always tell a string type from a pointer type at compile time. It
// returns a new slice; argTypes is never mutated in place.
func DisambiguateTypes(format string, argTypes []byte) []byte {
	out := make([]byte, len(argTypes))
	copy(out, argTypes)

	specs := scanSpecifiers(format)
	for i, spec := range specs {
		if i >= len(out) {
			break
		}
		if out[i] == TypeString && spec == "p" {
			out[i] = TypePointer
		}
	}
	return out
}

// scanSpecifiers returns the conversion character of each non-literal-%
// printf specifier in format, in order.
func scanSpecifiers(format string) []string {
	const convChars = "diouxXeEfFgGaAcspn"
	var specs []string
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		if i+1 < len(format) && format[i+1] == '%' {
			i++
			continue
		}
		j := i + 1
		for j < len(format) && !strings.ContainsRune(convChars, rune(format[j])) {
			j++
		}
		if j < len(format) {
			specs = append(specs, string(format[j]))
			i = j
		}
	}
	return specs
}

// vim: foldmethod=marker
