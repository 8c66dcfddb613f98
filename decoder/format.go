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

package decoder

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/clltk/tracekit/argcodec"
)

// Human renders r the way a terminal consumer reads it:
// "[pid:tid] timestamp file:line message".
func Human(r *Record) string {
	var sb strings.Builder
	ts := time.Unix(0, int64(r.TimestampNS)).UTC().Format("2006-01-02T15:04:05.000000000Z")
	fmt.Fprintf(&sb, "[%d:%d] %s %s:%d %s", r.PID, r.TID, ts, filepath.Base(r.File), r.Line, renderMessage(r))
	return sb.String()
}

// renderMessage reconstructs the printf-style message from a format
// string and its decoded args, or returns the dump/dynamic message
// as-is.
func renderMessage(r *Record) string {
	if r.Meta == nil {
		return r.Message
	}
	switch r.Meta.Kind {
	case KindDump:
		return fmt.Sprintf("%s (%d bytes)", r.Meta.FormatStr, len(r.DumpBytes))
	default:
		return applyFormat(r.Meta.FormatStr, r.Args)
	}
}

// applyFormat substitutes each decoded Arg into its printf-style
// conversion specifier in format, left to right. It does not attempt to
// honor width/precision flags, only the conversion character, which is
// all DisambiguateTypes's positional matching guarantees line up.
func applyFormat(format string, args []argcodec.Arg) string {
	var sb strings.Builder
	argIdx := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			sb.WriteByte(c)
			continue
		}
		if i+1 < len(format) && format[i+1] == '%' {
			sb.WriteByte('%')
			i++
			continue
		}
		j := i + 1
		for j < len(format) && !strings.ContainsRune("diouxXeEfFgGaAcspn", rune(format[j])) {
			j++
		}
		if j >= len(format) {
			sb.WriteString(format[i:])
			break
		}
		if argIdx < len(args) {
			sb.WriteString(formatArg(args[argIdx]))
			argIdx++
		}
		i = j
	}
	return sb.String()
}

func formatArg(a argcodec.Arg) string {
	switch a.Type {
	case argcodec.TypeU8, argcodec.TypeU16, argcodec.TypeU32, argcodec.TypeU64:
		return strconv.FormatUint(a.U64, 10)
	case argcodec.TypeI8, argcodec.TypeI16, argcodec.TypeI32:
		return strconv.FormatInt(int64(int32(a.U64)), 10)
	case argcodec.TypeI64:
		return strconv.FormatInt(int64(a.U64), 10)
	case argcodec.TypeU128, argcodec.TypeI128:
		if a.Hi == 0 {
			return strconv.FormatUint(a.Lo, 10)
		}
		return fmt.Sprintf("0x%016x%016x", a.Hi, a.Lo)
	case argcodec.TypeF32:
		return strconv.FormatFloat(float64(a.F32), 'g', -1, 32)
	case argcodec.TypeF64:
		return strconv.FormatFloat(a.F64, 'g', -1, 64)
	case argcodec.TypePointer:
		return fmt.Sprintf("0x%x", a.U64)
	case argcodec.TypeString:
		return a.Str
	case argcodec.TypeDump:
		return fmt.Sprintf("<%d bytes>", len(a.Buf))
	default:
		return "?"
	}
}

// jsonRecord is the NDJSON wire shape for a Record.
type jsonRecord struct {
	Source      string `json:"source"`
	PID         uint32 `json:"pid"`
	TID         uint32 `json:"tid"`
	TimestampNS uint64 `json:"timestamp_ns"`
	File        string `json:"file"`
	Line        uint32 `json:"line"`
	Message     string `json:"message"`
	Args        []any  `json:"args,omitempty"`
}

// NDJSON encodes r as a single-line JSON object to w, followed by a
// newline.
func NDJSON(w io.Writer, r *Record) error {
	jr := jsonRecord{
		Source:      r.Source,
		PID:         r.PID,
		TID:         r.TID,
		TimestampNS: r.TimestampNS,
		File:        r.File,
		Line:        r.Line,
		Message:     renderMessage(r),
	}
	for _, a := range r.Args {
		jr.Args = append(jr.Args, jsonArgValue(a))
	}
	enc := json.NewEncoder(w)
	return enc.Encode(jr)
}

func jsonArgValue(a argcodec.Arg) any {
	switch a.Type {
	case argcodec.TypeU8, argcodec.TypeU16, argcodec.TypeU32, argcodec.TypeU64:
		return a.U64
	case argcodec.TypeI8, argcodec.TypeI16, argcodec.TypeI32:
		return int64(int32(a.U64))
	case argcodec.TypeI64:
		return int64(a.U64)
	case argcodec.TypeU128, argcodec.TypeI128:
		return formatArg(a)
	case argcodec.TypeF32:
		return float64(a.F32)
	case argcodec.TypeF64:
		return a.F64
	case argcodec.TypePointer:
		return formatArg(a)
	case argcodec.TypeString:
		return a.Str
	case argcodec.TypeDump:
		return fmt.Sprintf("<%d bytes>", len(a.Buf))
	default:
		return nil
	}
}

// vim: foldmethod=marker
