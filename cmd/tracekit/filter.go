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

package main

import (
	"io"
	"regexp"

	"github.com/clltk/tracekit/decoder"
)

// entryFilter is the CLI-level per-entry filter flags
// (--pid/--tid/--msg/--msg-regex/--file/--file-regex/--since/--until),
// compiled once from the live/decode flags and applied to every decoded
// Record.
type entryFilter struct {
	PID, TID  uint32
	Msg       string
	MsgRe     *regexp.Regexp
	File      string
	FileRe    *regexp.Regexp
	Since     uint64
	Until     uint64
}

func (f entryFilter) matches(r *decoder.Record) bool {
	if f.PID != 0 && r.PID != f.PID {
		return false
	}
	if f.TID != 0 && r.TID != f.TID {
		return false
	}
	if f.Msg != "" && r.Message != f.Msg {
		return false
	}
	if f.MsgRe != nil && !f.MsgRe.MatchString(r.Message) {
		return false
	}
	if f.File != "" && r.File != f.File {
		return false
	}
	if f.FileRe != nil && !f.FileRe.MatchString(r.File) {
		return false
	}
	if f.Since != 0 && r.TimestampNS < f.Since {
		return false
	}
	if f.Until != 0 && r.TimestampNS > f.Until {
		return false
	}
	return true
}

// entryFilterFlags is the subset of per-entry filter flags live and
// decode both expose, under identical names.
type entryFilterFlags struct {
	PID, TID           uint32
	Msg, MsgRegex      string
	File, FileRegex    string
	Since, Until       string
}

// buildFilter compiles a set of raw CLI flag values into a matchable
// entryFilter, one builder serving both the live and decode subcommands.
func buildFilter(flags entryFilterFlags) (entryFilter, error) {
	var f entryFilter
	f.PID = flags.PID
	f.TID = flags.TID
	f.Msg = flags.Msg
	f.File = flags.File

	if flags.MsgRegex != "" {
		re, err := regexp.Compile(flags.MsgRegex)
		if err != nil {
			return f, err
		}
		f.MsgRe = re
	}
	if flags.FileRegex != "" {
		re, err := regexp.Compile(flags.FileRegex)
		if err != nil {
			return f, err
		}
		f.FileRe = re
	}
	if flags.Since != "" {
		ts, err := parseTimeSpec(flags.Since)
		if err != nil {
			return f, err
		}
		f.Since = ts
	}
	if flags.Until != "" {
		ts, err := parseTimeSpec(flags.Until)
		if err != nil {
			return f, err
		}
		f.Until = ts
	}
	return f, nil
}

// writeRecord writes one decoded record to w as NDJSON or a
// human-readable line.
func writeRecord(w io.Writer, r *decoder.Record, json bool) error {
	if json {
		return decoder.NDJSON(w, r)
	}
	_, err := io.WriteString(w, decoder.Human(r)+"\n")
	return err
}

// vim: foldmethod=marker
