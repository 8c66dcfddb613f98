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
	"bytes"
	"strings"
	"testing"

	"github.com/clltk/tracekit/decoder"
)

func TestEntryFilterMatchesOnEveryField(t *testing.T) {
	rec := &decoder.Record{
		PID: 100, TID: 7,
		Message:     "connection reset",
		File:        "net/conn.go",
		TimestampNS: 5000,
	}

	cases := []struct {
		name string
		f    entryFilter
		want bool
	}{
		{"no filter matches anything", entryFilter{}, true},
		{"matching pid", entryFilter{PID: 100}, true},
		{"mismatched pid", entryFilter{PID: 999}, false},
		{"matching tid", entryFilter{TID: 7}, true},
		{"mismatched tid", entryFilter{TID: 1}, false},
		{"exact message match", entryFilter{Msg: "connection reset"}, true},
		{"exact message mismatch", entryFilter{Msg: "nope"}, false},
		{"exact file match", entryFilter{File: "net/conn.go"}, true},
		{"exact file mismatch", entryFilter{File: "other.go"}, false},
		{"since satisfied", entryFilter{Since: 4000}, true},
		{"since violated", entryFilter{Since: 6000}, false},
		{"until satisfied", entryFilter{Until: 6000}, true},
		{"until violated", entryFilter{Until: 4000}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.f.matches(rec); got != tc.want {
				t.Fatalf("matches() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEntryFilterRegexFields(t *testing.T) {
	rec := &decoder.Record{Message: "timeout waiting for ack", File: "proto/handshake.go"}

	flags := entryFilterFlags{MsgRegex: "^timeout", FileRegex: "handshake"}
	f, err := buildFilter(flags)
	if err != nil {
		t.Fatalf("buildFilter: %v", err)
	}
	if !f.matches(rec) {
		t.Fatal("expected regex filters to match")
	}

	flags2 := entryFilterFlags{MsgRegex: "^nomatch"}
	f2, err := buildFilter(flags2)
	if err != nil {
		t.Fatalf("buildFilter: %v", err)
	}
	if f2.matches(rec) {
		t.Fatal("expected a non-matching message regex to exclude the record")
	}
}

func TestBuildFilterRejectsBadRegex(t *testing.T) {
	if _, err := buildFilter(entryFilterFlags{MsgRegex: "("}); err == nil {
		t.Fatal("expected an error for an invalid --msg-regex")
	}
	if _, err := buildFilter(entryFilterFlags{FileRegex: "("}); err == nil {
		t.Fatal("expected an error for an invalid --file-regex")
	}
}

func TestBuildFilterParsesTimeSpecBounds(t *testing.T) {
	f, err := buildFilter(entryFilterFlags{Since: "min", Until: "max"})
	if err != nil {
		t.Fatalf("buildFilter: %v", err)
	}
	if f.Since != 0 {
		t.Fatalf("Since = %d, want 0", f.Since)
	}
	if f.Until == 0 {
		t.Fatal("Until should resolve to a large finite bound, not 0")
	}
}

func TestBuildFilterRejectsBadTimeSpec(t *testing.T) {
	if _, err := buildFilter(entryFilterFlags{Since: "not-a-time"}); err == nil {
		t.Fatal("expected an error for an invalid --since")
	}
}

func TestWriteRecordHumanAndJSON(t *testing.T) {
	rec := &decoder.Record{PID: 1, TID: 2, File: "a.go", Line: 10, Message: "hello"}

	var human bytes.Buffer
	if err := writeRecord(&human, rec, false); err != nil {
		t.Fatalf("writeRecord(human): %v", err)
	}
	if !strings.Contains(human.String(), "hello") {
		t.Fatalf("human output missing message: %q", human.String())
	}

	var js bytes.Buffer
	if err := writeRecord(&js, rec, true); err != nil {
		t.Fatalf("writeRecord(json): %v", err)
	}
	if !strings.Contains(js.String(), `"hello"`) {
		t.Fatalf("json output missing quoted message: %q", js.String())
	}
}

// vim: foldmethod=marker
