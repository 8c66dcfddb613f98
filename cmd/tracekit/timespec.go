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
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseTimeSpec implements the TimeSpec grammar for --since/
// --until: an absolute ISO datetime, a bare float of Unix seconds,
// "now"/"min"/"max" each optionally offset by ±duration, or a plain
// ±duration meaning now±duration. Duration suffixes are ns, us, ms, s,
// m, h (time.ParseDuration's own vocabulary, which already matches).
//
// min/max resolve to 0 and math.MaxInt64 nanoseconds respectively,
// since a Filter field of 0 means "unbounded" on the
// Since side and there is no finite on-disk timestamp tracekit could
// ever produce past the far future either way.
func parseTimeSpec(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty time spec")
	}

	for _, kw := range []string{"now", "min", "max"} {
		if s == kw {
			return resolveKeyword(kw, 0)
		}
		if strings.HasPrefix(s, kw) {
			rest := s[len(kw):]
			if d, ok := parseSignedDuration(rest); ok {
				return resolveKeyword(kw, d)
			}
		}
	}

	if d, ok := parseSignedDuration(s); ok {
		return resolveKeyword("now", d)
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return uint64(f * 1e9), nil
	}

	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return uint64(t.UnixNano()), nil
		}
	}

	return 0, fmt.Errorf("unrecognized time spec %q", s)
}

// resolveKeyword applies a signed nanosecond offset to now/min/max.
func resolveKeyword(kw string, offsetNS int64) (uint64, error) {
	switch kw {
	case "now":
		return uint64(time.Now().UnixNano() + offsetNS), nil
	case "min":
		if offsetNS < 0 {
			return 0, nil
		}
		return uint64(offsetNS), nil
	case "max":
		base := uint64(1<<63 - 1)
		if offsetNS < 0 && uint64(-offsetNS) < base {
			return base - uint64(-offsetNS), nil
		}
		return base, nil
	}
	return 0, fmt.Errorf("unknown time spec keyword %q", kw)
}

// parseSignedDuration parses a leading "+"/"-" duration string (e.g.
// "+5m", "-1h30m") using time.ParseDuration; an empty string is treated
// as a zero offset and accepted.
func parseSignedDuration(s string) (int64, bool) {
	if s == "" {
		return 0, true
	}
	if s[0] != '+' && s[0] != '-' {
		return 0, false
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, false
	}
	return int64(d), true
}

// vim: foldmethod=marker
