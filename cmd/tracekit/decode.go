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
	"os"

	"github.com/spf13/cobra"

	"github.com/clltk/tracekit/decoder"
	"github.com/clltk/tracekit/filemanager"
	"github.com/clltk/tracekit/internal/logging"
	"github.com/clltk/tracekit/tracebuffer"
)

var decodeArgs struct {
	PID, TID        uint32
	Msg, MsgRegex   string
	File, FileRegex string
	Since, Until    string
	JSON            bool
}

var decodeCmd = &cobra.Command{
	Use:   "decode <name>",
	Short: "Decode a tracebuffer file once, top to bottom, and exit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDecode(args[0])
	},
}

func init() {
	f := decodeCmd.Flags()
	f.Uint32Var(&decodeArgs.PID, "pid", 0, "filter: exact pid match (0 = unfiltered)")
	f.Uint32Var(&decodeArgs.TID, "tid", 0, "filter: exact tid match (0 = unfiltered)")
	f.StringVar(&decodeArgs.Msg, "msg", "", "filter: exact message match")
	f.StringVar(&decodeArgs.MsgRegex, "msg-regex", "", "filter: message regex match")
	f.StringVar(&decodeArgs.File, "file", "", "filter: exact source file match")
	f.StringVar(&decodeArgs.FileRegex, "file-regex", "", "filter: source file regex match")
	f.StringVar(&decodeArgs.Since, "since", "", "time bound (TimeSpec grammar)")
	f.StringVar(&decodeArgs.Until, "until", "", "time bound (TimeSpec grammar)")
	f.BoolVarP(&decodeArgs.JSON, "json", "j", false, "emit NDJSON instead of human-readable lines")
}

func runDecode(name string) error {
	cfg, err := LoadConfig(rootArgs.ConfigPath)
	if err != nil {
		return err
	}
	log, _, err := logging.Init(cfg.Logging)
	if err != nil {
		return err
	}
	defer log.Sync()

	if rootArgs.TracingPath != "" {
		filemanager.SetTracingPath(rootArgs.TracingPath)
	}

	mgr, err := filemanager.NewManager(log)
	if err != nil {
		return err
	}

	buf, err := tracebuffer.OpenAuto(mgr, log, name)
	if err != nil {
		return fmt.Errorf("open %q: %w", name, err)
	}
	defer buf.Close(mgr)

	cliFilter, err := buildFilter(entryFilterFlags{
		PID: decodeArgs.PID, TID: decodeArgs.TID,
		Msg: decodeArgs.Msg, MsgRegex: decodeArgs.MsgRegex,
		File: decodeArgs.File, FileRegex: decodeArgs.FileRegex,
		Since: decodeArgs.Since, Until: decodeArgs.Until,
	})
	if err != nil {
		return err
	}

	scanFilter := decoder.Filter{Since: cliFilter.Since, Until: cliFilter.Until, Match: cliFilter.matches}

	var writeErr error
	decoder.Scan(buf, scanFilter, func(r *decoder.Record) bool {
		if err := writeRecord(os.Stdout, r, decodeArgs.JSON); err != nil {
			writeErr = err
			return false
		}
		return true
	})
	return writeErr
}

// vim: foldmethod=marker
