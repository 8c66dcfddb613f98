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
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/clltk/tracekit/decoder"
	"github.com/clltk/tracekit/errs"
	"github.com/clltk/tracekit/filemanager"
	"github.com/clltk/tracekit/internal/logging"
	"github.com/clltk/tracekit/tracebuffer"
)

var liveArgs struct {
	Filter       string
	BufferSize   int
	OrderDelayMS int
	PollMS       int
	Now          bool
	TimeoutMS    int

	PID       uint32
	TID       uint32
	Msg       string
	MsgRegex  string
	File      string
	FileRegex string
	Since     string
	Until     string

	JSON    bool
	Summary bool
}

var liveCmd = &cobra.Command{
	Use:   "live [input-path]",
	Short: "Stream decoded trace entries in timestamp order",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := ""
		if len(args) == 1 {
			root = args[0]
		}
		return runLive(root)
	},
}

func init() {
	f := liveCmd.Flags()
	f.StringVarP(&liveArgs.Filter, "filter", "F", "", "regex on tracebuffer name")
	f.IntVar(&liveArgs.BufferSize, "buffer-size", 0, "ordered-buffer heap bound (0 = config default)")
	f.IntVar(&liveArgs.OrderDelayMS, "order-delay", 0, "release slack in ms (0 = config default)")
	f.IntVar(&liveArgs.PollMS, "poll-interval", 0, "idle poll gap in ms (0 = config default)")
	f.BoolVarP(&liveArgs.Now, "now", "n", false, "skip existing data, only show entries from now on")
	f.IntVar(&liveArgs.TimeoutMS, "timeout", 0, "exit this many ms after start (0 = never); not reset by incoming entries")
	f.Uint32Var(&liveArgs.PID, "pid", 0, "filter: exact pid match (0 = unfiltered)")
	f.Uint32Var(&liveArgs.TID, "tid", 0, "filter: exact tid match (0 = unfiltered)")
	f.StringVar(&liveArgs.Msg, "msg", "", "filter: exact message match")
	f.StringVar(&liveArgs.MsgRegex, "msg-regex", "", "filter: message regex match")
	f.StringVar(&liveArgs.File, "file", "", "filter: exact source file match")
	f.StringVar(&liveArgs.FileRegex, "file-regex", "", "filter: source file regex match")
	f.StringVar(&liveArgs.Since, "since", "", "time bound (TimeSpec grammar)")
	f.StringVar(&liveArgs.Until, "until", "", "time bound (TimeSpec grammar)")
	f.BoolVarP(&liveArgs.JSON, "json", "j", false, "emit NDJSON instead of human-readable lines")
	f.BoolVarP(&liveArgs.Summary, "summary", "S", false, "print end-of-run counters")
}

func runLive(inputRoot string) error {
	cfg, err := LoadConfig(rootArgs.ConfigPath)
	if err != nil {
		return err
	}
	log, _, err := logging.Init(cfg.Logging)
	if err != nil {
		return err
	}
	defer log.Sync()

	tracingPath := rootArgs.TracingPath
	if tracingPath == "" {
		tracingPath = inputRoot
	}
	if tracingPath != "" {
		filemanager.SetTracingPath(tracingPath)
	}

	mgr, err := filemanager.NewManager(log)
	if err != nil {
		return err
	}

	bufs, err := openFilteredSources(mgr, log, liveArgs.Filter)
	if err != nil {
		return err
	}
	defer func() {
		for _, b := range bufs {
			b.Close(mgr)
		}
	}()
	if len(bufs) == 0 {
		return fmt.Errorf("no tracebuffer sources matched under %q", mgr.Root())
	}

	filter, err := buildFilter(entryFilterFlags{
		PID: liveArgs.PID, TID: liveArgs.TID,
		Msg: liveArgs.Msg, MsgRegex: liveArgs.MsgRegex,
		File: liveArgs.File, FileRegex: liveArgs.FileRegex,
		Since: liveArgs.Since, Until: liveArgs.Until,
	})
	if err != nil {
		return err
	}
	if liveArgs.Now {
		nowNS := uint64(time.Now().UnixNano())
		if filter.Since == 0 || nowNS > filter.Since {
			filter.Since = nowNS
		}
	}

	opts := decoder.LiveOptions{
		BufferSize:   firstNonZero(liveArgs.BufferSize, cfg.BufferSize),
		OrderDelay:   time.Duration(firstNonZero(liveArgs.OrderDelayMS, cfg.OrderDelayMS)) * time.Millisecond,
		PollInterval: time.Duration(firstNonZero(liveArgs.PollMS, cfg.PollMS)) * time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if liveArgs.TimeoutMS > 0 {
		go idleTimeout(ctx, cancel, time.Duration(liveArgs.TimeoutMS)*time.Millisecond)
	}
	go abortOnSecondSignal(cancel)

	var counters struct{ emitted int }
	err = decoder.Live(ctx, log, bufs, opts, func(r *decoder.Record) error {
		if !filter.matches(r) {
			return nil
		}
		counters.emitted++
		return writeRecord(os.Stdout, r, liveArgs.JSON)
	})

	if liveArgs.Summary {
		fmt.Fprintf(os.Stderr, "tracekit: emitted %d entries\n", counters.emitted)
	}
	return err
}

func firstNonZero(a, b int) int {
	if a != 0 {
		return a
	}
	return b
}

// openFilteredSources discovers every tracebuffer file under mgr's root
// whose name matches filterExpr (empty matches everything) and opens
// each one.
func openFilteredSources(mgr *filemanager.Manager, log errs.Logger, filterExpr string) ([]*tracebuffer.Buffer, error) {
	names, err := filemanager.ListSources(mgr.Root())
	if err != nil {
		return nil, err
	}
	var re *regexp.Regexp
	if filterExpr != "" {
		re, err = regexp.Compile(filterExpr)
		if err != nil {
			return nil, fmt.Errorf("invalid --filter regex: %w", err)
		}
	}
	var bufs []*tracebuffer.Buffer
	for _, name := range names {
		if re != nil && !re.MatchString(name) {
			continue
		}
		b, err := tracebuffer.OpenAuto(mgr, log, name)
		if err != nil {
			return nil, fmt.Errorf("open %q: %w", name, err)
		}
		bufs = append(bufs, b)
	}
	return bufs, nil
}

// idleTimeout cancels ctx via cancel once d of wall-clock time has
// elapsed since it was started, unless ctx is done first. The timer is
// not reset when entries arrive or are emitted, so it bounds the whole
// run rather than the time since the last input.
func idleTimeout(ctx context.Context, cancel context.CancelFunc, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		cancel()
	case <-ctx.Done():
	}
}

// abortOnSecondSignal cancels ctx on the first SIGINT/SIGTERM for a
// graceful drain, then hard-exits with 128+signal on a second one —
// the documented exit-code contract.
func abortOnSecondSignal(cancel context.CancelFunc) {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	cancel()
	sig2 := <-ch
	if s, ok := sig2.(syscall.Signal); ok {
		os.Exit(128 + int(s))
	}
	os.Exit(1)
}

// vim: foldmethod=marker
