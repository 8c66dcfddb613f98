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

	"github.com/c2h5oh/datasize"
	"github.com/spf13/cobra"

	"github.com/clltk/tracekit/definition"
	"github.com/clltk/tracekit/filemanager"
	"github.com/clltk/tracekit/internal/logging"
	"github.com/clltk/tracekit/tracebuffer"
)

var createArgs struct {
	Capacity string
	Kind     string
}

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new tracebuffer file under the tracing root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCreate(args[0])
	},
}

func init() {
	f := createCmd.Flags()
	f.StringVar(&createArgs.Capacity, "capacity", "", "ring capacity, e.g. 64KiB (default: config's default_capacity)")
	f.StringVar(&createArgs.Kind, "kind", "userspace", "source kind: userspace, kernel, or tty")
}

func runCreate(name string) error {
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

	capacity := cfg.DefaultCapacity
	if createArgs.Capacity != "" {
		if err := capacity.UnmarshalText([]byte(createArgs.Capacity)); err != nil {
			return fmt.Errorf("invalid --capacity %q: %w", createArgs.Capacity, err)
		}
	}
	if capacity < minTracebufferCapacity {
		return fmt.Errorf("capacity %s below minimum %s", capacity, minTracebufferCapacity)
	}

	kind, err := parseSourceKind(createArgs.Kind)
	if err != nil {
		return err
	}

	mgr, err := filemanager.NewManager(log)
	if err != nil {
		return err
	}

	buf, err := tracebuffer.Create(mgr, log, name, uint64(capacity.Bytes()), kind)
	if err != nil {
		return fmt.Errorf("create %q: %w", name, err)
	}
	defer buf.Close(mgr)

	log.Infow("created tracebuffer", "name", name, "capacity", capacity.String(), "kind", createArgs.Kind)
	return nil
}

func parseSourceKind(s string) (definition.SourceKind, error) {
	switch s {
	case "userspace", "":
		return definition.Userspace, nil
	case "kernel":
		return definition.Kernel, nil
	case "tty":
		return definition.TTY, nil
	default:
		return 0, fmt.Errorf("unknown --kind %q (want userspace, kernel, or tty)", s)
	}
}

// vim: foldmethod=marker
