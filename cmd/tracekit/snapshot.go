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

	"github.com/spf13/cobra"

	"github.com/clltk/tracekit/filemanager"
	"github.com/clltk/tracekit/internal/logging"
	"github.com/clltk/tracekit/snapshot"
)

var snapshotArgs struct {
	Output string
	Extra  []string
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Archive every tracebuffer file under the tracing root into a tar.gz",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSnapshot()
	},
}

func init() {
	f := snapshotCmd.Flags()
	f.StringVarP(&snapshotArgs.Output, "output", "o", "tracekit-snapshot.tar.gz", "archive output path")
	f.StringArrayVar(&snapshotArgs.Extra, "extra", nil, "extra file to include, as name=path (repeatable)")
}

func runSnapshot() error {
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
	root, err := filemanager.ResolveRoot()
	if err != nil {
		return err
	}

	extras, err := parseExtraFiles(snapshotArgs.Extra)
	if err != nil {
		return err
	}

	if err := snapshot.Write(root, extras, snapshotArgs.Output); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	log.Infow("wrote snapshot", "path", snapshotArgs.Output, "root", root)
	return nil
}

func parseExtraFiles(raw []string) ([]snapshot.ExtraFile, error) {
	var out []snapshot.ExtraFile
	for _, r := range raw {
		name, path, ok := splitOnce(r, '=')
		if !ok {
			return nil, fmt.Errorf("invalid --extra %q, want name=path", r)
		}
		out = append(out, snapshot.ExtraFile{Name: name, Path: path})
	}
	return out, nil
}

func splitOnce(s string, sep byte) (string, string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

// vim: foldmethod=marker
