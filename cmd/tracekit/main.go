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

// Command tracekit is the CLI surface over a tracing root's tracebuffer
// files: creating them, streaming or one-shot decoding their contents,
// and archiving them into a snapshot.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootArgs struct {
	ConfigPath  string
	TracingPath string
}

var rootCmd = &cobra.Command{
	Use:   "tracekit",
	Short: "Inspect and archive clltk tracebuffer files",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootArgs.ConfigPath, "config", "c", "", "path to a YAML defaults file")
	rootCmd.PersistentFlags().StringVar(&rootArgs.TracingPath, "tracing-path", "", "tracing root (overrides CLLTK_TRACING_PATH and the working directory)")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(liveCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// vim: foldmethod=marker
