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

// Package snapshot implements the archive feature: a tar.gz capturing
// every tracebuffer file under a tracing root (plus caller-supplied
// extra files), written through an interruptible writer that can abort
// mid-archive and remove the partial output rather than leave a
// truncated file behind.
package snapshot

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/clltk/tracekit/filemanager"
)

// ErrInterrupted is returned when the underlying writer reports a short
// write, the signal this package treats as "stop archiving now."
var ErrInterrupted = fmt.Errorf("snapshot: archive write interrupted")

// ExtraFile is a caller-supplied file to include in the archive beside
// the discovered tracebuffer files, under the given archive-relative
// name.
type ExtraFile struct {
	Name string
	Path string
}

// WriteTo archives every tracebuffer file under root plus extra as a
// gzip-compressed tar stream into w. w may be an interruptible writer
// whose Write returns (n < len(p), nil) to signal "stop now" without an
// OS-level error; WriteTo turns that into ErrInterrupted.
func WriteTo(w io.Writer, root string, extra []ExtraFile) error {
	names, err := filemanager.ListSources(root)
	if err != nil {
		return err
	}

	iw := &interruptible{w: w}
	gz := gzip.NewWriter(iw)
	tw := tar.NewWriter(gz)

	for _, name := range names {
		path := sourcePath(root, name)
		if err := addFile(tw, name+filemanager.TraceExt, path); err != nil {
			return firstErr(err, iw.err)
		}
	}
	for _, e := range extra {
		if err := addFile(tw, e.Name, e.Path); err != nil {
			return firstErr(err, iw.err)
		}
	}

	if err := tw.Close(); err != nil {
		return firstErr(err, iw.err)
	}
	if err := gz.Close(); err != nil {
		return firstErr(err, iw.err)
	}
	return firstErr(nil, iw.err)
}

// Write archives root plus extra into a fresh file at outPath, removing
// it if the archive is interrupted partway through.
func Write(root string, extra []ExtraFile, outPath string) (err error) {
	f, createErr := os.Create(outPath)
	if createErr != nil {
		return fmt.Errorf("snapshot: create %q: %w", outPath, createErr)
	}

	err = WriteTo(f, root, extra)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(outPath)
	}
	return err
}

// interruptible wraps an io.Writer, turning a short write (n <
// len(p), nil error) into a recorded ErrInterrupted that subsequent
// writes keep surfacing, since archive/tar and compress/gzip do not
// themselves stop writing once one Write call reports a short count.
type interruptible struct {
	w   io.Writer
	err error
}

func (iw *interruptible) Write(p []byte) (int, error) {
	if iw.err != nil {
		return 0, iw.err
	}
	n, err := iw.w.Write(p)
	if err == nil && n < len(p) {
		iw.err = ErrInterrupted
		return n, iw.err
	}
	if err != nil {
		iw.err = err
	}
	return n, err
}

func firstErr(a, b error) error {
	if a != nil {
		return a
	}
	return b
}

// sourcePath tries the userspace extension first, falling back to the
// kernel extension — ListSources strips whichever one it found, so the
// caller has to re-resolve it.
func sourcePath(root, name string) string {
	p := filepath.Join(root, name+filemanager.TraceExt)
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return filepath.Join(root, name+filemanager.KernelTraceExt)
}

func addFile(tw *tar.Writer, archiveName, path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("snapshot: stat %q: %w", path, err)
	}
	hdr, err := tar.FileInfoHeader(fi, "")
	if err != nil {
		return fmt.Errorf("snapshot: header for %q: %w", path, err)
	}
	hdr.Name = archiveName

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}

	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("snapshot: open %q: %w", path, err)
	}
	defer src.Close()

	if _, err := io.Copy(tw, src); err != nil {
		return err
	}
	return nil
}

// vim: foldmethod=marker
