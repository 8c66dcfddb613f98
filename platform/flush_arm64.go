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

//go:build arm64

package platform

import "unsafe"

// CopyFlush copies src into dst and flushes the destination's cache
// lines so a peer reading the same mmap'd region through a
// non-coherent path observes the write. ARM64's data cache is not
// guaranteed coherent with every observer of a shared mapping the way
// x86's is, so this path actually issues cache-maintenance
// instructions; elsewhere it is a plain copy.
func CopyFlush(dst, src []byte) int {
	n := copy(dst, src)
	flushRange(unsafe.Pointer(&dst[0]), n)
	return n
}

const cacheLineSize = 64

func flushRange(base unsafe.Pointer, n int) {
	addr := uintptr(base)
	end := addr + uintptr(n)
	for p := addr &^ (cacheLineSize - 1); p < end; p += cacheLineSize {
		dcCVAU(p)
	}
	dsb()
}

// dcCVAU issues "dc cvau" (data cache clean by VA to point of
// unification) for the cache line containing addr.
func dcCVAU(addr uintptr)

// dsb issues a full data synchronization barrier.
func dsb()

// vim: foldmethod=marker
