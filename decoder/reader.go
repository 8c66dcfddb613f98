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

// Live multi-source reading: an ordered buffer, fed by one
// poller per tracebuffer file, fanned in with golang.org/x/sync/errgroup
// in a run-until-cancelled shape, generalized here to poll-and-decode
// instead of read-and-forward.
package decoder

import (
	"context"
	"sync"
	"time"

	"github.com/clltk/tracekit/errs"
	"github.com/clltk/tracekit/mutex"
	"github.com/clltk/tracekit/tracebuffer"
	"golang.org/x/sync/errgroup"
)

// LiveOptions configures Live.
type LiveOptions struct {
	PollInterval time.Duration
	OrderDelay   time.Duration // how far behind wall-clock the watermark trails
	BufferSize   int
	Filter       Filter
}

func (o LiveOptions) withDefaults() LiveOptions {
	if o.PollInterval <= 0 {
		o.PollInterval = 200 * time.Millisecond
	}
	if o.OrderDelay <= 0 {
		o.OrderDelay = 2 * o.PollInterval
	}
	if o.BufferSize <= 0 {
		o.BufferSize = 4096
	}
	return o
}

// Live polls every buffer in bufs on a fixed interval, decodes newly
// appended entries into an OrderedBuffer, and calls emit with each
// record once the buffer's watermark has released it, until ctx is
// canceled. It returns once every poller has stopped and the buffer has
// been drained via Finish.
func Live(ctx context.Context, log errs.Logger, bufs []*tracebuffer.Buffer, opts LiveOptions, emit func(*Record) error) error {
	opts = opts.withDefaults()
	ob := NewOrderedBuffer(opts.BufferSize)

	watermarks := make([]uint64, len(bufs))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for i, buf := range bufs {
		i, buf := i, buf
		g.Go(func() error {
			return pollSource(ctx, log, buf, opts, ob, &mu, func(ts uint64) {
				watermarks[i] = ts
			})
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mu.Lock()
			min := minWatermark(watermarks, opts.OrderDelay)
			ob.UpdateWatermark(min)
			for _, r := range ob.PopAllReady() {
				if !opts.Filter.keep(r) {
					continue
				}
				if err := emit(r); err != nil {
					mu.Unlock()
					return err
				}
			}
			mu.Unlock()
		case err := <-done:
			mu.Lock()
			for _, r := range ob.Finish() {
				if opts.Filter.keep(r) {
					if ferr := emit(r); ferr != nil {
						mu.Unlock()
						return ferr
					}
				}
			}
			mu.Unlock()
			return err
		}
	}
}

func minWatermark(watermarks []uint64, orderDelay time.Duration) uint64 {
	now := uint64(time.Now().UnixNano())
	bound := now - uint64(orderDelay.Nanoseconds())
	min := bound
	for _, w := range watermarks {
		if w != 0 && w < min {
			min = w
		}
	}
	return min
}

// pollSource repeatedly drains newly appended entries from buf's ring
// into ob until ctx is canceled.
func pollSource(ctx context.Context, log errs.Logger, buf *tracebuffer.Buffer, opts LiveOptions, ob *OrderedBuffer, mu *sync.Mutex, reportWatermark func(uint64)) error {
	scratch := make([]byte, 1<<16)
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			lastTS := drainOnce(log, buf, scratch, ob, mu)
			if lastTS != 0 {
				reportWatermark(lastTS)
			} else {
				reportWatermark(uint64(time.Now().UnixNano()))
			}
		}
	}
}

func drainOnce(log errs.Logger, buf *tracebuffer.Buffer, scratch []byte, ob *OrderedBuffer, mu *sync.Mutex) uint64 {
	res, err := buf.Ring.Mutex.TryLock(250 * time.Millisecond)
	if err != nil || (res != mutex.Locked && res != mutex.Recovered) {
		return 0
	}
	defer buf.Ring.Mutex.Unlock()

	var lastTS uint64
	for {
		n, err := buf.Ring.Out(scratch)
		if err != nil || n == 0 {
			break
		}
		r, derr := Decode(buf.Name, scratch[:n], buf.Stack)
		if derr != nil {
			continue
		}
		lastTS = r.TimestampNS
		mu.Lock()
		ob.Push(r)
		mu.Unlock()
	}
	return lastTS
}

// vim: foldmethod=marker
