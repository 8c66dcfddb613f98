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

	"github.com/c2h5oh/datasize"
	"gopkg.in/yaml.v3"

	"github.com/clltk/tracekit/internal/logging"
)

// Config is the optional YAML defaults file the live decoder accepts,
// mirroring a LoadServerConfig/DefaultServerConfig layering pattern
// shape: a zero-value-safe struct with an explicit Default constructor,
// overridden field-by-field by whatever the file sets.
type Config struct {
	Logging logging.Config `yaml:"logging"`

	TracingPath  string `yaml:"tracing_path"`
	BufferSize   int    `yaml:"buffer_size"`
	OrderDelayMS int    `yaml:"order_delay_ms"`
	PollMS       int    `yaml:"poll_interval_ms"`

	// DefaultCapacity is the ring capacity `create` uses when --capacity
	// is not given, expressed the same way a configured ring/buffer size
	// is elsewhere in the ambient stack: a human-readable size
	// (datasize.ByteSize understands "64KiB", "1MB", ...) instead of a
	// raw byte count.
	DefaultCapacity datasize.ByteSize `yaml:"default_capacity"`
}

// minTracebufferCapacity is the smallest ring capacity create accepts —
// below this, the ring body can't hold a single typical entry plus its
// framing overhead.
const minTracebufferCapacity = 4 * datasize.KB

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Logging:         logging.DefaultConfig(),
		BufferSize:      4096,
		OrderDelayMS:    400,
		PollMS:          200,
		DefaultCapacity: 64 * datasize.KB,
	}
}

// LoadConfig reads and merges path over DefaultConfig; path == "" just
// returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// vim: foldmethod=marker
