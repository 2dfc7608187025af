// Copyright (c) 2026 Uber Technologies, Inc.
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
// THE SOFTWARE.

package tcp

import (
	"time"

	backoffapi "github.com/saces/r-osgi-sub000/api/backoff"
	"github.com/saces/r-osgi-sub000/internal/backoff"
	"github.com/saces/r-osgi-sub000/internal/clock"
	"github.com/saces/r-osgi-sub000/internal/config"
	"github.com/saces/r-osgi-sub000/serialize"
	"go.uber.org/zap"
)

// Scheme is the address scheme served by this package.
const Scheme = "tcp"

// Defaults for transport options.
const (
	DefaultDialTimeout       = 10 * time.Second
	DefaultKeepAlive         = 30 * time.Second
	DefaultReconnectAttempts = 3
)

type options struct {
	logger            *zap.Logger
	registry          *serialize.Registry
	clock             clock.Clock
	dialTimeout       time.Duration
	keepAlive         time.Duration
	writeTimeout      time.Duration
	backoff           backoffapi.Strategy
	reconnectAttempts int
}

var defaultOptions = options{
	logger:            zap.NewNop(),
	registry:          serialize.Default,
	clock:             clock.NewReal(),
	dialTimeout:       DefaultDialTimeout,
	keepAlive:         DefaultKeepAlive,
	backoff:           backoff.DefaultExponential,
	reconnectAttempts: DefaultReconnectAttempts,
}

func newOptions(opts []Option) options {
	o := defaultOptions
	for _, opt := range opts {
		opt.apply(&o)
	}
	return o
}

// Option customizes a Dialer or an Inbound.
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(o *options) { f(o) }

// Logger sets the logger. Defaults to a no-op logger.
func Logger(logger *zap.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = logger
	})
}

// Registry sets the registry smart values are encoded and decoded with.
// Defaults to serialize.Default.
func Registry(reg *serialize.Registry) Option {
	return optionFunc(func(o *options) {
		o.registry = reg
	})
}

// Clock sets the clock reconnect backoffs wait on.
func Clock(c clock.Clock) Option {
	return optionFunc(func(o *options) {
		o.clock = c
	})
}

// DialTimeout bounds how long establishing a connection may take.
func DialTimeout(d time.Duration) Option {
	return optionFunc(func(o *options) {
		o.dialTimeout = d
	})
}

// KeepAlive sets the TCP keep-alive period. Zero keeps the system default;
// negative disables keep-alives.
func KeepAlive(d time.Duration) Option {
	return optionFunc(func(o *options) {
		o.keepAlive = d
	})
}

// WriteTimeout bounds how long writing one frame may take. Zero means no
// limit.
func WriteTimeout(d time.Duration) Option {
	return optionFunc(func(o *options) {
		o.writeTimeout = d
	})
}

// ReconnectBackoff sets the backoff between reconnect attempts.
func ReconnectBackoff(s backoffapi.Strategy) Option {
	return optionFunc(func(o *options) {
		o.backoff = s
	})
}

// ReconnectAttempts sets how many dials one Reconnect makes before giving
// up.
func ReconnectAttempts(n int) Option {
	return optionFunc(func(o *options) {
		o.reconnectAttempts = n
	})
}

// attributes are the settings read from the "tcp" entry of the transports
// configuration.
//
// 	transports:
// 	  tcp:
// 	    dialTimeout: 5s
// 	    keepAlive: 1m
// 	    writeTimeout: 10s
// 	    reconnectAttempts: 5
type attributes struct {
	DialTimeout       time.Duration `config:"dialTimeout"`
	KeepAlive         time.Duration `config:"keepAlive"`
	WriteTimeout      time.Duration `config:"writeTimeout"`
	ReconnectAttempts int           `config:"reconnectAttempts"`
}

// OptionsFromConfig reads transport settings. Unset settings keep their
// defaults.
func OptionsFromConfig(attrs config.AttributeMap) ([]Option, error) {
	var a attributes
	if err := attrs.Decode(&a); err != nil {
		return nil, err
	}

	var opts []Option
	if a.DialTimeout > 0 {
		opts = append(opts, DialTimeout(a.DialTimeout))
	}
	if a.KeepAlive != 0 {
		opts = append(opts, KeepAlive(a.KeepAlive))
	}
	if a.WriteTimeout > 0 {
		opts = append(opts, WriteTimeout(a.WriteTimeout))
	}
	if a.ReconnectAttempts > 0 {
		opts = append(opts, ReconnectAttempts(a.ReconnectAttempts))
	}
	return opts, nil
}
