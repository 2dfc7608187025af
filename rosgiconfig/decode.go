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

package rosgiconfig

import (
	"fmt"

	"github.com/saces/r-osgi-sub000/multiplexer"
	"github.com/uber-go/mapdecode"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Policy is a multiplexer.Policy read from its name.
type Policy multiplexer.Policy

// Decode implements mapdecode.Decoder. mapdecode does not use
// encoding.TextUnmarshaler on its own.
func (p *Policy) Decode(into mapdecode.Into) error {
	var s string
	if err := into(&s); err != nil {
		return fmt.Errorf("could not decode multiplexing policy: %v", err)
	}
	return (*multiplexer.Policy)(p).UnmarshalText([]byte(s))
}

// Level is a zap log level read from its name.
type Level zapcore.Level

// Decode implements mapdecode.Decoder.
func (l *Level) Decode(into mapdecode.Into) error {
	var s string
	if err := into(&s); err != nil {
		return fmt.Errorf("could not decode log level: %v", err)
	}
	if err := (*zapcore.Level)(l).UnmarshalText([]byte(s)); err != nil {
		return fmt.Errorf("could not decode log level: %v", err)
	}
	return nil
}

// Logging configures the logger of the runtime.
//
// 	logging:
// 	  level: debug
// 	  development: true
type Logging struct {
	Level       *Level `config:"level"`
	Development bool   `config:"development"`
}

// Build builds the configured logger.
func (l Logging) Build(opts ...zap.Option) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if l.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	if l.Level != nil {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(*l.Level))
	}
	return cfg.Build(opts...)
}
