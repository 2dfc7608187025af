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

// Package sampledlogger limits how often a repeated condition is logged.
// Endpoints use it for per-frame conditions, such as replies for unknown
// transaction ids, that a misbehaving peer can trigger at line rate.
package sampledlogger

import (
	"math"
	"time"

	"github.com/saces/r-osgi-sub000/internal/clock"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// SampledLogger writes at most one entry per interval. Entries dropped in
// between are counted and reported on the next entry that gets through.
type SampledLogger struct {
	logger   *zap.Logger
	clock    clock.Clock
	interval time.Duration

	lastLog    atomic.Int64
	suppressed atomic.Int64
}

// New builds a SampledLogger. A nil logger logs nothing and a nil clock
// uses wall time.
func New(interval time.Duration, logger *zap.Logger, clk clock.Clock) *SampledLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.NewReal()
	}
	sl := &SampledLogger{
		logger:   logger,
		clock:    clk,
		interval: interval,
	}
	sl.lastLog.Store(_never)
	return sl
}

const _never = math.MinInt64

func (sl *SampledLogger) log(level zapcore.Level, msg string, fields ...zap.Field) {
	now := sl.clock.Now().UnixNano()
	last := sl.lastLog.Load()
	if last != _never && now-last <= int64(sl.interval) {
		sl.suppressed.Inc()
		return
	}
	if !sl.lastLog.CAS(last, now) {
		sl.suppressed.Inc()
		return
	}

	if n := sl.suppressed.Swap(0); n > 0 {
		fields = append(fields, zap.Int64("suppressed", n))
	}
	if ce := sl.logger.Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
}

// Debug logs at debug level.
func (sl *SampledLogger) Debug(msg string, fields ...zap.Field) {
	sl.log(zapcore.DebugLevel, msg, fields...)
}

// Info logs at info level.
func (sl *SampledLogger) Info(msg string, fields ...zap.Field) {
	sl.log(zapcore.InfoLevel, msg, fields...)
}

// Warn logs at warn level.
func (sl *SampledLogger) Warn(msg string, fields ...zap.Field) {
	sl.log(zapcore.WarnLevel, msg, fields...)
}

// Error logs at error level.
func (sl *SampledLogger) Error(msg string, fields ...zap.Field) {
	sl.log(zapcore.ErrorLevel, msg, fields...)
}
