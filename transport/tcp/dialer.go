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
	"context"

	"github.com/saces/r-osgi-sub000/api/channel"
	"github.com/saces/r-osgi-sub000/rosgierrors"
	"go.uber.org/zap"
)

// Dialer opens channels to "tcp://" addresses.
type Dialer struct {
	opts options
}

var _ channel.Dialer = (*Dialer)(nil)

// NewDialer builds a Dialer.
func NewDialer(opts ...Option) *Dialer {
	return &Dialer{opts: newOptions(opts)}
}

// Scheme implements channel.Dialer.
func (d *Dialer) Scheme() string { return Scheme }

// Dial connects to address. The returned channel reconnects to the same
// address when asked to.
func (d *Dialer) Dial(ctx context.Context, address string) (channel.Channel, error) {
	scheme, hostport, err := channel.SplitAddress(address)
	if err != nil {
		return nil, err
	}
	if scheme != Scheme {
		return nil, rosgierrors.InvalidArgumentErrorf("cannot dial %q: scheme is not %q", address, Scheme)
	}

	conn, err := dial(ctx, hostport, d.opts)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, rosgierrors.TimeoutErrorf("timed out connecting to %s", address)
		}
		return nil, rosgierrors.DisconnectedErrorf("failed to connect to %s: %v", address, err)
	}
	d.opts.logger.Debug("connected", zap.String("remote", address))
	return newChannel(conn, hostport, address, d.opts), nil
}
