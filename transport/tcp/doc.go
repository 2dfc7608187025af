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

// Package tcp carries remoting frames over plain TCP connections.
//
// Frames are written back to back with no extra framing. Each Channel runs
// one goroutine that decodes frames from its connection and hands them to
// the bound receiver. A frame that cannot be decoded leaves the stream
// unreadable, so it breaks the connection.
//
// Addresses take the form "tcp://host:port".
//
// 	dialer := tcp.NewDialer(tcp.Logger(logger))
// 	ch, err := dialer.Dial(ctx, "tcp://peer:9278")
//
// 	inbound, err := tcp.NewInbound("tcp://:9278", runtime.Accept)
// 	err = inbound.Start()
package tcp
