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

// Package rosgi connects processes that offer capabilities to each other.
//
// A Runtime owns one endpoint per connected peer, keyed by the peer's
// address, and the capabilities and topic interest this process offers.
// Changes to either are pushed to every connected peer as lease updates.
//
// 	rt := rosgi.New(
// 		rosgi.Logger(logger),
// 		rosgi.Dialers(tcp.NewDialer()),
// 		rosgi.Connect("tcp://peer:9278"),
// 	)
// 	if err := rt.Start(); err != nil {
// 		log.Fatal(err)
// 	}
// 	defer rt.Stop()
//
// 	res, err := rt.Invoke(ctx, "tcp://peer:9278#12", "echo(Ljava/lang/String;)", "hello")
//
// Calls made through the Runtime pass through a multiplexer, so a
// capability configured with redundant endpoints fails over or balances
// load according to its policy.
package rosgi
