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

package multiplexer

import (
	"container/ring"

	"github.com/saces/r-osgi-sub000/rosgierrors"
)

// targetRing rotates over a changing set of targets. It is not safe for
// concurrent use.
type targetRing struct {
	nodes    map[Target]*ring.Ring
	nextNode *ring.Ring
}

func newTargetRing(targets ...Target) *targetRing {
	tr := &targetRing{nodes: make(map[Target]*ring.Ring, len(targets))}
	for _, t := range targets {
		_ = tr.Add(t)
	}
	return tr
}

// Add puts t right before the next target to be chosen.
func (tr *targetRing) Add(t Target) error {
	if _, ok := tr.nodes[t]; ok {
		return rosgierrors.InvalidArgumentErrorf("target %v is already in the ring", t)
	}

	node := ring.New(1)
	node.Value = t
	tr.nodes[t] = node

	if tr.nextNode == nil {
		tr.nextNode = node
	} else {
		tr.nextNode.Prev().Link(node)
	}
	return nil
}

// Remove takes t out of the ring.
func (tr *targetRing) Remove(t Target) error {
	node, ok := tr.nodes[t]
	if !ok {
		return rosgierrors.InvalidArgumentErrorf("target %v is not in the ring", t)
	}

	if node.Next() == node {
		tr.nextNode = nil
	} else {
		if tr.nextNode == node {
			tr.nextNode = tr.nextNode.Next()
		}
		node.Prev().Unlink(1)
	}
	delete(tr.nodes, t)
	return nil
}

// Choose returns the next target and advances the ring.
func (tr *targetRing) Choose() (Target, bool) {
	if tr.nextNode == nil {
		return Target{}, false
	}
	t := tr.nextNode.Value.(Target)
	tr.nextNode = tr.nextNode.Next()
	return t, true
}
