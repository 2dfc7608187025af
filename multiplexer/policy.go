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
	"fmt"
	"strings"
)

// Policy decides which endpoint carries a call and what happens when it
// fails.
type Policy int

const (
	// None always uses the primary and never fails over.
	None Policy = iota
	// Failover uses the primary and moves on to the alternates when it
	// fails at the connection level.
	Failover
	// LoadBalanceAny picks a random target for every call and fails over
	// on failure.
	LoadBalanceAny
	// LoadBalanceOne rotates over the targets and fails over on failure.
	LoadBalanceOne
)

var _policyNames = map[Policy]string{
	None:           "none",
	Failover:       "failover",
	LoadBalanceAny: "loadbalance-any",
	LoadBalanceOne: "loadbalance-one",
}

func (p Policy) String() string {
	if name, ok := _policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

func (p Policy) valid() bool {
	_, ok := _policyNames[p]
	return ok
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	if !p.valid() {
		return nil, fmt.Errorf("unknown policy %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(text []byte) error {
	s := strings.ToLower(string(text))
	for policy, name := range _policyNames {
		if name == s {
			*p = policy
			return nil
		}
	}
	return fmt.Errorf("unknown policy %q", text)
}
