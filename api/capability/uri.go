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

package capability

import (
	"strings"

	"github.com/saces/r-osgi-sub000/rosgierrors"
)

// JoinURI builds the URI of the capability id offered at address.
func JoinURI(address, id string) string {
	return address + "#" + id
}

// SplitURI splits a capability URI of the form "<address>#<id>".
func SplitURI(uri string) (address, id string, err error) {
	i := strings.LastIndexByte(uri, '#')
	if i <= 0 || i == len(uri)-1 {
		return "", "", rosgierrors.InvalidArgumentErrorf("%q is not a capability URI: want <address>#<id>", uri)
	}
	return uri[:i], uri[i+1:], nil
}
