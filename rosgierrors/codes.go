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

package rosgierrors

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// CodeOK means no error.
	CodeOK Code = 0

	// CodeCancelled means the caller gave up on the operation, typically by
	// cancelling its context.
	CodeCancelled Code = 1

	// CodeUnknown means an error without more specific information.
	CodeUnknown Code = 2

	// CodeInvalidArgument means the caller passed arguments the operation
	// cannot accept regardless of system state.
	CodeInvalidArgument Code = 3

	// CodeProtocol means a frame could not be decoded, most often because
	// its function id is not one this side understands.
	CodeProtocol Code = 4

	// CodeDisconnected means the channel carrying the call is gone. Every
	// caller blocked on the endpoint observes this code when it is disposed.
	CodeDisconnected Code = 5

	// CodeTimeout means no reply arrived before the deadline. The endpoint
	// stays usable.
	CodeTimeout Code = 6

	// CodeSerialization means a value cannot be represented on the wire.
	CodeSerialization Code = 7

	// CodeRemote means the remote operation failed with an error that could
	// not cross the wire in its original form.
	CodeRemote Code = 8

	// CodeUnknownCapability means the peer never leased the capability id.
	CodeUnknownCapability Code = 9

	// CodeIllegalState means the endpoint state does not allow the request,
	// e.g. a stream operation against a stream id that is not open.
	CodeIllegalState Code = 10

	// CodeInternal means an invariant inside the remoting core was broken.
	CodeInternal Code = 11
)

var (
	_codeToString = map[Code]string{
		CodeOK:                "ok",
		CodeCancelled:         "cancelled",
		CodeUnknown:           "unknown",
		CodeInvalidArgument:   "invalid-argument",
		CodeProtocol:          "protocol",
		CodeDisconnected:      "disconnected",
		CodeTimeout:           "timeout",
		CodeSerialization:     "serialization",
		CodeRemote:            "remote",
		CodeUnknownCapability: "unknown-capability",
		CodeIllegalState:      "illegal-state",
		CodeInternal:          "internal",
	}
	_stringToCode = map[string]Code{
		"ok":                 CodeOK,
		"cancelled":          CodeCancelled,
		"unknown":            CodeUnknown,
		"invalid-argument":   CodeInvalidArgument,
		"protocol":           CodeProtocol,
		"disconnected":       CodeDisconnected,
		"timeout":            CodeTimeout,
		"serialization":      CodeSerialization,
		"remote":             CodeRemote,
		"unknown-capability": CodeUnknownCapability,
		"illegal-state":      CodeIllegalState,
		"internal":           CodeInternal,
	}
)

// Code classifies a remoting failure.
type Code int

// String returns the string representation of the Code.
func (c Code) String() string {
	if s, ok := _codeToString[c]; ok {
		return s
	}
	return strconv.Itoa(int(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Code) MarshalText() ([]byte, error) {
	if s, ok := _codeToString[c]; ok {
		return []byte(s), nil
	}
	return nil, fmt.Errorf("unknown code: %d", int(c))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Code) UnmarshalText(text []byte) error {
	i, ok := _stringToCode[strings.ToLower(string(text))]
	if !ok {
		return fmt.Errorf("unknown code string: %s", string(text))
	}
	*c = i
	return nil
}
