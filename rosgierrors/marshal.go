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
	"encoding/binary"
	"errors"
	"fmt"
)

// MarshalSmart encodes the Status as an opaque block so that statuses
// produced by one peer keep their Code on the other.
func (s *Status) MarshalSmart() ([]byte, error) {
	name, msg := s.Name(), s.Message()
	out := make([]byte, 0, 12+len(name)+len(msg))
	out = appendUint32(out, uint32(s.Code()))
	out = appendUint32(out, uint32(len(name)))
	out = append(out, name...)
	out = appendUint32(out, uint32(len(msg)))
	out = append(out, msg...)
	return out, nil
}

// UnmarshalSmart decodes a Status written by MarshalSmart.
func (s *Status) UnmarshalSmart(b []byte) error {
	code, b, err := takeUint32(b)
	if err != nil {
		return err
	}
	name, b, err := takeString(b)
	if err != nil {
		return err
	}
	msg, b, err := takeString(b)
	if err != nil {
		return err
	}
	if len(b) != 0 {
		return fmt.Errorf("status has %d trailing bytes", len(b))
	}
	s.code = Code(code)
	s.name = name
	s.err = errors.New(msg)
	return nil
}

func takeUint32(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, errors.New("status truncated")
	}
	return binary.BigEndian.Uint32(b), b[4:], nil
}

func takeString(b []byte) (string, []byte, error) {
	n, b, err := takeUint32(b)
	if err != nil {
		return "", nil, err
	}
	if uint32(len(b)) < n {
		return "", nil, errors.New("status truncated")
	}
	return string(b[:n]), b[n:], nil
}

func appendUint32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}
