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

// Package rosgierrors is the error taxonomy of the remoting core.
//
// Every failure the core surfaces to a caller is a *Status carrying a Code,
// so that retry and failover logic can tell a timeout from a disconnect from
// an unknown capability:
//
//	if rosgierrors.IsTimeout(err) { ... }
//
// Errors raised by a remote operation are not wrapped in a Status; they come
// back as the original value when their type is registered with the
// serializer, and as a *RemoteError otherwise.
package rosgierrors

import (
	"bytes"
	"errors"
	"fmt"
)

// Newf returns a new Status. CodeOK yields nil.
func Newf(code Code, format string, args ...interface{}) *Status {
	if code == CodeOK {
		return nil
	}

	var err error
	if len(args) == 0 {
		err = errors.New(format)
	} else {
		err = fmt.Errorf(format, args...)
	}
	return &Status{code: code, err: err}
}

// Wrap returns a Status with the given code whose message is err's message
// and which unwraps to err.
func Wrap(code Code, err error) *Status {
	if err == nil || code == CodeOK {
		return nil
	}
	return &Status{code: code, err: &wrapError{err: err}}
}

// FromError returns the Status for the provided error.
//
// If the error:
//   - is nil, return nil
//   - is or wraps a Status, return the Status
//
// Otherwise, return a Status with CodeUnknown wrapping the error.
func FromError(err error) *Status {
	if err == nil {
		return nil
	}
	var st *Status
	if errors.As(err, &st) {
		return st
	}
	return &Status{code: CodeUnknown, err: &wrapError{err: err}}
}

// IsStatus returns whether err is or wraps a *Status.
func IsStatus(err error) bool {
	var st *Status
	return errors.As(err, &st)
}

// Status is a remoting error.
type Status struct {
	code Code
	name string
	err  error
}

// WithName returns a new Status with the given name. Names let
// applications tag their own failure kinds on top of a Code.
func (s *Status) WithName(name string) *Status {
	if s == nil {
		return nil
	}
	return &Status{code: s.code, name: name, err: s.err}
}

// Code returns the error code for this Status.
func (s *Status) Code() Code {
	if s == nil {
		return CodeOK
	}
	return s.code
}

// Name returns the name given with WithName, if any.
func (s *Status) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

// Message returns the error message for this Status.
func (s *Status) Message() string {
	if s == nil || s.err == nil {
		return ""
	}
	return s.err.Error()
}

// Unwrap supports errors.Unwrap.
func (s *Status) Unwrap() error {
	if s == nil {
		return nil
	}
	return errors.Unwrap(s.err)
}

// Error implements the error interface.
func (s *Status) Error() string {
	buffer := bytes.NewBuffer(nil)
	_, _ = buffer.WriteString(`code:`)
	_, _ = buffer.WriteString(s.code.String())
	if s.name != "" {
		_, _ = buffer.WriteString(` name:`)
		_, _ = buffer.WriteString(s.name)
	}
	if msg := s.Message(); msg != "" {
		_, _ = buffer.WriteString(` message:`)
		_, _ = buffer.WriteString(msg)
	}
	return buffer.String()
}

type wrapError struct {
	err error
}

func (e *wrapError) Error() string {
	if e == nil || e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e *wrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// CancelledErrorf returns a Status with CodeCancelled.
func CancelledErrorf(format string, args ...interface{}) error {
	return Newf(CodeCancelled, format, args...)
}

// UnknownErrorf returns a Status with CodeUnknown.
func UnknownErrorf(format string, args ...interface{}) error {
	return Newf(CodeUnknown, format, args...)
}

// InvalidArgumentErrorf returns a Status with CodeInvalidArgument.
func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return Newf(CodeInvalidArgument, format, args...)
}

// ProtocolErrorf returns a Status with CodeProtocol.
func ProtocolErrorf(format string, args ...interface{}) error {
	return Newf(CodeProtocol, format, args...)
}

// DisconnectedErrorf returns a Status with CodeDisconnected.
func DisconnectedErrorf(format string, args ...interface{}) error {
	return Newf(CodeDisconnected, format, args...)
}

// TimeoutErrorf returns a Status with CodeTimeout.
func TimeoutErrorf(format string, args ...interface{}) error {
	return Newf(CodeTimeout, format, args...)
}

// SerializationErrorf returns a Status with CodeSerialization.
func SerializationErrorf(format string, args ...interface{}) error {
	return Newf(CodeSerialization, format, args...)
}

// RemoteErrorf returns a Status with CodeRemote.
func RemoteErrorf(format string, args ...interface{}) error {
	return Newf(CodeRemote, format, args...)
}

// UnknownCapabilityErrorf returns a Status with CodeUnknownCapability.
func UnknownCapabilityErrorf(format string, args ...interface{}) error {
	return Newf(CodeUnknownCapability, format, args...)
}

// IllegalStateErrorf returns a Status with CodeIllegalState.
func IllegalStateErrorf(format string, args ...interface{}) error {
	return Newf(CodeIllegalState, format, args...)
}

// InternalErrorf returns a Status with CodeInternal.
func InternalErrorf(format string, args ...interface{}) error {
	return Newf(CodeInternal, format, args...)
}

// IsCancelled returns true if FromError(err).Code() == CodeCancelled.
func IsCancelled(err error) bool {
	return FromError(err).Code() == CodeCancelled
}

// IsUnknown returns true if FromError(err).Code() == CodeUnknown.
func IsUnknown(err error) bool {
	return FromError(err).Code() == CodeUnknown
}

// IsInvalidArgument returns true if FromError(err).Code() == CodeInvalidArgument.
func IsInvalidArgument(err error) bool {
	return FromError(err).Code() == CodeInvalidArgument
}

// IsProtocol returns true if FromError(err).Code() == CodeProtocol.
func IsProtocol(err error) bool {
	return FromError(err).Code() == CodeProtocol
}

// IsDisconnected returns true if FromError(err).Code() == CodeDisconnected.
func IsDisconnected(err error) bool {
	return FromError(err).Code() == CodeDisconnected
}

// IsTimeout returns true if FromError(err).Code() == CodeTimeout.
func IsTimeout(err error) bool {
	return FromError(err).Code() == CodeTimeout
}

// IsSerialization returns true if FromError(err).Code() == CodeSerialization.
func IsSerialization(err error) bool {
	return FromError(err).Code() == CodeSerialization
}

// IsUnknownCapability returns true if FromError(err).Code() == CodeUnknownCapability.
func IsUnknownCapability(err error) bool {
	return FromError(err).Code() == CodeUnknownCapability
}

// IsIllegalState returns true if FromError(err).Code() == CodeIllegalState.
func IsIllegalState(err error) bool {
	return FromError(err).Code() == CodeIllegalState
}

// IsInternal returns true if FromError(err).Code() == CodeInternal.
func IsInternal(err error) bool {
	return FromError(err).Code() == CodeInternal
}

// IsRemote reports whether err was produced by the remote operation itself
// and forwarded as a RemoteError or a CodeRemote status.
func IsRemote(err error) bool {
	var re *RemoteError
	if errors.As(err, &re) {
		return true
	}
	return IsStatus(err) && FromError(err).Code() == CodeRemote
}

// IsConnectionLevel reports whether err describes a failure of the path to
// the peer rather than of the operation: these are the errors worth retrying
// against a redundant endpoint.
func IsConnectionLevel(err error) bool {
	if !IsStatus(err) {
		return false
	}
	switch FromError(err).Code() {
	case CodeProtocol, CodeDisconnected, CodeTimeout, CodeUnknownCapability:
		return true
	default:
		return false
	}
}
