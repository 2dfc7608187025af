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

// Package serialize implements the smart value encoding used for payloads
// whose shape the wire format does not fix: call arguments, results, errors
// and property maps.
//
// Every value starts with a tag byte:
//
//	0  null
//	1  primitive: [code:1][len:4][canonical string]
//	2  opaque:    [type name][len:4][bytes]
//	3  structure: [type name][body]
//
// Primitives are the unnamed builtin scalars plus time.Time and
// time.Duration. Unlike the 2-byte strings of frame fields in package wire,
// the canonical string of a primitive has a 4-byte length, so string values
// are not limited to 64 KiB. Times travel as RFC 3339 with nanoseconds: the
// instant survives, the monotonic reading does not, and a local location
// comes back as a fixed zone. Compare decoded times with time.Time.Equal.
//
// Opaque values are []byte (with an empty type name) and
// registered types implementing Encodable and Decodable. Everything else is
// walked structurally: slices, arrays and maps element by element, structs
// by exported field name, pointers by their pointee. Named types must be
// registered on both sides.
//
// Values that only make sense in this process, such as channels, functions,
// files, connections and locks, are rejected with a serialization error.
// Nothing reaches the underlying writer when encoding fails.
package serialize

import (
	"io"
	"reflect"

	"github.com/saces/r-osgi-sub000/internal/bufferpool"
	"github.com/saces/r-osgi-sub000/internal/wireio"
	"github.com/saces/r-osgi-sub000/rosgierrors"
)

// Tags identifying the representation of a value.
const (
	TagNull      byte = 0
	TagPrimitive byte = 1
	TagOpaque    byte = 2
	TagStructure byte = 3
)

// Encodable values encode themselves as an opaque block.
type Encodable interface {
	MarshalSmart() ([]byte, error)
}

// Decodable values decode themselves from the block written by their
// MarshalSmart.
type Decodable interface {
	UnmarshalSmart([]byte) error
}

// Write encodes v with the Default registry.
func Write(w io.Writer, v interface{}) error {
	return Default.Write(w, v)
}

// Read decodes one value with the Default registry.
func Read(r io.Reader) (interface{}, error) {
	return Default.Read(r)
}

// Write encodes v to w. On error nothing is written.
func (r *Registry) Write(w io.Writer, v interface{}) error {
	buf := bufferpool.Get()
	defer buf.Release()

	e := encoder{reg: r, w: wireio.NewWriter(buf)}
	if err := e.value(v); err != nil {
		return err
	}
	if err := e.w.Err(); err != nil {
		return rosgierrors.Wrap(rosgierrors.CodeSerialization, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Read decodes one value from r. Errors from r are returned as is, with
// io.ErrUnexpectedEOF for a value cut short.
func (r *Registry) Read(rd io.Reader) (interface{}, error) {
	d := decoder{reg: r, r: wireio.NewReader(rd)}
	v, err := d.value()
	if rerr := d.r.Err(); rerr != nil {
		return nil, rerr
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// primitive type codes
const (
	_codeBool     = 'Z'
	_codeString   = 'T'
	_codeInt      = 'N'
	_codeUint     = 'n'
	_codeInt8     = 'B'
	_codeUint8    = 'b'
	_codeInt16    = 'S'
	_codeUint16   = 's'
	_codeInt32    = 'I'
	_codeUint32   = 'i'
	_codeInt64    = 'J'
	_codeUint64   = 'j'
	_codeFloat32  = 'F'
	_codeFloat64  = 'D'
	_codeTime     = 't'
	_codeDuration = 'd'
)

var _kindCodes = map[reflect.Kind]byte{
	reflect.Bool:    _codeBool,
	reflect.String:  _codeString,
	reflect.Int:     _codeInt,
	reflect.Uint:    _codeUint,
	reflect.Int8:    _codeInt8,
	reflect.Uint8:   _codeUint8,
	reflect.Int16:   _codeInt16,
	reflect.Uint16:  _codeUint16,
	reflect.Int32:   _codeInt32,
	reflect.Uint32:  _codeUint32,
	reflect.Int64:   _codeInt64,
	reflect.Uint64:  _codeUint64,
	reflect.Float32: _codeFloat32,
	reflect.Float64: _codeFloat64,
}

var _codeTypes = map[byte]reflect.Type{
	_codeBool:     reflect.TypeOf(false),
	_codeString:   reflect.TypeOf(""),
	_codeInt:      reflect.TypeOf(int(0)),
	_codeUint:     reflect.TypeOf(uint(0)),
	_codeInt8:     reflect.TypeOf(int8(0)),
	_codeUint8:    reflect.TypeOf(uint8(0)),
	_codeInt16:    reflect.TypeOf(int16(0)),
	_codeUint16:   reflect.TypeOf(uint16(0)),
	_codeInt32:    reflect.TypeOf(int32(0)),
	_codeUint32:   reflect.TypeOf(uint32(0)),
	_codeInt64:    reflect.TypeOf(int64(0)),
	_codeUint64:   reflect.TypeOf(uint64(0)),
	_codeFloat32:  reflect.TypeOf(float32(0)),
	_codeFloat64:  reflect.TypeOf(float64(0)),
	_codeTime:     _timeType,
	_codeDuration: _durationType,
}

// scalarCode returns the primitive code for t, or false when t is not a
// scalar.
func scalarCode(t reflect.Type) (byte, bool) {
	switch t {
	case _timeType:
		return _codeTime, true
	case _durationType:
		return _codeDuration, true
	}
	c, ok := _kindCodes[t.Kind()]
	return c, ok
}

// isPrimitive reports whether t travels with the primitive tag.
func isPrimitive(t reflect.Type) bool {
	if t == _timeType || t == _durationType {
		return true
	}
	_, ok := _kindCodes[t.Kind()]
	return ok && t.PkgPath() == "" && t.Name() == t.Kind().String()
}

// selfEncoding reports whether t handles its own encoding.
func selfEncoding(t reflect.Type) bool {
	pt := reflect.PtrTo(t)
	return (t.Implements(_encodableType) || pt.Implements(_encodableType)) && pt.Implements(_decodableType)
}
