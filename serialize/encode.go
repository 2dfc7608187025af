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

package serialize

import (
	"bytes"
	"reflect"
	"sort"
	"strconv"
	"time"

	"github.com/saces/r-osgi-sub000/internal/wireio"
	"github.com/saces/r-osgi-sub000/rosgierrors"
)

const (
	// _nilCount marks a nil slice or map in place of its length.
	_nilCount = 0xFFFFFFFF

	_maxDepth = 64
)

type encoder struct {
	reg   *Registry
	w     *wireio.Writer
	depth int
}

func (e *encoder) value(v interface{}) error {
	if v == nil {
		e.w.Uint8(TagNull)
		return nil
	}

	rv := reflect.ValueOf(v)
	t := rv.Type()
	if e.reg.blacklisted(t) {
		return rosgierrors.SerializationErrorf("values of type %v cannot be transmitted", t)
	}
	if t.Kind() == reflect.Ptr && rv.IsNil() {
		e.w.Uint8(TagNull)
		return nil
	}

	switch {
	case isPrimitive(t):
		code, _ := scalarCode(t)
		e.w.Uint8(TagPrimitive)
		e.w.Uint8(code)
		e.w.LongString(canonical(code, rv))
		return nil

	case t == _bytesType:
		e.w.Uint8(TagOpaque)
		e.w.String("")
		e.w.Block(rv.Bytes())
		return nil
	}

	name, err := e.reg.typeName(t)
	if err != nil {
		return err
	}

	base := t
	if base.Kind() == reflect.Ptr {
		base = base.Elem()
	}
	if selfEncoding(base) {
		b, err := marshal(rv)
		if err != nil {
			return err
		}
		e.w.Uint8(TagOpaque)
		e.w.String(name)
		e.w.Block(b)
		return nil
	}

	e.w.Uint8(TagStructure)
	e.w.String(name)
	return e.body(t, rv)
}

func (e *encoder) body(t reflect.Type, v reflect.Value) error {
	if e.depth >= _maxDepth {
		return rosgierrors.SerializationErrorf("value nests deeper than %d levels", _maxDepth)
	}
	e.depth++
	defer func() { e.depth-- }()

	if t.Kind() == reflect.Interface {
		if v.IsNil() {
			e.w.Uint8(TagNull)
			return nil
		}
		return e.value(v.Interface())
	}
	if e.reg.blacklisted(t) {
		return rosgierrors.SerializationErrorf("values of type %v cannot be transmitted", t)
	}

	if selfEncoding(t) {
		b, err := marshal(v)
		if err != nil {
			return err
		}
		e.w.Block(b)
		return nil
	}
	if code, ok := scalarCode(t); ok {
		e.w.Uint8(code)
		e.w.LongString(canonical(code, v))
		return nil
	}

	switch t.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			e.w.Uint8(0)
			return nil
		}
		e.w.Uint8(1)
		return e.body(t.Elem(), v.Elem())

	case reflect.Slice:
		if v.IsNil() {
			e.w.Uint32(_nilCount)
			return nil
		}
		e.w.Uint32(uint32(v.Len()))
		if t.Elem().Kind() == reflect.Uint8 {
			e.w.Raw(v.Bytes())
			return nil
		}
		return e.elements(t.Elem(), v)

	case reflect.Array:
		e.w.Uint32(uint32(v.Len()))
		return e.elements(t.Elem(), v)

	case reflect.Map:
		if v.IsNil() {
			e.w.Uint32(_nilCount)
			return nil
		}
		return e.mapBody(t, v)

	case reflect.Struct:
		for _, f := range fieldsOf(t) {
			e.w.String(f.Name)
			if err := e.body(f.Type, v.Field(f.Index)); err != nil {
				return err
			}
		}
		e.w.String("")
		return nil
	}
	return rosgierrors.SerializationErrorf("values of kind %v cannot be transmitted", t.Kind())
}

func (e *encoder) elements(elem reflect.Type, v reflect.Value) error {
	for i := 0; i < v.Len(); i++ {
		if err := e.body(elem, v.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

// mapBody writes entries ordered by the encoding of their keys so that equal
// maps always produce equal bytes.
func (e *encoder) mapBody(t reflect.Type, v reflect.Value) error {
	type entry struct {
		key []byte
		val reflect.Value
	}

	entries := make([]entry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		var kb bytes.Buffer
		ke := encoder{reg: e.reg, w: wireio.NewWriter(&kb), depth: e.depth}
		if err := ke.body(t.Key(), iter.Key()); err != nil {
			return err
		}
		if err := ke.w.Err(); err != nil {
			return rosgierrors.Wrap(rosgierrors.CodeSerialization, err)
		}
		entries = append(entries, entry{key: kb.Bytes(), val: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].key, entries[j].key) < 0
	})

	e.w.Uint32(uint32(len(entries)))
	for _, ent := range entries {
		e.w.Raw(ent.key)
		if err := e.body(t.Elem(), ent.val); err != nil {
			return err
		}
	}
	return nil
}

func marshal(v reflect.Value) ([]byte, error) {
	enc, ok := v.Interface().(Encodable)
	if !ok {
		p := reflect.New(v.Type())
		p.Elem().Set(v)
		enc = p.Interface().(Encodable)
	}
	b, err := enc.MarshalSmart()
	if err != nil {
		return nil, rosgierrors.Wrap(rosgierrors.CodeSerialization, err)
	}
	return b, nil
}

func canonical(code byte, v reflect.Value) string {
	switch code {
	case _codeBool:
		return strconv.FormatBool(v.Bool())
	case _codeString:
		return v.String()
	case _codeInt, _codeInt8, _codeInt16, _codeInt32, _codeInt64, _codeDuration:
		return strconv.FormatInt(v.Int(), 10)
	case _codeUint, _codeUint8, _codeUint16, _codeUint32, _codeUint64:
		return strconv.FormatUint(v.Uint(), 10)
	case _codeFloat32:
		return strconv.FormatFloat(v.Float(), 'g', -1, 32)
	case _codeFloat64:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case _codeTime:
		return v.Interface().(time.Time).Format(time.RFC3339Nano)
	}
	return ""
}

type field struct {
	Name  string
	Index int
	Type  reflect.Type
}

// fieldsOf lists the fields of a struct type that cross the wire.
func fieldsOf(t reflect.Type) []field {
	fields := make([]field, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" || f.Tag.Get("smart") == "-" {
			continue
		}
		fields = append(fields, field{Name: f.Name, Index: i, Type: f.Type})
	}
	return fields
}
