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
	"reflect"
	"strconv"
	"time"

	"github.com/saces/r-osgi-sub000/internal/wireio"
	"github.com/saces/r-osgi-sub000/rosgierrors"
)

// _preallocLimit caps how many elements are allocated up front for a
// collection whose length came off the wire.
const _preallocLimit = 1024

type decoder struct {
	reg   *Registry
	r     *wireio.Reader
	depth int
}

func (d *decoder) value() (interface{}, error) {
	tag := d.r.Uint8()
	if d.r.Err() != nil {
		return nil, nil
	}

	switch tag {
	case TagNull:
		return nil, nil

	case TagPrimitive:
		code := d.r.Uint8()
		t, ok := _codeTypes[code]
		if !ok {
			return nil, rosgierrors.SerializationErrorf("unknown primitive code %q", code)
		}
		v := reflect.New(t).Elem()
		if err := d.scalar(code, t, v); err != nil {
			return nil, err
		}
		return v.Interface(), nil

	case TagOpaque:
		name := d.r.String()
		block := d.r.Block()
		if d.r.Err() != nil {
			return nil, nil
		}
		if name == "" {
			return block, nil
		}
		t, err := d.resolve(name)
		if err != nil {
			return nil, err
		}
		base := t
		if base.Kind() == reflect.Ptr {
			base = base.Elem()
		}
		if !selfEncoding(base) {
			return nil, rosgierrors.SerializationErrorf("type %q does not decode opaque blocks", name)
		}
		p, err := unmarshal(base, block)
		if err != nil {
			return nil, err
		}
		if t.Kind() == reflect.Ptr {
			return p.Interface(), nil
		}
		return p.Elem().Interface(), nil

	case TagStructure:
		name := d.r.String()
		if d.r.Err() != nil {
			return nil, nil
		}
		t, err := d.resolve(name)
		if err != nil {
			return nil, err
		}
		v := reflect.New(t).Elem()
		if err := d.body(t, v); err != nil {
			return nil, err
		}
		return v.Interface(), nil
	}
	return nil, rosgierrors.SerializationErrorf("unknown value tag %d", tag)
}

func (d *decoder) resolve(name string) (reflect.Type, error) {
	t, err := d.reg.parseType(name)
	if err != nil {
		return nil, err
	}
	if d.reg.blacklisted(t) {
		return nil, rosgierrors.SerializationErrorf("values of type %v cannot be transmitted", t)
	}
	return t, nil
}

func (d *decoder) body(t reflect.Type, v reflect.Value) error {
	if d.depth >= _maxDepth {
		return rosgierrors.SerializationErrorf("value nests deeper than %d levels", _maxDepth)
	}
	d.depth++
	defer func() { d.depth-- }()

	if t.Kind() == reflect.Interface {
		val, err := d.value()
		if err != nil || val == nil {
			return err
		}
		rv := reflect.ValueOf(val)
		if !rv.Type().AssignableTo(t) {
			return rosgierrors.SerializationErrorf("%v does not implement %v", rv.Type(), t)
		}
		v.Set(rv)
		return nil
	}

	if selfEncoding(t) {
		block := d.r.Block()
		if d.r.Err() != nil {
			return nil
		}
		p, err := unmarshal(t, block)
		if err != nil {
			return err
		}
		v.Set(p.Elem())
		return nil
	}
	if code, ok := scalarCode(t); ok {
		got := d.r.Uint8()
		if d.r.Err() != nil {
			return nil
		}
		if got != code {
			return rosgierrors.SerializationErrorf("expected %v (code %q), got code %q", t, code, got)
		}
		return d.scalar(code, t, v)
	}

	switch t.Kind() {
	case reflect.Ptr:
		if d.r.Uint8() == 0 || d.r.Err() != nil {
			return nil
		}
		p := reflect.New(t.Elem())
		if err := d.body(t.Elem(), p.Elem()); err != nil {
			return err
		}
		v.Set(p)
		return nil

	case reflect.Slice:
		n, isNil, err := d.count()
		if err != nil || isNil {
			return err
		}
		if t.Elem().Kind() == reflect.Uint8 {
			b := d.r.Raw(n)
			if d.r.Err() == nil {
				v.Set(reflect.MakeSlice(t, 0, 0))
				v.SetBytes(b)
			}
			return nil
		}
		s := reflect.MakeSlice(t, 0, min(n, _preallocLimit))
		for i := 0; i < n; i++ {
			elem := reflect.New(t.Elem()).Elem()
			if err := d.body(t.Elem(), elem); err != nil {
				return err
			}
			if d.r.Err() != nil {
				return nil
			}
			s = reflect.Append(s, elem)
		}
		v.Set(s)
		return nil

	case reflect.Array:
		n, isNil, err := d.count()
		if err != nil {
			return err
		}
		if isNil || n != t.Len() {
			return rosgierrors.SerializationErrorf("expected %d elements for %v, got %d", t.Len(), t, n)
		}
		for i := 0; i < n; i++ {
			if err := d.body(t.Elem(), v.Index(i)); err != nil {
				return err
			}
		}
		return nil

	case reflect.Map:
		n, isNil, err := d.count()
		if err != nil || isNil {
			return err
		}
		m := reflect.MakeMapWithSize(t, min(n, _preallocLimit))
		for i := 0; i < n; i++ {
			key := reflect.New(t.Key()).Elem()
			if err := d.body(t.Key(), key); err != nil {
				return err
			}
			val := reflect.New(t.Elem()).Elem()
			if err := d.body(t.Elem(), val); err != nil {
				return err
			}
			if d.r.Err() != nil {
				return nil
			}
			m.SetMapIndex(key, val)
		}
		v.Set(m)
		return nil

	case reflect.Struct:
		fields := make(map[string]field)
		for _, f := range fieldsOf(t) {
			fields[f.Name] = f
		}
		for {
			name := d.r.String()
			if name == "" || d.r.Err() != nil {
				return nil
			}
			f, ok := fields[name]
			if !ok {
				return rosgierrors.SerializationErrorf("%v has no transmissible field %q", t, name)
			}
			if err := d.body(f.Type, v.Field(f.Index)); err != nil {
				return err
			}
		}
	}
	return rosgierrors.SerializationErrorf("values of kind %v cannot be transmitted", t.Kind())
}

func (d *decoder) count() (n int, isNil bool, err error) {
	c := d.r.Uint32()
	if d.r.Err() != nil {
		return 0, true, nil
	}
	if c == _nilCount {
		return 0, true, nil
	}
	if c > wireio.MaxBlockLen {
		return 0, false, rosgierrors.SerializationErrorf("collection of %d elements exceeds limit", c)
	}
	return int(c), false, nil
}

func (d *decoder) scalar(code byte, t reflect.Type, v reflect.Value) error {
	s := d.r.LongString()
	if d.r.Err() != nil {
		return nil
	}

	var err error
	switch code {
	case _codeBool:
		var b bool
		if b, err = strconv.ParseBool(s); err == nil {
			v.SetBool(b)
		}
	case _codeString:
		v.SetString(s)
	case _codeInt, _codeInt8, _codeInt16, _codeInt32, _codeInt64, _codeDuration:
		var i int64
		if i, err = strconv.ParseInt(s, 10, t.Bits()); err == nil {
			v.SetInt(i)
		}
	case _codeUint, _codeUint8, _codeUint16, _codeUint32, _codeUint64:
		var u uint64
		if u, err = strconv.ParseUint(s, 10, t.Bits()); err == nil {
			v.SetUint(u)
		}
	case _codeFloat32, _codeFloat64:
		var f float64
		if f, err = strconv.ParseFloat(s, t.Bits()); err == nil {
			v.SetFloat(f)
		}
	case _codeTime:
		var tm time.Time
		if tm, err = time.Parse(time.RFC3339Nano, s); err == nil {
			v.Set(reflect.ValueOf(tm))
		}
	}
	if err != nil {
		return rosgierrors.SerializationErrorf("cannot decode %v from %q: %v", t, s, err)
	}
	return nil
}

func unmarshal(t reflect.Type, b []byte) (reflect.Value, error) {
	p := reflect.New(t)
	if err := p.Interface().(Decodable).UnmarshalSmart(b); err != nil {
		return reflect.Value{}, rosgierrors.Wrap(rosgierrors.CodeSerialization, err)
	}
	return p, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
