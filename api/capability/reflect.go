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
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/saces/r-osgi-sub000/rosgierrors"
)

var (
	_contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	_errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// Reflect returns a Handler that calls the exported methods of target. The
// method is chosen by the name in front of the parenthesis of the
// signature, so "add(II)I" calls Add. A method may take a context.Context
// first and may return an error last.
func Reflect(target interface{}) Handler {
	return &reflectHandler{target: reflect.ValueOf(target)}
}

type reflectHandler struct {
	target reflect.Value
}

func (h *reflectHandler) Invoke(ctx context.Context, signature string, args []interface{}) (res interface{}, err error) {
	name := MethodName(signature)
	m := h.target.MethodByName(name)
	if !m.IsValid() {
		return nil, rosgierrors.InvalidArgumentErrorf("%T has no operation %q", h.target.Interface(), signature)
	}

	in, err := arguments(ctx, m.Type(), args)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			res, err = nil, rosgierrors.InternalErrorf("operation %q panicked: %v", signature, r)
		}
	}()
	return results(m.Call(in))
}

// MethodName returns the Go method name for an operation signature.
func MethodName(signature string) string {
	name := signature
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func arguments(ctx context.Context, mt reflect.Type, args []interface{}) ([]reflect.Value, error) {
	var in []reflect.Value
	first := 0
	if mt.NumIn() > 0 && mt.In(0) == _contextType {
		in = append(in, reflect.ValueOf(ctx))
		first = 1
	}
	if want := mt.NumIn() - first; want != len(args) {
		return nil, rosgierrors.InvalidArgumentErrorf("operation takes %d arguments, got %d", want, len(args))
	}

	for i, arg := range args {
		pt := mt.In(first + i)
		if arg == nil {
			in = append(in, reflect.Zero(pt))
			continue
		}
		v := reflect.ValueOf(arg)
		switch {
		case v.Type().AssignableTo(pt):
		case v.Type().ConvertibleTo(pt) && convertible(v.Type(), pt):
			v = v.Convert(pt)
		default:
			return nil, rosgierrors.InvalidArgumentErrorf("argument %d: cannot use %T as %v", i, arg, pt)
		}
		in = append(in, v)
	}
	return in, nil
}

// convertible allows the numeric conversions a peer may need when its
// integer widths differ from ours. Conversions that reinterpret values,
// such as int to string, are refused.
func convertible(from, to reflect.Type) bool {
	return numeric(from.Kind()) && numeric(to.Kind())
}

func numeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func results(out []reflect.Value) (interface{}, error) {
	var err error
	if n := len(out); n > 0 && out[n-1].Type() == _errorType {
		if e := out[n-1]; !e.IsNil() {
			err = e.Interface().(error)
		}
		out = out[:n-1]
	}

	switch len(out) {
	case 0:
		return nil, err
	case 1:
		return out[0].Interface(), err
	}

	vals := make([]interface{}, len(out))
	for i, v := range out {
		vals[i] = v.Interface()
	}
	return vals, err
}

// String describes the handler in logs.
func (h *reflectHandler) String() string {
	return fmt.Sprintf("reflect(%T)", h.target.Interface())
}
