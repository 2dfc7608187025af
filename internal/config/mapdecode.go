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

// Package config decodes loosely typed configuration into structs tagged
// with `config:"..."`.
package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/saces/r-osgi-sub000/internal/interpolate"
	"github.com/uber-go/mapdecode"
)

const (
	_tagName           = "config"
	_interpolateOption = "interpolate"
)

// DecodeInto decodes src into dst using the `config` struct tag.
func DecodeInto(dst interface{}, src interface{}, opts ...mapdecode.Option) error {
	opts = append(opts, mapdecode.TagName(_tagName))
	return mapdecode.Decode(dst, src, opts...)
}

// InterpolateWith expands variable references in fields tagged with the
// `interpolate` option, such as
//
// 	Address string `config:"address,interpolate"`
//
// String fields and lists of strings are expanded; other values are left
// alone.
func InterpolateWith(resolver interpolate.VariableResolver) mapdecode.Option {
	return mapdecode.FieldHook(func(dest reflect.StructField, srcData reflect.Value) (reflect.Value, error) {
		if !hasOption(dest.Tag.Get(_tagName), _interpolateOption) {
			return srcData, nil
		}

		switch v := srcData.Interface().(type) {
		case string:
			out, err := interpolate.Expand(v, resolver)
			if err != nil {
				return srcData, fmt.Errorf("failed to interpolate %q: %v", v, err)
			}
			return reflect.ValueOf(out), nil

		case []interface{}:
			out := make([]interface{}, len(v))
			for i, item := range v {
				s, ok := item.(string)
				if !ok {
					out[i] = item
					continue
				}
				expanded, err := interpolate.Expand(s, resolver)
				if err != nil {
					return srcData, fmt.Errorf("failed to interpolate item %d %q: %v", i, s, err)
				}
				out[i] = expanded
			}
			return reflect.ValueOf(out), nil
		}
		return srcData, nil
	})
}

func hasOption(tag, option string) bool {
	for _, o := range strings.Split(tag, ",")[1:] {
		if o == option {
			return true
		}
	}
	return false
}
