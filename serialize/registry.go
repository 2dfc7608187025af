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
	"context"
	"fmt"
	"net"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/saces/r-osgi-sub000/rosgierrors"
)

var (
	_timeType        = reflect.TypeOf(time.Time{})
	_durationType    = reflect.TypeOf(time.Duration(0))
	_bytesType       = reflect.TypeOf([]byte(nil))
	_emptyIfaceType  = reflect.TypeOf((*interface{})(nil)).Elem()
	_errorType       = reflect.TypeOf((*error)(nil)).Elem()
	_encodableType   = reflect.TypeOf((*Encodable)(nil)).Elem()
	_decodableType   = reflect.TypeOf((*Decodable)(nil)).Elem()
	_netConnType     = reflect.TypeOf((*net.Conn)(nil)).Elem()
	_netListenerType = reflect.TypeOf((*net.Listener)(nil)).Elem()
	_contextType     = reflect.TypeOf((*context.Context)(nil)).Elem()
)

var _builtin = struct {
	sync.Mutex

	names     map[string]reflect.Type
	blacklist map[reflect.Type]struct{}
}{
	names: map[string]reflect.Type{
		"bool":          reflect.TypeOf(false),
		"string":        reflect.TypeOf(""),
		"int":           reflect.TypeOf(int(0)),
		"int8":          reflect.TypeOf(int8(0)),
		"int16":         reflect.TypeOf(int16(0)),
		"int32":         reflect.TypeOf(int32(0)),
		"int64":         reflect.TypeOf(int64(0)),
		"uint":          reflect.TypeOf(uint(0)),
		"uint8":         reflect.TypeOf(uint8(0)),
		"uint16":        reflect.TypeOf(uint16(0)),
		"uint32":        reflect.TypeOf(uint32(0)),
		"uint64":        reflect.TypeOf(uint64(0)),
		"float32":       reflect.TypeOf(float32(0)),
		"float64":       reflect.TypeOf(float64(0)),
		"interface{}":   _emptyIfaceType,
		"error":         _errorType,
		"time.Time":     _timeType,
		"time.Duration": _durationType,

		"rosgi.Status":      reflect.TypeOf(rosgierrors.Status{}),
		"rosgi.RemoteError": reflect.TypeOf(rosgierrors.RemoteError{}),
	},
	blacklist: map[reflect.Type]struct{}{
		reflect.TypeOf(os.File{}):        {},
		reflect.TypeOf(sync.Mutex{}):     {},
		reflect.TypeOf(sync.RWMutex{}):   {},
		reflect.TypeOf(sync.WaitGroup{}): {},
		reflect.TypeOf(sync.Once{}):      {},
		reflect.TypeOf(sync.Cond{}):      {},
		reflect.TypeOf(sync.Map{}):       {},
	},
}

// Default is the registry used by the package level Write and Read.
var Default = NewRegistry()

// RegisterBuiltin binds name to the type of sample in Default and in every
// Registry created afterwards. Packages call it from init for the types they
// put on the wire themselves. It panics on conflicting registrations.
func RegisterBuiltin(name string, sample interface{}) {
	t := sampleType(sample)
	if err := validateName(name, t); err != nil {
		panic(err)
	}

	_builtin.Lock()
	if prev, ok := _builtin.names[name]; ok && prev != t {
		_builtin.Unlock()
		panic(fmt.Sprintf("serialize: %q is already bound to %v", name, prev))
	}
	_builtin.names[name] = t
	_builtin.Unlock()

	if err := Default.Register(name, sample); err != nil {
		panic(err)
	}
}

// Registry maps wire type names to Go types. A value of a named type can
// only cross the wire when both sides registered it under the same name.
type Registry struct {
	mu        sync.RWMutex
	byName    map[string]reflect.Type
	byType    map[reflect.Type]string
	blacklist map[reflect.Type]struct{}
}

// NewRegistry returns a Registry that knows the builtin types.
func NewRegistry() *Registry {
	r := &Registry{
		byName:    make(map[string]reflect.Type),
		byType:    make(map[reflect.Type]string),
		blacklist: make(map[reflect.Type]struct{}),
	}

	_builtin.Lock()
	defer _builtin.Unlock()
	for name, t := range _builtin.names {
		r.byName[name] = t
		r.byType[t] = name
	}
	for t := range _builtin.blacklist {
		r.blacklist[t] = struct{}{}
	}
	return r
}

// Register binds name to the type of sample. A pointer sample registers its
// element type; the pointer type is then spelled "*" + name on the wire.
func (r *Registry) Register(name string, sample interface{}) error {
	t := sampleType(sample)
	if err := validateName(name, t); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.byName[name]; ok && prev != t {
		return rosgierrors.InvalidArgumentErrorf("type name %q is already bound to %v", name, prev)
	}
	if prev, ok := r.byType[t]; ok && prev != name {
		return rosgierrors.InvalidArgumentErrorf("type %v is already registered as %q", t, prev)
	}
	r.byName[name] = t
	r.byType[t] = name
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(name string, sample interface{}) {
	if err := r.Register(name, sample); err != nil {
		panic(err)
	}
}

// Blacklist forbids values of the type of sample from crossing the wire.
func (r *Registry) Blacklist(sample interface{}) {
	t := sampleType(sample)
	r.mu.Lock()
	r.blacklist[t] = struct{}{}
	r.mu.Unlock()
}

func sampleType(sample interface{}) reflect.Type {
	t := reflect.TypeOf(sample)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

func validateName(name string, t reflect.Type) error {
	switch {
	case t == nil:
		return rosgierrors.InvalidArgumentErrorf("cannot register %q: nil sample", name)
	case name == "":
		return rosgierrors.InvalidArgumentErrorf("cannot register %v: empty name", t)
	case strings.ContainsAny(name, "[]* \t"):
		return rosgierrors.InvalidArgumentErrorf("cannot register %v: name %q uses reserved characters", t, name)
	}
	return nil
}

func (r *Registry) blacklisted(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.UnsafePointer, reflect.Uintptr,
		reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Ptr:
		return r.blacklisted(t.Elem())
	}
	if t.Kind() != reflect.Interface {
		if t.Implements(_netConnType) || t.Implements(_netListenerType) || t.Implements(_contextType) {
			return true
		}
		if pt := reflect.PtrTo(t); pt.Implements(_netConnType) || pt.Implements(_netListenerType) || pt.Implements(_contextType) {
			return true
		}
	}

	r.mu.RLock()
	_, ok := r.blacklist[t]
	r.mu.RUnlock()
	return ok
}

// typeName spells t on the wire.
func (r *Registry) typeName(t reflect.Type) (string, error) {
	r.mu.RLock()
	name, ok := r.byType[t]
	r.mu.RUnlock()
	if ok {
		return name, nil
	}

	if t.Name() == "" {
		switch t.Kind() {
		case reflect.Ptr:
			elem, err := r.typeName(t.Elem())
			return "*" + elem, err
		case reflect.Slice:
			elem, err := r.typeName(t.Elem())
			return "[]" + elem, err
		case reflect.Array:
			elem, err := r.typeName(t.Elem())
			return "[" + strconv.Itoa(t.Len()) + "]" + elem, err
		case reflect.Map:
			key, err := r.typeName(t.Key())
			if err != nil {
				return "", err
			}
			elem, err := r.typeName(t.Elem())
			return "map[" + key + "]" + elem, err
		}
	}
	return "", rosgierrors.SerializationErrorf("type %v is not registered", t)
}

// parseType resolves a wire type name.
func (r *Registry) parseType(name string) (reflect.Type, error) {
	switch {
	case strings.HasPrefix(name, "*"):
		elem, err := r.parseType(name[1:])
		if err != nil {
			return nil, err
		}
		return reflect.PtrTo(elem), nil

	case strings.HasPrefix(name, "[]"):
		elem, err := r.parseType(name[2:])
		if err != nil {
			return nil, err
		}
		return reflect.SliceOf(elem), nil

	case strings.HasPrefix(name, "["):
		end := strings.IndexByte(name, ']')
		if end < 0 {
			return nil, rosgierrors.SerializationErrorf("malformed type name %q", name)
		}
		n, err := strconv.Atoi(name[1:end])
		if err != nil || n < 0 {
			return nil, rosgierrors.SerializationErrorf("malformed array length in %q", name)
		}
		elem, err := r.parseType(name[end+1:])
		if err != nil {
			return nil, err
		}
		return reflect.ArrayOf(n, elem), nil

	case strings.HasPrefix(name, "map["):
		end := matchingBracket(name, len("map"))
		if end < 0 {
			return nil, rosgierrors.SerializationErrorf("malformed type name %q", name)
		}
		key, err := r.parseType(name[len("map["):end])
		if err != nil {
			return nil, err
		}
		elem, err := r.parseType(name[end+1:])
		if err != nil {
			return nil, err
		}
		if !key.Comparable() {
			return nil, rosgierrors.SerializationErrorf("map key %v is not comparable", key)
		}
		return reflect.MapOf(key, elem), nil
	}

	r.mu.RLock()
	t, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return nil, rosgierrors.SerializationErrorf("unknown type name %q", name)
	}
	return t, nil
}

// matchingBracket returns the index of the ']' closing the '[' at open.
func matchingBracket(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
