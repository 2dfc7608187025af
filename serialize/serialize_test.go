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
	"context"
	"errors"
	"math"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/saces/r-osgi-sub000/rosgierrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X, Y int
}

type shape struct {
	Name     string
	Points   []point
	Origin   *point
	Tags     map[string]interface{}
	Color    color
	Created  time.Time
	Lifetime time.Duration
	Data     []byte
	Extra    interface{}
	Err      error
	Cache    *sync.Mutex `smart:"-"`
	internal int
}

type color uint8

type token struct {
	secret string
}

func (t token) MarshalSmart() ([]byte, error) { return []byte(t.secret), nil }

func (t *token) UnmarshalSmart(b []byte) error {
	t.secret = string(b)
	return nil
}

type withChan struct {
	C chan int
}

type withFile struct {
	F *os.File
}

type handle struct {
	Addr string
}

func newTestRegistry(t *testing.T) *Registry {
	r := NewRegistry()
	require.NoError(t, r.Register("test.Point", point{}))
	require.NoError(t, r.Register("test.Shape", &shape{}))
	require.NoError(t, r.Register("test.Color", color(0)))
	require.NoError(t, r.Register("test.Token", token{}))
	require.NoError(t, r.Register("test.WithChan", withChan{}))
	require.NoError(t, r.Register("test.WithFile", withFile{}))
	require.NoError(t, r.Register("test.Handle", handle{}))
	return r
}

func roundTrip(t *testing.T, r *Registry, v interface{}) interface{} {
	var buf bytes.Buffer
	require.NoError(t, r.Write(&buf, v))
	got, err := r.Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, 0, buf.Len(), "trailing bytes after %#v", v)
	return got
}

func TestRoundTrip(t *testing.T) {
	r := newTestRegistry(t)
	created := time.Date(2020, 3, 4, 5, 6, 7, 8, time.UTC)

	tests := []struct {
		msg  string
		give interface{}
	}{
		{msg: "nil", give: nil},
		{msg: "bool", give: true},
		{msg: "string", give: "hello"},
		{msg: "empty string", give: ""},
		{msg: "int", give: -42},
		{msg: "int8", give: int8(math.MinInt8)},
		{msg: "int16", give: int16(12345)},
		{msg: "int32", give: int32(math.MaxInt32)},
		{msg: "int64", give: int64(math.MinInt64)},
		{msg: "uint", give: uint(7)},
		{msg: "uint8", give: uint8(255)},
		{msg: "uint16", give: uint16(65535)},
		{msg: "uint32", give: uint32(math.MaxUint32)},
		{msg: "uint64", give: uint64(math.MaxUint64)},
		{msg: "float32", give: float32(1.5)},
		{msg: "float64", give: math.Pi},
		{msg: "time", give: created},
		{msg: "duration", give: 90 * time.Second},
		{msg: "bytes", give: []byte{0, 1, 2, 255}},
		{msg: "string slice", give: []string{"a", "b"}},
		{msg: "nil slice", give: []string(nil)},
		{msg: "empty slice", give: []int{}},
		{msg: "array", give: [3]int{1, 2, 3}},
		{msg: "args", give: []interface{}{"x", 1, nil, []int{1}}},
		{msg: "properties", give: map[string]interface{}{
			"service.id": int64(7),
			"names":      []string{"a"},
			"nested":     map[string]interface{}{"x": true},
		}},
		{msg: "int keyed map", give: map[int]string{3: "c", 1: "a"}},
		{msg: "pointer to primitive", give: func() *int { i := 3; return &i }()},
		{msg: "struct", give: point{X: 1, Y: -1}},
		{msg: "struct pointer", give: &point{X: 2}},
		{msg: "array of structs", give: []point{{1, 2}, {3, 4}}},
		{msg: "named scalar", give: color(3)},
		{msg: "opaque", give: token{secret: "s3cr3t"}},
		{msg: "opaque pointer", give: &token{secret: "p"}},
		{msg: "status", give: rosgierrors.Newf(rosgierrors.CodeTimeout, "slow").WithName("n")},
		{msg: "remote error", give: &rosgierrors.RemoteError{TypeName: "x.Y", Message: "z"}},
		{msg: "nested structure", give: &shape{
			Name:     "triangle",
			Points:   []point{{0, 0}, {1, 0}, {0, 1}},
			Origin:   &point{X: 5},
			Tags:     map[string]interface{}{"k": "v", "n": 1},
			Color:    color(9),
			Created:  created,
			Lifetime: time.Minute,
			Data:     []byte("raw"),
			Extra:    []point{{7, 7}},
			Err:      &rosgierrors.RemoteError{TypeName: "e", Message: "m"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.give, roundTrip(t, r, tt.give))
		})
	}
}

func TestSkippedFields(t *testing.T) {
	r := newTestRegistry(t)
	got := roundTrip(t, r, &shape{Name: "x", Cache: &sync.Mutex{}, internal: 3})
	s, ok := got.(*shape)
	require.True(t, ok)
	assert.Equal(t, "x", s.Name)
	assert.Nil(t, s.Cache)
	assert.Equal(t, 0, s.internal)
}

func TestBlacklistWritesNothing(t *testing.T) {
	r := newTestRegistry(t)
	r.MustRegister("test.Blocked", struct{ A int }{})
	r.Blacklist(struct{ A int }{})

	conn, peer := net.Pipe()
	defer conn.Close()
	defer peer.Close()

	tests := []struct {
		msg  string
		give interface{}
	}{
		{msg: "chan", give: make(chan int)},
		{msg: "func", give: func() {}},
		{msg: "complex", give: complex(1, 2)},
		{msg: "uintptr", give: uintptr(1)},
		{msg: "file", give: os.Stdout},
		{msg: "conn", give: conn},
		{msg: "context", give: context.Background()},
		{msg: "mutex", give: &sync.Mutex{}},
		{msg: "chan field", give: withChan{C: make(chan int)}},
		{msg: "file field", give: withFile{F: os.Stdin}},
		{msg: "chan in args", give: []interface{}{1, make(chan int)}},
		{msg: "user blacklisted", give: struct{ A int }{A: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			var buf bytes.Buffer
			err := r.Write(&buf, tt.give)
			require.Error(t, err)
			assert.True(t, rosgierrors.IsSerialization(err), "got %v", err)
			assert.Equal(t, 0, buf.Len())
		})
	}
}

func TestUnregisteredType(t *testing.T) {
	type local struct{ A int }

	var buf bytes.Buffer
	err := NewRegistry().Write(&buf, local{A: 1})
	assert.True(t, rosgierrors.IsSerialization(err))
	assert.Equal(t, 0, buf.Len())
}

func TestReadUnknownTypeName(t *testing.T) {
	sender := newTestRegistry(t)
	var buf bytes.Buffer
	require.NoError(t, sender.Write(&buf, point{X: 1}))

	_, err := NewRegistry().Read(&buf)
	assert.True(t, rosgierrors.IsSerialization(err))
}

func TestReadTruncated(t *testing.T) {
	r := newTestRegistry(t)
	var buf bytes.Buffer
	require.NoError(t, r.Write(&buf, map[string]interface{}{"a": []string{"x", "y"}}))
	full := buf.Bytes()

	for i := 0; i < len(full); i++ {
		_, err := r.Read(bytes.NewReader(full[:i]))
		assert.Error(t, err, "prefix of %d bytes", i)
	}
}

func TestReadBadTag(t *testing.T) {
	_, err := NewRegistry().Read(bytes.NewReader([]byte{9}))
	assert.True(t, rosgierrors.IsSerialization(err))
}

type withErr struct {
	Err error
}

type withHandle struct {
	Err interface{}
}

func TestErrorField(t *testing.T) {
	r := newTestRegistry(t)
	r.MustRegister("test.WithErr", withErr{})

	var buf bytes.Buffer
	require.NoError(t, r.Write(&buf, withErr{Err: rosgierrors.Newf(rosgierrors.CodeRemote, "x")}))
	got, err := r.Read(&buf)
	require.NoError(t, err)
	assert.True(t, rosgierrors.IsRemote(got.(withErr).Err))
}

func TestErrorFieldRejectsNonErrors(t *testing.T) {
	sender := newTestRegistry(t)
	sender.MustRegister("test.WithErr", withHandle{})

	receiver := newTestRegistry(t)
	receiver.MustRegister("test.WithErr", withErr{})

	var buf bytes.Buffer
	require.NoError(t, sender.Write(&buf, withHandle{Err: handle{Addr: "a"}}))
	_, err := receiver.Read(&buf)
	assert.True(t, rosgierrors.IsSerialization(err))
}

func TestDeterministicMapEncoding(t *testing.T) {
	r := NewRegistry()
	m := map[string]interface{}{}
	for _, k := range []string{"z", "a", "m", "b", "y"} {
		m[k] = k
	}

	var first bytes.Buffer
	require.NoError(t, r.Write(&first, m))
	for i := 0; i < 10; i++ {
		var again bytes.Buffer
		require.NoError(t, r.Write(&again, m))
		assert.Equal(t, first.Bytes(), again.Bytes())
	}
}

func TestRegister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("test.Point", point{}))
	require.NoError(t, r.Register("test.Point", &point{}), "re-registering the same binding is allowed")

	assert.Error(t, r.Register("test.Point", handle{}))
	assert.Error(t, r.Register("test.Other", point{}))
	assert.Error(t, r.Register("", handle{}))
	assert.Error(t, r.Register("[]bad", handle{}))
	assert.Error(t, r.Register("test.Nil", nil))
	assert.Panics(t, func() { r.MustRegister("", handle{}) })
}

func TestRegisterBuiltin(t *testing.T) {
	type builtinSample struct{ V string }
	RegisterBuiltin("test.BuiltinSample", builtinSample{})

	for _, r := range []*Registry{Default, NewRegistry()} {
		got := roundTrip(t, r, builtinSample{V: "x"})
		assert.Equal(t, builtinSample{V: "x"}, got)
	}
	assert.Panics(t, func() { RegisterBuiltin("test.BuiltinSample", handle{}) })
}

func TestPackageLevelHelpers(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []interface{}{"a", int64(1)}))
	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a", int64(1)}, got)
}

type failingEncodable struct{}

func (failingEncodable) MarshalSmart() ([]byte, error) { return nil, errors.New("no") }
func (*failingEncodable) UnmarshalSmart([]byte) error  { return nil }

func TestEncodableFailure(t *testing.T) {
	r := NewRegistry()
	r.MustRegister("test.Failing", failingEncodable{})

	var buf bytes.Buffer
	err := r.Write(&buf, failingEncodable{})
	assert.True(t, rosgierrors.IsSerialization(err))
	assert.Equal(t, 0, buf.Len())
}

func TestLongStringPrimitive(t *testing.T) {
	long := string(bytes.Repeat([]byte("ab"), math.MaxUint16))

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, long))
	assert.Equal(t, []byte{TagPrimitive}, buf.Bytes()[:1])

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, long, got)
}

func TestTimeKeepsInstant(t *testing.T) {
	now := time.Now()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, now))
	got, err := Read(&buf)
	require.NoError(t, err)

	ts, ok := got.(time.Time)
	require.True(t, ok, "got %T", got)
	assert.True(t, now.Equal(ts), "want %v, got %v", now, ts)
	_, offset := now.Zone()
	_, gotOffset := ts.Zone()
	assert.Equal(t, offset, gotOffset)
}
