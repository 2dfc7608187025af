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

// Package interpolate expands variable references in configuration strings.
//
// A reference is written ${NAME} or ${NAME:default}. Names start with a
// letter or an underscore and may contain letters, digits, underscores and
// single dashes between them. \$ stands for a literal dollar sign.
package interpolate

import (
	"fmt"
	"strings"
)

// VariableResolver looks up the value of a variable. The boolean reports
// whether the variable is set.
type VariableResolver func(name string) (value string, ok bool)

type segment struct {
	text       string
	variable   bool
	def        string
	hasDefault bool
}

// String is a parsed string ready to be rendered.
type String []segment

// Parse splits s into literal text and variable references.
func Parse(s string) (String, error) {
	var (
		out String
		lit strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			out = append(out, segment{text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(s); {
		switch {
		case s[i] == '\\' && i+1 < len(s) && s[i+1] == '$':
			lit.WriteByte('$')
			i += 2
		case s[i] == '$' && i+1 < len(s) && s[i+1] == '{':
			end := strings.IndexByte(s[i+2:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unterminated variable reference at offset %d in %q", i, s)
			}
			v, err := parseVariable(s[i+2 : i+2+end])
			if err != nil {
				return nil, fmt.Errorf("bad variable reference in %q: %v", s, err)
			}
			flush()
			out = append(out, v)
			i += end + 3
		default:
			lit.WriteByte(s[i])
			i++
		}
	}
	flush()
	return out, nil
}

func parseVariable(body string) (segment, error) {
	v := segment{variable: true, text: body}
	if i := strings.IndexByte(body, ':'); i >= 0 {
		v.text, v.def, v.hasDefault = body[:i], body[i+1:], true
	}
	if !validName(v.text) {
		return segment{}, fmt.Errorf("invalid variable name %q", v.text)
	}
	return v, nil
}

func validName(name string) bool {
	if name == "" || !isLetter(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		switch {
		case isLetter(c) || isDigit(c):
		case c == '-':
			if i == len(name)-1 || name[i+1] == '-' {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func isLetter(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// Render substitutes the variables of s using resolve. A variable without
// a value falls back to its default; without one Render fails.
func (s String) Render(resolve VariableResolver) (string, error) {
	var b strings.Builder
	for _, seg := range s {
		if !seg.variable {
			b.WriteString(seg.text)
			continue
		}
		if val, ok := resolve(seg.text); ok {
			b.WriteString(val)
		} else if seg.hasDefault {
			b.WriteString(seg.def)
		} else {
			return "", fmt.Errorf("variable %q does not have a value or a default", seg.text)
		}
	}
	return b.String(), nil
}

// Expand parses and renders s in one step.
func Expand(s string, resolve VariableResolver) (string, error) {
	parsed, err := Parse(s)
	if err != nil {
		return "", err
	}
	return parsed.Render(resolve)
}
