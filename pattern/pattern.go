// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pattern

import (
	"fmt"
	"strings"
)

// segmentKind identifies how a pattern segment is matched.
type segmentKind uint8

const (
	kindLiteral segmentKind = iota
	kindParam
	kindCatchAll
)

// segment is one slash-separated element of a compiled pattern.
// For literals, value is the literal text; otherwise it is the parameter name.
type segment struct {
	kind  segmentKind
	value string
}

// Params maps parameter names to the raw request segment they matched.
type Params map[string]string

// Get returns the value bound to name, or "" if the parameter is absent.
func (p Params) Get(name string) string {
	return p[name]
}

// Pattern is a compiled route pattern. It is immutable and safe for
// concurrent use.
type Pattern struct {
	raw         string
	segments    []segment
	names       []string
	hasCatchAll bool
}

// Any matches every request path.
var Any = MustCompile("/*")

// Compile parses path into a Pattern.
//
// Errors:
//   - [ErrInvalidPattern] if path does not start with '/'
//   - [ErrEmptyParamName] for a bare ':' segment
//   - [ErrDuplicateParam] if a parameter name is used twice
//   - [ErrCatchAllNotLast] if a '*' segment is followed by more segments
func Compile(path string) (*Pattern, error) {
	if path == "" || path[0] != '/' {
		return nil, fmt.Errorf("pattern %q: %w", path, ErrInvalidPattern)
	}

	parts := split(Normalize(path))
	p := &Pattern{
		raw:      path,
		segments: make([]segment, 0, len(parts)),
	}

	seen := make(map[string]struct{}, len(parts))
	bind := func(name string) error {
		if _, dup := seen[name]; dup {
			return fmt.Errorf("pattern %q: %w: %s", path, ErrDuplicateParam, name)
		}
		seen[name] = struct{}{}
		p.names = append(p.names, name)
		return nil
	}

	for i, part := range parts {
		switch {
		case strings.HasPrefix(part, ":"):
			name := part[1:]
			if name == "" {
				return nil, fmt.Errorf("pattern %q: %w", path, ErrEmptyParamName)
			}
			if err := bind(name); err != nil {
				return nil, err
			}
			p.segments = append(p.segments, segment{kind: kindParam, value: name})

		case strings.HasPrefix(part, "*"):
			if i != len(parts)-1 {
				return nil, fmt.Errorf("pattern %q: %w", path, ErrCatchAllNotLast)
			}
			name := part[1:]
			if name != "" {
				if err := bind(name); err != nil {
					return nil, err
				}
			}
			p.segments = append(p.segments, segment{kind: kindCatchAll, value: name})
			p.hasCatchAll = true

		default:
			p.segments = append(p.segments, segment{kind: kindLiteral, value: part})
		}
	}

	return p, nil
}

// MustCompile is like [Compile] but panics if the pattern is invalid.
func MustCompile(path string) *Pattern {
	p, err := Compile(path)
	if err != nil {
		panic("pattern.MustCompile: " + err.Error())
	}
	return p
}

// Match reports whether requestPath matches the pattern and returns the
// extracted parameters. The returned Params is never nil on a match.
func (p *Pattern) Match(requestPath string) (Params, bool) {
	parts := split(Normalize(requestPath))

	fixed := len(p.segments)
	if p.hasCatchAll {
		fixed--
		if len(parts) < fixed {
			return nil, false
		}
	} else if len(parts) != fixed {
		return nil, false
	}

	// Literals are checked before anything is allocated so that the common
	// no-match case stays cheap.
	for i := range fixed {
		if seg := p.segments[i]; seg.kind == kindLiteral && seg.value != parts[i] {
			return nil, false
		}
	}

	params := make(Params, len(p.names))
	for i, seg := range p.segments {
		switch seg.kind {
		case kindParam:
			params[seg.value] = parts[i]
		case kindCatchAll:
			if seg.value != "" {
				params[seg.value] = strings.Join(parts[i:], "/")
			}
		}
	}

	return params, true
}

// String returns the pattern as it was registered.
func (p *Pattern) String() string {
	return p.raw
}

// ParamNames returns the parameter names in declaration order.
func (p *Pattern) ParamNames() []string {
	return append([]string(nil), p.names...)
}

// HasCatchAll reports whether the pattern ends with a catch-all segment.
func (p *Pattern) HasCatchAll() bool {
	return p.hasCatchAll
}

// IsStatic reports whether the pattern consists only of literal segments.
func (p *Pattern) IsStatic() bool {
	return len(p.names) == 0 && !p.hasCatchAll
}

// Match compiles pattern and matches it against requestPath.
// An invalid pattern never matches.
func Match(pattern, requestPath string) (Params, bool) {
	p, err := Compile(pattern)
	if err != nil {
		return nil, false
	}
	return p.Match(requestPath)
}

// Normalize collapses the empty path to "/" and strips a single trailing
// slash from any other path.
func Normalize(path string) string {
	switch {
	case path == "":
		return "/"
	case len(path) > 1 && path[len(path)-1] == '/':
		return path[:len(path)-1]
	default:
		return path
	}
}

// split breaks a normalized path into its segments. The root path has none.
func split(path string) []string {
	if path == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(path, "/"), "/")
}
