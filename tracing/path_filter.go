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

package tracing

import (
	"fmt"
	"regexp"
	"strings"
)

// pathFilter excludes requests by exact path, prefix or pattern.
type pathFilter struct {
	paths    map[string]bool
	prefixes []string
	patterns []*regexp.Regexp
}

func newPathFilter() *pathFilter {
	return &pathFilter{paths: make(map[string]bool)}
}

func (pf *pathFilter) shouldExclude(path string) bool {
	if pf.paths[path] {
		return true
	}
	for _, prefix := range pf.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	for _, pattern := range pf.patterns {
		if pattern.MatchString(path) {
			return true
		}
	}
	return false
}

// WithExcludePaths excludes exact request paths, e.g. "/healthz".
func WithExcludePaths(paths ...string) Option {
	return func(t *Tracer) {
		for _, p := range paths {
			t.pathFilter.paths[p] = true
		}
	}
}

// WithExcludePrefixes excludes paths starting with any of prefixes.
func WithExcludePrefixes(prefixes ...string) Option {
	return func(t *Tracer) {
		t.pathFilter.prefixes = append(t.pathFilter.prefixes, prefixes...)
	}
}

// WithExcludePatterns excludes paths matching any of the regular
// expressions. An invalid pattern makes New fail.
func WithExcludePatterns(patterns ...string) Option {
	return func(t *Tracer) {
		for _, pattern := range patterns {
			compiled, err := regexp.Compile(pattern)
			if err != nil {
				t.validationErrors = append(t.validationErrors,
					fmt.Errorf("invalid regex pattern for path exclusion %q: %w", pattern, err))
				continue
			}
			t.pathFilter.patterns = append(t.pathFilter.patterns, compiled)
		}
	}
}

// ShouldExcludePath reports whether requests for path get no span.
func (t *Tracer) ShouldExcludePath(path string) bool {
	return t.pathFilter.shouldExclude(path)
}
