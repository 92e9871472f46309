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

package router

import "github.com/typepoint/core/pattern"

// Match is a route that accepted a request, together with the parameters
// its pattern bound from the request path.
type Match struct {
	Route  *Route
	Params pattern.Params
}

// MatchIterator lazily walks an ordered route list and yields the routes
// whose method and pattern accept a given request.
//
// The cursor only moves forward: every route is examined at most once and
// yielded at most once, in list order. A MatchIterator is owned by a single
// dispatch and is not safe for concurrent use.
type MatchIterator struct {
	routes []*Route
	method Method
	path   string
	cursor int
}

// NewMatchIterator creates an iterator over routes for the given request
// method and path. The path is normalized before matching.
func NewMatchIterator(routes []*Route, method Method, path string) *MatchIterator {
	return &MatchIterator{
		routes: routes,
		method: method,
		path:   pattern.Normalize(path),
	}
}

// Next advances to the next matching route. It returns false once the list
// is exhausted; subsequent calls keep returning false.
func (it *MatchIterator) Next() (Match, bool) {
	for it.cursor < len(it.routes) {
		rt := it.routes[it.cursor]
		it.cursor++

		if !rt.method.Accepts(it.method) {
			continue
		}
		params, ok := rt.pattern.Match(it.path)
		if !ok {
			continue
		}
		return Match{Route: rt, Params: params}, true
	}
	return Match{}, false
}

// Done reports whether every route has been examined.
func (it *MatchIterator) Done() bool {
	return it.cursor >= len(it.routes)
}

// Path returns the normalized path being matched.
func (it *MatchIterator) Path() string {
	return it.path
}
