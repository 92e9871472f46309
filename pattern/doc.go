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

// Package pattern compiles route path patterns and matches them against
// request paths.
//
// A pattern is a slash-separated sequence of segments. Each segment is one of:
//   - a literal, matched exactly and case-sensitively ("users")
//   - a named parameter, matching any single segment (":id")
//   - a trailing catch-all, matching zero or more remaining segments ("*" or "*rest")
//
// Matching is strictly positional. A pattern without a catch-all only matches
// request paths with the same number of segments, so no backtracking is needed.
//
// # Usage
//
//	p := pattern.MustCompile("/users/:id")
//	params, ok := p.Match("/users/42")
//	// ok == true, params.Get("id") == "42"
//
// Parameter values are the raw text of the request segment. Percent-encoded
// sequences are not decoded.
//
// # Normalization
//
// Both patterns and request paths go through [Normalize] before they are split:
// the empty path becomes "/", and a single trailing slash is removed
// ("/users/" and "/users" are equivalent).
package pattern
