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

import (
	"net/http"
	"strings"
)

// Method is an HTTP request method in canonical upper-case form.
type Method string

// Supported methods. MethodAny is only valid at registration and matches
// every request method, including ones outside the enumeration.
const (
	MethodGet     Method = http.MethodGet
	MethodHead    Method = http.MethodHead
	MethodPost    Method = http.MethodPost
	MethodPut     Method = http.MethodPut
	MethodPatch   Method = http.MethodPatch
	MethodDelete  Method = http.MethodDelete
	MethodConnect Method = http.MethodConnect
	MethodOptions Method = http.MethodOptions
	MethodTrace   Method = http.MethodTrace
	MethodAny     Method = "*"
)

var knownMethods = map[Method]struct{}{
	MethodGet:     {},
	MethodHead:    {},
	MethodPost:    {},
	MethodPut:     {},
	MethodPatch:   {},
	MethodDelete:  {},
	MethodConnect: {},
	MethodOptions: {},
	MethodTrace:   {},
}

// CleanseMethod normalizes a raw method string to its canonical form.
// The boolean reports whether the result is one of the supported methods.
// Unsupported methods are still returned upper-cased; they only ever match
// routes registered with MethodAny.
func CleanseMethod(raw string) (Method, bool) {
	m := Method(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := knownMethods[m]
	return m, ok
}

// Accepts reports whether a route registered with m handles a request made
// with method req.
func (m Method) Accepts(req Method) bool {
	return m == MethodAny || m == req
}

// String returns the method name.
func (m Method) String() string {
	return string(m)
}
