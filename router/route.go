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
	"github.com/typepoint/core/pattern"
)

// Next continues the dispatch chain with the next matching route and
// returns the error of the remaining chain.
type Next func() error

// HandlerFunc is the action of a registered middleware or endpoint handler.
//
// The handler decides whether the chain continues by calling next. Returning
// a non-nil error is a handler fault: the dispatcher turns it into an error
// response if nothing was flushed yet.
type HandlerFunc func(c *Context, next Next) error

// Kind distinguishes middlewares from endpoint handlers.
type Kind uint8

const (
	KindMiddleware Kind = iota
	KindEndpoint
)

func (k Kind) String() string {
	if k == KindMiddleware {
		return "middleware"
	}
	return "endpoint"
}

// Route is a registered middleware or endpoint handler.
// Routes are owned by the Router and never mutated after registration.
type Route struct {
	method  Method
	pattern *pattern.Pattern
	kind    Kind
	name    string
	action  HandlerFunc
	index   int // Position within its group, for diagnostics
}

// Method returns the method the route was registered for (possibly MethodAny).
func (rt *Route) Method() Method { return rt.method }

// Pattern returns the compiled path pattern.
func (rt *Route) Pattern() *pattern.Pattern { return rt.pattern }

// Path returns the pattern as registered, e.g. "/users/:id".
func (rt *Route) Path() string { return rt.pattern.String() }

// Kind returns whether the route is a middleware or an endpoint handler.
func (rt *Route) Kind() Kind { return rt.kind }

// Name returns the diagnostic name assigned at registration.
func (rt *Route) Name() string { return rt.name }

// Action returns the handler function.
func (rt *Route) Action() HandlerFunc { return rt.action }

// RouteOption configures a route at registration.
type RouteOption func(*Route)

// WithName sets the diagnostic name of a route. Names appear in dispatch
// logs, traces and metrics. Without it, endpoints are named "<METHOD> <path>"
// and global middlewares "middleware#<n>".
func WithName(name string) RouteOption {
	return func(rt *Route) {
		rt.name = name
	}
}
