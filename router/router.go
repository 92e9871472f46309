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
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/typepoint/core/pattern"
)

// Option defines functional options for router configuration.
type Option func(*Router)

// Router is the ordered, append-only registry of middlewares and endpoint
// handlers.
//
// The effective dispatch order for any request is all middlewares followed
// by all endpoint handlers, each group in registration order.
//
// Registration is meant to happen once at startup. [Router.Freeze] (called
// by the dispatcher) builds an immutable snapshot; after that, registration
// fails with [ErrRouterFrozen] and the snapshot is shared by all concurrent
// dispatches without locking.
type Router struct {
	mu          sync.Mutex // Protects middlewares and handlers during registration
	middlewares []*Route
	handlers    []*Route

	frozen   atomic.Bool
	snapshot []*Route // Middlewares then handlers; immutable once frozen

	diagnostics DiagnosticHandler
}

// New creates an empty router.
func New(opts ...Option) (*Router, error) {
	r := &Router{}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// MustNew creates a new Router and panics if configuration is invalid.
func MustNew(opts ...Option) *Router {
	r, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("router.MustNew: %v", err))
	}
	return r
}

// WithDiagnostics sets a diagnostic handler for registration events.
func WithDiagnostics(handler DiagnosticHandler) Option {
	return func(r *Router) {
		r.diagnostics = handler
	}
}

// emit sends a diagnostic event if a handler is configured.
func (r *Router) emit(kind DiagnosticKind, message string, fields map[string]any) {
	if r.diagnostics != nil {
		r.diagnostics.OnDiagnostic(DiagnosticEvent{
			Kind:    kind,
			Message: message,
			Fields:  fields,
		})
	}
}

// RegisterMiddleware appends a middleware for the given method and path
// pattern. Use MethodAny and "/*" to run it for every request.
func (r *Router) RegisterMiddleware(method Method, path string, fn HandlerFunc, opts ...RouteOption) (*Route, error) {
	return r.register(KindMiddleware, method, path, fn, opts)
}

// RegisterHandler appends an endpoint handler for the given method and path
// pattern.
func (r *Router) RegisterHandler(method Method, path string, fn HandlerFunc, opts ...RouteOption) (*Route, error) {
	return r.register(KindEndpoint, method, path, fn, opts)
}

func (r *Router) register(kind Kind, method Method, path string, fn HandlerFunc, opts []RouteOption) (*Route, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}

	m, ok := CleanseMethod(string(method))
	if !ok && m != MethodAny {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}

	p, err := pattern.Compile(path)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen.Load() {
		return nil, fmt.Errorf("%w: cannot register %s %s", ErrRouterFrozen, m, path)
	}

	group := &r.handlers
	if kind == KindMiddleware {
		group = &r.middlewares
	}

	rt := &Route{
		method:  m,
		pattern: p,
		kind:    kind,
		action:  fn,
		index:   len(*group),
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.name == "" {
		rt.name = defaultName(rt)
	}

	for _, existing := range *group {
		if existing.method == rt.method && existing.Path() == rt.Path() {
			r.emit(DiagDuplicateRoute, "route registered more than once", map[string]any{
				"kind":   kind.String(),
				"method": string(rt.method),
				"path":   path,
				"name":   rt.name,
			})
			break
		}
	}

	*group = append(*group, rt)

	r.emit(DiagRouteRegistered, "route registered", map[string]any{
		"kind":   kind.String(),
		"method": string(rt.method),
		"path":   path,
		"name":   rt.name,
	})

	return rt, nil
}

func defaultName(rt *Route) string {
	if rt.kind == KindMiddleware && rt.method == MethodAny && rt.Path() == pattern.Any.String() {
		return fmt.Sprintf("middleware#%d", rt.index)
	}
	return string(rt.method) + " " + rt.Path()
}

// mustRoute panics on registration errors. Used by the shorthand methods,
// where an invalid pattern is a programming error caught at startup.
func mustRoute(rt *Route, err error) *Route {
	if err != nil {
		panic("router: " + err.Error())
	}
	return rt
}

// Use appends a middleware that runs for every method and path.
// Middlewares execute in the order they are added, before any endpoint handler.
//
// Example:
//
//	r.Use(requestid.New(), router.WithName("requestid"))
func (r *Router) Use(fn HandlerFunc, opts ...RouteOption) *Route {
	return mustRoute(r.RegisterMiddleware(MethodAny, pattern.Any.String(), fn, opts...))
}

// UseAt appends a middleware scoped to a method and path pattern.
func (r *Router) UseAt(method Method, path string, fn HandlerFunc, opts ...RouteOption) *Route {
	return mustRoute(r.RegisterMiddleware(method, path, fn, opts...))
}

// Handle appends an endpoint handler and panics if the registration is invalid.
func (r *Router) Handle(method Method, path string, fn HandlerFunc, opts ...RouteOption) *Route {
	return mustRoute(r.RegisterHandler(method, path, fn, opts...))
}

// GET registers an endpoint handler for GET requests.
func (r *Router) GET(path string, fn HandlerFunc, opts ...RouteOption) *Route {
	return r.Handle(MethodGet, path, fn, opts...)
}

// HEAD registers an endpoint handler for HEAD requests.
func (r *Router) HEAD(path string, fn HandlerFunc, opts ...RouteOption) *Route {
	return r.Handle(MethodHead, path, fn, opts...)
}

// POST registers an endpoint handler for POST requests.
func (r *Router) POST(path string, fn HandlerFunc, opts ...RouteOption) *Route {
	return r.Handle(MethodPost, path, fn, opts...)
}

// PUT registers an endpoint handler for PUT requests.
func (r *Router) PUT(path string, fn HandlerFunc, opts ...RouteOption) *Route {
	return r.Handle(MethodPut, path, fn, opts...)
}

// PATCH registers an endpoint handler for PATCH requests.
func (r *Router) PATCH(path string, fn HandlerFunc, opts ...RouteOption) *Route {
	return r.Handle(MethodPatch, path, fn, opts...)
}

// DELETE registers an endpoint handler for DELETE requests.
func (r *Router) DELETE(path string, fn HandlerFunc, opts ...RouteOption) *Route {
	return r.Handle(MethodDelete, path, fn, opts...)
}

// OPTIONS registers an endpoint handler for OPTIONS requests.
func (r *Router) OPTIONS(path string, fn HandlerFunc, opts ...RouteOption) *Route {
	return r.Handle(MethodOptions, path, fn, opts...)
}

// Any registers an endpoint handler for every method.
func (r *Router) Any(path string, fn HandlerFunc, opts ...RouteOption) *Route {
	return r.Handle(MethodAny, path, fn, opts...)
}

// Middlewares returns the registered middlewares in registration order.
// The returned slice is a copy.
func (r *Router) Middlewares() []*Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.middlewares)
}

// Handlers returns the registered endpoint handlers in registration order.
// The returned slice is a copy.
func (r *Router) Handlers() []*Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.handlers)
}

// Routes returns the effective dispatch order: middlewares first, then
// endpoint handlers. Once the router is frozen this is the shared snapshot
// and must not be modified.
func (r *Router) Routes() []*Route {
	if r.frozen.Load() {
		return r.snapshot
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return concatRoutes(r.middlewares, r.handlers)
}

func concatRoutes(middlewares, handlers []*Route) []*Route {
	all := make([]*Route, 0, len(middlewares)+len(handlers))
	all = append(all, middlewares...)
	all = append(all, handlers...)
	return all
}

// Freeze makes the router immutable and builds the dispatch snapshot.
// Calling Freeze more than once is safe.
func (r *Router) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen.Load() {
		return
	}

	r.snapshot = concatRoutes(r.middlewares, r.handlers)
	r.frozen.Store(true)

	r.emit(DiagRouterFrozen, "router frozen", map[string]any{
		"middlewares": len(r.middlewares),
		"handlers":    len(r.handlers),
	})
}

// Frozen reports whether Freeze has been called.
func (r *Router) Frozen() bool {
	return r.frozen.Load()
}

// Match returns a fresh iterator over the routes matching method and path.
func (r *Router) Match(method Method, path string) *MatchIterator {
	return NewMatchIterator(r.Routes(), method, path)
}
