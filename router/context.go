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
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/typepoint/core/pattern"
)

// RawRequest is the minimal view of an incoming request the dispatch core
// needs from a transport adapter.
//
// Adapters may additionally implement Context() context.Context to carry
// cancellation, and Header() http.Header to expose request headers.
type RawRequest interface {
	// Method returns the request method as received, e.g. "get" or "GET".
	Method() string
	// URL returns the request target, e.g. "/users/42?verbose=1".
	URL() string
	// Body returns the request body. It may be nil for bodiless requests.
	Body() io.Reader
}

// RawResponse is the transport side of a response.
//
// Send performs the single physical write of status, headers and body.
// Close releases the underlying connection. The dispatcher calls Send at
// most once and Close exactly once per request.
type RawResponse interface {
	Send(status int, header http.Header, body []byte) error
	Close() error
}

type contextCarrier interface {
	Context() context.Context
}

type headerCarrier interface {
	Header() http.Header
}

// Context is the per-request state shared by every handler of one dispatch.
//
// It carries an immutable request ID, the request data, the parameters bound
// by the route currently executing, and the response builder.
//
// Context is NOT thread-safe. It is owned by the goroutine running the
// dispatch and must not be retained after the request completes.
type Context struct {
	id        string
	method    Method
	rawMethod string
	url       *url.URL
	path      string

	params pattern.Params // Replaced on every match
	route  *Route

	body   io.Reader
	header http.Header
	ctx    context.Context

	values   map[string]any
	response *Response
}

// NewContext adapts a raw request/response pair into a Context.
// It fails with an error wrapping [ErrContextConstruction] when either side
// is missing, the method is empty, or the URL cannot be parsed.
func NewContext(req RawRequest, res RawResponse) (*Context, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", ErrContextConstruction)
	}
	if res == nil {
		return nil, fmt.Errorf("%w: nil response", ErrContextConstruction)
	}

	rawMethod := req.Method()
	method, _ := CleanseMethod(rawMethod)
	if method == "" {
		return nil, fmt.Errorf("%w: empty method", ErrContextConstruction)
	}

	u, err := url.ParseRequestURI(req.URL())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContextConstruction, err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("%w: request id: %w", ErrContextConstruction, err)
	}

	c := &Context{
		id:        id.String(),
		method:    method,
		rawMethod: rawMethod,
		url:       u,
		path:      pattern.Normalize(u.EscapedPath()),
		params:    pattern.Params{},
		body:      req.Body(),
		ctx:       context.Background(),
		response:  newResponse(res),
	}

	if cc, ok := req.(contextCarrier); ok {
		if ctx := cc.Context(); ctx != nil {
			c.ctx = ctx
		}
	}
	if hc, ok := req.(headerCarrier); ok {
		c.header = hc.Header()
	}
	if c.header == nil {
		c.header = make(http.Header)
	}
	if c.body == nil {
		c.body = http.NoBody
	}

	return c, nil
}

// ID returns the request identifier. It is a UUID v7 assigned when the
// context is created and never changes.
func (c *Context) ID() string { return c.id }

// Method returns the normalized request method.
func (c *Context) Method() Method { return c.method }

// RawMethod returns the request method exactly as the transport reported it.
func (c *Context) RawMethod() string { return c.rawMethod }

// URL returns the parsed request URL.
func (c *Context) URL() *url.URL { return c.url }

// Path returns the normalized request path used for matching. It keeps
// the percent-encoding of the request target, so an encoded slash stays
// inside its segment.
func (c *Context) Path() string { return c.path }

// Query returns the first value of the named query parameter.
func (c *Context) Query(key string) string { return c.url.Query().Get(key) }

// Param returns the value bound to the named path parameter by the route
// currently executing, or "" if it is not bound.
func (c *Context) Param(name string) string { return c.params.Get(name) }

// Params returns the parameters bound by the route currently executing.
func (c *Context) Params() pattern.Params { return c.params }

// Route returns the route currently executing, or nil before the first match.
func (c *Context) Route() *Route { return c.route }

// Bind installs the route and parameters of a match. The dispatcher calls it
// before invoking each matched route, replacing the previous parameters.
func (c *Context) Bind(m Match) {
	c.route = m.Route
	c.params = m.Params
	if c.params == nil {
		c.params = pattern.Params{}
	}
}

// Body returns the request body. It is never nil.
func (c *Context) Body() io.Reader { return c.body }

// Header returns the request headers. It is never nil.
func (c *Context) Header() http.Header { return c.header }

// Context returns the request's context.Context.
func (c *Context) Context() context.Context { return c.ctx }

// SetContext replaces the request's context.Context, e.g. to attach a span.
func (c *Context) SetContext(ctx context.Context) {
	if ctx != nil {
		c.ctx = ctx
	}
}

// Set stores a request-scoped value for later handlers in the chain.
func (c *Context) Set(key string, value any) {
	if c.values == nil {
		c.values = make(map[string]any)
	}
	c.values[key] = value
}

// Get returns a value stored with Set.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Response returns the response builder.
func (c *Context) Response() *Response { return c.response }
