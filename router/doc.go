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

// Package router holds the registration side of request dispatch: the
// ordered registry of middlewares and endpoint handlers, the per-request
// match iterator, and the Context/Response pair that handlers operate on.
//
// # Registration
//
// Routes are registered at startup and frozen before serving. Registration
// order is significant: it is the priority order of the dispatch chain.
// Middlewares always precede endpoint handlers, and within each group the
// earliest registration runs first. Duplicates are legal and are tried in
// order.
//
//	r := router.MustNew()
//	r.Use(func(c *router.Context, next router.Next) error {
//	    c.Set("start", time.Now())
//	    return next()
//	}, router.WithName("timing"))
//
//	r.GET("/users/:id", func(c *router.Context, next router.Next) error {
//	    return c.Response().JSON(http.StatusOK, map[string]string{"id": c.Param("id")})
//	}, router.WithName("users.get"))
//
// # Continuation
//
// A handler receives the shared Context and a [Next] continuation. Calling
// next runs the rest of the matching chain and returns its error. Not calling
// it ends the chain. A handler that writes a terminal response usually
// flushes and returns without calling next.
//
// # Matching
//
// [MatchIterator] walks the frozen route list with a single forward cursor.
// Each call to Next skips routes whose method or pattern do not fit the
// request and yields the next match with its extracted parameters.
// A fresh iterator is created per request.
//
// # Response
//
// [Response] buffers status, headers and body until [Response.Flush], which
// performs exactly one physical send through the transport. Once flushed,
// every mutator returns [ErrResponseFlushed].
//
// ⚠️ THREAD SAFETY: Context and Response are bound to a single request and
// must only be used by the goroutine dispatching it. The Router itself is
// read-only after Freeze and safe for concurrent use.
package router
