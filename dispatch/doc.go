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

// Package dispatch runs the continuation-passing handler chain for one
// request and finalizes exactly one response.
//
// [New] freezes a [router.Router] and returns a [Func] that a transport
// adapter calls with its raw request/response pair:
//
//	r := router.MustNew()
//	r.GET("/hello/:name", func(c *router.Context, _ router.Next) error {
//	    return c.Response().Text(http.StatusOK, "hello "+c.Param("name"))
//	}, router.WithName("hello"))
//
//	serve := dispatch.New(r, dispatch.WithLog(logger.Sink()))
//	http.ListenAndServe(":8080", nethttp.Handler(serve))
//
// # Finalization
//
// Every dispatch ends in exactly one of these ways:
//   - a handler flushed the response, or set a status that is flushed for it
//   - nothing was flushed and no status was set: 404 Not Found
//   - a handler returned an error or panicked before the flush: the error
//     formatter builds the response, by default 500 with the error message
//   - a handler failed after the flush: the fault is logged and swallowed
//   - the Context could not be built: 500 is sent on the raw response and
//     no handler runs
//
// The raw response is closed exactly once on every path.
//
// # Known limitation
//
// A handler that never calls next and never flushes blocks its request
// forever. Timeouts belong to the embedding layer, such as http.Server
// timeouts or the deadlines set by the conn adapter.
package dispatch
