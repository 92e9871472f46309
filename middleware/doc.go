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

// Package middleware groups the continuation-style middlewares shipped with
// the dispatcher. Each lives in its own sub-package:
//
//   - accesslog: one structured log record per request
//   - compression: Brotli and gzip encoding of buffered bodies
//   - cors: preflight answers and Access-Control-* headers
//   - recovery: application-defined responses for panics
//   - requestid: request ID response header and client supplied IDs
//
// A middleware is a router.HandlerFunc registered with Router.Use. It
// runs code before and after the rest of the chain by calling next:
//
//	r := router.MustNew()
//	r.Use(requestid.New(), router.WithName("requestid"))
//	r.Use(accesslog.New(accesslog.WithLogger(logger)), router.WithName("accesslog"))
//	r.Use(recovery.New(), router.WithName("recovery"))
//	r.Use(compression.New(), router.WithName("compression"))
//
// Returning without calling next ends the chain; the dispatcher then flushes
// whatever the response holds.
package middleware
