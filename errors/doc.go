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

// Package errors turns handler faults into error responses.
//
// A Formatter maps an error to the status, content type, headers and body
// of the response the dispatcher sends when a handler fails before anything
// was flushed. Three formatters are provided:
//   - Plain: the fault message as text/plain (the dispatcher default)
//   - Simple: a small JSON object (application/json)
//   - RFC9457: RFC 9457 Problem Details (application/problem+json)
//
// Errors control their own presentation by implementing optional
// interfaces:
//
//   - ErrorType: declare the HTTP status code
//   - ErrorDetails: provide structured details (e.g. field-level validation errors)
//   - ErrorCode: provide a machine-readable error code
//
// Without ErrorType, every formatter answers 500. [WithStatus] attaches a
// status to an existing error:
//
//	r.POST("/items", func(c *router.Context, next router.Next) error {
//		if c.Header().Get("Content-Type") != "application/json" {
//			return errors.WithStatus(errUnsupported, http.StatusUnsupportedMediaType)
//		}
//		...
//	})
//
// Wire a formatter into the dispatcher:
//
//	fn := dispatch.New(r, dispatch.WithErrorFormatter(errors.NewRFC9457("https://api.example.com/problems")))
package errors
