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

// Package routertest provides in-memory RawRequest and RawResponse
// implementations for testing handlers and dispatchers without a transport.
//
// Example:
//
//	req := routertest.NewRequest("GET", "/users/42", nil)
//	rec := routertest.NewRecorder()
//	fn(req, rec)
//	// rec.Status() == 200, rec.Sends() == 1, rec.Closes() == 1
package routertest

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Request is an in-memory router.RawRequest.
type Request struct {
	method string
	target string
	body   io.Reader
	header http.Header
	ctx    context.Context
}

// NewRequest creates a request. A nil body is allowed.
func NewRequest(method, target string, body io.Reader) *Request {
	return &Request{
		method: method,
		target: target,
		body:   body,
		header: make(http.Header),
		ctx:    context.Background(),
	}
}

// NewStringRequest creates a request with a string body.
func NewStringRequest(method, target, body string) *Request {
	return NewRequest(method, target, strings.NewReader(body))
}

// WithHeader sets a request header and returns the request.
func (r *Request) WithHeader(key, value string) *Request {
	r.header.Set(key, value)
	return r
}

// WithContext replaces the request context and returns the request.
func (r *Request) WithContext(ctx context.Context) *Request {
	r.ctx = ctx
	return r
}

func (r *Request) Method() string           { return r.method }
func (r *Request) URL() string              { return r.target }
func (r *Request) Body() io.Reader          { return r.body }
func (r *Request) Header() http.Header      { return r.header }
func (r *Request) Context() context.Context { return r.ctx }

// Recorder is a router.RawResponse that records what was sent and how many
// times Send and Close were called. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	status int
	header http.Header
	body   bytes.Buffer
	sends  int
	closes int

	// SendErr and CloseErr, when set, are returned by Send and Close.
	SendErr  error
	CloseErr error
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{header: make(http.Header)}
}

// Send records the response.
func (r *Recorder) Send(status int, header http.Header, body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sends++
	r.status = status
	r.header = header.Clone()
	r.body.Reset()
	r.body.Write(body)
	return r.SendErr
}

// Close records the close.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closes++
	return r.CloseErr
}

// Status returns the status of the last Send, or 0.
func (r *Recorder) Status() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Header returns the headers of the last Send.
func (r *Recorder) Header() http.Header {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.header.Clone()
}

// Body returns the body of the last Send as a string.
func (r *Recorder) Body() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.body.String()
}

// Sends returns how many times Send was called.
func (r *Recorder) Sends() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sends
}

// Closes returns how many times Close was called.
func (r *Recorder) Closes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closes
}
