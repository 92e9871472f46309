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

// Package nethttp serves a dispatch.Func from net/http.
//
//	serve := dispatch.New(r)
//	srv := &http.Server{Addr: ":8080", Handler: nethttp.Handler(serve)}
package nethttp

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/typepoint/core/dispatch"
)

var (
	errAlreadySent = errors.New("nethttp: response already sent")
	errClosed      = errors.New("nethttp: response closed")
)

// Handler adapts fn to an http.Handler.
func Handler(fn dispatch.Func) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fn(&request{r: r}, &response{w: w})
	})
}

// request exposes an *http.Request as a router.RawRequest.
type request struct {
	r *http.Request
}

func (q *request) Method() string           { return q.r.Method }
func (q *request) URL() string              { return q.r.URL.RequestURI() }
func (q *request) Body() io.Reader          { return q.r.Body }
func (q *request) Header() http.Header      { return q.r.Header }
func (q *request) Context() context.Context { return q.r.Context() }

// response writes the single send to an http.ResponseWriter. Close is a
// latch only: net/http finishes the response when the handler returns.
type response struct {
	w      http.ResponseWriter
	sent   bool
	closed bool
}

func (s *response) Send(status int, header http.Header, body []byte) error {
	if s.closed {
		return errClosed
	}
	if s.sent {
		return errAlreadySent
	}
	s.sent = true

	dst := s.w.Header()
	for key, values := range header {
		dst[key] = values
	}
	s.w.WriteHeader(status)
	if len(body) == 0 {
		return nil
	}
	_, err := s.w.Write(body)
	if errors.Is(err, http.ErrBodyNotAllowed) {
		// HEAD, 204 and 304 carry no body.
		return nil
	}
	return err
}

func (s *response) Close() error {
	s.closed = true
	return nil
}
