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

// Package conn serves a dispatch.Func directly on raw connections: one
// HTTP/1.1 request per connection, answered with "Connection: close".
//
// It exists for embedding the dispatch core without net/http's server,
// for example behind a custom listener:
//
//	ln, _ := net.Listen("tcp", ":8080")
//	err := conn.Serve(ctx, ln, dispatch.New(r), conn.WithLogger(logger))
package conn

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/typepoint/core/dispatch"
	"github.com/typepoint/core/logging"
)

const acceptBackoff = 10 * time.Millisecond

// ErrClosed is returned by Send after the connection was closed.
var ErrClosed = errors.New("conn: connection closed")

// Option configures connection serving.
type Option func(*options)

type options struct {
	readTimeout  time.Duration
	writeTimeout time.Duration
	logger       *slog.Logger
}

func defaultOptions() *options {
	return &options{
		readTimeout:  10 * time.Second,
		writeTimeout: 10 * time.Second,
		logger:       logging.Discard(),
	}
}

// WithReadTimeout bounds reading the request head and body. Zero disables it.
func WithReadTimeout(d time.Duration) Option {
	return func(o *options) { o.readTimeout = d }
}

// WithWriteTimeout bounds the whole request after the head was read,
// including handler execution. Zero disables it.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) { o.writeTimeout = d }
}

// WithLogger sets the logger for connection-level errors.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// request is the router.RawRequest view of a parsed request.
type request struct {
	r *http.Request
}

func (q *request) Method() string           { return q.r.Method }
func (q *request) URL() string              { return q.r.RequestURI }
func (q *request) Body() io.Reader          { return q.r.Body }
func (q *request) Header() http.Header      { return q.r.Header }
func (q *request) Context() context.Context { return q.r.Context() }

// response writes one HTTP/1.1 response and closes the connection once.
type response struct {
	c         net.Conn
	head      bool
	mu        sync.Mutex
	sent      bool
	closeOnce sync.Once
	closeErr  error
	closed    bool
}

func (s *response) Send(status int, header http.Header, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.sent {
		return errors.New("conn: response already sent")
	}
	s.sent = true

	header = header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	header.Set("Connection", "close")
	header.Set("Content-Length", strconv.Itoa(len(body)))

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "HTTP/1.1 %03d %s\r\n", status, statusText(status))
	if err := header.Write(&buf); err != nil {
		return err
	}
	buf.WriteString("\r\n")
	if !s.head && bodyAllowed(status) {
		buf.Write(body)
	}

	_, err := s.c.Write(buf.Bytes())
	return err
}

func (s *response) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.closeErr = s.c.Close()
	})
	return s.closeErr
}

func statusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return "status code " + strconv.Itoa(code)
}

func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status <= 199:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}

// ServeConn reads one request from c, dispatches it and closes c.
// A malformed request is answered with 400 without dispatching.
func ServeConn(ctx context.Context, c net.Conn, fn dispatch.Func, opts ...Option) error {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return serveConn(ctx, c, fn, o)
}

func serveConn(ctx context.Context, c net.Conn, fn dispatch.Func, o *options) error {
	res := &response{c: c}
	defer func() { _ = res.Close() }()

	if o.readTimeout > 0 {
		_ = c.SetReadDeadline(time.Now().Add(o.readTimeout))
	}

	req, err := http.ReadRequest(bufio.NewReader(c))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		_ = res.Send(http.StatusBadRequest, nil, []byte(http.StatusText(http.StatusBadRequest)))
		return fmt.Errorf("read request: %w", err)
	}

	if o.writeTimeout > 0 {
		_ = c.SetWriteDeadline(time.Now().Add(o.writeTimeout))
	}

	res.head = req.Method == http.MethodHead
	fn(&request{r: req.WithContext(ctx)}, res)
	return nil
}

// Serve accepts connections on ln and serves each one on its own
// goroutine until ctx is done. It closes ln, waits for in-flight
// connections and returns nil after a cancellation.
func Serve(ctx context.Context, ln net.Listener, fn dispatch.Func, opts ...Option) error {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			o.logger.Warn("accept failed", "error", err)
			time.Sleep(acceptBackoff)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := serveConn(ctx, c, fn, o); err != nil {
				o.logger.Debug("connection error", "remote", c.RemoteAddr().String(), "error", err)
			}
		}()
	}
}
