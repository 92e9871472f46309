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

// Package recovery turns panics in downstream handlers into a response
// chosen by the application.
//
// The dispatcher already recovers panics and answers 500 through its error
// formatter. Use this middleware when a panic needs its own body, logging,
// or span annotations:
//
//	r.Use(recovery.New(
//	    recovery.WithLogger(recovery.SlogLogger(logger)),
//	), router.WithName("recovery"))
//
// A panic raised after the response was flushed cannot change the response;
// it is returned to the dispatcher as a [dispatch.PanicError] instead.
package recovery

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/typepoint/core/dispatch"
	"github.com/typepoint/core/logging"
	"github.com/typepoint/core/router"
)

// Option defines functional options for recovery middleware configuration.
type Option func(*config)

// LogFunc reports a recovered panic.
type LogFunc func(c *router.Context, v any, stack []byte)

// HandlerFunc writes the response for a recovered panic. A returned error
// becomes the handler fault.
type HandlerFunc func(c *router.Context, v any) error

type config struct {
	stackTrace bool
	stackSize  int
	logger     LogFunc
	handler    HandlerFunc
}

func defaultConfig() *config {
	return &config{
		stackTrace: true,
		stackSize:  4 << 10,
		logger:     SlogLogger(slog.Default()),
		handler:    defaultHandler,
	}
}

// SlogLogger returns a LogFunc writing to logger at error level, with the
// trace of the request attached.
func SlogLogger(logger *slog.Logger) LogFunc {
	return func(c *router.Context, v any, stack []byte) {
		args := []any{"panic", fmt.Sprint(v), "request_id", c.ID(), "path", c.Path()}
		if len(stack) > 0 {
			args = append(args, "stack", string(stack))
		}
		logging.WithTrace(c.Context(), logger).Error("panic recovered", args...)
	}
}

func defaultHandler(c *router.Context, _ any) error {
	return c.Response().JSON(http.StatusInternalServerError, map[string]any{
		"error":      "Internal server error",
		"code":       "INTERNAL_ERROR",
		"request_id": c.ID(),
	})
}

// WithStackTrace enables or disables stack capture. Default: true.
func WithStackTrace(enabled bool) Option {
	return func(cfg *config) {
		cfg.stackTrace = enabled
	}
}

// WithStackSize caps the captured stack in bytes. Default: 4KB.
func WithStackSize(size int) Option {
	return func(cfg *config) {
		cfg.stackSize = size
	}
}

// WithLogger replaces the panic logger. A nil logger disables logging.
func WithLogger(logger LogFunc) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithHandler replaces the default JSON 500 response.
func WithHandler(handler HandlerFunc) Option {
	return func(cfg *config) {
		if handler != nil {
			cfg.handler = handler
		}
	}
}

// New returns a middleware recovering panics raised by the rest of the
// chain.
func New(opts ...Option) router.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *router.Context, next router.Next) (err error) {
		defer func() {
			if v := recover(); v != nil {
				err = cfg.recovered(c, v, debug.Stack(), routeName(c))
			}
		}()

		err = next()
		var pe *dispatch.PanicError
		if errors.As(err, &pe) {
			err = cfg.recovered(c, pe.Value, pe.Stack, pe.Handler)
		}
		return err
	}
}

// recovered handles a panic raised downstream. The dispatcher hands those
// back from next as a *dispatch.PanicError; a panic in a frame it does not
// wrap arrives here through recover.
func (cfg *config) recovered(c *router.Context, v any, stack []byte, handler string) error {
	if !cfg.stackTrace {
		stack = nil
	} else if cfg.stackSize > 0 && len(stack) > cfg.stackSize {
		stack = stack[:cfg.stackSize]
	}

	markSpan(c, v)
	if cfg.logger != nil {
		cfg.logger(c, v, stack)
	}

	if c.Response().Flushed() {
		return &dispatch.PanicError{Handler: handler, Value: v, Stack: stack}
	}
	return cfg.handler(c, v)
}

// markSpan flags the request span; exception.escaped is only set here.
func markSpan(c *router.Context, v any) {
	span := trace.SpanFromContext(c.Context())
	if !span.IsRecording() {
		return
	}
	span.SetStatus(codes.Error, "panic recovered")
	span.SetAttributes(
		attribute.Bool("exception.escaped", true),
		attribute.String("exception.type", fmt.Sprintf("%T", v)),
		attribute.String("exception.message", fmt.Sprint(v)),
	)
	if err, ok := v.(error); ok {
		span.RecordError(err)
	}
}

func routeName(c *router.Context) string {
	if rt := c.Route(); rt != nil {
		return rt.Name()
	}
	return ""
}
