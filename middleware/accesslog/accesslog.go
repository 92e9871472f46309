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

// Package accesslog writes one structured log record per request.
//
// Register it first so it wraps the whole chain:
//
//	r.Use(accesslog.New(
//		accesslog.WithLogger(logger),
//		accesslog.WithExcludePaths("/healthz"),
//		accesslog.WithSlowThreshold(500*time.Millisecond),
//	), router.WithName("accesslog"))
//
// The record is written when the rest of the chain returns, before the
// dispatcher finalizes the response. When nothing was sent yet, the status
// logged is the one the dispatcher is about to send: 404 for an unhandled
// request, or the fault's status for an error. Pass the dispatcher's error
// formatter with [WithFormatter] when it resolves statuses itself.
package accesslog

import (
	"crypto/sha256"
	"encoding/binary"
	"log/slog"
	"net/http"
	"strings"
	"time"

	apierrors "github.com/typepoint/core/errors"
	"github.com/typepoint/core/logging"
	"github.com/typepoint/core/router"
)

// New creates an access log middleware. Without [WithLogger] nothing is
// logged.
func New(opts ...Option) router.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *router.Context, next router.Next) error {
		if cfg.logger == nil || cfg.excluded(c.Path()) {
			return next()
		}

		start := time.Now()
		err := next()
		duration := time.Since(start)

		res := c.Response()
		status := cfg.pendingStatus(c, err)

		isError := status >= 400
		isSlow := cfg.slowThreshold > 0 && duration >= cfg.slowThreshold
		if !isError && !isSlow {
			if cfg.logErrorsOnly || !sampleByHash(c.ID(), cfg.sampleRate) {
				return err
			}
		}

		size := res.Size()
		if !res.Flushed() {
			size = len(res.Body())
		}

		fields := []any{
			"method", c.RawMethod(),
			"path", c.Path(),
			"status", status,
			"duration_ms", duration.Milliseconds(),
			"bytes_sent", size,
			"request_id", c.ID(),
		}
		if ua := c.Header().Get("User-Agent"); ua != "" {
			fields = append(fields, "user_agent", ua)
		}
		if rt := c.Route(); rt != nil {
			fields = append(fields, "route", rt.Path(), "handler", rt.Name())
		}
		if isSlow {
			fields = append(fields, "slow", true)
		}
		if err != nil {
			fields = append(fields, "error", err.Error())
		}

		logger := logging.WithTrace(c.Context(), cfg.logger)
		switch {
		case status >= 500:
			logger.Error("access", fields...)
		case status >= 400, isSlow:
			logger.Warn("access", fields...)
		default:
			logger.Info("access", fields...)
		}

		return err
	}
}

// pendingStatus predicts the status of a response not flushed yet.
func (cfg *config) pendingStatus(c *router.Context, err error) int {
	res := c.Response()
	switch {
	case res.Flushed():
		return res.Status()
	case err != nil:
		return cfg.faultStatus(c, err)
	case !res.HasStatus():
		return http.StatusNotFound
	default:
		return res.Status()
	}
}

// faultStatus resolves the status the dispatcher will answer err with.
func (cfg *config) faultStatus(c *router.Context, err error) (status int) {
	if cfg.formatter == nil {
		return apierrors.StatusOf(err)
	}
	defer func() {
		if recover() != nil {
			status = http.StatusInternalServerError
		}
	}()
	status = cfg.formatter.Format(c, err).Status
	if status < 100 || status > 999 {
		return http.StatusInternalServerError
	}
	return status
}

// sampleByHash makes the same decision for an ID on every replica.
func sampleByHash(id string, rate float64) bool {
	if rate >= 1 || id == "" {
		return true
	}
	if rate <= 0 {
		return false
	}

	h := sha256.Sum256([]byte(id))
	return binary.BigEndian.Uint64(h[:8]) <= uint64(rate*float64(^uint64(0)))
}

// Option defines functional options for the access log middleware.
type Option func(*config)

type config struct {
	logger          *slog.Logger
	excludePaths    map[string]bool
	excludePrefixes []string
	sampleRate      float64
	logErrorsOnly   bool
	slowThreshold   time.Duration
	formatter       apierrors.Formatter
}

func defaultConfig() *config {
	return &config{
		excludePaths: make(map[string]bool),
		sampleRate:   1.0,
	}
}

func (cfg *config) excluded(path string) bool {
	if cfg.excludePaths[path] {
		return true
	}
	for _, prefix := range cfg.excludePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// WithLogger sets the logger records are written to.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithExcludePaths skips logging for exact path matches.
func WithExcludePaths(paths ...string) Option {
	return func(cfg *config) {
		for _, path := range paths {
			cfg.excludePaths[path] = true
		}
	}
}

// WithExcludePrefixes skips logging for paths with the given prefixes.
func WithExcludePrefixes(prefixes ...string) Option {
	return func(cfg *config) {
		cfg.excludePrefixes = append(cfg.excludePrefixes, prefixes...)
	}
}

// WithSampleRate logs the given fraction of successful requests, chosen by
// a hash of the request ID. Errors and slow requests are always logged.
func WithSampleRate(rate float64) Option {
	return func(cfg *config) {
		cfg.sampleRate = max(0.0, min(rate, 1.0))
	}
}

// WithErrorsOnly only logs requests answered with status >= 400, plus slow
// requests.
func WithErrorsOnly() Option {
	return func(cfg *config) {
		cfg.logErrorsOnly = true
	}
}

// WithSlowThreshold always logs requests slower than threshold, at warn
// level, with slow=true.
func WithSlowThreshold(threshold time.Duration) Option {
	return func(cfg *config) {
		cfg.slowThreshold = threshold
	}
}

// WithFormatter resolves fault statuses with formatter instead of
// [apierrors.StatusOf]. Use the formatter given to the dispatcher.
func WithFormatter(formatter apierrors.Formatter) Option {
	return func(cfg *config) {
		cfg.formatter = formatter
	}
}
