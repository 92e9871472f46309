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

// Package cors answers CORS preflight requests and sets the
// Access-Control-* headers on actual requests.
//
//	r.Use(cors.New(
//	    cors.WithAllowedOrigins("https://app.example.com"),
//	    cors.WithAllowCredentials(true),
//	), router.WithName("cors"))
//
// A preflight is answered with 204 without calling the rest of the chain.
// No origin is allowed by default.
package cors

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/typepoint/core/router"
)

// Option defines functional options for cors middleware configuration.
type Option func(*config)

type config struct {
	allowedOrigins   []string
	allowedMethods   []string
	allowedHeaders   []string
	exposedHeaders   []string
	allowCredentials bool
	maxAge           int // Seconds
	allowAllOrigins  bool
	allowOriginFunc  func(origin string) bool
}

func defaultConfig() *config {
	return &config{
		allowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		allowedHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		maxAge:         3600,
	}
}

// WithAllowedOrigins allows the exact origins given.
func WithAllowedOrigins(origins ...string) Option {
	return func(cfg *config) {
		cfg.allowedOrigins = append(cfg.allowedOrigins, origins...)
	}
}

// WithAllowAllOrigins answers every origin with "*". With credentials the
// request origin is echoed instead.
func WithAllowAllOrigins(allow bool) Option {
	return func(cfg *config) {
		cfg.allowAllOrigins = allow
	}
}

// WithAllowOriginFunc validates origins dynamically. It replaces the
// allowed origin list.
func WithAllowOriginFunc(fn func(origin string) bool) Option {
	return func(cfg *config) {
		cfg.allowOriginFunc = fn
	}
}

// WithAllowedMethods sets the methods advertised on preflight.
func WithAllowedMethods(methods ...string) Option {
	return func(cfg *config) {
		cfg.allowedMethods = methods
	}
}

// WithAllowedHeaders sets the request headers advertised on preflight.
func WithAllowedHeaders(headers ...string) Option {
	return func(cfg *config) {
		cfg.allowedHeaders = headers
	}
}

// WithExposedHeaders sets Access-Control-Expose-Headers.
func WithExposedHeaders(headers ...string) Option {
	return func(cfg *config) {
		cfg.exposedHeaders = headers
	}
}

// WithAllowCredentials sets Access-Control-Allow-Credentials.
func WithAllowCredentials(allow bool) Option {
	return func(cfg *config) {
		cfg.allowCredentials = allow
	}
}

// WithMaxAge sets how long, in seconds, preflight results may be cached.
func WithMaxAge(seconds int) Option {
	return func(cfg *config) {
		cfg.maxAge = seconds
	}
}

// New returns the CORS middleware.
func New(opts ...Option) router.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	allowedMethodsHeader := strings.Join(cfg.allowedMethods, ", ")
	allowedHeadersHeader := strings.Join(cfg.allowedHeaders, ", ")
	exposedHeadersHeader := strings.Join(cfg.exposedHeaders, ", ")
	maxAgeHeader := strconv.Itoa(cfg.maxAge)

	return func(c *router.Context, next router.Next) error {
		origin := c.Header().Get("Origin")
		if origin == "" {
			return next()
		}

		res := c.Response()
		if err := res.AddHeader("Vary", "Origin"); err != nil {
			return err
		}

		allowed := cfg.allowedOrigin(origin)
		if allowed == "" {
			return next()
		}

		headers := map[string]string{"Access-Control-Allow-Origin": allowed}
		if cfg.allowCredentials {
			headers["Access-Control-Allow-Credentials"] = "true"
		}
		if exposedHeadersHeader != "" {
			headers["Access-Control-Expose-Headers"] = exposedHeadersHeader
		}

		preflight := c.Method() == router.MethodOptions && c.Header().Get("Access-Control-Request-Method") != ""
		if preflight {
			headers["Access-Control-Allow-Methods"] = allowedMethodsHeader
			headers["Access-Control-Allow-Headers"] = allowedHeadersHeader
			headers["Access-Control-Max-Age"] = maxAgeHeader
		}

		for k, v := range headers {
			if err := res.SetHeader(k, v); err != nil {
				return err
			}
		}

		if preflight {
			return res.SetStatus(http.StatusNoContent)
		}
		return next()
	}
}

// allowedOrigin returns the Access-Control-Allow-Origin value for origin,
// or "" when it is not allowed.
func (cfg *config) allowedOrigin(origin string) string {
	switch {
	case cfg.allowAllOrigins && cfg.allowCredentials:
		return origin
	case cfg.allowAllOrigins:
		return "*"
	case cfg.allowOriginFunc != nil:
		if cfg.allowOriginFunc(origin) {
			return origin
		}
		return ""
	case slices.Contains(cfg.allowedOrigins, origin):
		return origin
	default:
		return ""
	}
}
