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

// Package requestid exposes the request ID on responses and lets clients
// supply their own for correlation across services.
package requestid

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/typepoint/core/router"
)

type contextKey struct{}

// valueKey is the [router.Context] value key holding the request ID.
const valueKey = "requestid"

// Option defines functional options for requestid middleware configuration.
type Option func(*config)

type config struct {
	headerName    string
	generator     func() string // nil means the dispatcher's UUID v7
	allowClientID bool
}

func defaultConfig() *config {
	return &config{
		headerName:    "X-Request-ID",
		allowClientID: true,
	}
}

// ulidEntropy provides monotonic ordering within the same millisecond.
var (
	ulidEntropy     = ulid.Monotonic(rand.Reader, 0)
	ulidEntropyLock sync.Mutex
)

func generateULID() string {
	ulidEntropyLock.Lock()
	defer ulidEntropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy).String()
}

// WithHeader sets the header carrying the request ID. Default: X-Request-ID.
func WithHeader(headerName string) Option {
	return func(cfg *config) {
		cfg.headerName = headerName
	}
}

// WithULID generates 26 character ULIDs instead of reusing the UUID v7
// assigned by the dispatcher.
func WithULID() Option {
	return func(cfg *config) {
		cfg.generator = generateULID
	}
}

// WithGenerator sets a custom ID generator.
func WithGenerator(generator func() string) Option {
	return func(cfg *config) {
		cfg.generator = generator
	}
}

// WithAllowClientID controls whether an ID sent by the client is kept.
// Default: true.
func WithAllowClientID(allow bool) Option {
	return func(cfg *config) {
		cfg.allowClientID = allow
	}
}

// New returns a middleware that sets the request ID response header and
// stores the ID for downstream handlers.
//
//	r := router.MustNew()
//	r.Use(requestid.New(), router.WithName("requestid"))
//
// Without a generator option the ID is [router.Context.ID], so logs written
// by the dispatcher and by handlers agree.
func New(opts ...Option) router.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *router.Context, next router.Next) error {
		var id string
		if cfg.allowClientID {
			id = c.Header().Get(cfg.headerName)
		}
		if id == "" {
			if cfg.generator != nil {
				id = cfg.generator()
			} else {
				id = c.ID()
			}
		}

		if err := c.Response().SetHeader(cfg.headerName, id); err != nil {
			return err
		}
		c.Set(valueKey, id)
		c.SetContext(context.WithValue(c.Context(), contextKey{}, id))

		return next()
	}
}

// Get returns the request ID chosen by the middleware, or the dispatcher's
// ID when the middleware did not run.
func Get(c *router.Context) string {
	if v, ok := c.Get(valueKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return c.ID()
}

// FromContext returns the request ID stored in ctx, if any.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}
