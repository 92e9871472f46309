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

// Package compression encodes buffered response bodies with Brotli or gzip.
//
// Responses are built in memory until the dispatcher flushes them, so the
// middleware compresses the complete body once the rest of the chain
// returns:
//
//	r.Use(compression.New(
//	    compression.WithMinSize(1024),
//	    compression.WithExcludeContentTypes("image/"),
//	), router.WithName("compression"))
//
// Responses already flushed by a handler, faults, and responses without a
// status are left alone; the dispatcher writes those.
package compression

import (
	"bytes"
	"compress/gzip"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"

	"github.com/typepoint/core/router"
)

// Option defines functional options for compression middleware configuration.
type Option func(*config)

type config struct {
	logger              *slog.Logger
	gzipLevel           int
	brotliLevel         int // 4-5 suits dynamic content; higher is CPU heavy
	minSize             int
	enableGzip          bool
	enableBrotli        bool
	excludePaths        map[string]bool
	excludeContentTypes []string
}

func defaultConfig() *config {
	return &config{
		gzipLevel:    gzip.DefaultCompression,
		brotliLevel:  4,
		enableGzip:   true,
		enableBrotli: true,
		excludePaths: make(map[string]bool),
	}
}

// WithGzipLevel sets the gzip level, see compress/gzip.
func WithGzipLevel(level int) Option {
	return func(cfg *config) {
		cfg.gzipLevel = level
	}
}

// WithBrotliLevel sets the Brotli level, 0 to 11.
func WithBrotliLevel(level int) Option {
	return func(cfg *config) {
		cfg.brotliLevel = level
	}
}

// WithMinSize skips bodies smaller than size bytes.
func WithMinSize(size int) Option {
	return func(cfg *config) {
		cfg.minSize = size
	}
}

// WithGzipDisabled only offers Brotli.
func WithGzipDisabled() Option {
	return func(cfg *config) {
		cfg.enableGzip = false
	}
}

// WithBrotliDisabled only offers gzip.
func WithBrotliDisabled() Option {
	return func(cfg *config) {
		cfg.enableBrotli = false
	}
}

// WithExcludePaths never compresses the given request paths.
func WithExcludePaths(paths ...string) Option {
	return func(cfg *config) {
		for _, p := range paths {
			cfg.excludePaths[p] = true
		}
	}
}

// WithExcludeContentTypes never compresses content types containing any of
// types, e.g. "image/".
func WithExcludeContentTypes(types ...string) Option {
	return func(cfg *config) {
		for _, t := range types {
			cfg.excludeContentTypes = append(cfg.excludeContentTypes, strings.ToLower(t))
		}
	}
}

// WithLogger logs encoder failures. The uncompressed body is sent then.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// New returns a middleware negotiating Accept-Encoding with q-values and
// preferring Brotli over gzip at equal quality.
func New(opts ...Option) router.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *router.Context, next router.Next) error {
		if cfg.excludePaths[c.Path()] {
			return next()
		}
		encoding := chooseEncoding(c.Header().Get("Accept-Encoding"), cfg)
		if encoding == "" {
			return next()
		}

		if err := next(); err != nil {
			return err
		}

		res := c.Response()
		if !compressible(res, cfg) {
			return nil
		}

		body, err := encode(encoding, res.Body(), cfg)
		if err != nil {
			if cfg.logger != nil {
				cfg.logger.Error("compression failed", "encoding", encoding, "error", err)
			}
			return nil
		}
		if err := res.SetBody(body); err != nil {
			return err
		}
		if err := res.SetHeader("Content-Encoding", encoding); err != nil {
			return err
		}
		if err := res.DelHeader("Content-Length"); err != nil {
			return err
		}
		return res.AddHeader("Vary", "Accept-Encoding")
	}
}

// compressible reports whether the buffered response should be encoded.
func compressible(res *router.Response, cfg *config) bool {
	if res.Flushed() || !res.HasStatus() || shouldSkipStatus(res.Status()) {
		return false
	}
	h := res.Header()
	if h.Get("Content-Encoding") != "" {
		return false
	}
	if shouldSkipContentType(h.Get("Content-Type"), cfg.excludeContentTypes) {
		return false
	}
	n := len(res.Body())
	return n > 0 && n >= cfg.minSize
}

func encode(encoding string, body []byte, cfg *config) ([]byte, error) {
	var buf bytes.Buffer

	switch encoding {
	case "br":
		pool := getBrotliWriterPool(cfg.brotliLevel)
		w := pool.Get().(*brotli.Writer)
		defer pool.Put(w)
		w.Reset(&buf)
		if _, err := w.Write(body); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	default:
		pool := getGzipWriterPool(cfg.gzipLevel)
		w := pool.Get().(*gzip.Writer)
		defer pool.Put(w)
		w.Reset(&buf)
		if _, err := w.Write(body); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func shouldSkipStatus(code int) bool {
	return code < http.StatusOK ||
		code == http.StatusNoContent ||
		code == http.StatusNotModified ||
		code == http.StatusPartialContent
}

func shouldSkipContentType(ct string, excludes []string) bool {
	if ct == "" {
		return false
	}

	ct = strings.ToLower(ct)
	if strings.Contains(ct, "text/event-stream") ||
		strings.Contains(ct, "application/grpc") ||
		strings.Contains(ct, "application/octet-stream") {
		return true
	}
	for _, excluded := range excludes {
		if strings.Contains(ct, excluded) {
			return true
		}
	}
	return false
}

// Writer pools, one per compression level.
var (
	gzipWriterPools   = make(map[int]*sync.Pool)
	brotliWriterPools = make(map[int]*sync.Pool)
	poolsMutex        sync.RWMutex
)

func getGzipWriterPool(level int) *sync.Pool {
	return getPool(gzipWriterPools, level, func() any {
		w, err := gzip.NewWriterLevel(io.Discard, level)
		if err != nil {
			w = gzip.NewWriter(io.Discard)
		}
		return w
	})
}

func getBrotliWriterPool(level int) *sync.Pool {
	return getPool(brotliWriterPools, level, func() any {
		return brotli.NewWriterLevel(io.Discard, level)
	})
}

func getPool(pools map[int]*sync.Pool, level int, newWriter func() any) *sync.Pool {
	poolsMutex.RLock()
	pool, exists := pools[level]
	poolsMutex.RUnlock()
	if exists {
		return pool
	}

	poolsMutex.Lock()
	defer poolsMutex.Unlock()
	if pool, exists := pools[level]; exists {
		return pool
	}
	pool = &sync.Pool{New: newWriter}
	pools[level] = pool
	return pool
}

// chooseEncoding selects "br", "gzip" or "" from an Accept-Encoding value.
func chooseEncoding(acceptEncoding string, cfg *config) string {
	if acceptEncoding == "" {
		return ""
	}

	ae := strings.ToLower(acceptEncoding)
	brQ := parseQValue(ae, "br")
	gzipQ := parseQValue(ae, "gzip")

	if cfg.enableBrotli && brQ > 0 && brQ >= gzipQ {
		return "br"
	}
	if cfg.enableGzip && gzipQ > 0 {
		return "gzip"
	}
	return ""
}

// parseQValue returns -1 if encoding is absent, else its quality.
func parseQValue(accept, encoding string) float64 {
	for part := range strings.SplitSeq(accept, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if strings.TrimSpace(name) != encoding {
			continue
		}
		q := 1.0
		for param := range strings.SplitSeq(params, ";") {
			if v, ok := strings.CutPrefix(strings.TrimSpace(param), "q="); ok {
				if parsed, err := strconv.ParseFloat(v, 64); err == nil {
					q = parsed
				}
			}
		}
		return q
	}
	return -1
}
