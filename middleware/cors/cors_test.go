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

//go:build !integration

package cors

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typepoint/core/dispatch"
	"github.com/typepoint/core/router"
	"github.com/typepoint/core/router/routertest"
)

func setup(opts ...Option) (dispatch.Func, *int) {
	calls := new(int)
	r := router.MustNew()
	r.Use(New(opts...), router.WithName("cors"))
	r.GET("/api", func(c *router.Context, _ router.Next) error {
		*calls++
		return c.Response().Text(http.StatusOK, "data")
	})
	r.OPTIONS("/api", func(c *router.Context, _ router.Next) error {
		*calls++
		return c.Response().SetStatus(http.StatusOK)
	})
	return dispatch.New(r), calls
}

func do(fn dispatch.Func, method, origin string, headers ...string) *routertest.Recorder {
	req := routertest.NewRequest(method, "/api", nil)
	if origin != "" {
		req = req.WithHeader("Origin", origin)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req = req.WithHeader(headers[i], headers[i+1])
	}
	rec := routertest.NewRecorder()
	fn(req, rec)
	return rec
}

func TestCORS_AllowedOrigin(t *testing.T) {
	t.Parallel()

	fn, calls := setup(WithAllowedOrigins("https://example.com"), WithExposedHeaders("X-Request-ID"))
	rec := do(fn, http.MethodGet, "https://example.com")

	assert.Equal(t, http.StatusOK, rec.Status())
	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "X-Request-ID", rec.Header().Get("Access-Control-Expose-Headers"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, 1, *calls)
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	t.Parallel()

	fn, calls := setup(WithAllowedOrigins("https://example.com"))
	rec := do(fn, http.MethodGet, "https://evil.example")

	assert.Equal(t, http.StatusOK, rec.Status())
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, 1, *calls, "the request itself still proceeds")
}

func TestCORS_NoOriginIsNotCORS(t *testing.T) {
	t.Parallel()

	fn, _ := setup(WithAllowAllOrigins(true))
	rec := do(fn, http.MethodGet, "")

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Vary"))
}

func TestCORS_PreflightShortCircuits(t *testing.T) {
	t.Parallel()

	fn, calls := setup(
		WithAllowedOrigins("https://example.com"),
		WithAllowedMethods("GET", "POST"),
		WithAllowedHeaders("Content-Type"),
		WithMaxAge(600),
	)
	rec := do(fn, http.MethodOptions, "https://example.com", "Access-Control-Request-Method", "POST")

	require.Equal(t, http.StatusNoContent, rec.Status())
	assert.Equal(t, "GET, POST", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
	assert.Zero(t, *calls, "preflight must not reach the endpoint")
}

func TestCORS_PlainOptionsReachesEndpoint(t *testing.T) {
	t.Parallel()

	fn, calls := setup(WithAllowedOrigins("https://example.com"))
	rec := do(fn, http.MethodOptions, "https://example.com")

	assert.Equal(t, http.StatusOK, rec.Status())
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, 1, *calls)
}

func TestCORS_AllowedOriginValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []Option
		want string
	}{
		{"wildcard", []Option{WithAllowAllOrigins(true)}, "*"},
		{"wildcard with credentials echoes origin", []Option{WithAllowAllOrigins(true), WithAllowCredentials(true)}, "https://a.example.com"},
		{"origin func", []Option{WithAllowOriginFunc(func(o string) bool {
			return strings.HasSuffix(o, ".example.com")
		})}, "https://a.example.com"},
		{"origin func rejects", []Option{WithAllowOriginFunc(func(string) bool { return false })}, ""},
		{"default denies", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fn, _ := setup(tt.opts...)
			rec := do(fn, http.MethodGet, "https://a.example.com")
			assert.Equal(t, tt.want, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
