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

package accesslog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typepoint/core/dispatch"
	apierrors "github.com/typepoint/core/errors"
	"github.com/typepoint/core/router"
	"github.com/typepoint/core/router/routertest"
)

// logBuffer is a concurrency-safe JSON log sink.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) records(t *testing.T) []map[string]any {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(b.buf.Bytes()))
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		out = append(out, rec)
	}
	return out
}

func setup(t *testing.T, opts ...Option) (dispatch.Func, *logBuffer) {
	t.Helper()

	logs := &logBuffer{}
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	r := router.MustNew()
	r.Use(New(append([]Option{WithLogger(logger)}, opts...)...), router.WithName("accesslog"))
	r.GET("/ok", func(c *router.Context, _ router.Next) error {
		return c.Response().Text(http.StatusOK, "hello")
	}, router.WithName("ok"))
	r.GET("/flushed", func(c *router.Context, _ router.Next) error {
		if err := c.Response().Text(http.StatusAccepted, "sent"); err != nil {
			return err
		}
		return c.Response().Flush()
	})
	r.GET("/teapot", func(*router.Context, router.Next) error {
		return apierrors.WithStatus(errors.New("short and stout"), http.StatusTeapot)
	})
	r.GET("/fail", func(*router.Context, router.Next) error {
		return errors.New("boom")
	})
	r.GET("/slow", func(c *router.Context, _ router.Next) error {
		time.Sleep(20 * time.Millisecond)
		return c.Response().Text(http.StatusOK, "zzz")
	})
	r.GET("/healthz", func(c *router.Context, _ router.Next) error {
		return c.Response().SetStatus(http.StatusNoContent)
	})

	return dispatch.New(r), logs
}

func get(fn dispatch.Func, target string) *routertest.Recorder {
	rec := routertest.NewRecorder()
	fn(routertest.NewRequest(http.MethodGet, target, nil).WithHeader("User-Agent", "test-agent"), rec)
	return rec
}

func TestAccessLog_LogsCompletedRequest(t *testing.T) {
	t.Parallel()

	fn, logs := setup(t)
	get(fn, "/ok")

	records := logs.records(t)
	require.Len(t, records, 1)
	rec := records[0]

	assert.Equal(t, "access", rec["msg"])
	assert.Equal(t, "INFO", rec["level"])
	assert.Equal(t, "GET", rec["method"])
	assert.Equal(t, "/ok", rec["path"])
	assert.EqualValues(t, http.StatusOK, rec["status"])
	assert.EqualValues(t, len("hello"), rec["bytes_sent"])
	assert.Equal(t, "/ok", rec["route"])
	assert.Equal(t, "ok", rec["handler"])
	assert.Equal(t, "test-agent", rec["user_agent"])
	assert.NotEmpty(t, rec["request_id"])
	assert.NotContains(t, rec, "error")
}

func TestAccessLog_PendingStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		target string
		status int
		level  string
		err    string
	}{
		{"/missing", http.StatusNotFound, "WARN", ""},
		{"/teapot", http.StatusTeapot, "WARN", "short and stout"},
		{"/fail", http.StatusInternalServerError, "ERROR", "boom"},
		{"/flushed", http.StatusAccepted, "INFO", ""},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			t.Parallel()

			fn, logs := setup(t)
			res := get(fn, tt.target)
			assert.Equal(t, tt.status, res.Status(), "logged status must match what was sent")

			records := logs.records(t)
			require.Len(t, records, 1)
			assert.EqualValues(t, tt.status, records[0]["status"])
			assert.Equal(t, tt.level, records[0]["level"])
			if tt.err != "" {
				assert.Equal(t, tt.err, records[0]["error"])
			}
		})
	}
}

func TestAccessLog_FormatterResolvesFaultStatus(t *testing.T) {
	t.Parallel()

	unavailable := func(error) int { return http.StatusServiceUnavailable }
	formatter := &apierrors.Plain{StatusResolver: unavailable}

	logs := &logBuffer{}
	logger := slog.New(slog.NewJSONHandler(logs, nil))

	r := router.MustNew()
	r.Use(New(WithLogger(logger), WithFormatter(formatter)), router.WithName("accesslog"))
	r.GET("/fail", func(*router.Context, router.Next) error {
		return errors.New("boom")
	})

	res := get(dispatch.New(r, dispatch.WithErrorFormatter(formatter)), "/fail")
	require.Equal(t, http.StatusServiceUnavailable, res.Status())

	records := logs.records(t)
	require.Len(t, records, 1)
	assert.EqualValues(t, http.StatusServiceUnavailable, records[0]["status"])
	assert.Equal(t, "ERROR", records[0]["level"])
}

func TestAccessLog_InvalidFormattedStatusLogsAs500(t *testing.T) {
	t.Parallel()

	formatter := apierrors.FormatterFunc(func(apierrors.Request, error) apierrors.Response {
		return apierrors.Response{Status: 42}
	})

	logs := &logBuffer{}
	logger := slog.New(slog.NewJSONHandler(logs, nil))

	r := router.MustNew()
	r.Use(New(WithLogger(logger), WithFormatter(formatter)))
	r.GET("/fail", func(*router.Context, router.Next) error {
		return errors.New("boom")
	})

	res := get(dispatch.New(r, dispatch.WithErrorFormatter(formatter)), "/fail")
	require.Equal(t, http.StatusInternalServerError, res.Status())

	records := logs.records(t)
	require.Len(t, records, 1)
	assert.EqualValues(t, http.StatusInternalServerError, records[0]["status"])
}

func TestAccessLog_Exclusions(t *testing.T) {
	t.Parallel()

	fn, logs := setup(t, WithExcludePaths("/healthz"), WithExcludePrefixes("/fa"))
	get(fn, "/healthz")
	get(fn, "/fail")
	assert.Empty(t, logs.records(t))

	get(fn, "/ok")
	assert.Len(t, logs.records(t), 1)
}

func TestAccessLog_ErrorsOnly(t *testing.T) {
	t.Parallel()

	fn, logs := setup(t, WithErrorsOnly())
	get(fn, "/ok")
	get(fn, "/fail")

	records := logs.records(t)
	require.Len(t, records, 1)
	assert.Equal(t, "/fail", records[0]["path"])
}

func TestAccessLog_SlowRequestsBypassFilters(t *testing.T) {
	t.Parallel()

	fn, logs := setup(t, WithErrorsOnly(), WithSlowThreshold(5*time.Millisecond))
	get(fn, "/slow")

	records := logs.records(t)
	require.Len(t, records, 1)
	assert.Equal(t, true, records[0]["slow"])
	assert.Equal(t, "WARN", records[0]["level"])
}

func TestAccessLog_ZeroSampleRateKeepsErrors(t *testing.T) {
	t.Parallel()

	fn, logs := setup(t, WithSampleRate(0))
	for range 10 {
		get(fn, "/ok")
	}
	get(fn, "/fail")

	records := logs.records(t)
	require.Len(t, records, 1)
	assert.Equal(t, "/fail", records[0]["path"])
}

func TestAccessLog_WithoutLogger(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	r.Use(New())
	r.GET("/ok", func(c *router.Context, _ router.Next) error {
		return c.Response().Text(http.StatusOK, "hello")
	})

	rec := routertest.NewRecorder()
	dispatch.New(r)(routertest.NewRequest(http.MethodGet, "/ok", nil), rec)
	assert.Equal(t, "hello", rec.Body())
}

func TestSampleByHash(t *testing.T) {
	t.Parallel()

	assert.True(t, sampleByHash("", 0.5), "requests without ID are always logged")
	assert.True(t, sampleByHash("abc", 1))
	assert.False(t, sampleByHash("abc", 0))
	assert.Equal(t, sampleByHash("abc", 0.5), sampleByHash("abc", 0.5))
}
