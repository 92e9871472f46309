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

package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/typepoint/core/errors"
	"github.com/typepoint/core/logging"
	"github.com/typepoint/core/router"
	"github.com/typepoint/core/router/routertest"
)

// sink records diagnostic sink calls.
type sink struct {
	mu    sync.Mutex
	lines [][]any
}

func (s *sink) log(args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, args)
}

func (s *sink) calls() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]any(nil), s.lines...)
}

func serve(t *testing.T, fn Func, method, target string) *routertest.Recorder {
	t.Helper()

	rec := routertest.NewRecorder()
	fn(routertest.NewRequest(method, target, nil), rec)
	require.Equal(t, 1, rec.Closes(), "raw response must be closed exactly once")
	return rec
}

func TestDispatch_NoHandlersIsNotFound(t *testing.T) {
	t.Parallel()

	rec := serve(t, New(router.MustNew()), http.MethodGet, "/missing")

	assert.Equal(t, http.StatusNotFound, rec.Status())
	assert.Empty(t, rec.Body())
	assert.Equal(t, 1, rec.Sends())
}

func TestDispatch_MiddlewareThenEndpoint(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	r.GET("/items", func(c *router.Context, _ router.Next) error {
		return c.Response().SetStatus(http.StatusCreated)
	}, router.WithName("createItem"))
	r.Use(func(c *router.Context, next router.Next) error {
		c.Set("seen", true)
		return next()
	}, router.WithName("audit"))

	var s sink
	rec := serve(t, New(r, WithLog(s.log)), http.MethodGet, "/items")

	assert.Equal(t, http.StatusCreated, rec.Status())
	assert.Equal(t, [][]any{
		{"Executing handler:", "audit"},
		{"Executing handler:", "createItem"},
	}, s.calls())
}

func TestDispatch_FaultBeforeFlush(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	r.POST("/items", func(*router.Context, router.Next) error {
		return errors.New("database unavailable")
	})

	var s sink
	rec := serve(t, New(r, WithLog(s.log)), http.MethodPost, "/items")

	assert.Equal(t, http.StatusInternalServerError, rec.Status())
	assert.Equal(t, "database unavailable", rec.Body())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, 1, rec.Sends())

	calls := s.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "ERROR:", calls[1][0])
}

func TestDispatch_FaultReplacesBufferedBody(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	r.GET("/report", func(c *router.Context, _ router.Next) error {
		_ = c.Response().SetHeader("X-Partial", "1")
		_ = c.Response().Text(http.StatusOK, "half a report")
		return errors.New("render failed")
	})

	rec := serve(t, New(r), http.MethodGet, "/report")

	assert.Equal(t, http.StatusInternalServerError, rec.Status())
	assert.Equal(t, "render failed", rec.Body())
	assert.Equal(t, "1", rec.Header().Get("X-Partial"), "headers from earlier handlers survive")
}

func TestDispatch_PanicBecomesFault(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	r.GET("/boom", func(*router.Context, router.Next) error {
		panic("kaboom")
	}, router.WithName("boom"))

	obs := &recordingObserver{}
	rec := serve(t, New(r, WithObserver(obs)), http.MethodGet, "/boom")

	assert.Equal(t, http.StatusInternalServerError, rec.Status())
	assert.Contains(t, rec.Body(), "kaboom")

	got := obs.outcome()
	var pe *PanicError
	require.ErrorAs(t, got.Err, &pe)
	assert.Equal(t, "boom", pe.Handler)
	assert.Equal(t, "kaboom", pe.Value)
	assert.NotEmpty(t, pe.Stack)
	assert.Equal(t, OutcomeFault, got.Kind)
}

func TestDispatch_PanicWithErrorValueUnwraps(t *testing.T) {
	t.Parallel()

	sentinel := apierrors.WithStatus(errors.New("teapot"), http.StatusTeapot)
	r := router.MustNew()
	r.GET("/", func(*router.Context, router.Next) error {
		panic(sentinel)
	})

	obs := &recordingObserver{}
	rec := serve(t, New(r, WithObserver(obs)), http.MethodGet, "/")

	assert.Equal(t, http.StatusInternalServerError, rec.Status(), "panics never take a status from the value")
	require.ErrorIs(t, obs.outcome().Err, sentinel)
}

func TestDispatch_FaultAfterFlushIsSwallowed(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	r.GET("/stream", func(c *router.Context, _ router.Next) error {
		if err := c.Response().Text(http.StatusAccepted, "accepted"); err != nil {
			return err
		}
		if err := c.Response().Flush(); err != nil {
			return err
		}
		return errors.New("late failure")
	})

	var s sink
	obs := &recordingObserver{}
	rec := serve(t, New(r, WithLog(s.log), WithObserver(obs)), http.MethodGet, "/stream")

	assert.Equal(t, http.StatusAccepted, rec.Status())
	assert.Equal(t, "accepted", rec.Body())
	assert.Equal(t, 1, rec.Sends(), "no second write after flush")

	o := obs.outcome()
	assert.Equal(t, OutcomeFault, o.Kind)
	assert.True(t, o.Flushed)
	assert.Equal(t, http.StatusAccepted, o.Status)

	calls := s.calls()
	assert.Equal(t, "ERROR:", calls[len(calls)-1][0])
}

func TestDispatch_ContextConstructionFailure(t *testing.T) {
	t.Parallel()

	ran := false
	r := router.MustNew()
	r.Use(func(*router.Context, router.Next) error {
		ran = true
		return nil
	})
	fn := New(r)

	tests := []struct {
		name   string
		method string
		target string
	}{
		{name: "empty method", method: "", target: "/"},
		{name: "unparsable url", method: http.MethodGet, target: "::not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, fn, tt.method, tt.target)
			assert.Equal(t, http.StatusInternalServerError, rec.Status())
			assert.Equal(t, 1, rec.Sends())
		})
	}
	assert.False(t, ran, "no handler runs without a context")
}

func TestDispatch_NilRequestAndResponse(t *testing.T) {
	t.Parallel()

	fn := New(router.MustNew())

	rec := routertest.NewRecorder()
	assert.NotPanics(t, func() { fn(nil, rec) })
	assert.Equal(t, http.StatusInternalServerError, rec.Status())
	assert.Equal(t, 1, rec.Closes())

	assert.NotPanics(t, func() { fn(routertest.NewRequest(http.MethodGet, "/", nil), nil) })
}

func TestDispatch_ShortCircuit(t *testing.T) {
	t.Parallel()

	endpointRan := false
	r := router.MustNew()
	r.Use(func(c *router.Context, _ router.Next) error {
		return c.Response().Text(http.StatusUnauthorized, "no token")
	}, router.WithName("auth"))
	r.GET("/secret", func(*router.Context, router.Next) error {
		endpointRan = true
		return nil
	})

	rec := serve(t, New(r), http.MethodGet, "/secret")

	assert.Equal(t, http.StatusUnauthorized, rec.Status())
	assert.Equal(t, "no token", rec.Body())
	assert.False(t, endpointRan)
}

func TestDispatch_ShortCircuitWithoutStatusIsNotFound(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	r.Use(func(*router.Context, router.Next) error { return nil })
	r.GET("/", func(c *router.Context, _ router.Next) error {
		return c.Response().SetStatus(http.StatusOK)
	})

	obs := &recordingObserver{}
	rec := serve(t, New(r, WithObserver(obs)), http.MethodGet, "/")

	assert.Equal(t, http.StatusNotFound, rec.Status())
	assert.Equal(t, OutcomeNotFound, obs.outcome().Kind)
}

func TestDispatch_StatusWithoutFlushIsFlushedByFinalizer(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	r.DELETE("/items/:id", func(c *router.Context, _ router.Next) error {
		return c.Response().SetStatus(http.StatusNoContent)
	})

	rec := serve(t, New(r), http.MethodDelete, "/items/7")
	assert.Equal(t, http.StatusNoContent, rec.Status())
	assert.Equal(t, 1, rec.Sends())
}

func TestDispatch_ParamsReboundPerMatch(t *testing.T) {
	t.Parallel()

	var seen []string
	r := router.MustNew()
	r.UseAt(router.MethodAny, "/orgs/:org/*", func(c *router.Context, next router.Next) error {
		seen = append(seen, "org="+c.Param("org"))
		return next()
	})
	r.GET("/orgs/:name/users/:id", func(c *router.Context, _ router.Next) error {
		seen = append(seen, fmt.Sprintf("name=%s id=%s org=%q", c.Param("name"), c.Param("id"), c.Param("org")))
		return c.Response().SetStatus(http.StatusOK)
	})

	rec := serve(t, New(r), http.MethodGet, "/orgs/acme/users/9")

	assert.Equal(t, http.StatusOK, rec.Status())
	assert.Equal(t, []string{"org=acme", `name=acme id=9 org=""`}, seen)
}

func TestDispatch_MethodFilteringAndCleansing(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	r.POST("/items", func(c *router.Context, _ router.Next) error {
		return c.Response().Text(http.StatusCreated, "post")
	})
	r.Any("/items", func(c *router.Context, _ router.Next) error {
		return c.Response().Text(http.StatusOK, "any")
	})
	fn := New(r)

	assert.Equal(t, "post", serve(t, fn, "post", "/items").Body())
	assert.Equal(t, "any", serve(t, fn, http.MethodGet, "/items").Body())
	assert.Equal(t, "any", serve(t, fn, "PURGE", "/items").Body())
}

func TestDispatch_MiddlewareHandlesDownstreamError(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	r.Use(func(c *router.Context, next router.Next) error {
		if err := next(); err != nil {
			return c.Response().Text(http.StatusBadGateway, "upstream: "+err.Error())
		}
		return nil
	})
	r.GET("/proxy", func(*router.Context, router.Next) error {
		return errors.New("refused")
	})

	rec := serve(t, New(r), http.MethodGet, "/proxy")
	assert.Equal(t, http.StatusBadGateway, rec.Status())
	assert.Equal(t, "upstream: refused", rec.Body())
}

func TestDispatch_ErrorFormatter(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	r.GET("/tea", func(*router.Context, router.Next) error {
		return apierrors.WithStatus(errors.New("short and stout"), http.StatusTeapot)
	})

	rec := serve(t, New(r, WithErrorFormatter(apierrors.NewSimple())), http.MethodGet, "/tea")

	assert.Equal(t, http.StatusTeapot, rec.Status())
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(rec.Body()), &body))
	assert.Equal(t, "short and stout", body["error"])
}

func TestDispatch_InvalidFormattedStatusFallsBackTo500(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	r.GET("/", func(*router.Context, router.Next) error { return errors.New("x") })

	f := apierrors.FormatterFunc(func(apierrors.Request, error) apierrors.Response {
		return apierrors.Response{Status: 42, Body: "odd", Headers: http.Header{"X-Reason": {"format"}}}
	})
	rec := serve(t, New(r, WithErrorFormatter(f)), http.MethodGet, "/")

	assert.Equal(t, http.StatusInternalServerError, rec.Status())
	assert.Equal(t, "odd", rec.Body())
	assert.Equal(t, "format", rec.Header().Get("X-Reason"))
}

func TestDispatch_FreezesRouter(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	New(r)

	assert.True(t, r.Frozen())
	_, err := r.RegisterHandler(router.MethodGet, "/late", func(*router.Context, router.Next) error { return nil })
	require.ErrorIs(t, err, router.ErrRouterFrozen)
}

func TestDispatch_NilRouterPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { New(nil) })
}

func TestDispatch_RequestContextReachesHandlers(t *testing.T) {
	t.Parallel()

	type key struct{}
	r := router.MustNew()
	r.GET("/", func(c *router.Context, _ router.Next) error {
		v, _ := c.Context().Value(key{}).(string)
		return c.Response().Text(http.StatusOK, v)
	})

	ctx := context.WithValue(t.Context(), key{}, "carried")
	rec := routertest.NewRecorder()
	New(r)(routertest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx), rec)

	assert.Equal(t, "carried", rec.Body())
}

func TestDispatch_TransportFailures(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	r.GET("/", func(c *router.Context, _ router.Next) error {
		return c.Response().Text(http.StatusOK, "ok")
	})
	fn := New(r)

	rec := routertest.NewRecorder()
	rec.SendErr = errors.New("broken pipe")
	rec.CloseErr = errors.New("already closed")

	assert.NotPanics(t, func() { fn(routertest.NewRequest(http.MethodGet, "/", nil), rec) })
	assert.Equal(t, 1, rec.Sends())
	assert.Equal(t, 1, rec.Closes())
}

func TestDispatch_ContextFactory(t *testing.T) {
	t.Parallel()

	factoryErr := errors.New("factory refused")

	var s sink
	fn := New(router.MustNew(), WithLog(s.log), WithContextFactory(func(router.RawRequest, router.RawResponse) (*router.Context, error) {
		return nil, factoryErr
	}))
	rec := serve(t, fn, http.MethodGet, "/")

	assert.Equal(t, http.StatusInternalServerError, rec.Status())
	assert.Equal(t, [][]any{{"ERROR:", factoryErr}}, s.calls())
}

func TestDispatch_ConcurrentRequests(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	r.Use(func(c *router.Context, next router.Next) error {
		c.Set("id", c.Param("id"))
		return next()
	})
	r.GET("/n/:id", func(c *router.Context, _ router.Next) error {
		v, _ := c.Get("id")
		return c.Response().Text(http.StatusOK, c.Param("id")+"/"+fmt.Sprint(v))
	})
	fn := New(r)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := routertest.NewRecorder()
			fn(routertest.NewRequest(http.MethodGet, fmt.Sprintf("/n/%d", i), nil), rec)
			assert.Equal(t, fmt.Sprintf("%d/", i), rec.Body())
			assert.Equal(t, 1, rec.Closes())
		}()
	}
	wg.Wait()
}

func TestDispatch_StructuredLoggerAndSink(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := logging.New(logging.WithJSONHandler(), logging.WithOutput(&buf), logging.WithLevel(logging.LevelDebug))
	require.NoError(t, err)

	r := router.MustNew()
	r.GET("/fail", func(*router.Context, router.Next) error {
		return errors.New("disk full")
	}, router.WithName("fail"))

	rec := serve(t, New(r, WithLog(logger.Sink()), WithLogger(logger.Logger())), http.MethodGet, "/fail")
	assert.Equal(t, http.StatusInternalServerError, rec.Status())

	out := buf.String()
	assert.Contains(t, out, `"msg":"Executing handler: fail"`)
	assert.Contains(t, out, `"msg":"handler fault"`)
	assert.Contains(t, out, `"error":"disk full"`)
	assert.Contains(t, out, `"request_id"`)
}

func TestDispatch_EncodedSegmentsBindRaw(t *testing.T) {
	t.Parallel()

	r := router.MustNew()
	r.GET("/users/:id", func(c *router.Context, _ router.Next) error {
		return c.Response().Text(http.StatusOK, c.Param("id"))
	})
	r.GET("/files/*path", func(c *router.Context, _ router.Next) error {
		return c.Response().Text(http.StatusOK, c.Param("path"))
	})
	fn := New(r)

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{name: "encoded space", target: "/users/John%20Doe", want: "John%20Doe"},
		{name: "encoded slash stays in its segment", target: "/users/a%2Fb", want: "a%2Fb"},
		{name: "encoded slash in catch-all", target: "/files/a%2Fb/c.txt", want: "a%2Fb/c.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, fn, http.MethodGet, tt.target)
			assert.Equal(t, http.StatusOK, rec.Status())
			assert.Equal(t, tt.want, rec.Body())
		})
	}
}

func TestDispatch_PanickingFormatterFallsBackToPlain500(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := logging.New(logging.WithJSONHandler(), logging.WithOutput(&buf))
	require.NoError(t, err)

	r := router.MustNew()
	r.GET("/", func(c *router.Context, _ router.Next) error {
		_ = c.Response().SetHeader("X-Trace", "kept")
		return errors.New("backend down")
	})
	f := apierrors.FormatterFunc(func(apierrors.Request, error) apierrors.Response {
		panic("formatter broke")
	})

	rec := serve(t, New(r, WithErrorFormatter(f), WithLogger(logger.Logger())), http.MethodGet, "/")

	assert.Equal(t, http.StatusInternalServerError, rec.Status())
	assert.Equal(t, http.StatusText(http.StatusInternalServerError), rec.Body())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "kept", rec.Header().Get("X-Trace"))
	assert.Equal(t, 1, rec.Sends())
	assert.Contains(t, buf.String(), `"msg":"error formatter panicked"`)
	assert.Contains(t, buf.String(), "formatter broke")
}

func TestDispatch_PanickingContextFactoryIsRejected(t *testing.T) {
	t.Parallel()

	var s sink
	fn := New(router.MustNew(), WithLog(s.log), WithContextFactory(func(router.RawRequest, router.RawResponse) (*router.Context, error) {
		panic("factory broke")
	}))
	rec := serve(t, fn, http.MethodGet, "/")

	assert.Equal(t, http.StatusInternalServerError, rec.Status())
	assert.Equal(t, 1, rec.Sends())

	calls := s.calls()
	require.Len(t, calls, 1)
	err, ok := calls[0][1].(error)
	require.True(t, ok)
	require.ErrorIs(t, err, router.ErrContextConstruction)
	assert.Contains(t, err.Error(), "factory broke")
}
