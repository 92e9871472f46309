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
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typepoint/core/logging"
	"github.com/typepoint/core/router"
	"github.com/typepoint/core/router/routertest"
)

type observerKey struct{}

// recordingObserver records every hook call.
type recordingObserver struct {
	mu       sync.Mutex
	exclude  bool
	starts   int
	handlers []string
	outcomes []Outcome
}

func (o *recordingObserver) OnDispatchStart(ctx context.Context, c *router.Context) (context.Context, any) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.starts++
	ctx = context.WithValue(ctx, observerKey{}, c.ID())
	if o.exclude {
		return ctx, nil
	}
	return ctx, c.ID()
}

func (o *recordingObserver) OnHandler(state any, c *router.Context, rt *router.Route) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if state != c.ID() {
		panic("state token not threaded through")
	}
	o.handlers = append(o.handlers, rt.Name())
}

func (o *recordingObserver) OnDispatchEnd(_ any, _ *router.Context, out Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, out)
}

func (o *recordingObserver) outcome() Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.outcomes) == 0 {
		return Outcome{}
	}
	return o.outcomes[len(o.outcomes)-1]
}

func TestObserver_Lifecycle(t *testing.T) {
	t.Parallel()

	var fromCtx any
	r := router.MustNew()
	r.Use(func(c *router.Context, next router.Next) error {
		fromCtx = c.Context().Value(observerKey{})
		return next()
	}, router.WithName("mw"))
	r.GET("/users/:id", func(c *router.Context, _ router.Next) error {
		return c.Response().Text(http.StatusOK, "user")
	}, router.WithName("users.get"))

	obs := &recordingObserver{}
	rec := routertest.NewRecorder()
	New(r, WithObserver(obs, nil))(routertest.NewRequest(http.MethodGet, "/users/1", nil), rec)

	assert.Equal(t, 1, obs.starts)
	assert.Equal(t, []string{"mw", "users.get"}, obs.handlers)
	assert.NotNil(t, fromCtx, "observer context reaches handlers")

	out := obs.outcome()
	assert.Equal(t, OutcomeCompleted, out.Kind)
	assert.Equal(t, http.StatusOK, out.Status)
	assert.Equal(t, len("user"), out.Size)
	assert.Equal(t, 2, out.Handlers)
	assert.Equal(t, "users.get", out.RouteName())
	assert.NoError(t, out.Err)
	assert.Positive(t, out.Duration)
}

func TestObserver_NotFound(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	New(router.MustNew(), WithObserver(obs))(routertest.NewRequest(http.MethodGet, "/nope", nil), routertest.NewRecorder())

	out := obs.outcome()
	assert.Equal(t, OutcomeNotFound, out.Kind)
	assert.Equal(t, http.StatusNotFound, out.Status)
	assert.Equal(t, "_not_found", out.RouteName())
	assert.Zero(t, out.Handlers)
	assert.Equal(t, "not_found", out.Kind.String())
}

func TestObserver_NilStateExcludes(t *testing.T) {
	t.Parallel()

	var fromCtx any
	r := router.MustNew()
	r.GET("/health", func(c *router.Context, _ router.Next) error {
		fromCtx = c.Context().Value(observerKey{})
		return c.Response().SetStatus(http.StatusOK)
	})

	excluded := &recordingObserver{exclude: true}
	included := &recordingObserver{}
	New(r, WithObserver(excluded, included))(routertest.NewRequest(http.MethodGet, "/health", nil), routertest.NewRecorder())

	assert.Equal(t, 1, excluded.starts)
	assert.Empty(t, excluded.handlers)
	assert.Empty(t, excluded.outcomes)
	assert.NotNil(t, fromCtx, "excluded requests still get the enriched context")

	require.Len(t, included.outcomes, 1)
	assert.Equal(t, 1, included.outcomes[0].Handlers)
}

func TestObserver_SkippedOnConstructionFailure(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	New(router.MustNew(), WithObserver(obs))(routertest.NewRequest("", "/", nil), routertest.NewRecorder())

	assert.Zero(t, obs.starts)
	assert.Empty(t, obs.outcomes)
}

// panickingObserver panics in the named hook.
type panickingObserver struct {
	hook string
}

func (o panickingObserver) OnDispatchStart(ctx context.Context, c *router.Context) (context.Context, any) {
	if o.hook == "start" {
		panic("start broke")
	}
	return ctx, c.ID()
}

func (o panickingObserver) OnHandler(any, *router.Context, *router.Route) {
	if o.hook == "handler" {
		panic("handler broke")
	}
}

func (o panickingObserver) OnDispatchEnd(any, *router.Context, Outcome) {
	if o.hook == "end" {
		panic("end broke")
	}
}

func TestObserver_PanicsAreContained(t *testing.T) {
	t.Parallel()

	for _, hook := range []string{"start", "handler", "end"} {
		t.Run(hook, func(t *testing.T) {
			t.Parallel()

			var logs bytes.Buffer
			lg, err := logging.New(logging.WithJSONHandler(), logging.WithOutput(&logs))
			require.NoError(t, err)

			r := router.MustNew()
			r.GET("/", func(c *router.Context, _ router.Next) error {
				return c.Response().Text(http.StatusOK, "served")
			}, router.WithName("root"))

			after := &recordingObserver{}
			rec := routertest.NewRecorder()
			fn := New(r, WithLogger(lg.Logger()), WithObserver(panickingObserver{hook: hook}, after))
			fn(routertest.NewRequest(http.MethodGet, "/", nil), rec)

			assert.Equal(t, http.StatusOK, rec.Status())
			assert.Equal(t, "served", rec.Body())
			assert.Equal(t, 1, rec.Sends())
			assert.Equal(t, 1, rec.Closes())

			assert.Equal(t, []string{"root"}, after.handlers)
			require.Len(t, after.outcomes, 1)
			assert.Equal(t, OutcomeCompleted, after.outcomes[0].Kind)
			assert.Contains(t, logs.String(), `"msg":"observer panicked"`)
			assert.Contains(t, logs.String(), hook+" broke")
		})
	}
}

func TestOutcomeKind_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "completed", OutcomeCompleted.String())
	assert.Equal(t, "not_found", OutcomeNotFound.String())
	assert.Equal(t, "fault", OutcomeFault.String())
}
