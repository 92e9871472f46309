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

package metrics

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/typepoint/core/dispatch"
	"github.com/typepoint/core/router"
)

var _ dispatch.Observer = (*Recorder)(nil)

// requestState is the per-request token handed back by OnDispatchStart.
type requestState struct {
	ctx   context.Context
	start time.Time
}

// OnDispatchStart counts the request as active. Excluded paths return a
// nil state and are not recorded at all.
func (r *Recorder) OnDispatchStart(ctx context.Context, c *router.Context) (context.Context, any) {
	if r.isShuttingDown.Load() || r.ShouldExcludePath(c.Path()) {
		return ctx, nil
	}

	// Same attribute set on increment and decrement, or the gauge drifts.
	r.activeRequests.Add(ctx, 1, r.serviceAttrs)
	return ctx, &requestState{ctx: ctx, start: time.Now()}
}

// OnHandler counts one executed action.
func (r *Recorder) OnHandler(state any, _ *router.Context, rt *router.Route) {
	st, ok := state.(*requestState)
	if !ok {
		return
	}
	r.handlerInvocations.Add(st.ctx, 1, r.serviceAttrs, metric.WithAttributes(
		attribute.String("dispatch.handler", rt.Name()),
		attribute.String("dispatch.handler.kind", rt.Kind().String()),
	))
}

// OnDispatchEnd records the finished request.
func (r *Recorder) OnDispatchEnd(state any, c *router.Context, o dispatch.Outcome) {
	st, ok := state.(*requestState)
	if !ok {
		return
	}
	ctx := st.ctx

	r.activeRequests.Add(ctx, -1, r.serviceAttrs)

	attrs := metric.WithAttributes(
		attribute.String("http.request.method", c.Method().String()),
		attribute.String("http.route", o.RouteName()),
		attribute.Int("http.response.status_code", o.Status),
		attribute.String("http.status_class", statusClass(o.Status)),
		attribute.String("dispatch.outcome", o.Kind.String()),
	)

	r.requestDuration.Record(ctx, time.Since(st.start).Seconds(), r.serviceAttrs, attrs)
	r.requestCount.Add(ctx, 1, r.serviceAttrs, attrs)
	if o.Size > 0 {
		r.responseSize.Record(ctx, int64(o.Size), r.serviceAttrs, attrs)
	}
	if o.Kind == dispatch.OutcomeFault {
		r.faultCount.Add(ctx, 1, r.serviceAttrs, metric.WithAttributes(
			attribute.String("http.route", o.RouteName()),
			attribute.Bool("dispatch.after_flush", o.Flushed),
		))
	}
}

// statusClass returns "2xx" style classes, or "unknown".
func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}
