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

package tracing

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/typepoint/core/dispatch"
	"github.com/typepoint/core/router"
)

const attrPrefixHeader = "http.request.header."

var _ dispatch.Observer = (*Tracer)(nil)

// requestSpan is the per-request token handed back by OnDispatchStart.
type requestSpan struct {
	span trace.Span
}

// OnDispatchStart extracts the remote trace context and starts the server
// span. Excluded and unsampled requests return a nil state; their context
// still carries the remote parent so handlers can propagate it.
func (t *Tracer) OnDispatchStart(ctx context.Context, c *router.Context) (context.Context, any) {
	if t.ShouldExcludePath(c.Path()) {
		return ctx, nil
	}
	if ctx.Err() != nil {
		t.emitDebug("context canceled before span creation", "path", c.Path())
		return ctx, nil
	}

	ctx = t.ExtractTraceContext(ctx, c.Header())
	if !t.sampled() {
		return ctx, nil
	}

	attrs := make([]attribute.KeyValue, 0, 4+len(t.recordHeaders))
	attrs = append(attrs,
		attribute.String("http.request.method", c.RawMethod()),
		attribute.String("url.path", c.Path()),
		attribute.String("dispatch.request_id", c.ID()),
	)
	if q := c.URL().RawQuery; q != "" {
		attrs = append(attrs, attribute.String("url.query", q))
	}
	for _, h := range t.recordHeaders {
		if v := c.Header().Get(h); v != "" {
			attrs = append(attrs, attribute.String(attrPrefixHeader+strings.ToLower(h), v))
		}
	}

	ctx, span := t.tracer.Start(ctx, c.RawMethod()+" "+c.Path(),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...),
	)
	if t.spanStartHook != nil {
		t.spanStartHook(ctx, span, c)
	}
	return ctx, &requestSpan{span: span}
}

// OnHandler adds one span event per executed action.
func (t *Tracer) OnHandler(state any, c *router.Context, rt *router.Route) {
	rs, ok := state.(*requestSpan)
	if !ok {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("dispatch.handler", rt.Name()),
		attribute.String("dispatch.handler.kind", rt.Kind().String()),
		attribute.String("dispatch.handler.pattern", rt.Path()),
	}
	for name, value := range c.Params() {
		attrs = append(attrs, attribute.String("dispatch.param."+name, value))
	}
	rs.span.AddEvent("handler", trace.WithAttributes(attrs...))
}

// OnDispatchEnd names the span after the last executed route, records the
// outcome and ends the span.
func (t *Tracer) OnDispatchEnd(state any, c *router.Context, o dispatch.Outcome) {
	rs, ok := state.(*requestSpan)
	if !ok {
		return
	}
	span := rs.span

	route := o.RouteName()
	if o.Route != nil {
		route = o.Route.Path()
	}
	span.SetName(c.RawMethod() + " " + route)
	span.SetAttributes(
		attribute.String("http.route", route),
		attribute.String("dispatch.handler", o.RouteName()),
		attribute.Int("http.response.status_code", o.Status),
		attribute.Int("http.response.body.size", o.Size),
		attribute.Int("dispatch.handlers", o.Handlers),
		attribute.String("dispatch.outcome", o.Kind.String()),
	)

	switch {
	case o.Kind == dispatch.OutcomeFault && o.Err != nil:
		span.RecordError(o.Err)
		span.SetAttributes(attribute.Bool("dispatch.after_flush", o.Flushed))
		span.SetStatus(codes.Error, o.Err.Error())
	case o.Status >= 400:
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", o.Status))
	default:
		span.SetStatus(codes.Ok, "")
	}

	if t.spanFinishHook != nil {
		t.spanFinishHook(span, o)
	}
	span.End()
}
