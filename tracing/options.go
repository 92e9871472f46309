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
	"io"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a Tracer.
type Option func(*Tracer)

// OTLPOption configures the OTLP gRPC provider.
type OTLPOption func(*Tracer)

// WithTracerProvider uses a caller-owned tracer provider. Provider options
// are then ignored and Shutdown leaves the provider running.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(t *Tracer) {
		t.tracerProvider = provider
		t.customTracerProvider = true
	}
}

// WithGlobalTracerProvider registers the tracer provider with
// otel.SetTracerProvider.
func WithGlobalTracerProvider() Option {
	return func(t *Tracer) {
		t.registerGlobal = true
	}
}

// WithServiceName sets the service.name resource attribute.
func WithServiceName(name string) Option {
	return func(t *Tracer) {
		t.serviceName = name
	}
}

// WithServiceVersion sets the service.version resource attribute.
func WithServiceVersion(version string) Option {
	return func(t *Tracer) {
		t.serviceVersion = version
	}
}

// WithSampleRate records the given fraction of requests, between 0 and 1.
// Sampling is deterministic: a request counter is hashed against the rate,
// so 0.25 records one request in four over any sizeable window.
func WithSampleRate(rate float64) Option {
	return func(t *Tracer) {
		t.sampleRate = rate
	}
}

// WithPropagator replaces the W3C Trace Context propagator.
func WithPropagator(propagator propagation.TextMapPropagator) Option {
	return func(t *Tracer) {
		if propagator != nil {
			t.propagator = propagator
		}
	}
}

// WithHeaders records the named request headers as span attributes.
func WithHeaders(headers ...string) Option {
	return func(t *Tracer) {
		for _, h := range headers {
			t.recordHeaders = append(t.recordHeaders, http.CanonicalHeaderKey(h))
		}
	}
}

// WithEventHandler receives internal operational events.
func WithEventHandler(handler EventHandler) Option {
	return func(t *Tracer) {
		t.eventHandler = handler
	}
}

// WithLogger logs internal events to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracer) {
		t.eventHandler = DefaultEventHandler(logger)
	}
}

// WithSpanStartHook runs hook for every started request span.
func WithSpanStartHook(hook SpanStartHook) Option {
	return func(t *Tracer) {
		t.spanStartHook = hook
	}
}

// WithSpanFinishHook runs hook before every request span ends.
func WithSpanFinishHook(hook SpanFinishHook) Option {
	return func(t *Tracer) {
		t.spanFinishHook = hook
	}
}

// OTLPInsecure disables TLS for the gRPC exporter.
func OTLPInsecure() OTLPOption {
	return func(t *Tracer) {
		t.otlpInsecure = true
	}
}

// WithOTLP exports spans over OTLP gRPC to endpoint, e.g. "collector:4317".
func WithOTLP(endpoint string, opts ...OTLPOption) Option {
	return func(t *Tracer) {
		t.provider = OTLPProvider
		t.providerSetCount++
		t.otlpEndpoint = endpoint
		for _, opt := range opts {
			opt(t)
		}
	}
}

// WithOTLPHTTP exports spans over OTLP HTTP. An "http://" endpoint
// disables TLS.
func WithOTLPHTTP(endpoint string) Option {
	return func(t *Tracer) {
		t.provider = OTLPHTTPProvider
		t.providerSetCount++
		t.otlpEndpoint = endpoint
	}
}

// WithStdout pretty prints spans to w, or to os.Stdout when w is nil.
func WithStdout(w io.Writer) Option {
	return func(t *Tracer) {
		t.provider = StdoutProvider
		t.providerSetCount++
		t.stdoutWriter = w
	}
}

// WithNoop records spans without exporting them. This is the default.
func WithNoop() Option {
	return func(t *Tracer) {
		t.provider = NoopProvider
		t.providerSetCount++
	}
}
