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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/typepoint/core/dispatch"
	"github.com/typepoint/core/router"
)

const (
	// DefaultServiceName is used when WithServiceName is not given.
	DefaultServiceName = "dispatchd"
	// DefaultServiceVersion is used when WithServiceVersion is not given.
	DefaultServiceVersion = "dev"
	// DefaultSampleRate records every request.
	DefaultSampleRate = 1.0

	instrumentationName = "github.com/typepoint/core/tracing"

	// Fibonacci hashing spreads consecutive counter values evenly over the
	// uint64 range.
	samplingMultiplier uint64 = 0x9E3779B97F4A7C15
)

// Provider names a span exporter.
type Provider string

const (
	NoopProvider     Provider = "noop"
	StdoutProvider   Provider = "stdout"
	OTLPProvider     Provider = "otlp"
	OTLPHTTPProvider Provider = "otlp-http"
)

// EventType represents the severity of an internal operational event.
type EventType int

const (
	EventError EventType = iota
	EventWarning
	EventInfo
	EventDebug
)

// Event is an internal operational event, such as a failed shutdown.
type Event struct {
	Type    EventType
	Message string
	Args    []any // slog-style key-value pairs
}

// EventHandler processes internal operational events.
type EventHandler func(Event)

// DefaultEventHandler returns an EventHandler logging to logger.
// A nil logger discards events.
func DefaultEventHandler(logger *slog.Logger) EventHandler {
	if logger == nil {
		return func(Event) {}
	}

	return func(e Event) {
		switch e.Type {
		case EventError:
			logger.Error(e.Message, e.Args...)
		case EventWarning:
			logger.Warn(e.Message, e.Args...)
		case EventInfo:
			logger.Info(e.Message, e.Args...)
		case EventDebug:
			logger.Debug(e.Message, e.Args...)
		}
	}
}

// SpanStartHook runs after a request span is started.
type SpanStartHook func(ctx context.Context, span trace.Span, c *router.Context)

// SpanFinishHook runs before a request span is ended.
type SpanFinishHook func(span trace.Span, o dispatch.Outcome)

// Tracer creates request spans. All methods are safe for concurrent use.
type Tracer struct {
	tracer         trace.Tracer
	tracerProvider trace.TracerProvider
	sdkProvider    *sdktrace.TracerProvider
	propagator     propagation.TextMapPropagator
	eventHandler   EventHandler

	spanStartHook  SpanStartHook
	spanFinishHook SpanFinishHook

	pathFilter    *pathFilter
	recordHeaders []string

	validationErrors []error

	provider         Provider
	providerSetCount int
	otlpEndpoint     string
	otlpInsecure     bool
	stdoutWriter     io.Writer

	serviceName    string
	serviceVersion string

	sampleRate        float64
	samplingThreshold uint64
	samplingCounter   atomic.Uint64

	customTracerProvider bool
	registerGlobal       bool

	startOnce    sync.Once
	startErr     error
	shutdownOnce sync.Once
	shutdownErr  error
}

// New creates a [Tracer]. The OTLP providers are not usable until
// [Tracer.Start] succeeds; every other provider is ready on return.
func New(opts ...Option) (*Tracer, error) {
	t := &Tracer{
		serviceName:    DefaultServiceName,
		serviceVersion: DefaultServiceVersion,
		propagator:     propagation.TraceContext{},
		sampleRate:     DefaultSampleRate,
		provider:       NoopProvider,
		pathFilter:     newPathFilter(),
	}

	for _, opt := range opts {
		opt(t)
	}

	if err := t.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if t.needsStart() {
		// Spans started before Start are dropped.
		t.tracer = noop.NewTracerProvider().Tracer(instrumentationName)
		return t, nil
	}

	if err := t.initializeProvider(); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	return t, nil
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...Option) *Tracer {
	t, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("tracing: %v", err))
	}
	return t
}

func (t *Tracer) validate() error {
	if len(t.validationErrors) > 0 {
		return errors.Join(t.validationErrors...)
	}
	if t.providerSetCount > 1 {
		return errors.New("conflicting provider options: only one of WithNoop, WithStdout, WithOTLP, or WithOTLPHTTP can be used")
	}
	if t.serviceName == "" {
		return errors.New("service name cannot be empty")
	}
	if t.serviceVersion == "" {
		return errors.New("service version cannot be empty")
	}
	if t.sampleRate < 0 || t.sampleRate > 1 {
		return fmt.Errorf("sample rate must be between 0.0 and 1.0, got %f", t.sampleRate)
	}

	switch {
	case t.sampleRate == 1:
		t.samplingThreshold = ^uint64(0)
	case t.sampleRate > 0:
		t.samplingThreshold = uint64(t.sampleRate * float64(^uint64(0)))
	}

	switch t.provider {
	case NoopProvider, StdoutProvider:
	case OTLPProvider:
		if t.otlpEndpoint == "" {
			t.emitWarning("OTLP endpoint not specified, using default", "default", "localhost:4317")
			t.otlpEndpoint = "localhost:4317"
		}
	case OTLPHTTPProvider:
		if t.otlpEndpoint == "" {
			t.emitWarning("OTLP endpoint not specified, using default", "default", "http://localhost:4318")
			t.otlpEndpoint = "http://localhost:4318"
		}
	default:
		return fmt.Errorf("unsupported tracing provider: %s", t.provider)
	}
	return nil
}

func (t *Tracer) needsStart() bool {
	return !t.customTracerProvider && (t.provider == OTLPProvider || t.provider == OTLPHTTPProvider)
}

// Start connects the OTLP exporters. It is a no-op for other providers
// and only does work once.
func (t *Tracer) Start(ctx context.Context) error {
	if !t.needsStart() {
		return nil
	}
	t.startOnce.Do(func() {
		if err := t.initializeProviderWithContext(ctx); err != nil {
			t.startErr = fmt.Errorf("failed to start tracing: %w", err)
		}
	})
	return t.startErr
}

// Provider returns the configured provider, or "custom" when a tracer
// provider was supplied with [WithTracerProvider].
func (t *Tracer) Provider() Provider {
	if t.customTracerProvider {
		return "custom"
	}
	return t.provider
}

// ServiceName returns the service name.
func (t *Tracer) ServiceName() string { return t.serviceName }

// ServiceVersion returns the service version.
func (t *Tracer) ServiceVersion() string { return t.serviceVersion }

// Propagator returns the propagator used to extract incoming trace context.
func (t *Tracer) Propagator() propagation.TextMapPropagator { return t.propagator }

// ExtractTraceContext returns ctx with the remote span context found in
// headers, if any.
func (t *Tracer) ExtractTraceContext(ctx context.Context, headers http.Header) context.Context {
	return t.propagator.Extract(ctx, propagation.HeaderCarrier(headers))
}

// InjectTraceContext writes the span context of ctx into headers.
func (t *Tracer) InjectTraceContext(ctx context.Context, headers http.Header) {
	t.propagator.Inject(ctx, propagation.HeaderCarrier(headers))
}

// sampled makes a deterministic, counter based sampling decision.
func (t *Tracer) sampled() bool {
	switch t.sampleRate {
	case 1:
		return true
	case 0:
		return false
	}
	return t.samplingCounter.Add(1)*samplingMultiplier <= t.samplingThreshold
}

// Shutdown flushes pending spans and stops the provider. Providers
// supplied with [WithTracerProvider] are left to their owner. Concurrent
// and repeated calls share a single shutdown.
func (t *Tracer) Shutdown(ctx context.Context) error {
	t.shutdownOnce.Do(func() {
		if t.customTracerProvider {
			t.emitDebug("skipping shutdown of custom tracer provider")
			return
		}
		if t.sdkProvider == nil {
			return
		}
		if err := t.sdkProvider.Shutdown(ctx); err != nil {
			t.emitError("error shutting down tracer provider", "error", err)
			t.shutdownErr = fmt.Errorf("tracer provider shutdown: %w", err)
		}
	})
	return t.shutdownErr
}

func (t *Tracer) setGlobal(tp trace.TracerProvider) {
	if t.registerGlobal {
		t.emitDebug("setting global OpenTelemetry tracer provider", "provider", t.Provider())
		otel.SetTracerProvider(tp)
	}
}

func (t *Tracer) emit(typ EventType, msg string, args ...any) {
	if t.eventHandler != nil {
		t.eventHandler(Event{Type: typ, Message: msg, Args: args})
	}
}

func (t *Tracer) emitError(msg string, args ...any)   { t.emit(EventError, msg, args...) }
func (t *Tracer) emitWarning(msg string, args ...any) { t.emit(EventWarning, msg, args...) }
func (t *Tracer) emitInfo(msg string, args ...any)    { t.emit(EventInfo, msg, args...) }
func (t *Tracer) emitDebug(msg string, args ...any)   { t.emit(EventDebug, msg, args...) }
