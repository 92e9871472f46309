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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const instrumentationName = "github.com/typepoint/core/metrics"

// Default histogram buckets.
var (
	// DefaultDurationBuckets are request duration boundaries in seconds.
	DefaultDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

	// DefaultSizeBuckets are response size boundaries in bytes.
	DefaultSizeBuckets = []float64{100, 1000, 10000, 100000, 1000000, 10000000}
)

// EventType represents the severity of an internal operational event.
type EventType int

const (
	EventError EventType = iota
	EventWarning
	EventInfo
	EventDebug
)

// Event is an internal operational event, such as a failed flush.
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

// Provider represents the available metrics providers.
type Provider string

const (
	PrometheusProvider Provider = "prometheus"
	OTLPProvider       Provider = "otlp"
	StdoutProvider     Provider = "stdout"
)

// Recorder holds the meter provider and the dispatch instruments.
// All methods are safe for concurrent use.
type Recorder struct {
	meter              metric.Meter
	meterProvider      metric.MeterProvider
	prometheusHandler  http.Handler
	prometheusRegistry *promclient.Registry
	eventHandler       EventHandler

	requestDuration    metric.Float64Histogram
	requestCount       metric.Int64Counter
	activeRequests     metric.Int64UpDownCounter
	responseSize       metric.Int64Histogram
	handlerInvocations metric.Int64Counter
	faultCount         metric.Int64Counter

	durationBuckets []float64
	sizeBuckets     []float64
	pathFilter      *pathFilter

	validationErrors []error

	provider         Provider
	providerSetCount int
	otlpEndpoint     string
	stdoutWriter     io.Writer
	exportInterval   time.Duration

	serviceName    string
	serviceVersion string
	serviceAttrs   metric.MeasurementOption

	customMeterProvider bool
	registerGlobal      bool
	isShuttingDown      atomic.Bool
}

// New creates a [Recorder]. It fails on invalid options or when the
// provider cannot be initialized.
func New(opts ...Option) (*Recorder, error) {
	r := &Recorder{
		serviceName:     "dispatchd",
		serviceVersion:  "dev",
		provider:        PrometheusProvider,
		exportInterval:  30 * time.Second,
		durationBuckets: DefaultDurationBuckets,
		sizeBuckets:     DefaultSizeBuckets,
		pathFilter:      newPathFilter(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if err := r.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	r.serviceAttrs = metric.WithAttributeSet(attribute.NewSet(
		attribute.String("service.name", r.serviceName),
		attribute.String("service.version", r.serviceVersion),
	))

	if err := r.initializeProvider(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	return r, nil
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...Option) *Recorder {
	r, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("metrics: %v", err))
	}
	return r
}

func (r *Recorder) validate() error {
	if len(r.validationErrors) > 0 {
		return errors.Join(r.validationErrors...)
	}
	if r.providerSetCount > 1 {
		return errors.New("conflicting provider options: only one of WithPrometheus, WithOTLP, or WithStdout can be used")
	}
	if r.serviceName == "" {
		return errors.New("service name cannot be empty")
	}
	if r.serviceVersion == "" {
		return errors.New("service version cannot be empty")
	}
	if r.exportInterval < time.Second {
		r.emitWarning("export interval is very low, may cause high CPU usage", "interval", r.exportInterval)
	}

	switch r.provider {
	case PrometheusProvider, StdoutProvider:
	case OTLPProvider:
		if r.otlpEndpoint == "" {
			r.emitWarning("OTLP endpoint not specified, using default", "default", "http://localhost:4318")
			r.otlpEndpoint = "http://localhost:4318"
		}
	default:
		return fmt.Errorf("unsupported metrics provider: %s", r.provider)
	}
	return nil
}

// initializeInstruments creates the dispatch instruments.
func (r *Recorder) initializeInstruments() error {
	var err error

	if r.requestDuration, err = r.meter.Float64Histogram(
		"dispatch_request_duration_seconds",
		metric.WithDescription("Duration of dispatched requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(r.durationBuckets...),
	); err != nil {
		return fmt.Errorf("create request duration histogram: %w", err)
	}

	if r.requestCount, err = r.meter.Int64Counter(
		"dispatch_requests_total",
		metric.WithDescription("Total number of dispatched requests"),
	); err != nil {
		return fmt.Errorf("create request counter: %w", err)
	}

	if r.activeRequests, err = r.meter.Int64UpDownCounter(
		"dispatch_requests_active",
		metric.WithDescription("Number of requests being dispatched"),
	); err != nil {
		return fmt.Errorf("create active requests counter: %w", err)
	}

	if r.responseSize, err = r.meter.Int64Histogram(
		"dispatch_response_size_bytes",
		metric.WithDescription("Size of flushed response bodies in bytes"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(r.sizeBuckets...),
	); err != nil {
		return fmt.Errorf("create response size histogram: %w", err)
	}

	if r.handlerInvocations, err = r.meter.Int64Counter(
		"dispatch_handler_invocations_total",
		metric.WithDescription("Total number of executed middleware and endpoint actions"),
	); err != nil {
		return fmt.Errorf("create handler invocation counter: %w", err)
	}

	if r.faultCount, err = r.meter.Int64Counter(
		"dispatch_faults_total",
		metric.WithDescription("Total number of handler faults"),
	); err != nil {
		return fmt.Errorf("create fault counter: %w", err)
	}

	return nil
}

// Handler returns the Prometheus scrape handler.
// It fails unless the recorder uses [PrometheusProvider].
func (r *Recorder) Handler() (http.Handler, error) {
	if r.provider != PrometheusProvider || r.prometheusHandler == nil {
		return nil, fmt.Errorf("handler only available with Prometheus provider, current provider: %s", r.Provider())
	}
	return r.prometheusHandler, nil
}

// Provider returns the configured provider, or "custom" when a meter
// provider was supplied with [WithMeterProvider].
func (r *Recorder) Provider() Provider {
	if r.customMeterProvider {
		return "custom"
	}
	return r.provider
}

// ServiceName returns the service name.
func (r *Recorder) ServiceName() string { return r.serviceName }

// ServiceVersion returns the service version.
func (r *Recorder) ServiceVersion() string { return r.serviceVersion }

// ForceFlush exports pending data for push providers.
func (r *Recorder) ForceFlush(ctx context.Context) error {
	if r.isShuttingDown.Load() {
		return nil
	}
	if mp, ok := r.meterProvider.(*sdkmetric.MeterProvider); ok {
		if err := mp.ForceFlush(ctx); err != nil {
			return fmt.Errorf("metrics force flush: %w", err)
		}
	}
	return nil
}

// Shutdown flushes and stops the meter provider. Providers supplied with
// [WithMeterProvider] are left to their owner. Safe to call more than once.
func (r *Recorder) Shutdown(ctx context.Context) error {
	if !r.isShuttingDown.CompareAndSwap(false, true) {
		return nil
	}
	if r.customMeterProvider {
		r.emitDebug("skipping shutdown of custom meter provider")
		return nil
	}

	mp, ok := r.meterProvider.(*sdkmetric.MeterProvider)
	if !ok {
		return nil
	}
	if err := mp.ForceFlush(ctx); err != nil {
		r.emitWarning("metrics flush warning", "error", err)
	}
	if err := mp.Shutdown(ctx); err != nil {
		return fmt.Errorf("meter provider shutdown: %w", err)
	}
	return nil
}

func (r *Recorder) emit(t EventType, msg string, args ...any) {
	if r.eventHandler != nil {
		r.eventHandler(Event{Type: t, Message: msg, Args: args})
	}
}

func (r *Recorder) emitWarning(msg string, args ...any) { r.emit(EventWarning, msg, args...) }
func (r *Recorder) emitDebug(msg string, args ...any)   { r.emit(EventDebug, msg, args...) }
