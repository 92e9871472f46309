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

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// initializeProvider sets up providers that need no network connection.
func (t *Tracer) initializeProvider() error {
	if t.customTracerProvider {
		return t.useCustomProvider()
	}

	switch t.provider {
	case NoopProvider:
		// Spans are recorded but never exported.
		t.useSDKProvider(sdktrace.NewTracerProvider(
			sdktrace.WithResource(createResource(t.serviceName, t.serviceVersion)),
		))
		return nil
	case StdoutProvider:
		return t.initStdoutProvider()
	default:
		return fmt.Errorf("provider %s requires Start(ctx)", t.provider)
	}
}

// initializeProviderWithContext sets up the OTLP providers.
func (t *Tracer) initializeProviderWithContext(ctx context.Context) error {
	var (
		exporter sdktrace.SpanExporter
		err      error
	)
	switch t.provider {
	case OTLPProvider:
		exporter, err = t.otlpGRPCExporter(ctx)
	case OTLPHTTPProvider:
		exporter, err = t.otlpHTTPExporter(ctx)
	default:
		return fmt.Errorf("provider %s does not require context initialization", t.provider)
	}
	if err != nil {
		return err
	}

	t.useSDKProvider(sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(createResource(t.serviceName, t.serviceVersion)),
	))
	t.emitInfo("tracing initialized", "provider", t.provider, "endpoint", t.otlpEndpoint, "service", t.serviceName)
	return nil
}

func (t *Tracer) useCustomProvider() error {
	if t.tracerProvider == nil {
		return fmt.Errorf("custom tracer provider is nil")
	}
	t.emitDebug("using custom tracer provider")
	t.tracer = t.tracerProvider.Tracer(instrumentationName)
	t.setGlobal(t.tracerProvider)
	return nil
}

func (t *Tracer) useSDKProvider(tp *sdktrace.TracerProvider) {
	t.sdkProvider = tp
	t.tracerProvider = tp
	t.tracer = tp.Tracer(instrumentationName)
	t.setGlobal(tp)
}

func (t *Tracer) initStdoutProvider() error {
	opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
	if t.stdoutWriter != nil {
		opts = append(opts, stdouttrace.WithWriter(t.stdoutWriter))
	}

	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	// Synchronous export keeps stdout output ordered with the request.
	t.useSDKProvider(sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(createResource(t.serviceName, t.serviceVersion)),
	))
	t.emitInfo("tracing initialized", "provider", "stdout", "service", t.serviceName)
	return nil
}

func (t *Tracer) otlpGRPCExporter(ctx context.Context) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(t.otlpEndpoint)}
	if t.otlpInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP gRPC exporter: %w", err)
	}
	return exporter, nil
}

func (t *Tracer) otlpHTTPExporter(ctx context.Context) (sdktrace.SpanExporter, error) {
	endpoint := t.otlpEndpoint
	insecure := false
	if rest, ok := strings.CutPrefix(endpoint, "http://"); ok {
		endpoint, insecure = rest, true
	} else {
		endpoint = strings.TrimPrefix(endpoint, "https://")
	}
	if host, _, found := strings.Cut(endpoint, "/"); found {
		endpoint = host
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP HTTP exporter: %w", err)
	}
	return exporter, nil
}

func createResource(serviceName, serviceVersion string) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)
}
