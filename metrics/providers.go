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
	"fmt"
	"strings"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// initializeProvider builds the meter provider for the configured provider,
// then the instruments.
func (r *Recorder) initializeProvider() error {
	if r.customMeterProvider {
		if r.meterProvider == nil {
			return fmt.Errorf("custom meter provider is nil")
		}
		r.meter = r.meterProvider.Meter(instrumentationName)
		return r.initializeInstruments()
	}

	var (
		mp  *sdkmetric.MeterProvider
		err error
	)
	switch r.provider {
	case PrometheusProvider:
		mp, err = r.prometheusMeterProvider()
	case OTLPProvider:
		mp, err = r.otlpMeterProvider()
	case StdoutProvider:
		mp, err = r.stdoutMeterProvider()
	default:
		err = fmt.Errorf("unsupported metrics provider: %s", r.provider)
	}
	if err != nil {
		return err
	}

	r.meterProvider = mp
	if r.registerGlobal {
		r.emitDebug("setting global OpenTelemetry meter provider", "provider", r.provider)
		otel.SetMeterProvider(mp)
	}

	r.meter = mp.Meter(instrumentationName)
	return r.initializeInstruments()
}

// prometheusMeterProvider exports into a private registry so several
// recorders can coexist in one process.
func (r *Recorder) prometheusMeterProvider() (*sdkmetric.MeterProvider, error) {
	r.prometheusRegistry = promclient.NewRegistry()

	exporter, err := prometheus.New(prometheus.WithRegisterer(r.prometheusRegistry))
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	r.prometheusHandler = promhttp.HandlerFor(r.prometheusRegistry, promhttp.HandlerOpts{})
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)), nil
}

func (r *Recorder) otlpMeterProvider() (*sdkmetric.MeterProvider, error) {
	var opts []otlpmetrichttp.Option

	endpoint := r.otlpEndpoint
	insecure := false
	if rest, ok := strings.CutPrefix(endpoint, "http://"); ok {
		endpoint, insecure = rest, true
	} else {
		endpoint = strings.TrimPrefix(endpoint, "https://")
	}
	if host, _, found := strings.Cut(endpoint, "/"); found {
		endpoint = host
	}

	opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
	if insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(r.exportInterval))
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)), nil
}

func (r *Recorder) stdoutMeterProvider() (*sdkmetric.MeterProvider, error) {
	var opts []stdoutmetric.Option
	if r.stdoutWriter != nil {
		opts = append(opts, stdoutmetric.WithWriter(r.stdoutWriter))
	}

	exporter, err := stdoutmetric.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(r.exportInterval))
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)), nil
}
