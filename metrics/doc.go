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

// Package metrics records OpenTelemetry metrics for dispatched requests.
//
// A [Recorder] is a dispatch.Observer. Register it on the dispatcher and
// mount its Prometheus handler wherever metrics are scraped:
//
//	recorder := metrics.MustNew(
//	    metrics.WithServiceName("dispatchd"),
//	    metrics.WithExcludePaths("/healthz"),
//	)
//	defer recorder.Shutdown(context.Background())
//
//	serve := dispatch.New(r, dispatch.WithObserver(recorder))
//	handler, _ := recorder.Handler()
//	adminMux.Handle("/metrics", handler)
//
// # Instruments
//
//   - dispatch_requests_total: finished requests by method, route, status and outcome
//   - dispatch_request_duration_seconds: dispatch latency histogram
//   - dispatch_requests_active: requests in flight
//   - dispatch_response_size_bytes: flushed body sizes
//   - dispatch_handler_invocations_total: executed actions by route name and kind
//   - dispatch_faults_total: handler faults by route, split by whether the
//     response had already been sent
//
// Routes are labeled by their registered name, never by the raw path, so
// label cardinality is bounded by the route table.
//
// # Providers
//
// Three providers are supported:
//   - [PrometheusProvider] (default): pull, served by [Recorder.Handler]
//   - [OTLPProvider]: push to an OTLP/HTTP collector
//   - [StdoutProvider]: periodic dump for development
//
// By default the global OpenTelemetry meter provider is left untouched.
// Use [WithGlobalMeterProvider] to register it.
package metrics
