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

// Package tracing exports OpenTelemetry spans for dispatched requests.
//
// A [Tracer] implements dispatch.Observer. Each request gets one server
// span, started before the first handler and ended after finalization.
// Every executed handler adds a span event, so the span shows the whole
// continuation chain:
//
//	tracer := tracing.MustNew(
//	    tracing.WithServiceName("dispatchd"),
//	    tracing.WithStdout(os.Stdout),
//	    tracing.WithSampleRate(0.25),
//	)
//	defer tracer.Shutdown(context.Background())
//
//	serve := dispatch.New(r, dispatch.WithObserver(tracer))
//
// Incoming trace context is extracted from the request headers with the
// configured propagator (W3C Trace Context by default), and the span
// context is stored on the request context for handlers.
//
// The OTLP providers dial their collector lazily; call [Tracer.Start]
// before dispatching when using [WithOTLP] or [WithOTLPHTTP].
package tracing
