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

// Package logging configures the structured slog loggers used across the
// dispatch core, its middlewares and the dispatchd daemon.
//
// A Logger wraps a [slog.Logger] built from one of three handlers (JSON,
// text, or a colored console handler for development), stamps service
// metadata on every entry and redacts sensitive keys:
//
//	logger := logging.MustNew(
//	    logging.WithConsoleHandler(),
//	    logging.WithServiceName("dispatchd"),
//	    logging.WithLevel(logging.LevelDebug),
//	)
//	logger.Info("listening", "addr", ":8080")
//
// The free-form diagnostic sink expected by the dispatcher is derived with
// [Logger.Sink]:
//
//	fn := dispatch.New(r, dispatch.WithLog(logger.Sink()))
//
// [WithTrace] adds the trace and span IDs of the active OpenTelemetry span
// to a logger so that log lines can be joined with traces.
package logging
