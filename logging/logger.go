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

package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// HandlerType represents the type of logging handler.
type HandlerType string

const (
	// JSONHandler outputs structured JSON logs.
	JSONHandler HandlerType = "json"
	// TextHandler outputs key=value text logs.
	TextHandler HandlerType = "text"
	// ConsoleHandler outputs human-readable colored logs.
	ConsoleHandler HandlerType = "console"
)

// Level represents log level.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// redacted replaces the value of sensitive attributes.
const redacted = "***REDACTED***"

var defaultRedactKeys = []string{"password", "token", "secret", "api_key", "authorization"}

// ParseLevel converts a level name ("debug", "info", "warn", "error") to a Level.
func ParseLevel(s string) (Level, error) {
	var level Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
	return level, nil
}

// Logger provides structured logging on top of [slog].
//
// Thread-safety: All public methods are safe for concurrent use.
type Logger struct {
	handlerType HandlerType
	output      io.Writer
	level       slog.LevelVar

	// Added to every entry when set
	serviceName    string
	serviceVersion string
	environment    string

	addSource   bool
	redactKeys  map[string]struct{}
	replaceAttr func(groups []string, a slog.Attr) slog.Attr

	customLogger *slog.Logger
	useCustom    bool

	registerGlobal bool
	slogger        *slog.Logger
	isShuttingDown atomic.Bool
}

// Option is a functional option for configuring the logger.
type Option func(*Logger)

// defaultLogger returns a Logger with default configuration.
func defaultLogger() *Logger {
	l := &Logger{
		handlerType: JSONHandler,
		output:      os.Stdout,
		redactKeys:  make(map[string]struct{}, len(defaultRedactKeys)),
	}
	l.level.Set(LevelInfo)
	for _, k := range defaultRedactKeys {
		l.redactKeys[k] = struct{}{}
	}
	return l
}

// New creates a new Logger with the given options.
//
// By default, this function does NOT set the global slog default logger.
// Use WithGlobalLogger() to register it.
func New(opts ...Option) (*Logger, error) {
	l := defaultLogger()

	for _, opt := range opts {
		opt(l)
	}

	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	l.slogger = l.build()
	if l.registerGlobal {
		slog.SetDefault(l.slogger)
	}
	return l, nil
}

// MustNew creates a new Logger or panics on error.
func MustNew(opts ...Option) *Logger {
	l, err := New(opts...)
	if err != nil {
		panic("logging initialization failed: " + err.Error())
	}
	return l
}

// Validate checks if the configuration is valid.
func (l *Logger) Validate() error {
	if l.useCustom {
		if l.customLogger == nil {
			return ErrNilLogger
		}
		return nil
	}

	if l.output == nil {
		return ErrNilOutput
	}

	switch l.handlerType {
	case JSONHandler, TextHandler, ConsoleHandler:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrInvalidHandler, l.handlerType)
	}
}

func (l *Logger) build() *slog.Logger {
	if l.useCustom {
		return l.customLogger
	}

	opts := &slog.HandlerOptions{
		Level:       &l.level,
		AddSource:   l.addSource,
		ReplaceAttr: l.buildReplaceAttr(),
	}

	var handler slog.Handler
	switch l.handlerType {
	case TextHandler:
		handler = slog.NewTextHandler(l.output, opts)
	case ConsoleHandler:
		handler = newConsoleHandler(l.output, opts)
	default:
		handler = slog.NewJSONHandler(l.output, opts)
	}

	logger := slog.New(handler)

	var attrs []any
	if l.serviceName != "" {
		attrs = append(attrs, "service", l.serviceName)
	}
	if l.serviceVersion != "" {
		attrs = append(attrs, "version", l.serviceVersion)
	}
	if l.environment != "" {
		attrs = append(attrs, "env", l.environment)
	}
	if len(attrs) > 0 {
		logger = logger.With(attrs...)
	}
	return logger
}

// buildReplaceAttr redacts sensitive keys, then applies the user replacer.
func (l *Logger) buildReplaceAttr() func(groups []string, a slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if _, ok := l.redactKeys[strings.ToLower(a.Key)]; ok {
			return slog.String(a.Key, redacted)
		}
		if l.replaceAttr != nil {
			return l.replaceAttr(groups, a)
		}
		return a
	}
}

// Logger returns the underlying [slog.Logger].
func (l *Logger) Logger() *slog.Logger {
	return l.slogger
}

// With returns a [slog.Logger] with additional attributes.
func (l *Logger) With(args ...any) *slog.Logger {
	return l.slogger.With(args...)
}

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	if l.isShuttingDown.Load() {
		return
	}
	ctx := context.Background()
	if !l.slogger.Enabled(ctx, level) {
		return
	}
	l.slogger.Log(ctx, level, msg, args...)
}

// Debug logs a debug message with structured attributes.
func (l *Logger) Debug(msg string, args ...any) { l.log(LevelDebug, msg, args...) }

// Info logs an informational message with structured attributes.
func (l *Logger) Info(msg string, args ...any) { l.log(LevelInfo, msg, args...) }

// Warn logs a warning message with structured attributes.
func (l *Logger) Warn(msg string, args ...any) { l.log(LevelWarn, msg, args...) }

// Error logs an error message with structured attributes.
func (l *Logger) Error(msg string, args ...any) { l.log(LevelError, msg, args...) }

// Sink returns a free-form diagnostic sink backed by this logger.
//
// The arguments are joined with spaces into the message. Lines containing
// an error argument are logged at error level with the error attached under
// "error"; all others at debug level.
func (l *Logger) Sink() func(args ...any) {
	return func(args ...any) {
		level := LevelDebug
		var attrs []any
		parts := make([]string, 0, len(args))
		for _, arg := range args {
			if err, ok := arg.(error); ok {
				level = LevelError
				attrs = append(attrs, "error", err.Error())
			}
			parts = append(parts, strings.TrimSpace(fmt.Sprint(arg)))
		}
		l.log(level, strings.Join(parts, " "), attrs...)
	}
}

// SetLevel changes the minimum log level at runtime.
// Not supported with custom loggers.
func (l *Logger) SetLevel(level Level) error {
	if l.useCustom {
		return ErrCannotChangeLevel
	}
	l.level.Set(level)
	return nil
}

// Level returns the current minimum log level.
func (l *Logger) Level() Level {
	return l.level.Level()
}

// ServiceName returns the service name.
func (l *Logger) ServiceName() string { return l.serviceName }

// Shutdown stops the logger. Later log calls are dropped.
func (l *Logger) Shutdown(_ context.Context) error {
	l.isShuttingDown.Store(true)
	if flusher, ok := l.slogger.Handler().(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}
