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

// Command dispatchd serves a small demo API through the dispatch core.
//
// Usage:
//
//	dispatchd -config dispatchd.yaml [-consul-key dispatchd/prod.yaml]
//
// A Consul document overrides the file. Every key can then be overridden
// from the environment with the DISPATCHD_ prefix, e.g.
// DISPATCHD_SERVER_ADDR=:8081 or DISPATCHD_TRACING_PROVIDER=stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/typepoint/core/adapter/conn"
	"github.com/typepoint/core/adapter/nethttp"
	"github.com/typepoint/core/config"
	"github.com/typepoint/core/dispatch"
	apierrors "github.com/typepoint/core/errors"
	"github.com/typepoint/core/logging"
	"github.com/typepoint/core/metrics"
	"github.com/typepoint/core/tracing"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML, TOML or JSON configuration file")
	consulKey := flag.String("consul-key", "", "Consul KV key holding a configuration document (needs CONSUL_HTTP_ADDR)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *consulKey); err != nil {
		log.Fatalf("dispatchd: %v", err)
	}
}

func run(ctx context.Context, configPath, consulKey string) error {
	var sources []config.Option
	if consulKey != "" {
		sources = append(sources, config.WithConsul(consulKey))
	}
	cfg, err := loadConfig(ctx, configPath, sources...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	lg, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	logger := lg.Logger()

	rec, err := newMetrics(cfg, logger)
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}
	tr, err := newTracer(cfg, logger)
	if err != nil {
		return fmt.Errorf("create tracer: %w", err)
	}
	if err = tr.Start(ctx); err != nil {
		return fmt.Errorf("start tracing: %w", err)
	}

	formatter := newFormatter(cfg)
	r := newRouter(cfg, logger, formatter)
	fn := dispatch.New(r,
		dispatch.WithLog(lg.Sink()),
		dispatch.WithLogger(logger),
		dispatch.WithErrorFormatter(formatter),
		dispatch.WithObserver(rec, tr),
	)

	if cfg.Service.Banner {
		printBanner(os.Stdout, cfg, r, rec, tr)
	}

	serveErr := make(chan error, 2)
	var admin *http.Server
	if cfg.Admin.Enabled {
		admin, err = newAdminServer(cfg, rec)
		if err != nil {
			return err
		}
		go func() {
			logger.Info("admin server starting", "address", admin.Addr)
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- fmt.Errorf("admin server: %w", err)
			}
		}()
	}

	shutdownServer, err := serve(ctx, cfg, fn, logger, serveErr)
	if err != nil {
		return err
	}

	select {
	case err = <-serveErr:
	case <-ctx.Done():
		logger.Info("server shutting down", "reason", context.Cause(ctx))
	}

	// ctx is already canceled here; the shutdown gets its own deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout.Shutdown)
	defer cancel()

	errs := []error{err, shutdownServer(shutdownCtx)}
	if admin != nil {
		errs = append(errs, admin.Shutdown(shutdownCtx))
	}
	if serr := rec.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("metrics shutdown failed", "error", serr)
	}
	if serr := tr.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("tracing shutdown failed", "error", serr)
	}
	logger.Info("server exited")
	_ = lg.Shutdown(shutdownCtx)
	return errors.Join(errs...)
}

// serve starts the public listener on the configured transport and returns
// the function that stops it.
func serve(ctx context.Context, cfg *Config, fn dispatch.Func, logger *slog.Logger, serveErr chan<- error) (func(context.Context) error, error) {
	logger.Info("server starting",
		"address", cfg.Server.Addr,
		"transport", cfg.Server.Transport,
		"environment", cfg.Service.Environment,
	)

	switch cfg.Server.Transport {
	case "conn":
		ln, err := net.Listen("tcp", cfg.Server.Addr)
		if err != nil {
			return nil, fmt.Errorf("listen: %w", err)
		}
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := conn.Serve(ctx, ln, fn,
				conn.WithReadTimeout(cfg.Server.Timeout.Read),
				conn.WithWriteTimeout(cfg.Server.Timeout.Write),
				conn.WithLogger(logger),
			); err != nil {
				serveErr <- fmt.Errorf("conn server: %w", err)
			}
		}()
		return func(ctx context.Context) error {
			_ = ln.Close()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return fmt.Errorf("conn server forced to shutdown: %w", ctx.Err())
			}
		}, nil

	default:
		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           nethttp.Handler(fn),
			ReadTimeout:       cfg.Server.Timeout.Read,
			ReadHeaderTimeout: cfg.Server.Timeout.Read,
			WriteTimeout:      cfg.Server.Timeout.Write,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- fmt.Errorf("http server: %w", err)
			}
		}()
		return func(ctx context.Context) error {
			if err := srv.Shutdown(ctx); err != nil {
				return fmt.Errorf("http server forced to shutdown: %w", err)
			}
			return nil
		}, nil
	}
}

func newLogger(cfg *Config) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	opts := []logging.Option{
		logging.WithHandlerType(logging.HandlerType(cfg.Logging.Handler)),
		logging.WithLevel(level),
		logging.WithServiceName(cfg.Service.Name),
		logging.WithServiceVersion(cfg.Service.Version),
		logging.WithEnvironment(cfg.Service.Environment),
	}
	if len(cfg.Logging.Redact) > 0 {
		opts = append(opts, logging.WithRedactKeys(cfg.Logging.Redact...))
	}
	return logging.New(opts...)
}

func newFormatter(cfg *Config) apierrors.Formatter {
	switch cfg.Errors.Format {
	case "simple":
		return apierrors.NewSimple()
	case "rfc9457":
		return apierrors.NewRFC9457(cfg.Errors.BaseURL)
	default:
		return apierrors.NewPlain()
	}
}

func newMetrics(cfg *Config, logger *slog.Logger) (*metrics.Recorder, error) {
	opts := []metrics.Option{
		metrics.WithServiceName(cfg.Service.Name),
		metrics.WithServiceVersion(cfg.Service.Version),
		metrics.WithLogger(logger),
		metrics.WithExcludePaths(cfg.Metrics.Exclude...),
	}
	switch cfg.Metrics.Provider {
	case "otlp":
		opts = append(opts, metrics.WithOTLP(cfg.Metrics.Endpoint))
	case "stdout":
		opts = append(opts, metrics.WithStdout(os.Stdout))
	default:
		opts = append(opts, metrics.WithPrometheus())
	}
	return metrics.New(opts...)
}

func newTracer(cfg *Config, logger *slog.Logger) (*tracing.Tracer, error) {
	opts := []tracing.Option{
		tracing.WithServiceName(cfg.Service.Name),
		tracing.WithServiceVersion(cfg.Service.Version),
		tracing.WithSampleRate(cfg.Tracing.Rate),
		tracing.WithLogger(logger),
		tracing.WithExcludePaths(cfg.Metrics.Exclude...),
	}
	switch cfg.Tracing.Provider {
	case "stdout":
		opts = append(opts, tracing.WithStdout(os.Stdout))
	case "otlp":
		var otlpOpts []tracing.OTLPOption
		if cfg.Service.Environment == "development" {
			otlpOpts = append(otlpOpts, tracing.OTLPInsecure())
		}
		opts = append(opts, tracing.WithOTLP(cfg.Tracing.Endpoint, otlpOpts...))
	case "otlp-http":
		opts = append(opts, tracing.WithOTLPHTTP(cfg.Tracing.Endpoint))
	default:
		opts = append(opts, tracing.WithNoop())
	}
	return tracing.New(opts...)
}

// newAdminServer exposes operational endpoints on a separate listener.
func newAdminServer(cfg *Config, rec *metrics.Recorder) (*http.Server, error) {
	mux := http.NewServeMux()
	if rec.Provider() == metrics.PrometheusProvider {
		h, err := rec.Handler()
		if err != nil {
			return nil, fmt.Errorf("metrics handler: %w", err)
		}
		mux.Handle("GET /metrics", h)
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return &http.Server{
		Addr:              cfg.Admin.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.Server.Timeout.Read,
	}, nil
}
