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

package main

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	apierrors "github.com/typepoint/core/errors"
	"github.com/typepoint/core/middleware/accesslog"
	"github.com/typepoint/core/middleware/compression"
	"github.com/typepoint/core/middleware/cors"
	"github.com/typepoint/core/middleware/recovery"
	"github.com/typepoint/core/middleware/requestid"
	"github.com/typepoint/core/router"
)

// maxEchoBody caps what /echo reads from the request.
const maxEchoBody = 1 << 20

var errUpstream = errors.New("upstream unavailable")

// newRouter registers the global middlewares followed by the demo endpoints.
func newRouter(cfg *Config, logger *slog.Logger, formatter apierrors.Formatter) *router.Router {
	r := router.MustNew(router.WithDiagnostics(router.DiagnosticHandlerFunc(func(e router.DiagnosticEvent) {
		logger.Debug(e.Message, "kind", e.Kind, "fields", e.Fields)
	})))

	r.Use(requestid.New(), router.WithName("requestid"))
	if cfg.Logging.Access {
		r.Use(accesslog.New(
			accesslog.WithLogger(logger),
			accesslog.WithExcludePaths(cfg.Metrics.Exclude...),
			accesslog.WithFormatter(formatter),
		), router.WithName("accesslog"))
	}
	r.Use(recovery.New(recovery.WithLogger(recovery.SlogLogger(logger))), router.WithName("recovery"))
	if len(cfg.CORS.Origins) > 0 {
		r.Use(cors.New(cors.WithAllowedOrigins(cfg.CORS.Origins...)), router.WithName("cors"))
	}
	if cfg.Compression.Enabled {
		r.Use(compression.New(
			compression.WithMinSize(cfg.Compression.Threshold),
			compression.WithLogger(logger),
		), router.WithName("compression"))
	}

	r.UseAt(router.MethodGet, "/hello/*", greeterHeader(cfg.Service.Name), router.WithName("greeter"))

	r.GET("/healthz", healthz, router.WithName("healthz"))
	r.GET("/hello/:name", hello, router.WithName("hello"))
	r.POST("/echo/*rest", echo, router.WithName("echo"))
	r.GET("/fail", fail, router.WithName("fail"))
	r.GET("/panic", func(*router.Context, router.Next) error {
		panic("deliberate panic")
	}, router.WithName("panic"))

	return r
}

func greeterHeader(service string) router.HandlerFunc {
	return func(c *router.Context, next router.Next) error {
		if err := c.Response().SetHeader("X-Greeter", service); err != nil {
			return err
		}
		return next()
	}
}

func healthz(c *router.Context, _ router.Next) error {
	return c.Response().Text(http.StatusOK, "ok")
}

func hello(c *router.Context, _ router.Next) error {
	return c.Response().JSON(http.StatusOK, map[string]string{
		"message":    "hello, " + c.Param("name"),
		"request_id": requestid.Get(c),
	})
}

// echo returns the request body, or the path remainder when the body is empty.
func echo(c *router.Context, _ router.Next) error {
	body, err := io.ReadAll(io.LimitReader(c.Body(), maxEchoBody))
	if err != nil {
		return apierrors.WithStatus(err, http.StatusBadRequest)
	}
	res := c.Response()
	if len(body) == 0 {
		return res.Text(http.StatusOK, c.Param("rest"))
	}
	ct := c.Header().Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	if err = res.SetHeader("Content-Type", ct); err != nil {
		return err
	}
	if err = res.SetStatus(http.StatusOK); err != nil {
		return err
	}
	_, err = res.Write(body)
	return err
}

func fail(*router.Context, router.Next) error {
	return apierrors.WithStatus(errUpstream, http.StatusServiceUnavailable)
}
