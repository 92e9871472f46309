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
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/typepoint/core/config"
)

//go:embed schema.json
var configSchema []byte

// envPrefix prefixes every environment override, e.g.
// DISPATCHD_SERVER_ADDR=:8081.
const envPrefix = "DISPATCHD_"

// Config is the daemon configuration. Keys are single words so that the
// environment source, which nests on underscores, can reach every field.
type Config struct {
	Service     ServiceConfig     `config:"service"`
	Server      ServerConfig      `config:"server"`
	Admin       AdminConfig       `config:"admin"`
	Logging     LoggingConfig     `config:"logging"`
	Tracing     TracingConfig     `config:"tracing"`
	Metrics     MetricsConfig     `config:"metrics"`
	Errors      ErrorsConfig      `config:"errors"`
	Compression CompressionConfig `config:"compression"`
	CORS        CORSConfig        `config:"cors"`
}

type ServiceConfig struct {
	Name        string `config:"name" default:"dispatchd" validate:"required"`
	Version     string `config:"version" default:"dev" validate:"required"`
	Environment string `config:"environment" default:"development" validate:"oneof=development staging production"`
	Banner      bool   `config:"banner"`
}

type ServerConfig struct {
	Addr      string        `config:"addr" default:":8080" validate:"required"`
	Transport string        `config:"transport" default:"http" validate:"oneof=http conn"`
	Timeout   TimeoutConfig `config:"timeout"`
}

type TimeoutConfig struct {
	Read     time.Duration `config:"read" default:"5s" validate:"gt=0"`
	Write    time.Duration `config:"write" default:"10s" validate:"gt=0"`
	Shutdown time.Duration `config:"shutdown" default:"15s" validate:"gt=0"`
}

type AdminConfig struct {
	Addr    string `config:"addr" default:":9090"`
	Enabled bool   `config:"enabled"`
}

type LoggingConfig struct {
	Handler string   `config:"handler" default:"json" validate:"oneof=json text console"`
	Level   string   `config:"level" default:"info" validate:"oneof=debug info warn error"`
	Redact  []string `config:"redact"`
	Access  bool     `config:"access"`
}

type TracingConfig struct {
	Provider string  `config:"provider" default:"noop" validate:"oneof=noop stdout otlp otlp-http"`
	Endpoint string  `config:"endpoint"`
	Rate     float64 `config:"rate" default:"1" validate:"gte=0,lte=1"`
}

type MetricsConfig struct {
	Provider string   `config:"provider" default:"prometheus" validate:"oneof=prometheus otlp stdout"`
	Endpoint string   `config:"endpoint"`
	Exclude  []string `config:"exclude" default:"/healthz"`
}

type ErrorsConfig struct {
	Format  string `config:"format" default:"plain" validate:"oneof=plain simple rfc9457"`
	BaseURL string `config:"baseurl" validate:"omitempty,url"`
}

type CompressionConfig struct {
	Enabled   bool `config:"enabled"`
	Threshold int  `config:"threshold" default:"1024" validate:"gte=0"`
}

type CORSConfig struct {
	Origins []string `config:"origins"`
}

// Validate checks constraints spanning several fields.
func (c *Config) Validate() error {
	if c.Admin.Enabled && c.Admin.Addr == c.Server.Addr {
		return fmt.Errorf("admin.addr %q collides with server.addr", c.Admin.Addr)
	}
	if c.Metrics.Provider == "otlp" && c.Metrics.Endpoint == "" {
		return fmt.Errorf("metrics.endpoint is required for the otlp provider")
	}
	return nil
}

// loadConfig reads path (optional), then the extra sources, then the
// DISPATCHD_ environment. Later sources override earlier ones.
func loadConfig(ctx context.Context, path string, extra ...config.Option) (*Config, error) {
	var cfg Config
	opts := make([]config.Option, 0, 4+len(extra))
	if path != "" {
		opts = append(opts, config.WithFile(path))
	}
	opts = append(opts, extra...)
	opts = append(opts,
		config.WithEnv(envPrefix),
		config.WithJSONSchema(configSchema),
		config.WithBinding(&cfg),
	)

	loader, err := config.New(opts...)
	if err != nil {
		return nil, err
	}
	if err = loader.Load(ctx); err != nil {
		return nil, err
	}
	return &cfg, nil
}
