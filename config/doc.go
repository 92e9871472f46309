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

// Package config loads layered configuration for the dispatchd daemon and
// any embedding application.
//
// Sources are merged in order, later sources overriding earlier ones, and
// all keys are case-insensitive:
//
//	var cfg AppConfig
//	c := config.MustNew(
//	    config.WithFile("dispatchd.yaml"),  // YAML, TOML or JSON by extension
//	    config.WithConsul("dispatchd/prod.yaml"), // skipped without CONSUL_HTTP_ADDR
//	    config.WithEnv("DISPATCHD_"),       // DISPATCHD_SERVER_ADDR -> server.addr
//	    config.WithBinding(&cfg),
//	)
//	if err := c.Load(ctx); err != nil {
//	    return err
//	}
//
// # Struct Binding
//
// Bound structs use the "config" tag for key names, the "default" tag for
// values applied to zero fields, and go-playground/validator "validate"
// tags checked after binding:
//
//	type ServerConfig struct {
//	    Addr      string        `config:"addr" default:":8080" validate:"required"`
//	    Transport string        `config:"transport" default:"http" validate:"oneof=http conn"`
//	    Timeout   time.Duration `config:"timeout" default:"30s"`
//	}
//
// A bound struct implementing [Validator] has its Validate method called
// last. [WithJSONSchema] validates the merged document before binding.
//
// # Accessors
//
// Values are also available by dot-separated key, converted with spf13/cast:
//
//	c.String("server.addr")
//	c.DurationOr("server.timeout.read", 5*time.Second)
//	config.Get[int](c, "metrics.port")
package config
