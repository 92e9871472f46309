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

package source

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/typepoint/core/config/codec"
)

// OSEnvVar loads configuration from environment variables carrying a prefix.
// The prefix is stripped, names are lower-cased and underscores create
// nested keys: with prefix "DISPATCHD_", DISPATCHD_SERVER_ADDR becomes
// server.addr.
type OSEnvVar struct {
	prefix  string
	environ func() []string
	decoder codec.Decoder
}

// NewOSEnvVar creates an environment source reading os.Environ.
func NewOSEnvVar(prefix string) *OSEnvVar {
	return NewEnvVar(prefix, os.Environ)
}

// NewEnvVar creates an environment source reading the given KEY=value list.
func NewEnvVar(prefix string, environ func() []string) *OSEnvVar {
	decoder, err := codec.GetDecoder(codec.TypeEnvVar)
	if err != nil {
		panic(err) // registered by codec at init
	}
	return &OSEnvVar{
		prefix:  prefix,
		environ: environ,
		decoder: decoder,
	}
}

// Load reads the matching variables and decodes them into a nested map.
func (e *OSEnvVar) Load(_ context.Context) (map[string]any, error) {
	env := e.environ()
	matched := make([]string, 0, len(env))
	for _, kv := range env {
		if rest, ok := strings.CutPrefix(kv, e.prefix); ok {
			matched = append(matched, rest)
		}
	}

	var config map[string]any
	if err := e.decoder.Decode([]byte(strings.Join(matched, "\n")), &config); err != nil {
		return nil, fmt.Errorf("failed to decode environment variables: %w", err)
	}
	return config, nil
}
