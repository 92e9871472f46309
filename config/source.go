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

package config

import "context"

// Source defines the interface for configuration sources.
//
// Load must be safe to call concurrently.
type Source interface {
	// Load returns the configuration key-value pairs of the source.
	Load(ctx context.Context) (map[string]any, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (map[string]any, error)

// Load calls f(ctx).
func (f SourceFunc) Load(ctx context.Context) (map[string]any, error) { return f(ctx) }
