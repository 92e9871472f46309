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

package codec

import (
	"bytes"
	"fmt"
	"strings"
)

// TypeEnvVar identifies the environment-variable decoder.
const TypeEnvVar Type = "env_var"

// decodeEnv decodes newline-separated KEY=value pairs into a nested map.
// Keys are lower-cased and underscores create nesting:
//
//	SERVER_TIMEOUT_READ=5s -> server.timeout.read = "5s"
//
// When a key is both a leaf and a prefix of another key, the nested map wins.
func decodeEnv(data []byte, v any) error {
	ptr, ok := v.(*map[string]any)
	if !ok {
		return fmt.Errorf("env decoder: expected *map[string]any, got %T", v)
	}

	conf := make(map[string]any)
	for _, line := range bytes.Split(data, []byte("\n")) {
		key, value, found := strings.Cut(string(line), "=")
		if !found {
			continue
		}

		var parts []string
		for _, p := range strings.Split(strings.ToLower(strings.TrimSpace(key)), "_") {
			if p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) == 0 {
			continue
		}

		current := conf
		for _, part := range parts[:len(parts)-1] {
			next, isMap := current[part].(map[string]any)
			if !isMap {
				next = make(map[string]any)
				current[part] = next
			}
			current = next
		}

		last := parts[len(parts)-1]
		if _, isMap := current[last].(map[string]any); isMap {
			continue
		}
		current[last] = strings.TrimSpace(value)
	}

	*ptr = conf
	return nil
}
