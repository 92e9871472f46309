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
	"encoding/json"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"
)

// Supported document formats.
const (
	TypeYAML Type = "yaml"
	TypeTOML Type = "toml"
	TypeJSON Type = "json"
)

func init() {
	RegisterDecoder(TypeYAML, DecoderFunc(func(data []byte, v any) error {
		return yaml.Unmarshal(data, v)
	}))
	RegisterDecoder(TypeTOML, DecoderFunc(toml.Unmarshal))
	RegisterDecoder(TypeJSON, DecoderFunc(json.Unmarshal))
	RegisterDecoder(TypeEnvVar, DecoderFunc(decodeEnv))
}
