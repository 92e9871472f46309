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

// Package codec decodes configuration documents into generic maps.
//
// Decoders are registered by Type; YAML, TOML, JSON and environment-variable
// decoders are registered at init.
package codec

import (
	"fmt"
	"sync"
)

// Type represents a codec type identifier.
type Type string

// Decoder converts encoded byte representations into Go values.
// Implementations must be safe for concurrent use.
type Decoder interface {
	// Decode converts the encoded data into the value pointed to by v.
	Decode(data []byte, v any) error
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(data []byte, v any) error

// Decode calls f(data, v).
func (f DecoderFunc) Decode(data []byte, v any) error { return f(data, v) }

var (
	mu       sync.RWMutex
	decoders = make(map[Type]Decoder)
)

// RegisterDecoder registers a decoder for the given type, replacing any
// previous registration.
func RegisterDecoder(name Type, decoder Decoder) {
	mu.Lock()
	defer mu.Unlock()
	decoders[name] = decoder
}

// GetDecoder retrieves the registered decoder for the given type.
func GetDecoder(name Type) (Decoder, error) {
	mu.RLock()
	defer mu.RUnlock()

	decoder, exists := decoders[name]
	if !exists {
		return nil, fmt.Errorf("decoder not found for type: %s", name)
	}
	return decoder, nil
}
