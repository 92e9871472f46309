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

// Package source provides configuration sources: files, in-memory documents
// and environment variables.
package source

import (
	"context"
	"fmt"
	"os"

	"github.com/typepoint/core/config/codec"
)

// File loads configuration from a file path or from in-memory content.
type File struct {
	path    string
	data    []byte
	decoder codec.Decoder
}

// NewFile creates a source that reads and decodes the file at path on
// every Load.
func NewFile(path string, decoder codec.Decoder) *File {
	return &File{
		path:    path,
		decoder: decoder,
	}
}

// NewFileContent creates a source that decodes the provided bytes.
func NewFileContent(data []byte, decoder codec.Decoder) *File {
	return &File{
		data:    data,
		decoder: decoder,
	}
}

// Load decodes the file contents into a map.
//
// Errors:
//   - Returns error if the file cannot be read (NewFile only)
//   - Returns error if decoding fails
func (f *File) Load(context.Context) (map[string]any, error) {
	data := f.data
	if f.path != "" {
		var err error
		data, err = os.ReadFile(f.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
	}

	var config map[string]any
	if err := f.decoder.Decode(data, &config); err != nil {
		return nil, fmt.Errorf("failed to decode file: %w", err)
	}
	return config, nil
}
