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

//go:build !integration

package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDecoder(t *testing.T) {
	t.Parallel()

	for _, typ := range []Type{TypeYAML, TypeTOML, TypeJSON, TypeEnvVar} {
		d, err := GetDecoder(typ)
		require.NoError(t, err, typ)
		assert.NotNil(t, d)
	}

	_, err := GetDecoder("ini")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ini")
}

func TestRegisterDecoder(t *testing.T) {
	t.Parallel()

	RegisterDecoder("test-upper", DecoderFunc(func(data []byte, v any) error {
		*(v.(*map[string]any)) = map[string]any{"raw": string(data)}
		return nil
	}))

	d, err := GetDecoder("test-upper")
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, d.Decode([]byte("x"), &out))
	assert.Equal(t, "x", out["raw"])
}

func TestFormats_Decode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ  Type
		data string
	}{
		{TypeYAML, "server:\n  addr: \":8080\"\n  transport: conn\n"},
		{TypeTOML, "[server]\naddr = \":8080\"\ntransport = \"conn\"\n"},
		{TypeJSON, `{"server":{"addr":":8080","transport":"conn"}}`},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			t.Parallel()

			d, err := GetDecoder(tt.typ)
			require.NoError(t, err)

			var out map[string]any
			require.NoError(t, d.Decode([]byte(tt.data), &out))

			server, ok := out["server"].(map[string]any)
			require.True(t, ok, "server is %T", out["server"])
			assert.Equal(t, ":8080", server["addr"])
			assert.Equal(t, "conn", server["transport"])
		})
	}
}

func TestDecodeEnv(t *testing.T) {
	t.Parallel()

	data := []byte("SERVER_ADDR=:9090\nSERVER_TIMEOUT_READ= 5s \nLOG__LEVEL=debug\nBROKEN\n=novalue\nDEBUG=true\nDEBUG_VERBOSE=1")

	var out map[string]any
	require.NoError(t, decodeEnv(data, &out))

	assert.Equal(t, map[string]any{
		"server": map[string]any{
			"addr":    ":9090",
			"timeout": map[string]any{"read": "5s"},
		},
		"log":   map[string]any{"level": "debug"},
		"debug": map[string]any{"verbose": "1"},
	}, out)
}

func TestDecodeEnv_WrongTarget(t *testing.T) {
	t.Parallel()

	var out map[string]string
	require.Error(t, decodeEnv([]byte("A=1"), &out))
}
