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
	"sync/atomic"

	"github.com/hashicorp/consul/api"

	"github.com/typepoint/core/config/codec"
)

// ConsulKV is the subset of the Consul KV API the source needs.
type ConsulKV interface {
	Get(key string, q *api.QueryOptions) (*api.KVPair, *api.QueryMeta, error)
}

// Consul loads one document stored under a key of Consul's KV store.
//
// The default client reads CONSUL_HTTP_ADDR and CONSUL_HTTP_TOKEN from the
// environment.
type Consul struct {
	kv        ConsulKV
	key       string
	decoder   codec.Decoder
	lastIndex atomic.Uint64
}

// NewConsul creates a Consul source for key. A nil kv uses a client built
// from [api.DefaultConfig].
func NewConsul(key string, decoder codec.Decoder, kv ConsulKV) (*Consul, error) {
	if kv == nil {
		client, err := api.NewClient(api.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create consul client: %w", err)
		}
		kv = client.KV()
	}
	return &Consul{kv: kv, key: key, decoder: decoder}, nil
}

// Load fetches and decodes the key. A missing key yields an empty map.
func (c *Consul) Load(ctx context.Context) (map[string]any, error) {
	pair, meta, err := c.kv.Get(c.key, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get consul key %q: %w", c.key, err)
	}
	if meta != nil {
		c.lastIndex.Store(meta.LastIndex)
	}
	if pair == nil {
		return map[string]any{}, nil
	}

	var config map[string]any
	if err = c.decoder.Decode(pair.Value, &config); err != nil {
		return nil, fmt.Errorf("failed to decode consul key %q: %w", c.key, err)
	}
	return config, nil
}

// LastIndex returns the Consul index observed by the last Load.
func (c *Consul) LastIndex() uint64 { return c.lastIndex.Load() }
