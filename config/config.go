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

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"dario.cat/mergo"
	"github.com/go-viper/mapstructure/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/typepoint/core/config/codec"
	"github.com/typepoint/core/config/source"
)

// Option is a functional option that can be used to configure a Config instance.
type Option func(c *Config) error

// Validator is implemented by bound structs that validate themselves.
type Validator interface {
	Validate() error
}

// Config manages configuration data loaded from multiple sources.
//
// Config is safe for concurrent use by multiple goroutines.
type Config struct {
	mu     sync.RWMutex
	values map[string]any

	sources          []Source
	binding          any
	tagName          string // Struct tag for binding (default "config")
	schema           *jsonschema.Schema
	customValidators []func(map[string]any) error
}

// WithSource adds a source to the configuration loader.
func WithSource(src Source) Option {
	return func(c *Config) error {
		if src == nil {
			return errors.New("source cannot be nil")
		}
		c.sources = append(c.sources, src)
		return nil
	}
}

// WithFile loads configuration from a file whose format is detected from
// its extension (.yaml, .yml, .json, .toml). Paths support environment
// variable expansion ("${CONFIG_DIR}/dispatchd.yaml").
func WithFile(path string) Option {
	return func(c *Config) error {
		path = os.ExpandEnv(path)

		format, err := detectFormat(path)
		if err != nil {
			return NewError("file-source", "detect-format", err)
		}
		return WithFileAs(path, format)(c)
	}
}

// WithFileAs loads configuration from a file with an explicit format.
func WithFileAs(path string, codecType codec.Type) Option {
	return func(c *Config) error {
		decoder, err := codec.GetDecoder(codecType)
		if err != nil {
			return NewError("file-source", "get-decoder", err)
		}
		c.sources = append(c.sources, source.NewFile(os.ExpandEnv(path), decoder))
		return nil
	}
}

// WithContent loads configuration from in-memory content.
func WithContent(data []byte, codecType codec.Type) Option {
	return func(c *Config) error {
		decoder, err := codec.GetDecoder(codecType)
		if err != nil {
			return NewError("content-source", "get-decoder", err)
		}
		c.sources = append(c.sources, source.NewFileContent(data, decoder))
		return nil
	}
}

// WithConsul loads a document from Consul's KV store, with the format
// detected from the key's extension ("dispatchd/prod.yaml"). The option is
// a no-op when CONSUL_HTTP_ADDR is unset, so local runs need no Consul.
func WithConsul(key string) Option {
	return func(c *Config) error {
		if os.Getenv("CONSUL_HTTP_ADDR") == "" {
			return nil
		}
		key = os.ExpandEnv(key)

		format, err := detectFormat(key)
		if err != nil {
			return NewError("consul-source", "detect-format", err)
		}
		return WithConsulAs(key, format, nil)(c)
	}
}

// WithConsulAs loads a document from Consul's KV store with an explicit
// format. A nil kv uses the default Consul client.
func WithConsulAs(key string, codecType codec.Type, kv source.ConsulKV) Option {
	return func(c *Config) error {
		decoder, err := codec.GetDecoder(codecType)
		if err != nil {
			return NewError("consul-source", "get-decoder", err)
		}
		src, err := source.NewConsul(key, decoder, kv)
		if err != nil {
			return NewError("consul-source", "create-client", err)
		}
		c.sources = append(c.sources, src)
		return nil
	}
}

// WithEnv loads environment variables starting with prefix. The prefix is
// stripped and underscores create nesting: APP_SERVER_ADDR -> server.addr.
func WithEnv(prefix string) Option {
	return func(c *Config) error {
		c.sources = append(c.sources, source.NewOSEnvVar(prefix))
		return nil
	}
}

// WithBinding binds the loaded configuration to the struct pointed to by v.
func WithBinding(v any) Option {
	return func(c *Config) error {
		if v == nil {
			return errors.New("binding target cannot be nil")
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
			return errors.New("binding target must be a pointer to a struct")
		}
		c.binding = v
		return nil
	}
}

// WithTag sets the struct tag used for binding (default "config").
func WithTag(tagName string) Option {
	return func(c *Config) error {
		if tagName == "" {
			return errors.New("tag name cannot be empty")
		}
		c.tagName = tagName
		return nil
	}
}

// WithJSONSchema validates the merged configuration document against a
// JSON Schema before binding.
func WithJSONSchema(schema []byte) Option {
	return func(c *Config) error {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schema))
		if err != nil {
			return NewError("json-schema", "parse", err)
		}

		const name = "config.schema.json"
		compiler := jsonschema.NewCompiler()
		if err = compiler.AddResource(name, doc); err != nil {
			return NewError("json-schema", "compile", err)
		}
		s, err := compiler.Compile(name)
		if err != nil {
			return NewError("json-schema", "compile", err)
		}
		c.schema = s
		return nil
	}
}

// WithValidator adds a validation function run on the merged document.
func WithValidator(fn func(map[string]any) error) Option {
	return func(c *Config) error {
		if fn == nil {
			return errors.New("validator cannot be nil")
		}
		c.customValidators = append(c.customValidators, fn)
		return nil
	}
}

// New creates a new Config instance with the provided options.
// Option errors are joined and returned together.
func New(options ...Option) (*Config, error) {
	c := &Config{
		values:  map[string]any{},
		tagName: "config",
	}

	var errs error
	for _, option := range options {
		if option == nil {
			continue
		}
		errs = errors.Join(errs, option(c))
	}
	if errs != nil {
		return nil, errs
	}
	return c, nil
}

// MustNew creates a new Config instance and panics if any option fails.
func MustNew(options ...Option) *Config {
	cfg, err := New(options...)
	if err != nil {
		panic(fmt.Sprintf("config: failed to create config: %v", err))
	}
	return cfg
}

// normalizeMapKeys recursively lower-cases all keys.
func normalizeMapKeys(m map[string]any) map[string]any {
	normalized := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			v = normalizeMapKeys(nested)
		}
		normalized[strings.ToLower(k)] = v
	}
	return normalized
}

func (c *Config) loadSources(ctx context.Context) (map[string]any, error) {
	merged := make(map[string]any)
	for i, src := range c.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		conf, err := src.Load(ctx)
		if err != nil {
			return nil, NewError(fmt.Sprintf("source[%d]", i), "load", err)
		}

		if err = mergo.Map(&merged, normalizeMapKeys(conf), mergo.WithOverride); err != nil {
			return nil, NewError(fmt.Sprintf("source[%d]", i), "merge", err)
		}
	}
	return merged, nil
}

// Load reads every source, validates the merged document and binds it.
// Nothing is changed unless every step succeeds.
//
// Errors:
//   - Returns [*Error] if any source fails to load or merge
//   - Returns [*Error] if JSON schema validation or a custom validator fails
//   - Returns [*Error] if binding, defaults or struct validation fail
func (c *Config) Load(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context cannot be nil")
	}

	values, err := c.loadSources(ctx)
	if err != nil {
		return err
	}

	if c.schema != nil {
		if err = c.schema.Validate(values); err != nil {
			return NewError("json-schema", "validate", err)
		}
	}

	for i, fn := range c.customValidators {
		if err = fn(values); err != nil {
			return NewError(fmt.Sprintf("custom-validator[%d]", i), "validate", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.binding != nil {
		if err = c.bind(values); err != nil {
			return err
		}
	}

	c.values = values
	return nil
}

// MustLoad loads configuration or panics on error.
func (c *Config) MustLoad(ctx context.Context) {
	if err := c.Load(ctx); err != nil {
		panic(err)
	}
}

// bind decodes values into a fresh copy of the binding, applies defaults,
// validates, and only then replaces the caller's struct.
func (c *Config) bind(values map[string]any) error {
	target := reflect.ValueOf(c.binding).Elem()
	temp := reflect.New(target.Type())

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          c.tagName,
		Squash:           true,
		WeaklyTypedInput: true,
		Result:           temp.Interface(),
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
	})
	if err != nil {
		return NewError("binding", "bind", err)
	}
	if err = decoder.Decode(values); err != nil {
		return NewError("binding", "bind", err)
	}

	if err = applyDefaults(temp.Interface()); err != nil {
		return NewError("binding", "defaults", err)
	}

	if err = validateStruct(temp.Interface(), c.tagName); err != nil {
		return NewError("binding", "validate", err)
	}
	if v, ok := temp.Interface().(Validator); ok {
		if err = v.Validate(); err != nil {
			return NewError("binding", "validate", err)
		}
	}

	target.Set(temp.Elem())
	return nil
}

// Values returns a copy of the top level of the merged configuration.
func (c *Config) Values() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// lookup resolves a case-insensitive dot-separated key.
func (c *Config) lookup(path string) any {
	if c == nil || path == "" {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	path = strings.ToLower(path)
	if val, ok := c.values[path]; ok {
		return val
	}

	current := c.values
	segments := strings.Split(path, ".")
	for i, segment := range segments {
		val, ok := current[segment]
		if !ok {
			return nil
		}
		if i == len(segments)-1 {
			return val
		}
		if current, ok = val.(map[string]any); !ok {
			return nil
		}
	}
	return nil
}
