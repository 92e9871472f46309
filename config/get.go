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
	"fmt"
	"time"

	"github.com/spf13/cast"
)

// Get returns the value at key converted to T, or the zero value of T when
// the key is missing or cannot be converted.
//
//	addr := config.Get[string](cfg, "server.addr")
//	read := config.Get[time.Duration](cfg, "server.timeout.read")
func Get[T any](c *Config, key string) T {
	v, _ := GetE[T](c, key)
	return v
}

// GetOr returns the value at key converted to T, or defaultVal.
func GetOr[T any](c *Config, key string, defaultVal T) T {
	v, err := GetE[T](c, key)
	if err != nil {
		return defaultVal
	}
	return v
}

// GetE returns the value at key converted to T. It fails when the key is
// missing or the value does not convert.
func GetE[T any](c *Config, key string) (T, error) {
	var zero T
	if c == nil {
		return zero, fmt.Errorf("config instance is nil")
	}

	val := c.lookup(key)
	if val == nil {
		return zero, fmt.Errorf("key %q not found", key)
	}
	if result, ok := val.(T); ok {
		return result, nil
	}

	result, err := convertTo[T](val)
	if err != nil {
		return zero, fmt.Errorf("key %q: %w", key, err)
	}
	return result, nil
}

// convertTo converts common scalar, slice and map types through cast.
func convertTo[T any](val any) (T, error) {
	var zero T
	var (
		result any
		err    error
	)

	switch any(zero).(type) {
	case string:
		result, err = cast.ToStringE(val)
	case int:
		result, err = cast.ToIntE(val)
	case int64:
		result, err = cast.ToInt64E(val)
	case int32:
		result, err = cast.ToInt32E(val)
	case uint:
		result, err = cast.ToUintE(val)
	case uint64:
		result, err = cast.ToUint64E(val)
	case float64:
		result, err = cast.ToFloat64E(val)
	case bool:
		result, err = cast.ToBoolE(val)
	case []string:
		result, err = cast.ToStringSliceE(val)
	case []int:
		result, err = cast.ToIntSliceE(val)
	case map[string]any:
		result, err = cast.ToStringMapE(val)
	case map[string]string:
		result, err = cast.ToStringMapStringE(val)
	case time.Duration:
		result, err = cast.ToDurationE(val)
	case time.Time:
		result, err = cast.ToTimeE(val)
	default:
		return zero, fmt.Errorf("unsupported target type %T", zero)
	}
	if err != nil {
		return zero, err
	}

	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("cannot convert %T to %T", val, zero)
	}
	return typed, nil
}

// Get returns the raw value at key, or nil.
func (c *Config) Get(key string) any {
	return c.lookup(key)
}

// Has reports whether key is present.
func (c *Config) Has(key string) bool {
	return c.lookup(key) != nil
}

// String returns the value at key as a string.
func (c *Config) String(key string) string { return Get[string](c, key) }

// StringOr returns the value at key as a string, or defaultVal.
func (c *Config) StringOr(key, defaultVal string) string { return GetOr(c, key, defaultVal) }

// Int returns the value at key as an int.
func (c *Config) Int(key string) int { return Get[int](c, key) }

// IntOr returns the value at key as an int, or defaultVal.
func (c *Config) IntOr(key string, defaultVal int) int { return GetOr(c, key, defaultVal) }

// Bool returns the value at key as a bool.
func (c *Config) Bool(key string) bool { return Get[bool](c, key) }

// BoolOr returns the value at key as a bool, or defaultVal.
func (c *Config) BoolOr(key string, defaultVal bool) bool { return GetOr(c, key, defaultVal) }

// Duration returns the value at key as a time.Duration.
func (c *Config) Duration(key string) time.Duration { return Get[time.Duration](c, key) }

// DurationOr returns the value at key as a time.Duration, or defaultVal.
func (c *Config) DurationOr(key string, defaultVal time.Duration) time.Duration {
	return GetOr(c, key, defaultVal)
}

// StringSlice returns the value at key as a string slice.
func (c *Config) StringSlice(key string) []string { return Get[[]string](c, key) }

// StringSliceOr returns the value at key as a string slice, or defaultVal.
func (c *Config) StringSliceOr(key string, defaultVal []string) []string {
	return GetOr(c, key, defaultVal)
}
