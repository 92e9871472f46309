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

package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(it *MatchIterator) []Match {
	var out []Match
	for {
		m, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, m)
	}
}

func TestMatchIterator_OrderAndFiltering(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.Use(noop, WithName("global"))
	r.UseAt(MethodPost, "/items", noop, WithName("postItemsOnly"))
	r.UseAt(MethodAny, "/users/*", noop, WithName("usersTree"))
	r.GET("/users/:id", noop, WithName("getUser"))
	r.POST("/users/:id", noop, WithName("postUser"))
	r.Any("/users/:id", noop, WithName("anyUser"))
	r.GET("/users/:id/posts", noop, WithName("userPosts"))
	r.GET("/users/:name", noop, WithName("getUserAgain"))

	matches := collect(r.Match(MethodGet, "/users/42"))

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m.Route.Name())
	}
	assert.Equal(t, []string{"global", "usersTree", "getUser", "anyUser", "getUserAgain"}, names)

	assert.Equal(t, "42", matches[2].Params.Get("id"))
	assert.Equal(t, "42", matches[4].Params.Get("name"))
	assert.Empty(t, matches[4].Params.Get("id"), "params are fresh per match")
}

func TestMatchIterator_UnknownMethodOnlyMatchesAny(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.GET("/a", noop, WithName("get"))
	r.Any("/a", noop, WithName("any"))

	method, known := CleanseMethod("brew")
	require.False(t, known)

	matches := collect(r.Match(method, "/a"))
	require.Len(t, matches, 1)
	assert.Equal(t, "any", matches[0].Route.Name())
}

func TestMatchIterator_Exhaustion(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.GET("/a", noop)
	r.GET("/b", noop)

	it := r.Match(MethodGet, "/b")
	assert.False(t, it.Done())

	m, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, "/b", m.Route.Path())
	assert.True(t, it.Done())

	for range 3 {
		_, ok = it.Next()
		assert.False(t, ok, "exhausted iterator keeps returning false")
	}
}

func TestMatchIterator_EmptyRouter(t *testing.T) {
	t.Parallel()

	it := NewMatchIterator(nil, MethodGet, "/missing")
	_, ok := it.Next()
	assert.False(t, ok)
	assert.True(t, it.Done())
}

func TestMatchIterator_NormalizesPath(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.GET("/users", noop)
	r.GET("/", noop)

	it := r.Match(MethodGet, "/users/")
	assert.Equal(t, "/users", it.Path())
	_, ok := it.Next()
	assert.True(t, ok)

	it = r.Match(MethodGet, "")
	m, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, "/", m.Route.Path())
}

func TestMatchIterator_CursorNeverRewinds(t *testing.T) {
	t.Parallel()

	routes := MustNew()
	routes.GET("/x", noop, WithName("1"))
	routes.GET("/y", noop, WithName("2"))
	routes.GET("/x", noop, WithName("3"))

	it := NewMatchIterator(routes.Routes(), MethodGet, "/x")

	m, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, "1", m.Route.Name())

	m, ok = it.Next()
	require.True(t, ok)
	assert.Equal(t, "3", m.Route.Name())

	_, ok = it.Next()
	assert.False(t, ok)
}

func TestCleanseMethod(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw   string
		want  Method
		known bool
	}{
		{"GET", MethodGet, true},
		{"get", MethodGet, true},
		{" Post ", MethodPost, true},
		{"patch", MethodPatch, true},
		{"options", MethodOptions, true},
		{"trace", MethodTrace, true},
		{"connect", MethodConnect, true},
		{"brew", Method("BREW"), false},
		{"", Method(""), false},
		{"*", MethodAny, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			got, known := CleanseMethod(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.known, known)
		})
	}
}

func TestMethod_Accepts(t *testing.T) {
	t.Parallel()

	assert.True(t, MethodGet.Accepts(MethodGet))
	assert.False(t, MethodGet.Accepts(MethodPost))
	assert.True(t, MethodAny.Accepts(MethodPost))
	assert.True(t, MethodAny.Accepts(Method("BREW")))
	assert.Equal(t, "DELETE", MethodDelete.String())
}
