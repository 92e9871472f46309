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

package router

import "errors"

var (
	// ErrResponseFlushed indicates an attempt to mutate or re-send a response
	// whose headers and body were already sent.
	ErrResponseFlushed = errors.New("response already flushed")

	// ErrInvalidStatus indicates a status code outside 100-999.
	ErrInvalidStatus = errors.New("invalid HTTP status code")

	// ErrContextConstruction indicates that a raw request/response pair could
	// not be adapted into a Context.
	ErrContextConstruction = errors.New("cannot construct request context")

	// ErrRouterFrozen indicates a registration attempt after the router was frozen.
	ErrRouterFrozen = errors.New("router is frozen")

	// ErrInvalidMethod indicates a registration with a method outside the
	// supported enumeration.
	ErrInvalidMethod = errors.New("invalid HTTP method")

	// ErrNilHandler indicates a registration without a handler function.
	ErrNilHandler = errors.New("handler cannot be nil")
)
