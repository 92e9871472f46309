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

package pattern

import "errors"

var (
	// ErrInvalidPattern indicates that a pattern does not start with '/'.
	ErrInvalidPattern = errors.New("pattern must start with '/'")

	// ErrEmptyParamName indicates a ':' segment without a name.
	ErrEmptyParamName = errors.New("parameter name cannot be empty")

	// ErrDuplicateParam indicates that a parameter name appears twice in one pattern.
	ErrDuplicateParam = errors.New("duplicate parameter name")

	// ErrCatchAllNotLast indicates a catch-all segment that is not the final segment.
	ErrCatchAllNotLast = errors.New("catch-all segment must be last")
)
