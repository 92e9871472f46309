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

package dispatch

import (
	"context"
	"time"

	"github.com/typepoint/core/router"
)

// Observer receives dispatch lifecycle hooks. Metrics and tracing
// implementations live in the metrics and tracing packages.
//
// OnDispatchStart returns the context used for the rest of the request and
// an opaque state token. A nil state excludes the request: OnHandler and
// OnDispatchEnd are then skipped for that observer, but the returned
// context is still used.
//
// Hooks run on the dispatching goroutine; implementations must be safe for
// concurrent use across requests.
type Observer interface {
	OnDispatchStart(ctx context.Context, c *router.Context) (context.Context, any)
	OnHandler(state any, c *router.Context, rt *router.Route)
	OnDispatchEnd(state any, c *router.Context, o Outcome)
}

// OutcomeKind classifies how a dispatch ended.
type OutcomeKind uint8

const (
	// OutcomeCompleted means a handler produced the response.
	OutcomeCompleted OutcomeKind = iota
	// OutcomeNotFound means the chain ended without a status; 404 was sent.
	OutcomeNotFound
	// OutcomeFault means a handler failed. Whether an error response was
	// written depends on Outcome.Flushed.
	OutcomeFault
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeNotFound:
		return "not_found"
	case OutcomeFault:
		return "fault"
	default:
		return "completed"
	}
}

// Outcome summarizes a finished dispatch.
type Outcome struct {
	Kind     OutcomeKind
	Status   int // Status sent, 0 if the transport was never written
	Size     int
	Route    *router.Route // Last route executed, nil if none matched
	Handlers int           // Number of actions invoked
	Err      error         // Handler fault, if any
	Flushed  bool          // Whether the handler had flushed before a fault
	Duration time.Duration
}

// RouteName returns the name of the last executed route, or "_not_found".
// Use it as a low-cardinality label.
func (o Outcome) RouteName() string {
	if o.Route == nil {
		return "_not_found"
	}
	return o.Route.Name()
}
