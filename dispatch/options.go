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
	"log/slog"

	apierrors "github.com/typepoint/core/errors"
	"github.com/typepoint/core/router"
)

// LogFunc is a free-form diagnostic sink. The dispatcher calls it with
// ("Executing handler:", name) before each action and ("ERROR:", err) on
// faults.
type LogFunc func(args ...any)

// ContextFactory adapts a raw request/response pair into a Context.
type ContextFactory func(req router.RawRequest, res router.RawResponse) (*router.Context, error)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLog sets the diagnostic sink. The default discards everything.
func WithLog(fn LogFunc) Option {
	return func(d *Dispatcher) {
		if fn != nil {
			d.log = fn
		}
	}
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithErrorFormatter sets how handler faults become responses.
// The default is [apierrors.Plain].
func WithErrorFormatter(f apierrors.Formatter) Option {
	return func(d *Dispatcher) {
		if f != nil {
			d.formatter = f
		}
	}
}

// WithObserver adds lifecycle observers, called in the order given.
func WithObserver(observers ...Observer) Option {
	return func(d *Dispatcher) {
		for _, o := range observers {
			if o != nil {
				d.observers = append(d.observers, o)
			}
		}
	}
}

// WithContextFactory replaces [router.NewContext].
func WithContextFactory(fn ContextFactory) Option {
	return func(d *Dispatcher) {
		if fn != nil {
			d.newContext = fn
		}
	}
}
