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
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	apierrors "github.com/typepoint/core/errors"
	"github.com/typepoint/core/logging"
	"github.com/typepoint/core/router"
)

// Func handles one request. It returns once the response has been finalized
// and the raw response closed. Faults never escape it.
type Func func(req router.RawRequest, res router.RawResponse)

// Dispatcher runs requests against a frozen route list.
// It is safe for concurrent use.
type Dispatcher struct {
	routes     []*router.Route
	log        LogFunc
	logger     *slog.Logger
	formatter  apierrors.Formatter
	observers  []Observer
	newContext ContextFactory
}

// New freezes r and returns its request-handling function.
func New(r *router.Router, opts ...Option) Func {
	return NewDispatcher(r, opts...).Dispatch
}

// NewDispatcher freezes r and builds a Dispatcher. It panics if r is nil.
func NewDispatcher(r *router.Router, opts ...Option) *Dispatcher {
	if r == nil {
		panic("dispatch: nil router")
	}
	r.Freeze()

	d := &Dispatcher{
		routes:     r.Routes(),
		log:        func(...any) {},
		logger:     logging.Discard(),
		formatter:  apierrors.NewPlain(),
		newContext: router.NewContext,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// chain is the state of one in-flight dispatch.
type chain struct {
	d        *Dispatcher
	c        *router.Context
	it       *router.MatchIterator
	states   []any
	handlers int
	last     *router.Route
}

// Dispatch handles one request; it has the [Func] signature.
func (d *Dispatcher) Dispatch(req router.RawRequest, res router.RawResponse) {
	start := time.Now()
	if res == nil {
		d.logger.Error("dispatch without a response")
		return
	}
	defer d.close(res)

	c, err := d.buildContext(req, res)
	if err != nil {
		d.log("ERROR:", err)
		d.logger.Error("context construction failed", "error", err)
		d.reject(res)
		return
	}

	ch := &chain{d: d, c: c, it: router.NewMatchIterator(d.routes, c.Method(), c.Path())}
	ch.start()

	fault := ch.next()
	outcome := d.finalize(c, fault)
	outcome.Route = ch.last
	outcome.Handlers = ch.handlers
	outcome.Duration = time.Since(start)

	ch.end(outcome)
}

// buildContext runs the context factory; a panicking factory counts as a
// construction failure.
func (d *Dispatcher) buildContext(req router.RawRequest, res router.RawResponse) (c *router.Context, err error) {
	defer func() {
		if v := recover(); v != nil {
			c, err = nil, fmt.Errorf("%w: panic: %v", router.ErrContextConstruction, v)
		}
	}()
	return d.newContext(req, res)
}

// guard runs an observer hook. A panicking observer is logged and skipped;
// it never fails the request.
func (d *Dispatcher) guard(hook string, fn func()) {
	defer func() {
		if v := recover(); v != nil {
			d.logger.Error("observer panicked",
				"hook", hook,
				"panic", fmt.Sprint(v),
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn()
}

func (ch *chain) start() {
	ch.states = make([]any, len(ch.d.observers))
	ctx := ch.c.Context()
	for i, o := range ch.d.observers {
		ch.d.guard("OnDispatchStart", func() {
			next, state := o.OnDispatchStart(ctx, ch.c)
			if next != nil {
				ctx = next
			}
			ch.states[i] = state
		})
	}
	ch.c.SetContext(ctx)
}

func (ch *chain) end(o Outcome) {
	for i, obs := range ch.d.observers {
		if ch.states[i] != nil {
			ch.d.guard("OnDispatchEnd", func() { obs.OnDispatchEnd(ch.states[i], ch.c, o) })
		}
	}
}

// next runs the next matching route. It is the [router.Next] handed to
// every action.
func (ch *chain) next() error {
	m, ok := ch.it.Next()
	if !ok {
		return nil
	}
	ch.c.Bind(m)
	ch.handlers++
	ch.last = m.Route

	name := m.Route.Name()
	ch.d.log("Executing handler:", name)
	ch.d.logger.Debug("executing handler",
		"handler", name,
		"kind", m.Route.Kind().String(),
		"request_id", ch.c.ID(),
	)
	for i, o := range ch.d.observers {
		if ch.states[i] != nil {
			ch.d.guard("OnHandler", func() { o.OnHandler(ch.states[i], ch.c, m.Route) })
		}
	}

	return ch.invoke(m.Route)
}

// invoke runs one action, turning a panic into a *PanicError.
func (ch *chain) invoke(rt *router.Route) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Handler: rt.Name(), Value: v, Stack: debug.Stack()}
		}
	}()
	return rt.Action()(ch.c, ch.next)
}

// finalize guarantees one terminal action for the response.
func (d *Dispatcher) finalize(c *router.Context, fault error) Outcome {
	res := c.Response()
	logger := logging.WithTrace(c.Context(), d.logger).With("request_id", c.ID())

	if fault != nil {
		d.log("ERROR:", fault)
		o := Outcome{Kind: OutcomeFault, Err: fault, Flushed: res.Flushed()}
		if res.Flushed() {
			logger.Error("handler fault after response was sent", "error", fault)
		} else {
			logger.Error("handler fault", "error", fault)
			d.writeError(c, fault, logger)
		}
		o.Status, o.Size = res.Status(), res.Size()
		return o
	}

	o := Outcome{Kind: OutcomeCompleted}
	if !res.Flushed() {
		if !res.HasStatus() {
			o.Kind = OutcomeNotFound
			_ = res.SetStatus(http.StatusNotFound)
		}
		if err := res.Flush(); err != nil {
			logger.Warn("response flush failed", "error", err)
		}
	}
	o.Status, o.Size = res.Status(), res.Size()
	return o
}

// writeError replaces the buffered status and body with the formatted
// fault. Headers set by earlier handlers are kept.
func (d *Dispatcher) writeError(c *router.Context, fault error, logger *slog.Logger) {
	res := c.Response()
	formatted, body := d.render(c, fault, logger)

	if err := res.SetStatus(formatted.Status); err != nil {
		_ = res.SetStatus(http.StatusInternalServerError)
	}
	for key, values := range formatted.Headers {
		for _, v := range values {
			_ = res.AddHeader(key, v)
		}
	}
	if formatted.ContentType != "" {
		_ = res.SetHeader("Content-Type", formatted.ContentType)
	} else {
		_ = res.DelHeader("Content-Type")
	}
	_ = res.SetBody(body)

	if err := res.Flush(); err != nil {
		logger.Warn("error response flush failed", "error", err)
	}
}

// render formats and encodes fault. A formatter that fails or panics is
// replaced by a plain 500.
func (d *Dispatcher) render(c *router.Context, fault error, logger *slog.Logger) (formatted apierrors.Response, body []byte) {
	defer func() {
		if v := recover(); v != nil {
			logger.Error("error formatter panicked", "panic", fmt.Sprint(v), "stack", string(debug.Stack()))
			formatted, body = plainInternalError()
		}
	}()

	formatted = d.formatter.Format(c, fault)
	body, err := formatted.Encode()
	if err != nil {
		logger.Error("error response encoding failed", "error", err)
		return plainInternalError()
	}
	return formatted, body
}

func plainInternalError() (apierrors.Response, []byte) {
	return apierrors.Response{Status: http.StatusInternalServerError, ContentType: "text/plain; charset=utf-8"},
		[]byte(http.StatusText(http.StatusInternalServerError))
}

// reject answers a request that never got a Context.
func (d *Dispatcher) reject(res router.RawResponse) {
	header := http.Header{"Content-Type": {"text/plain; charset=utf-8"}}
	body := []byte(http.StatusText(http.StatusInternalServerError))
	if err := res.Send(http.StatusInternalServerError, header, body); err != nil {
		d.logger.Warn("rejection send failed", "error", err)
	}
}

func (d *Dispatcher) close(res router.RawResponse) {
	if err := res.Close(); err != nil {
		d.logger.Warn("response close failed", "error", err)
	}
}
