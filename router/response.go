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

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// Response buffers status, headers and body until Flush performs the single
// physical send on the RawResponse.
//
// Once flushed, every mutator returns [ErrResponseFlushed] and leaves the
// response unchanged.
type Response struct {
	raw     RawResponse
	status  int // 0 until set
	header  http.Header
	body    bytes.Buffer
	flushed bool
	size    int
}

func newResponse(raw RawResponse) *Response {
	return &Response{
		raw:    raw,
		header: make(http.Header),
	}
}

// Status returns the status set so far, or 0 if none was set.
func (r *Response) Status() int { return r.status }

// HasStatus reports whether a status has been set.
func (r *Response) HasStatus() bool { return r.status != 0 }

// SetStatus sets the response status code.
func (r *Response) SetStatus(code int) error {
	if r.flushed {
		return ErrResponseFlushed
	}
	if code < 100 || code > 999 {
		return fmt.Errorf("%w: %d", ErrInvalidStatus, code)
	}
	r.status = code
	return nil
}

// Header returns a copy of the response headers.
func (r *Response) Header() http.Header { return r.header.Clone() }

// SetHeader replaces the values of a response header.
func (r *Response) SetHeader(key, value string) error {
	if r.flushed {
		return ErrResponseFlushed
	}
	r.header.Set(key, value)
	return nil
}

// AddHeader appends a value to a response header.
func (r *Response) AddHeader(key, value string) error {
	if r.flushed {
		return ErrResponseFlushed
	}
	r.header.Add(key, value)
	return nil
}

// DelHeader removes a response header.
func (r *Response) DelHeader(key string) error {
	if r.flushed {
		return ErrResponseFlushed
	}
	r.header.Del(key)
	return nil
}

// Body returns the buffered body. The slice aliases the buffer and is only
// valid until the next write.
func (r *Response) Body() []byte { return r.body.Bytes() }

// SetBody replaces the buffered body.
func (r *Response) SetBody(b []byte) error {
	if r.flushed {
		return ErrResponseFlushed
	}
	r.body.Reset()
	r.body.Write(b)
	return nil
}

// Write appends to the buffered body. It implements io.Writer so encoders
// can write into the response directly.
func (r *Response) Write(p []byte) (int, error) {
	if r.flushed {
		return 0, ErrResponseFlushed
	}
	return r.body.Write(p)
}

// WriteString appends a string to the buffered body.
func (r *Response) WriteString(s string) (int, error) {
	if r.flushed {
		return 0, ErrResponseFlushed
	}
	return r.body.WriteString(s)
}

// Text sets the status, a text/plain content type and the body.
func (r *Response) Text(code int, s string) error {
	if err := r.SetStatus(code); err != nil {
		return err
	}
	r.header.Set("Content-Type", "text/plain; charset=utf-8")
	r.body.Reset()
	r.body.WriteString(s)
	return nil
}

// JSON sets the status, an application/json content type and the encoded
// value as body. Nothing is modified if encoding fails.
func (r *Response) JSON(code int, v any) error {
	if r.flushed {
		return ErrResponseFlushed
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	if err := r.SetStatus(code); err != nil {
		return err
	}
	r.header.Set("Content-Type", "application/json; charset=utf-8")
	r.body.Reset()
	r.body.Write(data)
	return nil
}

// Reset discards the status, headers and body buffered so far.
func (r *Response) Reset() error {
	if r.flushed {
		return ErrResponseFlushed
	}
	r.status = 0
	clear(r.header)
	r.body.Reset()
	return nil
}

// Flush sends the response. The latch flips before the send so a failing
// transport can never cause a second write; a later Flush returns
// [ErrResponseFlushed]. An unset status is sent as 200.
func (r *Response) Flush() error {
	if r.flushed {
		return ErrResponseFlushed
	}
	r.flushed = true

	status := r.status
	if status == 0 {
		status = http.StatusOK
		r.status = status
	}
	r.size = r.body.Len()

	if err := r.raw.Send(status, r.header.Clone(), r.body.Bytes()); err != nil {
		return fmt.Errorf("send response: %w", err)
	}
	return nil
}

// Flushed reports whether Flush has been called.
func (r *Response) Flushed() bool { return r.flushed }

// Size returns the number of body bytes handed to the transport, or 0
// before Flush.
func (r *Response) Size() int { return r.size }
