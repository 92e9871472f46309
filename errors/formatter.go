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

package errors

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Request is the request information available to a Formatter.
// *router.Context satisfies it.
type Request interface {
	// Path returns the normalized request path.
	Path() string
}

// Formatter defines how handler faults are rendered as responses.
//
// Example:
//
//	response := formatter.Format(c, err)
//	body, _ := response.Encode()
type Formatter interface {
	// Format converts an error into response components.
	// req may be nil when no request context is available.
	Format(req Request, err error) Response
}

// FormatterFunc adapts a function to the Formatter interface.
type FormatterFunc func(req Request, err error) Response

// Format calls f(req, err).
func (f FormatterFunc) Format(req Request, err error) Response {
	return f(req, err)
}

// Response represents a formatted error response.
type Response struct {
	// Status is the HTTP status code.
	Status int

	// ContentType is the Content-Type header value.
	ContentType string

	// Body is the response body. Strings and byte slices are sent as-is;
	// anything else is encoded as JSON.
	Body any

	// Headers contains additional headers to set (optional).
	Headers http.Header
}

// Encode renders Body into bytes.
func (r Response) Encode() ([]byte, error) {
	switch b := r.Body.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(b), nil
	case []byte:
		return b, nil
	default:
		return json.Marshal(b)
	}
}

// ErrorType allows errors to declare their own HTTP status code.
//
// Example:
//
//	type ValidationError struct {
//		Message string
//	}
//
//	func (e ValidationError) Error() string {
//		return e.Message
//	}
//
//	func (e ValidationError) HTTPStatus() int {
//		return http.StatusBadRequest
//	}
type ErrorType interface {
	error
	// HTTPStatus returns the HTTP status code for this error.
	HTTPStatus() int
}

// ErrorDetails allows errors to provide additional structured information.
type ErrorDetails interface {
	error
	// Details returns structured information about the error.
	Details() any
}

// ErrorCode allows errors to provide a machine-readable code.
type ErrorCode interface {
	error
	// Code returns a machine-readable error code.
	Code() string
}

// StatusOf returns the status declared by err through ErrorType anywhere in
// its chain, or 500.
func StatusOf(err error) int {
	var typed ErrorType
	if errors.As(err, &typed) {
		if status := typed.HTTPStatus(); status >= 100 && status <= 999 {
			return status
		}
	}
	return http.StatusInternalServerError
}

func resolveStatus(resolver func(error) int, err error) int {
	if resolver != nil {
		return resolver(err)
	}
	return StatusOf(err)
}

func messageOf(err error, status int) string {
	if err == nil {
		return http.StatusText(status)
	}
	return err.Error()
}

// NewPlain creates a new Plain formatter.
func NewPlain() *Plain {
	return &Plain{}
}

// NewSimple creates a new Simple formatter.
func NewSimple() *Simple {
	return &Simple{}
}

// NewRFC9457 creates a new RFC9457 formatter.
// The baseURL parameter is prepended to problem type slugs to create full URIs.
//
// Example:
//
//	formatter := errors.NewRFC9457("https://api.example.com/problems")
func NewRFC9457(baseURL string) *RFC9457 {
	return &RFC9457{
		BaseURL: baseURL,
	}
}

// WithStatus wraps an error with an explicit HTTP status code.
// The wrapped error implements ErrorType.
//
// If err is nil, the status text for the given status code is used as the error message.
//
// Example:
//
//	return errors.WithStatus(err, http.StatusNotFound)
func WithStatus(err error, status int) error {
	return &statusError{err: err, status: status}
}

// statusError wraps an error with an explicit status code.
type statusError struct {
	err    error
	status int
}

func (e *statusError) Error() string {
	if e.err == nil {
		return http.StatusText(e.status)
	}
	return e.err.Error()
}

func (e *statusError) Unwrap() error {
	return e.err
}

func (e *statusError) HTTPStatus() int {
	return e.status
}
