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

package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/typepoint/core/errors"
)

type path string

func (p path) Path() string { return string(p) }

// ExamplePlain demonstrates the default formatter used by the dispatcher.
func ExamplePlain() {
	formatter := errors.NewPlain()

	response := formatter.Format(path("/items"), stderrors.New("database unavailable"))
	body, _ := response.Encode()

	_, _ = fmt.Printf("Status: %d\n", response.Status)
	_, _ = fmt.Printf("Body: %s\n", body)
	// Output:
	// Status: 500
	// Body: database unavailable
}

// ExampleRFC9457 demonstrates how to use the RFC9457 formatter.
func ExampleRFC9457() {
	formatter := &errors.RFC9457{
		BaseURL:        "https://api.example.com/problems",
		DisableErrorID: true,
	}

	err := errors.WithStatus(stderrors.New("validation failed"), http.StatusBadRequest)
	response := formatter.Format(path("/api/users"), err)
	body, _ := response.Encode()

	_, _ = fmt.Printf("Status: %d\n", response.Status)
	_, _ = fmt.Printf("Content-Type: %s\n", response.ContentType)
	_, _ = fmt.Println(string(body))
	// Output:
	// Status: 400
	// Content-Type: application/problem+json; charset=utf-8
	// {"detail":"validation failed","instance":"/api/users","status":400,"title":"Bad Request","type":"about:blank"}
}

// ExampleSimple demonstrates how to use the Simple formatter.
func ExampleSimple() {
	formatter := errors.NewSimple()

	response := formatter.Format(nil, stderrors.New("internal server error"))
	body, _ := response.Encode()

	_, _ = fmt.Printf("Status: %d\n", response.Status)
	_, _ = fmt.Printf("Content-Type: %s\n", response.ContentType)
	_, _ = fmt.Println(string(body))
	// Output:
	// Status: 500
	// Content-Type: application/json; charset=utf-8
	// {"error":"internal server error"}
}
