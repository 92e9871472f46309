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

package errors

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRFC9457_Format(t *testing.T) {
	t.Parallel()

	const base = "https://api.example.com/problems"

	tests := []struct {
		name       string
		formatter  *RFC9457
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "simple error",
			formatter:  NewRFC9457(base),
			err:        &testError{message: "something went wrong"},
			wantStatus: http.StatusInternalServerError,
			wantType:   "about:blank",
		},
		{
			name:       "error with code",
			formatter:  NewRFC9457(base),
			err:        &testErrorWithCode{message: "validation failed", code: "validation_error"},
			wantStatus: http.StatusInternalServerError,
			wantType:   base + "/validation_error",
		},
		{
			name:       "error with code and status",
			formatter:  NewRFC9457(base),
			err:        &testErrorFull{message: "bad request", code: "invalid_input", status: http.StatusBadRequest},
			wantStatus: http.StatusBadRequest,
			wantType:   base + "/invalid_input",
		},
		{
			name: "custom type resolver",
			formatter: &RFC9457{
				BaseURL:      base,
				TypeResolver: func(error) string { return base + "/custom-type" },
			},
			err:        &testError{message: "test"},
			wantStatus: http.StatusInternalServerError,
			wantType:   base + "/custom-type",
		},
		{
			name: "custom status resolver",
			formatter: &RFC9457{
				StatusResolver: func(error) int { return http.StatusTeapot },
			},
			err:        &testError{message: "test"},
			wantStatus: http.StatusTeapot,
			wantType:   "about:blank",
		},
		{
			name:       "no base URL",
			formatter:  NewRFC9457(""),
			err:        &testErrorWithCode{message: "test", code: "test_code"},
			wantStatus: http.StatusInternalServerError,
			wantType:   "test_code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			response := tt.formatter.Format(testRequest("/items"), tt.err)

			assert.Equal(t, tt.wantStatus, response.Status, "Status")
			assert.Equal(t, "application/problem+json; charset=utf-8", response.ContentType, "ContentType")

			body, ok := response.Body.(ProblemDetail)
			require.True(t, ok, "Body is not ProblemDetail, got %T", response.Body)

			assert.Equal(t, tt.wantType, body.Type, "Type")
			assert.Equal(t, tt.wantStatus, body.Status, "Status")
			assert.Equal(t, http.StatusText(tt.wantStatus), body.Title, "Title")
			assert.Equal(t, tt.err.Error(), body.Detail, "Detail")
			assert.Equal(t, "/items", body.Instance, "Instance")
		})
	}
}

func TestRFC9457_ErrorID(t *testing.T) {
	t.Parallel()

	t.Run("default is a uuid", func(t *testing.T) {
		t.Parallel()

		body := NewRFC9457("").Format(nil, &testError{message: "x"}).Body.(ProblemDetail)
		id, ok := body.Extensions["error_id"].(string)
		require.True(t, ok)
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Empty(t, body.Instance, "nil request has no instance")
	})

	t.Run("custom generator", func(t *testing.T) {
		t.Parallel()

		f := &RFC9457{ErrorIDGenerator: func() string { return "custom-id-123" }}
		body := f.Format(nil, &testError{message: "x"}).Body.(ProblemDetail)
		assert.Equal(t, "custom-id-123", body.Extensions["error_id"])
	})

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()

		f := &RFC9457{DisableErrorID: true}
		body := f.Format(nil, &testError{message: "x"}).Body.(ProblemDetail)
		assert.NotContains(t, body.Extensions, "error_id")
	})
}

func TestRFC9457_Format_WithDetails(t *testing.T) {
	t.Parallel()

	err := &testErrorWithDetails{
		message: "validation failed",
		details: map[string]any{
			"field1": "error1",
			"field2": "error2",
		},
	}

	response := NewRFC9457("").Format(testRequest("/test"), err)

	body, ok := response.Body.(ProblemDetail)
	require.True(t, ok, "Body is not ProblemDetail, got %T", response.Body)

	details, ok := body.Extensions["errors"].(map[string]any)
	require.True(t, ok, "errors not found in extensions or wrong type")
	assert.Equal(t, "error1", details["field1"], "errors[field1]")
}

func TestProblemDetail_MarshalJSON(t *testing.T) {
	t.Parallel()

	p := ProblemDetail{
		Type:   "https://api.example.com/problems/validation_error",
		Title:  "Bad Request",
		Status: 400,
		Extensions: map[string]any{
			"error_id": "err-123",
			"type":     "overwritten",
			"detail":   "overwritten",
		},
	}

	data, err := json.Marshal(p)
	require.NoError(t, err, "MarshalJSON failed")

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result), "Unmarshal failed")

	assert.Equal(t, p.Type, result["type"], "reserved field 'type' was overwritten")
	assert.Equal(t, "err-123", result["error_id"], "error_id")
	assert.NotContains(t, result, "detail", "empty detail is omitted even if an extension sets it")
	assert.NotContains(t, result, "instance")
	assert.InDelta(t, 400, result["status"], 0)
}
