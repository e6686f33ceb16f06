// Copyright 2026 Boring Data, Inc.
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

package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

// Machine-stable error codes. Codes are invariant and are intended to be
// consumed programmatically; the casing is part of the contract.
const (
	// Authentication
	CodeNoCredentials      = "no_credentials"
	CodeInvalidSignature   = "invalid_signature"
	CodeTokenExpired       = "token_expired"
	CodeInvalidAudience    = "invalid_audience"
	CodeMissingClaim       = "missing_claim"
	CodeInvalidSession     = "invalid_session"
	CodeSessionExpired     = "session_expired"
	CodeJWKSFetchError     = "jwks_fetch_error"
	CodeAuthCallbackFailed = "auth_callback_failed"
	CodeMalformedToken     = "malformed"

	// Request context
	CodeWorkspaceContextMismatch = "workspace_context_mismatch"
	CodeAppContextMismatch       = "app_context_mismatch"
	CodeAppConfigNotFound        = "app_config_not_found"
	CodeAppNotResolvable         = "app_not_resolvable"

	// Authorization
	CodeAuthRequired      = "AUTH_REQUIRED"
	CodeForbidden         = "FORBIDDEN"
	CodeWorkspaceNotFound = "WORKSPACE_NOT_FOUND"

	// Provisioning
	CodeStepTimeout              = "STEP_TIMEOUT"
	CodeArtifactChecksumMismatch = "ARTIFACT_CHECKSUM_MISMATCH"
	CodeReleaseUnavailable       = "RELEASE_UNAVAILABLE"
	CodeActiveJobConflict        = "active_job_conflict"

	// Sharing
	CodeShareNotFound = "share_not_found"
	CodeShareRevoked  = "share_revoked"
	CodeShareExpired  = "share_expired"
	CodePathMismatch  = "path_mismatch"
	CodePathTraversal = "path_traversal"

	// Proxy and streams
	CodeUpstreamUnavailable = "upstream_unavailable"
	CodeStreamLimitExceeded = "stream_limit_exceeded"

	// CSRF
	CodeCSRFInvalid = "csrf_invalid"

	// Idempotency
	CodeConflictInFlight  = "conflict_in_flight"
	CodeIdempotencyReplay = "idempotency_replay"

	// Generic
	CodeInternalServerError = "internal_error"
	CodeInvalidRequestBody  = "invalid_request_body"
	CodeNotFound            = "not_found"
	CodeMethodNotAllowed    = "method_not_allowed"
)

// Error is the JSON error envelope every failure crossing the HTTP boundary
// is written as.
type Error struct {
	// The HTTP status code, not part of the body.
	StatusCode int `json:"-"`

	// Code identifies the failure; see the code constants above.
	Code string `json:"error"`

	// Detail is a human-readable elaboration, safe to display.
	Detail string `json:"detail,omitempty"`

	// Sources carries the per-source workspace identifiers for
	// workspace_context_mismatch responses.
	Sources map[string]string `json:"sources,omitempty"`

	// Fields carries per-field messages for request validation failures.
	Fields []FieldError `json:"fields,omitempty"`
}

// FieldError describes a single invalid request-body field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%d: %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("%d: %s: %s", e.StatusCode, e.Code, e.Detail)
}

// NewError returns a new Error with a formatted detail string.
func NewError(statusCode int, code, format string, a ...any) *Error {
	return &Error{
		StatusCode: statusCode,
		Code:       code,
		Detail:     fmt.Sprintf(format, a...),
	}
}

// WriteError constructs and writes an Error to the given ResponseWriter.
func WriteError(w http.ResponseWriter, statusCode int, code, format string, a ...any) {
	WriteRESTError(w, NewError(statusCode, code, format, a...))
}

// WriteRESTError writes err to the given ResponseWriter. The machine code is
// mirrored in the X-Error-Code header so proxies can classify failures
// without parsing the body.
func WriteRESTError(w http.ResponseWriter, err *Error) {
	w.Header()["Content-Type"] = []string{"application/json"}
	w.Header()[HeaderNameErrorCode] = []string{err.Code}
	w.WriteHeader(err.StatusCode)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "    ")
	_ = encoder.Encode(err)
}

// WriteInternalServerError writes a generic 500. The cause is never included;
// callers log it against the request id.
func WriteInternalServerError(w http.ResponseWriter) {
	WriteError(
		w, http.StatusInternalServerError,
		CodeInternalServerError,
		"Internal server error.")
}

// WriteUnmarshalError writes an appropriate Error for JSON unmarshaling or
// request validation failures.
func WriteUnmarshalError(err error, w http.ResponseWriter) {
	switch err := err.(type) {
	case *json.UnmarshalTypeError:
		WriteError(
			w, http.StatusBadRequest,
			CodeInvalidRequestBody,
			"invalid value for field %q", err.Field)
	case validator.ValidationErrors:
		restErr := NewError(
			http.StatusBadRequest,
			CodeInvalidRequestBody,
			"content validation failed on one or more fields")
		restErr.Fields = make([]FieldError, len(err))
		for i, fieldErr := range err {
			message := fmt.Sprintf("invalid value '%v'", fieldErr.Value())
			tag := fieldErr.Tag()
			switch {
			case strings.HasPrefix(tag, "enum_"), tag == "oneof":
				message += fmt.Sprintf(" (must be one of: %s)", fieldErr.Param())
			case tag == "required":
				message = "missing required field"
			case tag == "email":
				message += " (must be an email address)"
			case tag == "min":
				message += fmt.Sprintf(" (minimum %s)", fieldErr.Param())
			case tag == "max":
				message += fmt.Sprintf(" (maximum %s)", fieldErr.Param())
			}
			_, field, _ := strings.Cut(fieldErr.Namespace(), ".")
			restErr.Fields[i] = FieldError{Field: field, Message: message}
		}
		WriteRESTError(w, restErr)
	default:
		WriteError(
			w, http.StatusBadRequest,
			CodeInvalidRequestBody,
			"%s", err.Error())
	}
}
