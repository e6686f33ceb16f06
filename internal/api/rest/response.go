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
	"net/http"
)

const (
	prefix string = ""     // no prefix
	indent string = "    " // 4 spaces
)

// MarshalJSON returns the JSON encoding of v.
//
// Call this instead of the marshal functions in "encoding/json" for HTTP
// responses so the formatting stays consistent across handlers.
func MarshalJSON(v any) ([]byte, error) {
	return json.MarshalIndent(v, prefix, indent)
}

// WriteJSONResponse writes a JSON response body in the proper sequence:
// Content-Type first, then the status code, then the body. A byte slice body
// is written verbatim with the expectation that it came from MarshalJSON.
func WriteJSONResponse(writer http.ResponseWriter, statusCode int, body any) (int, error) {
	var data []byte

	switch v := body.(type) {
	case []byte:
		data = v
	default:
		var err error
		data, err = MarshalJSON(body)
		if err != nil {
			return 0, err
		}
	}

	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(statusCode)
	return writer.Write(data)
}
