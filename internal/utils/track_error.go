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

package utils

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// TrackedError wraps an error with the file and line where it was wrapped,
// so internal failures can be located without stack traces in logs.
type TrackedError struct {
	err  error
	file string
	line int
}

// TrackError wraps err with the caller's file and line. Returns nil for nil.
func TrackError(err error) error {
	if err == nil {
		return nil
	}
	_, file, line, _ := runtime.Caller(1)
	return &TrackedError{err: err, file: filepath.Base(file), line: line}
}

func (e *TrackedError) Error() string {
	return fmt.Sprintf("(wrapped at %s:%d) %v", e.file, e.line, e.err)
}

// Unwrap exposes the original error to errors.Is and errors.As.
func (e *TrackedError) Unwrap() error {
	return e.err
}
