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
	"errors"
	"fmt"
	"strings"
	"testing"
)

type codedError struct {
	message string
	code    int
}

func (e *codedError) Error() string {
	return fmt.Sprintf("%s (code %d)", e.message, e.code)
}

func TestTrackErrorNil(t *testing.T) {
	if err := TrackError(nil); err != nil {
		t.Errorf("expected nil for nil input, got %v", err)
	}
}

func TestTrackErrorMessage(t *testing.T) {
	wrapped := TrackError(errors.New("store unavailable"))

	msg := wrapped.Error()
	if !strings.HasPrefix(msg, "(wrapped at track_error_test.go:") {
		t.Errorf("expected location prefix, got %q", msg)
	}
	if !strings.HasSuffix(msg, "store unavailable") {
		t.Errorf("expected original message suffix, got %q", msg)
	}
}

func TestTrackErrorUnwrap(t *testing.T) {
	original := &codedError{message: "validation failed", code: 400}
	wrapped := TrackError(original)

	var target *codedError
	if !errors.As(wrapped, &target) {
		t.Fatal("expected errors.As to reach the wrapped error")
	}
	if target.code != 400 {
		t.Errorf("expected code 400, got %d", target.code)
	}
	if !errors.Is(wrapped, original) {
		t.Error("expected errors.Is to match the original error")
	}
}
