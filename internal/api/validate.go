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

package api

import (
	"fmt"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

// GetJSONTagName extracts the JSON field name from the "json" key in a
// struct tag. Returns an empty string if no "json" key is present, or if
// the value is "-".
func GetJSONTagName(tag reflect.StructTag) string {
	tagValue := tag.Get("json")
	if tagValue == "-" {
		return ""
	}
	fieldName, _, _ := strings.Cut(tagValue, ",")
	return fieldName
}

// EnumValidateTag generates a string suitable for use with the "validate"
// struct tag. It converts the valid values for a string subtype into a
// "oneof=" expression for static validation.
func EnumValidateTag[S ~string](values ...S) string {
	s := make([]string, len(values))
	for i, e := range values {
		s[i] = string(e)
	}
	return fmt.Sprintf("oneof=%s", strings.Join(s, " "))
}

// NewValidator builds the request-body validator with the enumeration
// aliases the wire types reference.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())

	// Use "json" struct tags for alternate field names.
	// Alternate field names will be used in validation errors.
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		return GetJSONTagName(field.Tag)
	})

	validate.RegisterAlias("enum_memberrole", EnumValidateTag(
		MemberRoleAdmin))
	validate.RegisterAlias("enum_memberstatus", EnumValidateTag(
		MemberStatusPending,
		MemberStatusActive,
		MemberStatusRemoved))
	validate.RegisterAlias("enum_shareaccess", EnumValidateTag(
		ShareAccessRead,
		ShareAccessWrite))
	validate.RegisterAlias("enum_jobstate", EnumValidateTag(
		JobStateQueued,
		JobStateResolvingRelease,
		JobStateCreatingSandbox,
		JobStateUploadingArtifact,
		JobStateVerifyingChecksum,
		JobStateStartingRuntime,
		JobStateReady,
		JobStateError,
		JobStateCancelled))

	return validate
}

// ValidateRequest validates a decoded request body and returns the
// validator's error for rest.WriteUnmarshalError to format.
func ValidateRequest(validate *validator.Validate, body any) error {
	return validate.Struct(body)
}
