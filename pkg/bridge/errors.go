// Copyright 2025 VeloxVoIP
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// 	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bridge

import (
	"errors"
	"fmt"
	"regexp"
)

var e164Pattern = regexp.MustCompile(`^\+\d{7,15}$`)

// ValidationError rejects malformed caller input before any state is created.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func validatePhone(field, value string) error {
	if !e164Pattern.MatchString(value) {
		return &ValidationError{Field: field, Reason: "must be E.164, e.g. +15551234567"}
	}
	return nil
}

var (
	// ErrSessionExists guards against session id collisions on create.
	ErrSessionExists = errors.New("session already exists")
	// ErrSessionNotFound is returned for lookups of unknown sessions.
	ErrSessionNotFound = errors.New("session not found")
)
