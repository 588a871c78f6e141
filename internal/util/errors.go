/*
Copyright 2026 The alpm-bridge Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package util

import (
	"errors"
	"fmt"
)

var (
	// ErrAllocation is returned when memory for a callback context could not
	// be obtained. libalpm is left without a usable context in that case.
	ErrAllocation = errors.New("allocation failed")
	// ErrHandleReleased is returned when a released handle is used again.
	ErrHandleReleased = errors.New("handle already released")
	// ErrNilNative is returned when a handle is created without a native
	// libalpm handle.
	ErrNilNative = errors.New("native handle is nil")
	// ErrNoLibalpm is returned by builds without the libalpm build tag.
	ErrNoLibalpm = errors.New("built without libalpm support, rebuild with -tags libalpm")
	// ErrUnknownLogLevel is returned when a log level name can not be parsed.
	ErrUnknownLogLevel = errors.New("unknown log level")
	// ErrUnknownQuestionType is returned when a question type name can not
	// be parsed.
	ErrUnknownQuestionType = errors.New("unknown question type")
	// ErrInvalidConfig is returned when Config.Validate fails.
	ErrInvalidConfig = errors.New("invalid configuration")
)

type pairError struct {
	first  error
	second error
}

func (e pairError) Error() string {
	return fmt.Sprintf("%v: %v", e.first, e.second)
}

// Is checks if target error is wrapped in the first error.
func (e pairError) Is(target error) bool {
	return errors.Is(e.first, target)
}

// Unwrap returns the second error.
func (e pairError) Unwrap() error {
	return e.second
}

// JoinErrors combines two errors. Of the returned error, Is() follows the first
// branch, Unwrap() follows the second branch. A nil second error returns e1.
func JoinErrors(e1, e2 error) error {
	if e2 == nil {
		return e1
	}

	return pairError{e1, e2}
}
