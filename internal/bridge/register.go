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

package bridge

import (
	"fmt"
)

const (
	kindLog      = "log"
	kindQuestion = "question"
)

// Native is the part of a libalpm handle the bridge needs: the stored
// callback context per callback kind and a way to install the trampoline
// together with a new context.
type Native interface {
	// Allocator returns the allocator cells and buffers for this handle
	// come from.
	Allocator() Allocator
	// LogContext returns the context stored for the log callback, or nil.
	LogContext() *Cell
	// SetLogCallback installs the log trampoline with ctx.
	SetLogCallback(ctx *Cell) error
	// QuestionContext returns the context stored for the question
	// callback, or nil.
	QuestionContext() *Cell
	// SetQuestionCallback installs the question trampoline with ctx.
	SetQuestionCallback(ctx *Cell) error
}

// RegisterLogCallback routes log lines of n to callback/token. Calling it
// again reuses the installed cell.
//
// There is no locking: callers must not register while another goroutine
// uses the same native handle.
func RegisterLogCallback(n Native, callback, token uintptr) error {
	cell, err := ensureCell(n.Allocator(), n.LogContext(), callback, token)
	if err != nil {
		return fmt.Errorf("failed to prepare log callback context: %w", err)
	}
	if err = n.SetLogCallback(cell); err != nil {
		return fmt.Errorf("failed to install log callback: %w", err)
	}
	registrations.WithLabelValues(kindLog).Inc()

	return nil
}

// RegisterQuestionCallback routes questions of n to callback/token. The same
// serialization rules as for RegisterLogCallback apply.
func RegisterQuestionCallback(n Native, callback, token uintptr) error {
	cell, err := ensureCell(n.Allocator(), n.QuestionContext(), callback, token)
	if err != nil {
		return fmt.Errorf("failed to prepare question callback context: %w", err)
	}
	if err = n.SetQuestionCallback(cell); err != nil {
		return fmt.Errorf("failed to install question callback: %w", err)
	}
	registrations.WithLabelValues(kindQuestion).Inc()

	return nil
}
