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

package libalpm

import (
	"fmt"
	"unsafe"

	"github.com/go-alpm/alpm-bridge/internal/alpm"
	"github.com/go-alpm/alpm-bridge/internal/bridge"
	"github.com/go-alpm/alpm-bridge/internal/util"
)

// FakeHandle is an in-memory stand-in for a libalpm handle. It stores the
// callback contexts the way libalpm does and runs the same trampolines, with
// log lines formatted by package fmt instead of vsnprintf.
type FakeHandle struct {
	Root   string
	DBPath string

	// InstallErr makes callback installation fail when set.
	InstallErr error

	alloc       bridge.Allocator
	dispatcher  bridge.Dispatcher
	logCtx      *bridge.Cell
	questionCtx *bridge.Cell
	released    bool
}

var _ alpm.Native = &FakeHandle{}

// NewFakeHandle returns a FakeHandle delivering to alpm.Dispatcher.
func NewFakeHandle(root, dbpath string) *FakeHandle {
	return &FakeHandle{
		Root:       root,
		DBPath:     dbpath,
		alloc:      bridge.HeapAllocator{},
		dispatcher: alpm.Dispatcher,
	}
}

// SetAllocator replaces the allocator used for cells and log buffers.
func (f *FakeHandle) SetAllocator(a bridge.Allocator) {
	f.alloc = a
}

// Allocator implements bridge.Native.
func (f *FakeHandle) Allocator() bridge.Allocator {
	return f.alloc
}

// LogContext implements bridge.Native.
func (f *FakeHandle) LogContext() *bridge.Cell {
	return f.logCtx
}

// SetLogCallback implements bridge.Native.
func (f *FakeHandle) SetLogCallback(ctx *bridge.Cell) error {
	if f.released {
		return util.ErrHandleReleased
	}
	if f.InstallErr != nil {
		return f.InstallErr
	}
	f.logCtx = ctx

	return nil
}

// QuestionContext implements bridge.Native.
func (f *FakeHandle) QuestionContext() *bridge.Cell {
	return f.questionCtx
}

// SetQuestionCallback implements bridge.Native.
func (f *FakeHandle) SetQuestionCallback(ctx *bridge.Cell) error {
	if f.released {
		return util.ErrHandleReleased
	}
	if f.InstallErr != nil {
		return f.InstallErr
	}
	f.questionCtx = ctx

	return nil
}

// Log emits a log line like libalpm's internal logger. Without a log
// callback the line is discarded.
func (f *FakeHandle) Log(level alpm.LogLevel, format string, args ...interface{}) {
	if f.released || f.logCtx == nil {
		return
	}
	bridge.LogTrampoline(f.dispatcher, f.alloc, f.logCtx, bridge.LogLevel(level),
		sprintfFormatter{format: format, args: args})
}

// Ask hands q to the question callback. Without a question callback q keeps
// its default answer.
func (f *FakeHandle) Ask(q *alpm.RawQuestion) {
	if f.released || f.questionCtx == nil {
		return
	}
	bridge.QuestionTrampoline(f.dispatcher, f.questionCtx, unsafe.Pointer(q))
}

// Release implements alpm.Native.
func (f *FakeHandle) Release() error {
	if f.released {
		return util.ErrHandleReleased
	}
	f.Log(alpm.LogDebug, "releasing handle for %s\n", f.Root)
	f.released = true

	return nil
}

type sprintfFormatter struct {
	format string
	args   []interface{}
}

// Format implements bridge.Formatter.
func (s sprintfFormatter) Format(dst []byte) int {
	line := fmt.Sprintf(s.format, s.args...)
	if len(dst) > 0 {
		n := copy(dst[:len(dst)-1], line)
		dst[n] = 0
	}

	return len(line)
}
