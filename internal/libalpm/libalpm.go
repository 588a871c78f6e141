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

//go:build libalpm

package libalpm

/*
#cgo LDFLAGS: -lalpm
#include <alpm.h>
#include <stdarg.h>
#include <stdio.h>
#include <stdlib.h>

extern void goAlpmLogCallback(void *, alpm_loglevel_t, char *, void *);
extern void goAlpmQuestionCallback(void *, alpm_question_t *);

// The va_list is copied so that Go can format the line more than once.
static inline void go_alpm_log_cb(void *ctx, alpm_loglevel_t level,
	const char *fmt, va_list args) {
	va_list cp;
	va_copy(cp, args);
	goAlpmLogCallback(ctx, level, (char *)fmt, (void *)&cp);
	va_end(cp);
}

static inline int go_alpm_vformat(char *dst, size_t size, const char *fmt,
	void *args) {
	va_list cp;
	int n;
	va_copy(cp, *(va_list *)args);
	n = vsnprintf(dst, size, fmt, cp);
	va_end(cp);
	return n;
}

static inline void go_alpm_question_cb(void *ctx, alpm_question_t *question) {
	goAlpmQuestionCallback(ctx, question);
}

static inline int go_alpm_set_logcb(alpm_handle_t *handle, void *ctx) {
	return alpm_option_set_logcb(handle, go_alpm_log_cb, ctx);
}

static inline int go_alpm_set_questioncb(alpm_handle_t *handle, void *ctx) {
	return alpm_option_set_questioncb(handle, go_alpm_question_cb, ctx);
}

// cgo's C.malloc aborts on failure, these report NULL instead.
static inline void *go_alpm_calloc(size_t size) { return calloc(1, size); }
static inline void *go_alpm_malloc(size_t size) { return malloc(size); }
static inline void *go_alpm_realloc(void *p, size_t size) { return realloc(p, size); }
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/go-alpm/alpm-bridge/internal/alpm"
	"github.com/go-alpm/alpm-bridge/internal/bridge"

	"golang.org/x/sys/unix"
)

// Error is a libalpm error code.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("alpm error %d: %s", e.Code, e.Message)
}

func newError(code C.alpm_errno_t) error {
	return &Error{Code: int(code), Message: C.GoString(C.alpm_strerror(code))}
}

// Handle is a libalpm handle.
type Handle struct {
	ptr *C.alpm_handle_t
}

var _ alpm.Native = &Handle{}

// Initialize creates a libalpm handle for root and dbpath.
func Initialize(root, dbpath string) (alpm.Native, error) {
	cRoot := C.CString(root)
	defer C.free(unsafe.Pointer(cRoot))
	cDBPath := C.CString(dbpath)
	defer C.free(unsafe.Pointer(cDBPath))

	var cErr C.alpm_errno_t
	ptr := C.alpm_initialize(cRoot, cDBPath, &cErr)
	if ptr == nil {
		return nil, fmt.Errorf("failed to initialize libalpm for %s: %w", root, newError(cErr))
	}

	return &Handle{ptr: ptr}, nil
}

func (h *Handle) lastError() error {
	return newError(C.alpm_errno(h.ptr))
}

// Allocator implements bridge.Native. Cells are handed to libalpm and have
// to live in C memory.
func (h *Handle) Allocator() bridge.Allocator {
	return cAllocator{}
}

// LogContext implements bridge.Native.
func (h *Handle) LogContext() *bridge.Cell {
	return (*bridge.Cell)(C.alpm_option_get_logcb_ctx(h.ptr))
}

// SetLogCallback implements bridge.Native.
func (h *Handle) SetLogCallback(ctx *bridge.Cell) error {
	if C.go_alpm_set_logcb(h.ptr, unsafe.Pointer(ctx)) != 0 {
		return h.lastError()
	}

	return nil
}

// QuestionContext implements bridge.Native.
func (h *Handle) QuestionContext() *bridge.Cell {
	return (*bridge.Cell)(C.alpm_option_get_questioncb_ctx(h.ptr))
}

// SetQuestionCallback implements bridge.Native.
func (h *Handle) SetQuestionCallback(ctx *bridge.Cell) error {
	if C.go_alpm_set_questioncb(h.ptr, unsafe.Pointer(ctx)) != 0 {
		return h.lastError()
	}

	return nil
}

// Release destroys the libalpm handle. The callback contexts outlive
// alpm_release because it still logs, they are freed afterwards.
func (h *Handle) Release() error {
	logCtx := h.LogContext()
	questionCtx := h.QuestionContext()

	if C.alpm_release(h.ptr) != 0 {
		return h.lastError()
	}
	h.ptr = nil

	if logCtx != nil {
		C.free(unsafe.Pointer(logCtx))
	}
	if questionCtx != nil {
		C.free(unsafe.Pointer(questionCtx))
	}

	return nil
}

//export goAlpmLogCallback
func goAlpmLogCallback(ctx unsafe.Pointer, level C.alpm_loglevel_t, format *C.char, args unsafe.Pointer) {
	bridge.LogTrampoline(alpm.Dispatcher, cAllocator{}, (*bridge.Cell)(ctx),
		bridge.LogLevel(level), vaFormatter{format: format, args: args})
}

//export goAlpmQuestionCallback
func goAlpmQuestionCallback(ctx unsafe.Pointer, question *C.alpm_question_t) {
	bridge.QuestionTrampoline(alpm.Dispatcher, (*bridge.Cell)(ctx), unsafe.Pointer(question))
}

// vaFormatter formats from the va_list copied by go_alpm_log_cb.
type vaFormatter struct {
	format *C.char
	args   unsafe.Pointer
}

// Format implements bridge.Formatter.
func (f vaFormatter) Format(dst []byte) int {
	return int(C.go_alpm_vformat((*C.char)(unsafe.Pointer(unsafe.SliceData(dst))),
		C.size_t(len(dst)), f.format, f.args))
}

// cAllocator allocates from the C heap.
type cAllocator struct{}

func (cAllocator) NewCell() (*bridge.Cell, error) {
	p := C.go_alpm_calloc(C.size_t(unsafe.Sizeof(bridge.Cell{})))
	if p == nil {
		return nil, unix.ENOMEM
	}

	return (*bridge.Cell)(p), nil
}

func (cAllocator) Alloc(size int) ([]byte, error) {
	p := C.go_alpm_malloc(C.size_t(size))
	if p == nil {
		return nil, unix.ENOMEM
	}

	return unsafe.Slice((*byte)(p), size), nil
}

func (cAllocator) Realloc(buf []byte, size int) ([]byte, error) {
	p := C.go_alpm_realloc(unsafe.Pointer(unsafe.SliceData(buf)), C.size_t(size))
	if p == nil {
		return nil, unix.ENOMEM
	}

	return unsafe.Slice((*byte)(p), size), nil
}

func (cAllocator) Free(buf []byte) {
	C.free(unsafe.Pointer(unsafe.SliceData(buf)))
}
