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
	"unsafe"
)

const (
	// InitialBufferSize is the size of the buffer a log line is first
	// formatted into.
	InitialBufferSize = 128

	dropNoContext = "no_context"
	dropAlloc     = "alloc"
	dropFormat    = "format"
	dropGrow      = "grow"
)

// LogLevel is libalpm's log level, passed through untouched.
type LogLevel uint32

// Formatter renders a deferred log line the way vsnprintf does: at most
// len(dst)-1 bytes followed by a NUL are written, and the length of the
// complete line is returned. A negative result reports a formatting error.
// Format may be called more than once and must produce the same line.
type Formatter interface {
	Format(dst []byte) int
}

// Dispatcher receives callbacks on the Go side.
type Dispatcher interface {
	DeliverLog(callback, token uintptr, level LogLevel, message string)
	DeliverQuestion(callback, token uintptr, question unsafe.Pointer)
}

// GrowSize returns the buffer size used for a line of length n: the next
// multiple of 16 that leaves room for the terminating NUL.
func GrowSize(n int) int {
	return (n + 16) &^ 0xf
}

// LogTrampoline formats a log line and hands it to d. libalpm has no way to
// receive an error from a log callback, so a line that can not be buffered
// is dropped and only counted.
func LogTrampoline(d Dispatcher, a Allocator, ctx *Cell, level LogLevel, f Formatter) {
	if ctx == nil {
		logDropped.WithLabelValues(dropNoContext).Inc()

		return
	}

	buf, err := a.Alloc(InitialBufferSize)
	if err != nil {
		logDropped.WithLabelValues(dropAlloc).Inc()

		return
	}
	defer func() {
		a.Free(buf)
	}()

	n := f.Format(buf)
	if n < 0 {
		logDropped.WithLabelValues(dropFormat).Inc()

		return
	}

	// n does not count the NUL, a line of exactly len(buf) bytes was cut.
	if n >= len(buf) {
		grown, gErr := a.Realloc(buf, GrowSize(n))
		if gErr != nil {
			logDropped.WithLabelValues(dropGrow).Inc()

			return
		}
		buf = grown
		logGrown.Inc()

		n = f.Format(buf)
		if n < 0 {
			logDropped.WithLabelValues(dropFormat).Inc()

			return
		}
	}
	if n > len(buf)-1 {
		n = len(buf) - 1
	}

	d.DeliverLog(ctx.Callback, ctx.Token, level, string(buf[:n]))
	logDelivered.Inc()
}

// QuestionTrampoline hands the question to d without copying it. Answers
// written through the pointer are read back by libalpm after the return.
func QuestionTrampoline(d Dispatcher, ctx *Cell, question unsafe.Pointer) {
	if ctx == nil {
		return
	}
	d.DeliverQuestion(ctx.Callback, ctx.Token, question)
	questionsDelivered.Inc()
}
