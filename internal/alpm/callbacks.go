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

package alpm

import (
	"context"
	"strings"
	"unsafe"

	"github.com/go-alpm/alpm-bridge/internal/bridge"
	"github.com/go-alpm/alpm-bridge/internal/callbacks"
	"github.com/go-alpm/alpm-bridge/internal/util/log"
)

// DefaultLogLevel is the most verbose level DefaultLogCallback prints.
var DefaultLogLevel = LogWarning

type (
	// LogCallback receives libalpm log lines.
	LogCallback func(ctx interface{}, lvl LogLevel, msg string)
	// QuestionCallback answers libalpm questions by writing to q.
	QuestionCallback func(ctx interface{}, q QuestionAny)
)

var (
	// handles maps tokens to handle ids.
	handles           = callbacks.New()
	logCallbacks      = callbacks.New()
	questionCallbacks = callbacks.New()

	logContexts      = newContextPool()
	questionContexts = newContextPool()
)

// Dispatcher resolves bridge deliveries to the callbacks registered with
// Handle.SetLogCallback and Handle.SetQuestionCallback. It is shared by all
// handles of the process.
var Dispatcher bridge.Dispatcher = dispatcher{}

type dispatcher struct{}

func tokenContext(token uintptr, kind string) context.Context {
	ctx := context.Background()
	if id, ok := handles.Lookup(token).(string); ok {
		ctx = log.WithHandle(ctx, id)
	}

	return log.WithKind(ctx, kind)
}

// recoverCallback keeps a panicking Go callback from unwinding into libalpm.
func recoverCallback(token uintptr, kind string) {
	if r := recover(); r != nil {
		log.ErrorLog(tokenContext(token, kind), "callback panicked: %v", r)
	}
}

func (dispatcher) DeliverLog(callback, token uintptr, level bridge.LogLevel, message string) {
	cb, ok := logCallbacks.Lookup(callback).(LogCallback)
	if !ok || cb == nil {
		log.TraceLog(tokenContext(token, "log"), "dropping line for unknown callback %d", callback)

		return
	}
	defer recoverCallback(token, "log")
	cb(logContexts.lookup(token), LogLevel(level), message)
}

func (dispatcher) DeliverQuestion(callback, token uintptr, question unsafe.Pointer) {
	cb, ok := questionCallbacks.Lookup(callback).(QuestionCallback)
	if !ok || cb == nil {
		log.WarningLog(tokenContext(token, "question"),
			"no callback %d for question, keeping the default answer", callback)

		return
	}
	defer recoverCallback(token, "question")
	cb(questionContexts.lookup(token), NewQuestionAny(question))
}

// DefaultLogCallback prints lines up to DefaultLogLevel through klog.
func DefaultLogCallback(_ interface{}, lvl LogLevel, s string) {
	if lvl > DefaultLogLevel {
		return
	}
	s = strings.TrimRight(s, "\n")
	switch lvl {
	case LogError:
		log.ErrorLogMsg("go-alpm: %s", s)
	case LogWarning:
		log.WarningLogMsg("go-alpm: %s", s)
	default:
		log.DebugLogMsg("go-alpm: %s", s)
	}
}

// FilterLogLevels returns a callback that only forwards lines whose level is
// in mask.
func FilterLogLevels(mask LogLevel, cb LogCallback) LogCallback {
	return func(ctx interface{}, lvl LogLevel, msg string) {
		if lvl&mask == 0 {
			return
		}
		cb(ctx, lvl, msg)
	}
}
