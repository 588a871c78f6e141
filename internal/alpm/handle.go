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
	"fmt"
	"sync"

	"github.com/go-alpm/alpm-bridge/internal/bridge"
	"github.com/go-alpm/alpm-bridge/internal/util"
	"github.com/go-alpm/alpm-bridge/internal/util/log"

	"github.com/google/uuid"
)

// Native is a libalpm handle the bridge can attach to.
type Native interface {
	bridge.Native
	// Release destroys the native handle.
	Release() error
}

// Handle owns the Go side of the callbacks of one native handle.
//
// Callback registration is not synchronized with callbacks that libalpm is
// running on other goroutines; set callbacks before the handle is used
// concurrently.
type Handle struct {
	native Native
	id     string
	token  uintptr

	logID      uintptr
	questionID uintptr
	released   bool
}

// NewHandle attaches a managed handle to native.
func NewHandle(native Native) (*Handle, error) {
	if native == nil {
		return nil, util.ErrNilNative
	}
	h := &Handle{
		native: native,
		id:     uuid.NewString(),
	}
	h.token = handles.Add(h.id)
	log.DebugLogMsg("created handle %s with token %d", h.id, h.token)

	return h, nil
}

// ID returns the unique id of the handle, used in log messages.
func (h *Handle) ID() string {
	return h.id
}

// Token returns the context token libalpm carries for this handle.
func (h *Handle) Token() uintptr {
	return h.token
}

// Native returns the native handle.
func (h *Handle) Native() Native {
	return h.native
}

func (h *Handle) logContext(kind string) context.Context {
	return log.WithKind(log.WithHandle(context.Background(), h.id), kind)
}

// SetLogCallback routes libalpm log lines to cb. ctx is passed to every
// invocation. Setting a new callback replaces the previous one.
func (h *Handle) SetLogCallback(cb LogCallback, ctx interface{}) error {
	if h.released {
		return util.ErrHandleReleased
	}
	if h.logID == 0 {
		h.logID = logCallbacks.Add(cb)
	} else {
		logCallbacks.Set(h.logID, cb)
	}
	logContexts.set(h.token, ctx)

	if err := bridge.RegisterLogCallback(h.native, h.logID, h.token); err != nil {
		return fmt.Errorf("handle %s: %w", h.id, err)
	}
	log.DebugLog(h.logContext("log"), "callback %d registered", h.logID)

	return nil
}

// SetQuestionCallback routes libalpm questions to cb. ctx is passed to every
// invocation. Setting a new callback replaces the previous one.
func (h *Handle) SetQuestionCallback(cb QuestionCallback, ctx interface{}) error {
	if h.released {
		return util.ErrHandleReleased
	}
	if h.questionID == 0 {
		h.questionID = questionCallbacks.Add(cb)
	} else {
		questionCallbacks.Set(h.questionID, cb)
	}
	questionContexts.set(h.token, ctx)

	if err := bridge.RegisterQuestionCallback(h.native, h.questionID, h.token); err != nil {
		return fmt.Errorf("handle %s: %w", h.id, err)
	}
	log.DebugLog(h.logContext("question"), "callback %d registered", h.questionID)

	return nil
}

// Release destroys the native handle and forgets the callbacks of h. Lines
// logged by libalpm while releasing still reach the log callback.
func (h *Handle) Release() error {
	if h.released {
		return util.ErrHandleReleased
	}
	err := h.native.Release()
	h.released = true

	if h.logID != 0 {
		logCallbacks.Remove(h.logID)
	}
	if h.questionID != 0 {
		questionCallbacks.Remove(h.questionID)
	}
	logContexts.remove(h.token)
	questionContexts.remove(h.token)
	handles.Remove(h.token)
	log.DebugLogMsg("released handle %s", h.id)

	if err != nil {
		return fmt.Errorf("failed to release handle %s: %w", h.id, err)
	}

	return nil
}

// contextPool holds the caller supplied context value per handle token.
type contextPool struct {
	mutex  sync.RWMutex
	values map[uintptr]interface{}
}

func newContextPool() *contextPool {
	return &contextPool{values: make(map[uintptr]interface{})}
}

func (p *contextPool) set(token uintptr, v interface{}) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.values[token] = v
}

func (p *contextPool) lookup(token uintptr) interface{} {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	return p.values[token]
}

func (p *contextPool) remove(token uintptr) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	delete(p.values, token)
}
