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

// Package callbacks tracks Go values that are referenced from C memory.
//
// Go pointers may not be stored in memory owned by libalpm, so a callback
// context only ever carries integer IDs. The Go values behind those IDs live
// in a Registry and are resolved when libalpm calls back into Go.
package callbacks

import (
	"sync"
)

// Registry maps non-zero IDs to Go values. The zero ID is never handed out
// so that a zeroed context cell can not resolve to a live entry.
type Registry struct {
	mutex  sync.RWMutex
	values map[uintptr]interface{}
	lastID uintptr
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{values: make(map[uintptr]interface{})}
}

// nextID returns an ID that is not in use.
// NOTE: r.mutex must be locked already!
func (r *Registry) nextID() uintptr {
	for exists := true; exists; {
		r.lastID++
		// wrap around in very long running processes, skipping zero
		if r.lastID == 0 {
			continue
		}
		_, exists = r.values[r.lastID]
	}

	return r.lastID
}

// Add stores v under a new ID and returns the ID.
func (r *Registry) Add(v interface{}) uintptr {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	id := r.nextID()
	r.values[id] = v

	return id
}

// Set stores v under an ID that was previously returned by Add. It reports
// false, and stores nothing, if the ID is unknown.
func (r *Registry) Set(id uintptr, v interface{}) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, ok := r.values[id]; !ok {
		return false
	}
	r.values[id] = v

	return true
}

// Remove drops the value stored under id. Removing an unknown ID is a no-op.
func (r *Registry) Remove(id uintptr) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.values, id)
}

// Lookup returns the value stored under id, or nil.
func (r *Registry) Lookup(id uintptr) interface{} {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.values[id]
}

// Len returns the number of stored values.
func (r *Registry) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.values)
}
