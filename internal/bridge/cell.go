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

// Package bridge connects libalpm's log and question callbacks to Go.
//
// libalpm stores a C function pointer and an opaque context pointer per
// callback kind. The bridge installs fixed trampolines as the function
// pointers and a Cell as the context. A Cell only holds two integers: the ID
// of the Go callback and the token of the managed handle it belongs to. The
// Dispatcher turns those back into Go values.
package bridge

import (
	"github.com/go-alpm/alpm-bridge/internal/util"

	"golang.org/x/sys/unix"
)

// Cell is the callback context handed to libalpm. It must not contain Go
// pointers because it may live in C memory.
type Cell struct {
	// Callback identifies the managed callback.
	Callback uintptr
	// Token identifies the managed handle the callback belongs to.
	Token uintptr
}

// Allocator provides the memory used for cells and log buffers. Backends
// that pass cells to C must allocate them in C memory.
type Allocator interface {
	// NewCell returns a zeroed Cell.
	NewCell() (*Cell, error)
	// Alloc returns a buffer of exactly size bytes.
	Alloc(size int) ([]byte, error)
	// Realloc returns a buffer of size bytes holding the contents of buf.
	// On failure buf is left untouched and still needs to be freed.
	Realloc(buf []byte, size int) ([]byte, error)
	// Free releases a buffer returned by Alloc or Realloc.
	Free(buf []byte)
}

// HeapAllocator allocates from the Go heap. Buffers larger than Limit fail
// with ENOMEM, a Limit of 0 disables the check.
type HeapAllocator struct {
	Limit int
}

var _ Allocator = HeapAllocator{}

// NewCell implements Allocator.
func (HeapAllocator) NewCell() (*Cell, error) {
	return &Cell{}, nil
}

// Alloc implements Allocator.
func (a HeapAllocator) Alloc(size int) ([]byte, error) {
	if size <= 0 || (a.Limit > 0 && size > a.Limit) {
		return nil, unix.ENOMEM
	}

	return make([]byte, size), nil
}

// Realloc implements Allocator.
func (a HeapAllocator) Realloc(buf []byte, size int) ([]byte, error) {
	grown, err := a.Alloc(size)
	if err != nil {
		return nil, err
	}
	copy(grown, buf)

	return grown, nil
}

// Free implements Allocator. The garbage collector reclaims the buffer.
func (HeapAllocator) Free([]byte) {}

// ensureCell returns a cell holding callback and token. An existing cell is
// updated in place so that the pointer libalpm already stores stays valid.
func ensureCell(a Allocator, cell *Cell, callback, token uintptr) (*Cell, error) {
	if cell == nil {
		var err error
		cell, err = a.NewCell()
		if err != nil {
			return nil, util.JoinErrors(util.ErrAllocation, err)
		}
		if cell == nil {
			return nil, util.JoinErrors(util.ErrAllocation, unix.ENOMEM)
		}
	}

	cell.Callback = callback
	cell.Token = token

	return cell, nil
}
