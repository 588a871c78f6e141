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
	"errors"
	"strings"
	"testing"
	"unsafe"

	"github.com/go-alpm/alpm-bridge/internal/util"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

var errInstall = errors.New("install refused")

// lineFormatter behaves like vsnprintf for a fixed line.
type lineFormatter struct {
	line  string
	calls int
}

func (f *lineFormatter) Format(dst []byte) int {
	f.calls++
	if len(dst) > 0 {
		n := copy(dst[:len(dst)-1], f.line)
		dst[n] = 0
	}

	return len(f.line)
}

type brokenFormatter struct{}

func (brokenFormatter) Format([]byte) int { return -1 }

type logEvent struct {
	Callback uintptr
	Token    uintptr
	Level    LogLevel
	Message  string
}

type recordingDispatcher struct {
	logs      []logEvent
	questions []unsafe.Pointer
	answer    int32
}

func (d *recordingDispatcher) DeliverLog(callback, token uintptr, level LogLevel, message string) {
	d.logs = append(d.logs, logEvent{callback, token, level, message})
}

func (d *recordingDispatcher) DeliverQuestion(_, _ uintptr, question unsafe.Pointer) {
	d.questions = append(d.questions, question)
	// the second word of the record is the answer
	(*[2]int32)(question)[1] = d.answer
}

type countingAllocator struct {
	HeapAllocator
	failCell    bool
	failAlloc   bool
	failRealloc bool

	allocs   []int
	reallocs []int
	frees    int
}

func (a *countingAllocator) NewCell() (*Cell, error) {
	if a.failCell {
		return nil, unix.ENOMEM
	}

	return a.HeapAllocator.NewCell()
}

func (a *countingAllocator) Alloc(size int) ([]byte, error) {
	a.allocs = append(a.allocs, size)
	if a.failAlloc {
		return nil, unix.ENOMEM
	}

	return a.HeapAllocator.Alloc(size)
}

func (a *countingAllocator) Realloc(buf []byte, size int) ([]byte, error) {
	a.reallocs = append(a.reallocs, size)
	if a.failRealloc {
		return nil, unix.ENOMEM
	}

	return a.HeapAllocator.Realloc(buf, size)
}

func (a *countingAllocator) Free(buf []byte) {
	a.frees++
	a.HeapAllocator.Free(buf)
}

type testNative struct {
	alloc      Allocator
	logCtx     *Cell
	questCtx   *Cell
	installErr error
	installs   int
}

func (n *testNative) Allocator() Allocator   { return n.alloc }
func (n *testNative) LogContext() *Cell      { return n.logCtx }
func (n *testNative) QuestionContext() *Cell { return n.questCtx }

func (n *testNative) SetLogCallback(ctx *Cell) error {
	if n.installErr != nil {
		return n.installErr
	}
	n.installs++
	n.logCtx = ctx

	return nil
}

func (n *testNative) SetQuestionCallback(ctx *Cell) error {
	if n.installErr != nil {
		return n.installErr
	}
	n.installs++
	n.questCtx = ctx

	return nil
}

func TestGrowSize(t *testing.T) {
	t.Parallel()

	for n, want := range map[int]int{
		0:   16,
		15:  16,
		16:  32,
		127: 128,
		128: 144,
		129: 144,
		143: 144,
		144: 160,
		300: 304,
	} {
		got := GrowSize(n)
		assert.Equal(t, want, got, "GrowSize(%d)", n)
		assert.Greater(t, got, n, "GrowSize(%d) leaves no room for NUL", n)
		assert.Zero(t, got%16)
	}
}

func TestEnsureCell(t *testing.T) {
	t.Parallel()

	t.Run("Allocate", func(ts *testing.T) {
		ts.Parallel()

		cell, err := ensureCell(HeapAllocator{}, nil, 1, 2)
		require.NoError(ts, err)
		assert.Equal(ts, Cell{Callback: 1, Token: 2}, *cell)
	})

	t.Run("ReuseInPlace", func(ts *testing.T) {
		ts.Parallel()

		existing := &Cell{Callback: 1, Token: 2}
		cell, err := ensureCell(HeapAllocator{}, existing, 3, 4)
		require.NoError(ts, err)
		assert.Same(ts, existing, cell)
		assert.Equal(ts, Cell{Callback: 3, Token: 4}, *existing)
	})

	t.Run("AllocationFailure", func(ts *testing.T) {
		ts.Parallel()

		cell, err := ensureCell(&countingAllocator{failCell: true}, nil, 1, 2)
		assert.Nil(ts, cell)
		assert.ErrorIs(ts, err, util.ErrAllocation)
		assert.ErrorIs(ts, err, unix.ENOMEM)
	})
}

func TestRegister(t *testing.T) {
	t.Parallel()

	t.Run("StableAddress", func(ts *testing.T) {
		ts.Parallel()

		n := &testNative{alloc: HeapAllocator{}}
		require.NoError(ts, RegisterLogCallback(n, 1, 10))
		first := n.LogContext()
		require.NotNil(ts, first)

		for i := uintptr(2); i < 5; i++ {
			require.NoError(ts, RegisterLogCallback(n, i, 10+i))
			assert.Same(ts, first, n.LogContext())
		}
		assert.Equal(ts, Cell{Callback: 4, Token: 14}, *first)
		assert.Equal(ts, 4, n.installs)
	})

	t.Run("IndependentKinds", func(ts *testing.T) {
		ts.Parallel()

		n := &testNative{alloc: HeapAllocator{}}
		require.NoError(ts, RegisterLogCallback(n, 1, 7))
		require.NoError(ts, RegisterQuestionCallback(n, 2, 7))
		assert.NotSame(ts, n.LogContext(), n.QuestionContext())

		require.NoError(ts, RegisterQuestionCallback(n, 3, 8))
		assert.Equal(ts, Cell{Callback: 1, Token: 7}, *n.LogContext())
		assert.Equal(ts, Cell{Callback: 3, Token: 8}, *n.QuestionContext())

		require.NoError(ts, RegisterLogCallback(n, 4, 9))
		assert.Equal(ts, Cell{Callback: 3, Token: 8}, *n.QuestionContext())
	})

	t.Run("CellAllocationFailure", func(ts *testing.T) {
		ts.Parallel()

		n := &testNative{alloc: &countingAllocator{failCell: true}}
		err := RegisterLogCallback(n, 1, 2)
		assert.ErrorIs(ts, err, util.ErrAllocation)
		err = RegisterQuestionCallback(n, 1, 2)
		assert.ErrorIs(ts, err, util.ErrAllocation)
		assert.Zero(ts, n.installs)
		assert.Nil(ts, n.LogContext())
	})

	t.Run("InstallFailure", func(ts *testing.T) {
		ts.Parallel()

		n := &testNative{alloc: HeapAllocator{}, installErr: errInstall}
		assert.ErrorIs(ts, RegisterLogCallback(n, 1, 2), errInstall)
		assert.ErrorIs(ts, RegisterQuestionCallback(n, 1, 2), errInstall)
	})
}

func TestLogTrampoline(t *testing.T) {
	t.Parallel()

	cell := &Cell{Callback: 5, Token: 6}

	deliver := func(ts *testing.T, line string) (*recordingDispatcher, *countingAllocator, *lineFormatter) {
		ts.Helper()
		d := &recordingDispatcher{}
		a := &countingAllocator{}
		f := &lineFormatter{line: line}
		LogTrampoline(d, a, cell, 2, f)

		return d, a, f
	}

	t.Run("Short", func(ts *testing.T) {
		ts.Parallel()

		d, a, f := deliver(ts, "loading packages...\n")
		want := []logEvent{{Callback: 5, Token: 6, Level: 2, Message: "loading packages...\n"}}
		if diff := cmp.Diff(want, d.logs); diff != "" {
			ts.Errorf("delivered lines mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(ts, 1, f.calls)
		assert.Equal(ts, []int{InitialBufferSize}, a.allocs)
		assert.Empty(ts, a.reallocs)
		assert.Equal(ts, 1, a.frees)
	})

	t.Run("Empty", func(ts *testing.T) {
		ts.Parallel()

		d, _, _ := deliver(ts, "")
		require.Len(ts, d.logs, 1)
		assert.Equal(ts, "", d.logs[0].Message)
	})

	t.Run("JustFits", func(ts *testing.T) {
		ts.Parallel()

		line := strings.Repeat("a", InitialBufferSize-1)
		d, a, f := deliver(ts, line)
		require.Len(ts, d.logs, 1)
		assert.Equal(ts, line, d.logs[0].Message)
		assert.Equal(ts, 1, f.calls)
		assert.Empty(ts, a.reallocs)
	})

	t.Run("ExactlyInitialSize", func(ts *testing.T) {
		ts.Parallel()

		line := strings.Repeat("b", InitialBufferSize)
		d, a, f := deliver(ts, line)
		require.Len(ts, d.logs, 1)
		assert.Equal(ts, line, d.logs[0].Message)
		assert.Equal(ts, 2, f.calls)
		assert.Equal(ts, []int{144}, a.reallocs)
		assert.Equal(ts, 1, a.frees)
	})

	t.Run("Long", func(ts *testing.T) {
		ts.Parallel()

		line := strings.Repeat("0123456789", 30)
		d, a, f := deliver(ts, line)
		require.Len(ts, d.logs, 1)
		assert.Equal(ts, line, d.logs[0].Message)
		assert.Len(ts, d.logs[0].Message, 300)
		assert.Equal(ts, 2, f.calls)
		assert.Equal(ts, []int{304}, a.reallocs)
		assert.Equal(ts, 1, a.frees)
	})

	t.Run("NoContext", func(ts *testing.T) {
		ts.Parallel()

		d := &recordingDispatcher{}
		a := &countingAllocator{}
		LogTrampoline(d, a, nil, 1, &lineFormatter{line: "x"})
		assert.Empty(ts, d.logs)
		assert.Empty(ts, a.allocs)
	})

	t.Run("AllocFailureDrops", func(ts *testing.T) {
		ts.Parallel()

		d := &recordingDispatcher{}
		a := &countingAllocator{failAlloc: true}
		f := &lineFormatter{line: "dropped"}
		LogTrampoline(d, a, cell, 1, f)
		assert.Empty(ts, d.logs)
		assert.Zero(ts, f.calls)
		assert.Zero(ts, a.frees)
	})

	t.Run("GrowFailureDrops", func(ts *testing.T) {
		ts.Parallel()

		d := &recordingDispatcher{}
		a := &countingAllocator{failRealloc: true}
		LogTrampoline(d, a, cell, 1, &lineFormatter{line: strings.Repeat("c", 200)})
		assert.Empty(ts, d.logs)
		// the first buffer is still released
		assert.Equal(ts, 1, a.frees)
	})

	t.Run("LimitDrops", func(ts *testing.T) {
		ts.Parallel()

		d := &recordingDispatcher{}
		a := HeapAllocator{Limit: 256}
		LogTrampoline(d, a, cell, 1, &lineFormatter{line: strings.Repeat("d", 240)})
		LogTrampoline(d, a, cell, 1, &lineFormatter{line: strings.Repeat("e", 300)})
		require.Len(ts, d.logs, 1)
		assert.Len(ts, d.logs[0].Message, 240)
	})

	t.Run("FormatError", func(ts *testing.T) {
		ts.Parallel()

		d := &recordingDispatcher{}
		a := &countingAllocator{}
		LogTrampoline(d, a, cell, 1, brokenFormatter{})
		assert.Empty(ts, d.logs)
		assert.Equal(ts, 1, a.frees)
	})
}

func TestQuestionTrampoline(t *testing.T) {
	t.Parallel()

	d := &recordingDispatcher{answer: 1}
	record := [2]int32{2, 0}
	ptr := unsafe.Pointer(&record)

	QuestionTrampoline(d, &Cell{Callback: 1, Token: 1}, ptr)
	require.Len(t, d.questions, 1)
	assert.Equal(t, ptr, d.questions[0])
	assert.Equal(t, int32(1), record[1])

	QuestionTrampoline(d, nil, ptr)
	assert.Len(t, d.questions, 1)
}

// TestMetrics is not parallel so that no other test moves the counters.
func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterMetrics(reg))
	// registering twice is tolerated
	require.NoError(t, RegisterMetrics(reg))

	cell := &Cell{Callback: 1, Token: 1}
	d := &recordingDispatcher{}

	delivered := testutil.ToFloat64(logDelivered)
	grown := testutil.ToFloat64(logGrown)
	allocDrops := testutil.ToFloat64(logDropped.WithLabelValues(dropAlloc))
	questions := testutil.ToFloat64(questionsDelivered)

	LogTrampoline(d, HeapAllocator{}, cell, 1, &lineFormatter{line: "short"})
	LogTrampoline(d, HeapAllocator{}, cell, 1, &lineFormatter{line: strings.Repeat("x", 500)})
	LogTrampoline(d, &countingAllocator{failAlloc: true}, cell, 1, &lineFormatter{line: "lost"})
	QuestionTrampoline(d, cell, unsafe.Pointer(&[2]int32{}))

	assert.Equal(t, delivered+2, testutil.ToFloat64(logDelivered))
	assert.Equal(t, grown+1, testutil.ToFloat64(logGrown))
	assert.Equal(t, allocDrops+1, testutil.ToFloat64(logDropped.WithLabelValues(dropAlloc)))
	assert.Equal(t, questions+1, testutil.ToFloat64(questionsDelivered))
}
