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
	"fmt"
	"strings"
	"unsafe"

	"github.com/go-alpm/alpm-bridge/internal/util"
)

// LogLevel is a libalpm log level. Levels are bit flags.
type LogLevel uint32

// Log levels as defined by alpm_loglevel_t.
const (
	LogError LogLevel = 1 << iota
	LogWarning
	LogDebug
	LogFunction
)

var logLevelNames = map[LogLevel]string{
	LogError:    "error",
	LogWarning:  "warning",
	LogDebug:    "debug",
	LogFunction: "function",
}

func (l LogLevel) String() string {
	if name, ok := logLevelNames[l]; ok {
		return name
	}

	return fmt.Sprintf("LogLevel(%d)", uint32(l))
}

// ParseLogLevel parses a single level name.
func ParseLogLevel(s string) (LogLevel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for l, name := range logLevelNames {
		if name == s {
			return l, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", util.ErrUnknownLogLevel, s)
}

// ParseLogLevels parses a comma separated list of level names into a mask.
// An empty string yields an empty mask.
func ParseLogLevels(s string) (LogLevel, error) {
	var mask LogLevel
	if strings.TrimSpace(s) == "" {
		return mask, nil
	}
	for _, part := range strings.Split(s, ",") {
		l, err := ParseLogLevel(part)
		if err != nil {
			return 0, err
		}
		mask |= l
	}

	return mask, nil
}

// QuestionType is the kind of an alpm question. Types are bit flags.
type QuestionType int32

// Question types as defined by alpm_question_type_t.
const (
	QuestionTypeInstallIgnorepkg QuestionType = 1 << iota
	QuestionTypeReplacePkg
	QuestionTypeConflictPkg
	QuestionTypeCorruptedPkg
	QuestionTypeRemovePkgs
	QuestionTypeSelectProvider
	QuestionTypeImportKey
)

var questionTypeNames = map[QuestionType]string{
	QuestionTypeInstallIgnorepkg: "install-ignorepkg",
	QuestionTypeReplacePkg:       "replace-pkg",
	QuestionTypeConflictPkg:      "conflict-pkg",
	QuestionTypeCorruptedPkg:     "corrupted-pkg",
	QuestionTypeRemovePkgs:       "remove-pkgs",
	QuestionTypeSelectProvider:   "select-provider",
	QuestionTypeImportKey:        "import-key",
}

func (t QuestionType) String() string {
	if name, ok := questionTypeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("QuestionType(%d)", int32(t))
}

// ParseQuestionType parses a question type name such as "replace-pkg".
func ParseQuestionType(s string) (QuestionType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range questionTypeNames {
		if name == s {
			return t, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", util.ErrUnknownQuestionType, s)
}

// RawQuestion has the memory layout of alpm_question_any_t, the common
// prefix of every alpm question.
type RawQuestion struct {
	Type   QuestionType
	Answer int32
}

// QuestionAny is a question asked by libalpm. It refers to memory owned by
// libalpm and is only valid during the question callback.
type QuestionAny struct {
	ptr *RawQuestion
}

// NewQuestionAny interprets p as an alpm_question_any_t.
func NewQuestionAny(p unsafe.Pointer) QuestionAny {
	return QuestionAny{(*RawQuestion)(p)}
}

// Raw returns the underlying record.
func (q QuestionAny) Raw() *RawQuestion {
	return q.ptr
}

// Type returns the question type.
func (q QuestionAny) Type() QuestionType {
	return q.ptr.Type
}

// Answer reports whether the current answer is yes.
func (q QuestionAny) Answer() bool {
	return q.ptr.Answer != 0
}

// SetAnswer sets a yes/no answer.
func (q QuestionAny) SetAnswer(answer bool) {
	if answer {
		q.ptr.Answer = 1
	} else {
		q.ptr.Answer = 0
	}
}

// AnswerIndex returns the answer as an index, as used by select-provider.
func (q QuestionAny) AnswerIndex() int {
	return int(q.ptr.Answer)
}

// SetAnswerIndex selects an entry by index, as used by select-provider.
func (q QuestionAny) SetAnswerIndex(i int) {
	q.ptr.Answer = int32(i)
}
