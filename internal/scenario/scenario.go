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

// Package scenario replays recorded libalpm callback traffic through the
// bridge. A scenario is a YAML list of log lines and questions:
//
//	name: upgrade
//	events:
//	  - log: {level: warning, format: "%s: signature is unknown trust\n", args: [core]}
//	  - question: {type: replace-pkg, expect: 1}
package scenario

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-alpm/alpm-bridge/internal/alpm"
	"github.com/go-alpm/alpm-bridge/internal/libalpm"

	"gopkg.in/yaml.v3"
)

// ErrInvalidScenario is returned for scenarios that can not be replayed.
var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario is a sequence of events emitted by a fake libalpm handle.
type Scenario struct {
	Name   string  `yaml:"name"`
	Root   string  `yaml:"root"`
	DBPath string  `yaml:"dbpath"`
	Events []Event `yaml:"events"`
}

// Event is either a log line or a question.
type Event struct {
	Log      *LogEvent      `yaml:"log,omitempty"`
	Question *QuestionEvent `yaml:"question,omitempty"`
}

// LogEvent is a log line, formatted with package fmt.
type LogEvent struct {
	Level  string        `yaml:"level"`
	Format string        `yaml:"format"`
	Args   []interface{} `yaml:"args,omitempty"`

	level alpm.LogLevel
}

// QuestionEvent is a question. Default is the answer libalpm presets before
// asking, Expect is the answer the callback must give, if set.
type QuestionEvent struct {
	Type    string `yaml:"type"`
	Default int32  `yaml:"default,omitempty"`
	Expect  *int32 `yaml:"expect,omitempty"`

	qtype alpm.QuestionType
}

// Result is the outcome of one question.
type Result struct {
	Event    int
	Type     alpm.QuestionType
	Answer   int32
	Expected *int32
}

// Matched reports whether the answer is the expected one. Results without
// an expectation always match.
func (r Result) Matched() bool {
	return r.Expected == nil || *r.Expected == r.Answer
}

// Load reads and parses the scenario file at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path) // #nosec:G304, file inclusion via variable.
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario %s: %w", path, err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}

	return sc, nil
}

// Parse parses and validates a scenario.
func Parse(data []byte) (*Scenario, error) {
	sc := &Scenario{}
	if err := yaml.Unmarshal(data, sc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	if sc.Root == "" {
		sc.Root = "/"
	}
	if sc.DBPath == "" {
		sc.DBPath = "/var/lib/pacman"
	}

	for i := range sc.Events {
		if err := sc.Events[i].validate(); err != nil {
			return nil, fmt.Errorf("%w: event %d: %w", ErrInvalidScenario, i, err)
		}
	}

	return sc, nil
}

func (e *Event) validate() error {
	switch {
	case e.Log != nil && e.Question != nil:
		return errors.New("event has both log and question")
	case e.Log != nil:
		level, err := alpm.ParseLogLevel(e.Log.Level)
		if err != nil {
			return err
		}
		e.Log.level = level
	case e.Question != nil:
		qtype, err := alpm.ParseQuestionType(e.Question.Type)
		if err != nil {
			return err
		}
		e.Question.qtype = qtype
	default:
		return errors.New("event has neither log nor question")
	}

	return nil
}

// NewFakeHandle returns a fake libalpm handle for the scenario's paths.
func (sc *Scenario) NewFakeHandle() *libalpm.FakeHandle {
	return libalpm.NewFakeHandle(sc.Root, sc.DBPath)
}

// Replay emits the events of sc on f in order. Callbacks must already be
// registered on the managed handle attached to f.
func Replay(f *libalpm.FakeHandle, sc *Scenario) []Result {
	var results []Result
	for i, e := range sc.Events {
		switch {
		case e.Log != nil:
			f.Log(e.Log.level, e.Log.Format, e.Log.Args...)
		case e.Question != nil:
			q := &alpm.RawQuestion{Type: e.Question.qtype, Answer: e.Question.Default}
			f.Ask(q)
			results = append(results, Result{
				Event:    i,
				Type:     q.Type,
				Answer:   q.Answer,
				Expected: e.Question.Expect,
			})
		}
	}

	return results
}
