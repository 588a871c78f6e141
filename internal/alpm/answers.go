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
	"bufio"
	"fmt"
	"io"
	"strings"
)

// AnswerPolicy holds a fixed yes/no answer per question type.
type AnswerPolicy map[QuestionType]bool

// DefaultAnswers are the answers pacman gives with --noconfirm.
var DefaultAnswers = AnswerPolicy{
	QuestionTypeInstallIgnorepkg: true,
	QuestionTypeReplacePkg:       true,
	QuestionTypeConflictPkg:      false,
	QuestionTypeCorruptedPkg:     true,
	QuestionTypeRemovePkgs:       false,
	QuestionTypeImportKey:        true,
}

// Answer applies the policy to q. select-provider questions get the first
// provider, types missing from the policy are answered no.
func (p AnswerPolicy) Answer(q QuestionAny) {
	if q.Type() == QuestionTypeSelectProvider {
		q.SetAnswerIndex(0)

		return
	}
	q.SetAnswer(p[q.Type()])
}

// Callback returns a QuestionCallback applying the policy.
func (p AnswerPolicy) Callback() QuestionCallback {
	return func(_ interface{}, q QuestionAny) {
		p.Answer(q)
	}
}

var questionPrompts = map[QuestionType]string{
	QuestionTypeInstallIgnorepkg: "Install a package from IgnorePkg/IgnoreGroup anyway?",
	QuestionTypeReplacePkg:       "Replace the installed package?",
	QuestionTypeConflictPkg:      "Packages are in conflict. Remove the installed one?",
	QuestionTypeCorruptedPkg:     "File is corrupted. Delete it?",
	QuestionTypeRemovePkgs:       "Remove packages with unresolvable dependencies?",
	QuestionTypeSelectProvider:   "Select a provider",
	QuestionTypeImportKey:        "Import PGP key?",
}

// PromptCallback asks on out and reads the answer from in. An empty line or
// EOF keeps the answer from fallback.
func PromptCallback(in io.Reader, out io.Writer, fallback AnswerPolicy) QuestionCallback {
	scanner := bufio.NewScanner(in)

	return func(_ interface{}, q QuestionAny) {
		fallback.Answer(q)

		prompt, ok := questionPrompts[q.Type()]
		if !ok {
			prompt = q.Type().String()
		}
		if q.Type() == QuestionTypeSelectProvider {
			fmt.Fprintf(out, ":: %s [%d]: ", prompt, q.AnswerIndex())
		} else if q.Answer() {
			fmt.Fprintf(out, ":: %s [Y/n] ", prompt)
		} else {
			fmt.Fprintf(out, ":: %s [y/N] ", prompt)
		}

		if !scanner.Scan() {
			return
		}
		reply := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if reply == "" {
			return
		}

		if q.Type() == QuestionTypeSelectProvider {
			var idx int
			if _, err := fmt.Sscanf(reply, "%d", &idx); err == nil && idx >= 0 {
				q.SetAnswerIndex(idx)
			}

			return
		}
		switch reply {
		case "y", "yes":
			q.SetAnswer(true)
		case "n", "no":
			q.SetAnswer(false)
		}
	}
}
