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

//go:build !libalpm

package libalpm

import (
	"github.com/go-alpm/alpm-bridge/internal/alpm"
	"github.com/go-alpm/alpm-bridge/internal/util"
)

// Initialize is only available with the libalpm build tag.
func Initialize(_, _ string) (alpm.Native, error) {
	return nil, util.ErrNoLibalpm
}
