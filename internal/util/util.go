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

package util

import (
	"fmt"
)

const (
	// ReplayMode replays a scenario file against an in-memory libalpm.
	ReplayMode = "replay"
	// ProbeMode initializes a real libalpm handle with the bridge attached.
	ProbeMode = "probe"

	// MinMessageSize is the smallest usable log line limit, the size of the
	// buffer every line is first formatted into.
	MinMessageSize = 128
)

// variables which will be set during the build time.
var (
	// GitCommit tell the latest git commit the binary is built from.
	GitCommit string
	// BridgeVersion which will be the alpm-bridge version.
	BridgeVersion string
)

// Config holds the parameters list which can be configured.
type Config struct {
	Mode         string // run mode [replay|probe]
	ScenarioPath string // scenario file replayed in replay mode
	Root         string // libalpm root directory in probe mode
	DBPath       string // libalpm database directory in probe mode
	LogLevels    string // comma separated libalpm log levels that are printed

	// MaxMessageSize caps the buffer a single log line may grow to, 0 means
	// no cap. Longer lines are dropped.
	MaxMessageSize int

	Interactive bool // prompt on the terminal for questions
	NoConfirm   bool // answer every question with the default answer

	// metrics related flags
	MetricsPath   string // path of prometheus endpoint where metrics will be available
	MetricsIP     string // IP the metrics server listens on
	MetricsPort   int    // TCP port for metrics requests
	EnableMetrics bool   // serve bridge metrics

	Version bool // alpm-bridge version
}

// Validate checks that the combination of options is usable.
func (c *Config) Validate() error {
	switch c.Mode {
	case ReplayMode:
		if c.ScenarioPath == "" {
			return fmt.Errorf("%w: replay mode needs a scenario file", ErrInvalidConfig)
		}
	case ProbeMode:
		if c.Root == "" || c.DBPath == "" {
			return fmt.Errorf("%w: probe mode needs a root and a database path", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}

	if c.MaxMessageSize < 0 || (c.MaxMessageSize > 0 && c.MaxMessageSize < MinMessageSize) {
		return fmt.Errorf("%w: maximum message size %d is below %d", ErrInvalidConfig,
			c.MaxMessageSize, MinMessageSize)
	}
	if c.Interactive && c.NoConfirm {
		return fmt.Errorf("%w: interactive and noconfirm are mutually exclusive", ErrInvalidConfig)
	}

	if c.EnableMetrics {
		if c.MetricsPort <= 0 || c.MetricsPort > 65535 {
			return fmt.Errorf("%w: metrics port %d out of range", ErrInvalidConfig, c.MetricsPort)
		}
		if err := ValidateURL(c); err != nil {
			return fmt.Errorf("%w: metrics path %q: %w", ErrInvalidConfig, c.MetricsPath, err)
		}
	}

	return nil
}
