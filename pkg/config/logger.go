// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import "fmt"

// LoggerConfig configures logging behavior.
//
// Values come from the config file's logger section (after ${VAR}
// expansion); unset fields fall back to SetDefaults (info level, simple
// format). No LOG_* environment variable overrides these fields.
type LoggerConfig struct {
	// Level specifies the log level (debug, info, warn, error). Default: info.
	Level string `yaml:"level,omitempty"`

	// File holds a log file path from the config document. routerd does
	// not pass it to the logger; log output always goes to stderr.
	File string `yaml:"file,omitempty"`

	// Format is "simple" (level + message) or "verbose" (time + level +
	// message). Default: simple.
	Format string `yaml:"format,omitempty"`
}

// SetDefaults applies default values to LoggerConfig.
func (c *LoggerConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "simple"
	}
}

// Validate checks the logger configuration.
func (c *LoggerConfig) Validate() error {
	if c.Level == "" {
		return nil
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[c.Level] {
		return fmt.Errorf("invalid log level %q (valid: debug, info, warn, error)", c.Level)
	}
	return nil
}
