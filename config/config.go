// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package config loads the defaults a hglib.Session is opened with from a
// small YAML file, so that a long-running host process doesn't need to
// hard-code its hg binary path or default repository encoding.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"sigs.k8s.io/yaml"
)

// Config holds the subset of Session options that make sense to source
// from a file rather than a call site: the hg binary location, the
// default encoding override, repository-level config overrides applied
// to every session, and the process-supervisor grace window.
type Config struct {
	HgBinary        string            `json:"hgBinary,omitempty"`
	Encoding        string            `json:"encoding,omitempty"`
	ConfigOverrides map[string]string `json:"configOverrides,omitempty"`
	GraceWindow     time.Duration     `json:"graceWindow,omitempty"`
}

// UnmarshalJSON overrides the default field-by-field decode so that
// graceWindow can be written as a duration string ("2s", "500ms") the way
// a human editing the file would expect, rather than as a raw count of
// nanoseconds. sigs.k8s.io/yaml converts YAML to JSON before this runs, so
// the same override also covers the YAML entry point Load uses.
func (c *Config) UnmarshalJSON(data []byte) error {
	var raw struct {
		HgBinary        string            `json:"hgBinary,omitempty"`
		Encoding        string            `json:"encoding,omitempty"`
		ConfigOverrides map[string]string `json:"configOverrides,omitempty"`
		GraceWindow     string            `json:"graceWindow,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.HgBinary = raw.HgBinary
	c.Encoding = raw.Encoding
	c.ConfigOverrides = raw.ConfigOverrides
	if raw.GraceWindow != "" {
		d, err := time.ParseDuration(raw.GraceWindow)
		if err != nil {
			return fmt.Errorf("config: parsing graceWindow %q: %w", raw.GraceWindow, err)
		}
		c.GraceWindow = d
	}
	return nil
}

// MarshalJSON is the inverse of UnmarshalJSON, writing graceWindow back
// out as the same duration-string form.
func (c Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		HgBinary        string            `json:"hgBinary,omitempty"`
		Encoding        string            `json:"encoding,omitempty"`
		ConfigOverrides map[string]string `json:"configOverrides,omitempty"`
		GraceWindow     string            `json:"graceWindow,omitempty"`
	}{
		HgBinary:        c.HgBinary,
		Encoding:        c.Encoding,
		ConfigOverrides: c.ConfigOverrides,
		GraceWindow:     c.GraceWindow.String(),
	})
}

// Default returns the zero-value configuration: hg on $PATH, no encoding
// override, no config overrides, the library's default grace window.
func Default() *Config {
	return &Config{}
}

// Load reads and parses a YAML configuration file. A missing file is not
// an error-free no-op on purpose: callers that want an optional config
// file should stat it themselves before calling Load, the same way the
// rest of this module prefers explicit handling over silently swallowed
// errors.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &c, nil
}
