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

package hglib

import (
	"log"
	"time"

	"github.com/hgclient/hglib/config"
	"github.com/hgclient/hglib/internal/procsup"
)

// Option configures Open. Options are applied in order, so a later option
// always wins over an earlier one -- in particular, WithConfig should
// usually be supplied first so any explicit option after it can override
// a loaded default.
type Option func(*sessionConfig)

type sessionConfig struct {
	hgBinary        string
	encoding        string
	configOverrides map[string]string
	logger          *log.Logger
	graceWindow     time.Duration
}

// WithHgBinary overrides the executable used to launch the command
// server; the default is "hg" resolved via $PATH.
func WithHgBinary(path string) Option {
	return func(c *sessionConfig) { c.hgBinary = path }
}

// WithEncoding sets HGENCODING in the child's environment, overriding its
// own default text encoding negotiation.
func WithEncoding(encoding string) Option {
	return func(c *sessionConfig) { c.encoding = encoding }
}

// WithConfigOverrides passes additional `--config key=value` pairs to the
// child on launch.
func WithConfigOverrides(overrides map[string]string) Option {
	return func(c *sessionConfig) {
		merged := make(map[string]string, len(c.configOverrides)+len(overrides))
		for k, v := range c.configOverrides {
			merged[k] = v
		}
		for k, v := range overrides {
			merged[k] = v
		}
		c.configOverrides = merged
	}
}

// WithLogger attaches a logger that receives protocol diagnostics and the
// child's drained stderr. A nil logger (the default) disables all of
// this.
func WithLogger(l *log.Logger) Option {
	return func(c *sessionConfig) { c.logger = l }
}

// WithGraceWindow overrides how long Close waits for the child to exit on
// its own after its stdin is closed before force-killing it.
func WithGraceWindow(d time.Duration) Option {
	return func(c *sessionConfig) { c.graceWindow = d }
}

// WithConfig seeds the session's defaults from a loaded config.Config.
// Any Option supplied after WithConfig in the Open call overrides the
// corresponding field.
func WithConfig(cfg *config.Config) Option {
	return func(c *sessionConfig) {
		if cfg == nil {
			return
		}
		if cfg.HgBinary != "" {
			c.hgBinary = cfg.HgBinary
		}
		if cfg.Encoding != "" {
			c.encoding = cfg.Encoding
		}
		if len(cfg.ConfigOverrides) > 0 {
			merged := make(map[string]string, len(c.configOverrides)+len(cfg.ConfigOverrides))
			for k, v := range c.configOverrides {
				merged[k] = v
			}
			for k, v := range cfg.ConfigOverrides {
				merged[k] = v
			}
			c.configOverrides = merged
		}
		if cfg.GraceWindow > 0 {
			c.graceWindow = cfg.GraceWindow
		}
	}
}

func (c *sessionConfig) procsupOptions(repoPath string) procsup.Options {
	return procsup.Options{
		HgBinary:        c.hgBinary,
		RepoPath:        repoPath,
		ConfigOverrides: c.configOverrides,
		Encoding:        c.encoding,
		Logger:          c.logger,
		GraceWindow:     c.graceWindow,
	}
}
