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

package commands

import (
	"strings"

	"github.com/hgclient/hglib"
)

// StatusEntry is one line of `hg status` output: a single status letter
// (M, A, R, C, !, ?, I) followed by a repository-relative path.
type StatusEntry struct {
	Status byte
	Path   string
}

// Add runs `hg add` over the given paths; an empty paths adds everything
// hg considers untracked.
func Add(s *hglib.Session, paths ...string) error {
	res, err := s.GetCommandOutput(append([]string{"add"}, paths...), nil)
	if err != nil {
		return err
	}
	return hglib.ThrowOnFail(res, 0, "hg add failed")
}

// Remove runs `hg remove` over the given paths.
func Remove(s *hglib.Session, paths ...string) error {
	res, err := s.GetCommandOutput(append([]string{"remove"}, paths...), nil)
	if err != nil {
		return err
	}
	return hglib.ThrowOnFail(res, 0, "hg remove failed")
}

// Status runs `hg status` and parses its letter-prefixed lines into typed
// entries.
func Status(s *hglib.Session, paths ...string) ([]StatusEntry, error) {
	res, err := s.GetCommandOutput(append([]string{"status"}, paths...), nil)
	if err != nil {
		return nil, err
	}
	if err := hglib.ThrowOnFail(res, 0, "hg status failed"); err != nil {
		return nil, err
	}
	return parseStatus(res.Stdout), nil
}

// parseStatus turns lines of the form "A foo/bar.txt" into StatusEntry
// values, skipping blank lines.
func parseStatus(out string) []StatusEntry {
	var entries []StatusEntry
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 3 || line[1] != ' ' {
			continue
		}
		entries = append(entries, StatusEntry{Status: line[0], Path: line[2:]})
	}
	return entries
}
