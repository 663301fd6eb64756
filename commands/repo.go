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

import "github.com/hgclient/hglib"

// Init runs `hg init [path]`. An empty path initializes the repository the
// session is already rooted at.
func Init(s *hglib.Session, path string) error {
	argv := AppendIf([]string{"init"}, path != "", path)
	res, err := s.GetCommandOutput(argv, nil)
	if err != nil {
		return err
	}
	return hglib.ThrowOnFail(res, 0, "hg init failed")
}

// Clone runs `hg clone source [dest]`.
func Clone(s *hglib.Session, source, dest string) error {
	argv := AppendIf([]string{"clone", source}, dest != "", dest)
	res, err := s.GetCommandOutput(argv, nil)
	if err != nil {
		return err
	}
	return hglib.ThrowOnFail(res, 0, "hg clone failed")
}

// Root returns the repository root, delegating to the session's own
// memoized accessor.
func Root(s *hglib.Session) (string, error) {
	return s.Root()
}
