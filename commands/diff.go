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

// Diff runs `hg diff [paths...]` and returns the unified diff text
// verbatim; exit code 1 from hg diff means "there were differences to
// show", not a failure, so it is not treated as an error here.
func Diff(s *hglib.Session, paths ...string) (string, error) {
	res, err := s.GetCommandOutput(append([]string{"diff"}, paths...), nil)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 && res.ExitCode != 1 {
		return "", hglib.ThrowOnFail(res, 0, "hg diff failed")
	}
	return res.Stdout, nil
}
