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

// SyncResult is the outcome of a Pull, Push, Merge, or Update: the
// captured output plus whether the command reported "ran, but nothing to
// do or conflicts remain" (exit code 1) rather than a clean success.
type SyncResult struct {
	Result     hglib.CommandResult
	Conflicted bool
}

// Pull runs `hg pull [source]`.
func Pull(s *hglib.Session, source string) (SyncResult, error) {
	return runSync(s, AppendIf([]string{"pull"}, source != "", source), "hg pull failed")
}

// Push runs `hg push [dest]`.
func Push(s *hglib.Session, dest string) (SyncResult, error) {
	return runSync(s, AppendIf([]string{"push"}, dest != "", dest), "hg push failed")
}

// Merge runs `hg merge`.
func Merge(s *hglib.Session) (SyncResult, error) {
	return runSync(s, []string{"merge"}, "hg merge failed")
}

// Update runs `hg update [-r rev]`.
func Update(s *hglib.Session, rev string) (SyncResult, error) {
	return runSync(s, AppendPair([]string{"update"}, "-r", rev), "hg update failed")
}

// runSync implements the shared pull/push/merge/update exit-code policy:
// 0 is success, 1 is "ran but conflicts or nothing to do" and is reported
// via Conflicted rather than an error, and anything else is fatal.
func runSync(s *hglib.Session, argv []string, failMessage string) (SyncResult, error) {
	res, err := s.GetCommandOutput(argv, nil)
	if err != nil {
		return SyncResult{}, err
	}
	switch res.ExitCode {
	case 0:
		return SyncResult{Result: res}, nil
	case 1:
		return SyncResult{Result: res, Conflicted: true}, nil
	default:
		return SyncResult{Result: res}, hglib.ThrowOnFail(res, 0, failMessage)
	}
}
