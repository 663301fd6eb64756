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

// Package commands builds the argument vectors for a handful of common hg
// subcommands and interprets the bytes/exit codes they produce. None of it
// talks to the wire protocol directly -- it is glue on top of
// github.com/hgclient/hglib's Session, building argv slices positionally
// rather than through a flag-parsing library.
package commands

import "time"

// dateLayout is the Go reference-time layout equivalent to Mercurial's
// "yyyy-MM-dd HH:mm:ss" date format string.
const dateLayout = "2006-01-02 15:04:05"

// FormatDate renders t in the dateLayout form, as hg's -d/--date flags
// accept it.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// AppendIf appends tokens to argv only if cond holds, so call sites read
// as a single argument-building expression instead of an if-block per
// optional flag.
func AppendIf(argv []string, cond bool, tokens ...string) []string {
	if !cond {
		return argv
	}
	return append(argv, tokens...)
}

// AppendPair appends "name value" to argv, skipping both entirely when
// value is empty -- the common case of an optional flag with an argument.
func AppendPair(argv []string, name, value string) []string {
	if value == "" {
		return argv
	}
	return append(argv, name, value)
}
