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
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/hgclient/hglib"
)

// Commit runs `hg commit -m message [paths...]`.
func Commit(s *hglib.Session, message string, paths ...string) error {
	argv := append([]string{"commit", "-m", message}, paths...)
	res, err := s.GetCommandOutput(argv, nil)
	if err != nil {
		return err
	}
	return hglib.ThrowOnFail(res, 0, "hg commit failed")
}

// LogEntry is one <logentry> element of `hg log --style xml`.
type LogEntry struct {
	Revision string `xml:"revision,attr"`
	Node     string `xml:"node,attr"`
	Author   string `xml:"author"`
	Date     string `xml:"date"`
	Msg      string `xml:"msg"`
}

// logDocument mirrors the <log><logentry>...</logentry>...</log> root
// element hg's xml style template emits.
type logDocument struct {
	XMLName xml.Name   `xml:"log"`
	Entries []LogEntry `xml:"logentry"`
}

// Log runs `hg log --style xml`, optionally bounded to the last limit
// revisions, and parses the result into typed entries. No example repo in
// this module's retrieval pack vendors a third-party XML decoder, so this
// one spot uses the standard library's encoding/xml; see the library's
// design notes for the full reasoning.
func Log(s *hglib.Session, limit int) ([]LogEntry, error) {
	argv := []string{"log", "--style", "xml"}
	if limit > 0 {
		argv = append(argv, "-l", strconv.Itoa(limit))
	}
	res, err := s.GetCommandOutput(argv, nil)
	if err != nil {
		return nil, err
	}
	if err := hglib.ThrowOnFail(res, 0, "hg log failed"); err != nil {
		return nil, err
	}
	var doc logDocument
	if err := xml.Unmarshal([]byte(res.Stdout), &doc); err != nil {
		return nil, fmt.Errorf("commands: parsing log xml: %w", err)
	}
	return doc.Entries, nil
}
