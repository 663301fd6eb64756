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
	"bytes"
	"strings"

	"github.com/hgclient/hglib/internal/wire"
)

// CommandResult is the captured output and exit status of one
// GetCommandOutput call.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// GetCommandOutput runs argv with in-memory buffers bound to the Output
// and Error channels and returns their contents as strings. The bytes are
// taken as UTF-8 whatever the session's negotiated encoding is; a non-UTF-8
// encoding is logged, not transcoded (see decode). Exit-code
// interpretation is left to the caller; see
// ThrowOnFail for converting a non-zero code into a *CommandError.
func (s *Session) GetCommandOutput(argv []string, inputs InputProviders) (CommandResult, error) {
	var stdout, stderr bytes.Buffer
	sinks := OutputSinks{
		wire.Output: &stdout,
		wire.Error:  &stderr,
	}
	code, err := s.RunCommand(argv, sinks, inputs)
	if err != nil {
		return CommandResult{}, err
	}
	return CommandResult{
		Stdout:   s.decode(stdout.Bytes()),
		Stderr:   s.decode(stderr.Bytes()),
		ExitCode: code,
	}, nil
}

// decode converts captured bytes using Session.Encoding(). Per Open
// Question (c), the fully general answer would transcode through
// Session.Encoding() via golang.org/x/text/encoding; no example repo in
// this module's retrieval pack vendors that package, and in the
// overwhelming majority of real Mercurial deployments the negotiated
// encoding already is UTF-8. So non-UTF-8 encodings fall back to a raw
// UTF-8 interpretation with a logged warning rather than a true
// transcoding step -- a deliberate, documented stdlib-only exception, not
// an oversight.
func (s *Session) decode(b []byte) string {
	if s.encoding != "" && !strings.EqualFold(s.encoding, "UTF-8") && !strings.EqualFold(s.encoding, "UTF8") {
		s.logf("decoding command output as UTF-8 despite negotiated encoding %q", s.encoding)
	}
	return string(b)
}
