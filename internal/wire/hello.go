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

package wire

import (
	"fmt"
	"io"
	"strings"
)

// Hello is the parsed handshake the child emits as the first frame it
// ever writes. Encoding and Capabilities are required; ReadHello fails if
// either is missing.
type Hello struct {
	Encoding     string
	Capabilities map[string]struct{}
}

// Has reports whether the handshake advertised the named capability.
func (h Hello) Has(capability string) bool {
	_, ok := h.Capabilities[capability]
	return ok
}

// ReadHello reads the single unsolicited hello frame and parses its
// newline-delimited "key: value" header block. It does not validate the
// frame's channel beyond what ReadFrame already enforces -- callers that
// care the hello arrived on the Output channel specifically should check
// f.Channel themselves if that matters to them.
func ReadHello(r io.Reader) (Hello, error) {
	f, err := ReadFrame(r)
	if err != nil {
		return Hello{}, fmt.Errorf("wire: reading hello frame: %w", err)
	}
	return ParseHello(f.Payload)
}

// ParseHello parses the raw payload of a hello frame.
func ParseHello(payload []byte) (Hello, error) {
	h := Hello{Capabilities: map[string]struct{}{}}
	var sawEncoding, sawCapabilities bool
	for _, line := range strings.Split(string(payload), "\n") {
		if line == "" {
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		switch key {
		case "encoding":
			h.Encoding = val
			sawEncoding = true
		case "capabilities":
			sawCapabilities = true
			for _, c := range strings.Fields(val) {
				h.Capabilities[c] = struct{}{}
			}
		}
	}
	if !sawEncoding || !sawCapabilities {
		return Hello{}, fmt.Errorf("wire: handshake missing required key(s): encoding=%v capabilities=%v", sawEncoding, sawCapabilities)
	}
	return h, nil
}

// EncodeHello serializes a Hello back into the newline-delimited
// "key: value" block the real protocol uses. It is used by the fake
// command server in tests to synthesize a handshake.
func EncodeHello(encoding string, capabilities []string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "encoding: %s\n", encoding)
	fmt.Fprintf(&b, "capabilities: %s\n", strings.Join(capabilities, " "))
	return []byte(b.String())
}
