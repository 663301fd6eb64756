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
	"errors"
	"testing"

	"github.com/hgclient/hglib/internal/fakeserver"
)

func openFake(t *testing.T, capabilities []string, handler fakeserver.Handler) *Session {
	t.Helper()
	child, srv := fakeserver.NewChild("UTF-8", capabilities, handler)
	s, err := newSession(child, nil)
	if err != nil {
		t.Fatalf("newSession: %v", err)
	}
	t.Cleanup(srv.Wait)
	return s
}

// P4: a Session reports the encoding and capability set from its
// handshake, and that set never changes for the life of the Session.
func TestHandshakeEncodingAndCapabilities(t *testing.T) {
	s := openFake(t, []string{"runcommand", "getencoding"}, func(argv []string, c *fakeserver.Conn) int32 { return 0 })
	defer s.Close()

	if got := s.Encoding(); got != "UTF-8" {
		t.Fatalf("Encoding() = %q, want UTF-8", got)
	}
	if !s.HasCapability("runcommand") || !s.HasCapability("getencoding") {
		t.Fatalf("Capabilities() = %v, missing expected entries", s.Capabilities())
	}
	if s.HasCapability("nonexistent") {
		t.Fatalf("HasCapability(nonexistent) = true")
	}
}

// P8: RunCommand on a session whose handshake did not advertise
// "runcommand" is refused without tearing the session down.
func TestMissingRunCommandCapabilityIsRefusedNotFatal(t *testing.T) {
	s := openFake(t, []string{"getencoding"}, func(argv []string, c *fakeserver.Conn) int32 { return 0 })
	defer s.Close()

	_, err := s.RunCommand([]string{"root"}, nil, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *ServerError", err)
	}
	s.mu.Lock()
	closed := s.closedLocked()
	s.mu.Unlock()
	if closed {
		t.Fatal("session was closed after a capability refusal, want it to stay usable")
	}
}

// P9: Close is idempotent.
func TestCloseIsIdempotent(t *testing.T) {
	s := openFake(t, []string{"runcommand"}, func(argv []string, c *fakeserver.Conn) int32 { return 0 })
	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

// Scenario 6: a malformed channel byte on the handshake frame surfaces as
// a *ServerError from Attach rather than a panic or a hang.
func TestMalformedHandshakeChannel(t *testing.T) {
	raw := []byte{'Z', 0, 0, 0, 0}
	stdin, stdout := fakeserver.RawHello(raw)
	_, err := Attach(stdin, stdout)
	if err == nil {
		t.Fatal("expected an error")
	}
	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *ServerError", err)
	}
}

// Operations on a closed Session return *SessionClosed.
func TestOperationsAfterCloseFail(t *testing.T) {
	s := openFake(t, []string{"runcommand"}, func(argv []string, c *fakeserver.Conn) int32 { return 0 })
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	_, err := s.RunCommand([]string{"root"}, nil, nil)
	var sc *SessionClosed
	if !errors.As(err, &sc) {
		t.Fatalf("err = %v, want *SessionClosed", err)
	}
}
