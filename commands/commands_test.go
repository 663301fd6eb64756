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
	"testing"

	"github.com/hgclient/hglib"
	"github.com/hgclient/hglib/internal/fakeserver"
)

// openSession wires a fake command server up to a live hglib.Session via
// Attach, which performs the same handshake Open performs for a real child
// process. handler answers every runcommand request the subcommand
// adapters under test send.
func openSession(t *testing.T, handler fakeserver.Handler) *hglib.Session {
	t.Helper()
	stdin, stdout, srv := fakeserver.New("UTF-8", []string{"runcommand"}, handler)
	s, err := hglib.Attach(stdin, stdout)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
		srv.Wait()
	})
	return s
}
