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

	"github.com/hgclient/hglib/internal/fakeserver"
	"github.com/hgclient/hglib/internal/wire"
)

// Scenario 1: init then root.
func TestInitThenRoot(t *testing.T) {
	var sawInit bool
	s := openSession(t, func(argv []string, c *fakeserver.Conn) int32 {
		switch argv[0] {
		case "init":
			sawInit = true
			return 0
		case "root":
			c.Write(wire.Output, []byte("/repo\n"))
			return 0
		}
		t.Fatalf("unexpected argv %v", argv)
		return 1
	})

	if err := Init(s, ""); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !sawInit {
		t.Fatal("handler never saw init")
	}
	root, err := Root(s)
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	if root != "/repo" {
		t.Fatalf("Root() = %q, want /repo", root)
	}
}

func TestClone(t *testing.T) {
	var gotArgv []string
	s := openSession(t, func(argv []string, c *fakeserver.Conn) int32 {
		gotArgv = argv
		return 0
	})
	if err := Clone(s, "https://example.invalid/repo", "local"); err != nil {
		t.Fatalf("Clone: %v", err)
	}
	want := []string{"clone", "https://example.invalid/repo", "local"}
	if len(gotArgv) != len(want) {
		t.Fatalf("argv = %v, want %v", gotArgv, want)
	}
	for i := range want {
		if gotArgv[i] != want[i] {
			t.Fatalf("argv = %v, want %v", gotArgv, want)
		}
	}
}
