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

//go:build !windows

package procsup

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// terminate asks proc to exit with SIGTERM, then escalates to SIGKILL
// shortly after if it is still alive. It never blocks on the process
// actually exiting; the caller is already waiting on cmd.Wait()
// independently.
func terminate(proc *os.Process) {
	if proc == nil {
		return
	}
	proc.Signal(unix.SIGTERM)
	time.Sleep(250 * time.Millisecond)
	proc.Signal(unix.SIGKILL)
}
