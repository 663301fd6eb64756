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

// Package fakeserver is an in-process stand-in for the "hg serve
// --cmdserver pipe" child process, used to drive the command driver and
// frame codec in tests without depending on a real Mercurial install. Since
// the protocol runs over plain pipes rather than a unix control socket plus
// passed file descriptors, the fake server can live entirely in-process on
// top of io.Pipe and does not need to be exec'd at all.
package fakeserver

import (
	"io"
	"sync"

	"github.com/hgclient/hglib/internal/wire"
)

// Handler services one runcommand request. It receives the argv the
// client sent and a Conn to talk back over, and returns the exit code the
// driver should observe on the Result frame.
type Handler func(argv []string, conn *Conn) int32

// Server is a fake command-server child process running its protocol
// loop on a goroutine. Use Stdin/Stdout to wire it to a Session the way a
// real exec.Cmd's pipes would be.
type Server struct {
	stdin  *io.PipeReader // server's view: reads what the client wrote
	stdout *io.PipeWriter // server's view: writes what the client reads

	clientIn  *io.PipeWriter
	clientOut *io.PipeReader

	done chan struct{}
	err  error
	mu   sync.Mutex
}

// Conn is the server-side handle a Handler uses to write frames back to
// the client and to read the client's prompt replies.
type Conn struct {
	stdout io.Writer
	stdin  io.Reader
}

// Write emits a data/debug frame on channel ch.
func (c *Conn) Write(ch wire.Channel, payload []byte) error {
	return wire.WriteDataFrame(c.stdout, ch, payload)
}

// Prompt solicits a line or byte reply from the client: it writes the
// prompt frame advertising max, then blocks for the client's reply.
func (c *Conn) Prompt(ch wire.Channel, max uint32) ([]byte, error) {
	if err := wire.WritePromptFrame(c.stdout, ch, max); err != nil {
		return nil, err
	}
	return wire.ReadReply(c.stdin)
}

// New starts a fake command server. encoding and capabilities populate
// the hello frame the server writes as soon as New starts it. handler is invoked once
// per runcommand request received; the server loops until the client
// closes its stdin (the normal shutdown path) or the handler panics.
func New(encoding string, capabilities []string, handler Handler) (stdin io.WriteCloser, stdout io.ReadCloser, srv *Server) {
	inR, inW := io.Pipe()   // client writes inW (its stdout target == our stdin)
	outR, outW := io.Pipe() // server writes outW (its stdout == client's stdin source)

	srv = &Server{
		stdin:     inR,
		stdout:    outW,
		clientIn:  inW,
		clientOut: outR,
		done:      make(chan struct{}),
	}
	go srv.run(encoding, capabilities, handler)
	return inW, outR, srv
}

func (s *Server) run(encoding string, capabilities []string, handler Handler) {
	defer close(s.done)
	defer s.stdout.Close()

	if err := wire.WriteDataFrame(s.stdout, wire.Output, wire.EncodeHello(encoding, capabilities)); err != nil {
		s.setErr(err)
		return
	}
	conn := &Conn{stdout: s.stdout, stdin: s.stdin}
	for {
		argv, err := wire.ReadRunCommand(s.stdin)
		if err != nil {
			if err == io.EOF || err == io.ErrClosedPipe {
				return
			}
			// a short read on the prefix after the client closed
			// stdin also surfaces as io.ErrUnexpectedEOF wrapped
			// by wire; treat any read failure here as a clean
			// shutdown since there's no way to distinguish "client
			// hung up" from "client sent garbage" once the stream
			// is desynchronized.
			return
		}
		code := handler(argv, conn)
		if err := wire.WriteDataFrame(s.stdout, wire.Result, wire.EncodeResult(code)); err != nil {
			s.setErr(err)
			return
		}
	}
}

func (s *Server) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Err returns the first error the server's protocol loop encountered, if
// any, after Wait returns.
func (s *Server) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Wait blocks until the server's protocol loop has exited.
func (s *Server) Wait() {
	<-s.done
}

// Child wraps the client-side pipes of a fake server behind the same
// Stdin/Stdout/Release shape internal/procsup.Supervisor exposes, so a
// Session under test can be built without an exec.Cmd anywhere in the
// picture. Release just closes the client's end of the pipes; there is no
// process to reap.
type Child struct {
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

// NewChild starts a fake command server and returns it already wrapped as
// a Child.
func NewChild(encoding string, capabilities []string, handler Handler) (*Child, *Server) {
	stdin, stdout, srv := New(encoding, capabilities, handler)
	return &Child{stdin: stdin, stdout: stdout}, srv
}

func (c *Child) Stdin() io.Writer  { return c.stdin }
func (c *Child) Stdout() io.Reader { return c.stdout }

// Release closes both pipe ends. It has no release-once guard of its own:
// a Session can call it twice (RunCommandContext releases the child and
// the failing RunCommand releases it again), and closing an io.Pipe end a
// second time is harmless.
func (c *Child) Release() error {
	c.stdin.Close()
	c.stdout.Close()
	return nil
}

// RawHello starts a fake server that writes an arbitrary, possibly
// malformed, raw byte sequence instead of a well-formed hello frame, for
// exercising scenario 6 (malformed channel byte on handshake).
func RawHello(raw []byte) (stdin io.WriteCloser, stdout io.ReadCloser) {
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	go func() {
		defer outW.Close()
		outW.Write(raw)
		io.Copy(io.Discard, inR)
	}()
	return inW, outR
}
