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

// Package hglib is a client for Mercurial's command server
// (`hg serve --cmdserver pipe`): a long-running hg child process that
// accepts commands and streams responses over a framed binary protocol on
// its stdin/stdout. Opening one Session and reusing it across many
// RunCommand/GetCommandOutput calls amortizes hg's own startup cost,
// which otherwise dominates the latency of invoking it once per command.
package hglib

import (
	"fmt"
	"io"
	"log"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/hgclient/hglib/internal/procsup"
	"github.com/hgclient/hglib/internal/wire"
)

type sessionState int

const (
	stateReady sessionState = iota
	stateRunning
	stateClosed
)

// childProcess is the subset of *procsup.Supervisor the command driver
// depends on. Session talks to this interface rather than the concrete
// type so that the test suite can substitute the in-process fake command
// server (internal/fakeserver) for a real hg child without touching
// exec.Cmd at all.
type childProcess interface {
	Stdin() io.Writer
	Stdout() io.Reader
	Release() error
}

// Session is a single hg cmdserver child process plus the negotiated
// handshake from it. A Session is safe for concurrent use: RunCommand
// calls on the same Session are serialized (invariant I1), so concurrent
// callers never interleave their argument bytes or output frames.
//
// The zero value is not usable; create a Session with Open.
type Session struct {
	mu    sync.Mutex // serializes RunCommand and guards state
	state sessionState

	sup    childProcess
	logger *log.Logger

	encoding     string
	capabilities map[string]struct{}

	rootOnce sync.Once
	root     string
	rootErr  error

	versionOnce sync.Once
	version     string
	versionErr  error

	configMu    sync.Mutex
	configCache map[string]string
}

// Open launches an hg command server rooted at repoPath (pass "" to
// launch without -R, e.g. before running "init") and performs the initial
// handshake. The returned Session owns the child process; callers must
// call Close when done with it.
func Open(repoPath string, opts ...Option) (*Session, error) {
	var cfg sessionConfig
	for _, o := range opts {
		o(&cfg)
	}

	sup, err := procsup.Launch(cfg.procsupOptions(repoPath))
	if err != nil {
		return nil, launchError(err, "launching hg cmdserver")
	}
	return newSession(sup, cfg.logger)
}

// newSession performs the handshake against an already-launched child and
// builds the Session around it. It is split out from Open so the test
// suite can hand it a childProcess backed by internal/fakeserver instead
// of a real procsup.Supervisor wrapping an exec.Cmd.
func newSession(sup childProcess, logger *log.Logger) (*Session, error) {
	hello, err := wire.ReadHello(sup.Stdout())
	if err != nil {
		sup.Release()
		return nil, serverError(err, "handshake")
	}

	s := &Session{
		sup:          sup,
		logger:       logger,
		encoding:     hello.Encoding,
		capabilities: hello.Capabilities,
	}
	s.logf("session opened: encoding=%s capabilities=%v", s.encoding, capabilityList(hello.Capabilities))
	return s, nil
}

// Attach builds a Session around an already-running command server
// reachable via stdin/stdout, without launching a child process itself.
// Open performs the same handshake once procsup.Launch has started the hg
// child; Attach is exported separately because a command server need not
// always be a local child process -- an SSH-forwarded pipe to a remote
// repository's cmdserver, or a fake server in a test, both speak the same
// protocol over whatever io.Writer/io.Reader pair they expose.
//
// If stdin and/or stdout also implement io.Closer, Close releases them by
// closing both ends; otherwise Close is a no-op beyond invalidating the
// Session.
func Attach(stdin io.Writer, stdout io.Reader, opts ...Option) (*Session, error) {
	var cfg sessionConfig
	for _, o := range opts {
		o(&cfg)
	}
	return newSession(&rawConn{stdin: stdin, stdout: stdout}, cfg.logger)
}

// rawConn adapts a bare stdin/stdout pair to the childProcess interface
// for Attach.
type rawConn struct {
	stdin  io.Writer
	stdout io.Reader
}

func (c *rawConn) Stdin() io.Writer  { return c.stdin }
func (c *rawConn) Stdout() io.Reader { return c.stdout }

func (c *rawConn) Release() error {
	var err error
	if wc, ok := c.stdin.(io.Closer); ok {
		if e := wc.Close(); e != nil {
			err = e
		}
	}
	if rc, ok := c.stdout.(io.Closer); ok {
		if e := rc.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

func capabilityList(caps map[string]struct{}) []string {
	out := make([]string, 0, len(caps))
	for c := range caps {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

func (s *Session) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf("hglib: "+format, args...)
	}
}

// Encoding returns the text encoding the child negotiated at handshake.
// It is fixed for the lifetime of the Session (invariant I3).
func (s *Session) Encoding() string { return s.encoding }

// Capabilities returns the capability set the child negotiated at
// handshake. The returned map must not be mutated by the caller; it is
// fixed for the lifetime of the Session (invariant I3).
func (s *Session) Capabilities() map[string]struct{} { return s.capabilities }

// HasCapability reports whether the child advertised the named
// capability at handshake.
func (s *Session) HasCapability(name string) bool {
	_, ok := s.capabilities[name]
	return ok
}

// closedLocked must be called with s.mu held.
func (s *Session) closedLocked() bool { return s.state == stateClosed }

// failLocked transitions the session to Closed and kills the child. It is
// called whenever a protocol-level error occurs, per the taxonomy's
// "always tear down the session" policy; it must be called with s.mu
// held.
func (s *Session) failLocked(err error) error {
	if s.state != stateClosed {
		s.state = stateClosed
		s.sup.Release()
		s.logf("session closed after protocol error: %v", err)
	}
	return err
}

// Close terminates the child process and invalidates the Session. Close
// is idempotent (P9): calling it more than once is safe and every call
// after the first is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateClosed {
		return nil
	}
	s.state = stateClosed
	s.sup.Release()
	return nil
}

// Root returns the repository root the session was opened against. The
// value is computed on first call (by running `hg root`) and memoized;
// subsequent calls return the cached value without touching the child
// again. This is an explicit memoized accessor rather than hidden
// mutation on first access, matching the Design Note on lazily cached
// session properties: the call is safe under the session's own
// serialization discipline because it simply delegates to
// GetCommandOutput like any other caller would.
func (s *Session) Root() (string, error) {
	s.rootOnce.Do(func() {
		res, err := s.GetCommandOutput([]string{"root"}, nil)
		if err != nil {
			s.rootErr = err
			return
		}
		if err := ThrowOnFail(res, 0, "hg root failed"); err != nil {
			s.rootErr = err
			return
		}
		s.root = trimNewline(res.Stdout)
	})
	return s.root, s.rootErr
}

// Version returns the hg client version string reported by `hg version
// --quiet`, memoized after the first call.
func (s *Session) Version() (string, error) {
	s.versionOnce.Do(func() {
		res, err := s.GetCommandOutput([]string{"version", "--quiet"}, nil)
		if err != nil {
			s.versionErr = err
			return
		}
		if err := ThrowOnFail(res, 0, "hg version failed"); err != nil {
			s.versionErr = err
			return
		}
		s.version = trimNewline(res.Stdout)
	})
	return s.version, s.versionErr
}

// ConfigValue returns a single configuration value (e.g. "ui.username")
// as reported by `hg showconfig <name>`, caching each distinct name the
// first time it is requested. Unlike Root and Version, which are
// single-shot, the configuration cache is keyed per name because callers
// typically only need a handful of specific keys and querying the entire
// configuration up front would be wasted work for the common case.
func (s *Session) ConfigValue(name string) (string, error) {
	s.configMu.Lock()
	if v, ok := s.configCache[name]; ok {
		s.configMu.Unlock()
		return v, nil
	}
	s.configMu.Unlock()

	res, err := s.GetCommandOutput([]string{"showconfig", name}, nil)
	if err != nil {
		return "", err
	}
	if err := ThrowOnFail(res, 0, fmt.Sprintf("hg showconfig %s failed", name)); err != nil {
		return "", err
	}
	val := trimNewline(res.Stdout)

	s.configMu.Lock()
	if s.configCache == nil {
		s.configCache = map[string]string{}
	}
	s.configCache[name] = val
	s.configMu.Unlock()
	return val, nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
