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
	"context"
	"errors"
	"io"

	"github.com/google/uuid"

	"github.com/hgclient/hglib/internal/wire"
)

// InputFunc answers one input-solicitation prompt. maxBytes is the reply
// cap the child advertised; the returned bytes are truncated to maxBytes
// if longer (P7). Returning a zero-length slice signals EOF for that
// prompt.
type InputFunc func(maxBytes uint32) []byte

// OutputSinks maps the output channels (Output, Error, Debug) to a sink
// that receives the full bytes of every frame the child emits on that
// channel. A channel absent from the map is discarded.
type OutputSinks map[wire.Channel]io.Writer

// InputProviders maps the prompt channels (LineInput, ByteInput) to a
// function that answers the child's request for input. A channel absent
// from the map gets an empty (EOF) reply.
type InputProviders map[wire.Channel]InputFunc

// RunCommand sends argv to the child as a runcommand request and
// dispatches every frame of the response to the matching sink or
// provider until the terminal Result frame arrives, whose payload is
// returned as the command's exit code.
//
// RunCommand must not be reentered on the same Session: concurrent
// callers are serialized, and the association between one request and
// its result is strictly positional (invariant I1/I2).
func (s *Session) RunCommand(argv []string, sinks OutputSinks, inputs InputProviders) (int, error) {
	if len(argv) == 0 {
		return 0, invalidArgument("argv must be non-empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closedLocked() {
		return 0, &SessionClosed{}
	}
	if !s.HasCapability("runcommand") {
		// Nothing has been written to the child; per P8 this is a
		// refusal, not a teardown.
		return 0, serverError(nil, "unsupported capability: runcommand")
	}

	id := uuid.New().String()
	s.state = stateRunning
	s.logf("runcommand[%s] start argv=%v", id, argv)

	if err := wire.WriteRunCommand(s.sup.Stdin(), argv); err != nil {
		return 0, s.failLocked(serverError(err, "writing runcommand request"))
	}

	for {
		frame, err := wire.ReadFrame(s.sup.Stdout())
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, s.failLocked(serverError(err, "server terminated early"))
			}
			return 0, s.failLocked(serverError(err, "reading frame"))
		}

		class, ok := wire.ClassOf(frame.Channel)
		if !ok {
			// ReadFrame already rejects unknown channel bytes, so
			// this is unreachable in practice; kept so the
			// invariant (I4: never silently drop an unknown
			// channel) holds even if ClassOf's table and
			// ReadFrame's ever drift apart.
			return 0, s.failLocked(serverError(nil, "unhandled channel %s", frame.Channel))
		}

		switch class {
		case wire.ClassResult:
			code, err := wire.DecodeResult(frame.Payload)
			if err != nil {
				return 0, s.failLocked(serverError(err, "decoding result frame"))
			}
			s.state = stateReady
			s.logf("runcommand[%s] done exitcode=%d", id, code)
			return int(code), nil

		case wire.ClassData:
			s.logf("runcommand[%s] frame channel=%s bytes=%d fp=%x", id, frame.Channel, len(frame.Payload), wire.Fingerprint(frame.Payload))
			if sink := sinks[frame.Channel]; sink != nil {
				if _, err := sink.Write(frame.Payload); err != nil {
					return 0, s.failLocked(serverError(err, "writing to %s sink", frame.Channel))
				}
			}

		case wire.ClassPrompt:
			max := wire.PromptCap(frame)
			var reply []byte
			if fn := inputs[frame.Channel]; fn != nil {
				reply = fn(max)
				if uint32(len(reply)) > max {
					reply = reply[:max]
				}
			}
			if err := wire.WriteReply(s.sup.Stdin(), reply); err != nil {
				return 0, s.failLocked(serverError(err, "writing %s reply", frame.Channel))
			}
		}
	}
}

// RunCommandContext is RunCommand with cooperative cancellation: if ctx
// is done before the command completes, the child is killed and the
// session is transitioned to Closed, and RunCommandContext returns a
// *Cancelled error. The protocol does not support per-command timeouts
// (spec.md section 5), so cancellation is necessarily session-wide.
func (s *Session) RunCommandContext(ctx context.Context, argv []string, sinks OutputSinks, inputs InputProviders) (int, error) {
	type outcome struct {
		code int
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		code, err := s.RunCommand(argv, sinks, inputs)
		done <- outcome{code, err}
	}()

	select {
	case o := <-done:
		return o.code, o.err
	case <-ctx.Done():
		// Release does not take s.mu: the in-flight RunCommand
		// above is holding it, blocked on a pipe read that this
		// call is about to make fail.
		s.sup.Release()
		<-done
		s.mu.Lock()
		s.state = stateClosed
		s.mu.Unlock()
		s.logf("runcommand cancelled: %v", ctx.Err())
		return 0, &Cancelled{Msg: ctx.Err().Error()}
	}
}
