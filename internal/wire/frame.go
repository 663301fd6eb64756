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
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/dchest/siphash"
)

const headerSize = 5

// Frame is one header+payload unit of the command-server protocol. For
// the prompt channels (LineInput, ByteInput) Payload is the 4-byte
// big-endian encoding of the reply cap rather than a streamed payload --
// see ReadFrame.
type Frame struct {
	Channel Channel
	Payload []byte
}

// Fingerprint computes a short, non-cryptographic, non-reversible tag for
// a frame payload, suitable for trace-level log lines that want to
// correlate a logged frame with a packet capture without printing the
// payload bytes themselves.
func Fingerprint(payload []byte) uint64 {
	return siphash.Hash(0, 0, payload)
}

// ErrPayloadTooLarge is returned when a frame's declared length does not
// fit in a Go int on this platform. The wire length field is always a
// full unsigned 32-bit integer (see Design Note on unbounded payloads);
// this error only fires on 32-bit-int builds decoding a pathological
// 4GiB-class frame.
var ErrPayloadTooLarge = errors.New("wire: payload length exceeds addressable memory")

// ReadFrame decodes exactly one frame from r.
//
// All length prefixes on the wire are big-endian (Design Note / Open
// Question (a)): there is no host-endian code path here or anywhere else
// in this package.
func ReadFrame(r io.Reader) (Frame, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, fmt.Errorf("wire: reading frame header: %w", err)
	}
	ch := Channel(hdr[0])
	class, ok := ClassOf(ch)
	if !ok {
		return Frame{}, fmt.Errorf("wire: invalid channel byte %q", hdr[0])
	}
	n := binary.BigEndian.Uint32(hdr[1:])
	if class == ClassPrompt {
		// no payload follows; the length field is the reply cap
		var cap [4]byte
		binary.BigEndian.PutUint32(cap[:], n)
		return Frame{Channel: ch, Payload: cap[:]}, nil
	}
	if uint64(n) > uint64(math.MaxInt) {
		return Frame{}, ErrPayloadTooLarge
	}
	payload := make([]byte, n)
	// io.ReadFull loops internally over however many reads the
	// underlying pipe needs to satisfy len(payload); we must never
	// assume a single Read call returns all of it.
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, fmt.Errorf("wire: reading %d-byte payload on channel %s: %w", n, ch, err)
	}
	return Frame{Channel: ch, Payload: payload}, nil
}

// WriteDataFrame writes a header+payload frame for one of the data
// channels (Output, Error, Debug) or the terminal Result channel. It is
// used by the in-process fake command server that backs this module's
// tests; the real client side of the protocol never emits these -- only
// the server (the hg child process) does.
func WriteDataFrame(w io.Writer, c Channel, payload []byte) error {
	var hdr [headerSize]byte
	hdr[0] = byte(c)
	binary.BigEndian.PutUint32(hdr[1:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// WritePromptFrame writes a zero-payload input-solicitation header
// advertising a reply cap of max bytes on channel c. Used by the fake
// command server in tests.
func WritePromptFrame(w io.Writer, c Channel, max uint32) error {
	var hdr [headerSize]byte
	hdr[0] = byte(c)
	binary.BigEndian.PutUint32(hdr[1:], max)
	_, err := w.Write(hdr[:])
	return err
}

// PromptCap interprets a ClassPrompt Frame's Payload as the reply cap.
func PromptCap(f Frame) uint32 {
	return binary.BigEndian.Uint32(f.Payload)
}

// EncodeResult packs an exit code into the 4-byte big-endian payload
// carried by the Result channel.
func EncodeResult(code int32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(code))
	return buf[:]
}

// DecodeResult unpacks a Result frame's payload into a signed exit code.
func DecodeResult(payload []byte) (int32, error) {
	if len(payload) != 4 {
		return 0, fmt.Errorf("wire: result payload is %d bytes, want 4", len(payload))
	}
	return int32(binary.BigEndian.Uint32(payload)), nil
}

// WriteReply writes a client input-reply frame: a bare uint32be(k) length
// prefix followed by k bytes, with no channel byte (per spec.md section
// 6, client reply frames carry no discriminator -- the server already
// knows which prompt it is waiting on).
func WriteReply(w io.Writer, payload []byte) error {
	var lenbuf [4]byte
	binary.BigEndian.PutUint32(lenbuf[:], uint32(len(payload)))
	if _, err := w.Write(lenbuf[:]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}

// ReadReply reads a client input-reply frame written by WriteReply. It is
// used by the fake command server in tests to observe what the client
// sent back in response to a prompt.
func ReadReply(r io.Reader) ([]byte, error) {
	var lenbuf [4]byte
	if _, err := io.ReadFull(r, lenbuf[:]); err != nil {
		return nil, fmt.Errorf("wire: reading reply length: %w", err)
	}
	n := binary.BigEndian.Uint32(lenbuf[:])
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("wire: reading %d-byte reply: %w", n, err)
	}
	return buf, nil
}

// runcommandPrefix is the literal token that precedes every runcommand
// request's length-prefixed argument block.
var runcommandPrefix = []byte("runcommand\n")

// EncodeArgv joins argv into the NUL-separated argument block described
// in spec.md section 4.4: each element is UTF-8 bytes, a single 0x00
// separates consecutive elements, and there is no trailing NUL.
func EncodeArgv(argv []string) []byte {
	var buf bytes.Buffer
	for i, a := range argv {
		if i > 0 {
			buf.WriteByte(0)
		}
		buf.WriteString(a)
	}
	return buf.Bytes()
}

// DecodeArgv splits a NUL-separated argument block back into its
// elements. Used by the fake command server in tests to recover the
// argv the client sent.
func DecodeArgv(block []byte) []string {
	if len(block) == 0 {
		return nil
	}
	parts := bytes.Split(block, []byte{0})
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = string(p)
	}
	return out
}

// WriteRunCommand writes a complete runcommand request: the literal
// "runcommand\n", a uint32be length of the argument block, and the block
// itself. It is an error to call WriteRunCommand with an empty argv; the
// caller (Session.RunCommand) is expected to have already rejected that
// case, so this function simply panics on it to surface a programming
// error loudly rather than silently emitting a malformed request.
func WriteRunCommand(w io.Writer, argv []string) error {
	if len(argv) == 0 {
		panic("wire: WriteRunCommand called with empty argv")
	}
	block := EncodeArgv(argv)
	if _, err := w.Write(runcommandPrefix); err != nil {
		return err
	}
	var lenbuf [4]byte
	binary.BigEndian.PutUint32(lenbuf[:], uint32(len(block)))
	if _, err := w.Write(lenbuf[:]); err != nil {
		return err
	}
	_, err := w.Write(block)
	return err
}

// ReadRunCommand reads back a runcommand request as written by
// WriteRunCommand. It is used by the fake command server in tests.
func ReadRunCommand(r io.Reader) ([]string, error) {
	prefix := make([]byte, len(runcommandPrefix))
	if _, err := io.ReadFull(r, prefix); err != nil {
		return nil, fmt.Errorf("wire: reading runcommand prefix: %w", err)
	}
	if !bytes.Equal(prefix, runcommandPrefix) {
		return nil, fmt.Errorf("wire: expected runcommand prefix, got %q", prefix)
	}
	var lenbuf [4]byte
	if _, err := io.ReadFull(r, lenbuf[:]); err != nil {
		return nil, fmt.Errorf("wire: reading runcommand length: %w", err)
	}
	n := binary.BigEndian.Uint32(lenbuf[:])
	block := make([]byte, n)
	if _, err := io.ReadFull(r, block); err != nil {
		return nil, fmt.Errorf("wire: reading %d-byte argument block: %w", n, err)
	}
	return DecodeArgv(block), nil
}
