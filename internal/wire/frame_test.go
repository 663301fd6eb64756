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
	"strings"
	"testing"
)

// P1: framing round-trip for the data channels.
func TestFrameRoundTrip(t *testing.T) {
	payloads := [][]byte{
		nil,
		[]byte("hello"),
		bytes.Repeat([]byte{0xAB}, 4096),
	}
	for _, ch := range []Channel{Output, Error, Result, Debug} {
		for _, p := range payloads {
			var buf bytes.Buffer
			if err := WriteDataFrame(&buf, ch, p); err != nil {
				t.Fatalf("WriteDataFrame: %v", err)
			}
			f, err := ReadFrame(&buf)
			if err != nil {
				t.Fatalf("ReadFrame: %v", err)
			}
			if f.Channel != ch {
				t.Fatalf("channel: got %v want %v", f.Channel, ch)
			}
			if !bytes.Equal(f.Payload, p) && !(len(f.Payload) == 0 && len(p) == 0) {
				t.Fatalf("payload: got %q want %q", f.Payload, p)
			}
		}
	}
}

// P2: prompt framing carries exactly the 4-byte cap, no payload consumed.
func TestPromptFraming(t *testing.T) {
	for _, ch := range []Channel{LineInput, ByteInput} {
		var buf bytes.Buffer
		if err := WritePromptFrame(&buf, ch, 4096); err != nil {
			t.Fatal(err)
		}
		// append a byte that must NOT be consumed by ReadFrame
		buf.WriteByte('X')
		f, err := ReadFrame(&buf)
		if err != nil {
			t.Fatal(err)
		}
		if f.Channel != ch {
			t.Fatalf("channel: got %v want %v", f.Channel, ch)
		}
		if len(f.Payload) != 4 {
			t.Fatalf("prompt payload len = %d, want 4", len(f.Payload))
		}
		if PromptCap(f) != 4096 {
			t.Fatalf("cap = %d, want 4096", PromptCap(f))
		}
		if buf.Len() != 1 || buf.Bytes()[0] != 'X' {
			t.Fatalf("ReadFrame consumed bytes beyond the header for a prompt channel")
		}
	}
}

func TestInvalidChannel(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte('?')
	buf.Write([]byte{0, 0, 0, 0})
	if _, err := ReadFrame(&buf); err == nil {
		t.Fatal("expected error for invalid channel byte")
	}
}

func TestShortHeaderIsError(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte('o')
	buf.Write([]byte{0, 0}) // only 2 of the 4 length bytes
	if _, err := ReadFrame(&buf); err == nil {
		t.Fatal("expected error for truncated header")
	}
}

// P3: argv encoding length and round-trip.
func TestArgvEncoding(t *testing.T) {
	argv := []string{"log", "--style", "xml", "-r", "tip"}
	block := EncodeArgv(argv)
	wantLen := 0
	for _, a := range argv {
		wantLen += len(a)
	}
	wantLen += len(argv) - 1
	if len(block) != wantLen {
		t.Fatalf("block length = %d, want %d", len(block), wantLen)
	}
	if bytes.HasSuffix(block, []byte{0}) {
		t.Fatal("block has a trailing NUL")
	}
	got := DecodeArgv(block)
	if len(got) != len(argv) {
		t.Fatalf("round trip: got %d elements, want %d", len(got), len(argv))
	}
	for i := range argv {
		if got[i] != argv[i] {
			t.Fatalf("round trip[%d]: got %q want %q", i, got[i], argv[i])
		}
	}
}

func TestWriteRunCommandRoundTrip(t *testing.T) {
	argv := []string{"status"}
	var buf bytes.Buffer
	if err := WriteRunCommand(&buf, argv); err != nil {
		t.Fatal(err)
	}
	got, err := ReadRunCommand(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "status" {
		t.Fatalf("got %v", got)
	}
}

func TestResultRoundTrip(t *testing.T) {
	for _, code := range []int32{0, 1, -1, 255, -2147483648} {
		got, err := DecodeResult(EncodeResult(code))
		if err != nil {
			t.Fatal(err)
		}
		if got != code {
			t.Fatalf("got %d want %d", got, code)
		}
	}
	if _, err := DecodeResult([]byte{0, 0, 0}); err == nil {
		t.Fatal("expected error for short result payload")
	}
}

func TestReplyRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReply(&buf, []byte("hi\n")); err != nil {
		t.Fatal(err)
	}
	got, err := ReadReply(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hi\n" {
		t.Fatalf("got %q", got)
	}
}

func TestReplyEmptyMeansEOF(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReply(&buf, nil); err != nil {
		t.Fatal(err)
	}
	got, err := ReadReply(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("got %q, want empty", got)
	}
}

// P4: handshake required keys.
func TestParseHelloRequiresBothKeys(t *testing.T) {
	cases := []string{
		"encoding: UTF-8\n",
		"capabilities: runcommand getencoding\n",
		"",
		"bogus: 1\n",
	}
	for _, c := range cases {
		if _, err := ParseHello([]byte(c)); err == nil {
			t.Fatalf("ParseHello(%q): expected error", c)
		}
	}
}

func TestParseHelloOK(t *testing.T) {
	payload := EncodeHello("UTF-8", []string{"runcommand", "getencoding", "attachio"})
	h, err := ParseHello(payload)
	if err != nil {
		t.Fatal(err)
	}
	if h.Encoding != "UTF-8" {
		t.Fatalf("encoding = %q", h.Encoding)
	}
	if !h.Has("runcommand") || !h.Has("attachio") {
		t.Fatalf("capabilities = %v", h.Capabilities)
	}
	if h.Has("nonexistent") {
		t.Fatal("unexpected capability")
	}
}

func TestReadHelloFromFrame(t *testing.T) {
	var buf bytes.Buffer
	payload := EncodeHello("UTF-8", []string{"runcommand"})
	if err := WriteDataFrame(&buf, Output, payload); err != nil {
		t.Fatal(err)
	}
	h, err := ReadHello(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if h.Encoding != "UTF-8" || !h.Has("runcommand") {
		t.Fatalf("unexpected hello: %+v", h)
	}
}

func TestChannelString(t *testing.T) {
	if !strings.Contains(Channel('?').String(), "?") {
		t.Fatalf("unexpected String() for unknown channel: %q", Channel('?').String())
	}
}
