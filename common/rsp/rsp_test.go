//
// Copyright (c) 2014-2019 Cesanta Software Limited
// All rights reserved
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
package rsp

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterEscaping(t *testing.T) {
	for i, c := range []struct {
		body, wire string
	}{
		{"", "$#00"},
		{"OK", "$OK#9a"},
		{"a#b", "$a}\x03b#" + fmt.Sprintf("%02x", ('a'+'}'+0x03+'b')&0xff)},
		{"$", "$}\x04#" + fmt.Sprintf("%02x", ('}'+0x04)&0xff)},
		{"}", "$}]#" + fmt.Sprintf("%02x", ('}'+']')&0xff)},
		{"*", "$}\x0a#" + fmt.Sprintf("%02x", '}'+0x0a)},
	} {
		buf := &bytes.Buffer{}
		pw := NewWriter(buf)
		require.NoError(t, pw.SendString(c.body))
		if got, want := buf.String(), c.wire; got != want {
			t.Errorf("%d %q: got %q, want %q", i, c.body, got, want)
		}
		if got, want := string(Frame([]byte(c.body))), buf.String(); got != want {
			t.Errorf("%d %q: Frame() got %q, want %q", i, c.body, got, want)
		}
	}
}

func TestEscapeRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for n := 0; n < 200; n++ {
		body := make([]byte, r.Intn(64))
		r.Read(body)
		wire := Escape(nil, body)
		assert.Equal(t, body, Unescape([]byte{}, wire))
		reserved := 0
		for _, c := range body {
			if NeedsEscape(c) {
				reserved++
			}
		}
		// Exactly one marker is added per reserved byte.
		assert.Equal(t, len(body)+reserved, len(wire))
	}
	for c := 0; c < 256; c++ {
		want := c == '#' || c == '$' || c == '}' || c == '*'
		assert.Equal(t, want, NeedsEscape(byte(c)), "byte 0x%02x", c)
	}
}

func TestChecksumCoversWireBytes(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for n := 0; n < 100; n++ {
		body := make([]byte, 1+r.Intn(32))
		r.Read(body)
		buf := &bytes.Buffer{}
		pw := NewWriter(buf)
		pw.Start()
		for _, c := range body {
			pw.Char(c)
		}
		require.NoError(t, pw.End())
		out := buf.Bytes()
		wire := out[1 : len(out)-3]
		sum, err := ParseHexByte(out[len(out)-2], out[len(out)-1])
		require.NoError(t, err)
		assert.Equal(t, Checksum(wire), sum)

		// Flipping any single bit of the body changes the checksum.
		i := r.Intn(len(wire))
		flipped := append([]byte{}, wire...)
		flipped[i] ^= 1 << uint(r.Intn(8))
		assert.NotEqual(t, sum, Checksum(flipped))
	}
}

func TestWriterHex(t *testing.T) {
	buf := &bytes.Buffer{}
	pw := NewWriter(buf)
	pw.Start()
	pw.Hex(0x1234abcd, 32)
	pw.Hex(0x5, 8)
	pw.SwappedHex32(0x40100000)
	require.NoError(t, pw.End())
	assert.Equal(t, string(Frame([]byte("1234abcd0500001040"))), buf.String())
}

func TestSendOutputAndError(t *testing.T) {
	buf := &bytes.Buffer{}
	pw := NewWriter(buf)
	require.NoError(t, pw.SendOutput([]byte("hi\n")))
	assert.Equal(t, string(Frame([]byte("O68690a"))), buf.String())

	buf.Reset()
	require.NoError(t, pw.SendError(1))
	assert.Equal(t, "$E01#a6", buf.String())
}

type failingWriter struct {
	n int
}

func (fw *failingWriter) WriteByte(c byte) error {
	fw.n++
	if fw.n > 2 {
		return errors.New("fifo gone")
	}
	return nil
}

func TestWriterStickyError(t *testing.T) {
	fw := &failingWriter{}
	pw := NewWriter(fw)
	err := pw.SendString("hello")
	require.Error(t, err)
	assert.Equal(t, "fifo gone", err.Error())
	// Nothing past the first failure reaches the transport.
	assert.Equal(t, 3, fw.n)
}

func TestCursorHex(t *testing.T) {
	for i, c := range []struct {
		in   string
		bits int
		v    uint32
		pos  int
		err  error
	}{
		{"1f", 8, 0x1f, 2, nil},
		{"1F2", 8, 0x1f, 2, nil},
		{"3ffe8000,4", Variable, 0x3ffe8000, 8, nil},
		{"abc#12", Variable, 0xabc, 3, nil},
		{"", Variable, 0, 0, nil},
		{",", Variable, 0, 0, nil},
		{"1", 8, 0x1, 1, ErrEndOfPacket},
		{"1#", 8, 0x1, 2, ErrEndOfPacket},
		{"x1", 8, 0, 1, ErrNotHex},
		{"DEADBEEF", 32, 0xdeadbeef, 8, nil},
	} {
		cur := NewCursor([]byte(c.in))
		v, err := cur.Hex(c.bits)
		if got, want := errors.Cause(err), c.err; got != want {
			t.Errorf("%d %q: err got %v, want %v", i, c.in, got, want)
		}
		if v != c.v || cur.Pos() != c.pos {
			t.Errorf("%d %q: got 0x%x @%d, want 0x%x @%d", i, c.in, v, cur.Pos(), c.v, c.pos)
		}
	}
}

func TestCursorSwapped(t *testing.T) {
	cur := NewCursor([]byte("00001040,"))
	v, err := cur.SwappedHex32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x40100000), v)
	assert.Equal(t, byte(','), cur.Peek())
	cur.Skip(5)
	assert.True(t, cur.Done())
	assert.Equal(t, byte(PacketEnd), cur.Peek())
}

func TestSwap32(t *testing.T) {
	assert.Equal(t, uint32(0x78563412), Swap32(0x12345678))
	assert.Equal(t, uint32(0x12345678), Swap32(Swap32(0x12345678)))
}
