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
	"math/bits"

	"github.com/juju/errors"
)

var (
	ErrNotHex      = errors.New("not a hex digit")
	ErrEndOfPacket = errors.New("unexpected end of packet")
)

// Variable is passed to Cursor.Hex to read as many digits as there are.
const Variable = -1

// maxVariableDigits caps a variable-width read.
const maxVariableDigits = 64

// Swap32 converts a word between target and wire byte order.
func Swap32(v uint32) uint32 {
	return bits.ReverseBytes32(v)
}

// HexDigit returns the value of a hex digit.
func HexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// ParseHexByte decodes two hex digits.
func ParseHexByte(hi, lo byte) (byte, error) {
	h, ok1 := HexDigit(hi)
	l, ok2 := HexDigit(lo)
	if !ok1 || !ok2 {
		return 0, errors.Annotatef(ErrNotHex, "%q%q", hi, lo)
	}
	return h<<4 | l, nil
}

// Cursor reads values out of a received command. The end of the buffer
// behaves like the packet end marker.
type Cursor struct {
	buf []byte
	pos int
}

func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

func (c *Cursor) Pos() int {
	return c.pos
}

func (c *Cursor) Done() bool {
	return c.pos >= len(c.buf)
}

// Peek returns the byte under the cursor, PacketEnd at the end.
func (c *Cursor) Peek() byte {
	if c.pos >= len(c.buf) {
		return PacketEnd
	}
	return c.buf[c.pos]
}

// Skip advances over n bytes (separators).
func (c *Cursor) Skip(n int) {
	c.pos += n
	if c.pos > len(c.buf) {
		c.pos = len(c.buf)
	}
}

// Rest returns the unread part of the buffer.
func (c *Cursor) Rest() []byte {
	return c.buf[c.pos:]
}

// Hex reads up to bits/4 hex digits. With bits == Variable it reads until the
// first non-hex byte, leaving the cursor on it, and never fails.
// A fixed-width read fails if the field is short or malformed; the
// offending byte is consumed.
func (c *Cursor) Hex(bits int) (uint32, error) {
	n := bits / 4
	if bits == Variable {
		n = maxVariableDigits
	}
	var v uint32
	for i := 0; i < n; i++ {
		ch := c.Peek()
		d, ok := HexDigit(ch)
		if !ok {
			if bits == Variable {
				return v, nil
			}
			c.Skip(1)
			if ch == PacketEnd {
				return v, errors.Trace(ErrEndOfPacket)
			}
			return v, errors.Annotatef(ErrNotHex, "%q at %d", ch, c.pos-1)
		}
		c.pos++
		v = v<<4 | uint32(d)
	}
	return v, nil
}

// SwappedHex32 reads a 32-bit word in wire byte order.
func (c *Cursor) SwappedHex32() (uint32, error) {
	v, err := c.Hex(32)
	return Swap32(v), err
}
