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
	"io"
	"strconv"
)

const (
	PacketStart  = '$'
	PacketEnd    = '#'
	EscapeMarker = '}'
	RunLength    = '*'

	// EscapeXor is applied to a reserved byte following EscapeMarker.
	EscapeXor = 0x20

	Ack  = '+'
	Nack = '-'

	// Interrupt is the Ctrl-C byte GDB sends to break into a running target.
	Interrupt = 0x03
)

const hexChars = "0123456789abcdef"

// NeedsEscape returns true for the bytes that cannot appear verbatim in a packet body.
func NeedsEscape(c byte) bool {
	return c == PacketEnd || c == PacketStart || c == EscapeMarker || c == RunLength
}

// Writer frames packets onto a byte-oriented transport. Bytes are emitted as
// they are produced, nothing is buffered besides the running checksum.
// The first transport error is sticky and is reported by End.
type Writer struct {
	w   io.ByteWriter
	sum byte
	err error
}

func NewWriter(w io.ByteWriter) *Writer {
	return &Writer{w: w}
}

func (pw *Writer) put(c byte) {
	if pw.err != nil {
		return
	}
	pw.err = pw.w.WriteByte(c)
}

// Raw sends a single byte outside of any packet (acks, raw console output).
func (pw *Writer) Raw(c byte) error {
	return pw.w.WriteByte(c)
}

// Start begins a new packet.
func (pw *Writer) Start() {
	pw.sum = 0
	pw.err = nil
	pw.put(PacketStart)
}

// Char adds one body byte, escaping it if needed. The checksum covers the
// bytes as transmitted, including the escape marker.
func (pw *Writer) Char(c byte) {
	if NeedsEscape(c) {
		pw.put(EscapeMarker)
		pw.sum += EscapeMarker
		c ^= EscapeXor
	}
	pw.put(c)
	pw.sum += c
}

func (pw *Writer) String(s string) {
	for i := 0; i < len(s); i++ {
		pw.Char(s[i])
	}
}

// Hex emits bits/4 hex digits of v, most significant first.
func (pw *Writer) Hex(v uint32, bits int) {
	for i := bits; i > 0; i -= 4 {
		pw.Char(hexChars[(v>>uint(i-4))&0xf])
	}
}

// SwappedHex32 emits a register or address word in wire byte order.
func (pw *Writer) SwappedHex32(v uint32) {
	pw.Hex(Swap32(v), 32)
}

// End terminates the packet with its checksum.
func (pw *Writer) End() error {
	sum := pw.sum
	pw.put(PacketEnd)
	// Hex digits never need escaping, so emitting them directly is safe.
	pw.put(hexChars[sum>>4])
	pw.put(hexChars[sum&0xf])
	return pw.err
}

// Sum returns the checksum accumulated since Start.
func (pw *Writer) Sum() byte {
	return pw.sum
}

func (pw *Writer) SendString(s string) error {
	pw.Start()
	pw.String(s)
	return pw.End()
}

// SendOutput sends p as a console output ("O") packet.
func (pw *Writer) SendOutput(p []byte) error {
	pw.Start()
	pw.Char('O')
	for _, c := range p {
		pw.Hex(uint32(c), 8)
	}
	return pw.End()
}

func (pw *Writer) SendEmpty() error {
	pw.Start()
	return pw.End()
}

func (pw *Writer) SendOK() error {
	return pw.SendString("OK")
}

// SendError sends an "Exx" reply, code is rendered as two hex digits.
func (pw *Writer) SendError(code byte) error {
	pw.Start()
	pw.Char('E')
	pw.Hex(uint32(code), 8)
	return pw.End()
}

// Escape appends the wire form of body to dst.
func Escape(dst, body []byte) []byte {
	for _, c := range body {
		if NeedsEscape(c) {
			dst = append(dst, EscapeMarker, c^EscapeXor)
		} else {
			dst = append(dst, c)
		}
	}
	return dst
}

// Unescape appends the decoded form of wire to dst. A trailing lone escape
// marker is dropped.
func Unescape(dst, wire []byte) []byte {
	for i := 0; i < len(wire); i++ {
		c := wire[i]
		if c == EscapeMarker {
			i++
			if i >= len(wire) {
				break
			}
			c = wire[i] ^ EscapeXor
		}
		dst = append(dst, c)
	}
	return dst
}

// Checksum is the modulo-256 sum of the bytes as they appear on the wire.
func Checksum(wire []byte) byte {
	var sum byte
	for _, c := range wire {
		sum += c
	}
	return sum
}

// Frame returns a complete packet for body, as a Writer would emit it.
func Frame(body []byte) []byte {
	wire := Escape(nil, body)
	res := make([]byte, 0, len(wire)+4)
	res = append(res, PacketStart)
	res = append(res, wire...)
	res = append(res, PacketEnd)
	sum := strconv.FormatUint(uint64(Checksum(wire)), 16)
	if len(sum) < 2 {
		res = append(res, '0')
	}
	return append(res, sum...)
}
