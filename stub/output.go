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
package gdbstub

import (
	"github.com/juju/errors"
)

// OutputBufferSize is the capacity of the console output buffer.
const OutputBufferSize = 32

type outputBuffer struct {
	buf [OutputBufferSize]byte
	n   int
}

// Flush sends buffered console output: as an O packet when GDB is attached,
// as raw bytes otherwise.
func (s *Stub) Flush() error {
	if s.out.n == 0 {
		return nil
	}
	p := s.out.buf[:s.out.n]
	s.out.n = 0
	if s.attached {
		return errors.Trace(s.pw.SendOutput(p))
	}
	for _, c := range p {
		if err := s.pw.Raw(c); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// BufferedWriteChar queues c, flushing on newline, when the buffer is full
// and always while paused.
func (s *Stub) BufferedWriteChar(c byte) error {
	s.out.buf[s.out.n] = c
	s.out.n++
	if c == '\n' || s.out.n == OutputBufferSize || s.paused {
		return s.Flush()
	}
	return nil
}

// WriteChar queues c and flushes.
func (s *Stub) WriteChar(c byte) error {
	s.out.buf[s.out.n] = c
	s.out.n++
	return s.Flush()
}

// Write implements io.Writer for console output.
func (s *Stub) Write(p []byte) (int, error) {
	for i, c := range p {
		if err := s.BufferedWriteChar(c); err != nil {
			return i, err
		}
	}
	return len(p), s.Flush()
}

// PutChar is the console hook installed with RedirectConsole. Until GDB
// attaches output goes to the delegate, if there is one.
func (s *Stub) PutChar(c byte) error {
	if !s.attached && s.delegate != nil {
		s.delegate.ConsoleWrite(c)
		return nil
	}
	return s.BufferedWriteChar(c)
}
