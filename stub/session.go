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
	"context"
	"fmt"

	"github.com/golang/glog"
	"github.com/juju/errors"

	"github.com/mongoose-os/gdbstub/common/rsp"
)

// CommandBufferSize is the capacity of the command buffer, including one
// byte that is always kept free.
const CommandBufferSize = 256

type rxPhase int

const (
	rxIdle rxPhase = iota
	rxBody
	rxEscape
	rxChecksum1
	rxChecksum2
)

func (p rxPhase) String() string {
	switch p {
	case rxIdle:
		return "idle"
	case rxBody:
		return "body"
	case rxEscape:
		return "escape"
	case rxChecksum1:
		return "checksum1"
	case rxChecksum2:
		return "checksum2"
	}
	return fmt.Sprintf("rxphase(%d)", int(p))
}

// rxState survives between calls, packets may arrive over several
// interrupts.
type rxState struct {
	phase rxPhase
	sum   byte
	cmd   [CommandBufferSize]byte
	n     int
	sent  [2]byte
}

func (s *Stub) pause() error {
	s.paused = true
	s.t.DisableUARTInterrupt()
	s.wdt.Disable()
	glog.V(3).Infof("paused, reason %s", s.regs.Reason)
	return errors.Trace(s.Flush())
}

func (s *Stub) unpause() error {
	s.paused = false
	s.wdt.Enable()
	s.t.EnableUARTInterrupt()
	glog.V(3).Infof("resumed at 0x%08x", s.regs.PC)
	return errors.Trace(s.Flush())
}

// ReadCommand consumes what the UART has and executes complete commands.
// systemStopped means the target was stopped by an exception; the stub
// then pauses and reports the stop reason first.
//
// While paused it does not return until a command resumes execution. When
// not paused it returns as soon as the receive FIFO is empty. A done ctx or
// a transport error ends it early.
func (s *Stub) ReadCommand(ctx context.Context, systemStopped bool) error {
	if systemStopped {
		if err := s.pause(); err != nil {
			return errors.Trace(err)
		}
		if err := s.sendReason(); err != nil {
			return errors.Trace(err)
		}
	}
	for {
		if s.paused {
			for !s.tr.RxAvailable() {
				s.wdt.Feed()
				if err := ctx.Err(); err != nil {
					return errors.Trace(err)
				}
			}
		}
		if !s.tr.RxAvailable() {
			return nil
		}
		c, err := s.tr.ReadByte()
		if err != nil {
			return errors.Annotatef(err, "uart read")
		}
		if err := s.receive(c, systemStopped); err != nil {
			return errors.Trace(err)
		}
	}
}

// receive runs one byte through the packet state machine.
func (s *Stub) receive(c byte, systemStopped bool) error {
	if glog.V(4) {
		glog.Infof("rx %q in %s", c, s.rx.phase)
	}
	if !s.attached && s.opts.CtrlCBreak && s.delegate != nil {
		s.delegate.UARTReceive(c)
	}
	rx := &s.rx
	switch rx.phase {
	case rxIdle:
		switch {
		case c == rsp.PacketStart:
			rx.phase = rxBody
			rx.sum = 0
			rx.n = 0
		case c == rsp.Interrupt && s.attached && !s.paused:
			glog.V(2).Infof("break in")
			if err := s.pause(); err != nil {
				return errors.Trace(err)
			}
			s.regs.Reason = UserBreak
			return errors.Trace(s.sendReason())
		}
	case rxBody:
		switch {
		case c == rsp.PacketEnd:
			rx.phase = rxChecksum1
		case c == rsp.PacketStart:
			rx.sum = 0
			rx.n = 0
		case rx.n+1 >= CommandBufferSize:
			glog.V(1).Infof("command too long, dropped")
			rx.phase = rxIdle
		default:
			rx.sum += c
			if c == rsp.EscapeMarker {
				rx.phase = rxEscape
			} else {
				rx.cmd[rx.n] = c
				rx.n++
			}
		}
	case rxEscape:
		rx.sum += c
		rx.cmd[rx.n] = c ^ rsp.EscapeXor
		rx.n++
		rx.phase = rxBody
	case rxChecksum1:
		rx.sent[0] = c
		rx.phase = rxChecksum2
	case rxChecksum2:
		rx.sent[1] = c
		rx.phase = rxIdle
		want, err := rsp.ParseHexByte(rx.sent[0], rx.sent[1])
		if err == nil && want == rx.sum {
			return errors.Trace(s.handlePacket(systemStopped))
		}
		glog.V(1).Infof("bad checksum %q, computed %02x", rx.sent[:], rx.sum)
		if s.attached {
			return errors.Trace(s.pw.Raw(rsp.Nack))
		}
	}
	return nil
}

// handlePacket acks and executes a checksum-verified command. A GDB
// formatted packet is what attaches the debugger.
func (s *Stub) handlePacket(systemStopped bool) error {
	s.attached = true
	if !s.paused {
		if err := s.pause(); err != nil {
			return errors.Trace(err)
		}
		s.regs.Reason = UserBreak
	}
	if err := s.pw.Raw(rsp.Ack); err != nil {
		return errors.Trace(err)
	}
	sig, err := s.dispatch(s.rx.cmd[:s.rx.n])
	if err != nil {
		return errors.Trace(err)
	}
	switch sig {
	case signalDetach:
		glog.Infof("debugger detached")
		s.attached = false
		if systemStopped {
			// Stay stopped, the fault is still there.
			break
		}
		fallthrough
	case signalContinue:
		return errors.Trace(s.unpause())
	}
	return nil
}
