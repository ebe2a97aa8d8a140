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
// Package gdbstub is a GDB remote serial protocol stub for LX106 targets.
// It runs on the target, talks to GDB over the UART and is entered from
// the debug exception, fatal exceptions and the UART interrupt.
//
// A Stub is not safe for concurrent use. On the chip interrupts are masked
// while it runs; on a host the caller must serialize entry.
package gdbstub

import (
	"context"

	"github.com/golang/glog"
	"github.com/juju/errors"

	"github.com/mongoose-os/gdbstub/common/rsp"
	"github.com/mongoose-os/gdbstub/common/xtensa"
)

// ErrRestarted is returned when GDB killed the target and Restart returned.
var ErrRestarted = errors.New("target restarted")

type Stub struct {
	opts     Options
	t        Target
	wdt      Watchdog
	tr       Transport
	pw       *rsp.Writer
	mem      *Guard
	bp       *Breakpoints
	delegate Delegate

	regs Frame
	rx   rxState
	out  outputBuffer

	attached bool
	paused   bool

	// ps saved by the last single step.
	stepPS   uint32
	stepping bool
}

func New(t Target, tr Transport, opts Options) (*Stub, error) {
	if err := opts.Validate(); err != nil {
		return nil, errors.Annotatef(err, "invalid options")
	}
	return &Stub{
		opts:     opts,
		t:        t,
		wdt:      t,
		tr:       tr,
		pw:       rsp.NewWriter(tr),
		mem:      NewGuard(t, opts.Readable, opts.Writable),
		bp:       NewBreakpoints(t),
		delegate: opts.Delegate,
	}, nil
}

// Init installs the stub's hooks and handlers.
func (s *Stub) Init() {
	if s.opts.RedirectConsole {
		s.t.InstallConsoleHook(s.PutChar)
	}
	if s.opts.CtrlCBreak {
		s.t.AttachUARTHandler(s.HandleUARTInterrupt)
	}
	if s.opts.BreakOnException {
		for _, cause := range xtensa.FatalExceptionCauses {
			s.t.SetExceptionHandler(cause, s.HandleException)
		}
	}
	s.t.InstallDebugEntry(&s.regs, s.HandleDebugException, s.opts.OwnStack)
	glog.Infof("gdbstub ready: exceptions %t, ctrl-c %t, console %t",
		s.opts.BreakOnException, s.opts.CtrlCBreak, s.opts.RedirectConsole)
	if s.opts.BreakOnInit {
		s.t.Break()
	}
}

// SetDelegate replaces the delegate given in the options.
func (s *Stub) SetDelegate(d Delegate) {
	s.t.DisableUARTInterrupt()
	s.delegate = d
	s.t.EnableUARTInterrupt()
}

// Frame returns the register frame. The debug exception vector saves
// registers into it.
func (s *Stub) Frame() *Frame {
	return &s.regs
}

func (s *Stub) Attached() bool {
	return s.attached
}

func (s *Stub) Paused() bool {
	return s.paused
}

// HasConsoleControl reports whether the stub owns console output.
func (s *Stub) HasConsoleControl() bool {
	return s.opts.RedirectConsole
}

// HasUARTISRControl reports whether the stub owns the UART interrupt.
func (s *Stub) HasUARTISRControl() bool {
	return s.opts.CtrlCBreak
}

// HandleDebugException runs a session for a debug exception (breakpoint,
// watchpoint, step, BREAK) and prepares the frame for resuming.
func (s *Stub) HandleDebugException(ctx context.Context) error {
	s.restoreStepPS()
	glog.V(2).Infof("debug exception at 0x%08x, %s", s.regs.PC, s.regs.Reason)
	if err := s.ReadCommand(ctx, true); err != nil {
		return errors.Trace(err)
	}
	s.retire()
	return nil
}

// HandleException stops on a fatal exception.
func (s *Stub) HandleException(ctx context.Context, f *ExceptionFrame) error {
	s.t.SaveExtraSFRs(&s.regs)
	s.regs.Reason |= ExceptionFlag
	glog.V(2).Infof("exception at 0x%08x, %s", f.PC, s.regs.Reason)
	s.t.DisableUARTInterrupt()
	return errors.Trace(s.readCommandWithFrame(ctx, f, true))
}

// HandleUARTInterrupt processes received bytes while the target runs.
func (s *Stub) HandleUARTInterrupt(ctx context.Context, f *ExceptionFrame) error {
	s.t.SaveExtraSFRs(&s.regs)
	err := s.readCommandWithFrame(ctx, f, false)
	s.t.ClearUARTInterrupt()
	return errors.Trace(err)
}

func (s *Stub) readCommandWithFrame(ctx context.Context, f *ExceptionFrame, systemStopped bool) error {
	s.regs.loadException(f)
	err := s.ReadCommand(ctx, systemStopped)
	s.regs.storeException(f)
	return errors.Trace(err)
}

// HandleRTOSException is the fatal exception entry of the RTOS port. The
// entry code has already saved registers and the cause into Frame().
func (s *Stub) HandleRTOSException(ctx context.Context) error {
	s.regs.Reason |= ExceptionFlag
	return errors.Trace(s.ReadCommand(ctx, true))
}

// HandleRTOSUARTInterrupt is the UART interrupt of the RTOS port. The RTOS
// owns the console, so everything but Ctrl-C is thrown away.
func (s *Stub) HandleRTOSUARTInterrupt(ctx context.Context, f *RTOSFrame) error {
	brk := false
	for s.tr.RxAvailable() {
		c, err := s.tr.ReadByte()
		if err != nil {
			return errors.Annotatef(err, "uart read")
		}
		if c == rsp.Interrupt {
			brk = true
		}
	}
	s.t.ClearUARTInterrupt()
	if !brk {
		return nil
	}
	s.regs.loadRTOS(f)
	s.regs.Reason = UserBreak
	err := s.pause()
	if err == nil {
		err = s.sendReason()
	}
	if err == nil {
		err = s.ReadCommand(ctx, false)
	}
	s.regs.storeRTOS(f)
	return errors.Trace(err)
}
