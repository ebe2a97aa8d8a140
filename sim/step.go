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
package sim

import (
	"context"

	"github.com/golang/glog"
	"github.com/juju/errors"

	"github.com/mongoose-os/gdbstub/common/xtensa"
	gdbstub "github.com/mongoose-os/gdbstub/stub"
)

// Run executes instructions until ctx is done or an entry returns an
// error.
func (m *Machine) Run(ctx context.Context) error {
	for i := 0; ; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return errors.Trace(err)
			}
		}
		if err := m.Step(ctx); err != nil {
			return errors.Trace(err)
		}
	}
}

// Step takes a pending break or interrupt, or executes one instruction.
//
// Only L32I, S32I and their narrow forms do anything; BREAK and BREAK.N
// raise debug exceptions, an all-zero word is illegal and everything else
// executes as a no-op.
func (m *Machine) Step(ctx context.Context) error {
	if m.brkReq {
		m.brkReq = false
		return m.debugException(ctx, xtensa.DebugBreak)
	}
	if m.uartInt && m.uartHandler != nil && m.Regs.PS&xtensa.PSIntLevelMask == 0 && m.port.Pending() {
		return m.interrupt(ctx)
	}
	pc := m.Regs.PC
	if !m.skipIBrk && m.ibreakHit(pc) {
		return m.debugException(ctx, xtensa.DebugIBreak)
	}
	m.skipIBrk = false

	var b [3]byte
	for i := range b {
		c, ok := m.loadByte(pc + uint32(i))
		if !ok && i < 2 {
			return m.exception(ctx, xtensa.ExcCauseInstrProhibited)
		}
		b[i] = c
	}
	n := xtensa.InstrLen(b[0])
	switch {
	case n == 2 && xtensa.IsBreakN(b[0], b[1]):
		return m.debugException(ctx, xtensa.DebugBreakN)
	case n == 3 && xtensa.IsBreak(b[0], b[1], b[2]):
		return m.debugException(ctx, xtensa.DebugBreak)
	case n == 3 && b == [3]byte{}:
		return m.exception(ctx, xtensa.ExcCauseIllegal)
	}
	if ls, ok := xtensa.DecodeLoadStore(b[0], b[1], b[2]); ok {
		addr := m.Regs.A[ls.S] + ls.Offset
		if m.dbreakHit(addr, ls.Load) {
			return m.debugException(ctx, xtensa.DebugDBreak)
		}
		if ls.Load {
			v, ok := m.load(addr)
			if !ok {
				return m.exception(ctx, xtensa.ExcCauseLoadProhibited)
			}
			m.Regs.A[ls.T] = v
		} else if !m.store(addr, m.Regs.A[ls.T]) {
			return m.exception(ctx, xtensa.ExcCauseStoreProhibited)
		}
	}
	m.Regs.PC += n
	m.Steps++
	if m.icount {
		return m.debugException(ctx, xtensa.DebugICount)
	}
	return nil
}

func (m *Machine) ibreakHit(pc uint32) bool {
	for _, b := range m.ibreak {
		if b.enabled && b.addr == pc {
			return true
		}
	}
	return false
}

// dbreakHit checks a word access at addr against the watchpoints. A
// watchpoint covers the naturally aligned block its mask leaves unmasked.
func (m *Machine) dbreakHit(addr uint32, load bool) bool {
	want := gdbstub.WatchWrite
	if load {
		want = gdbstub.WatchRead
	}
	for _, d := range m.dbreak {
		if !d.enabled || d.mode&want == 0 {
			continue
		}
		care := 0xffffffc0 | d.mask
		base := uint64(d.addr & care)
		size := uint64(^care) + 1
		if uint64(addr) < base+size && base < uint64(addr)+4 {
			return true
		}
	}
	return false
}

func (m *Machine) debugException(ctx context.Context, dc xtensa.DebugCause) error {
	if m.debugEntry == nil {
		return errors.Errorf("%s at 0x%08x with no debug handler", dc, m.Regs.PC)
	}
	glog.V(3).Infof("debug exception %s at 0x%08x", dc, m.Regs.PC)
	m.icount = false
	pc := m.Regs.PC
	*m.debugRegs = m.Regs
	m.debugRegs.Reason = gdbstub.StopReason(dc)
	err := m.debugEntry(ctx)
	return m.leave(err, func() {
		m.Regs = *m.debugRegs
		// Resuming at a hit breakpoint executes the instruction under it.
		m.skipIBrk = dc == xtensa.DebugIBreak && m.Regs.PC == pc
	})
}

// leave finishes an entry: the handler's state is restored unless it
// restarted the machine, and pending output is flushed.
func (m *Machine) leave(err error, restore func()) error {
	if m.restarted {
		m.restarted = false
		m.reset()
	} else {
		restore()
	}
	if ferr := m.port.Flush(); err == nil {
		err = ferr
	}
	return errors.Trace(err)
}

func (m *Machine) exceptionFrame() *gdbstub.ExceptionFrame {
	f := &gdbstub.ExceptionFrame{
		Addr: m.Regs.A[1] - gdbstub.SPOffset,
		PC:   m.Regs.PC,
		PS:   m.Regs.PS,
		SAR:  m.Regs.SAR,
		VPri: m.Regs.VPri,
		A0:   m.Regs.A[0],
	}
	copy(f.A[:], m.Regs.A[2:])
	return f
}

func (m *Machine) restoreFrame(f *gdbstub.ExceptionFrame) {
	m.Regs.PC = f.PC
	m.Regs.PS = f.PS
	m.Regs.SAR = f.SAR
	m.Regs.VPri = f.VPri
	m.Regs.A[0] = f.A0
	copy(m.Regs.A[2:], f.A[:])
}

func (m *Machine) exception(ctx context.Context, cause uint32) error {
	m.ExcCause = cause
	h := m.excHandlers[cause]
	if h == nil {
		return errors.Errorf("unhandled exception %d at 0x%08x", cause, m.Regs.PC)
	}
	glog.V(3).Infof("exception %d at 0x%08x", cause, m.Regs.PC)
	f := m.exceptionFrame()
	err := h(ctx, f)
	return m.leave(err, func() { m.restoreFrame(f) })
}

func (m *Machine) interrupt(ctx context.Context) error {
	m.ExcCause = xtensa.ExcCauseLevel1Interrupt
	f := m.exceptionFrame()
	err := m.uartHandler(ctx, f)
	return m.leave(err, func() { m.restoreFrame(f) })
}
