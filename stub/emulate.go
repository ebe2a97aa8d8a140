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
	"github.com/golang/glog"

	"github.com/mongoose-os/gdbstub/common/xtensa"
)

// retire moves pc past the instruction that raised a debug exception when
// resuming at it would trap again.
func (s *Stub) retire() {
	r := s.regs.Reason
	pc := s.regs.PC
	switch {
	case r.Has(xtensa.DebugDBreak):
		// Re-executing the access would hit the same watchpoint.
		s.emulateLoadStore()
	case r.Has(xtensa.DebugBreak):
		// GDB may have put the original instruction back.
		if xtensa.IsBreak(s.mem.LoadByte(pc), s.mem.LoadByte(pc+1), s.mem.LoadByte(pc+2)) {
			s.regs.PC += 3
		}
	case r.Has(xtensa.DebugBreakN):
		if xtensa.IsBreakN(s.mem.LoadByte(pc), s.mem.LoadByte(pc+1)) {
			s.regs.PC += 2
		}
	}
}

// emulateLoadStore performs the L32I, S32I, L32I.N or S32I.N at pc against
// the frame and raw memory, and steps over it.
func (s *Stub) emulateLoadStore() bool {
	pc := s.regs.PC
	ls, ok := xtensa.DecodeLoadStore(s.mem.LoadByte(pc), s.mem.LoadByte(pc+1), s.mem.LoadByte(pc+2))
	if !ok {
		glog.V(1).Infof("watchpoint at 0x%08x: not a load/store, cannot step over it", pc)
		return false
	}
	addr := s.regs.A[ls.S] + ls.Offset
	if ls.Load {
		s.regs.A[ls.T] = s.t.Load32(addr)
	} else {
		s.t.Store32(addr, s.regs.A[ls.T])
	}
	s.regs.PC += ls.Len
	glog.V(3).Infof("emulated %s at 0x%08x, addr 0x%08x", ls, pc, addr)
	return true
}

// restoreStepPS puts back the interrupt level a single step lowered.
func (s *Stub) restoreStepPS() {
	if !s.stepping {
		return
	}
	s.regs.PS = s.regs.PS&^xtensa.PSIntLevelMask | s.stepPS&xtensa.PSIntLevelMask
	s.stepping = false
}
