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
	"fmt"

	"github.com/mongoose-os/gdbstub/common/xtensa"
)

// StopReason tells why execution stopped. With bit 7 set the low bits are
// an exception cause, otherwise they are DEBUGCAUSE bits. UserBreak is a
// break requested by the debugger or by software.
type StopReason uint32

const (
	UserBreak     StopReason = 0xff
	ExceptionFlag StopReason = 0x80
)

func ExceptionReason(cause uint32) StopReason {
	return ExceptionFlag | StopReason(cause&0x7f)
}

func (r StopReason) IsUserBreak() bool {
	return r == UserBreak
}

func (r StopReason) IsException() bool {
	return r != UserBreak && r&ExceptionFlag != 0
}

// Cause returns the exception cause of an exception reason.
func (r StopReason) Cause() uint32 {
	return uint32(r &^ ExceptionFlag)
}

// Has reports whether a debug event reason includes dc.
func (r StopReason) Has(dc xtensa.DebugCause) bool {
	return r&(ExceptionFlag|StopReason(dc)) == StopReason(dc)
}

func (r StopReason) String() string {
	switch {
	case r.IsUserBreak():
		return "user break"
	case r.IsException():
		return fmt.Sprintf("exception %d", r.Cause())
	}
	return fmt.Sprintf("debug 0x%02x", uint32(r))
}

// Frame is the register snapshot exchanged with the debugger.
type Frame struct {
	PC   uint32
	PS   uint32
	SAR  uint32
	VPri uint32
	A    [16]uint32

	LitBase uint32
	SR176   uint32
	SR208   uint32

	Reason StopReason
}

// NumWireRegs is the number of fields in the g/G register image.
const NumWireRegs = 22

// wireImage lays the frame out in the order the LX106 GDB port uses:
// a0..a15, pc, sar, litbase, sr176, an unused slot, ps.
func (f *Frame) wireImage() [NumWireRegs]uint32 {
	var r [NumWireRegs]uint32
	copy(r[:16], f.A[:])
	r[16] = f.PC
	r[17] = f.SAR
	r[18] = f.LitBase
	r[19] = f.SR176
	r[21] = f.PS
	return r
}

func (f *Frame) setWireImage(r [NumWireRegs]uint32) {
	copy(f.A[:], r[:16])
	f.PC = r[16]
	f.SAR = r[17]
	f.LitBase = r[18]
	f.SR176 = r[19]
	f.PS = r[21]
}

// SPOffset is the distance from the exception frame to the interrupted
// stack pointer, which the HAL does not save.
const SPOffset = 0x100

// ExceptionFrame is the frame the exception HAL saves. Addr is where it
// lives in target memory.
type ExceptionFrame struct {
	Addr uint32

	PC   uint32
	PS   uint32
	SAR  uint32
	VPri uint32
	A0   uint32
	// A2..A15
	A [14]uint32
}

func (f *Frame) loadException(ef *ExceptionFrame) {
	f.PC = ef.PC
	f.PS = ef.PS
	f.SAR = ef.SAR
	f.VPri = ef.VPri
	f.A[0] = ef.A0
	f.A[1] = ef.Addr + SPOffset
	copy(f.A[2:], ef.A[:])
}

// storeException writes back everything but a1.
func (f *Frame) storeException(ef *ExceptionFrame) {
	ef.PC = f.PC
	ef.PS = f.PS
	ef.SAR = f.SAR
	ef.VPri = f.VPri
	ef.A0 = f.A[0]
	copy(ef.A[:], f.A[2:])
}

// RTOSFrame is the interrupt frame left by the RTOS port.
type RTOSFrame struct {
	ExitPtr uint32
	PC      uint32
	PS      uint32
	A       [16]uint32
	SAR     uint32
}

func (f *Frame) loadRTOS(rf *RTOSFrame) {
	f.PC = rf.PC
	f.PS = rf.PS
	f.SAR = rf.SAR
	f.A = rf.A
}

func (f *Frame) storeRTOS(rf *RTOSFrame) {
	rf.PC = f.PC
	rf.PS = f.PS
	rf.SAR = f.SAR
	rf.A = f.A
}
