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
)

// Transport is the debug UART. WriteByte blocks until there is room in the
// transmit FIFO.
type Transport interface {
	WriteByte(c byte) error
	RxAvailable() bool
	ReadByte() (byte, error)
}

// Bus gives word access to target memory. Addresses are word aligned; IRAM
// does not support narrower accesses.
type Bus interface {
	Load32(addr uint32) uint32
	Store32(addr, v uint32)
}

// CPU covers the core and interrupt controller operations the stub needs.
type CPU interface {
	DisableUARTInterrupt()
	EnableUARTInterrupt()
	ClearUARTInterrupt()
	// SyncICache makes instruction fetch observe earlier stores (ISYNC).
	SyncICache()
	// EnableSingleStep arms ICOUNT so that a debug exception is taken after
	// one instruction at the current interrupt level.
	EnableSingleStep()
	// SaveExtraSFRs stores the registers the exception HAL does not save
	// (LITBASE, SR176, SR208) and EXCCAUSE, as the reason, into f.
	SaveExtraSFRs(f *Frame)
	// Restart resets the system. On hardware it does not return.
	Restart()
}

type Watchdog interface {
	Disable()
	Enable()
	Feed()
}

// Comparators is the bank of hardware breakpoint (IBREAK) and watchpoint
// (DBREAK) registers.
type Comparators interface {
	NumBreakpoints() int
	NumWatchpoints() int
	SetBreakpoint(slot int, addr uint32)
	ClearBreakpoint(slot int)
	// SetWatchpoint programs DBREAKA/DBREAKC. mask is the DBREAKC mask field.
	SetWatchpoint(slot int, addr, mask uint32, mode WatchMode)
	ClearWatchpoint(slot int)
}

// DebugHandler is entered from the debug exception vector with the register
// frame already saved into the frame passed to InstallDebugEntry.
type DebugHandler func(ctx context.Context) error

// ExceptionHandler is entered with the frame saved by the exception HAL.
type ExceptionHandler func(ctx context.Context, f *ExceptionFrame) error

// ConsoleHook replaces the system character output routine.
type ConsoleHook func(c byte) error

// Vectors installs the stub's entry points.
type Vectors interface {
	SetExceptionHandler(cause uint32, h ExceptionHandler)
	AttachUARTHandler(h ExceptionHandler)
	InstallConsoleHook(h ConsoleHook)
	// InstallDebugEntry routes the debug exception to h. The vector saves
	// registers into regs before calling h and restores them from it after.
	InstallDebugEntry(regs *Frame, h DebugHandler, ownStack bool)
	// Break raises a debug exception with a BREAK instruction.
	Break()
}

// Target is everything the stub drives on the chip.
type Target interface {
	Bus
	CPU
	Watchdog
	Comparators
	Vectors
}

// Delegate receives what the stub would otherwise swallow while no debugger
// is attached: console characters and bytes arriving on the UART.
type Delegate interface {
	ConsoleWrite(c byte)
	UARTReceive(c byte)
}
