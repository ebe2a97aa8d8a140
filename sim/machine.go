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
// Package sim is a small LX106 target simulation for running the stub on a
// host: memory, comparators, watchdog, vectors and a subset of the
// instruction set that exercises the debug paths.
package sim

import (
	"encoding/binary"

	"github.com/golang/glog"
	"github.com/juju/errors"

	"github.com/mongoose-os/gdbstub/common/memmap"
	"github.com/mongoose-os/gdbstub/common/multierror"
	gdbstub "github.com/mongoose-os/gdbstub/stub"
)

// Port is the machine side of the UART.
type Port interface {
	gdbstub.Transport
	// Pending reports received bytes without waiting.
	Pending() bool
	// Flush pushes out buffered transmit data.
	Flush() error
}

type Config struct {
	// Regions are backed by RAM.
	Regions     memmap.Table
	Breakpoints int
	Watchpoints int
	// Entry is the reset pc, StackTop the reset a1.
	Entry    uint32
	StackTop uint32
}

// ESP8266 is the memory and comparator layout of an ESP8266.
func ESP8266() Config {
	return Config{
		Regions: memmap.Table{
			{Name: "dram", Start: 0x3ffe8000, End: 0x3fffffff},
			{Name: "iram", Start: 0x40100000, End: 0x40107fff},
			{Name: "rtc", Start: 0x60001000, End: 0x60001fff},
		},
		Breakpoints: 1,
		Watchpoints: 1,
		Entry:       0x40100000,
		StackTop:    0x3ffffff0,
	}
}

func (c *Config) Validate() error {
	var errs error
	for _, r := range c.Regions {
		if r.Size() == 0 || r.Size() > 16<<20 {
			errs = multierror.Append(errs, errors.Errorf("region %s: bad size", r))
		}
	}
	errs = multierror.Append(errs, c.Regions.Validate())
	if c.Breakpoints < 0 || c.Watchpoints < 0 {
		errs = multierror.Append(errs, errors.Errorf("negative comparator count"))
	}
	return errs
}

type region struct {
	memmap.Range
	data []byte
}

type ibreak struct {
	addr    uint32
	enabled bool
}

type dbreak struct {
	addr    uint32
	mask    uint32
	mode    gdbstub.WatchMode
	enabled bool
}

// Machine implements gdbstub.Target.
type Machine struct {
	// Regs is the register file. Reason is not used.
	Regs gdbstub.Frame
	// ExcCause is the cause of the last exception or interrupt.
	ExcCause uint32

	WatchdogEnabled bool
	WatchdogFeeds   int
	ICacheSyncs     int
	UARTIntClears   int
	Restarts        int
	Steps           int
	OwnStack        bool

	cfg       Config
	port      Port
	regions   []*region
	ibreak    []ibreak
	dbreak    []dbreak
	uartInt   bool
	icount    bool
	skipIBrk  bool
	brkReq    bool
	restarted bool

	debugRegs   *gdbstub.Frame
	debugEntry  gdbstub.DebugHandler
	excHandlers map[uint32]gdbstub.ExceptionHandler
	uartHandler gdbstub.ExceptionHandler
	console     gdbstub.ConsoleHook
}

func NewMachine(cfg Config, port Port) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Annotatef(err, "invalid machine config")
	}
	m := &Machine{
		cfg:         cfg,
		port:        port,
		ibreak:      make([]ibreak, cfg.Breakpoints),
		dbreak:      make([]dbreak, cfg.Watchpoints),
		excHandlers: map[uint32]gdbstub.ExceptionHandler{},
	}
	for _, r := range cfg.Regions {
		m.regions = append(m.regions, &region{Range: r, data: make([]byte, r.Size())})
	}
	m.reset()
	return m, nil
}

func (m *Machine) reset() {
	m.Regs = gdbstub.Frame{PC: m.cfg.Entry}
	m.Regs.A[1] = m.cfg.StackTop
	m.WatchdogEnabled = true
	m.uartInt = true
	m.icount = false
	m.skipIBrk = false
	m.brkReq = false
	m.restarted = false
	for i := range m.ibreak {
		m.ibreak[i] = ibreak{}
	}
	for i := range m.dbreak {
		m.dbreak[i] = dbreak{}
	}
}

func (m *Machine) find(addr, n uint32) *region {
	for _, r := range m.regions {
		if r.Contains(addr) && uint64(addr-uint32(r.Start))+uint64(n) <= uint64(len(r.data)) {
			return r
		}
	}
	return nil
}

func (m *Machine) load(addr uint32) (uint32, bool) {
	r := m.find(addr, 4)
	if r == nil {
		return 0, false
	}
	off := addr - uint32(r.Start)
	return binary.LittleEndian.Uint32(r.data[off:]), true
}

func (m *Machine) store(addr, v uint32) bool {
	r := m.find(addr, 4)
	if r == nil {
		return false
	}
	off := addr - uint32(r.Start)
	binary.LittleEndian.PutUint32(r.data[off:], v)
	return true
}

// Load32 reads a word; unbacked memory reads as zero.
func (m *Machine) Load32(addr uint32) uint32 {
	v, _ := m.load(addr)
	return v
}

// Store32 writes a word; writes to unbacked memory are dropped.
func (m *Machine) Store32(addr, v uint32) {
	if !m.store(addr, v) {
		glog.V(3).Infof("store to unbacked 0x%08x dropped", addr)
	}
}

// LoadImage copies data into RAM at addr.
func (m *Machine) LoadImage(addr uint32, data []byte) error {
	r := m.find(addr, uint32(len(data)))
	if r == nil {
		return errors.Errorf("0x%08x+%d is not in RAM", addr, len(data))
	}
	copy(r.data[addr-uint32(r.Start):], data)
	return nil
}

// Memory returns a copy of n bytes at addr.
func (m *Machine) Memory(addr, n uint32) ([]byte, error) {
	r := m.find(addr, n)
	if r == nil {
		return nil, errors.Errorf("0x%08x+%d is not in RAM", addr, n)
	}
	off := addr - uint32(r.Start)
	return append([]byte(nil), r.data[off:off+n]...), nil
}

func (m *Machine) loadByte(addr uint32) (byte, bool) {
	v, ok := m.load(addr &^ 3)
	return byte(v >> ((addr & 3) * 8)), ok
}

// CPU.

func (m *Machine) DisableUARTInterrupt() { m.uartInt = false }
func (m *Machine) EnableUARTInterrupt()  { m.uartInt = true }
func (m *Machine) ClearUARTInterrupt()   { m.UARTIntClears++ }
func (m *Machine) SyncICache()           { m.ICacheSyncs++ }
func (m *Machine) EnableSingleStep()     { m.icount = true }

func (m *Machine) SaveExtraSFRs(f *gdbstub.Frame) {
	f.LitBase = m.Regs.LitBase
	f.SR176 = m.Regs.SR176
	f.SR208 = m.Regs.SR208
	f.Reason = gdbstub.StopReason(m.ExcCause)
}

// Restart takes effect when the entry that called it returns.
func (m *Machine) Restart() {
	m.Restarts++
	m.restarted = true
	glog.Infof("restart #%d", m.Restarts)
}

// SingleStepArmed reports whether ICOUNT will fire after the next
// instruction.
func (m *Machine) SingleStepArmed() bool {
	return m.icount
}

func (m *Machine) UARTInterruptEnabled() bool {
	return m.uartInt
}

// Watchdog.

func (m *Machine) Disable() { m.WatchdogEnabled = false }
func (m *Machine) Enable()  { m.WatchdogEnabled = true }
func (m *Machine) Feed()    { m.WatchdogFeeds++ }

// Comparators.

func (m *Machine) NumBreakpoints() int { return len(m.ibreak) }
func (m *Machine) NumWatchpoints() int { return len(m.dbreak) }

func (m *Machine) SetBreakpoint(slot int, addr uint32) {
	m.ibreak[slot] = ibreak{addr: addr, enabled: true}
}

func (m *Machine) ClearBreakpoint(slot int) {
	m.ibreak[slot] = ibreak{}
}

func (m *Machine) SetWatchpoint(slot int, addr, mask uint32, mode gdbstub.WatchMode) {
	m.dbreak[slot] = dbreak{addr: addr, mask: mask, mode: mode, enabled: true}
}

func (m *Machine) ClearWatchpoint(slot int) {
	m.dbreak[slot] = dbreak{}
}

// Breakpoint returns the address slot is armed with.
func (m *Machine) Breakpoint(slot int) (uint32, bool) {
	b := m.ibreak[slot]
	return b.addr, b.enabled
}

// Watchpoint returns how slot is armed.
func (m *Machine) Watchpoint(slot int) (addr, mask uint32, mode gdbstub.WatchMode, ok bool) {
	d := m.dbreak[slot]
	return d.addr, d.mask, d.mode, d.enabled
}

// Vectors.

func (m *Machine) SetExceptionHandler(cause uint32, h gdbstub.ExceptionHandler) {
	m.excHandlers[cause] = h
}

func (m *Machine) AttachUARTHandler(h gdbstub.ExceptionHandler) {
	m.DisableUARTInterrupt()
	m.uartHandler = h
	m.EnableUARTInterrupt()
}

func (m *Machine) InstallConsoleHook(h gdbstub.ConsoleHook) {
	m.console = h
}

func (m *Machine) InstallDebugEntry(regs *gdbstub.Frame, h gdbstub.DebugHandler, ownStack bool) {
	m.debugRegs = regs
	m.debugEntry = h
	m.OwnStack = ownStack
}

// Break requests a debug exception before the next instruction.
func (m *Machine) Break() {
	m.brkReq = true
}

func (m *Machine) HasExceptionHandler(cause uint32) bool {
	return m.excHandlers[cause] != nil
}

// ConsoleWrite is what firmware printing looks like: through the console
// hook if one is installed, straight to the UART otherwise.
func (m *Machine) ConsoleWrite(p []byte) error {
	for _, c := range p {
		var err error
		if m.console != nil {
			err = m.console(c)
		} else {
			err = m.port.WriteByte(c)
		}
		if err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(m.port.Flush())
}
