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
	"bytes"
	"fmt"

	"github.com/golang/glog"
	"github.com/juju/errors"

	"github.com/mongoose-os/gdbstub/common/rsp"
	"github.com/mongoose-os/gdbstub/common/xtensa"
)

// signal tells the session what to do after a command.
type signal int

const (
	signalOK signal = iota
	signalContinue
	signalDetach
)

func (sig signal) String() string {
	switch sig {
	case signalOK:
		return "ok"
	case signalContinue:
		return "continue"
	case signalDetach:
		return "detach"
	}
	return fmt.Sprintf("signal(%d)", int(sig))
}

// errGeneric is the only error code we ever send.
const errGeneric = 0x01

// supportedReply advertises the command buffer size, less the terminator
// slot, in hex.
var supportedReply = fmt.Sprintf("swbreak+;hwbreak+;PacketSize=%X", CommandBufferSize-1)

var (
	querySupported = []byte("Supported")
	queryAttached  = []byte("Attached")
)

// dispatch executes one command. Protocol level failures are answered on
// the wire; the returned error is only for transport failures and restart.
func (s *Stub) dispatch(cmd []byte) (signal, error) {
	if len(cmd) == 0 {
		return signalOK, errors.Trace(s.pw.SendEmpty())
	}
	glog.V(2).Infof("cmd %q", cmd)
	args := rsp.NewCursor(cmd[1:])
	var err error
	switch cmd[0] {
	case 'g':
		err = s.readRegisters()
	case 'G':
		err = s.writeRegisters(args)
	case 'm':
		err = s.readMemory(args)
	case 'M':
		err = s.writeMemory(args)
	case '?':
		err = s.sendReason()
	case 'c':
		return signalContinue, nil
	case 's':
		s.singleStep()
		return signalContinue, nil
	case 'D':
		return signalDetach, errors.Trace(s.pw.SendOK())
	case 'k':
		glog.Infof("restarting target")
		s.t.Restart()
		return signalOK, errors.Trace(ErrRestarted)
	case 'q':
		err = s.query(cmd[1:])
	case 'Z', 'z':
		err = s.breakpoint(cmd[0] == 'Z', args)
	default:
		err = s.pw.SendEmpty()
	}
	return signalOK, errors.Trace(err)
}

func (s *Stub) readRegisters() error {
	regs := s.regs.wireImage()
	s.pw.Start()
	for i, v := range regs {
		if i == 20 {
			// Unused slot, sent in native order.
			s.pw.Hex(0, 32)
			continue
		}
		s.pw.SwappedHex32(v)
	}
	return s.pw.End()
}

func (s *Stub) writeRegisters(args *rsp.Cursor) error {
	var regs [NumWireRegs]uint32
	for i := range regs {
		v, err := args.SwappedHex32()
		if err != nil {
			glog.V(1).Infof("G: register %d: %s", i, err)
			return s.pw.SendError(errGeneric)
		}
		regs[i] = v
	}
	s.regs.setWireImage(regs)
	return s.pw.SendOK()
}

// addrLen parses "addr,length".
func addrLen(args *rsp.Cursor) (uint32, uint32) {
	addr, _ := args.Hex(rsp.Variable)
	args.Skip(1)
	n, _ := args.Hex(rsp.Variable)
	return addr, n
}

func (s *Stub) readMemory(args *rsp.Cursor) error {
	addr, n := addrLen(args)
	s.pw.Start()
	for i := uint32(0); i < n; i++ {
		s.pw.Hex(uint32(s.mem.LoadByte(addr+i)), 8)
	}
	return s.pw.End()
}

func (s *Stub) writeMemory(args *rsp.Cursor) error {
	addr, n := addrLen(args)
	args.Skip(1)
	if !s.mem.WritableRange(addr, n) {
		glog.V(1).Infof("M: 0x%08x+%d is not writable", addr, n)
		return s.pw.SendError(errGeneric)
	}
	// The data cannot be longer than the command it came in.
	var data [CommandBufferSize / 2]byte
	if n > uint32(len(data)) {
		return s.pw.SendError(errGeneric)
	}
	for i := uint32(0); i < n; i++ {
		v, err := args.Hex(8)
		if err != nil {
			glog.V(1).Infof("M: byte %d: %s", i, err)
			return s.pw.SendError(errGeneric)
		}
		data[i] = byte(v)
	}
	for i := uint32(0); i < n; i++ {
		s.mem.StoreByte(addr+i, data[i])
	}
	s.t.SyncICache()
	return s.pw.SendOK()
}

// singleStep lowers the interrupt level so that nothing preempts the
// stepped instruction; an interrupt taken on the way would make ICOUNT
// fire inside the handler instead.
func (s *Stub) singleStep() {
	s.stepPS = s.regs.PS
	s.stepping = true
	s.regs.PS = s.regs.PS&^xtensa.PSIntLevelMask | (s.opts.DebugLevel - 1)
	s.t.EnableSingleStep()
	glog.V(3).Infof("step at 0x%08x, ps 0x%x -> 0x%x", s.regs.PC, s.stepPS, s.regs.PS)
}

func (s *Stub) query(q []byte) error {
	switch {
	case bytes.HasPrefix(q, querySupported):
		return s.pw.SendString(supportedReply)
	case bytes.HasPrefix(q, queryAttached):
		// Attached to an existing process: GDB detaches rather than kills on exit.
		return s.pw.SendString("1")
	}
	return s.pw.SendEmpty()
}

// breakpoint handles "Ztype,addr,length" and its z counterpart.
func (s *Stub) breakpoint(set bool, args *rsp.Cursor) error {
	typ := args.Peek()
	args.Skip(2)
	addr, n := addrLen(args)
	var ok bool
	switch typ {
	case '1':
		if set {
			ok = s.bp.SetBreakpoint(addr, n)
		} else {
			ok = s.bp.ClearBreakpoint(addr)
		}
	case '2', '3', '4':
		if set {
			ok = s.bp.SetWatchpoint(addr, n, watchModes[typ-'2'])
		} else {
			ok = s.bp.ClearWatchpoint(addr)
		}
	default:
		// Software breakpoints are done by GDB with M.
		return s.pw.SendEmpty()
	}
	if !ok {
		return s.pw.SendError(errGeneric)
	}
	return s.pw.SendOK()
}

// watchModes is indexed by Z type minus 2.
var watchModes = [...]WatchMode{WatchWrite, WatchRead, WatchAccess}
