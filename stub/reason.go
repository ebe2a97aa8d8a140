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

// Signal numbers as GDB knows them.
const (
	sigINT  = 2
	sigTRAP = 5
	sigSEGV = 11
)

// exceptionSignals maps exception causes to signals.
var exceptionSignals = [...]byte{4, 31, 11, 11, 2, 6, 8, 0, 6, 7, 0, 0, 7, 7, 7, 7}

// Signal returns the signal GDB is told about for r.
func (r StopReason) Signal() byte {
	switch {
	case r.IsUserBreak():
		return sigINT
	case r.IsException():
		if c := r.Cause(); c < uint32(len(exceptionSignals)) {
			return exceptionSignals[c]
		}
		return sigSEGV
	}
	return sigTRAP
}

// sendReason sends a T stop reply. Debug event details (watch, hwbreak)
// are not reported, the LX106 GDB does not ask for them.
func (s *Stub) sendReason() error {
	s.pw.Start()
	s.pw.Char('T')
	s.pw.Hex(uint32(s.regs.Reason.Signal()), 8)
	return s.pw.End()
}
