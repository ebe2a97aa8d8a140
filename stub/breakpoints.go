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

	"github.com/golang/glog"
)

// WatchMode selects the accesses a watchpoint traps on. The values are the
// DBREAKC load/store enable bits.
type WatchMode uint32

const (
	WatchRead   WatchMode = 1
	WatchWrite  WatchMode = 2
	WatchAccess WatchMode = WatchRead | WatchWrite
)

func (m WatchMode) String() string {
	switch m {
	case WatchRead:
		return "read"
	case WatchWrite:
		return "write"
	case WatchAccess:
		return "access"
	}
	return fmt.Sprintf("watchmode(%d)", uint32(m))
}

// WatchMask returns the DBREAKC mask for a watched region of length bytes.
func WatchMask(length uint32) (uint32, bool) {
	switch length {
	case 1:
		return 0x3f, true
	case 2:
		return 0x3e, true
	case 4:
		return 0x3c, true
	case 8:
		return 0x38, true
	case 16:
		return 0x30, true
	case 32:
		return 0x20, true
	case 64:
		return 0x00, true
	}
	return 0, false
}

type slot struct {
	addr uint32
	used bool
}

// slotTable tracks which comparators hold which address.
type slotTable []slot

// get returns the slot already holding addr, or the first free one.
func (t slotTable) get(addr uint32) (int, bool) {
	free := -1
	for i, s := range t {
		if s.used && s.addr == addr {
			return i, true
		}
		if !s.used && free < 0 {
			free = i
		}
	}
	return free, free >= 0
}

func (t slotTable) find(addr uint32) (int, bool) {
	for i, s := range t {
		if s.used && s.addr == addr {
			return i, true
		}
	}
	return -1, false
}

// Breakpoints hands out the hardware comparators.
type Breakpoints struct {
	c      Comparators
	ibreak slotTable
	dbreak slotTable
}

func NewBreakpoints(c Comparators) *Breakpoints {
	return &Breakpoints{
		c:      c,
		ibreak: make(slotTable, c.NumBreakpoints()),
		dbreak: make(slotTable, c.NumWatchpoints()),
	}
}

// SetBreakpoint arms an instruction breakpoint. kind is the instruction
// length GDB reports and does not matter to the comparator.
func (b *Breakpoints) SetBreakpoint(addr, kind uint32) bool {
	i, ok := b.ibreak.get(addr)
	if !ok {
		glog.V(1).Infof("no free ibreak for 0x%08x", addr)
		return false
	}
	b.ibreak[i] = slot{addr: addr, used: true}
	b.c.SetBreakpoint(i, addr)
	glog.V(3).Infof("ibreak%d = 0x%08x (kind %d)", i, addr, kind)
	return true
}

func (b *Breakpoints) ClearBreakpoint(addr uint32) bool {
	i, ok := b.ibreak.find(addr)
	if !ok {
		return false
	}
	b.ibreak[i] = slot{}
	b.c.ClearBreakpoint(i)
	glog.V(3).Infof("ibreak%d cleared", i)
	return true
}

func (b *Breakpoints) SetWatchpoint(addr, length uint32, mode WatchMode) bool {
	mask, ok := WatchMask(length)
	if !ok {
		glog.V(1).Infof("unsupported watch length %d", length)
		return false
	}
	i, ok := b.dbreak.get(addr)
	if !ok {
		glog.V(1).Infof("no free dbreak for 0x%08x", addr)
		return false
	}
	b.dbreak[i] = slot{addr: addr, used: true}
	b.c.SetWatchpoint(i, addr, mask, mode)
	glog.V(3).Infof("dbreak%d = 0x%08x/%d %s", i, addr, length, mode)
	return true
}

func (b *Breakpoints) ClearWatchpoint(addr uint32) bool {
	i, ok := b.dbreak.find(addr)
	if !ok {
		return false
	}
	b.dbreak[i] = slot{}
	b.c.ClearWatchpoint(i)
	glog.V(3).Infof("dbreak%d cleared", i)
	return true
}
