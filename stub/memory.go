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
	"github.com/mongoose-os/gdbstub/common/memmap"
)

// InvalidByte is what reads outside readable memory return.
const InvalidByte = 0xff

// Guard mediates debugger access to target memory.
type Guard struct {
	bus      Bus
	readable memmap.Table
	writable memmap.Table
}

func NewGuard(bus Bus, readable, writable memmap.Table) *Guard {
	return &Guard{bus: bus, readable: readable, writable: writable}
}

func (g *Guard) Readable(addr uint32) bool {
	return g.readable.Contains(addr)
}

// LoadByte extracts a byte from the word containing addr.
func (g *Guard) LoadByte(addr uint32) byte {
	if !g.readable.Contains(addr) {
		return InvalidByte
	}
	w := g.bus.Load32(addr &^ 3)
	return byte(w >> ((addr & 3) * 8))
}

// StoreByte does a read-modify-write of the word containing addr.
func (g *Guard) StoreByte(addr uint32, v byte) {
	if !g.readable.Contains(addr) {
		return
	}
	shift := (addr & 3) * 8
	w := g.bus.Load32(addr &^ 3)
	w = w&^(0xff<<shift) | uint32(v)<<shift
	g.bus.Store32(addr&^3, w)
}

func (g *Guard) Writable(addr uint32) bool {
	return g.writable.Contains(addr)
}

// WritableRange reports whether all of [addr, addr+n) may be written.
func (g *Guard) WritableRange(addr, n uint32) bool {
	return g.writable.ContainsRange(addr, n)
}
