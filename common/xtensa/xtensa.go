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
// Package xtensa holds the bits of the Xtensa LX106 architecture the debug
// stub needs: exception causes, DEBUGCAUSE bits and decoding of the handful
// of instructions the stub has to recognize.
package xtensa

import "fmt"

// Exception causes (EXCCAUSE).
const (
	ExcCauseIllegal            = 0
	ExcCauseSyscall            = 1
	ExcCauseInstrError         = 2
	ExcCauseLoadStoreError     = 3
	ExcCauseLevel1Interrupt    = 4
	ExcCauseAlloca             = 5
	ExcCauseDivideByZero       = 6
	ExcCauseUnaligned          = 9
	ExcCauseInstrDataError     = 12
	ExcCauseLoadStoreDataError = 13
	ExcCauseInstrAddrError     = 14
	ExcCauseLoadStoreAddrError = 15
	ExcCauseInstrProhibited    = 20
	ExcCauseLoadProhibited     = 28
	ExcCauseStoreProhibited    = 29
)

// FatalExceptionCauses are the causes the stub hooks when breaking on
// exceptions.
var FatalExceptionCauses = []uint32{
	ExcCauseIllegal, ExcCauseSyscall, ExcCauseInstrError, ExcCauseLoadStoreError,
	ExcCauseDivideByZero, ExcCauseUnaligned, ExcCauseInstrDataError, ExcCauseLoadStoreDataError,
	ExcCauseInstrAddrError, ExcCauseLoadStoreAddrError, ExcCauseInstrProhibited,
	ExcCauseLoadProhibited, ExcCauseStoreProhibited,
}

// DebugCause bits (DEBUGCAUSE register).
type DebugCause uint32

const (
	DebugICount DebugCause = 1 << iota
	DebugIBreak
	DebugDBreak
	DebugBreak
	DebugBreakN
	DebugInterrupt
)

func (dc DebugCause) String() string {
	switch dc {
	case DebugICount:
		return "icount"
	case DebugIBreak:
		return "ibreak"
	case DebugDBreak:
		return "dbreak"
	case DebugBreak:
		return "break"
	case DebugBreakN:
		return "break.n"
	case DebugInterrupt:
		return "debugint"
	default:
		return fmt.Sprintf("debugcause(0x%x)", uint32(dc))
	}
}

// DebugLevel is XCHAL_DEBUGLEVEL of the LX106 core.
const DebugLevel = 2

// PSIntLevelMask covers PS.INTLEVEL.
const PSIntLevelMask = 0xf

// InstrLen returns the length of the instruction starting with byte b0.
// Narrow (density) instructions have bit 3 of op0 set.
func InstrLen(b0 byte) uint32 {
	if b0&0x08 != 0 {
		return 2
	}
	return 3
}

// LoadStore is a decoded L32I, S32I, L32I.N or S32I.N. T is the data
// register, S the base register.
type LoadStore struct {
	Load   bool
	T, S   int
	Offset uint32
	Len    uint32
}

func (ls LoadStore) String() string {
	op := "s32i"
	if ls.Load {
		op = "l32i"
	}
	if ls.Len == 2 {
		op += ".n"
	}
	return fmt.Sprintf("%s a%d, a%d, %d", op, ls.T, ls.S, ls.Offset)
}

// DecodeLoadStore recognizes the 32-bit load/store forms. b2 is ignored for
// narrow encodings.
func DecodeLoadStore(b0, b1, b2 byte) (LoadStore, bool) {
	switch {
	case b0&0xf == 0x2 && b1&0xb0 == 0x20:
		// LSAI format, r = 2 (L32I) or 6 (S32I), offset is imm8 words.
		return LoadStore{
			Load:   b1&0xf0 == 0x20,
			T:      int(b0 >> 4),
			S:      int(b1 & 0xf),
			Offset: uint32(b2) * 4,
			Len:    3,
		}, true
	case b0&0xe == 0x8:
		// RRRN format, op0 = 8 (L32I.N) or 9 (S32I.N), offset is imm4 words.
		return LoadStore{
			Load:   b0&0xf == 0x8,
			T:      int(b0 >> 4),
			S:      int(b1 & 0xf),
			Offset: uint32(b1>>4) * 4,
			Len:    2,
		}, true
	}
	return LoadStore{}, false
}

// IsBreak returns true for BREAK s, t.
func IsBreak(b0, b1, b2 byte) bool {
	return b2 == 0 && b1&0xf0 == 0x40 && b0&0x0f == 0
}

// IsBreakN returns true for BREAK.N s.
func IsBreakN(b0, b1 byte) bool {
	return b1&0xf0 == 0xf0 && b0 == 0x2d
}

// Encoders, used by tests and the simulator to assemble code.

func EncodeL32I(t, s int, offset uint32) []byte {
	return []byte{byte(t<<4) | 0x2, 0x20 | byte(s), byte(offset / 4)}
}

func EncodeS32I(t, s int, offset uint32) []byte {
	return []byte{byte(t<<4) | 0x2, 0x60 | byte(s), byte(offset / 4)}
}

func EncodeL32IN(t, s int, offset uint32) []byte {
	return []byte{byte(t<<4) | 0x8, byte(offset/4)<<4 | byte(s)}
}

func EncodeS32IN(t, s int, offset uint32) []byte {
	return []byte{byte(t<<4) | 0x9, byte(offset/4)<<4 | byte(s)}
}

func EncodeBreak(s, t int) []byte {
	return []byte{byte(t<<4) & 0xf0, 0x40 | byte(s), 0}
}

func EncodeBreakN(s int) []byte {
	return []byte{0x2d, 0xf0 | byte(s)}
}

// EncodeNOP returns the 3-byte NOP.
func EncodeNOP() []byte {
	return []byte{0xf0, 0x20, 0x00}
}
