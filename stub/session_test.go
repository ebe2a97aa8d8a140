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
package gdbstub_test

import (
	"strings"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mongoose-os/gdbstub/common/rsp"
	gdbstub "github.com/mongoose-os/gdbstub/stub"
)

func TestReadRegistersPacket(t *testing.T) {
	h := newHarness(t, nil)
	f := h.s.Frame()
	for i := range f.A {
		f.A[i] = 0x3ffe8000 + uint32(i)*0x11
	}
	f.PC = 0x40100123
	f.SAR = 0x1f
	f.LitBase = 0x40000001
	f.SR176 = 0xa5a5a5a5
	f.SR208 = 0x12345678
	f.PS = 0x00060030

	var want [gdbstub.NumWireRegs]uint32
	copy(want[:16], f.A[:])
	want[16] = f.PC
	want[17] = f.SAR
	want[18] = f.LitBase
	want[19] = f.SR176
	want[21] = f.PS

	got := h.read(false, "$g#67")
	assertWire(t, "+"+pkt(regsBody(want)), got)
	assert.Len(t, body(t, got), 22*8)

	assert.True(t, h.s.Attached())
	assert.True(t, h.s.Paused())
	assert.Equal(t, gdbstub.UserBreak, f.Reason)
	assert.False(t, h.m.WatchdogEnabled)
	assert.False(t, h.m.UARTInterruptEnabled())
	assert.NotZero(t, h.m.WatchdogFeeds)
}

func TestBadChecksum(t *testing.T) {
	h := newHarness(t, nil)

	// Not attached yet: no nack.
	assertWire(t, "", h.read(false, "$g#00"))
	assert.False(t, h.s.Attached())
	assert.False(t, h.s.Paused())

	assertWire(t, replies("T02"), h.read(false, "$?#3f"))

	got := h.read(false, "$M3ffe8000,1:aa#00", "$g#00")
	assertWire(t, "--", got)
	mem, err := h.m.Memory(0x3ffe8000, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, mem)

	got = h.read(false, "$g#00", "$g#67")
	require.True(t, strings.HasPrefix(got, "-+$"), "%q", got)
	assert.Len(t, body(t, got[1:]), 22*8)

	// Uppercase checksum digits are fine.
	p := pkt("M3ffe8000,1:aa")
	p = p[:len(p)-2] + strings.ToUpper(p[len(p)-2:])
	assertWire(t, replies("OK"), h.read(false, p))
}

func TestReceiveFraming(t *testing.T) {
	for i, c := range []struct {
		name  string
		input string
		want  string
	}{
		{"resync", "$g$?#3f", replies("T02")},
		{"noise before packet", "xyz+-" + pkt("?"), replies("T02")},
		{"escaped body", pkt("qX#$}*Y"), replies("")},
		{"escape then more", pkt("q}") + pkt("?"), replies("", "T02")},
		{"overflow", "$" + strings.Repeat("a", 300) + "#00" + pkt("?"), replies("T02")},
		{"longest packet", pkt("q" + strings.Repeat("a", gdbstub.CommandBufferSize-2)), replies("")},
		{"bad checksum digit", "$?#zz" + pkt("?"), replies("T02")},
	} {
		h := newHarness(t, nil)
		got := h.read(false, c.input)
		if got != c.want {
			t.Errorf("%d %s: got %q, want %q", i, c.name, got, c.want)
		}
	}
}

func TestOverflowDropsPacket(t *testing.T) {
	h := newHarness(t, nil)
	// One byte too many for the buffer.
	long := pkt("q" + strings.Repeat("a", gdbstub.CommandBufferSize-1))
	assertWire(t, "", h.read(false, long))
	assert.False(t, h.s.Attached())
}

func TestStopReason(t *testing.T) {
	for i, c := range []struct {
		reason gdbstub.StopReason
		want   string
	}{
		{gdbstub.UserBreak, "T02"},
		{0x04, "T05"},
		{0x01, "T05"},
		{0x08, "T05"},
		{gdbstub.ExceptionReason(0), "T04"},
		{gdbstub.ExceptionReason(1), "T1f"},
		{gdbstub.ExceptionReason(3), "T0b"},
		{gdbstub.ExceptionReason(9), "T07"},
		{gdbstub.ExceptionReason(15), "T07"},
		{gdbstub.ExceptionReason(16), "T0b"},
		{gdbstub.ExceptionReason(28), "T0b"},
	} {
		h := newHarness(t, nil)
		h.s.Frame().Reason = c.reason
		got := h.read(true, pkt("?"))
		want := pkt(c.want) + replies(c.want)
		if got != want {
			t.Errorf("%d 0x%x: got %q, want %q", i, uint32(c.reason), got, want)
		}
	}
}

func TestCtrlC(t *testing.T) {
	h := newHarness(t, nil)

	// Ignored until GDB has attached.
	assertWire(t, "", h.read(false, "\x03"))
	assert.False(t, h.s.Paused())

	h.attach()
	h.s.Frame().Reason = 0x04
	assertWire(t, pkt("T02"), h.read(false, "\x03"))
	assert.True(t, h.s.Paused())
	assert.Equal(t, gdbstub.UserBreak, h.s.Frame().Reason)

	// Already paused.
	assertWire(t, "", h.read(false, "\x03"))
	assertWire(t, "+", h.read(false, pkt("c")))
	assert.False(t, h.s.Paused())
	assert.True(t, h.m.WatchdogEnabled)
	assert.True(t, h.m.UARTInterruptEnabled())
}

func TestDetachAfterBreakIn(t *testing.T) {
	h := newHarness(t, nil)
	got := h.read(false, pkt("?"), pkt("D"))
	assertWire(t, replies("T02", "OK"), got)
	assert.False(t, h.s.Attached())
	assert.False(t, h.s.Paused())
	assert.True(t, h.m.WatchdogEnabled)

	// Once detached, a bad checksum is not nacked again.
	assertWire(t, "", h.read(false, "$?#00"))
}

func TestDetachWhenStopped(t *testing.T) {
	h := newHarness(t, nil)
	h.s.Frame().Reason = gdbstub.ExceptionReason(0)
	got := h.read(true, pkt("D"))
	assertWire(t, pkt("T04")+replies("OK"), got)
	assert.False(t, h.s.Attached())
	assert.True(t, h.s.Paused())

	// Still waiting; a new debugger can pick it up.
	got = h.read(false, pkt("?"), pkt("c"))
	assertWire(t, replies("T04")+"+", got)
	assert.False(t, h.s.Paused())
}

func TestForwardToDelegate(t *testing.T) {
	rec := &recorder{}
	h := newHarness(t, func(o *gdbstub.Options) {
		o.Delegate = rec
	})
	h.read(false, "ab", pkt("?"), pkt("?"))
	assert.Equal(t, "ab"+pkt("?"), string(rec.rx))

	rec = &recorder{}
	h = newHarness(t, func(o *gdbstub.Options) {
		o.Delegate = rec
		o.CtrlCBreak = false
	})
	h.read(false, "ab")
	assert.Empty(t, rec.rx)
}

func TestRestart(t *testing.T) {
	h := newHarness(t, nil)
	h.w.Feed(pkt("k"))
	err := h.s.ReadCommand(h.ctx(), false)
	require.Error(t, err)
	assert.Equal(t, gdbstub.ErrRestarted, errors.Cause(err))
	assert.Equal(t, 1, h.m.Restarts)
	assertWire(t, "+", h.w.Take())
}

func TestTransportErrorEndsSession(t *testing.T) {
	h := newHarness(t, nil)
	h.w.OnIdle = nil
	fw := &failingWire{Wire: h.w}
	s, err := gdbstub.New(h.m, fw, gdbstub.DefaultOptions())
	require.NoError(t, err)
	h.w.Feed(pkt("?"))
	err = s.ReadCommand(h.ctx(), false)
	require.Error(t, err)
	assert.Equal(t, errWriteFailed, errors.Cause(err))
	assert.Equal(t, string(rsp.Ack), h.w.Take())
}
