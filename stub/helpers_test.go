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
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/juju/errors"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/stretchr/testify/require"

	"github.com/mongoose-os/gdbstub/common/rsp"
	"github.com/mongoose-os/gdbstub/sim"
	gdbstub "github.com/mongoose-os/gdbstub/stub"
)

var errWriteFailed = errors.New("write failed")

// failingWire fails every write after the first.
type failingWire struct {
	*sim.Wire
	n int
}

func (f *failingWire) WriteByte(c byte) error {
	if f.n >= 1 {
		return errWriteFailed
	}
	f.n++
	return f.Wire.WriteByte(c)
}

type recorder struct {
	console []byte
	rx      []byte
}

func (r *recorder) ConsoleWrite(c byte) { r.console = append(r.console, c) }
func (r *recorder) UARTReceive(c byte)  { r.rx = append(r.rx, c) }

// harness runs a stub on a simulated ESP8266 with scripted UART input.
// Running out of input while the stub waits cancels the session context.
type harness struct {
	t      *testing.T
	m      *sim.Machine
	w      *sim.Wire
	s      *gdbstub.Stub
	cancel context.CancelFunc
}

func newHarness(t *testing.T, mod func(o *gdbstub.Options)) *harness {
	h := &harness{t: t, w: sim.NewWire()}
	h.w.OnIdle = func() {
		if h.cancel != nil {
			h.cancel()
		}
	}
	m, err := sim.NewMachine(sim.ESP8266(), h.w)
	require.NoError(t, err)
	h.m = m
	opts := gdbstub.DefaultOptions()
	opts.BreakOnInit = false
	if mod != nil {
		mod(&opts)
	}
	h.s, err = gdbstub.New(m, h.w, opts)
	require.NoError(t, err)
	return h
}

func (h *harness) ctx() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	return ctx
}

// check accepts a nil error or the cancellation caused by running out of
// input.
func (h *harness) check(err error) {
	h.t.Helper()
	if err != nil {
		require.Equal(h.t, context.Canceled, errors.Cause(err), "%s", errors.ErrorStack(err))
	}
}

// read feeds input, runs a session and returns what the stub sent.
func (h *harness) read(systemStopped bool, input ...string) string {
	h.t.Helper()
	h.w.Feed(strings.Join(input, ""))
	h.check(h.s.ReadCommand(h.ctx(), systemStopped))
	return h.w.Take()
}

// attach gets GDB attached and the target running again.
func (h *harness) attach() {
	h.t.Helper()
	assertWire(h.t, "+"+pkt("T02")+"+", h.read(false, pkt("?"), pkt("c")))
	require.True(h.t, h.s.Attached())
	require.False(h.t, h.s.Paused())
}

func pkt(body string) string {
	return string(rsp.Frame([]byte(body)))
}

// replies frames each body and prefixes it with an ack.
func replies(bodies ...string) string {
	var sb strings.Builder
	for _, b := range bodies {
		sb.WriteString("+")
		sb.WriteString(pkt(b))
	}
	return sb.String()
}

func assertWire(t *testing.T, want, got string) {
	t.Helper()
	if got != want {
		dmp := diffmatchpatch.New()
		diffs := dmp.DiffMain(want, got, false)
		t.Errorf("wire mismatch:\nwant %q\ngot  %q\n%s", want, got, dmp.DiffPrettyText(diffs))
	}
}

// regsBody renders a register image the way g sends it.
func regsBody(regs [gdbstub.NumWireRegs]uint32) string {
	var sb strings.Builder
	for _, v := range regs {
		fmt.Fprintf(&sb, "%08x", rsp.Swap32(v))
	}
	return sb.String()
}

// parseRegs decodes the body of a g reply.
func parseRegs(t *testing.T, body string) [gdbstub.NumWireRegs]uint32 {
	t.Helper()
	require.Len(t, body, gdbstub.NumWireRegs*8)
	var regs [gdbstub.NumWireRegs]uint32
	c := rsp.NewCursor([]byte(body))
	for i := range regs {
		v, err := c.SwappedHex32()
		require.NoError(t, err)
		regs[i] = v
	}
	return regs
}

// body extracts the body of the single packet in a "+$...#xx" reply.
func body(t *testing.T, reply string) string {
	t.Helper()
	require.True(t, strings.HasPrefix(reply, "+$"), "%q", reply)
	end := strings.LastIndexByte(reply, '#')
	require.True(t, end > 0 && end == len(reply)-3, "%q", reply)
	return reply[2:end]
}
