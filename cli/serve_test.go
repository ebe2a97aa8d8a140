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
package main

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mongoose-os/gdbstub/cli/config"
	"github.com/mongoose-os/gdbstub/common/rsp"
	"github.com/mongoose-os/gdbstub/sim"
)

func pkt(body string) string {
	return string(rsp.Frame([]byte(body)))
}

type gdbConn struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func (g *gdbConn) send(s string) {
	g.t.Helper()
	_, err := g.conn.Write([]byte(s))
	require.NoError(g.t, err)
}

func (g *gdbConn) expect(want string) {
	g.t.Helper()
	buf := make([]byte, len(want))
	_, err := io.ReadFull(g.r, buf)
	require.NoError(g.t, err)
	assert.Equal(g.t, want, string(buf))
}

func TestServe(t *testing.T) {
	color.NoColor = true
	a, b := net.Pipe()
	defer b.Close()
	require.NoError(t, b.SetDeadline(time.Now().Add(10*time.Second)))
	g := &gdbConn{t: t, conn: b, r: bufio.NewReader(b)}

	tg := &target{cfg: config.Default(), banner: "hello"}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var status bytes.Buffer
	errc := make(chan error, 1)
	go func() {
		errc <- tg.serve(ctx, sim.NewUART(a), &status)
	}()

	// Boot: the banner goes out raw, then the initial break.
	g.expect("hello\n")
	g.expect(pkt("T05"))
	g.send(pkt("?"))
	g.expect("+" + pkt("T05"))
	g.send(pkt("m40100000,4"))
	g.expect("+" + pkt("00000000"))

	// Running into zeroed memory stops on an illegal instruction.
	g.send(pkt("c"))
	g.expect("+" + pkt("T04"))

	// Killing boots a fresh target.
	g.send(pkt("k"))
	g.expect("+")
	g.expect("hello\n")
	g.expect(pkt("T05"))

	cancel()
	b.Close()
	err := <-errc
	cause := errors.Cause(err)
	assert.True(t, cause == context.Canceled || cause == io.EOF, "%v", err)
	assert.Contains(t, status.String(), "Debugger attached, pc 0x40100000")
	assert.Contains(t, status.String(), "Target restarted")
}

func TestParseImages(t *testing.T) {
	dir, err := ioutil.TempDir("", "gdbstub-sim")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "fw.bin")
	require.NoError(t, ioutil.WriteFile(path, []byte{0x2d, 0xf0}, 0644))

	images, err := parseImages([]string{"0x40100010:" + path})
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, uint32(0x40100010), images[0].addr)
	assert.Equal(t, []byte{0x2d, 0xf0}, images[0].data)

	m, err := sim.NewMachine(sim.ESP8266(), sim.NewWire())
	require.NoError(t, err)
	require.NoError(t, loadImages(m, images))
	mem, err := m.Memory(0x40100010, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x2d, 0xf0}, mem)

	images[0].addr = 0x50000000
	assert.Error(t, loadImages(m, images))

	for _, spec := range []string{"fw.bin", "zz:" + path, "0x40100000:" + filepath.Join(dir, "missing")} {
		_, err := parseImages([]string{spec})
		assert.Error(t, err, "%s", spec)
	}
}

func TestLockPort(t *testing.T) {
	dir, err := ioutil.TempDir("", "gdbstub-sim")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	fl, err := lockPort(dir, "/dev/ttyUSB0")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "gdbstub-sim-ttyUSB0.lock"), fl.Path())

	_, err = lockPort(dir, "/dev/ttyUSB0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is in use")

	other, err := lockPort(dir, "/dev/ttyUSB1")
	require.NoError(t, err)
	require.NoError(t, other.Unlock())

	require.NoError(t, fl.Unlock())
	fl, err = lockPort(dir, "/dev/ttyUSB0")
	require.NoError(t, err)
	require.NoError(t, fl.Unlock())
}
