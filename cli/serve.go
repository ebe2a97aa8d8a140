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
	"context"
	"io"
	"net"
	"os"
	"time"

	"github.com/cesanta/go-serial/serial"
	"github.com/golang/glog"
	"github.com/juju/errors"
	flag "github.com/spf13/pflag"
	"golang.org/x/net/netutil"

	"github.com/mongoose-os/gdbstub/cli/config"
	"github.com/mongoose-os/gdbstub/cli/devutil"
	"github.com/mongoose-os/gdbstub/cli/flags"
	"github.com/mongoose-os/gdbstub/cli/ourutil"
	"github.com/mongoose-os/gdbstub/sim"
	gdbstub "github.com/mongoose-os/gdbstub/stub"
)

const (
	interCharacterTimeout = 200 * time.Millisecond

	// ctxCheckInterval is how many instructions run between checks for
	// cancellation.
	ctxCheckInterval = 1024
)

// console stands in for the firmware's own UART users while no debugger is
// attached: output goes out raw, input is logged.
type console struct {
	port sim.Port
}

func (c *console) ConsoleWrite(b byte) {
	if err := c.port.WriteByte(b); err != nil {
		glog.Errorf("console write: %s", err)
	}
}

func (c *console) UARTReceive(b byte) {
	glog.V(2).Infof("uart rx %q", b)
}

type target struct {
	cfg         *config.Target
	images      []image
	banner      string
	breakOnInit *bool
}

func run(ctx context.Context) error {
	tg := config.Default()
	if *flags.Config != "" {
		var err error
		if tg, err = config.Load(*flags.Config); err != nil {
			return errors.Trace(err)
		}
	}
	images, err := parseImages(*flags.Load)
	if err != nil {
		return errors.Trace(err)
	}
	t := &target{cfg: tg, images: images, banner: *flags.Banner}
	if flag.CommandLine.Changed("break-on-init") {
		t.breakOnInit = flags.BreakOnInit
	}
	switch {
	case *flags.Port != "" && *flags.Listen != "":
		return errors.Errorf("--port and --listen are mutually exclusive")
	case *flags.Port != "":
		return errors.Trace(serveSerial(ctx, t, *flags.Port))
	case *flags.Listen != "":
		return errors.Trace(serveTCP(ctx, t, *flags.Listen))
	}
	return errors.Errorf("--port or --listen is required")
}

func serveSerial(ctx context.Context, t *target, port string) error {
	portName, err := devutil.ResolvePort(port)
	if err != nil {
		return errors.Trace(err)
	}
	fl, err := lockPort(*flags.LockDir, portName)
	if err != nil {
		return errors.Trace(err)
	}
	defer fl.Unlock()

	glog.Infof("Opening %s...", portName)
	oo := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(*flags.BaudRate),
		DataBits:              8,
		ParityMode:            serial.PARITY_NONE,
		StopBits:              1,
		HardwareFlowControl:   *flags.HWFC,
		InterCharacterTimeout: uint(interCharacterTimeout / time.Millisecond),
		MinimumReadSize:       0,
	}
	s, err := serial.Open(oo)
	if err != nil {
		return errors.Annotatef(err, "failed to open %s", portName)
	}
	defer s.Close()
	if *flags.SetControlLines || *flags.InvertedControlLines {
		bFalse := *flags.InvertedControlLines
		s.SetDTR(bFalse)
		s.SetRTS(bFalse)
	}
	// Drop whatever was received before we were ready.
	s.Flush()

	ourutil.Reportf("Serving %s on %s at %d", t.cfg.Name, portName, *flags.BaudRate)
	err = t.serve(ctx, newPort(s), os.Stderr)
	if errors.Cause(err) == io.EOF {
		return errors.Errorf("%s closed", portName)
	}
	return errors.Trace(err)
}

func serveTCP(ctx context.Context, t *target, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Trace(err)
	}
	// One debugger at a time, like a UART.
	l = netutil.LimitListener(l, 1)
	go func() {
		<-ctx.Done()
		l.Close()
	}()
	ourutil.Reportf("Serving %s on %s", t.cfg.Name, l.Addr())
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return errors.Trace(ctx.Err())
			}
			return errors.Trace(err)
		}
		ourutil.Statusf(os.Stderr, "Connection from %s", conn.RemoteAddr())
		err = t.serve(ctx, newPort(conn), os.Stderr)
		conn.Close()
		switch {
		case errors.Cause(err) == io.EOF:
			ourutil.Statusf(os.Stderr, "%s disconnected", conn.RemoteAddr())
		case ctx.Err() != nil:
			return errors.Trace(ctx.Err())
		default:
			return errors.Trace(err)
		}
	}
}

func newPort(rw io.ReadWriter) *sim.UART {
	u := sim.NewUART(rw)
	u.PollInterval = *flags.PollInterval
	return u
}

// serve boots the target on port and runs it until the port fails or ctx
// is done. A restart requested by the debugger boots a fresh target.
func (t *target) serve(ctx context.Context, port sim.Port, status io.Writer) error {
	for {
		err := t.boot(ctx, port, status)
		if errors.Cause(err) != gdbstub.ErrRestarted {
			return errors.Trace(err)
		}
		ourutil.Statusf(status, "Target restarted")
	}
}

func (t *target) boot(ctx context.Context, port sim.Port, status io.Writer) error {
	m, err := sim.NewMachine(t.cfg.Machine(), port)
	if err != nil {
		return errors.Trace(err)
	}
	if err := loadImages(m, t.images); err != nil {
		return errors.Trace(err)
	}
	opts := t.cfg.StubOptions()
	if t.breakOnInit != nil {
		opts.BreakOnInit = *t.breakOnInit
	}
	opts.Delegate = &console{port: port}
	s, err := gdbstub.New(m, port, opts)
	if err != nil {
		return errors.Trace(err)
	}
	s.Init()
	if t.banner != "" {
		if err := m.ConsoleWrite([]byte(t.banner + "\n")); err != nil {
			return errors.Trace(err)
		}
	}

	attached := false
	for i := 0; ; i++ {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return errors.Trace(err)
			}
		}
		if err := m.Step(ctx); err != nil {
			return errors.Trace(err)
		}
		if s.Attached() != attached {
			attached = s.Attached()
			if attached {
				ourutil.Statusf(status, "Debugger attached, pc 0x%08x", m.Regs.PC)
			} else {
				ourutil.Statusf(status, "Debugger detached")
			}
		}
	}
}
