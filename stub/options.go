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
	"github.com/juju/errors"

	"github.com/mongoose-os/gdbstub/common/memmap"
	"github.com/mongoose-os/gdbstub/common/multierror"
	"github.com/mongoose-os/gdbstub/common/xtensa"
)

var (
	// DefaultReadable is the ESP8266 address space that can be read without
	// faulting: data/instruction RAM, the flash mapping and the RTC block.
	DefaultReadable = memmap.Table{
		{Name: "mem", Start: 0x20000000, End: 0x5fffffff},
		{Name: "rtc", Start: 0x60000000, End: 0x60001fff},
	}

	// DefaultWritable is where writes are known to take effect: DPORT and
	// DRAM, IRAM and RTC memory. The flash mapping is not writable.
	DefaultWritable = memmap.Table{
		{Name: "dram", Start: 0x3ff00000, End: 0x3fffffff},
		{Name: "iram", Start: 0x40100000, End: 0x4013ffff},
		{Name: "rtc", Start: 0x60000000, End: 0x60001fff},
	}
)

type Options struct {
	// BreakOnException enters the debugger on fatal exceptions.
	BreakOnException bool
	// CtrlCBreak takes over the UART interrupt so that GDB can break in.
	CtrlCBreak bool
	// RedirectConsole sends console output to GDB while it is attached.
	RedirectConsole bool
	// BreakOnInit stops in the debugger as soon as Init is done.
	BreakOnInit bool
	// OwnStack runs the debug exception handler on a private stack.
	OwnStack bool

	// DebugLevel is the interrupt level of the debug exception. Stepping
	// runs at DebugLevel-1.
	DebugLevel uint32

	Readable memmap.Table
	Writable memmap.Table

	Delegate Delegate
}

func DefaultOptions() Options {
	return Options{
		BreakOnException: true,
		CtrlCBreak:       true,
		RedirectConsole:  true,
		BreakOnInit:      true,
		DebugLevel:       xtensa.DebugLevel,
		Readable:         DefaultReadable,
		Writable:         DefaultWritable,
	}
}

func (o *Options) Validate() error {
	var errs error
	if o.DebugLevel < 1 || o.DebugLevel > xtensa.PSIntLevelMask {
		errs = multierror.Append(errs, errors.Errorf("debug level %d is out of range", o.DebugLevel))
	}
	if len(o.Readable) == 0 {
		errs = multierror.Append(errs, errors.New("no readable memory"))
	}
	if err := o.Readable.Validate(); err != nil {
		errs = multierror.Append(errs, errors.Annotatef(err, "readable"))
	}
	if err := o.Writable.Validate(); err != nil {
		errs = multierror.Append(errs, errors.Annotatef(err, "writable"))
	}
	return errs
}
