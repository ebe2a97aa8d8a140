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
// Package config loads target descriptions for the simulator: memory
// windows, RAM regions, comparator counts and stub options.
package config

import (
	"io/ioutil"

	"github.com/juju/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/mongoose-os/gdbstub/common/memmap"
	"github.com/mongoose-os/gdbstub/common/multierror"
	"github.com/mongoose-os/gdbstub/sim"
	gdbstub "github.com/mongoose-os/gdbstub/stub"
)

type Memory struct {
	// Readable and Writable are what the stub lets the debugger access.
	Readable memmap.Table `yaml:"readable,omitempty"`
	Writable memmap.Table `yaml:"writable,omitempty"`
	// RAM is what the simulated target backs with storage.
	RAM memmap.Table `yaml:"ram,omitempty"`
}

type Options struct {
	BreakOnException *bool  `yaml:"break_on_exception,omitempty"`
	CtrlCBreak       *bool  `yaml:"ctrl_c_break,omitempty"`
	RedirectConsole  *bool  `yaml:"redirect_console,omitempty"`
	BreakOnInit      *bool  `yaml:"break_on_init,omitempty"`
	OwnStack         *bool  `yaml:"own_stack,omitempty"`
	DebugLevel       uint32 `yaml:"debug_level,omitempty"`
}

// Target describes a target variant. Zero fields take the ESP8266 values.
type Target struct {
	Name        string      `yaml:"name"`
	Memory      Memory      `yaml:"memory"`
	Breakpoints *int        `yaml:"breakpoints,omitempty"`
	Watchpoints *int        `yaml:"watchpoints,omitempty"`
	Entry       memmap.Addr `yaml:"entry,omitempty"`
	StackTop    memmap.Addr `yaml:"stack_top,omitempty"`
	Options     Options     `yaml:"options"`
}

func Default() *Target {
	return &Target{Name: "esp8266"}
}

func Load(path string) (*Target, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, errors.Annotatef(err, "%s", path)
	}
	return t, nil
}

func Parse(data []byte) (*Target, error) {
	t := Default()
	if err := yaml.UnmarshalStrict(data, t); err != nil {
		return nil, errors.Annotatef(err, "failed to parse target")
	}
	if err := t.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return t, nil
}

// Validate checks the target as a whole, reporting every problem found.
func (t *Target) Validate() error {
	var errs error
	mc := t.Machine()
	errs = multierror.Append(errs, mc.Validate())
	opts := t.StubOptions()
	errs = multierror.Append(errs, opts.Validate())
	for _, r := range opts.Writable {
		if !opts.Readable.ContainsRange(uint32(r.Start), r.Size()) {
			errs = multierror.Append(errs, errors.Errorf("writable %s is not readable", r))
		}
	}
	if !mc.Regions.Contains(mc.Entry) {
		errs = multierror.Append(errs, errors.Errorf("entry 0x%08x is not in RAM", mc.Entry))
	}
	return errs
}

// Machine returns the simulator configuration.
func (t *Target) Machine() sim.Config {
	mc := sim.ESP8266()
	if len(t.Memory.RAM) > 0 {
		mc.Regions = t.Memory.RAM
	}
	if t.Breakpoints != nil {
		mc.Breakpoints = *t.Breakpoints
	}
	if t.Watchpoints != nil {
		mc.Watchpoints = *t.Watchpoints
	}
	if t.Entry != 0 {
		mc.Entry = uint32(t.Entry)
	}
	if t.StackTop != 0 {
		mc.StackTop = uint32(t.StackTop)
	}
	return mc
}

// StubOptions returns the stub options without a delegate.
func (t *Target) StubOptions() gdbstub.Options {
	opts := gdbstub.DefaultOptions()
	if len(t.Memory.Readable) > 0 {
		opts.Readable = t.Memory.Readable
	}
	if len(t.Memory.Writable) > 0 {
		opts.Writable = t.Memory.Writable
	}
	o := &t.Options
	setBool(&opts.BreakOnException, o.BreakOnException)
	setBool(&opts.CtrlCBreak, o.CtrlCBreak)
	setBool(&opts.RedirectConsole, o.RedirectConsole)
	setBool(&opts.BreakOnInit, o.BreakOnInit)
	setBool(&opts.OwnStack, o.OwnStack)
	if o.DebugLevel != 0 {
		opts.DebugLevel = o.DebugLevel
	}
	return opts
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// Marshal renders the target with every default filled in.
func (t *Target) Marshal() ([]byte, error) {
	mc := t.Machine()
	opts := t.StubOptions()
	full := Target{
		Name: t.Name,
		Memory: Memory{
			Readable: opts.Readable,
			Writable: opts.Writable,
			RAM:      mc.Regions,
		},
		Breakpoints: &mc.Breakpoints,
		Watchpoints: &mc.Watchpoints,
		Entry:       memmap.Addr(mc.Entry),
		StackTop:    memmap.Addr(mc.StackTop),
		Options: Options{
			BreakOnException: &opts.BreakOnException,
			CtrlCBreak:       &opts.CtrlCBreak,
			RedirectConsole:  &opts.RedirectConsole,
			BreakOnInit:      &opts.BreakOnInit,
			OwnStack:         &opts.OwnStack,
			DebugLevel:       opts.DebugLevel,
		},
	}
	data, err := yaml.Marshal(&full)
	return data, errors.Trace(err)
}
