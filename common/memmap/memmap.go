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
// Package memmap describes target address windows as tables of inclusive
// ranges.
package memmap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/mongoose-os/gdbstub/common/multierror"
)

// Range is an inclusive address range.
type Range struct {
	Name  string `yaml:"name,omitempty"`
	Start Addr   `yaml:"start"`
	End   Addr   `yaml:"end"`
}

func (r Range) Contains(addr uint32) bool {
	return addr >= uint32(r.Start) && addr <= uint32(r.End)
}

// Size returns the number of bytes in the range; 0 means the whole 4 GiB space.
func (r Range) Size() uint32 {
	return uint32(r.End) - uint32(r.Start) + 1
}

func (r Range) String() string {
	if r.Name != "" {
		return fmt.Sprintf("%s[0x%08x-0x%08x]", r.Name, uint32(r.Start), uint32(r.End))
	}
	return fmt.Sprintf("[0x%08x-0x%08x]", uint32(r.Start), uint32(r.End))
}

// Table is a set of ranges granting one capability.
type Table []Range

func (t Table) Contains(addr uint32) bool {
	for _, r := range t {
		if r.Contains(addr) {
			return true
		}
	}
	return false
}

// ContainsRange returns true if every byte of [addr, addr+n) is covered.
// The check walks range by range rather than byte by byte.
func (t Table) ContainsRange(addr, n uint32) bool {
	if n == 0 {
		return true
	}
	last := addr + n - 1
	if last < addr {
		return false
	}
	for {
		r, ok := t.find(addr)
		if !ok {
			return false
		}
		if last <= uint32(r.End) {
			return true
		}
		addr = uint32(r.End) + 1
	}
}

func (t Table) find(addr uint32) (Range, bool) {
	for _, r := range t {
		if r.Contains(addr) {
			return r, true
		}
	}
	return Range{}, false
}

// Validate checks that every range is well formed.
func (t Table) Validate() error {
	var errs error
	for i, r := range t {
		if r.End < r.Start {
			errs = multierror.Append(errs, errors.Errorf("range %d %s: end is before start", i, r))
		}
	}
	return errs
}

func (t Table) String() string {
	parts := make([]string, len(t))
	for i, r := range t {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}

// Addr is an address that reads from YAML either as a number or as a
// 0x-prefixed string.
type Addr uint32

func (a *Addr) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return errors.Trace(err)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return errors.Annotatef(err, "invalid address %q", s)
	}
	*a = Addr(v)
	return nil
}

func (a Addr) MarshalYAML() (interface{}, error) {
	return fmt.Sprintf("0x%08x", uint32(a)), nil
}

// ParseRange parses "start-end" or "start+size", numbers in any base
// strconv accepts.
func ParseRange(s string) (Range, error) {
	name := ""
	if i := strings.IndexByte(s, '='); i >= 0 {
		name, s = s[:i], s[i+1:]
	}
	var r Range
	parse := func(v string) (uint32, error) {
		n, err := strconv.ParseUint(strings.TrimSpace(v), 0, 32)
		return uint32(n), errors.Annotatef(err, "invalid address %q", v)
	}
	if i := strings.IndexByte(s, '+'); i >= 0 {
		start, err := parse(s[:i])
		if err != nil {
			return r, err
		}
		size, err := parse(s[i+1:])
		if err != nil {
			return r, err
		}
		if size == 0 {
			return r, errors.Errorf("empty range %q", s)
		}
		return Range{Name: name, Start: Addr(start), End: Addr(start + size - 1)}, nil
	}
	if i := strings.IndexByte(s, '-'); i >= 0 {
		start, err := parse(s[:i])
		if err != nil {
			return r, err
		}
		end, err := parse(s[i+1:])
		if err != nil {
			return r, err
		}
		r = Range{Name: name, Start: Addr(start), End: Addr(end)}
		return r, errors.Trace(Table{r}.Validate())
	}
	return r, errors.Errorf("invalid range %q, want start-end or start+size", s)
}
