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
// Package devutil finds the serial port to serve the debugger on.
package devutil

import (
	"sort"
	"strconv"
	"strings"

	"github.com/juju/errors"

	"github.com/mongoose-os/gdbstub/cli/ourutil"
)

// AutoPort as the port name picks the first suitable port on the system.
const AutoPort = "auto"

// ResolvePort returns port, or the port picked from the system ones if port
// is AutoPort.
func ResolvePort(port string) (string, error) {
	if port != AutoPort {
		return port, nil
	}
	p := PickPort(EnumerateSerialPorts())
	if p == "" {
		return "", errors.Errorf("--port is %q and no serial ports were found", AutoPort)
	}
	ourutil.Reportf("Using port %s", p)
	return p, nil
}

// PickPort returns the best guess among ports, or "" if there is none.
// COM1 and COM2 are commonly mapped to on-board serial ports and are
// skipped.
func PickPort(ports []string) string {
	var filtered []string
	for _, p := range ports {
		if p != "COM1" && p != "COM2" {
			filtered = append(filtered, p)
		}
	}
	if len(filtered) == 0 {
		return ""
	}
	sort.Stable(byCOMNumber(filtered))
	return filtered[0]
}

func getCOMNumber(port string) int {
	if !strings.HasPrefix(port, "COM") {
		return -1
	}
	cn, err := strconv.Atoi(port[3:])
	if err != nil {
		return -1
	}
	return cn
}

// byCOMNumber orders COMn ports numerically, ahead of the others, which
// keep their order.
type byCOMNumber []string

func (a byCOMNumber) Len() int      { return len(a) }
func (a byCOMNumber) Swap(i, j int) { a[i], a[j] = a[j], a[i] }
func (a byCOMNumber) Less(i, j int) bool {
	cni := getCOMNumber(a[i])
	cnj := getCOMNumber(a[j])
	switch {
	case cni < 0:
		return false
	case cnj < 0:
		return true
	}
	return cni < cnj
}
