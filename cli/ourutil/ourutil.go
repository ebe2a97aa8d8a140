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
// Package ourutil has the user-facing reporting helpers of gdbstub-sim.
// Everything reported is also logged.
package ourutil

import (
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/fatih/color"
	"github.com/golang/glog"
)

var (
	errorColor  = color.New(color.FgRed)
	statusColor = color.New(color.FgGreen)
)

func Reportf(f string, args ...interface{}) {
	Freportf(os.Stderr, f, args...)
}

func Freportf(w io.Writer, f string, args ...interface{}) {
	fmt.Fprintf(w, f+"\n", args...)
	glog.Infof(f, args...)
}

// Statusf reports a change of the debug session, highlighted when the
// output is a terminal.
func Statusf(w io.Writer, f string, args ...interface{}) {
	statusColor.Fprintf(w, f+"\n", args...)
	glog.Infof(f, args...)
}

func Errorf(w io.Writer, f string, args ...interface{}) {
	errorColor.Fprintf(w, f+"\n", args...)
	glog.Errorf(f, args...)
}

// FindNamedSubmatches returns a map from capture group name to the matched
// string, or nil if s does not match.
func FindNamedSubmatches(r *regexp.Regexp, s string) map[string]string {
	matches := r.FindStringSubmatch(s)
	if matches == nil {
		return nil
	}
	result := make(map[string]string)
	for i, name := range r.SubexpNames()[1:] {
		result[name] = matches[i+1]
	}
	return result
}
