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
// gdbstub-sim runs the debug stub on a simulated LX106 target and serves it
// over a serial port or TCP, so that xtensa-lx106-elf-gdb can attach to it.
package main

import (
	"context"
	goflag "flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
	"github.com/juju/errors"
	flag "github.com/spf13/pflag"

	"github.com/mongoose-os/gdbstub/cli/ourutil"
	"github.com/mongoose-os/gdbstub/common/pflagenv"
	"github.com/mongoose-os/gdbstub/version"
)

const (
	envPrefix = "GDBSTUB_"
)

var (
	versionFlag = flag.Bool("version", false, "Print version and exit")
	helpFull    = flag.Bool("helpfull", false, "Show full help, including logging flags")

	hiddenFlags = []string{
		"alsologtostderr",
		"log_backtrace_at",
		"log_dir",
		"logtostderr",
		"stderrthreshold",
		"v",
		"vmodule",
	}
)

func initFlags() {
	flag.CommandLine.AddGoFlagSet(goflag.CommandLine)
	for _, f := range hiddenFlags {
		flag.CommandLine.MarkHidden(f)
	}
	flag.Usage = usage
}

func unhideFlags() {
	for _, name := range hiddenFlags {
		if f := flag.Lookup(name); f != nil {
			f.Hidden = false
		}
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "%s\n\n", version.String())
	fmt.Fprintf(os.Stderr, "Usage: %s (--port <device> | --listen <addr>) [flags]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Every flag can also be set as %s<FLAG_NAME>.\n\nFlags:\n", envPrefix)
	flag.PrintDefaults()
}

func main() {
	initFlags()
	flag.Parse()
	// glog reads its settings from the standard flag set.
	goflag.CommandLine.Parse(nil)
	if _, err := pflagenv.ParseFlagSet(flag.CommandLine, envPrefix, os.LookupEnv); err != nil {
		ourutil.Errorf(os.Stderr, "Error: %s", err)
		os.Exit(1)
	}

	if *helpFull {
		unhideFlags()
		usage()
		return
	} else if *versionFlag {
		fmt.Println(version.String())
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		s := <-sigs
		glog.Infof("got %s, exiting", s)
		cancel()
	}()

	err := run(ctx)
	glog.Flush()
	if err != nil && errors.Cause(err) != context.Canceled {
		glog.Infof("Error: %s", errors.ErrorStack(err))
		ourutil.Errorf(os.Stderr, "Error: %s", err)
		os.Exit(1)
	}
}
