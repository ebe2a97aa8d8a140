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
package flags

import (
	"time"

	flag "github.com/spf13/pflag"
)

var (
	Port = flag.String("port", "", "Serial port to serve the debugger on. "+
		"If set to 'auto', ports on the system will be enumerated and the first will be used. "+
		"Either --port or --listen must be given.")
	Listen = flag.String("listen", "", "TCP address to accept a debugger connection on, "+
		"e.g. 127.0.0.1:2345")
	BaudRate             = flag.Int("baud-rate", 115200, "Serial port speed")
	HWFC                 = flag.Bool("hw-flow-control", false, "Enable hardware flow control (CTS/RTS)")
	SetControlLines      = flag.Bool("set-control-lines", true, "Set RTS and DTR explicitly when the port is opened")
	InvertedControlLines = flag.Bool("inverted-control-lines", false, "DTR and RTS control lines use inverted polarity")

	Config = flag.String("config", "", "Target description YAML file. "+
		"If omitted, an ESP8266 is simulated.")
	Load = flag.StringSlice("load", nil, "Image to load before starting, as addr:file. "+
		"Can be given more than once.")
	Banner      = flag.String("banner", "", "Text the target prints on the console after boot")
	BreakOnInit = flag.Bool("break-on-init", true, "Stop in the debugger before the first instruction")

	PollInterval = flag.Duration("poll-interval", time.Millisecond, "How long the stub waits for input per poll")
	LockDir      = flag.String("lock-dir", "", "Directory for port lock files, defaults to the system temp dir")
)
