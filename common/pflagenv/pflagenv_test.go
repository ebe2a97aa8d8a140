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
package pflagenv

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnv(env map[string]string) LookupFunc {
	return func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}
}

func TestParseFlagSet(t *testing.T) {
	fs := pflag.NewFlagSet("pflagenv-test", pflag.ContinueOnError)

	var port, listen, config, load string
	var baud int
	fs.StringVar(&port, "port", "/dev/ttyUSB0", "")
	fs.StringVar(&listen, "listen", "", "")
	fs.StringVar(&config, "config", "def", "")
	fs.StringVar(&load, "load", "none", "")
	fs.IntVar(&baud, "baud-rate", 115200, "")
	require.NoError(t, fs.Parse([]string{"--port=/dev/ttyS1", "--config="}))

	set, err := ParseFlagSet(fs, "GDBSTUB_", testEnv(map[string]string{
		"GDBSTUB_PORT":      "/dev/ttyS9",
		"GDBSTUB_CONFIG":    "env.yaml",
		"GDBSTUB_LISTEN":    ":2345",
		"GDBSTUB_BAUD_RATE": "921600",
		"GDBSTUB_LOAD":      "",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"baud-rate", "listen"}, set)

	assert.Equal(t, "/dev/ttyS1", port)
	assert.Equal(t, "", config)
	assert.Equal(t, ":2345", listen)
	assert.Equal(t, 921600, baud)
	assert.Equal(t, "none", load)
	assert.True(t, fs.Changed("listen"))
}

func TestParseFlagSetBadValue(t *testing.T) {
	fs := pflag.NewFlagSet("pflagenv-test", pflag.ContinueOnError)
	fs.Int("baud-rate", 115200, "")
	require.NoError(t, fs.Parse(nil))

	_, err := ParseFlagSet(fs, "GDBSTUB_", testEnv(map[string]string{
		"GDBSTUB_BAUD_RATE": "fast",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GDBSTUB_BAUD_RATE")
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "GDBSTUB_HW_FLOW_CONTROL", EnvName("hw-flow-control", "GDBSTUB_"))
}
