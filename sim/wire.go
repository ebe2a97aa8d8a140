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
package sim

import (
	"bytes"
	"io"
)

// Wire is a Port that replays scripted input and records output. It is
// meant for tests: all calls come from one goroutine.
type Wire struct {
	Out bytes.Buffer
	// OnIdle, if set, is called whenever input is polled and there is none.
	OnIdle func()

	in []byte
}

func NewWire(input ...string) *Wire {
	w := &Wire{}
	w.Feed(input...)
	return w
}

// Feed queues more input.
func (w *Wire) Feed(input ...string) {
	for _, s := range input {
		w.in = append(w.in, s...)
	}
}

func (w *Wire) WriteByte(c byte) error {
	return w.Out.WriteByte(c)
}

func (w *Wire) RxAvailable() bool {
	if len(w.in) > 0 {
		return true
	}
	if w.OnIdle != nil {
		w.OnIdle()
	}
	return false
}

func (w *Wire) Pending() bool {
	return len(w.in) > 0
}

func (w *Wire) ReadByte() (byte, error) {
	if len(w.in) == 0 {
		return 0, io.EOF
	}
	c := w.in[0]
	w.in = w.in[1:]
	return c, nil
}

func (w *Wire) Flush() error {
	return nil
}

// Unread returns the input not consumed yet.
func (w *Wire) Unread() string {
	return string(w.in)
}

// Take returns and clears what was written.
func (w *Wire) Take() string {
	s := w.Out.String()
	w.Out.Reset()
	return s
}
