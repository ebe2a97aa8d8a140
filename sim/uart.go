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
	"bufio"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/juju/errors"
)

const (
	// rxFIFOSize matches the ESP8266 UART receive FIFO.
	rxFIFOSize = 128

	DefaultPollInterval = time.Millisecond
)

// UART is a Port over a host connection. A reader goroutine feeds a bounded
// FIFO; transmitted bytes are buffered until the stub waits for input.
type UART struct {
	// PollInterval is how long RxAvailable waits for a byte.
	PollInterval time.Duration

	w    *bufio.Writer
	rx   chan byte
	head byte
	have bool

	mu  sync.Mutex
	err error
}

func NewUART(rw io.ReadWriter) *UART {
	u := &UART{
		PollInterval: DefaultPollInterval,
		w:            bufio.NewWriter(rw),
		rx:           make(chan byte, rxFIFOSize),
	}
	go u.readLoop(rw)
	return u
}

func (u *UART) readLoop(r io.Reader) {
	buf := make([]byte, rxFIFOSize)
	for {
		n, err := r.Read(buf)
		for _, c := range buf[:n] {
			u.rx <- c
		}
		if err != nil {
			if errors.Cause(err) != io.EOF {
				glog.Errorf("uart read: %s", err)
			}
			u.mu.Lock()
			u.err = err
			u.mu.Unlock()
			close(u.rx)
			return
		}
	}
}

func (u *UART) readErr() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.err
}

func (u *UART) WriteByte(c byte) error {
	return errors.Trace(u.w.WriteByte(c))
}

func (u *UART) Flush() error {
	if u.w.Buffered() == 0 {
		return nil
	}
	return errors.Trace(u.w.Flush())
}

// take moves the next FIFO byte to head. A closed FIFO counts as
// available so that ReadByte gets to report the error.
func (u *UART) take(c byte, ok bool) bool {
	if ok {
		u.head, u.have = c, true
	}
	return true
}

func (u *UART) Pending() bool {
	if u.have {
		return true
	}
	if err := u.Flush(); err != nil {
		glog.Errorf("uart write: %s", err)
	}
	select {
	case c, ok := <-u.rx:
		return u.take(c, ok)
	default:
		return false
	}
}

// RxAvailable waits up to PollInterval for a byte.
func (u *UART) RxAvailable() bool {
	if u.Pending() {
		return true
	}
	t := time.NewTimer(u.PollInterval)
	defer t.Stop()
	select {
	case c, ok := <-u.rx:
		return u.take(c, ok)
	case <-t.C:
		return false
	}
}

func (u *UART) ReadByte() (byte, error) {
	if u.have {
		u.have = false
		return u.head, nil
	}
	if err := u.Flush(); err != nil {
		return 0, errors.Trace(err)
	}
	c, ok := <-u.rx
	if !ok {
		return 0, errors.Trace(u.readErr())
	}
	return c, nil
}
