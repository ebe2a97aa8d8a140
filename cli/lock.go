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
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/juju/errors"
	flock "github.com/theckman/go-flock"
)

// lockPort makes sure only one simulator serves a given port.
func lockPort(dir, port string) (*flock.Flock, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	fl := flock.NewFlock(filepath.Join(dir, fmt.Sprint("gdbstub-sim-", filepath.Base(port), ".lock")))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, errors.Annotatef(err, "failed to lock %s", fl.Path())
	}
	if !ok {
		return nil, errors.Errorf("%s is in use (locked by %s)", port, fl.Path())
	}
	return fl, nil
}
