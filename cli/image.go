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
	"io/ioutil"
	"regexp"
	"strconv"

	"github.com/juju/errors"

	"github.com/mongoose-os/gdbstub/cli/ourutil"
	"github.com/mongoose-os/gdbstub/sim"
)

type image struct {
	addr uint32
	path string
	data []byte
}

var regexpImage = regexp.MustCompile(`^(?P<addr>[^:]+):(?P<file>.+)$`)

// parseImages reads the --load images, given as addr:file.
func parseImages(specs []string) ([]image, error) {
	var images []image
	for _, spec := range specs {
		m := ourutil.FindNamedSubmatches(regexpImage, spec)
		if m == nil {
			return nil, errors.Errorf("invalid image %q, want addr:file", spec)
		}
		addr, err := strconv.ParseUint(m["addr"], 0, 32)
		if err != nil {
			return nil, errors.Annotatef(err, "invalid image address %q", m["addr"])
		}
		data, err := ioutil.ReadFile(m["file"])
		if err != nil {
			return nil, errors.Trace(err)
		}
		images = append(images, image{addr: uint32(addr), path: m["file"], data: data})
	}
	return images, nil
}

func loadImages(m *sim.Machine, images []image) error {
	for _, img := range images {
		if err := m.LoadImage(img.addr, img.data); err != nil {
			return errors.Annotatef(err, "%s", img.path)
		}
	}
	return nil
}
