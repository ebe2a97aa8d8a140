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
package multierror

import (
	"bytes"
	"fmt"
)

// Error collects the problems found while validating a configuration, so
// that all of them can be reported at once.
type Error struct {
	errs []error
}

func (e *Error) Error() string {
	buf := bytes.NewBuffer(nil)

	fmt.Fprintf(buf, "%d error(s) occurred:", len(e.errs))
	for _, err := range e.errs {
		fmt.Fprintf(buf, "\n%s", err)
	}
	return buf.String()
}

// Errors returns the collected errors in the order they were appended.
func (e *Error) Errors() []error {
	return e.errs
}

// Append adds errs to err. Nil errors are skipped; if nothing remains the
// result is err unchanged, which may be nil. err can also be a plain error,
// in which case it becomes the first entry.
func Append(err error, errs ...error) error {
	var add []error
	for _, e := range errs {
		if e != nil {
			add = append(add, e)
		}
	}
	if len(add) == 0 {
		return err
	}
	switch err := err.(type) {
	case nil:
		return &Error{add}
	case *Error:
		err.errs = append(err.errs, add...)
		return err
	default:
		return &Error{append([]error{err}, add...)}
	}
}
