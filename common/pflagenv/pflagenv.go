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
// Package pflagenv lets every command line flag also be given through the
// environment, e.g. --listen as GDBSTUB_LISTEN.
package pflagenv

import (
	"sort"
	"strings"

	"github.com/golang/glog"
	"github.com/juju/errors"
	"github.com/spf13/pflag"
)

// LookupFunc returns the value of an environment variable and whether it
// was present. os.LookupEnv satisfies it.
type LookupFunc func(name string) (string, bool)

// ParseFlagSet visits the flags of fs that were not given on the command
// line and, for each one with a non-empty <envPrefix><FLAG_NAME> variable,
// sets the flag from it. It must be called after fs.Parse.
//
// Names of the flags taken from the environment are returned in sorted
// order. A value the flag rejects stops processing with an error naming
// the variable.
func ParseFlagSet(fs *pflag.FlagSet, envPrefix string, lookup LookupFunc) ([]string, error) {
	// pflag cannot tell a flag explicitly set to its default from one that
	// was never set, so collect everything and strike out what Visit reports.
	nonset := make(map[string]*pflag.Flag)
	fs.VisitAll(func(f *pflag.Flag) {
		nonset[f.Name] = f
	})
	fs.Visit(func(f *pflag.Flag) {
		delete(nonset, f.Name)
	})

	names := make([]string, 0, len(nonset))
	for name := range nonset {
		names = append(names, name)
	}
	sort.Strings(names)

	var set []string
	for _, name := range names {
		envName := EnvName(name, envPrefix)
		v, ok := lookup(envName)
		if !ok || v == "" {
			continue
		}
		if err := fs.Set(name, v); err != nil {
			return set, errors.Annotatef(err, "%s", envName)
		}
		glog.V(1).Infof("--%s=%q from %s", name, v, envName)
		set = append(set, name)
	}
	return set, nil
}

// EnvName returns the environment variable consulted for flagName.
func EnvName(flagName, envPrefix string) string {
	return envPrefix + strings.Replace(strings.ToUpper(flagName), "-", "_", -1)
}
