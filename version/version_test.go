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
package version

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion(t *testing.T) {
	defer func(v, id, ts string) { Version, BuildId, BuildTimestamp = v, id, ts }(Version, BuildId, BuildTimestamp)

	Version, BuildId = "20200601-120000", ""
	assert.Equal(t, LatestVersionName, GetVersion())
	assert.NotContains(t, String(), "commit")

	Version, BuildId, BuildTimestamp = "1.2.3", "1.2.3+0a1b2c3~brew", "2020-06-01T12:00:00Z"
	assert.Equal(t, "1.2.3", GetVersion())
	assert.Contains(t, String(), "gdbstub-sim 1.2.3 (")
	assert.Contains(t, String(), "commit 0a1b2c3")
	assert.Equal(t, map[string]string{"version": "1.2.3", "hash": "0a1b2c3", "distr": "brew"},
		GetBuildIDParts(BuildId))
	assert.Nil(t, GetBuildIDParts("1.2.3"))

	data, err := InfoJSON()
	require.NoError(t, err)
	var v VersionJson
	require.NoError(t, json.Unmarshal(data, &v))
	assert.Equal(t, Info(), v)
	assert.Equal(t, 2020, v.BuildTimestamp.Year())
}
