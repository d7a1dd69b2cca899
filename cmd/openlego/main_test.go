/*
 * Copyright 2024 The OpenLEGO Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"os"
	"testing"

	"github.com/openlego/openlego/test/assert"
	"github.com/openlego/openlego/utils/fs"
	"github.com/openlego/openlego/utils/xmlutils"
)

const rectYaml = `
disciplines:
  - name: rect
    type: expr
    configuration:
      inputs:
        /rect/a: 2.0
        /rect/b: 3.0
      mapping:
        /rect/area: "inputs['/rect/a'] * inputs['/rect/b']"
`

func chTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	assert.Nil(t, err)
	assert.Nil(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(wd)
	})
	return dir
}

func TestRunTestMode(t *testing.T) {
	dir := chTempDir(t)
	assert.Nil(t, fs.SaveFile(dir+"/openlego.yaml", []byte(rectYaml)))
	configFile = dir + "/openlego.yaml"
	defer func() { configFile = "" }()

	cmd := newRunCmd()
	cmd.SetArgs([]string{"rect", "--test", "--merge"})
	assert.Nil(t, cmd.Execute())

	// a test run writes its own input file from the template
	assert.True(t, fs.IsFile("__test__rect_input.xml"))
	assert.True(t, fs.IsFile("rect-output.xml"))

	// with --merge the output file also carries the input document
	entries, err := xmlutils.FileToDict("rect-output.xml")
	assert.Nil(t, err)
	values := map[string]interface{}{}
	for _, entry := range entries {
		values[entry.XPath] = entry.Value
	}
	assert.Equal(t, 2.0, values["/rect/a"])
	assert.Equal(t, 3.0, values["/rect/b"])
	assert.Equal(t, 6.0, values["/rect/area"])
}
