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

package core

import (
	"testing"

	"github.com/openlego/openlego/partials"
	"github.com/openlego/openlego/test/assert"
	"github.com/openlego/openlego/utils/fs"
	"github.com/openlego/openlego/utils/xmlutils"
)

func TestTemplateFileNames(t *testing.T) {
	inFile, outFile, partialsFile := TemplateFileNames("/tmp/templates", "aero")
	assert.Equal(t, "/tmp/templates/aero-input.xml", inFile)
	assert.Equal(t, "/tmp/templates/aero-output.xml", outFile)
	assert.Equal(t, "/tmp/templates/aero-partials.xml", partialsFile)
}

func TestDeploy(t *testing.T) {
	dir := t.TempDir()
	assert.Nil(t, Deploy(&fakeDiscipline{withPartials: true}, dir, "aero"))

	// files carry the instance name, matching what a template load expects
	inFile, outFile, partialsFile := TemplateFileNames(dir, "aero")
	assert.True(t, fs.IsFile(inFile))
	assert.True(t, fs.IsFile(outFile))
	assert.True(t, fs.IsFile(partialsFile))

	entries, err := xmlutils.FileToDict(inFile)
	assert.Nil(t, err)
	assert.Equal(t, 3, len(entries))

	p, err := partials.ReadFile(partialsFile)
	assert.Nil(t, err)
	_, ok := p.Value("/perf/R", "/perf/L")
	assert.True(t, ok)
}

func TestDeployWithoutName(t *testing.T) {
	dir := t.TempDir()
	assert.Nil(t, Deploy(&fakeDiscipline{}, dir, ""))

	inFile, _, _ := TemplateFileNames(dir, "fake")
	assert.True(t, fs.IsFile(inFile))
}
