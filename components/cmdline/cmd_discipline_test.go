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

package cmdline

import (
	"runtime"
	"testing"

	"github.com/openlego/openlego/api/types"
	"github.com/openlego/openlego/components/base"
	"github.com/openlego/openlego/core"
	"github.com/openlego/openlego/test"
	"github.com/openlego/openlego/test/assert"
	"github.com/openlego/openlego/utils/fs"
	"github.com/openlego/openlego/utils/xmlutils"
)

// deployTemplates writes the template files a deployed tool would provide.
func deployTemplates(t *testing.T, dir, name string) {
	t.Helper()
	inFile, outFile, _ := core.TemplateFileNames(dir, name)
	inputXML, err := base.BuildTemplate(map[string]interface{}{"/tool/x": 1.0})
	assert.Nil(t, err)
	assert.Nil(t, fs.SaveFile(inFile, inputXML))
	outputXML, err := base.BuildTemplate(map[string]interface{}{"/tool/y": 0.0})
	assert.Nil(t, err)
	assert.Nil(t, fs.SaveFile(outFile, outputXML))
}

func TestCmdInitErrors(t *testing.T) {
	err := (&CommandDiscipline{}).New().Init(types.NewConfig(), types.Configuration{})
	assert.NotNil(t, err)
}

func TestCmdNotAllowed(t *testing.T) {
	discipline := test.InitDiscipline(t, &CommandDiscipline{}, types.Configuration{
		"cmd": "rm",
	})
	err := discipline.Execute("in.xml", "out.xml")
	assert.Equal(t, ErrCmdNotAllowed, err)
}

func TestCmdTemplatesFromDeployedFiles(t *testing.T) {
	dir := t.TempDir()
	deployTemplates(t, dir, "tool")

	discipline := test.InitDiscipline(t, &CommandDiscipline{}, types.Configuration{
		"name":        "tool",
		"templateDir": dir,
		"cmd":         "tool",
	})

	inputXML, err := discipline.GenerateInputXML()
	assert.Nil(t, err)
	entries, err := xmlutils.BytesToDict(inputXML)
	assert.Nil(t, err)
	assert.Equal(t, "/tool/x", entries[0].XPath)

	// no partials file deployed, an empty declaration applies
	assert.False(t, discipline.SuppliesPartials())
	partialsXML, err := discipline.GeneratePartialsXML()
	assert.Nil(t, err)
	assert.NotNil(t, partialsXML)
}

func TestCmdTemplateMissing(t *testing.T) {
	discipline := test.InitDiscipline(t, &CommandDiscipline{}, types.Configuration{
		"name":        "tool",
		"templateDir": t.TempDir(),
		"cmd":         "tool",
	})
	_, err := discipline.GenerateInputXML()
	assert.NotNil(t, err)
}

func TestCmdExecute(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	dir := t.TempDir()
	deployTemplates(t, dir, "tool")

	properties := types.NewProperties()
	properties.PutValue(KeyCmdWhitelist, "sh")
	discipline := test.InitDiscipline(t, &CommandDiscipline{}, types.Configuration{
		"name":        "tool",
		"templateDir": dir,
		"cmd":         "sh",
		"args":        []string{"-c", "cp ${in_file} ${out_file}"},
		"timeoutMs":   10000,
	}, types.WithProperties(properties))

	inFile := dir + "/in.xml"
	outFile := dir + "/out.xml"
	inputXML, err := base.BuildTemplate(map[string]interface{}{"/tool/x": 4.0})
	assert.Nil(t, err)
	assert.Nil(t, fs.SaveFile(inFile, inputXML))

	assert.Nil(t, discipline.Execute(inFile, outFile))

	entries, err := xmlutils.FileToDict(outFile)
	assert.Nil(t, err)
	assert.Equal(t, 4.0, entries[0].Value)
}

func TestCmdExecuteFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	properties := types.NewProperties()
	properties.PutValue(KeyCmdWhitelist, "sh")
	discipline := test.InitDiscipline(t, &CommandDiscipline{}, types.Configuration{
		"cmd":  "sh",
		"args": []string{"-c", "echo boom >&2; exit 3"},
	}, types.WithProperties(properties))

	err := discipline.Execute("in.xml", "out.xml")
	assert.NotNil(t, err)
}

func TestCmdLinearizeWithoutArgs(t *testing.T) {
	properties := types.NewProperties()
	properties.PutValue(KeyCmdWhitelist, "tool")
	discipline := test.InitDiscipline(t, &CommandDiscipline{}, types.Configuration{
		"cmd": "tool",
	}, types.WithProperties(properties))

	// without linearize arguments an empty partials document is written
	partialsFile := t.TempDir() + "/partials.xml"
	assert.Nil(t, discipline.Linearize("in.xml", partialsFile))
	assert.True(t, fs.IsFile(partialsFile))
}
