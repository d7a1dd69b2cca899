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
	"path/filepath"

	"github.com/openlego/openlego/api/types"
	"github.com/openlego/openlego/utils/fs"
)

// TemplateFileNames returns the conventional template file paths of a
// discipline inside dir: <name>-input.xml, <name>-output.xml and
// <name>-partials.xml.
func TemplateFileNames(dir, name string) (inFile, outFile, partialsFile string) {
	inFile = filepath.Join(dir, name+types.InputFileSuffix)
	outFile = filepath.Join(dir, name+types.OutputFileSuffix)
	partialsFile = filepath.Join(dir, name+types.PartialsFileSuffix)
	return inFile, outFile, partialsFile
}

// Deploy writes the discipline's template input, output and partials XML
// files to dir under the conventional names. The instance name keys the
// file names so a later load finds them; empty falls back to the
// discipline type.
func Deploy(discipline types.Discipline, dir, name string) error {
	if name == "" {
		name = discipline.Type()
	}
	inFile, outFile, partialsFile := TemplateFileNames(dir, name)

	inputXML, err := discipline.GenerateInputXML()
	if err != nil {
		return err
	}
	if err = fs.SaveFile(inFile, inputXML); err != nil {
		return err
	}
	outputXML, err := discipline.GenerateOutputXML()
	if err != nil {
		return err
	}
	if err = fs.SaveFile(outFile, outputXML); err != nil {
		return err
	}
	partialsXML, err := discipline.GeneratePartialsXML()
	if err != nil {
		return err
	}
	return fs.SaveFile(partialsFile, partialsXML)
}
