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

// Package core implements the adapter component between a discipline and an
// MDO host framework. A Component ingests the discipline's template XML
// files, declares host variables for every template leaf, and wraps each
// computation as: write input XML, run the opaque execute function, read
// output XML back, delete the temporaries.
package core

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/openlego/openlego/api/types"
	"github.com/openlego/openlego/partials"
	"github.com/openlego/openlego/utils/xmlutils"
)

var ErrNoDiscipline = errors.New("component has no discipline")

// PartialKey identifies one (of, wrt) sensitivity in parameter space.
type PartialKey struct {
	Of  string
	Wrt string
}

// Component exposes a discipline to a host framework through flat variables.
// Variable names are the template XML element paths converted with
// xmlutils.XPathToParam. The zero value is not usable; use NewComponent.
//
// DataFolder, KeepFiles and BaseFile are initialized from the Config and may
// be adjusted before the first Compute:
//   - DataFolder: where temporary in/out/partials XML files are created.
//   - KeepFiles: keep the temporary files instead of best-effort deletion.
//   - BaseFile: path of an XML file kept up to date with the latest data;
//     when set, inputs are merged into it, the discipline executes against
//     it, and outputs are merged back.
type Component struct {
	DataFolder string
	KeepFiles  bool
	BaseFile   string

	config     types.Config
	discipline types.Discipline

	inputsFromXML  []types.VariableDecl
	outputsFromXML []types.VariableDecl
	inputIndex     map[string]int
	outputIndex    map[string]int
	declared       *partials.Partials
}

// NewComponent builds a component around an initialized discipline, reading
// all three of its template documents.
func NewComponent(config types.Config, discipline types.Discipline) (*Component, error) {
	if discipline == nil {
		return nil, ErrNoDiscipline
	}
	c := &Component{
		DataFolder: config.DataFolder,
		KeepFiles:  config.KeepFiles,
		BaseFile:   config.BaseFile,
		config:     config,
		discipline: discipline,
		inputIndex: map[string]int{},
		outputIndex: map[string]int{},
		declared:   partials.New(),
	}
	inputXML, err := discipline.GenerateInputXML()
	if err != nil {
		return nil, fmt.Errorf("input template of %s: %w", discipline.Type(), err)
	}
	if err = c.SetInputsFromXML(inputXML); err != nil {
		return nil, err
	}
	outputXML, err := discipline.GenerateOutputXML()
	if err != nil {
		return nil, fmt.Errorf("output template of %s: %w", discipline.Type(), err)
	}
	if err = c.SetOutputsFromXML(outputXML); err != nil {
		return nil, err
	}
	if discipline.SuppliesPartials() {
		partialsXML, err := discipline.GeneratePartialsXML()
		if err != nil {
			return nil, fmt.Errorf("partials template of %s: %w", discipline.Type(), err)
		}
		if err = c.DeclarePartialsFromXML(partialsXML); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Discipline returns the wrapped discipline.
func (c *Component) Discipline() types.Discipline {
	return c.discipline
}

// SetInputsFromXML replaces the component inputs with the leaves of the
// given input template document.
func (c *Component) SetInputsFromXML(inputXML []byte) error {
	entries, err := xmlutils.BytesToDict(inputXML)
	if err != nil {
		return err
	}
	c.inputsFromXML = c.inputsFromXML[:0]
	c.inputIndex = map[string]int{}
	for _, entry := range entries {
		name := xmlutils.XPathToParam(entry.XPath)
		c.inputIndex[name] = len(c.inputsFromXML)
		c.inputsFromXML = append(c.inputsFromXML, types.VariableDecl{
			Name:     name,
			XPath:    entry.XPath,
			Value:    entry.Value,
			Discrete: xmlutils.IsDiscrete(entry.Value),
		})
	}
	return nil
}

// SetOutputsFromXML replaces the component outputs with the leaves of the
// given output template document. The template value doubles as the
// reference value for output scaling; a zero reference becomes 1.
func (c *Component) SetOutputsFromXML(outputXML []byte) error {
	entries, err := xmlutils.BytesToDict(outputXML)
	if err != nil {
		return err
	}
	c.outputsFromXML = c.outputsFromXML[:0]
	c.outputIndex = map[string]int{}
	for _, entry := range entries {
		name := xmlutils.XPathToParam(entry.XPath)
		decl := types.VariableDecl{
			Name:     name,
			XPath:    entry.XPath,
			Value:    entry.Value,
			Discrete: xmlutils.IsDiscrete(entry.Value),
		}
		if !decl.Discrete {
			decl.Ref = referenceValue(entry.Value)
		}
		c.outputIndex[name] = len(c.outputsFromXML)
		c.outputsFromXML = append(c.outputsFromXML, decl)
	}
	return nil
}

// DeclarePartialsFromXML replaces the declared sensitivity pairs with those
// of the given partials template document.
func (c *Component) DeclarePartialsFromXML(partialsXML []byte) error {
	p, err := partials.Parse(partialsXML)
	if err != nil {
		return err
	}
	c.declared = p
	return nil
}

// InputsFromXML returns the input declarations in template order.
func (c *Component) InputsFromXML() []types.VariableDecl {
	return c.inputsFromXML
}

// OutputsFromXML returns the output declarations in template order.
func (c *Component) OutputsFromXML() []types.VariableDecl {
	return c.outputsFromXML
}

// Setup returns everything a host framework needs to declare this component:
// input and output variables and the partials declarations. Without declared
// pairs a single ("*", "*", fd) declaration instructs the host to finite
// difference.
func (c *Component) Setup() (inputs, outputs []types.VariableDecl, decls []types.PartialDecl) {
	inputs = c.inputsFromXML
	outputs = c.outputsFromXML
	if c.declared.IsEmpty() {
		decls = []types.PartialDecl{{Of: "*", Wrt: "*", Method: types.MethodFD}}
		return inputs, outputs, decls
	}
	for _, pair := range c.declared.Pairs() {
		decls = append(decls, types.PartialDecl{
			Of:     xmlutils.XPathToParam(pair.Of),
			Wrt:    xmlutils.XPathToParam(pair.Wrt),
			Method: types.MethodExact,
		})
	}
	return inputs, outputs, decls
}

// GenerateFileNames returns fresh temporary input, output and partials XML
// file paths inside DataFolder.
func (c *Component) GenerateFileNames() (inFile, outFile, partialsFile string) {
	salt := uuid.Must(uuid.NewV4()).String()
	name := c.discipline.Type()
	inFile = filepath.Join(c.DataFolder, fmt.Sprintf("%s_in_%s.xml", name, salt))
	outFile = filepath.Join(c.DataFolder, fmt.Sprintf("%s_out_%s.xml", name, salt))
	partialsFile = filepath.Join(c.DataFolder, fmt.Sprintf("%s_partials_%s.xml", name, salt))
	return inFile, outFile, partialsFile
}

// WriteInputFile writes the current input values to an input XML file. Params
// absent from the values map keep the template value.
func (c *Component) WriteInputFile(file string, inputs map[string]interface{}) error {
	if len(c.inputsFromXML) == 0 {
		return errors.New("component has no XML inputs")
	}
	rootTag := firstSegment(c.inputsFromXML[0].XPath)
	doc := xmlutils.NewDocument(rootTag)
	for _, decl := range c.inputsFromXML {
		value, ok := inputs[decl.Name]
		if !ok {
			value = decl.Value
		}
		if err := xmlutils.SafeCreateElement(doc, decl.XPath, value); err != nil {
			return err
		}
	}
	return xmlutils.WriteFile(doc, file)
}

// ReadOutputsFile reads the outputs from a given XML file into the outputs
// map. Params the component never declared are ignored.
func (c *Component) ReadOutputsFile(file string, outputs map[string]interface{}) error {
	entries, err := xmlutils.FileToDict(file)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		name := xmlutils.XPathToParam(entry.XPath)
		if _, ok := c.outputIndex[name]; ok {
			outputs[name] = entry.Value
		}
	}
	return nil
}

// ReadPartialsFile reads the sensitivities from a given XML file into the
// partials map. Only pairs declared by the partials template are exposed.
func (c *Component) ReadPartialsFile(file string, out map[PartialKey]float64) error {
	p, err := partials.ReadFile(file)
	if err != nil {
		return err
	}
	for of, wrts := range p.Get() {
		for wrt, value := range wrts {
			if _, ok := c.declared.Value(of, wrt); !ok {
				continue
			}
			key := PartialKey{Of: xmlutils.XPathToParam(of), Wrt: xmlutils.XPathToParam(wrt)}
			out[key] = value
		}
	}
	return nil
}

// Compute writes the input XML file, calls the discipline's Execute, and
// reads the output XML file to obtain the results. Temporary files are
// deleted best-effort unless KeepFiles is set.
func (c *Component) Compute(inputs map[string]interface{}, outputs map[string]interface{}) error {
	inFile, outFile, _ := c.GenerateFileNames()

	if len(c.inputsFromXML) > 0 {
		if err := c.WriteInputFile(inFile, inputs); err != nil {
			return err
		}
		if c.BaseFile != "" {
			if err := xmlutils.Merge(c.BaseFile, inFile); err != nil {
				return err
			}
		}
	}

	execFile := inFile
	if c.BaseFile != "" {
		execFile = c.BaseFile
	}
	started := time.Now()
	err := c.discipline.Execute(execFile, outFile)
	c.record("execute", started, execFile, outFile, err)

	if !c.KeepFiles {
		_ = os.Remove(inFile)
	}
	if err != nil {
		return err
	}
	if c.BaseFile != "" {
		if err = xmlutils.Merge(c.BaseFile, outFile); err != nil {
			return err
		}
	}

	if len(c.outputsFromXML) > 0 {
		if err = c.ReadOutputsFile(outFile, outputs); err != nil {
			return err
		}
		if !c.KeepFiles {
			_ = os.Remove(outFile)
		}
	}
	return nil
}

// ComputePartials writes the input XML file, calls the discipline's
// Linearize, and reads the sensitivities from the resulting XML file. It is
// a no-op for disciplines without declared partials.
func (c *Component) ComputePartials(inputs map[string]interface{}, out map[PartialKey]float64) error {
	if c.declared.IsEmpty() {
		return nil
	}
	inFile, _, partialsFile := c.GenerateFileNames()
	if err := c.WriteInputFile(inFile, inputs); err != nil {
		return err
	}

	started := time.Now()
	err := c.discipline.Linearize(inFile, partialsFile)
	c.record("linearize", started, inFile, partialsFile, err)

	if !c.KeepFiles {
		_ = os.Remove(inFile)
	}
	if err != nil {
		return err
	}
	if err = c.ReadPartialsFile(partialsFile, out); err != nil {
		return err
	}
	if !c.KeepFiles {
		_ = os.Remove(partialsFile)
	}
	return nil
}

func (c *Component) record(kind string, started time.Time, inFile, outFile string, execErr error) {
	if c.config.Recorder == nil {
		return
	}
	record := types.ExecutionRecord{
		DisciplineType: c.discipline.Type(),
		Kind:           kind,
		StartedAt:      started,
		Duration:       time.Since(started),
	}
	record.InputXML, _ = os.ReadFile(inFile)
	if execErr != nil {
		record.Error = execErr.Error()
	} else {
		record.OutputXML, _ = os.ReadFile(outFile)
	}
	if err := c.config.Recorder.Record(record); err != nil {
		c.config.Logger.Printf("openlego: record %s of %s: %v", kind, record.DisciplineType, err)
	}
}

func referenceValue(value interface{}) float64 {
	var ref float64
	switch v := value.(type) {
	case float64:
		ref = v
	case []float64:
		if len(v) > 0 {
			var sum float64
			for _, f := range v {
				sum += f
			}
			ref = sum / float64(len(v))
		}
	}
	if ref == 0 || math.IsNaN(ref) {
		ref = 1
	}
	return ref
}

func firstSegment(xpath string) string {
	trimmed := xpath
	if len(trimmed) > 0 && trimmed[0] == '/' {
		trimmed = trimmed[1:]
	}
	for i := 0; i < len(trimmed); i++ {
		if trimmed[i] == '/' || trimmed[i] == '[' {
			return trimmed[:i]
		}
	}
	return trimmed
}
