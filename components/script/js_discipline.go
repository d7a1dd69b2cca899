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

package script

import (
	"errors"
	"fmt"

	"github.com/openlego/openlego/api/types"
	"github.com/openlego/openlego/components/base"
	"github.com/openlego/openlego/partials"
	"github.com/openlego/openlego/utils/maps"
	"github.com/openlego/openlego/utils/xmlutils"
)

const (
	executeFunctionName   = "execute"
	linearizeFunctionName = "linearize"
)

func init() {
	Registry.Add(&JsDiscipline{})
}

// JsDisciplineConfiguration discipline configuration
type JsDisciplineConfiguration struct {
	// Script must define `function execute(inputs)` returning an object of
	// output xpath -> value, and may define `function linearize(inputs)`
	// returning an object of output xpath -> {input xpath -> value}.
	// Both receive the input values keyed by xpath.
	Script string
	// Inputs input xpath -> default value
	Inputs map[string]interface{}
	// Outputs output xpath -> default value
	Outputs map[string]interface{}
	// Partials output xpath -> input xpaths the script's linearize supplies
	Partials map[string][]string
}

// JsDiscipline runs an analysis defined as a JavaScript function. The
// adapter still goes through XML files, so a scripted discipline behaves
// exactly like an external tool, only in-process.
//
//	"configuration": {
//		"script": "function execute(inputs) { return {'/perf/R': inputs['/perf/L'] * 2}; }",
//		"inputs":  {"/perf/L": 1.0},
//		"outputs": {"/perf/R": 0.0}
//	}
type JsDiscipline struct {
	// Config discipline configuration
	Config JsDisciplineConfiguration
	engine *jsEngine
}

// Type discipline type
func (x *JsDiscipline) Type() string {
	return "js"
}

func (x *JsDiscipline) New() types.Discipline {
	return &JsDiscipline{}
}

// Init compiles the script and validates it defines the execute function.
func (x *JsDiscipline) Init(config types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &x.Config); err != nil {
		return err
	}
	if x.Config.Script == "" {
		return errors.New("script can not empty")
	}
	if len(x.Config.Inputs) == 0 || len(x.Config.Outputs) == 0 {
		return errors.New("inputs and outputs can not empty")
	}
	engine, err := newJsEngine(config, x.Config.Script)
	if err != nil {
		return err
	}
	if !engine.HasFunction(executeFunctionName) {
		return fmt.Errorf("script does not define function %q", executeFunctionName)
	}
	if len(x.Config.Partials) > 0 && !engine.HasFunction(linearizeFunctionName) {
		return fmt.Errorf("partials declared but script does not define function %q", linearizeFunctionName)
	}
	x.engine = engine
	return nil
}

// GenerateInputXML builds the input template from the configured defaults.
func (x *JsDiscipline) GenerateInputXML() ([]byte, error) {
	return base.BuildTemplate(x.Config.Inputs)
}

// GenerateOutputXML builds the output template from the configured defaults.
func (x *JsDiscipline) GenerateOutputXML() ([]byte, error) {
	return base.BuildTemplate(x.Config.Outputs)
}

// GeneratePartialsXML declares the configured (of, wrt) pairs.
func (x *JsDiscipline) GeneratePartialsXML() ([]byte, error) {
	p := partials.New()
	for of, wrts := range x.Config.Partials {
		for _, wrt := range wrts {
			p.Declare(of, wrt, 0)
		}
	}
	return p.Bytes()
}

// SuppliesPartials reports whether the script supplies sensitivities.
func (x *JsDiscipline) SuppliesPartials() bool {
	return len(x.Config.Partials) > 0
}

// Execute reads the input XML, calls the script's execute function and
// writes the returned values as the output XML.
func (x *JsDiscipline) Execute(inFile, outFile string) error {
	inputs, err := x.readInputs(inFile)
	if err != nil {
		return err
	}
	result, err := x.engine.Execute(executeFunctionName, inputs)
	if err != nil {
		return err
	}
	returned, ok := result.(map[string]interface{})
	if !ok {
		return fmt.Errorf("script execute returned %T, want an object", result)
	}
	values := make(map[string]interface{}, len(x.Config.Outputs))
	for xpath, def := range x.Config.Outputs {
		values[xpath] = def
	}
	for xpath, value := range returned {
		values[xpath] = normalizeJsValue(value)
	}
	outputXML, err := base.BuildTemplate(values)
	if err != nil {
		return err
	}
	doc, err := xmlutils.LoadBytes(outputXML)
	if err != nil {
		return err
	}
	return xmlutils.WriteFile(doc, outFile)
}

// Linearize reads the input XML, calls the script's linearize function and
// writes the returned sensitivities as the partials XML.
func (x *JsDiscipline) Linearize(inFile, partialsFile string) error {
	inputs, err := x.readInputs(inFile)
	if err != nil {
		return err
	}
	result, err := x.engine.Execute(linearizeFunctionName, inputs)
	if err != nil {
		return err
	}
	returned, ok := result.(map[string]interface{})
	if !ok {
		return fmt.Errorf("script linearize returned %T, want an object", result)
	}
	p := partials.New()
	for of, wrts := range returned {
		wrtMap, ok := wrts.(map[string]interface{})
		if !ok {
			return fmt.Errorf("script linearize returned %T for %q, want an object", wrts, of)
		}
		for wrt, value := range wrtMap {
			f, ok := toFloat(value)
			if !ok {
				return fmt.Errorf("script linearize returned %T for (%s, %s), want a number", value, of, wrt)
			}
			p.Declare(of, wrt, f)
		}
	}
	return p.WriteFile(partialsFile)
}

// Destroy releases the script engine.
func (x *JsDiscipline) Destroy() {
	x.engine = nil
}

func (x *JsDiscipline) readInputs(inFile string) (map[string]interface{}, error) {
	entries, err := xmlutils.FileToDict(inFile)
	if err != nil {
		return nil, err
	}
	inputs := make(map[string]interface{}, len(entries))
	for _, entry := range entries {
		inputs[entry.XPath] = entry.Value
	}
	return inputs, nil
}

// normalizeJsValue maps goja exports onto the XML value model: integral
// numbers come back as int64, arrays as []interface{}.
func normalizeJsValue(value interface{}) interface{} {
	if f, ok := toFloat(value); ok {
		return f
	}
	if items, ok := value.([]interface{}); ok {
		vector := make([]float64, 0, len(items))
		for _, item := range items {
			f, ok := toFloat(item)
			if !ok {
				return value
			}
			vector = append(vector, f)
		}
		return vector
	}
	return value
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
