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

package expression

import (
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/openlego/openlego/api/types"
	"github.com/openlego/openlego/components/base"
	"github.com/openlego/openlego/utils/maps"
	"github.com/openlego/openlego/utils/xmlutils"
)

func init() {
	Registry.Add(&ExprDiscipline{})
}

// ExprDisciplineConfiguration discipline configuration
type ExprDisciplineConfiguration struct {
	// Inputs input xpath -> default value
	Inputs map[string]interface{}
	// Mapping output xpath -> expression. Expressions read the input values
	// through the `inputs` environment variable, e.g.
	// `inputs["/perf/L"] * inputs["/perf/D"]`.
	Mapping map[string]string
}

// ExprDiscipline computes each output from an expr-lang expression over the
// inputs. Expression disciplines never supply sensitivities; the host falls
// back to finite differencing.
//
//	"configuration": {
//		"inputs": {"/rect/a": 2.0, "/rect/b": 3.0},
//		"mapping": {"/rect/area": "inputs['/rect/a'] * inputs['/rect/b']"}
//	}
type ExprDiscipline struct {
	base.BlackBox
	// Config discipline configuration
	Config         ExprDisciplineConfiguration
	programMapping map[string]*vm.Program
}

// Type discipline type
func (x *ExprDiscipline) Type() string {
	return "expr"
}

func (x *ExprDiscipline) New() types.Discipline {
	return &ExprDiscipline{}
}

// Init compiles the output expressions.
func (x *ExprDiscipline) Init(_ types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &x.Config); err != nil {
		return err
	}
	if len(x.Config.Inputs) == 0 || len(x.Config.Mapping) == 0 {
		return errors.New("inputs and mapping can not empty")
	}
	x.programMapping = make(map[string]*vm.Program)
	for xpath, expression := range x.Config.Mapping {
		program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
		if err != nil {
			return fmt.Errorf("expression for %q: %w", xpath, err)
		}
		x.programMapping[xpath] = program
	}
	return nil
}

// GenerateInputXML builds the input template from the configured defaults.
func (x *ExprDiscipline) GenerateInputXML() ([]byte, error) {
	return base.BuildTemplate(x.Config.Inputs)
}

// GenerateOutputXML builds the output template with zero defaults for every
// mapped output.
func (x *ExprDiscipline) GenerateOutputXML() ([]byte, error) {
	values := make(map[string]interface{}, len(x.Config.Mapping))
	for xpath := range x.Config.Mapping {
		values[xpath] = 0.0
	}
	return base.BuildTemplate(values)
}

// Execute evaluates every output expression against the input XML values and
// writes the output XML.
func (x *ExprDiscipline) Execute(inFile, outFile string) error {
	entries, err := xmlutils.FileToDict(inFile)
	if err != nil {
		return err
	}
	inputs := make(map[string]interface{}, len(entries))
	for _, entry := range entries {
		inputs[entry.XPath] = entry.Value
	}
	evn := map[string]interface{}{"inputs": inputs}

	values := make(map[string]interface{}, len(x.programMapping))
	for xpath, program := range x.programMapping {
		result, err := expr.Run(program, evn)
		if err != nil {
			return fmt.Errorf("expression for %q: %w", xpath, err)
		}
		values[xpath] = result
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
