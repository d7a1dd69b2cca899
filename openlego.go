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

// Package openlego adapts engineering analysis tools (disciplines) to
// XML-file based optimization frameworks.
//
// A discipline describes the variables it consumes and produces through three
// XML template files and exposes a single file-to-file Execute operation. The
// component layer turns those templates into flat parameter declarations,
// writes parameter values into an input XML file, invokes the tool, and reads
// the resulting output XML file back into parameters. Partial derivatives are
// exchanged the same way when the discipline supplies them.
//
// # Usage
//
// Configure a discipline and wrap it in a component:
//
//	component, err := openlego.NewComponent("cmd", types.Configuration{
//		"name":        "aero",
//		"templateDir": "./templates",
//		"cmd":         "/opt/tools/aero",
//	})
//
// List its parameters:
//
//	inputs, outputs, partials := component.Setup()
//
// Run it:
//
//	outputs := map[string]interface{}{}
//	err = component.Compute(map[string]interface{}{
//		"aircraft:wing:span": 31.5,
//	}, outputs)
//
// Deploy a discipline's template files to a folder:
//
//	err := openlego.Deploy(discipline, "./templates", "aero")
//
// Custom discipline implementations register themselves with the default
// Registry, either at build time through package init or at runtime through
// a Go plugin exporting the Disciplines symbol.
package openlego

import (
	"sync"

	"github.com/openlego/openlego/api/types"
	"github.com/openlego/openlego/core"
)

// DefaultOpenLego default component pool
var DefaultOpenLego = &OpenLego{}

// OpenLego a pool of named, ready-to-run discipline components
type OpenLego struct {
	components sync.Map
}

// New instantiates a discipline of the given type, wraps it in a component
// and stores it in the pool under name. An existing component with the same
// name is returned as-is.
func (g *OpenLego) New(name string, disciplineType string, configuration types.Configuration, opts ...types.Option) (*core.Component, error) {
	if v, ok := g.components.Load(name); ok {
		return v.(*core.Component), nil
	} else {
		if component, err := newComponent(disciplineType, configuration, opts...); err != nil {
			return nil, err
		} else {
			if name != "" {
				g.components.Store(name, component)
			}
			return component, nil
		}
	}
}

// Get returns the component stored under name
func (g *OpenLego) Get(name string) (*core.Component, bool) {
	v, ok := g.components.Load(name)
	if ok {
		return v.(*core.Component), ok
	} else {
		return nil, false
	}
}

// Del destroys and removes the component stored under name
func (g *OpenLego) Del(name string) {
	v, ok := g.components.Load(name)
	if ok {
		v.(*core.Component).Discipline().Destroy()
		g.components.Delete(name)
	}
}

// Stop destroys all pooled components
func (g *OpenLego) Stop() {
	g.components.Range(func(key, value any) bool {
		if item, ok := value.(*core.Component); ok {
			item.Discipline().Destroy()
		}
		g.components.Delete(key)
		return true
	})
}

func newComponent(disciplineType string, configuration types.Configuration, opts ...types.Option) (*core.Component, error) {
	config := types.NewConfig(opts...)
	if config.Registry == nil {
		config.Registry = Registry
	}
	discipline, err := config.Registry.New(disciplineType)
	if err != nil {
		return nil, err
	}
	if err = discipline.Init(config, configuration); err != nil {
		return nil, err
	}
	return core.NewComponent(config, discipline)
}

// NewComponent instantiates a discipline of the given type from the default
// registry and wraps it in a component. The component is not pooled.
func NewComponent(disciplineType string, configuration types.Configuration, opts ...types.Option) (*core.Component, error) {
	return newComponent(disciplineType, configuration, opts...)
}

// Deploy writes a discipline's three template files into dir under the
// given instance name
func Deploy(discipline types.Discipline, dir, name string) error {
	return core.Deploy(discipline, dir, name)
}
