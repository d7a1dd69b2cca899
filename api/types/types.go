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

// Package types defines the public interfaces of the OpenLEGO adapter layer.
// A discipline is a single analysis tool exposed to an MDO host framework
// through template input/output/partials XML files and a file-to-file
// execute function. Everything a host framework binds to lives here; the
// package is dependency-free on purpose.
package types

import (
	"sync"
)

// Partials method names reported to the host framework.
const (
	// MethodExact declared analytic sensitivities, read from the partials XML file.
	MethodExact = "exact"
	// MethodFD instructs the host to approximate sensitivities by finite differencing.
	MethodFD = "fd"
)

// Template file suffixes of a deployed discipline.
const (
	InputFileSuffix    = "-input.xml"
	OutputFileSuffix   = "-output.xml"
	PartialsFileSuffix = "-partials.xml"
)

// Configuration is the untyped configuration of a discipline instance.
// It is decoded into the discipline's typed config struct during Init.
type Configuration map[string]interface{}

// Discipline is the common interface of all analysis tools within OpenLEGO.
// Implementations are registered to a DisciplineRegistry and instantiated
// per component. Execute must treat the input file as read-only and have no
// side effect other than writing the output file.
type Discipline interface {
	// New creates a new instance of the discipline. Each component gets its
	// own instance so state is never shared.
	New() Discipline
	// Type is the discipline type used for registry lookup. It must be unique.
	Type() string
	// Init configures the instance. It is called once, before any other method.
	Init(config Config, configuration Configuration) error
	// GenerateInputXML returns the template input XML document.
	GenerateInputXML() ([]byte, error)
	// GenerateOutputXML returns the template output XML document.
	GenerateOutputXML() ([]byte, error)
	// GeneratePartialsXML returns the template partials XML document.
	// A discipline that supplies no sensitivities returns an empty document.
	GeneratePartialsXML() ([]byte, error)
	// SuppliesPartials reports whether Linearize produces declared sensitivities.
	SuppliesPartials() bool
	// Execute runs the tool with the given input XML file and writes the
	// output XML file.
	Execute(inFile, outFile string) error
	// Linearize computes the sensitivities for the given input XML file and
	// writes them to the partials XML file.
	Linearize(inFile, partialsFile string) error
	// Destroy releases resources held by the instance.
	Destroy()
}

// DisciplineRegistry holds discipline prototypes by type.
type DisciplineRegistry interface {
	// Register adds a discipline prototype. It returns an `already exists`
	// error if the type is taken.
	Register(discipline Discipline) error
	// RegisterPlugin loads disciplines from a Go plugin .so file through
	// the `Disciplines` symbol.
	RegisterPlugin(name string, file string) error
	// Unregister removes a discipline type or a whole plugin by name.
	Unregister(disciplineType string) error
	// New creates a fresh instance of the given discipline type.
	New(disciplineType string) (Discipline, error)
	// GetDisciplines returns all registered prototypes keyed by type.
	GetDisciplines() map[string]Discipline
}

// PluginRegistry is the entry point a discipline plugin exports.
// Example:
//
//	package main
//	var Disciplines MyPlugins // plugin entry point
//	type MyPlugins struct{}
//	func (p *MyPlugins) Init() error { return nil }
//	func (p *MyPlugins) Disciplines() []types.Discipline {
//		return []types.Discipline{&MyTool{}}
//	}
//
// go build -buildmode=plugin -o plugin.so plugin.go
type PluginRegistry interface {
	Init() error
	Disciplines() []Discipline
}

// VariableDecl declares one host-framework variable derived from a template
// XML file. Name is the flat parameter identifier produced by the
// xpath-to-param mapping.
type VariableDecl struct {
	// Name is the flat parameter identifier.
	Name string
	// XPath is the source element path in the template document.
	XPath string
	// Value is the template value: float64, []float64 or a discrete string.
	Value interface{}
	// Discrete marks values the host must not differentiate (strings, NaN).
	Discrete bool
	// Ref is the reference value for output scaling. Zero means unset.
	Ref float64
}

// PartialDecl declares the sensitivity of one output with respect to one
// input, or the global finite-difference fallback ("*", "*", fd).
type PartialDecl struct {
	Of     string
	Wrt    string
	Method string
}

// SafeDisciplineSlice is a concurrency-safe discipline list. Component
// packages expose one as their package-level Registry and add their
// disciplines from init().
type SafeDisciplineSlice struct {
	sync.Mutex
	disciplines []Discipline
}

// Add appends one or more disciplines.
func (p *SafeDisciplineSlice) Add(disciplines ...Discipline) {
	p.Lock()
	defer p.Unlock()
	p.disciplines = append(p.disciplines, disciplines...)
}

// Disciplines returns the registered disciplines.
func (p *SafeDisciplineSlice) Disciplines() []Discipline {
	p.Lock()
	defer p.Unlock()
	return p.disciplines
}
