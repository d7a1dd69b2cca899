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

package openlego

import (
	"errors"
	"fmt"
	"plugin"
	"sync"

	"github.com/openlego/openlego/api/types"
	"github.com/openlego/openlego/components/cmdline"
	"github.com/openlego/openlego/components/expression"
	"github.com/openlego/openlego/components/remote"
	"github.com/openlego/openlego/components/script"
)

// PluginsSymbol exported symbol looked up in discipline plugins
const PluginsSymbol = "Disciplines"

// Registry default discipline registry
var Registry = new(DisciplineComponentRegistry)

// register built-in disciplines
func init() {
	var disciplines []types.Discipline
	disciplines = append(disciplines, cmdline.Registry.Disciplines()...)
	disciplines = append(disciplines, script.Registry.Disciplines()...)
	disciplines = append(disciplines, expression.Registry.Disciplines()...)
	disciplines = append(disciplines, remote.Registry.Disciplines()...)

	for _, discipline := range disciplines {
		_ = Registry.Register(discipline)
	}
}

// DisciplineComponentRegistry discipline registry
type DisciplineComponentRegistry struct {
	// registered discipline prototypes, keyed by type
	disciplines map[string]types.Discipline
	// disciplines contributed per plugin
	plugins map[string][]types.Discipline
	sync.RWMutex
}

// Register registers a discipline prototype
func (r *DisciplineComponentRegistry) Register(discipline types.Discipline) error {
	r.Lock()
	defer r.Unlock()
	if r.disciplines == nil {
		r.disciplines = make(map[string]types.Discipline)
	}
	if _, ok := r.disciplines[discipline.Type()]; ok {
		return errors.New("the discipline already exists. disciplineType=" + discipline.Type())
	}
	r.disciplines[discipline.Type()] = discipline

	return nil
}

// RegisterPlugin registers all disciplines exported by a Go plugin
func (r *DisciplineComponentRegistry) RegisterPlugin(name string, file string) error {
	builder := &PluginDisciplineRegistry{name: name, file: file}
	if err := builder.Init(); err != nil {
		return err
	}
	disciplines := builder.Disciplines()
	for _, discipline := range disciplines {
		if _, ok := r.disciplines[discipline.Type()]; ok {
			return errors.New("the discipline already exists. disciplineType=" + discipline.Type())
		}
	}
	for _, discipline := range disciplines {
		if err := r.Register(discipline); err != nil {
			return err
		}
	}

	r.Lock()
	defer r.Unlock()
	if r.plugins == nil {
		r.plugins = make(map[string][]types.Discipline)
	}
	r.plugins[name] = disciplines
	return nil
}

// Unregister removes a discipline type or a whole plugin by name
func (r *DisciplineComponentRegistry) Unregister(disciplineType string) error {
	r.Lock()
	defer r.Unlock()
	var removed = false
	if disciplines, ok := r.plugins[disciplineType]; ok {
		for _, discipline := range disciplines {
			delete(r.disciplines, discipline.Type())
		}
		delete(r.plugins, disciplineType)
		removed = true
	}

	if _, ok := r.disciplines[disciplineType]; ok {
		delete(r.disciplines, disciplineType)
		removed = true
	}

	if !removed {
		return fmt.Errorf("discipline not found.disciplineType=%s", disciplineType)
	} else {
		return nil
	}
}

// New creates a fresh discipline instance of the given type
func (r *DisciplineComponentRegistry) New(disciplineType string) (types.Discipline, error) {
	r.RLock()
	defer r.RUnlock()

	if discipline, ok := r.disciplines[disciplineType]; !ok {
		return nil, fmt.Errorf("discipline not found.disciplineType=%s", disciplineType)
	} else {
		return discipline.New(), nil
	}
}

// GetDisciplines returns a copy of the registered prototypes
func (r *DisciplineComponentRegistry) GetDisciplines() map[string]types.Discipline {
	r.RLock()
	defer r.RUnlock()
	var disciplines = map[string]types.Discipline{}
	for k, v := range r.disciplines {
		disciplines[k] = v
	}
	return disciplines
}

// PluginDisciplineRegistry go plugin discipline initializer
type PluginDisciplineRegistry struct {
	name     string
	file     string
	registry types.PluginRegistry
}

func (p *PluginDisciplineRegistry) Init() error {
	pluginRegistry, err := loadPlugin(p.file)
	if err != nil {
		return err
	} else {
		p.registry = pluginRegistry
		return nil
	}
}

func (p *PluginDisciplineRegistry) Disciplines() []types.Discipline {
	if p.registry != nil {
		return p.registry.Disciplines()
	}
	return nil
}

// loadPlugin opens a plugin file and looks up the exported Disciplines symbol
func loadPlugin(file string) (types.PluginRegistry, error) {
	p, err := plugin.Open(file)
	if err != nil {
		return nil, err
	}
	sym, err := p.Lookup(PluginsSymbol)
	if err != nil {
		return nil, err
	}
	pluginRegistry, ok := sym.(types.PluginRegistry)
	if !ok {
		return nil, errors.New("invalid plugin")
	}
	return pluginRegistry, nil
}
