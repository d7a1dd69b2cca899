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
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/openlego/openlego"
	"github.com/openlego/openlego/api/types"
	"github.com/openlego/openlego/endpoint/rest"
	"github.com/openlego/openlego/recorder"
)

// DisciplineConfig one configured discipline instance
type DisciplineConfig struct {
	// Name instance name, used on the command line and in server routes
	Name string `yaml:"name"`
	// Type registered discipline type, e.g. cmd, js, expr, restCall
	Type string `yaml:"type"`
	// Configuration type-specific configuration
	Configuration types.Configuration `yaml:"configuration"`
}

// PluginConfig a Go plugin providing extra discipline types
type PluginConfig struct {
	Name string `yaml:"name"`
	File string `yaml:"file"`
}

// AppConfig top-level yaml configuration
type AppConfig struct {
	// Properties global key/value properties, visible to all disciplines
	Properties map[string]string `yaml:"properties"`
	// DataFolder folder for exchange files
	DataFolder string `yaml:"dataFolder"`
	// KeepFiles keep exchange files after each run
	KeepFiles bool `yaml:"keepFiles"`

	Disciplines []DisciplineConfig `yaml:"disciplines"`
	Plugins     []PluginConfig     `yaml:"plugins"`

	Server   rest.Config     `yaml:"server"`
	Recorder recorder.Config `yaml:"recorder"`
}

func loadAppConfig(file string) (AppConfig, error) {
	var c AppConfig
	if file == "" {
		return c, nil
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return c, err
	}
	if err = yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("parse config %s: %w", file, err)
	}
	return c, nil
}

// buildConfig turns the yaml configuration into an engine config and loads
// any configured plugins into the default registry.
func buildConfig(app AppConfig) (types.Config, error) {
	var opts []types.Option
	if len(app.Properties) > 0 {
		opts = append(opts, types.WithProperties(app.Properties))
	}
	if app.DataFolder != "" {
		opts = append(opts, types.WithDataFolder(app.DataFolder))
	}
	if app.KeepFiles {
		opts = append(opts, types.WithKeepFiles(true))
	}
	if app.Recorder.Dsn != "" {
		r, err := recorder.New(app.Recorder)
		if err != nil {
			return types.Config{}, fmt.Errorf("init recorder: %w", err)
		}
		opts = append(opts, types.WithRecorder(r))
	}
	config := types.NewConfig(opts...)
	config.Registry = openlego.Registry

	for _, p := range app.Plugins {
		if err := openlego.Registry.RegisterPlugin(p.Name, p.File); err != nil {
			return types.Config{}, fmt.Errorf("load plugin %s: %w", p.Name, err)
		}
	}
	return config, nil
}

// findDiscipline resolves a name to its configured discipline entry. A name
// that matches no entry is treated as a bare discipline type with an empty
// configuration.
func findDiscipline(app AppConfig, name string) DisciplineConfig {
	for _, d := range app.Disciplines {
		if d.Name == name {
			return d
		}
	}
	return DisciplineConfig{Name: name, Type: name, Configuration: types.Configuration{}}
}

// newDiscipline instantiates and initializes one configured discipline
func newDiscipline(config types.Config, dc DisciplineConfig) (types.Discipline, error) {
	discipline, err := openlego.Registry.New(dc.Type)
	if err != nil {
		return nil, err
	}
	if err = discipline.Init(config, dc.Configuration); err != nil {
		return nil, fmt.Errorf("init discipline %s: %w", dc.Name, err)
	}
	return discipline, nil
}
