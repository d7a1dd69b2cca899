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

package types

import (
	"time"
)

// Properties are global key/value properties shared by all disciplines,
// e.g. the command whitelist of the cmd discipline.
type Properties map[string]string

// NewProperties creates an empty Properties map.
func NewProperties() Properties {
	return make(Properties)
}

// PutValue sets a property value.
func (p Properties) PutValue(key, value string) {
	if key != "" {
		p[key] = value
	}
}

// GetValue returns a property value, or "" if absent.
func (p Properties) GetValue(key string) string {
	return p[key]
}

// Values returns the underlying map.
func (p Properties) Values() map[string]string {
	return p
}

// ExecutionRecord describes one discipline execution, handed to the
// configured Recorder after Execute returns.
type ExecutionRecord struct {
	// DisciplineType is the type of the executed discipline.
	DisciplineType string
	// Kind is "execute" or "linearize".
	Kind string
	// StartedAt is the wall-clock start of the execution.
	StartedAt time.Time
	// Duration is the execution wall time.
	Duration time.Duration
	// InputXML and OutputXML are the exchanged documents. OutputXML is nil
	// when the execution failed.
	InputXML  []byte
	OutputXML []byte
	// Error is the execution error text, "" on success.
	Error string
}

// Recorder persists execution records. Record errors are logged by the
// component, never propagated into the computation.
type Recorder interface {
	Record(record ExecutionRecord) error
	Close() error
}

// Config is the shared configuration for components and disciplines.
type Config struct {
	// Logger is the logging interface, defaulting to DefaultLogger().
	Logger Logger
	// Properties are global properties in key-value format. Discipline
	// configurations can read them during Init, e.g. the cmd discipline
	// whitelist (key `cmdWhitelist`).
	Properties Properties
	// Registry is the discipline registry, defaulting to openlego.Registry.
	Registry DisciplineRegistry
	// DataFolder is the directory for temporary in/out/partials XML files.
	// Empty means the current working directory.
	DataFolder string
	// KeepFiles disables the best-effort deletion of temporary XML files.
	KeepFiles bool
	// BaseFile, when set, is an XML file kept up to date with the latest
	// data: inputs are merged into it before each execution, the discipline
	// executes against it and outputs are merged back.
	BaseFile string
	// ScriptMaxExecutionTime is the maximum execution time for scripted
	// disciplines, defaulting to 2000 milliseconds.
	ScriptMaxExecutionTime time.Duration
	// Udf registers custom Golang functions callable from scripted
	// disciplines at runtime.
	Udf map[string]interface{}
	// Recorder, when set, receives one ExecutionRecord per Execute and
	// Linearize call.
	Recorder Recorder
}

// RegisterUdf registers a custom function for scripted disciplines.
func (c *Config) RegisterUdf(name string, value interface{}) {
	if c.Udf == nil {
		c.Udf = make(map[string]interface{})
	}
	c.Udf[name] = value
}

// NewConfig creates a new Config with default values and applies the
// provided options.
func NewConfig(opts ...Option) Config {
	c := &Config{
		ScriptMaxExecutionTime: time.Millisecond * 2000,
		Logger:                 DefaultLogger(),
		Properties:             NewProperties(),
	}
	for _, opt := range opts {
		_ = opt(c)
	}
	return *c
}
