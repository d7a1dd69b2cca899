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

// Option is a function type that modifies the Config.
type Option func(*Config) error

// WithLogger is an option that sets the logger of the Config.
func WithLogger(logger Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}

// WithRegistry is an option that sets the discipline registry of the Config.
func WithRegistry(registry DisciplineRegistry) Option {
	return func(c *Config) error {
		c.Registry = registry
		return nil
	}
}

// WithDataFolder is an option that sets the temporary data folder of the Config.
func WithDataFolder(dataFolder string) Option {
	return func(c *Config) error {
		c.DataFolder = dataFolder
		return nil
	}
}

// WithBaseFile is an option that sets the base XML file of the Config.
func WithBaseFile(baseFile string) Option {
	return func(c *Config) error {
		c.BaseFile = baseFile
		return nil
	}
}

// WithKeepFiles keeps the temporary XML files after they are no longer needed.
func WithKeepFiles(keepFiles bool) Option {
	return func(c *Config) error {
		c.KeepFiles = keepFiles
		return nil
	}
}

// WithScriptMaxExecutionTime is an option that sets the script max execution
// time of the Config.
func WithScriptMaxExecutionTime(scriptMaxExecutionTime time.Duration) Option {
	return func(c *Config) error {
		c.ScriptMaxExecutionTime = scriptMaxExecutionTime
		return nil
	}
}

// WithProperties is an option that sets the global properties of the Config.
func WithProperties(properties Properties) Option {
	return func(c *Config) error {
		c.Properties = properties
		return nil
	}
}

// WithRecorder is an option that sets the execution recorder of the Config.
func WithRecorder(recorder Recorder) Option {
	return func(c *Config) error {
		c.Recorder = recorder
		return nil
	}
}
