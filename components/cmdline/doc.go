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

// Package cmdline wraps external command-line analysis tools as disciplines.
// The tool is treated as an opaque file-to-file function: OpenLEGO writes the
// input XML, invokes the executable with the file paths substituted into its
// arguments, and reads the output XML the tool produced.
package cmdline

import (
	"github.com/openlego/openlego/api/types"
)

// Registry holds the disciplines of this package, registered during package
// initialization.
var Registry = new(types.SafeDisciplineSlice)
