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

// Package script implements disciplines whose analysis body is a JavaScript
// function, executed on a pooled goja engine with an interrupt-based
// execution time limit. Useful for prototyping a discipline before the real
// tool exists, and for lightweight surrogate models.
package script

import (
	"github.com/openlego/openlego/api/types"
)

// Registry holds the disciplines of this package, registered during package
// initialization.
var Registry = new(types.SafeDisciplineSlice)
