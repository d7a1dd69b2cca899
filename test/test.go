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

// Package test provides helpers shared by discipline tests.
package test

import (
	"testing"

	"github.com/openlego/openlego/api/types"
)

// InitDiscipline initializes a fresh instance of the given discipline
// prototype, failing the test on error.
func InitDiscipline(t *testing.T, prototype types.Discipline, configuration types.Configuration, opts ...types.Option) types.Discipline {
	t.Helper()
	discipline := prototype.New()
	config := types.NewConfig(opts...)
	if err := discipline.Init(config, configuration); err != nil {
		t.Fatalf("init discipline %s: %v", discipline.Type(), err)
	}
	return discipline
}
