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

package base

import (
	"testing"

	"github.com/openlego/openlego/partials"
	"github.com/openlego/openlego/test/assert"
	"github.com/openlego/openlego/utils/xmlutils"
)

func TestBuildTemplate(t *testing.T) {
	data, err := BuildTemplate(map[string]interface{}{
		"/calc/b":       2.0,
		"/calc/a":       1.0,
		"/calc/wing[2]": 4.0,
		"/calc/wing[1]": 3.0,
	})
	assert.Nil(t, err)

	entries, err := xmlutils.BytesToDict(data)
	assert.Nil(t, err)
	values := map[string]interface{}{}
	for _, entry := range entries {
		values[entry.XPath] = entry.Value
	}
	assert.Equal(t, 1.0, values["/calc/a"])
	assert.Equal(t, 2.0, values["/calc/b"])
	assert.Equal(t, 3.0, values["/calc/wing[1]"])
	assert.Equal(t, 4.0, values["/calc/wing[2]"])
}

func TestBuildTemplateErrors(t *testing.T) {
	_, err := BuildTemplate(nil)
	assert.NotNil(t, err)

	_, err = BuildTemplate(map[string]interface{}{
		"/calc/a": 1.0,
		"/other":  2.0,
	})
	assert.NotNil(t, err)
}

func TestBlackBox(t *testing.T) {
	var box BlackBox
	assert.False(t, box.SuppliesPartials())

	data, err := box.GeneratePartialsXML()
	assert.Nil(t, err)
	p, err := partials.Parse(data)
	assert.Nil(t, err)
	assert.True(t, p.IsEmpty())

	file := t.TempDir() + "/partials.xml"
	assert.Nil(t, box.Linearize("unused.xml", file))
	p, err = partials.ReadFile(file)
	assert.Nil(t, err)
	assert.True(t, p.IsEmpty())
}
