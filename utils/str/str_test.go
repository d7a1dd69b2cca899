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

package str

import (
	"testing"

	"github.com/openlego/openlego/test/assert"
)

func TestExecuteTemplate(t *testing.T) {
	dict := map[string]interface{}{"in_file": "a.xml", "out_file": "b.xml"}
	assert.Equal(t, "run a.xml b.xml", ExecuteTemplate("run ${in_file} ${out_file}", dict))
	assert.Equal(t, "run ${missing}", ExecuteTemplate("run ${missing}", dict))
	assert.Equal(t, "no placeholders", ExecuteTemplate("no placeholders", dict))
}

func TestCheckHasVar(t *testing.T) {
	assert.True(t, CheckHasVar("${in_file}"))
	assert.False(t, CheckHasVar("in_file"))
}

func TestRandomStr(t *testing.T) {
	assert.Equal(t, 8, len(RandomStr(8)))
	assert.NotEqual(t, RandomStr(16), RandomStr(16))
}

func TestToString(t *testing.T) {
	assert.Equal(t, "abc", ToString("abc"))
	assert.Equal(t, "1.5", ToString(1.5))
	assert.Equal(t, "7", ToString(7))
	assert.Equal(t, "true", ToString(true))
	assert.Equal(t, "", ToString(nil))
}

func TestConvertDollarPlaceholder(t *testing.T) {
	assert.Equal(t, "VALUES ($1, $2)", ConvertDollarPlaceholder("VALUES (?, ?)", "postgres"))
	assert.Equal(t, "VALUES (?, ?)", ConvertDollarPlaceholder("VALUES (?, ?)", "mysql"))
}

func TestContains(t *testing.T) {
	assert.True(t, Contains([]string{"a", "b"}, "b"))
	assert.False(t, Contains([]string{"a", "b"}, "c"))
	assert.False(t, Contains(nil, "a"))
}
