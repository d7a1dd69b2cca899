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

package xmlutils

import (
	"math"
	"testing"

	"github.com/openlego/openlego/test/assert"
)

func TestXPathToParam(t *testing.T) {
	assert.Equal(t, "aircraft:wing:span", XPathToParam("/aircraft/wing/span"))
	assert.Equal(t, "aircraft:wing:2:span", XPathToParam("/aircraft/wing[2]/span"))
	assert.Equal(t, "aircraft", XPathToParam("/aircraft"))
}

func TestParamToXPath(t *testing.T) {
	assert.Equal(t, "/aircraft/wing/span", ParamToXPath("aircraft:wing:span"))
	assert.Equal(t, "/aircraft/wing[2]/span", ParamToXPath("aircraft:wing:2:span"))
	assert.Equal(t, "/aircraft", ParamToXPath("aircraft"))
}

func TestXPathParamRoundTrip(t *testing.T) {
	xpaths := []string{
		"/aircraft",
		"/aircraft/wing/span",
		"/aircraft/wing[1]/span",
		"/aircraft/wing[12]/section[3]/chord",
		"/data_schema/reference/x1",
	}
	for _, xpath := range xpaths {
		assert.Equal(t, xpath, ParamToXPath(XPathToParam(xpath)), xpath)
	}
}

func TestXMLToDict(t *testing.T) {
	doc, err := LoadBytes([]byte(`<aircraft>
  <wing><span>31.5</span></wing>
  <wing><span>12</span></wing>
  <name>ssbj</name>
</aircraft>`))
	assert.Nil(t, err)
	entries := XMLToDict(doc)
	assert.Equal(t, 3, len(entries))
	assert.Equal(t, "/aircraft/wing[1]/span", entries[0].XPath)
	assert.Equal(t, 31.5, entries[0].Value)
	assert.Equal(t, "/aircraft/wing[2]/span", entries[1].XPath)
	assert.Equal(t, 12.0, entries[1].Value)
	assert.Equal(t, "/aircraft/name", entries[2].XPath)
	assert.Equal(t, "ssbj", entries[2].Value)
}

func TestXMLToDictSingleChildNotIndexed(t *testing.T) {
	doc, err := LoadBytes([]byte(`<a><b><c>1</c></b></a>`))
	assert.Nil(t, err)
	entries := XMLToDict(doc)
	assert.Equal(t, 1, len(entries))
	assert.Equal(t, "/a/b/c", entries[0].XPath)
}

func TestLoadBytesNoRoot(t *testing.T) {
	_, err := LoadBytes([]byte(`<?xml version="1.0"?>`))
	assert.NotNil(t, err)
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, 1.5, ParseValue("1.5"))
	assert.Equal(t, []float64{1, 2, 3}, ParseValue("1;2;3"))
	assert.Equal(t, []float64{1.5, -2}, ParseValue("1.5; -2"))
	assert.Equal(t, "abc", ParseValue("abc"))
	assert.Equal(t, "1;x", ParseValue("1;x"))
	assert.Equal(t, "", ParseValue(""))
	v, ok := ParseValue("nan").(float64)
	assert.True(t, ok)
	assert.True(t, math.IsNaN(v))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "1.5", FormatValue(1.5))
	assert.Equal(t, "1;2;3", FormatValue([]float64{1, 2, 3}))
	assert.Equal(t, "abc", FormatValue("abc"))
	assert.Equal(t, "7", FormatValue(7))
	assert.Equal(t, "", FormatValue(nil))
}

func TestValueRoundTrip(t *testing.T) {
	values := []interface{}{1.5, -3.25, []float64{1, 2.5, -3}, "free text"}
	for _, value := range values {
		assert.Equal(t, value, ParseValue(FormatValue(value)))
	}
}

func TestIsDiscrete(t *testing.T) {
	assert.False(t, IsDiscrete(1.5))
	assert.False(t, IsDiscrete([]float64{1, 2}))
	assert.True(t, IsDiscrete(math.NaN()))
	assert.True(t, IsDiscrete([]float64{1, math.NaN()}))
	assert.True(t, IsDiscrete("text"))
	assert.True(t, IsDiscrete(""))
}

func TestSafeCreateElement(t *testing.T) {
	doc := NewDocument("aircraft")
	assert.Nil(t, SafeCreateElement(doc, "/aircraft/wing[2]/span", 12.0))
	assert.Nil(t, SafeCreateElement(doc, "/aircraft/wing[1]/span", 31.5))
	assert.Nil(t, SafeCreateElement(doc, "/aircraft/name", "ssbj"))

	entries := XMLToDict(doc)
	values := map[string]interface{}{}
	for _, entry := range entries {
		values[entry.XPath] = entry.Value
	}
	assert.Equal(t, 31.5, values["/aircraft/wing[1]/span"])
	assert.Equal(t, 12.0, values["/aircraft/wing[2]/span"])
	assert.Equal(t, "ssbj", values["/aircraft/name"])
}

func TestSafeCreateElementRootMismatch(t *testing.T) {
	doc := NewDocument("aircraft")
	assert.NotNil(t, SafeCreateElement(doc, "/rocket/mass", 1.0))
}

func TestSafeCreateElementInvalid(t *testing.T) {
	doc := NewDocument("aircraft")
	assert.NotNil(t, SafeCreateElement(doc, "", 1.0))
	assert.NotNil(t, SafeCreateElement(doc, "/aircraft/wing[0]/span", 1.0))
}

func TestMergeDocs(t *testing.T) {
	dst, err := LoadBytes([]byte(`<data><a>1</a><b>2</b></data>`))
	assert.Nil(t, err)
	src, err := LoadBytes([]byte(`<data><b>3</b><c>4</c></data>`))
	assert.Nil(t, err)
	assert.Nil(t, MergeDocs(dst, src))

	values := map[string]interface{}{}
	for _, entry := range XMLToDict(dst) {
		values[entry.XPath] = entry.Value
	}
	assert.Equal(t, 1.0, values["/data/a"])
	assert.Equal(t, 3.0, values["/data/b"])
	assert.Equal(t, 4.0, values["/data/c"])
}

func TestMergeDocsRootMismatch(t *testing.T) {
	dst, _ := LoadBytes([]byte(`<data><a>1</a></data>`))
	src, _ := LoadBytes([]byte(`<other><a>1</a></other>`))
	assert.NotNil(t, MergeDocs(dst, src))
}

func TestMergeFiles(t *testing.T) {
	dir := t.TempDir()
	baseFile := dir + "/base.xml"
	mergeFile := dir + "/merge.xml"

	base, _ := LoadBytes([]byte(`<data><a>1</a></data>`))
	assert.Nil(t, WriteFile(base, baseFile))
	merge, _ := LoadBytes([]byte(`<data><a>2</a><b>3</b></data>`))
	assert.Nil(t, WriteFile(merge, mergeFile))

	assert.Nil(t, Merge(baseFile, mergeFile))

	entries, err := FileToDict(baseFile)
	assert.Nil(t, err)
	values := map[string]interface{}{}
	for _, entry := range entries {
		values[entry.XPath] = entry.Value
	}
	assert.Equal(t, 2.0, values["/data/a"])
	assert.Equal(t, 3.0, values["/data/b"])
}
