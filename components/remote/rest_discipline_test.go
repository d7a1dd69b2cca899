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

package remote

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openlego/openlego/api/types"
	"github.com/openlego/openlego/components/base"
	"github.com/openlego/openlego/test"
	"github.com/openlego/openlego/test/assert"
	"github.com/openlego/openlego/utils/fs"
	"github.com/openlego/openlego/utils/xmlutils"
)

// newToolServer fakes a discipline server that echoes the input back with the
// value doubled.
func newToolServer(t *testing.T) *httptest.Server {
	t.Helper()
	inputXML, err := base.BuildTemplate(map[string]interface{}{"/tool/x": 1.0})
	assert.Nil(t, err)
	outputXML, err := base.BuildTemplate(map[string]interface{}{"/tool/y": 0.0})
	assert.Nil(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/input", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(inputXML)
	})
	mux.HandleFunc("/output", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(outputXML)
	})
	mux.HandleFunc("/execute", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		entries, err := xmlutils.BytesToDict(body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		x, _ := entries[0].Value.(float64)
		result, err := base.BuildTemplate(map[string]interface{}{"/tool/y": x * 2})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(result)
	})
	mux.HandleFunc("/fail", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "tool blew up", http.StatusInternalServerError)
	})
	return httptest.NewServer(mux)
}

func TestRestInitErrors(t *testing.T) {
	err := (&RestDiscipline{}).New().Init(types.NewConfig(), types.Configuration{})
	assert.NotNil(t, err)
}

func TestRestTemplatesAndExecute(t *testing.T) {
	server := newToolServer(t)
	defer server.Close()

	discipline := test.InitDiscipline(t, &RestDiscipline{}, types.Configuration{
		"executeUrl": server.URL + "/execute",
		"inputUrl":   server.URL + "/input",
		"outputUrl":  server.URL + "/output",
	})
	defer discipline.Destroy()
	assert.False(t, discipline.SuppliesPartials())

	inputXML, err := discipline.GenerateInputXML()
	assert.Nil(t, err)
	entries, err := xmlutils.BytesToDict(inputXML)
	assert.Nil(t, err)
	assert.Equal(t, "/tool/x", entries[0].XPath)

	dir := t.TempDir()
	inFile := dir + "/in.xml"
	outFile := dir + "/out.xml"
	data, err := base.BuildTemplate(map[string]interface{}{"/tool/x": 5.0})
	assert.Nil(t, err)
	assert.Nil(t, fs.SaveFile(inFile, data))

	assert.Nil(t, discipline.Execute(inFile, outFile))

	outEntries, err := xmlutils.FileToDict(outFile)
	assert.Nil(t, err)
	assert.Equal(t, 10.0, outEntries[0].Value)
}

func TestRestExecuteServerError(t *testing.T) {
	server := newToolServer(t)
	defer server.Close()

	discipline := test.InitDiscipline(t, &RestDiscipline{}, types.Configuration{
		"executeUrl": server.URL + "/fail",
	})
	defer discipline.Destroy()

	dir := t.TempDir()
	inFile := dir + "/in.xml"
	data, err := base.BuildTemplate(map[string]interface{}{"/tool/x": 1.0})
	assert.Nil(t, err)
	assert.Nil(t, fs.SaveFile(inFile, data))

	err = discipline.Execute(inFile, dir+"/out.xml")
	assert.NotNil(t, err)
	assert.True(t, strings.Contains(err.Error(), "tool blew up"))
}

func TestRestLinearizeWithoutUrl(t *testing.T) {
	server := newToolServer(t)
	defer server.Close()

	discipline := test.InitDiscipline(t, &RestDiscipline{}, types.Configuration{
		"executeUrl": server.URL + "/execute",
	})
	defer discipline.Destroy()

	partialsFile := t.TempDir() + "/partials.xml"
	assert.Nil(t, discipline.Linearize("unused.xml", partialsFile))
	assert.True(t, fs.IsFile(partialsFile))
}
