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

package rest

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openlego/openlego/api/types"
	"github.com/openlego/openlego/components/script"
	"github.com/openlego/openlego/test"
	"github.com/openlego/openlego/test/assert"
	"github.com/openlego/openlego/utils/json"
	"github.com/openlego/openlego/utils/xmlutils"
)

func newTestServer(t *testing.T) (*DisciplineServer, *httptest.Server) {
	t.Helper()
	discipline := test.InitDiscipline(t, &script.JsDiscipline{}, types.Configuration{
		"script":  "function execute(inputs) { return {'/calc/y': inputs['/calc/x'] * 2}; }",
		"inputs":  map[string]interface{}{"/calc/x": 1.0},
		"outputs": map[string]interface{}{"/calc/y": 0.0},
	})
	server := New(Config{DataFolder: t.TempDir()})
	server.AddDiscipline("doubler", discipline)
	httpServer := httptest.NewServer(server.Router())
	t.Cleanup(func() {
		httpServer.Close()
		server.Stop()
	})
	return server, httpServer
}

func inputDocument(t *testing.T, x float64) []byte {
	t.Helper()
	doc := xmlutils.NewDocument("calc")
	assert.Nil(t, xmlutils.SafeCreateElement(doc, "/calc/x", x))
	data, err := xmlutils.DocBytes(doc)
	assert.Nil(t, err)
	return data
}

func TestListDisciplines(t *testing.T) {
	_, httpServer := newTestServer(t)

	response, err := http.Get(httpServer.URL + BasePath)
	assert.Nil(t, err)
	defer func() {
		_ = response.Body.Close()
	}()
	assert.Equal(t, http.StatusOK, response.StatusCode)

	body, err := io.ReadAll(response.Body)
	assert.Nil(t, err)
	var items []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}
	assert.Nil(t, json.Unmarshal(body, &items))
	assert.Equal(t, 1, len(items))
	assert.Equal(t, "doubler", items[0].Name)
	assert.Equal(t, "js", items[0].Type)
}

func TestTemplateRoutes(t *testing.T) {
	_, httpServer := newTestServer(t)

	for _, route := range []string{"/input", "/output", "/partials"} {
		response, err := http.Get(httpServer.URL + BasePath + "/doubler" + route)
		assert.Nil(t, err)
		body, _ := io.ReadAll(response.Body)
		_ = response.Body.Close()
		assert.Equal(t, http.StatusOK, response.StatusCode, route)
		_, err = xmlutils.LoadBytes(body)
		assert.Nil(t, err, route)
	}
}

func TestExecuteRoute(t *testing.T) {
	_, httpServer := newTestServer(t)

	response, err := http.Post(httpServer.URL+BasePath+"/doubler/execute", XmlContentType,
		bytes.NewReader(inputDocument(t, 21)))
	assert.Nil(t, err)
	defer func() {
		_ = response.Body.Close()
	}()
	assert.Equal(t, http.StatusOK, response.StatusCode)

	body, err := io.ReadAll(response.Body)
	assert.Nil(t, err)
	entries, err := xmlutils.BytesToDict(body)
	assert.Nil(t, err)
	assert.Equal(t, "/calc/y", entries[0].XPath)
	assert.Equal(t, 42.0, entries[0].Value)
}

func TestUnknownDiscipline(t *testing.T) {
	_, httpServer := newTestServer(t)

	response, err := http.Get(httpServer.URL + BasePath + "/missing/input")
	assert.Nil(t, err)
	_ = response.Body.Close()
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
}

func TestRemoveDiscipline(t *testing.T) {
	server, httpServer := newTestServer(t)
	server.RemoveDiscipline("doubler")

	response, err := http.Get(httpServer.URL + BasePath + "/doubler/input")
	assert.Nil(t, err)
	_ = response.Body.Close()
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
}

func TestWebsocketExecute(t *testing.T) {
	_, httpServer := newTestServer(t)

	wsUrl := "ws" + strings.TrimPrefix(httpServer.URL, "http") + BasePath + "/doubler/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsUrl, nil)
	assert.Nil(t, err)
	defer func() {
		_ = conn.Close()
	}()

	// each input document yields log frames followed by one output document
	for _, x := range []float64{1, 2, 3} {
		assert.Nil(t, conn.WriteMessage(websocket.TextMessage, inputDocument(t, x)))
		logFrames := 0
		var reply []byte
		for {
			_, frame, err := conn.ReadMessage()
			assert.Nil(t, err)
			if strings.HasPrefix(string(frame), WsLogPrefix) {
				logFrames++
				continue
			}
			reply = frame
			break
		}
		assert.True(t, logFrames > 0)
		entries, err := xmlutils.BytesToDict(reply)
		assert.Nil(t, err)
		assert.Equal(t, x*2, entries[0].Value)
	}
}

func TestSweep(t *testing.T) {
	dir := t.TempDir()
	server := New(Config{DataFolder: dir, SweepMaxAgeMs: 100})

	stale := filepath.Join(dir, "stale.xml")
	fresh := filepath.Join(dir, "fresh.xml")
	other := filepath.Join(dir, "keep.txt")
	for _, file := range []string{stale, fresh, other} {
		assert.Nil(t, os.WriteFile(file, []byte("<data/>"), 0644))
	}
	old := time.Now().Add(-time.Minute)
	assert.Nil(t, os.Chtimes(stale, old, old))
	assert.Nil(t, os.Chtimes(other, old, old))

	server.sweep()

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.Nil(t, err)
	_, err = os.Stat(other)
	assert.Nil(t, err)
}

func TestListDisciplinesEmpty(t *testing.T) {
	server := New(Config{DataFolder: t.TempDir()})
	httpServer := httptest.NewServer(server.Router())
	t.Cleanup(func() {
		httpServer.Close()
		server.Stop()
	})

	response, err := http.Get(httpServer.URL + BasePath)
	assert.Nil(t, err)
	defer func() {
		_ = response.Body.Close()
	}()
	body, err := io.ReadAll(response.Body)
	assert.Nil(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(string(body)))
}
