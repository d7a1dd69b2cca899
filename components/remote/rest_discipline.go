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
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openlego/openlego/api/types"
	"github.com/openlego/openlego/components/base"
	"github.com/openlego/openlego/utils/fs"
	"github.com/openlego/openlego/utils/maps"
)

const (
	contentTypeKey = "Content-Type"
	xmlContentType = "application/xml"
)

func init() {
	Registry.Add(&RestDiscipline{})
}

// RestDisciplineConfiguration discipline configuration
type RestDisciplineConfiguration struct {
	// ExecuteUrl endpoint executing the tool: the input XML document is the
	// request body, the response body is the output XML document
	ExecuteUrl string
	// LinearizeUrl endpoint computing sensitivities; empty means the tool
	// supplies none
	LinearizeUrl string
	// InputUrl, OutputUrl, PartialsUrl endpoints serving the template
	// documents
	InputUrl    string
	OutputUrl   string
	PartialsUrl string
	// Headers extra request headers
	Headers map[string]string
	// ReadTimeoutMs timeout in milliseconds, 0 means no limit
	ReadTimeoutMs int
	// InsecureSkipVerify disables certificate verification
	InsecureSkipVerify bool
}

// RestDiscipline calls an analysis tool exposed by a discipline server over
// HTTP. The counterpart routes are served by endpoint/rest.
type RestDiscipline struct {
	base.BlackBox
	// Config discipline configuration
	Config     RestDisciplineConfiguration
	httpClient *http.Client
}

// Type discipline type
func (x *RestDiscipline) Type() string {
	return "restCall"
}

func (x *RestDiscipline) New() types.Discipline {
	return &RestDiscipline{}
}

// Init initializes the HTTP client.
func (x *RestDiscipline) Init(_ types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &x.Config); err != nil {
		return err
	}
	if x.Config.ExecuteUrl == "" {
		return errors.New("executeUrl can not empty")
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: x.Config.InsecureSkipVerify}
	x.httpClient = &http.Client{
		Transport: transport,
		Timeout:   time.Duration(x.Config.ReadTimeoutMs) * time.Millisecond,
	}
	return nil
}

// GenerateInputXML fetches the input template from the discipline server.
func (x *RestDiscipline) GenerateInputXML() ([]byte, error) {
	return x.get(x.Config.InputUrl)
}

// GenerateOutputXML fetches the output template from the discipline server.
func (x *RestDiscipline) GenerateOutputXML() ([]byte, error) {
	return x.get(x.Config.OutputUrl)
}

// GeneratePartialsXML fetches the partials template from the discipline
// server, or returns an empty document when no PartialsUrl is configured.
func (x *RestDiscipline) GeneratePartialsXML() ([]byte, error) {
	if x.Config.PartialsUrl == "" {
		return x.BlackBox.GeneratePartialsXML()
	}
	return x.get(x.Config.PartialsUrl)
}

// SuppliesPartials reports whether a linearize endpoint is configured.
func (x *RestDiscipline) SuppliesPartials() bool {
	return x.Config.LinearizeUrl != ""
}

// Execute posts the input XML file to the execute endpoint and writes the
// response body to the output XML file.
func (x *RestDiscipline) Execute(inFile, outFile string) error {
	return x.post(x.Config.ExecuteUrl, inFile, outFile)
}

// Linearize posts the input XML file to the linearize endpoint and writes
// the response body to the partials XML file.
func (x *RestDiscipline) Linearize(inFile, partialsFile string) error {
	if !x.SuppliesPartials() {
		return x.BlackBox.Linearize(inFile, partialsFile)
	}
	return x.post(x.Config.LinearizeUrl, inFile, partialsFile)
}

// Destroy closes idle connections.
func (x *RestDiscipline) Destroy() {
	if x.httpClient != nil {
		x.httpClient.CloseIdleConnections()
	}
}

func (x *RestDiscipline) post(url, inFile, resultFile string) error {
	body := fs.LoadFile(inFile)
	if body == nil {
		return fmt.Errorf("could not read input file %q", inFile)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set(contentTypeKey, xmlContentType)
	for key, value := range x.Config.Headers {
		req.Header.Set(key, value)
	}
	response, err := x.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = response.Body.Close()
	}()
	data, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}
	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %s: %s", url, response.Status, strings.TrimSpace(string(data)))
	}
	return fs.SaveFile(resultFile, data)
}

func (x *RestDiscipline) get(url string) ([]byte, error) {
	if url == "" {
		return nil, errors.New("template url can not empty")
	}
	response, err := x.httpClient.Get(url)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = response.Body.Close()
	}()
	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", url, response.Status)
	}
	return data, nil
}
