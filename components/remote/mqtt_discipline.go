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
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/openlego/openlego/api/types"
	"github.com/openlego/openlego/components/base"
	"github.com/openlego/openlego/utils/fs"
	"github.com/openlego/openlego/utils/maps"
	"github.com/openlego/openlego/utils/mqtt"
)

var ErrMqttClientNotInit = errors.New("mqtt client not initialized")

func init() {
	Registry.Add(&MqttDiscipline{})
}

// MqttDisciplineConfiguration discipline configuration
type MqttDisciplineConfiguration struct {
	// Server mqtt broker address, e.g. tcp://127.0.0.1:1883
	Server   string
	Username string
	Password string
	// RequestTopic topic the remote tool listens on (`<requestTopic>/+`);
	// each call publishes the input XML on `<requestTopic>/<callId>`
	RequestTopic string
	// LinearizeTopic topic for sensitivity requests; empty means the tool
	// supplies none
	LinearizeTopic string
	// ReplyTopicPrefix prefix of the per-call reply topics, defaults to
	// `<requestTopic>/reply`
	ReplyTopicPrefix string
	QOS              uint8
	// TimeoutMs reply wait limit in milliseconds, defaults to 60000
	TimeoutMs int
	// ConnectTimeoutMs broker connect limit in milliseconds, defaults to 10000
	ConnectTimeoutMs int
	// Inputs input xpath -> default value
	Inputs map[string]interface{}
	// Outputs output xpath -> default value
	Outputs map[string]interface{}
	CAFile      string
	CertFile    string
	CertKeyFile string
}

// MqttDiscipline exchanges discipline documents with a remote tool through
// an MQTT broker: the input XML is published on the request topic together
// with a per-call reply topic, and the tool publishes the output XML there.
type MqttDiscipline struct {
	base.BlackBox
	// Config discipline configuration
	Config MqttDisciplineConfiguration
	client *mqtt.Client
	// guards client
	clientMutex sync.RWMutex
}

// Type discipline type
func (x *MqttDiscipline) Type() string {
	return "mqttCall"
}

func (x *MqttDiscipline) New() types.Discipline {
	return &MqttDiscipline{}
}

// Init connects to the broker.
func (x *MqttDiscipline) Init(_ types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &x.Config); err != nil {
		return err
	}
	if x.Config.Server == "" || x.Config.RequestTopic == "" {
		return errors.New("server and requestTopic can not empty")
	}
	if len(x.Config.Inputs) == 0 || len(x.Config.Outputs) == 0 {
		return errors.New("inputs and outputs can not empty")
	}
	if x.Config.ReplyTopicPrefix == "" {
		x.Config.ReplyTopicPrefix = x.Config.RequestTopic + "/reply"
	}
	if x.Config.TimeoutMs <= 0 {
		x.Config.TimeoutMs = 60000
	}
	connectTimeout := time.Duration(x.Config.ConnectTimeoutMs) * time.Millisecond
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	client, err := mqtt.NewClient(ctx, mqtt.Config{
		Server:      x.Config.Server,
		Username:    x.Config.Username,
		Password:    x.Config.Password,
		QOS:         x.Config.QOS,
		CAFile:      x.Config.CAFile,
		CertFile:    x.Config.CertFile,
		CertKeyFile: x.Config.CertKeyFile,
	})
	if err != nil {
		return err
	}
	x.clientMutex.Lock()
	x.client = client
	x.clientMutex.Unlock()
	return nil
}

// GenerateInputXML builds the input template from the configured defaults.
func (x *MqttDiscipline) GenerateInputXML() ([]byte, error) {
	return base.BuildTemplate(x.Config.Inputs)
}

// GenerateOutputXML builds the output template from the configured defaults.
func (x *MqttDiscipline) GenerateOutputXML() ([]byte, error) {
	return base.BuildTemplate(x.Config.Outputs)
}

// SuppliesPartials reports whether a linearize topic is configured.
func (x *MqttDiscipline) SuppliesPartials() bool {
	return x.Config.LinearizeTopic != ""
}

// Execute publishes the input XML on the request topic and writes the reply
// to the output XML file.
func (x *MqttDiscipline) Execute(inFile, outFile string) error {
	return x.request(x.Config.RequestTopic, inFile, outFile)
}

// Linearize publishes the input XML on the linearize topic and writes the
// reply to the partials XML file.
func (x *MqttDiscipline) Linearize(inFile, partialsFile string) error {
	if !x.SuppliesPartials() {
		return x.BlackBox.Linearize(inFile, partialsFile)
	}
	return x.request(x.Config.LinearizeTopic, inFile, partialsFile)
}

// Destroy disconnects from the broker.
func (x *MqttDiscipline) Destroy() {
	x.clientMutex.Lock()
	defer x.clientMutex.Unlock()
	if x.client != nil {
		_ = x.client.Close()
		x.client = nil
	}
}

func (x *MqttDiscipline) request(topic, inFile, resultFile string) error {
	x.clientMutex.RLock()
	client := x.client
	x.clientMutex.RUnlock()
	if client == nil {
		return ErrMqttClientNotInit
	}
	payload := fs.LoadFile(inFile)
	if payload == nil {
		return fmt.Errorf("could not read input file %q", inFile)
	}
	// the tool subscribes to `topic/+` and replies on `replyTopicPrefix/<id>`
	callId := uuid.Must(uuid.NewV4()).String()
	replyTopic := x.Config.ReplyTopicPrefix + "/" + callId
	reply, err := client.Request(topic+"/"+callId, replyTopic, payload, time.Duration(x.Config.TimeoutMs)*time.Millisecond)
	if err != nil {
		return err
	}
	return fs.SaveFile(resultFile, reply)
}
