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

// Package mqtt wraps the Paho MQTT client for components that exchange
// discipline XML documents through a broker: connect with context, TLS,
// publish, subscribe, and a blocking request/reply helper.
package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/openlego/openlego/utils/str"
)

// Config client configuration
type Config struct {
	// Server mqtt broker address, e.g. tcp://127.0.0.1:1883
	Server   string
	Username string
	Password string
	// MaxReconnectInterval reconnect retry interval, defaults to 60s
	MaxReconnectInterval time.Duration
	QOS                  uint8
	CleanSession         bool
	ClientID             string
	CAFile               string
	CertFile             string
	CertKeyFile          string
}

// Client is a connected MQTT client.
type Client struct {
	client paho.Client
	qos    uint8
}

// NewClient creates and connects an MQTT client instance. Connecting retries
// until ctx is done.
func NewClient(ctx context.Context, conf Config) (*Client, error) {
	opts := paho.NewClientOptions()
	opts.AddBroker(conf.Server)
	opts.SetUsername(conf.Username)
	opts.SetPassword(conf.Password)
	opts.SetCleanSession(conf.CleanSession)
	if conf.ClientID == "" {
		opts.SetClientID("openlego/" + str.RandomStr(8))
	} else {
		opts.SetClientID(conf.ClientID)
	}
	if conf.MaxReconnectInterval <= 0 {
		conf.MaxReconnectInterval = time.Second * 60
	}
	opts.SetMaxReconnectInterval(conf.MaxReconnectInterval)

	tlsConfig, err := newTLSConfig(conf.CAFile, conf.CertFile, conf.CertKeyFile)
	if err != nil {
		return nil, fmt.Errorf("error loading mqtt certificate files,ca_cert=%s,tls_cert=%s,tls_key=%s", conf.CAFile, conf.CertFile, conf.CertKeyFile)
	}
	if tlsConfig != nil {
		opts.SetTLSConfig(tlsConfig)
	}
	b := &Client{
		client: paho.NewClient(opts),
		qos:    conf.QOS,
	}
	for {
		if token := b.client.Connect(); token.Wait() && token.Error() != nil {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(2 * time.Second):
				continue
			}
		}
		return b, nil
	}
}

// Publish sends a payload to the given topic.
func (b *Client) Publish(topic string, payload []byte) error {
	token := b.client.Publish(topic, b.qos, false, payload)
	token.Wait()
	return token.Error()
}

// Subscribe registers a handler for the given topic.
func (b *Client) Subscribe(topic string, handler func(data []byte)) error {
	token := b.client.Subscribe(topic, b.qos, func(_ paho.Client, message paho.Message) {
		handler(message.Payload())
	})
	token.Wait()
	return token.Error()
}

// Unsubscribe removes the subscription of the given topic.
func (b *Client) Unsubscribe(topic string) error {
	token := b.client.Unsubscribe(topic)
	token.Wait()
	return token.Error()
}

// Request publishes a payload to requestTopic and blocks until a message
// arrives on replyTopic or the timeout elapses.
func (b *Client) Request(requestTopic, replyTopic string, payload []byte, timeout time.Duration) ([]byte, error) {
	replyChan := make(chan []byte, 1)
	if err := b.Subscribe(replyTopic, func(data []byte) {
		select {
		case replyChan <- data:
		default:
		}
	}); err != nil {
		return nil, err
	}
	defer func() {
		_ = b.Unsubscribe(replyTopic)
	}()

	if err := b.Publish(requestTopic, payload); err != nil {
		return nil, err
	}
	select {
	case reply := <-replyChan:
		return reply, nil
	case <-time.After(timeout):
		return nil, errors.New("mqtt request timeout on " + replyTopic)
	}
}

// Close disconnects the client.
func (b *Client) Close() error {
	if b.client != nil {
		b.client.Disconnect(250)
	}
	return nil
}

func newTLSConfig(caFile, certFile, certKeyFile string) (*tls.Config, error) {
	if caFile == "" && certFile == "" && certKeyFile == "" {
		return nil, nil
	}
	tlsConfig := &tls.Config{}
	if caFile != "" {
		caCert, err := os.ReadFile(caFile)
		if err != nil {
			return nil, err
		}
		caCertPool := x509.NewCertPool()
		caCertPool.AppendCertsFromPEM(caCert)
		tlsConfig.RootCAs = caCertPool
	}
	if certFile != "" && certKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(certFile, certKeyFile)
		if err != nil {
			return nil, err
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return tlsConfig, nil
}
