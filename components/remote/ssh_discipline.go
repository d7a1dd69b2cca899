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
	"errors"
	"fmt"
	"sync"

	"github.com/openlego/openlego/api/types"
	"github.com/openlego/openlego/components/base"
	"github.com/openlego/openlego/utils/fs"
	"github.com/openlego/openlego/utils/maps"
	"golang.org/x/crypto/ssh"
)

var (
	ErrSshConfigEmpty    = errors.New("ssh config can not empty")
	ErrSshClientNotInit  = errors.New("ssh client not initialized")
	ErrSshCmdEmpty       = errors.New("cmd can not empty")
	ErrSshTemplatesEmpty = errors.New("input and output templates can not empty")
)

func init() {
	Registry.Add(&SshDiscipline{})
}

// SshDisciplineConfiguration discipline configuration
type SshDisciplineConfiguration struct {
	// Host ssh host address
	Host string
	// Port ssh host port
	Port int
	// Username ssh login user
	Username string
	// Password ssh login password
	Password string
	// Cmd remote command executing the tool; it reads the input XML document
	// from stdin and writes the output XML document to stdout
	Cmd string
	// LinearizeCmd remote command computing sensitivities, same contract
	// with the partials XML on stdout; empty means the tool supplies none
	LinearizeCmd string
	// Inputs input xpath -> default value
	Inputs map[string]interface{}
	// Outputs output xpath -> default value
	Outputs map[string]interface{}
}

// SshDiscipline runs an analysis tool on a remote host, typically a compute
// cluster login node. The input document travels over stdin, the result over
// stdout, so nothing needs to be staged on the remote filesystem.
type SshDiscipline struct {
	// Config discipline configuration
	Config SshDisciplineConfiguration
	client *ssh.Client
	// guards client
	clientMutex sync.RWMutex
}

// Type discipline type
func (x *SshDiscipline) Type() string {
	return "ssh"
}

func (x *SshDiscipline) New() types.Discipline {
	return &SshDiscipline{Config: SshDisciplineConfiguration{
		Host: "127.0.0.1",
		Port: 22,
	}}
}

// Init establishes the SSH connection.
func (x *SshDiscipline) Init(_ types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &x.Config); err != nil {
		return err
	}
	if x.Config.Host == "" || x.Config.Port == 0 || x.Config.Username == "" || x.Config.Password == "" {
		return ErrSshConfigEmpty
	}
	if x.Config.Cmd == "" {
		return ErrSshCmdEmpty
	}
	if len(x.Config.Inputs) == 0 || len(x.Config.Outputs) == 0 {
		return ErrSshTemplatesEmpty
	}
	sshConfig := &ssh.ClientConfig{
		User: x.Config.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(x.Config.Password),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}
	client, err := ssh.Dial("tcp", fmt.Sprintf("%s:%d", x.Config.Host, x.Config.Port), sshConfig)
	if err != nil {
		return err
	}
	x.clientMutex.Lock()
	x.client = client
	x.clientMutex.Unlock()
	return nil
}

// GenerateInputXML builds the input template from the configured defaults.
func (x *SshDiscipline) GenerateInputXML() ([]byte, error) {
	return base.BuildTemplate(x.Config.Inputs)
}

// GenerateOutputXML builds the output template from the configured defaults.
func (x *SshDiscipline) GenerateOutputXML() ([]byte, error) {
	return base.BuildTemplate(x.Config.Outputs)
}

// GeneratePartialsXML returns an empty partials document; declared
// sensitivities over SSH are not supported.
func (x *SshDiscipline) GeneratePartialsXML() ([]byte, error) {
	var bb base.BlackBox
	return bb.GeneratePartialsXML()
}

// SuppliesPartials reports whether a linearize command is configured.
func (x *SshDiscipline) SuppliesPartials() bool {
	return x.Config.LinearizeCmd != ""
}

// Execute streams the input XML file to the remote command and writes its
// stdout to the output XML file.
func (x *SshDiscipline) Execute(inFile, outFile string) error {
	return x.run(x.Config.Cmd, inFile, outFile)
}

// Linearize streams the input XML file to the remote linearize command and
// writes its stdout to the partials XML file.
func (x *SshDiscipline) Linearize(inFile, partialsFile string) error {
	if !x.SuppliesPartials() {
		var bb base.BlackBox
		return bb.Linearize(inFile, partialsFile)
	}
	return x.run(x.Config.LinearizeCmd, inFile, partialsFile)
}

// Destroy closes the SSH connection.
func (x *SshDiscipline) Destroy() {
	x.clientMutex.Lock()
	defer x.clientMutex.Unlock()
	if x.client != nil {
		_ = x.client.Close()
		x.client = nil
	}
}

func (x *SshDiscipline) run(cmd, inFile, resultFile string) error {
	x.clientMutex.RLock()
	client := x.client
	x.clientMutex.RUnlock()
	if client == nil {
		return ErrSshClientNotInit
	}
	input := fs.LoadFile(inFile)
	if input == nil {
		return fmt.Errorf("could not read input file %q", inFile)
	}
	session, err := client.NewSession()
	if err != nil {
		return err
	}
	defer func() {
		_ = session.Close()
	}()
	session.Stdin = bytes.NewReader(input)
	output, err := session.Output(cmd)
	if err != nil {
		return fmt.Errorf("remote command %q: %w", cmd, err)
	}
	return fs.SaveFile(resultFile, output)
}
