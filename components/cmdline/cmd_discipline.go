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

package cmdline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/openlego/openlego/api/types"
	"github.com/openlego/openlego/components/base"
	"github.com/openlego/openlego/core"
	"github.com/openlego/openlego/utils/fs"
	"github.com/openlego/openlego/utils/maps"
	"github.com/openlego/openlego/utils/str"
)

// ErrCmdNotAllowed command is not on the whitelist
var ErrCmdNotAllowed = errors.New("cmd not allowed error")

const (
	// KeyCmdWhitelist whitelist property key, comma separated command list
	KeyCmdWhitelist = "cmdWhitelist"
	// placeholder keys usable in Cmd and Args
	KeyInFile       = "in_file"
	KeyOutFile      = "out_file"
	KeyPartialsFile = "partials_file"
)

func init() {
	Registry.Add(&CommandDiscipline{})
}

// CommandDisciplineConfiguration discipline configuration
type CommandDisciplineConfiguration struct {
	// Name of the tool; selects the template files <Name>-input.xml,
	// <Name>-output.xml and <Name>-partials.xml inside TemplateDir
	Name string
	// TemplateDir directory holding the deployed template files
	TemplateDir string
	// Cmd executable to run, checked against the whitelist
	Cmd string
	// Args command arguments; ${in_file}, ${out_file} and ${partials_file}
	// are replaced with the temporary XML file paths
	Args []string
	// LinearizeArgs, when set, lets the tool supply sensitivities; run with
	// ${in_file} and ${partials_file} replaced
	LinearizeArgs []string
	// WorkDir working directory of the command
	WorkDir string
	// TimeoutMs limit per invocation, 0 means no limit
	TimeoutMs int
}

// CommandDiscipline wraps an external command-line analysis tool. Only
// whitelisted commands are executed; set the whitelist through
// config.Properties, key `cmdWhitelist`, comma separated.
// Example: config.Properties.PutValue(cmdline.KeyCmdWhitelist, "ssbj_performance,python3")
type CommandDiscipline struct {
	base.BlackBox
	// Config discipline configuration
	Config CommandDisciplineConfiguration
	// CommandWhitelist allowed command list
	CommandWhitelist []string
}

// Type discipline type
func (x *CommandDiscipline) Type() string {
	return "cmd"
}

func (x *CommandDiscipline) New() types.Discipline {
	return &CommandDiscipline{}
}

// Init initializes the discipline
func (x *CommandDiscipline) Init(config types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &x.Config); err != nil {
		return err
	}
	if x.Config.Cmd == "" {
		return errors.New("cmd can not empty")
	}
	if x.Config.Name == "" {
		x.Config.Name = x.Config.Cmd
	}
	x.CommandWhitelist = strings.Split(config.Properties.GetValue(KeyCmdWhitelist), ",")
	return nil
}

// GenerateInputXML loads the deployed input template file.
func (x *CommandDiscipline) GenerateInputXML() ([]byte, error) {
	return x.loadTemplate(types.InputFileSuffix)
}

// GenerateOutputXML loads the deployed output template file.
func (x *CommandDiscipline) GenerateOutputXML() ([]byte, error) {
	return x.loadTemplate(types.OutputFileSuffix)
}

// GeneratePartialsXML loads the deployed partials template file, falling
// back to an empty document when the tool deployed none.
func (x *CommandDiscipline) GeneratePartialsXML() ([]byte, error) {
	_, _, partialsFile := core.TemplateFileNames(x.Config.TemplateDir, x.Config.Name)
	if !fs.IsFile(partialsFile) {
		return x.BlackBox.GeneratePartialsXML()
	}
	return x.loadTemplate(types.PartialsFileSuffix)
}

// SuppliesPartials reports whether the tool declared sensitivities, i.e.
// linearize arguments are configured.
func (x *CommandDiscipline) SuppliesPartials() bool {
	return len(x.Config.LinearizeArgs) > 0
}

// Execute runs the tool with the given input XML file path substituted into
// the arguments, waiting for the output XML file to be written.
func (x *CommandDiscipline) Execute(inFile, outFile string) error {
	return x.run(x.Config.Args, map[string]interface{}{
		KeyInFile:  inFile,
		KeyOutFile: outFile,
	})
}

// Linearize runs the tool with the linearize arguments.
func (x *CommandDiscipline) Linearize(inFile, partialsFile string) error {
	if !x.SuppliesPartials() {
		return x.BlackBox.Linearize(inFile, partialsFile)
	}
	return x.run(x.Config.LinearizeArgs, map[string]interface{}{
		KeyInFile:       inFile,
		KeyPartialsFile: partialsFile,
	})
}

func (x *CommandDiscipline) run(args []string, evn map[string]interface{}) error {
	if !str.Contains(x.CommandWhitelist, x.Config.Cmd) {
		return ErrCmdNotAllowed
	}
	var resolved []string
	for _, arg := range args {
		resolved = append(resolved, str.ExecuteTemplate(arg, evn))
	}
	ctx := context.Background()
	if x.Config.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(x.Config.TimeoutMs)*time.Millisecond)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, x.Config.Cmd, resolved...)
	cmd.Dir = x.Config.WorkDir
	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf
	if err := cmd.Run(); err != nil {
		if stderrBuf.Len() > 0 {
			return fmt.Errorf("%s: %w: %s", x.Config.Cmd, err, strings.TrimSpace(stderrBuf.String()))
		}
		return fmt.Errorf("%s: %w", x.Config.Cmd, err)
	}
	return nil
}

func (x *CommandDiscipline) loadTemplate(suffix string) ([]byte, error) {
	file := x.Config.Name + suffix
	if x.Config.TemplateDir != "" {
		inFile, outFile, partialsFile := core.TemplateFileNames(x.Config.TemplateDir, x.Config.Name)
		switch suffix {
		case types.InputFileSuffix:
			file = inFile
		case types.OutputFileSuffix:
			file = outFile
		default:
			file = partialsFile
		}
	}
	data := fs.LoadFile(file)
	if data == nil {
		return nil, fmt.Errorf("could not load template file %q", file)
	}
	return data, nil
}
