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

// Command openlego runs, deploys and serves disciplines from the command
// line. Disciplines are described in a yaml configuration file; see the
// config flag.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/openlego/openlego"
	"github.com/openlego/openlego/api/types"
	"github.com/openlego/openlego/core"
	"github.com/openlego/openlego/endpoint/rest"
	"github.com/openlego/openlego/utils/fs"
	"github.com/openlego/openlego/utils/xmlutils"
)

var (
	configFile string
	pluginFile string
)

func main() {
	root := &cobra.Command{
		Use:           "openlego",
		Short:         "Adapt analysis tools to XML-file based optimization frameworks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "yaml configuration file")
	root.PersistentFlags().StringVar(&pluginFile, "plugin", "", "Go plugin file providing extra discipline types")

	root.AddCommand(newRunCmd(), newDeployCmd(), newListCmd(), newServeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads the yaml configuration and the optional plugin flag
func setup() (AppConfig, types.Config, error) {
	app, err := loadAppConfig(configFile)
	if err != nil {
		return app, types.Config{}, err
	}
	if pluginFile != "" {
		app.Plugins = append(app.Plugins, PluginConfig{Name: pluginFile, File: pluginFile})
	}
	config, err := buildConfig(app)
	return app, config, err
}

func newRunCmd() *cobra.Command {
	var (
		inFile  string
		outFile string
		merge   bool
		test    bool
	)
	cmd := &cobra.Command{
		Use:   "run <discipline>",
		Short: "Execute a discipline on an input XML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, config, err := setup()
			if err != nil {
				return err
			}
			defer closeRecorder(config)
			discipline, err := newDiscipline(config, findDiscipline(app, args[0]))
			if err != nil {
				return err
			}
			defer discipline.Destroy()

			if test {
				// run against the discipline's own input template
				template, err := discipline.GenerateInputXML()
				if err != nil {
					return err
				}
				if inFile == "" {
					inFile = "__test__" + args[0] + "_input.xml"
				}
				if err = fs.SaveFile(inFile, template); err != nil {
					return err
				}
			}
			if inFile == "" {
				return fmt.Errorf("either --in or --test is required")
			}
			if outFile == "" {
				outFile = args[0] + types.OutputFileSuffix
			}
			if err = discipline.Execute(inFile, outFile); err != nil {
				return err
			}
			if merge {
				// combine the input document with the outputs, output wins
				if err = xmlutils.MergeInto(inFile, outFile, outFile); err != nil {
					return err
				}
			}
			cmd.Printf("wrote %s\n", outFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&inFile, "in", "", "input XML file")
	cmd.Flags().StringVar(&outFile, "out", "", "output XML file, defaults to <discipline>-output.xml")
	cmd.Flags().BoolVar(&merge, "merge", false, "merge the input XML into the output XML file")
	cmd.Flags().BoolVar(&test, "test", false, "use the discipline's input template as input")
	return cmd
}

func newDeployCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "deploy <discipline>",
		Short: "Write a discipline's template XML files to a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, config, err := setup()
			if err != nil {
				return err
			}
			defer closeRecorder(config)
			discipline, err := newDiscipline(config, findDiscipline(app, args[0]))
			if err != nil {
				return err
			}
			defer discipline.Destroy()
			if err = core.Deploy(discipline, dir, args[0]); err != nil {
				return err
			}
			cmd.Printf("deployed templates for %s to %s\n", args[0], dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "target folder")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List discipline types and configured disciplines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, _, err := setup()
			if err != nil {
				return err
			}
			var disciplineTypes []string
			for disciplineType := range openlego.Registry.GetDisciplines() {
				disciplineTypes = append(disciplineTypes, disciplineType)
			}
			sort.Strings(disciplineTypes)
			cmd.Println("discipline types:")
			for _, t := range disciplineTypes {
				cmd.Printf("  %s\n", t)
			}
			if len(app.Disciplines) > 0 {
				cmd.Println("configured disciplines:")
				for _, d := range app.Disciplines {
					cmd.Printf("  %s (%s)\n", d.Name, d.Type)
				}
			}
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	var (
		addr     string
		certFile string
		keyFile  string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured disciplines over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, config, err := setup()
			if err != nil {
				return err
			}
			defer closeRecorder(config)
			if addr != "" {
				app.Server.Addr = addr
			}
			if app.Server.Addr == "" {
				app.Server.Addr = ":9090"
			}
			if certFile != "" {
				app.Server.CertFile = certFile
			}
			if keyFile != "" {
				app.Server.CertKeyFile = keyFile
			}
			if app.Server.DataFolder == "" {
				app.Server.DataFolder = config.DataFolder
			}
			server := rest.New(app.Server, types.WithLogger(config.Logger))
			for _, dc := range app.Disciplines {
				discipline, err := newDiscipline(config, dc)
				if err != nil {
					server.Stop()
					return err
				}
				server.AddDiscipline(dc.Name, discipline)
			}
			defer server.Stop()
			return server.Start()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides the configuration")
	cmd.Flags().StringVar(&certFile, "cert", "", "TLS certificate file")
	cmd.Flags().StringVar(&keyFile, "key", "", "TLS key file")
	return cmd
}

func closeRecorder(config types.Config) {
	if config.Recorder != nil {
		_ = config.Recorder.Close()
	}
}
