/*
Copyright 2024 Sentro Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sentrohq/sentro"
	"github.com/sentrohq/sentro/config"
	"github.com/sentrohq/sentro/database"
	"github.com/sentrohq/sentro/internal/notification"
)

// Sentro represents the CLI application, encapsulating the root Cobra
// command.
type Sentro struct {
	cmd *cobra.Command
}

// sentroInstance holds the service instance and its configuration for
// the subcommands.
type sentroInstance struct {
	sentro *sentro.Sentro
	cnf    *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and initializes the service before
// any subcommand runs.
func preRun(app *sentroInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("sentro.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newSentro, err := setupSentro(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.sentro = newSentro
		app.cnf = cnf

		return nil
	}
}

// setupSentro connects the datasource and builds the service instance.
func setupSentro(cfg *config.Configuration) (*sentro.Sentro, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newSentro, err := sentro.NewSentro(db)
	if err != nil {
		return nil, fmt.Errorf("error creating sentro: %v", err)
	}
	return newSentro, nil
}

// NewCLI sets up the root command and the server, workers and migrate
// subcommands.
func NewCLI() *Sentro {
	var configFile string
	b := &sentroInstance{}

	var rootCmd = &cobra.Command{
		Use:   "sentro",
		Short: "Municipal service counter queue backend",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./sentro.json", "Configuration file for sentro")

	rootCmd.PersistentPreRunE = preRun(b)

	rootCmd.AddCommand(serverCommands(b))
	rootCmd.AddCommand(workerCommands(b))
	rootCmd.AddCommand(migrateCommands(b))

	return &Sentro{cmd: rootCmd}
}

func (w Sentro) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
