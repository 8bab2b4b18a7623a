/*
Copyright © 2025 riad@rsworld.eu

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
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"hourgrid/config"
	"hourgrid/internal/logging"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hourgrid",
	Short: "Log, import, and export monthly work hours against WebOffice tasks.",
	Long: `
**********************************************
*                HOURGRID                    *
**********************************************

This CLI keeps a (task x day) grid of logged hours for one month in sync with
the WebOffice backend. It serves a local JSON API for grid editing, imports
tracked durations from the backend or from CSV/Excel/atWork files, and exports
the month grid to CSV or Excel.

Supported import formats:
- Excel: .xlsx, .xlsm, .xls
- CSV: .csv
- atWork: UTF-16 tab separated export
`,
	Example: `
  # Create configuration file
  hourgrid config create

  # Start the local grid API for the current month
  hourgrid serve

  # Preview an import of tracked durations from the backend
  hourgrid import --month 2026-03

  # Import a tracker CSV and submit the staged cells
  hourgrid import --month 2026-03 -i ./tracked.csv --commit

  # Export the month grid to Excel
  hourgrid export --month 2026-03 --output ./2026-03.xlsx
`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	config.SetDefaults()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "configFile", "", "Config file override (default discovery: $HOME/.hourgrid.yaml, then ./.hourgrid.yaml)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if !requiresConfig(cmd) {
			return nil
		}

		_, err := config.LoadAndValidate()
		return err
	}
}

func requiresConfig(cmd *cobra.Command) bool {
	if cmd == nil {
		return false
	}
	switch cmd.Name() {
	case "serve", "import", "export":
		return true
	default:
		return false
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".hourgrid" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".hourgrid")
	}

	viper.SetEnvPrefix("HOURGRID")
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintln(os.Stderr, "No config file found. Create one first with: hourgrid config create")
	}
}

// newLogger builds the command logger from the log section of cfg. The
// returned closer flushes the rotating log file, if any.
func newLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	return logging.New(logging.Options{
		File:       cfg.Log.File,
		Level:      cfg.Log.Level,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
}
