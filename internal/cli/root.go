// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package cli implements the scopectl command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"vawter.tech/scope"
	"vawter.tech/scope/internal/logging"
)

var (
	cfgFile string
	envFile string

	rootCmd = &cobra.Command{
		Use:   "scopectl",
		Short: "Exercise cancellable and timeout scopes.",
		Long: `scopectl drives the scope package from the command line.

The cancel command runs a worker inside a cancellable scope and stops it
by id. The timeout command runs a worker inside a scope bounded by a
deadline. The load command runs many cancellable workers concurrently
and cancels them at a bounded rate.`,
		SilenceUsage: true,
	}
)

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.scopectl.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading the environment")

	rootCmd.PersistentFlags().String("log-level", "info", "sets the log level (debug, info, warn, error)")
	cobra.CheckErr(viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level")))
	rootCmd.PersistentFlags().Bool("log-json", false, "write logs as JSON")
	cobra.CheckErr(viper.BindPFlag("log-json", rootCmd.PersistentFlags().Lookup("log-json")))
}

// initConfig reads in the config file and environment variables.
func initConfig() {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".scopectl")
	}

	// Nested keys such as "timeout.suppress" map to SCOPECTL_TIMEOUT_SUPPRESS.
	viper.SetEnvPrefix("scopectl")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// bindFlags binds every flag of a subcommand under the command's name,
// so that subcommands may reuse flag names.
func bindFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		cobra.CheckErr(viper.BindPFlag(cmd.Name()+"."+f.Name, f))
	})
}

// newLogger writes to stderr unless the command's error stream has been
// redirected.
func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	if dest := cmd.ErrOrStderr(); dest != os.Stderr && !viper.GetBool("log-json") {
		level, err := logging.ParseLevel(viper.GetString("log-level"))
		if err != nil {
			return nil, err
		}
		return logging.NewWithDest(dest, "scopectl", level), nil
	}
	return logging.New("scopectl", viper.GetString("log-level"), viper.GetBool("log-json"))
}

func printInfo(w io.Writer, info scope.Info) error {
	return json.NewEncoder(w).Encode(info)
}
