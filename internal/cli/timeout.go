// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"vawter.tech/scope"
)

var timeoutCmd = &cobra.Command{
	Use:   "timeout",
	Short: "Run a worker in a scope bounded by a deadline.",
	Long: `Run a worker in a scope bounded by --timeout. A non-positive timeout
disables the deadline. A worker with --work set to zero runs until it is
stopped.`,
	Args: cobra.NoArgs,
	RunE: runTimeout,
}

func init() {
	timeoutCmd.Flags().Duration("timeout", 3*time.Second, "deadline for the worker; non-positive disables it")
	timeoutCmd.Flags().Duration("work", 0, "time the worker needs to finish; zero runs forever")
	timeoutCmd.Flags().Duration("tick", time.Second, "interval between worker iterations")
	timeoutCmd.Flags().Bool("suppress", true, "absorb the timeout")
	bindFlags(timeoutCmd)
	rootCmd.AddCommand(timeoutCmd)
}

func runTimeout(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	limit := viper.GetDuration("timeout.work")
	if limit <= 0 && viper.GetDuration("timeout.timeout") <= 0 {
		logger.Warn("worker has no deadline and no work limit; it will run until interrupted")
	}

	s, err := scope.NewTimeout(viper.GetDuration("timeout.timeout"),
		scope.WithLogger(logger),
		scope.WithSuppress(viper.GetBool("timeout.suppress")),
	).Enter(cmd.Context())
	if err != nil {
		return err
	}

	err = s.Exit(work(logger, viper.GetDuration("timeout.tick"), limit)(s))
	if printErr := printInfo(cmd.OutOrStdout(), s.Info()); printErr != nil {
		return printErr
	}
	return err
}
