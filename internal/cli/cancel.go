// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"vawter.tech/scope"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Run a worker in a cancellable scope and cancel it by id.",
	Long: `Run a worker in a cancellable scope and cancel it by id once the
--after delay elapses. An interrupt signal cancels the worker early.`,
	Args: cobra.NoArgs,
	RunE: runCancel,
}

func init() {
	cancelCmd.Flags().String("id", "", "subscriber id (default is a random UUID)")
	cancelCmd.Flags().Duration("after", 3*time.Second, "delay before the scope is cancelled")
	cancelCmd.Flags().Duration("tick", time.Second, "interval between worker iterations")
	cancelCmd.Flags().Bool("suppress", true, "absorb the cancellation")
	bindFlags(cancelCmd)
	rootCmd.AddCommand(cancelCmd)
}

func runCancel(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	id := viper.GetString("cancel.id")
	if id == "" {
		id = uuid.NewString()
	}
	after := viper.GetDuration("cancel.after")
	tick := viper.GetDuration("cancel.tick")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	reg := scope.NewRegistry(scope.WithLogger(logger))
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)
	scope.SignalOnReceive(ctx, reg, id, sigs)

	s, err := scope.NewCancellable(reg, id,
		scope.WithName("cancel"),
		scope.WithSuppress(viper.GetBool("cancel.suppress")),
	).Enter(ctx)
	if err != nil {
		return err
	}

	go func() {
		select {
		case <-time.After(after):
			logger.Info("cancel requested", zap.String("id", id))
			scope.CancelContext(reg, id)
		case <-s.Done():
		}
	}()

	err = s.Exit(work(logger, tick, 0)(s))
	if printErr := printInfo(cmd.OutOrStdout(), s.Info()); printErr != nil {
		return printErr
	}
	return err
}

// work returns a worker that logs once per tick. If limit is positive,
// the worker finishes after that much time has elapsed.
func work(logger *zap.Logger, tick, limit time.Duration) scope.Func {
	return func(s *scope.Scope) error {
		start := time.Now()
		for i := 0; ; i++ {
			logger.Info("worker running", zap.String("id", s.ID()), zap.Int("iteration", i))

			wait := tick
			if limit > 0 {
				remaining := limit - time.Since(start)
				if remaining <= 0 {
					return nil
				}
				wait = min(wait, remaining)
			}
			if err := scope.Sleep(s, wait); err != nil {
				return err
			}
		}
	}
}
