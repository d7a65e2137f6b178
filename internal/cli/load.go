// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"vawter.tech/scope"
	"vawter.tech/scope/limit"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Run many cancellable workers and cancel them at a bounded rate.",
	Long: `Run --workers cancellable workers, at most --concurrency at a time,
and cancel each of them by id at no more than --rate signals per second.
Workers with a positive --lifetime may finish before they are cancelled.`,
	Args: cobra.NoArgs,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().Int("workers", 100, "number of workers to run")
	loadCmd.Flags().Int("concurrency", 16, "maximum number of workers running at once")
	loadCmd.Flags().Float64("rate", 200, "cancellation signals per second")
	loadCmd.Flags().Int("burst", 1, "maximum burst of cancellation signals")
	loadCmd.Flags().Duration("lifetime", 0, "time after which a worker finishes on its own; zero waits for cancellation")
	loadCmd.Flags().Bool("suppress", true, "absorb the cancellations")
	bindFlags(loadCmd)
	rootCmd.AddCommand(loadCmd)
}

// loadSummary is printed when the load command finishes.
type loadSummary struct {
	Workers   int    `json:"workers"`
	Cancelled int64  `json:"cancelled"`
	Completed int64  `json:"completed"`
	Elapsed   string `json:"elapsed"`
}

func runLoad(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	workers := viper.GetInt("load.workers")
	concurrency := viper.GetInt("load.concurrency")
	if workers <= 0 || concurrency <= 0 {
		return fmt.Errorf("workers (%d) and concurrency (%d) must be positive", workers, concurrency)
	}
	lifetime := viper.GetDuration("load.lifetime")
	suppress := viper.GetBool("load.suppress")

	reg := scope.NewRegistry(scope.WithLogger(logger))
	gate := limit.NewGate(concurrency)
	sig := limit.NewSignaler(reg, viper.GetFloat64("load.rate"), viper.GetInt("load.burst"))

	ids := make([]string, workers)
	for i := range ids {
		ids[i] = uuid.NewString()
	}

	var cancelled, completed atomic.Int64
	var finished sync.Map
	start := time.Now()

	eg, ctx := errgroup.WithContext(cmd.Context())
	for _, id := range ids {
		eg.Go(func() error {
			defer finished.Store(id, struct{}{})

			c := scope.NewCancellable(reg, id, scope.WithName("load"), scope.WithSuppress(suppress))
			err := gate.Run(ctx, c, func(s *scope.Scope) error {
				var err error
				if lifetime > 0 {
					err = scope.Sleep(s, lifetime)
				} else {
					<-s.Done()
					err = s.Err()
				}
				switch {
				case err == nil:
					completed.Add(1)
				case s.IsStopping():
					cancelled.Add(1)
				}
				return err
			})
			// Unsuppressed cancellations are expected here.
			if scope.Classify(err) == scope.ConditionCancelled {
				return nil
			}
			return err
		})
	}

	eg.Go(func() error {
		pending := ids
		for len(pending) > 0 {
			next := pending[:0]
			for _, id := range pending {
				ok, err := sig.Signal(ctx, id)
				if err != nil {
					return err
				}
				if _, done := finished.Load(id); !ok && !done {
					// Still waiting at the gate.
					next = append(next, id)
				}
			}
			if len(next) == len(pending) {
				if err := scope.Sleep(ctx, time.Millisecond); err != nil {
					return err
				}
			}
			pending = next
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		return err
	}
	if n := reg.Len(); n != 0 {
		return fmt.Errorf("%d scope(s) still registered: %v", n, reg.IDs())
	}

	summary := loadSummary{
		Workers:   workers,
		Cancelled: cancelled.Load(),
		Completed: completed.Load(),
		Elapsed:   time.Since(start).String(),
	}
	logger.Info("load finished",
		zap.Int("workers", summary.Workers),
		zap.Int64("cancelled", summary.Cancelled),
		zap.Int64("completed", summary.Completed),
	)
	return json.NewEncoder(cmd.OutOrStdout()).Encode(summary)
}
