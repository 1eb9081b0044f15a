package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/audiocore/internal/config"
	"github.com/tphakala/audiocore/internal/metrics"
	"github.com/tphakala/audiocore/internal/wasmpool"
)

func workersCommand(cfg **config.Config) *cobra.Command {
	var taskCount int

	cmd := &cobra.Command{
		Use:   "workers",
		Short: "Submit representative tasks through the worker pool and report stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkersBench(*cfg, taskCount)
		},
	}

	cmd.Flags().IntVarP(&taskCount, "tasks", "n", 64, "number of tasks to submit")
	return cmd
}

func runWorkersBench(cfg *config.Config, taskCount int) error {
	pool := wasmpool.NewPool()
	defer pool.Close()
	ctx := context.Background()
	if err := pool.EnsureInitialized(ctx, int(cfg.Workers.TargetCount)); err != nil {
		return fmt.Errorf("initialize worker pool: %w", err)
	}

	start := time.Now()
	futures := make([]*wasmpool.Future, taskCount)
	for i := 0; i < taskCount; i++ {
		i := i
		futures[i] = pool.Submit(ctx, &wasmpool.Task{
			Kind: wasmpool.TaskFFT,
			Run: func(ctx context.Context) (any, error) {
				return i * i, nil
			},
		})
	}
	for _, fut := range futures {
		if _, err := fut.Wait(ctx); err != nil {
			return fmt.Errorf("task failed: %w", err)
		}
	}
	elapsed := time.Since(start)

	stats := pool.StatsSnapshot()
	metrics.Global().RecordWorkerPool(stats)

	fmt.Printf("Submitted %d tasks in %s\n", taskCount, elapsed)
	fmt.Printf("  workers=%d degraded=%v saturated=%d completed=%d\n",
		stats.WorkerCount, stats.Degraded, stats.SaturatedCount, stats.CompletedCount)
	return nil
}
