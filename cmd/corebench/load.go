package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/audiocore/internal/config"
	"github.com/tphakala/audiocore/internal/loader"
)

func loadCommand(cfg **config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "load <wav-file> [more-files...]",
		Short: "Load one or more WAV files through the async decode cache",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoadBench(*cfg, args)
		},
	}
}

func runLoadBench(cfg *config.Config, paths []string) error {
	cache := loader.NewDecodeCache(cfg.Cache)
	asyncLoader := loader.NewAsyncLoader(cfg.Loader, cache)

	ctx := context.Background()
	for _, path := range paths {
		start := time.Now()
		fut := asyncLoader.Load(ctx, path, func(progress float64) {
			fmt.Printf("\r  %s: %.0f%%", path, progress*100)
		})

		artifact, err := fut.Wait(ctx)
		fmt.Println()
		if err != nil {
			fmt.Printf("  %s: failed: %v\n", path, err)
			continue
		}

		fmt.Printf("  %s: %d channels, %d Hz, loaded in %s\n",
			path, artifact.Channels, artifact.SampleRate, time.Since(start))
	}

	fmt.Printf("Cache resident entries: %d\n", cache.Len())
	return nil
}
