// Command corebench exercises the audio core outside of a real host: it
// enumerates playback devices, drives the render pipeline into in-memory
// output buffers from a synthetic tone source, loads WAV files through the async
// decode cache, and runs representative tasks through the worker pool.
// It is a bench/smoke tool, not a player.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/audiocore/internal/buildinfo"
	"github.com/tphakala/audiocore/internal/config"
	"github.com/tphakala/audiocore/internal/logging"
	"github.com/tphakala/audiocore/internal/metrics"
)

// version and buildDate are set at link time via
//
//	go build -ldflags "-X main.version=... -X main.buildDate=..."
//
// Left at their zero value for a plain `go build`, in which case
// buildinfo.Context reports buildinfo.UnknownValue for both.
var (
	version   = ""
	buildDate = ""
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var cfg *config.Config
	build := buildinfo.NewContext(version, buildDate, buildinfo.DetectSystemID())

	root := &cobra.Command{
		Use:     "corebench",
		Short:   "Audio core bench and smoke-test CLI",
		Version: build.GetVersion(),
	}

	v := viper.New()
	if err := setupFlags(root, v); err != nil {
		log.Printf("error setting up flags: %v\n", err)
	}

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logging.Init()
		metrics.InitGlobal(prometheus.NewRegistry())
		metrics.Global().RecordBuildInfo(build)

		fmt.Fprintf(os.Stderr, "corebench version=%s built=%s system=%s\n",
			build.GetVersion(), build.GetBuildDate(), build.GetSystemID())

		loaded, err := config.Load(v)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		return nil
	}

	root.AddCommand(
		devicesCommand(),
		renderCommand(&cfg),
		loadCommand(&cfg),
		workersCommand(&cfg),
	)

	return root
}

func setupFlags(root *cobra.Command, v *viper.Viper) error {
	root.PersistentFlags().Int("sample-rate", 48000, "output sample rate in Hz")
	root.PersistentFlags().Int("channels", 2, "output channel count")
	root.PersistentFlags().Int("block-size", 512, "render block length in frames")
	root.PersistentFlags().Bool("bypass-unity-bands", true, "skip EQ bands configured at 0 dB gain")
	root.PersistentFlags().Bool("spectrum-on-audio-thread", false, "run the FFT inline on the render call instead of off-thread")

	if err := v.BindPFlag("audio.sample_rate", root.PersistentFlags().Lookup("sample-rate")); err != nil {
		return err
	}
	if err := v.BindPFlag("audio.channel_count", root.PersistentFlags().Lookup("channels")); err != nil {
		return err
	}
	if err := v.BindPFlag("audio.block_size", root.PersistentFlags().Lookup("block-size")); err != nil {
		return err
	}
	if err := v.BindPFlag("eq.bypass_unity_bands", root.PersistentFlags().Lookup("bypass-unity-bands")); err != nil {
		return err
	}
	if err := v.BindPFlag("spectrum.run_on_audio_thread", root.PersistentFlags().Lookup("spectrum-on-audio-thread")); err != nil {
		return err
	}
	return nil
}
