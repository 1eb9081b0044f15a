package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/audiocore/internal/contextshim/malgo"
)

func devicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List playback devices known to the native backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := malgo.EnumerateDevices()
			if err != nil {
				return fmt.Errorf("enumerate devices: %w", err)
			}
			if len(devices) == 0 {
				fmt.Println("No playback devices found.")
				return nil
			}
			for _, d := range devices {
				fmt.Printf("  %d: %s (ID: %s)\n", d.Index, d.Name, d.ID)
			}
			return nil
		},
	}
}
