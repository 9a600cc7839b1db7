package cmd

import (
	"fmt"

	"github.com/JacobNewton007/tus-demo/internal/media"
	"github.com/docker/go-units"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <record-id>",
	Short: "Show an upload's registry record and upstream state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := signalContext()

		apiClient, err := authedClient(ctx)
		if err != nil {
			return err
		}

		m, err := apiClient.GetMedia(ctx, args[0])
		if err != nil {
			return err
		}

		printMedia(m)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func printMedia(m *media.Media) {
	fmt.Printf("Record ID:   %s\n", m.ID)
	fmt.Printf("Media ID:    %s\n", m.MediaID)
	fmt.Printf("Name:        %s\n", m.Name)
	fmt.Printf("Status:      %s\n", m.Status)
	fmt.Printf("Progress:    %s / %s (%d%%)\n",
		units.HumanSize(float64(m.OffsetBytes)),
		units.HumanSize(float64(m.SizeBytes)),
		percent(m.OffsetBytes, m.SizeBytes))
	if m.UpstreamStatus != "" {
		fmt.Printf("Upstream:    %s\n", m.UpstreamStatus)
	}
	if m.Reason != "" {
		fmt.Printf("Reason:      %s\n", m.Reason)
	}
}

func percent(offset, size int64) int64 {
	if size <= 0 {
		return 0
	}
	return offset * 100 / size
}
