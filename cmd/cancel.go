package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <record-id>",
	Short: "Cancel an in-flight upload and release the upstream asset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := signalContext()

		apiClient, err := authedClient(ctx)
		if err != nil {
			return err
		}

		m, err := apiClient.CancelMedia(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Cancelled %s (%s)\n", m.ID, m.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}
