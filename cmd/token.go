package cmd

import (
	"fmt"
	"time"

	"github.com/JacobNewton007/tus-demo/internal/api"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an upload token from the configured API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := signalContext()

		if cfg.Client.APIKey == "" {
			return fmt.Errorf("client.apiKey must be configured")
		}

		apiClient := api.NewClient(cfg.Client.Endpoint, "")
		issued, err := apiClient.IssueToken(ctx, cfg.Client.APIKey)
		if err != nil {
			return err
		}

		fmt.Println(issued.Token)
		fmt.Fprintf(cmd.ErrOrStderr(), "Expires at %s\n", time.Unix(issued.ExpiresAt, 0).Format(time.RFC3339))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}
