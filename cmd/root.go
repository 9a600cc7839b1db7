package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/JacobNewton007/tus-demo/internal"
	"github.com/JacobNewton007/tus-demo/internal/api"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const version = "1.0.0"

var (
	cfg     *internal.Config
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tus-demo",
	Short: "Resumable video uploads through a credential-hiding proxy",
	Long: `tus-demo uploads videos to a third-party hosting API using the tus
resumable upload protocol, proxied through a server that injects the account
credential so it never reaches upload clients.

Run the proxy:      tus-demo serve
Upload a file:      tus-demo upload --file movie.mp4
Check an upload:    tus-demo status <id>`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

		var err error
		cfg, err = internal.LoadConfig(cfgFile)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is files/config.yaml)")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// authedClient returns a proxy API client holding a fresh upload token.
func authedClient(ctx context.Context) (*api.Client, error) {
	apiClient := api.NewClient(cfg.Client.Endpoint, "")
	if cfg.Client.APIKey == "" {
		return nil, fmt.Errorf("client.apiKey must be configured")
	}
	if _, err := apiClient.IssueToken(ctx, cfg.Client.APIKey); err != nil {
		return nil, fmt.Errorf("failed to obtain upload token: %w", err)
	}
	return apiClient, nil
}

// signalContext returns a context cancelled by SIGINT/SIGTERM, so a running
// upload aborts between chunks and stays resumable.
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received interrupt signal, shutting down...")
		cancel()
	}()

	return ctx
}
