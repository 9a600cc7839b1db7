package cmd

import (
	"fmt"
	"time"

	"github.com/JacobNewton007/tus-demo/internal"
	"github.com/JacobNewton007/tus-demo/internal/events"
	"github.com/JacobNewton007/tus-demo/internal/health"
	"github.com/JacobNewton007/tus-demo/internal/media"
	"github.com/JacobNewton007/tus-demo/internal/proxy"
	"github.com/JacobNewton007/tus-demo/internal/token"
	"github.com/JacobNewton007/tus-demo/internal/upstream"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the upload proxy server",
	Long: `Runs the proxy that fronts the video-hosting API: it registers uploads
with the hosting account, forwards tus traffic to the negotiated upload
links, and keeps the account access token server-side.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServer() error {
	sc := cfg.Server
	if sc.APIKey == "" || sc.TokenSecret == "" {
		return fmt.Errorf("server.apiKey and server.tokenSecret must be configured")
	}
	if cfg.Upstream.AccessToken == "" {
		return fmt.Errorf("upstream.accessToken must be configured")
	}

	maxFileSize, err := sc.MaxFileSizeBytes()
	if err != nil {
		return fmt.Errorf("invalid server.maxFileSize: %w", err)
	}
	maxRequestBody, err := sc.MaxRequestBodyBytes()
	if err != nil {
		return fmt.Errorf("invalid server.maxRequestBody: %w", err)
	}

	db, err := internal.NewDB(sc.RegistryDriver, sc.RegistryDSN, sc.MigrationsPath)
	if err != nil {
		return fmt.Errorf("failed to initialize media registry: %w", err)
	}
	defer db.Close()

	tokenService := token.NewService(sc.APIKey, sc.TokenSecret, sc.TokenTTL())
	tokenEndpoints := token.NewEndpoints(tokenService)

	hosting := upstream.NewClient(upstream.Config{
		BaseURL:     cfg.Upstream.BaseURL,
		AccessToken: cfg.Upstream.AccessToken,
		Timeout:     cfg.Upstream.Timeout(),
		RetryMax:    cfg.Upstream.RetryMax,
	})

	hub := events.NewHub()
	go hub.Run()

	mediaService := media.NewService(media.NewRepository(db), hosting, hub, maxFileSize)
	mediaEndpoints := media.NewEndpoints(mediaService, sc.ExternalURL)

	proxyClient := &fasthttp.Client{
		ReadTimeout:  cfg.Upstream.Timeout(),
		WriteTimeout: cfg.Upstream.Timeout(),
	}
	proxyHandler := proxy.NewHandler(mediaService, proxyClient, sc.ExternalURL, cfg.Upstream.AccessToken, maxFileSize)

	healthEndpoints := health.NewEndpoints(version, db)
	wsHandler := events.NewHandler(hub, tokenService)

	requestHandler := internal.NewRequestHandler(cfg, tokenService, tokenEndpoints, mediaEndpoints, proxyHandler, healthEndpoints, wsHandler)

	server := &fasthttp.Server{
		Handler:            requestHandler,
		MaxRequestBodySize: int(maxRequestBody),
		ReadTimeout:        5 * time.Minute,
		WriteTimeout:       5 * time.Minute,
	}

	log.Info().Str("listen", sc.Listen).Str("upstream", cfg.Upstream.BaseURL).Msg("Starting upload proxy")
	if err := server.ListenAndServe(sc.Listen); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
