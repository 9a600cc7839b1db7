package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/JacobNewton007/tus-demo/internal/api"
	"github.com/JacobNewton007/tus-demo/internal/uploader"
	"github.com/docker/go-units"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type UploadFlags struct {
	FilePath string
	Token    string
	NoResume bool
}

var uploadFlags UploadFlags

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload a file through the proxy",
	Long: `Uploads a file to the video-hosting API through the proxy using the tus
resumable upload protocol. Interrupting the upload (Ctrl-C) keeps it
resumable: running the same command again continues from the last
acknowledged offset.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if uploadFlags.FilePath == "" {
			return fmt.Errorf("--file is required")
		}
		info, err := os.Stat(uploadFlags.FilePath)
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", uploadFlags.FilePath, err)
		}
		if info.IsDir() {
			return fmt.Errorf("%s is a directory", uploadFlags.FilePath)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUpload()
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().StringVarP(&uploadFlags.FilePath, "file", "f", "", "Path to the file to upload (required)")
	uploadCmd.Flags().StringVar(&uploadFlags.Token, "token", "", "Upload token (issued from the API key when omitted)")
	uploadCmd.Flags().BoolVar(&uploadFlags.NoResume, "no-resume", false, "Start from scratch instead of resuming")

	uploadCmd.MarkFlagRequired("file")
}

func runUpload() error {
	ctx := signalContext()

	chunkSize, err := cfg.Client.ChunkSizeBytes()
	if err != nil {
		return fmt.Errorf("invalid client.chunkSize: %w", err)
	}
	retryDelays, err := cfg.Client.ParsedRetryDelays()
	if err != nil {
		return err
	}

	apiClient := api.NewClient(cfg.Client.Endpoint, uploadFlags.Token)
	if uploadFlags.Token == "" {
		if cfg.Client.APIKey == "" {
			return fmt.Errorf("either --token or client.apiKey must be set")
		}
		if _, err := apiClient.IssueToken(ctx, cfg.Client.APIKey); err != nil {
			return fmt.Errorf("failed to obtain upload token: %w", err)
		}
	}

	resume := cfg.Client.Resume && !uploadFlags.NoResume
	up, err := uploader.New(uploader.Options{
		Endpoint:    cfg.Client.Endpoint,
		Token:       apiClient.Token(),
		ChunkSize:   chunkSize,
		RetryDelays: retryDelays,
		Resume:      resume,
		StorePath:   cfg.Client.StorePath,
	})
	if err != nil {
		return err
	}
	defer up.Close()

	info, err := os.Stat(uploadFlags.FilePath)
	if err != nil {
		return err
	}

	bar := newUploadBar(filepath.Base(uploadFlags.FilePath), info.Size())
	progress := make(chan uploader.Progress, 16)
	barDone := make(chan struct{})
	go func() {
		defer close(barDone)
		for p := range progress {
			_ = bar.Set64(p.Offset)
		}
	}()

	started := time.Now()
	result, err := up.Upload(ctx, uploadFlags.FilePath, progress)
	close(progress)
	<-barDone

	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr)
			log.Info().Msg("Upload aborted; run the same command again to resume")
			return nil
		}
		return err
	}

	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)

	elapsed := time.Since(started).Round(time.Millisecond)
	fmt.Printf("Uploaded %s (%s) in %s\n", filepath.Base(uploadFlags.FilePath), units.HumanSize(float64(info.Size())), elapsed)

	m, err := apiClient.GetMedia(ctx, result.RecordID)
	if err != nil {
		log.Warn().Err(err).Msg("Upload finished but fetching the media record failed")
		fmt.Printf("Record ID: %s\n", result.RecordID)
		return nil
	}

	fmt.Printf("Record ID: %s\n", m.ID)
	fmt.Printf("Media ID:  %s\n", m.MediaID)
	fmt.Printf("Status:    %s\n", m.Status)
	return nil
}

func newUploadBar(filename string, totalBytes int64) *progressbar.ProgressBar {
	return progressbar.NewOptions64(totalBytes,
		progressbar.OptionSetDescription(fmt.Sprintf("Uploading %s", filename)),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(false),
	)
}
