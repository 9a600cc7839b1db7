package uploader

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/eventials/go-tus"
	"github.com/hashicorp/go-retryablehttp"
)

// Options mirrors the knobs the upload library exposes: chunk size, the
// retry delay list, resumability and abort. Everything else — offsets,
// chunking, fingerprints — is the library's business.
type Options struct {
	Endpoint    string
	Token       string
	ChunkSize   int64
	RetryDelays []time.Duration
	Resume      bool
	StorePath   string
}

type Progress struct {
	Offset   int64
	Size     int64
	Finished bool
}

type Result struct {
	RecordID  string
	UploadURL string
}

type Uploader struct {
	opts  Options
	store *FingerprintStore
}

func New(opts Options) (*Uploader, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}

	var store *FingerprintStore
	if opts.Resume {
		if opts.StorePath == "" {
			return nil, fmt.Errorf("resume requires a store path")
		}
		var err error
		store, err = NewFingerprintStore(opts.StorePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open resume store: %w", err)
		}
	}

	return &Uploader{opts: opts, store: store}, nil
}

func (u *Uploader) Close() {
	if u.store != nil {
		u.store.Close()
	}
}

// Upload sends the file through the proxy's tus endpoint. Progress updates
// are delivered on the given channel if non-nil. Cancelling the context
// aborts the upload between chunks; the fingerprint stays in the resume
// store so a later run picks up where this one stopped.
func (u *Uploader) Upload(ctx context.Context, path string, progress chan<- Progress) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	config := tus.DefaultConfig()
	config.Resume = u.opts.Resume
	if u.opts.ChunkSize > 0 {
		config.ChunkSize = u.opts.ChunkSize
	}
	if u.store != nil {
		config.Store = u.store
	}
	config.Header.Set("Authorization", "Bearer "+u.opts.Token)
	config.HttpClient = newRetryClient(u.opts.RetryDelays)

	client, err := tus.NewClient(strings.TrimSuffix(u.opts.Endpoint, "/")+"/tus", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create tus client: %w", err)
	}

	upload, err := tus.NewUploadFromFile(f)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare upload: %w", err)
	}
	upload.Metadata["filename"] = filepath.Base(path)
	if contentType := mime.TypeByExtension(filepath.Ext(path)); contentType != "" {
		upload.Metadata["filetype"] = contentType
	}

	var uploader *tus.Uploader
	if u.opts.Resume {
		uploader, err = client.CreateOrResumeUpload(upload)
	} else {
		uploader, err = client.CreateUpload(upload)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to start upload: %w", err)
	}

	// Buffered so the library's broadcast goroutine is never left blocked
	// on its final send after the forwarding goroutine exits.
	notifications := make(chan tus.Upload, 1)
	uploader.NotifyUploadProgress(notifications)

	// The forwarding goroutine must be gone before Upload returns so the
	// caller may close its progress channel.
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	defer wg.Wait()
	defer close(done)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				uploader.Abort()
				return
			case state := <-notifications:
				if progress == nil {
					continue
				}
				select {
				case progress <- Progress{Offset: state.Offset(), Size: state.Size(), Finished: state.Finished()}:
				default:
					// Slow consumer; the next notification carries a fresher offset.
				}
			case <-done:
				return
			}
		}
	}()

	if err := uploader.Upload(); err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	if ctx.Err() != nil {
		// Aborted between chunks. The fingerprint stays stored for resume.
		return nil, ctx.Err()
	}

	// The library's broadcast of the last chunk may still be in flight, so
	// deliver the final state directly instead of racing for it.
	if progress != nil {
		select {
		case progress <- Progress{Offset: upload.Offset(), Size: upload.Size(), Finished: upload.Finished()}:
		default:
		}
	}

	if u.store != nil {
		u.store.Delete(upload.Fingerprint)
	}

	uploadURL := uploader.Url()
	return &Result{
		RecordID:  recordIDFromURL(uploadURL),
		UploadURL: uploadURL,
	}, nil
}

// newRetryClient implements the retry delay list: one retry per entry, each
// waiting the configured delay.
func newRetryClient(delays []time.Duration) *http.Client {
	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = len(delays)
	if len(delays) > 0 {
		rc.Backoff = func(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
			if attemptNum >= len(delays) {
				return delays[len(delays)-1]
			}
			return delays[attemptNum]
		}
	}
	return rc.StandardClient()
}

func recordIDFromURL(url string) string {
	trimmed := strings.TrimSuffix(url, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return trimmed
	}
	return trimmed[idx+1:]
}
