package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/c2h5oh/datasize"
	"golang.org/x/sync/errgroup"

	"github.com/putioarr/putioarr/internal/diskspace"
	"github.com/putioarr/putioarr/internal/logging"
)

const (
	// downloadStallTimeout aborts a stream when no bytes arrive for this long.
	downloadStallTimeout = 60 * time.Second

	downloadBufferSize = 64 * 1024

	// diskSpaceMargin keeps 10% headroom when checking free space.
	diskSpaceMargin = 1.1
)

// result reports one finished target back to the orchestrator.
type result struct {
	target DownloadTarget
	err    error
}

// Pool downloads targets with a fixed number of workers over a bounded queue.
type Pool struct {
	cloud      Cloud
	logger     *logging.Logger
	httpClient *http.Client
	uid        int
	workers    int

	queue   chan DownloadTarget
	results chan result
	group   *errgroup.Group
}

// NewPool creates a worker pool. queueDepth bounds how many targets can sit
// waiting; Enqueue blocks when full, which backpressures expansion.
func NewPool(cloud Cloud, logger *logging.Logger, uid, workers, queueDepth int) *Pool {
	return &Pool{
		cloud:  cloud,
		logger: logger,
		// Streaming downloads manage their own stall watchdog, so the
		// client carries no overall timeout.
		httpClient: &http.Client{},
		uid:        uid,
		workers:    workers,
		queue:      make(chan DownloadTarget, queueDepth),
		results:    make(chan result, queueDepth),
	}
}

// Start launches the workers. Results arrive on Results() until Wait.
func (p *Pool) Start(ctx context.Context) {
	p.group, _ = errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		p.group.Go(func() error {
			p.worker(ctx)
			return nil
		})
	}
}

// Enqueue queues a target for download, blocking while the queue is full.
func (p *Pool) Enqueue(ctx context.Context, target DownloadTarget) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.queue <- target:
		return nil
	}
}

// Results returns the completion channel.
func (p *Pool) Results() <-chan result {
	return p.results
}

// Shutdown stops intake, waits for in-progress targets to finish and closes
// the results channel. Queued targets that no worker has claimed are
// reported as cancelled.
func (p *Pool) Shutdown() {
	close(p.queue)
	p.group.Wait()
	close(p.results)
}

func (p *Pool) worker(ctx context.Context) {
	for target := range p.queue {
		if ctx.Err() != nil {
			p.results <- result{target: target, err: ctx.Err()}
			continue
		}
		err := p.process(ctx, target)
		p.results <- result{target: target, err: err}
	}
}

func (p *Pool) process(ctx context.Context, target DownloadTarget) error {
	switch target.TargetType {
	case TargetDirectory:
		return p.makeDirectory(target)
	case TargetFile:
		return p.downloadFile(ctx, target)
	default:
		return fmt.Errorf("unknown target type %q", target.TargetType)
	}
}

func (p *Pool) makeDirectory(target DownloadTarget) error {
	if err := os.MkdirAll(target.To, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", target.To, err)
	}
	p.chown(target.To)
	p.logger.Debug().Str("path", target.To).Msg("Directory created")
	return nil
}

// downloadFile streams a file target to disk, retrying transient failures.
// Each attempt resolves a fresh download URL; the URLs are short-lived.
func (p *Pool) downloadFile(ctx context.Context, target DownloadTarget) error {
	if err := os.MkdirAll(filepath.Dir(target.To), 0755); err != nil {
		return fmt.Errorf("failed to create parent of %s: %w", target.To, err)
	}

	if err := diskspace.CheckAvailableSpace(target.To, target.size, diskSpaceMargin); err != nil {
		return err
	}

	cfg := DefaultRetryConfig()
	cfg.OnRetry = func(attempt int, err error, errType ErrorType) {
		p.logger.Warn().
			Str("target", target.String()).
			Int("attempt", attempt).
			Str("kind", ErrorTypeName(errType)).
			Err(err).
			Msg("Retrying download")
	}

	start := time.Now()
	err := ExecuteWithRetry(ctx, cfg, func() error {
		url := ""
		if target.From != nil {
			url = *target.From
		}
		if url == "" {
			resolved, err := p.cloud.GetDownloadURL(ctx, target.fileID)
			if err != nil {
				return err
			}
			url = resolved
		}
		return p.streamToFile(ctx, url, target.To)
	})
	if err != nil {
		return err
	}

	p.chown(target.To)
	p.logger.Info().
		Str("target", target.String()).
		Str("size", datasize.ByteSize(target.size).HumanReadable()).
		Dur("elapsed", time.Since(start)).
		Msg("Download complete")
	return nil
}

// streamToFile writes the response body to a .part file and renames it into
// place, so readers never observe partial content. A watchdog cancels the
// request when the stream stalls.
func (p *Pool) streamToFile(ctx context.Context, url, dest string) error {
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download returned %d", resp.StatusCode)
	}

	partPath := dest + ".part"
	out, err := os.OpenFile(partPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", partPath, err)
	}

	watchdog := time.AfterFunc(downloadStallTimeout, cancel)
	body := &watchdogReader{r: resp.Body, timer: watchdog}

	buf := make([]byte, downloadBufferSize)
	_, copyErr := io.CopyBuffer(out, body, buf)
	watchdog.Stop()

	if closeErr := out.Close(); copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		os.Remove(partPath)
		if reqCtx.Err() != nil && ctx.Err() == nil {
			return fmt.Errorf("download of %s stalled", dest)
		}
		return fmt.Errorf("download of %s failed: %w", dest, copyErr)
	}

	if err := os.Rename(partPath, dest); err != nil {
		os.Remove(partPath)
		return fmt.Errorf("failed to move %s into place: %w", dest, err)
	}
	return nil
}

// chown applies the configured uid. Failure is expected when not running as
// root and only logged.
func (p *Pool) chown(path string) {
	if err := os.Chown(path, p.uid, -1); err != nil {
		p.logger.Warn().Str("path", path).Int("uid", p.uid).Err(err).Msg("Failed to chown")
	}
}

// watchdogReader resets the stall timer on every successful read.
type watchdogReader struct {
	r     io.Reader
	timer *time.Timer
}

func (w *watchdogReader) Read(b []byte) (int, error) {
	n, err := w.r.Read(b)
	if n > 0 {
		w.timer.Reset(downloadStallTimeout)
	}
	return n, err
}
