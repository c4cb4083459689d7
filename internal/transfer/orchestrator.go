package transfer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"golang.org/x/sync/errgroup"

	"github.com/putioarr/putioarr/internal/config"
	"github.com/putioarr/putioarr/internal/logging"
	"github.com/putioarr/putioarr/internal/putio"
)

// Notifier receives the top-level path of a completed transfer.
type Notifier interface {
	Kind() string
	NotifyDownloadComplete(ctx context.Context, path string) error
}

// inflightTransfer tracks one transfer whose targets are being downloaded.
type inflightTransfer struct {
	transfer  Transfer
	remaining int
	topLevel  string
}

// Orchestrator polls the cloud for finished transfers, expands them and
// drives them through the worker pool. When every target of a transfer has
// landed it deletes the remote copy and notifies the media managers.
type Orchestrator struct {
	cfg       *config.Config
	cloud     Cloud
	notifiers []Notifier
	logger    *logging.Logger
	clock     clock.Clock
	pool      *Pool

	stopChan   chan struct{}
	pollWg     sync.WaitGroup
	consumerWg sync.WaitGroup
	mu         sync.RWMutex
	running    bool
	authFailed bool

	// imu guards inflight and aborted.
	imu      sync.Mutex
	inflight map[int64]*inflightTransfer
	aborted  map[int64]bool
}

// NewOrchestrator creates the orchestrator. The clock is injectable so tests
// can drive the poll ticker.
func NewOrchestrator(cfg *config.Config, cloud Cloud, notifiers []Notifier, logger *logging.Logger, clk clock.Clock) *Orchestrator {
	if clk == nil {
		clk = clock.New()
	}
	return &Orchestrator{
		cfg:       cfg,
		cloud:     cloud,
		notifiers: notifiers,
		logger:    logger,
		clock:     clk,
		pool:      NewPool(cloud, logger, cfg.UID, cfg.DownloadWorkers, cfg.OrchestrationWorkers),
		stopChan:  make(chan struct{}),
		inflight:  make(map[int64]*inflightTransfer),
		aborted:   make(map[int64]bool),
	}
}

// VerifyCredentials checks the API key against the account endpoint.
func (o *Orchestrator) VerifyCredentials(ctx context.Context) error {
	info, err := o.cloud.AccountInfo(ctx)
	if err != nil {
		return fmt.Errorf("credential check failed: %w", err)
	}
	o.logger.Info().Str("account", info.Username).Msg("Cloud credentials verified")
	return nil
}

// Start begins polling. It returns immediately; work happens on background
// goroutines until Stop.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator is already running")
	}
	o.running = true
	o.mu.Unlock()

	o.logger.Info().
		Str("download_dir", o.cfg.DownloadDirectory).
		Int("poll_interval_s", o.cfg.PollingInterval).
		Int("download_workers", o.cfg.DownloadWorkers).
		Msg("Orchestrator starting")

	o.pool.Start(ctx)

	o.consumerWg.Add(1)
	go func() {
		defer o.consumerWg.Done()
		for res := range o.pool.Results() {
			o.handleResult(ctx, res)
		}
	}()

	o.poll(ctx)

	o.pollWg.Add(1)
	go o.pollLoop(ctx)

	return nil
}

// Stop halts polling, lets in-progress downloads finish and shuts the pool
// down. Unclaimed queued targets are dropped; their transfers stay on the
// cloud for the next run.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	o.mu.Unlock()

	o.logger.Info().Msg("Orchestrator stopping")
	close(o.stopChan)
	o.pollWg.Wait()
	o.pool.Shutdown()
	o.consumerWg.Wait()
	o.logger.Info().Msg("Orchestrator stopped")
}

func (o *Orchestrator) pollLoop(ctx context.Context) {
	defer o.pollWg.Done()

	ticker := o.clock.Ticker(time.Duration(o.cfg.PollingInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stopChan:
			return
		case <-ticker.C:
			o.poll(ctx)
		}
	}
}

// halted reports whether polling has been shut off after an auth failure.
// The RPC surface keeps serving either way.
func (o *Orchestrator) halted() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.authFailed
}

// poll runs one cycle: list transfers, claim the downloadable ones and
// expand them on a bounded group. Polls never overlap; the ticker fires
// into a loop that calls poll synchronously.
func (o *Orchestrator) poll(ctx context.Context) {
	if o.halted() {
		return
	}

	transfers, err := o.cloud.ListTransfers(ctx)
	if err != nil {
		if putio.IsAuthError(err) {
			o.mu.Lock()
			o.authFailed = true
			o.mu.Unlock()
			o.logger.Error().Err(err).Msg("Cloud rejected credentials, polling halted")
			return
		}
		o.logger.Warn().Err(err).Msg("Transfer poll failed")
		return
	}

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(o.cfg.OrchestrationWorkers)

	for i := range transfers {
		pt := transfers[i]
		if !pt.Downloadable() || !pt.UserfileExists {
			continue
		}
		if !o.claim(pt.ID) {
			continue
		}
		group.Go(func() error {
			o.expandAndEnqueue(gctx, &pt)
			return nil
		})
	}

	group.Wait()
}

// claim marks a transfer as in progress. Returns false when it is already
// being handled.
func (o *Orchestrator) claim(id int64) bool {
	o.imu.Lock()
	defer o.imu.Unlock()
	if _, ok := o.inflight[id]; ok {
		return false
	}
	if o.aborted[id] {
		return false
	}
	o.inflight[id] = nil // placeholder until expansion finishes
	return true
}

func (o *Orchestrator) unclaim(id int64) {
	o.imu.Lock()
	defer o.imu.Unlock()
	if o.inflight[id] == nil {
		delete(o.inflight, id)
	}
}

func (o *Orchestrator) expandAndEnqueue(ctx context.Context, pt *putio.Transfer) {
	tr := NewTransfer(pt)

	if err := Expand(ctx, o.cloud, &tr, o.cfg.DownloadDirectory, o.cfg.SkipDirectories); err != nil {
		o.logger.Error().Str("transfer", tr.String()).Err(err).Msg("Failed to expand transfer")
		if ClassifyError(err) == ErrorTypeFatal {
			// A tree that cannot be listed will not improve on the next
			// poll; drop the remote copy instead of wedging on it.
			o.imu.Lock()
			delete(o.inflight, tr.TransferID)
			o.aborted[tr.TransferID] = true
			o.imu.Unlock()
			o.removeRemote(ctx, &tr)
			return
		}
		o.unclaim(tr.TransferID)
		return
	}

	top := tr.TopLevel()
	if top == nil || len(tr.Targets) == 0 {
		o.logger.Warn().Str("transfer", tr.String()).Msg("Transfer expanded to nothing")
		o.unclaim(tr.TransferID)
		return
	}

	o.imu.Lock()
	o.inflight[tr.TransferID] = &inflightTransfer{
		transfer:  tr,
		remaining: len(tr.Targets),
		topLevel:  top.To,
	}
	o.imu.Unlock()

	o.logger.Info().
		Str("transfer", tr.String()).
		Int("targets", len(tr.Targets)).
		Msg("Transfer queued for download")

	for _, target := range tr.Targets {
		if err := o.pool.Enqueue(ctx, target); err != nil {
			o.logger.Warn().Str("transfer", tr.String()).Err(err).Msg("Enqueue interrupted")
			return
		}
	}
}

func (o *Orchestrator) handleResult(ctx context.Context, res result) {
	id := res.target.transferID

	o.imu.Lock()
	entry := o.inflight[id]
	o.imu.Unlock()

	if entry == nil {
		// Remaining targets of a transfer that already failed.
		o.logger.Debug().Str("target", res.target.String()).Msg("Dropping result for aborted transfer")
		return
	}

	if res.err != nil {
		if ctx.Err() != nil {
			return
		}
		o.abort(ctx, entry, res)
		return
	}

	o.imu.Lock()
	entry.remaining--
	done := entry.remaining == 0
	if done {
		delete(o.inflight, id)
	}
	o.imu.Unlock()

	if done {
		o.complete(ctx, entry)
	}
}

// abort gives up on a transfer after a fatal target failure. The remote
// copy is removed so the transfer does not wedge the poll loop; the arrs
// will re-request it from their own retry logic.
func (o *Orchestrator) abort(ctx context.Context, entry *inflightTransfer, res result) {
	tr := &entry.transfer
	o.logger.Error().
		Str("transfer", tr.String()).
		Str("target", res.target.String()).
		Err(res.err).
		Msg("Transfer failed")

	o.imu.Lock()
	delete(o.inflight, tr.TransferID)
	o.aborted[tr.TransferID] = true
	o.imu.Unlock()

	o.removeRemote(ctx, tr)
}

// complete finishes a transfer: remote delete, then notify every configured
// media manager. Notification failures are logged and never retried.
func (o *Orchestrator) complete(ctx context.Context, entry *inflightTransfer) {
	tr := &entry.transfer
	o.logger.Info().Str("transfer", tr.String()).Str("path", entry.topLevel).Msg("Transfer downloaded")

	o.removeRemote(ctx, tr)

	for _, n := range o.notifiers {
		if err := n.NotifyDownloadComplete(ctx, entry.topLevel); err != nil {
			o.logger.Warn().Str("service", n.Kind()).Err(err).Msg("Import notification failed")
			continue
		}
		o.logger.Debug().Str("service", n.Kind()).Str("transfer", tr.String()).Msg("Import notification sent")
	}
}

func (o *Orchestrator) removeRemote(ctx context.Context, tr *Transfer) {
	err := o.cloud.RemoveTransfer(ctx, tr.TransferID)
	if err != nil && !putio.IsNotFound(err) {
		o.logger.Warn().Str("transfer", tr.String()).Err(err).Msg("Failed to remove remote transfer")
		return
	}
	o.logger.Debug().Str("transfer", tr.String()).Msg("Remote transfer removed")
}
