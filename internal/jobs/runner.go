package jobs

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"swarmsync/internal/constants"
	"swarmsync/internal/database"
	apperrors "swarmsync/internal/errors"
	"swarmsync/internal/metrics"
	"swarmsync/internal/models"
	"swarmsync/internal/retry"
)

const (
	outcomeDone    = "done"
	outcomeRetried = "retried"
	outcomeFailed  = "failed"
	// outcomeDeferred is a download postponed by an open host circuit.
	outcomeDeferred = "deferred"
)

// RunnerConfig tunes the background job loop. Zero values take defaults.
type RunnerConfig struct {
	Interval        time.Duration
	BatchSize       int
	MaxAttempts     int
	DownloadTimeout time.Duration
	RetryBackoff    retry.BackoffConfig
	// BreakerFailures consecutive transport failures against one host open
	// its circuit for BreakerCooldown.
	BreakerFailures int
	BreakerCooldown time.Duration
}

// Runner executes due jobs on a fixed interval: expired disappearing
// messages are deleted and queued attachment downloads are fetched.
type Runner struct {
	db         *database.Database
	scheduler  *Scheduler
	downloader Downloader
	metrics    *metrics.Metrics
	logger     *logrus.Logger
	config     RunnerConfig
	backoff    *retry.Backoff
	breaker    *hostBreaker
	now        func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewRunner(db *database.Database, scheduler *Scheduler, downloader Downloader, m *metrics.Metrics, cfg RunnerConfig, logger *logrus.Logger) *Runner {
	if cfg.Interval <= 0 {
		cfg.Interval = constants.DefaultJobIntervalSec * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = constants.DefaultDownloadBatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = constants.DefaultDownloadMaxAttempts
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = constants.DefaultDownloadTimeoutSec * time.Second
	}
	if cfg.RetryBackoff.InitialDelay <= 0 {
		cfg.RetryBackoff = retry.BackoffConfig{
			InitialDelay: constants.DefaultDownloadRetryDelaySec * time.Second,
			MaxDelay:     time.Hour,
			Multiplier:   2.0,
			Jitter:       true,
		}
	}
	if cfg.BreakerFailures <= 0 {
		cfg.BreakerFailures = constants.DefaultDownloadBreakerFailures
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = constants.DefaultDownloadBreakerCooldownSec * time.Second
	}
	return &Runner{
		db:         db,
		scheduler:  scheduler,
		downloader: downloader,
		metrics:    m,
		logger:     logger,
		config:     cfg,
		backoff:    retry.NewBackoff(cfg.RetryBackoff),
		breaker:    newHostBreaker(cfg.BreakerFailures, cfg.BreakerCooldown, logger),
		now:        time.Now,
		stopCh:     make(chan struct{}),
	}
}

func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	r.logger.WithField("interval", r.config.Interval.String()).Info("Starting job runner")

	r.scheduler.UpsertDisappearingMessages(ctx)
	r.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Job runner context cancelled, stopping")
			return
		case <-r.stopCh:
			r.logger.Info("Job runner stop signal received, stopping")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// RunOnce executes every job that is due now.
func (r *Runner) RunOnce(ctx context.Context) {
	if err := r.runDisappearing(ctx); err != nil {
		r.logger.WithError(err).Error("Failed to run disappearing messages job")
	}
	if err := r.runDownloads(ctx); err != nil {
		r.logger.WithError(err).Error("Failed to run attachment downloads")
	}
}

func (r *Runner) dueJobs(ctx context.Context, variant models.JobVariant, limit int) ([]models.Job, error) {
	var due []models.Job
	err := r.db.Read(ctx, func(tx *database.Tx) error {
		var err error
		due, err = tx.DueJobs(variant, r.now().UnixMilli(), limit)
		return err
	})
	return due, err
}

func (r *Runner) runDisappearing(ctx context.Context) error {
	due, err := r.dueJobs(ctx, models.JobDisappearingMessages, 1)
	if err != nil || len(due) == 0 {
		return err
	}

	nowMs := r.now().UnixMilli()
	var removed, pruned int64
	err = r.db.Write(ctx, func(tx *database.Tx) error {
		var err error
		if removed, err = tx.DeleteExpiredInteractions(nowMs); err != nil {
			return err
		}
		if pruned, err = tx.PruneReceived(nowMs); err != nil {
			return err
		}
		return tx.DeleteJob(due[0].ID)
	})
	if err != nil {
		r.metrics.JobCompleted(string(models.JobDisappearingMessages), outcomeFailed)
		return err
	}
	r.metrics.JobCompleted(string(models.JobDisappearingMessages), outcomeDone)
	r.logger.WithFields(logrus.Fields{
		logFieldExpiredRemoved: removed,
		logFieldReceivedPruned: pruned,
	}).Info("Removed expired messages")

	r.scheduler.UpsertDisappearingMessages(ctx)
	return nil
}

func (r *Runner) runDownloads(ctx context.Context) error {
	if r.downloader == nil {
		return nil
	}
	due, err := r.dueJobs(ctx, models.JobAttachmentDownload, r.config.BatchSize)
	if err != nil || len(due) == 0 {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.BatchSize)
	for _, job := range due {
		g.Go(func() error {
			r.runDownload(gctx, job)
			return nil
		})
	}
	return g.Wait()
}

func (r *Runner) runDownload(ctx context.Context, job models.Job) {
	var details downloadDetails
	if err := json.Unmarshal(job.Details, &details); err != nil || details.AttachmentID == "" {
		r.logger.WithField(logFieldJobVariant, string(job.Variant)).Warn("Dropping download job with invalid details")
		r.finishDownload(ctx, job, "", "")
		return
	}
	log := r.logger.WithField(logFieldAttachmentID, details.AttachmentID)

	var attachment *models.Attachment
	err := r.db.Read(ctx, func(tx *database.Tx) error {
		var err error
		attachment, err = tx.FetchAttachment(details.AttachmentID)
		return err
	})
	if err != nil {
		log.WithError(err).Error("Failed to load attachment")
		return
	}
	if attachment == nil || attachment.State == models.AttachmentDownloaded {
		r.finishDownload(ctx, job, "", "")
		return
	}

	host := downloadHost(attachment.DownloadURL)
	if ok, wait := r.breaker.allow(host); !ok {
		if rerr := r.scheduler.reschedule(ctx, job, details, wait); rerr != nil {
			log.WithError(rerr).Error("Failed to defer attachment download")
			return
		}
		r.metrics.JobCompleted(string(job.Variant), outcomeDeferred)
		log.WithField("retry_in", wait.String()).Debug("Attachment host circuit open, download deferred")
		return
	}

	dlCtx, cancel := context.WithTimeout(ctx, r.config.DownloadTimeout)
	err = r.downloader.Download(dlCtx, *attachment)
	cancel()
	if apperrors.IsRetryable(err) {
		r.breaker.failure(host)
	} else {
		r.breaker.success(host)
	}
	if err == nil {
		r.finishDownload(ctx, job, attachment.ID, models.AttachmentDownloaded)
		r.metrics.JobCompleted(string(job.Variant), outcomeDone)
		log.Debug("Attachment downloaded")
		return
	}

	details.Attempts++
	if apperrors.IsRetryable(err) && details.Attempts < r.config.MaxAttempts {
		delay := r.backoff.Delay(details.Attempts)
		if rerr := r.scheduler.reschedule(ctx, job, details, delay); rerr != nil {
			log.WithError(rerr).Error("Failed to reschedule attachment download")
			return
		}
		r.metrics.JobCompleted(string(job.Variant), outcomeRetried)
		log.WithError(err).WithField(logFieldDownloadAttempts, details.Attempts).Warn("Attachment download failed, will retry")
		return
	}

	r.finishDownload(ctx, job, attachment.ID, models.AttachmentFailedDownload)
	r.metrics.JobCompleted(string(job.Variant), outcomeFailed)
	log.WithError(err).WithField(logFieldDownloadAttempts, details.Attempts).Warn("Attachment download failed")
}

// finishDownload removes the job and records the final attachment state.
func (r *Runner) finishDownload(ctx context.Context, job models.Job, attachmentID string, state models.AttachmentState) {
	err := r.db.Write(ctx, func(tx *database.Tx) error {
		if state != "" {
			if err := tx.SetAttachmentState(attachmentID, state); err != nil {
				return err
			}
		}
		return tx.DeleteJob(job.ID)
	})
	if err != nil {
		r.logger.WithError(err).WithField(logFieldAttachmentID, attachmentID).Error("Failed to complete download job")
	}
}
