package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"swarmsync/internal/database"
	"swarmsync/internal/models"
)

const (
	disappearingDedupeKey    = "disappearing-messages"
	attachmentDedupePrefix   = "attachment-download:"
	logFieldAttachmentID     = "attachment_id"
	logFieldJobVariant       = "job_variant"
	logFieldNextRunMs        = "next_run_ms"
	logFieldExpiredRemoved   = "expired_removed"
	logFieldReceivedPruned   = "received_pruned"
	logFieldDownloadAttempts = "attempts"
)

type downloadDetails struct {
	AttachmentID string `json:"attachment_id"`
	Attempts     int    `json:"attempts,omitempty"`
}

// Scheduler persists background work in the jobs table. Its methods are
// called after the receive transaction commits and open their own write.
type Scheduler struct {
	db     *database.Database
	logger *logrus.Logger
	now    func() time.Time
}

func NewScheduler(db *database.Database, logger *logrus.Logger) *Scheduler {
	return &Scheduler{db: db, logger: logger, now: time.Now}
}

// EnqueueAttachmentDownload queues one download per attachment id. Repeated
// calls for the same attachment refresh the existing job.
func (s *Scheduler) EnqueueAttachmentDownload(ctx context.Context, threadID string, interactionID int64, attachmentID string) {
	details, err := json.Marshal(downloadDetails{AttachmentID: attachmentID})
	if err != nil {
		s.logger.WithError(err).WithField(logFieldAttachmentID, attachmentID).
			Error("Failed to encode attachment download job")
		return
	}
	nowMs := s.now().UnixMilli()
	job := models.Job{
		ID:            ulid.Make().String(),
		Variant:       models.JobAttachmentDownload,
		DedupeKey:     attachmentDedupePrefix + attachmentID,
		ThreadID:      threadID,
		InteractionID: interactionID,
		Details:       details,
		NextRunMs:     nowMs,
		CreatedAtMs:   nowMs,
	}
	err = s.db.Write(ctx, func(tx *database.Tx) error {
		return tx.UpsertJob(job)
	})
	if err != nil {
		s.logger.WithError(err).WithField(logFieldAttachmentID, attachmentID).
			Error("Failed to enqueue attachment download")
	}
}

// UpsertDisappearingMessages points the single disappearing-messages job at
// the earliest pending expiry, or removes it when nothing is pending.
func (s *Scheduler) UpsertDisappearingMessages(ctx context.Context) {
	var next int64
	err := s.db.Write(ctx, func(tx *database.Tx) error {
		var err error
		next, err = tx.NextExpiry()
		if err != nil {
			return err
		}
		if next == 0 {
			existing, err := tx.FetchJob(disappearingDedupeKey)
			if err != nil || existing == nil {
				return err
			}
			return tx.DeleteJob(existing.ID)
		}
		nowMs := s.now().UnixMilli()
		return tx.UpsertJob(models.Job{
			ID:          ulid.Make().String(),
			Variant:     models.JobDisappearingMessages,
			DedupeKey:   disappearingDedupeKey,
			NextRunMs:   next,
			CreatedAtMs: nowMs,
		})
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to schedule disappearing messages job")
		return
	}
	s.logger.WithField(logFieldNextRunMs, next).Debug("Disappearing messages job scheduled")
}

// reschedule pushes a failed download back by delay.
func (s *Scheduler) reschedule(ctx context.Context, job models.Job, details downloadDetails, delay time.Duration) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return err
	}
	job.Details = raw
	job.NextRunMs = s.now().Add(delay).UnixMilli()
	return s.db.Write(ctx, func(tx *database.Tx) error {
		return tx.UpsertJob(job)
	})
}
