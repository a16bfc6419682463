package ingest

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"swarmsync/internal/constants"
	"swarmsync/internal/database"
	apperrors "swarmsync/internal/errors"
	"swarmsync/internal/metrics"
	"swarmsync/internal/models"
	"swarmsync/internal/privacy"
	"swarmsync/internal/receive"
	"swarmsync/internal/tracing"
)

// Result reports what happened to one frame.
type Result struct {
	UniqueIdentifier string
	Kind             string
	Outcome          string
	Info             *models.InsertedInteractionInfo
	Err              error
}

// Processor runs frames through the receive pipeline, one write transaction
// per delivery.
type Processor struct {
	receiver    *receive.Receiver
	db          *database.Database
	metrics     *metrics.Metrics
	logger      *apperrors.Logger
	concurrency int
	verbose     bool
	now         func() time.Time
}

func NewProcessor(receiver *receive.Receiver, db *database.Database, m *metrics.Metrics, concurrency int, verbose bool, logger *logrus.Logger) *Processor {
	if concurrency <= 0 {
		concurrency = constants.DefaultProcessingConcurrency
	}
	return &Processor{
		receiver:    receiver,
		db:          db,
		metrics:     m,
		logger:      apperrors.FromLogrus(logger),
		concurrency: concurrency,
		verbose:     verbose,
		now:         time.Now,
	}
}

// ProcessBatch processes frames concurrently. A failing frame is logged and
// reported in its Result; it never stops the rest of the batch.
func (p *Processor) ProcessBatch(ctx context.Context, frames []Frame) []Result {
	ctx = tracing.WithBatch(ctx)
	results := make([]Result, len(frames))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, f := range frames {
		g.Go(func() error {
			results[i] = p.ProcessOne(ctx, f)
			return nil
		})
	}
	_ = g.Wait()

	p.logger.WithFields(logrus.Fields{
		"batch_id":    tracing.GetBatchID(ctx),
		"frames":      len(frames),
		"duration_ms": tracing.Duration(ctx).Milliseconds(),
	}).Debug("Processed batch")
	return results
}

// ProcessOne parses one frame and applies it to storage. Deliveries whose
// unique identifier was already recorded are skipped.
func (p *Processor) ProcessOne(ctx context.Context, f Frame) Result {
	start := p.now()

	processed, err := p.receiver.Parse(ctx, f.Data, f.Origin)
	if err != nil {
		return p.reject(Result{Kind: "unknown", Err: err}, f.Origin, start)
	}

	if processed.Config != nil {
		res := Result{UniqueIdentifier: processed.UniqueIdentifier(), Kind: "config", Outcome: metrics.OutcomeConfig}
		if err := p.receiver.MergeConfig(ctx, processed.Config); err != nil {
			res.Err = err
			return p.reject(res, f.Origin, start)
		}
		p.metrics.MessageProcessed(res.Kind, res.Outcome, p.now().Sub(start))
		return res
	}

	std := processed.Standard
	res := Result{UniqueIdentifier: std.UniqueIdentifier, Kind: std.Message.Kind().String()}
	duplicate := false
	err = p.db.Write(ctx, func(tx *database.Tx) error {
		fresh, err := tx.RecordReceived(
			std.UniqueIdentifier,
			std.ThreadID,
			int(std.Namespace),
			p.now().UnixMilli(),
			f.Origin.ServerExpirationTimestamp(),
		)
		if err != nil {
			return err
		}
		if !fresh {
			duplicate = true
			return nil
		}
		res.Info, err = p.receiver.Process(ctx, tx, std, receive.HandleOptions{})
		return err
	})
	if err != nil {
		res.Err = err
		return p.reject(res, f.Origin, start)
	}

	switch {
	case duplicate:
		res.Outcome = metrics.OutcomeDuplicate
	case res.Info != nil:
		res.Outcome = metrics.OutcomeStored
	default:
		res.Outcome = metrics.OutcomeNoop
	}
	p.metrics.MessageProcessed(res.Kind, res.Outcome, p.now().Sub(start))
	return res
}

// Rejections the pipeline raises for a message that will never be accepted.
var expectedRejections = []apperrors.ErrorCode{
	apperrors.ErrCodeInvalidMessage,
	apperrors.ErrCodeInvalidConfigMessageHandling,
	apperrors.ErrCodeDeprecatedMessage,
	apperrors.ErrCodeSenderBlocked,
	apperrors.ErrCodeSelfSend,
	apperrors.ErrCodeOutdatedMessage,
	apperrors.ErrCodeUnknownMessage,
	apperrors.ErrCodeNoThread,
	apperrors.ErrCodeObjectNotFound,
	apperrors.ErrCodeInvalidSender,
	apperrors.ErrCodeDecryptionFailed,
}

func isExpectedRejection(err error) bool {
	code := apperrors.GetCode(err)
	for _, c := range expectedRejections {
		if code == c {
			return true
		}
	}
	return false
}

func (p *Processor) reject(res Result, origin models.Origin, start time.Time) Result {
	code := apperrors.GetCode(res.Err)
	if isExpectedRejection(res.Err) {
		res.Outcome = metrics.OutcomeRejected
	} else {
		res.Outcome = metrics.OutcomeFailed
	}
	p.metrics.MessageRejected(string(code))
	p.metrics.MessageProcessed(res.Kind, res.Outcome, p.now().Sub(start))

	fields := logrus.Fields{
		receive.LogFieldOrigin:           string(origin.Kind),
		receive.LogFieldMessageKind:      res.Kind,
		receive.LogFieldUniqueIdentifier: res.UniqueIdentifier,
	}
	if !p.verbose {
		fields = privacy.MaskSensitiveFields(fields)
	}
	if res.Outcome == metrics.OutcomeRejected {
		p.logger.WithError(res.Err).WithFields(fields).Info("Dropped message")
	} else {
		p.logger.LogRetryableError(res.Err, "Failed to process message", fields)
	}
	return res
}
