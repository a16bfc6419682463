package ingest

import (
	"context"
	"sync"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"swarmsync/internal/constants"
	apperrors "swarmsync/internal/errors"
	"swarmsync/internal/metrics"
	"swarmsync/internal/models"
	"swarmsync/internal/retry"
)

// BatchProcessor consumes decoded batches.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, frames []Frame) []Result
}

// FeedClient reads delivery batches pushed over a websocket and reconnects
// with exponential backoff when the connection drops.
type FeedClient struct {
	url       string
	readLimit int64
	processor BatchProcessor
	backoff   *retry.Backoff
	metrics   *metrics.Metrics
	logger    *logrus.Logger

	mu      sync.RWMutex
	running bool
}

func NewFeedClient(cfg models.FeedConfig, processor BatchProcessor, m *metrics.Metrics, logger *logrus.Logger) *FeedClient {
	readLimit := cfg.ReadLimitBytes
	if readLimit <= 0 {
		readLimit = constants.DefaultFeedReadLimitBytes
	}
	return &FeedClient{
		url:       cfg.URL,
		readLimit: readLimit,
		processor: processor,
		backoff:   retry.NewBackoff(retry.FeedBackoffConfig(cfg)),
		metrics:   m,
		logger:    logger,
	}
}

func (c *FeedClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// Run blocks until ctx ends, reconnecting after every failure. The backoff
// restarts once a connection has been established.
func (c *FeedClient) Run(ctx context.Context) error {
	c.logger.WithField("url", c.url).Info("Starting delivery feed")
	attempt := 0
	for {
		connected, err := c.session(ctx)
		if ctx.Err() != nil {
			c.logger.Info("Delivery feed stopped")
			return nil
		}
		if connected {
			attempt = 0
		}
		attempt++
		delay := c.backoff.Delay(attempt)
		c.logger.WithError(err).WithField("retry_in", delay.String()).Warn("Delivery feed disconnected")
		if err := retry.Sleep(ctx, delay); err != nil {
			c.logger.Info("Delivery feed stopped")
			return nil
		}
	}
}

// session holds one connection open until it fails.
func (c *FeedClient) session(ctx context.Context) (bool, error) {
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return false, apperrors.WrapRetryable(err, apperrors.ErrCodeFeedConnection, "failed to dial feed")
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()
	conn.SetReadLimit(c.readLimit)

	c.setConnected(true)
	defer c.setConnected(false)
	c.logger.Info("Delivery feed connected")

	for {
		mt, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return true, ctx.Err()
			}
			return true, apperrors.WrapRetryable(err, apperrors.ErrCodeFeedConnection, "feed read failed").
				WithContext("close_status", int(websocket.CloseStatus(err)))
		}
		if mt != websocket.MessageText && mt != websocket.MessageBinary {
			continue
		}
		c.metrics.FeedFrame()

		batch, err := DecodeBatch(data)
		if err != nil {
			c.logger.WithError(err).Warn("Skipping malformed feed message")
			continue
		}
		c.processor.ProcessBatch(ctx, batch.Frames)
	}
}

func (c *FeedClient) setConnected(connected bool) {
	c.mu.Lock()
	c.running = connected
	c.mu.Unlock()
	c.metrics.FeedConnected(connected)
}
