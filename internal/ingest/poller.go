package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"swarmsync/internal/constants"
	apperrors "swarmsync/internal/errors"
	"swarmsync/internal/models"
)

// Source returns the deliveries after cursor.
type Source interface {
	Fetch(ctx context.Context, cursor string) (*Batch, error)
}

// HTTPSource polls a JSON endpoint: GET <url>?cursor=<cursor> returning a Batch.
type HTTPSource struct {
	client    *http.Client
	url       string
	readLimit int64
}

func NewHTTPSource(client *http.Client, pollURL string, readLimit int64) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	if readLimit <= 0 {
		readLimit = constants.DefaultFeedReadLimitBytes
	}
	return &HTTPSource{client: client, url: pollURL, readLimit: readLimit}
}

func (s *HTTPSource) Fetch(ctx context.Context, cursor string) (*Batch, error) {
	u, err := url.Parse(s.url)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidConfig, "invalid poll url")
	}
	if cursor != "" {
		q := u.Query()
		q.Set("cursor", cursor)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, apperrors.WrapRetryable(err, apperrors.ErrCodeFeedConnection, "poll request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.WrapRetryable(fmt.Errorf("unexpected status %d", resp.StatusCode),
			apperrors.ErrCodeFeedConnection, "poll request failed")
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, s.readLimit))
	if err != nil {
		return nil, apperrors.WrapRetryable(err, apperrors.ErrCodeFeedConnection, "failed to read poll response")
	}
	return DecodeBatch(body)
}

// Poller fetches deliveries on a fixed interval. It is the background path
// next to the push feed; both may deliver the same message.
type Poller struct {
	source    Source
	processor BatchProcessor
	interval  time.Duration
	logger    *logrus.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	cursor  string
	mu      sync.RWMutex
}

func NewPoller(source Source, processor BatchProcessor, cfg models.FeedConfig, logger *logrus.Logger) *Poller {
	interval := time.Duration(cfg.PollIntervalSec) * time.Second
	if interval <= 0 {
		interval = constants.DefaultPollIntervalSec * time.Second
	}
	return &Poller{
		source:    source,
		processor: processor,
		interval:  interval,
		logger:    logger,
	}
}

func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("poller is already running")
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.running = true

	p.wg.Add(1)
	go p.pollLoop()

	p.logger.WithField("interval", p.interval.String()).Info("Poller started")
	return nil
}

func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.cancel()
	p.wg.Wait()
	p.running = false
	p.logger.Info("Poller stopped")
}

func (p *Poller) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

func (p *Poller) pollLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.PollOnce(p.ctx)
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.PollOnce(p.ctx)
		}
	}
}

// PollOnce drains the source until it returns an empty batch.
func (p *Poller) PollOnce(ctx context.Context) {
	for ctx.Err() == nil {
		batch, err := p.source.Fetch(ctx, p.cursor)
		if err != nil {
			if ctx.Err() == nil {
				p.logger.WithError(err).Warn("Poll failed")
			}
			return
		}
		if len(batch.Frames) == 0 {
			return
		}
		p.processor.ProcessBatch(ctx, batch.Frames)
		if batch.Cursor == "" || batch.Cursor == p.cursor {
			return
		}
		p.cursor = batch.Cursor
	}
}
