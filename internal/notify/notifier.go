package notify

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"swarmsync/internal/constants"
	"swarmsync/internal/metrics"
	"swarmsync/internal/models"
	"swarmsync/internal/privacy"
	"swarmsync/internal/receive"
)

const (
	KindMessage  = "message"
	KindReaction = "reaction"

	outcomeSent        = "sent"
	outcomeDuplicate   = "duplicate"
	outcomeRateLimited = "rate_limited"
	outcomeFailed      = "failed"

	limiterIdleTTL = 10 * time.Minute
)

// Alert is what a Sink shows the user.
type Alert struct {
	Kind       string
	ThreadID   string
	ThreadName string
	AuthorID   string
	Body       string
	Emoji      string
	Mention    bool
	AppState   models.ApplicationState
}

// Sink presents alerts to the user.
type Sink interface {
	Deliver(ctx context.Context, a Alert) error
}

// Notifier implements receive.Notifier. It rate limits alerts per thread and,
// while the application is in the background, drops alerts whose identifier
// was already shown.
type Notifier struct {
	sink    Sink
	metrics *metrics.Metrics
	logger  *logrus.Logger
	now     func() time.Time
	verbose bool

	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*limiterEntry
	hits     uint64
	seen     *recentSet
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var _ receive.Notifier = (*Notifier)(nil)

func New(sink Sink, cfg models.NotificationsConfig, m *metrics.Metrics, verbose bool, logger *logrus.Logger) *Notifier {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = constants.DefaultNotificationRatePerSec
	}
	if cfg.Burst <= 0 {
		cfg.Burst = constants.DefaultNotificationBurst
	}
	if cfg.DedupeWindow <= 0 {
		cfg.DedupeWindow = constants.DefaultNotificationDedupeWindow
	}
	if sink == nil {
		sink = NewLogSink(logger, verbose)
	}
	return &Notifier{
		sink:     sink,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
		verbose:  verbose,
		limit:    rate.Limit(cfg.RatePerSec),
		burst:    cfg.Burst,
		limiters: make(map[string]*limiterEntry),
		seen:     newRecentSet(cfg.DedupeWindow),
	}
}

func (n *Notifier) NotifyUser(ctx context.Context, note receive.Notification) {
	if note.Thread == nil || note.Interaction == nil {
		return
	}
	i := note.Interaction
	n.deliver(ctx, interactionIdentifier(i), Alert{
		Kind:       KindMessage,
		ThreadID:   note.Thread.ID,
		ThreadName: note.Thread.Name,
		AuthorID:   i.AuthorID,
		Body:       i.Body,
		Mention:    i.HasMention,
		AppState:   note.AppState,
	})
}

func (n *Notifier) NotifyReaction(ctx context.Context, note receive.Notification) {
	if note.Thread == nil || note.Reaction == nil {
		return
	}
	r := note.Reaction
	n.deliver(ctx, "reaction:"+strconv.FormatInt(r.InteractionID, 10)+":"+r.AuthorID+":"+r.Emoji, Alert{
		Kind:       KindReaction,
		ThreadID:   note.Thread.ID,
		ThreadName: note.Thread.Name,
		AuthorID:   r.AuthorID,
		Emoji:      r.Emoji,
		AppState:   note.AppState,
	})
}

// interactionIdentifier prefers the server hash, which is shared by every
// copy of a delivery.
func interactionIdentifier(i *models.Interaction) string {
	if i.ServerHash != "" {
		return "hash:" + i.ServerHash
	}
	return "msg:" + i.ThreadID + ":" + strconv.FormatInt(i.TimestampMs, 10) + ":" + i.AuthorID
}

func (n *Notifier) deliver(ctx context.Context, identifier string, a Alert) {
	log := n.logger.WithFields(logrus.Fields{
		"notification_kind": a.Kind,
		"thread_id":         n.maskID(a.ThreadID),
	})

	if a.AppState == models.ApplicationBackground && !n.seen.add(identifier) {
		n.metrics.Notification(a.Kind, outcomeDuplicate)
		log.Debug("Suppressing duplicate background notification")
		return
	}
	if !n.allow(a.ThreadID) {
		n.metrics.Notification(a.Kind, outcomeRateLimited)
		log.Debug("Notification rate limited")
		return
	}
	if err := n.sink.Deliver(ctx, a); err != nil {
		n.metrics.Notification(a.Kind, outcomeFailed)
		log.WithError(err).Warn("Failed to deliver notification")
		return
	}
	n.metrics.Notification(a.Kind, outcomeSent)
}

func (n *Notifier) allow(threadID string) bool {
	now := n.now()

	n.mu.Lock()
	defer n.mu.Unlock()

	e, ok := n.limiters[threadID]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(n.limit, n.burst)}
		n.limiters[threadID] = e
	}
	e.lastSeen = now
	allowed := e.limiter.AllowN(now, 1)

	n.hits++
	if n.hits%512 == 0 {
		cutoff := now.Add(-limiterIdleTTL)
		for k, v := range n.limiters {
			if v.lastSeen.Before(cutoff) {
				delete(n.limiters, k)
			}
		}
	}
	return allowed
}

func (n *Notifier) maskID(id string) string {
	if n.verbose {
		return id
	}
	return privacy.MaskSessionID(id)
}

// recentSet remembers the last size identifiers in insertion order.
type recentSet struct {
	mu    sync.Mutex
	size  int
	ring  []string
	next  int
	index map[string]struct{}
}

func newRecentSet(size int) *recentSet {
	return &recentSet{size: size, ring: make([]string, 0, size), index: make(map[string]struct{}, size)}
}

// add reports whether id was new.
func (s *recentSet) add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[id]; ok {
		return false
	}
	if len(s.ring) < s.size {
		s.ring = append(s.ring, id)
	} else {
		delete(s.index, s.ring[s.next])
		s.ring[s.next] = id
		s.next = (s.next + 1) % s.size
	}
	s.index[id] = struct{}{}
	return true
}
