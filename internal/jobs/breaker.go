package jobs

import (
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerClosed:
		return "CLOSED"
	case breakerOpen:
		return "OPEN"
	case breakerHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

type hostCircuit struct {
	state    breakerState
	failures int
	openedAt time.Time
}

// hostBreaker stops download attempts against a file server after
// consecutive transport failures. Once the cooldown passes a single trial request is
// let through; its result closes or re-opens the circuit.
type hostBreaker struct {
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time
	logger      *logrus.Logger

	mu    sync.Mutex
	hosts map[string]*hostCircuit
}

func newHostBreaker(maxFailures int, cooldown time.Duration, logger *logrus.Logger) *hostBreaker {
	return &hostBreaker{
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
		logger:      logger,
		hosts:       make(map[string]*hostCircuit),
	}
}

func downloadHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// allow reports whether a request to host may proceed and, when it may not,
// how long until the next trial request.
func (b *hostBreaker) allow(host string) (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.hosts[host]
	if !ok {
		return true, 0
	}
	switch c.state {
	case breakerOpen:
		wait := c.openedAt.Add(b.cooldown).Sub(b.now())
		if wait > 0 {
			return false, wait
		}
		c.state = breakerHalfOpen
		b.logger.WithField("host", host).Info("Download circuit half-open, probing")
		return true, 0
	case breakerHalfOpen:
		// A trial request is already in flight.
		return false, b.cooldown
	default:
		return true, 0
	}
}

func (b *hostBreaker) success(host string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.hosts[host]
	if !ok {
		return
	}
	if c.state != breakerClosed {
		b.logger.WithField("host", host).Info("Download circuit closed after successful trial request")
	}
	delete(b.hosts, host)
}

func (b *hostBreaker) failure(host string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.hosts[host]
	if !ok {
		c = &hostCircuit{}
		b.hosts[host] = c
	}
	c.failures++
	if c.state == breakerHalfOpen || c.failures >= b.maxFailures {
		if c.state != breakerOpen {
			b.logger.WithFields(logrus.Fields{
				"host":     host,
				"failures": c.failures,
			}).Warn("Download circuit opened")
		}
		c.state = breakerOpen
		c.openedAt = b.now()
	}
}

func (b *hostBreaker) state(host string) breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.hosts[host]; ok {
		return c.state
	}
	return breakerClosed
}
