package receive

import (
	"sync"
	"time"
)

type typingKey struct {
	threadID string
	sender   string
}

// TypingRegistry tracks which senders are currently typing in which threads.
// Indicators expire after the configured timeout if no stop arrives.
type TypingRegistry struct {
	mu      sync.Mutex
	timeout time.Duration
	active  map[typingKey]time.Time
}

func NewTypingRegistry(timeout time.Duration) *TypingRegistry {
	return &TypingRegistry{
		timeout: timeout,
		active:  make(map[typingKey]time.Time),
	}
}

func (t *TypingRegistry) Start(threadID, sender string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active[typingKey{threadID, sender}] = now.Add(t.timeout)
}

// Stop reports whether an indicator was active.
func (t *TypingRegistry) Stop(threadID, sender string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := typingKey{threadID, sender}
	_, ok := t.active[key]
	delete(t.active, key)
	return ok
}

// Typing lists the senders typing in a thread and drops expired entries.
func (t *TypingRegistry) Typing(threadID string, now time.Time) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var senders []string
	for key, expiry := range t.active {
		if !now.Before(expiry) {
			delete(t.active, key)
			continue
		}
		if key.threadID == threadID {
			senders = append(senders, key.sender)
		}
	}
	return senders
}
