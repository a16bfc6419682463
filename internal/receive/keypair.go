package receive

import (
	"sync"
	"time"
)

// KeyPairRequestCache throttles requests for missing group keys so a burst of
// undecryptable messages produces one request per group per interval.
type KeyPairRequestCache struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[string]time.Time
}

func NewKeyPairRequestCache(interval time.Duration) *KeyPairRequestCache {
	return &KeyPairRequestCache{
		interval: interval,
		last:     make(map[string]time.Time),
	}
}

// ShouldRequest records a request at now and reports whether it may be sent.
func (c *KeyPairRequestCache) ShouldRequest(groupID string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if last, ok := c.last[groupID]; ok && now.Sub(last) < c.interval {
		return false
	}
	c.last[groupID] = now
	return true
}

func (c *KeyPairRequestCache) Forget(groupID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.last, groupID)
}
