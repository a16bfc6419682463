package database

import "fmt"

// RecordReceived claims a delivery identifier for a namespace. It returns
// false when the identifier was already recorded.
func (t *Tx) RecordReceived(uniqueID, threadID string, namespace int, receivedAtMs, expiresAtMs int64) (bool, error) {
	if uniqueID == "" {
		return true, nil
	}
	n, err := t.execAffected(InsertReceivedMessageQuery, uniqueID, threadID, namespace, receivedAtMs, expiresAtMs)
	if err != nil {
		return false, fmt.Errorf("failed to record received message: %w", err)
	}
	return n > 0, nil
}

func (t *Tx) PruneReceived(nowMs int64) (int64, error) {
	n, err := t.execAffected(DeleteExpiredReceivedMessagesQuery, nowMs)
	if err != nil {
		return 0, fmt.Errorf("failed to prune received messages: %w", err)
	}
	return n, nil
}
