package database

import (
	"database/sql"
	"errors"
	"fmt"

	"swarmsync/internal/models"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInteraction(row rowScanner) (*models.Interaction, error) {
	var i models.Interaction
	var variant, state string
	err := row.Scan(
		&i.ID,
		&i.ServerHash,
		&i.MessageUUID,
		&i.ThreadID,
		&i.AuthorID,
		&variant,
		&i.Body,
		&i.TimestampMs,
		&i.ReceivedAtMs,
		&i.WasRead,
		&i.HasMention,
		&i.ExpiresInSeconds,
		&i.ExpiresStartedAtMs,
		&i.LinkPreviewURL,
		&i.OpenGroupServerMessageID,
		&i.OpenGroupWhisperMods,
		&i.OpenGroupWhisperTo,
		&state,
		&i.RecipientReadAtMs,
	)
	if err != nil {
		return nil, err
	}
	i.Variant = models.InteractionVariant(variant)
	i.State = models.InteractionState(state)
	return &i, nil
}

func (t *Tx) fetchInteraction(query string, args ...any) (*models.Interaction, error) {
	i, err := scanInteraction(t.queryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch interaction: %w", err)
	}
	return i, nil
}

// InsertInteraction stores i and sets its ID. ErrDuplicate is returned when an
// interaction with the same thread, timestamp, variant and author exists.
func (t *Tx) InsertInteraction(i *models.Interaction) error {
	res, err := t.exec(InsertInteractionQuery,
		i.ServerHash,
		i.MessageUUID,
		i.ThreadID,
		i.AuthorID,
		string(i.Variant),
		i.Body,
		i.TimestampMs,
		i.ReceivedAtMs,
		i.WasRead,
		i.HasMention,
		i.ExpiresInSeconds,
		i.ExpiresStartedAtMs,
		i.LinkPreviewURL,
		i.OpenGroupServerMessageID,
		i.OpenGroupWhisperMods,
		i.OpenGroupWhisperTo,
		string(i.State),
		i.RecipientReadAtMs,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert interaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read interaction id: %w", err)
	}
	i.ID = id
	return nil
}

func (t *Tx) FetchInteraction(id int64) (*models.Interaction, error) {
	return t.fetchInteraction(SelectInteractionByIDQuery, id)
}

// FetchInteractionByKey looks up the row occupying the uniqueness key of i.
func (t *Tx) FetchInteractionByKey(threadID string, timestampMs int64, variant models.InteractionVariant, authorID string) (*models.Interaction, error) {
	return t.fetchInteraction(SelectInteractionByKeyQuery, threadID, timestampMs, string(variant), authorID)
}

// FindInteraction locates a message by its sent timestamp and author. An
// empty threadID searches every thread.
func (t *Tx) FindInteraction(threadID string, timestampMs int64, authorID string) (*models.Interaction, error) {
	if threadID == "" {
		return t.fetchInteraction(SelectInteractionByTimestampAuthorAnyThreadQuery, timestampMs, authorID)
	}
	return t.fetchInteraction(SelectInteractionByTimestampAuthorQuery, threadID, timestampMs, authorID)
}

// ListInteractions returns the newest interactions of a thread first.
func (t *Tx) ListInteractions(threadID string, limit int) ([]models.Interaction, error) {
	rows, err := t.query(SelectInteractionsByThreadQuery, threadID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	defer rows.Close()

	var out []models.Interaction
	for rows.Next() {
		i, err := scanInteraction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		out = append(out, *i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate interactions: %w", err)
	}
	return out, nil
}

func (t *Tx) CountInteractions(threadID string) (int, error) {
	var n int
	if err := t.queryRow(CountInteractionsByThreadQuery, threadID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count interactions: %w", err)
	}
	return n, nil
}

// UpdateInteractionDelivery is applied when a message arrives again for an
// interaction that already exists, e.g. an outgoing message seen via sync.
func (t *Tx) UpdateInteractionDelivery(id int64, state models.InteractionState, serverHash string, wasRead bool) error {
	if _, err := t.exec(UpdateInteractionDeliveryQuery, string(state), serverHash, serverHash, wasRead, id); err != nil {
		return fmt.Errorf("failed to update interaction delivery: %w", err)
	}
	return nil
}

// MarkInteractionDeleted keeps the row as a tombstone of the given variant.
func (t *Tx) MarkInteractionDeleted(id int64, variant models.InteractionVariant) error {
	if _, err := t.exec(MarkInteractionDeletedQuery, string(variant), id); err != nil {
		return fmt.Errorf("failed to mark interaction deleted: %w", err)
	}
	return nil
}

func (t *Tx) DeleteInteraction(id int64) error {
	if _, err := t.exec(DeleteInteractionQuery, id); err != nil {
		return fmt.Errorf("failed to delete interaction: %w", err)
	}
	return nil
}

// MarkOutgoingReadByRecipient records a read receipt against outgoing
// messages with the given sent timestamps and returns how many rows changed.
func (t *Tx) MarkOutgoingReadByRecipient(threadID string, timestampsMs []int64, readAtMs int64) (int64, error) {
	var total int64
	for _, ts := range timestampsMs {
		n, err := t.execAffected(MarkOutgoingReadByRecipientQuery, readAtMs, threadID, ts)
		if err != nil {
			return total, fmt.Errorf("failed to apply read receipt: %w", err)
		}
		total += n
	}
	return total, nil
}

// MarkIncomingReadBefore marks every unread incoming interaction up to
// timestampMs as read, starting after-read expiry timers at nowMs.
func (t *Tx) MarkIncomingReadBefore(threadID string, timestampMs, nowMs int64) (int64, error) {
	n, err := t.execAffected(MarkIncomingReadBeforeQuery, nowMs, threadID, timestampMs)
	if err != nil {
		return 0, fmt.Errorf("failed to mark interactions read: %w", err)
	}
	return n, nil
}

func (t *Tx) DeleteInteractionsByHashes(threadID string, hashes []string) (int64, error) {
	var total int64
	for _, h := range hashes {
		n, err := t.execAffected(DeleteInteractionsByHashQuery, threadID, h)
		if err != nil {
			return total, fmt.Errorf("failed to delete interactions by hash: %w", err)
		}
		total += n
	}
	return total, nil
}

// DeleteInteractionsByAuthors removes content sent by the given authors at or
// before beforeMs.
func (t *Tx) DeleteInteractionsByAuthors(threadID string, authorIDs []string, beforeMs int64) (int64, error) {
	var total int64
	for _, a := range authorIDs {
		n, err := t.execAffected(DeleteInteractionsByAuthorQuery, threadID, a, beforeMs)
		if err != nil {
			return total, fmt.Errorf("failed to delete interactions by author: %w", err)
		}
		total += n
	}
	return total, nil
}

func (t *Tx) DeleteExpiredInteractions(nowMs int64) (int64, error) {
	n, err := t.execAffected(DeleteExpiredInteractionsQuery, nowMs)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired interactions: %w", err)
	}
	if _, err := t.exec(DeleteOrphanAttachmentsQuery); err != nil {
		return n, fmt.Errorf("failed to delete orphan attachments: %w", err)
	}
	return n, nil
}

// NextExpiry returns the earliest pending expiry in ms, or zero when nothing
// is counting down.
func (t *Tx) NextExpiry() (int64, error) {
	var next sql.NullInt64
	if err := t.queryRow(SelectNextExpiryQuery).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to read next expiry: %w", err)
	}
	return next.Int64, nil
}
