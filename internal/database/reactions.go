package database

import (
	"fmt"

	"swarmsync/internal/models"
)

func (t *Tx) UpsertReaction(r models.Reaction) error {
	if _, err := t.exec(UpsertReactionQuery, r.InteractionID, r.AuthorID, r.Emoji, r.TimestampMs, r.ServerHash); err != nil {
		return fmt.Errorf("failed to upsert reaction: %w", err)
	}
	return nil
}

// RemoveReaction reports whether a reaction was removed.
func (t *Tx) RemoveReaction(interactionID int64, authorID, emoji string) (bool, error) {
	n, err := t.execAffected(DeleteReactionQuery, interactionID, authorID, emoji)
	if err != nil {
		return false, fmt.Errorf("failed to remove reaction: %w", err)
	}
	return n > 0, nil
}

func (t *Tx) FetchReactions(interactionID int64) ([]models.Reaction, error) {
	rows, err := t.query(SelectReactionsQuery, interactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reactions: %w", err)
	}
	defer rows.Close()

	var out []models.Reaction
	for rows.Next() {
		var r models.Reaction
		if err := rows.Scan(&r.ID, &r.InteractionID, &r.AuthorID, &r.Emoji, &r.TimestampMs, &r.ServerHash); err != nil {
			return nil, fmt.Errorf("failed to scan reaction: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
