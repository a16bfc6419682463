package database

import (
	"database/sql"
	"errors"
	"fmt"

	"swarmsync/internal/models"
)

// FetchThread returns nil, nil when the thread does not exist.
func (t *Tx) FetchThread(id string) (*models.Thread, error) {
	var th models.Thread
	var variant string
	var disappearingType int
	err := t.queryRow(SelectThreadQuery, id).Scan(
		&th.ID,
		&variant,
		&th.CreationMs,
		&th.ShouldBeVisible,
		&th.IsDraft,
		&th.Name,
		&th.Disappearing.Enabled,
		&disappearingType,
		&th.Disappearing.DurationSeconds,
		&th.OpenGroupPublicKey,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch thread: %w", err)
	}
	th.Variant = models.ThreadVariant(variant)
	th.Disappearing.Type = models.DisappearingType(disappearingType)
	return &th, nil
}

// CreateThreadIfMissing inserts a hidden thread unless one already exists and
// returns the stored row.
func (t *Tx) CreateThreadIfMissing(th models.Thread) (*models.Thread, error) {
	if th.ID == "" {
		return nil, fmt.Errorf("thread id is required")
	}
	_, err := t.exec(InsertThreadIfMissingQuery,
		th.ID,
		string(th.Variant),
		th.CreationMs,
		th.ShouldBeVisible,
		th.IsDraft,
		th.Name,
		th.OpenGroupPublicKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}
	return t.FetchThread(th.ID)
}

// MarkThreadVisible reports whether the row changed.
func (t *Tx) MarkThreadVisible(id string) (bool, error) {
	n, err := t.execAffected(MarkThreadVisibleQuery, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark thread visible: %w", err)
	}
	return n > 0, nil
}

func (t *Tx) UpdateThreadDisappearing(id string, cfg models.DisappearingConfig) error {
	if _, err := t.exec(UpdateThreadDisappearingQuery, cfg.Enabled, int(cfg.Type), cfg.DurationSeconds, id); err != nil {
		return fmt.Errorf("failed to update disappearing config: %w", err)
	}
	return nil
}

func (t *Tx) UpdateThreadName(id, name string) error {
	if _, err := t.exec(UpdateThreadNameQuery, name, id); err != nil {
		return fmt.Errorf("failed to update thread name: %w", err)
	}
	return nil
}

func (t *Tx) DeleteThread(id string) error {
	if _, err := t.exec(DeleteThreadQuery, id); err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}
	return nil
}
