package database

import (
	"database/sql"
	"errors"
	"fmt"

	"swarmsync/internal/models"
)

// FetchContact returns nil, nil when no contact row exists.
func (t *Tx) FetchContact(id string) (*models.Contact, error) {
	var c models.Contact
	var version int
	err := t.queryRow(SelectContactQuery, id).Scan(
		&c.ID,
		&c.Name,
		&c.ProfilePictureURL,
		&c.ProfileEncryptionKey,
		&c.ProfileUpdatedAtMs,
		&c.IsTrusted,
		&c.IsApproved,
		&c.DidApproveMe,
		&version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contact: %w", err)
	}
	c.LastKnownClientVersion = models.ClientVersion(version)
	return &c, nil
}

func (t *Tx) EnsureContact(id string) error {
	if _, err := t.exec(InsertContactIfMissingQuery, id); err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

// UpsertContactProfile stores profile data unless the stored profile is newer.
// It reports whether anything was written.
func (t *Tx) UpsertContactProfile(id, name, pictureURL string, key []byte, updatedAtMs int64) (bool, error) {
	n, err := t.execAffected(UpsertContactProfileQuery, id, name, pictureURL, key, updatedAtMs)
	if err != nil {
		return false, fmt.Errorf("failed to upsert contact profile: %w", err)
	}
	return n > 0, nil
}

// SetContactClientVersion reports whether the stored version changed.
func (t *Tx) SetContactClientVersion(id string, version models.ClientVersion) (bool, error) {
	if err := t.EnsureContact(id); err != nil {
		return false, err
	}
	n, err := t.execAffected(UpdateContactClientVersionQuery, int(version), id, int(version))
	if err != nil {
		return false, fmt.Errorf("failed to update client version: %w", err)
	}
	return n > 0, nil
}

func (t *Tx) SetContactDidApproveMe(id string, approved bool) error {
	if err := t.EnsureContact(id); err != nil {
		return err
	}
	if _, err := t.exec(UpdateContactDidApproveMeQuery, approved, id); err != nil {
		return fmt.Errorf("failed to update approval: %w", err)
	}
	return nil
}

func (t *Tx) SetContactApproved(id string, approved bool) error {
	if err := t.EnsureContact(id); err != nil {
		return err
	}
	if _, err := t.exec(UpdateContactApprovedQuery, approved, id); err != nil {
		return fmt.Errorf("failed to update approval: %w", err)
	}
	return nil
}

func (t *Tx) SetContactTrusted(id string, trusted bool) error {
	if err := t.EnsureContact(id); err != nil {
		return err
	}
	if _, err := t.exec(UpdateContactTrustedQuery, trusted, id); err != nil {
		return fmt.Errorf("failed to update trust: %w", err)
	}
	return nil
}
