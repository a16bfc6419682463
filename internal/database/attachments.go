package database

import (
	"database/sql"
	"errors"
	"fmt"

	"swarmsync/internal/models"
)

// InsertAttachment stores a and links it to the interaction at albumIndex.
func (t *Tx) InsertAttachment(interactionID int64, albumIndex int, a models.Attachment) error {
	if a.State == "" {
		a.State = models.AttachmentPendingDownload
	}
	_, err := t.exec(InsertAttachmentQuery,
		a.ID,
		int64(a.ServerID),
		a.ContentType,
		a.DownloadURL,
		a.Size,
		a.Digest,
		a.EncryptionKey,
		a.FileName,
		a.Caption,
		a.Width,
		a.Height,
		string(a.State),
	)
	if err != nil {
		return fmt.Errorf("failed to insert attachment: %w", err)
	}
	if _, err := t.exec(InsertInteractionAttachmentQuery, interactionID, a.ID, albumIndex); err != nil {
		return fmt.Errorf("failed to link attachment: %w", err)
	}
	return nil
}

func scanAttachment(row rowScanner) (*models.Attachment, error) {
	var a models.Attachment
	var serverID int64
	var state string
	if err := row.Scan(
		&a.ID,
		&serverID,
		&a.ContentType,
		&a.DownloadURL,
		&a.Size,
		&a.Digest,
		&a.EncryptionKey,
		&a.FileName,
		&a.Caption,
		&a.Width,
		&a.Height,
		&state,
	); err != nil {
		return nil, err
	}
	a.ServerID = uint64(serverID)
	a.State = models.AttachmentState(state)
	return &a, nil
}

func (t *Tx) FetchAttachment(id string) (*models.Attachment, error) {
	a, err := scanAttachment(t.queryRow(SelectAttachmentQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch attachment: %w", err)
	}
	return a, nil
}

func (t *Tx) InteractionAttachments(interactionID int64) ([]models.Attachment, error) {
	rows, err := t.query(SelectInteractionAttachmentsQuery, interactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch attachments: %w", err)
	}
	defer rows.Close()

	var out []models.Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (t *Tx) SetAttachmentState(id string, state models.AttachmentState) error {
	if _, err := t.exec(UpdateAttachmentStateQuery, string(state), id); err != nil {
		return fmt.Errorf("failed to update attachment state: %w", err)
	}
	return nil
}

func (t *Tx) InsertQuote(q models.Quote) error {
	if _, err := t.exec(InsertQuoteQuery, q.InteractionID, q.AuthorID, q.TimestampMs, q.Body); err != nil {
		return fmt.Errorf("failed to insert quote: %w", err)
	}
	return nil
}

func (t *Tx) FetchQuote(interactionID int64) (*models.Quote, error) {
	var q models.Quote
	err := t.queryRow(SelectQuoteQuery, interactionID).Scan(&q.InteractionID, &q.AuthorID, &q.TimestampMs, &q.Body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote: %w", err)
	}
	return &q, nil
}

// UpsertLinkPreview keeps the first preview stored for a url and bucket.
func (t *Tx) UpsertLinkPreview(p models.LinkPreview) error {
	if _, err := t.exec(InsertLinkPreviewQuery, p.URL, p.Timestamp, p.Title); err != nil {
		return fmt.Errorf("failed to insert link preview: %w", err)
	}
	return nil
}

func (t *Tx) FetchLinkPreview(url string, timestamp int64) (*models.LinkPreview, error) {
	var p models.LinkPreview
	err := t.queryRow(SelectLinkPreviewQuery, url, timestamp).Scan(&p.URL, &p.Timestamp, &p.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch link preview: %w", err)
	}
	return &p, nil
}
