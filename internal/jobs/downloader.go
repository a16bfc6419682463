package jobs

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"os"

	apperrors "swarmsync/internal/errors"
	"swarmsync/internal/media"
	"swarmsync/internal/models"
	"swarmsync/internal/security"
)

// Downloader fetches an attachment's content to local storage.
type Downloader interface {
	Download(ctx context.Context, a models.Attachment) error
}

// HTTPDownloader stores attachments under dir, one file per attachment id.
// Content is kept as served; decrypting it is left to the reader.
type HTTPDownloader struct {
	client *http.Client
	dir    string
	router media.Router
}

func NewHTTPDownloader(client *http.Client, dir string, router media.Router) (*HTTPDownloader, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create attachments dir: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPDownloader{client: client, dir: dir, router: router}, nil
}

// Path returns where the attachment with id is stored.
func (d *HTTPDownloader) Path(id string) (string, error) {
	return security.StoragePath(d.dir, id)
}

// Download returns a retryable error for transport failures and server
// errors, and a permanent one for anything a retry cannot fix.
func (d *HTTPDownloader) Download(ctx context.Context, a models.Attachment) error {
	dest, err := d.Path(a.ID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeAttachmentDownload, "invalid attachment id")
	}
	if a.DownloadURL == "" {
		return apperrors.New(apperrors.ErrCodeAttachmentDownload, "attachment has no download url")
	}

	limit := d.router.MaxSize(d.router.Classify(a.ContentType, a.FileName))
	if int64(a.Size) > limit {
		return apperrors.New(apperrors.ErrCodeAttachmentDownload, "attachment exceeds size limit").
			WithContext("size", a.Size).WithContext("limit", limit)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.DownloadURL, nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeAttachmentDownload, "invalid download url")
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return apperrors.WrapRetryable(err, apperrors.ErrCodeAttachmentDownload, "download request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("unexpected status %d", resp.StatusCode)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return apperrors.WrapRetryable(statusErr, apperrors.ErrCodeAttachmentDownload, "download failed")
		}
		return apperrors.Wrap(statusErr, apperrors.ErrCodeAttachmentDownload, "download failed")
	}

	tmp, err := os.CreateTemp(d.dir, a.ID+".part-*")
	if err != nil {
		return apperrors.WrapRetryable(err, apperrors.ErrCodeAttachmentDownload, "failed to create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	hash := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, hash), io.LimitReader(resp.Body, limit+1))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return apperrors.WrapRetryable(err, apperrors.ErrCodeAttachmentDownload, "failed to read attachment")
	}
	if n > limit {
		return apperrors.New(apperrors.ErrCodeAttachmentDownload, "attachment exceeds size limit").
			WithContext("limit", limit)
	}
	if len(a.Digest) > 0 && !bytes.Equal(hash.Sum(nil), a.Digest) {
		return apperrors.New(apperrors.ErrCodeAttachmentDownload, "attachment digest mismatch")
	}

	if err := os.Rename(tmpName, dest); err != nil {
		return apperrors.WrapRetryable(err, apperrors.ErrCodeAttachmentDownload, "failed to store attachment")
	}
	return nil
}
