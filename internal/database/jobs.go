package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"swarmsync/internal/models"
)

func scanJob(row rowScanner) (*models.Job, error) {
	var j models.Job
	var variant, details string
	if err := row.Scan(&j.ID, &variant, &j.DedupeKey, &j.ThreadID, &j.InteractionID, &details, &j.NextRunMs, &j.CreatedAtMs); err != nil {
		return nil, err
	}
	j.Variant = models.JobVariant(variant)
	j.Details = json.RawMessage(details)
	return &j, nil
}

// UpsertJob inserts j, or refreshes the schedule of the job already holding
// its dedupe key. The id of an existing job is kept.
func (t *Tx) UpsertJob(j models.Job) error {
	details := "{}"
	if len(j.Details) > 0 {
		details = string(j.Details)
	}
	_, err := t.exec(UpsertJobQuery,
		j.ID,
		string(j.Variant),
		j.DedupeKey,
		j.ThreadID,
		j.InteractionID,
		details,
		j.NextRunMs,
		j.CreatedAtMs,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert job: %w", err)
	}
	return nil
}

func (t *Tx) FetchJob(dedupeKey string) (*models.Job, error) {
	j, err := scanJob(t.queryRow(SelectJobByDedupeKeyQuery, dedupeKey))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch job: %w", err)
	}
	return j, nil
}

// DueJobs returns up to limit jobs of variant scheduled at or before nowMs.
func (t *Tx) DueJobs(variant models.JobVariant, nowMs int64, limit int) ([]models.Job, error) {
	rows, err := t.query(SelectDueJobsQuery, string(variant), nowMs, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due jobs: %w", err)
	}
	defer rows.Close()

	var out []models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

func (t *Tx) CountJobs(variant models.JobVariant) (int, error) {
	var n int
	if err := t.queryRow(CountJobsQuery, string(variant)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return n, nil
}

func (t *Tx) DeleteJob(id string) error {
	if _, err := t.exec(DeleteJobQuery, id); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}
