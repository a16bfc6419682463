package database

// Schema bookkeeping
const (
	createSchemaMigrationsQuery = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at_ms INTEGER NOT NULL
		)
	`
	insertSchemaMigrationQuery = `INSERT INTO schema_migrations (version, name, applied_at_ms) VALUES (?, ?, ?)`
	selectSchemaVersionQuery   = `SELECT MAX(version) FROM schema_migrations`
)

// Thread queries
const (
	threadColumns = `
		id, variant, creation_ms, should_be_visible, is_draft, name,
		disappearing_enabled, disappearing_type, disappearing_duration, open_group_public_key
	`

	SelectThreadQuery = `SELECT ` + threadColumns + ` FROM threads WHERE id = ?`

	InsertThreadIfMissingQuery = `
		INSERT INTO threads (id, variant, creation_ms, should_be_visible, is_draft, name, open_group_public_key)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`

	MarkThreadVisibleQuery = `
		UPDATE threads SET should_be_visible = 1, is_draft = 0
		WHERE id = ? AND (should_be_visible = 0 OR is_draft = 1)
	`

	UpdateThreadDisappearingQuery = `
		UPDATE threads
		SET disappearing_enabled = ?, disappearing_type = ?, disappearing_duration = ?
		WHERE id = ?
	`

	UpdateThreadNameQuery = `UPDATE threads SET name = ? WHERE id = ?`

	DeleteThreadQuery = `DELETE FROM threads WHERE id = ?`
)

// Contact queries
const (
	contactColumns = `
		id, name, profile_picture_url, profile_encryption_key, profile_updated_at_ms,
		is_trusted, is_approved, did_approve_me, last_known_client_version
	`

	SelectContactQuery = `SELECT ` + contactColumns + ` FROM contacts WHERE id = ?`

	InsertContactIfMissingQuery = `INSERT INTO contacts (id) VALUES (?) ON CONFLICT(id) DO NOTHING`

	UpsertContactProfileQuery = `
		INSERT INTO contacts (id, name, profile_picture_url, profile_encryption_key, profile_updated_at_ms)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE contacts.name END,
			profile_picture_url = excluded.profile_picture_url,
			profile_encryption_key = excluded.profile_encryption_key,
			profile_updated_at_ms = excluded.profile_updated_at_ms
		WHERE excluded.profile_updated_at_ms >= contacts.profile_updated_at_ms
	`

	UpdateContactClientVersionQuery = `
		UPDATE contacts SET last_known_client_version = ? WHERE id = ? AND last_known_client_version != ?
	`

	UpdateContactDidApproveMeQuery = `UPDATE contacts SET did_approve_me = ? WHERE id = ?`

	UpdateContactApprovedQuery = `UPDATE contacts SET is_approved = ? WHERE id = ?`

	UpdateContactTrustedQuery = `UPDATE contacts SET is_trusted = ? WHERE id = ?`
)

// Interaction queries
const (
	interactionColumns = `
		id, server_hash, message_uuid, thread_id, author_id, variant, body,
		timestamp_ms, received_at_ms, was_read, has_mention, expires_in_seconds,
		expires_started_at_ms, link_preview_url, open_group_server_message_id,
		open_group_whisper_mods, open_group_whisper_to, state, recipient_read_at_ms
	`

	InsertInteractionQuery = `
		INSERT INTO interactions (
			server_hash, message_uuid, thread_id, author_id, variant, body,
			timestamp_ms, received_at_ms, was_read, has_mention, expires_in_seconds,
			expires_started_at_ms, link_preview_url, open_group_server_message_id,
			open_group_whisper_mods, open_group_whisper_to, state, recipient_read_at_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	SelectInteractionByIDQuery = `SELECT ` + interactionColumns + ` FROM interactions WHERE id = ?`

	SelectInteractionByKeyQuery = `
		SELECT ` + interactionColumns + ` FROM interactions
		WHERE thread_id = ? AND timestamp_ms = ? AND variant = ? AND author_id = ?
	`

	SelectInteractionByTimestampAuthorQuery = `
		SELECT ` + interactionColumns + ` FROM interactions
		WHERE thread_id = ? AND timestamp_ms = ? AND author_id = ?
		ORDER BY id LIMIT 1
	`

	SelectInteractionByTimestampAuthorAnyThreadQuery = `
		SELECT ` + interactionColumns + ` FROM interactions
		WHERE timestamp_ms = ? AND author_id = ?
		ORDER BY id LIMIT 1
	`

	SelectInteractionsByThreadQuery = `
		SELECT ` + interactionColumns + ` FROM interactions
		WHERE thread_id = ?
		ORDER BY timestamp_ms DESC, id DESC
		LIMIT ?
	`

	CountInteractionsByThreadQuery = `SELECT COUNT(*) FROM interactions WHERE thread_id = ?`

	UpdateInteractionDeliveryQuery = `
		UPDATE interactions
		SET state = ?,
			server_hash = CASE WHEN ? != '' THEN ? ELSE server_hash END,
			was_read = MAX(was_read, ?)
		WHERE id = ?
	`

	MarkInteractionDeletedQuery = `
		UPDATE interactions
		SET variant = ?, body = '', state = 'deleted', link_preview_url = '', expires_in_seconds = 0
		WHERE id = ?
	`

	MarkOutgoingReadByRecipientQuery = `
		UPDATE interactions
		SET recipient_read_at_ms = ?
		WHERE thread_id = ? AND variant = 'standardOutgoing' AND timestamp_ms = ? AND recipient_read_at_ms = 0
	`

	MarkIncomingReadBeforeQuery = `
		UPDATE interactions
		SET was_read = 1,
			expires_started_at_ms = CASE
				WHEN expires_in_seconds > 0 AND expires_started_at_ms = 0 THEN ?
				ELSE expires_started_at_ms END
		WHERE thread_id = ? AND timestamp_ms <= ? AND was_read = 0 AND variant != 'standardOutgoing'
	`

	DeleteInteractionQuery = `DELETE FROM interactions WHERE id = ?`

	DeleteInteractionsByHashQuery = `DELETE FROM interactions WHERE thread_id = ? AND server_hash = ? AND server_hash != ''`

	DeleteInteractionsByAuthorQuery = `DELETE FROM interactions WHERE thread_id = ? AND author_id = ? AND timestamp_ms <= ?`

	DeleteExpiredInteractionsQuery = `
		DELETE FROM interactions
		WHERE expires_in_seconds > 0 AND expires_started_at_ms > 0
		  AND expires_started_at_ms + expires_in_seconds * 1000 <= ?
	`

	SelectNextExpiryQuery = `
		SELECT MIN(expires_started_at_ms + expires_in_seconds * 1000)
		FROM interactions
		WHERE expires_in_seconds > 0 AND expires_started_at_ms > 0
	`
)

// Attachment, quote and link preview queries
const (
	InsertAttachmentQuery = `
		INSERT INTO attachments (
			id, server_id, content_type, download_url, size, digest, encryption_key,
			file_name, caption, width, height, state
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`

	InsertInteractionAttachmentQuery = `
		INSERT INTO interaction_attachments (interaction_id, attachment_id, album_index)
		VALUES (?, ?, ?)
		ON CONFLICT(interaction_id, attachment_id) DO NOTHING
	`

	SelectInteractionAttachmentsQuery = `
		SELECT a.id, a.server_id, a.content_type, a.download_url, a.size, a.digest,
			   a.encryption_key, a.file_name, a.caption, a.width, a.height, a.state
		FROM attachments a
		JOIN interaction_attachments ia ON ia.attachment_id = a.id
		WHERE ia.interaction_id = ?
		ORDER BY ia.album_index
	`

	SelectAttachmentQuery = `
		SELECT id, server_id, content_type, download_url, size, digest,
			   encryption_key, file_name, caption, width, height, state
		FROM attachments WHERE id = ?
	`

	UpdateAttachmentStateQuery = `UPDATE attachments SET state = ? WHERE id = ?`

	DeleteOrphanAttachmentsQuery = `
		DELETE FROM attachments
		WHERE id NOT IN (SELECT attachment_id FROM interaction_attachments)
	`

	InsertQuoteQuery = `
		INSERT INTO quotes (interaction_id, author_id, timestamp_ms, body)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(interaction_id) DO NOTHING
	`

	SelectQuoteQuery = `SELECT interaction_id, author_id, timestamp_ms, body FROM quotes WHERE interaction_id = ?`

	InsertLinkPreviewQuery = `
		INSERT INTO link_previews (url, timestamp, title) VALUES (?, ?, ?)
		ON CONFLICT(url, timestamp) DO NOTHING
	`

	SelectLinkPreviewQuery = `SELECT url, timestamp, title FROM link_previews WHERE url = ? AND timestamp = ?`
)

// Reaction queries
const (
	UpsertReactionQuery = `
		INSERT INTO reactions (interaction_id, author_id, emoji, timestamp_ms, server_hash)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(interaction_id, author_id, emoji) DO UPDATE SET
			timestamp_ms = excluded.timestamp_ms,
			server_hash = excluded.server_hash
	`

	DeleteReactionQuery = `DELETE FROM reactions WHERE interaction_id = ? AND author_id = ? AND emoji = ?`

	SelectReactionsQuery = `
		SELECT id, interaction_id, author_id, emoji, timestamp_ms, server_hash
		FROM reactions WHERE interaction_id = ? ORDER BY timestamp_ms, id
	`
)

// Group member queries
const (
	UpsertGroupMemberQuery = `
		INSERT INTO group_members (group_id, profile_id, role, role_status)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(group_id, profile_id) DO UPDATE SET
			role = excluded.role,
			role_status = excluded.role_status
	`

	DeleteGroupMemberQuery = `DELETE FROM group_members WHERE group_id = ? AND profile_id = ?`

	SelectGroupMemberQuery = `
		SELECT group_id, profile_id, role, role_status FROM group_members
		WHERE group_id = ? AND profile_id = ?
	`

	SelectGroupMembersQuery = `
		SELECT group_id, profile_id, role, role_status FROM group_members
		WHERE group_id = ? ORDER BY profile_id
	`
)

// Job queries
const (
	jobColumns = `id, variant, dedupe_key, thread_id, interaction_id, details, next_run_ms, created_at_ms`

	UpsertJobQuery = `
		INSERT INTO jobs (` + jobColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(dedupe_key) DO UPDATE SET
			details = excluded.details,
			next_run_ms = excluded.next_run_ms
	`

	SelectJobByDedupeKeyQuery = `SELECT ` + jobColumns + ` FROM jobs WHERE dedupe_key = ?`

	SelectDueJobsQuery = `
		SELECT ` + jobColumns + ` FROM jobs
		WHERE variant = ? AND next_run_ms <= ?
		ORDER BY next_run_ms, created_at_ms
		LIMIT ?
	`

	CountJobsQuery = `SELECT COUNT(*) FROM jobs WHERE variant = ?`

	DeleteJobQuery = `DELETE FROM jobs WHERE id = ?`
)

// Received message deduplication queries
const (
	InsertReceivedMessageQuery = `
		INSERT INTO received_messages (unique_identifier, thread_id, namespace, received_at_ms, expires_at_ms)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(unique_identifier, namespace) DO NOTHING
	`

	DeleteExpiredReceivedMessagesQuery = `
		DELETE FROM received_messages WHERE expires_at_ms > 0 AND expires_at_ms <= ?
	`
)
