package models

// InteractionVariant classifies a persisted chat item.
type InteractionVariant string

const (
	InteractionStandardIncoming        InteractionVariant = "standardIncoming"
	InteractionStandardOutgoing        InteractionVariant = "standardOutgoing"
	InteractionStandardIncomingDeleted InteractionVariant = "standardIncomingDeleted"
	InteractionStandardOutgoingDeleted InteractionVariant = "standardOutgoingDeleted"

	InteractionInfoDisappearingMessagesUpdate InteractionVariant = "infoDisappearingMessagesUpdate"
	InteractionInfoScreenshotNotification     InteractionVariant = "infoScreenshotNotification"
	InteractionInfoMediaSavedNotification     InteractionVariant = "infoMediaSavedNotification"
	InteractionInfoMessageRequestAccepted     InteractionVariant = "infoMessageRequestAccepted"
	InteractionInfoCall                       InteractionVariant = "infoCall"
	InteractionInfoGroupInfoInvited           InteractionVariant = "infoGroupInfoInvited"
	InteractionInfoGroupInfoUpdated           InteractionVariant = "infoGroupInfoUpdated"
	InteractionInfoGroupMembersUpdated        InteractionVariant = "infoGroupMembersUpdated"
)

// IsInfo reports whether the variant is a system message rather than user content.
func (v InteractionVariant) IsInfo() bool {
	switch v {
	case InteractionStandardIncoming, InteractionStandardOutgoing,
		InteractionStandardIncomingDeleted, InteractionStandardOutgoingDeleted:
		return false
	default:
		return true
	}
}

// InteractionState is the delivery lifecycle of an interaction, separate from read state.
type InteractionState string

const (
	InteractionStateUnset   InteractionState = ""
	InteractionStateSent    InteractionState = "sent"
	InteractionStateFailed  InteractionState = "failed"
	InteractionStateDeleted InteractionState = "deleted"
)

// Interaction is a persisted chat item, unique per (ThreadID, TimestampMs, Variant, AuthorID).
type Interaction struct {
	ID                       int64              `json:"id"`
	ServerHash               string             `json:"server_hash,omitempty"`
	MessageUUID              string             `json:"message_uuid,omitempty"`
	ThreadID                 string             `json:"thread_id"`
	AuthorID                 string             `json:"author_id"`
	Variant                  InteractionVariant `json:"variant"`
	Body                     string             `json:"body,omitempty"`
	TimestampMs              int64              `json:"timestamp_ms"`
	ReceivedAtMs             int64              `json:"received_at_ms"`
	WasRead                  bool               `json:"was_read"`
	HasMention               bool               `json:"has_mention"`
	ExpiresInSeconds         uint32             `json:"expires_in_seconds,omitempty"`
	ExpiresStartedAtMs       int64              `json:"expires_started_at_ms,omitempty"`
	LinkPreviewURL           string             `json:"link_preview_url,omitempty"`
	OpenGroupServerMessageID int64              `json:"open_group_server_message_id,omitempty"`
	OpenGroupWhisperMods     bool               `json:"open_group_whisper_mods,omitempty"`
	OpenGroupWhisperTo       string             `json:"open_group_whisper_to,omitempty"`
	State                    InteractionState   `json:"state,omitempty"`
	RecipientReadAtMs        int64              `json:"recipient_read_at_ms,omitempty"`
}

// InsertedInteractionInfo identifies the interaction a handler created or converged on.
type InsertedInteractionInfo struct {
	ID          int64              `json:"id"`
	Variant     InteractionVariant `json:"variant"`
	TimestampMs int64              `json:"timestamp_ms"`
}

// AttachmentState tracks download progress.
type AttachmentState string

const (
	AttachmentPendingDownload AttachmentState = "pendingDownload"
	AttachmentDownloaded      AttachmentState = "downloaded"
	AttachmentFailedDownload  AttachmentState = "failedDownload"
)

type Attachment struct {
	ID            string          `json:"id"`
	ServerID      uint64          `json:"server_id"`
	ContentType   string          `json:"content_type"`
	DownloadURL   string          `json:"download_url"`
	Size          uint32          `json:"size"`
	Digest        []byte          `json:"digest,omitempty"`
	EncryptionKey []byte          `json:"encryption_key,omitempty"`
	FileName      string          `json:"file_name,omitempty"`
	Caption       string          `json:"caption,omitempty"`
	Width         uint32          `json:"width,omitempty"`
	Height        uint32          `json:"height,omitempty"`
	State         AttachmentState `json:"state"`
}

type Quote struct {
	InteractionID int64  `json:"interaction_id"`
	AuthorID      string `json:"author_id"`
	TimestampMs   int64  `json:"timestamp_ms"`
	Body          string `json:"body,omitempty"`
}

// LinkPreviewTimestampGranularity buckets preview timestamps so messages
// sharing a URL within the window share one preview row.
const LinkPreviewTimestampGranularity = 100000

type LinkPreview struct {
	URL       string `json:"url"`
	Timestamp int64  `json:"timestamp"`
	Title     string `json:"title,omitempty"`
}

// LinkPreviewTimestamp rounds a sent timestamp (ms) into its preview bucket (seconds).
func LinkPreviewTimestamp(sentTimestampMs int64) int64 {
	seconds := sentTimestampMs / 1000
	return seconds - seconds%LinkPreviewTimestampGranularity
}

type Reaction struct {
	ID            int64  `json:"id"`
	InteractionID int64  `json:"interaction_id"`
	AuthorID      string `json:"author_id"`
	Emoji         string `json:"emoji"`
	TimestampMs   int64  `json:"timestamp_ms"`
	ServerHash    string `json:"server_hash,omitempty"`
}
