package models

// ClientVersion records which disappearing-message convention a contact's client uses.
type ClientVersion int

const (
	ClientVersionUnknown            ClientVersion = 0
	ClientVersionLegacyDisappearing ClientVersion = 1
	ClientVersionNewDisappearing    ClientVersion = 2
)

// Contact is the local record for another account.
type Contact struct {
	ID                     string        `json:"id"`
	Name                   string        `json:"name,omitempty"`
	ProfilePictureURL      string        `json:"profile_picture_url,omitempty"`
	ProfileEncryptionKey   []byte        `json:"-"`
	ProfileUpdatedAtMs     int64         `json:"profile_updated_at_ms,omitempty"`
	IsTrusted              bool          `json:"is_trusted"`
	IsApproved             bool          `json:"is_approved"`
	DidApproveMe           bool          `json:"did_approve_me"`
	LastKnownClientVersion ClientVersion `json:"last_known_client_version"`
}

// DisplayName returns the best available display name for the contact.
func (c *Contact) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}
