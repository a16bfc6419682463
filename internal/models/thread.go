package models

import "strings"

// ThreadVariant is the kind of conversation a message belongs to.
type ThreadVariant string

const (
	ThreadVariantContact     ThreadVariant = "contact"
	ThreadVariantLegacyGroup ThreadVariant = "legacyGroup"
	ThreadVariantCommunity   ThreadVariant = "community"
	ThreadVariantGroup       ThreadVariant = "group"
)

// Session id prefixes.
const (
	SessionIDPrefixStandard = "05"
	SessionIDPrefixGroup    = "03"
	SessionIDPrefixBlinded  = "15"
	SessionIDPrefixUnblind  = "00"
)

// IsBlindedID reports whether the id is a community-blinded session id.
func IsBlindedID(id string) bool {
	return strings.HasPrefix(id, SessionIDPrefixBlinded) && len(id) == 66
}

// IsGroupID reports whether the id is a group session id.
func IsGroupID(id string) bool {
	return strings.HasPrefix(id, SessionIDPrefixGroup) && len(id) == 66
}

// DisappearingType selects when an expiry timer starts.
type DisappearingType int

const (
	DisappearingUnknown DisappearingType = 0
	DisappearAfterRead  DisappearingType = 1
	DisappearAfterSend  DisappearingType = 2
)

func (t DisappearingType) String() string {
	switch t {
	case DisappearAfterRead:
		return "after_read"
	case DisappearAfterSend:
		return "after_send"
	default:
		return "unknown"
	}
}

// DisappearingConfig is a conversation's disappearing-message setting.
type DisappearingConfig struct {
	Enabled         bool             `json:"enabled"`
	Type            DisappearingType `json:"type"`
	DurationSeconds uint32           `json:"duration_seconds"`
}

// Thread is a conversation record.
type Thread struct {
	ID              string             `json:"id"`
	Variant         ThreadVariant      `json:"variant"`
	CreationMs      int64              `json:"creation_ms"`
	ShouldBeVisible bool               `json:"should_be_visible"`
	IsDraft         bool               `json:"is_draft"`
	Name            string             `json:"name,omitempty"`
	Disappearing    DisappearingConfig `json:"disappearing"`
	// OpenGroupPublicKey is the community server key, set for community threads only.
	OpenGroupPublicKey string `json:"open_group_public_key,omitempty"`
}
