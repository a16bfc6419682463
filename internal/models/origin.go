package models

import "fmt"

// Namespace is a logical partition within a swarm mailbox.
type Namespace int

const (
	NamespaceDefault                         Namespace = 0
	NamespaceConfigUserProfile               Namespace = 2
	NamespaceConfigContacts                  Namespace = 3
	NamespaceConfigConvoInfoVolatile         Namespace = 4
	NamespaceConfigUserGroups                Namespace = 5
	NamespaceGroupMessages                   Namespace = 11
	NamespaceConfigGroupKeys                 Namespace = 12
	NamespaceConfigGroupInfo                 Namespace = 13
	NamespaceConfigGroupMembers              Namespace = 14
	NamespaceLegacyClosedGroup               Namespace = -10
	NamespaceRevokedRetrievableGroupMessages Namespace = -11
	NamespaceUnknown                         Namespace = -9998
	NamespaceAll                             Namespace = -9999
)

// IsConfigNamespace reports whether messages in the namespace belong to the
// config-sync subsystem rather than the message pipeline.
func (n Namespace) IsConfigNamespace() bool {
	switch n {
	case NamespaceConfigUserProfile, NamespaceConfigContacts, NamespaceConfigConvoInfoVolatile,
		NamespaceConfigUserGroups, NamespaceConfigGroupKeys, NamespaceConfigGroupInfo,
		NamespaceConfigGroupMembers:
		return true
	default:
		return false
	}
}

func (n Namespace) String() string {
	switch n {
	case NamespaceDefault:
		return "default"
	case NamespaceConfigUserProfile:
		return "configUserProfile"
	case NamespaceConfigContacts:
		return "configContacts"
	case NamespaceConfigConvoInfoVolatile:
		return "configConvoInfoVolatile"
	case NamespaceConfigUserGroups:
		return "configUserGroups"
	case NamespaceGroupMessages:
		return "groupMessages"
	case NamespaceConfigGroupKeys:
		return "configGroupKeys"
	case NamespaceConfigGroupInfo:
		return "configGroupInfo"
	case NamespaceConfigGroupMembers:
		return "configGroupMembers"
	case NamespaceLegacyClosedGroup:
		return "legacyClosedGroup"
	case NamespaceRevokedRetrievableGroupMessages:
		return "revokedRetrievableGroupMessages"
	case NamespaceAll:
		return "all"
	default:
		return "unknown"
	}
}

// OriginKind tags which delivery source produced a raw message.
type OriginKind string

const (
	OriginSwarm          OriginKind = "swarm"
	OriginCommunity      OriginKind = "community"
	OriginOpenGroupInbox OriginKind = "openGroupInbox"
)

// SwarmOrigin describes a message retrieved from a direct or group swarm.
type SwarmOrigin struct {
	PublicKey                 string    `json:"public_key"`
	Namespace                 Namespace `json:"namespace"`
	ServerHash                string    `json:"server_hash"`
	ServerTimestampMs         int64     `json:"server_timestamp_ms"`
	ServerExpirationTimestamp int64     `json:"server_expiration_timestamp"`
}

// CommunityOrigin describes a message posted to a community room.
type CommunityOrigin struct {
	OpenGroupID     string `json:"open_group_id"`
	Sender          string `json:"sender"`
	PostedAtMs      int64  `json:"posted_at_ms"`
	ServerMessageID int64  `json:"server_message_id"`
	// Whisper defaults to false when absent from the server payload.
	Whisper     bool   `json:"whisper"`
	WhisperMods bool   `json:"whisper_mods"`
	WhisperTo   string `json:"whisper_to,omitempty"`
}

// OpenGroupInboxOrigin describes a blinded direct message relayed by a community server.
type OpenGroupInboxOrigin struct {
	TimestampMs        int64  `json:"timestamp_ms"`
	ServerMessageID    int64  `json:"server_message_id"`
	ServerPublicKey    string `json:"server_public_key"`
	SenderBlindedID    string `json:"sender_blinded_id"`
	RecipientBlindedID string `json:"recipient_blinded_id"`
}

// Origin is a tagged union: exactly one of the pointers matching Kind is set.
type Origin struct {
	Kind      OriginKind            `json:"kind"`
	Swarm     *SwarmOrigin          `json:"swarm,omitempty"`
	Community *CommunityOrigin      `json:"community,omitempty"`
	Inbox     *OpenGroupInboxOrigin `json:"inbox,omitempty"`
}

func NewSwarmOrigin(o SwarmOrigin) Origin {
	return Origin{Kind: OriginSwarm, Swarm: &o}
}

func NewCommunityOrigin(o CommunityOrigin) Origin {
	return Origin{Kind: OriginCommunity, Community: &o}
}

func NewOpenGroupInboxOrigin(o OpenGroupInboxOrigin) Origin {
	return Origin{Kind: OriginOpenGroupInbox, Inbox: &o}
}

// IsConfigNamespace is true only for swarm deliveries into a config namespace.
func (o Origin) IsConfigNamespace() bool {
	return o.Kind == OriginSwarm && o.Swarm != nil && o.Swarm.Namespace.IsConfigNamespace()
}

// ServerExpirationTimestamp returns the swarm expiry for swarm origins and zero otherwise.
func (o Origin) ServerExpirationTimestamp() int64 {
	if o.Kind == OriginSwarm && o.Swarm != nil {
		return o.Swarm.ServerExpirationTimestamp
	}
	return 0
}

// Validate checks that the payload pointer matching Kind is present.
func (o Origin) Validate() error {
	switch o.Kind {
	case OriginSwarm:
		if o.Swarm == nil {
			return fmt.Errorf("swarm origin without swarm details")
		}
	case OriginCommunity:
		if o.Community == nil {
			return fmt.Errorf("community origin without community details")
		}
	case OriginOpenGroupInbox:
		if o.Inbox == nil {
			return fmt.Errorf("inbox origin without inbox details")
		}
	default:
		return fmt.Errorf("unknown origin kind %q", o.Kind)
	}
	return nil
}
