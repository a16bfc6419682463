// Package configcache holds the locally-known view of the externally
// synchronised config state (contacts, conversations, group status) and
// answers the read-only questions the receive pipeline asks of it.
package configcache

import (
	"sync"

	"swarmsync/internal/models"
)

// Cache is the read side used by the receive pipeline.
type Cache interface {
	IsContactBlocked(sessionID string) bool
	// ConversationInConfig reports whether the conversation has a config record,
	// limited to visible conversations when visibleOnly is set.
	ConversationInConfig(threadID string, variant models.ThreadVariant, visibleOnly bool) bool
	// CanPerformChange reports whether a change made at timestampMs is newer
	// than the last config change recorded for the conversation.
	CanPerformChange(threadID string, variant models.ThreadVariant, timestampMs int64) bool
	HasCredentials(groupID string) bool
	GroupIsDestroyed(groupID string) bool
	WasKickedFromGroup(groupID string) bool
	// GroupDeleteBefore returns the cutoff in seconds, zero when none is set.
	GroupDeleteBefore(groupID string) int64
	GroupDeleteAttachmentsBefore(groupID string) int64
	TimestampAlreadyRead(threadID string, variant models.ThreadVariant, timestampMs int64, openGroupServerMessageID int64) bool
	// GroupKeys returns the group's decryption keys, newest first.
	GroupKeys(groupID string) [][]byte
}

// Mutator is the narrow write surface handlers use for instructions that
// arrive through the message pipeline rather than config sync.
type Mutator interface {
	MarkKickedFromGroup(groupID string)
}

// Conversation is the config record for a 1:1, community or group conversation.
type Conversation struct {
	Visible       bool
	LastChangedMs int64
	// LastReadMs marks everything at or before it as read on another device.
	LastReadMs int64
	// LastReadServerMessageID is used instead of LastReadMs for communities.
	LastReadServerMessageID int64
}

// Group is the config record for a group the account belongs to.
type Group struct {
	Keys                       [][]byte
	AdminKey                   []byte
	Destroyed                  bool
	Kicked                     bool
	DeleteBeforeSeconds        int64
	DeleteAttachmentsBeforeSec int64
}

type conversationKey struct {
	id      string
	variant models.ThreadVariant
}

// State is a thread-safe in-memory Cache fed by the config-sync subsystem.
type State struct {
	mu            sync.RWMutex
	blocked       map[string]bool
	conversations map[conversationKey]Conversation
	groups        map[string]*Group
}

func NewState() *State {
	return &State{
		blocked:       make(map[string]bool),
		conversations: make(map[conversationKey]Conversation),
		groups:        make(map[string]*Group),
	}
}

func (s *State) SetBlocked(sessionID string, blocked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if blocked {
		s.blocked[sessionID] = true
	} else {
		delete(s.blocked, sessionID)
	}
}

func (s *State) SetConversation(threadID string, variant models.ThreadVariant, c Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conversationKey{threadID, variant}] = c
}

func (s *State) RemoveConversation(threadID string, variant models.ThreadVariant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, conversationKey{threadID, variant})
}

func (s *State) SetGroup(groupID string, g Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[groupID] = &g
}

func (s *State) MarkKickedFromGroup(groupID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.groups[groupID]; ok {
		g.Kicked = true
		return
	}
	s.groups[groupID] = &Group{Kicked: true}
}

func (s *State) IsContactBlocked(sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blocked[sessionID]
}

func (s *State) ConversationInConfig(threadID string, variant models.ThreadVariant, visibleOnly bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[conversationKey{threadID, variant}]
	if !ok {
		return false
	}
	return !visibleOnly || c.Visible
}

func (s *State) CanPerformChange(threadID string, variant models.ThreadVariant, timestampMs int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[conversationKey{threadID, variant}]
	if !ok {
		return true
	}
	return timestampMs >= c.LastChangedMs
}

func (s *State) HasCredentials(groupID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[groupID]
	return ok && len(g.Keys) > 0
}

func (s *State) GroupIsDestroyed(groupID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[groupID]
	return ok && g.Destroyed
}

func (s *State) WasKickedFromGroup(groupID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[groupID]
	return ok && g.Kicked
}

func (s *State) GroupDeleteBefore(groupID string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if g, ok := s.groups[groupID]; ok {
		return g.DeleteBeforeSeconds
	}
	return 0
}

func (s *State) GroupDeleteAttachmentsBefore(groupID string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if g, ok := s.groups[groupID]; ok {
		return g.DeleteAttachmentsBeforeSec
	}
	return 0
}

func (s *State) TimestampAlreadyRead(threadID string, variant models.ThreadVariant, timestampMs int64, openGroupServerMessageID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[conversationKey{threadID, variant}]
	if !ok {
		return false
	}
	if variant == models.ThreadVariantCommunity {
		return openGroupServerMessageID > 0 && openGroupServerMessageID <= c.LastReadServerMessageID
	}
	return timestampMs > 0 && timestampMs <= c.LastReadMs
}

func (s *State) GroupKeys(groupID string) [][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[groupID]
	if !ok {
		return nil
	}
	keys := make([][]byte, len(g.Keys))
	copy(keys, g.Keys)
	return keys
}
