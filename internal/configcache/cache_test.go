package configcache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"swarmsync/internal/models"
)

const groupID = "03aa"

func TestState_ConversationPredicates(t *testing.T) {
	s := NewState()
	s.SetConversation("05bb", models.ThreadVariantContact, Conversation{Visible: false, LastChangedMs: 5000, LastReadMs: 3000})

	assert.True(t, s.ConversationInConfig("05bb", models.ThreadVariantContact, false))
	assert.False(t, s.ConversationInConfig("05bb", models.ThreadVariantContact, true))
	assert.False(t, s.ConversationInConfig("05bb", models.ThreadVariantGroup, false))

	assert.False(t, s.CanPerformChange("05bb", models.ThreadVariantContact, 4999))
	assert.True(t, s.CanPerformChange("05bb", models.ThreadVariantContact, 5000))
	assert.True(t, s.CanPerformChange("05cc", models.ThreadVariantContact, 1), "no record means no restriction")

	assert.True(t, s.TimestampAlreadyRead("05bb", models.ThreadVariantContact, 3000, 0))
	assert.False(t, s.TimestampAlreadyRead("05bb", models.ThreadVariantContact, 3001, 0))
}

func TestState_CommunityReadUsesServerMessageID(t *testing.T) {
	s := NewState()
	s.SetConversation("room", models.ThreadVariantCommunity, Conversation{Visible: true, LastReadServerMessageID: 10})

	assert.True(t, s.TimestampAlreadyRead("room", models.ThreadVariantCommunity, 999999, 10))
	assert.False(t, s.TimestampAlreadyRead("room", models.ThreadVariantCommunity, 1, 11))
}

func TestState_GroupPredicates(t *testing.T) {
	s := NewState()
	assert.False(t, s.HasCredentials(groupID))
	assert.Zero(t, s.GroupDeleteBefore(groupID))

	s.SetGroup(groupID, Group{Keys: [][]byte{{1}}, DeleteBeforeSeconds: 10, DeleteAttachmentsBeforeSec: 20})
	assert.True(t, s.HasCredentials(groupID))
	assert.Equal(t, int64(10), s.GroupDeleteBefore(groupID))
	assert.Equal(t, int64(20), s.GroupDeleteAttachmentsBefore(groupID))
	assert.False(t, s.WasKickedFromGroup(groupID))

	s.MarkKickedFromGroup(groupID)
	assert.True(t, s.WasKickedFromGroup(groupID))
	assert.True(t, s.HasCredentials(groupID), "kick keeps keys")

	s.MarkKickedFromGroup("03unknown")
	assert.True(t, s.WasKickedFromGroup("03unknown"))
}

func TestState_ConcurrentAccess(t *testing.T) {
	s := NewState()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.SetBlocked("05dd", true)
			s.SetGroup(groupID, Group{Keys: [][]byte{{1}}})
		}()
		go func() {
			defer wg.Done()
			_ = s.IsContactBlocked("05dd")
			_ = s.GroupKeys(groupID)
		}()
	}
	wg.Wait()
	assert.True(t, s.IsContactBlocked("05dd"))
}
