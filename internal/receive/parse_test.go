package receive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "swarmsync/internal/errors"
	"swarmsync/internal/models"
	"swarmsync/internal/protocol"
)

func TestParse_ConfigNamespaceDiverted(t *testing.T) {
	env := newTestEnv(t)

	origin := swarmOrigin(models.NamespaceConfigContacts, env.myID(), "cfg-1")
	processed, err := env.receiver.Parse(context.Background(), []byte("opaque"), origin)
	require.NoError(t, err)
	require.NotNil(t, processed.Config)
	assert.Nil(t, processed.Standard)
	assert.Equal(t, "cfg-1", processed.Config.UniqueIdentifier)
	assert.Equal(t, []byte("opaque"), processed.Config.Data)

	require.NoError(t, env.receiver.MergeConfig(context.Background(), processed.Config))
	require.Len(t, env.sink.merged, 1)
	assert.Equal(t, models.NamespaceConfigContacts, env.sink.merged[0].Namespace)
}

func TestParse_NamespaceRejections(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name      string
		namespace models.Namespace
		code      apperrors.ErrorCode
	}{
		{"legacy closed group", models.NamespaceLegacyClosedGroup, apperrors.ErrCodeDeprecatedMessage},
		{"unknown namespace", models.NamespaceUnknown, apperrors.ErrCodeInvalidMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.receiver.Parse(context.Background(), []byte{1, 2, 3}, swarmOrigin(tt.namespace, env.myID(), "h"))
			assert.True(t, apperrors.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestParse_MalformedEnvelope(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.receiver.Parse(context.Background(), []byte{0xff, 0xff, 0xff}, swarmOrigin(models.NamespaceDefault, env.myID(), "h"))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidMessage), "got %v", err)
}

func TestParse_BlockedSender(t *testing.T) {
	env := newTestEnv(t)
	contact := newEngine(t)
	env.cache.SetBlocked(contact.Keys().SessionID(), true)

	data := sessionDelivery(t, contact, env.myID(), 1000, textContent("spam"))
	_, err := env.receiver.Parse(context.Background(), data, swarmOrigin(models.NamespaceDefault, env.myID(), "h"))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSenderBlocked))
}

func TestParse_GroupMessage(t *testing.T) {
	env := newTestEnv(t)
	group := newTestGroup(t, env)
	member := newEngine(t)

	inner := protocol.EncodeEnvelope(&protocol.Envelope{
		Type:        protocol.EnvelopeSessionMessage,
		Source:      member.Keys().SessionID(),
		TimestampMs: 1500,
		Content:     protocol.EncodeContent(textContent("hi group")),
	})
	ciphertext, err := member.EncryptGroup(inner, group.id, group.key)
	require.NoError(t, err)

	processed, err := env.receiver.Parse(context.Background(), ciphertext, swarmOrigin(models.NamespaceGroupMessages, group.id, "g-1"))
	require.NoError(t, err)
	std := processed.Standard
	require.NotNil(t, std)
	assert.Equal(t, group.id, std.ThreadID)
	assert.Equal(t, models.ThreadVariantGroup, std.ThreadVariant)
	assert.Equal(t, member.Keys().SessionID(), std.Message.Base().Sender)
	assert.Equal(t, int64(1500), std.Message.Base().SentTimestampMs)
	assert.Equal(t, "g-1", std.UniqueIdentifier)
}

func TestParse_GroupMissingKeysRequestsOnce(t *testing.T) {
	env := newTestEnv(t)
	member := newEngine(t)
	groupID := "03" + sessionID(7)[2:]

	ciphertext, err := member.EncryptGroup([]byte("payload"), groupID, append(make([]byte, 31), 1))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := env.receiver.Parse(context.Background(), ciphertext, swarmOrigin(models.NamespaceGroupMessages, groupID, "g"))
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDecryptionFailed), "got %v", err)
	}
	assert.Equal(t, []string{groupID}, env.sink.keyRequested)

	env.receiver.GroupKeysUpdated(groupID)
	_, err = env.receiver.Parse(context.Background(), ciphertext, swarmOrigin(models.NamespaceGroupMessages, groupID, "g"))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDecryptionFailed))
	assert.Equal(t, []string{groupID, groupID}, env.sink.keyRequested, "supplied keys lift the throttle")
}

func TestParse_CommunityMessage(t *testing.T) {
	env := newTestEnv(t)
	sender := sessionID(3)

	origin := models.NewCommunityOrigin(models.CommunityOrigin{
		OpenGroupID:     "https://chat.example/room",
		Sender:          sender,
		PostedAtMs:      2000,
		ServerMessageID: 42,
	})
	processed, err := env.receiver.Parse(context.Background(), protocol.Pad(protocol.EncodeContent(textContent("room post"))), origin)
	require.NoError(t, err)
	std := processed.Standard
	assert.Equal(t, "https://chat.example/room", std.ThreadID)
	assert.Equal(t, models.ThreadVariantCommunity, std.ThreadVariant)
	assert.Equal(t, "community:https://chat.example/room:42", std.UniqueIdentifier)
	assert.Equal(t, int64(42), std.Message.Base().OpenGroupServerMessageID)
}

func TestParse_InboxMessage(t *testing.T) {
	env := newTestEnv(t)
	contact := newEngine(t)

	myBlinded, err := env.me.BlindedID(testServerKey)
	require.NoError(t, err)
	theirBlinded, err := contact.BlindedID(testServerKey)
	require.NoError(t, err)

	ciphertext, err := contact.EncryptBlinded(protocol.Pad(protocol.EncodeContent(textContent("dm"))), myBlinded, testServerKey)
	require.NoError(t, err)

	origin := models.NewOpenGroupInboxOrigin(models.OpenGroupInboxOrigin{
		TimestampMs:        3000,
		ServerMessageID:    7,
		ServerPublicKey:    testServerKey,
		SenderBlindedID:    theirBlinded,
		RecipientBlindedID: myBlinded,
	})
	processed, err := env.receiver.Parse(context.Background(), ciphertext, origin)
	require.NoError(t, err)
	std := processed.Standard
	assert.Equal(t, theirBlinded, std.ThreadID)
	assert.Equal(t, models.ThreadVariantContact, std.ThreadVariant)
	assert.Equal(t, contact.Keys().SessionID(), std.Message.Base().Sender)
	assert.Equal(t, "inbox:"+testServerKey+":7", std.UniqueIdentifier)
}

func TestTypingRegistry(t *testing.T) {
	reg := NewTypingRegistry(5 * time.Second)
	now := time.UnixMilli(testNowMs)

	reg.Start("thread", "alice", now)
	reg.Start("other", "bob", now)
	assert.Equal(t, []string{"alice"}, reg.Typing("thread", now.Add(4*time.Second)))

	assert.True(t, reg.Stop("thread", "alice"))
	assert.False(t, reg.Stop("thread", "alice"))
	assert.Empty(t, reg.Typing("thread", now.Add(time.Second)))

	assert.Empty(t, reg.Typing("other", now.Add(10*time.Second)))
	assert.False(t, reg.Stop("other", "bob"))
}

func TestKeyPairRequestCache(t *testing.T) {
	cache := NewKeyPairRequestCache(time.Minute)
	now := time.UnixMilli(testNowMs)

	assert.True(t, cache.ShouldRequest("g", now))
	assert.False(t, cache.ShouldRequest("g", now.Add(30*time.Second)))
	assert.True(t, cache.ShouldRequest("other", now))
	assert.True(t, cache.ShouldRequest("g", now.Add(time.Minute)))

	assert.False(t, cache.ShouldRequest("g", now.Add(90*time.Second)))
	cache.Forget("g")
	assert.True(t, cache.ShouldRequest("g", now.Add(91*time.Second)))
}
