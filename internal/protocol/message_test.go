package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmsync/internal/models"
)

func TestKind_StringRoundTrip(t *testing.T) {
	for _, k := range AllKinds() {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	_, err := ParseKind("closedGroupControlMessage")
	assert.Error(t, err)
}

func TestFromContent_Precedence(t *testing.T) {
	tests := []struct {
		name    string
		content *Content
		want    Kind
	}{
		{"read receipt", &Content{ReceiptMessage: &ReceiptMessage{Type: ReceiptRead, Timestamps: []uint64{1}}}, KindReadReceipt},
		{"typing", &Content{TypingMessage: &TypingMessage{}}, KindTypingIndicator},
		{"timer update beats visible", &Content{DataMessage: &DataMessage{Body: "x", Flags: DataMessageFlagExpirationTimerUpdate}}, KindExpirationTimerUpdate},
		{"group update beats visible", &Content{DataMessage: &DataMessage{Body: "x", GroupUpdate: &GroupUpdateMessage{InviteResponse: &GroupInviteResponseProto{IsApproved: true}}}}, KindGroupUpdateInviteResponse},
		{"visible", &Content{DataMessage: &DataMessage{Body: "x"}}, KindVisibleMessage},
		{"call", &Content{CallMessage: &CallMessageProto{Type: CallPreOffer, UUID: "u"}}, KindCallMessage},
		{"unsend", &Content{UnsendRequest: &UnsendProto{TimestampMs: 1, Author: "05a"}}, KindUnsendRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := FromContent(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.want, msg.Kind())
		})
	}

	_, err := FromContent(&Content{ReceiptMessage: &ReceiptMessage{Type: ReceiptDelivery}})
	assert.ErrorIs(t, err, ErrUnknownContent)
	_, err = FromContent(&Content{})
	assert.ErrorIs(t, err, ErrUnknownContent)
}

func TestExpirationTimerUpdate_LegacyFormat(t *testing.T) {
	legacy, err := FromContent(&Content{DataMessage: &DataMessage{Flags: DataMessageFlagExpirationTimerUpdate, ExpireTimer: 60}})
	require.NoError(t, err)
	assert.True(t, legacy.(*ExpirationTimerUpdate).LegacyFormat)
	assert.Equal(t, uint32(60), legacy.(*ExpirationTimerUpdate).DurationSeconds)

	current, err := FromContent(&Content{ExpirationType: 2, ExpirationTimer: 30, DataMessage: &DataMessage{Flags: DataMessageFlagExpirationTimerUpdate, ExpireTimer: 60}})
	require.NoError(t, err)
	assert.False(t, current.(*ExpirationTimerUpdate).LegacyFormat)
	assert.Equal(t, uint32(30), current.(*ExpirationTimerUpdate).DurationSeconds)
}

func TestIsValid(t *testing.T) {
	base := Common{Sender: "05ab", SentTimestampMs: 1000}
	sig := make([]byte, 64)

	tests := []struct {
		name string
		msg  Message
		want bool
	}{
		{"visible with text", &VisibleMessage{Common: base, Text: "hi"}, true},
		{"visible empty", &VisibleMessage{Common: base}, false},
		{"visible without sender", &VisibleMessage{Common: Common{SentTimestampMs: 1}, Text: "hi"}, false},
		{"visible zero timestamp", &VisibleMessage{Common: Common{Sender: "05ab"}, Text: "hi"}, false},
		{"receipt without timestamps", &ReadReceipt{Common: base}, false},
		{"unsend without author", &UnsendRequest{Common: base, TargetTimestampMs: 5}, false},
		{"offer without sdp", &CallMessage{Common: base, CallKind: CallOffer, UUID: "u"}, false},
		{"pre-offer", &CallMessage{Common: base, CallKind: CallPreOffer, UUID: "u"}, true},
		{"extraction unknown", &DataExtractionNotification{Common: base}, false},
		{"info change unsigned", &GroupUpdateInfoChange{Common: base, ChangeType: InfoChangeName}, false},
		{"info change signed", &GroupUpdateInfoChange{Common: base, ChangeType: InfoChangeName, AdminSignature: sig}, true},
		{"invite bad group id", &GroupUpdateInvite{Common: base, GroupSessionID: "05ab", GroupName: "g", MemberAuthData: []byte{1}, AdminSignature: sig}, false},
		{"member left", &GroupUpdateMemberLeft{Common: base}, true},
		{"lib session empty", &LibSessionMessage{Common: base}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.msg.IsValid(false))
		})
	}
}

func TestSelfSendAndBlockedSenderPolicy(t *testing.T) {
	assert.False(t, (&VisibleMessage{}).IsSelfSendValid())
	assert.True(t, (&VisibleMessage{SyncTarget: "05cd"}).IsSelfSendValid())
	assert.True(t, (&ReadReceipt{}).IsSelfSendValid())
	assert.False(t, (&TypingIndicator{}).IsSelfSendValid())
	assert.False(t, (&MessageRequestResponse{}).IsSelfSendValid())

	blockedOK := map[Kind]bool{
		KindGroupUpdateInfoChange:          true,
		KindGroupUpdateMemberChange:        true,
		KindGroupUpdateDeleteMemberContent: true,
		KindLibSessionMessage:              true,
	}
	for _, msg := range []Message{
		&VisibleMessage{}, &ReadReceipt{}, &TypingIndicator{}, &ExpirationTimerUpdate{}, &UnsendRequest{},
		&CallMessage{}, &MessageRequestResponse{}, &DataExtractionNotification{}, &GroupUpdateInvite{},
		&GroupUpdatePromote{}, &GroupUpdateInfoChange{}, &GroupUpdateMemberChange{}, &GroupUpdateMemberLeft{},
		&GroupUpdateMemberLeftNotification{}, &GroupUpdateInviteResponse{}, &GroupUpdateDeleteMemberContent{},
		&LibSessionMessage{},
	} {
		assert.Equal(t, blockedOK[msg.Kind()], msg.ProcessWithBlockedSender(), msg.Kind().String())
	}
}

func TestMessageInfo_Restore(t *testing.T) {
	content := &Content{DataMessage: &DataMessage{Body: "hello"}, SigTimestampMs: 1000}
	msg, err := FromContent(content)
	require.NoError(t, err)
	*msg.Base() = Common{Sender: "05ab", ServerHash: "hash", SentTimestampMs: 1000}

	data, err := NewMessageInfo(msg, content, models.ThreadVariantContact, 99).MarshalBinary()
	require.NoError(t, err)

	var info MessageInfo
	require.NoError(t, info.UnmarshalBinary(data))
	assert.Equal(t, KindVisibleMessage, info.Kind)
	assert.Equal(t, int64(99), info.ServerExpirationTimestamp)

	restored, restoredContent, err := info.Message()
	require.NoError(t, err)
	assert.Equal(t, "hello", restored.(*VisibleMessage).Text)
	assert.Equal(t, "hash", restored.Base().ServerHash)
	assert.Equal(t, uint64(1000), restoredContent.SigTimestampMs)
}
