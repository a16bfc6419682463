package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestDecodeContent_VisibleMessage(t *testing.T) {
	original := &Content{
		DataMessage: &DataMessage{
			Body: "hello",
			Attachments: []AttachmentPointer{
				{ID: 42, ContentType: "image/png", Size: 1024, URL: "https://files.example/42", Width: 10, Height: 20},
				{ID: 43, ContentType: "image/png"},
			},
			TimestampMs: 1000,
			Quote:       &QuoteProto{ID: 900, Author: "05aa", Text: "earlier"},
			Preview:     []PreviewProto{{URL: "https://example.com", Title: "Example"}},
			Profile:     &ProfileProto{DisplayName: "Carol", ProfilePicture: "https://cdn/avatar"},
			ProfileKey:  []byte{1, 2, 3},
		},
		ExpirationType:  2,
		ExpirationTimer: 3600,
		SigTimestampMs:  1000,
	}

	decoded, err := DecodeContent(EncodeContent(original))
	require.NoError(t, err)

	require.NotNil(t, decoded.DataMessage)
	assert.Equal(t, "hello", decoded.DataMessage.Body)
	require.Len(t, decoded.DataMessage.Attachments, 2)
	assert.Equal(t, uint64(42), decoded.DataMessage.Attachments[0].ID)
	assert.Equal(t, "https://files.example/42", decoded.DataMessage.Attachments[0].URL)
	assert.Equal(t, "earlier", decoded.DataMessage.Quote.Text)
	assert.Equal(t, "Carol", decoded.DataMessage.Profile.DisplayName)
	assert.Equal(t, uint32(3600), decoded.ExpirationTimer)
	assert.Equal(t, uint64(1000), decoded.SigTimestampMs)

	msg, err := FromContent(decoded)
	require.NoError(t, err)
	visible, ok := msg.(*VisibleMessage)
	require.True(t, ok)
	assert.Len(t, visible.ValidAttachments(), 1)
	assert.Equal(t, int64(900), visible.Quote.TimestampMs)
	assert.Equal(t, "https://example.com", visible.LinkPreview.URL)
	assert.Equal(t, []byte{1, 2, 3}, visible.Profile.ProfileKey)
}

func TestDecodeContent_WrongWireTypeNamesField(t *testing.T) {
	var inner []byte
	inner = protowire.AppendTag(inner, 1, protowire.VarintType)
	inner = protowire.AppendVarint(inner, 7)

	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, inner)

	_, err := DecodeContent(b)
	require.Error(t, err)

	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, "Content", decodeErr.Message)
	assert.Equal(t, "dataMessage", decodeErr.Field)
	assert.Contains(t, err.Error(), "DataMessage.body")
}

func TestDecodeContent_TruncatedInput(t *testing.T) {
	b := EncodeContent(&Content{DataMessage: &DataMessage{Body: "truncate me"}})

	_, err := DecodeContent(b[:len(b)-3])
	assert.Error(t, err)
}

func TestDecodeContent_SkipsUnknownFields(t *testing.T) {
	b := EncodeContent(&Content{TypingMessage: &TypingMessage{TimestampMs: 5}})
	b = protowire.AppendTag(b, 999, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("future"))

	decoded, err := DecodeContent(b)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), decoded.TypingMessage.TimestampMs)
}

func TestDecodeReceipt_PackedAndUnpacked(t *testing.T) {
	var unpacked []byte
	unpacked = protowire.AppendTag(unpacked, 1, protowire.VarintType)
	unpacked = protowire.AppendVarint(unpacked, uint64(ReceiptRead))
	for _, ts := range []uint64{10, 20} {
		unpacked = protowire.AppendTag(unpacked, 2, protowire.VarintType)
		unpacked = protowire.AppendVarint(unpacked, ts)
	}

	fromUnpacked, err := decodeReceipt(unpacked)
	require.NoError(t, err)

	packed := EncodeContent(&Content{ReceiptMessage: &ReceiptMessage{Type: ReceiptRead, Timestamps: []uint64{10, 20}}})
	fromPacked, err := DecodeContent(packed)
	require.NoError(t, err)

	assert.Equal(t, []uint64{10, 20}, fromUnpacked.Timestamps)
	assert.Equal(t, fromUnpacked.Timestamps, fromPacked.ReceiptMessage.Timestamps)
}

func TestGroupUpdate_EmptySubMessagesSurvive(t *testing.T) {
	content := &Content{DataMessage: &DataMessage{GroupUpdate: &GroupUpdateMessage{MemberLeft: &struct{}{}}}}

	decoded, err := DecodeContent(EncodeContent(content))
	require.NoError(t, err)

	msg, err := FromContent(decoded)
	require.NoError(t, err)
	assert.Equal(t, KindGroupUpdateMemberLeft, msg.Kind())
}
